// Probe runs a single image (or a blank tensor) through a captcha model and
// prints what the network sees at every position.
//
//	go run ./cmd/probe -type math -image sample.png
package main

import (
	"captchasolver/internal/captcha"
	"captchasolver/internal/config"
	"captchasolver/internal/inference"
	"captchasolver/internal/model"
	"captchasolver/internal/preprocess"
	"captchasolver/internal/solver"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

func main() {
	typeFlag := flag.String("type", "text", "captcha type: text or math")
	imageFlag := flag.String("image", "", "image file to solve (default: blank all-zero input)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	t := captcha.ParseType(*typeFlag)
	profile := captcha.ProfileFor(t)
	fmt.Printf("Vocabulary (%d): %s\n", profile.Vocabulary.Size(), profile.Vocabulary)

	paths := map[captcha.Type]string{captcha.TypeText: cfg.TextModelPath, captcha.TypeMath: cfg.MathModelPath}
	models := inference.LoadONNX(cfg.OnnxRuntimeLib, map[captcha.Type]string{t: paths[t]})
	defer models.Close()

	input := inference.Blank()
	source := "blank image"
	if *imageFlag != "" {
		data, err := os.ReadFile(*imageFlag)
		if err != nil {
			log.Fatalf("Failed to read image: %v", err)
		}
		if input, err = preprocess.Image(data); err != nil {
			log.Fatalf("Failed to preprocess image: %v", err)
		}
		source = *imageFlag
	}

	resp, err := solver.New(models).SolveInput(context.Background(), t, input)
	if err != nil {
		log.Fatalf("Solve failed: %v", err)
	}

	fmt.Printf("\nPrediction for %s: %q (confidence %.1f%%, %dms)\n", source, resp.Prediction, resp.Confidence, resp.ProcessingTimeMs)
	if resp.Expression != nil {
		fmt.Printf("Expression: %q\n", *resp.Expression)
	}
	fmt.Println()
	for _, d := range resp.CharDetails {
		fmt.Printf("  Position %d: %q %5.1f%%   top: %s\n", d.Position, d.Predicted, d.Confidence, formatTop(d.Top3))
	}
}

func formatTop(top []model.Candidate) string {
	parts := make([]string, len(top))
	for i, c := range top {
		parts[i] = fmt.Sprintf("%q=%.1f", c.Char, c.Confidence)
	}
	return strings.Join(parts, " ")
}
