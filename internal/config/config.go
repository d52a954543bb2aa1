package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

type Config struct {
	Port           string
	ModelsDir      string
	TextModelPath  string
	MathModelPath  string
	OnnxRuntimeLib string
	WebDir         string
	MaxUploadBytes int64
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	modelsDir := getEnv("MODELS_DIR", "models")

	cfg := &Config{
		Port:           getEnv("PORT", "8000"),
		ModelsDir:      modelsDir,
		TextModelPath:  getEnv("TEXT_MODEL_PATH", filepath.Join(modelsDir, "text_captcha.onnx")),
		MathModelPath:  getEnv("MATH_MODEL_PATH", filepath.Join(modelsDir, "math_captcha.onnx")),
		OnnxRuntimeLib: os.Getenv("ONNXRUNTIME_LIB"),
		WebDir:         getEnv("WEB_DIR", "web"),
	}

	maxMB, err := strconv.Atoi(getEnv("MAX_UPLOAD_MB", "10"))
	if err != nil {
		return nil, fmt.Errorf("MAX_UPLOAD_MB must be an integer: %w", err)
	}
	if maxMB <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_MB must be positive, got %d", maxMB)
	}
	cfg.MaxUploadBytes = int64(maxMB) << 20

	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return nil, fmt.Errorf("PORT must be numeric, got %q", cfg.Port)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
