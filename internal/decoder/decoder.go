// Package decoder turns per-position probability vectors into a captcha string.
package decoder

import (
	"captchasolver/internal/captcha"
	"captchasolver/internal/inference"
	"captchasolver/internal/model"
	"math"
	"strings"
)

// TopK is the number of alternatives reported per position.
const TopK = 3

// Result is the decoded form of a prediction.
type Result struct {
	Text       string
	Confidence float64
	Details    []model.CharDetail
}

// Decode picks the most probable symbol at every position. Blank symbols are
// dropped from Text but kept in Details and in the average confidence.
// Ties go to the lower index.
func Decode(pred inference.Prediction, vocab captcha.Vocabulary) Result {
	var text strings.Builder
	details := make([]model.CharDetail, 0, len(pred))
	var sum float64

	for pos, probs := range pred {
		top := topIndices(probs, TopK)

		detail := model.CharDetail{
			Position:  pos,
			Predicted: captcha.Unknown,
			Top3:      make([]model.Candidate, 0, len(top)),
		}
		for _, idx := range top {
			detail.Top3 = append(detail.Top3, model.Candidate{
				Char:       vocab.Symbol(idx),
				Confidence: percent(probs[idx]),
			})
		}

		if len(top) > 0 {
			best := top[0]
			detail.Predicted = vocab.Symbol(best)
			detail.Confidence = percent(probs[best])
			if !vocab.IsBlank(best) {
				text.WriteString(detail.Predicted)
			}
		}

		sum += detail.Confidence
		details = append(details, detail)
	}

	var avg float64
	if len(details) > 0 {
		avg = round1(sum / float64(len(details)))
	}

	return Result{
		Text:       text.String(),
		Confidence: avg,
		Details:    details,
	}
}

// topIndices returns the indices of the k largest values in descending order.
// An index only displaces a kept one if its value is strictly greater, so equal
// values keep ascending index order.
func topIndices(probs []float32, k int) []int {
	if k > len(probs) {
		k = len(probs)
	}
	top := make([]int, 0, k)
	for i, p := range probs {
		pos := len(top)
		for pos > 0 && p > probs[top[pos-1]] {
			pos--
		}
		if pos >= k {
			continue
		}
		if len(top) < k {
			top = append(top, 0)
		}
		copy(top[pos+1:], top[pos:len(top)-1])
		top[pos] = i
	}
	return top
}

func percent(p float32) float64 {
	return round1(float64(p) * 100)
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
