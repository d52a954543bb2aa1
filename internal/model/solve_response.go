package model

// Candidate is one of the top-k symbols predicted for a position
type Candidate struct {
	Char       string  `json:"char"`
	Confidence float64 `json:"confidence"`
}

// CharDetail describes the prediction for a single character position
type CharDetail struct {
	Position   int         `json:"position"`
	Predicted  string      `json:"predicted"`
	Confidence float64     `json:"confidence"`
	Top3       []Candidate `json:"top_3"`
}

// SolveResponse is returned by POST /api/solve
type SolveResponse struct {
	Success          bool         `json:"success"`
	Prediction       string       `json:"prediction"`
	Expression       *string      `json:"expression,omitempty"`
	Confidence       float64      `json:"confidence"`
	Type             string       `json:"type"`
	Model            string       `json:"model"`
	Architecture     string       `json:"architecture"`
	ProcessingTimeMs int64        `json:"processing_time_ms"`
	CharDetails      []CharDetail `json:"char_details"`
	VocabSize        int          `json:"vocab_size"`
}
