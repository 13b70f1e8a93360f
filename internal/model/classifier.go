// Package model implements the binary classifiers, model selection, and
// artifact persistence for URL verdicts.
package model

// Classifier is a trainable binary classifier over dense feature rows.
// Label 1 is malicious, 0 is benign.
type Classifier interface {
	// Fit trains on the given matrix. Rows must all share one width.
	Fit(x [][]float64, y []int) error
	// PredictProba returns P(label == 1) for one row.
	PredictProba(row []float64) float64
	// Name identifies the model family in artifacts and metrics.
	Name() string
}

// Predict thresholds PredictProba at 0.5.
func Predict(c Classifier, row []float64) int {
	if c.PredictProba(row) >= 0.5 {
		return 1
	}
	return 0
}

// PredictAll applies Predict across a matrix.
func PredictAll(c Classifier, x [][]float64) []int {
	out := make([]int, len(x))
	for i, row := range x {
		out[i] = Predict(c, row)
	}
	return out
}
