package model

import (
	"math"
	"math/rand"

	"github.com/jonesrussell/url-sentinel/internal/domain"
)

// LogisticRegression is a binary logistic model trained with SGD and L2
// regularization. Exported fields are the persisted state.
type LogisticRegression struct {
	LearningRate float64   `json:"learning_rate"`
	L2           float64   `json:"l2"`
	Epochs       int       `json:"epochs"`
	Seed         int64     `json:"seed"`
	Weights      []float64 `json:"weights"`
	Bias         float64   `json:"bias"`
}

// NewLogisticRegression returns a model with workable defaults.
func NewLogisticRegression() *LogisticRegression {
	return &LogisticRegression{LearningRate: 0.1, L2: 1e-4, Epochs: 100, Seed: 42}
}

func (m *LogisticRegression) Name() string { return "logistic_regression" }

// Fit runs SGD over shuffled rows for Epochs passes.
func (m *LogisticRegression) Fit(x [][]float64, y []int) error {
	if len(x) == 0 {
		return domain.NewError(domain.KindModelTrainer, "cannot fit on empty data")
	}
	if len(x) != len(y) {
		return domain.NewError(domain.KindModelTrainer, "feature and label counts differ")
	}

	dim := len(x[0])
	m.Weights = make([]float64, dim)
	m.Bias = 0

	rng := rand.New(rand.NewSource(m.Seed))
	order := make([]int, len(x))
	for i := range order {
		order[i] = i
	}

	for epoch := 0; epoch < m.Epochs; epoch++ {
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		for _, i := range order {
			row := x[i]
			if len(row) != dim {
				return domain.NewError(domain.KindModelTrainer, "inconsistent row width")
			}
			p := m.PredictProba(row)
			grad := p - float64(y[i])
			for j, v := range row {
				m.Weights[j] -= m.LearningRate * (grad*v + m.L2*m.Weights[j])
			}
			m.Bias -= m.LearningRate * grad
		}
	}
	return nil
}

// PredictProba returns the sigmoid of the linear score.
func (m *LogisticRegression) PredictProba(row []float64) float64 {
	score := m.Bias
	for j, w := range m.Weights {
		if j < len(row) {
			score += w * row[j]
		}
	}
	return 1 / (1 + math.Exp(-score))
}

// Contributions returns per-feature weight*value terms for one row, used to
// explain a prediction.
func (m *LogisticRegression) Contributions(row []float64) []float64 {
	out := make([]float64, len(m.Weights))
	for j, w := range m.Weights {
		if j < len(row) {
			out[j] = w * row[j]
		}
	}
	return out
}
