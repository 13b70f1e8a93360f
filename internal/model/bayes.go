package model

import (
	"math"

	"github.com/jonesrussell/url-sentinel/internal/domain"
)

// GaussianNB is a Gaussian naive Bayes classifier. Exported fields are the
// persisted state.
type GaussianNB struct {
	VarSmoothing float64     `json:"var_smoothing"`
	Priors       []float64   `json:"priors"` // index = class label 0/1
	Means        [][]float64 `json:"means"`
	Variances    [][]float64 `json:"variances"`
}

// NewGaussianNB returns a model with the conventional smoothing default.
func NewGaussianNB() *GaussianNB {
	return &GaussianNB{VarSmoothing: 1e-9}
}

func (m *GaussianNB) Name() string { return "gaussian_nb" }

// Fit estimates per-class feature means and variances.
func (m *GaussianNB) Fit(x [][]float64, y []int) error {
	if len(x) == 0 {
		return domain.NewError(domain.KindModelTrainer, "cannot fit on empty data")
	}
	if len(x) != len(y) {
		return domain.NewError(domain.KindModelTrainer, "feature and label counts differ")
	}

	dim := len(x[0])
	counts := [2]int{}
	sums := [2][]float64{make([]float64, dim), make([]float64, dim)}
	for i, row := range x {
		c := y[i]
		if c != 0 && c != 1 {
			return domain.NewError(domain.KindModelTrainer, "labels must be 0 or 1")
		}
		counts[c]++
		for j, v := range row {
			sums[c][j] += v
		}
	}
	if counts[0] == 0 || counts[1] == 0 {
		return domain.NewError(domain.KindModelTrainer, "training data must contain both classes")
	}

	m.Priors = make([]float64, 2)
	m.Means = [][]float64{make([]float64, dim), make([]float64, dim)}
	m.Variances = [][]float64{make([]float64, dim), make([]float64, dim)}

	for c := 0; c < 2; c++ {
		m.Priors[c] = float64(counts[c]) / float64(len(x))
		for j := 0; j < dim; j++ {
			m.Means[c][j] = sums[c][j] / float64(counts[c])
		}
	}
	for i, row := range x {
		c := y[i]
		for j, v := range row {
			d := v - m.Means[c][j]
			m.Variances[c][j] += d * d
		}
	}

	// Smooth by a fraction of the largest feature variance so that constant
	// features do not zero out the likelihood.
	maxVar := 0.0
	for c := 0; c < 2; c++ {
		for j := 0; j < dim; j++ {
			m.Variances[c][j] /= float64(counts[c])
			if m.Variances[c][j] > maxVar {
				maxVar = m.Variances[c][j]
			}
		}
	}
	eps := m.VarSmoothing * math.Max(maxVar, 1)
	for c := 0; c < 2; c++ {
		for j := 0; j < dim; j++ {
			m.Variances[c][j] += eps
		}
	}
	return nil
}

// PredictProba computes P(class 1 | row) from the per-class Gaussian
// log-likelihoods.
func (m *GaussianNB) PredictProba(row []float64) float64 {
	if len(m.Priors) != 2 {
		return 0.5
	}
	logp := [2]float64{}
	for c := 0; c < 2; c++ {
		logp[c] = math.Log(m.Priors[c])
		for j, v := range row {
			if j >= len(m.Means[c]) {
				break
			}
			variance := m.Variances[c][j]
			d := v - m.Means[c][j]
			logp[c] += -0.5*math.Log(2*math.Pi*variance) - d*d/(2*variance)
		}
	}
	// Normalize in log space.
	max := math.Max(logp[0], logp[1])
	p0 := math.Exp(logp[0] - max)
	p1 := math.Exp(logp[1] - max)
	return p1 / (p0 + p1)
}
