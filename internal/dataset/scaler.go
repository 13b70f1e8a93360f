package dataset

import (
	"encoding/json"
	"math"
	"os"

	"github.com/jonesrussell/url-sentinel/internal/domain"
)

// StandardScaler centers features to zero mean and unit variance. Fit on the
// training split only; the same parameters are then applied everywhere,
// including single-URL prediction.
type StandardScaler struct {
	Columns []string  `json:"columns"`
	Mean    []float64 `json:"mean"`
	Std     []float64 `json:"std"`
}

// Fit computes per-column mean and standard deviation.
func (s *StandardScaler) Fit(x [][]float64, columns []string) error {
	if len(x) == 0 {
		return domain.NewError(domain.KindDataTransformation, "cannot fit scaler on empty data")
	}
	cols := len(x[0])
	s.Columns = append([]string{}, columns...)
	s.Mean = make([]float64, cols)
	s.Std = make([]float64, cols)

	for j := 0; j < cols; j++ {
		var sum float64
		for i := range x {
			sum += x[i][j]
		}
		mean := sum / float64(len(x))

		var sq float64
		for i := range x {
			d := x[i][j] - mean
			sq += d * d
		}
		std := math.Sqrt(sq / float64(len(x)))
		if std == 0 {
			// Constant column; leave values centered but unscaled.
			std = 1
		}
		s.Mean[j] = mean
		s.Std[j] = std
	}
	return nil
}

// Transform returns a scaled copy of x.
func (s *StandardScaler) Transform(x [][]float64) ([][]float64, error) {
	if len(s.Mean) == 0 {
		return nil, domain.NewError(domain.KindDataTransformation, "scaler is not fitted")
	}
	out := make([][]float64, len(x))
	for i, row := range x {
		if len(row) != len(s.Mean) {
			return nil, domain.NewError(domain.KindDataTransformation, "row width does not match fitted scaler")
		}
		scaled := make([]float64, len(row))
		for j, v := range row {
			scaled[j] = (v - s.Mean[j]) / s.Std[j]
		}
		out[i] = scaled
	}
	return out, nil
}

// TransformRow scales a single feature row in place order.
func (s *StandardScaler) TransformRow(row []float64) ([]float64, error) {
	out, err := s.Transform([][]float64{row})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// Save writes the fitted scaler as JSON.
func (s *StandardScaler) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return domain.WrapError(domain.KindDataTransformation, "marshal scaler", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return domain.WrapError(domain.KindDataTransformation, "write scaler", err)
	}
	return nil
}

// LoadScaler reads a fitted scaler from path.
func LoadScaler(path string) (*StandardScaler, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.WrapError(domain.KindDataTransformation, "read scaler", err)
	}
	var s StandardScaler
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, domain.WrapError(domain.KindDataTransformation, "parse scaler", err)
	}
	return &s, nil
}
