// Package dataset handles CSV training data: loading, stratified splitting,
// and feature scaling.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/jonesrussell/url-sentinel/internal/domain"
)

// LabelColumn is the target column name in training CSVs. 1 is malicious,
// 0 is benign.
const LabelColumn = "result"

// Dataset is an in-memory feature matrix with labels.
type Dataset struct {
	Columns []string
	X       [][]float64
	Y       []int
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.X) }

// Append adds a labeled row.
func (d *Dataset) Append(row []float64, label int) {
	d.X = append(d.X, row)
	d.Y = append(d.Y, label)
}

// RowFromVector projects a feature vector onto the dataset's column order.
func RowFromVector(fv domain.FeatureVector, columns []string) []float64 {
	row := make([]float64, len(columns))
	for i, c := range columns {
		row[i] = fv.Get(c)
	}
	return row
}

// Load reads a training CSV and selects the given feature columns plus the
// label column. Missing columns and non-numeric cells are ingestion errors.
func Load(path string, columns []string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, domain.WrapError(domain.KindDataIngestion, "open training data", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, domain.WrapError(domain.KindDataIngestion, "read csv header", err)
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[name] = i
	}

	colIdx := make([]int, len(columns))
	for i, c := range columns {
		j, ok := idx[c]
		if !ok {
			return nil, domain.NewError(domain.KindDataIngestion, fmt.Sprintf("missing feature column %q", c))
		}
		colIdx[i] = j
	}
	labelIdx, ok := idx[LabelColumn]
	if !ok {
		return nil, domain.NewError(domain.KindDataIngestion, fmt.Sprintf("missing label column %q", LabelColumn))
	}

	ds := &Dataset{Columns: append([]string{}, columns...)}
	line := 1
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, domain.WrapError(domain.KindDataIngestion, fmt.Sprintf("read csv line %d", line), err)
		}
		line++

		row := make([]float64, len(colIdx))
		for i, j := range colIdx {
			v, err := strconv.ParseFloat(rec[j], 64)
			if err != nil {
				return nil, domain.WrapError(domain.KindDataIngestion,
					fmt.Sprintf("non-numeric value %q in column %q line %d", rec[j], columns[i], line), err)
			}
			row[i] = v
		}
		label, err := strconv.Atoi(rec[labelIdx])
		if err != nil {
			return nil, domain.WrapError(domain.KindDataIngestion,
				fmt.Sprintf("non-integer label %q line %d", rec[labelIdx], line), err)
		}
		ds.Append(row, label)
	}

	if ds.Len() == 0 {
		return nil, domain.NewError(domain.KindDataIngestion, "training data contains no rows")
	}
	return ds, nil
}

// Write persists the dataset as a CSV with the feature columns followed by
// the label column.
func Write(path string, ds *Dataset) error {
	f, err := os.Create(path)
	if err != nil {
		return domain.WrapError(domain.KindDataIngestion, "create dataset file", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := append(append([]string{}, ds.Columns...), LabelColumn)
	if err := w.Write(header); err != nil {
		return domain.WrapError(domain.KindDataIngestion, "write csv header", err)
	}

	rec := make([]string, len(header))
	for i, row := range ds.X {
		for j, v := range row {
			rec[j] = formatFloat(v)
		}
		rec[len(rec)-1] = strconv.Itoa(ds.Y[i])
		if err := w.Write(rec); err != nil {
			return domain.WrapError(domain.KindDataIngestion, "write csv row", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return domain.WrapError(domain.KindDataIngestion, "flush csv", err)
	}
	return nil
}

// HasNaN reports whether any cell is NaN or infinite.
func (d *Dataset) HasNaN() bool {
	for _, row := range d.X {
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return true
			}
		}
	}
	return false
}

func formatFloat(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
