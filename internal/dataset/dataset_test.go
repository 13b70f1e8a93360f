package dataset

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeCSV(t, "a,b,result\n1,2,0\n3,4,1\n")

	ds, err := Load(path, []string{"a", "b"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ds.Len() != 2 {
		t.Fatalf("Len = %d, want 2", ds.Len())
	}
	if ds.X[1][0] != 3 || ds.Y[1] != 1 {
		t.Errorf("row 1 = %v/%d, want [3 4]/1", ds.X[1], ds.Y[1])
	}
}

func TestLoadMissingColumn(t *testing.T) {
	path := writeCSV(t, "a,result\n1,0\n")
	if _, err := Load(path, []string{"a", "missing"}); err == nil {
		t.Fatal("expected error for missing column")
	}
}

func TestLoadNonNumeric(t *testing.T) {
	path := writeCSV(t, "a,result\noops,0\n")
	if _, err := Load(path, []string{"a"}); err == nil {
		t.Fatal("expected error for non-numeric value")
	}
}

func TestWriteRoundTrip(t *testing.T) {
	ds := &Dataset{Columns: []string{"a", "b"}}
	ds.Append([]float64{1, 2.5}, 0)
	ds.Append([]float64{3, 4}, 1)

	path := filepath.Join(t.TempDir(), "out.csv")
	if err := Write(path, ds); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := Load(path, []string{"a", "b"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Len() != 2 || got.X[0][1] != 2.5 || got.Y[1] != 1 {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestScaler(t *testing.T) {
	s := &StandardScaler{}
	x := [][]float64{{1, 10}, {3, 10}, {5, 10}}
	if err := s.Fit(x, []string{"a", "b"}); err != nil {
		t.Fatal(err)
	}

	if s.Mean[0] != 3 {
		t.Errorf("mean[0] = %v, want 3", s.Mean[0])
	}
	// Constant column keeps std 1 so transform stays finite.
	if s.Std[1] != 1 {
		t.Errorf("std[1] = %v, want 1", s.Std[1])
	}

	out, err := s.Transform(x)
	if err != nil {
		t.Fatal(err)
	}
	var sum float64
	for _, row := range out {
		sum += row[0]
	}
	if math.Abs(sum) > 1e-9 {
		t.Errorf("scaled column mean = %v, want 0", sum/3)
	}
}

func TestScalerSaveLoad(t *testing.T) {
	s := &StandardScaler{}
	if err := s.Fit([][]float64{{1}, {2}, {3}}, []string{"a"}); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "scaler.json")
	if err := s.Save(path); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadScaler(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Mean[0] != s.Mean[0] || loaded.Std[0] != s.Std[0] {
		t.Errorf("loaded scaler differs: %+v vs %+v", loaded, s)
	}
}

func TestStratifiedSplit(t *testing.T) {
	ds := &Dataset{Columns: []string{"a"}}
	for i := 0; i < 80; i++ {
		ds.Append([]float64{float64(i)}, 0)
	}
	for i := 0; i < 20; i++ {
		ds.Append([]float64{float64(100 + i)}, 1)
	}

	train, test, err := StratifiedSplit(ds, 0.2, 42)
	if err != nil {
		t.Fatal(err)
	}
	if train.Len()+test.Len() != 100 {
		t.Fatalf("rows lost: %d + %d", train.Len(), test.Len())
	}
	if got := countLabel(test.Y, 1); got != 4 {
		t.Errorf("minority class in test = %d, want 4", got)
	}

	// Determinism for equal seeds.
	train2, _, err := StratifiedSplit(ds, 0.2, 42)
	if err != nil {
		t.Fatal(err)
	}
	for i := range train.X {
		if train.X[i][0] != train2.X[i][0] {
			t.Fatal("split is not deterministic for a fixed seed")
		}
	}
}

func TestStratifiedKFold(t *testing.T) {
	y := make([]int, 50)
	for i := 40; i < 50; i++ {
		y[i] = 1
	}

	folds := StratifiedKFold(y, 5, 42)
	if len(folds) != 5 {
		t.Fatalf("folds = %d, want 5", len(folds))
	}
	for i, f := range folds {
		if len(f.TrainIdx)+len(f.TestIdx) != 50 {
			t.Errorf("fold %d covers %d rows", i, len(f.TrainIdx)+len(f.TestIdx))
		}
		minority := 0
		for _, idx := range f.TestIdx {
			if y[idx] == 1 {
				minority++
			}
		}
		if minority != 2 {
			t.Errorf("fold %d minority test rows = %d, want 2", i, minority)
		}
	}
}

func TestTransformRejectsNaN(t *testing.T) {
	ds := &Dataset{Columns: []string{"a"}}
	ds.Append([]float64{math.NaN()}, 0)
	ds.Append([]float64{1}, 1)

	if _, err := Transform(ds, TransformOptions{TestSize: 0.5, Seed: 42}); err == nil {
		t.Fatal("expected NaN rejection")
	}
}

func countLabel(y []int, label int) int {
	n := 0
	for _, v := range y {
		if v == label {
			n++
		}
	}
	return n
}
