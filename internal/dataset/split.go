package dataset

import (
	"math/rand"
	"sort"

	"github.com/jonesrussell/url-sentinel/internal/domain"
)

// StratifiedSplit partitions the dataset into train and test sets, keeping
// the per-class label ratio in both. The split is deterministic for a given
// seed.
func StratifiedSplit(ds *Dataset, testSize float64, seed int64) (train, test *Dataset, err error) {
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, domain.NewError(domain.KindDataTransformation, "test size must be in (0, 1)")
	}
	if ds.Len() < 2 {
		return nil, nil, domain.NewError(domain.KindDataTransformation, "not enough rows to split")
	}

	rng := rand.New(rand.NewSource(seed))
	train = &Dataset{Columns: ds.Columns}
	test = &Dataset{Columns: ds.Columns}

	for _, class := range classes(ds.Y) {
		var idx []int
		for i, y := range ds.Y {
			if y == class {
				idx = append(idx, i)
			}
		}
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })

		nTest := int(float64(len(idx)) * testSize)
		for k, i := range idx {
			if k < nTest {
				test.Append(ds.X[i], ds.Y[i])
			} else {
				train.Append(ds.X[i], ds.Y[i])
			}
		}
	}
	return train, test, nil
}

// Fold is one cross-validation partition, expressed as row indices.
type Fold struct {
	TrainIdx []int
	TestIdx  []int
}

// StratifiedKFold builds k folds with per-class balance, deterministic for a
// given seed.
func StratifiedKFold(y []int, k int, seed int64) []Fold {
	if k < 2 {
		k = 2
	}
	rng := rand.New(rand.NewSource(seed))

	assignments := make([]int, len(y))
	for _, class := range classes(y) {
		var idx []int
		for i, label := range y {
			if label == class {
				idx = append(idx, i)
			}
		}
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		for pos, i := range idx {
			assignments[i] = pos % k
		}
	}

	folds := make([]Fold, k)
	for i, f := range assignments {
		for fold := range folds {
			if fold == f {
				folds[fold].TestIdx = append(folds[fold].TestIdx, i)
			} else {
				folds[fold].TrainIdx = append(folds[fold].TrainIdx, i)
			}
		}
	}
	return folds
}

// classes returns the distinct labels in ascending order.
func classes(y []int) []int {
	seen := map[int]bool{}
	var out []int
	for _, v := range y {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Ints(out)
	return out
}

// Subset extracts the rows at idx into a new dataset.
func Subset(ds *Dataset, idx []int) *Dataset {
	out := &Dataset{Columns: ds.Columns}
	for _, i := range idx {
		out.Append(ds.X[i], ds.Y[i])
	}
	return out
}
