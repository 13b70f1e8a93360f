package model

import (
	"fmt"
	"math/rand"

	"github.com/jonesrussell/url-sentinel/internal/dataset"
	"github.com/jonesrussell/url-sentinel/internal/domain"
)

// SearchOptions control randomized hyperparameter search.
type SearchOptions struct {
	Iterations int
	CVFolds    int
	Seed       int64
}

// SearchResult is the winning candidate of a search.
type SearchResult struct {
	Classifier Classifier
	Params     map[string]float64
	CVScore    float64
}

var (
	learningRates = []float64{0.3, 0.1, 0.03, 0.01}
	l2Penalties   = []float64{0, 1e-4, 1e-3, 1e-2}
	epochCounts   = []float64{50, 100, 200}
	smoothings    = []float64{1e-9, 1e-8, 1e-7, 1e-6, 1e-5}
)

// RandomizedSearch samples hyperparameters for the given model family and
// scores each candidate by mean weighted F1 over stratified k-fold CV.
// Sampling and folding are deterministic for a given seed; ties keep the
// earlier candidate.
func RandomizedSearch(ds *dataset.Dataset, family string, opts SearchOptions) (*SearchResult, error) {
	if opts.Iterations < 1 {
		opts.Iterations = 1
	}
	rng := rand.New(rand.NewSource(opts.Seed))
	folds := dataset.StratifiedKFold(ds.Y, opts.CVFolds, opts.Seed)

	var best *SearchResult
	for iter := 0; iter < opts.Iterations; iter++ {
		params, build, err := sampleCandidate(family, rng, opts.Seed)
		if err != nil {
			return nil, err
		}

		score, err := crossValidate(ds, folds, build)
		if err != nil {
			return nil, err
		}
		if best == nil || score > best.CVScore {
			best = &SearchResult{Params: params, CVScore: score}
			best.Classifier = build()
		}
	}

	// Refit the winner on the full dataset.
	if err := best.Classifier.Fit(ds.X, ds.Y); err != nil {
		return nil, err
	}
	return best, nil
}

func sampleCandidate(family string, rng *rand.Rand, seed int64) (map[string]float64, func() Classifier, error) {
	switch family {
	case "logistic_regression":
		lr := learningRates[rng.Intn(len(learningRates))]
		l2 := l2Penalties[rng.Intn(len(l2Penalties))]
		epochs := epochCounts[rng.Intn(len(epochCounts))]
		params := map[string]float64{"learning_rate": lr, "l2": l2, "epochs": epochs}
		build := func() Classifier {
			return &LogisticRegression{LearningRate: lr, L2: l2, Epochs: int(epochs), Seed: seed}
		}
		return params, build, nil

	case "gaussian_nb":
		vs := smoothings[rng.Intn(len(smoothings))]
		params := map[string]float64{"var_smoothing": vs}
		build := func() Classifier {
			return &GaussianNB{VarSmoothing: vs}
		}
		return params, build, nil

	default:
		return nil, nil, domain.NewError(domain.KindModelTrainer, fmt.Sprintf("unknown model family %q", family))
	}
}

func crossValidate(ds *dataset.Dataset, folds []dataset.Fold, build func() Classifier) (float64, error) {
	var sum float64
	for _, fold := range folds {
		train := dataset.Subset(ds, fold.TrainIdx)
		test := dataset.Subset(ds, fold.TestIdx)

		c := build()
		if err := c.Fit(train.X, train.Y); err != nil {
			return 0, err
		}
		sum += Evaluate(test.Y, PredictAll(c, test.X)).F1Weighted
	}
	return sum / float64(len(folds)), nil
}
