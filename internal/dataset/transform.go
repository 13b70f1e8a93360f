package dataset

import (
	"github.com/jonesrussell/url-sentinel/internal/domain"
)

// TransformOptions control the split and scale step.
type TransformOptions struct {
	TestSize float64
	Seed     int64
}

// TrainTest is the output of Transform: scaled train and test splits plus
// the scaler fitted on the training split.
type TrainTest struct {
	Train  *Dataset
	Test   *Dataset
	Scaler *StandardScaler
}

// Transform splits the dataset and scales both halves with a scaler fitted
// on the training half only.
func Transform(ds *Dataset, opts TransformOptions) (*TrainTest, error) {
	if ds.HasNaN() {
		return nil, domain.NewError(domain.KindDataTransformation, "dataset contains NaN or infinite values")
	}

	train, test, err := StratifiedSplit(ds, opts.TestSize, opts.Seed)
	if err != nil {
		return nil, err
	}

	scaler := &StandardScaler{}
	if err := scaler.Fit(train.X, train.Columns); err != nil {
		return nil, err
	}
	if train.X, err = scaler.Transform(train.X); err != nil {
		return nil, err
	}
	if test.X, err = scaler.Transform(test.X); err != nil {
		return nil, err
	}

	return &TrainTest{Train: train, Test: test, Scaler: scaler}, nil
}
