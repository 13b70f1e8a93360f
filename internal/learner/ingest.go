package learner

import (
	"context"
	"os"
	"path/filepath"

	"github.com/jonesrussell/url-sentinel/internal/dataset"
	"github.com/jonesrussell/url-sentinel/internal/domain"
	"github.com/jonesrussell/url-sentinel/internal/logging"
	"github.com/jonesrussell/url-sentinel/internal/model"
)

// TestDataName is the transformed test split written alongside the base CSV.
const TestDataName = "transformed_test_data.csv"

// IngestResult reports one data ingestion run.
type IngestResult struct {
	Input     string `json:"input"`
	TotalRows int    `json:"total_rows"`
	TrainRows int    `json:"train_rows"`
	TestRows  int    `json:"test_rows"`
	Columns   int    `json:"columns"`
}

// Ingest loads a raw feature CSV, splits and scales it, and replaces the
// curated train/test CSVs and the preprocessor in the artifacts directory.
// Shares the retrain lock so ingestion never races a retrain's reads.
func (l *Learner) Ingest(ctx context.Context, dataPath string) (*IngestResult, error) {
	if !l.retrainMu.TryLock() {
		return nil, ErrRetrainInProgress
	}
	defer l.retrainMu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, domain.WrapError(domain.KindDataIngestion, "ingestion canceled", err)
	}
	if dataPath == "" {
		return nil, domain.NewError(domain.KindDataIngestion, "data path is required")
	}

	ds, err := dataset.Load(dataPath, domain.ModelFeatureColumns)
	if err != nil {
		return nil, err
	}
	if ds.HasNaN() {
		return nil, domain.NewError(domain.KindDataTransformation, "dataset contains NaN or infinite values")
	}

	// The splits are persisted unscaled so retrains can append raw feature
	// rows to the same corpus; scaling happens in memory at training time.
	train, test, err := dataset.StratifiedSplit(ds, l.cfg.TestSize, l.cfg.RandomSeed)
	if err != nil {
		return nil, err
	}
	scaler := &dataset.StandardScaler{}
	if err := scaler.Fit(train.X, train.Columns); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return nil, domain.WrapError(domain.KindDataIngestion, "create artifacts directory", err)
	}
	if err := dataset.Write(filepath.Join(l.dir, BaseDataName), train); err != nil {
		return nil, err
	}
	if err := dataset.Write(filepath.Join(l.dir, TestDataName), test); err != nil {
		return nil, err
	}
	if err := scaler.Save(filepath.Join(l.dir, model.ScalerArtifactName)); err != nil {
		return nil, err
	}

	l.log.Info("training data ingested",
		logging.String("input", dataPath),
		logging.Int("train_rows", train.Len()),
		logging.Int("test_rows", test.Len()))
	return &IngestResult{
		Input:     dataPath,
		TotalRows: ds.Len(),
		TrainRows: train.Len(),
		TestRows:  test.Len(),
		Columns:   len(ds.Columns),
	}, nil
}
