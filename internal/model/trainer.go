package model

import (
	"os"
	"path/filepath"

	"github.com/jonesrussell/url-sentinel/internal/dataset"
	"github.com/jonesrussell/url-sentinel/internal/domain"
	"github.com/jonesrussell/url-sentinel/internal/logging"
)

// BestArtifactName is the filename of the selected model inside the
// artifacts directory.
const BestArtifactName = "model.json"

// ScalerArtifactName is the filename of the fitted preprocessor.
const ScalerArtifactName = "preprocessor.json"

// families is the fixed candidate order; earlier wins ties.
var families = []string{"logistic_regression", "gaussian_nb"}

// TrainerOptions configure a training run.
type TrainerOptions struct {
	ArtifactsDir     string
	CVFolds          int
	SearchIterations int
	Seed             int64
}

// Trainer runs model selection over the candidate families and persists the
// winner.
type Trainer struct {
	opts TrainerOptions
	log  logging.Logger
}

// NewTrainer builds a Trainer.
func NewTrainer(opts TrainerOptions, log logging.Logger) *Trainer {
	return &Trainer{opts: opts, log: log}
}

// TrainResult reports the outcome of a training run.
type TrainResult struct {
	BestModel  string             `json:"best_model"`
	Metrics    Metrics            `json:"metrics"`
	CVScore    float64            `json:"cv_score"`
	Candidates map[string]Metrics `json:"candidates"`
	Samples    int                `json:"samples"`
}

// Train searches each family on the training split, evaluates on the test
// split, and persists every candidate plus the winner. The best model is
// chosen by weighted F1 on the test split; ties keep the earlier family.
func (t *Trainer) Train(tt *dataset.TrainTest) (*TrainResult, error) {
	if tt.Train.HasNaN() || tt.Test.HasNaN() {
		return nil, domain.NewError(domain.KindModelTrainer, "training data contains NaN or infinite values")
	}

	if err := os.MkdirAll(t.opts.ArtifactsDir, 0o755); err != nil {
		return nil, domain.WrapError(domain.KindModelTrainer, "create artifacts dir", err)
	}

	result := &TrainResult{Candidates: make(map[string]Metrics), Samples: tt.Train.Len() + tt.Test.Len()}
	var bestArtifact *Artifact

	for _, family := range families {
		sr, err := RandomizedSearch(tt.Train, family, SearchOptions{
			Iterations: t.opts.SearchIterations,
			CVFolds:    t.opts.CVFolds,
			Seed:       t.opts.Seed,
		})
		if err != nil {
			return nil, err
		}

		metrics := Evaluate(tt.Test.Y, PredictAll(sr.Classifier, tt.Test.X))
		result.Candidates[family] = metrics
		t.log.Info("candidate evaluated",
			logging.String("model", family),
			logging.Float64("cv_score", sr.CVScore),
			logging.Float64("f1_weighted", metrics.F1Weighted))

		artifact, err := NewArtifact(sr.Classifier, tt.Train.Columns, sr.Params, metrics, sr.CVScore, result.Samples)
		if err != nil {
			return nil, err
		}
		if err := artifact.Save(filepath.Join(t.opts.ArtifactsDir, family+".json")); err != nil {
			return nil, err
		}

		if bestArtifact == nil || metrics.F1Weighted > bestArtifact.Metrics.F1Weighted {
			bestArtifact = artifact
			result.BestModel = family
			result.Metrics = metrics
			result.CVScore = sr.CVScore
		}
	}

	if err := bestArtifact.Save(filepath.Join(t.opts.ArtifactsDir, BestArtifactName)); err != nil {
		return nil, err
	}
	if err := tt.Scaler.Save(filepath.Join(t.opts.ArtifactsDir, ScalerArtifactName)); err != nil {
		return nil, err
	}

	t.log.Info("training complete",
		logging.String("best_model", result.BestModel),
		logging.Float64("f1_weighted", result.Metrics.F1Weighted),
		logging.Int("samples", result.Samples))
	return result, nil
}
