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

// BaseDataName is the curated training CSV inside the artifacts directory.
const BaseDataName = "transformed_train_data.csv"

// scratchDataName is the merged CSV written for one retrain run and removed
// afterwards.
const scratchDataName = "retrain_scratch.csv"

// ErrRetrainInProgress is returned when a retrain is already running.
var ErrRetrainInProgress = domain.NewError(domain.KindModelTrainer, "retrain already in progress")

// RetrainResult reports the outcome of a retrain request.
type RetrainResult struct {
	Status             string         `json:"status"` // "completed" or "skipped"
	EligibleRecords    int            `json:"eligible_records"`
	Threshold          int            `json:"threshold"`
	FeedbackRows       int            `json:"feedback_rows"`
	ExtractionFailures int            `json:"extraction_failures"`
	Samples            int            `json:"samples"`
	BestModel          string         `json:"best_model,omitempty"`
	Metrics            *model.Metrics `json:"metrics,omitempty"`
}

// Retrain rebuilds the model from curated data plus eligible feedback. Only
// one retrain runs at a time; a second caller gets ErrRetrainInProgress
// rather than queueing. Below the feedback threshold the call is a no-op
// unless force is set.
func (l *Learner) Retrain(ctx context.Context, force bool) (*RetrainResult, error) {
	if !l.retrainMu.TryLock() {
		return nil, ErrRetrainInProgress
	}
	defer l.retrainMu.Unlock()

	eligible, err := l.repo.ListEligible(ctx)
	if err != nil {
		return nil, domain.WrapError(domain.KindFeedback, "list eligible feedback", err)
	}

	result := &RetrainResult{
		EligibleRecords: len(eligible),
		Threshold:       l.cfg.RetrainThreshold,
	}
	if len(eligible) < l.cfg.RetrainThreshold && !force {
		result.Status = "skipped"
		l.log.Info("retrain skipped below threshold",
			logging.Int("eligible", len(eligible)),
			logging.Int("threshold", l.cfg.RetrainThreshold))
		return result, nil
	}

	base, err := dataset.Load(filepath.Join(l.dir, BaseDataName), domain.ModelFeatureColumns)
	if err != nil {
		return nil, err
	}

	hashes := make([]string, 0, len(eligible))
	for _, rec := range eligible {
		fv, err := l.extractor.ExtractURL(rec.URL)
		if err != nil {
			result.ExtractionFailures++
			l.log.Warn("feature extraction failed for feedback URL",
				logging.String("url_hash", rec.URLHash),
				logging.Error(err))
			continue
		}
		row := dataset.RowFromVector(fv, domain.ModelFeatureColumns)
		if hasInvalid(row) {
			result.ExtractionFailures++
			l.log.Warn("feedback URL produced invalid feature values",
				logging.String("url_hash", rec.URLHash))
			continue
		}
		label := 0
		if rec.Type == domain.VerdictMalicious {
			label = 1
		}
		base.Append(row, label)
		result.FeedbackRows++
		hashes = append(hashes, rec.URLHash)
	}

	scratch := filepath.Join(l.dir, scratchDataName)
	if err := dataset.Write(scratch, base); err != nil {
		return nil, err
	}
	defer os.Remove(scratch)

	merged, err := dataset.Load(scratch, domain.ModelFeatureColumns)
	if err != nil {
		return nil, err
	}
	tt, err := dataset.Transform(merged, dataset.TransformOptions{
		TestSize: l.cfg.TestSize,
		Seed:     l.cfg.RandomSeed,
	})
	if err != nil {
		return nil, err
	}

	trained, err := l.trainer.Train(tt)
	if err != nil {
		return nil, err
	}

	if err := l.repo.MarkUsedInTraining(ctx, hashes); err != nil {
		return nil, domain.WrapError(domain.KindFeedback, "mark feedback used", err)
	}

	result.Status = "completed"
	result.Samples = trained.Samples
	result.BestModel = trained.BestModel
	result.Metrics = &trained.Metrics
	l.log.Info("retrain completed",
		logging.String("best_model", trained.BestModel),
		logging.Int("samples", trained.Samples),
		logging.Int("feedback_rows", result.FeedbackRows),
		logging.Int("extraction_failures", result.ExtractionFailures))
	return result, nil
}

// TrainFromFile trains from a curated CSV alone, without touching feedback
// records. An empty path uses the base training data. Shares the retrain
// lock so file training and retraining never overlap.
func (l *Learner) TrainFromFile(ctx context.Context, dataPath string) (*model.TrainResult, error) {
	if !l.retrainMu.TryLock() {
		return nil, ErrRetrainInProgress
	}
	defer l.retrainMu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, domain.WrapError(domain.KindModelTrainer, "training canceled", err)
	}
	if dataPath == "" {
		dataPath = filepath.Join(l.dir, BaseDataName)
	}

	ds, err := dataset.Load(dataPath, domain.ModelFeatureColumns)
	if err != nil {
		return nil, err
	}
	tt, err := dataset.Transform(ds, dataset.TransformOptions{
		TestSize: l.cfg.TestSize,
		Seed:     l.cfg.RandomSeed,
	})
	if err != nil {
		return nil, err
	}
	return l.trainer.Train(tt)
}

// TrainingStats describes retrain readiness and the current model.
type TrainingStats struct {
	Feedback            *domain.FeedbackStats `json:"feedback"`
	Threshold           int                   `json:"retrain_threshold"`
	RecordsUntilRetrain int                   `json:"records_until_retrain"`
	CurrentModel        string                `json:"current_model,omitempty"`
	ModelTrainedAt      string                `json:"model_trained_at,omitempty"`
	ModelF1Weighted     float64               `json:"model_f1_weighted,omitempty"`
}

// GetTrainingStats reports feedback-store aggregates and current model info.
func (l *Learner) GetTrainingStats(ctx context.Context) (*TrainingStats, error) {
	stats, err := l.repo.Stats(ctx)
	if err != nil {
		return nil, domain.WrapError(domain.KindFeedback, "load feedback stats", err)
	}

	out := &TrainingStats{
		Feedback:  stats,
		Threshold: l.cfg.RetrainThreshold,
	}
	if remaining := l.cfg.RetrainThreshold - stats.UnusedEligible; remaining > 0 {
		out.RecordsUntilRetrain = remaining
	}

	if artifact, err := model.LoadArtifact(filepath.Join(l.dir, model.BestArtifactName)); err == nil {
		out.CurrentModel = artifact.Model
		out.ModelTrainedAt = artifact.TrainedAt.Format("2006-01-02T15:04:05Z07:00")
		out.ModelF1Weighted = artifact.Metrics.F1Weighted
	}
	return out, nil
}

func hasInvalid(row []float64) bool {
	for _, v := range row {
		if v != v { // NaN
			return true
		}
	}
	return false
}
