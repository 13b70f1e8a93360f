// Package learner implements adaptive learning from user feedback: consensus
// tracking per URL and threshold-triggered retraining.
package learner

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonesrussell/url-sentinel/internal/config"
	"github.com/jonesrussell/url-sentinel/internal/database"
	"github.com/jonesrussell/url-sentinel/internal/dataset"
	"github.com/jonesrussell/url-sentinel/internal/domain"
	"github.com/jonesrussell/url-sentinel/internal/features"
	"github.com/jonesrussell/url-sentinel/internal/logging"
	"github.com/jonesrussell/url-sentinel/internal/model"
	"github.com/jonesrussell/url-sentinel/internal/urlnorm"
)

// consensusRatio is the majority share of the feedback history required to
// lock in a verdict.
const consensusRatio = 0.6

// Trainer runs model selection over a prepared train/test split.
type Trainer interface {
	Train(tt *dataset.TrainTest) (*model.TrainResult, error)
}

// Learner coordinates feedback ingestion and retraining.
type Learner struct {
	repo      *database.FeedbackRepository
	extractor *features.Extractor
	trainer   Trainer
	cfg       config.LearningConfig
	dir       string
	log       logging.Logger

	hashLocks *keyedMutex
	retrainMu sync.Mutex
}

// New builds a Learner.
func New(repo *database.FeedbackRepository, extractor *features.Extractor, trainer Trainer, cfg config.LearningConfig, artifactsDir string, log logging.Logger) *Learner {
	return &Learner{
		repo:      repo,
		extractor: extractor,
		trainer:   trainer,
		cfg:       cfg,
		dir:       artifactsDir,
		log:       log,
		hashLocks: newKeyedMutex(),
	}
}

// FeedbackResult reports the state of a record after one feedback event.
type FeedbackResult struct {
	Message              string             `json:"message"`
	URLHash              string             `json:"url_hash"`
	Type                 domain.VerdictType `json:"type"`
	Confidence           float64            `json:"confidence"`
	FeedbackCount        int                `json:"feedback_count"`
	ConflictingFeedbacks int                `json:"conflicting_feedbacks"`
	ConsensusReached     bool               `json:"consensus_reached"`
	Created              bool               `json:"created"`
	UnusedSamples        int                `json:"unused_samples"`
	NeedsRetraining      bool               `json:"needs_retraining"`
}

// ProcessFeedback records one user feedback event for a URL. Events for the
// same normalized URL are serialized; distinct URLs proceed concurrently.
func (l *Learner) ProcessFeedback(ctx context.Context, rawURL string, isMalicious bool, confidence float64) (*FeedbackResult, error) {
	normalized := urlnorm.Normalize(rawURL)
	if normalized == "" {
		return nil, domain.NewError(domain.KindFeedback, "empty URL")
	}
	hash := urlnorm.Hash(rawURL)
	reported := domain.VerdictFromBool(isMalicious)

	unlock := l.hashLocks.Lock(hash)
	defer unlock()

	rec, err := l.repo.GetByHash(ctx, hash)
	switch {
	case errors.Is(err, database.ErrNotFound):
		rec = &domain.FeedbackRecord{
			URL:              rawURL,
			URLHash:          hash,
			NormalizedURL:    normalized,
			Type:             reported,
			Confidence:       confidence,
			FeedbackCount:    1,
			LastFeedbackType: string(reported),
			Timestamp:        time.Now().UTC(),
		}
		if err := l.repo.Create(ctx, rec); err != nil {
			return nil, domain.WrapError(domain.KindFeedback, "store feedback", err)
		}
		l.log.Info("feedback record created",
			logging.String("url_hash", hash),
			logging.String("type", string(reported)))
		return l.finishFeedback(ctx, rec, true)

	case err != nil:
		return nil, domain.WrapError(domain.KindFeedback, "load feedback record", err)
	}

	applyFeedback(rec, reported, confidence)
	if err := l.repo.Update(ctx, rec); err != nil {
		return nil, domain.WrapError(domain.KindFeedback, "update feedback record", err)
	}

	l.log.Info("feedback processed",
		logging.String("url_hash", hash),
		logging.String("type", string(rec.Type)),
		logging.Int("feedback_count", rec.FeedbackCount),
		logging.Bool("consensus", rec.ConsensusReached))
	return l.finishFeedback(ctx, rec, false)
}

// finishFeedback builds the response, including how close the training pool
// is to the retrain threshold.
func (l *Learner) finishFeedback(ctx context.Context, rec *domain.FeedbackRecord, created bool) (*FeedbackResult, error) {
	res := resultFrom(rec, created)

	unused, err := l.repo.CountUnusedEligible(ctx)
	if err != nil {
		return nil, domain.WrapError(domain.KindFeedback, "count eligible feedback", err)
	}
	res.UnusedSamples = unused
	res.NeedsRetraining = unused >= l.cfg.RetrainThreshold
	res.Message = "feedback recorded"
	if res.NeedsRetraining {
		res.Message = "feedback recorded; retraining threshold reached"
	}
	return res, nil
}

// applyFeedback folds one feedback event into the record. The verdict is the
// majority label over the full history, ties going to malicious; consensus
// requires a 60% majority over at least two events. A report that disagrees
// with the stored verdict counts as a conflict and resets confidence to the
// reported value, even when the majority verdict holds; agreeing reports
// only ratchet confidence up. Any update puts the record back into the
// training pool.
func applyFeedback(rec *domain.FeedbackRecord, reported domain.VerdictType, confidence float64) {
	disputed := reported != rec.Type

	rec.AppendHistory(reported)
	history := rec.History()
	rec.FeedbackCount = len(history)

	malicious := 0
	for _, v := range history {
		if v == domain.VerdictMalicious {
			malicious++
		}
	}
	benign := len(history) - malicious

	newType := domain.VerdictBenign
	if malicious >= benign {
		newType = domain.VerdictMalicious
	}

	majority := malicious
	if benign > malicious {
		majority = benign
	}
	rec.ConsensusReached = len(history) >= 2 &&
		float64(majority)/float64(len(history)) >= consensusRatio

	if disputed {
		rec.ConflictingFeedbacks++
		rec.Confidence = confidence
	} else if confidence > rec.Confidence {
		rec.Confidence = confidence
	}
	rec.Type = newType
	rec.UsedInTraining = false
	rec.Timestamp = time.Now().UTC()
}

func resultFrom(rec *domain.FeedbackRecord, created bool) *FeedbackResult {
	return &FeedbackResult{
		URLHash:              rec.URLHash,
		Type:                 rec.Type,
		Confidence:           rec.Confidence,
		FeedbackCount:        rec.FeedbackCount,
		ConflictingFeedbacks: rec.ConflictingFeedbacks,
		ConsensusReached:     rec.ConsensusReached,
		Created:              created,
	}
}
