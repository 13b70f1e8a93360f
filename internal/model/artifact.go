package model

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jonesrussell/url-sentinel/internal/domain"
)

// Artifact is the persisted form of a trained model, self-describing enough
// to reload without the training pipeline.
type Artifact struct {
	Model     string             `json:"model"`
	Columns   []string           `json:"columns"`
	Params    map[string]float64 `json:"params"`
	Payload   json.RawMessage    `json:"payload"`
	Metrics   Metrics            `json:"metrics"`
	CVScore   float64            `json:"cv_score"`
	Samples   int                `json:"samples"`
	TrainedAt time.Time          `json:"trained_at"`
}

// NewArtifact snapshots a fitted classifier.
func NewArtifact(c Classifier, columns []string, params map[string]float64, metrics Metrics, cvScore float64, samples int) (*Artifact, error) {
	payload, err := json.Marshal(c)
	if err != nil {
		return nil, domain.WrapError(domain.KindModelTrainer, "marshal model payload", err)
	}
	return &Artifact{
		Model:     c.Name(),
		Columns:   append([]string{}, columns...),
		Params:    params,
		Payload:   payload,
		Metrics:   metrics,
		CVScore:   cvScore,
		Samples:   samples,
		TrainedAt: time.Now().UTC(),
	}, nil
}

// Save writes the artifact as JSON.
func (a *Artifact) Save(path string) error {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return domain.WrapError(domain.KindModelTrainer, "marshal artifact", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return domain.WrapError(domain.KindModelTrainer, "write artifact", err)
	}
	return nil
}

// LoadArtifact reads an artifact from path. A missing file is a
// model-not-found error so callers can fail fast at startup.
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.WrapError(domain.KindModelNotFound, fmt.Sprintf("model artifact %s", path), err)
		}
		return nil, domain.WrapError(domain.KindModelTrainer, "read artifact", err)
	}
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, domain.WrapError(domain.KindModelTrainer, "parse artifact", err)
	}
	return &a, nil
}

// Classifier rebuilds the fitted classifier from the payload.
func (a *Artifact) Classifier() (Classifier, error) {
	var c Classifier
	switch a.Model {
	case "logistic_regression":
		c = &LogisticRegression{}
	case "gaussian_nb":
		c = &GaussianNB{}
	default:
		return nil, domain.NewError(domain.KindModelTrainer, fmt.Sprintf("unknown model %q in artifact", a.Model))
	}
	if err := json.Unmarshal(a.Payload, c); err != nil {
		return nil, domain.WrapError(domain.KindModelTrainer, "decode model payload", err)
	}
	return c, nil
}
