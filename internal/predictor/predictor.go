// Package predictor serves verdicts from the persisted model artifacts.
package predictor

import (
	"math"
	"path/filepath"
	"sort"
	"sync"

	"github.com/jonesrussell/url-sentinel/internal/dataset"
	"github.com/jonesrussell/url-sentinel/internal/domain"
	"github.com/jonesrussell/url-sentinel/internal/features"
	"github.com/jonesrussell/url-sentinel/internal/logging"
	"github.com/jonesrussell/url-sentinel/internal/model"
)

// Verdict strings returned to clients.
const (
	VerdictSafe      = "SAFE WEBSITE"
	VerdictMalicious = "BEWARE MALICIOUS WEBSITE"
)

// Prediction is the scored verdict for one URL.
type Prediction struct {
	URL           string             `json:"url"`
	Result        string             `json:"result"`
	Malicious     bool               `json:"malicious"`
	Confidence    float64            `json:"confidence"`
	Model         string             `json:"model"`
	TopIndicators []Indicator        `json:"top_indicators"`
	Features      map[string]float64 `json:"features"`
}

// Indicator is one feature's pull toward the verdict.
type Indicator struct {
	Feature      string  `json:"feature"`
	Value        float64 `json:"value"`
	Contribution float64 `json:"contribution"`
}

// contributor is implemented by models that can attribute a score to
// individual features.
type contributor interface {
	Contributions(row []float64) []float64
}

// Predictor scores URLs with a loaded model and scaler. Reload swaps the
// model after retraining; scoring is lock-free apart from the pointer read.
type Predictor struct {
	extractor *features.Extractor
	dir       string
	log       logging.Logger

	mu     sync.RWMutex
	loaded *loadedModel
}

type loadedModel struct {
	name       string
	columns    []string
	classifier model.Classifier
	scaler     *dataset.StandardScaler
}

// New loads the model and scaler from the artifacts directory, failing fast
// when either is missing so startup can refuse to serve without a model.
func New(artifactsDir string, extractor *features.Extractor, log logging.Logger) (*Predictor, error) {
	p := &Predictor{extractor: extractor, dir: artifactsDir, log: log}
	if err := p.Reload(); err != nil {
		return nil, err
	}
	return p, nil
}

// Reload re-reads the persisted artifacts, replacing the served model.
func (p *Predictor) Reload() error {
	artifact, err := model.LoadArtifact(filepath.Join(p.dir, model.BestArtifactName))
	if err != nil {
		return err
	}
	classifier, err := artifact.Classifier()
	if err != nil {
		return err
	}
	scaler, err := dataset.LoadScaler(filepath.Join(p.dir, model.ScalerArtifactName))
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.loaded = &loadedModel{
		name:       artifact.Model,
		columns:    artifact.Columns,
		classifier: classifier,
		scaler:     scaler,
	}
	p.mu.Unlock()

	p.log.Info("model loaded",
		logging.String("model", artifact.Model),
		logging.Int("features", len(artifact.Columns)))
	return nil
}

// Predict scores one URL.
func (p *Predictor) Predict(rawURL string) (*Prediction, error) {
	p.mu.RLock()
	m := p.loaded
	p.mu.RUnlock()
	if m == nil {
		return nil, domain.NewError(domain.KindModelNotFound, "no model loaded")
	}

	fv, err := p.extractor.ExtractURL(rawURL)
	if err != nil {
		return nil, err
	}
	raw := dataset.RowFromVector(fv, m.columns)
	row, err := m.scaler.TransformRow(raw)
	if err != nil {
		return nil, domain.WrapError(domain.KindPrediction, "scale features", err)
	}

	proba := m.classifier.PredictProba(row)
	if math.IsNaN(proba) {
		return nil, domain.NewError(domain.KindPrediction, "model produced NaN probability")
	}

	pred := &Prediction{
		URL:      rawURL,
		Model:    m.name,
		Features: make(map[string]float64, len(m.columns)),
	}
	for i, c := range m.columns {
		pred.Features[c] = raw[i]
	}

	if proba >= 0.5 {
		pred.Result = VerdictMalicious
		pred.Malicious = true
		pred.Confidence = proba
	} else {
		pred.Result = VerdictSafe
		pred.Confidence = 1 - proba
	}

	pred.TopIndicators = topIndicators(m, raw, row, 5)
	return pred, nil
}

// topIndicators ranks features by their pull toward the malicious class.
// Models without per-feature attribution fall back to scaled magnitude.
func topIndicators(m *loadedModel, raw, scaled []float64, n int) []Indicator {
	contribs := make([]float64, len(m.columns))
	if c, ok := m.classifier.(contributor); ok {
		contribs = c.Contributions(scaled)
	} else {
		for i, v := range scaled {
			contribs[i] = math.Abs(v)
		}
	}

	indicators := make([]Indicator, len(m.columns))
	for i, col := range m.columns {
		indicators[i] = Indicator{Feature: col, Value: raw[i], Contribution: contribs[i]}
	}
	sort.SliceStable(indicators, func(i, j int) bool {
		return math.Abs(indicators[i].Contribution) > math.Abs(indicators[j].Contribution)
	})
	if len(indicators) > n {
		indicators = indicators[:n]
	}
	return indicators
}
