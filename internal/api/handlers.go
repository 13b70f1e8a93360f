// Package api exposes the url-sentinel HTTP surface.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/url-sentinel/internal/domain"
	"github.com/jonesrussell/url-sentinel/internal/enrichment"
	"github.com/jonesrussell/url-sentinel/internal/learner"
	"github.com/jonesrussell/url-sentinel/internal/logging"
	"github.com/jonesrussell/url-sentinel/internal/model"
	"github.com/jonesrussell/url-sentinel/internal/predictor"
	"github.com/jonesrussell/url-sentinel/internal/processor"
	"github.com/jonesrussell/url-sentinel/internal/telemetry"
)

// Predictor scores URLs and can hot-swap its model.
type Predictor interface {
	Predict(rawURL string) (*predictor.Prediction, error)
	Reload() error
}

// Learner handles feedback and training.
type Learner interface {
	ProcessFeedback(ctx context.Context, rawURL string, isMalicious bool, confidence float64) (*learner.FeedbackResult, error)
	Retrain(ctx context.Context, force bool) (*learner.RetrainResult, error)
	TrainFromFile(ctx context.Context, dataPath string) (*model.TrainResult, error)
	Ingest(ctx context.Context, dataPath string) (*learner.IngestResult, error)
	GetTrainingStats(ctx context.Context) (*learner.TrainingStats, error)
}

// Analyzer runs live URL enrichment.
type Analyzer interface {
	Analyze(ctx context.Context, rawURL string) (*enrichment.Analysis, error)
}

// BulkExtractor runs file-to-file feature extraction.
type BulkExtractor interface {
	ExtractFile(ctx context.Context, inputPath, outputPath string) (*processor.BulkResult, error)
}

// StatsSource reports feedback-store aggregates.
type StatsSource interface {
	Stats(ctx context.Context) (*domain.FeedbackStats, error)
}

// Pinger checks backing-store connectivity for readiness.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handler handles HTTP requests for the url-sentinel API.
type Handler struct {
	predictor Predictor
	learner   Learner
	analyzer  Analyzer
	bulk      BulkExtractor
	stats     StatsSource
	db        Pinger
	tel       *telemetry.Provider
	log       logging.Logger

	serviceName    string
	serviceVersion string
}

// NewHandler creates a new API handler.
func NewHandler(
	pred Predictor,
	learn Learner,
	analyzer Analyzer,
	bulk BulkExtractor,
	stats StatsSource,
	db Pinger,
	tel *telemetry.Provider,
	log logging.Logger,
	serviceName, serviceVersion string,
) *Handler {
	return &Handler{
		predictor:      pred,
		learner:        learn,
		analyzer:       analyzer,
		bulk:           bulk,
		stats:          stats,
		db:             db,
		tel:            tel,
		log:            log,
		serviceName:    serviceName,
		serviceVersion: serviceVersion,
	}
}

// Predict handles POST /api/v1/predict.
func (h *Handler) Predict(c *gin.Context) {
	var req PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	start := time.Now()
	pred, err := h.predictor.Predict(req.URL)
	if err != nil {
		h.log.Error("prediction failed", logging.String("url", req.URL), logging.Error(err))
		if h.tel != nil {
			h.tel.RecordPredictionFailure(domain.ErrKind(err).String())
		}
		c.JSON(statusFor(err), errorFor(err))
		return
	}

	if h.tel != nil {
		verdict := "benign"
		if pred.Malicious {
			verdict = "malicious"
		}
		h.tel.RecordPrediction(verdict, time.Since(start))
	}
	h.log.Info("url scored",
		logging.String("url", req.URL),
		logging.String("result", pred.Result),
		logging.Float64("confidence", pred.Confidence))
	c.JSON(http.StatusOK, pred)
}

// Feedback handles POST /api/v1/feedback.
func (h *Handler) Feedback(c *gin.Context) {
	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	res, err := h.learner.ProcessFeedback(c.Request.Context(), req.URL, *req.IsMalicious, req.Confidence)
	if err != nil {
		h.log.Error("feedback processing failed", logging.String("url", req.URL), logging.Error(err))
		c.JSON(statusFor(err), errorFor(err))
		return
	}

	if h.tel != nil {
		reported := "benign"
		if *req.IsMalicious {
			reported = "malicious"
		}
		h.tel.RecordFeedback(reported, res.ConflictingFeedbacks > 0 && !res.Created, res.ConsensusReached)
	}
	c.JSON(http.StatusOK, res)
}

// Retrain handles POST /api/v1/retrain.
func (h *Handler) Retrain(c *gin.Context) {
	// An empty or absent body means a default, non-forced retrain.
	var req RetrainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		req = RetrainRequest{}
	}

	start := time.Now()
	res, err := h.learner.Retrain(c.Request.Context(), req.Force)
	if err != nil {
		if errors.Is(err, learner.ErrRetrainInProgress) {
			c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
			return
		}
		h.log.Error("retrain failed", logging.Error(err))
		c.JSON(statusFor(err), errorFor(err))
		return
	}

	if h.tel != nil {
		h.tel.RecordRetrain(res.Status, res.Samples, time.Since(start))
		h.tel.RecordExtractionFailures(res.ExtractionFailures)
	}
	if res.Status == "completed" {
		if err := h.predictor.Reload(); err != nil {
			h.log.Error("model reload after retrain failed", logging.Error(err))
		}
	}
	c.JSON(http.StatusOK, res)
}

// Train handles POST /api/v1/train.
func (h *Handler) Train(c *gin.Context) {
	var req TrainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		req = TrainRequest{}
	}

	res, err := h.learner.TrainFromFile(c.Request.Context(), req.DataPath)
	if err != nil {
		if errors.Is(err, learner.ErrRetrainInProgress) {
			c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
			return
		}
		h.log.Error("training failed", logging.Error(err))
		c.JSON(statusFor(err), errorFor(err))
		return
	}

	if err := h.predictor.Reload(); err != nil {
		h.log.Error("model reload after training failed", logging.Error(err))
	}
	c.JSON(http.StatusOK, res)
}

// Ingest handles POST /api/v1/ingest.
func (h *Handler) Ingest(c *gin.Context) {
	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	res, err := h.learner.Ingest(c.Request.Context(), req.DataPath)
	if err != nil {
		if errors.Is(err, learner.ErrRetrainInProgress) {
			c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
			return
		}
		h.log.Error("ingestion failed", logging.String("path", req.DataPath), logging.Error(err))
		c.JSON(statusFor(err), errorFor(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

// Analyze handles POST /api/v1/analyze.
func (h *Handler) Analyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	analysis, err := h.analyzer.Analyze(c.Request.Context(), req.URL)
	if h.tel != nil {
		h.tel.RecordAnalysis(err == nil)
	}
	if err != nil {
		h.log.Warn("analysis failed", logging.String("url", req.URL), logging.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, analysis)
}

// Extract handles POST /api/v1/extract.
func (h *Handler) Extract(c *gin.Context) {
	var req ExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	res, err := h.bulk.ExtractFile(c.Request.Context(), req.InputPath, req.OutputPath)
	if err != nil {
		h.log.Error("bulk extraction failed", logging.String("input", req.InputPath), logging.Error(err))
		c.JSON(statusFor(err), errorFor(err))
		return
	}

	if h.tel != nil {
		h.tel.RecordBulkRun(res.Total, res.Failed, res.Duration)
	}
	c.JSON(http.StatusOK, res)
}

// GetStats handles GET /api/v1/stats.
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.stats.Stats(c.Request.Context())
	if err != nil {
		h.log.Error("stats query failed", logging.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	if h.tel != nil {
		h.tel.SetEligibleRecords(stats.UnusedEligible)
	}
	c.JSON(http.StatusOK, stats)
}

// GetTrainingStats handles GET /api/v1/stats/training.
func (h *Handler) GetTrainingStats(c *gin.Context) {
	stats, err := h.learner.GetTrainingStats(c.Request.Context())
	if err != nil {
		h.log.Error("training stats query failed", logging.Error(err))
		c.JSON(statusFor(err), errorFor(err))
		return
	}
	c.JSON(http.StatusOK, stats)
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Service: h.serviceName,
		Version: h.serviceVersion,
	})
}

// ReadyCheck handles GET /ready. Ready means the database answers and a
// model is loaded.
func (h *Handler) ReadyCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "reason": "database unreachable"})
		return
	}
	if _, err := h.predictor.Predict("https://example.com"); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "reason": "model unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// statusFor maps error kinds to HTTP status codes.
func statusFor(err error) int {
	switch domain.ErrKind(err) {
	case domain.KindModelNotFound:
		return http.StatusServiceUnavailable
	case domain.KindFeatureExtraction, domain.KindDataIngestion:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func errorFor(err error) ErrorResponse {
	resp := ErrorResponse{Error: err.Error()}
	if kind := domain.ErrKind(err); kind != domain.KindUnknown {
		resp.Kind = kind.String()
	}
	return resp
}
