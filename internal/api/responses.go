package api

// PredictRequest asks for a verdict on one URL.
type PredictRequest struct {
	URL string `json:"url" binding:"required"`
}

// FeedbackRequest reports a user's verdict on one URL.
type FeedbackRequest struct {
	URL         string  `json:"url" binding:"required"`
	IsMalicious *bool   `json:"is_malicious" binding:"required"`
	Confidence  float64 `json:"confidence" binding:"gte=0,lte=1"`
}

// RetrainRequest triggers a retrain cycle.
type RetrainRequest struct {
	Force bool `json:"force"`
}

// TrainRequest triggers a full training run from a curated CSV.
type TrainRequest struct {
	DataPath string `json:"data_path"`
}

// IngestRequest rebuilds the curated train/test splits from a feature CSV.
type IngestRequest struct {
	DataPath string `json:"data_path" binding:"required"`
}

// AnalyzeRequest asks for a live enrichment analysis of one URL.
type AnalyzeRequest struct {
	URL string `json:"url" binding:"required"`
}

// ExtractRequest runs bulk feature extraction over a labeled URL CSV.
type ExtractRequest struct {
	InputPath  string `json:"input_path" binding:"required"`
	OutputPath string `json:"output_path" binding:"required"`
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// HealthResponse reports liveness.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}
