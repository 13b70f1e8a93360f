package domain

import (
	"errors"
	"fmt"
)

// Kind identifies the failure class of an Error. The set is closed; callers
// switch on kinds instead of matching error strings.
type Kind int

const (
	// KindUnknown is the zero value and never assigned deliberately.
	KindUnknown Kind = iota
	// KindModelNotFound means a persisted model artifact is missing.
	KindModelNotFound
	// KindFeatureExtraction means a URL could not be turned into a feature vector.
	KindFeatureExtraction
	// KindPrediction means the predictor could not produce a verdict.
	KindPrediction
	// KindDataIngestion means the training-data source is missing or malformed.
	KindDataIngestion
	// KindDataTransformation means the split/scale step failed.
	KindDataTransformation
	// KindModelTrainer means training failed (NaN input or no candidate fit).
	KindModelTrainer
	// KindFeedback means a feedback write or retrain bookkeeping step failed.
	KindFeedback
)

// String returns the kind's canonical name.
func (k Kind) String() string {
	switch k {
	case KindModelNotFound:
		return "model_not_found"
	case KindFeatureExtraction:
		return "feature_extraction"
	case KindPrediction:
		return "prediction"
	case KindDataIngestion:
		return "data_ingestion"
	case KindDataTransformation:
		return "data_transformation"
	case KindModelTrainer:
		return "model_trainer"
	case KindFeedback:
		return "feedback"
	default:
		return "unknown"
	}
}

// Error is the typed error carried across package boundaries.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a typed error without a cause.
func NewError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// WrapError creates a typed error wrapping a cause.
func WrapError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// IsKind reports whether err or anything it wraps is an Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind == kind
	}
	return false
}

// ErrKind extracts the kind from err, or KindUnknown.
func ErrKind(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}
