package telemetry_test

import (
	"sync"
	"testing"
	"time"

	"github.com/jonesrussell/url-sentinel/internal/telemetry"
)

// providerOnce ensures we only create one Provider per test run to avoid
// duplicate Prometheus metric registration errors from promauto's global registry
var (
	testProvider *telemetry.Provider
	providerOnce sync.Once
)

func getTestProvider(t *testing.T) *telemetry.Provider {
	t.Helper()
	providerOnce.Do(func() {
		testProvider = telemetry.NewProvider()
	})
	return testProvider
}

func TestNewProvider(t *testing.T) {
	provider := getTestProvider(t)
	if provider == nil {
		t.Fatal("expected non-nil provider")
	}
	if provider.Tracer == nil {
		t.Error("expected non-nil tracer")
	}
	if provider.Metrics == nil {
		t.Error("expected non-nil metrics")
	}
}

func TestRecordPrediction(t *testing.T) {
	provider := getTestProvider(t)

	// Should not panic
	provider.RecordPrediction("malicious", 2*time.Millisecond)
	provider.RecordPrediction("benign", time.Millisecond)
	provider.RecordPredictionFailure("prediction")
}

func TestRecordFeedback(t *testing.T) {
	provider := getTestProvider(t)

	// Should not panic
	provider.RecordFeedback("malicious", false, false)
	provider.RecordFeedback("benign", true, true)
	provider.SetEligibleRecords(42)
}

func TestRecordRetrain(t *testing.T) {
	provider := getTestProvider(t)

	// Should not panic
	provider.RecordRetrain("completed", 1500, 12*time.Second)
	provider.RecordRetrain("skipped", 0, 0)
	provider.RecordExtractionFailures(3)
}

func TestRecordBulkAndAnalysis(t *testing.T) {
	provider := getTestProvider(t)

	// Should not panic
	provider.RecordBulkRun(100, 2, 5*time.Second)
	provider.RecordAnalysis(true)
	provider.RecordAnalysis(false)
	provider.ObserveLookup("dns", 30*time.Millisecond)
}
