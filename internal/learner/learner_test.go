package learner

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/jonesrussell/url-sentinel/internal/config"
	"github.com/jonesrussell/url-sentinel/internal/database"
	"github.com/jonesrussell/url-sentinel/internal/dataset"
	"github.com/jonesrussell/url-sentinel/internal/domain"
	"github.com/jonesrussell/url-sentinel/internal/features"
	"github.com/jonesrussell/url-sentinel/internal/logging"
	"github.com/jonesrussell/url-sentinel/internal/model"
	"github.com/jonesrussell/url-sentinel/internal/urlnorm"
)

// stubTrainer records calls and returns a fixed result.
type stubTrainer struct {
	mu     sync.Mutex
	calls  int
	result *model.TrainResult
	err    error
}

func (s *stubTrainer) Train(tt *dataset.TrainTest) (*model.TrainResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if s.result != nil {
		return s.result, nil
	}
	return &model.TrainResult{
		BestModel: "logistic_regression",
		Samples:   tt.Train.Len() + tt.Test.Len(),
	}, nil
}

func newTestLearner(t *testing.T, threshold int) (*Learner, *database.FeedbackRepository, *stubTrainer, string) {
	t.Helper()
	db, err := sqlx.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	// One connection keeps the in-memory database shared across queries.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	if err := database.EnsureSchema(context.Background(), db); err != nil {
		t.Fatal(err)
	}

	repo := database.NewFeedbackRepository(db)
	trainer := &stubTrainer{}
	dir := t.TempDir()
	cfg := config.LearningConfig{
		RetrainThreshold: threshold,
		TestSize:         0.2,
		RandomSeed:       42,
	}
	l := New(repo, features.NewExtractor(), trainer, cfg, dir, logging.NewNop())
	return l, repo, trainer, dir
}

func writeBaseData(t *testing.T, dir string, rows int) {
	t.Helper()
	ds := &dataset.Dataset{Columns: domain.ModelFeatureColumns}
	for i := 0; i < rows; i++ {
		row := make([]float64, len(domain.ModelFeatureColumns))
		label := i % 2
		row[0] = float64(label)
		row[12] = float64(20 + i%40) // url_length
		ds.Append(row, label)
	}
	if err := dataset.Write(filepath.Join(dir, BaseDataName), ds); err != nil {
		t.Fatal(err)
	}
}

func TestProcessFeedbackCreatesRecord(t *testing.T) {
	l, repo, _, _ := newTestLearner(t, 10)
	ctx := context.Background()

	res, err := l.ProcessFeedback(ctx, "https://www.Example.com/login/", true, 0.8)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Created || res.Type != domain.VerdictMalicious || res.FeedbackCount != 1 {
		t.Errorf("result = %+v", res)
	}
	if res.ConsensusReached {
		t.Error("single feedback must not reach consensus")
	}

	// Spelling variants hit the same record.
	res2, err := l.ProcessFeedback(ctx, "http://example.com/login", true, 0.7)
	if err != nil {
		t.Fatal(err)
	}
	if res2.Created {
		t.Error("variant URL created a second record")
	}
	if res2.FeedbackCount != 2 {
		t.Errorf("feedback count = %d, want 2", res2.FeedbackCount)
	}

	rec, err := repo.GetByHash(ctx, res.URLHash)
	if err != nil {
		t.Fatal(err)
	}
	if len(rec.History()) != 2 {
		t.Errorf("history = %v", rec.History())
	}
}

func TestProcessFeedbackConsensus(t *testing.T) {
	l, _, _, _ := newTestLearner(t, 10)
	ctx := context.Background()

	// Two agreeing events: 100% majority over 2 reaches consensus.
	if _, err := l.ProcessFeedback(ctx, "https://bad.example.com", true, 0.8); err != nil {
		t.Fatal(err)
	}
	res, err := l.ProcessFeedback(ctx, "https://bad.example.com", true, 0.9)
	if err != nil {
		t.Fatal(err)
	}
	if !res.ConsensusReached {
		t.Error("two agreeing events should reach consensus")
	}
	if res.Confidence != 0.9 {
		t.Errorf("confidence = %v, want ratcheted 0.9", res.Confidence)
	}
}

func TestProcessFeedbackConflict(t *testing.T) {
	l, _, _, _ := newTestLearner(t, 10)
	ctx := context.Background()
	url := "https://contested.example.com"

	if _, err := l.ProcessFeedback(ctx, url, false, 0.9); err != nil {
		t.Fatal(err)
	}
	res, err := l.ProcessFeedback(ctx, url, true, 0.6)
	if err != nil {
		t.Fatal(err)
	}

	// 1-1 tie goes malicious, counts one conflict, resets confidence.
	if res.Type != domain.VerdictMalicious {
		t.Errorf("tie type = %s, want malicious", res.Type)
	}
	if res.ConflictingFeedbacks != 1 {
		t.Errorf("conflicts = %d, want 1", res.ConflictingFeedbacks)
	}
	if res.Confidence != 0.6 {
		t.Errorf("confidence = %v, want reset to 0.6", res.Confidence)
	}
	// 50% majority is below the consensus bar.
	if res.ConsensusReached {
		t.Error("split history must not reach consensus")
	}

	// A third benign event: 2/3 is above 60%, flips back.
	res, err = l.ProcessFeedback(ctx, url, false, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if res.Type != domain.VerdictBenign || !res.ConsensusReached {
		t.Errorf("result = %+v, want benign consensus", res)
	}
	if res.ConflictingFeedbacks != 2 {
		t.Errorf("conflicts = %d, want 2", res.ConflictingFeedbacks)
	}
}

func TestProcessFeedbackOutlierCountsConflict(t *testing.T) {
	l, _, _, _ := newTestLearner(t, 10)
	ctx := context.Background()
	url := "https://established.example.com"

	if _, err := l.ProcessFeedback(ctx, url, true, 0.8); err != nil {
		t.Fatal(err)
	}
	if _, err := l.ProcessFeedback(ctx, url, true, 0.9); err != nil {
		t.Fatal(err)
	}

	// A lone dissenting report does not flip the 2/3 majority, but it still
	// disputes the stored verdict: conflict counted, confidence reset.
	res, err := l.ProcessFeedback(ctx, url, false, 0.2)
	if err != nil {
		t.Fatal(err)
	}
	if res.Type != domain.VerdictMalicious {
		t.Errorf("type = %s, want majority malicious", res.Type)
	}
	if res.ConflictingFeedbacks != 1 {
		t.Errorf("conflicts = %d, want 1", res.ConflictingFeedbacks)
	}
	if res.Confidence != 0.2 {
		t.Errorf("confidence = %v, want reset to reported 0.2", res.Confidence)
	}
}

func TestProcessFeedbackReportsRetrainReadiness(t *testing.T) {
	l, _, _, _ := newTestLearner(t, 1)
	ctx := context.Background()
	url := "https://ready.example.com"

	res, err := l.ProcessFeedback(ctx, url, true, 0.8)
	if err != nil {
		t.Fatal(err)
	}
	// A single-event record is not yet eligible for training.
	if res.UnusedSamples != 0 || res.NeedsRetraining {
		t.Errorf("result = %+v, want no eligible samples yet", res)
	}
	if res.Message == "" {
		t.Error("message missing from feedback response")
	}

	res, err = l.ProcessFeedback(ctx, url, true, 0.8)
	if err != nil {
		t.Fatal(err)
	}
	if res.UnusedSamples != 1 {
		t.Errorf("unused samples = %d, want 1", res.UnusedSamples)
	}
	if !res.NeedsRetraining {
		t.Error("threshold of 1 reached, needs_retraining should be set")
	}
}

func TestProcessFeedbackResetsUsedInTraining(t *testing.T) {
	l, repo, _, _ := newTestLearner(t, 10)
	ctx := context.Background()
	url := "https://retrained.example.com"

	res, err := l.ProcessFeedback(ctx, url, true, 0.8)
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.MarkUsedInTraining(ctx, []string{res.URLHash}); err != nil {
		t.Fatal(err)
	}

	if _, err := l.ProcessFeedback(ctx, url, true, 0.8); err != nil {
		t.Fatal(err)
	}
	rec, err := repo.GetByHash(ctx, res.URLHash)
	if err != nil {
		t.Fatal(err)
	}
	if rec.UsedInTraining {
		t.Error("new feedback must put the record back into the training pool")
	}
}

func TestRetrainSkippedBelowThreshold(t *testing.T) {
	l, _, trainer, _ := newTestLearner(t, 1000)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := l.ProcessFeedback(ctx, "https://bad.example.com", true, 0.8); err != nil {
			t.Fatal(err)
		}
	}

	res, err := l.Retrain(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != "skipped" {
		t.Errorf("status = %s, want skipped", res.Status)
	}
	if trainer.calls != 0 {
		t.Error("trainer ran despite being below threshold")
	}
}

func TestRetrainForced(t *testing.T) {
	l, repo, trainer, dir := newTestLearner(t, 1000)
	ctx := context.Background()
	writeBaseData(t, dir, 40)

	urls := []string{"https://a.example.com", "https://b.example.com"}
	for _, u := range urls {
		for i := 0; i < 2; i++ {
			if _, err := l.ProcessFeedback(ctx, u, true, 0.8); err != nil {
				t.Fatal(err)
			}
		}
	}

	res, err := l.Retrain(ctx, true)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != "completed" {
		t.Fatalf("status = %s, want completed", res.Status)
	}
	if res.FeedbackRows != 2 {
		t.Errorf("feedback rows = %d, want 2", res.FeedbackRows)
	}
	if trainer.calls != 1 {
		t.Errorf("trainer calls = %d, want 1", trainer.calls)
	}

	// All consumed records are marked in one pass.
	n, err := repo.CountUnusedEligible(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("eligible after retrain = %d, want 0", n)
	}

	// Scratch file is cleaned up.
	if _, err := os.Stat(filepath.Join(dir, "retrain_scratch.csv")); !os.IsNotExist(err) {
		t.Error("scratch CSV left behind")
	}
}

func TestRetrainCountsExtractionFailures(t *testing.T) {
	l, repo, trainer, dir := newTestLearner(t, 1)
	ctx := context.Background()
	writeBaseData(t, dir, 40)

	for i := 0; i < 2; i++ {
		if _, err := l.ProcessFeedback(ctx, "https://good.example.com", true, 0.8); err != nil {
			t.Fatal(err)
		}
		// Parses nowhere: bracket host fails extraction at retrain time.
		if _, err := l.ProcessFeedback(ctx, "http://[invalid", true, 0.8); err != nil {
			t.Fatal(err)
		}
	}

	res, err := l.Retrain(ctx, true)
	if err != nil {
		t.Fatal(err)
	}
	if res.ExtractionFailures != 1 {
		t.Errorf("extraction failures = %d, want 1", res.ExtractionFailures)
	}
	if res.FeedbackRows != 1 {
		t.Errorf("feedback rows = %d, want 1", res.FeedbackRows)
	}
	if trainer.calls != 1 {
		t.Errorf("trainer calls = %d, want 1", trainer.calls)
	}

	// The failed record stays in the pool for the next attempt.
	n, err := repo.CountUnusedEligible(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("eligible after retrain = %d, want the failed record kept", n)
	}
}

func TestRetrainTrainerFailureKeepsRecordsEligible(t *testing.T) {
	l, repo, trainer, dir := newTestLearner(t, 1)
	ctx := context.Background()
	writeBaseData(t, dir, 40)
	trainer.err = domain.NewError(domain.KindModelTrainer, "boom")

	for i := 0; i < 2; i++ {
		if _, err := l.ProcessFeedback(ctx, "https://bad.example.com", true, 0.8); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := l.Retrain(ctx, false); err == nil {
		t.Fatal("expected trainer error to propagate")
	}

	n, err := repo.CountUnusedEligible(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("records consumed despite failed training: eligible = %d, want 1", n)
	}
}

func TestIngestWritesSplitsAndPreprocessor(t *testing.T) {
	l, _, _, dir := newTestLearner(t, 1000)
	ctx := context.Background()

	raw := filepath.Join(t.TempDir(), "raw.csv")
	ds := &dataset.Dataset{Columns: domain.ModelFeatureColumns}
	for i := 0; i < 40; i++ {
		row := make([]float64, len(domain.ModelFeatureColumns))
		label := i % 2
		row[0] = float64(label)
		row[12] = float64(20 + i%40)
		ds.Append(row, label)
	}
	if err := dataset.Write(raw, ds); err != nil {
		t.Fatal(err)
	}

	res, err := l.Ingest(ctx, raw)
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalRows != 40 || res.TrainRows != 32 || res.TestRows != 8 {
		t.Errorf("rows = %d/%d/%d, want 40/32/8", res.TotalRows, res.TrainRows, res.TestRows)
	}

	train, err := dataset.Load(filepath.Join(dir, BaseDataName), domain.ModelFeatureColumns)
	if err != nil {
		t.Fatalf("train split unreadable: %v", err)
	}
	if train.Len() != 32 {
		t.Errorf("train rows on disk = %d, want 32", train.Len())
	}
	// The persisted corpus keeps raw values so retrains can append raw
	// feature rows to it; a standardized column would sit near zero.
	for i, row := range train.X {
		if row[12] < 20 {
			t.Fatalf("row %d url_length = %v, want raw value >= 20", i, row[12])
		}
	}
	if _, err := os.Stat(filepath.Join(dir, TestDataName)); err != nil {
		t.Errorf("test split missing: %v", err)
	}
	if _, err := dataset.LoadScaler(filepath.Join(dir, model.ScalerArtifactName)); err != nil {
		t.Errorf("preprocessor unreadable: %v", err)
	}
}

func TestIngestRequiresPath(t *testing.T) {
	l, _, _, _ := newTestLearner(t, 1000)

	_, err := l.Ingest(context.Background(), "")
	if !domain.IsKind(err, domain.KindDataIngestion) {
		t.Errorf("err = %v, want data ingestion kind", err)
	}
}

func TestGetTrainingStats(t *testing.T) {
	l, _, _, _ := newTestLearner(t, 100)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := l.ProcessFeedback(ctx, "https://bad.example.com", true, 0.8); err != nil {
			t.Fatal(err)
		}
	}

	stats, err := l.GetTrainingStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Feedback.TotalRecords != 1 {
		t.Errorf("total records = %d", stats.Feedback.TotalRecords)
	}
	if stats.RecordsUntilRetrain != 99 {
		t.Errorf("records until retrain = %d, want 99", stats.RecordsUntilRetrain)
	}
}

func TestConcurrentFeedbackSameURL(t *testing.T) {
	l, repo, _, _ := newTestLearner(t, 1000)
	ctx := context.Background()
	url := "https://concurrent.example.com"

	if _, err := l.ProcessFeedback(ctx, url, true, 0.5); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.ProcessFeedback(ctx, url, true, 0.5); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	rec, err := repo.GetByHash(ctx, urlnorm.Hash(url))
	if err != nil {
		t.Fatal(err)
	}
	if rec.FeedbackCount != 11 {
		t.Errorf("feedback count = %d, want 11", rec.FeedbackCount)
	}
	if len(rec.History()) != rec.FeedbackCount {
		t.Errorf("history length %d != count %d", len(rec.History()), rec.FeedbackCount)
	}
}
