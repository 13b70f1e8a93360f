package database

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/jonesrussell/url-sentinel/internal/domain"
)

func newTestRepo(t *testing.T) *FeedbackRepository {
	t.Helper()
	db, err := sqlx.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// One connection keeps the in-memory database shared across queries.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if err := EnsureSchema(context.Background(), db); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return NewFeedbackRepository(db)
}

func testRecord(hash string) *domain.FeedbackRecord {
	return &domain.FeedbackRecord{
		URL:              "https://example.com/" + hash,
		URLHash:          hash,
		NormalizedURL:    "example.com/" + hash,
		Type:             domain.VerdictMalicious,
		Confidence:       0.9,
		FeedbackCount:    1,
		LastFeedbackType: string(domain.VerdictMalicious),
		Timestamp:        time.Now().UTC(),
	}
}

func TestCreateAndGetByHash(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rec := testRecord("abc123")
	if err := repo.Create(ctx, rec); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetByHash(ctx, "abc123")
	if err != nil {
		t.Fatalf("GetByHash: %v", err)
	}
	if got.URL != rec.URL || got.Type != domain.VerdictMalicious || got.FeedbackCount != 1 {
		t.Errorf("got %+v", got)
	}
}

func TestGetByHashNotFound(t *testing.T) {
	repo := newTestRepo(t)
	if _, err := repo.GetByHash(context.Background(), "missing"); err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rec := testRecord("abc123")
	if err := repo.Create(ctx, rec); err != nil {
		t.Fatal(err)
	}

	rec.FeedbackCount = 3
	rec.ConsensusReached = true
	rec.Confidence = 0.95
	rec.AppendHistory(domain.VerdictMalicious)
	if err := repo.Update(ctx, rec); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := repo.GetByHash(ctx, "abc123")
	if err != nil {
		t.Fatal(err)
	}
	if got.FeedbackCount != 3 || !got.ConsensusReached || got.Confidence != 0.95 {
		t.Errorf("update not persisted: %+v", got)
	}
	if len(got.History()) != 2 {
		t.Errorf("history = %v", got.History())
	}
}

func TestUpdateMissingRecord(t *testing.T) {
	repo := newTestRepo(t)
	rec := testRecord("ghost")
	if err := repo.Update(context.Background(), rec); err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestEligibility(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	// Single feedback, no consensus: not eligible.
	single := testRecord("single")
	if err := repo.Create(ctx, single); err != nil {
		t.Fatal(err)
	}

	// Consensus: eligible.
	consensus := testRecord("consensus")
	consensus.FeedbackCount = 2
	consensus.ConsensusReached = true
	if err := repo.Create(ctx, consensus); err != nil {
		t.Fatal(err)
	}

	// Repeated but conflicted: eligible via count.
	repeated := testRecord("repeated")
	repeated.FeedbackCount = 4
	if err := repo.Create(ctx, repeated); err != nil {
		t.Fatal(err)
	}

	// Consumed: never eligible again.
	used := testRecord("used")
	used.FeedbackCount = 5
	used.ConsensusReached = true
	used.UsedInTraining = true
	if err := repo.Create(ctx, used); err != nil {
		t.Fatal(err)
	}

	n, err := repo.CountUnusedEligible(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("eligible count = %d, want 2", n)
	}

	recs, err := repo.ListEligible(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Fatalf("eligible list = %d records", len(recs))
	}
	for _, r := range recs {
		if r.URLHash == "single" || r.URLHash == "used" {
			t.Errorf("record %s should not be eligible", r.URLHash)
		}
	}
}

func TestMarkUsedInTraining(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, h := range []string{"a", "b"} {
		rec := testRecord(h)
		rec.FeedbackCount = 2
		rec.ConsensusReached = true
		if err := repo.Create(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	if err := repo.MarkUsedInTraining(ctx, []string{"a", "b"}); err != nil {
		t.Fatalf("MarkUsedInTraining: %v", err)
	}

	n, err := repo.CountUnusedEligible(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("eligible after marking = %d, want 0", n)
	}
}

func TestStats(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	mal := testRecord("m1")
	mal.FeedbackCount = 3
	mal.ConsensusReached = true
	if err := repo.Create(ctx, mal); err != nil {
		t.Fatal(err)
	}

	ben := testRecord("b1")
	ben.Type = domain.VerdictBenign
	if err := repo.Create(ctx, ben); err != nil {
		t.Fatal(err)
	}

	stats, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalRecords != 2 || stats.ConsensusRecords != 1 || stats.MaxFeedbacks != 3 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.TypeDistribution["malicious"] != 1 || stats.TypeDistribution["benign"] != 1 {
		t.Errorf("type distribution = %v", stats.TypeDistribution)
	}
	if stats.AverageFeedbacks != 2 {
		t.Errorf("average feedbacks = %v, want 2", stats.AverageFeedbacks)
	}
}
