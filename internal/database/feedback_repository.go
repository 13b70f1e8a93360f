package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/url-sentinel/internal/domain"
)

// ErrNotFound is returned when no feedback record exists for a hash.
var ErrNotFound = errors.New("feedback record not found")

// FeedbackRepository handles database operations for URL feedback records.
// Queries use `?` bindvars and are rebound for the active driver.
type FeedbackRepository struct {
	db *sqlx.DB
}

// NewFeedbackRepository creates a new feedback repository.
func NewFeedbackRepository(db *sqlx.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

// GetByHash retrieves the record for a normalized-URL hash.
func (r *FeedbackRepository) GetByHash(ctx context.Context, urlHash string) (*domain.FeedbackRecord, error) {
	query := r.db.Rebind(`
		SELECT id, url, url_hash, normalized_url, type, confidence,
		       feedback_count, conflicting_feedbacks, last_feedback_type,
		       consensus_reached, used_in_training, timestamp
		FROM url_feedback
		WHERE url_hash = ?
	`)

	var rec domain.FeedbackRecord
	if err := r.db.GetContext(ctx, &rec, query, urlHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get feedback record: %w", err)
	}
	return &rec, nil
}

// Create inserts a new feedback record.
func (r *FeedbackRepository) Create(ctx context.Context, rec *domain.FeedbackRecord) error {
	query := r.db.Rebind(`
		INSERT INTO url_feedback (
			url, url_hash, normalized_url, type, confidence, feedback_count,
			conflicting_feedbacks, last_feedback_type, consensus_reached,
			used_in_training, timestamp
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)

	res, err := r.db.ExecContext(ctx, query,
		rec.URL, rec.URLHash, rec.NormalizedURL, rec.Type, rec.Confidence,
		rec.FeedbackCount, rec.ConflictingFeedbacks, rec.LastFeedbackType,
		rec.ConsensusReached, rec.UsedInTraining, rec.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("create feedback record: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		rec.ID = id
	}
	return nil
}

// Update persists the mutable fields of an existing record in one statement.
func (r *FeedbackRepository) Update(ctx context.Context, rec *domain.FeedbackRecord) error {
	query := r.db.Rebind(`
		UPDATE url_feedback
		SET type = ?, confidence = ?, feedback_count = ?,
		    conflicting_feedbacks = ?, last_feedback_type = ?,
		    consensus_reached = ?, used_in_training = ?, timestamp = ?
		WHERE url_hash = ?
	`)

	res, err := r.db.ExecContext(ctx, query,
		rec.Type, rec.Confidence, rec.FeedbackCount, rec.ConflictingFeedbacks,
		rec.LastFeedbackType, rec.ConsensusReached, rec.UsedInTraining,
		rec.Timestamp, rec.URLHash,
	)
	if err != nil {
		return fmt.Errorf("update feedback record: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// eligibleWhere selects records that can feed training: not yet consumed and
// either at consensus or with repeated feedback.
const eligibleWhere = `used_in_training = ? AND (consensus_reached = ? OR feedback_count >= 2)`

// CountUnusedEligible returns how many records are waiting to train.
func (r *FeedbackRepository) CountUnusedEligible(ctx context.Context) (int, error) {
	query := r.db.Rebind(`SELECT COUNT(*) FROM url_feedback WHERE ` + eligibleWhere)

	var n int
	if err := r.db.GetContext(ctx, &n, query, false, true); err != nil {
		return 0, fmt.Errorf("count eligible records: %w", err)
	}
	return n, nil
}

// ListEligible returns all records waiting to train, oldest first.
func (r *FeedbackRepository) ListEligible(ctx context.Context) ([]*domain.FeedbackRecord, error) {
	query := r.db.Rebind(`
		SELECT id, url, url_hash, normalized_url, type, confidence,
		       feedback_count, conflicting_feedbacks, last_feedback_type,
		       consensus_reached, used_in_training, timestamp
		FROM url_feedback
		WHERE ` + eligibleWhere + `
		ORDER BY timestamp ASC
	`)

	var recs []*domain.FeedbackRecord
	if err := r.db.SelectContext(ctx, &recs, query, false, true); err != nil {
		return nil, fmt.Errorf("list eligible records: %w", err)
	}
	return recs, nil
}

// MarkUsedInTraining flags the given hashes as consumed in a single
// transaction. Either all records are marked or none are.
func (r *FeedbackRepository) MarkUsedInTraining(ctx context.Context, hashes []string) error {
	if len(hashes) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin mark-used transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	query := tx.Rebind(`UPDATE url_feedback SET used_in_training = ? WHERE url_hash = ?`)
	for _, h := range hashes {
		if _, err := tx.ExecContext(ctx, query, true, h); err != nil {
			return fmt.Errorf("mark record %s used: %w", h, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit mark-used transaction: %w", err)
	}
	return nil
}

// Stats aggregates feedback store statistics.
func (r *FeedbackRepository) Stats(ctx context.Context) (*domain.FeedbackStats, error) {
	stats := &domain.FeedbackStats{TypeDistribution: make(map[string]int)}

	query := r.db.Rebind(`
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN consensus_reached = ? THEN 1 ELSE 0 END), 0),
		       COALESCE(AVG(feedback_count), 0),
		       COALESCE(MAX(feedback_count), 0)
		FROM url_feedback
	`)
	row := r.db.QueryRowContext(ctx, query, true)
	if err := row.Scan(&stats.TotalRecords, &stats.ConsensusRecords, &stats.AverageFeedbacks, &stats.MaxFeedbacks); err != nil {
		return nil, fmt.Errorf("get feedback stats: %w", err)
	}

	eligible, err := r.CountUnusedEligible(ctx)
	if err != nil {
		return nil, err
	}
	stats.UnusedEligible = eligible

	rows, err := r.db.QueryContext(ctx, `SELECT type, COUNT(*) FROM url_feedback GROUP BY type`)
	if err != nil {
		return nil, fmt.Errorf("get type distribution: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var t string
		var n int
		if err := rows.Scan(&t, &n); err != nil {
			return nil, fmt.Errorf("scan type distribution: %w", err)
		}
		stats.TypeDistribution[t] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate type distribution: %w", err)
	}
	return stats, nil
}
