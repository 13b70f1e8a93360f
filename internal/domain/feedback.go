// Package domain holds the core data model for url-sentinel.
package domain

import (
	"strings"
	"time"
)

// VerdictType is the consensus verdict for a URL.
type VerdictType string

const (
	// VerdictMalicious marks a URL considered malicious.
	VerdictMalicious VerdictType = "malicious"
	// VerdictBenign marks a URL considered benign.
	VerdictBenign VerdictType = "benign"
)

// VerdictFromBool converts a reported is-malicious flag into a VerdictType.
func VerdictFromBool(isMalicious bool) VerdictType {
	if isMalicious {
		return VerdictMalicious
	}
	return VerdictBenign
}

// FeedbackRecord is the durable per-URL feedback state. One record exists
// per distinct normalized URL, keyed by URLHash.
type FeedbackRecord struct {
	ID                   int64       `db:"id"`
	URL                  string      `db:"url"`
	URLHash              string      `db:"url_hash"`
	NormalizedURL        string      `db:"normalized_url"`
	Type                 VerdictType `db:"type"`
	Confidence           float64     `db:"confidence"`
	FeedbackCount        int         `db:"feedback_count"`
	ConflictingFeedbacks int         `db:"conflicting_feedbacks"`
	LastFeedbackType     string      `db:"last_feedback_type"`
	ConsensusReached     bool        `db:"consensus_reached"`
	UsedInTraining       bool        `db:"used_in_training"`
	Timestamp            time.Time   `db:"timestamp"`
}

// History returns the ordered feedback-type history, oldest first.
// Invariant: len(History()) == FeedbackCount.
func (r *FeedbackRecord) History() []VerdictType {
	if r.LastFeedbackType == "" {
		return nil
	}
	parts := strings.Split(r.LastFeedbackType, ",")
	history := make([]VerdictType, 0, len(parts))
	for _, p := range parts {
		history = append(history, VerdictType(p))
	}
	return history
}

// AppendHistory appends a label to the stored history string.
func (r *FeedbackRecord) AppendHistory(v VerdictType) {
	if r.LastFeedbackType == "" {
		r.LastFeedbackType = string(v)
		return
	}
	r.LastFeedbackType += "," + string(v)
}

// Eligible reports whether the record can feed a retrain cycle: it has not
// been consumed yet and either reached consensus or saw at least two events.
func (r *FeedbackRecord) Eligible() bool {
	return !r.UsedInTraining && (r.ConsensusReached || r.FeedbackCount >= 2)
}

// FeedbackStats aggregates feedback-store statistics.
type FeedbackStats struct {
	TotalRecords     int            `json:"total_records"`
	UnusedEligible   int            `json:"unused_eligible_records"`
	ConsensusRecords int            `json:"consensus_records"`
	TypeDistribution map[string]int `json:"type_distribution"`
	AverageFeedbacks float64        `json:"average_feedbacks"`
	MaxFeedbacks     int            `json:"max_feedbacks"`
}
