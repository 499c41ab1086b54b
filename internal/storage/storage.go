package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ResolutionRecord is the audit row written when a market finalizes or its
// outcome is overridden by a dispute.
type ResolutionRecord struct {
	MarketID      uuid.UUID
	Outcome       string
	ConfidenceBps int64
	YesVotes      int
	NoVotes       int
	Overridden    bool
	FinalizedAt   time.Time
}

// DisputeRecord is the audit row written when a dispute is raised or ruled.
type DisputeRecord struct {
	MarketID    uuid.UUID
	Index       int
	Challenger  string
	Proposed    string
	EvidenceRef string
	Stake       int64
	RaisedAt    time.Time
	Resolved    bool
	Accepted    bool
}

// SettlementRecord is the audit row written when a holder claims a reward
// or a refund.
type SettlementRecord struct {
	MarketID  uuid.UUID
	Holder    string
	Kind      string // "claim" or "refund"
	Stake     int64
	Payout    int64
	Fee       int64
	SettledAt time.Time
}

// Storage persists resolution, dispute and settlement history. Rows are
// append-only and must remain queryable indefinitely for audit.
type Storage interface {
	RecordResolution(ctx context.Context, rec *ResolutionRecord) error
	RecordDispute(ctx context.Context, rec *DisputeRecord) error
	RecordSettlement(ctx context.Context, rec *SettlementRecord) error
	Close() error
}
