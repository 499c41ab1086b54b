package storage

import (
	"context"

	"go.uber.org/zap"
)

// ConsoleStorage logs audit rows instead of persisting them. Used when no
// database is configured.
type ConsoleStorage struct {
	logger *zap.Logger
}

// NewConsoleStorage creates a console storage.
func NewConsoleStorage(logger *zap.Logger) *ConsoleStorage {
	return &ConsoleStorage{logger: logger}
}

// RecordResolution logs a resolution row.
func (c *ConsoleStorage) RecordResolution(_ context.Context, rec *ResolutionRecord) error {
	c.logger.Info("audit-resolution",
		zap.String("market-id", rec.MarketID.String()),
		zap.String("outcome", rec.Outcome),
		zap.Int64("confidence-bps", rec.ConfidenceBps),
		zap.Int("yes-votes", rec.YesVotes),
		zap.Int("no-votes", rec.NoVotes),
		zap.Bool("overridden", rec.Overridden))
	return nil
}

// RecordDispute logs a dispute row.
func (c *ConsoleStorage) RecordDispute(_ context.Context, rec *DisputeRecord) error {
	c.logger.Info("audit-dispute",
		zap.String("market-id", rec.MarketID.String()),
		zap.Int("dispute-index", rec.Index),
		zap.String("challenger", rec.Challenger),
		zap.String("proposed", rec.Proposed),
		zap.Int64("stake", rec.Stake),
		zap.Bool("resolved", rec.Resolved),
		zap.Bool("accepted", rec.Accepted))
	return nil
}

// RecordSettlement logs a settlement row.
func (c *ConsoleStorage) RecordSettlement(_ context.Context, rec *SettlementRecord) error {
	c.logger.Info("audit-settlement",
		zap.String("market-id", rec.MarketID.String()),
		zap.String("holder", rec.Holder),
		zap.String("kind", rec.Kind),
		zap.Int64("stake", rec.Stake),
		zap.Int64("payout", rec.Payout),
		zap.Int64("fee", rec.Fee))
	return nil
}

// Close is a no-op for console storage.
func (c *ConsoleStorage) Close() error {
	return nil
}
