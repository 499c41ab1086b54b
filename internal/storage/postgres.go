package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// PostgresStorage implements Storage using PostgreSQL.
type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresStorage creates a new PostgreSQL storage.
func NewPostgresStorage(cfg *PostgresConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	err = db.Ping()
	if err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	cfg.Logger.Info("postgres-storage-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &PostgresStorage{
		db:     db,
		logger: cfg.Logger,
	}, nil
}

// newPostgresStorageWithDB wires an existing handle; used by tests.
func newPostgresStorageWithDB(db *sql.DB, logger *zap.Logger) *PostgresStorage {
	return &PostgresStorage{db: db, logger: logger}
}

// RecordResolution inserts a resolution audit row.
func (p *PostgresStorage) RecordResolution(ctx context.Context, rec *ResolutionRecord) error {
	query := `
		INSERT INTO resolutions (
			market_id, outcome, confidence_bps, yes_votes, no_votes,
			overridden, finalized_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := p.db.ExecContext(ctx, query,
		rec.MarketID,
		rec.Outcome,
		rec.ConfidenceBps,
		rec.YesVotes,
		rec.NoVotes,
		rec.Overridden,
		rec.FinalizedAt,
	)
	if err != nil {
		return fmt.Errorf("insert resolution: %w", err)
	}

	p.logger.Debug("resolution-stored", zap.String("market-id", rec.MarketID.String()))

	return nil
}

// RecordDispute inserts a dispute audit row.
func (p *PostgresStorage) RecordDispute(ctx context.Context, rec *DisputeRecord) error {
	query := `
		INSERT INTO disputes (
			market_id, dispute_index, challenger, proposed, evidence_ref,
			stake, raised_at, resolved, accepted
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := p.db.ExecContext(ctx, query,
		rec.MarketID,
		rec.Index,
		rec.Challenger,
		rec.Proposed,
		rec.EvidenceRef,
		rec.Stake,
		rec.RaisedAt,
		rec.Resolved,
		rec.Accepted,
	)
	if err != nil {
		return fmt.Errorf("insert dispute: %w", err)
	}

	p.logger.Debug("dispute-stored",
		zap.String("market-id", rec.MarketID.String()),
		zap.Int("dispute-index", rec.Index))

	return nil
}

// RecordSettlement inserts a settlement audit row.
func (p *PostgresStorage) RecordSettlement(ctx context.Context, rec *SettlementRecord) error {
	query := `
		INSERT INTO settlements (
			market_id, holder, kind, stake, payout, fee, settled_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := p.db.ExecContext(ctx, query,
		rec.MarketID,
		rec.Holder,
		rec.Kind,
		rec.Stake,
		rec.Payout,
		rec.Fee,
		rec.SettledAt,
	)
	if err != nil {
		return fmt.Errorf("insert settlement: %w", err)
	}

	p.logger.Debug("settlement-stored",
		zap.String("market-id", rec.MarketID.String()),
		zap.String("holder", rec.Holder))

	return nil
}

// Close closes the database connection.
func (p *PostgresStorage) Close() error {
	p.logger.Info("closing-postgres-storage")
	return p.db.Close()
}
