package storage

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRecordResolution(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := newPostgresStorageWithDB(db, zap.NewNop())
	marketID := uuid.New()
	finalizedAt := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO resolutions").
		WithArgs(marketID, "YES", int64(6666), 2, 1, false, finalizedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = store.RecordResolution(context.Background(), &ResolutionRecord{
		MarketID:      marketID,
		Outcome:       "YES",
		ConfidenceBps: 6666,
		YesVotes:      2,
		NoVotes:       1,
		FinalizedAt:   finalizedAt,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordDispute(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := newPostgresStorageWithDB(db, zap.NewNop())
	marketID := uuid.New()
	raisedAt := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO disputes").
		WithArgs(marketID, 0, "0xC0", "NO", "evidence://appeal",
			int64(100_000), raisedAt, true, false).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = store.RecordDispute(context.Background(), &DisputeRecord{
		MarketID:    marketID,
		Index:       0,
		Challenger:  "0xC0",
		Proposed:    "NO",
		EvidenceRef: "evidence://appeal",
		Stake:       100_000,
		RaisedAt:    raisedAt,
		Resolved:    true,
		Accepted:    false,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordSettlement(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := newPostgresStorageWithDB(db, zap.NewNop())
	marketID := uuid.New()
	settledAt := time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO settlements").
		WithArgs(marketID, "0x01", "claim", int64(100), int64(396), int64(4), settledAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = store.RecordSettlement(context.Background(), &SettlementRecord{
		MarketID:  marketID,
		Holder:    "0x01",
		Kind:      "claim",
		Stake:     100,
		Payout:    396,
		Fee:       4,
		SettledAt: settledAt,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertFailureSurfaces(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := newPostgresStorageWithDB(db, zap.NewNop())

	mock.ExpectExec("INSERT INTO settlements").
		WillReturnError(assert.AnError)

	err = store.RecordSettlement(context.Background(), &SettlementRecord{
		MarketID: uuid.New(),
		Holder:   "0x01",
		Kind:     "refund",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert settlement")
}
