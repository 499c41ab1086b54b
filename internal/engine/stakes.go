package engine

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/predictpesa/settlement/internal/events"
	"github.com/predictpesa/settlement/internal/storage"
	"github.com/predictpesa/settlement/pkg/types"
	"go.uber.org/zap"
)

// Stake places value on a position. Requires the market Open and unexpired;
// bounds apply to the holder's balance after accumulation.
func (e *Engine) Stake(_ context.Context, marketID uuid.UUID, holder common.Address, position types.Position, amount int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	m, err := e.registry.Refresh(marketID, now)
	if err != nil {
		return err
	}

	if m.State != types.MarketOpen || !now.Before(m.Expiry) {
		return types.NewState(types.CodeMarketClosed,
			"market is "+m.State.String()+", staking closed")
	}

	return e.stakes.Stake(marketID, holder, position, amount, m.MinStake, m.MaxStake)
}

// Refund returns a holder's full stake on a cancelled market, exactly once.
// The transfer is atomic with the ledger update: a failed transfer unwinds
// the refund.
func (e *Engine) Refund(ctx context.Context, marketID uuid.UUID, holder common.Address) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, err := e.registry.Get(marketID)
	if err != nil {
		return 0, err
	}

	if m.State != types.MarketCancelled {
		return 0, types.NewState(types.CodeMarketNotCancelled,
			"refunds only on cancelled markets, market is "+m.State.String())
	}

	balYes, balNo := e.stakes.BalanceOf(marketID, holder)
	amount, err := e.stakes.Refund(marketID, holder)
	if err != nil {
		return 0, err
	}

	err = e.transfer.Transfer(ctx, holder, amount)
	if err != nil {
		e.stakes.UnwindRefund(marketID, holder, balYes, balNo)
		e.logger.Error("refund-transfer-failed",
			zap.String("market-id", marketID.String()),
			zap.String("holder", holder.Hex()),
			zap.Error(err))
		return 0, &types.Error{
			Kind:    types.KindState,
			Code:    types.CodeTransferFailed,
			Message: "refund transfer failed: " + err.Error(),
		}
	}

	e.record(ctx, func(s storage.Storage) error {
		return s.RecordSettlement(ctx, &storage.SettlementRecord{
			MarketID:  marketID,
			Holder:    holder.Hex(),
			Kind:      "refund",
			Stake:     amount,
			Payout:    amount,
			SettledAt: e.now(),
		})
	})

	e.publish(events.Event{
		Type:     events.TypeStakeRefunded,
		MarketID: marketID,
		At:       e.now(),
		Data:     map[string]any{"holder": holder.Hex(), "amount": amount},
	})

	return amount, nil
}

// Balance returns the holder's YES and NO balances on a market.
func (e *Engine) Balance(marketID uuid.UUID, holder common.Address) (yes, no int64) {
	return e.stakes.BalanceOf(marketID, holder)
}

// record persists an audit row; persistence failures are logged, never
// allowed to fail the state transition that already happened.
func (e *Engine) record(_ context.Context, fn func(storage.Storage) error) {
	if e.store == nil {
		return
	}

	err := fn(e.store)
	if err != nil {
		e.logger.Error("audit-record-failed", zap.Error(err))
	}
}
