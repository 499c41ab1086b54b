package engine

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/predictpesa/settlement/internal/events"
	"github.com/predictpesa/settlement/internal/settlement"
	"github.com/predictpesa/settlement/internal/storage"
	"github.com/predictpesa/settlement/pkg/types"
)

// ClaimReward pays out a holder's pari-mutuel share on a resolved market.
// Claims open only once the outcome is immutable: the dispute window has
// closed and every dispute is ruled, so an accepted override can never
// land after value has left the pools. The claimed flag is set before the
// value transfer and the whole call reverts if the transfer fails. After
// the last winner claims, rounding dust is swept into the fee bucket so
// the ledger closes exactly.
func (e *Engine) ClaimReward(ctx context.Context, marketID uuid.UUID, holder common.Address) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, err := e.registry.Get(marketID)
	if err != nil {
		return 0, err
	}

	if m.State != types.MarketResolved {
		return 0, types.NewState(types.CodeMarketNotResolved,
			"claims only on resolved markets, market is "+m.State.String())
	}

	if e.consensus.DisputeWindowOpen(marketID, e.now()) {
		return 0, types.NewState(types.CodeDisputePending,
			"dispute window still open, claims are locked")
	}
	if e.consensus.HasOpenDispute(marketID) {
		return 0, types.NewState(types.CodeDisputePending,
			"an unresolved dispute locks claims")
	}

	outcome, _, err := e.consensus.Outcome(marketID)
	if err != nil {
		return 0, err
	}

	totalYes, totalNo := e.stakes.Totals(marketID)
	winningPool, losingPool := totalYes, totalNo
	if outcome == types.PositionNo {
		winningPool, losingPool = totalNo, totalYes
	}

	balYes, balNo := e.stakes.BalanceOf(marketID, holder)
	winningStake := balYes
	if outcome == types.PositionNo {
		winningStake = balNo
	}
	if winningPool == 0 {
		// Nobody held the winning side: the market is a push and every
		// stake comes back in full.
		winningStake = balYes + balNo
	}
	if winningStake == 0 {
		return 0, types.NewValidation(types.CodeNoWinningStake,
			"holder "+holder.Hex()+" has no stake on the winning side")
	}

	payout, err := e.settlement.Claim(marketID, holder, winningStake, winningPool, losingPool,
		func(to common.Address, amount int64) error {
			return e.transfer.Transfer(ctx, to, amount)
		})
	if err != nil {
		return 0, err
	}

	_, fee := settlement.CalculatePayout(winningStake, winningPool, losingPool, e.settlement.FeeBps())

	e.record(ctx, func(s storage.Storage) error {
		return s.RecordSettlement(ctx, &storage.SettlementRecord{
			MarketID:  marketID,
			Holder:    holder.Hex(),
			Kind:      "claim",
			Stake:     winningStake,
			Payout:    payout,
			Fee:       fee,
			SettledAt: e.now(),
		})
	})

	e.publish(events.Event{
		Type:     events.TypeRewardClaimed,
		MarketID: marketID,
		At:       e.now(),
		Data:     map[string]any{"holder": holder.Hex(), "payout": payout},
	})

	if e.allWinnersClaimedLocked(marketID, outcome) {
		e.settlement.SweepResidual(marketID, totalYes+totalNo)
	}

	return payout, nil
}

// FeesCollected returns the market's accrued protocol fees.
func (e *Engine) FeesCollected(marketID uuid.UUID) int64 {
	return e.settlement.FeesCollected(marketID)
}

// PaidOut returns the total paid to winners on the market.
func (e *Engine) PaidOut(marketID uuid.UUID) int64 {
	return e.settlement.PaidOut(marketID)
}

// ForfeitsCollected returns forfeited dispute stakes held by the treasury
// for the market.
func (e *Engine) ForfeitsCollected(marketID uuid.UUID) int64 {
	return e.settlement.ForfeitsCollected(marketID)
}

// allWinnersClaimedLocked reports whether every holder entitled to a payout
// has claimed. On a push market (empty winning pool) that is every holder.
func (e *Engine) allWinnersClaimedLocked(marketID uuid.UUID, outcome types.Outcome) bool {
	totalYes, totalNo := e.stakes.Totals(marketID)
	winningPool := totalYes
	if outcome == types.PositionNo {
		winningPool = totalNo
	}

	for _, holder := range e.stakes.Holders(marketID) {
		balYes, balNo := e.stakes.BalanceOf(marketID, holder)
		winning := balYes
		if outcome == types.PositionNo {
			winning = balNo
		}
		if winningPool == 0 {
			winning = balYes + balNo
		}
		if winning > 0 && !e.settlement.HasClaimed(marketID, holder) {
			return false
		}
	}
	return true
}
