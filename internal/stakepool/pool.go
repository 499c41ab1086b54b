package stakepool

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/predictpesa/settlement/pkg/types"
	"go.uber.org/zap"
)

type holderKey struct {
	market uuid.UUID
	holder common.Address
}

// Pool is the per-market ledger of staked value by position. It is
// independent of resolution: the invariant totalYes + totalNo == value held
// by the market is maintained across every operation.
type Pool struct {
	mu           sync.RWMutex
	balances     map[holderKey][2]int64
	totals       map[uuid.UUID][2]int64
	participants map[uuid.UUID][2]int
	holders      map[uuid.UUID][]common.Address
	refunded     map[holderKey]bool
	logger       *zap.Logger
}

// New creates an empty stake pool ledger.
func New(logger *zap.Logger) *Pool {
	return &Pool{
		balances:     make(map[holderKey][2]int64),
		totals:       make(map[uuid.UUID][2]int64),
		participants: make(map[uuid.UUID][2]int),
		holders:      make(map[uuid.UUID][]common.Address),
		refunded:     make(map[holderKey]bool),
		logger:       logger,
	}
}

// Stake adds amount to the holder's running balance on position. Bounds are
// enforced on the balance after accumulation. Market lifecycle gating is the
// engine's job; this ledger only validates amounts.
func (p *Pool) Stake(marketID uuid.UUID, holder common.Address, position types.Position, amount, minStake, maxStake int64) error {
	if amount <= 0 {
		return types.NewValidation(types.CodeInvalidAmount, "stake amount must be positive")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	key := holderKey{market: marketID, holder: holder}
	bal := p.balances[key]
	after := bal[position] + amount
	if after < minStake || after > maxStake {
		return types.NewValidation(types.CodeStakeOutOfBounds,
			fmt.Sprintf("balance after stake %d outside [%d, %d]", after, minStake, maxStake))
	}

	if bal[0] == 0 && bal[1] == 0 {
		p.holders[marketID] = append(p.holders[marketID], holder)
	}
	if bal[position] == 0 {
		parts := p.participants[marketID]
		parts[position]++
		p.participants[marketID] = parts
	}

	bal[position] = after
	p.balances[key] = bal

	tot := p.totals[marketID]
	tot[position] += amount
	p.totals[marketID] = tot

	StakesPlacedTotal.WithLabelValues(position.String()).Inc()
	StakeAmount.Observe(float64(amount))
	p.logger.Debug("stake-recorded",
		zap.String("market-id", marketID.String()),
		zap.String("holder", holder.Hex()),
		zap.String("position", position.String()),
		zap.Int64("amount", amount),
		zap.Int64("balance-after", after))

	return nil
}

// BalanceOf returns the holder's YES and NO balances.
func (p *Pool) BalanceOf(marketID uuid.UUID, holder common.Address) (yes, no int64) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	bal := p.balances[holderKey{market: marketID, holder: holder}]
	return bal[types.PositionYes], bal[types.PositionNo]
}

// Totals returns the market's pooled YES and NO totals.
func (p *Pool) Totals(marketID uuid.UUID) (yes, no int64) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	tot := p.totals[marketID]
	return tot[types.PositionYes], tot[types.PositionNo]
}

// Participants returns the count of distinct holders per side.
func (p *Pool) Participants(marketID uuid.UUID) (yes, no int) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	parts := p.participants[marketID]
	return parts[types.PositionYes], parts[types.PositionNo]
}

// Holders returns every address holding a balance on the market, in first
// stake order.
func (p *Pool) Holders(marketID uuid.UUID) []common.Address {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]common.Address, len(p.holders[marketID]))
	copy(out, p.holders[marketID])
	return out
}

// Refund returns the holder's total stake across both positions exactly
// once. The engine only calls this on Cancelled markets; the one-shot
// refunded flag makes the call idempotent.
func (p *Pool) Refund(marketID uuid.UUID, holder common.Address) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := holderKey{market: marketID, holder: holder}
	if p.refunded[key] {
		return 0, types.NewIdempotency(types.CodeAlreadyRefunded,
			"holder "+holder.Hex()+" already refunded")
	}

	bal := p.balances[key]
	total := bal[0] + bal[1]
	if total == 0 {
		return 0, types.NewValidation(types.CodeNoStake,
			"holder "+holder.Hex()+" has no stake on market")
	}

	p.refunded[key] = true

	tot := p.totals[marketID]
	tot[0] -= bal[0]
	tot[1] -= bal[1]
	p.totals[marketID] = tot
	p.balances[key] = [2]int64{}

	RefundsTotal.Inc()
	p.logger.Info("stake-refunded",
		zap.String("market-id", marketID.String()),
		zap.String("holder", holder.Hex()),
		zap.Int64("amount", total))

	return total, nil
}

// UnwindRefund reverses a refund after a failed value transfer, restoring
// balances so the whole refund call reverts atomically.
func (p *Pool) UnwindRefund(marketID uuid.UUID, holder common.Address, yes, no int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := holderKey{market: marketID, holder: holder}
	p.refunded[key] = false
	p.balances[key] = [2]int64{yes, no}

	tot := p.totals[marketID]
	tot[0] += yes
	tot[1] += no
	p.totals[marketID] = tot
}
