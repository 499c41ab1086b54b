package settlement

import (
	"math/big"
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

// Engine computes and authorizes pari-mutuel payouts once a market is
// resolved. It is a pure function of the finalized outcome and the stake
// pool totals; the only state it owns is payout bookkeeping (claimed flags,
// fees collected, amounts paid out).
type Engine struct {
	mu       sync.RWMutex
	feeBps   int64
	claimed  map[holderKey]bool
	fees     map[uuid.UUID]int64
	forfeits map[uuid.UUID]int64
	paidOut  map[uuid.UUID]int64
	logger   *zap.Logger
}

// New creates a settlement engine with the given protocol fee.
func New(feeBps int64, logger *zap.Logger) *Engine {
	return &Engine{
		feeBps:   feeBps,
		claimed:  make(map[holderKey]bool),
		fees:     make(map[uuid.UUID]int64),
		forfeits: make(map[uuid.UUID]int64),
		paidOut:  make(map[uuid.UUID]int64),
		logger:   logger,
	}
}

// SetFeeBps updates the protocol fee. Governance only; applies to claims
// made after the update.
func (e *Engine) SetFeeBps(feeBps int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.feeBps = feeBps
}

// FeeBps returns the current protocol fee.
func (e *Engine) FeeBps() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.feeBps
}

// CalculatePayout computes the pari-mutuel payout and fee for a winning
// stake of amount against the given pools.
//
//	reward = amount + amount * losingPool / winningPool
//	payout = reward * (10000 - feeBps) / 10000
//	fee    = reward - payout
//
// All divisions truncate; truncation always accrues to the fee bucket,
// never the holder, so settlement can never pay out more than the pools
// hold. A degenerate market where either pool is empty settles as a push:
// payout == amount, zero fee.
func CalculatePayout(amount, winningPool, losingPool, feeBps int64) (payout, fee int64) {
	if winningPool == 0 || losingPool == 0 {
		return amount, 0
	}

	// amount * losingPool can exceed int64; the quotient cannot.
	share := new(big.Int).Mul(big.NewInt(amount), big.NewInt(losingPool))
	share.Quo(share, big.NewInt(winningPool))
	reward := amount + share.Int64()

	payout = reward * (types.BpsDenominator - feeBps) / types.BpsDenominator
	return payout, reward - payout
}

// Claim authorizes a holder's reward exactly once. The claimed flag is set
// before the value transfer (checks-effects-interactions) and rolled back
// if the transfer fails, so the whole call reverts atomically.
//
// winningStake is the holder's balance on the winning side; the engine has
// already verified the market is Resolved and winningStake > 0.
func (e *Engine) Claim(marketID uuid.UUID, holder common.Address, winningStake, winningPool, losingPool int64, transfer func(to common.Address, amount int64) error) (int64, error) {
	e.mu.Lock()

	key := holderKey{market: marketID, holder: holder}
	if e.claimed[key] {
		e.mu.Unlock()
		return 0, types.NewIdempotency(types.CodeAlreadyClaimed,
			"holder "+holder.Hex()+" already claimed")
	}

	payout, fee := CalculatePayout(winningStake, winningPool, losingPool, e.feeBps)

	e.claimed[key] = true
	e.fees[marketID] += fee
	e.paidOut[marketID] += payout
	e.mu.Unlock()

	err := transfer(holder, payout)
	if err != nil {
		e.mu.Lock()
		e.claimed[key] = false
		e.fees[marketID] -= fee
		e.paidOut[marketID] -= payout
		e.mu.Unlock()

		return 0, &types.Error{
			Kind:    types.KindState,
			Code:    types.CodeTransferFailed,
			Message: "payout transfer failed: " + err.Error(),
		}
	}

	ClaimsTotal.Inc()
	PayoutAmount.Observe(float64(payout))
	e.logger.Info("reward-claimed",
		zap.String("market-id", marketID.String()),
		zap.String("holder", holder.Hex()),
		zap.Int64("stake", winningStake),
		zap.Int64("payout", payout),
		zap.Int64("fee", fee))

	return payout, nil
}

// HasClaimed reports whether the holder already claimed on the market.
func (e *Engine) HasClaimed(marketID uuid.UUID, holder common.Address) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.claimed[holderKey{market: marketID, holder: holder}]
}

// AddForfeit credits a forfeited dispute stake to the treasury. Forfeits
// are tracked apart from settlement fees because they are inflow on top of
// the stake pools, not a share of them.
func (e *Engine) AddForfeit(marketID uuid.UUID, amount int64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.forfeits[marketID] += amount
	e.logger.Info("dispute-stake-forfeited",
		zap.String("market-id", marketID.String()),
		zap.Int64("amount", amount))
}

// FeesCollected returns protocol fees carved out of the stake pools,
// including swept rounding dust. paidOut + fees never exceeds the pools.
func (e *Engine) FeesCollected(marketID uuid.UUID) int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.fees[marketID]
}

// ForfeitsCollected returns forfeited dispute stakes held by the treasury.
func (e *Engine) ForfeitsCollected(marketID uuid.UUID) int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.forfeits[marketID]
}

// PaidOut returns the total value paid to winners so far.
func (e *Engine) PaidOut(marketID uuid.UUID) int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.paidOut[marketID]
}

// SweepResidual moves rounding dust left after all winners have claimed
// into the fee bucket, closing the conservation ledger exactly:
// paidOut + fees == totalPool. Returns the swept amount. The engine only
// calls this once every winning holder has claimed.
func (e *Engine) SweepResidual(marketID uuid.UUID, totalPool int64) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	residual := totalPool - e.paidOut[marketID] - e.fees[marketID]
	if residual <= 0 {
		return 0
	}

	e.fees[marketID] += residual
	e.logger.Info("residual-swept",
		zap.String("market-id", marketID.String()),
		zap.Int64("amount", residual))

	return residual
}
