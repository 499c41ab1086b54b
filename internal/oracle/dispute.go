package oracle

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/predictpesa/settlement/pkg/types"
	"go.uber.org/zap"
)

// Dispute challenges a finalized outcome inside the dispute window. Raising
// one requires an economic stake, refunded only if governance accepts the
// challenge; a rejected stake is forfeited to the protocol fee bucket.
type Dispute struct {
	Index       int
	MarketID    uuid.UUID
	Challenger  common.Address
	Proposed    types.Outcome
	EvidenceRef string
	Stake       int64
	RaisedAt    time.Time
	Resolved    bool
	Accepted    bool
}

// RaiseDispute appends a dispute record. Valid only while
// now <= finalizedAt + disputePeriod.
func (c *Consensus) RaiseDispute(marketID uuid.UUID, challenger common.Address, proposed types.Outcome, evidenceRef string, stake int64, now time.Time) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	res := c.resolutions[marketID]
	if res == nil || !res.Finalized {
		return 0, types.NewState(types.CodeNotFinalized,
			"cannot dispute unfinalized market "+marketID.String())
	}

	if now.After(res.FinalizedAt.Add(c.cfg.DisputePeriod)) {
		return 0, types.NewState(types.CodeDisputeWindowClosed,
			fmt.Sprintf("dispute window closed at %s", res.FinalizedAt.Add(c.cfg.DisputePeriod)))
	}

	if stake < c.cfg.MinDisputeStake {
		return 0, types.NewValidation(types.CodeDisputeStakeTooLow,
			fmt.Sprintf("dispute stake %d below minimum %d", stake, c.cfg.MinDisputeStake))
	}

	d := &Dispute{
		Index:       len(c.disputes[marketID]),
		MarketID:    marketID,
		Challenger:  challenger,
		Proposed:    proposed,
		EvidenceRef: evidenceRef,
		Stake:       stake,
		RaisedAt:    now,
	}
	c.disputes[marketID] = append(c.disputes[marketID], d)

	DisputesRaisedTotal.Inc()
	c.logger.Warn("dispute-raised",
		zap.String("market-id", marketID.String()),
		zap.String("challenger", challenger.Hex()),
		zap.String("proposed", proposed.String()),
		zap.Int64("stake", stake),
		zap.Int("dispute-index", d.Index))

	return d.Index, nil
}

// ResolveDispute settles a dispute. Accepting overrides the finalized
// outcome with the proposed one (override, never a reopen to voting) and
// entitles the challenger to a stake refund; rejecting forfeits the stake.
//
// settle routes the stake (refund transfer or forfeit credit) and runs
// before any flag is set: if it fails, the ruling does not happen and the
// dispute stays open. The returned copy reflects the applied ruling.
func (c *Consensus) ResolveDispute(marketID uuid.UUID, index int, accept bool, settle func(Dispute) error) (Dispute, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	list := c.disputes[marketID]
	if index < 0 || index >= len(list) {
		return Dispute{}, types.NewValidation(types.CodeDisputeNotFound,
			fmt.Sprintf("no dispute %d on market %s", index, marketID))
	}

	d := list[index]
	if d.Resolved {
		return Dispute{}, types.NewIdempotency(types.CodeDisputeResolved,
			fmt.Sprintf("dispute %d already resolved", index))
	}

	if settle != nil {
		ruling := *d
		ruling.Resolved = true
		ruling.Accepted = accept
		err := settle(ruling)
		if err != nil {
			return Dispute{}, &types.Error{
				Kind:    types.KindState,
				Code:    types.CodeTransferFailed,
				Message: "dispute stake settlement failed: " + err.Error(),
			}
		}
	}

	d.Resolved = true
	d.Accepted = accept

	res := c.resolutions[marketID]
	if accept && res.Outcome != d.Proposed {
		prev := res.Outcome
		res.Outcome = d.Proposed
		res.Overridden = true
		c.logger.Warn("outcome-overridden",
			zap.String("market-id", marketID.String()),
			zap.String("previous", prev.String()),
			zap.String("outcome", res.Outcome.String()),
			zap.Int("dispute-index", index))
	}

	DisputesResolvedTotal.WithLabelValues(map[bool]string{true: "accepted", false: "rejected"}[accept]).Inc()
	c.logger.Info("dispute-resolved",
		zap.String("market-id", marketID.String()),
		zap.Int("dispute-index", index),
		zap.Bool("accepted", accept))

	return *d, nil
}

// Disputes returns copies of all disputes raised on the market, queryable
// indefinitely.
func (c *Consensus) Disputes(marketID uuid.UUID) []Dispute {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Dispute, 0, len(c.disputes[marketID]))
	for _, d := range c.disputes[marketID] {
		out = append(out, *d)
	}

	return out
}

// HasOpenDispute reports whether any dispute on the market is still
// awaiting a governance ruling.
func (c *Consensus) HasOpenDispute(marketID uuid.UUID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, d := range c.disputes[marketID] {
		if !d.Resolved {
			return true
		}
	}

	return false
}

// DisputeWindowOpen reports whether the market can still be disputed.
func (c *Consensus) DisputeWindowOpen(marketID uuid.UUID, now time.Time) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	res := c.resolutions[marketID]
	if res == nil || !res.Finalized {
		return false
	}

	return !now.After(res.FinalizedAt.Add(c.cfg.DisputePeriod))
}
