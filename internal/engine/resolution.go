package engine

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/predictpesa/settlement/internal/events"
	"github.com/predictpesa/settlement/internal/oracle"
	"github.com/predictpesa/settlement/internal/storage"
	"github.com/predictpesa/settlement/pkg/types"
)

// RegisterSource adds a data source in the unverified state. Verification
// is a separate step by the identity authority.
func (e *Engine) RegisterSource(_ context.Context, addr common.Address) oracle.Source {
	e.mu.Lock()
	defer e.mu.Unlock()

	// New sources start at the midpoint of the reputation range.
	return e.consensus.Sources().Register(addr, types.BpsDenominator/2)
}

// VerifySource flags a source verified. Gated on governance, which fronts
// the external identity authority here.
func (e *Engine) VerifySource(_ context.Context, caller, addr common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	err := e.requireGovernance(caller)
	if err != nil {
		return err
	}

	return e.consensus.Sources().Verify(addr)
}

// Sources lists every registered source.
func (e *Engine) Sources() []oracle.Source {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.consensus.Sources().List()
}

// SubmitReport records a verified source's outcome report on an expired
// market. If the report reaches quorum the market finalizes in the same
// call and the dispute clock starts.
func (e *Engine) SubmitReport(ctx context.Context, marketID uuid.UUID, source common.Address, outcome types.Outcome, confidenceBps int64, evidenceRef string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	m, err := e.registry.Refresh(marketID, now)
	if err != nil {
		return err
	}

	switch m.State {
	case types.MarketAwaitingResolution:
		// reports accepted
	case types.MarketOpen:
		return types.NewState(types.CodeMarketNotExpired,
			"market has not expired, reports not accepted yet")
	case types.MarketResolved:
		return types.NewIdempotency(types.CodeAlreadyFinalized, "market already resolved")
	default:
		return types.NewState(types.CodeMarketClosed, "market is cancelled")
	}

	finalized, err := e.consensus.SubmitReport(marketID, source, outcome, confidenceBps, evidenceRef, now)
	if err != nil {
		return err
	}

	if !finalized {
		return nil
	}

	err = e.registry.Resolve(marketID)
	if err != nil {
		return err
	}

	res, err := e.consensus.Resolution(marketID)
	if err != nil {
		return err
	}

	e.record(ctx, func(s storage.Storage) error {
		return s.RecordResolution(ctx, &storage.ResolutionRecord{
			MarketID:      marketID,
			Outcome:       res.Outcome.String(),
			ConfidenceBps: res.ConfidenceBps,
			YesVotes:      res.YesVotes,
			NoVotes:       res.NoVotes,
			FinalizedAt:   res.FinalizedAt,
		})
	})

	e.publish(events.Event{
		Type:     events.TypeMarketFinalized,
		MarketID: marketID,
		At:       now,
		Data: map[string]any{
			"outcome":        res.Outcome.String(),
			"confidence_bps": res.ConfidenceBps,
		},
	})

	return nil
}

// Resolution returns the market's full vote ledger and finalized result.
func (e *Engine) Resolution(marketID uuid.UUID) (oracle.Resolution, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.consensus.Resolution(marketID)
}

// Disputes returns the market's dispute history.
func (e *Engine) Disputes(marketID uuid.UUID) []oracle.Dispute {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.consensus.Disputes(marketID)
}

// RaiseDispute challenges a finalized outcome inside the dispute window.
// The dispute stake is assumed paid in through the value layer with this
// call; it is refunded only if governance accepts the challenge.
func (e *Engine) RaiseDispute(ctx context.Context, marketID uuid.UUID, challenger common.Address, proposed types.Outcome, evidenceRef string, stake int64) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	index, err := e.consensus.RaiseDispute(marketID, challenger, proposed, evidenceRef, stake, now)
	if err != nil {
		return 0, err
	}

	e.record(ctx, func(s storage.Storage) error {
		return s.RecordDispute(ctx, &storage.DisputeRecord{
			MarketID:    marketID,
			Index:       index,
			Challenger:  challenger.Hex(),
			Proposed:    proposed.String(),
			EvidenceRef: evidenceRef,
			Stake:       stake,
			RaisedAt:    now,
		})
	})

	e.publish(events.Event{
		Type:     events.TypeDisputeRaised,
		MarketID: marketID,
		At:       now,
		Data: map[string]any{
			"challenger": challenger.Hex(),
			"proposed":   proposed.String(),
			"index":      index,
		},
	})

	return index, nil
}

// ResolveDispute rules on a dispute. Governance only. Accepting overrides
// the finalized outcome and refunds the challenger's stake; rejecting
// forfeits the stake to the treasury.
func (e *Engine) ResolveDispute(ctx context.Context, caller common.Address, marketID uuid.UUID, index int, accept bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	err := e.requireGovernance(caller)
	if err != nil {
		return err
	}

	d, err := e.consensus.ResolveDispute(marketID, index, accept, func(d oracle.Dispute) error {
		if d.Accepted {
			return e.transfer.Transfer(ctx, d.Challenger, d.Stake)
		}
		e.settlement.AddForfeit(marketID, d.Stake)
		return nil
	})
	if err != nil {
		return err
	}

	res, resErr := e.consensus.Resolution(marketID)

	e.record(ctx, func(s storage.Storage) error {
		recErr := s.RecordDispute(ctx, &storage.DisputeRecord{
			MarketID:    marketID,
			Index:       d.Index,
			Challenger:  d.Challenger.Hex(),
			Proposed:    d.Proposed.String(),
			EvidenceRef: d.EvidenceRef,
			Stake:       d.Stake,
			RaisedAt:    d.RaisedAt,
			Resolved:    true,
			Accepted:    d.Accepted,
		})
		if recErr != nil {
			return recErr
		}
		if resErr == nil && res.Overridden {
			return s.RecordResolution(ctx, &storage.ResolutionRecord{
				MarketID:      marketID,
				Outcome:       res.Outcome.String(),
				ConfidenceBps: res.ConfidenceBps,
				YesVotes:      res.YesVotes,
				NoVotes:       res.NoVotes,
				Overridden:    true,
				FinalizedAt:   res.FinalizedAt,
			})
		}
		return nil
	})

	e.publish(events.Event{
		Type:     events.TypeDisputeResolved,
		MarketID: marketID,
		At:       e.now(),
		Data:     map[string]any{"index": index, "accepted": accept},
	})

	return nil
}

// CancelMarket is the emergency governance action. Every stake on the
// market becomes refundable.
func (e *Engine) CancelMarket(_ context.Context, caller common.Address, marketID uuid.UUID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	err := e.requireGovernance(caller)
	if err != nil {
		return err
	}

	err = e.registry.Cancel(marketID)
	if err != nil {
		return err
	}

	e.publish(events.Event{
		Type:     events.TypeMarketCancelled,
		MarketID: marketID,
		At:       e.now(),
	})

	return nil
}

// UpdateParams replaces the tunable protocol parameters. Governance only.
func (e *Engine) UpdateParams(_ context.Context, caller common.Address, p Params) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	err := e.requireGovernance(caller)
	if err != nil {
		return err
	}

	e.consensus.UpdateParams(p.MinSources, p.MinConfidenceBps, p.DisputePeriod, p.MinDisputeStake)
	e.settlement.SetFeeBps(p.ProtocolFeeBps)
	e.amm.SetFeeBps(p.SwapFeeBps)

	return nil
}
