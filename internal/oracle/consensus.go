package oracle

import (
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/predictpesa/settlement/pkg/types"
	"go.uber.org/zap"
)

// Config holds consensus parameters. Governance updates them through the
// engine; zero values are rejected by config validation upstream.
type Config struct {
	MinSources       int
	MinConfidenceBps int64
	DisputePeriod    time.Duration
	MinDisputeStake  int64
	ReputationStep   int64
	MinReputation    int64
	MaxReputation    int64
	Logger           *zap.Logger
}

// Report is a single (source, outcome) vote with its self-declared
// confidence. The confidence claim is a floor check only, never
// authoritative: finalized confidence is always recomputed from the tally.
type Report struct {
	Source        common.Address
	Outcome       types.Outcome
	ConfidenceBps int64
	EvidenceRef   string
	SubmittedAt   time.Time
}

// Resolution is the per-market vote ledger and finalized result. It remains
// queryable indefinitely after finalization.
type Resolution struct {
	MarketID      uuid.UUID
	Reports       []Report
	YesVotes      int
	NoVotes       int
	Finalized     bool
	Outcome       types.Outcome
	ConfidenceBps int64
	FinalizedAt   time.Time
	Overridden    bool
}

type reportKey struct {
	market uuid.UUID
	source common.Address
}

// Consensus aggregates reports from verified sources into finalized
// outcomes and runs the dispute window over them.
type Consensus struct {
	mu          sync.RWMutex
	cfg         Config
	sources     *SourceRegistry
	resolutions map[uuid.UUID]*Resolution
	reported    map[reportKey]bool
	disputes    map[uuid.UUID][]*Dispute
	logger      *zap.Logger
}

// New creates a consensus over the given source registry.
func New(cfg Config, sources *SourceRegistry) *Consensus {
	return &Consensus{
		cfg:         cfg,
		sources:     sources,
		resolutions: make(map[uuid.UUID]*Resolution),
		reported:    make(map[reportKey]bool),
		disputes:    make(map[uuid.UUID][]*Dispute),
		logger:      cfg.Logger,
	}
}

// Sources exposes the underlying registry.
func (c *Consensus) Sources() *SourceRegistry {
	return c.sources
}

// UpdateParams replaces the tunable consensus parameters. Governance only;
// the engine enforces the caller.
func (c *Consensus) UpdateParams(minSources int, minConfidenceBps int64, disputePeriod time.Duration, minDisputeStake int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cfg.MinSources = minSources
	c.cfg.MinConfidenceBps = minConfidenceBps
	c.cfg.DisputePeriod = disputePeriod
	c.cfg.MinDisputeStake = minDisputeStake

	c.logger.Info("consensus-params-updated",
		zap.Int("min-sources", minSources),
		zap.Int64("min-confidence-bps", minConfidenceBps),
		zap.Duration("dispute-period", disputePeriod),
		zap.Int64("min-dispute-stake", minDisputeStake))
}

// SubmitReport records a vote from a verified source. Each source reports on
// a market at most once. When the vote count reaches MinSources the market
// finalizes in the same call; the returned flag says whether it did.
//
// A market that never reaches quorum simply stays unfinalized; no state is
// corrupted by waiting.
func (c *Consensus) SubmitReport(marketID uuid.UUID, source common.Address, outcome types.Outcome, confidenceBps int64, evidenceRef string, now time.Time) (bool, error) {
	src, err := c.sources.Get(source)
	if err != nil {
		return false, err
	}
	if !src.Verified {
		return false, types.NewValidation(types.CodeSourceNotVerified,
			"source "+source.Hex()+" is not verified")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if confidenceBps < c.cfg.MinConfidenceBps || confidenceBps > types.BpsDenominator {
		return false, types.NewValidation(types.CodeConfidenceTooLow,
			fmt.Sprintf("confidence %d below floor %d", confidenceBps, c.cfg.MinConfidenceBps))
	}

	res := c.resolutions[marketID]
	if res == nil {
		res = &Resolution{MarketID: marketID}
		c.resolutions[marketID] = res
	}
	if res.Finalized {
		return false, types.NewIdempotency(types.CodeAlreadyFinalized,
			"market "+marketID.String()+" already finalized")
	}

	key := reportKey{market: marketID, source: source}
	if c.reported[key] {
		return false, types.NewIdempotency(types.CodeAlreadyReported,
			"source "+source.Hex()+" already reported on market")
	}
	c.reported[key] = true

	res.Reports = append(res.Reports, Report{
		Source:        source,
		Outcome:       outcome,
		ConfidenceBps: confidenceBps,
		EvidenceRef:   evidenceRef,
		SubmittedAt:   now,
	})
	if outcome == types.PositionYes {
		res.YesVotes++
	} else {
		res.NoVotes++
	}
	c.sources.bumpTotalReports(source)

	ReportsSubmittedTotal.WithLabelValues(outcome.String()).Inc()
	c.logger.Info("oracle-report-submitted",
		zap.String("market-id", marketID.String()),
		zap.String("source", source.Hex()),
		zap.String("outcome", outcome.String()),
		zap.Int64("confidence-bps", confidenceBps),
		zap.Int("votes", res.YesVotes+res.NoVotes))

	if res.YesVotes+res.NoVotes >= c.cfg.MinSources {
		c.finalizeLocked(res, now)
		return true, nil
	}

	return false, nil
}

// finalizeLocked computes the majority outcome and recomputed confidence.
// Deterministic: the result depends only on the set of recorded votes.
// Ties finalize to NO.
func (c *Consensus) finalizeLocked(res *Resolution, now time.Time) {
	if res.Finalized {
		return
	}

	total := res.YesVotes + res.NoVotes
	majority := res.NoVotes
	res.Outcome = types.PositionNo
	if res.YesVotes > res.NoVotes {
		majority = res.YesVotes
		res.Outcome = types.PositionYes
	}

	// Rounded to the nearest basis point: 2 of 3 votes is 6667, not 6666.
	res.ConfidenceBps = (int64(majority)*types.BpsDenominator + int64(total)/2) / int64(total)
	res.Finalized = true
	res.FinalizedAt = now

	for _, rep := range res.Reports {
		c.sources.recordOutcome(rep.Source, rep.Outcome == res.Outcome,
			c.cfg.ReputationStep, c.cfg.MinReputation, c.cfg.MaxReputation)
	}

	FinalizationsTotal.WithLabelValues(res.Outcome.String()).Inc()
	FinalizationConfidenceBps.Observe(float64(res.ConfidenceBps))
	c.logger.Info("market-finalized",
		zap.String("market-id", res.MarketID.String()),
		zap.String("outcome", res.Outcome.String()),
		zap.Int64("confidence-bps", res.ConfidenceBps),
		zap.Int("yes-votes", res.YesVotes),
		zap.Int("no-votes", res.NoVotes))
}

// Resolution returns a copy of the market's resolution ledger.
func (c *Consensus) Resolution(marketID uuid.UUID) (Resolution, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	res := c.resolutions[marketID]
	if res == nil {
		return Resolution{}, types.NewState(types.CodeNotFinalized,
			"no resolution for market "+marketID.String())
	}

	out := *res
	out.Reports = make([]Report, len(res.Reports))
	copy(out.Reports, res.Reports)
	return out, nil
}

// Outcome returns the finalized outcome, failing if the market has not
// finalized.
func (c *Consensus) Outcome(marketID uuid.UUID) (types.Outcome, int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	res := c.resolutions[marketID]
	if res == nil || !res.Finalized {
		return 0, 0, types.NewState(types.CodeNotFinalized,
			"market "+marketID.String()+" not finalized")
	}

	return res.Outcome, res.ConfidenceBps, nil
}
