package engine

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/predictpesa/settlement/internal/amm"
	"github.com/predictpesa/settlement/internal/events"
	"github.com/predictpesa/settlement/internal/market"
	"github.com/predictpesa/settlement/internal/oracle"
	"github.com/predictpesa/settlement/internal/settlement"
	"github.com/predictpesa/settlement/internal/stakepool"
	"github.com/predictpesa/settlement/internal/storage"
	"github.com/predictpesa/settlement/pkg/types"
	"go.uber.org/zap"
)

// Transferer is the external value-transfer layer. The engine issues
// transfer instructions on claim/refund and treats a transfer failure as
// grounds to revert the whole operation.
type Transferer interface {
	Transfer(ctx context.Context, to common.Address, amount int64) error
}

// LogTransferer records transfer instructions in the log. Used when the
// engine runs without a ledger backend wired in.
type LogTransferer struct {
	Logger *zap.Logger
}

// Transfer logs the instruction and reports success.
func (t *LogTransferer) Transfer(_ context.Context, to common.Address, amount int64) error {
	t.Logger.Info("transfer-instruction",
		zap.String("recipient", to.Hex()),
		zap.Int64("amount", amount))
	return nil
}

// Params are the governance-tunable protocol parameters.
type Params struct {
	MinSources       int
	MinConfidenceBps int64
	DisputePeriod    time.Duration
	MinDisputeStake  int64
	ProtocolFeeBps   int64
	SwapFeeBps       int64
}

// Config wires an Engine together.
type Config struct {
	Params     Params
	Reputation oracle.Config // only the reputation fields are read
	Governance common.Address
	Transferer Transferer
	Storage    storage.Storage
	Events     *events.Broadcaster // optional
	Now        func() time.Time    // defaults to time.Now
	Logger     *zap.Logger
}

// Engine is the serializable operation surface over the whole core. Every
// public operation takes the engine mutex, validates fully before the first
// mutation, and either completes or leaves state unchanged — mirroring the
// total-ordering execution model of a ledger.
type Engine struct {
	mu         sync.Mutex
	registry   *market.Registry
	stakes     *stakepool.Pool
	consensus  *oracle.Consensus
	settlement *settlement.Engine
	amm        *amm.Manager
	store      storage.Storage
	events     *events.Broadcaster
	transfer   Transferer
	governance common.Address
	now        func() time.Time
	logger     *zap.Logger
}

// New builds an engine from its parts.
func New(cfg Config) *Engine {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	sources := oracle.NewSourceRegistry(cfg.Logger)
	consensus := oracle.New(oracle.Config{
		MinSources:       cfg.Params.MinSources,
		MinConfidenceBps: cfg.Params.MinConfidenceBps,
		DisputePeriod:    cfg.Params.DisputePeriod,
		MinDisputeStake:  cfg.Params.MinDisputeStake,
		ReputationStep:   cfg.Reputation.ReputationStep,
		MinReputation:    cfg.Reputation.MinReputation,
		MaxReputation:    cfg.Reputation.MaxReputation,
		Logger:           cfg.Logger,
	}, sources)

	return &Engine{
		registry:   market.NewRegistry(cfg.Logger),
		stakes:     stakepool.New(cfg.Logger),
		consensus:  consensus,
		settlement: settlement.New(cfg.Params.ProtocolFeeBps, cfg.Logger),
		amm:        amm.NewManager(cfg.Params.SwapFeeBps, cfg.Logger),
		store:      cfg.Storage,
		events:     cfg.Events,
		transfer:   cfg.Transferer,
		governance: cfg.Governance,
		now:        now,
		logger:     cfg.Logger,
	}
}

// CreateMarket registers a new market. The registry caller (the external
// market-metadata service) owns titles and descriptions; the core only
// keeps what settlement needs.
func (e *Engine) CreateMarket(_ context.Context, expiry time.Time, minStake, maxStake int64, category string) (types.MarketView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, err := e.registry.Create(expiry, minStake, maxStake, category)
	if err != nil {
		return types.MarketView{}, err
	}

	e.publish(events.Event{
		Type:     events.TypeMarketCreated,
		MarketID: m.ID,
		At:       e.now(),
		Data:     map[string]any{"category": category, "expiry": expiry},
	})

	return e.viewLocked(m), nil
}

// Market returns a snapshot of one market, applying the lazy expiry
// transition first.
func (e *Engine) Market(marketID uuid.UUID) (types.MarketView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, err := e.registry.Refresh(marketID, e.now())
	if err != nil {
		return types.MarketView{}, err
	}

	return e.viewLocked(m), nil
}

// Markets returns snapshots of every market.
func (e *Engine) Markets() []types.MarketView {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	list := e.registry.List()
	out := make([]types.MarketView, 0, len(list))
	for _, m := range list {
		refreshed, err := e.registry.Refresh(m.ID, now)
		if err != nil {
			continue
		}
		out = append(out, e.viewLocked(refreshed))
	}

	return out
}

// viewLocked assembles the market snapshot. Probability is the stake-implied
// one: yesStake / totalStake in basis points, an even 5000/5000 split when
// the pools are empty.
func (e *Engine) viewLocked(m market.Market) types.MarketView {
	totalYes, totalNo := e.stakes.Totals(m.ID)
	partsYes, partsNo := e.stakes.Participants(m.ID)

	view := types.MarketView{
		ID:              m.ID,
		State:           m.State,
		StateLabel:      m.State.String(),
		Category:        m.Category,
		Expiry:          m.Expiry,
		MinStake:        m.MinStake,
		MaxStake:        m.MaxStake,
		TotalYes:        totalYes,
		TotalNo:         totalNo,
		YesParticipants: partsYes,
		NoParticipants:  partsNo,
	}

	total := totalYes + totalNo
	if total == 0 {
		view.YesProbabilityBps = types.BpsDenominator / 2
		view.NoProbabilityBps = types.BpsDenominator / 2
	} else {
		view.YesProbabilityBps = totalYes * types.BpsDenominator / total
		view.NoProbabilityBps = types.BpsDenominator - view.YesProbabilityBps
	}

	outcome, confidence, err := e.consensus.Outcome(m.ID)
	if err == nil {
		label := outcome.String()
		view.Outcome = &label
		view.ConfidenceBps = confidence
	}

	return view
}

func (e *Engine) publish(ev events.Event) {
	if e.events != nil {
		e.events.Publish(ev)
	}
}

func (e *Engine) requireGovernance(caller common.Address) error {
	if caller != e.governance {
		return types.NewState(types.CodeNotGovernance,
			"caller "+caller.Hex()+" is not the governance authority")
	}
	return nil
}
