package market

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/predictpesa/settlement/pkg/types"
	"go.uber.org/zap"
)

// Market is a registered prediction market. Records live in an append-only
// arena; callers receive copies, never arena pointers.
type Market struct {
	Handle   int
	ID       uuid.UUID
	Category string
	Expiry   time.Time
	MinStake int64
	MaxStake int64
	State    types.MarketState
}

// Registry holds all markets in an append-only arena with a uuid index.
type Registry struct {
	mu     sync.RWMutex
	arena  []*Market
	index  map[uuid.UUID]int
	logger *zap.Logger
}

// NewRegistry creates an empty market registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		index:  make(map[uuid.UUID]int),
		logger: logger,
	}
}

// Create registers a new market in the Open state.
// Stake bounds are validated here; the expiry may be in the past (such a
// market is born awaiting resolution, which Refresh reports).
func (r *Registry) Create(expiry time.Time, minStake, maxStake int64, category string) (Market, error) {
	if minStake <= 0 || maxStake < minStake {
		return Market{}, types.NewValidation(types.CodeStakeOutOfBounds,
			"market stake bounds must satisfy 0 < min <= max")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	m := &Market{
		Handle:   len(r.arena),
		ID:       uuid.New(),
		Category: category,
		Expiry:   expiry,
		MinStake: minStake,
		MaxStake: maxStake,
		State:    types.MarketOpen,
	}
	r.arena = append(r.arena, m)
	r.index[m.ID] = m.Handle

	MarketsCreatedTotal.Inc()
	r.logger.Info("market-created",
		zap.String("market-id", m.ID.String()),
		zap.String("category", category),
		zap.Time("expiry", expiry))

	return *m, nil
}

// Get returns a copy of the market.
func (r *Registry) Get(id uuid.UUID) (Market, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.index[id]
	if !ok {
		return Market{}, types.NewValidation(types.CodeMarketNotFound, "unknown market "+id.String())
	}

	return *r.arena[h], nil
}

// Refresh applies the lazy Open -> AwaitingResolution transition against the
// supplied clock and returns the market as of now. Expiry is only ever
// evaluated at call time; there is no background scheduler.
func (r *Registry) Refresh(id uuid.UUID, now time.Time) (Market, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.index[id]
	if !ok {
		return Market{}, types.NewValidation(types.CodeMarketNotFound, "unknown market "+id.String())
	}

	m := r.arena[h]
	if m.State == types.MarketOpen && !now.Before(m.Expiry) {
		m.State = types.MarketAwaitingResolution
		r.logger.Info("market-expired",
			zap.String("market-id", m.ID.String()),
			zap.Time("expiry", m.Expiry))
	}

	return *m, nil
}

// Resolve transitions AwaitingResolution -> Resolved. Only the consensus
// path calls this; it is rejected from any other state.
func (r *Registry) Resolve(id uuid.UUID) error {
	return r.transition(id, types.MarketAwaitingResolution, types.MarketResolved)
}

// Cancel transitions Open or AwaitingResolution -> Cancelled. Emergency
// governance action; every stake becomes refundable.
func (r *Registry) Cancel(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.index[id]
	if !ok {
		return types.NewValidation(types.CodeMarketNotFound, "unknown market "+id.String())
	}

	m := r.arena[h]
	if m.State != types.MarketOpen && m.State != types.MarketAwaitingResolution {
		return types.NewState(types.CodeMarketClosed,
			"cannot cancel market in state "+m.State.String())
	}

	m.State = types.MarketCancelled
	MarketsCancelledTotal.Inc()
	r.logger.Warn("market-cancelled", zap.String("market-id", m.ID.String()))

	return nil
}

// List returns copies of every market, in creation order.
func (r *Registry) List() []Market {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Market, 0, len(r.arena))
	for _, m := range r.arena {
		out = append(out, *m)
	}

	return out
}

func (r *Registry) transition(id uuid.UUID, from, to types.MarketState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.index[id]
	if !ok {
		return types.NewValidation(types.CodeMarketNotFound, "unknown market "+id.String())
	}

	m := r.arena[h]
	if m.State != from {
		return types.NewState(types.CodeMarketClosed,
			"market in state "+m.State.String()+", expected "+from.String())
	}

	m.State = to
	r.logger.Info("market-state-changed",
		zap.String("market-id", m.ID.String()),
		zap.String("from", from.String()),
		zap.String("to", to.String()))

	return nil
}
