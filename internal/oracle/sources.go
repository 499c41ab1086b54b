package oracle

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/predictpesa/settlement/pkg/types"
	"go.uber.org/zap"
)

// Source is a registered data source. Reputation is owned exclusively by the
// consensus: it moves in bounded steps at finalization and never below the
// configured floor. One source, one vote; reputation only gates future
// trust, it never weights a live tally.
type Source struct {
	Handle            int
	Addr              common.Address
	Verified          bool
	TotalReports      int64
	SuccessfulReports int64
	Reputation        int64
}

// SourceRegistry is an append-only arena of sources indexed by address.
// Registration and verification belong to the external identity authority;
// the consensus trusts only entries flagged verified.
type SourceRegistry struct {
	mu     sync.RWMutex
	arena  []*Source
	index  map[common.Address]int
	logger *zap.Logger
}

// NewSourceRegistry creates an empty source registry.
func NewSourceRegistry(logger *zap.Logger) *SourceRegistry {
	return &SourceRegistry{
		index:  make(map[common.Address]int),
		logger: logger,
	}
}

// Register adds an unverified source. Registering twice is a no-op returning
// the existing record.
func (r *SourceRegistry) Register(addr common.Address, initialReputation int64) Source {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := r.index[addr]; ok {
		return *r.arena[h]
	}

	s := &Source{
		Handle:     len(r.arena),
		Addr:       addr,
		Reputation: initialReputation,
	}
	r.arena = append(r.arena, s)
	r.index[addr] = s.Handle

	SourcesRegisteredTotal.Inc()
	r.logger.Info("source-registered", zap.String("source", addr.Hex()))

	return *s
}

// Verify flags a source as verified by the identity authority.
func (r *SourceRegistry) Verify(addr common.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.index[addr]
	if !ok {
		return types.NewValidation(types.CodeSourceNotFound, "unknown source "+addr.Hex())
	}

	r.arena[h].Verified = true
	r.logger.Info("source-verified", zap.String("source", addr.Hex()))

	return nil
}

// Get returns a copy of the source record.
func (r *SourceRegistry) Get(addr common.Address) (Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.index[addr]
	if !ok {
		return Source{}, types.NewValidation(types.CodeSourceNotFound, "unknown source "+addr.Hex())
	}

	return *r.arena[h], nil
}

// List returns copies of every source, in registration order.
func (r *SourceRegistry) List() []Source {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Source, 0, len(r.arena))
	for _, s := range r.arena {
		out = append(out, *s)
	}

	return out
}

func (r *SourceRegistry) bumpTotalReports(addr common.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := r.index[addr]; ok {
		r.arena[h].TotalReports++
	}
}

// recordOutcome applies the bounded reputation step after finalization.
func (r *SourceRegistry) recordOutcome(addr common.Address, correct bool, step, floor, ceil int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.index[addr]
	if !ok {
		return
	}

	s := r.arena[h]
	if correct {
		s.SuccessfulReports++
		s.Reputation += step
		if s.Reputation > ceil {
			s.Reputation = ceil
		}
	} else {
		s.Reputation -= step
		if s.Reputation < floor {
			s.Reputation = floor
		}
	}
}
