package amm

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Manager owns one pool per market, created lazily on first use.
type Manager struct {
	mu     sync.Mutex
	feeBps int64
	pools  map[uuid.UUID]*Pool
	logger *zap.Logger
}

// NewManager creates a pool manager. feeBps applies to pools created after
// any update.
func NewManager(feeBps int64, logger *zap.Logger) *Manager {
	return &Manager{
		feeBps: feeBps,
		pools:  make(map[uuid.UUID]*Pool),
		logger: logger,
	}
}

// PoolFor returns the market's pool, creating it on first use.
func (m *Manager) PoolFor(marketID uuid.UUID) *Pool {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.pools[marketID]
	if !ok {
		p = NewPool(marketID, m.feeBps, m.logger)
		m.pools[marketID] = p
	}

	return p
}

// SetFeeBps updates the swap fee for pools created from now on. Existing
// pools keep the fee they were created with.
func (m *Manager) SetFeeBps(feeBps int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feeBps = feeBps
}
