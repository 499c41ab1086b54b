// Package testutil holds shared fixtures for the package test suites.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Well-known addresses used across test suites.
var (
	Governance = common.HexToAddress("0x00000000000000000000000000000000000000AA")
	Alice      = common.HexToAddress("0x0000000000000000000000000000000000000001")
	Bob        = common.HexToAddress("0x0000000000000000000000000000000000000002")
	Carol      = common.HexToAddress("0x0000000000000000000000000000000000000003")
	Dave       = common.HexToAddress("0x0000000000000000000000000000000000000004")
)

// SourceAddr returns a deterministic data-source address for index i.
func SourceAddr(i int) common.Address {
	return common.BytesToAddress([]byte{0x10, byte(i)})
}

// Logger returns a no-op logger for tests.
func Logger() *zap.Logger {
	return zap.NewNop()
}

// Clock is a manually advanced clock for deterministic expiry and dispute
// window tests.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts a clock at a fixed instant.
func NewClock() *Clock {
	return &Clock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

// Now returns the current synthetic time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// MockTransferer records transfer instructions and can be told to fail.
type MockTransferer struct {
	mu        sync.Mutex
	transfers []Transfer
	failNext  bool
	err       error
}

// Transfer is one recorded transfer instruction.
type Transfer struct {
	To     common.Address
	Amount int64
}

// NewMockTransferer creates a transferer that succeeds until told otherwise.
func NewMockTransferer() *MockTransferer {
	return &MockTransferer{}
}

// FailNext makes the next Transfer call return err without recording.
func (m *MockTransferer) FailNext(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = true
	m.err = err
}

// Transfer records the instruction, or fails once if FailNext was armed.
func (m *MockTransferer) Transfer(_ context.Context, to common.Address, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failNext {
		m.failNext = false
		return m.err
	}

	m.transfers = append(m.transfers, Transfer{To: to, Amount: amount})
	return nil
}

// Transfers returns a copy of the recorded instructions.
func (m *MockTransferer) Transfers() []Transfer {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Transfer, len(m.transfers))
	copy(out, m.transfers)
	return out
}

// Total returns the sum sent to one recipient.
func (m *MockTransferer) Total(to common.Address) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	var total int64
	for _, t := range m.transfers {
		if t.To == to {
			total += t.Amount
		}
	}
	return total
}
