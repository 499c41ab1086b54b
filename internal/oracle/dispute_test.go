package oracle

import (
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/predictpesa/settlement/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var challenger = common.HexToAddress("0xC0")

// finalizedMarket builds a consensus with one market finalized YES at
// consensusEpoch.
func finalizedMarket(t *testing.T, cfg Config) (*Consensus, uuid.UUID) {
	t.Helper()

	c := newConsensusWithSources(t, cfg, cfg.MinSources)
	marketID := uuid.New()
	for i := 1; i <= cfg.MinSources; i++ {
		_, err := c.SubmitReport(marketID, sourceAddr(i), types.PositionYes, 9_000, "", consensusEpoch)
		require.NoError(t, err)
	}

	return c, marketID
}

func TestRaiseDisputeValidation(t *testing.T) {
	cfg := testConfig()

	t.Run("unfinalized market", func(t *testing.T) {
		c := newConsensusWithSources(t, cfg, 3)
		_, err := c.RaiseDispute(uuid.New(), challenger, types.PositionNo, "", 100_000, consensusEpoch)
		require.ErrorIs(t, err, types.ErrNotFinalized)
	})

	t.Run("stake below minimum", func(t *testing.T) {
		c, marketID := finalizedMarket(t, cfg)
		_, err := c.RaiseDispute(marketID, challenger, types.PositionNo, "", 99_999, consensusEpoch)
		require.ErrorIs(t, err, types.ErrDisputeStakeTooLow)
	})

	t.Run("window boundary is inclusive", func(t *testing.T) {
		c, marketID := finalizedMarket(t, cfg)

		atDeadline := consensusEpoch.Add(cfg.DisputePeriod)
		assert.True(t, c.DisputeWindowOpen(marketID, atDeadline))
		_, err := c.RaiseDispute(marketID, challenger, types.PositionNo, "", 100_000, atDeadline)
		require.NoError(t, err)

		pastDeadline := atDeadline.Add(time.Second)
		assert.False(t, c.DisputeWindowOpen(marketID, pastDeadline))
		_, err = c.RaiseDispute(marketID, challenger, types.PositionNo, "", 100_000, pastDeadline)
		require.ErrorIs(t, err, types.ErrDisputeWindowClosed)
	})
}

func TestResolveDisputeAcceptOverridesOutcome(t *testing.T) {
	c, marketID := finalizedMarket(t, testConfig())

	index, err := c.RaiseDispute(marketID, challenger, types.PositionNo, "evidence://appeal", 100_000, consensusEpoch)
	require.NoError(t, err)

	var settled Dispute
	d, err := c.ResolveDispute(marketID, index, true, func(d Dispute) error {
		settled = d
		return nil
	})
	require.NoError(t, err)
	assert.True(t, d.Resolved)
	assert.True(t, d.Accepted)
	assert.True(t, settled.Accepted, "settle sees the ruling it is paying for")

	res, err := c.Resolution(marketID)
	require.NoError(t, err)
	assert.Equal(t, types.PositionNo, res.Outcome)
	assert.True(t, res.Overridden)
	// Override never reopens voting: the ledger keeps the original tally.
	assert.Equal(t, 3, res.YesVotes)
	assert.True(t, res.Finalized)
}

func TestResolveDisputeRejectKeepsOutcome(t *testing.T) {
	c, marketID := finalizedMarket(t, testConfig())

	index, err := c.RaiseDispute(marketID, challenger, types.PositionNo, "", 100_000, consensusEpoch)
	require.NoError(t, err)

	d, err := c.ResolveDispute(marketID, index, false, func(Dispute) error { return nil })
	require.NoError(t, err)
	assert.True(t, d.Resolved)
	assert.False(t, d.Accepted)

	res, err := c.Resolution(marketID)
	require.NoError(t, err)
	assert.Equal(t, types.PositionYes, res.Outcome)
	assert.False(t, res.Overridden)
}

func TestResolveDisputeSettleFailureLeavesDisputeOpen(t *testing.T) {
	c, marketID := finalizedMarket(t, testConfig())

	index, err := c.RaiseDispute(marketID, challenger, types.PositionNo, "", 100_000, consensusEpoch)
	require.NoError(t, err)

	_, err = c.ResolveDispute(marketID, index, true, func(Dispute) error {
		return errors.New("ledger unavailable")
	})
	require.ErrorIs(t, err, types.ErrTransferFailed)

	// No ruling applied: the outcome stands and the dispute can be retried.
	res, err := c.Resolution(marketID)
	require.NoError(t, err)
	assert.Equal(t, types.PositionYes, res.Outcome)
	assert.False(t, res.Overridden)
	require.False(t, c.Disputes(marketID)[index].Resolved)

	_, err = c.ResolveDispute(marketID, index, true, func(Dispute) error { return nil })
	require.NoError(t, err)
}

func TestResolveDisputeIdempotent(t *testing.T) {
	c, marketID := finalizedMarket(t, testConfig())

	index, err := c.RaiseDispute(marketID, challenger, types.PositionNo, "", 100_000, consensusEpoch)
	require.NoError(t, err)

	_, err = c.ResolveDispute(marketID, index, false, nil)
	require.NoError(t, err)

	_, err = c.ResolveDispute(marketID, index, true, nil)
	require.ErrorIs(t, err, types.ErrDisputeResolved)

	_, err = c.ResolveDispute(marketID, 7, true, nil)
	require.ErrorIs(t, err, types.ErrDisputeNotFound)
}

func TestMultipleDisputesIndexedIndependently(t *testing.T) {
	c, marketID := finalizedMarket(t, testConfig())

	first, err := c.RaiseDispute(marketID, challenger, types.PositionNo, "", 100_000, consensusEpoch)
	require.NoError(t, err)
	second, err := c.RaiseDispute(marketID, common.HexToAddress("0xC1"), types.PositionNo, "", 200_000, consensusEpoch)
	require.NoError(t, err)

	assert.Equal(t, 0, first)
	assert.Equal(t, 1, second)

	_, err = c.ResolveDispute(marketID, second, false, nil)
	require.NoError(t, err)

	list := c.Disputes(marketID)
	require.Len(t, list, 2)
	assert.False(t, list[0].Resolved)
	assert.True(t, list[1].Resolved)
	assert.True(t, c.HasOpenDispute(marketID), "first dispute still awaits a ruling")

	_, err = c.ResolveDispute(marketID, first, false, nil)
	require.NoError(t, err)
	assert.False(t, c.HasOpenDispute(marketID))
}
