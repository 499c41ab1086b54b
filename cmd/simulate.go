package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/predictpesa/settlement/internal/engine"
	"github.com/predictpesa/settlement/internal/oracle"
	"github.com/predictpesa/settlement/internal/storage"
	"github.com/predictpesa/settlement/pkg/config"
	"github.com/predictpesa/settlement/pkg/types"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Replay a canned market lifecycle and print the settlement ledger",
	Long: `Runs a full market lifecycle in-process against a synthetic clock:
create, stake both sides, expire, report to quorum, finalize, claim, and
print the closing ledger. Useful for sanity-checking parameter changes
without a running server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSimulate()
	},
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate() error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	// Synthetic clock so the market can expire without waiting.
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := func() time.Time { return clock }

	governance := common.HexToAddress("0x00000000000000000000000000000000000000AA")
	eng := engine.New(engine.Config{
		Params: engine.Params{
			MinSources:       cfg.MinSources,
			MinConfidenceBps: cfg.MinConfidenceBps,
			DisputePeriod:    cfg.DisputePeriod,
			MinDisputeStake:  cfg.MinDisputeStake,
			ProtocolFeeBps:   cfg.ProtocolFeeBps,
			SwapFeeBps:       cfg.SwapFeeBps,
		},
		Reputation: oracle.Config{
			ReputationStep: cfg.ReputationStep,
			MinReputation:  cfg.MinReputation,
			MaxReputation:  cfg.MaxReputation,
		},
		Governance: governance,
		Transferer: &engine.LogTransferer{Logger: logger},
		Storage:    storage.NewConsoleStorage(logger),
		Now:        now,
		Logger:     logger,
	})

	ctx := context.Background()

	alice := common.HexToAddress("0x0000000000000000000000000000000000000001")
	bob := common.HexToAddress("0x0000000000000000000000000000000000000002")
	carol := common.HexToAddress("0x0000000000000000000000000000000000000003")

	m, err := eng.CreateMarket(ctx, clock.Add(time.Hour), cfg.DefaultMinStake, cfg.DefaultMaxStake, "simulation")
	if err != nil {
		return fmt.Errorf("create market: %w", err)
	}
	fmt.Printf("market %s created, expires %s\n", m.ID, m.Expiry.Format(time.RFC3339))

	stakes := []struct {
		holder   common.Address
		position types.Position
		amount   int64
	}{
		{alice, types.PositionYes, 100_000},
		{bob, types.PositionNo, 300_000},
		{carol, types.PositionYes, 50_000},
	}
	for _, s := range stakes {
		err = eng.Stake(ctx, m.ID, s.holder, s.position, s.amount)
		if err != nil {
			return fmt.Errorf("stake: %w", err)
		}
		fmt.Printf("staked %d on %s by %s\n", s.amount, s.position, s.holder.Hex())
	}

	// Register and verify a quorum of sources, then expire the market.
	reporters := make([]common.Address, 0, cfg.MinSources)
	for i := 0; i < cfg.MinSources; i++ {
		addr := common.BytesToAddress([]byte{0x10, byte(i + 1)})
		eng.RegisterSource(ctx, addr)
		err = eng.VerifySource(ctx, governance, addr)
		if err != nil {
			return fmt.Errorf("verify source: %w", err)
		}
		reporters = append(reporters, addr)
	}

	clock = clock.Add(2 * time.Hour)

	for _, addr := range reporters {
		err = eng.SubmitReport(ctx, m.ID, addr, types.PositionYes, 9500, "sim://evidence")
		if err != nil {
			return fmt.Errorf("submit report: %w", err)
		}
	}

	res, err := eng.Resolution(m.ID)
	if err != nil {
		return fmt.Errorf("resolution: %w", err)
	}
	fmt.Printf("finalized %s with confidence %d bps (%d yes / %d no votes)\n",
		res.Outcome, res.ConfidenceBps, res.YesVotes, res.NoVotes)

	// Claims unlock only after the dispute window lapses.
	clock = clock.Add(cfg.DisputePeriod + time.Second)

	for _, holder := range []common.Address{alice, carol} {
		payout, claimErr := eng.ClaimReward(ctx, m.ID, holder)
		if claimErr != nil {
			return fmt.Errorf("claim: %w", claimErr)
		}
		fmt.Printf("claimed %d by %s\n", payout, holder.Hex())
	}

	view, err := eng.Market(m.ID)
	if err != nil {
		return fmt.Errorf("market view: %w", err)
	}

	paid := eng.PaidOut(m.ID)
	fees := eng.FeesCollected(m.ID)
	total := view.TotalYes + view.TotalNo

	fmt.Printf("\nledger: pool=%d paid=%d fees=%d residual=%d\n",
		total, paid, fees, total-paid-fees)

	return nil
}
