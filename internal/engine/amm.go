package engine

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/predictpesa/settlement/internal/amm"
	"github.com/predictpesa/settlement/pkg/types"
)

// PoolView is a read-only snapshot of a market's AMM pool.
type PoolView struct {
	MarketID    uuid.UUID `json:"market_id"`
	ReserveYes  int64     `json:"reserve_yes"`
	ReserveNo   int64     `json:"reserve_no"`
	TotalShares int64     `json:"total_shares"`
}

// tradablePool fetches the pool after checking the market still trades.
// The AMM operates independently of resolution but only before it: a
// resolved or cancelled market has nothing left to price.
func (e *Engine) tradablePool(marketID uuid.UUID) (*amm.Pool, error) {
	m, err := e.registry.Refresh(marketID, e.now())
	if err != nil {
		return nil, err
	}

	if m.State == types.MarketResolved || m.State == types.MarketCancelled {
		return nil, types.NewState(types.CodeMarketClosed,
			"AMM trading closed, market is "+m.State.String())
	}

	return e.amm.PoolFor(marketID), nil
}

// AddLiquidity deposits claim balances into the market's pool.
func (e *Engine) AddLiquidity(_ context.Context, marketID uuid.UUID, provider common.Address, amountYes, amountNo int64) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pool, err := e.tradablePool(marketID)
	if err != nil {
		return 0, err
	}

	return pool.AddLiquidity(provider, amountYes, amountNo)
}

// RemoveLiquidity burns shares for a proportional slice of both reserves.
// Allowed in any market state so providers are never locked in.
func (e *Engine) RemoveLiquidity(_ context.Context, marketID uuid.UUID, provider common.Address, shares int64) (outYes, outNo int64, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, err = e.registry.Get(marketID)
	if err != nil {
		return 0, 0, err
	}

	return e.amm.PoolFor(marketID).RemoveLiquidity(provider, shares)
}

// Swap trades one claim balance for the other through the constant-product
// pool.
func (e *Engine) Swap(_ context.Context, marketID uuid.UUID, trader common.Address, tokenIn types.Position, amountIn, minAmountOut int64) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pool, err := e.tradablePool(marketID)
	if err != nil {
		return 0, err
	}

	return pool.Swap(trader, tokenIn, amountIn, minAmountOut)
}

// Pool returns a snapshot of the market's AMM pool.
func (e *Engine) Pool(marketID uuid.UUID) (PoolView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, err := e.registry.Get(marketID)
	if err != nil {
		return PoolView{}, err
	}

	p := e.amm.PoolFor(marketID)
	reserveYes, reserveNo := p.Reserves()

	return PoolView{
		MarketID:    marketID,
		ReserveYes:  reserveYes,
		ReserveNo:   reserveNo,
		TotalShares: p.TotalShares(),
	}, nil
}
