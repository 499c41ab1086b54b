package amm

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/predictpesa/settlement/pkg/types"
	"go.uber.org/zap"
)

// Pool is a constant-product market over the two claim balances of one
// market. The invariant reserveYes * reserveNo never decreases across a
// swap: fees and truncation both grow it.
type Pool struct {
	mu          sync.RWMutex
	marketID    uuid.UUID
	feeBps      int64
	reserveYes  int64
	reserveNo   int64
	totalShares int64
	shares      map[common.Address]int64
	logger      *zap.Logger
}

// NewPool creates an empty pool for a market.
func NewPool(marketID uuid.UUID, feeBps int64, logger *zap.Logger) *Pool {
	return &Pool{
		marketID: marketID,
		feeBps:   feeBps,
		shares:   make(map[common.Address]int64),
		logger:   logger,
	}
}

// AddLiquidity deposits both claim balances and mints shares. The first
// deposit sets the implicit price and mints isqrt(amountYes * amountNo);
// later deposits mint the minimum of the two pro-rata ratios so a
// mispriced deposit cannot mint excess shares.
func (p *Pool) AddLiquidity(provider common.Address, amountYes, amountNo int64) (int64, error) {
	if amountYes <= 0 || amountNo <= 0 {
		return 0, types.NewValidation(types.CodeInvalidAmount,
			"liquidity amounts must be positive")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var minted int64
	if p.totalShares == 0 {
		minted = isqrt(amountYes, amountNo)
	} else {
		mintYes := mulDiv(amountYes, p.totalShares, p.reserveYes)
		mintNo := mulDiv(amountNo, p.totalShares, p.reserveNo)
		minted = mintYes
		if mintNo < minted {
			minted = mintNo
		}
	}

	if minted <= 0 {
		return 0, types.NewValidation(types.CodeInvalidAmount,
			"deposit too small to mint liquidity")
	}

	p.reserveYes += amountYes
	p.reserveNo += amountNo
	p.totalShares += minted
	p.shares[provider] += minted

	LiquidityAddsTotal.Inc()
	p.logger.Debug("liquidity-added",
		zap.String("market-id", p.marketID.String()),
		zap.String("provider", provider.Hex()),
		zap.Int64("amount-yes", amountYes),
		zap.Int64("amount-no", amountNo),
		zap.Int64("minted", minted))

	return minted, nil
}

// RemoveLiquidity burns shares and returns the proportional slice of both
// reserves. Burning the last shares must drain the reserves exactly;
// leaving dust behind an empty pool is rejected.
func (p *Pool) RemoveLiquidity(provider common.Address, burn int64) (outYes, outNo int64, err error) {
	if burn <= 0 {
		return 0, 0, types.NewValidation(types.CodeInvalidAmount,
			"shares to burn must be positive")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.shares[provider] < burn {
		return 0, 0, types.NewValidation(types.CodeInsufficientShares,
			fmt.Sprintf("provider holds %d shares, tried to burn %d", p.shares[provider], burn))
	}

	outYes = mulDiv(p.reserveYes, burn, p.totalShares)
	outNo = mulDiv(p.reserveNo, burn, p.totalShares)

	remaining := p.totalShares - burn
	if remaining == 0 && (p.reserveYes != outYes || p.reserveNo != outNo) {
		return 0, 0, types.NewInsolvency(types.CodeInsufficientLiquidity,
			"burning all shares would strand reserves")
	}

	p.reserveYes -= outYes
	p.reserveNo -= outNo
	p.totalShares = remaining
	p.shares[provider] -= burn
	if p.shares[provider] == 0 {
		delete(p.shares, provider)
	}

	LiquidityRemovesTotal.Inc()
	p.logger.Debug("liquidity-removed",
		zap.String("market-id", p.marketID.String()),
		zap.String("provider", provider.Hex()),
		zap.Int64("burned", burn),
		zap.Int64("out-yes", outYes),
		zap.Int64("out-no", outNo))

	return outYes, outNo, nil
}

// Swap trades amountIn of tokenIn for the other side. The fee is applied
// before the constant-product formula:
//
//	inWithFee = amountIn * (10000 - feeBps)
//	amountOut = inWithFee * reserveOut / (reserveIn*10000 + inWithFee)
//
// Fails with SlippageExceeded when amountOut < minAmountOut, and with
// InsufficientLiquidity when the trade would drain the output reserve.
func (p *Pool) Swap(trader common.Address, tokenIn types.Position, amountIn, minAmountOut int64) (int64, error) {
	if amountIn <= 0 {
		return 0, types.NewValidation(types.CodeInvalidAmount,
			"swap amount must be positive")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.reserveYes == 0 || p.reserveNo == 0 {
		return 0, types.NewInsolvency(types.CodeInsufficientLiquidity, "pool has no liquidity")
	}

	reserveIn, reserveOut := p.reserveYes, p.reserveNo
	if tokenIn == types.PositionNo {
		reserveIn, reserveOut = p.reserveNo, p.reserveYes
	}

	inWithFee := new(big.Int).Mul(big.NewInt(amountIn), big.NewInt(types.BpsDenominator-p.feeBps))
	numer := new(big.Int).Mul(inWithFee, big.NewInt(reserveOut))
	denom := new(big.Int).Mul(big.NewInt(reserveIn), big.NewInt(types.BpsDenominator))
	denom.Add(denom, inWithFee)
	amountOut := new(big.Int).Quo(numer, denom).Int64()

	if amountOut >= reserveOut {
		return 0, types.NewInsolvency(types.CodeInsufficientLiquidity,
			fmt.Sprintf("swap output %d would drain reserve %d", amountOut, reserveOut))
	}
	if amountOut < minAmountOut {
		return 0, types.NewValidation(types.CodeSlippageExceeded,
			fmt.Sprintf("output %d below minimum %d", amountOut, minAmountOut))
	}

	// The product must never decrease. With fee + truncation it cannot;
	// the check guards the conservation ledger against formula drift.
	oldK := new(big.Int).Mul(big.NewInt(p.reserveYes), big.NewInt(p.reserveNo))
	newIn, newOut := reserveIn+amountIn, reserveOut-amountOut
	newK := new(big.Int).Mul(big.NewInt(newIn), big.NewInt(newOut))
	if newK.Cmp(oldK) < 0 {
		return 0, types.NewInsolvency(types.CodeInsufficientLiquidity,
			"swap would shrink the constant product")
	}

	if tokenIn == types.PositionYes {
		p.reserveYes = newIn
		p.reserveNo = newOut
	} else {
		p.reserveNo = newIn
		p.reserveYes = newOut
	}

	SwapsTotal.WithLabelValues(tokenIn.String()).Inc()
	SwapVolume.Observe(float64(amountIn))
	p.logger.Debug("swap-executed",
		zap.String("market-id", p.marketID.String()),
		zap.String("trader", trader.Hex()),
		zap.String("token-in", tokenIn.String()),
		zap.Int64("amount-in", amountIn),
		zap.Int64("amount-out", amountOut))

	return amountOut, nil
}

// Reserves returns the current pool reserves.
func (p *Pool) Reserves() (reserveYes, reserveNo int64) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.reserveYes, p.reserveNo
}

// SharesOf returns the provider's liquidity shares.
func (p *Pool) SharesOf(provider common.Address) int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.shares[provider]
}

// TotalShares returns the total minted liquidity.
func (p *Pool) TotalShares() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.totalShares
}

// isqrt returns floor(sqrt(a*b)) computed over the full product.
func isqrt(a, b int64) int64 {
	prod := new(big.Int).Mul(big.NewInt(a), big.NewInt(b))
	return new(big.Int).Sqrt(prod).Int64()
}

// mulDiv returns a*b/c with the product widened to avoid overflow.
func mulDiv(a, b, c int64) int64 {
	out := new(big.Int).Mul(big.NewInt(a), big.NewInt(b))
	out.Quo(out, big.NewInt(c))
	return out.Int64()
}
