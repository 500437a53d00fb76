package market

import (
	"errors"
	"math/big"
	"time"

	"datacoin/core/events"
	"datacoin/core/types"
	"datacoin/crypto"
	"datacoin/native/common"
)

var (
	errNilState              = errors.New("market engine: state not configured")
	errPoolExists            = errors.New("market engine: pool already initialised")
	errPoolNotFound          = errors.New("market engine: pool not found")
	errInvalidAmount         = errors.New("market engine: amount must be positive")
	errZeroAddress           = errors.New("market engine: zero address")
	errInsufficientBalance   = errors.New("market engine: insufficient balance")
	errInsufficientLiquidity = errors.New("market engine: insufficient pool liquidity")
	errSlippageExceeded      = errors.New("market engine: output below minimum")
	errSwapTooSmall          = errors.New("market engine: swap output rounds to zero")
	errTreasuryNotSet        = errors.New("market engine: treasury not configured")
)

type engineState interface {
	PoolGet(token [20]byte) (*Pool, bool, error)
	PoolPut(pool *Pool) error
	BalanceGet(asset [20]byte, holder [20]byte) (*big.Int, error)
	BalancePut(asset [20]byte, holder [20]byte, amount *big.Int) error
}

// atomicState is implemented by backends that can revert every write made
// inside fn when it returns an error.
type atomicState interface {
	Atomic(fn func() error) error
}

// Engine prices and executes trades against per-coin constant-product
// pools. Reserves live on the derived pool address; taxes are routed to the
// treasury and the lighthouse according to the pool's snapshot.
type Engine struct {
	state      engineState
	emitter    events.Emitter
	nowFn      func() int64
	guard      common.ReentrancyGuard
	treasury   [20]byte
	lighthouse [20]byte
}

// NewEngine constructs a market engine with default dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used for deterministic testing.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetTreasury configures the protocol fee recipient.
func (e *Engine) SetTreasury(addr [20]byte) { e.treasury = addr }

// SetLighthouse configures the storage-provider fee recipient.
func (e *Engine) SetLighthouse(addr [20]byte) { e.lighthouse = addr }

func (e *Engine) emit(evt *types.Event) {
	if e == nil || evt == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(WrapEvent(evt))
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func isZeroAddress(addr [20]byte) bool {
	var zero [20]byte
	return addr == zero
}

// runAtomic reverts every state write made inside fn when fn fails,
// provided the backend supports journaling.
func (e *Engine) runAtomic(fn func() error) error {
	if tx, ok := e.state.(atomicState); ok {
		return tx.Atomic(fn)
	}
	return fn()
}

func (e *Engine) credit(asset [20]byte, holder [20]byte, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	balance, err := e.state.BalanceGet(asset, holder)
	if err != nil {
		return err
	}
	return e.state.BalancePut(asset, holder, new(big.Int).Add(balance, amount))
}

func (e *Engine) debit(asset [20]byte, holder [20]byte, amount *big.Int) error {
	balance, err := e.state.BalanceGet(asset, holder)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return errInsufficientBalance
	}
	return e.state.BalancePut(asset, holder, new(big.Int).Sub(balance, amount))
}

// routeTax splits the extracted tax between treasury and lighthouse per the
// pool snapshot. A missing lighthouse folds its share into the treasury.
func (e *Engine) routeTax(asset [20]byte, tax *big.Int, lighthouseShareBps uint64) error {
	if tax.Sign() == 0 {
		return nil
	}
	if isZeroAddress(e.treasury) {
		return errTreasuryNotSet
	}
	lighthouseCut := bpsShare(tax, lighthouseShareBps)
	if isZeroAddress(e.lighthouse) {
		lighthouseCut = big.NewInt(0)
	}
	treasuryCut := new(big.Int).Sub(tax, lighthouseCut)
	if err := e.credit(asset, e.treasury, treasuryCut); err != nil {
		return err
	}
	return e.credit(asset, e.lighthouse, lighthouseCut)
}

// InitPool seeds a pool exactly once per coin. Both seed amounts are pulled
// from the caller; the liquidity receipt for the deposit is credited to the
// caller under the pool address.
func (e *Engine) InitPool(caller [20]byte, params InitPoolParams) (*Pool, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	release, err := e.guard.Enter()
	if err != nil {
		return nil, err
	}
	defer release()

	if isZeroAddress(params.Token) || isZeroAddress(params.Collateral) || isZeroAddress(params.Seeder) {
		return nil, errZeroAddress
	}
	if params.TokenAmount == nil || params.TokenAmount.Sign() <= 0 ||
		params.CollateralAmount == nil || params.CollateralAmount.Sign() <= 0 {
		return nil, errInvalidAmount
	}
	if _, ok, err := e.state.PoolGet(params.Token); err != nil {
		return nil, err
	} else if ok {
		return nil, errPoolExists
	}

	pool := &Pool{
		Token:              params.Token,
		Collateral:         params.Collateral,
		Address:            crypto.DerivePoolAddress(params.Token),
		Seeder:             params.Seeder,
		TokenReserve:       new(big.Int).Set(params.TokenAmount),
		CollateralReserve:  new(big.Int).Set(params.CollateralAmount),
		LPSupply:           lpMintAmount(params.TokenAmount, params.CollateralAmount),
		FeesCollateral:     big.NewInt(0),
		FeesToken:          big.NewInt(0),
		BuyTaxBps:          params.BuyTaxBps,
		SellTaxBps:         params.SellTaxBps,
		LighthouseShareBps: params.LighthouseShareBps,
		CreatedAt:          e.now(),
	}
	err = e.runAtomic(func() error {
		if err := e.debit(params.Token, caller, params.TokenAmount); err != nil {
			return err
		}
		if err := e.debit(params.Collateral, caller, params.CollateralAmount); err != nil {
			return err
		}
		if err := e.credit(params.Token, pool.Address, params.TokenAmount); err != nil {
			return err
		}
		if err := e.credit(params.Collateral, pool.Address, params.CollateralAmount); err != nil {
			return err
		}
		if err := e.credit(pool.Address, caller, pool.LPSupply); err != nil {
			return err
		}
		return e.state.PoolPut(pool)
	})
	if err != nil {
		return nil, err
	}
	e.emit(PoolInitializedEvent(pool))
	return pool.Clone(), nil
}

// Buy swaps collateral into the coin. The buy tax is deducted from the
// input before the constant-product math, so the reserve product never
// decreases.
func (e *Engine) Buy(caller [20]byte, token [20]byte, collateralIn *big.Int, minTokenOut *big.Int) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	release, err := e.guard.Enter()
	if err != nil {
		return nil, err
	}
	defer release()

	if collateralIn == nil || collateralIn.Sign() <= 0 {
		return nil, errInvalidAmount
	}
	pool, ok, err := e.state.PoolGet(token)
	if err != nil {
		return nil, err
	}
	if !ok || pool == nil {
		return nil, errPoolNotFound
	}

	effectiveIn, tax := applyTaxBps(collateralIn, pool.BuyTaxBps)
	tokenOut := swapOutput(pool.TokenReserve, pool.CollateralReserve, effectiveIn)
	if minTokenOut != nil && tokenOut.Cmp(minTokenOut) < 0 {
		return nil, errSlippageExceeded
	}
	if tokenOut.Sign() == 0 {
		return nil, errSwapTooSmall
	}
	if tokenOut.Cmp(pool.TokenReserve) >= 0 {
		return nil, errInsufficientLiquidity
	}

	err = e.runAtomic(func() error {
		if err := e.debit(pool.Collateral, caller, collateralIn); err != nil {
			return err
		}
		if err := e.credit(pool.Collateral, pool.Address, effectiveIn); err != nil {
			return err
		}
		if err := e.routeTax(pool.Collateral, tax, pool.LighthouseShareBps); err != nil {
			return err
		}
		if err := e.debit(pool.Token, pool.Address, tokenOut); err != nil {
			return err
		}
		if err := e.credit(pool.Token, caller, tokenOut); err != nil {
			return err
		}
		pool.CollateralReserve = new(big.Int).Add(pool.CollateralReserve, effectiveIn)
		pool.TokenReserve = new(big.Int).Sub(pool.TokenReserve, tokenOut)
		pool.FeesCollateral = new(big.Int).Add(pool.FeesCollateral, tax)
		return e.state.PoolPut(pool)
	})
	if err != nil {
		return nil, err
	}
	e.emit(SwapEvent(EventTypeBuy, pool.Token, caller, collateralIn, tokenOut, tax))
	return tokenOut, nil
}

// Sell swaps the coin back into collateral, symmetric to Buy with the sell
// tax taken from the token input.
func (e *Engine) Sell(caller [20]byte, token [20]byte, tokenIn *big.Int, minCollateralOut *big.Int) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	release, err := e.guard.Enter()
	if err != nil {
		return nil, err
	}
	defer release()

	if tokenIn == nil || tokenIn.Sign() <= 0 {
		return nil, errInvalidAmount
	}
	pool, ok, err := e.state.PoolGet(token)
	if err != nil {
		return nil, err
	}
	if !ok || pool == nil {
		return nil, errPoolNotFound
	}

	effectiveIn, tax := applyTaxBps(tokenIn, pool.SellTaxBps)
	collateralOut := swapOutput(pool.CollateralReserve, pool.TokenReserve, effectiveIn)
	if minCollateralOut != nil && collateralOut.Cmp(minCollateralOut) < 0 {
		return nil, errSlippageExceeded
	}
	if collateralOut.Sign() == 0 {
		return nil, errSwapTooSmall
	}
	if collateralOut.Cmp(pool.CollateralReserve) >= 0 {
		return nil, errInsufficientLiquidity
	}

	err = e.runAtomic(func() error {
		if err := e.debit(pool.Token, caller, tokenIn); err != nil {
			return err
		}
		if err := e.credit(pool.Token, pool.Address, effectiveIn); err != nil {
			return err
		}
		if err := e.routeTax(pool.Token, tax, pool.LighthouseShareBps); err != nil {
			return err
		}
		if err := e.debit(pool.Collateral, pool.Address, collateralOut); err != nil {
			return err
		}
		if err := e.credit(pool.Collateral, caller, collateralOut); err != nil {
			return err
		}
		pool.TokenReserve = new(big.Int).Add(pool.TokenReserve, effectiveIn)
		pool.CollateralReserve = new(big.Int).Sub(pool.CollateralReserve, collateralOut)
		pool.FeesToken = new(big.Int).Add(pool.FeesToken, tax)
		return e.state.PoolPut(pool)
	})
	if err != nil {
		return nil, err
	}
	e.emit(SwapEvent(EventTypeSell, pool.Token, caller, tokenIn, collateralOut, tax))
	return collateralOut, nil
}

// PoolState returns the pool without mutating state.
func (e *Engine) PoolState(token [20]byte) (*Pool, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	pool, ok, err := e.state.PoolGet(token)
	if err != nil {
		return nil, err
	}
	if !ok || pool == nil {
		return nil, errPoolNotFound
	}
	return pool.Clone(), nil
}

// QuoteBuy prices a buy without executing it.
func (e *Engine) QuoteBuy(token [20]byte, collateralIn *big.Int) (*big.Int, error) {
	pool, err := e.PoolState(token)
	if err != nil {
		return nil, err
	}
	if collateralIn == nil || collateralIn.Sign() <= 0 {
		return nil, errInvalidAmount
	}
	effectiveIn, _ := applyTaxBps(collateralIn, pool.BuyTaxBps)
	return swapOutput(pool.TokenReserve, pool.CollateralReserve, effectiveIn), nil
}

// QuoteSell prices a sell without executing it.
func (e *Engine) QuoteSell(token [20]byte, tokenIn *big.Int) (*big.Int, error) {
	pool, err := e.PoolState(token)
	if err != nil {
		return nil, err
	}
	if tokenIn == nil || tokenIn.Sign() <= 0 {
		return nil, errInvalidAmount
	}
	effectiveIn, _ := applyTaxBps(tokenIn, pool.SellTaxBps)
	return swapOutput(pool.CollateralReserve, pool.TokenReserve, effectiveIn), nil
}
