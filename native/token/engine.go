package token

import (
	"errors"
	"math/big"
	"strings"
	"time"

	"datacoin/core/events"
	"datacoin/core/types"
	"datacoin/native/common"
)

var (
	errNilState             = errors.New("token engine: state not configured")
	errCoinExists           = errors.New("token engine: coin already exists")
	errCoinNotFound         = errors.New("token engine: coin not found")
	errInvalidAllocation    = errors.New("token engine: invalid allocation")
	errInvalidVesting       = errors.New("token engine: invalid vesting duration")
	errInvalidMetadata      = errors.New("token engine: name, symbol and uri required")
	errZeroAddress          = errors.New("token engine: zero address")
	errInvalidAmount        = errors.New("token engine: amount must be positive")
	errNotCreator           = errors.New("token engine: caller is not the creator")
	errNotMinter            = errors.New("token engine: caller lacks minter role")
	errSupplyCapExceeded    = errors.New("token engine: max supply exceeded")
	errContributorsCap      = errors.New("token engine: contributors allocation exhausted")
	errInsufficientBalance  = errors.New("token engine: insufficient balance")
	errInvalidMaxSupply     = errors.New("token engine: max supply must be positive")
	errTreasuryNotSet       = errors.New("token engine: treasury not configured")
	errMinterAlreadyGranted = errors.New("token engine: minter role already granted")
)

type engineState interface {
	CoinGet(addr [20]byte) (*Coin, bool, error)
	CoinPut(coin *Coin) error
	BalanceGet(asset [20]byte, holder [20]byte) (*big.Int, error)
	BalancePut(asset [20]byte, holder [20]byte, amount *big.Int) error
}

// atomicState is implemented by backends that can revert every write made
// inside fn when it returns an error.
type atomicState interface {
	Atomic(fn func() error) error
}

// Engine maintains the allocation ledgers and balances of every coin. All
// supply movements funnel through mint/burn so the per-coin supply cap holds
// at all times.
type Engine struct {
	state    engineState
	emitter  events.Emitter
	nowFn    func() int64
	guard    common.ReentrancyGuard
	bands    AllocationBands
	treasury [20]byte
}

// NewEngine constructs a token engine with the default allocation bands.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
		bands:   DefaultAllocationBands(),
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

// SetBands overrides the allocation bands enforced on new coins.
func (e *Engine) SetBands(bands AllocationBands) { e.bands = bands }

// SetTreasury configures the recipient of mint taxes.
func (e *Engine) SetTreasury(addr [20]byte) { e.treasury = addr }

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

// ValidateAllocation checks the basis point split and vesting duration
// against the protocol bands. The three shares must sum to exactly 10000.
func (e *Engine) ValidateAllocation(alloc AllocationConfig) error {
	if alloc.CreatorBps+alloc.ContributorsBps+alloc.LiquidityBps != 10_000 {
		return errInvalidAllocation
	}
	b := e.bands
	if alloc.CreatorBps < b.CreatorMinBps || alloc.CreatorBps > b.CreatorMaxBps {
		return errInvalidAllocation
	}
	if alloc.ContributorsBps < b.ContributorsMinBps || alloc.ContributorsBps > b.ContributorsMaxBps {
		return errInvalidAllocation
	}
	if alloc.LiquidityBps < b.LiquidityMinBps {
		return errInvalidAllocation
	}
	if alloc.CreatorVesting < b.VestingMin || alloc.CreatorVesting > b.VestingMax {
		return errInvalidVesting
	}
	return nil
}

// CreateCoin initialises the ledger for a new coin and mints the liquidity
// share of the supply to the configured recipient. The allocation config is
// immutable afterwards.
func (e *Engine) CreateCoin(spec CoinSpec) (*Coin, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	release, err := e.guard.Enter()
	if err != nil {
		return nil, err
	}
	defer release()
	if strings.TrimSpace(spec.Name) == "" || strings.TrimSpace(spec.Symbol) == "" || strings.TrimSpace(spec.URI) == "" {
		return nil, errInvalidMetadata
	}
	if isZeroAddress(spec.Address) || isZeroAddress(spec.Creator) || isZeroAddress(spec.LiquidityRecipient) {
		return nil, errZeroAddress
	}
	if spec.MaxSupply == nil || spec.MaxSupply.Sign() <= 0 {
		return nil, errInvalidMaxSupply
	}
	if err := e.ValidateAllocation(spec.Alloc); err != nil {
		return nil, err
	}
	if _, ok, err := e.state.CoinGet(spec.Address); err != nil {
		return nil, err
	} else if ok {
		return nil, errCoinExists
	}
	coin := &Coin{
		Address:            spec.Address,
		Name:               strings.TrimSpace(spec.Name),
		Symbol:             strings.TrimSpace(spec.Symbol),
		URI:                strings.TrimSpace(spec.URI),
		Creator:            spec.Creator,
		MaxSupply:          new(big.Int).Set(spec.MaxSupply),
		TotalSupply:        big.NewInt(0),
		CreatorClaimed:     big.NewInt(0),
		ContributorsMinted: big.NewInt(0),
		MintTaxBps:         spec.MintTaxBps,
		Alloc:              spec.Alloc,
		CreatedAt:          e.now(),
	}
	liquidity := bpsShare(coin.MaxSupply, coin.Alloc.LiquidityBps)
	err = e.runAtomic(func() error {
		if err := e.mint(coin, spec.LiquidityRecipient, liquidity); err != nil {
			return err
		}
		return e.state.CoinPut(coin)
	})
	if err != nil {
		return nil, err
	}
	e.emit(CoinInitializedEvent(coin))
	return coin.Clone(), nil
}

// mint credits amount of the coin to recipient, enforcing the supply cap.
// The caller persists the coin afterwards.
func (e *Engine) mint(coin *Coin, recipient [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return errInvalidAmount
	}
	if amount.Sign() == 0 {
		return nil
	}
	next := new(big.Int).Add(coin.TotalSupply, amount)
	if next.Cmp(coin.MaxSupply) > 0 {
		return errSupplyCapExceeded
	}
	balance, err := e.state.BalanceGet(coin.Address, recipient)
	if err != nil {
		return err
	}
	if err := e.state.BalancePut(coin.Address, recipient, new(big.Int).Add(balance, amount)); err != nil {
		return err
	}
	coin.TotalSupply = next
	return nil
}

// VestingClaimable returns the creator tokens claimable at the supplied
// time. The result is non-decreasing in now and bounded by the creator's
// total share.
func (e *Engine) VestingClaimable(coinAddr [20]byte, now int64) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	coin, ok, err := e.state.CoinGet(coinAddr)
	if err != nil {
		return nil, err
	}
	if !ok || coin == nil {
		return nil, errCoinNotFound
	}
	total := bpsShare(coin.MaxSupply, coin.Alloc.CreatorBps)
	vested := vestedAmount(total, now-coin.CreatedAt, coin.Alloc.CreatorVesting)
	claimable := new(big.Int).Sub(vested, coin.CreatorClaimed)
	if claimable.Sign() < 0 {
		claimable = big.NewInt(0)
	}
	return claimable, nil
}

// ClaimVesting mints the currently claimable vested amount to the creator.
// A zero claimable balance is a no-op, not an error. Only the coin's current
// creator may claim.
func (e *Engine) ClaimVesting(caller [20]byte, coinAddr [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	release, err := e.guard.Enter()
	if err != nil {
		return nil, err
	}
	defer release()
	coin, ok, err := e.state.CoinGet(coinAddr)
	if err != nil {
		return nil, err
	}
	if !ok || coin == nil {
		return nil, errCoinNotFound
	}
	if caller != coin.Creator {
		return nil, errNotCreator
	}
	claimable, err := e.VestingClaimable(coinAddr, e.now())
	if err != nil {
		return nil, err
	}
	if claimable.Sign() == 0 {
		return big.NewInt(0), nil
	}
	err = e.runAtomic(func() error {
		if err := e.mint(coin, coin.Creator, claimable); err != nil {
			return err
		}
		coin.CreatorClaimed = new(big.Int).Add(coin.CreatorClaimed, claimable)
		return e.state.CoinPut(coin)
	})
	if err != nil {
		return nil, err
	}
	e.emit(VestingClaimedEvent(coin.Address, coin.Creator, claimable))
	return claimable, nil
}

// GrantMinterRole lets the coin's creator delegate the contributor minting
// capability to another address.
func (e *Engine) GrantMinterRole(caller [20]byte, coinAddr [20]byte, minter [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if isZeroAddress(minter) {
		return errZeroAddress
	}
	coin, ok, err := e.state.CoinGet(coinAddr)
	if err != nil {
		return err
	}
	if !ok || coin == nil {
		return errCoinNotFound
	}
	if caller != coin.Creator {
		return errNotCreator
	}
	if coin.HasMinter(minter) {
		return errMinterAlreadyGranted
	}
	coin.Minters = append(coin.Minters, minter)
	if err := e.state.CoinPut(coin); err != nil {
		return err
	}
	e.emit(MinterGrantedEvent(coin.Address, minter))
	return nil
}

// MintContributors mints from the contributors allocation. The caller must
// hold the coin's minter role and the cumulative contributor mint may never
// exceed maxSupply * contributorsBps / 10000. The coin's mint tax share is
// routed to the treasury.
func (e *Engine) MintContributors(caller [20]byte, coinAddr [20]byte, recipient [20]byte, amount *big.Int) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	release, err := e.guard.Enter()
	if err != nil {
		return nil, err
	}
	defer release()
	if amount == nil || amount.Sign() <= 0 {
		return nil, errInvalidAmount
	}
	if isZeroAddress(recipient) {
		return nil, errZeroAddress
	}
	coin, ok, err := e.state.CoinGet(coinAddr)
	if err != nil {
		return nil, err
	}
	if !ok || coin == nil {
		return nil, errCoinNotFound
	}
	if !coin.HasMinter(caller) {
		return nil, errNotMinter
	}
	allocCap := bpsShare(coin.MaxSupply, coin.Alloc.ContributorsBps)
	minted := new(big.Int).Add(coin.ContributorsMinted, amount)
	if minted.Cmp(allocCap) > 0 {
		return nil, errContributorsCap
	}
	tax := bpsShare(amount, coin.MintTaxBps)
	if tax.Sign() > 0 && isZeroAddress(e.treasury) {
		return nil, errTreasuryNotSet
	}
	net := new(big.Int).Sub(amount, tax)
	err = e.runAtomic(func() error {
		if err := e.mint(coin, recipient, net); err != nil {
			return err
		}
		if tax.Sign() > 0 {
			if err := e.mint(coin, e.treasury, tax); err != nil {
				return err
			}
		}
		coin.ContributorsMinted = minted
		return e.state.CoinPut(coin)
	})
	if err != nil {
		return nil, err
	}
	e.emit(ContributorsMintedEvent(coin.Address, recipient, net, tax))
	return net, nil
}

// Transfer moves coin balance between holders.
func (e *Engine) Transfer(coinAddr [20]byte, from [20]byte, to [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	release, err := e.guard.Enter()
	if err != nil {
		return err
	}
	defer release()
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}
	if isZeroAddress(to) {
		return errZeroAddress
	}
	if _, ok, err := e.state.CoinGet(coinAddr); err != nil {
		return err
	} else if !ok {
		return errCoinNotFound
	}
	fromBalance, err := e.state.BalanceGet(coinAddr, from)
	if err != nil {
		return err
	}
	if fromBalance.Cmp(amount) < 0 {
		return errInsufficientBalance
	}
	toBalance, err := e.state.BalanceGet(coinAddr, to)
	if err != nil {
		return err
	}
	return e.runAtomic(func() error {
		if err := e.state.BalancePut(coinAddr, from, new(big.Int).Sub(fromBalance, amount)); err != nil {
			return err
		}
		return e.state.BalancePut(coinAddr, to, new(big.Int).Add(toBalance, amount))
	})
}

// Burn destroys amount of the holder's balance and shrinks total supply.
func (e *Engine) Burn(holder [20]byte, coinAddr [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	release, err := e.guard.Enter()
	if err != nil {
		return err
	}
	defer release()
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}
	coin, ok, err := e.state.CoinGet(coinAddr)
	if err != nil {
		return err
	}
	if !ok || coin == nil {
		return errCoinNotFound
	}
	balance, err := e.state.BalanceGet(coinAddr, holder)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return errInsufficientBalance
	}
	err = e.runAtomic(func() error {
		if err := e.state.BalancePut(coinAddr, holder, new(big.Int).Sub(balance, amount)); err != nil {
			return err
		}
		coin.TotalSupply = new(big.Int).Sub(coin.TotalSupply, amount)
		return e.state.CoinPut(coin)
	})
	if err != nil {
		return err
	}
	e.emit(BurnedEvent(coin.Address, holder, amount))
	return nil
}

// TransferCreator reassigns the coin's creator. The factory gates this
// behind protocol admin capability; future vesting claims accrue to the new
// creator.
func (e *Engine) TransferCreator(coinAddr [20]byte, newCreator [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if isZeroAddress(newCreator) {
		return errZeroAddress
	}
	coin, ok, err := e.state.CoinGet(coinAddr)
	if err != nil {
		return err
	}
	if !ok || coin == nil {
		return errCoinNotFound
	}
	coin.Creator = newCreator
	return e.state.CoinPut(coin)
}

// GetCoin returns the coin ledger without mutating state.
func (e *Engine) GetCoin(coinAddr [20]byte) (*Coin, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	coin, ok, err := e.state.CoinGet(coinAddr)
	if err != nil {
		return nil, err
	}
	if !ok || coin == nil {
		return nil, errCoinNotFound
	}
	return coin.Clone(), nil
}

// BalanceOf returns the holder's balance of the coin.
func (e *Engine) BalanceOf(coinAddr [20]byte, holder [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.BalanceGet(coinAddr, holder)
}
