package factory

import (
	"errors"
	"math/big"
	"strings"
	"time"

	"datacoin/core/events"
	"datacoin/core/types"
	"datacoin/crypto"
	"datacoin/native/common"
	"datacoin/native/market"
	"datacoin/native/registry"
	"datacoin/native/token"
)

var (
	errNilState              = errors.New("factory engine: state not configured")
	errNilEngines            = errors.New("factory engine: ledger, registry and market engines required")
	errNotAdmin              = errors.New("factory engine: caller lacks admin capability")
	errNotCreator            = errors.New("factory engine: caller is not the creator")
	errZeroAddress           = errors.New("factory engine: zero address")
	errCoinExists            = errors.New("factory engine: coin already exists")
	errRecordNotFound        = errors.New("factory engine: coin not found")
	errAssetNotApproved      = errors.New("factory engine: lock asset not approved")
	errInsufficientLock      = errors.New("factory engine: lock amount below minimum")
	errInvalidAmount         = errors.New("factory engine: amount must be positive")
	errInvalidFeeConfig      = errors.New("factory engine: creation fee exceeds 10000 bps")
	errTreasuryNotSet        = errors.New("factory engine: treasury not configured")
	errInsufficientBalance   = errors.New("factory engine: insufficient balance")
	errLiquidityAlreadyAdded = errors.New("factory engine: liquidity already added")
	errLPStillLocked         = errors.New("factory engine: liquidity receipt still locked")
	errLPAlreadyWithdrawn    = errors.New("factory engine: liquidity receipt already withdrawn")
	errNoLPTokens            = errors.New("factory engine: no liquidity receipt to withdraw")
)

const moduleName = "factory"

// DefaultCreationFeeBps is the protocol launch fee taken from each
// collateral lock.
const DefaultCreationFeeBps uint64 = 500

// DefaultLockDuration is how long a creator's liquidity receipt stays
// locked after creation.
const DefaultLockDuration int64 = 180 * 86_400

// DefaultMaxSupply returns the fixed supply cap stamped onto every coin:
// one hundred million whole tokens at 18 decimals.
func DefaultMaxSupply() *big.Int {
	unit := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	return new(big.Int).Mul(big.NewInt(100_000_000), unit)
}

type engineState interface {
	RecordGet(coin [20]byte) (*DataCoinRecord, bool, error)
	RecordPut(record *DataCoinRecord) error
	CoinIndexAppend(coin [20]byte) error
	CoinIndexList() ([][20]byte, error)
	CreatorIndexAppend(creator [20]byte, coin [20]byte) error
	CreatorIndexList(creator [20]byte) ([][20]byte, error)
	ParamsGet() (*Params, bool, error)
	ParamsPut(params *Params) error
	BalanceGet(asset [20]byte, holder [20]byte) (*big.Int, error)
	BalancePut(asset [20]byte, holder [20]byte, amount *big.Int) error
}

// atomicState is implemented by backends that can revert every write made
// inside fn when it returns an error.
type atomicState interface {
	Atomic(fn func() error) error
}

// pausedView adapts the persisted pause flag to the shared guard.
type pausedView bool

func (p pausedView) IsPaused(string) bool { return bool(p) }

// Engine orchestrates coin creation: it validates the allocation and the
// collateral lock, extracts the creation fee, deploys the coin ledger at a
// salt-derived address, seeds the exchange pool and time-locks the
// liquidity receipt. Locked assets sit on the factory's module account
// until the creator withdraws the receipt.
type Engine struct {
	state         engineState
	emitter       events.Emitter
	nowFn         func() int64
	guard         common.ReentrancyGuard
	authority     *common.Authority
	ledger        *token.Engine
	assets        *registry.Engine
	market        *market.Engine
	treasury      [20]byte
	maxSupply     *big.Int
	lockDuration  int64
	defaultFeeBps uint64
	vault         [20]byte
}

// NewEngine constructs a factory engine with protocol defaults. The ledger,
// registry and market engines must be attached before use.
func NewEngine() *Engine {
	return &Engine{
		emitter:       events.NoopEmitter{},
		nowFn:         func() int64 { return time.Now().Unix() },
		authority:     common.NewAuthority(),
		maxSupply:     DefaultMaxSupply(),
		lockDuration:  DefaultLockDuration,
		defaultFeeBps: DefaultCreationFeeBps,
		vault:         crypto.DeriveModuleAddress(moduleName),
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

// SetAuthority configures the capability table consulted for admin checks.
func (e *Engine) SetAuthority(authority *common.Authority) {
	if authority == nil {
		return
	}
	e.authority = authority
}

// SetLedger attaches the allocation ledger engine.
func (e *Engine) SetLedger(ledger *token.Engine) { e.ledger = ledger }

// SetRegistry attaches the collateral asset registry engine.
func (e *Engine) SetRegistry(assets *registry.Engine) { e.assets = assets }

// SetMarket attaches the exchange pool engine.
func (e *Engine) SetMarket(m *market.Engine) { e.market = m }

// SetTreasury configures the recipient of creation fees.
func (e *Engine) SetTreasury(addr [20]byte) { e.treasury = addr }

// SetMaxSupply overrides the supply cap stamped onto new coins.
func (e *Engine) SetMaxSupply(maxSupply *big.Int) {
	if maxSupply == nil || maxSupply.Sign() <= 0 {
		return
	}
	e.maxSupply = new(big.Int).Set(maxSupply)
}

// SetLockDuration overrides the liquidity receipt lock duration.
func (e *Engine) SetLockDuration(seconds int64) {
	if seconds <= 0 {
		return
	}
	e.lockDuration = seconds
}

// SetDefaultFeeBps overrides the creation fee used before the first admin
// fee update is persisted.
func (e *Engine) SetDefaultFeeBps(bps uint64) {
	if bps > 10_000 {
		return
	}
	e.defaultFeeBps = bps
}

// VaultAddress returns the module account holding locked liquidity
// receipts.
func (e *Engine) VaultAddress() [20]byte { return e.vault }

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

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.ledger == nil || e.assets == nil || e.market == nil {
		return errNilEngines
	}
	return nil
}

func (e *Engine) requireAdmin(caller [20]byte) error {
	if e.authority == nil || !e.authority.Allowed(common.CapabilityAdmin, caller) {
		return errNotAdmin
	}
	return nil
}

// runAtomic reverts every state write made inside fn when fn fails,
// provided the backend supports journaling.
func (e *Engine) runAtomic(fn func() error) error {
	if tx, ok := e.state.(atomicState); ok {
		return tx.Atomic(fn)
	}
	return fn()
}

func isZeroAddress(addr [20]byte) bool {
	var zero [20]byte
	return addr == zero
}

var basisPoints = big.NewInt(10_000)

func bpsShare(amount *big.Int, bps uint64) *big.Int {
	if amount == nil || amount.Sign() <= 0 || bps == 0 {
		return big.NewInt(0)
	}
	share := new(big.Int).Mul(amount, new(big.Int).SetUint64(bps))
	return share.Div(share, basisPoints)
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

// params loads the persisted factory settings, falling back to defaults
// before the first admin write.
func (e *Engine) params() (*Params, error) {
	stored, ok, err := e.state.ParamsGet()
	if err != nil {
		return nil, err
	}
	if !ok || stored == nil {
		return &Params{CreationFeeBps: e.defaultFeeBps}, nil
	}
	return stored, nil
}

// CreateDataCoin runs the whole creation state machine. On any failure the
// backing journal reverts every intermediate write, so a failed creation
// leaves no trace.
func (e *Engine) CreateDataCoin(caller [20]byte, params CreateParams) (*DataCoinRecord, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	release, err := e.guard.Enter()
	if err != nil {
		return nil, err
	}
	defer release()

	settings, err := e.params()
	if err != nil {
		return nil, err
	}
	if err := common.Guard(pausedView(settings.Paused), moduleName); err != nil {
		return nil, err
	}
	if isZeroAddress(caller) || isZeroAddress(params.Creator) || isZeroAddress(params.LockToken) {
		return nil, errZeroAddress
	}
	alloc := token.AllocationConfig{
		CreatorBps:      params.CreatorBps,
		CreatorVesting:  params.VestingDuration,
		ContributorsBps: params.ContributorsBps,
		LiquidityBps:    params.LiquidityBps,
	}
	if err := e.ledger.ValidateAllocation(alloc); err != nil {
		return nil, err
	}
	approved, err := e.assets.IsTokenApproved(params.LockToken)
	if err != nil {
		return nil, err
	}
	if !approved {
		return nil, errAssetNotApproved
	}
	if params.LockAmount == nil || params.LockAmount.Sign() <= 0 {
		return nil, errInvalidAmount
	}
	minLock, err := e.assets.MinLockAmount(params.LockToken)
	if err != nil {
		return nil, err
	}
	if params.LockAmount.Cmp(minLock) < 0 {
		return nil, errInsufficientLock
	}

	coinAddr := crypto.DeriveCoinAddress(params.Creator, params.Salt)
	if _, ok, err := e.state.RecordGet(coinAddr); err != nil {
		return nil, err
	} else if ok {
		return nil, errCoinExists
	}

	fee := bpsShare(params.LockAmount, settings.CreationFeeBps)
	if fee.Sign() > 0 && isZeroAddress(e.treasury) {
		return nil, errTreasuryNotSet
	}
	netLock := new(big.Int).Sub(params.LockAmount, fee)
	taxes, err := e.assets.GetTokenTaxRates(params.LockToken)
	if err != nil {
		return nil, err
	}
	now := e.now()

	var record *DataCoinRecord
	err = e.runAtomic(func() error {
		// Collateral pull and fee extraction. The net lock funds the
		// pool seed from the factory vault.
		if err := e.debit(params.LockToken, caller, params.LockAmount); err != nil {
			return err
		}
		if err := e.credit(params.LockToken, e.treasury, fee); err != nil {
			return err
		}
		if err := e.credit(params.LockToken, e.vault, netLock); err != nil {
			return err
		}

		// Ledger deployment at the salt-derived address. The liquidity
		// share of the supply is minted straight to the vault.
		coin, err := e.ledger.CreateCoin(token.CoinSpec{
			Address:            coinAddr,
			Name:               strings.TrimSpace(params.Name),
			Symbol:             strings.TrimSpace(params.Symbol),
			URI:                strings.TrimSpace(params.TokenURI),
			Creator:            params.Creator,
			MaxSupply:          e.maxSupply,
			MintTaxBps:         taxes.MintTaxBps,
			Alloc:              alloc,
			LiquidityRecipient: e.vault,
		})
		if err != nil {
			return err
		}

		record = &DataCoinRecord{
			CoinAddress:  coinAddr,
			PoolAddress:  crypto.DerivePoolAddress(coinAddr),
			TokenURI:     coin.URI,
			Creator:      coin.Creator,
			LockToken:    params.LockToken,
			TokensLocked: new(big.Int).Set(params.LockAmount),
			FeePaid:      fee,
			Liquidity:    LiquidityStateCreated,
			CreatedAt:    now,
			UnlockAt:     now + e.lockDuration,
		}

		liquidityShare := bpsShare(coin.MaxSupply, alloc.LiquidityBps)
		pool, err := e.market.InitPool(e.vault, market.InitPoolParams{
			Token:              coinAddr,
			Collateral:         params.LockToken,
			Seeder:             coin.Creator,
			TokenAmount:        liquidityShare,
			CollateralAmount:   netLock,
			BuyTaxBps:          taxes.BuyTaxBps,
			SellTaxBps:         taxes.SellTaxBps,
			LighthouseShareBps: taxes.LighthouseShareBps,
		})
		if err != nil {
			return err
		}
		if err := record.markLiquidityAdded(pool.LPSupply); err != nil {
			return err
		}

		if err := e.state.RecordPut(record); err != nil {
			return err
		}
		if err := e.state.CoinIndexAppend(coinAddr); err != nil {
			return err
		}
		return e.state.CreatorIndexAppend(record.Creator, coinAddr)
	})
	if err != nil {
		return nil, err
	}
	e.emit(CoinCreatedEvent(record, params.Name, params.Symbol))
	return record.Clone(), nil
}

// WithdrawLPTokens releases the time-locked liquidity receipt to the
// coin's current creator. One-shot.
func (e *Engine) WithdrawLPTokens(caller [20]byte, coinAddr [20]byte) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	release, err := e.guard.Enter()
	if err != nil {
		return nil, err
	}
	defer release()

	record, ok, err := e.state.RecordGet(coinAddr)
	if err != nil {
		return nil, err
	}
	if !ok || record == nil {
		return nil, errRecordNotFound
	}
	if caller != record.Creator {
		return nil, errNotCreator
	}
	if err := record.markWithdrawn(e.now()); err != nil {
		return nil, err
	}

	amount := new(big.Int).Set(record.LPTokenAmount)
	err = e.runAtomic(func() error {
		if err := e.debit(record.PoolAddress, e.vault, amount); err != nil {
			return err
		}
		if err := e.credit(record.PoolAddress, record.Creator, amount); err != nil {
			return err
		}
		return e.state.RecordPut(record)
	})
	if err != nil {
		return nil, err
	}
	e.emit(LPWithdrawnEvent(record.CoinAddress, record.Creator, amount))
	return amount, nil
}

// UpdateDataCoinCreator reassigns the coin's creator. Future vesting claims
// and the LP withdrawal authority follow the new creator.
func (e *Engine) UpdateDataCoinCreator(caller [20]byte, coinAddr [20]byte, newCreator [20]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if isZeroAddress(newCreator) {
		return errZeroAddress
	}
	record, ok, err := e.state.RecordGet(coinAddr)
	if err != nil {
		return err
	}
	if !ok || record == nil {
		return errRecordNotFound
	}
	previous := record.Creator
	record.Creator = newCreator
	err = e.runAtomic(func() error {
		if err := e.ledger.TransferCreator(coinAddr, newCreator); err != nil {
			return err
		}
		if err := e.state.RecordPut(record); err != nil {
			return err
		}
		return e.state.CreatorIndexAppend(newCreator, coinAddr)
	})
	if err != nil {
		return err
	}
	e.emit(CreatorUpdatedEvent(coinAddr, previous, newCreator))
	return nil
}

// PauseCreation disables the creation state machine until unpaused.
func (e *Engine) PauseCreation(caller [20]byte) error {
	return e.setPaused(caller, true)
}

// UnpauseCreation re-enables the creation state machine.
func (e *Engine) UnpauseCreation(caller [20]byte) error {
	return e.setPaused(caller, false)
}

func (e *Engine) setPaused(caller [20]byte, paused bool) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	settings, err := e.params()
	if err != nil {
		return err
	}
	settings.Paused = paused
	if err := e.state.ParamsPut(settings); err != nil {
		return err
	}
	e.emit(PauseEvent(paused))
	return nil
}

// SetCreationFeeBps updates the creation fee taken from collateral locks.
func (e *Engine) SetCreationFeeBps(caller [20]byte, bps uint64) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if bps > 10_000 {
		return errInvalidFeeConfig
	}
	settings, err := e.params()
	if err != nil {
		return err
	}
	settings.CreationFeeBps = bps
	if err := e.state.ParamsPut(settings); err != nil {
		return err
	}
	e.emit(FeeUpdatedEvent(bps))
	return nil
}

// CreationFeeBps returns the currently effective creation fee.
func (e *Engine) CreationFeeBps() (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	settings, err := e.params()
	if err != nil {
		return 0, err
	}
	return settings.CreationFeeBps, nil
}

// EmergencyWithdraw moves stuck funds off the factory vault. Admin escape
// hatch, independent of the creation state machine.
func (e *Engine) EmergencyWithdraw(caller [20]byte, asset [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}
	err := e.runAtomic(func() error {
		if err := e.debit(asset, e.vault, amount); err != nil {
			return err
		}
		return e.credit(asset, caller, amount)
	})
	if err != nil {
		return err
	}
	e.emit(EmergencyWithdrawnEvent(asset, caller, amount))
	return nil
}

// GetDataCoin returns the record for the coin.
func (e *Engine) GetDataCoin(coinAddr [20]byte) (*DataCoinRecord, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	record, ok, err := e.state.RecordGet(coinAddr)
	if err != nil {
		return nil, err
	}
	if !ok || record == nil {
		return nil, errRecordNotFound
	}
	return record.Clone(), nil
}

// GetDataCoins pages through every created coin in creation order.
func (e *Engine) GetDataCoins(offset, limit int) ([]*DataCoinRecord, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	coins, err := e.state.CoinIndexList()
	if err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(coins) {
		return nil, nil
	}
	end := len(coins)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	out := make([]*DataCoinRecord, 0, end-offset)
	for _, coin := range coins[offset:end] {
		record, ok, err := e.state.RecordGet(coin)
		if err != nil {
			return nil, err
		}
		if ok && record != nil {
			out = append(out, record.Clone())
		}
	}
	return out, nil
}

// GetDataCoinsByCreator returns the coins a creator currently owns, via
// the secondary index. Coins transferred away are filtered against the
// record's live creator.
func (e *Engine) GetDataCoinsByCreator(creator [20]byte) ([]*DataCoinRecord, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	coins, err := e.state.CreatorIndexList(creator)
	if err != nil {
		return nil, err
	}
	out := make([]*DataCoinRecord, 0, len(coins))
	for _, coin := range coins {
		record, ok, err := e.state.RecordGet(coin)
		if err != nil {
			return nil, err
		}
		if ok && record != nil && record.Creator == creator {
			out = append(out, record.Clone())
		}
	}
	return out, nil
}

// DataCoinCount returns how many coins the factory has created.
func (e *Engine) DataCoinCount() (int, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	coins, err := e.state.CoinIndexList()
	if err != nil {
		return 0, err
	}
	return len(coins), nil
}

// IsDataCoin reports whether the address is a factory-created coin.
func (e *Engine) IsDataCoin(coinAddr [20]byte) (bool, error) {
	if e == nil || e.state == nil {
		return false, errNilState
	}
	_, ok, err := e.state.RecordGet(coinAddr)
	if err != nil {
		return false, err
	}
	return ok, nil
}

// CanWithdrawLPTokens reports whether the creator could withdraw the
// liquidity receipt right now.
func (e *Engine) CanWithdrawLPTokens(coinAddr [20]byte) (bool, error) {
	if e == nil || e.state == nil {
		return false, errNilState
	}
	record, ok, err := e.state.RecordGet(coinAddr)
	if err != nil {
		return false, err
	}
	if !ok || record == nil {
		return false, errRecordNotFound
	}
	if record.Liquidity != LiquidityStateAdded {
		return false, nil
	}
	if record.LPTokenAmount == nil || record.LPTokenAmount.Sign() == 0 {
		return false, nil
	}
	return e.now() >= record.UnlockAt, nil
}
