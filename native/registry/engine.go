package registry

import (
	"errors"
	"math/big"

	"datacoin/core/events"
	"datacoin/core/types"
	"datacoin/native/common"
)

var (
	errNilState         = errors.New("registry engine: state not configured")
	errNotAdmin         = errors.New("registry engine: caller lacks admin capability")
	errZeroAddress      = errors.New("registry engine: zero address")
	errTokenExists      = errors.New("registry engine: token already registered")
	errTokenNotFound    = errors.New("registry engine: token not registered")
	errInvalidTaxConfig = errors.New("registry engine: tax rate exceeds 10000 bps")
	errInvalidMinLock   = errors.New("registry engine: min lock amount must not be negative")
)

type engineState interface {
	AssetGet(token [20]byte) (*AssetConfig, bool, error)
	AssetPut(cfg *AssetConfig) error
	AssetIndexAppend(token [20]byte) error
	AssetIndexList() ([][20]byte, error)
}

// Engine manages the registry of collateral assets approved for coin
// creation. All mutations require the protocol admin capability.
type Engine struct {
	state     engineState
	emitter   events.Emitter
	authority *common.Authority
}

// NewEngine constructs a registry engine with default dependencies.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}, authority: common.NewAuthority()}
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

// SetAuthority configures the capability table consulted for admin checks.
func (e *Engine) SetAuthority(authority *common.Authority) {
	if authority == nil {
		return
	}
	e.authority = authority
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || evt == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(WrapEvent(evt))
}

func (e *Engine) requireAdmin(caller [20]byte) error {
	if e.authority == nil || !e.authority.Allowed(common.CapabilityAdmin, caller) {
		return errNotAdmin
	}
	return nil
}

func isZeroAddress(addr [20]byte) bool {
	var zero [20]byte
	return addr == zero
}

func validateConfig(cfg *AssetConfig) error {
	if cfg.BuyTaxBps > 10_000 || cfg.SellTaxBps > 10_000 || cfg.MintTaxBps > 10_000 || cfg.LighthouseShareBps > 10_000 {
		return errInvalidTaxConfig
	}
	if cfg.MinLockAmount == nil || cfg.MinLockAmount.Sign() < 0 {
		return errInvalidMinLock
	}
	return nil
}

// AddAsset approves a collateral asset for coin creation. Registration is
// rejected when the token is already known.
func (e *Engine) AddAsset(caller [20]byte, cfg AssetConfig) (*AssetConfig, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := e.requireAdmin(caller); err != nil {
		return nil, err
	}
	if isZeroAddress(cfg.Token) {
		return nil, errZeroAddress
	}
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	if _, ok, err := e.state.AssetGet(cfg.Token); err != nil {
		return nil, err
	} else if ok {
		return nil, errTokenExists
	}
	stored := cfg.Clone()
	stored.Active = true
	if err := e.state.AssetPut(stored); err != nil {
		return nil, err
	}
	if err := e.state.AssetIndexAppend(stored.Token); err != nil {
		return nil, err
	}
	e.emit(AssetAddedEvent(stored))
	return stored.Clone(), nil
}

// UpdateAsset adjusts an existing asset config, including toggling Active.
// The update never touches collateral already locked by created coins.
func (e *Engine) UpdateAsset(caller [20]byte, cfg AssetConfig) (*AssetConfig, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := e.requireAdmin(caller); err != nil {
		return nil, err
	}
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	if _, ok, err := e.state.AssetGet(cfg.Token); err != nil {
		return nil, err
	} else if !ok {
		return nil, errTokenNotFound
	}
	stored := cfg.Clone()
	if err := e.state.AssetPut(stored); err != nil {
		return nil, err
	}
	e.emit(AssetUpdatedEvent(stored))
	return stored.Clone(), nil
}

// RemoveAsset deactivates the asset. Historical records stay intact; coins
// already created against the asset remain valid.
func (e *Engine) RemoveAsset(caller [20]byte, token [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	cfg, ok, err := e.state.AssetGet(token)
	if err != nil {
		return err
	}
	if !ok || cfg == nil {
		return errTokenNotFound
	}
	cfg.Active = false
	if err := e.state.AssetPut(cfg); err != nil {
		return err
	}
	e.emit(AssetRemovedEvent(token))
	return nil
}

// IsTokenApproved reports whether the asset is registered and active.
func (e *Engine) IsTokenApproved(token [20]byte) (bool, error) {
	if e == nil || e.state == nil {
		return false, errNilState
	}
	cfg, ok, err := e.state.AssetGet(token)
	if err != nil {
		return false, err
	}
	return ok && cfg != nil && cfg.Active, nil
}

// GetAssetConfig returns the stored config for the asset.
func (e *Engine) GetAssetConfig(token [20]byte) (*AssetConfig, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	cfg, ok, err := e.state.AssetGet(token)
	if err != nil {
		return nil, err
	}
	if !ok || cfg == nil {
		return nil, errTokenNotFound
	}
	return cfg.Clone(), nil
}

// MinLockAmount returns the minimum collateral lock for the asset.
func (e *Engine) MinLockAmount(token [20]byte) (*big.Int, error) {
	cfg, err := e.GetAssetConfig(token)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(cfg.MinLockAmount), nil
}

// GetTokenTaxRates returns the trading tax view for the asset.
func (e *Engine) GetTokenTaxRates(token [20]byte) (TaxRates, error) {
	cfg, err := e.GetAssetConfig(token)
	if err != nil {
		return TaxRates{}, err
	}
	return TaxRates{
		BuyTaxBps:          cfg.BuyTaxBps,
		SellTaxBps:         cfg.SellTaxBps,
		MintTaxBps:         cfg.MintTaxBps,
		LighthouseShareBps: cfg.LighthouseShareBps,
	}, nil
}

// ApprovedAssets lists the configs of all currently active assets.
func (e *Engine) ApprovedAssets() ([]*AssetConfig, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	tokens, err := e.state.AssetIndexList()
	if err != nil {
		return nil, err
	}
	out := make([]*AssetConfig, 0, len(tokens))
	for _, token := range tokens {
		cfg, ok, err := e.state.AssetGet(token)
		if err != nil {
			return nil, err
		}
		if ok && cfg != nil && cfg.Active {
			out = append(out, cfg.Clone())
		}
	}
	return out, nil
}
