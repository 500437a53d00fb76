package factory

import "math/big"

// LiquidityState tracks the one-shot liquidity lifecycle of a created coin.
// The only legal transitions are Created -> LiquidityAdded -> Withdrawn.
type LiquidityState uint8

const (
	// LiquidityStateCreated marks a record before its pool is seeded.
	LiquidityStateCreated LiquidityState = iota
	// LiquidityStateAdded marks a record whose pool holds the locked
	// collateral and whose liquidity receipt is time-locked.
	LiquidityStateAdded
	// LiquidityStateWithdrawn marks a record whose receipt was claimed by
	// the creator. Terminal.
	LiquidityStateWithdrawn
)

func (s LiquidityState) String() string {
	switch s {
	case LiquidityStateCreated:
		return "created"
	case LiquidityStateAdded:
		return "liquidityAdded"
	case LiquidityStateWithdrawn:
		return "withdrawn"
	default:
		return "unknown"
	}
}

// DataCoinRecord is the factory's per-coin bookkeeping entry. Identity
// fields are immutable once written; Creator changes only through the admin
// transfer operation.
type DataCoinRecord struct {
	CoinAddress   [20]byte       `json:"coinAddress"`
	PoolAddress   [20]byte       `json:"poolAddress"`
	TokenURI      string         `json:"tokenURI"`
	Creator       [20]byte       `json:"creator"`
	LockToken     [20]byte       `json:"lockToken"`
	TokensLocked  *big.Int       `json:"tokensLocked"`
	FeePaid       *big.Int       `json:"feePaid"`
	LPTokenAmount *big.Int       `json:"lpTokenAmount"`
	Liquidity     LiquidityState `json:"liquidity"`
	CreatedAt     int64          `json:"createdAt"`
	UnlockAt      int64          `json:"unlockAt"`
}

// Clone returns a deep copy so callers can mutate the copy freely.
func (r *DataCoinRecord) Clone() *DataCoinRecord {
	if r == nil {
		return nil
	}
	clone := *r
	if r.TokensLocked != nil {
		clone.TokensLocked = new(big.Int).Set(r.TokensLocked)
	}
	if r.FeePaid != nil {
		clone.FeePaid = new(big.Int).Set(r.FeePaid)
	}
	if r.LPTokenAmount != nil {
		clone.LPTokenAmount = new(big.Int).Set(r.LPTokenAmount)
	}
	return &clone
}

// markLiquidityAdded advances the record out of its initial state exactly
// once.
func (r *DataCoinRecord) markLiquidityAdded(lpAmount *big.Int) error {
	if r.Liquidity != LiquidityStateCreated {
		return errLiquidityAlreadyAdded
	}
	r.Liquidity = LiquidityStateAdded
	r.LPTokenAmount = new(big.Int).Set(lpAmount)
	return nil
}

// markWithdrawn advances the record into its terminal state exactly once,
// enforcing the time lock.
func (r *DataCoinRecord) markWithdrawn(now int64) error {
	switch r.Liquidity {
	case LiquidityStateWithdrawn:
		return errLPAlreadyWithdrawn
	case LiquidityStateCreated:
		return errNoLPTokens
	}
	if r.LPTokenAmount == nil || r.LPTokenAmount.Sign() == 0 {
		return errNoLPTokens
	}
	if now < r.UnlockAt {
		return errLPStillLocked
	}
	r.Liquidity = LiquidityStateWithdrawn
	return nil
}

// Params are the admin-mutable factory settings, persisted alongside the
// coin records.
type Params struct {
	CreationFeeBps uint64 `json:"creationFeeBps"`
	Paused         bool   `json:"paused"`
}

// CreateParams bundles the caller-supplied inputs to coin creation.
type CreateParams struct {
	Name            string
	Symbol          string
	TokenURI        string
	Creator         [20]byte
	CreatorBps      uint64
	VestingDuration int64
	ContributorsBps uint64
	LiquidityBps    uint64
	LockToken       [20]byte
	LockAmount      *big.Int
	Salt            [32]byte
}
