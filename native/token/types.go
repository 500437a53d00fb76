package token

import "math/big"

// AllocationConfig captures the fixed supply split for a coin in basis
// points. The config is immutable once the coin is created.
type AllocationConfig struct {
	CreatorBps      uint64 `json:"creatorBps"`
	CreatorVesting  int64  `json:"creatorVesting"`
	ContributorsBps uint64 `json:"contributorsBps"`
	LiquidityBps    uint64 `json:"liquidityBps"`
}

// AllocationBands bound the individual allocation shares. Creator and
// contributors shares are bounded on both sides while liquidity only carries
// a floor so every coin launches with a tradeable pool.
type AllocationBands struct {
	CreatorMinBps      uint64
	CreatorMaxBps      uint64
	ContributorsMinBps uint64
	ContributorsMaxBps uint64
	LiquidityMinBps    uint64
	VestingMin         int64
	VestingMax         int64
}

// DefaultAllocationBands returns the protocol default bands.
func DefaultAllocationBands() AllocationBands {
	return AllocationBands{
		CreatorMinBps:      0,
		CreatorMaxBps:      5_000,
		ContributorsMinBps: 0,
		ContributorsMaxBps: 8_000,
		LiquidityMinBps:    500,
		VestingMin:         86_400,
		VestingMax:         4 * 365 * 86_400,
	}
}

// Coin is the per-token ledger: identity, the fixed supply cap, the
// allocation config and the running vesting and mint counters.
type Coin struct {
	Address            [20]byte         `json:"address"`
	Name               string           `json:"name"`
	Symbol             string           `json:"symbol"`
	URI                string           `json:"uri"`
	Creator            [20]byte         `json:"creator"`
	MaxSupply          *big.Int         `json:"maxSupply"`
	TotalSupply        *big.Int         `json:"totalSupply"`
	CreatorClaimed     *big.Int         `json:"creatorClaimed"`
	ContributorsMinted *big.Int         `json:"contributorsMinted"`
	MintTaxBps         uint64           `json:"mintTaxBps"`
	Alloc              AllocationConfig `json:"alloc"`
	Minters            [][20]byte       `json:"minters"`
	CreatedAt          int64            `json:"createdAt"`
}

// Clone returns a deep copy so callers can mutate the copy freely.
func (c *Coin) Clone() *Coin {
	if c == nil {
		return nil
	}
	clone := *c
	if c.MaxSupply != nil {
		clone.MaxSupply = new(big.Int).Set(c.MaxSupply)
	}
	if c.TotalSupply != nil {
		clone.TotalSupply = new(big.Int).Set(c.TotalSupply)
	}
	if c.CreatorClaimed != nil {
		clone.CreatorClaimed = new(big.Int).Set(c.CreatorClaimed)
	}
	if c.ContributorsMinted != nil {
		clone.ContributorsMinted = new(big.Int).Set(c.ContributorsMinted)
	}
	if len(c.Minters) > 0 {
		clone.Minters = make([][20]byte, len(c.Minters))
		copy(clone.Minters, c.Minters)
	}
	return &clone
}

// HasMinter reports whether the address holds the coin's minting capability.
func (c *Coin) HasMinter(addr [20]byte) bool {
	if c == nil {
		return false
	}
	for _, minter := range c.Minters {
		if minter == addr {
			return true
		}
	}
	return false
}

// CoinSpec bundles the parameters required to initialise a coin ledger. The
// liquidity share of the supply is minted to LiquidityRecipient as part of
// creation so the factory can seed the exchange pool in the same operation.
type CoinSpec struct {
	Address            [20]byte
	Name               string
	Symbol             string
	URI                string
	Creator            [20]byte
	MaxSupply          *big.Int
	MintTaxBps         uint64
	Alloc              AllocationConfig
	LiquidityRecipient [20]byte
}
