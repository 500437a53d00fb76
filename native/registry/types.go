package registry

import "math/big"

// AssetConfig captures the per-collateral-asset parameters used during coin
// creation and pool trading. Admin updates never retroactively affect
// collateral already locked by created coins.
type AssetConfig struct {
	Token              [20]byte `json:"token"`
	Active             bool     `json:"active"`
	MinLockAmount      *big.Int `json:"minLockAmount"`
	BuyTaxBps          uint64   `json:"buyTaxBps"`
	SellTaxBps         uint64   `json:"sellTaxBps"`
	MintTaxBps         uint64   `json:"mintTaxBps"`
	LighthouseShareBps uint64   `json:"lighthouseShareBps"`
}

// Clone returns a deep copy of the asset config.
func (c *AssetConfig) Clone() *AssetConfig {
	if c == nil {
		return nil
	}
	clone := *c
	if c.MinLockAmount != nil {
		clone.MinLockAmount = new(big.Int).Set(c.MinLockAmount)
	} else {
		clone.MinLockAmount = big.NewInt(0)
	}
	return &clone
}

// TaxRates is the read-only view of an asset's trading taxes.
type TaxRates struct {
	BuyTaxBps          uint64 `json:"buyTaxBps"`
	SellTaxBps         uint64 `json:"sellTaxBps"`
	MintTaxBps         uint64 `json:"mintTaxBps"`
	LighthouseShareBps uint64 `json:"lighthouseShareBps"`
}
