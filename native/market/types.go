package market

import "math/big"

// Pool is the constant-product exchange state for one coin. Tax rates are
// snapshotted from the collateral asset config at initialisation so later
// registry updates never reprice existing pools.
type Pool struct {
	Token              [20]byte `json:"token"`
	Collateral         [20]byte `json:"collateral"`
	Address            [20]byte `json:"address"`
	Seeder             [20]byte `json:"seeder"`
	TokenReserve       *big.Int `json:"tokenReserve"`
	CollateralReserve  *big.Int `json:"collateralReserve"`
	LPSupply           *big.Int `json:"lpSupply"`
	FeesCollateral     *big.Int `json:"feesCollateral"`
	FeesToken          *big.Int `json:"feesToken"`
	BuyTaxBps          uint64   `json:"buyTaxBps"`
	SellTaxBps         uint64   `json:"sellTaxBps"`
	LighthouseShareBps uint64   `json:"lighthouseShareBps"`
	CreatedAt          int64    `json:"createdAt"`
}

// Clone returns a deep copy so callers can mutate the copy freely.
func (p *Pool) Clone() *Pool {
	if p == nil {
		return nil
	}
	clone := *p
	if p.TokenReserve != nil {
		clone.TokenReserve = new(big.Int).Set(p.TokenReserve)
	}
	if p.CollateralReserve != nil {
		clone.CollateralReserve = new(big.Int).Set(p.CollateralReserve)
	}
	if p.LPSupply != nil {
		clone.LPSupply = new(big.Int).Set(p.LPSupply)
	}
	if p.FeesCollateral != nil {
		clone.FeesCollateral = new(big.Int).Set(p.FeesCollateral)
	}
	if p.FeesToken != nil {
		clone.FeesToken = new(big.Int).Set(p.FeesToken)
	}
	return &clone
}

// InitPoolParams bundles the one-shot pool seeding request.
type InitPoolParams struct {
	Token              [20]byte
	Collateral         [20]byte
	Seeder             [20]byte
	TokenAmount        *big.Int
	CollateralAmount   *big.Int
	BuyTaxBps          uint64
	SellTaxBps         uint64
	LighthouseShareBps uint64
}
