package state

import (
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"datacoin/native/factory"
	"datacoin/native/market"
	"datacoin/native/registry"
	"datacoin/native/token"
)

// Stored mirrors of the engine types. RLP carries no signed integers, so
// timestamps and durations travel as uint64.

type storedCoin struct {
	Address            [20]byte
	Name               string
	Symbol             string
	URI                string
	Creator            [20]byte
	MaxSupply          *big.Int
	TotalSupply        *big.Int
	CreatorClaimed     *big.Int
	ContributorsMinted *big.Int
	MintTaxBps         uint64
	CreatorBps         uint64
	CreatorVesting     uint64
	ContributorsBps    uint64
	LiquidityBps       uint64
	Minters            [][20]byte
	CreatedAt          uint64
}

func encodeCoin(coin *token.Coin) ([]byte, error) {
	return rlp.EncodeToBytes(&storedCoin{
		Address:            coin.Address,
		Name:               coin.Name,
		Symbol:             coin.Symbol,
		URI:                coin.URI,
		Creator:            coin.Creator,
		MaxSupply:          coin.MaxSupply,
		TotalSupply:        coin.TotalSupply,
		CreatorClaimed:     coin.CreatorClaimed,
		ContributorsMinted: coin.ContributorsMinted,
		MintTaxBps:         coin.MintTaxBps,
		CreatorBps:         coin.Alloc.CreatorBps,
		CreatorVesting:     uint64(coin.Alloc.CreatorVesting),
		ContributorsBps:    coin.Alloc.ContributorsBps,
		LiquidityBps:       coin.Alloc.LiquidityBps,
		Minters:            coin.Minters,
		CreatedAt:          uint64(coin.CreatedAt),
	})
}

func decodeCoin(raw []byte) (*token.Coin, error) {
	var stored storedCoin
	if err := rlp.DecodeBytes(raw, &stored); err != nil {
		return nil, err
	}
	return &token.Coin{
		Address:            stored.Address,
		Name:               stored.Name,
		Symbol:             stored.Symbol,
		URI:                stored.URI,
		Creator:            stored.Creator,
		MaxSupply:          stored.MaxSupply,
		TotalSupply:        stored.TotalSupply,
		CreatorClaimed:     stored.CreatorClaimed,
		ContributorsMinted: stored.ContributorsMinted,
		MintTaxBps:         stored.MintTaxBps,
		Alloc: token.AllocationConfig{
			CreatorBps:      stored.CreatorBps,
			CreatorVesting:  int64(stored.CreatorVesting),
			ContributorsBps: stored.ContributorsBps,
			LiquidityBps:    stored.LiquidityBps,
		},
		Minters:   stored.Minters,
		CreatedAt: int64(stored.CreatedAt),
	}, nil
}

type storedAsset struct {
	Token              [20]byte
	Active             bool
	MinLockAmount      *big.Int
	BuyTaxBps          uint64
	SellTaxBps         uint64
	MintTaxBps         uint64
	LighthouseShareBps uint64
}

func encodeAsset(cfg *registry.AssetConfig) ([]byte, error) {
	return rlp.EncodeToBytes(&storedAsset{
		Token:              cfg.Token,
		Active:             cfg.Active,
		MinLockAmount:      cfg.MinLockAmount,
		BuyTaxBps:          cfg.BuyTaxBps,
		SellTaxBps:         cfg.SellTaxBps,
		MintTaxBps:         cfg.MintTaxBps,
		LighthouseShareBps: cfg.LighthouseShareBps,
	})
}

func decodeAsset(raw []byte) (*registry.AssetConfig, error) {
	var stored storedAsset
	if err := rlp.DecodeBytes(raw, &stored); err != nil {
		return nil, err
	}
	return &registry.AssetConfig{
		Token:              stored.Token,
		Active:             stored.Active,
		MinLockAmount:      stored.MinLockAmount,
		BuyTaxBps:          stored.BuyTaxBps,
		SellTaxBps:         stored.SellTaxBps,
		MintTaxBps:         stored.MintTaxBps,
		LighthouseShareBps: stored.LighthouseShareBps,
	}, nil
}

type storedPool struct {
	Token              [20]byte
	Collateral         [20]byte
	Address            [20]byte
	Seeder             [20]byte
	TokenReserve       *big.Int
	CollateralReserve  *big.Int
	LPSupply           *big.Int
	FeesCollateral     *big.Int
	FeesToken          *big.Int
	BuyTaxBps          uint64
	SellTaxBps         uint64
	LighthouseShareBps uint64
	CreatedAt          uint64
}

func encodePool(pool *market.Pool) ([]byte, error) {
	return rlp.EncodeToBytes(&storedPool{
		Token:              pool.Token,
		Collateral:         pool.Collateral,
		Address:            pool.Address,
		Seeder:             pool.Seeder,
		TokenReserve:       pool.TokenReserve,
		CollateralReserve:  pool.CollateralReserve,
		LPSupply:           pool.LPSupply,
		FeesCollateral:     pool.FeesCollateral,
		FeesToken:          pool.FeesToken,
		BuyTaxBps:          pool.BuyTaxBps,
		SellTaxBps:         pool.SellTaxBps,
		LighthouseShareBps: pool.LighthouseShareBps,
		CreatedAt:          uint64(pool.CreatedAt),
	})
}

func decodePool(raw []byte) (*market.Pool, error) {
	var stored storedPool
	if err := rlp.DecodeBytes(raw, &stored); err != nil {
		return nil, err
	}
	return &market.Pool{
		Token:              stored.Token,
		Collateral:         stored.Collateral,
		Address:            stored.Address,
		Seeder:             stored.Seeder,
		TokenReserve:       stored.TokenReserve,
		CollateralReserve:  stored.CollateralReserve,
		LPSupply:           stored.LPSupply,
		FeesCollateral:     stored.FeesCollateral,
		FeesToken:          stored.FeesToken,
		BuyTaxBps:          stored.BuyTaxBps,
		SellTaxBps:         stored.SellTaxBps,
		LighthouseShareBps: stored.LighthouseShareBps,
		CreatedAt:          int64(stored.CreatedAt),
	}, nil
}

type storedRecord struct {
	CoinAddress   [20]byte
	PoolAddress   [20]byte
	TokenURI      string
	Creator       [20]byte
	LockToken     [20]byte
	TokensLocked  *big.Int
	FeePaid       *big.Int
	LPTokenAmount *big.Int
	Liquidity     uint8
	CreatedAt     uint64
	UnlockAt      uint64
}

func encodeRecord(record *factory.DataCoinRecord) ([]byte, error) {
	lpAmount := record.LPTokenAmount
	if lpAmount == nil {
		lpAmount = big.NewInt(0)
	}
	return rlp.EncodeToBytes(&storedRecord{
		CoinAddress:   record.CoinAddress,
		PoolAddress:   record.PoolAddress,
		TokenURI:      record.TokenURI,
		Creator:       record.Creator,
		LockToken:     record.LockToken,
		TokensLocked:  record.TokensLocked,
		FeePaid:       record.FeePaid,
		LPTokenAmount: lpAmount,
		Liquidity:     uint8(record.Liquidity),
		CreatedAt:     uint64(record.CreatedAt),
		UnlockAt:      uint64(record.UnlockAt),
	})
}

func decodeRecord(raw []byte) (*factory.DataCoinRecord, error) {
	var stored storedRecord
	if err := rlp.DecodeBytes(raw, &stored); err != nil {
		return nil, err
	}
	return &factory.DataCoinRecord{
		CoinAddress:   stored.CoinAddress,
		PoolAddress:   stored.PoolAddress,
		TokenURI:      stored.TokenURI,
		Creator:       stored.Creator,
		LockToken:     stored.LockToken,
		TokensLocked:  stored.TokensLocked,
		FeePaid:       stored.FeePaid,
		LPTokenAmount: stored.LPTokenAmount,
		Liquidity:     factory.LiquidityState(stored.Liquidity),
		CreatedAt:     int64(stored.CreatedAt),
		UnlockAt:      int64(stored.UnlockAt),
	}, nil
}

type storedParams struct {
	CreationFeeBps uint64
	Paused         bool
}

func encodeParams(params *factory.Params) ([]byte, error) {
	return rlp.EncodeToBytes(&storedParams{
		CreationFeeBps: params.CreationFeeBps,
		Paused:         params.Paused,
	})
}

func decodeParams(raw []byte) (*factory.Params, error) {
	var stored storedParams
	if err := rlp.DecodeBytes(raw, &stored); err != nil {
		return nil, err
	}
	return &factory.Params{CreationFeeBps: stored.CreationFeeBps, Paused: stored.Paused}, nil
}

func encodeIndex(index [][20]byte) ([]byte, error) {
	return rlp.EncodeToBytes(index)
}

func decodeIndex(raw []byte) ([][20]byte, error) {
	var index [][20]byte
	if err := rlp.DecodeBytes(raw, &index); err != nil {
		return nil, err
	}
	return index, nil
}
