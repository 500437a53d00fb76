package state

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"datacoin/native/common"
	"datacoin/native/factory"
	"datacoin/native/market"
	"datacoin/native/registry"
	"datacoin/native/token"
	"datacoin/storage"
)

func addr(last byte) [20]byte {
	var out [20]byte
	out[19] = last
	return out
}

func TestCoinRoundTrip(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	coin := &token.Coin{
		Address:            addr(1),
		Name:               "Weather Feed",
		Symbol:             "WTHR",
		URI:                "ipfs://weather-feed",
		Creator:            addr(2),
		MaxSupply:          big.NewInt(1_000_000),
		TotalSupply:        big.NewInt(300_000),
		CreatorClaimed:     big.NewInt(0),
		ContributorsMinted: big.NewInt(0),
		MintTaxBps:         100,
		Alloc: token.AllocationConfig{
			CreatorBps:      2_000,
			CreatorVesting:  365 * 86_400,
			ContributorsBps: 5_000,
			LiquidityBps:    3_000,
		},
		Minters:   [][20]byte{addr(3)},
		CreatedAt: 1_000,
	}
	require.NoError(t, m.CoinPut(coin))

	loaded, ok, err := m.CoinGet(coin.Address)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, coin, loaded)

	_, ok, err = m.CoinGet(addr(9))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestAssetRoundTripAndIndex(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	cfg := &registry.AssetConfig{
		Token:              addr(1),
		Active:             true,
		MinLockAmount:      big.NewInt(5),
		BuyTaxBps:          300,
		SellTaxBps:         300,
		MintTaxBps:         100,
		LighthouseShareBps: 5_000,
	}
	require.NoError(t, m.AssetPut(cfg))
	require.NoError(t, m.AssetIndexAppend(cfg.Token))

	loaded, ok, err := m.AssetGet(cfg.Token)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, cfg, loaded)

	index, err := m.AssetIndexList()
	require.NoError(t, err)
	require.Equal(t, [][20]byte{cfg.Token}, index)
}

func TestRecordRoundTrip(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	record := &factory.DataCoinRecord{
		CoinAddress:   addr(1),
		PoolAddress:   addr(2),
		TokenURI:      "ipfs://weather-feed",
		Creator:       addr(3),
		LockToken:     addr(4),
		TokensLocked:  big.NewInt(1_000),
		FeePaid:       big.NewInt(50),
		LPTokenAmount: big.NewInt(16_881),
		Liquidity:     factory.LiquidityStateAdded,
		CreatedAt:     1_000,
		UnlockAt:      1_600,
	}
	require.NoError(t, m.RecordPut(record))
	require.NoError(t, m.CoinIndexAppend(record.CoinAddress))
	require.NoError(t, m.CreatorIndexAppend(record.Creator, record.CoinAddress))

	loaded, ok, err := m.RecordGet(record.CoinAddress)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, record, loaded)

	coins, err := m.CoinIndexList()
	require.NoError(t, err)
	require.Equal(t, [][20]byte{record.CoinAddress}, coins)

	byCreator, err := m.CreatorIndexList(record.Creator)
	require.NoError(t, err)
	require.Equal(t, [][20]byte{record.CoinAddress}, byCreator)
}

func TestParamsRoundTrip(t *testing.T) {
	m := NewManager(storage.NewMemDB())

	_, ok, err := m.ParamsGet()
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, m.ParamsPut(&factory.Params{CreationFeeBps: 750, Paused: true}))
	params, ok, err := m.ParamsGet()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(750), params.CreationFeeBps)
	require.True(t, params.Paused)
}

func TestBalanceDefaultsToZero(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	balance, err := m.BalanceGet(addr(1), addr(2))
	require.NoError(t, err)
	require.Zero(t, balance.Sign())

	require.NoError(t, m.BalancePut(addr(1), addr(2), big.NewInt(42)))
	balance, err = m.BalanceGet(addr(1), addr(2))
	require.NoError(t, err)
	require.Equal(t, int64(42), balance.Int64())

	require.Error(t, m.BalancePut(addr(1), addr(2), big.NewInt(-1)))
}

func TestAtomicRevertsOnError(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	require.NoError(t, m.BalancePut(addr(1), addr(2), big.NewInt(100)))

	boom := errors.New("boom")
	err := m.Atomic(func() error {
		require.NoError(t, m.BalancePut(addr(1), addr(2), big.NewInt(7)))
		require.NoError(t, m.CoinIndexAppend(addr(5)))
		return boom
	})
	require.ErrorIs(t, err, boom)

	// Pre-existing key restored, fresh key removed.
	balance, err := m.BalanceGet(addr(1), addr(2))
	require.NoError(t, err)
	require.Equal(t, int64(100), balance.Int64())
	coins, err := m.CoinIndexList()
	require.NoError(t, err)
	require.Empty(t, coins)
}

func TestAtomicCommitsOnSuccess(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	require.NoError(t, m.Atomic(func() error {
		return m.BalancePut(addr(1), addr(2), big.NewInt(7))
	}))
	balance, err := m.BalanceGet(addr(1), addr(2))
	require.NoError(t, err)
	require.Equal(t, int64(7), balance.Int64())
}

// TestInitPoolRevertsWhenCollateralShort drives the market engine directly
// over the manager: a seeding attempt that fails on the collateral leg must
// give the already-debited tokens back.
func TestInitPoolRevertsWhenCollateralShort(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	coin := addr(0xC0)
	collateral := addr(0xA1)
	seeder := addr(0x01)

	pools := market.NewEngine()
	pools.SetState(m)

	require.NoError(t, m.BalancePut(coin, seeder, big.NewInt(1_000)))
	require.NoError(t, m.BalancePut(collateral, seeder, big.NewInt(50)))

	_, err := pools.InitPool(seeder, market.InitPoolParams{
		Token:            coin,
		Collateral:       collateral,
		Seeder:           seeder,
		TokenAmount:      big.NewInt(1_000),
		CollateralAmount: big.NewInt(100),
	})
	require.Error(t, err)

	balance, err := m.BalanceGet(coin, seeder)
	require.NoError(t, err)
	require.Equal(t, int64(1_000), balance.Int64())
	balance, err = m.BalanceGet(collateral, seeder)
	require.NoError(t, err)
	require.Equal(t, int64(50), balance.Int64())
	_, ok, err := m.PoolGet(coin)
	require.NoError(t, err)
	require.False(t, ok)
}

// TestBuyRevertsWhenTaxUnroutable covers the swap legs: the trader is
// debited before tax routing, so a misconfigured treasury must roll the
// debit back.
func TestBuyRevertsWhenTaxUnroutable(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	coin := addr(0xC0)
	collateral := addr(0xA1)
	seeder := addr(0x01)
	trader := addr(0x02)

	pools := market.NewEngine()
	pools.SetState(m)
	// No treasury configured; the pool still snapshots a buy tax.
	require.NoError(t, m.BalancePut(coin, seeder, big.NewInt(1_000)))
	require.NoError(t, m.BalancePut(collateral, seeder, big.NewInt(100)))
	_, err := pools.InitPool(seeder, market.InitPoolParams{
		Token:            coin,
		Collateral:       collateral,
		Seeder:           seeder,
		TokenAmount:      big.NewInt(1_000),
		CollateralAmount: big.NewInt(100),
		BuyTaxBps:        300,
	})
	require.NoError(t, err)

	require.NoError(t, m.BalancePut(collateral, trader, big.NewInt(100)))
	_, err = pools.Buy(trader, coin, big.NewInt(100), big.NewInt(0))
	require.Error(t, err)

	balance, err := m.BalanceGet(collateral, trader)
	require.NoError(t, err)
	require.Equal(t, int64(100), balance.Int64())
	pool, ok, err := m.PoolGet(coin)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(1_000), pool.TokenReserve.Int64())
	require.Equal(t, int64(100), pool.CollateralReserve.Int64())
}

// TestFullCreationPipeline wires every engine to one manager over MemDB and
// walks a creation, a trade and the receipt withdrawal end to end.
func TestFullCreationPipeline(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	now := int64(1_000)
	nowFn := func() int64 { return now }

	admin := addr(0xAD)
	creator := addr(0x01)
	trader := addr(0x02)
	usdc := addr(0xA1)
	treasury := addr(0xEE)

	authority := common.NewAuthority()
	authority.Grant(common.CapabilityAdmin, admin)

	ledger := token.NewEngine()
	ledger.SetState(m)
	ledger.SetNowFunc(nowFn)
	ledger.SetTreasury(treasury)

	assets := registry.NewEngine()
	assets.SetState(m)
	assets.SetAuthority(authority)
	_, err := assets.AddAsset(admin, registry.AssetConfig{
		Token:         usdc,
		MinLockAmount: big.NewInt(5),
		BuyTaxBps:     300,
		SellTaxBps:    300,
	})
	require.NoError(t, err)

	pools := market.NewEngine()
	pools.SetState(m)
	pools.SetNowFunc(nowFn)
	pools.SetTreasury(treasury)

	engine := factory.NewEngine()
	engine.SetState(m)
	engine.SetAuthority(authority)
	engine.SetLedger(ledger)
	engine.SetRegistry(assets)
	engine.SetMarket(pools)
	engine.SetNowFunc(nowFn)
	engine.SetTreasury(treasury)
	engine.SetMaxSupply(big.NewInt(1_000_000))
	engine.SetLockDuration(600)

	require.NoError(t, m.BalancePut(usdc, creator, big.NewInt(1_000)))
	require.NoError(t, m.BalancePut(usdc, trader, big.NewInt(100)))

	record, err := engine.CreateDataCoin(creator, factory.CreateParams{
		Name:            "Weather Feed",
		Symbol:          "WTHR",
		TokenURI:        "ipfs://weather-feed",
		Creator:         creator,
		CreatorBps:      2_000,
		VestingDuration: 365 * 86_400,
		ContributorsBps: 5_000,
		LiquidityBps:    3_000,
		LockToken:       usdc,
		LockAmount:      big.NewInt(1_000),
	})
	require.NoError(t, err)
	require.Equal(t, factory.LiquidityStateAdded, record.Liquidity)

	// Trade against the freshly seeded pool.
	tokenOut, err := pools.Buy(trader, record.CoinAddress, big.NewInt(100), big.NewInt(0))
	require.NoError(t, err)
	require.Positive(t, tokenOut.Sign())
	balance, err := m.BalanceGet(record.CoinAddress, trader)
	require.NoError(t, err)
	require.Equal(t, tokenOut, balance)

	// Receipt withdrawal after the lock elapses.
	now = record.UnlockAt
	amount, err := engine.WithdrawLPTokens(creator, record.CoinAddress)
	require.NoError(t, err)
	require.Equal(t, record.LPTokenAmount, amount)

	// Everything above survived the RLP round trip.
	coin, err := ledger.GetCoin(record.CoinAddress)
	require.NoError(t, err)
	require.Equal(t, "WTHR", coin.Symbol)
	count, err := engine.DataCoinCount()
	require.NoError(t, err)
	require.Equal(t, 1, count)
}
