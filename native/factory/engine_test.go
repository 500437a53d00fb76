package factory

import (
	"errors"
	"math/big"
	"testing"

	"datacoin/native/common"
	"datacoin/native/market"
	"datacoin/native/registry"
	"datacoin/native/token"
)

// mockState backs all four engines so a creation run exercises the whole
// pipeline against one shared balance table.
type mockState struct {
	coins        map[[20]byte]*token.Coin
	assets       map[[20]byte]*registry.AssetConfig
	assetIndex   [][20]byte
	pools        map[[20]byte]*market.Pool
	records      map[[20]byte]*DataCoinRecord
	coinIndex    [][20]byte
	creatorIndex map[[20]byte][][20]byte
	params       *Params
	balances     map[string]*big.Int
}

func newMockState() *mockState {
	return &mockState{
		coins:        make(map[[20]byte]*token.Coin),
		assets:       make(map[[20]byte]*registry.AssetConfig),
		pools:        make(map[[20]byte]*market.Pool),
		records:      make(map[[20]byte]*DataCoinRecord),
		creatorIndex: make(map[[20]byte][][20]byte),
		balances:     make(map[string]*big.Int),
	}
}

func balanceKey(asset [20]byte, holder [20]byte) string {
	return string(append(append([]byte{}, asset[:]...), holder[:]...))
}

func (m *mockState) CoinGet(addr [20]byte) (*token.Coin, bool, error) {
	coin, ok := m.coins[addr]
	if !ok {
		return nil, false, nil
	}
	return coin.Clone(), true, nil
}

func (m *mockState) CoinPut(coin *token.Coin) error {
	m.coins[coin.Address] = coin.Clone()
	return nil
}

func (m *mockState) AssetGet(tokenAddr [20]byte) (*registry.AssetConfig, bool, error) {
	cfg, ok := m.assets[tokenAddr]
	if !ok {
		return nil, false, nil
	}
	return cfg.Clone(), true, nil
}

func (m *mockState) AssetPut(cfg *registry.AssetConfig) error {
	m.assets[cfg.Token] = cfg.Clone()
	return nil
}

func (m *mockState) AssetIndexAppend(tokenAddr [20]byte) error {
	m.assetIndex = append(m.assetIndex, tokenAddr)
	return nil
}

func (m *mockState) AssetIndexList() ([][20]byte, error) {
	return append([][20]byte{}, m.assetIndex...), nil
}

func (m *mockState) PoolGet(tokenAddr [20]byte) (*market.Pool, bool, error) {
	pool, ok := m.pools[tokenAddr]
	if !ok {
		return nil, false, nil
	}
	return pool.Clone(), true, nil
}

func (m *mockState) PoolPut(pool *market.Pool) error {
	m.pools[pool.Token] = pool.Clone()
	return nil
}

func (m *mockState) RecordGet(coin [20]byte) (*DataCoinRecord, bool, error) {
	record, ok := m.records[coin]
	if !ok {
		return nil, false, nil
	}
	return record.Clone(), true, nil
}

func (m *mockState) RecordPut(record *DataCoinRecord) error {
	m.records[record.CoinAddress] = record.Clone()
	return nil
}

func (m *mockState) CoinIndexAppend(coin [20]byte) error {
	m.coinIndex = append(m.coinIndex, coin)
	return nil
}

func (m *mockState) CoinIndexList() ([][20]byte, error) {
	return append([][20]byte{}, m.coinIndex...), nil
}

func (m *mockState) CreatorIndexAppend(creator [20]byte, coin [20]byte) error {
	m.creatorIndex[creator] = append(m.creatorIndex[creator], coin)
	return nil
}

func (m *mockState) CreatorIndexList(creator [20]byte) ([][20]byte, error) {
	return append([][20]byte{}, m.creatorIndex[creator]...), nil
}

func (m *mockState) ParamsGet() (*Params, bool, error) {
	if m.params == nil {
		return nil, false, nil
	}
	clone := *m.params
	return &clone, true, nil
}

func (m *mockState) ParamsPut(params *Params) error {
	clone := *params
	m.params = &clone
	return nil
}

func (m *mockState) BalanceGet(asset [20]byte, holder [20]byte) (*big.Int, error) {
	if balance, ok := m.balances[balanceKey(asset, holder)]; ok {
		return new(big.Int).Set(balance), nil
	}
	return big.NewInt(0), nil
}

func (m *mockState) BalancePut(asset [20]byte, holder [20]byte, amount *big.Int) error {
	m.balances[balanceKey(asset, holder)] = new(big.Int).Set(amount)
	return nil
}

func (m *mockState) setBalance(asset [20]byte, holder [20]byte, amount int64) {
	m.balances[balanceKey(asset, holder)] = big.NewInt(amount)
}

func (m *mockState) balance(asset [20]byte, holder [20]byte) *big.Int {
	if balance, ok := m.balances[balanceKey(asset, holder)]; ok {
		return new(big.Int).Set(balance)
	}
	return big.NewInt(0)
}

func addr(last byte) [20]byte {
	var out [20]byte
	out[19] = last
	return out
}

var (
	admin    = addr(0xAD)
	creator  = addr(0x01)
	outsider = addr(0x02)
	usdc     = addr(0xA1)
	treasury = addr(0xEE)
)

const (
	vestingYear  = int64(365 * 86_400)
	lockDuration = int64(600)
	startTime    = int64(1_000)
)

func newFixture(t *testing.T) (*mockState, *Engine, *market.Engine, *int64) {
	t.Helper()
	state := newMockState()
	now := startTime
	nowFn := func() int64 { return now }

	authority := common.NewAuthority()
	authority.Grant(common.CapabilityAdmin, admin)

	ledger := token.NewEngine()
	ledger.SetState(state)
	ledger.SetNowFunc(nowFn)
	ledger.SetTreasury(treasury)

	assets := registry.NewEngine()
	assets.SetState(state)
	assets.SetAuthority(authority)
	if _, err := assets.AddAsset(admin, registry.AssetConfig{
		Token:              usdc,
		MinLockAmount:      big.NewInt(5),
		BuyTaxBps:          300,
		SellTaxBps:         300,
		MintTaxBps:         100,
		LighthouseShareBps: 5_000,
	}); err != nil {
		t.Fatalf("add asset failed: %v", err)
	}

	pools := market.NewEngine()
	pools.SetState(state)
	pools.SetNowFunc(nowFn)
	pools.SetTreasury(treasury)

	engine := NewEngine()
	engine.SetState(state)
	engine.SetAuthority(authority)
	engine.SetLedger(ledger)
	engine.SetRegistry(assets)
	engine.SetMarket(pools)
	engine.SetNowFunc(nowFn)
	engine.SetTreasury(treasury)
	engine.SetMaxSupply(big.NewInt(1_000_000))
	engine.SetLockDuration(lockDuration)
	return state, engine, pools, &now
}

func createParams(salt byte) CreateParams {
	var s [32]byte
	s[31] = salt
	return CreateParams{
		Name:            "Weather Feed",
		Symbol:          "WTHR",
		TokenURI:        "ipfs://weather-feed",
		Creator:         creator,
		CreatorBps:      2_000,
		VestingDuration: vestingYear,
		ContributorsBps: 5_000,
		LiquidityBps:    3_000,
		LockToken:       usdc,
		LockAmount:      big.NewInt(1_000),
		Salt:            s,
	}
}

func TestCreateDataCoinLifecycle(t *testing.T) {
	state, engine, pools, _ := newFixture(t)
	state.setBalance(usdc, creator, 1_000)

	record, err := engine.CreateDataCoin(creator, createParams(1))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if record.Liquidity != LiquidityStateAdded {
		t.Fatalf("liquidity state = %s, want liquidityAdded", record.Liquidity)
	}
	if record.TokensLocked.Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("tokens locked = %s, want 1000", record.TokensLocked)
	}
	// Default fee 500 bps of 1000.
	if record.FeePaid.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("fee paid = %s, want 50", record.FeePaid)
	}
	if got := state.balance(usdc, treasury); got.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("treasury fee = %s, want 50", got)
	}
	if record.UnlockAt != startTime+lockDuration {
		t.Fatalf("unlock at = %d, want %d", record.UnlockAt, startTime+lockDuration)
	}

	pool, err := pools.PoolState(record.CoinAddress)
	if err != nil {
		t.Fatalf("pool lookup failed: %v", err)
	}
	// Liquidity share 3000 bps of 1_000_000 against the post-fee lock.
	if pool.TokenReserve.Cmp(big.NewInt(300_000)) != 0 {
		t.Fatalf("token reserve = %s, want 300000", pool.TokenReserve)
	}
	if pool.CollateralReserve.Cmp(big.NewInt(950)) != 0 {
		t.Fatalf("collateral reserve = %s, want 950", pool.CollateralReserve)
	}
	wantLP := new(big.Int).Mul(big.NewInt(300_000), big.NewInt(950))
	wantLP.Sqrt(wantLP)
	if record.LPTokenAmount.Cmp(wantLP) != 0 {
		t.Fatalf("lp amount = %s, want %s", record.LPTokenAmount, wantLP)
	}
	if got := state.balance(record.PoolAddress, engine.VaultAddress()); got.Cmp(wantLP) != 0 {
		t.Fatalf("vault lp receipt = %s, want %s", got, wantLP)
	}

	if ok, err := engine.IsDataCoin(record.CoinAddress); err != nil || !ok {
		t.Fatalf("IsDataCoin = %v, %v", ok, err)
	}
	if count, err := engine.DataCoinCount(); err != nil || count != 1 {
		t.Fatalf("DataCoinCount = %d, %v", count, err)
	}
}

func TestCreateDataCoinValidation(t *testing.T) {
	state, engine, _, _ := newFixture(t)
	state.setBalance(usdc, creator, 10_000)

	bad := createParams(1)
	bad.ContributorsBps = 4_000
	if _, err := engine.CreateDataCoin(creator, bad); err == nil {
		t.Fatal("expected allocation error for sum != 10000")
	}

	unapproved := createParams(2)
	unapproved.LockToken = addr(0xBB)
	if _, err := engine.CreateDataCoin(creator, unapproved); !errors.Is(err, errAssetNotApproved) {
		t.Fatalf("expected errAssetNotApproved, got %v", err)
	}

	short := createParams(3)
	short.LockAmount = big.NewInt(4)
	if _, err := engine.CreateDataCoin(creator, short); !errors.Is(err, errInsufficientLock) {
		t.Fatalf("expected errInsufficientLock, got %v", err)
	}

	if _, err := engine.CreateDataCoin(creator, createParams(4)); err != nil {
		t.Fatalf("valid create failed: %v", err)
	}
	if _, err := engine.CreateDataCoin(creator, createParams(4)); !errors.Is(err, errCoinExists) {
		t.Fatalf("expected errCoinExists on duplicate salt, got %v", err)
	}
}

func TestCreateDataCoinRequiresFunds(t *testing.T) {
	state, engine, _, _ := newFixture(t)
	state.setBalance(usdc, creator, 500)

	if _, err := engine.CreateDataCoin(creator, createParams(1)); !errors.Is(err, errInsufficientBalance) {
		t.Fatalf("expected errInsufficientBalance, got %v", err)
	}
	if count, _ := engine.DataCoinCount(); count != 0 {
		t.Fatal("failed create left a record behind")
	}
}

func TestCreationPauseGate(t *testing.T) {
	state, engine, _, _ := newFixture(t)
	state.setBalance(usdc, creator, 10_000)

	if err := engine.PauseCreation(outsider); !errors.Is(err, errNotAdmin) {
		t.Fatalf("expected errNotAdmin, got %v", err)
	}
	if err := engine.PauseCreation(admin); err != nil {
		t.Fatalf("pause failed: %v", err)
	}
	if _, err := engine.CreateDataCoin(creator, createParams(1)); !errors.Is(err, common.ErrModulePaused) {
		t.Fatalf("expected ErrModulePaused, got %v", err)
	}
	if err := engine.UnpauseCreation(admin); err != nil {
		t.Fatalf("unpause failed: %v", err)
	}
	if _, err := engine.CreateDataCoin(creator, createParams(1)); err != nil {
		t.Fatalf("create after unpause failed: %v", err)
	}
}

func TestWithdrawLPTokensLifecycle(t *testing.T) {
	state, engine, _, now := newFixture(t)
	state.setBalance(usdc, creator, 1_000)

	record, err := engine.CreateDataCoin(creator, createParams(1))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if ok, err := engine.CanWithdrawLPTokens(record.CoinAddress); err != nil || ok {
		t.Fatalf("CanWithdrawLPTokens before unlock = %v, %v", ok, err)
	}
	if _, err := engine.WithdrawLPTokens(creator, record.CoinAddress); !errors.Is(err, errLPStillLocked) {
		t.Fatalf("expected errLPStillLocked, got %v", err)
	}
	if _, err := engine.WithdrawLPTokens(outsider, record.CoinAddress); !errors.Is(err, errNotCreator) {
		t.Fatalf("expected errNotCreator, got %v", err)
	}

	*now = record.UnlockAt
	if ok, err := engine.CanWithdrawLPTokens(record.CoinAddress); err != nil || !ok {
		t.Fatalf("CanWithdrawLPTokens at unlock = %v, %v", ok, err)
	}
	amount, err := engine.WithdrawLPTokens(creator, record.CoinAddress)
	if err != nil {
		t.Fatalf("withdraw failed: %v", err)
	}
	if amount.Cmp(record.LPTokenAmount) != 0 {
		t.Fatalf("withdrawn = %s, want %s", amount, record.LPTokenAmount)
	}
	if got := state.balance(record.PoolAddress, creator); got.Cmp(amount) != 0 {
		t.Fatalf("creator lp balance = %s, want %s", got, amount)
	}
	if got := state.balance(record.PoolAddress, engine.VaultAddress()); got.Sign() != 0 {
		t.Fatalf("vault still holds %s lp", got)
	}

	if _, err := engine.WithdrawLPTokens(creator, record.CoinAddress); !errors.Is(err, errLPAlreadyWithdrawn) {
		t.Fatalf("expected errLPAlreadyWithdrawn, got %v", err)
	}
	if ok, _ := engine.CanWithdrawLPTokens(record.CoinAddress); ok {
		t.Fatal("CanWithdrawLPTokens true after withdrawal")
	}
}

func TestUpdateDataCoinCreator(t *testing.T) {
	state, engine, _, now := newFixture(t)
	state.setBalance(usdc, creator, 1_000)

	record, err := engine.CreateDataCoin(creator, createParams(1))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := engine.UpdateDataCoinCreator(outsider, record.CoinAddress, outsider); !errors.Is(err, errNotAdmin) {
		t.Fatalf("expected errNotAdmin, got %v", err)
	}
	if err := engine.UpdateDataCoinCreator(admin, record.CoinAddress, outsider); err != nil {
		t.Fatalf("creator transfer failed: %v", err)
	}

	byOld, err := engine.GetDataCoinsByCreator(creator)
	if err != nil || len(byOld) != 0 {
		t.Fatalf("old creator still owns %d coins (%v)", len(byOld), err)
	}
	byNew, err := engine.GetDataCoinsByCreator(outsider)
	if err != nil || len(byNew) != 1 {
		t.Fatalf("new creator owns %d coins (%v)", len(byNew), err)
	}

	// Withdrawal authority follows the new creator.
	*now = record.UnlockAt
	if _, err := engine.WithdrawLPTokens(creator, record.CoinAddress); !errors.Is(err, errNotCreator) {
		t.Fatalf("expected errNotCreator for old creator, got %v", err)
	}
	if _, err := engine.WithdrawLPTokens(outsider, record.CoinAddress); err != nil {
		t.Fatalf("new creator withdraw failed: %v", err)
	}
}

func TestSetCreationFeeBps(t *testing.T) {
	state, engine, _, _ := newFixture(t)
	state.setBalance(usdc, creator, 1_000)

	if err := engine.SetCreationFeeBps(admin, 10_001); !errors.Is(err, errInvalidFeeConfig) {
		t.Fatalf("expected errInvalidFeeConfig, got %v", err)
	}
	if err := engine.SetCreationFeeBps(admin, 1_000); err != nil {
		t.Fatalf("fee update failed: %v", err)
	}
	if fee, err := engine.CreationFeeBps(); err != nil || fee != 1_000 {
		t.Fatalf("CreationFeeBps = %d, %v", fee, err)
	}

	record, err := engine.CreateDataCoin(creator, createParams(1))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if record.FeePaid.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("fee paid = %s, want 100", record.FeePaid)
	}
}

func TestSecondPoolSeedRejected(t *testing.T) {
	state, engine, pools, _ := newFixture(t)
	state.setBalance(usdc, creator, 1_000)

	record, err := engine.CreateDataCoin(creator, createParams(1))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := pools.InitPool(creator, market.InitPoolParams{
		Token:            record.CoinAddress,
		Collateral:       usdc,
		Seeder:           creator,
		TokenAmount:      big.NewInt(1),
		CollateralAmount: big.NewInt(1),
	}); err == nil {
		t.Fatal("expected second pool seed to fail")
	}
}

func TestEmergencyWithdraw(t *testing.T) {
	state, engine, _, _ := newFixture(t)
	state.setBalance(usdc, engine.VaultAddress(), 77)

	if err := engine.EmergencyWithdraw(outsider, usdc, big.NewInt(77)); !errors.Is(err, errNotAdmin) {
		t.Fatalf("expected errNotAdmin, got %v", err)
	}
	if err := engine.EmergencyWithdraw(admin, usdc, big.NewInt(100)); !errors.Is(err, errInsufficientBalance) {
		t.Fatalf("expected errInsufficientBalance, got %v", err)
	}
	if err := engine.EmergencyWithdraw(admin, usdc, big.NewInt(77)); err != nil {
		t.Fatalf("emergency withdraw failed: %v", err)
	}
	if got := state.balance(usdc, admin); got.Cmp(big.NewInt(77)) != 0 {
		t.Fatalf("admin balance = %s, want 77", got)
	}
}

func TestGetDataCoinsPagination(t *testing.T) {
	state, engine, _, _ := newFixture(t)
	state.setBalance(usdc, creator, 10_000)

	for salt := byte(1); salt <= 3; salt++ {
		if _, err := engine.CreateDataCoin(creator, createParams(salt)); err != nil {
			t.Fatalf("create %d failed: %v", salt, err)
		}
	}
	page, err := engine.GetDataCoins(0, 2)
	if err != nil || len(page) != 2 {
		t.Fatalf("first page = %d records (%v)", len(page), err)
	}
	page, err = engine.GetDataCoins(2, 2)
	if err != nil || len(page) != 1 {
		t.Fatalf("second page = %d records (%v)", len(page), err)
	}
	page, err = engine.GetDataCoins(5, 2)
	if err != nil || len(page) != 0 {
		t.Fatalf("overflow page = %d records (%v)", len(page), err)
	}
	if count, err := engine.DataCoinCount(); err != nil || count != 3 {
		t.Fatalf("DataCoinCount = %d, %v", count, err)
	}
}
