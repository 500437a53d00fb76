package state

import (
	"errors"
	"math/big"
	"sync"

	"datacoin/native/factory"
	"datacoin/native/market"
	"datacoin/native/registry"
	"datacoin/native/token"
	"datacoin/storage"
)

// Manager adapts a key-value database to the state interfaces of every
// engine. Operations are serialized by the surrounding ledger; Atomic
// journals each write inside one operation so a failed operation reverts
// whole-or-nothing.
type Manager struct {
	db storage.Database

	txMu    sync.Mutex
	mu      sync.Mutex
	journal []journalEntry
	inTx    bool
}

type journalEntry struct {
	key     []byte
	prev    []byte
	existed bool
}

// NewManager wraps the database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// Atomic runs fn and, when fn fails, restores every key fn wrote to its
// prior value. Calls made while a journal is already open join it.
func (m *Manager) Atomic(fn func() error) error {
	m.mu.Lock()
	joined := m.inTx
	m.mu.Unlock()
	if joined {
		return fn()
	}

	m.txMu.Lock()
	defer m.txMu.Unlock()
	m.mu.Lock()
	m.inTx = true
	m.journal = nil
	m.mu.Unlock()

	err := fn()

	m.mu.Lock()
	entries := m.journal
	m.journal = nil
	m.inTx = false
	m.mu.Unlock()

	if err != nil {
		for i := len(entries) - 1; i >= 0; i-- {
			entry := entries[i]
			if entry.existed {
				_ = m.db.Put(entry.key, entry.prev)
			} else {
				_ = m.db.Delete(entry.key)
			}
		}
	}
	return err
}

func (m *Manager) setKV(key []byte, value []byte) error {
	m.mu.Lock()
	journaling := m.inTx
	m.mu.Unlock()
	if journaling {
		prev, err := m.db.Get(key)
		existed := err == nil
		if err != nil && !errors.Is(err, storage.ErrKeyNotFound) {
			return err
		}
		m.mu.Lock()
		m.journal = append(m.journal, journalEntry{key: key, prev: prev, existed: existed})
		m.mu.Unlock()
	}
	return m.db.Put(key, value)
}

func (m *Manager) getKV(key []byte) ([]byte, bool, error) {
	value, err := m.db.Get(key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (m *Manager) appendIndex(key []byte, addr [20]byte) error {
	raw, ok, err := m.getKV(key)
	if err != nil {
		return err
	}
	var index [][20]byte
	if ok {
		if index, err = decodeIndex(raw); err != nil {
			return err
		}
	}
	index = append(index, addr)
	encoded, err := encodeIndex(index)
	if err != nil {
		return err
	}
	return m.setKV(key, encoded)
}

func (m *Manager) listIndex(key []byte) ([][20]byte, error) {
	raw, ok, err := m.getKV(key)
	if err != nil || !ok {
		return nil, err
	}
	return decodeIndex(raw)
}

// CoinGet loads a coin ledger.
func (m *Manager) CoinGet(addr [20]byte) (*token.Coin, bool, error) {
	raw, ok, err := m.getKV(coinKey(addr))
	if err != nil || !ok {
		return nil, false, err
	}
	coin, err := decodeCoin(raw)
	if err != nil {
		return nil, false, err
	}
	return coin, true, nil
}

// CoinPut stores a coin ledger.
func (m *Manager) CoinPut(coin *token.Coin) error {
	encoded, err := encodeCoin(coin)
	if err != nil {
		return err
	}
	return m.setKV(coinKey(coin.Address), encoded)
}

// AssetGet loads a collateral asset config.
func (m *Manager) AssetGet(tokenAddr [20]byte) (*registry.AssetConfig, bool, error) {
	raw, ok, err := m.getKV(assetKey(tokenAddr))
	if err != nil || !ok {
		return nil, false, err
	}
	cfg, err := decodeAsset(raw)
	if err != nil {
		return nil, false, err
	}
	return cfg, true, nil
}

// AssetPut stores a collateral asset config.
func (m *Manager) AssetPut(cfg *registry.AssetConfig) error {
	encoded, err := encodeAsset(cfg)
	if err != nil {
		return err
	}
	return m.setKV(assetKey(cfg.Token), encoded)
}

// AssetIndexAppend records a newly registered asset.
func (m *Manager) AssetIndexAppend(tokenAddr [20]byte) error {
	return m.appendIndex(assetIndexKey, tokenAddr)
}

// AssetIndexList returns every registered asset in registration order.
func (m *Manager) AssetIndexList() ([][20]byte, error) {
	return m.listIndex(assetIndexKey)
}

// PoolGet loads an exchange pool.
func (m *Manager) PoolGet(tokenAddr [20]byte) (*market.Pool, bool, error) {
	raw, ok, err := m.getKV(poolKey(tokenAddr))
	if err != nil || !ok {
		return nil, false, err
	}
	pool, err := decodePool(raw)
	if err != nil {
		return nil, false, err
	}
	return pool, true, nil
}

// PoolPut stores an exchange pool.
func (m *Manager) PoolPut(pool *market.Pool) error {
	encoded, err := encodePool(pool)
	if err != nil {
		return err
	}
	return m.setKV(poolKey(pool.Token), encoded)
}

// RecordGet loads a factory coin record.
func (m *Manager) RecordGet(coin [20]byte) (*factory.DataCoinRecord, bool, error) {
	raw, ok, err := m.getKV(recordKey(coin))
	if err != nil || !ok {
		return nil, false, err
	}
	record, err := decodeRecord(raw)
	if err != nil {
		return nil, false, err
	}
	return record, true, nil
}

// RecordPut stores a factory coin record.
func (m *Manager) RecordPut(record *factory.DataCoinRecord) error {
	encoded, err := encodeRecord(record)
	if err != nil {
		return err
	}
	return m.setKV(recordKey(record.CoinAddress), encoded)
}

// CoinIndexAppend records a newly created coin in creation order.
func (m *Manager) CoinIndexAppend(coin [20]byte) error {
	return m.appendIndex(coinIndexKey, coin)
}

// CoinIndexList returns every created coin in creation order.
func (m *Manager) CoinIndexList() ([][20]byte, error) {
	return m.listIndex(coinIndexKey)
}

// CreatorIndexAppend records a coin under its creator.
func (m *Manager) CreatorIndexAppend(creator [20]byte, coin [20]byte) error {
	return m.appendIndex(creatorIndexKey(creator), coin)
}

// CreatorIndexList returns the coins ever recorded under the creator.
func (m *Manager) CreatorIndexList(creator [20]byte) ([][20]byte, error) {
	return m.listIndex(creatorIndexKey(creator))
}

// ParamsGet loads the factory settings.
func (m *Manager) ParamsGet() (*factory.Params, bool, error) {
	raw, ok, err := m.getKV(factoryParamsKey)
	if err != nil || !ok {
		return nil, false, err
	}
	params, err := decodeParams(raw)
	if err != nil {
		return nil, false, err
	}
	return params, true, nil
}

// ParamsPut stores the factory settings.
func (m *Manager) ParamsPut(params *factory.Params) error {
	encoded, err := encodeParams(params)
	if err != nil {
		return err
	}
	return m.setKV(factoryParamsKey, encoded)
}

// BalanceGet returns the holder's balance of the asset, zero when absent.
func (m *Manager) BalanceGet(asset [20]byte, holder [20]byte) (*big.Int, error) {
	raw, ok, err := m.getKV(balanceKey(asset, holder))
	if err != nil || !ok {
		return big.NewInt(0), err
	}
	return new(big.Int).SetBytes(raw), nil
}

// BalancePut stores the holder's balance of the asset.
func (m *Manager) BalancePut(asset [20]byte, holder [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return errors.New("state: balance must not be negative")
	}
	return m.setKV(balanceKey(asset, holder), amount.Bytes())
}
