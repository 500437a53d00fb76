package config

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"datacoin/crypto"
)

// Config carries the protocol parameters loaded at process start. Values
// here seed the engines; runtime admin updates live in state, not here.
type Config struct {
	DataDir              string `toml:"DataDir"`
	CreationFeeBps       uint64 `toml:"CreationFeeBps"`
	LiquidityLockSeconds int64  `toml:"LiquidityLockSeconds"`
	MaxSupply            string `toml:"MaxSupply"`
	TreasuryAddress      string `toml:"TreasuryAddress"`
	LighthouseAddress    string `toml:"LighthouseAddress"`

	Allocation AllocationBands `toml:"allocation"`
}

// AllocationBands bound the per-coin allocation shares.
type AllocationBands struct {
	CreatorMaxBps      uint64 `toml:"CreatorMaxBps"`
	ContributorsMaxBps uint64 `toml:"ContributorsMaxBps"`
	LiquidityMinBps    uint64 `toml:"LiquidityMinBps"`
	VestingMinSeconds  int64  `toml:"VestingMinSeconds"`
	VestingMaxSeconds  int64  `toml:"VestingMaxSeconds"`
}

// Default returns the protocol defaults written on first start.
func Default() Config {
	return Config{
		DataDir:              "./data",
		CreationFeeBps:       500,
		LiquidityLockSeconds: 180 * 86_400,
		MaxSupply:            "100000000000000000000000000",
		Allocation: AllocationBands{
			CreatorMaxBps:      5_000,
			ContributorsMaxBps: 8_000,
			LiquidityMinBps:    500,
			VestingMinSeconds:  86_400,
			VestingMaxSeconds:  4 * 365 * 86_400,
		},
	}
}

// Load reads the TOML config at path, writing the defaults there first if
// the file does not exist.
func Load(path string) (Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := createDefault(path); err != nil {
			return Config{}, err
		}
	} else if err != nil {
		return Config{}, err
	}
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func createDefault(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(Default())
}

// Validate rejects configs that would wedge the engines at runtime.
func (c Config) Validate() error {
	if c.CreationFeeBps > 10_000 {
		return fmt.Errorf("creation fee %d exceeds 10000 bps", c.CreationFeeBps)
	}
	if c.LiquidityLockSeconds <= 0 {
		return errors.New("liquidity lock duration must be positive")
	}
	if _, err := c.ParseMaxSupply(); err != nil {
		return err
	}
	b := c.Allocation
	if b.CreatorMaxBps > 10_000 || b.ContributorsMaxBps > 10_000 || b.LiquidityMinBps > 10_000 {
		return errors.New("allocation band exceeds 10000 bps")
	}
	if b.VestingMinSeconds <= 0 || b.VestingMaxSeconds < b.VestingMinSeconds {
		return errors.New("invalid vesting bounds")
	}
	if c.TreasuryAddress != "" {
		if _, err := crypto.Decode(c.TreasuryAddress); err != nil {
			return fmt.Errorf("treasury address: %w", err)
		}
	}
	if c.LighthouseAddress != "" {
		if _, err := crypto.Decode(c.LighthouseAddress); err != nil {
			return fmt.Errorf("lighthouse address: %w", err)
		}
	}
	return nil
}

// ParseMaxSupply returns the configured supply cap as an integer.
func (c Config) ParseMaxSupply() (*big.Int, error) {
	supply, ok := new(big.Int).SetString(c.MaxSupply, 10)
	if !ok || supply.Sign() <= 0 {
		return nil, fmt.Errorf("invalid max supply %q", c.MaxSupply)
	}
	return supply, nil
}

// Treasury decodes the configured treasury address, zero when unset.
func (c Config) Treasury() (crypto.Address, error) {
	if c.TreasuryAddress == "" {
		return crypto.Address{}, nil
	}
	return crypto.Decode(c.TreasuryAddress)
}

// Lighthouse decodes the configured lighthouse address, zero when unset.
func (c Config) Lighthouse() (crypto.Address, error) {
	if c.LighthouseAddress == "" {
		return crypto.Address{}, nil
	}
	return crypto.Decode(c.LighthouseAddress)
}
