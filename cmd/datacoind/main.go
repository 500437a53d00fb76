package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"datacoin/config"
	"datacoin/core/events"
	"datacoin/native/common"
	"datacoin/native/factory"
	"datacoin/native/market"
	"datacoin/native/registry"
	"datacoin/native/token"
	"datacoin/observability/logging"
	"datacoin/observability/metrics"
	"datacoin/state"
	"datacoin/storage"
)

// Node bundles the wired engines behind one handle. Transport layers attach
// on top of this; the engine itself carries no network surface.
type Node struct {
	Ledger   *token.Engine
	Registry *registry.Engine
	Market   *market.Engine
	Factory  *factory.Engine
	State    *state.Manager
}

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("DATACOIN_ENV"))
	logger := logging.Setup("datacoind", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	node, err := buildNode(cfg, db, metrics.NewRecorder(nil))
	if err != nil {
		logger.Error("Failed to build node", slog.Any("error", err))
		os.Exit(1)
	}

	count, err := node.Factory.DataCoinCount()
	if err != nil {
		logger.Error("Failed to read factory state", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("datacoin engine ready",
		slog.String("dataDir", cfg.DataDir),
		slog.Int("coins", count),
	)
	select {}
}

func buildNode(cfg config.Config, db storage.Database, emitter events.Emitter) (*Node, error) {
	treasury, err := cfg.Treasury()
	if err != nil {
		return nil, err
	}
	lighthouse, err := cfg.Lighthouse()
	if err != nil {
		return nil, err
	}
	maxSupply, err := cfg.ParseMaxSupply()
	if err != nil {
		return nil, err
	}

	manager := state.NewManager(db)
	authority := common.NewAuthority()

	ledger := token.NewEngine()
	ledger.SetState(manager)
	ledger.SetEmitter(emitter)
	ledger.SetTreasury(treasury)
	ledger.SetBands(token.AllocationBands{
		CreatorMaxBps:      cfg.Allocation.CreatorMaxBps,
		ContributorsMaxBps: cfg.Allocation.ContributorsMaxBps,
		LiquidityMinBps:    cfg.Allocation.LiquidityMinBps,
		VestingMin:         cfg.Allocation.VestingMinSeconds,
		VestingMax:         cfg.Allocation.VestingMaxSeconds,
	})

	assets := registry.NewEngine()
	assets.SetState(manager)
	assets.SetEmitter(emitter)
	assets.SetAuthority(authority)

	pools := market.NewEngine()
	pools.SetState(manager)
	pools.SetEmitter(emitter)
	pools.SetTreasury(treasury)
	pools.SetLighthouse(lighthouse)

	issuer := factory.NewEngine()
	issuer.SetState(manager)
	issuer.SetEmitter(emitter)
	issuer.SetAuthority(authority)
	issuer.SetLedger(ledger)
	issuer.SetRegistry(assets)
	issuer.SetMarket(pools)
	issuer.SetTreasury(treasury)
	issuer.SetMaxSupply(maxSupply)
	issuer.SetLockDuration(cfg.LiquidityLockSeconds)
	issuer.SetDefaultFeeBps(cfg.CreationFeeBps)

	return &Node{
		Ledger:   ledger,
		Registry: assets,
		Market:   pools,
		Factory:  issuer,
		State:    manager,
	}, nil
}
