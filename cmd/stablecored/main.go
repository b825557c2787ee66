package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"stablecore/config"
	"stablecore/native/bank"
	"stablecore/native/stable"
	"stablecore/observability/logging"
	"stablecore/oracle"
	"stablecore/rpc"
	"stablecore/storage"
)

func main() {
	configPath := flag.String("config", "./config.toml", "path to the TOML configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "stablecored: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logging.Setup("stablecored", cfg.Environment, logging.ParseLevel(cfg.LogLevel))

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	assets := make([]common.Address, 0, len(cfg.Collateral))
	feeds := make([]stable.PriceFeed, 0, len(cfg.Collateral))
	httpClient := &http.Client{Timeout: 10 * time.Second}
	for _, collateral := range cfg.Collateral {
		assets = append(assets, common.HexToAddress(collateral.Asset))
		if strings.TrimSpace(collateral.FeedURL) != "" {
			feed, err := oracle.NewHTTPFeed(httpClient, collateral.FeedURL, collateral.FeedDecimals)
			if err != nil {
				return err
			}
			feeds = append(feeds, feed)
			continue
		}
		price, _ := new(big.Int).SetString(strings.TrimSpace(collateral.InitialPrice), 10)
		feeds = append(feeds, oracle.NewManualFeed(collateral.FeedDecimals, price, time.Now()))
	}

	ledger := bank.NewLedger()
	custody := common.HexToAddress(cfg.CustodyAddress)
	engine, err := stable.New(stable.EngineConfig{
		CollateralAssets: assets,
		PriceFeeds:       feeds,
		Tokens:           ledger.Handle(custody),
		StableAsset:      common.HexToAddress(cfg.StableAsset),
		Custody:          custody,
		Params:           stable.DefaultRiskParameters(),
	})
	if err != nil {
		return err
	}
	engine.SetState(stable.NewPositionStore(db))

	server := &http.Server{
		Addr:              cfg.RPCAddress,
		Handler:           rpc.NewServer(engine, logger).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("rpc server listening", "addr", cfg.RPCAddress)
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("rpc server: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}
	return nil
}
