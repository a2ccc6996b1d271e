package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/0xmhha/supplyscan/abi"
	"github.com/0xmhha/supplyscan/analyze"
	"github.com/0xmhha/supplyscan/cache"
	"github.com/0xmhha/supplyscan/fetch"
	"github.com/0xmhha/supplyscan/internal/config"
	"github.com/0xmhha/supplyscan/internal/constants"
	"github.com/0xmhha/supplyscan/internal/logger"
	"github.com/0xmhha/supplyscan/report"
	"github.com/0xmhha/supplyscan/rpcpool"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	var (
		configFile  = flag.String("config", "", "path to YAML config file")
		showVersion = flag.Bool("version", false, "print version and exit")
		rpcList     = flag.String("rpc", "", "comma-separated RPC endpoints")
		target      = flag.Int("target", 0, "number of supply events to collect")
		batchBlocks = flag.Uint64("batch-blocks", 0, "block window width per log query")
		eventsCSV   = flag.String("events-csv", "", "path for the raw events table")
		summaryCSV  = flag.String("summary-csv", "", "path for the top suppliers table")
		timestamps  = flag.Bool("timestamps", false, "resolve block timestamps after the scan")
		cacheDir    = flag.String("cache-dir", "", "directory for the persistent timestamp cache")
		logLevel    = flag.String("log-level", "", "log level (debug, info, warn, error)")
		logFormat   = flag.String("log-format", "", "log format (console, json)")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("supplyscan %s\n", Version)
		return
	}

	// A .env file is optional
	_ = godotenv.Load()

	cfg, err := loadConfig(*configFile, func(c *config.Config) {
		flag.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "rpc":
				c.RPC.Endpoints = splitEndpoints(*rpcList)
			case "target":
				c.Scan.TargetEvents = *target
			case "batch-blocks":
				c.Scan.BlocksPerBatch = *batchBlocks
			case "events-csv":
				c.Output.EventsCSV = *eventsCSV
			case "summary-csv":
				c.Output.SummaryCSV = *summaryCSV
			case "timestamps":
				c.Scan.EnrichTimestamps = *timestamps
			case "cache-dir":
				c.Cache.Enabled = true
				c.Cache.Path = *cacheDir
			case "log-level":
				c.Log.Level = *logLevel
			case "log-format":
				c.Log.Format = *logFormat
			}
		})
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "supplyscan: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "supplyscan: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Error("scan failed", zap.Error(err))
		os.Exit(1)
	}
}

// loadConfig layers file, environment and command line flags before
// validation
func loadConfig(path string, applyFlags func(*config.Config)) (*config.Config, error) {
	cfg := &config.Config{}

	if path != "" {
		if err := cfg.LoadFromFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}
	applyFlags(cfg)
	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting supplyscan",
		zap.String("version", Version),
		zap.Strings("endpoints", cfg.RPC.Endpoints),
	)

	pool, err := rpcpool.New(ctx, &rpcpool.Config{
		Endpoints:  cfg.RPC.Endpoints,
		Timeout:    cfg.RPC.Timeout,
		MaxRetries: cfg.RPC.MaxRetries,
		RetryDelay: cfg.RPC.RetryDelay,
		RateLimit:  cfg.RPC.RateLimit,
		RateBurst:  cfg.RPC.RateBurst,
		Logger:     logger.WithComponent(log, "rpcpool"),
	})
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer pool.Close()

	if err := verifyChain(ctx, pool, log); err != nil {
		return err
	}

	poolAddress := common.HexToAddress(cfg.Scan.PoolAddress)
	resolveImplementation(ctx, pool, poolAddress, log)

	var store *cache.TimestampStore
	if cfg.Cache.Enabled {
		store, err = cache.NewTimestampStore(cfg.Cache.Path, logger.WithComponent(log, "cache"))
		if err != nil {
			return fmt.Errorf("failed to open timestamp cache: %w", err)
		}
		defer store.Close()
	}

	fetcher, err := fetch.NewSupplyFetcher(pool, timestampCache(store), &fetch.Config{
		PoolAddress:      poolAddress,
		Reserve:          common.HexToAddress(cfg.Scan.ReserveAddress),
		ReserveDecimals:  cfg.Scan.ReserveDecimals,
		TargetCount:      cfg.Scan.TargetEvents,
		BlocksPerBatch:   cfg.Scan.BlocksPerBatch,
		MaxBatchAttempts: cfg.Scan.MaxBatchAttempts,
		BackoffBase:      constants.DefaultBackoffBase,
	}, logger.WithComponent(log, "fetch"))
	if err != nil {
		return fmt.Errorf("failed to create fetcher: %w", err)
	}

	events, err := fetcher.FetchSupplyEvents(ctx)
	if err != nil {
		return fmt.Errorf("event scan failed: %w", err)
	}

	if cfg.Scan.EnrichTimestamps {
		if err := fetcher.EnrichTimestamps(ctx, events); err != nil {
			return fmt.Errorf("timestamp enrichment failed: %w", err)
		}
	}

	summary := analyze.Summarize(events)

	if err := report.WriteEventsCSV(cfg.Output.EventsCSV, events); err != nil {
		return err
	}
	if err := report.WriteTopSuppliersCSV(cfg.Output.SummaryCSV, summary.TopSuppliers(cfg.Output.TopSuppliers)); err != nil {
		return err
	}
	log.Info("results written",
		zap.String("events_csv", cfg.Output.EventsCSV),
		zap.String("summary_csv", cfg.Output.SummaryCSV),
	)

	report.PrintSummary(os.Stdout, summary, 10)
	return nil
}

// verifyChain logs the chain the selected endpoint serves
func verifyChain(ctx context.Context, pool *rpcpool.Manager, log *zap.Logger) error {
	var chainID string
	err := pool.ExecuteWithRetry(ctx, func(c rpcpool.RPCClient) error {
		id, err := c.ChainID(ctx)
		if err != nil {
			return err
		}
		chainID = id.String()
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to verify chain: %w", err)
	}

	log.Info("connected",
		zap.String("endpoint", pool.CurrentEndpoint()),
		zap.String("chain_id", chainID),
	)
	return nil
}

// resolveImplementation reports the implementation contract behind the pool
// proxy. Discovery failure is not fatal; the scan targets the proxy address
// either way.
func resolveImplementation(ctx context.Context, pool *rpcpool.Manager, proxy common.Address, log *zap.Logger) {
	err := pool.ExecuteWithRetry(ctx, func(c rpcpool.RPCClient) error {
		_, err := abi.ResolveImplementation(ctx, c, proxy, log)
		return err
	})
	if err != nil {
		log.Warn("implementation discovery failed, using proxy address",
			zap.String("proxy", proxy.Hex()),
			zap.Error(err),
		)
	}
}

// timestampCache converts a possibly nil store into the fetcher's cache
// interface without tripping the typed-nil pitfall
func timestampCache(store *cache.TimestampStore) fetch.TimestampCache {
	if store == nil {
		return nil
	}
	return store
}

func splitEndpoints(raw string) []string {
	return config.SplitList(raw)
}
