package fetch

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/0xmhha/supplyscan/abi"
	"github.com/0xmhha/supplyscan/rpcpool"
)

// ConnManager is the resilient RPC surface the fetcher depends on
type ConnManager interface {
	ExecuteWithRetry(ctx context.Context, op func(rpcpool.RPCClient) error) error
}

// TimestampCache stores block timestamps across runs
type TimestampCache interface {
	Get(block uint64) (uint64, bool, error)
	Put(block uint64, timestamp uint64) error
}

// Config holds fetcher configuration
type Config struct {
	// PoolAddress is the lending pool contract emitting Supply events
	PoolAddress common.Address

	// Reserve restricts the scan to supplies of one reserve asset
	Reserve common.Address

	// ReserveDecimals is the reserve token's decimal precision
	ReserveDecimals int

	// TargetCount is the number of events to collect before stopping
	TargetCount int

	// BlocksPerBatch is the width of each block window
	BlocksPerBatch uint64

	// MaxBatchAttempts caps failed window queries for one scan
	MaxBatchAttempts int

	// BackoffBase is the base delay doubled after each window failure
	BackoffBase time.Duration
}

// Validate validates the fetcher configuration
func (c *Config) Validate() error {
	if c.PoolAddress == (common.Address{}) {
		return fmt.Errorf("pool address is required")
	}
	if c.Reserve == (common.Address{}) {
		return fmt.Errorf("reserve address is required")
	}
	if c.ReserveDecimals < 0 {
		return fmt.Errorf("reserve decimals cannot be negative")
	}
	if c.TargetCount <= 0 {
		return fmt.Errorf("target count must be positive")
	}
	if c.BlocksPerBatch == 0 {
		return fmt.Errorf("blocks per batch must be positive")
	}
	if c.MaxBatchAttempts <= 0 {
		return fmt.Errorf("max batch attempts must be positive")
	}
	if c.BackoffBase <= 0 {
		return fmt.Errorf("backoff base must be positive")
	}
	return nil
}

// SupplyFetcher walks block windows backward from the chain head collecting
// Supply events for one reserve until the target count is reached
type SupplyFetcher struct {
	pool    ConnManager
	cache   TimestampCache
	decoder *abi.SupplyDecoder
	config  *Config
	logger  *zap.Logger
	metrics *Metrics
}

// NewSupplyFetcher creates a fetcher. The cache is optional and only used
// by EnrichTimestamps.
func NewSupplyFetcher(pool ConnManager, cache TimestampCache, cfg *Config, logger *zap.Logger) (*SupplyFetcher, error) {
	if pool == nil {
		return nil, fmt.Errorf("connection manager cannot be nil")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	decoder, err := abi.NewSupplyDecoder(cfg.ReserveDecimals)
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	return &SupplyFetcher{
		pool:    pool,
		cache:   cache,
		decoder: decoder,
		config:  cfg,
		logger:  logger,
		metrics: NewMetrics(),
	}, nil
}

// FetchSupplyEvents scans half-open block windows [from, to) backward from
// the chain head until TargetCount events are collected or the genesis
// block is reached. Events arrive newest window first, in log order within
// each window. Undecodable logs are skipped; a failed window is skipped
// after a backoff, and after MaxBatchAttempts failed windows the scan stops
// early with whatever was accumulated.
func (f *SupplyFetcher) FetchSupplyEvents(ctx context.Context) ([]abi.SupplyEvent, error) {
	var head uint64
	err := f.pool.ExecuteWithRetry(ctx, func(c rpcpool.RPCClient) error {
		n, err := c.BlockNumber(ctx)
		if err != nil {
			return err
		}
		head = n
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chain head: %w", err)
	}

	f.logger.Info("starting supply event scan",
		zap.Uint64("head", head),
		zap.String("pool", f.config.PoolAddress.Hex()),
		zap.String("reserve", f.config.Reserve.Hex()),
		zap.Int("target", f.config.TargetCount),
	)

	reserveTopic := common.BytesToHash(f.config.Reserve.Bytes())
	events := make([]abi.SupplyEvent, 0, f.config.TargetCount)

	failures := 0
	to := head + 1
	for len(events) < f.config.TargetCount && to > 0 {
		var from uint64
		if to > f.config.BlocksPerBatch {
			from = to - f.config.BlocksPerBatch
		}

		query := ethereum.FilterQuery{
			FromBlock: new(big.Int).SetUint64(from),
			ToBlock:   new(big.Int).SetUint64(to - 1),
			Addresses: []common.Address{f.config.PoolAddress},
			Topics: [][]common.Hash{
				{f.decoder.Topic()},
				{reserveTopic},
			},
		}

		var logs []types.Log
		start := time.Now()
		err := f.pool.ExecuteWithRetry(ctx, func(c rpcpool.RPCClient) error {
			result, err := c.FilterLogs(ctx, query)
			if err != nil {
				return err
			}
			logs = result
			return nil
		})
		if err != nil {
			if ctx.Err() != nil {
				return events, ctx.Err()
			}

			failures++
			f.metrics.BatchFailures.Inc()
			if failures >= f.config.MaxBatchAttempts {
				f.logger.Warn("stopping scan early, too many failed windows",
					zap.Int("failures", failures),
					zap.Int("collected", len(events)),
					zap.Error(err),
				)
				break
			}

			delay := f.config.BackoffBase * time.Duration(1<<failures)
			f.logger.Warn("window query failed, backing off",
				zap.Uint64("from", from),
				zap.Uint64("to", to-1),
				zap.Int("failures", failures),
				zap.Duration("backoff", delay),
				zap.Error(err),
			)

			select {
			case <-ctx.Done():
				return events, ctx.Err()
			case <-time.After(delay):
			}

			to = from
			continue
		}

		f.metrics.BatchesFetched.Inc()
		f.metrics.BatchDuration.Observe(time.Since(start).Seconds())

		decoded := 0
		for _, lg := range logs {
			event, err := f.decoder.Decode(lg)
			if err != nil {
				f.metrics.DecodeFailures.Inc()
				f.logger.Warn("skipping undecodable log",
					zap.Uint64("block", lg.BlockNumber),
					zap.String("tx", lg.TxHash.Hex()),
					zap.Uint("index", lg.Index),
					zap.Error(err),
				)
				continue
			}
			events = append(events, event)
			decoded++
		}
		f.metrics.LogsDecoded.Add(float64(decoded))

		f.logger.Info("window scanned",
			zap.Uint64("from", from),
			zap.Uint64("to", to-1),
			zap.Int("decoded", decoded),
			zap.Int("collected", len(events)),
		)

		to = from
	}

	if len(events) == 0 {
		f.logger.Warn("no supply events found",
			zap.String("pool", f.config.PoolAddress.Hex()),
			zap.String("reserve", f.config.Reserve.Hex()),
		)
		return events, nil
	}

	if len(events) > f.config.TargetCount {
		events = events[:f.config.TargetCount]
	}

	f.logger.Info("supply event scan complete",
		zap.Int("events", len(events)),
	)
	return events, nil
}

// EnrichTimestamps fills in the block timestamp of every event, fetching
// each unique block header once. Cached timestamps are reused across runs
// when a cache is configured. A block whose header cannot be fetched leaves
// its events with a zero timestamp.
func (f *SupplyFetcher) EnrichTimestamps(ctx context.Context, events []abi.SupplyEvent) error {
	if len(events) == 0 {
		return nil
	}

	timestamps := make(map[uint64]uint64)
	for _, event := range events {
		timestamps[event.BlockNumber] = 0
	}

	f.logger.Info("enriching block timestamps",
		zap.Int("events", len(events)),
		zap.Int("unique_blocks", len(timestamps)),
	)

	for block := range timestamps {
		if err := ctx.Err(); err != nil {
			return err
		}

		if f.cache != nil {
			ts, ok, err := f.cache.Get(block)
			if err != nil {
				f.logger.Warn("timestamp cache read failed",
					zap.Uint64("block", block),
					zap.Error(err),
				)
			} else if ok {
				timestamps[block] = ts
				f.metrics.CacheHits.Inc()
				continue
			}
		}

		var ts uint64
		err := f.pool.ExecuteWithRetry(ctx, func(c rpcpool.RPCClient) error {
			header, err := c.HeaderByNumber(ctx, new(big.Int).SetUint64(block))
			if err != nil {
				return err
			}
			ts = header.Time
			return nil
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.logger.Warn("failed to fetch block header",
				zap.Uint64("block", block),
				zap.Error(err),
			)
			continue
		}

		timestamps[block] = ts
		f.metrics.HeadersFetched.Inc()

		if f.cache != nil && ts > 0 {
			if err := f.cache.Put(block, ts); err != nil {
				f.logger.Warn("timestamp cache write failed",
					zap.Uint64("block", block),
					zap.Error(err),
				)
			}
		}
	}

	for i := range events {
		events[i].Timestamp = timestamps[events[i].BlockNumber]
	}
	return nil
}
