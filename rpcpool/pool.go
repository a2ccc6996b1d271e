package rpcpool

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/0xmhha/supplyscan/client"
)

// RPCClient is the subset of node operations the pool hands to callers.
// *client.Client implements it; tests substitute fakes.
type RPCClient interface {
	Ping(ctx context.Context) error
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	StorageAt(ctx context.Context, account common.Address, key common.Hash, blockNumber *big.Int) ([]byte, error)
	Close()
}

// DialFunc establishes a connection to one endpoint
type DialFunc func(ctx context.Context, endpoint string) (RPCClient, error)

// Config holds connection manager configuration
type Config struct {
	// Endpoints is the ordered list of candidate node endpoints
	Endpoints []string

	// Timeout is the per-call RPC timeout used by the default dialer
	Timeout time.Duration

	// MaxRetries is the number of consecutive failures on one endpoint
	// before rotating to the next
	MaxRetries int

	// RetryDelay is the fixed delay between retries on the same endpoint
	RetryDelay time.Duration

	// RateLimit is the outbound requests-per-second limit (0 disables)
	RateLimit float64

	// RateBurst is the rate limiter burst size
	RateBurst int

	// Logger is the logger for connection events
	Logger *zap.Logger

	// Dial overrides the default dialer (used in tests)
	Dial DialFunc
}

// Validate validates the connection manager configuration
func (c *Config) Validate() error {
	if len(c.Endpoints) == 0 {
		return fmt.Errorf("at least one endpoint is required")
	}
	if c.MaxRetries <= 0 {
		return fmt.Errorf("max retries must be positive")
	}
	if c.RetryDelay <= 0 {
		return fmt.Errorf("retry delay must be positive")
	}
	return nil
}

// Manager maintains a rotating list of node endpoints with one live
// connection at a time. A single operation is in flight at any moment;
// the manager is not safe for concurrent use.
type Manager struct {
	endpoints  []string
	cursor     int
	maxRetries int
	retryDelay time.Duration
	limiter    *rate.Limiter
	dial       DialFunc
	conn       RPCClient
	logger     *zap.Logger
}

// New creates a connection manager and establishes the initial connection,
// probing each endpoint in order. Returns ErrAllEndpointsFailed when no
// endpoint answers after one full pass.
func New(ctx context.Context, cfg *Config) (*Manager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	dial := cfg.Dial
	if dial == nil {
		timeout := cfg.Timeout
		dial = func(ctx context.Context, endpoint string) (RPCClient, error) {
			return client.Dial(ctx, &client.Config{
				Endpoint: endpoint,
				Timeout:  timeout,
				Logger:   logger,
			})
		}
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	m := &Manager{
		endpoints:  cfg.Endpoints,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		limiter:    limiter,
		dial:       dial,
		logger:     logger,
	}

	if err := m.connect(ctx); err != nil {
		return nil, err
	}

	return m, nil
}

// connect probes endpoints starting from the cursor, advancing it on
// failure, until one answers the liveness check
func (m *Manager) connect(ctx context.Context) error {
	for range m.endpoints {
		endpoint := m.endpoints[m.cursor]

		conn, err := m.dial(ctx, endpoint)
		if err != nil {
			m.logger.Warn("endpoint unreachable, rotating",
				zap.String("endpoint", endpoint),
				zap.Error(err),
			)
			m.rotate()
			continue
		}

		if m.conn != nil {
			m.conn.Close()
		}
		m.conn = conn

		m.logger.Info("endpoint selected",
			zap.String("endpoint", endpoint),
		)
		return nil
	}

	return ErrAllEndpointsFailed
}

// rotate advances the endpoint cursor, wrapping around at the end
func (m *Manager) rotate() {
	m.cursor = (m.cursor + 1) % len(m.endpoints)
}

// CurrentEndpoint returns the endpoint the cursor points at
func (m *Manager) CurrentEndpoint() string {
	return m.endpoints[m.cursor]
}

// ExecuteWithRetry runs op against the current connection, retrying
// transient failures. Every MaxRetries consecutive failures the manager
// rotates to the next endpoint and reconnects; otherwise it waits
// RetryDelay and retries on the same endpoint. Total attempts are bounded
// by MaxRetries * len(endpoints); the last error is surfaced when the
// budget is exhausted. Non-transient errors propagate immediately.
func (m *Manager) ExecuteWithRetry(ctx context.Context, op func(RPCClient) error) error {
	maxAttempts := m.maxRetries * len(m.endpoints)

	var lastErr error
	for retries := 0; retries < maxAttempts; {
		if err := ctx.Err(); err != nil {
			return err
		}

		if m.limiter != nil {
			if err := m.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		err := op(m.conn)
		if err == nil {
			return nil
		}
		if !IsTransient(err) {
			return err
		}

		lastErr = err
		retries++

		m.logger.Warn("transient RPC failure",
			zap.String("endpoint", m.CurrentEndpoint()),
			zap.Int("attempt", retries),
			zap.Int("max_attempts", maxAttempts),
			zap.Error(err),
		)

		if retries >= maxAttempts {
			break
		}

		if retries%m.maxRetries == 0 {
			m.logger.Info("rotating to next endpoint",
				zap.String("from", m.CurrentEndpoint()),
			)
			m.rotate()
			if err := m.connect(ctx); err != nil {
				return err
			}
		} else {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(m.retryDelay):
			}
		}
	}

	return fmt.Errorf("retry budget exhausted after %d attempts: %w", maxAttempts, lastErr)
}

// Close releases the current connection
func (m *Manager) Close() {
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
}
