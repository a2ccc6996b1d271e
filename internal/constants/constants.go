package constants

import "time"

// Protocol Constants
const (
	// AaveV3PoolAddress is the Aave V3 Pool proxy contract on Polygon
	AaveV3PoolAddress = "0x625E7708f30cA75bfd92586e17077590C6004d88"

	// USDCAddress is the USDC token address on Polygon
	USDCAddress = "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"

	// USDCDecimals is the decimal precision of USDC
	USDCDecimals = 6
)

// Fetcher Constants
const (
	// DefaultTargetEvents is the default number of Supply events to collect
	DefaultTargetEvents = 1000

	// DefaultBlocksPerBatch is the default block window width per log query
	DefaultBlocksPerBatch = 10000

	// DefaultMaxBatchAttempts caps failed batch queries before the scan
	// terminates with whatever was accumulated
	DefaultMaxBatchAttempts = 5

	// DefaultBackoffBase is the unit for exponential backoff between failed
	// batch queries (sleep is 2^attempt * base)
	DefaultBackoffBase = time.Second
)

// RPC Constants
const (
	// DefaultQueryTimeout is the default timeout for a single RPC call
	DefaultQueryTimeout = 30 * time.Second

	// DefaultMaxRetries is the number of consecutive failures on one
	// endpoint before rotating to the next
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the fixed delay between retries on the same
	// endpoint
	DefaultRetryDelay = 2 * time.Second

	// DefaultRateLimitPerSecond is the default outbound RPC rate limit
	DefaultRateLimitPerSecond = 10

	// DefaultRateLimitBurst is the default rate limit burst size
	DefaultRateLimitBurst = 20
)

// Output Constants
const (
	// DefaultEventsCSV is the default path for the raw events table
	DefaultEventsCSV = "usdc_supply_events.csv"

	// DefaultSummaryCSV is the default path for the top suppliers table
	DefaultSummaryCSV = "top_suppliers_summary.csv"

	// DefaultTopSuppliers is the number of suppliers written to the
	// summary table
	DefaultTopSuppliers = 50
)
