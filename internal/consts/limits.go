package consts

import "time"

// Routing loop limits
const (
	// MaxRouteIterations caps the directive re-routing loop for one turn.
	// Exceeding the cap terminates with whatever text has accumulated.
	MaxRouteIterations = 6
)

// Retry policy for quota errors on the native provider
const (
	// MaxQuotaRetries is the number of retries after the first attempt.
	MaxQuotaRetries = 3
	// QuotaBackoffBase scales the exponential part of the backoff delay.
	QuotaBackoffBase = 2 * time.Second
	// QuotaBackoffExtra is added on top of every backoff delay.
	QuotaBackoffExtra = 1 * time.Second
)

// Thinking budgets (tokens of hidden deliberation)
const (
	// ThinkingBudgetDefault is the baseline budget for THINK routing.
	ThinkingBudgetDefault = 2048
	// ThinkingBudgetDeep is used when the thinking intensity is "deep".
	ThinkingBudgetDeep = 8192
)

// Buffer sizes for stream consumption
const (
	// BufferSize256KB is 256 kilobytes
	BufferSize256KB = 256 * 1024
	// BufferSize1MB is 1 megabyte
	BufferSize1MB = 1024 * 1024
)

// LLM default configurations
const (
	// DefaultMaxTokens is the default maximum tokens for responses
	DefaultMaxTokens = 4096
)

// Timeouts for various operations
const (
	// Timeout60Seconds is a 60 second timeout (1 minute)
	Timeout60Seconds = 60 * time.Second
	// Timeout5Minutes is a 5 minute timeout
	Timeout5Minutes = 5 * time.Minute
)
