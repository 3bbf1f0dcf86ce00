package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/codefionn/chatschnell/internal/consts"
	"github.com/codefionn/chatschnell/internal/logger"
	"github.com/codefionn/chatschnell/internal/progress"
)

// retryClient wraps a native-provider Client and retries quota/rate-limit
// failures with bounded exponential backoff. All other errors surface
// immediately. Before each wait a visible notice goes to the caller's sink
// so a long backoff is not silent.
type retryClient struct {
	delegate Client
	notify   progress.Callback
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewRetryClient returns a Client that retries quota errors up to
// consts.MaxQuotaRetries times. notify may be nil.
func NewRetryClient(base Client, notify progress.Callback) Client {
	if base == nil {
		return nil
	}
	return &retryClient{
		delegate: base,
		notify:   notify,
		sleep:    sleepCtx,
	}
}

// backoffDelay is 2^attempt * 2s + 1s: 3s, 5s, 9s for attempts 0..2.
func backoffDelay(attempt int) time.Duration {
	return time.Duration(1<<attempt)*consts.QuotaBackoffBase + consts.QuotaBackoffExtra
}

func (c *retryClient) ModelName() string {
	return c.delegate.ModelName()
}

func (c *retryClient) Complete(ctx context.Context, req *StreamRequest) (string, error) {
	var result string
	err := c.withRetries(ctx, func() error {
		var err error
		result, err = c.delegate.Complete(ctx, req)
		return err
	}, IsQuotaExhausted)
	return result, err
}

func (c *retryClient) Stream(ctx context.Context, req *StreamRequest, fn StreamFunc) error {
	// Retrying after deltas were already forwarded would duplicate output,
	// so a stream only re-runs while nothing has been emitted yet.
	emitted := false
	wrapped := func(ev StreamEvent) error {
		emitted = true
		return fn(ev)
	}

	return c.withRetries(ctx, func() error {
		return c.delegate.Stream(ctx, req, wrapped)
	}, func(err error) bool {
		return !emitted && IsQuotaExhausted(err)
	})
}

func (c *retryClient) withRetries(ctx context.Context, call func() error, retryable func(error) bool) error {
	for attempt := 0; ; attempt++ {
		err := call()
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		if attempt >= consts.MaxQuotaRetries {
			logger.Warn("retry budget exhausted for model %s: %v", c.delegate.ModelName(), err)
			return fmt.Errorf("%w: %v", ErrMaxRetries, err)
		}

		delay := backoffDelay(attempt)
		logger.Info("quota exhausted for model %s, retrying in %s (attempt %d/%d)",
			c.delegate.ModelName(), delay, attempt+1, consts.MaxQuotaRetries)
		if err := progress.Noticef(c.notify, "Rate limited, retrying in %ds...", int(delay.Seconds())); err != nil {
			return err
		}
		if err := c.sleep(ctx, delay); err != nil {
			return err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
