package llm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMaxRetries is returned when the retry budget for quota errors is
// exhausted.
var ErrMaxRetries = errors.New("max retries exceeded waiting for quota")

// StatusError is a typed transport error carrying the HTTP status and the
// provider's message. It lets the orchestrator distinguish retryable or
// fallback-worthy failures from fatal ones.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider request failed: status %d: %s", e.Code, e.Message)
}

// unavailableMarkers are provider-specific phrases that, combined with a 404,
// signal "model currently not served by any endpoint".
var unavailableMarkers = []string{
	"no providers",
	"no endpoints found",
	"model not found",
}

// IsModelUnavailable reports whether err means the requested relay model is
// currently not served, which makes falling back to the baseline native
// model worthwhile.
func IsModelUnavailable(err error) bool {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		return false
	}
	if statusErr.Code != 404 {
		return false
	}
	msg := strings.ToLower(statusErr.Message)
	for _, marker := range unavailableMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// quotaMarkers identify rate/quota failures in provider messages. The native
// SDK wraps these in plain errors, so the match is textual.
var quotaMarkers = []string{
	"429",
	"quota",
	"resource_exhausted",
	"resourceexhausted",
	"resource exhausted",
	"rate limit",
}

// IsQuotaExhausted reports whether err is a quota or rate-limit signal worth
// retrying with backoff.
func IsQuotaExhausted(err error) bool {
	if err == nil {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.Code == 429 {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range quotaMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
