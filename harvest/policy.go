package harvest

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/use-agent/harvester/models"
)

// Policy decides what a crawl does when a page cannot be fetched.
type Policy string

const (
	// PolicySkip records the failure in the report and moves on.
	PolicySkip Policy = "skip"

	// PolicyAbort stops the crawl and returns the partial batch with the error.
	PolicyAbort Policy = "abort"

	// PolicyRetry retries transient failures with exponential backoff,
	// then behaves like PolicySkip.
	PolicyRetry Policy = "retry"
)

// ParsePolicy validates a policy name. An empty name is PolicySkip.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicySkip:
		return PolicySkip, nil
	case PolicyAbort:
		return PolicyAbort, nil
	case PolicyRetry:
		return PolicyRetry, nil
	}
	return "", fmt.Errorf("harvest: unknown failure policy %q", s)
}

// retryable reports whether a fetch failure is transient: timeouts, network
// errors, throttling and server errors.
func retryable(err error) bool {
	var he *models.HarvestError
	if !errors.As(err, &he) {
		return false
	}
	switch he.Code {
	case models.ErrCodeTimeout, models.ErrCodeFetch, models.ErrCodeRateLimited:
		return true
	case models.ErrCodeFetchStatus:
		return he.StatusCode >= http.StatusInternalServerError
	}
	return false
}

// backoff returns the pause before retry number attempt (1-based):
// base * 2^(attempt-1), capped at ceiling.
func backoff(base, ceiling time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if ceiling > 0 && d >= ceiling {
			return ceiling
		}
	}
	if ceiling > 0 && d > ceiling {
		return ceiling
	}
	return d
}
