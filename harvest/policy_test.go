package harvest

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/harvester/models"
)

func TestParsePolicy(t *testing.T) {
	for in, want := range map[string]Policy{"": PolicySkip, "skip": PolicySkip, "abort": PolicyAbort, "retry": PolicyRetry} {
		got, err := ParsePolicy(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParsePolicy("ignore")
	assert.Error(t, err)
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"timeout", models.NewHarvestError(models.ErrCodeTimeout, "t", nil), true},
		{"network", models.NewHarvestError(models.ErrCodeFetch, "n", nil), true},
		{"throttled", models.NewStatusError(429, "u"), true},
		{"server error", models.NewStatusError(503, "u"), true},
		{"not found", models.NewStatusError(404, "u"), false},
		{"forbidden", models.NewStatusError(403, "u"), false},
		{"wrapped", fmt.Errorf("outer: %w", models.NewStatusError(500, "u")), true},
		{"invalid input", models.NewHarvestError(models.ErrCodeInvalidInput, "i", nil), false},
		{"foreign", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, retryable(tt.err))
		})
	}
}

func TestBackoff(t *testing.T) {
	base, ceiling := time.Second, 5*time.Second

	assert.Equal(t, time.Second, backoff(base, ceiling, 1))
	assert.Equal(t, 2*time.Second, backoff(base, ceiling, 2))
	assert.Equal(t, 4*time.Second, backoff(base, ceiling, 3))
	assert.Equal(t, 5*time.Second, backoff(base, ceiling, 4))
	assert.Equal(t, 5*time.Second, backoff(base, ceiling, 60))
	assert.Equal(t, time.Duration(0), backoff(0, ceiling, 3))
	assert.Equal(t, 8*time.Second, backoff(base, 0, 4), "no ceiling")
}
