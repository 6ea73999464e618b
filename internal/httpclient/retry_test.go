package httpclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/vestigo/internal/common"
)

func TestShouldRetry(t *testing.T) {
	p := NewRetryPolicy()

	assert.True(t, p.ShouldRetry(0, 503, nil))
	assert.True(t, p.ShouldRetry(0, 429, nil))
	assert.True(t, p.ShouldRetry(1, 500, nil))
	assert.False(t, p.ShouldRetry(3, 503, nil), "attempts exhausted")
	assert.False(t, p.ShouldRetry(0, 404, nil))
	assert.False(t, p.ShouldRetry(0, 401, nil))
	assert.False(t, p.ShouldRetry(0, 200, nil))
	assert.True(t, p.ShouldRetry(0, 0, context.DeadlineExceeded))
	assert.False(t, p.ShouldRetry(0, 0, errors.New("parse failure")))
}

func TestCalculateBackoffBounded(t *testing.T) {
	p := NewRetryPolicy()
	for attempt := 0; attempt < 10; attempt++ {
		backoff := p.CalculateBackoff(attempt)
		assert.Greater(t, backoff, time.Duration(0))
		// 25% jitter above the 30s ceiling is the worst case
		assert.LessOrEqual(t, backoff, time.Duration(float64(p.MaxBackoff)*1.25))
	}
}

func TestExecuteWithRetrySucceedsAfterTransientFailure(t *testing.T) {
	p := NewRetryPolicy()
	p.InitialBackoff = time.Millisecond
	p.MaxBackoff = 2 * time.Millisecond

	calls := 0
	status, err := p.ExecuteWithRetry(context.Background(), common.GetLogger(), func() (int, error) {
		calls++
		if calls < 3 {
			return 503, nil
		}
		return 200, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 200, status)
	assert.Equal(t, 3, calls)
}

func TestExecuteWithRetryGivesUp(t *testing.T) {
	p := NewRetryPolicy().WithMaxAttempts(2)
	p.InitialBackoff = time.Millisecond

	calls := 0
	status, _ := p.ExecuteWithRetry(context.Background(), common.GetLogger(), func() (int, error) {
		calls++
		return 503, nil
	})

	assert.Equal(t, 503, status)
	assert.Equal(t, 2, calls)
}

func TestExecuteWithRetryStopsOnClientError(t *testing.T) {
	p := NewRetryPolicy()

	calls := 0
	status, err := p.ExecuteWithRetry(context.Background(), common.GetLogger(), func() (int, error) {
		calls++
		return 404, errors.New("not found")
	})

	assert.Error(t, err)
	assert.Equal(t, 404, status)
	assert.Equal(t, 1, calls)
}
