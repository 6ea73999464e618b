package workers

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/vestigo/internal/common"
)

func TestPoolRunsAllJobs(t *testing.T) {
	pool := NewPool(4, common.GetLogger())
	pool.Start()

	var count int64
	for i := 0; i < 50; i++ {
		require.NoError(t, pool.Submit(func(ctx context.Context) error {
			atomic.AddInt64(&count, 1)
			return nil
		}))
	}
	pool.Wait()

	assert.Equal(t, int64(50), count)
	assert.Empty(t, pool.Errors())
}

func TestPoolCollectsErrors(t *testing.T) {
	pool := NewPool(2, common.GetLogger())
	pool.Start()

	for i := 0; i < 5; i++ {
		fail := i%2 == 0
		require.NoError(t, pool.Submit(func(ctx context.Context) error {
			if fail {
				return errors.New("boom")
			}
			return nil
		}))
	}
	pool.Wait()

	assert.Len(t, pool.Errors(), 3)
}

func TestPoolDefaultsWorkerCount(t *testing.T) {
	pool := NewPool(0, common.GetLogger())
	assert.Equal(t, 4, pool.size)
}
