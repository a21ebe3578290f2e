package fanout

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettleAllEmpty(t *testing.T) {
	results := SettleAll[int](context.Background(), nil)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestSettleAllPreservesTaskOrder(t *testing.T) {
	// Later tasks finish first; results must still follow task order.
	delays := []time.Duration{30 * time.Millisecond, 10 * time.Millisecond, 0}
	tasks := make([]Task[int], len(delays))
	for i, d := range delays {
		tasks[i] = func(ctx context.Context) (int, error) {
			time.Sleep(d)
			return i, nil
		}
	}

	results := SettleAll(context.Background(), tasks)

	require.Len(t, results, 3)
	for i, r := range results {
		assert.True(t, r.OK())
		assert.Equal(t, i, r.Value)
	}
}

func TestSettleAllDoesNotCancelSiblings(t *testing.T) {
	boom := errors.New("provider down")
	var siblingSawCancel atomic.Bool

	tasks := []Task[string]{
		func(ctx context.Context) (string, error) {
			return "", boom
		},
		func(ctx context.Context) (string, error) {
			select {
			case <-ctx.Done():
				siblingSawCancel.Store(true)
				return "", ctx.Err()
			case <-time.After(20 * time.Millisecond):
				return "ok", nil
			}
		},
	}

	results := SettleAll(context.Background(), tasks)

	require.Len(t, results, 2)
	assert.ErrorIs(t, results[0].Err, boom)
	assert.False(t, siblingSawCancel.Load())
	assert.Equal(t, "ok", results[1].Value)
	assert.NoError(t, results[1].Err)
}

func TestSettleAllRecoversPanics(t *testing.T) {
	tasks := []Task[int]{
		func(ctx context.Context) (int, error) { panic("nil map write") },
		func(ctx context.Context) (int, error) { return 7, nil },
	}

	results := SettleAll(context.Background(), tasks)

	var pe *PanicError
	require.ErrorAs(t, results[0].Err, &pe)
	assert.Equal(t, "nil map write", pe.Value)
	assert.Equal(t, 7, results[1].Value)
}

func TestSettleAllRecordsLatency(t *testing.T) {
	tasks := []Task[int]{
		func(ctx context.Context) (int, error) {
			time.Sleep(5 * time.Millisecond)
			return 1, nil
		},
	}
	results := SettleAll(context.Background(), tasks)
	assert.GreaterOrEqual(t, results[0].Latency, 5*time.Millisecond)
}
