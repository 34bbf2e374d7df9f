package pool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPool(t *testing.T, capacity int) *Pool {
	t.Helper()
	p, err := NewPool("test", DefaultConfig(capacity))
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Release(time.Second) })
	return p
}

func TestNewPool(t *testing.T) {
	p := newTestPool(t, 3)
	assert.Equal(t, "test", p.Name())
	assert.Equal(t, 3, p.Cap())
}

func TestDefaultConfig(t *testing.T) {
	assert.Equal(t, 4, DefaultConfig(0).Capacity)
	assert.Equal(t, 8, DefaultConfig(8).Capacity)
}

func TestMap(t *testing.T) {
	p := newTestPool(t, 2)

	out := make([]int, 10)
	errs := p.Map(context.Background(), len(out), func(_ context.Context, i int) error {
		out[i] = i * i
		if i == 3 {
			return errors.New("three")
		}
		return nil
	})

	require.Len(t, errs, 10)
	for i, err := range errs {
		if i == 3 {
			assert.EqualError(t, err, "three")
			continue
		}
		assert.NoError(t, err)
		assert.Equal(t, i*i, out[i])
	}
	assert.Equal(t, int64(10), p.Stats().Submitted)
}

func TestMap_CancelledContext(t *testing.T) {
	p := newTestPool(t, 2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	errs := p.Map(ctx, 5, func(context.Context, int) error {
		calls.Add(1)
		return nil
	})

	assert.Zero(t, calls.Load())
	for _, err := range errs {
		assert.ErrorIs(t, err, context.Canceled)
	}
}

func TestMap_RecoversPanic(t *testing.T) {
	p := newTestPool(t, 1)
	errs := p.Map(context.Background(), 2, func(_ context.Context, i int) error {
		if i == 0 {
			panic("bad document")
		}
		return nil
	})

	assert.ErrorContains(t, errs[0], "panicked")
	assert.NoError(t, errs[1])
	assert.Equal(t, int64(1), p.Stats().Panics)
}

func TestSubmitAfterRelease(t *testing.T) {
	p, err := NewPool("closed", DefaultConfig(1))
	require.NoError(t, err)
	require.NoError(t, p.Release(0))

	assert.ErrorIs(t, p.Submit(func() {}), ErrPoolClosed)
	assert.NoError(t, p.Release(0))
}
