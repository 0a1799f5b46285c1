package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedLocker_SerializesSameKey(t *testing.T) {
	l := NewKeyedLocker()
	ctx := context.Background()

	var inside, maxInside atomic.Int32
	var wg conc.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Go(func() {
			unlock, err := l.Lock(ctx, "post-1")
			if !assert.NoError(t, err) {
				return
			}
			n := inside.Add(1)
			for {
				cur := maxInside.Load()
				if n <= cur || maxInside.CompareAndSwap(cur, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
			unlock()
		})
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside.Load())
	assert.Equal(t, 0, l.Len(), "entries are removed once nobody holds them")
}

func TestKeyedLocker_DifferentKeysDoNotWait(t *testing.T) {
	l := NewKeyedLocker()
	ctx := context.Background()

	unlockA, err := l.Lock(ctx, "a")
	require.NoError(t, err)
	defer unlockA()

	waitCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	unlockB, err := l.Lock(waitCtx, "b")
	require.NoError(t, err)
	unlockB()
}

func TestKeyedLocker_ContextCancelReleasesWaiter(t *testing.T) {
	l := NewKeyedLocker()

	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "k")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, l.Len())

	unlock()
	unlock() // second call is a no-op
	assert.Equal(t, 0, l.Len())

	unlock, err = l.Lock(context.Background(), "k")
	require.NoError(t, err)
	unlock()
}
