package service

import (
	"context"
	"sync"

	cmap "github.com/orcaman/concurrent-map/v2"
)

type lockEntry struct {
	ch chan struct{}
	// refs counts holders and waiters; guarded by the map shard lock.
	refs int
}

// KeyedLocker provides one mutex per key. Entries exist only while some
// goroutine holds or waits for the key.
type KeyedLocker struct {
	locks cmap.ConcurrentMap[string, *lockEntry]
}

// NewKeyedLocker creates an empty KeyedLocker.
func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{locks: cmap.New[*lockEntry]()}
}

// Lock blocks until key is held or ctx is done. The returned function
// releases the key and is safe to call more than once.
func (l *KeyedLocker) Lock(ctx context.Context, key string) (func(), error) {
	entry := l.locks.Upsert(key, nil, func(exist bool, cur *lockEntry, _ *lockEntry) *lockEntry {
		if exist {
			cur.refs++
			return cur
		}
		return &lockEntry{ch: make(chan struct{}, 1), refs: 1}
	})

	select {
	case entry.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-entry.ch
			l.release(key)
		})
	}, nil
}

func (l *KeyedLocker) release(key string) {
	l.locks.RemoveCb(key, func(_ string, e *lockEntry, exists bool) bool {
		if !exists {
			return false
		}
		e.refs--
		return e.refs == 0
	})
}

// Len reports how many keys are currently held or awaited.
func (l *KeyedLocker) Len() int {
	return l.locks.Count()
}
