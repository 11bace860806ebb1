package nonce

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

type localLocker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

// NewLocalLocker returns an in-process locker.
//
//nolint:ireturn
func NewLocalLocker() Locker {
	return newLocalLocker()
}

func newLocalLocker() *localLocker {
	return &localLocker{slots: make(map[string]chan struct{})}
}

func (l *localLocker) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	ch, ok := l.slots[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[key] = ch
	}
	return ch
}

func (l *localLocker) Lock(ctx context.Context, key string) (Unlock, error) {
	ch := l.slot(key)

	select {
	case ch <- struct{}{}:
	case <-ctx.Done():
		return nil, errors.Wrapf(ctx.Err(), "failed to acquire submission lock %s", key)
	}

	var once sync.Once
	return func() {
		once.Do(func() { <-ch })
	}, nil
}
