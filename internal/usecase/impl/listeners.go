package impl

import (
	"context"
	"slices"
	"sync"
)

// listenerSet holds subscribers keyed by registration order.
type listenerSet[T any] struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(context.Context, T)
}

func (l *listenerSet[T]) add(fn func(context.Context, T)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fns == nil {
		l.fns = make(map[int]func(context.Context, T))
	}
	id := l.next
	l.next++
	l.fns[id] = fn

	var once sync.Once

	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			delete(l.fns, id)
		})
	}
}

// notify calls every listener outside the lock, in registration order.
func (l *listenerSet[T]) notify(ctx context.Context, value T) {
	l.mu.Lock()
	ids := make([]int, 0, len(l.fns))
	for id := range l.fns {
		ids = append(ids, id)
	}
	fns := make([]func(context.Context, T), 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		fns = append(fns, l.fns[id])
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(ctx, value)
	}
}
