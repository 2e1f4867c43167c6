package store

import (
	"context"
	"sync"

	"github.com/ItIsGreg/Raki-sub002/pkg/models"
)

// Snapshot is one evaluation of a live query.
type Snapshot[T any] struct {
	Items []T
	Err   error
}

// LiveQuery re-evaluates a query whenever its collection changes.
//
// Only the latest snapshot is kept: a consumer that falls behind sees the
// most recent result, never a backlog. Changes that arrive while an
// evaluation is running cause exactly one more evaluation.
type LiveQuery[T any] struct {
	eval        func(ctx context.Context) ([]T, error)
	updates     chan Snapshot[T]
	dirty       chan struct{}
	cancel      context.CancelFunc
	done        chan struct{}
	unsubscribe func()
	closeOnce   sync.Once
}

// Watch evaluates the query once and again after every change published
// to the collection, until ctx is cancelled or Close is called.
func Watch[T any](ctx context.Context, n *Notifier, collection models.EntityType, eval func(ctx context.Context) ([]T, error)) *LiveQuery[T] {
	ctx, cancel := context.WithCancel(ctx)
	q := &LiveQuery[T]{
		eval:    eval,
		updates: make(chan Snapshot[T], 1),
		dirty:   make(chan struct{}, 1),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	q.unsubscribe = n.Subscribe(collection, func(Change) { q.Refresh() })
	q.Refresh()
	go q.loop(ctx)
	return q
}

// Updates delivers snapshots. It is closed after Close.
func (q *LiveQuery[T]) Updates() <-chan Snapshot[T] {
	return q.updates
}

// Refresh schedules a re-evaluation.
func (q *LiveQuery[T]) Refresh() {
	select {
	case q.dirty <- struct{}{}:
	default:
	}
}

// Close tears down the subscription and waits for the evaluation loop to exit.
func (q *LiveQuery[T]) Close() {
	q.closeOnce.Do(func() {
		q.unsubscribe()
		q.cancel()
		<-q.done
		close(q.updates)
	})
}

func (q *LiveQuery[T]) loop(ctx context.Context) {
	defer close(q.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.dirty:
		}

		items, err := q.eval(ctx)
		if ctx.Err() != nil {
			return
		}

		// keep only the newest snapshot
		select {
		case <-q.updates:
		default:
		}
		q.updates <- Snapshot[T]{Items: items, Err: err}
	}
}
