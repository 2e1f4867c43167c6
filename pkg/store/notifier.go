package store

import (
	"sync"

	"github.com/ItIsGreg/Raki-sub002/pkg/models"
)

// ChangeOperationReset tells subscribers that the whole collection may have
// changed, e.g. because the active workspace switched.
const ChangeOperationReset models.ChangeOperation = "RESET"

// Change describes one committed mutation of a collection. ID is empty for
// rows removed by a cascade and for resets.
type Change struct {
	Collection  models.EntityType      `json:"collection"`
	Op          models.ChangeOperation `json:"op"`
	ID          string                 `json:"id,omitempty"`
	WorkspaceID models.WorkspaceID     `json:"workspace_id"`
}

// Notifier is a collection level publish/subscribe hub.
//
// Publish calls the subscribers synchronously, outside the notifier lock,
// so a subscriber may subscribe or unsubscribe from inside its callback.
// Subscribers must return quickly.
type Notifier struct {
	mu   sync.RWMutex
	next uint64
	subs map[models.EntityType]map[uint64]func(Change)
}

func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[models.EntityType]map[uint64]func(Change))}
}

// Subscribe registers fn for changes to the collection and returns the
// function that removes it.
func (n *Notifier) Subscribe(collection models.EntityType, fn func(Change)) (unsubscribe func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.next++
	id := n.next
	if n.subs[collection] == nil {
		n.subs[collection] = make(map[uint64]func(Change))
	}
	n.subs[collection][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			delete(n.subs[collection], id)
		})
	}
}

func (n *Notifier) Publish(c Change) {
	n.mu.RLock()
	fns := make([]func(Change), 0, len(n.subs[c.Collection]))
	for _, fn := range n.subs[c.Collection] {
		fns = append(fns, fn)
	}
	n.mu.RUnlock()

	for _, fn := range fns {
		fn(c)
	}
}

// Reset publishes a reset to every collection that has subscribers.
func (n *Notifier) Reset(ws models.WorkspaceID) {
	n.mu.RLock()
	collections := make([]models.EntityType, 0, len(n.subs))
	for c, subs := range n.subs {
		if len(subs) > 0 {
			collections = append(collections, c)
		}
	}
	n.mu.RUnlock()

	for _, c := range collections {
		n.Publish(Change{Collection: c, Op: ChangeOperationReset, WorkspaceID: ws})
	}
}

// Subscribers returns the number of subscribers of the collection.
func (n *Notifier) Subscribers(collection models.EntityType) int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subs[collection])
}
