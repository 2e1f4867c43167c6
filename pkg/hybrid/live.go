package hybrid

import (
	"context"
	"sync"
	"time"

	"github.com/ItIsGreg/Raki-sub002/pkg/client"
	"github.com/ItIsGreg/Raki-sub002/pkg/models"
	"github.com/ItIsGreg/Raki-sub002/pkg/store"
	"github.com/rs/zerolog"
)

var liveCollections = append([]models.EntityType{models.EntityWorkspace}, models.MigrationOrder...)

const dialTimeout = 10 * time.Second

// Query returns a live list of the collection in the active workspace. For
// child collections parent restricts the list to the children of one
// parent, for profiles and datasets it names a mode; "" lists the whole
// workspace. The query is re-evaluated on every
// change and after every workspace switch.
func (s *Service) Query(ctx context.Context, collection models.EntityType, parent string) *store.LiveQuery[any] {
	return store.Watch(ctx, s.changes, collection, func(ctx context.Context) ([]any, error) {
		return s.ListAny(ctx, collection, parent)
	})
}

// Watch is the typed form of Query.
func Watch[T any](ctx context.Context, s *Service, collection models.EntityType, list func(ctx context.Context) ([]T, error)) *store.LiveQuery[T] {
	return store.Watch(ctx, s.changes, collection, list)
}

// cloudFeed follows the server event stream while a cloud workspace is
// active and republishes its changes.
type cloudFeed struct {
	remote  Remote
	changes *store.Notifier
	log     zerolog.Logger

	mu     sync.Mutex
	stream *client.EventStream
	wg     sync.WaitGroup
	closed bool
}

func newCloudFeed(remote Remote, changes *store.Notifier, log zerolog.Logger) *cloudFeed {
	return &cloudFeed{remote: remote, changes: changes, log: log}
}

// bind follows ws. A local workspace stops the stream.
func (f *cloudFeed) bind(ws models.Workspace) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopLocked()
	if f.closed || ws.IsLocal() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	stream, err := f.remote.Events(ctx)
	if err != nil {
		f.log.Warn().Err(err).Str("workspace", ws.ID.String()).Msg("cloud change events unavailable, live queries refresh on local writes and switches only")
		return
	}
	f.stream = stream

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		for c := range stream.Notifications() {
			if c.WorkspaceID == ws.ID {
				f.changes.Publish(c)
			}
		}
	}()
}

func (f *cloudFeed) stopLocked() {
	if f.stream == nil {
		return
	}
	if err := f.stream.Close(); err != nil {
		f.log.Debug().Err(err).Msg("closing event stream")
	}
	f.stream = nil
	f.wg.Wait()
}

func (f *cloudFeed) close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.stopLocked()
}
