package hybrid

import (
	"context"
	"io"

	"github.com/ItIsGreg/Raki-sub002/pkg/models"
	"github.com/ItIsGreg/Raki-sub002/pkg/snapshot"
	"github.com/ItIsGreg/Raki-sub002/pkg/store"
)

// Export writes a snapshot of the active workspace to w.
func (s *Service) Export(ctx context.Context, w io.Writer) (*snapshot.Snapshot, error) {
	return withResult(s, func(b store.EntityStore, ws models.WorkspaceID) (*snapshot.Snapshot, error) {
		return snapshot.Export(ctx, b, ws, w)
	})
}

// Import creates the entities of a snapshot in the active workspace and
// returns how many were created per collection.
func (s *Service) Import(ctx context.Context, r io.Reader) (map[models.EntityType]int, error) {
	snap, err := snapshot.Read(r)
	if err != nil {
		return nil, err
	}
	return withResult(s, func(b store.EntityStore, ws models.WorkspaceID) (map[models.EntityType]int, error) {
		created, err := snapshot.Restore(ctx, b, ws, snap)
		if err != nil {
			return created, err
		}
		s.log.Info().Str("workspace", ws.String()).Interface("created", created).Msg("snapshot imported")
		return created, nil
	})
}
