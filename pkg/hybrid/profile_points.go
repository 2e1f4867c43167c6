package hybrid

import (
	"context"
	"fmt"

	"github.com/ItIsGreg/Raki-sub002/pkg/models"
	"github.com/ItIsGreg/Raki-sub002/pkg/ordering"
	"github.com/ItIsGreg/Raki-sub002/pkg/store"
)

// MoveProfilePoint places the point directly after the point after, or
// first when after is zero. When the gap at the target is exhausted the
// whole profile is renumbered first.
func (s *Service) MoveProfilePoint(ctx context.Context, id, after models.ProfilePointID) (*models.ProfilePoint, error) {
	return withResult(s, func(b store.EntityStore, ws models.WorkspaceID) (*models.ProfilePoint, error) {
		point, err := b.GetProfilePoint(ctx, ws, id)
		if err != nil {
			return nil, err
		}
		if !after.IsZero() {
			anchor, err := b.GetProfilePoint(ctx, ws, after)
			if err != nil {
				return nil, err
			}
			if anchor.ProfileID != point.ProfileID {
				return nil, store.Integrity(models.EntityProfilePoint, "point %s belongs to another profile", after)
			}
		}

		points, err := b.ListProfilePoints(ctx, ws, point.ProfileID)
		if err != nil {
			return nil, err
		}
		ordering.Sort(points)

		order, ok := ordering.Position(points, id, after)
		if !ok {
			for _, p := range ordering.Renumber(points) {
				if p.ID == id {
					continue
				}
				p := p
				if err := b.UpdateProfilePoint(ctx, &p); err != nil {
					return nil, fmt.Errorf("renumber profile points: %w", err)
				}
			}
			if order, ok = ordering.Position(points, id, after); !ok {
				return nil, fmt.Errorf("no room to move point %s after renumbering", id)
			}
		}

		point.Order = order
		if err := b.UpdateProfilePoint(ctx, point); err != nil {
			return nil, err
		}
		return point, nil
	})
}
