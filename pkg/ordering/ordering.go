// Package ordering places profile points within their profile.
//
// Points carry a sparse integer order. A new point goes Gap after the last
// one and a moved point takes the midpoint of its new neighbours, so most
// edits touch a single row. When two neighbours get closer than MinGap the
// whole profile is renumbered.
package ordering

import (
	"sort"

	"github.com/ItIsGreg/Raki-sub002/pkg/models"
)

const (
	Gap    = 1000
	MinGap = 10
)

// After returns the order of a point appended after a point with the given
// order. Use 0 for an empty profile.
func After(last int) int {
	return last + Gap
}

// Between returns an order strictly between prev and next. A zero prev
// means "first", a zero next means "last". ok is false when there is no room
// left and the profile needs renumbering first.
func Between(prev, next int) (order int, ok bool) {
	switch {
	case next == 0:
		return After(prev), true
	case next-prev < 2*MinGap:
		return 0, false
	default:
		return prev + (next-prev)/2, true
	}
}

// NeedsRenumber reports whether any two consecutive points of the sorted
// slice are closer than MinGap.
func NeedsRenumber(points []models.ProfilePoint) bool {
	for i := 1; i < len(points); i++ {
		if points[i].Order-points[i-1].Order < MinGap {
			return true
		}
	}
	return len(points) > 0 && points[0].Order < MinGap
}

// Renumber sorts the points and assigns orders Gap, 2*Gap, ... . It returns
// the points whose order changed.
func Renumber(points []models.ProfilePoint) []models.ProfilePoint {
	Sort(points)
	var changed []models.ProfilePoint
	for i := range points {
		order := (i + 1) * Gap
		if points[i].Order != order {
			points[i].Order = order
			changed = append(changed, points[i])
		}
	}
	return changed
}

// Sort orders points by order, then creation time, then id.
func Sort(points []models.ProfilePoint) {
	sort.SliceStable(points, func(i, j int) bool {
		a, b := points[i], points[j]
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})
}

// Link is the position of one point in the doubly linked list.
type Link struct {
	Previous models.ProfilePointID
	Next     models.ProfilePointID
}

// Links returns the list links for points that are already sorted.
func Links(points []models.ProfilePoint) []Link {
	links := make([]Link, len(points))
	for i := range points {
		if i > 0 {
			links[i].Previous = points[i-1].ID
		}
		if i < len(points)-1 {
			links[i].Next = points[i+1].ID
		}
	}
	return links
}

// Position returns the order for moving the point with id so it directly
// follows the point with after; a zero after moves it to the front. The
// sorted points may include the moved point itself. ok is false when the
// neighbours leave no room.
func Position(points []models.ProfilePoint, id, after models.ProfilePointID) (order int, ok bool) {
	others := make([]models.ProfilePoint, 0, len(points))
	for _, p := range points {
		if p.ID != id {
			others = append(others, p)
		}
	}

	idx := -1
	if !after.IsZero() {
		for i, p := range others {
			if p.ID == after {
				idx = i
				break
			}
		}
		if idx < 0 {
			return 0, false
		}
	}

	prev := 0
	if idx >= 0 {
		prev = others[idx].Order
	}
	if idx+1 >= len(others) {
		return After(prev), true
	}
	return Between(prev, others[idx+1].Order)
}
