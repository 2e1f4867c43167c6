package ordering

import (
	"testing"
	"time"

	"github.com/ItIsGreg/Raki-sub002/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func points(orders ...int) []models.ProfilePoint {
	now := time.Now()
	ps := make([]models.ProfilePoint, len(orders))
	for i, o := range orders {
		ps[i] = models.ProfilePoint{ID: models.NewProfilePointID(), Order: o, CreatedAt: now.Add(time.Duration(i) * time.Second)}
	}
	return ps
}

func TestBetween(t *testing.T) {
	tests := []struct {
		name       string
		prev, next int
		want       int
		ok         bool
	}{
		{"empty profile", 0, 0, Gap, true},
		{"append", 3000, 0, 4000, true},
		{"midpoint", 1000, 2000, 1500, true},
		{"front", 0, 1000, 500, true},
		{"exhausted", 1000, 1015, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Between(tt.prev, tt.next)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenumber(t *testing.T) {
	ps := points(5, 7, 3000)
	assert.True(t, NeedsRenumber(ps))

	changed := Renumber(ps)
	require.Len(t, changed, 3)
	assert.Equal(t, []int{1000, 2000, 3000}, []int{ps[0].Order, ps[1].Order, ps[2].Order})
	assert.False(t, NeedsRenumber(ps))

	assert.Empty(t, Renumber(ps))
}

func TestSortBreaksTiesByCreation(t *testing.T) {
	ps := points(1000, 1000)
	first := ps[0].ID
	ps[0], ps[1] = ps[1], ps[0]

	Sort(ps)
	assert.Equal(t, first, ps[0].ID)
}

func TestLinks(t *testing.T) {
	ps := points(1000, 2000, 3000)
	links := Links(ps)

	assert.True(t, links[0].Previous.IsZero())
	assert.Equal(t, ps[1].ID, links[0].Next)
	assert.Equal(t, ps[0].ID, links[1].Previous)
	assert.Equal(t, ps[2].ID, links[1].Next)
	assert.Equal(t, ps[1].ID, links[2].Previous)
	assert.True(t, links[2].Next.IsZero())

	assert.Empty(t, Links(nil))
}

func TestPosition(t *testing.T) {
	ps := points(1000, 2000, 3000)

	order, ok := Position(ps, ps[2].ID, models.ProfilePointID{})
	require.True(t, ok)
	assert.Equal(t, 500, order)

	order, ok = Position(ps, ps[0].ID, ps[1].ID)
	require.True(t, ok)
	assert.Equal(t, 2500, order)

	order, ok = Position(ps, ps[0].ID, ps[2].ID)
	require.True(t, ok)
	assert.Equal(t, 4000, order)

	_, ok = Position(ps, ps[0].ID, models.NewProfilePointID())
	assert.False(t, ok)

	tight := points(1000, 1005, 1010)
	_, ok = Position(tight, tight[2].ID, tight[0].ID)
	assert.False(t, ok)
}
