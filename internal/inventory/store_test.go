package inventory

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cruise-reservation/internal/errs"
	"github.com/iliyamo/cruise-reservation/internal/model"
)

func testCatalog() []model.Itinerary {
	return []model.Itinerary{
		{
			ID: 1, Destination: "Bahamas", Ship: "MS Meridian", Departure: "2026-09-10",
			Arrival: "2026-09-17", BoardingPort: "Miami", Nights: 7, Price: 1200,
			TotalCabins: 10, AvailableCabins: 10,
		},
		{
			ID: 2, Destination: "Caribbean", Ship: "MS Horizon", Departure: "2026-10-01",
			Arrival: "2026-10-11", BoardingPort: "San Juan", Nights: 10, Price: 1850,
			TotalCabins: 5, AvailableCabins: 0,
		},
	}
}

func TestReserveThenCancelRestoresAvailability(t *testing.T) {
	s := NewStore(testCatalog())

	require.NoError(t, s.ApplyReserved("res-1", 1, 3))
	it, err := s.Get(1)
	require.NoError(t, err)
	assert.Equal(t, 7, it.AvailableCabins)

	assert.True(t, s.ApplyReleased("res-1"))
	it, err = s.Get(1)
	require.NoError(t, err)
	assert.Equal(t, 10, it.AvailableCabins)
}

func TestReserveShortfallLeavesCountUntouched(t *testing.T) {
	s := NewStore(testCatalog())

	err := s.ApplyReserved("res-1", 1, 11)
	assert.ErrorIs(t, err, errs.ErrConflict)

	it, _ := s.Get(1)
	assert.Equal(t, 10, it.AvailableCabins)

	// The shortfall recorded no side-table entry, so a later close event
	// for the same reservation must be a no-op.
	assert.False(t, s.ApplyReleased("res-1"))
	it, _ = s.Get(1)
	assert.Equal(t, 10, it.AvailableCabins)
}

func TestReserveUnknownItinerary(t *testing.T) {
	s := NewStore(testCatalog())
	assert.ErrorIs(t, s.ApplyReserved("res-1", 99, 1), errs.ErrNotFound)
}

func TestReleaseUnknownReservationIsNoOp(t *testing.T) {
	s := NewStore(testCatalog())
	assert.False(t, s.ApplyReleased("never-created"))
	it, _ := s.Get(1)
	assert.Equal(t, 10, it.AvailableCabins)
}

func TestReleaseIsCappedAtTotal(t *testing.T) {
	s := NewStore(testCatalog())
	require.NoError(t, s.ApplyReserved("res-1", 1, 2))

	// A second release for the same id must not push past the total.
	assert.True(t, s.ApplyReleased("res-1"))
	assert.False(t, s.ApplyReleased("res-1"))
	it, _ := s.Get(1)
	assert.Equal(t, 10, it.AvailableCabins)
}

// TestInvariantUnderRandomInterleaving drives random create/close sequences
// and checks 0 <= available <= total after every applied event.
func TestInvariantUnderRandomInterleaving(t *testing.T) {
	s := NewStore(testCatalog())
	rng := rand.New(rand.NewSource(42))

	open := make([]string, 0)
	for i := 0; i < 2000; i++ {
		switch {
		case rng.Intn(2) == 0:
			id := fmt.Sprintf("res-%d", i)
			if err := s.ApplyReserved(id, 1, rng.Intn(4)+1); err == nil {
				open = append(open, id)
			}
		case len(open) > 0:
			idx := rng.Intn(len(open))
			s.ApplyReleased(open[idx])
			open = append(open[:idx], open[idx+1:]...)
		default:
			// Close events for ids that were never created are no-ops.
			s.ApplyReleased(fmt.Sprintf("ghost-%d", i))
		}
		it, err := s.Get(1)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, it.AvailableCabins, 0)
		assert.LessOrEqual(t, it.AvailableCabins, it.TotalCabins)
	}
}

func TestQueryFiltersAreCaseInsensitive(t *testing.T) {
	s := NewStore(testCatalog())

	results := s.Query(Filter{Destination: "bahamas"})
	require.Len(t, results, 1)
	assert.Equal(t, int64(1), results[0].ID)

	results = s.Query(Filter{BoardingPort: "SAN JUAN"})
	require.Len(t, results, 1)
	assert.Equal(t, int64(2), results[0].ID)
}

func TestQueryByDepartureDate(t *testing.T) {
	s := NewStore(testCatalog())
	results := s.Query(Filter{Departure: "2026-09-10"})
	require.Len(t, results, 1)
	assert.Equal(t, int64(1), results[0].ID)

	assert.Empty(t, s.Query(Filter{Departure: "2026-01-01"}))
}

func TestUnfilteredQueryExcludesSoldOut(t *testing.T) {
	s := NewStore(testCatalog())

	results := s.Query(Filter{})
	require.Len(t, results, 1)
	assert.Equal(t, int64(1), results[0].ID)

	// A targeted filter still surfaces the sold-out itinerary.
	results = s.Query(Filter{Destination: "Caribbean"})
	require.Len(t, results, 1)
	assert.Equal(t, 0, results[0].AvailableCabins)
}
