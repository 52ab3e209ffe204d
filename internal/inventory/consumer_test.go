package inventory

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cruise-reservation/internal/errs"
	"github.com/iliyamo/cruise-reservation/internal/event"
	"github.com/iliyamo/cruise-reservation/internal/model"
)

func testConsumer(t *testing.T) (*Consumer, *Store) {
	t.Helper()
	store := NewStore(testCatalog())
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewConsumer(store, logrus.NewEntry(log)), store
}

func created(t *testing.T, resID string, itinerary int64, passengers int) []byte {
	t.Helper()
	body, err := json.Marshal(event.ReservationCreated{
		Version:       event.SchemaVersion,
		ReservationID: resID,
		ItineraryID:   itinerary,
		Passengers:    passengers,
		ClientID:      "client-7",
		TotalPrice:    3600,
		CreatedAt:     time.Now().UTC(),
	})
	require.NoError(t, err)
	return body
}

func closed(t *testing.T, resID string, status model.ReservationStatus) []byte {
	t.Helper()
	body, err := json.Marshal(event.ReservationClosed{
		Version:       event.SchemaVersion,
		ReservationID: resID,
		Status:        status,
		Timestamp:     time.Now().UTC(),
	})
	require.NoError(t, err)
	return body
}

func TestConsumeCreatedThenCancelled(t *testing.T) {
	c, store := testConsumer(t)

	require.NoError(t, c.HandleReservationCreated(created(t, "res-1", 1, 3)))
	it, _ := store.Get(1)
	assert.Equal(t, 7, it.AvailableCabins)

	require.NoError(t, c.HandleReservationClosed(closed(t, "res-1", model.ReservationCancelled)))
	it, _ = store.Get(1)
	assert.Equal(t, 10, it.AvailableCabins)
}

func TestConsumeShortfallIsAcked(t *testing.T) {
	c, store := testConsumer(t)

	// Handler returns nil so the delivery is acked, not dead-lettered.
	require.NoError(t, c.HandleReservationCreated(created(t, "res-1", 2, 3)))
	it, _ := store.Get(2)
	assert.Equal(t, 0, it.AvailableCabins)
}

func TestConsumeMalformedPayloadIsRejected(t *testing.T) {
	c, _ := testConsumer(t)

	assert.ErrorIs(t, c.HandleReservationCreated([]byte("{not json")), errs.ErrValidation)
	assert.ErrorIs(t, c.HandleReservationClosed([]byte("{not json")), errs.ErrValidation)
}

func TestConsumeWrongSchemaVersionIsRejected(t *testing.T) {
	c, _ := testConsumer(t)

	body, err := json.Marshal(event.ReservationCreated{
		Version:       99,
		ReservationID: "res-1",
		ItineraryID:   1,
		Passengers:    1,
		ClientID:      "client-7",
	})
	require.NoError(t, err)
	assert.ErrorIs(t, c.HandleReservationCreated(body), errs.ErrValidation)
}

func TestConsumeClosedUnknownReservationIsNoOp(t *testing.T) {
	c, store := testConsumer(t)

	require.NoError(t, c.HandleReservationClosed(closed(t, "ghost", model.ReservationDeclined)))
	it, _ := store.Get(1)
	assert.Equal(t, 10, it.AvailableCabins)
}
