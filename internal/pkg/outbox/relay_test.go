package outbox

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/campuscircle/campuscircle/app/models"
	"github.com/campuscircle/campuscircle/internal/pkg/database/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type fakeEnqueuer struct {
	failKinds map[models.OutboxKind]bool
	enqueued  []models.OutboxEvent
}

func (f *fakeEnqueuer) EnqueueOutboxEvent(_ context.Context, e models.OutboxEvent) (string, error) {
	if f.failKinds[e.Kind] {
		return "", errors.New("redis unavailable")
	}
	f.enqueued = append(f.enqueued, e)
	return fmt.Sprintf("job-%d", e.ID), nil
}

func seedOutbox(t *testing.T, db *gorm.DB, kinds ...models.OutboxKind) {
	t.Helper()
	for _, kind := range kinds {
		require.NoError(t, db.Create(&models.OutboxEvent{
			Kind:        kind,
			AggregateID: "ORDER-1",
			Payload:     datatypes.JSON(`{}`),
			Status:      models.OutboxStatusPending,
		}).Error)
	}
}

func statuses(t *testing.T, db *gorm.DB) []models.OutboxEvent {
	t.Helper()
	var events []models.OutboxEvent
	require.NoError(t, db.Order("id").Find(&events).Error)
	return events
}

func TestRelay_EnqueuesPendingEventsOnce(t *testing.T) {
	db := dbtest.Open(t)
	seedOutbox(t, db, models.OutboxKindRealtime, models.OutboxKindEmail)
	enq := &fakeEnqueuer{}
	relay := NewRelay(NewRepository(db), enq, 10)

	n, err := relay.RelayOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = relay.RelayOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, enq.enqueued, 2)

	for _, e := range statuses(t, db) {
		assert.Equal(t, models.OutboxStatusRelayed, e.Status)
		assert.Equal(t, fmt.Sprintf("job-%d", e.ID), e.JobID)
		assert.NotNil(t, e.RelayedAt)
	}
}

func TestRelay_ReleasesOnEnqueueFailure(t *testing.T) {
	db := dbtest.Open(t)
	seedOutbox(t, db, models.OutboxKindRealtime, models.OutboxKindArchive)
	enq := &fakeEnqueuer{failKinds: map[models.OutboxKind]bool{models.OutboxKindArchive: true}}
	relay := NewRelay(NewRepository(db), enq, 10)

	n, err := relay.RelayOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	events := statuses(t, db)
	assert.Equal(t, models.OutboxStatusRelayed, events[0].Status)
	assert.Equal(t, models.OutboxStatusPending, events[1].Status)
	assert.Equal(t, "redis unavailable", events[1].Error)
	assert.Nil(t, events[1].RelayedAt)

	enq.failKinds = nil
	n, err = relay.RelayOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, enq.enqueued, 2)
}

func TestRelay_BatchSize(t *testing.T) {
	db := dbtest.Open(t)
	seedOutbox(t, db, models.OutboxKindRealtime, models.OutboxKindRealtime, models.OutboxKindRealtime)
	relay := NewRelay(NewRepository(db), &fakeEnqueuer{}, 2)

	n, err := relay.RelayOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	counts, err := relay.Repository().CountByStatus()
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[models.OutboxStatusRelayed])
	assert.Equal(t, int64(1), counts[models.OutboxStatusPending])
}

func TestRepository_MarkFailed(t *testing.T) {
	db := dbtest.Open(t)
	seedOutbox(t, db, models.OutboxKindEmail)
	repo := NewRepository(db)

	claimed, err := repo.ClaimPending(10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	require.NoError(t, repo.MarkFailed(claimed[0].ID, "smtp down"))
	events := statuses(t, db)
	assert.Equal(t, models.OutboxStatusFailed, events[0].Status)
	assert.Equal(t, "smtp down", events[0].Error)

	// Failed events are not picked up again.
	claimed, err = repo.ClaimPending(10)
	require.NoError(t, err)
	assert.Empty(t, claimed)
}

func TestRelay_ReleasesAbandonedClaims(t *testing.T) {
	db := dbtest.Open(t)
	old := time.Now().Add(-time.Hour)
	recent := time.Now()
	for _, e := range []models.OutboxEvent{
		{Kind: models.OutboxKindRealtime, AggregateID: "ORDER-1", RelayedAt: &old},
		{Kind: models.OutboxKindEmail, AggregateID: "ORDER-2", RelayedAt: &recent},
		{Kind: models.OutboxKindArchive, AggregateID: "ORDER-3", RelayedAt: &old, JobID: "job-existing"},
	} {
		e.Payload = datatypes.JSON(`{}`)
		e.Status = models.OutboxStatusRelayed
		require.NoError(t, db.Create(&e).Error)
	}
	enq := &fakeEnqueuer{}
	relay := NewRelay(NewRepository(db), enq, 10)

	n, err := relay.RelayOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, enq.enqueued, 1)
	assert.Equal(t, "ORDER-1", enq.enqueued[0].AggregateID)

	events := statuses(t, db)
	assert.Equal(t, models.OutboxStatusRelayed, events[0].Status)
	assert.Equal(t, fmt.Sprintf("job-%d", events[0].ID), events[0].JobID)
	// A fresh claim may still be in flight.
	assert.Equal(t, models.OutboxStatusRelayed, events[1].Status)
	assert.Empty(t, events[1].JobID)
	assert.Equal(t, "job-existing", events[2].JobID)
}

func TestRepository_ReleaseStale(t *testing.T) {
	db := dbtest.Open(t)
	seedOutbox(t, db, models.OutboxKindRealtime)
	repo := NewRepository(db)

	claimed, err := repo.ClaimPending(10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	n, err := repo.ReleaseStale(time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = repo.ReleaseStale(time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	events := statuses(t, db)
	assert.Equal(t, models.OutboxStatusPending, events[0].Status)
	assert.Nil(t, events[0].RelayedAt)
	assert.NotEmpty(t, events[0].Error)
}
