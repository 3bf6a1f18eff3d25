package jobqueue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/campuscircle/campuscircle/app/models"
	"github.com/campuscircle/campuscircle/internal/pkg/database/dbtest"
	"github.com/campuscircle/campuscircle/internal/pkg/outbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestSetManager_GetManager(t *testing.T) {
	prev := GetManager()
	t.Cleanup(func() { SetManager(prev) })

	SetManager(nil)
	assert.Nil(t, GetManager())

	m := NewManager(NewQueue(1, Processors{}), nil, time.Second)
	SetManager(m)
	assert.Same(t, m, GetManager())
}

func TestNewManager_Defaults(t *testing.T) {
	queue := NewQueue(2, Processors{})

	m := NewManager(queue, nil, 0)
	assert.Same(t, queue, m.GetQueue())
	assert.Equal(t, DefaultRelayInterval, m.relayInterval)
	assert.False(t, m.IsRunning())

	m = NewManager(queue, nil, 500*time.Millisecond)
	assert.Equal(t, 500*time.Millisecond, m.relayInterval)
}

func TestNewManager_IntervalFromEnv(t *testing.T) {
	t.Setenv("OUTBOX_RELAY_INTERVAL_SECONDS", "7")

	m := NewManager(NewQueue(1, Processors{}), nil, 0)
	assert.Equal(t, 7*time.Second, m.relayInterval)
}

func TestManager_NudgeRelayNeverBlocks(t *testing.T) {
	m := NewManager(NewQueue(1, Processors{}), nil, time.Second)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			m.NudgeRelay()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("NudgeRelay blocked")
	}
	assert.Len(t, m.nudgeCh, 1, "nudges coalesce")

	var nilManager *Manager
	assert.NotPanics(t, func() { nilManager.NudgeRelay() })
}

func TestManager_RelayOnceWithoutRelay(t *testing.T) {
	m := NewManager(NewQueue(1, Processors{}), nil, time.Second)
	assert.NoError(t, m.RelayOnce())
}

type countingEnqueuer struct {
	mu  sync.Mutex
	ids []uint
}

func (c *countingEnqueuer) EnqueueOutboxEvent(_ context.Context, e models.OutboxEvent) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids = append(c.ids, e.ID)
	return "job", nil
}

func (c *countingEnqueuer) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.ids)
}

func TestManager_RelayWorkerDrainsOnNudge(t *testing.T) {
	db := dbtest.Open(t)
	require.NoError(t, db.Create(&models.OutboxEvent{
		Kind:        models.OutboxKindRealtime,
		AggregateID: "ORDER-1",
		Payload:     datatypes.JSON(`{"channel":"private-user-1","event":"transaction-updated"}`),
		Status:      models.OutboxStatusPending,
	}).Error)

	enq := &countingEnqueuer{}
	m := NewManager(NewQueue(1, Processors{}), outbox.NewRelay(outbox.NewRepository(db), enq, 10), time.Hour)

	m.relayTicker = time.NewTicker(time.Hour)
	defer m.relayTicker.Stop()
	stopCh := make(chan struct{})
	m.wg.Add(1)
	go m.relayWorker(stopCh)

	m.NudgeRelay()
	require.Eventually(t, func() bool { return enq.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	m.NudgeRelay()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, enq.count(), "relayed rows are not claimed twice")

	close(stopCh)
	m.wg.Wait()
}
