package outbox

import (
	"context"
	"sync"
	"time"

	"github.com/campuscircle/campuscircle/app/models"
	"github.com/campuscircle/campuscircle/internal/pkg/metrics"
	"github.com/gofiber/fiber/v2/log"
)

const (
	DefaultBatchSize = 100
	// DefaultClaimTimeout is how long a claimed event may wait for its job id
	// before another run picks it up again.
	DefaultClaimTimeout = 5 * time.Minute
)

// Enqueuer hands an outbox event to the background job queue and returns
// the job id.
type Enqueuer interface {
	EnqueueOutboxEvent(ctx context.Context, e models.OutboxEvent) (string, error)
}

// Relay moves committed outbox events onto the job queue.
type Relay struct {
	repo      Repository
	enqueuer  Enqueuer
	batchSize int
	mu        sync.Mutex

	// ClaimTimeout overrides DefaultClaimTimeout when positive.
	ClaimTimeout time.Duration
}

// NewRelay creates a relay. batchSize <= 0 uses DefaultBatchSize.
func NewRelay(repo Repository, enqueuer Enqueuer, batchSize int) *Relay {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Relay{repo: repo, enqueuer: enqueuer, batchSize: batchSize}
}

// Repository returns the outbox repository the relay works on.
func (r *Relay) Repository() Repository {
	return r.repo
}

// RelayOnce claims one batch of pending events and enqueues them. Events
// that cannot be enqueued go back to pending for the next run, as do claims
// left behind by a relay that died before enqueueing.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.releaseStale()

	events, err := r.repo.ClaimPending(r.batchSize)
	if err != nil {
		return 0, err
	}

	relayed := 0
	for _, e := range events {
		if ctx.Err() != nil {
			r.release(e, ctx.Err().Error())
			continue
		}
		jobID, err := r.enqueuer.EnqueueOutboxEvent(ctx, e)
		if err != nil {
			log.Warnf("[Outbox] Enqueue of event %d (%s) failed, will retry: %v", e.ID, e.Kind, err)
			metrics.RecordOutboxRelay(string(e.Kind), "error")
			r.release(e, err.Error())
			continue
		}
		if err := r.repo.MarkEnqueued(e.ID, jobID); err != nil {
			log.Errorf("[Outbox] Failed to store job id for event %d: %v", e.ID, err)
		}
		metrics.RecordOutboxRelay(string(e.Kind), "ok")
		relayed++
	}

	if relayed > 0 {
		log.Debugf("[Outbox] Relayed %d events", relayed)
	}
	return relayed, nil
}

func (r *Relay) release(e models.OutboxEvent, reason string) {
	if err := r.repo.Release(e.ID, reason); err != nil {
		log.Errorf("[Outbox] Failed to release event %d: %v", e.ID, err)
	}
}

func (r *Relay) releaseStale() {
	timeout := r.ClaimTimeout
	if timeout <= 0 {
		timeout = DefaultClaimTimeout
	}
	n, err := r.repo.ReleaseStale(time.Now().Add(-timeout))
	if err != nil {
		log.Errorf("[Outbox] Failed to release stale claims: %v", err)
		return
	}
	if n > 0 {
		log.Warnf("[Outbox] Released %d claims that were never enqueued", n)
	}
}
