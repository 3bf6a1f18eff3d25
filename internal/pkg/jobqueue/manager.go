package jobqueue

import (
	"context"
	"sync"
	"time"

	"github.com/campuscircle/campuscircle/internal/pkg/env"
	"github.com/campuscircle/campuscircle/internal/pkg/outbox"
	"github.com/gofiber/fiber/v2/log"
)

const DefaultRelayInterval = 2 * time.Second

// Manager manages the job queue and the outbox relay that feeds it
type Manager struct {
	queue         *Queue
	relay         *outbox.Relay
	relayInterval time.Duration
	relayTicker   *time.Ticker
	nudgeCh       chan struct{}
	stopCh        chan struct{}
	wg            sync.WaitGroup
	mu            sync.Mutex
	running       bool
}

var (
	globalManager *Manager
	managerMu     sync.RWMutex
)

// NewManager wires a queue to an outbox relay. A non-positive interval
// falls back to OUTBOX_RELAY_INTERVAL_SECONDS, then DefaultRelayInterval.
func NewManager(queue *Queue, relay *outbox.Relay, interval time.Duration) *Manager {
	if interval <= 0 {
		interval = time.Duration(env.GetEnvInt("OUTBOX_RELAY_INTERVAL_SECONDS", 0)) * time.Second
	}
	if interval <= 0 {
		interval = DefaultRelayInterval
	}
	return &Manager{
		queue:         queue,
		relay:         relay,
		relayInterval: interval,
		nudgeCh:       make(chan struct{}, 1),
		stopCh:        make(chan struct{}),
	}
}

// SetManager installs the process-wide manager.
func SetManager(m *Manager) {
	managerMu.Lock()
	defer managerMu.Unlock()
	globalManager = m
}

// GetManager returns the process-wide manager, nil before SetManager.
func GetManager() *Manager {
	managerMu.RLock()
	defer managerMu.RUnlock()
	return globalManager
}

// GetQueue returns the managed job queue
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// Start starts the job queue and background tasks
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Recreate stop channel for each start cycle so manager can be restarted safely.
	m.stopCh = make(chan struct{})
	m.running = true
	log.Info("[JobQueue Manager] Starting job queue and outbox relay")

	m.queue.Start()

	if m.relay != nil {
		m.relayTicker = time.NewTicker(m.relayInterval)
		m.wg.Add(1)
		go m.relayWorker(m.stopCh)
	}

	log.Info("[JobQueue Manager] Started successfully")
}

// Stop stops the job queue and background tasks
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[JobQueue Manager] Stopping job queue and outbox relay...")

	if m.relayTicker != nil {
		m.relayTicker.Stop()
	}

	// Signal workers to stop
	close(m.stopCh)
	m.running = false

	// Wait for background workers to finish
	m.wg.Wait()

	m.queue.Stop()

	log.Info("[JobQueue Manager] Stopped successfully")
}

// NudgeRelay asks the relay to run now instead of at the next tick. It
// never blocks; nudges coalesce while a run is pending.
func (m *Manager) NudgeRelay() {
	if m == nil {
		return
	}
	select {
	case m.nudgeCh <- struct{}{}:
	default:
	}
}

// relayWorker drains the outbox on every tick and nudge
func (m *Manager) relayWorker(stopCh <-chan struct{}) {
	defer m.wg.Done()
	log.Infof("[JobQueue Manager] Started outbox relay (interval: %s)", m.relayInterval)

	for {
		select {
		case <-stopCh:
			log.Info("[JobQueue Manager] Outbox relay stopping")
			return
		case <-m.relayTicker.C:
		case <-m.nudgeCh:
		}
		if err := m.RelayOnce(); err != nil {
			log.Errorf("[JobQueue Manager] Outbox relay error: %v", err)
		}
	}
}

// RelayOnce runs a single relay pass (also used by tools).
func (m *Manager) RelayOnce() error {
	if m.relay == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_, err := m.relay.RelayOnce(ctx)
	return err
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}
