package sessions

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/Desarso/docassist/logger"
	"github.com/Desarso/docassist/metrics"
	"github.com/Desarso/docassist/models"
)

// ControllerFactory builds the controller of a new session.
type ControllerFactory func(sessionID string, profile string) (*Controller, error)

// Manager owns every live session. Sessions share nothing; the manager only
// maps ids to controllers and evicts idle ones.
type Manager struct {
	mu        sync.RWMutex
	sessions  map[string]*Controller
	factory   ControllerFactory
	idleTTL   time.Duration
	scheduler *cron.Cron
	metrics   *metrics.Metrics
	logger    *log.Logger
}

// NewManager creates a manager. A zero idleTTL disables eviction.
func NewManager(factory ControllerFactory, idleTTL time.Duration) *Manager {
	return &Manager{
		sessions: make(map[string]*Controller),
		factory:  factory,
		idleTTL:  idleTTL,
		logger:   logger.Logger.WithPrefix("[SESSIONS]"),
	}
}

// WithMetrics keeps the active session gauge current.
func (m *Manager) WithMetrics(mt *metrics.Metrics) *Manager {
	m.metrics = mt
	return m
}

// Create starts a new session for profile.
func (m *Manager) Create(profile string) (*Controller, error) {
	id := uuid.New().String()
	controller, err := m.factory(id, profile)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[id] = controller
	count := len(m.sessions)
	m.mu.Unlock()

	m.setGauge(count)
	m.logger.Info("session created", "id", id, "profile", controller.Profile().Name)
	return controller, nil
}

// Get returns the session with id.
func (m *Manager) Get(id string) (*Controller, error) {
	m.mu.RLock()
	controller, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrSessionNotFound, id)
	}
	return controller, nil
}

// Delete ends the session with id. Its conversation is discarded.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	count := len(m.sessions)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrSessionNotFound, id)
	}
	m.setGauge(count)
	m.logger.Info("session deleted", "id", id)
	return nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// EvictIdle removes sessions inactive since before now minus the idle TTL.
// Sessions with a submission in flight are kept. It returns the number of
// sessions removed.
func (m *Manager) EvictIdle(now time.Time) int {
	if m.idleTTL <= 0 {
		return 0
	}
	cutoff := now.Add(-m.idleTTL)

	m.mu.Lock()
	evicted := 0
	for id, controller := range m.sessions {
		if controller.State() == StateProcessing {
			continue
		}
		if controller.LastActive().Before(cutoff) {
			delete(m.sessions, id)
			evicted++
		}
	}
	count := len(m.sessions)
	m.mu.Unlock()

	if evicted > 0 {
		m.setGauge(count)
		m.logger.Info("evicted idle sessions", "count", evicted, "remaining", count)
	}
	return evicted
}

// StartJanitor runs EvictIdle on schedule, a robfig/cron spec such as
// "@every 1m".
func (m *Manager) StartJanitor(schedule string) error {
	if m.idleTTL <= 0 {
		return nil
	}
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(schedule, func() { m.EvictIdle(time.Now()) }); err != nil {
		return fmt.Errorf("invalid janitor schedule %q: %w", schedule, err)
	}
	scheduler.Start()

	m.mu.Lock()
	m.scheduler = scheduler
	m.mu.Unlock()
	return nil
}

// Stop halts the janitor.
func (m *Manager) Stop() {
	m.mu.Lock()
	scheduler := m.scheduler
	m.scheduler = nil
	m.mu.Unlock()
	if scheduler != nil {
		<-scheduler.Stop().Done()
	}
}

func (m *Manager) setGauge(count int) {
	if m.metrics != nil {
		m.metrics.ActiveSessions.Set(float64(count))
	}
}
