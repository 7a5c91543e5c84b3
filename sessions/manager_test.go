package sessions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Desarso/docassist/logger"
	"github.com/Desarso/docassist/metrics"
	"github.com/Desarso/docassist/models"
	"github.com/Desarso/docassist/normalize"
)

func testFactory(inv Invoker) ControllerFactory {
	return func(sessionID, profile string) (*Controller, error) {
		if profile == "missing" {
			return nil, errors.New("unknown profile")
		}
		return NewController(sessionID, tutorProfile(), normalize.New(), inv).WithLogger(logger.Discard()), nil
	}
}

func TestManager_Lifecycle(t *testing.T) {
	m := metrics.New()
	mgr := NewManager(testFactory(&stubInvoker{}), time.Hour).WithMetrics(m)

	a, err := mgr.Create("tutor")
	require.NoError(t, err)
	b, err := mgr.Create("tutor")
	require.NoError(t, err)
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, 2, mgr.Len())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ActiveSessions))

	got, err := mgr.Get(a.ID())
	require.NoError(t, err)
	assert.Same(t, a, got)

	require.NoError(t, mgr.Delete(a.ID()))
	_, err = mgr.Get(a.ID())
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
	assert.ErrorIs(t, mgr.Delete(a.ID()), models.ErrSessionNotFound)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveSessions))
}

func TestManager_CreateFactoryError(t *testing.T) {
	mgr := NewManager(testFactory(&stubInvoker{}), time.Hour)

	_, err := mgr.Create("missing")
	assert.Error(t, err)
	assert.Equal(t, 0, mgr.Len())
}

func TestManager_SessionsAreIsolated(t *testing.T) {
	mgr := NewManager(testFactory(&stubInvoker{reply: "ok"}), time.Hour)
	a, _ := mgr.Create("tutor")
	b, _ := mgr.Create("tutor")

	require.True(t, a.Submit(context.Background(), "only in a").OK())
	assert.Len(t, a.Turns(), 2)
	assert.Empty(t, b.Turns())
}

func TestManager_EvictIdle(t *testing.T) {
	inv := &stubInvoker{reply: "ok", started: make(chan struct{}, 1), gate: make(chan struct{})}
	mgr := NewManager(testFactory(inv), time.Minute)
	idle, _ := mgr.Create("tutor")
	busy, _ := mgr.Create("tutor")

	done := make(chan Result, 1)
	go func() { done <- busy.Submit(context.Background(), "long question") }()
	<-inv.started

	assert.Equal(t, 0, mgr.EvictIdle(time.Now()))
	assert.Equal(t, 1, mgr.EvictIdle(time.Now().Add(2*time.Minute)))

	_, err := mgr.Get(idle.ID())
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
	_, err = mgr.Get(busy.ID())
	assert.NoError(t, err)

	close(inv.gate)
	<-done
}

func TestManager_NoEvictionWithoutTTL(t *testing.T) {
	mgr := NewManager(testFactory(&stubInvoker{}), 0)
	_, _ = mgr.Create("tutor")

	assert.Equal(t, 0, mgr.EvictIdle(time.Now().Add(24*time.Hour)))
	assert.NoError(t, mgr.StartJanitor("not a schedule"))
}

func TestManager_Janitor(t *testing.T) {
	mgr := NewManager(testFactory(&stubInvoker{}), time.Minute)
	assert.Error(t, mgr.StartJanitor("not a schedule"))

	require.NoError(t, mgr.StartJanitor("@every 1m"))
	mgr.Stop()
	mgr.Stop()
}
