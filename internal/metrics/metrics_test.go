package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilAgentIsNoop(t *testing.T) {
	var m *Agent
	assert.NotPanics(t, func() {
		m.SetMode("IDLE")
		m.GoalIssued("NEAR")
		m.NavOutcome("reached")
		m.Rung("jump")
		m.RecoveryStarted("kick")
		m.RecoveryFinished("kick", "ok")
		m.FullRestart()
		m.TeleportUse(true)
		m.CombatStarted("revenge")
		m.CombatEnded("target lost")
		m.Attack("plain")
		m.DamageTaken()
		m.SessionStarted()
		m.Reconnect()
	})
}

func TestSetModeKeepsSingleActiveMode(t *testing.T) {
	m := MustNew(prometheus.NewRegistry())

	m.SetMode("IDLE")
	m.SetMode("ENGAGED")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.mode.WithLabelValues("ENGAGED")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.mode.WithLabelValues("IDLE")))
}

func TestCounters(t *testing.T) {
	m := MustNew(prometheus.NewRegistry())

	m.Attack("critical")
	m.Attack("critical")
	m.Attack("plain")
	m.TeleportUse(false)
	m.RecoveryFinished("warp_exit", "exhausted")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.attacks.WithLabelValues("critical")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.attacks.WithLabelValues("plain")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.teleports.WithLabelValues("false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.recDone.WithLabelValues("warp_exit", "exhausted")))
}

func TestMustNewPanicsOnDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	MustNew(reg)
	assert.Panics(t, func() { MustNew(reg) })
}

func TestHandlerServesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := MustNew(reg)
	m.DamageTaken()

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "platekeeper_combat_damage_taken_total 1"))
}
