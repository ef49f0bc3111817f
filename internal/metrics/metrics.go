package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "platekeeper"

// Agent exposes Prometheus collectors that report agent activity.
// A nil *Agent is valid and records nothing.
type Agent struct {
	mode        *prometheus.GaugeVec
	goals       *prometheus.CounterVec
	navOutcomes *prometheus.CounterVec
	rungs       *prometheus.CounterVec
	recoveries  *prometheus.CounterVec
	recDone     *prometheus.CounterVec
	restarts    prometheus.Counter
	teleports   *prometheus.CounterVec
	combats     *prometheus.CounterVec
	combatEnds  *prometheus.CounterVec
	attacks     *prometheus.CounterVec
	damage      prometheus.Counter
	sessions    prometheus.Counter
	reconnects  prometheus.Counter
}

var (
	defaultOnce sync.Once
	shared      *Agent
)

// Default returns the instance registered with the global registry.
// Created once, so repeated calls never hit duplicate registration.
func Default() *Agent {
	defaultOnce.Do(func() {
		shared = MustNew(prometheus.DefaultRegisterer)
	})
	return shared
}

// MustNew creates collectors and registers them with reg.
// Registration errors panic; tests pass a fresh prometheus.NewRegistry().
func MustNew(reg prometheus.Registerer) *Agent {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	counterVec := func(subsystem, name, help string, labels ...string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		}, labels)
	}
	counter := func(subsystem, name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		})
	}

	m := &Agent{
		mode: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mode",
			Help:      "1 for the current controller mode, 0 otherwise.",
		}, []string{"mode"}),
		goals:       counterVec("nav", "goals_total", "Goals issued to the path planner.", "kind"),
		navOutcomes: counterVec("nav", "outcomes_total", "Finished navigation episodes by outcome.", "outcome"),
		rungs:       counterVec("nav", "stagnation_rungs_total", "Stagnation ladder rungs fired.", "rung"),
		recoveries:  counterVec("recovery", "started_total", "Recovery procedures started.", "kind"),
		recDone:     counterVec("recovery", "finished_total", "Recovery procedures finished.", "kind", "outcome"),
		restarts:    counter("recovery", "full_restarts_total", "Full restart procedures executed."),
		teleports:   counterVec("recovery", "teleport_uses_total", "Teleport item uses.", "ok"),
		combats:     counterVec("combat", "sessions_total", "Combat sessions started.", "reason"),
		combatEnds:  counterVec("combat", "ended_total", "Combat sessions ended.", "reason"),
		attacks:     counterVec("combat", "attacks_total", "Attacks landed by variant.", "variant"),
		damage:      counter("combat", "damage_taken_total", "Hits taken from other players."),
		sessions:    counter("", "sessions_total", "World connections established."),
		reconnects:  counter("", "reconnects_total", "Reconnects after a lost session."),
	}

	reg.MustRegister(
		m.mode, m.goals, m.navOutcomes, m.rungs,
		m.recoveries, m.recDone, m.restarts, m.teleports,
		m.combats, m.combatEnds, m.attacks, m.damage,
		m.sessions, m.reconnects,
	)
	return m
}

// Handler serves the metrics of gatherer in the Prometheus text format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetMode marks mode as the current one.
func (m *Agent) SetMode(mode string) {
	if m == nil {
		return
	}
	m.mode.Reset()
	m.mode.WithLabelValues(mode).Set(1)
}

func (m *Agent) GoalIssued(kind string) {
	if m == nil {
		return
	}
	m.goals.WithLabelValues(kind).Inc()
}

func (m *Agent) NavOutcome(outcome string) {
	if m == nil {
		return
	}
	m.navOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Agent) Rung(rung string) {
	if m == nil {
		return
	}
	m.rungs.WithLabelValues(rung).Inc()
}

func (m *Agent) RecoveryStarted(kind string) {
	if m == nil {
		return
	}
	m.recoveries.WithLabelValues(kind).Inc()
}

func (m *Agent) RecoveryFinished(kind, outcome string) {
	if m == nil {
		return
	}
	m.recDone.WithLabelValues(kind, outcome).Inc()
}

func (m *Agent) FullRestart() {
	if m == nil {
		return
	}
	m.restarts.Inc()
}

func (m *Agent) TeleportUse(ok bool) {
	if m == nil {
		return
	}
	label := "false"
	if ok {
		label = "true"
	}
	m.teleports.WithLabelValues(label).Inc()
}

func (m *Agent) CombatStarted(reason string) {
	if m == nil {
		return
	}
	m.combats.WithLabelValues(reason).Inc()
}

func (m *Agent) CombatEnded(reason string) {
	if m == nil {
		return
	}
	m.combatEnds.WithLabelValues(reason).Inc()
}

func (m *Agent) Attack(variant string) {
	if m == nil {
		return
	}
	m.attacks.WithLabelValues(variant).Inc()
}

func (m *Agent) DamageTaken() {
	if m == nil {
		return
	}
	m.damage.Inc()
}

func (m *Agent) SessionStarted() {
	if m == nil {
		return
	}
	m.sessions.Inc()
}

func (m *Agent) Reconnect() {
	if m == nil {
		return
	}
	m.reconnects.Inc()
}
