package agent

import (
	"time"

	"github.com/udisondev/platekeeper/internal/config"
)

// loop is one periodic control loop. A stopped loop yields a nil channel,
// so its select case never fires and nothing polls while it is off.
type loop struct {
	name     string
	interval time.Duration
	ticker   *time.Ticker
}

func (l *loop) start() {
	if l.ticker != nil || l.interval <= 0 {
		return
	}
	l.ticker = time.NewTicker(l.interval)
}

func (l *loop) stop() {
	if l.ticker == nil {
		return
	}
	l.ticker.Stop()
	l.ticker = nil
}

func (l *loop) running() bool {
	return l.ticker != nil
}

// C returns the tick channel, nil while stopped.
func (l *loop) C() <-chan time.Time {
	if l.ticker == nil {
		return nil
	}
	return l.ticker.C
}

// loops are all periodic loops of the controller. Mode entry/exit hooks
// start and stop them; nothing else does.
type loops struct {
	stuck    loop
	movement loop
	combat   loop
	strafe   loop
	ping     loop
}

func newLoops(cfg config.Agent) loops {
	return loops{
		stuck:    loop{name: "stagnation check", interval: cfg.Navigation.StuckCheckInterval},
		movement: loop{name: "arrival check", interval: cfg.Navigation.MovementCheckInterval},
		combat:   loop{name: "combat tick", interval: cfg.Combat.TickInterval},
		strafe:   loop{name: "strafe tick", interval: cfg.Combat.StrafeInterval},
		ping:     loop{name: "ping", interval: cfg.PingInterval},
	}
}

func (ls *loops) stopAll() {
	for _, l := range []*loop{&ls.stuck, &ls.movement, &ls.combat, &ls.strafe, &ls.ping} {
		l.stop()
	}
}
