package testutil

import (
	"context"
	"slices"
	"sync"

	"github.com/udisondev/platekeeper/internal/config"
	"github.com/udisondev/platekeeper/internal/model"
)

// FakePlanner — path planner для тестов.
// Goto returns queued results in order; when the queue is empty it either
// returns nil or, with Block set, waits until Release or ctx cancellation.
type FakePlanner struct {
	mu sync.Mutex

	results  []error
	block    bool
	release  chan error
	pathing  bool
	goals    []model.Goal
	stops    int
	configs  []config.PlannerConfig
	inflight int
}

func NewFakePlanner() *FakePlanner {
	return &FakePlanner{release: make(chan error, 16)}
}

// QueueResults appends Goto results.
func (p *FakePlanner) QueueResults(errs ...error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results = append(p.results, errs...)
}

// SetBlock makes Goto wait for Release when no result is queued.
func (p *FakePlanner) SetBlock(block bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.block = block
}

// Release completes one blocked Goto with err.
func (p *FakePlanner) Release(err error) {
	p.release <- err
}

// SetPathing overrides the IsPathing report.
func (p *FakePlanner) SetPathing(pathing bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pathing = pathing
}

func (p *FakePlanner) Configure(ctx context.Context, cfg config.PlannerConfig) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.configs = append(p.configs, cfg)
	return nil
}

func (p *FakePlanner) Goto(ctx context.Context, goal model.Goal) error {
	p.mu.Lock()
	p.goals = append(p.goals, goal)
	p.pathing = true
	p.inflight++
	var (
		result   error
		queued   bool
		blocking = p.block
	)
	if len(p.results) > 0 {
		result, queued = p.results[0], true
		p.results = p.results[1:]
	}
	p.mu.Unlock()

	if !queued && blocking {
		select {
		case result = <-p.release:
		case <-ctx.Done():
			result = ctx.Err()
		}
	}

	p.mu.Lock()
	p.inflight--
	if p.inflight == 0 {
		p.pathing = false
	}
	p.mu.Unlock()
	return result
}

func (p *FakePlanner) Stop(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stops++
	p.pathing = false
	return nil
}

func (p *FakePlanner) IsPathing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pathing
}

func (p *FakePlanner) Goals() []model.Goal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.goals)
}

func (p *FakePlanner) Stops() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stops
}

func (p *FakePlanner) Configs() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.configs)
}

// InFlight returns the number of Goto calls currently running.
func (p *FakePlanner) InFlight() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inflight
}
