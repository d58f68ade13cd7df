package proc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/sourcegraph/conc/panics"
)

// Func is the body of a proc. It receives the manager's base context
// (bounded by the proc's timeout) and the fixed argument mapping from
// Options.Args.
type Func func(ctx context.Context, args map[string]string) error

// Manager owns the registered procs, prototypes, and named locks of one
// run. All procs of a manager share its base context.
type Manager struct {
	ctx context.Context
	log *slog.Logger

	mu     sync.Mutex
	procs  map[string]*Proc
	order  []string
	protos map[string]Options
	locks  map[string]*sync.Mutex
}

func NewManager(ctx context.Context, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		ctx:    ctx,
		log:    log,
		procs:  map[string]*Proc{},
		protos: map[string]Options{},
		locks:  map[string]*sync.Mutex{},
	}
}

// Proto registers a named prototype whose options fill unset fields of
// procs that reference it.
func (m *Manager) Proto(name string, opts Options) error {
	if name == "" {
		return fmt.Errorf("proto name cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.protos[name]; ok {
		return fmt.Errorf("duplicate proto name: %s", name)
	}
	m.protos[name] = opts
	return nil
}

// Register adds a proc under opts.Name and returns its handle. When
// opts.Now is set the proc starts immediately; its dependencies must
// already be registered.
func (m *Manager) Register(opts Options, fn Func) (*Proc, error) {
	if opts.Name == "" {
		return nil, fmt.Errorf("proc name cannot be empty")
	}
	if fn == nil {
		return nil, fmt.Errorf("proc %s has no function", opts.Name)
	}

	m.mu.Lock()
	if opts.Proto != "" {
		proto, ok := m.protos[opts.Proto]
		if !ok {
			m.mu.Unlock()
			return nil, fmt.Errorf("proc %s references unknown proto: %s", opts.Name, opts.Proto)
		}
		opts = opts.merge(proto)
	}
	if _, ok := m.procs[opts.Name]; ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("duplicate proc name: %s", opts.Name)
	}
	p := newProc(m, opts, fn)
	p.result.Status = StatusPending
	m.procs[opts.Name] = p
	m.order = append(m.order, opts.Name)
	m.mu.Unlock()

	if opts.Now {
		if err := m.Start(opts.Name); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Start launches the named proc and, transitively, any unstarted
// dependencies. Starting an already-running proc is a no-op.
func (m *Manager) Start(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startLocked(name, map[string]bool{})
}

func (m *Manager) startLocked(name string, visiting map[string]bool) error {
	p, ok := m.procs[name]
	if !ok {
		return fmt.Errorf("unknown proc: %s", name)
	}
	if p.started {
		return nil
	}
	if visiting[name] {
		return fmt.Errorf("circular dependency detected at proc: %s", name)
	}
	visiting[name] = true
	for _, dep := range p.opts.Deps {
		if err := m.startLocked(dep, visiting); err != nil {
			return fmt.Errorf("proc %s: %w", name, err)
		}
	}
	visiting[name] = false

	p.started = true
	go m.run(p)
	return nil
}

// StartAll launches every registered proc that has not started yet.
func (m *Manager) StartAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, name := range m.order {
		if err := m.startLocked(name, map[string]bool{}); err != nil {
			return err
		}
	}
	return nil
}

// WaitAll blocks until every registered proc has finished or ctx is
// done. Unstarted procs are started first. With raise set, failures and
// timeouts are returned as one aggregated error; without it they are
// swallowed and only ctx cancellation can produce an error.
func (m *Manager) WaitAll(ctx context.Context, raise bool) error {
	if err := m.StartAll(); err != nil {
		if !raise {
			return nil
		}
		return err
	}

	m.mu.Lock()
	names := append([]string{}, m.order...)
	m.mu.Unlock()

	var failures []error
	for _, name := range names {
		p := m.proc(name)
		select {
		case <-p.done:
		case <-ctx.Done():
			return fmt.Errorf("interrupted waiting for proc %s: %w", name, ctx.Err())
		}
		if res := p.Result(); res.Status == StatusFailed {
			failures = append(failures, fmt.Errorf("%s: %w", name, res.Err))
		}
	}

	if raise && len(failures) > 0 {
		return errors.Join(failures...)
	}
	return nil
}

// Results returns the result snapshot for every registered proc, in
// registration order.
func (m *Manager) Results() map[string]Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]Result, len(m.procs))
	for name, p := range m.procs {
		out[name] = p.result
	}
	return out
}

func (m *Manager) proc(name string) *Proc {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.procs[name]
}

func (m *Manager) lock(name string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	mu, ok := m.locks[name]
	if !ok {
		mu = &sync.Mutex{}
		m.locks[name] = mu
	}
	return mu
}

func (m *Manager) run(p *Proc) {
	defer close(p.done)

	for _, dep := range p.opts.Deps {
		dp := m.proc(dep)
		select {
		case <-dp.done:
		case <-m.ctx.Done():
			p.failf("canceled waiting for dependency %s: %w", dep, m.ctx.Err())
			return
		}
		if res := dp.Result(); res.Status != StatusCompleted {
			p.failf("dependency %s did not complete", dep)
			return
		}
	}

	// Locks are acquired in sorted order so two procs sharing several
	// locks cannot deadlock each other.
	lockNames := append([]string{}, p.opts.Locks...)
	sort.Strings(lockNames)
	for _, name := range lockNames {
		mu := m.lock(name)
		mu.Lock()
		defer mu.Unlock()
	}

	m.mu.Lock()
	p.result.Status = StatusRunning
	p.result.Started = time.Now()
	m.mu.Unlock()
	m.log.Debug("proc started", "proc", p.opts.Name, "id", p.id)

	runCtx := m.ctx
	var cancel context.CancelFunc
	if p.opts.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(m.ctx, p.opts.Timeout)
		defer cancel()
	}

	errCh := make(chan error, 1)
	go func() {
		var catcher panics.Catcher
		var err error
		catcher.Try(func() {
			err = p.fn(runCtx, p.opts.Args)
		})
		if recovered := catcher.Recovered(); recovered != nil {
			err = recovered.AsError()
		}
		errCh <- err
	}()

	var err error
	select {
	case err = <-errCh:
	case <-runCtx.Done():
		// A function that ignores its context keeps running, but its
		// result is discarded from here on.
		if p.opts.Timeout > 0 && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("timed out after %s", p.opts.Timeout)
		} else {
			err = runCtx.Err()
		}
	}

	m.mu.Lock()
	p.result.Finished = time.Now()
	if err != nil {
		p.result.Status = StatusFailed
		p.result.Err = err
	} else {
		p.result.Status = StatusCompleted
	}
	m.mu.Unlock()
	m.log.Debug("proc finished", "proc", p.opts.Name, "status", string(p.Result().Status))
}

// Wait starts the proc if needed and blocks until it finishes or ctx is
// done, returning the proc's error.
func (p *Proc) Wait(ctx context.Context) error {
	if err := p.m.Start(p.opts.Name); err != nil {
		return err
	}
	select {
	case <-p.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if res := p.Result(); res.Status == StatusFailed {
		return res.Err
	}
	return nil
}
