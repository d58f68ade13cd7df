// Package proc schedules named operations with declared dependencies,
// mutual-exclusion locks, and optional timeouts. It is the explicit
// registration counterpart of a decorator-driven task runner: callers
// register a function under a name together with its scheduling options
// and receive a handle; WaitAll blocks until everything has finished.
package proc

import (
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// Status of a registered proc.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Options declares how a proc is scheduled.
type Options struct {
	// Name identifies the proc; required and unique per Manager.
	Name string
	// Deps are names of procs that must complete successfully first.
	Deps []string
	// Locks are named mutexes held while the proc runs.
	Locks []string
	// Now starts the proc at registration instead of lazily at WaitAll.
	// Eager procs must be registered after their dependencies.
	Now bool
	// Args is a fixed argument mapping passed to the function.
	Args map[string]string
	// Proto names a registered prototype whose options fill unset fields.
	Proto string
	// Timeout bounds the run; zero means unbounded.
	Timeout time.Duration
}

// merge fills unset fields of o from proto defaults. Lists and the Args
// map replace wholesale; they are never merged element-wise.
func (o Options) merge(proto Options) Options {
	if o.Deps == nil {
		o.Deps = proto.Deps
	}
	if o.Locks == nil {
		o.Locks = proto.Locks
	}
	if o.Args == nil {
		o.Args = proto.Args
	}
	if !o.Now {
		o.Now = proto.Now
	}
	if o.Timeout == 0 {
		o.Timeout = proto.Timeout
	}
	return o
}

// Result records the outcome of one proc run.
type Result struct {
	Status   Status
	Err      error
	Started  time.Time
	Finished time.Time
}

func (r Result) Duration() time.Duration {
	if r.Started.IsZero() || r.Finished.IsZero() {
		return 0
	}
	return r.Finished.Sub(r.Started)
}

// Proc is the handle returned by Register.
type Proc struct {
	id   string
	opts Options
	fn   Func
	m    *Manager

	done    chan struct{}
	started bool
	result  Result
}

func newProc(m *Manager, opts Options, fn Func) *Proc {
	return &Proc{
		id:   ulid.Make().String(),
		opts: opts,
		fn:   fn,
		m:    m,
		done: make(chan struct{}),
	}
}

// ID is the unique run identifier assigned at registration.
func (p *Proc) ID() string {
	return p.id
}

func (p *Proc) Name() string {
	return p.opts.Name
}

// Result returns a snapshot of the proc's current state.
func (p *Proc) Result() Result {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	return p.result
}

func (p *Proc) failf(format string, args ...any) {
	p.m.mu.Lock()
	p.result.Status = StatusFailed
	p.result.Err = fmt.Errorf(format, args...)
	p.result.Finished = time.Now()
	p.m.mu.Unlock()
}
