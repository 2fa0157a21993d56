// Package supervisor runs a fixed set of child processes and shepherds every
// one of them to a terminal state. A single control goroutine owns the handle
// set; waiter goroutines only deliver exit events over a channel, so handle
// state transitions need no locks. Observers read atomically published
// snapshots instead of touching the handles.
package supervisor

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/loykin/launchr/internal/env"
	"github.com/loykin/launchr/internal/history"
	"github.com/loykin/launchr/internal/process"
	"github.com/loykin/launchr/internal/store"
)

const (
	// DefaultGraceTimeout bounds how long children get between the stop
	// signal and the forceful kill.
	DefaultGraceTimeout = 10 * time.Second
	// killFinalizeWait bounds how long the run waits for SIGKILL to reap a
	// child before declaring it residual.
	killFinalizeWait = 3 * time.Second
	storeTimeout     = 3 * time.Second
)

// Phase is the shutdown coordinator's position.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseShuttingDown
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseShuttingDown:
		return "shutting_down"
	case PhaseDone:
		return "done"
	default:
		return "idle"
	}
}

// Options tune one supervised run. Store and History are optional; a nil
// value disables that integration.
type Options struct {
	GraceTimeout time.Duration
	FailFast     bool
	RunDir       string // pidfiles land here unless the spec names a path
	Env          *env.Env
	Logger       *slog.Logger
	Store        store.Store
	History      *history.Fanout
}

// Supervisor owns the handle set for one run. Start spawns the children;
// Wait blocks until every handle is terminal and returns the report.
type Supervisor struct {
	opts      Options
	log       *slog.Logger
	runID     string
	startedAt time.Time

	// Owned by the control goroutine after Start returns.
	handles  map[string]*process.Handle
	order    []string
	pidfiles map[string]string
	events   chan process.Exit

	stopCh   chan struct{}
	killCh   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	killOnce sync.Once

	phase    atomic.Int32
	snapshot atomic.Pointer[[]process.Status]
	report   atomic.Pointer[Report]
}

// Start launches every spec and hands back the supervising handle. A spawn
// failure for one spec does not block the others; it surfaces in the report.
func Start(specs []process.Spec, opts Options) *Supervisor {
	if opts.GraceTimeout <= 0 {
		opts.GraceTimeout = DefaultGraceTimeout
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	s := &Supervisor{
		opts:      opts,
		log:       log,
		runID:     newRunID(),
		startedAt: time.Now(),
		handles:   make(map[string]*process.Handle, len(specs)),
		order:     make([]string, 0, len(specs)),
		pidfiles:  make(map[string]string),
		events:    make(chan process.Exit, len(specs)),
		stopCh:    make(chan struct{}),
		killCh:    make(chan struct{}),
		done:      make(chan struct{}),
	}
	for i := range specs {
		sp := *specs[i].DeepCopy()
		if _, dup := s.handles[sp.Name]; dup {
			log.Warn("duplicate spec name ignored", "name", sp.Name)
			continue
		}
		s.handles[sp.Name] = process.NewHandle(sp)
		s.order = append(s.order, sp.Name)
	}
	go s.run()
	return s
}

func (s *Supervisor) RunID() string { return s.runID }

func (s *Supervisor) Phase() Phase { return Phase(s.phase.Load()) }

// Stop requests a graceful shutdown. Safe from any goroutine, idempotent.
func (s *Supervisor) Stop() { s.stopOnce.Do(func() { close(s.stopCh) }) }

// Kill skips the grace window and forcefully terminates every child.
// Also safe from any goroutine, idempotent.
func (s *Supervisor) Kill() { s.killOnce.Do(func() { close(s.killCh) }) }

// Wait blocks until the run is over. Every call returns the same report.
func (s *Supervisor) Wait() *Report {
	<-s.done
	return s.report.Load()
}

// Done is closed when the run is over, for use in select loops.
func (s *Supervisor) Done() <-chan struct{} { return s.done }

// Statuses returns the latest published snapshot, in registry order.
func (s *Supervisor) Statuses() []process.Status {
	p := s.snapshot.Load()
	if p == nil {
		return nil
	}
	out := make([]process.Status, len(*p))
	copy(out, *p)
	return out
}

// Pids returns the PIDs of the currently running children, for samplers.
func (s *Supervisor) Pids() map[string]int {
	m := make(map[string]int)
	for _, st := range s.Statuses() {
		if st.State == process.StateRunning && st.PID > 0 {
			m[st.Name] = st.PID
		}
	}
	return m
}

// run is the control loop. Everything that mutates a handle happens here.
func (s *Supervisor) run() {
	remaining := s.spawnAll()
	s.publish()

	stopC := s.stopCh
	killC := s.killCh
	var graceTimer, finalTimer *time.Timer
	var graceC, finalC <-chan time.Time
	var shutdownAt time.Time
	stopping := false

	for remaining > 0 {
		select {
		case e := <-s.events:
			remaining -= s.reap(e)
			if s.opts.FailFast && !stopping {
				if st := s.handles[e.Name].Snapshot(); !st.Clean() {
					s.log.Warn("child failed, stopping peers", "name", e.Name)
					s.Stop()
				}
			}

		case <-stopC:
			stopC = nil
			if stopping {
				break
			}
			stopping = true
			shutdownAt = time.Now()
			s.phase.Store(int32(PhaseShuttingDown))
			s.signalAll()
			graceTimer = time.NewTimer(s.opts.GraceTimeout)
			graceC = graceTimer.C

		case <-graceC:
			graceC = nil
			s.log.Warn("grace timeout expired", "timeout", s.opts.GraceTimeout, "error", ErrShutdownTimeout)
			s.forceAll()
			finalTimer = time.NewTimer(killFinalizeWait)
			finalC = finalTimer.C

		case <-killC:
			killC = nil
			if !stopping {
				stopping = true
				shutdownAt = time.Now()
				s.phase.Store(int32(PhaseShuttingDown))
			}
			if graceTimer != nil {
				graceTimer.Stop()
				graceC = nil
			}
			if finalC == nil {
				s.forceAll()
				finalTimer = time.NewTimer(killFinalizeWait)
				finalC = finalTimer.C
			}

		case <-finalC:
			finalC = nil
			// Exits reaped by the kill may still sit in the queue; drain
			// them before declaring anything residual.
			for drained := false; !drained; {
				select {
				case e := <-s.events:
					remaining -= s.reap(e)
				default:
					drained = true
				}
			}
			remaining -= s.markResiduals()
		}
		s.publish()
	}

	if graceTimer != nil {
		graceTimer.Stop()
	}
	if finalTimer != nil {
		finalTimer.Stop()
	}
	s.finish(stopping, shutdownAt)
}

// publish stores a fresh status snapshot for observers.
func (s *Supervisor) publish() {
	statuses := make([]process.Status, 0, len(s.order))
	for _, name := range s.order {
		statuses = append(statuses, s.handles[name].Snapshot())
	}
	s.snapshot.Store(&statuses)
}

func newRunID() string {
	return time.Now().UTC().Format("20060102-150405") + "-" + uuid.NewString()[:8]
}
