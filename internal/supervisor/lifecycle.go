package supervisor

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/loykin/launchr/internal/history"
	"github.com/loykin/launchr/internal/metrics"
	"github.com/loykin/launchr/internal/process"
	"github.com/loykin/launchr/internal/store"
)

// spawnAll launches every child in registry order and returns how many made
// it to Running. Failures are finalized immediately and recorded.
func (s *Supervisor) spawnAll() int {
	running := 0
	for _, name := range s.order {
		h := s.handles[name]
		sp := h.Spec()
		var merged []string
		if s.opts.Env != nil {
			merged = s.opts.Env.Merge(sp.Env)
		} else if len(sp.Env) > 0 {
			merged = append(os.Environ(), sp.Env...)
		}
		if err := h.Start(merged, s.events); err != nil {
			serr := &SpawnError{Name: name, Err: err}
			s.log.Error("spawn failed", "name", name, "error", serr.Err)
			st := h.Snapshot()
			s.recordStop(st)
			s.publishEvent(history.EventSpawnFail, st, serr.Error())
			metrics.IncExit(name, metrics.OutcomeSpawnFailed)
			continue
		}
		running++
		s.log.Info("child started", "name", name, "pid", h.PID())
		s.writePidfile(h)
		st := h.Snapshot()
		s.recordStart(st)
		s.publishEvent(history.EventSpawn, st, "")
		metrics.IncSpawn(name)
	}
	metrics.SetRunningChildren(running)
	return running
}

// reap finalizes one exit event. Returns 1 so the caller can decrement its
// remaining count in place.
func (s *Supervisor) reap(e process.Exit) int {
	h := s.handles[e.Name]
	h.Finalize(e)
	st := h.Snapshot()
	if path, ok := s.pidfiles[e.Name]; ok {
		process.RemovePIDFile(path)
		delete(s.pidfiles, e.Name)
	}
	outcome := metrics.OutcomeClean
	switch {
	case st.Signal != "":
		outcome = metrics.OutcomeSignaled
	case st.ExitCode != 0:
		outcome = metrics.OutcomeNonzero
	}
	if st.Clean() {
		s.log.Info("child exited", "name", e.Name, "pid", st.PID)
	} else {
		s.log.Warn("child exited", "name", e.Name, "pid", st.PID, "code", st.ExitCode, "signal", st.Signal)
	}
	metrics.IncExit(e.Name, outcome)
	metrics.SetRunningChildren(s.runningCount())
	s.recordStop(st)
	s.publishEvent(history.EventExit, st, st.Error)
	return 1
}

// signalAll delivers each child's stop signal to its process group.
func (s *Supervisor) signalAll() {
	s.log.Info("stopping children", "grace", s.opts.GraceTimeout)
	for _, name := range s.order {
		h := s.handles[name]
		if h.Terminal() {
			continue
		}
		sp := h.Spec()
		sig := stopName(sp)
		if err := h.Signal(sp.StopSig()); err != nil {
			s.log.Warn("stop signal failed", "name", name, "signal", sig, "error", err)
			continue
		}
		metrics.IncSignalSent(name, sig)
		s.publishEvent(history.EventSignal, h.Snapshot(), sig)
	}
}

// forceAll sends SIGKILL to every child still alive.
func (s *Supervisor) forceAll() {
	for _, name := range s.order {
		h := s.handles[name]
		if h.Terminal() {
			continue
		}
		s.log.Warn("forcing kill", "name", name, "pid", h.PID())
		h.ForceKill()
		metrics.IncForcedKill(name)
		s.publishEvent(history.EventForceKill, h.Snapshot(), "")
	}
}

// markResiduals closes out children that survived even SIGKILL so the run
// can complete. Their pidfiles stay on disk; the process is still out there.
func (s *Supervisor) markResiduals() int {
	marked := 0
	for _, name := range s.order {
		h := s.handles[name]
		if h.Terminal() {
			continue
		}
		s.log.Error("child survived forced kill, leaving behind", "name", name, "pid", h.PID())
		h.MarkResidual(fmt.Errorf("%w; still alive after SIGKILL", ErrShutdownTimeout))
		st := h.Snapshot()
		metrics.IncExit(name, metrics.OutcomeResidual)
		s.recordStop(st)
		s.publishEvent(history.EventResidual, st, st.Error)
		marked++
	}
	if marked > 0 {
		metrics.SetRunningChildren(s.runningCount())
	}
	return marked
}

// finish publishes the report and releases every Wait caller.
func (s *Supervisor) finish(stopped bool, shutdownAt time.Time) {
	s.phase.Store(int32(PhaseDone))
	statuses := make([]process.Status, 0, len(s.order))
	for _, name := range s.order {
		statuses = append(statuses, s.handles[name].Snapshot())
	}
	rep := &Report{
		RunID:      s.runID,
		StartedAt:  s.startedAt,
		FinishedAt: time.Now(),
		Stopped:    stopped,
		Children:   statuses,
	}
	s.report.Store(rep)
	metrics.SetRunningChildren(0)
	if stopped && !shutdownAt.IsZero() {
		metrics.ObserveShutdownDuration(time.Since(shutdownAt).Seconds())
	}
	s.log.Info("run complete", "run_id", s.runID, "children", len(statuses), "exit_code", rep.ExitCode())
	close(s.done)
}

func (s *Supervisor) runningCount() int {
	n := 0
	for _, h := range s.handles {
		if h.Snapshot().State == process.StateRunning {
			n++
		}
	}
	return n
}

// writePidfile records the child's identity under the run dir, or at the
// spec's explicit path. Library users without a run dir get no pidfiles.
func (s *Supervisor) writePidfile(h *process.Handle) {
	sp := h.Spec()
	path := sp.PIDFile
	if path == "" {
		if s.opts.RunDir == "" {
			return
		}
		path = filepath.Join(s.opts.RunDir, sp.Name+".pid")
	}
	if err := process.WritePIDFile(path, process.NewMeta(sp.Name, h.PID())); err != nil {
		s.log.Warn("pidfile write failed", "name", sp.Name, "path", path, "error", err)
		return
	}
	s.pidfiles[sp.Name] = path
}

func (s *Supervisor) recordStart(st process.Status) {
	if s.opts.Store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := s.opts.Store.RecordStart(ctx, s.storeRecord(st)); err != nil {
		s.log.Warn("store write failed", "name", st.Name, "error", err)
	}
}

func (s *Supervisor) recordStop(st process.Status) {
	if s.opts.Store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := s.opts.Store.RecordStop(ctx, s.storeRecord(st)); err != nil {
		s.log.Warn("store write failed", "name", st.Name, "error", err)
	}
}

func (s *Supervisor) storeRecord(st process.Status) store.Record {
	return store.Record{
		RunID:     s.runID,
		Name:      st.Name,
		PID:       st.PID,
		State:     string(st.State),
		ExitCode:  st.ExitCode,
		Signal:    st.Signal,
		Forced:    st.Forced,
		Residual:  st.Residual,
		StartedAt: st.StartedAt,
		StoppedAt: sql.NullTime{Time: st.StoppedAt, Valid: !st.StoppedAt.IsZero()},
		ExitErr:   sql.NullString{String: st.Error, Valid: st.Error != ""},
	}
}

func (s *Supervisor) publishEvent(t history.EventType, st process.Status, detail string) {
	if s.opts.History == nil {
		return
	}
	s.opts.History.Publish(history.Event{
		Type:       t,
		OccurredAt: time.Now(),
		RunID:      s.runID,
		Name:       st.Name,
		PID:        st.PID,
		ExitCode:   st.ExitCode,
		Detail:     detail,
	})
}

// stopName normalizes the spec's stop signal for labels and logs.
func stopName(sp process.Spec) string {
	name := strings.ToUpper(strings.TrimSpace(sp.StopSignal))
	name = strings.TrimPrefix(name, "SIG")
	if name == "" {
		return "TERM"
	}
	return name
}
