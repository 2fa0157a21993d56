package metrics

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v4/process"
)

// Sample is one CPU/memory observation of a running child.
type Sample struct {
	PID        int       `json:"pid"`
	CPUPercent float64   `json:"cpu_percent"`
	RSSBytes   uint64    `json:"rss_bytes"`
	NumThreads int32     `json:"num_threads"`
	SampledAt  time.Time `json:"sampled_at"`
}

// Sampler periodically reads CPU and resident memory of the running children
// through gopsutil and exports them as per-child gauges. It keeps the latest
// sample per child for the status API.
type Sampler struct {
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu     sync.RWMutex
	latest map[string]Sample

	cpuPercent *prometheus.GaugeVec
	rssBytes   *prometheus.GaugeVec
}

func NewSampler(interval time.Duration) *Sampler {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Sampler{
		interval: interval,
		stopCh:   make(chan struct{}),
		latest:   make(map[string]Sample),
		cpuPercent: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "launchr",
				Subsystem: "child",
				Name:      "cpu_percent",
				Help:      "CPU usage percentage per child.",
			}, []string{"name"},
		),
		rssBytes: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "launchr",
				Subsystem: "child",
				Name:      "memory_rss_bytes",
				Help:      "Resident memory per child in bytes.",
			}, []string{"name"},
		),
	}
}

// Register registers the sampler gauges with the provided registerer.
func (s *Sampler) Register(r prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{s.cpuPercent, s.rssBytes} {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}

// Start launches the sampling loop. pids returns the current name -> PID map
// of running children; names absent from it have their series removed.
func (s *Sampler) Start(ctx context.Context, pids func() map[string]int) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopCh:
				return
			case <-ticker.C:
				s.sample(pids())
			}
		}
	}()
}

// Stop ends the sampling loop and waits for it to finish.
func (s *Sampler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
}

// Latest returns the most recent sample for one child.
func (s *Sampler) Latest(name string) (Sample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sm, ok := s.latest[name]
	return sm, ok
}

// All returns the most recent sample of every sampled child.
func (s *Sampler) All() map[string]Sample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Sample, len(s.latest))
	for k, v := range s.latest {
		out[k] = v
	}
	return out
}

func (s *Sampler) sample(pids map[string]int) {
	now := time.Now()
	fresh := make(map[string]Sample, len(pids))
	for name, pid := range pids {
		if pid <= 0 {
			continue
		}
		sm, err := read(pid, now)
		if err != nil {
			slog.Debug("sample child", "name", name, "pid", pid, "error", err)
			continue
		}
		fresh[name] = sm
		s.cpuPercent.WithLabelValues(name).Set(sm.CPUPercent)
		s.rssBytes.WithLabelValues(name).Set(float64(sm.RSSBytes))
	}

	s.mu.Lock()
	for name := range s.latest {
		if _, ok := pids[name]; !ok {
			delete(s.latest, name)
			s.cpuPercent.DeleteLabelValues(name)
			s.rssBytes.DeleteLabelValues(name)
		}
	}
	for name, sm := range fresh {
		s.latest[name] = sm
	}
	s.mu.Unlock()
}

func read(pid int, now time.Time) (Sample, error) {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return Sample{}, err
	}
	sm := Sample{PID: pid, SampledAt: now}
	if cpu, err := p.CPUPercent(); err == nil {
		sm.CPUPercent = cpu
	}
	mem, err := p.MemoryInfo()
	if err != nil {
		return Sample{}, err
	}
	sm.RSSBytes = mem.RSS
	if n, err := p.NumThreads(); err == nil {
		sm.NumThreads = n
	}
	return sm, nil
}
