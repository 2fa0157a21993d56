package metrics

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestSamplerReadsOwnProcess(t *testing.T) {
	s := NewSampler(10 * time.Millisecond)
	reg := prometheus.NewRegistry()
	if err := s.Register(reg); err != nil {
		t.Fatalf("register: %v", err)
	}

	self := os.Getpid()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx, func() map[string]int { return map[string]int{"self": self} })

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if sm, ok := s.Latest("self"); ok {
			if sm.PID != self || sm.RSSBytes == 0 {
				t.Fatalf("implausible sample: %+v", sm)
			}
			s.Stop()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("no sample collected for own pid")
}

func TestSamplerDropsGoneChildren(t *testing.T) {
	s := NewSampler(time.Hour)
	self := os.Getpid()
	s.sample(map[string]int{"self": self})
	if _, ok := s.Latest("self"); !ok {
		t.Fatal("expected a sample for self")
	}
	s.sample(map[string]int{})
	if _, ok := s.Latest("self"); ok {
		t.Fatal("sample for gone child should be dropped")
	}
	if len(s.All()) != 0 {
		t.Fatalf("All should be empty: %+v", s.All())
	}
}

func TestSamplerStopIdempotent(t *testing.T) {
	s := NewSampler(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx, func() map[string]int { return nil })
	cancel()
	s.Stop()
	s.Stop()
}

func TestSamplerSkipsBadPIDs(t *testing.T) {
	s := NewSampler(time.Hour)
	s.sample(map[string]int{"zero": 0, "negative": -3, "unlikely": 1 << 30})
	if len(s.All()) != 0 {
		t.Fatalf("bad pids should produce no samples: %+v", s.All())
	}
}
