package scheduler

import (
	"sync/atomic"
	"testing"
	"time"
)

type countingSweeper struct {
	calls atomic.Int32
}

func (c *countingSweeper) Sweep() int {
	c.calls.Add(1)
	return 1
}

func TestScheduler_RunsSweep(t *testing.T) {
	sweeper := &countingSweeper{}
	s := New(sweeper, time.Second)

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()

	deadline := time.Now().Add(3 * time.Second)
	for sweeper.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if sweeper.calls.Load() == 0 {
		t.Errorf("Sweep() was never called")
	}
}

func TestScheduler_NilSweeper(t *testing.T) {
	s := New(nil, time.Minute)

	if err := s.Start(); err != nil {
		t.Errorf("Start() error = %v, want nil", err)
	}
	s.Stop()
}
