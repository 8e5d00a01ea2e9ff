// Package scheduler provides cancelable delayed and repeating tasks behind
// an interface, so session timers can run on the wall clock in production
// and on a virtual clock in tests.
package scheduler

import (
	"context"
	"sync"
	"time"
)

// Task is a handle to a scheduled callback.
type Task interface {
	// Stop cancels the task. It reports whether the task was still pending.
	Stop() bool
}

// Scheduler schedules callbacks. Callbacks run on a goroutine owned by the
// scheduler and must do their own locking.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Task
	Every(d time.Duration, fn func()) Task
	Now() time.Time
}

type realScheduler struct{}

// New returns a Scheduler backed by the runtime timers.
func New() Scheduler {
	return realScheduler{}
}

func (realScheduler) Now() time.Time {
	return time.Now()
}

func (realScheduler) AfterFunc(d time.Duration, fn func()) Task {
	return &timerTask{timer: time.AfterFunc(d, fn)}
}

func (realScheduler) Every(d time.Duration, fn func()) Task {
	ctx, cancel := context.WithCancel(context.Background())
	t := &tickerTask{cancel: cancel}

	go func() {
		ticker := time.NewTicker(d)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				// a stop may race the tick; ctx wins if both are ready
				if ctx.Err() != nil {
					return
				}
				fn()
			}
		}
	}()

	return t
}

type timerTask struct {
	timer *time.Timer
}

func (t *timerTask) Stop() bool {
	return t.timer.Stop()
}

type tickerTask struct {
	once   sync.Once
	cancel context.CancelFunc
}

func (t *tickerTask) Stop() bool {
	stopped := false
	t.once.Do(func() {
		t.cancel()
		stopped = true
	})
	return stopped
}
