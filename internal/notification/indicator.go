package notification

import (
	"sync"
	"time"

	"github.com/SAP-F-2025/accessible-exam-service/internal/models"
	"github.com/SAP-F-2025/accessible-exam-service/internal/scheduler"
)

// Indicator shows a value for a fixed time and then clears itself.
// onChange fires only for the timed reset.
type Indicator struct {
	mu       sync.Mutex
	sched    scheduler.Scheduler
	duration time.Duration
	onChange func()

	value  string
	task   scheduler.Task
	gen    uint64
	closed bool
}

func NewIndicator(s scheduler.Scheduler, duration time.Duration, onChange func()) *Indicator {
	return &Indicator{sched: s, duration: duration, onChange: onChange}
}

// Show displays value and restarts the countdown.
func (i *Indicator) Show(value string) {
	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return
	}
	if i.task != nil {
		i.task.Stop()
	}
	i.gen++
	gen := i.gen
	i.value = value
	i.task = i.sched.AfterFunc(i.duration, func() { i.reset(gen) })
	i.mu.Unlock()
}

func (i *Indicator) Value() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.value
}

func (i *Indicator) Active() bool {
	return i.Value() != ""
}

// Clear hides the value and cancels the pending reset.
func (i *Indicator) Clear() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.task != nil {
		i.task.Stop()
		i.task = nil
	}
	i.gen++
	i.value = ""
}

func (i *Indicator) Close() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.task != nil {
		i.task.Stop()
		i.task = nil
	}
	i.gen++
	i.value = ""
	i.closed = true
}

func (i *Indicator) reset(gen uint64) {
	i.mu.Lock()
	if gen != i.gen {
		i.mu.Unlock()
		return
	}
	i.value = ""
	i.task = nil
	i.mu.Unlock()

	if i.onChange != nil {
		i.onChange()
	}
}

// SaveIndicator tracks the autosave feedback: "saving" right after an
// answer, "saved" once the save delay passes, then idle again. Every Touch
// restarts the cycle from "saving".
type SaveIndicator struct {
	mu       sync.Mutex
	sched    scheduler.Scheduler
	onChange func()

	status models.SaveStatus
	task   scheduler.Task
	gen    uint64
	closed bool
}

func NewSaveIndicator(s scheduler.Scheduler, onChange func()) *SaveIndicator {
	return &SaveIndicator{sched: s, onChange: onChange, status: models.SaveIdle}
}

func (s *SaveIndicator) Touch() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	gen := s.restartLocked()
	s.status = models.SaveSaving
	s.task = s.sched.AfterFunc(SavingDuration, func() { s.saved(gen) })
	s.mu.Unlock()
}

func (s *SaveIndicator) Status() models.SaveStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Reset returns to idle and cancels the pending step.
func (s *SaveIndicator) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restartLocked()
	s.status = models.SaveIdle
}

func (s *SaveIndicator) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restartLocked()
	s.status = models.SaveIdle
	s.closed = true
}

func (s *SaveIndicator) saved(gen uint64) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.status = models.SaveSaved
	s.task = s.sched.AfterFunc(SavedDisplayTime, func() { s.idle(gen) })
	s.mu.Unlock()

	s.notify()
}

func (s *SaveIndicator) idle(gen uint64) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.status = models.SaveIdle
	s.task = nil
	s.mu.Unlock()

	s.notify()
}

// restartLocked cancels the pending step and invalidates stale callbacks.
func (s *SaveIndicator) restartLocked() uint64 {
	if s.task != nil {
		s.task.Stop()
		s.task = nil
	}
	s.gen++
	return s.gen
}

func (s *SaveIndicator) notify() {
	if s.onChange != nil {
		s.onChange()
	}
}
