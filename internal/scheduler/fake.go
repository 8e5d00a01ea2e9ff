package scheduler

import (
	"sync"
	"time"
)

// Fake is a virtual clock. Time only moves when Advance is called, and due
// callbacks run synchronously on the caller's goroutine in due-time order.
type Fake struct {
	mu    sync.Mutex
	now   time.Time
	seq   uint64
	tasks map[uint64]*fakeTask
}

type fakeTask struct {
	fake     *Fake
	id       uint64
	due      time.Time
	interval time.Duration // zero for one-shot tasks
	fn       func()
}

func NewFake(start time.Time) *Fake {
	return &Fake{
		now:   start,
		tasks: make(map[uint64]*fakeTask),
	}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) AfterFunc(d time.Duration, fn func()) Task {
	return f.schedule(d, 0, fn)
}

func (f *Fake) Every(d time.Duration, fn func()) Task {
	if d <= 0 {
		panic("scheduler: non-positive interval")
	}
	return f.schedule(d, d, fn)
}

func (f *Fake) schedule(d, interval time.Duration, fn func()) Task {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.seq++
	t := &fakeTask{
		fake:     f,
		id:       f.seq,
		due:      f.now.Add(d),
		interval: interval,
		fn:       fn,
	}
	f.tasks[t.id] = t
	return t
}

// Advance moves the clock forward by d, firing every task that falls due
// on the way. Tasks scheduled by a callback fire in the same call if they
// fall due before the new time.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)
	for {
		next := f.nextDue(target)
		if next == nil {
			break
		}
		f.now = next.due
		if next.interval > 0 {
			next.due = next.due.Add(next.interval)
		} else {
			delete(f.tasks, next.id)
		}

		fn := next.fn
		f.mu.Unlock()
		fn()
		f.mu.Lock()
	}
	f.now = target
	f.mu.Unlock()
}

// Pending returns the number of scheduled tasks that have not fired or
// been stopped.
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tasks)
}

// nextDue returns the earliest task due at or before target. Ties go to the
// task scheduled first. Caller holds f.mu.
func (f *Fake) nextDue(target time.Time) *fakeTask {
	var next *fakeTask
	for _, t := range f.tasks {
		if t.due.After(target) {
			continue
		}
		if next == nil || t.due.Before(next.due) || (t.due.Equal(next.due) && t.id < next.id) {
			next = t
		}
	}
	return next
}

func (t *fakeTask) Stop() bool {
	t.fake.mu.Lock()
	defer t.fake.mu.Unlock()

	if _, ok := t.fake.tasks[t.id]; !ok {
		return false
	}
	delete(t.fake.tasks, t.id)
	return true
}
