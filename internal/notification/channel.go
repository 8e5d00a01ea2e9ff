// Package notification holds the short-lived feedback signals a session
// shows next to the exam: the toast message, the gesture indicator and the
// autosave indicator. All expiry runs on an injected scheduler.
package notification

import (
	"sync"
	"time"

	"github.com/SAP-F-2025/accessible-exam-service/internal/scheduler"
)

const (
	ToastLifetime    = 2000 * time.Millisecond
	GestureLifetime  = 1000 * time.Millisecond
	SavingDuration   = 800 * time.Millisecond
	SavedDisplayTime = 2000 * time.Millisecond
)

// Notification is the message currently on screen.
type Notification struct {
	Text      string    `json:"text"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Channel holds at most one message. Setting a new message replaces the
// current one and restarts its lifetime.
type Channel struct {
	mu       sync.Mutex
	sched    scheduler.Scheduler
	lifetime time.Duration
	onChange func()

	current *Notification
	expiry  scheduler.Task
	gen     uint64
	closed  bool
}

// NewChannel creates a channel. onChange, if set, is called without any
// lock held when a message expires on its own.
func NewChannel(s scheduler.Scheduler, lifetime time.Duration, onChange func()) *Channel {
	return &Channel{
		sched:    s,
		lifetime: lifetime,
		onChange: onChange,
	}
}

func (c *Channel) Set(text string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.stopLocked()
	c.gen++
	gen := c.gen
	c.current = &Notification{Text: text, ExpiresAt: c.sched.Now().Add(c.lifetime)}
	c.expiry = c.sched.AfterFunc(c.lifetime, func() { c.expire(gen) })
	c.mu.Unlock()
}

// Current returns the visible message text, or "" when nothing is shown.
func (c *Channel) Current() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return ""
	}
	return c.current.Text
}

// Message returns the visible message and whether there is one.
func (c *Channel) Message() (Notification, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return Notification{}, false
	}
	return *c.current, true
}

func (c *Channel) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	c.gen++
	c.current = nil
}

// Close cancels the pending expiry. Later calls to Set are ignored.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	c.gen++
	c.current = nil
	c.closed = true
}

func (c *Channel) expire(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.current == nil {
		c.mu.Unlock()
		return
	}
	c.current = nil
	c.expiry = nil
	c.mu.Unlock()

	c.notify()
}

func (c *Channel) stopLocked() {
	if c.expiry != nil {
		c.expiry.Stop()
		c.expiry = nil
	}
}

func (c *Channel) notify() {
	if c.onChange != nil {
		c.onChange()
	}
}
