package services

import (
	"time"

	"github.com/SAP-F-2025/accessible-exam-service/internal/events"
	"github.com/SAP-F-2025/accessible-exam-service/internal/models"
)

const TickInterval = time.Second

func clockShouldRun(st models.SessionState) bool {
	return st.Step == models.StepExam && !st.Exam.IsSubmitted && st.Exam.TimeLeft > 0
}

// syncClockLocked starts or stops the countdown so that exactly one ticker
// runs while the exam is open with time remaining.
func (s *ExamSession) syncClockLocked() {
	run := !s.closed && clockShouldRun(s.state)
	if run && s.clock != nil {
		return
	}
	if !run && s.clock == nil {
		return
	}

	s.clockGen++
	if s.clock != nil {
		s.clock.Stop()
		s.clock = nil
	}
	if run {
		gen := s.clockGen
		s.clock = s.sched.Every(TickInterval, func() { s.tick(gen) })
	}
}

func (s *ExamSession) tick(gen uint64) {
	s.mu.Lock()
	if gen != s.clockGen || s.closed || !clockShouldRun(s.state) {
		s.mu.Unlock()
		return
	}

	next := s.state.Clone()
	next.Exam.TimeLeft--
	if next.Exam.TimeLeft < 0 {
		next.Exam.TimeLeft = 0
	}

	eventType := events.EventTick
	if next.Exam.TimeLeft == 0 && s.cfg.AutoSubmitOnExpiry {
		next = submittedState(next, models.EndReasonTimeout)
		s.toast.Set(ToastExamSubmitted)
		eventType = events.EventTimedOut
		s.logger.Info("Exam time expired", "answered", len(next.Exam.Answers))
	}

	s.commitLocked(next)
	s.releaseAndEmit(eventType)
}
