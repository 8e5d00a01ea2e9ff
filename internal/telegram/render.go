package telegram

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/SAP-F-2025/accessible-exam-service/internal/accessibility"
	"github.com/SAP-F-2025/accessible-exam-service/internal/models"
)

const helpText = `Commands:
/start - begin a new exam session
/profiles - list accessibility profiles
/category <NAME> - choose your profile
/answer <n> - pick option n
/gesture next|prev - simulated swipe
/exit - leave the exam
/finish - end the session

During the exam single letters are shortcuts:
n next, p previous, s submit,
h high contrast, l large text, u simplified UI,
v voice input, t text to speech, b large buttons.
Send a voice note to answer by speaking.`

// RenderView turns a session view into a chat message.
func RenderView(view models.SessionView) string {
	var b strings.Builder
	state := view.State

	switch state.Step {
	case models.StepLogin:
		b.WriteString("Send /start to begin a new exam session.")

	case models.StepDisabilitySelect:
		fmt.Fprintf(&b, "Welcome, %s.\nChoose your accessibility profile with /category <NAME>:\n\n", state.CandidateID)
		b.WriteString(RenderProfiles(accessibility.Profiles()))

	case models.StepExam:
		fmt.Fprintf(&b, "Question %d of %d  |  %s left\n", view.QuestionNumber, view.QuestionCount, view.TimeDisplay)
		if q := view.Question; q != nil {
			fmt.Fprintf(&b, "\n%s\n", q.Text)
			for i, opt := range q.Options {
				marker := " "
				if opt == view.CurrentAnswer {
					marker = "x"
				}
				fmt.Fprintf(&b, "[%s] %d. %s\n", marker, i+1, opt)
			}
			if !q.IsMultipleChoice() && view.CurrentAnswer != "" {
				fmt.Fprintf(&b, "Your answer: %s\n", view.CurrentAnswer)
			}
		}
		fmt.Fprintf(&b, "\nAnswered %d/%d", view.AnsweredCount, view.QuestionCount)
		switch view.SaveStatus {
		case models.SaveSaving:
			b.WriteString(" - saving...")
		case models.SaveSaved:
			b.WriteString(" - saved")
		}
		b.WriteString("\n")
		if view.IsLastQuestion {
			b.WriteString("Last question: press s to submit.\n")
		}
		fmt.Fprintf(&b, "Accessibility: %s\n", accessibility.Summary(state.Config))
		if view.ActiveGesture != "" {
			fmt.Fprintf(&b, "Gesture: %s\n", view.ActiveGesture)
		}
		if state.Config.VoiceInput && !view.VoiceAvailable {
			b.WriteString("Voice answers are not available on this server.\n")
		}

	case models.StepConfirmation:
		reason := "submitted"
		if state.Exam.EndReason == models.EndReasonTimeout {
			reason = "submitted automatically when time ran out"
		}
		fmt.Fprintf(&b, "Exam %s.\nAnswered %d/%d questions.\nSend /finish to end the session or /start for a new one.",
			reason, view.AnsweredCount, view.QuestionCount)
	}

	if view.Toast != "" {
		fmt.Fprintf(&b, "\n> %s", view.Toast)
	}
	return strings.TrimRight(b.String(), "\n")
}

func RenderProfiles(profiles []models.AccessibilityProfile) string {
	var b strings.Builder
	for _, p := range profiles {
		fmt.Fprintf(&b, "%s - %s (%s)\n", p.Category, p.Label, p.MapsTo)
	}
	return b.String()
}

// optionByNumber resolves "/answer n" against the question on screen.
func optionByNumber(view models.SessionView, arg string) (string, error) {
	q := view.Question
	if q == nil || !q.IsMultipleChoice() {
		return "", fmt.Errorf("this question has no options")
	}
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || n < 1 || n > len(q.Options) {
		return "", fmt.Errorf("choose an option between 1 and %d", len(q.Options))
	}
	return q.Options[n-1], nil
}
