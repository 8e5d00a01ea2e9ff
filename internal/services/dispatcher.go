package services

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/SAP-F-2025/accessible-exam-service/internal/models"
)

// ActionKind enumerates everything an input can ask the exam to do.
type ActionKind int

const (
	ActionAdvance ActionKind = iota + 1
	ActionRetreat
	ActionSubmit
	ActionToggleFeature
	ActionRecordAnswer
)

func (k ActionKind) String() string {
	switch k {
	case ActionAdvance:
		return "advance"
	case ActionRetreat:
		return "retreat"
	case ActionSubmit:
		return "submit"
	case ActionToggleFeature:
		return "toggle_feature"
	case ActionRecordAnswer:
		return "record_answer"
	}
	return fmt.Sprintf("ActionKind(%d)", int(k))
}

// InputSource tells feedback which channel an action came through.
type InputSource string

const (
	SourceKey     InputSource = "key"
	SourceGesture InputSource = "gesture"
	SourceVoice   InputSource = "voice"
	SourceUI      InputSource = "ui"
)

// Action is one resolved input. Flag is set for ActionToggleFeature;
// QuestionID and Value for ActionRecordAnswer.
type Action struct {
	Kind       ActionKind
	Source     InputSource
	Flag       models.FeatureFlag
	QuestionID int
	Value      string
}

func AdvanceAction(src InputSource) Action { return Action{Kind: ActionAdvance, Source: src} }
func RetreatAction(src InputSource) Action { return Action{Kind: ActionRetreat, Source: src} }
func SubmitAction(src InputSource) Action  { return Action{Kind: ActionSubmit, Source: src} }

func ToggleFeatureAction(src InputSource, flag models.FeatureFlag) Action {
	return Action{Kind: ActionToggleFeature, Source: src, Flag: flag}
}

func RecordAnswerAction(src InputSource, questionID int, value string) Action {
	return Action{Kind: ActionRecordAnswer, Source: src, QuestionID: questionID, Value: value}
}

// DispatchResult reports whether an input changed the session. Inputs the
// gate rejects, or that hit a boundary, come back with Applied false.
type DispatchResult struct {
	Applied bool               `json:"applied"`
	Action  *Action            `json:"-"`
	View    models.SessionView `json:"view"`
}

// ActionName is the wire name of the resolved action, or "" if the input
// mapped to nothing.
func (r DispatchResult) ActionName() string {
	if r.Action == nil {
		return ""
	}
	if r.Action.Kind == ActionToggleFeature {
		return r.Action.Kind.String() + ":" + string(r.Action.Flag)
	}
	return r.Action.Kind.String()
}

var keyBindings = map[rune]Action{
	'n': AdvanceAction(SourceKey),
	'p': RetreatAction(SourceKey),
	's': SubmitAction(SourceKey),
	'h': ToggleFeatureAction(SourceKey, models.FeatureHighContrast),
	'l': ToggleFeatureAction(SourceKey, models.FeatureLargeText),
	'u': ToggleFeatureAction(SourceKey, models.FeatureSimplifiedUI),
	'v': ToggleFeatureAction(SourceKey, models.FeatureVoiceInput),
	't': ToggleFeatureAction(SourceKey, models.FeatureTextToSpeech),
	'b': ToggleFeatureAction(SourceKey, models.FeatureLargeButtons),
}

// ResolveKey maps a single key press to its action. Keys are matched case
// insensitively; anything longer than one character is not a shortcut.
func ResolveKey(key string) (Action, bool) {
	if utf8.RuneCountInString(key) != 1 {
		return Action{}, false
	}
	r, _ := utf8.DecodeRuneInString(strings.ToLower(key))
	action, ok := keyBindings[r]
	return action, ok
}

// IsShortcutKey reports whether key is bound to an action.
func IsShortcutKey(key string) bool {
	_, ok := ResolveKey(key)
	return ok
}

func ResolveGesture(g models.Gesture) (Action, bool) {
	switch g {
	case models.GestureNext:
		return AdvanceAction(SourceGesture), true
	case models.GesturePrev:
		return RetreatAction(SourceGesture), true
	}
	return Action{}, false
}

// ResolveUIAction maps a button press to its action. "answer" records
// value against the question currently on screen.
func ResolveUIAction(name string, flag models.FeatureFlag, questionID int, value string) (Action, bool) {
	switch name {
	case "next":
		return AdvanceAction(SourceUI), true
	case "prev":
		return RetreatAction(SourceUI), true
	case "submit":
		return SubmitAction(SourceUI), true
	case "toggle":
		if !flag.IsValid() {
			return Action{}, false
		}
		return ToggleFeatureAction(SourceUI, flag), true
	case "answer":
		return RecordAnswerAction(SourceUI, questionID, value), true
	}
	return Action{}, false
}

// UIActions lists the names accepted by ResolveUIAction.
var UIActions = []string{"next", "prev", "submit", "toggle", "answer"}

// MatchVoiceOption picks the first option, in list order, whose text
// appears in the transcript ignoring case. Questions without options never
// match.
func MatchVoiceOption(transcript string, q models.Question) (string, bool) {
	if !q.IsMultipleChoice() {
		return "", false
	}
	spoken := strings.ToLower(transcript)
	for _, opt := range q.Options {
		if opt == "" {
			continue
		}
		if strings.Contains(spoken, strings.ToLower(opt)) {
			return opt, true
		}
	}
	return "", false
}
