package models

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	OpenEnded      QuestionType = "open_ended"
)

type Question struct {
	ID      int          `json:"id" yaml:"id" toml:"id"`
	Text    string       `json:"text" yaml:"text" toml:"text"`
	Type    QuestionType `json:"type" yaml:"type" toml:"type"`
	Options []string     `json:"options,omitempty" yaml:"options,omitempty" toml:"options,omitempty"` // multiple_choice only
}

func (q Question) IsMultipleChoice() bool {
	return q.Type == MultipleChoice && len(q.Options) > 0
}
