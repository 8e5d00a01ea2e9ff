// Package catalog supplies the exam's question list: the built-in sample
// set, or a YAML/TOML/JSON file validated against a JSON schema and
// optionally reloaded when it changes on disk.
package catalog

import "github.com/SAP-F-2025/accessible-exam-service/internal/models"

// Source hands out the question list for a new session.
type Source interface {
	Questions() []models.Question
}

var defaultQuestions = []models.Question{
	{
		ID:   1,
		Text: "What is the primary goal of Web Content Accessibility Guidelines (WCAG)?",
		Type: models.MultipleChoice,
		Options: []string{
			"To make web content faster to load",
			"To make web content more accessible to people with disabilities",
			"To improve SEO rankings",
			"To reduce server costs",
		},
	},
	{
		ID:   2,
		Text: "Which assistive technology is most essential for a student who is completely blind?",
		Type: models.MultipleChoice,
		Options: []string{
			"Screen Magnifier",
			"High Contrast Mode",
			"Screen Reader",
			"Color Filters",
		},
	},
	{
		ID:   3,
		Text: "Which of the following is an example of an 'Operable' design principle?",
		Type: models.MultipleChoice,
		Options: []string{
			"Providing text alternatives for images",
			"Ensuring all functionality is available from a keyboard",
			"Using simple language",
			"Making sure the UI is robust",
		},
	},
}

// Defaults returns a copy of the built-in sample questions.
func Defaults() []models.Question {
	return cloneQuestions(defaultQuestions)
}

// Static is a fixed question list.
type Static struct {
	questions []models.Question
}

func NewStatic(questions []models.Question) *Static {
	return &Static{questions: cloneQuestions(questions)}
}

func (s *Static) Questions() []models.Question {
	return cloneQuestions(s.questions)
}

func cloneQuestions(in []models.Question) []models.Question {
	out := make([]models.Question, len(in))
	for i, q := range in {
		if q.Options != nil {
			q.Options = append([]string(nil), q.Options...)
		}
		out[i] = q
	}
	return out
}
