package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/accessible-exam-service/internal/accessibility"
	"github.com/SAP-F-2025/accessible-exam-service/internal/models"
)

const (
	answersSheet = "Answers"
	summarySheet = "Session"

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type answerSheetService struct {
	sessions SessionService
	logger   *slog.Logger
}

func NewAnswerSheetService(sessions SessionService, logger *slog.Logger) AnswerSheetService {
	return &answerSheetService{sessions: sessions, logger: logger}
}

// Export builds the workbook for a submitted exam.
func (a *answerSheetService) Export(ctx context.Context, sessionID string) (*AnswerSheet, error) {
	var buf bytes.Buffer
	if err := a.Write(ctx, sessionID, &buf); err != nil {
		return nil, err
	}
	return &AnswerSheet{
		Filename:    fmt.Sprintf("answer-sheet-%s.xlsx", sessionID),
		ContentType: xlsxContentType,
		Data:        buf.Bytes(),
	}, nil
}

func (a *answerSheetService) Write(ctx context.Context, sessionID string, w io.Writer) error {
	session, err := a.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	state := session.Snapshot()
	if !state.Exam.IsSubmitted {
		return ErrNotSubmitted
	}

	f, err := buildWorkbook(state, session.Questions())
	if err != nil {
		return fmt.Errorf("failed to build answer sheet: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write answer sheet: %w", err)
	}
	a.logger.Info("Answer sheet exported", "session_id", sessionID, "answered", len(state.Exam.Answers))
	return nil
}

func buildWorkbook(state models.SessionState, questions []models.Question) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", answersSheet); err != nil {
		return nil, err
	}
	header := []interface{}{"#", "Question", "Type", "Answer"}
	if err := f.SetSheetRow(answersSheet, "A1", &header); err != nil {
		return nil, err
	}
	for i, q := range questions {
		answer, ok := state.Exam.Answers[q.ID]
		if !ok {
			answer = "(no answer)"
		}
		row := []interface{}{q.ID, q.Text, string(q.Type), answer}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(answersSheet, cell, &row); err != nil {
			return nil, err
		}
	}
	if err := f.SetColWidth(answersSheet, "B", "B", 60); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(answersSheet, "D", "D", 30); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, err
	}
	summary := [][]interface{}{
		{"Session", state.SessionID},
		{"Candidate", state.CandidateID},
		{"Profile", accessibility.Label(state.Category)},
		{"Accommodations", accessibility.Summary(state.Config)},
		{"End reason", state.Exam.EndReason},
		{"Time left", models.FormatTimeLeft(state.Exam.TimeLeft)},
		{"Answered", fmt.Sprintf("%d of %d", len(state.Exam.Answers), len(questions))},
		{"Submitted at", state.UpdatedAt.UTC().Format("2006-01-02 15:04:05 MST")},
	}
	for i, row := range summary {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return nil, err
		}
	}
	if err := f.SetColWidth(summarySheet, "A", "A", 18); err != nil {
		return nil, err
	}

	return f, nil
}
