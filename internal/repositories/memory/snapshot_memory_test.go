package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/accessible-exam-service/internal/models"
	"github.com/SAP-F-2025/accessible-exam-service/internal/repositories"
)

func TestSnapshotMemory(t *testing.T) {
	ctx := context.Background()
	m := NewSnapshotMemory()

	state := &models.SessionState{
		SessionID:   "a",
		CandidateID: "cand",
		Version:     2,
		Exam:        models.ExamState{Answers: map[int]string{1: "x"}},
	}
	require.NoError(t, m.Save(ctx, state))

	// stored copy is independent of the caller's map
	state.Exam.Answers[1] = "mutated"
	got, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "x", got.Exam.Answers[1])

	// older versions never overwrite newer ones
	require.NoError(t, m.Save(ctx, &models.SessionState{SessionID: "a", Version: 1}))
	got, _ = m.Get(ctx, "a")
	assert.Equal(t, uint64(2), got.Version)

	byCandidate, err := m.FindByCandidate(ctx, "cand")
	require.NoError(t, err)
	assert.Equal(t, "a", byCandidate.SessionID)

	ids, _ := m.List(ctx)
	assert.Equal(t, []string{"a"}, ids)

	require.NoError(t, m.Delete(ctx, "a"))
	_, err = m.Get(ctx, "a")
	assert.ErrorIs(t, err, repositories.ErrSnapshotNotFound)
	_, err = m.FindByCandidate(ctx, "cand")
	assert.ErrorIs(t, err, repositories.ErrSnapshotNotFound)
}
