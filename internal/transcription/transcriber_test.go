package transcription

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeModel struct {
	resp  *genai.GenerateContentResponse
	err   error
	parts []genai.Part
}

func (f *fakeModel) GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	f.parts = parts
	return f.resp, f.err
}

func textResponse(parts ...genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: parts}}},
	}
}

func newTestTranscriber(m *fakeModel) *GeminiTranscriber {
	return &GeminiTranscriber{model: m, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func TestGeminiTranscriber_Transcribe(t *testing.T) {
	m := &fakeModel{resp: textResponse(genai.Text("  Screen Reader please \n"))}
	tr := newTestTranscriber(m)

	text, err := tr.Transcribe(context.Background(), []byte{1, 2, 3}, "audio/webm")
	require.NoError(t, err)
	assert.Equal(t, "Screen Reader please", text)

	require.Len(t, m.parts, 2)
	assert.Equal(t, genai.Text(transcribePrompt), m.parts[0])
	blob, ok := m.parts[1].(genai.Blob)
	require.True(t, ok)
	assert.Equal(t, "audio/webm", blob.MIMEType)
	assert.Equal(t, []byte{1, 2, 3}, blob.Data)
}

func TestGeminiTranscriber_Failures(t *testing.T) {
	tests := []struct {
		name  string
		model *fakeModel
		audio []byte
		want  error
	}{
		{name: "remote error", model: &fakeModel{err: errors.New("quota exceeded")}, audio: []byte{1}, want: ErrTranscriptionFailed},
		{name: "no candidates", model: &fakeModel{resp: &genai.GenerateContentResponse{}}, audio: []byte{1}, want: ErrTranscriptionFailed},
		{name: "nil content", model: &fakeModel{resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}}}, audio: []byte{1}, want: ErrTranscriptionFailed},
		{name: "non-text part", model: &fakeModel{resp: textResponse(genai.Blob{MIMEType: "image/png"})}, audio: []byte{1}, want: ErrTranscriptionFailed},
		{name: "no audio", model: &fakeModel{}, audio: nil, want: ErrDevicePermissionDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestTranscriber(tt.model).Transcribe(context.Background(), tt.audio, "audio/webm")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNewGeminiTranscriber_NoKey(t *testing.T) {
	_, err := NewGeminiTranscriber(context.Background(), "", "", nil)
	assert.ErrorIs(t, err, ErrVoiceUnavailable)
}

func TestUnavailable(t *testing.T) {
	var tr Transcriber = Unavailable{}
	assert.False(t, tr.Available())
	_, err := tr.Transcribe(context.Background(), []byte{1}, "audio/ogg")
	assert.ErrorIs(t, err, ErrVoiceUnavailable)
}

func TestAudioSources(t *testing.T) {
	ctx := context.Background()

	rec, err := FromBytes([]byte("ogg"), "audio/ogg; codecs=opus").Capture(ctx)
	require.NoError(t, err)
	assert.Equal(t, "audio/ogg", rec.MIMEType)

	_, err = FromBytes(nil, "audio/ogg").Capture(ctx)
	assert.ErrorIs(t, err, ErrDevicePermissionDenied)

	_, err = FromBytes([]byte("x"), "text/plain").Capture(ctx)
	assert.ErrorIs(t, err, ErrUnsupportedAudioFormat)

	_, err = FromBytes([]byte("x"), "").Capture(ctx)
	assert.ErrorIs(t, err, ErrUnsupportedAudioFormat)

	rec, err = FromReader(strings.NewReader("webm-bytes"), "audio/webm").Capture(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("webm-bytes"), rec.Data)

	_, err = FromReader(strings.NewReader(""), "audio/webm").Capture(ctx)
	assert.ErrorIs(t, err, ErrDevicePermissionDenied)

	_, err = FromReader(nil, "audio/webm").Capture(ctx)
	assert.ErrorIs(t, err, ErrDevicePermissionDenied)
}
