package transcription

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const (
	DefaultModel     = "gemini-1.5-flash"
	transcribePrompt = "Transcribe the following audio precisely. Output only the transcribed text."
)

// contentGenerator is the slice of *genai.GenerativeModel used here.
type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// GeminiTranscriber sends the audio inline with a transcription prompt.
type GeminiTranscriber struct {
	client *genai.Client
	model  contentGenerator
	logger *slog.Logger
}

func NewGeminiTranscriber(ctx context.Context, apiKey, modelName string, logger *slog.Logger) (*GeminiTranscriber, error) {
	if apiKey == "" {
		return nil, ErrVoiceUnavailable
	}
	if modelName == "" {
		modelName = DefaultModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("error initializing Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	temp := float32(0)
	model.Temperature = &temp

	return &GeminiTranscriber{client: client, model: model, logger: logger}, nil
}

func (g *GeminiTranscriber) Available() bool { return g.model != nil }

// Transcribe makes a single attempt. Any remote failure is returned as
// ErrTranscriptionFailed; the caller decides what the candidate sees.
func (g *GeminiTranscriber) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if len(audio) == 0 {
		return "", ErrDevicePermissionDenied
	}

	resp, err := g.model.GenerateContent(ctx,
		genai.Text(transcribePrompt),
		genai.Blob{MIMEType: mimeType, Data: audio},
	)
	if err != nil {
		g.logger.Error("Transcription request failed", "mime_type", mimeType, "bytes", len(audio), "error", err)
		return "", fmt.Errorf("%w: %v", ErrTranscriptionFailed, err)
	}

	text, err := extractText(resp)
	if err != nil {
		g.logger.Error("Transcription response unusable", "error", err)
		return "", err
	}
	return text, nil
}

func (g *GeminiTranscriber) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates in response", ErrTranscriptionFailed)
	}
	content := resp.Candidates[0].Content
	if content == nil || len(content.Parts) == 0 {
		return "", fmt.Errorf("%w: empty candidate", ErrTranscriptionFailed)
	}

	var sb strings.Builder
	found := false
	for _, part := range content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
			found = true
		}
	}
	if !found {
		return "", fmt.Errorf("%w: unexpected response type: %T", ErrTranscriptionFailed, content.Parts[0])
	}
	return strings.TrimSpace(sb.String()), nil
}
