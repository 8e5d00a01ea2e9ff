// Package transcription turns recorded speech into text for voice answers.
package transcription

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"
)

var (
	ErrDevicePermissionDenied = errors.New("microphone access denied or not available")
	ErrTranscriptionFailed    = errors.New("transcription failed")
	ErrVoiceUnavailable       = errors.New("voice transcription is not configured")
	ErrUnsupportedAudioFormat = errors.New("unsupported audio format")
)

// MaxAudioBytes caps a single recording. Inline audio sent to the model has
// to stay well under the request size limit.
const MaxAudioBytes = 10 << 20

type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
	Available() bool
}

// Recording is one captured audio clip.
type Recording struct {
	Data     []byte
	MIMEType string
}

// AudioSource yields a recording. A source that cannot produce audio
// returns ErrDevicePermissionDenied.
type AudioSource interface {
	Capture(ctx context.Context) (Recording, error)
}

type bytesSource struct {
	rec Recording
}

// FromBytes wraps audio already in memory.
func FromBytes(data []byte, mimeType string) AudioSource {
	return bytesSource{rec: Recording{Data: data, MIMEType: mimeType}}
}

func (s bytesSource) Capture(ctx context.Context) (Recording, error) {
	if len(s.rec.Data) == 0 {
		return Recording{}, ErrDevicePermissionDenied
	}
	mimeType, err := NormalizeMIMEType(s.rec.MIMEType)
	if err != nil {
		return Recording{}, err
	}
	return Recording{Data: s.rec.Data, MIMEType: mimeType}, nil
}

type readerSource struct {
	r        io.Reader
	mimeType string
}

// FromReader reads a recording from r, for example an HTTP upload body.
func FromReader(r io.Reader, mimeType string) AudioSource {
	return readerSource{r: r, mimeType: mimeType}
}

func (s readerSource) Capture(ctx context.Context) (Recording, error) {
	if s.r == nil {
		return Recording{}, ErrDevicePermissionDenied
	}
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(s.r, MaxAudioBytes+1))
	if err != nil {
		return Recording{}, fmt.Errorf("%w: %v", ErrDevicePermissionDenied, err)
	}
	if n > MaxAudioBytes {
		return Recording{}, fmt.Errorf("%w: recording exceeds %d bytes", ErrUnsupportedAudioFormat, MaxAudioBytes)
	}
	return FromBytes(buf.Bytes(), s.mimeType).Capture(ctx)
}

// NormalizeMIMEType strips parameters such as codecs and requires an
// audio media type.
func NormalizeMIMEType(mimeType string) (string, error) {
	if mimeType == "" {
		return "", fmt.Errorf("%w: missing content type", ErrUnsupportedAudioFormat)
	}
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedAudioFormat, err)
	}
	if !strings.HasPrefix(mediaType, "audio/") {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedAudioFormat, mediaType)
	}
	return mediaType, nil
}

// Unavailable is used when no transcription backend is configured.
type Unavailable struct{}

func (Unavailable) Transcribe(context.Context, []byte, string) (string, error) {
	return "", ErrVoiceUnavailable
}

func (Unavailable) Available() bool { return false }
