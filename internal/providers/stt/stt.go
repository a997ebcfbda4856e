package stt

import (
	"context"
	"strings"
)

type Provider interface {
	// Transcribe returns the full transcript of a recorded answer and the
	// mean confidence of its segments.
	Transcribe(ctx context.Context, audio Audio) (text string, confidence float64, err error)
	Close() error
}

type Audio struct {
	Content     []byte
	ContentType string // audio/wav, audio/webm, audio/ogg, audio/flac
	Language    string
}

// NormalizeLanguage maps short codes to BCP-47 tags; empty means en-US.
func NormalizeLanguage(v string) string {
	v = strings.TrimSpace(v)
	switch v {
	case "", "en", "en-US":
		return "en-US"
	case "id", "id-ID":
		return "id-ID"
	default:
		return v
	}
}
