package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

type Uploader interface {
	Upload(ctx context.Context, objectName string, contentType string, r io.Reader) (storedPath string, err error)
}

type Signer interface {
	SignedGetURL(ctx context.Context, objectName string, ttl time.Duration) (string, error)
}

// AnswerObjectName is where the recording of one answer is kept:
// interviews/<session>/q<index>-<nonce>.<ext>
func AnswerObjectName(sessionID string, index int, nonce, contentType string) string {
	return fmt.Sprintf("interviews/%s/q%02d-%s%s", sessionID, index+1, nonce, extFor(contentType))
}

// FollowUpObjectName places a follow-up recording next to its main answer:
// interviews/<session>/<follow-up id>-<nonce>.<ext>
func FollowUpObjectName(sessionID, followUpID, nonce, contentType string) string {
	return fmt.Sprintf("interviews/%s/%s-%s%s", sessionID, followUpID, nonce, extFor(contentType))
}

func extFor(contentType string) string {
	ct := strings.ToLower(contentType)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	switch strings.TrimSpace(ct) {
	case "audio/webm":
		return ".webm"
	case "audio/ogg", "audio/opus":
		return ".ogg"
	case "audio/flac", "audio/x-flac":
		return ".flac"
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/wav", "audio/x-wav", "audio/wave":
		return ".wav"
	default:
		return ".bin"
	}
}
