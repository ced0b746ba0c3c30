package asr

import (
	"context"

	"github.com/mobiusml/aana-chat-with-video/internal/models"
)

type Provider interface {
	// TranscribeStream recognizes speech from a local audio file and emits
	// incremental chunks in arrival order.
	TranscribeStream(ctx context.Context, audioPath string, params models.WhisperParams) (chunks <-chan models.TranscriptionChunk, errs <-chan error)
	Close() error
}
