package captioning

import (
	"context"

	"github.com/mobiusml/aana-chat-with-video/internal/models"
)

type Provider interface {
	// CaptionOne describes a single frame. Safe for concurrent use.
	CaptionOne(ctx context.Context, frame models.Frame) (string, error)
	Close() error
}
