package llm

import (
	"context"

	"github.com/mobiusml/aana-chat-with-video/internal/models"
)

type Provider interface {
	// ChatStream runs the dialog through the model and returns a stream of
	// incremental text tokens.
	ChatStream(ctx context.Context, dialog models.ChatDialog, params models.SamplingParams) (tokens <-chan string, errs <-chan error)
	Close() error
}
