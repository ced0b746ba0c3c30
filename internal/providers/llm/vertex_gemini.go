package llm

import (
	"context"

	vertexgenai "cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/iterator"

	"github.com/mobiusml/aana-chat-with-video/internal/models"
)

type VertexGemini struct {
	client *vertexgenai.Client
	model  string
}

func NewVertexGemini(ctx context.Context, projectID, location, modelName string) (*VertexGemini, error) {
	c, err := vertexgenai.NewClient(ctx, projectID, location)
	if err != nil {
		return nil, err
	}

	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	return &VertexGemini{client: c, model: modelName}, nil
}

func (v *VertexGemini) Close() error { return v.client.Close() }

func (v *VertexGemini) ChatStream(ctx context.Context, dialog models.ChatDialog, params models.SamplingParams) (<-chan string, <-chan error) {
	out := make(chan string, 32)
	errs := make(chan error, 1)

	m := v.client.GenerativeModel(v.model)
	if params.Temperature != nil {
		m.SetTemperature(*params.Temperature)
	}
	if params.TopP != nil {
		m.SetTopP(*params.TopP)
	}
	if params.MaxTokens != nil {
		m.SetMaxOutputTokens(*params.MaxTokens)
	}

	var parts []vertexgenai.Part
	for _, msg := range dialog.Messages {
		switch msg.Role {
		case models.RoleSystem:
			m.SystemInstruction = &vertexgenai.Content{
				Parts: []vertexgenai.Part{vertexgenai.Text(msg.Content)},
			}
		default:
			parts = append(parts, vertexgenai.Text(msg.Content))
		}
	}

	go func() {
		defer close(out)
		defer close(errs)

		it := m.GenerateContentStream(ctx, parts...)
		for {
			resp, err := it.Next()
			if err == iterator.Done {
				return
			}
			if err != nil {
				errs <- err
				return
			}

			for _, cand := range resp.Candidates {
				if cand.Content == nil {
					continue
				}
				for _, part := range cand.Content.Parts {
					if t, ok := part.(vertexgenai.Text); ok && string(t) != "" {
						select {
						case out <- string(t):
						case <-ctx.Done():
							return
						}
					}
				}
			}
		}
	}()

	return out, errs
}
