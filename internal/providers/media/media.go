// Package media acquires video artifacts and derives audio and frames from
// them using yt-dlp and ffmpeg.
package media

import (
	"context"

	"github.com/mobiusml/aana-chat-with-video/internal/models"
)

// Metadata is what can be learned about a remote video without downloading it.
type Metadata struct {
	Title       string
	Description string
	Duration    float64 // seconds, 0 when unknown
	Tags        []string
}

// Video is a downloaded artifact on local disk.
type Video struct {
	MediaID     string
	Path        string
	URL         string
	Title       string
	Description string
	Tags        []string
}

type Service interface {
	// ProbeURL fetches remote metadata without downloading. Best effort; the
	// returned duration may be 0 when the source does not expose it.
	ProbeURL(ctx context.Context, url string) (*Metadata, error)

	// Download acquires the video named by the input, from its URL or from the
	// upload store.
	Download(ctx context.Context, input models.VideoInput) (*Video, error)

	// ProbeDuration measures the duration of a local artifact. Authoritative.
	ProbeDuration(ctx context.Context, path string) (float64, error)

	// ExtractAudio derives a mono 16kHz WAV and returns its path.
	ExtractAudio(ctx context.Context, v *Video) (string, error)

	// GenerateFrames samples frames at the configured rate and streams them in
	// timestamp-ascending batches. The stream terminates with an empty batch.
	GenerateFrames(ctx context.Context, v *Video, params models.VideoParams) (<-chan models.FrameBatch, <-chan error)
}
