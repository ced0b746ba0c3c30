package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/mobiusml/aana-chat-with-video/internal/models"
)

func (t *tooling) ProbeDuration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}

	dur, err := strconv.ParseFloat(strings.TrimSpace(out.String()), 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe: parse duration: %w", err)
	}
	return dur, nil
}

func (t *tooling) ExtractAudio(ctx context.Context, v *Video) (string, error) {
	base := strings.TrimSuffix(filepath.Base(v.Path), filepath.Ext(v.Path))
	out := filepath.Join(t.tmpDir, base+"_audio_16k.wav")

	// ffmpeg -y -i input -vn -ac 1 -ar 16000 -f wav output
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-y", "-i", v.Path,
		"-vn",
		"-ac", "1", "-ar", "16000",
		"-f", "wav",
		out,
	)
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("ffmpeg extract audio: %w", err)
	}
	return out, nil
}

func (t *tooling) GenerateFrames(ctx context.Context, v *Video, params models.VideoParams) (<-chan models.FrameBatch, <-chan error) {
	batches := make(chan models.FrameBatch)
	errs := make(chan error, 1)

	fps := params.ExtractFPS
	if fps <= 0 {
		fps = 1.0
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = 8
	}

	go func() {
		defer close(batches)
		defer close(errs)

		frameDir := filepath.Join(t.tmpDir, "frames_"+uuid.NewString())
		if err := os.MkdirAll(frameDir, 0o755); err != nil {
			errs <- err
			return
		}
		defer os.RemoveAll(frameDir)

		pattern := filepath.Join(frameDir, "frame_%06d.jpg")
		cmd := exec.CommandContext(ctx, "ffmpeg",
			"-i", v.Path,
			"-vf", fmt.Sprintf("fps=%g", fps),
			"-q:v", "2",
			pattern,
		)
		if err := cmd.Run(); err != nil {
			errs <- fmt.Errorf("ffmpeg extract frames: %w", err)
			return
		}

		paths, err := filepath.Glob(filepath.Join(frameDir, "frame_*.jpg"))
		if err != nil {
			errs <- err
			return
		}
		sort.Strings(paths)

		batch := models.FrameBatch{}
		for i, p := range paths {
			data, err := os.ReadFile(p)
			if err != nil {
				errs <- err
				return
			}
			batch.Frames = append(batch.Frames, models.Frame{
				ID:        int64(i),
				Timestamp: float64(i) / fps,
				JPEG:      data,
			})
			if len(batch.Frames) == batchSize {
				if !send(ctx, batches, batch) {
					return
				}
				batch = models.FrameBatch{}
			}
		}
		if len(batch.Frames) > 0 {
			if !send(ctx, batches, batch) {
				return
			}
		}

		// empty batch marks end of frames
		send(ctx, batches, models.FrameBatch{})
	}()

	return batches, errs
}

func send(ctx context.Context, ch chan<- models.FrameBatch, b models.FrameBatch) bool {
	select {
	case ch <- b:
		return true
	case <-ctx.Done():
		return false
	}
}
