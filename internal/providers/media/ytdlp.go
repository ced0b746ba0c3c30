package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mobiusml/aana-chat-with-video/internal/models"
	"github.com/mobiusml/aana-chat-with-video/internal/storage"
)

// tooling implements Service with yt-dlp and ffmpeg on the local host.
type tooling struct {
	uploads storage.Fetcher // nil when no upload store is configured
	tmpDir  string
	log     *logrus.Logger
}

func NewService(uploads storage.Fetcher, tmpDir string, log *logrus.Logger) Service {
	if tmpDir == "" {
		tmpDir = os.TempDir()
	}
	if log == nil {
		log = logrus.New()
	}
	return &tooling{uploads: uploads, tmpDir: tmpDir, log: log}
}

// ytDlpInfo is the subset of `yt-dlp -J` output we care about.
type ytDlpInfo struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Duration    float64  `json:"duration"`
	Tags        []string `json:"tags"`
	Categories  []string `json:"categories"`
}

func (t *tooling) ProbeURL(ctx context.Context, url string) (*Metadata, error) {
	cmd := exec.CommandContext(ctx, "yt-dlp", "-J", "--no-download", url)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("yt-dlp probe: %w", err)
	}

	var info ytDlpInfo
	if err := json.Unmarshal(out.Bytes(), &info); err != nil {
		return nil, fmt.Errorf("yt-dlp probe: decode: %w", err)
	}

	tags := info.Tags
	if len(tags) == 0 {
		tags = info.Categories
	}
	return &Metadata{
		Title:       info.Title,
		Description: info.Description,
		Duration:    info.Duration,
		Tags:        tags,
	}, nil
}

func (t *tooling) Download(ctx context.Context, input models.VideoInput) (*Video, error) {
	if input.UploadRef != "" {
		return t.fetchUpload(ctx, input)
	}
	return t.downloadURL(ctx, input)
}

func (t *tooling) downloadURL(ctx context.Context, input models.VideoInput) (*Video, error) {
	dest := filepath.Join(t.tmpDir, uuid.NewString()+".mp4")

	cmd := exec.CommandContext(ctx, "yt-dlp",
		"-f", "mp4/bestvideo*+bestaudio/best",
		"--no-playlist",
		"-o", dest,
		input.URL,
	)
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("yt-dlp download: %w", err)
	}

	v := &Video{MediaID: input.MediaID, Path: dest, URL: input.URL}
	if md, err := t.ProbeURL(ctx, input.URL); err == nil {
		v.Title = md.Title
		v.Description = md.Description
		v.Tags = md.Tags
	} else {
		t.log.WithField("media_id", input.MediaID).WithError(err).
			Warn("metadata probe after download failed")
	}
	return v, nil
}

func (t *tooling) fetchUpload(ctx context.Context, input models.VideoInput) (*Video, error) {
	if t.uploads == nil {
		return nil, fmt.Errorf("no upload store configured, cannot resolve %q", input.UploadRef)
	}

	r, err := t.uploads.Fetch(ctx, input.UploadRef)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	dest := filepath.Join(t.tmpDir, uuid.NewString()+filepath.Ext(input.UploadRef))
	f, err := os.Create(dest)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}

	title := filepath.Base(input.UploadRef)
	return &Video{MediaID: input.MediaID, Path: dest, Title: title}, nil
}
