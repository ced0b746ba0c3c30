package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"gorm.io/datatypes"

	"github.com/mobiusml/aana-chat-with-video/internal/models"
	"github.com/mobiusml/aana-chat-with-video/internal/providers/media"
	"github.com/mobiusml/aana-chat-with-video/internal/utils"
)

type fakeVideoRepo struct {
	mu           sync.Mutex
	videos       map[string]*models.Video
	statusWrites []models.VideoStatus
}

func newFakeVideoRepo() *fakeVideoRepo {
	return &fakeVideoRepo{videos: map[string]*models.Video{}}
}

func (r *fakeVideoRepo) Exists(_ context.Context, mediaID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.videos[mediaID]
	return ok, nil
}

func (r *fakeVideoRepo) Create(_ context.Context, v *models.Video) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.videos[v.MediaID]; ok {
		return &utils.DuplicateMediaError{MediaID: v.MediaID}
	}
	cp := *v
	r.videos[v.MediaID] = &cp
	return nil
}

func (r *fakeVideoRepo) Get(_ context.Context, mediaID string) (*models.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.videos[mediaID]
	if !ok {
		return nil, &utils.NotFoundError{MediaID: mediaID}
	}
	cp := *v
	return &cp, nil
}

func (r *fakeVideoRepo) GetStatus(ctx context.Context, mediaID string) (models.VideoStatus, error) {
	v, err := r.Get(ctx, mediaID)
	if err != nil {
		return "", err
	}
	return v.Status, nil
}

func (r *fakeVideoRepo) UpdateStatus(_ context.Context, mediaID string, status models.VideoStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.videos[mediaID]
	if !ok {
		return &utils.NotFoundError{MediaID: mediaID}
	}
	if !v.Status.CanTransitionTo(status) {
		return utils.E(utils.CodeConflict, "fakeVideoRepo.UpdateStatus",
			"illegal status transition "+string(v.Status)+" -> "+string(status), nil)
	}
	v.Status = status
	r.statusWrites = append(r.statusWrites, status)
	return nil
}

func (r *fakeVideoRepo) GetMetadata(ctx context.Context, mediaID string) (*models.VideoMetadata, error) {
	v, err := r.Get(ctx, mediaID)
	if err != nil {
		return nil, err
	}
	return &models.VideoMetadata{
		Title:       v.Title,
		Description: v.Description,
		Duration:    v.Duration,
		Tags:        v.Tags,
	}, nil
}

func (r *fakeVideoRepo) Delete(_ context.Context, mediaID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.videos[mediaID]; !ok {
		return &utils.NotFoundError{MediaID: mediaID}
	}
	delete(r.videos, mediaID)
	return nil
}

type fakeTranscriptRepo struct {
	mu     sync.Mutex
	nextID uint
	rows   map[string]*models.Transcript // keyed by media id
}

func newFakeTranscriptRepo() *fakeTranscriptRepo {
	return &fakeTranscriptRepo{rows: map[string]*models.Transcript{}}
}

func (r *fakeTranscriptRepo) Save(_ context.Context, modelName, mediaID, transcript string,
	segments []models.TranscriptSegment, info models.TranscriptionInfo) (*models.Transcript, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	raw, err := json.Marshal(segments)
	if err != nil {
		return nil, err
	}
	row := &models.Transcript{
		ID:                 r.nextID,
		MediaID:            mediaID,
		Model:              modelName,
		Transcript:         transcript,
		Segments:           datatypes.JSON(raw),
		Language:           info.Language,
		LanguageConfidence: info.LanguageConfidence,
		CreatedAt:          time.Now().UTC(),
	}
	r.rows[mediaID] = row
	return row, nil
}

func (r *fakeTranscriptRepo) Get(_ context.Context, _, mediaID string) (*models.Transcript, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[mediaID]
	if !ok {
		return nil, &utils.NotFoundError{MediaID: mediaID}
	}
	cp := *row
	return &cp, nil
}

func (r *fakeTranscriptRepo) DeleteByMedia(_ context.Context, mediaID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, mediaID)
	return nil
}

type fakeCaptionRepo struct {
	mu     sync.Mutex
	nextID uint
	rows   map[string][]models.Caption
}

func newFakeCaptionRepo() *fakeCaptionRepo {
	return &fakeCaptionRepo{rows: map[string][]models.Caption{}}
}

func (r *fakeCaptionRepo) SaveAll(_ context.Context, modelName, mediaID string,
	captions []string, timestamps []float64, frameIDs []int64) ([]models.Caption, error) {
	if len(captions) != len(timestamps) {
		return nil, &utils.MismatchedLengthError{Captions: len(captions), Timestamps: len(timestamps)}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Caption, len(captions))
	for i := range captions {
		r.nextID++
		out[i] = models.Caption{
			ID:        r.nextID,
			MediaID:   mediaID,
			Model:     modelName,
			FrameID:   frameIDs[i],
			Timestamp: timestamps[i],
			Caption:   captions[i],
		}
	}
	r.rows[mediaID] = append(r.rows[mediaID], out...)
	return out, nil
}

func (r *fakeCaptionRepo) GetByMedia(_ context.Context, _, mediaID string) ([]models.Caption, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Caption(nil), r.rows[mediaID]...), nil
}

func (r *fakeCaptionRepo) DeleteByMedia(_ context.Context, mediaID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, mediaID)
	return nil
}

type fakeMedia struct {
	meta     *media.Metadata
	probeErr error

	downloadErr      error
	downloadedTitle  string
	probedDuration   float64
	probeDurationErr error

	batches  []models.FrameBatch
	frameErr error
}

func (m *fakeMedia) ProbeURL(_ context.Context, _ string) (*media.Metadata, error) {
	if m.probeErr != nil {
		return nil, m.probeErr
	}
	if m.meta != nil {
		return m.meta, nil
	}
	return &media.Metadata{}, nil
}

func (m *fakeMedia) Download(_ context.Context, input models.VideoInput) (*media.Video, error) {
	if m.downloadErr != nil {
		return nil, m.downloadErr
	}
	title := m.downloadedTitle
	if title == "" && m.meta != nil {
		title = m.meta.Title
	}
	var tags []string
	if m.meta != nil {
		tags = m.meta.Tags
	}
	return &media.Video{MediaID: input.MediaID, Path: "/tmp/video.mp4", URL: input.URL, Title: title, Tags: tags}, nil
}

func (m *fakeMedia) ProbeDuration(_ context.Context, _ string) (float64, error) {
	if m.probeDurationErr != nil {
		return 0, m.probeDurationErr
	}
	return m.probedDuration, nil
}

func (m *fakeMedia) ExtractAudio(_ context.Context, _ *media.Video) (string, error) {
	return "/tmp/audio.wav", nil
}

func (m *fakeMedia) GenerateFrames(_ context.Context, _ *media.Video, _ models.VideoParams) (<-chan models.FrameBatch, <-chan error) {
	batches := make(chan models.FrameBatch, len(m.batches)+1)
	errs := make(chan error, 1)
	for _, b := range m.batches {
		batches <- b
	}
	batches <- models.FrameBatch{}
	close(batches)
	if m.frameErr != nil {
		errs <- m.frameErr
	}
	close(errs)
	return batches, errs
}

type fakeASR struct {
	chunks []models.TranscriptionChunk
	err    error
}

func (a *fakeASR) TranscribeStream(_ context.Context, _ string, _ models.WhisperParams) (<-chan models.TranscriptionChunk, <-chan error) {
	out := make(chan models.TranscriptionChunk, len(a.chunks))
	errs := make(chan error, 1)
	for _, c := range a.chunks {
		out <- c
	}
	close(out)
	if a.err != nil {
		errs <- a.err
	}
	close(errs)
	return out, errs
}

func (a *fakeASR) Close() error { return nil }

type fakeCaptioner struct {
	fn func(models.Frame) (string, error)
}

func (c *fakeCaptioner) CaptionOne(_ context.Context, frame models.Frame) (string, error) {
	if c.fn != nil {
		return c.fn(frame)
	}
	return fmt.Sprintf("caption-%d", frame.ID), nil
}

func (c *fakeCaptioner) Close() error { return nil }

type fakeLLM struct {
	mu     sync.Mutex
	dialog models.ChatDialog
	tokens []string
	err    error
}

func (l *fakeLLM) ChatStream(_ context.Context, dialog models.ChatDialog, _ models.SamplingParams) (<-chan string, <-chan error) {
	l.mu.Lock()
	l.dialog = dialog
	l.mu.Unlock()

	out := make(chan string, len(l.tokens))
	errs := make(chan error, 1)
	for _, tok := range l.tokens {
		out <- tok
	}
	close(out)
	if l.err != nil {
		errs <- l.err
	}
	close(errs)
	return out, errs
}

func (l *fakeLLM) Close() error { return nil }
