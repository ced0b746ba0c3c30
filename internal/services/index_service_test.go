package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mobiusml/aana-chat-with-video/config"
	"github.com/mobiusml/aana-chat-with-video/internal/models"
	"github.com/mobiusml/aana-chat-with-video/internal/providers/media"
	"github.com/mobiusml/aana-chat-with-video/internal/utils"
)

type fakeEventRepo struct {
	mu   sync.Mutex
	recs []models.IndexEventRecord
}

func (r *fakeEventRepo) Append(_ context.Context, rec *models.IndexEventRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recs = append(r.recs, *rec)
	return nil
}

func (r *fakeEventRepo) ListByMedia(_ context.Context, mediaID string, _ int64) ([]models.IndexEventRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.IndexEventRecord
	for _, rec := range r.recs {
		if rec.MediaID == mediaID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *fakeEventRepo) DeleteByMedia(_ context.Context, mediaID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.recs[:0]
	for _, rec := range r.recs {
		if rec.MediaID != mediaID {
			kept = append(kept, rec)
		}
	}
	r.recs = kept
	return nil
}

func testSettings() config.Settings {
	return config.Settings{
		MaxVideoLen:         1200,
		ASRModelName:        "whisper_medium",
		CaptioningModelName: "hf_blip2_opt_2_7b",
		TimelineChunkSize:   10,
		FrameBatchSize:      8,
		ExtractFPS:          1,
		EventTTL:            time.Hour,
	}
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func frame(id int64, ts float64) models.Frame {
	return models.Frame{ID: id, Timestamp: ts, JPEG: []byte{0xff, 0xd8}}
}

// drain consumes the full event stream, then reads the single error slot.
func drain(events <-chan models.IndexEvent, errs <-chan error) ([]models.IndexEvent, error) {
	var out []models.IndexEvent
	for ev := range events {
		out = append(out, ev)
	}
	return out, <-errs
}

func TestIndexCompletesAndPersists(t *testing.T) {
	videos := newFakeVideoRepo()
	transcripts := newFakeTranscriptRepo()
	captionRepo := newFakeCaptionRepo()
	eventRepo := &fakeEventRepo{}

	mediaSvc := &fakeMedia{
		meta: &media.Metadata{Title: "Squirrels", Duration: 120, Tags: []string{"nature"}},
		batches: []models.FrameBatch{
			{Frames: []models.Frame{frame(0, 0), frame(1, 1)}},
			{Frames: []models.Frame{frame(2, 2)}},
		},
	}
	asrFake := &fakeASR{chunks: []models.TranscriptionChunk{
		{
			Text:     "hello ",
			Segments: []models.TranscriptSegment{{Text: "hello", StartTime: 0, EndTime: 1.5}},
			Info:     models.TranscriptionInfo{Language: "en", LanguageConfidence: 0.98},
		},
		{
			Text:     "world",
			Segments: []models.TranscriptSegment{{Text: "world", StartTime: 1.5, EndTime: 2.4}},
		},
	}}

	svc := NewIndexService(videos, transcripts, captionRepo, eventRepo,
		mediaSvc, asrFake, &fakeCaptioner{}, testSettings(), quietLogger())

	input := models.VideoInput{MediaID: "vid-1", URL: "https://example.com/v"}
	events, errs := svc.Index(context.Background(), input, models.WhisperParams{}, models.VideoParams{BatchSize: 2})
	got, err := drain(events, errs)
	require.NoError(t, err)

	// metadata, two transcription chunks, two caption batches, persisted ids
	require.Len(t, got, 6)
	assert.Equal(t, models.EventMetadata, got[0].Type)
	assert.Equal(t, models.EventTranscription, got[1].Type)
	assert.Equal(t, models.EventTranscription, got[2].Type)
	assert.Equal(t, models.EventCaptions, got[3].Type)
	assert.Equal(t, models.EventCaptions, got[4].Type)
	assert.Equal(t, models.EventPersisted, got[5].Type)

	require.NotNil(t, got[0].Metadata)
	assert.Equal(t, "Squirrels", got[0].Metadata.Metadata.Title)
	require.NotNil(t, got[0].Metadata.Metadata.Duration)
	assert.Equal(t, 120.0, *got[0].Metadata.Metadata.Duration)

	require.NotNil(t, got[3].Captions)
	assert.Equal(t, []string{"caption-0", "caption-1"}, got[3].Captions.Captions)
	assert.Equal(t, []float64{0, 1}, got[3].Captions.Timestamps)

	require.NotNil(t, got[5].Persisted)
	assert.NotZero(t, got[5].Persisted.TranscriptionID)
	assert.Len(t, got[5].Persisted.CaptionIDs, 3)

	status, err := videos.GetStatus(context.Background(), "vid-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, status)
	assert.Equal(t, []models.VideoStatus{models.StatusRunning, models.StatusCompleted}, videos.statusWrites)

	row, err := transcripts.Get(context.Background(), "whisper_medium", "vid-1")
	require.NoError(t, err)
	assert.Equal(t, "hello world", row.Transcript)
	assert.Equal(t, "en", row.Language)

	saved, err := captionRepo.GetByMedia(context.Background(), "hf_blip2_opt_2_7b", "vid-1")
	require.NoError(t, err)
	require.Len(t, saved, 3)
	assert.Equal(t, "caption-2", saved[2].Caption)
	assert.Equal(t, 2.0, saved[2].Timestamp)

	// Every emitted event was buffered for replay, in order.
	buffered, err := eventRepo.ListByMedia(context.Background(), "vid-1", 0)
	require.NoError(t, err)
	require.Len(t, buffered, 6)
	for i, rec := range buffered {
		assert.Equal(t, int64(i+1), rec.Seq)
		assert.Equal(t, got[i].Type, rec.Type)
		assert.NotEmpty(t, rec.EventID)
	}
}

func TestIndexRejectsTooLongBeforeDownload(t *testing.T) {
	videos := newFakeVideoRepo()
	mediaSvc := &fakeMedia{meta: &media.Metadata{Title: "Marathon", Duration: 4000}}

	svc := NewIndexService(videos, newFakeTranscriptRepo(), newFakeCaptionRepo(), nil,
		mediaSvc, &fakeASR{}, &fakeCaptioner{}, testSettings(), quietLogger())

	events, errs := svc.Index(context.Background(),
		models.VideoInput{MediaID: "vid-long", URL: "https://example.com/v"},
		models.WhisperParams{}, models.VideoParams{})
	got, err := drain(events, errs)

	assert.Empty(t, got)
	var tooLong *utils.VideoTooLongError
	require.ErrorAs(t, err, &tooLong)
	assert.Equal(t, utils.DurationCheckPrecheck, tooLong.Check)
	assert.Equal(t, 4000.0, tooLong.Duration)
	assert.Equal(t, 1200.0, tooLong.MaxDuration)

	// Rejected before any record was written.
	exists, err := videos.Exists(context.Background(), "vid-long")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Empty(t, videos.statusWrites)
}

func TestIndexRejectsTooLongAfterDownload(t *testing.T) {
	videos := newFakeVideoRepo()
	// Uploads carry no URL metadata, so the only duration check is the probe
	// of the downloaded file.
	mediaSvc := &fakeMedia{probedDuration: 1500}

	svc := NewIndexService(videos, newFakeTranscriptRepo(), newFakeCaptionRepo(), nil,
		mediaSvc, &fakeASR{}, &fakeCaptioner{}, testSettings(), quietLogger())

	events, errs := svc.Index(context.Background(),
		models.VideoInput{MediaID: "vid-upload", UploadRef: "uploads/abc.mp4"},
		models.WhisperParams{}, models.VideoParams{})
	got, err := drain(events, errs)

	assert.Empty(t, got)
	var tooLong *utils.VideoTooLongError
	require.ErrorAs(t, err, &tooLong)
	assert.Equal(t, utils.DurationCheckPostDownload, tooLong.Check)

	exists, err := videos.Exists(context.Background(), "vid-upload")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestIndexRejectsDuplicateMediaID(t *testing.T) {
	videos := newFakeVideoRepo()
	require.NoError(t, videos.Create(context.Background(), &models.Video{
		MediaID: "vid-dup",
		Title:   "Original",
		Status:  models.StatusCompleted,
	}))

	svc := NewIndexService(videos, newFakeTranscriptRepo(), newFakeCaptionRepo(), nil,
		&fakeMedia{meta: &media.Metadata{Duration: 60}}, &fakeASR{}, &fakeCaptioner{},
		testSettings(), quietLogger())

	events, errs := svc.Index(context.Background(),
		models.VideoInput{MediaID: "vid-dup", URL: "https://example.com/v"},
		models.WhisperParams{}, models.VideoParams{})
	got, err := drain(events, errs)

	assert.Empty(t, got)
	var dup *utils.DuplicateMediaError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "vid-dup", dup.MediaID)

	// The existing record is untouched.
	existing, err := videos.Get(context.Background(), "vid-dup")
	require.NoError(t, err)
	assert.Equal(t, "Original", existing.Title)
	assert.Equal(t, models.StatusCompleted, existing.Status)
}

func TestIndexValidatesInput(t *testing.T) {
	svc := NewIndexService(newFakeVideoRepo(), newFakeTranscriptRepo(), newFakeCaptionRepo(), nil,
		&fakeMedia{}, &fakeASR{}, &fakeCaptioner{}, testSettings(), quietLogger())

	cases := []struct {
		name  string
		input models.VideoInput
	}{
		{"missing media id", models.VideoInput{URL: "https://example.com/v"}},
		{"neither source", models.VideoInput{MediaID: "vid-x"}},
		{"both sources", models.VideoInput{MediaID: "vid-x", URL: "https://example.com/v", UploadRef: "uploads/a.mp4"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			events, errs := svc.Index(context.Background(), tc.input,
				models.WhisperParams{}, models.VideoParams{})
			got, err := drain(events, errs)
			assert.Empty(t, got)
			assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
		})
	}
}

func TestIndexTranscriptionFailureMarksFailed(t *testing.T) {
	videos := newFakeVideoRepo()
	transcripts := newFakeTranscriptRepo()
	asrFake := &fakeASR{err: errors.New("recognizer stream reset")}

	svc := NewIndexService(videos, transcripts, newFakeCaptionRepo(), nil,
		&fakeMedia{meta: &media.Metadata{Duration: 60}}, asrFake, &fakeCaptioner{},
		testSettings(), quietLogger())

	events, errs := svc.Index(context.Background(),
		models.VideoInput{MediaID: "vid-bad-audio", URL: "https://example.com/v"},
		models.WhisperParams{}, models.VideoParams{})
	got, err := drain(events, errs)

	require.Error(t, err)
	assert.True(t, utils.IsCode(err, utils.CodeUnavailable))
	// Metadata was already streamed before the failure.
	require.NotEmpty(t, got)
	assert.Equal(t, models.EventMetadata, got[0].Type)

	status, serr := videos.GetStatus(context.Background(), "vid-bad-audio")
	require.NoError(t, serr)
	assert.Equal(t, models.StatusFailed, status)

	_, terr := transcripts.Get(context.Background(), "whisper_medium", "vid-bad-audio")
	var notFound *utils.NotFoundError
	assert.ErrorAs(t, terr, &notFound)
}

func TestIndexCaptionOrderIsDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	var mu sync.Mutex
	captioner := &fakeCaptioner{fn: func(f models.Frame) (string, error) {
		mu.Lock()
		d := time.Duration(rng.Intn(5)) * time.Millisecond
		mu.Unlock()
		time.Sleep(d)
		return fmt.Sprintf("frame %d", f.ID), nil
	}}

	var frames []models.Frame
	for i := int64(0); i < 16; i++ {
		frames = append(frames, frame(i, float64(i)))
	}
	mediaSvc := &fakeMedia{
		meta:    &media.Metadata{Duration: 30},
		batches: []models.FrameBatch{{Frames: frames}},
	}

	svc := NewIndexService(newFakeVideoRepo(), newFakeTranscriptRepo(), newFakeCaptionRepo(), nil,
		mediaSvc, &fakeASR{}, captioner, testSettings(), quietLogger())

	events, errs := svc.Index(context.Background(),
		models.VideoInput{MediaID: "vid-order", URL: "https://example.com/v"},
		models.WhisperParams{}, models.VideoParams{})
	got, err := drain(events, errs)
	require.NoError(t, err)

	var progress *models.CaptionProgress
	for _, ev := range got {
		if ev.Type == models.EventCaptions {
			progress = ev.Captions
		}
	}
	require.NotNil(t, progress)
	require.Len(t, progress.Captions, 16)
	for i, text := range progress.Captions {
		assert.Equal(t, fmt.Sprintf("frame %d", i), text)
	}
}

func TestIndexAbandonedConsumerLeavesRunning(t *testing.T) {
	videos := newFakeVideoRepo()
	asrFake := &fakeASR{chunks: []models.TranscriptionChunk{{Text: "never delivered"}}}

	svc := NewIndexService(videos, newFakeTranscriptRepo(), newFakeCaptionRepo(), nil,
		&fakeMedia{meta: &media.Metadata{Duration: 60}}, asrFake, &fakeCaptioner{},
		testSettings(), quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	events, errs := svc.Index(ctx,
		models.VideoInput{MediaID: "vid-gone", URL: "https://example.com/v"},
		models.WhisperParams{}, models.VideoParams{})

	// Consume only the metadata event, then walk away. No further receive on
	// the event channel, so the pipeline can only unblock via the context.
	first := <-events
	require.Equal(t, models.EventMetadata, first.Type)
	cancel()

	err := <-errs
	require.ErrorIs(t, err, context.Canceled)

	// Abandonment is not a pipeline failure; the record stays running.
	status, serr := videos.GetStatus(context.Background(), "vid-gone")
	require.NoError(t, serr)
	assert.Equal(t, models.StatusRunning, status)
}
