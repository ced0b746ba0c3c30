package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/mobiusml/aana-chat-with-video/config"
	"github.com/mobiusml/aana-chat-with-video/internal/models"
	"github.com/mobiusml/aana-chat-with-video/internal/providers/asr"
	"github.com/mobiusml/aana-chat-with-video/internal/providers/captioning"
	"github.com/mobiusml/aana-chat-with-video/internal/providers/media"
	mongorepo "github.com/mobiusml/aana-chat-with-video/internal/repositories/mongo"
	pgrepo "github.com/mobiusml/aana-chat-with-video/internal/repositories/postgres"
	"github.com/mobiusml/aana-chat-with-video/internal/utils"
)

// IndexService drives the end-to-end ingest pipeline: duplicate check,
// duration validation, download, streamed transcription, streamed frame
// captioning, persistence, and the terminal status transition.
type IndexService interface {
	// Index emits incremental results on the returned event channel. The
	// stream is single-pass; the caller must consume it to completion for the
	// terminal status to be reached. At most one error is delivered on the
	// error channel, after the event channel closes.
	Index(ctx context.Context, input models.VideoInput,
		whisper models.WhisperParams, frames models.VideoParams) (<-chan models.IndexEvent, <-chan error)
}

type indexService struct {
	videos      pgrepo.VideoRepository
	transcripts pgrepo.TranscriptRepository
	captions    pgrepo.CaptionRepository
	events      mongorepo.IndexEventRepository // nil disables progress buffering

	media     media.Service
	asr       asr.Provider
	captioner captioning.Provider

	cfg config.Settings
	log *logrus.Logger
}

func NewIndexService(
	videos pgrepo.VideoRepository,
	transcripts pgrepo.TranscriptRepository,
	captions pgrepo.CaptionRepository,
	events mongorepo.IndexEventRepository,
	mediaSvc media.Service,
	asrProvider asr.Provider,
	captioner captioning.Provider,
	cfg config.Settings,
	log *logrus.Logger,
) IndexService {
	if log == nil {
		log = logrus.New()
	}
	return &indexService{
		videos:      videos,
		transcripts: transcripts,
		captions:    captions,
		events:      events,
		media:       mediaSvc,
		asr:         asrProvider,
		captioner:   captioner,
		cfg:         cfg,
		log:         log,
	}
}

func (s *indexService) Index(ctx context.Context, input models.VideoInput,
	whisper models.WhisperParams, frames models.VideoParams) (<-chan models.IndexEvent, <-chan error) {
	// Unbuffered: the pipeline only advances as the caller consumes events.
	events := make(chan models.IndexEvent)
	errs := make(chan error, 1)

	go func() {
		defer close(errs)
		defer close(events)
		if err := s.run(ctx, input, whisper, frames, events); err != nil {
			errs <- err
		}
	}()

	return events, errs
}

func (s *indexService) run(ctx context.Context, input models.VideoInput,
	whisper models.WhisperParams, frames models.VideoParams, events chan<- models.IndexEvent) error {
	const op = "IndexService.Index"

	mediaID := input.MediaID
	if mediaID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "media_id is required", nil)
	}
	if (input.URL == "") == (input.UploadRef == "") {
		return utils.E(utils.CodeInvalidArgument, op, "exactly one of url and upload_ref is required", nil)
	}
	log := s.log.WithField("media_id", mediaID)

	// Duplicate check before any other side effect. The unique constraint on
	// create is the authoritative guard; this is the cheap fast path.
	exists, err := s.videos.Exists(ctx, mediaID)
	if err != nil {
		return utils.E(utils.CodeInternal, op, "duplicate check failed", err)
	}
	if exists {
		return &utils.DuplicateMediaError{MediaID: mediaID}
	}

	// Cheap duration precheck from URL metadata, before downloading anything.
	var duration *float64
	if input.URL != "" {
		md, perr := s.media.ProbeURL(ctx, input.URL)
		if perr != nil {
			return utils.E(utils.CodeUnavailable, op, "failed to probe video metadata", perr)
		}
		if md.Duration > 0 {
			d := md.Duration
			duration = &d
		}
		if duration != nil && *duration > s.cfg.MaxVideoLen {
			return &utils.VideoTooLongError{
				MediaID:     mediaID,
				Duration:    *duration,
				MaxDuration: s.cfg.MaxVideoLen,
				Check:       utils.DurationCheckPrecheck,
			}
		}
	}

	video, err := s.media.Download(ctx, input)
	if err != nil {
		return utils.E(utils.CodeUnavailable, op, "failed to acquire video", err)
	}

	// Authoritative duration check on the downloaded artifact. The precheck
	// may have been skipped (uploads) or fed wrong metadata.
	if duration == nil {
		d, perr := s.media.ProbeDuration(ctx, video.Path)
		if perr != nil {
			return utils.E(utils.CodeUnavailable, op, "failed to probe video duration", perr)
		}
		duration = &d
	}
	if *duration > s.cfg.MaxVideoLen {
		return &utils.VideoTooLongError{
			MediaID:     mediaID,
			Duration:    *duration,
			MaxDuration: s.cfg.MaxVideoLen,
			Check:       utils.DurationCheckPostDownload,
		}
	}

	rec := &models.Video{
		MediaID:     mediaID,
		Title:       video.Title,
		Description: video.Description,
		URL:         input.URL,
		Path:        video.Path,
		Duration:    duration,
		Status:      models.StatusCreated,
		Tags:        video.Tags,
	}
	if err := s.videos.Create(ctx, rec); err != nil {
		return err
	}

	var seq int64
	if err := s.emit(ctx, events, &seq, mediaID, models.IndexEvent{
		Type: models.EventMetadata,
		Metadata: &models.MetadataEvent{
			MediaID: mediaID,
			Metadata: models.VideoMetadata{
				Title:       rec.Title,
				Description: rec.Description,
				Duration:    rec.Duration,
				Tags:        rec.Tags,
			},
		},
	}); err != nil {
		return err
	}

	if err := s.videos.UpdateStatus(ctx, mediaID, models.StatusRunning); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to mark video running", err)
	}
	log.Info("indexing started")

	perr := s.process(ctx, video, whisper, frames, events, &seq)
	if perr != nil {
		// A consumer that walked away leaves the record RUNNING; only real
		// stage failures are recorded as FAILED.
		if ctx.Err() == nil {
			if uerr := s.videos.UpdateStatus(ctx, mediaID, models.StatusFailed); uerr != nil {
				log.WithError(uerr).Error("failed to mark video failed")
			}
		}
		return perr
	}

	if err := s.videos.UpdateStatus(ctx, mediaID, models.StatusCompleted); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to mark video completed", err)
	}
	log.Info("indexing completed")
	return nil
}

// process runs the transcription, captioning, and persistence stages. Any
// error it returns is recorded as a FAILED status by the caller.
func (s *indexService) process(ctx context.Context, video *media.Video,
	whisper models.WhisperParams, frames models.VideoParams,
	events chan<- models.IndexEvent, seq *int64) error {
	const op = "IndexService.Index"
	mediaID := video.MediaID

	audioPath, err := s.media.ExtractAudio(ctx, video)
	if err != nil {
		return utils.E(utils.CodeUnavailable, op, "failed to extract audio", err)
	}

	var (
		transcript strings.Builder
		segments   []models.TranscriptSegment
		info       models.TranscriptionInfo
	)
	chunks, asrErrs := s.asr.TranscribeStream(ctx, audioPath, whisper)
	for chunk := range chunks {
		transcript.WriteString(chunk.Text)
		segments = append(segments, chunk.Segments...)
		info = info.Merge(chunk.Info)

		c := chunk
		if err := s.emit(ctx, events, seq, mediaID, models.IndexEvent{
			Type:          models.EventTranscription,
			Transcription: &c,
		}); err != nil {
			return err
		}
	}
	if err := <-asrErrs; err != nil {
		return utils.E(utils.CodeUnavailable, op, "transcription failed", err)
	}

	var (
		captions   []string
		timestamps []float64
		frameIDs   []int64
	)
	batches, frameErrs := s.media.GenerateFrames(ctx, video, frames)
	for batch := range batches {
		if len(batch.Frames) == 0 {
			break
		}

		// Caption every frame of the batch concurrently, then join. Results
		// keep the frame order of the batch.
		batchCaptions := make([]string, len(batch.Frames))
		g, gctx := errgroup.WithContext(ctx)
		for i, frame := range batch.Frames {
			g.Go(func() error {
				text, cerr := s.captioner.CaptionOne(gctx, frame)
				if cerr != nil {
					return cerr
				}
				batchCaptions[i] = text
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return utils.E(utils.CodeUnavailable, op, "captioning failed", err)
		}

		captions = append(captions, batchCaptions...)
		timestamps = append(timestamps, batch.Timestamps()...)
		frameIDs = append(frameIDs, batch.FrameIDs()...)

		if err := s.emit(ctx, events, seq, mediaID, models.IndexEvent{
			Type: models.EventCaptions,
			Captions: &models.CaptionProgress{
				Captions:   batchCaptions,
				Timestamps: batch.Timestamps(),
				FrameIDs:   batch.FrameIDs(),
			},
		}); err != nil {
			return err
		}
	}
	if err := <-frameErrs; err != nil {
		return utils.E(utils.CodeUnavailable, op, "frame generation failed", err)
	}

	transcriptRow, err := s.transcripts.Save(ctx, s.cfg.ASRModelName, mediaID,
		transcript.String(), segments, info)
	if err != nil {
		return utils.E(utils.CodeInternal, op, "failed to save transcript", err)
	}

	captionRows, err := s.captions.SaveAll(ctx, s.cfg.CaptioningModelName, mediaID,
		captions, timestamps, frameIDs)
	if err != nil {
		return utils.E(utils.CodeInternal, op, "failed to save captions", err)
	}
	captionIDs := make([]uint, len(captionRows))
	for i, row := range captionRows {
		captionIDs[i] = row.ID
	}

	return s.emit(ctx, events, seq, mediaID, models.IndexEvent{
		Type: models.EventPersisted,
		Persisted: &models.PersistedIDs{
			TranscriptionID: transcriptRow.ID,
			CaptionIDs:      captionIDs,
		},
	})
}

// emit hands an event to the consumer, then buffers it for replay. Buffering
// is best effort and never fails the pipeline.
func (s *indexService) emit(ctx context.Context, events chan<- models.IndexEvent,
	seq *int64, mediaID string, ev models.IndexEvent) error {
	select {
	case events <- ev:
	case <-ctx.Done():
		return ctx.Err()
	}

	if s.events == nil {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil
	}
	*seq++
	rec := &models.IndexEventRecord{
		EventID:   uuid.NewString(),
		MediaID:   mediaID,
		Seq:       *seq,
		Type:      ev.Type,
		Payload:   string(payload),
		Timestamp: time.Now().UTC(),
		ExpiresAt: time.Now().UTC().Add(s.cfg.EventTTL),
	}
	if aerr := s.events.Append(ctx, rec); aerr != nil {
		s.log.WithField("media_id", mediaID).WithError(aerr).Warn("failed to buffer index event")
	}
	return nil
}
