package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mobiusml/aana-chat-with-video/config"
	"github.com/mobiusml/aana-chat-with-video/internal/cache"
	"github.com/mobiusml/aana-chat-with-video/internal/models"
	"github.com/mobiusml/aana-chat-with-video/internal/providers/llm"
	pgrepo "github.com/mobiusml/aana-chat-with-video/internal/repositories/postgres"
	"github.com/mobiusml/aana-chat-with-video/internal/timeline"
	"github.com/mobiusml/aana-chat-with-video/internal/utils"
)

const timelineCacheTTL = 24 * time.Hour

// ChatService answers questions about an indexed video by assembling the
// fused timeline into a chat prompt and relaying the model's token stream.
type ChatService interface {
	// Answer validates the request and starts a completion stream. Failures
	// detected before any token is produced (unknown media id, unfinished
	// video) are returned synchronously; failures of the running stream
	// arrive on the error channel.
	Answer(ctx context.Context, mediaID, question string, params models.SamplingParams) (<-chan string, <-chan error, error)
}

type chatService struct {
	videos      pgrepo.VideoRepository
	transcripts pgrepo.TranscriptRepository
	captions    pgrepo.CaptionRepository
	timelines   cache.Cache // nil disables caching

	llm llm.Provider
	cfg config.Settings
	log *logrus.Logger
}

func NewChatService(
	videos pgrepo.VideoRepository,
	transcripts pgrepo.TranscriptRepository,
	captions pgrepo.CaptionRepository,
	timelines cache.Cache,
	llmProvider llm.Provider,
	cfg config.Settings,
	log *logrus.Logger,
) ChatService {
	if log == nil {
		log = logrus.New()
	}
	return &chatService{
		videos:      videos,
		transcripts: transcripts,
		captions:    captions,
		timelines:   timelines,
		llm:         llmProvider,
		cfg:         cfg,
		log:         log,
	}
}

func (s *chatService) Answer(ctx context.Context, mediaID, question string,
	params models.SamplingParams) (<-chan string, <-chan error, error) {
	const op = "ChatService.Answer"

	if mediaID == "" || question == "" {
		return nil, nil, utils.E(utils.CodeInvalidArgument, op, "media_id and question are required", nil)
	}

	// Chat is never served against partial or failed data.
	status, err := s.videos.GetStatus(ctx, mediaID)
	if err != nil {
		return nil, nil, err
	}
	if status != models.StatusCompleted {
		return nil, nil, &utils.UnfinishedVideoError{MediaID: mediaID, Status: status}
	}

	metadata, err := s.videos.GetMetadata(ctx, mediaID)
	if err != nil {
		return nil, nil, err
	}

	timelineJSON, err := s.loadTimeline(ctx, mediaID)
	if err != nil {
		return nil, nil, err
	}

	dialog := generateDialog(metadata, timelineJSON, question)
	tokens, errs := s.llm.ChatStream(ctx, dialog, params)
	return tokens, errs, nil
}

// loadTimeline returns the serialized timeline of a completed video, reading
// through the cache. Completed videos are immutable, so cached entries never
// go stale before their TTL.
func (s *chatService) loadTimeline(ctx context.Context, mediaID string) (string, error) {
	const op = "ChatService.Answer"
	key := "timeline:" + mediaID

	if s.timelines != nil {
		var cached string
		if hit, err := s.timelines.GetJSON(ctx, key, &cached); err == nil && hit {
			return cached, nil
		}
	}

	transcript, err := s.transcripts.Get(ctx, s.cfg.ASRModelName, mediaID)
	if err != nil {
		return "", err
	}
	segments, err := pgrepo.DecodeSegments(transcript)
	if err != nil {
		return "", utils.E(utils.CodeInternal, op, "failed to decode transcript segments", err)
	}

	captionRows, err := s.captions.GetByMedia(ctx, s.cfg.CaptioningModelName, mediaID)
	if err != nil {
		return "", err
	}
	captions := make([]string, len(captionRows))
	timestamps := make([]float64, len(captionRows))
	for i, row := range captionRows {
		captions[i] = row.Caption
		timestamps[i] = row.Timestamp
	}

	chunks, err := timeline.Synthesize(segments, captions, timestamps, s.cfg.TimelineChunkSize)
	if err != nil {
		return "", err
	}
	out, err := timeline.SerializeJSON(chunks)
	if err != nil {
		return "", utils.E(utils.CodeInternal, op, "failed to serialize timeline", err)
	}

	if s.timelines != nil {
		if err := s.timelines.SetJSON(ctx, key, out, timelineCacheTTL); err != nil {
			s.log.WithField("media_id", mediaID).WithError(err).Warn("failed to cache timeline")
		}
	}
	return out, nil
}
