package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mobiusml/aana-chat-with-video/internal/cache"
	"github.com/mobiusml/aana-chat-with-video/internal/models"
	mongorepo "github.com/mobiusml/aana-chat-with-video/internal/repositories/mongo"
	pgrepo "github.com/mobiusml/aana-chat-with-video/internal/repositories/postgres"
	"github.com/mobiusml/aana-chat-with-video/internal/utils"
)

const metadataCacheTTL = 10 * time.Minute

// VideoService exposes record-level operations around the indexing pipeline:
// status lookup, metadata, deletion, and progress-event replay.
type VideoService interface {
	GetStatus(ctx context.Context, mediaID string) (models.VideoStatus, error)
	GetMetadata(ctx context.Context, mediaID string) (*models.VideoMetadata, error)
	Delete(ctx context.Context, mediaID string) error
	ListEvents(ctx context.Context, mediaID string, limit int64) ([]models.IndexEventRecord, error)
}

type videoService struct {
	videos      pgrepo.VideoRepository
	transcripts pgrepo.TranscriptRepository
	captions    pgrepo.CaptionRepository
	events      mongorepo.IndexEventRepository // nil disables event replay
	cache       cache.Cache                    // nil disables caching

	log *logrus.Logger
}

func NewVideoService(
	videos pgrepo.VideoRepository,
	transcripts pgrepo.TranscriptRepository,
	captions pgrepo.CaptionRepository,
	events mongorepo.IndexEventRepository,
	c cache.Cache,
	log *logrus.Logger,
) VideoService {
	if log == nil {
		log = logrus.New()
	}
	return &videoService{
		videos:      videos,
		transcripts: transcripts,
		captions:    captions,
		events:      events,
		cache:       c,
		log:         log,
	}
}

func (s *videoService) GetStatus(ctx context.Context, mediaID string) (models.VideoStatus, error) {
	const op = "VideoService.GetStatus"

	if mediaID == "" {
		return "", utils.E(utils.CodeInvalidArgument, op, "media_id is required", nil)
	}
	// Always read the durable record; another process may own the pipeline.
	return s.videos.GetStatus(ctx, mediaID)
}

func (s *videoService) GetMetadata(ctx context.Context, mediaID string) (*models.VideoMetadata, error) {
	const op = "VideoService.GetMetadata"

	if mediaID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "media_id is required", nil)
	}

	key := "metadata:" + mediaID
	if s.cache != nil {
		var cached models.VideoMetadata
		if hit, err := s.cache.GetJSON(ctx, key, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	md, err := s.videos.GetMetadata(ctx, mediaID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, md, metadataCacheTTL); err != nil {
			s.log.WithField("media_id", mediaID).WithError(err).Warn("failed to cache metadata")
		}
	}
	return md, nil
}

func (s *videoService) Delete(ctx context.Context, mediaID string) error {
	const op = "VideoService.Delete"

	if mediaID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "media_id is required", nil)
	}

	if err := s.videos.Delete(ctx, mediaID); err != nil {
		return err
	}
	if err := s.transcripts.DeleteByMedia(ctx, mediaID); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to delete transcripts", err)
	}
	if err := s.captions.DeleteByMedia(ctx, mediaID); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to delete captions", err)
	}
	if s.events != nil {
		if err := s.events.DeleteByMedia(ctx, mediaID); err != nil {
			s.log.WithField("media_id", mediaID).WithError(err).Warn("failed to purge index events")
		}
	}
	if s.cache != nil {
		if err := s.cache.Del(ctx, "metadata:"+mediaID, "timeline:"+mediaID); err != nil {
			s.log.WithField("media_id", mediaID).WithError(err).Warn("failed to purge cache")
		}
	}
	return nil
}

func (s *videoService) ListEvents(ctx context.Context, mediaID string, limit int64) ([]models.IndexEventRecord, error) {
	const op = "VideoService.ListEvents"

	if mediaID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "media_id is required", nil)
	}
	if s.events == nil {
		return []models.IndexEventRecord{}, nil
	}

	// Replay only exists for known media ids.
	if _, err := s.videos.GetStatus(ctx, mediaID); err != nil {
		return nil, err
	}

	rows, err := s.events.ListByMedia(ctx, mediaID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list index events", err)
	}
	return rows, nil
}
