package postgres

import (
	"context"
	"errors"

	"github.com/mobiusml/aana-chat-with-video/internal/models"
	"github.com/mobiusml/aana-chat-with-video/internal/utils"
	"gorm.io/gorm"
)

// VideoRepository is the durable record of a video and its processing status.
// Status reads and writes always hit the database; nothing is cached here.
type VideoRepository interface {
	Exists(ctx context.Context, mediaID string) (bool, error)
	Create(ctx context.Context, v *models.Video) error
	Get(ctx context.Context, mediaID string) (*models.Video, error)
	GetStatus(ctx context.Context, mediaID string) (models.VideoStatus, error)
	UpdateStatus(ctx context.Context, mediaID string, status models.VideoStatus) error
	GetMetadata(ctx context.Context, mediaID string) (*models.VideoMetadata, error)
	Delete(ctx context.Context, mediaID string) error
}

type videoRepo struct {
	db *gorm.DB
}

func NewVideoRepo(db *gorm.DB) VideoRepository {
	return &videoRepo{db: db}
}

func (r *videoRepo) Exists(ctx context.Context, mediaID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.Video{}).
		Where("media_id = ?", mediaID).
		Count(&n).Error
	return n > 0, err
}

func (r *videoRepo) Create(ctx context.Context, v *models.Video) error {
	err := r.db.WithContext(ctx).Create(v).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// The pre-flight Exists check is an optimization; this constraint is
		// the real guard.
		return &utils.DuplicateMediaError{MediaID: v.MediaID}
	}
	return err
}

func (r *videoRepo) Get(ctx context.Context, mediaID string) (*models.Video, error) {
	var row models.Video
	err := r.db.WithContext(ctx).
		Where("media_id = ?", mediaID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &utils.NotFoundError{MediaID: mediaID}
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *videoRepo) GetStatus(ctx context.Context, mediaID string) (models.VideoStatus, error) {
	row, err := r.Get(ctx, mediaID)
	if err != nil {
		return "", err
	}
	return row.Status, nil
}

func (r *videoRepo) UpdateStatus(ctx context.Context, mediaID string, status models.VideoStatus) error {
	cur, err := r.GetStatus(ctx, mediaID)
	if err != nil {
		return err
	}
	if !cur.CanTransitionTo(status) {
		return utils.E(utils.CodeConflict, "VideoRepository.UpdateStatus",
			"illegal status transition "+string(cur)+" -> "+string(status), nil)
	}

	// Conditional write keeps the transition monotonic under concurrent writers.
	res := r.db.WithContext(ctx).
		Model(&models.Video{}).
		Where("media_id = ? AND status = ?", mediaID, cur).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.E(utils.CodeConflict, "VideoRepository.UpdateStatus",
			"status changed concurrently", nil)
	}
	return nil
}

func (r *videoRepo) GetMetadata(ctx context.Context, mediaID string) (*models.VideoMetadata, error) {
	row, err := r.Get(ctx, mediaID)
	if err != nil {
		return nil, err
	}
	return &models.VideoMetadata{
		Title:       row.Title,
		Description: row.Description,
		Duration:    row.Duration,
		Tags:        row.Tags,
	}, nil
}

func (r *videoRepo) Delete(ctx context.Context, mediaID string) error {
	res := r.db.WithContext(ctx).
		Where("media_id = ?", mediaID).
		Delete(&models.Video{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return &utils.NotFoundError{MediaID: mediaID}
	}
	return nil
}
