package postgres

import (
	"context"
	"time"

	"github.com/mobiusml/aana-chat-with-video/internal/models"
	"github.com/mobiusml/aana-chat-with-video/internal/utils"
	"gorm.io/gorm"
)

type CaptionRepository interface {
	SaveAll(ctx context.Context, modelName, mediaID string,
		captions []string, timestamps []float64, frameIDs []int64) ([]models.Caption, error)
	GetByMedia(ctx context.Context, modelName, mediaID string) ([]models.Caption, error)
	DeleteByMedia(ctx context.Context, mediaID string) error
}

type captionRepo struct {
	db *gorm.DB
}

func NewCaptionRepo(db *gorm.DB) CaptionRepository {
	return &captionRepo{db: db}
}

func (r *captionRepo) SaveAll(ctx context.Context, modelName, mediaID string,
	captions []string, timestamps []float64, frameIDs []int64) ([]models.Caption, error) {
	if len(captions) != len(timestamps) {
		return nil, &utils.MismatchedLengthError{Captions: len(captions), Timestamps: len(timestamps)}
	}
	if len(captions) != len(frameIDs) {
		return nil, &utils.MismatchedLengthError{Captions: len(captions), Timestamps: len(frameIDs)}
	}
	if len(captions) == 0 {
		return []models.Caption{}, nil
	}

	now := time.Now().UTC()
	rows := make([]models.Caption, len(captions))
	for i := range captions {
		rows[i] = models.Caption{
			MediaID:   mediaID,
			Model:     modelName,
			FrameID:   frameIDs[i],
			Timestamp: timestamps[i],
			Caption:   captions[i],
			CreatedAt: now,
		}
	}
	if err := r.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *captionRepo) GetByMedia(ctx context.Context, modelName, mediaID string) ([]models.Caption, error) {
	var rows []models.Caption
	err := r.db.WithContext(ctx).
		Where("media_id = ? AND model = ?", mediaID, modelName).
		Order("timestamp ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *captionRepo) DeleteByMedia(ctx context.Context, mediaID string) error {
	return r.db.WithContext(ctx).
		Where("media_id = ?", mediaID).
		Delete(&models.Caption{}).Error
}
