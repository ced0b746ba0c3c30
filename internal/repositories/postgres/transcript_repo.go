package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/mobiusml/aana-chat-with-video/internal/models"
	"github.com/mobiusml/aana-chat-with-video/internal/utils"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type TranscriptRepository interface {
	Save(ctx context.Context, modelName, mediaID, transcript string,
		segments []models.TranscriptSegment, info models.TranscriptionInfo) (*models.Transcript, error)
	Get(ctx context.Context, modelName, mediaID string) (*models.Transcript, error)
	DeleteByMedia(ctx context.Context, mediaID string) error
}

type transcriptRepo struct {
	db *gorm.DB
}

func NewTranscriptRepo(db *gorm.DB) TranscriptRepository {
	return &transcriptRepo{db: db}
}

func (r *transcriptRepo) Save(ctx context.Context, modelName, mediaID, transcript string,
	segments []models.TranscriptSegment, info models.TranscriptionInfo) (*models.Transcript, error) {
	if segments == nil {
		segments = []models.TranscriptSegment{}
	}
	raw, err := json.Marshal(segments)
	if err != nil {
		return nil, err
	}

	row := &models.Transcript{
		MediaID:            mediaID,
		Model:              modelName,
		Transcript:         transcript,
		Segments:           datatypes.JSON(raw),
		Language:           info.Language,
		LanguageConfidence: info.LanguageConfidence,
		CreatedAt:          time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *transcriptRepo) Get(ctx context.Context, modelName, mediaID string) (*models.Transcript, error) {
	var row models.Transcript
	err := r.db.WithContext(ctx).
		Where("media_id = ? AND model = ?", mediaID, modelName).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &utils.NotFoundError{MediaID: mediaID}
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *transcriptRepo) DeleteByMedia(ctx context.Context, mediaID string) error {
	return r.db.WithContext(ctx).
		Where("media_id = ?", mediaID).
		Delete(&models.Transcript{}).Error
}

// DecodeSegments unpacks the JSONB segment column.
func DecodeSegments(t *models.Transcript) ([]models.TranscriptSegment, error) {
	var out []models.TranscriptSegment
	if len(t.Segments) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(t.Segments, &out); err != nil {
		return nil, err
	}
	return out, nil
}
