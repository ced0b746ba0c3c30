package mongo

import (
	"context"
	"time"

	"github.com/mobiusml/aana-chat-with-video/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// IndexEventRepository buffers emitted index events so a client that dropped
// the HTTP stream can replay progress. Entries expire via a TTL index.
type IndexEventRepository interface {
	Append(ctx context.Context, rec *models.IndexEventRecord) error
	ListByMedia(ctx context.Context, mediaID string, limit int64) ([]models.IndexEventRecord, error)
	DeleteByMedia(ctx context.Context, mediaID string) error
}

type indexEventRepo struct {
	col *mongo.Collection
}

func NewIndexEventRepo(db *mongo.Database) IndexEventRepository {
	return &indexEventRepo{col: db.Collection("index_events")}
}

func (r *indexEventRepo) Append(ctx context.Context, rec *models.IndexEventRecord) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	_, err := r.col.InsertOne(ctx, rec)
	return err
}

func (r *indexEventRepo) ListByMedia(ctx context.Context, mediaID string, limit int64) ([]models.IndexEventRecord, error) {
	if limit <= 0 {
		limit = 500
	}

	cur, err := r.col.Find(ctx,
		bson.M{"media_id": mediaID},
		options.Find().
			SetSort(bson.D{{Key: "seq", Value: 1}}).
			SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.IndexEventRecord
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *indexEventRepo) DeleteByMedia(ctx context.Context, mediaID string) error {
	_, err := r.col.DeleteMany(ctx, bson.M{"media_id": mediaID})
	return err
}
