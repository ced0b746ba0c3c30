package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type IndexEventType string

const (
	EventMetadata      IndexEventType = "metadata"
	EventTranscription IndexEventType = "transcription"
	EventCaptions      IndexEventType = "captions"
	EventPersisted     IndexEventType = "persisted"
)

// IndexEvent is one incremental result of the indexing pipeline. Exactly one
// payload field is set, matching Type.
type IndexEvent struct {
	Type IndexEventType `json:"type"`

	Metadata      *MetadataEvent      `json:"metadata,omitempty"`
	Transcription *TranscriptionChunk `json:"transcription,omitempty"`
	Captions      *CaptionProgress    `json:"captions,omitempty"`
	Persisted     *PersistedIDs       `json:"persisted,omitempty"`
}

type MetadataEvent struct {
	MediaID  string        `json:"media_id"`
	Metadata VideoMetadata `json:"metadata"`
}

// CaptionProgress carries the captions of one fully joined frame batch, in
// frame order.
type CaptionProgress struct {
	Captions   []string  `json:"captions"`
	Timestamps []float64 `json:"timestamps"`
	FrameIDs   []int64   `json:"frame_ids"`
}

type PersistedIDs struct {
	TranscriptionID uint   `json:"transcription_id"`
	CaptionIDs      []uint `json:"caption_ids"`
}

// IndexEventRecord is the Mongo document buffering an emitted IndexEvent so a
// client that dropped the stream can replay progress.
type IndexEventRecord struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	EventID string             `bson:"event_id" json:"event_id"` // uuid v4
	MediaID string             `bson:"media_id" json:"media_id"`
	Seq     int64              `bson:"seq" json:"seq"`

	Type    IndexEventType `bson:"type" json:"type"`
	Payload string         `bson:"payload" json:"payload"` // IndexEvent as JSON

	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
	ExpiresAt time.Time `bson:"expires_at" json:"-"`
}
