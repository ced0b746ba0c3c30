package models

import "time"

// Frame is one sampled video frame handed to the captioning model.
type Frame struct {
	ID        int64   `json:"frame_id"`
	Timestamp float64 `json:"timestamp"`
	JPEG      []byte  `json:"-"`
}

// FrameBatch is one batch of extracted frames in timestamp order. An empty
// batch marks the end of the frame stream.
type FrameBatch struct {
	Frames []Frame `json:"frames"`
}

func (b FrameBatch) Timestamps() []float64 {
	out := make([]float64, len(b.Frames))
	for i, f := range b.Frames {
		out[i] = f.Timestamp
	}
	return out
}

func (b FrameBatch) FrameIDs() []int64 {
	out := make([]int64, len(b.Frames))
	for i, f := range b.Frames {
		out[i] = f.ID
	}
	return out
}

type Caption struct {
	ID      uint   `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	MediaID string `gorm:"column:media_id;type:text;index" json:"media_id"`
	Model   string `gorm:"column:model;type:text" json:"model"`

	FrameID   int64   `gorm:"column:frame_id" json:"frame_id"`
	Timestamp float64 `gorm:"column:timestamp" json:"timestamp"`
	Caption   string  `gorm:"column:caption;type:text" json:"caption"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz" json:"created_at"`
}

func (Caption) TableName() string { return "captions" }
