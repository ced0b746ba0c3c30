package models

import (
	"time"

	"gorm.io/datatypes"
)

// TranscriptSegment is one timed span of recognized speech.
type TranscriptSegment struct {
	Text      string  `json:"text"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
}

// TranscriptionInfo is aggregate information about a transcription.
type TranscriptionInfo struct {
	Language           string  `json:"language"`
	LanguageConfidence float64 `json:"language_confidence"`
}

// Merge combines two infos; later non-empty fields win.
func (i TranscriptionInfo) Merge(other TranscriptionInfo) TranscriptionInfo {
	out := i
	if other.Language != "" {
		out.Language = other.Language
	}
	if other.LanguageConfidence != 0 {
		out.LanguageConfidence = other.LanguageConfidence
	}
	return out
}

// TranscriptionChunk is one incremental result of a streaming transcription.
type TranscriptionChunk struct {
	Text     string              `json:"text"`
	Segments []TranscriptSegment `json:"segments"`
	Info     TranscriptionInfo   `json:"info"`
}

// WhisperParams are forwarded to the speech recognizer.
type WhisperParams struct {
	Language string `json:"language,omitempty"`
	Model    string `json:"model,omitempty"`
}

type Transcript struct {
	ID      uint   `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	MediaID string `gorm:"column:media_id;type:text;index:idx_transcripts_media_model,unique" json:"media_id"`
	Model   string `gorm:"column:model;type:text;index:idx_transcripts_media_model,unique" json:"model"`

	Transcript string         `gorm:"column:transcript;type:text" json:"transcript"`
	Segments   datatypes.JSON `gorm:"column:segments;type:jsonb" json:"segments"`

	Language           string  `gorm:"column:language;type:text" json:"language"`
	LanguageConfidence float64 `gorm:"column:language_confidence" json:"language_confidence"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz" json:"created_at"`
}

func (Transcript) TableName() string { return "transcripts" }
