// Package timeline fuses two independently timestamped text streams, speech
// transcript segments and visual captions, into fixed-width chronological
// chunks. The computation is pure and deterministic.
package timeline

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/mobiusml/aana-chat-with-video/internal/models"
	"github.com/mobiusml/aana-chat-with-video/internal/utils"
)

// DefaultChunkSize is the chunk width in seconds.
const DefaultChunkSize = 10.0

// Chunk covers [StartTime, EndTime) with the text observed on each side.
// A side with no data in the window is an empty string.
type Chunk struct {
	StartTime       float64 `json:"start_time"`
	EndTime         float64 `json:"end_time"`
	AudioTranscript string  `json:"audio_transcript"`
	VisualCaption   string  `json:"visual_caption"`
}

type bucket struct {
	transcription []string
	captions      []string
}

// Synthesize buckets every segment and caption into index floor(ts/chunkSize)
// and emits one Chunk per index from 0 through the highest index seen on
// either side. Text within a chunk is joined in arrival order with newlines.
// len(captions) must equal len(timestamps); otherwise a MismatchedLengthError
// is returned and no chunks are produced.
func Synthesize(
	segments []models.TranscriptSegment,
	captions []string,
	timestamps []float64,
	chunkSize float64,
) ([]Chunk, error) {
	if len(captions) != len(timestamps) {
		return nil, &utils.MismatchedLengthError{
			Captions:   len(captions),
			Timestamps: len(timestamps),
		}
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	buckets := map[int]*bucket{}
	at := func(i int) *bucket {
		b, ok := buckets[i]
		if !ok {
			b = &bucket{}
			buckets[i] = b
		}
		return b
	}

	maxIndex := -1
	for _, seg := range segments {
		i := int(math.Floor(seg.StartTime / chunkSize))
		at(i).transcription = append(at(i).transcription, seg.Text)
		if i > maxIndex {
			maxIndex = i
		}
	}
	for i, ts := range timestamps {
		j := int(math.Floor(ts / chunkSize))
		at(j).captions = append(at(j).captions, captions[i])
		if j > maxIndex {
			maxIndex = j
		}
	}

	if maxIndex < 0 {
		return []Chunk{}, nil
	}

	out := make([]Chunk, 0, maxIndex+1)
	for i := 0; i <= maxIndex; i++ {
		c := Chunk{
			StartTime: float64(i) * chunkSize,
			EndTime:   float64(i+1) * chunkSize,
		}
		if b, ok := buckets[i]; ok {
			c.AudioTranscript = strings.Join(b.transcription, "\n")
			c.VisualCaption = strings.Join(b.captions, "\n")
		}
		out = append(out, c)
	}
	return out, nil
}

// SerializeJSON renders chunks in the indented JSON form embedded into the
// chat prompt.
func SerializeJSON(chunks []Chunk) (string, error) {
	b, err := json.MarshalIndent(chunks, "", "    ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
