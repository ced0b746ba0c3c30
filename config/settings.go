package config

import (
	"os"
	"strconv"
	"time"
)

// Settings carries all tunables the services need. It is loaded once at
// startup and passed in explicitly; nothing reads process env after that.
type Settings struct {
	Port string

	// Maximum accepted video duration in seconds.
	MaxVideoLen float64

	ASRModelName        string
	CaptioningModelName string
	ChatModelName       string

	TimelineChunkSize float64

	ExtractFPS     float64
	FrameBatchSize int

	GCPProject  string
	GCPLocation string
	GCSBucket   string

	TmpDir string

	// TTL for buffered index progress events.
	EventTTL time.Duration
}

func LoadSettings() Settings {
	return Settings{
		Port:                getenv("PORT", "8080"),
		MaxVideoLen:         getenvFloat("MAX_VIDEO_LEN", 60*20),
		ASRModelName:        getenv("ASR_MODEL_NAME", "whisper_medium"),
		CaptioningModelName: getenv("CAPTIONING_MODEL_NAME", "hf_blip2_opt_2_7b"),
		ChatModelName:       getenv("CHAT_MODEL_NAME", "gemini-1.5-flash"),
		TimelineChunkSize:   getenvFloat("TIMELINE_CHUNK_SIZE", 10.0),
		ExtractFPS:          getenvFloat("FRAME_EXTRACT_FPS", 1.0),
		FrameBatchSize:      getenvInt("FRAME_BATCH_SIZE", 8),
		GCPProject:          os.Getenv("GCP_PROJECT"),
		GCPLocation:         getenv("GCP_LOCATION", "us-central1"),
		GCSBucket:           os.Getenv("GCS_BUCKET"),
		TmpDir:              getenv("TMP_DIR", os.TempDir()),
		EventTTL:            time.Duration(getenvInt("INDEX_EVENT_TTL_SEC", 24*3600)) * time.Second,
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
