package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/mobiusml/aana-chat-with-video/config"
	"github.com/mobiusml/aana-chat-with-video/internal/api/handlers"
	"github.com/mobiusml/aana-chat-with-video/internal/api/middleware"
	"github.com/mobiusml/aana-chat-with-video/internal/api/routes"
	"github.com/mobiusml/aana-chat-with-video/internal/cache"
	"github.com/mobiusml/aana-chat-with-video/internal/logger"
	"github.com/mobiusml/aana-chat-with-video/internal/providers/asr"
	"github.com/mobiusml/aana-chat-with-video/internal/providers/captioning"
	"github.com/mobiusml/aana-chat-with-video/internal/providers/llm"
	"github.com/mobiusml/aana-chat-with-video/internal/providers/media"
	mongorepo "github.com/mobiusml/aana-chat-with-video/internal/repositories/mongo"
	pgrepo "github.com/mobiusml/aana-chat-with-video/internal/repositories/postgres"
	"github.com/mobiusml/aana-chat-with-video/internal/services"
	"github.com/mobiusml/aana-chat-with-video/internal/storage"
)

func main() {
	_ = godotenv.Load()

	lg := logger.New()
	settings := config.LoadSettings()
	ctx := context.Background()

	// Init PostgreSQL
	if err := config.InitPostgres(); err != nil {
		log.Fatalf("PostgreSQL init error: %v", err)
	}
	lg.Info("PostgreSQL connected")

	// Init MongoDB
	if err := config.InitMongo(); err != nil {
		log.Fatalf("MongoDB init error: %v", err)
	}
	if err := config.EnsureMongoIndexes(); err != nil {
		log.Fatalf("MongoDB index error: %v", err)
	}
	lg.Info("MongoDB connected")

	// Init Redis
	if err := config.InitRedis(); err != nil {
		log.Fatalf("Redis init error: %v", err)
	}
	lg.Info("Redis connected")

	mongoDBName := os.Getenv("MONGO_DB")
	if mongoDBName == "" {
		mongoDBName = "aana_chat_with_video"
	}

	videoRepo := pgrepo.NewVideoRepo(config.PostgresDB)
	transcriptRepo := pgrepo.NewTranscriptRepo(config.PostgresDB)
	captionRepo := pgrepo.NewCaptionRepo(config.PostgresDB)
	eventRepo := mongorepo.NewIndexEventRepo(config.MongoClient.Database(mongoDBName))
	redisCache := cache.NewRedisCache(config.RedisClient)

	var uploadStore *storage.GCSStore
	if settings.GCSBucket != "" {
		var err error
		uploadStore, err = storage.NewGCSStore(ctx, settings.GCSBucket)
		if err != nil {
			log.Fatalf("GCS init error: %v", err)
		}
		defer uploadStore.Close()
	}

	var fetcher storage.Fetcher
	var uploader storage.Uploader
	if uploadStore != nil {
		fetcher = uploadStore
		uploader = uploadStore
	}
	mediaSvc := media.NewService(fetcher, settings.TmpDir, lg)

	asrProvider, err := asr.NewGoogleSpeech(ctx)
	if err != nil {
		log.Fatalf("Speech init error: %v", err)
	}
	defer asrProvider.Close()

	captioner, err := captioning.NewVertexGemini(ctx, settings.GCPProject, settings.GCPLocation, settings.CaptioningModelName)
	if err != nil {
		log.Fatalf("Captioning init error: %v", err)
	}
	defer captioner.Close()

	chatModel, err := llm.NewVertexGemini(ctx, settings.GCPProject, settings.GCPLocation, settings.ChatModelName)
	if err != nil {
		log.Fatalf("LLM init error: %v", err)
	}
	defer chatModel.Close()

	indexSvc := services.NewIndexService(videoRepo, transcriptRepo, captionRepo, eventRepo,
		mediaSvc, asrProvider, captioner, settings, lg)
	chatSvc := services.NewChatService(videoRepo, transcriptRepo, captionRepo, redisCache,
		chatModel, settings, lg)
	videoSvc := services.NewVideoService(videoRepo, transcriptRepo, captionRepo, eventRepo,
		redisCache, lg)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(lg))

	routes.RegisterRoutes(r, routes.Deps{
		Video: handlers.NewVideoHandler(indexSvc, videoSvc, uploader),
		Chat:  handlers.NewChatHandler(chatSvc),
		WS:    handlers.NewWSHandler(chatSvc),
	})

	if err := r.Run(":" + settings.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
