package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/mockinterview/config"
	"github.com/yoockh/mockinterview/internal/ai"
	"github.com/yoockh/mockinterview/internal/api/handlers"
	"github.com/yoockh/mockinterview/internal/api/middleware"
	"github.com/yoockh/mockinterview/internal/api/routes"
	"github.com/yoockh/mockinterview/internal/cache"
	"github.com/yoockh/mockinterview/internal/events"
	"github.com/yoockh/mockinterview/internal/lock"
	"github.com/yoockh/mockinterview/internal/logger"
	"github.com/yoockh/mockinterview/internal/models"
	"github.com/yoockh/mockinterview/internal/providers/llm"
	"github.com/yoockh/mockinterview/internal/providers/stt"
	"github.com/yoockh/mockinterview/internal/repositories"
	"github.com/yoockh/mockinterview/internal/repositories/memory"
	mongorepo "github.com/yoockh/mockinterview/internal/repositories/mongo"
	pgrepo "github.com/yoockh/mockinterview/internal/repositories/postgres"
	"github.com/yoockh/mockinterview/internal/services"
	"github.com/yoockh/mockinterview/internal/storage"
	"github.com/yoockh/mockinterview/internal/workers"
)

func main() {
	_ = godotenv.Load()

	log := logger.New()

	app, err := config.LoadApp()
	if err != nil {
		log.WithError(err).Fatal("config error")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Session store
	var repo repositories.InterviewRepository
	switch app.SessionStore {
	case "memory":
		repo = memory.NewSessionRepo()
		log.Warn("using in-memory session store; sessions are lost on restart")
	default:
		if err := config.InitMongo(); err != nil {
			log.WithError(err).Fatal("MongoDB init error")
		}
		if err := config.EnsureMongoIndexes(mongorepo.SessionsCollection); err != nil {
			log.WithError(err).Fatal("MongoDB index error")
		}
		repo = mongorepo.NewSessionRepo(config.MongoDatabase())
		log.Info("MongoDB connected")
	}

	deps := services.InterviewDeps{
		Repo:     repo,
		Logger:   log,
		LockWait: app.LockWait,
		CacheTTL: app.SessionCacheTTL,
	}

	// Redis: lock, snapshot cache, live events, completion stream
	if app.RedisEnabled {
		if err := config.InitRedis(); err != nil {
			log.WithError(err).Fatal("Redis init error")
		}
		deps.Locker = lock.NewRedisLocker(config.RedisClient, app.LockTTL)
		deps.Cache = cache.NewRedisCache(config.RedisClient)
		deps.Events = events.NewRedisPublisher(config.RedisClient)
		log.Info("Redis connected")
	}

	// AI collaborators; every one degrades to a fallback
	bank := ai.DefaultBank()
	if app.QuestionBankPath != "" {
		if bank, err = ai.LoadBank(app.QuestionBankPath); err != nil {
			log.WithError(err).Fatal("question bank error")
		}
	}
	var (
		oracle    ai.Oracle
		synth     ai.Synthesizer
		questions ai.QuestionGenerator
	)
	if app.LLMProvider != "" {
		p, err := llm.New(ctx, app.LLMProvider)
		if err != nil {
			log.WithError(err).Fatal("LLM init error")
		}
		defer p.Close()
		oracle, synth, questions = ai.NewLLMOracle(p), ai.NewLLMSynthesizer(p), ai.NewLLMQuestions(p)
		log.WithField("provider", app.LLMProvider).Info("LLM provider ready")
	} else {
		log.Warn("LLM_PROVIDER not set; using question bank and fallback judgments")
	}
	deps.Oracle = ai.NewGuardedOracle(oracle, app.OracleTimeout, log)
	deps.Synth = ai.NewGuardedSynthesizer(synth, app.SynthTimeout, log)
	deps.Questions = ai.NewGuardedQuestions(questions, bank, app.QuestionTimeout, log)

	interviews := services.NewInterviewService(deps)

	// Spoken answers
	var audio services.AudioAnswerService
	if app.SpeechEnabled {
		speech, err := stt.NewGoogleSpeech(ctx)
		if err != nil {
			log.WithError(err).Fatal("STT init error")
		}
		defer speech.Close()

		var gcs *storage.GCSUploader
		if app.GCSBucket != "" {
			if gcs, err = storage.NewGCSUploader(ctx, app.GCSBucket); err != nil {
				log.WithError(err).Fatal("GCS init error")
			}
			defer gcs.Close()
		}
		if gcs != nil {
			audio = services.NewAudioAnswerService(interviews, gcs, gcs, speech, log)
		} else {
			audio = services.NewAudioAnswerService(interviews, nil, nil, speech, log)
		}
	}

	// Transcript archive
	var conversation *handlers.ConversationHandler
	if app.ArchiveEnabled {
		if err := config.InitPostgres(); err != nil {
			log.WithError(err).Fatal("PostgreSQL init error")
		}
		db := config.PostgresDB
		if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
			log.WithError(err).Fatal("pgvector extension error")
		}
		if err := db.AutoMigrate(&models.ConversationLog{}, &models.InterviewResult{}); err != nil {
			log.WithError(err).Fatal("PostgreSQL migrate error")
		}
		log.Info("PostgreSQL connected")

		var embedder llm.Embedder
		if app.EmbeddingModel != "" {
			e, err := llm.NewVertexEmbedderFromEnv(ctx, app.EmbeddingModel)
			if err != nil {
				log.WithError(err).Fatal("embedding init error")
			}
			defer e.Close()
			embedder = e
			log.WithField("model", app.EmbeddingModel).Info("answer embeddings enabled")
		}

		archive := services.NewArchiveService(repo, pgrepo.NewConversationRepo(db), pgrepo.NewResultRepo(db), embedder, log)
		pool := &workers.ArchiveWorkerPool{
			Redis:      config.RedisClient,
			Archive:    archive,
			NumWorkers: app.ArchiveWorkers,
			Logger:     log,
		}
		if err := pool.Start(ctx); err != nil {
			log.WithError(err).Fatal("archive workers error")
		}
		conversation = handlers.NewConversationHandler(archive)
	}

	var ws *handlers.WSHandler
	if app.RedisEnabled {
		ws = handlers.NewWSHandler(interviews, config.RedisClient, app.WSAllowedOrigins)
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))
	routes.RegisterRoutes(r, routes.Deps{
		Interview:    handlers.NewInterviewHandler(interviews, audio),
		Conversation: conversation,
		WS:           ws,
		Auth:         middleware.JWTAuth(middleware.JWTConfigFromEnv()),
	})

	srv := &http.Server{Addr: ":" + app.Port, Handler: r}
	go func() {
		log.WithField("port", app.Port).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server error")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("http server shutdown")
	}
	log.WithFields(logrus.Fields{"reason": ctx.Err()}).Info("server stopped")
}
