package main

import (
	"context"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"meetvault/internal/config"
	"meetvault/internal/openai"
	"meetvault/internal/repository"
	"meetvault/internal/service/s3"
	"meetvault/internal/worker"
)

// Количество задач, обрабатываемых воркером одновременно. Обработка
// упирается во внешний API, а не в CPU, поэтому значение небольшое.
const workerConcurrency = 2

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "worker").Logger()

	appConfig, err := config.NewConfig(".app.env")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Миграции прогоняет API-сервер, воркер только подключается
	db, err := sqlx.Connect("postgres", appConfig.Database.GetDSN())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	s3Config, err := s3.NewConfig(".s3.env")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load S3 config")
	}
	s3Client, err := s3.NewClient(s3Config)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create S3 client")
	}

	aiConfig, err := openai.NewConfig(".openai.env")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load openai config")
	}
	aiClient := openai.NewClient(aiConfig)

	prep, err := worker.NewFFmpegPreparer()
	if err != nil {
		log.Fatal().Err(err).Msg("ffmpeg is required for audio processing")
	}

	processor := worker.NewProcessor(
		repository.NewAudioRepository(db),
		repository.NewMeetingRepository(db),
		s3Client,
		prep,
		aiClient,
		openai.NewTranscriptSummarizer(aiClient),
		log,
	)

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     appConfig.Redis.Addr,
			Password: appConfig.Redis.Password,
			DB:       appConfig.Redis.DB,
		},
		asynq.Config{
			Concurrency: workerConcurrency,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Error().Err(err).Str("task", task.Type()).Msg("task failed")
			}),
		},
	)

	mux := asynq.NewServeMux()
	processor.Register(mux)

	log.Info().Msg("starting worker")
	if err := srv.Run(mux); err != nil {
		log.Fatal().Err(err).Msg("worker stopped")
	}
}
