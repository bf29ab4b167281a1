package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/hibiken/asynq"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"meetvault/internal/auth"
	"meetvault/internal/config"
	"meetvault/internal/handler"
	"meetvault/internal/openai"
	"meetvault/internal/queue"
	"meetvault/internal/repository"
	"meetvault/internal/service"
	"meetvault/internal/service/s3"
)

func connectWithRetry(log zerolog.Logger, cfg *config.Config, maxAttempts int, delay time.Duration) (*sqlx.DB, error) {
	dsn := cfg.Database.GetDSN()

	// Сначала подключаемся к системной базе postgres и создаём рабочую
	// базу, если её ещё нет
	pgDSN := strings.Replace(dsn, "dbname="+cfg.Database.Name, "dbname=postgres", 1)
	pgDB, err := sqlx.Connect("postgres", pgDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres database: %w", err)
	}
	defer pgDB.Close()

	var exists bool
	err = pgDB.Get(&exists, "SELECT EXISTS(SELECT datname FROM pg_catalog.pg_database WHERE datname = $1)", cfg.Database.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to check database existence: %w", err)
	}
	if !exists {
		log.Info().Str("database", cfg.Database.Name).Msg("database does not exist, creating")
		if _, err := pgDB.Exec("CREATE DATABASE " + cfg.Database.Name); err != nil {
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
	}

	var db *sqlx.DB
	for i := 0; i < maxAttempts; i++ {
		db, err = sqlx.Connect("postgres", dsn)
		if err == nil {
			return db, nil
		}

		log.Warn().Err(err).Int("attempt", i+1).Int("max_attempts", maxAttempts).Msg("failed to connect to database")
		time.Sleep(delay)
	}

	return nil, fmt.Errorf("failed to connect after %d attempts: %w", maxAttempts, err)
}

func runMigrations(log zerolog.Logger, cfg *config.Config) error {
	databaseURL := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)

	var m *migrate.Migrate
	var err error

	for i := 0; i < 5; i++ {
		m, err = migrate.New("file://migrations", databaseURL)
		if err == nil {
			break
		}
		log.Warn().Err(err).Int("attempt", i+1).Msg("failed to create migrate instance")
		time.Sleep(time.Second * 5)
	}
	if err != nil {
		return fmt.Errorf("failed to create migrate instance after retries: %w", err)
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}
	if dirty {
		log.Warn().Uint("version", version).Msg("found dirty database state, forcing version")
		if err := m.Force(int(version)); err != nil {
			return fmt.Errorf("failed to force version: %w", err)
		}
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "api").Logger()

	// Загружаем конфигурации
	appConfig, err := config.NewConfig(".app.env")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := connectWithRetry(log, appConfig, 5, time.Second*5)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database after retries")
	}
	defer db.Close()

	if err := runMigrations(log, appConfig); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Инициализация S3 клиента
	s3Config, err := s3.NewConfig(".s3.env")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load S3 config")
	}
	s3Client, err := s3.NewClient(s3Config)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create S3 client")
	}

	// Подключение к сервису аутентификации
	authConfig, err := auth.NewConfig(".auth.env")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load auth config")
	}
	auth.InitClient(authConfig)

	// Клиент OpenAI-совместимого API для чата
	aiConfig, err := openai.NewConfig(".openai.env")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load openai config")
	}
	aiClient := openai.NewClient(aiConfig)

	// Очередь обработки и хранилище истории чата
	redisOpt := asynq.RedisClientOpt{
		Addr:     appConfig.Redis.Addr,
		Password: appConfig.Redis.Password,
		DB:       appConfig.Redis.DB,
	}
	asynqClient := asynq.NewClient(redisOpt)
	defer asynqClient.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     appConfig.Redis.Addr,
		Password: appConfig.Redis.Password,
		DB:       appConfig.Redis.DB,
	})
	defer rdb.Close()

	// Инициализация репозиториев
	groupRepo := repository.NewGroupRepository(db)
	meetingRepo := repository.NewMeetingRepository(db)
	audioRepo := repository.NewAudioRepository(db)

	// Инициализация сервисов
	enqueuer := queue.NewEnqueuer(asynqClient)
	groupService := service.NewGroupService(groupRepo, log)
	meetingService := service.NewMeetingService(meetingRepo, audioRepo, groupRepo, log)
	audioService := service.NewAudioService(audioRepo, groupRepo, meetingService, s3Client, enqueuer, log)
	chatService := service.NewChatService(meetingRepo, groupRepo, aiClient, rdb, log)

	// Инициализация хендлеров
	groupHandler := handler.NewGroupHandler(groupService, log)
	meetingHandler := handler.NewMeetingHandler(meetingService, log)
	audioHandler := handler.NewAudioHandler(audioService, log)
	chatHandler := handler.NewChatHandler(chatService, log)
	userHandler := handler.NewUserHandler(log)

	// Настройка HTTP роутера
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{appConfig.Server.FrontendURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			log.Debug().Str("method", req.Method).Str("path", req.URL.Path).Msg("incoming request")
			next.ServeHTTP(w, req)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// HTTP маршруты
	r.Route("/v1", func(r chi.Router) {
		r.Route("/groups", func(r chi.Router) {
			r.Post("/", groupHandler.Create)
			r.Get("/", groupHandler.List)
			r.Get("/{id}", groupHandler.Get)
			r.Put("/{id}", groupHandler.Update)
			r.Delete("/{id}", groupHandler.Delete)
			r.Get("/{id}/members", groupHandler.ListMembers)
			r.Post("/{id}/members", groupHandler.AddMember)
			r.Delete("/{id}/members/{userID}", groupHandler.RemoveMember)
		})

		r.Route("/meetings", func(r chi.Router) {
			r.Post("/", meetingHandler.Create)
			r.Get("/", meetingHandler.List)
			r.Get("/{id}", meetingHandler.Get)
			r.Get("/{id}/status", meetingHandler.Status)
			r.Put("/{id}", meetingHandler.Update)
			r.Delete("/{id}", meetingHandler.Delete)
		})

		r.Route("/audio", func(r chi.Router) {
			r.Post("/", audioHandler.Upload)
			r.Get("/", audioHandler.List)
			r.Get("/{id}", audioHandler.Get)
			r.Put("/{id}", audioHandler.Update)
			r.Delete("/{id}", audioHandler.Delete)
			r.Get("/{id}/download-url", audioHandler.DownloadURL)
			r.Post("/{id}/attach", audioHandler.Attach)
			r.Post("/{id}/process", audioHandler.Process)
		})

		r.Post("/chat", chatHandler.Ask)
		r.Get("/users/{id}", userHandler.Get)
	})

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", appConfig.Server.Port),
		Handler: r,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Str("port", appConfig.Server.Port).Msg("starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to serve HTTP")
		}
	}()

	<-quit
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("failed to shut down HTTP server gracefully")
	}
}
