package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/vedran77/devaura/internal/changefeed"
	"github.com/vedran77/devaura/internal/config"
	"github.com/vedran77/devaura/internal/database"
	"github.com/vedran77/devaura/internal/events"
	"github.com/vedran77/devaura/internal/logger"
	"github.com/vedran77/devaura/internal/repository"
	"github.com/vedran77/devaura/internal/repository/memory"
	mongorepo "github.com/vedran77/devaura/internal/repository/mongodb"
	postgresrepo "github.com/vedran77/devaura/internal/repository/postgres"
	"github.com/vedran77/devaura/internal/service"
	"github.com/vedran77/devaura/internal/storage"
	"github.com/vedran77/devaura/internal/transport/http/handlers"
	"github.com/vedran77/devaura/internal/transport/http/middleware"
	"github.com/vedran77/devaura/internal/transport/ws"
	"go.uber.org/zap"
)

type repositories struct {
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	users         repository.UserRepository
	profiles      repository.ProfileRepository
	close         func()
}

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.App.Env, cfg.Log.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage
	repos, err := openRepositories(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer repos.close()
	log.Info("store ready", zap.String("driver", cfg.Store.Driver))

	// Change notifications
	var broker changefeed.Broker = changefeed.NewMemoryBroker()
	if cfg.Redis.Addr != "" {
		rdb, err := database.ConnectRedis(ctx, cfg.Redis, log)
		if err != nil {
			return err
		}
		defer rdb.Close()
		broker = changefeed.NewRedisBroker(rdb, cfg.Redis.Prefix, log)
		log.Info("changefeed on redis", zap.String("addr", cfg.Redis.Addr))
	}

	// Domain events
	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		log.Info("publishing events to kafka", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}
	defer publisher.Close()

	// Services
	profileService := service.NewProfileService(repos.profiles, log)
	authService := service.NewAuthService(repos.users, profileService, cfg.JWT.Secret, cfg.JWT.TTL, log)
	convService := service.NewConversationService(repos.conversations, broker, publisher, log)
	msgService := service.NewMessageService(repos.conversations, repos.messages, broker, publisher, log)

	var mediaService *service.MediaService
	if cfg.S3.Bucket != "" {
		store, err := storage.NewS3Store(ctx, storage.S3Config{
			Region:        cfg.S3.Region,
			Bucket:        cfg.S3.Bucket,
			Endpoint:      cfg.S3.Endpoint,
			PublicBaseURL: cfg.S3.PublicBaseURL,
		})
		if err != nil {
			return err
		}
		mediaService = service.NewMediaService(store, service.BreakerSettings{}, log)
	} else {
		log.Warn("s3.bucket not set, media uploads disabled")
	}

	// WebSocket hub
	hub := ws.NewHub(log)
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go hub.Run(hubCtx)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, log)
	profileHandler := handlers.NewProfileHandler(profileService, log)
	convHandler := handlers.NewConversationHandler(convService, profileService, log)
	msgHandler := handlers.NewMessageHandler(convService, msgService, log)

	// Auth middleware
	auth := middleware.Auth(cfg.JWT.Secret)

	// Routes
	mux := http.NewServeMux()

	// Public
	mux.HandleFunc("GET /health", handlers.Health)
	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)

	// Protected - Account
	mux.Handle("POST /api/v1/auth/password", auth(http.HandlerFunc(authHandler.ChangePassword)))

	// Protected - Profiles
	mux.Handle("GET /api/v1/profiles/me", auth(http.HandlerFunc(profileHandler.Me)))
	mux.Handle("PATCH /api/v1/profiles/me", auth(http.HandlerFunc(profileHandler.UpdateMe)))
	mux.Handle("GET /api/v1/profiles/search", auth(http.HandlerFunc(profileHandler.Search)))
	mux.Handle("GET /api/v1/profiles/featured", auth(http.HandlerFunc(profileHandler.Featured)))
	mux.Handle("GET /api/v1/profiles/username-available", auth(http.HandlerFunc(profileHandler.UsernameAvailable)))
	mux.Handle("GET /api/v1/profiles/{id}", auth(http.HandlerFunc(profileHandler.Get)))

	// Protected - Conversations
	mux.Handle("POST /api/v1/conversations", auth(http.HandlerFunc(convHandler.GetOrCreate)))
	mux.Handle("GET /api/v1/conversations", auth(http.HandlerFunc(convHandler.List)))
	mux.Handle("GET /api/v1/conversations/{id}", auth(http.HandlerFunc(convHandler.Get)))
	mux.Handle("POST /api/v1/conversations/{id}/messages", auth(http.HandlerFunc(msgHandler.Send)))
	mux.Handle("GET /api/v1/conversations/{id}/messages", auth(http.HandlerFunc(msgHandler.List)))

	// Protected - Media
	if mediaService != nil {
		mediaHandler := handlers.NewMediaHandler(mediaService, log)
		mux.Handle("POST /api/v1/media", auth(http.HandlerFunc(mediaHandler.Upload)))
	}

	// WebSocket
	mux.Handle("GET /ws", ws.ServeWS(hub, ws.Services{
		Conversations: convService,
		Messages:      msgService,
	}, cfg.JWT.Secret, ws.Options{
		PingInterval:   cfg.WS.PingInterval,
		WriteWait:      cfg.WS.WriteWait,
		MaxMessageSize: cfg.WS.MaxMessageSize,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, log))

	limiter := middleware.NewIPRateLimiter(cfg.Server.RateLimitPerMin, log)
	go limiter.Cleanup(ctx)

	var handler http.Handler = mux
	handler = limiter.Handler(handler)
	handler = middleware.CORS(cfg.Server.AllowedOrigins)(handler)
	handler = middleware.AccessLog(log)(handler)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	stopHub()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openRepositories(ctx context.Context, cfg *config.Config, log *zap.Logger) (*repositories, error) {
	switch cfg.Store.Driver {
	case config.DriverMongo:
		client, err := database.ConnectMongo(ctx, cfg.Mongo, log)
		if err != nil {
			return nil, err
		}
		db := client.Database(cfg.Mongo.Database)
		if err := mongorepo.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("creating indexes: %w", err)
		}
		return &repositories{
			conversations: mongorepo.NewConversationRepo(db),
			messages:      mongorepo.NewMessageRepo(db),
			users:         mongorepo.NewUserRepo(db),
			profiles:      mongorepo.NewProfileRepo(db),
			close:         func() { _ = client.Disconnect(context.Background()) },
		}, nil

	case config.DriverPostgres:
		pool, err := database.ConnectPostgres(ctx, cfg.Postgres, log)
		if err != nil {
			return nil, err
		}
		if err := postgresrepo.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("applying schema: %w", err)
		}
		return &repositories{
			conversations: postgresrepo.NewConversationRepo(pool),
			messages:      postgresrepo.NewMessageRepo(pool),
			users:         postgresrepo.NewUserRepo(pool),
			profiles:      postgresrepo.NewProfileRepo(pool),
			close:         pool.Close,
		}, nil

	default:
		log.Warn("using in-memory store, data is lost on restart")
		return &repositories{
			conversations: memory.NewConversationRepo(nil),
			messages:      memory.NewMessageRepo(nil),
			users:         memory.NewUserRepo(nil),
			profiles:      memory.NewProfileRepo(nil),
			close:         func() {},
		}, nil
	}
}
