package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	gormlogger "gorm.io/gorm/logger"
	"live-class/auth"
	"live-class/catalog"
	"live-class/clock"
	"live-class/config"
	"live-class/constant"
	"live-class/credential"
	"live-class/events"
	"live-class/handler"
	"live-class/pkg/rabbitmq"
	"live-class/repository"
	"live-class/service"
	"live-class/tracing"
)

type stores struct {
	sessions  repository.SessionStore
	recording repository.RecordingRepository
}

func RunHttp(cfg *config.Config) {
	ctx, cancel := signal.NotifyContext(setupLogger(cfg), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Bool("isProduction", cfg.App.Environment == constant.EnvironmentProduction.String()).Send()
	if cfg.App.Environment == constant.EnvironmentProduction.String() {
		gin.SetMode(gin.ReleaseMode)
	}

	tp, err := tracing.NewProvider(ctx, cfg.Tracing)
	if err != nil {
		zerolog.Ctx(ctx).Fatal().Err(err).Msg("tracing")
	}
	defer func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("tracing shutdown")
		}
	}()

	st, err := openStores(ctx, cfg)
	if err != nil {
		zerolog.Ctx(ctx).Fatal().Err(err).Msg("open store")
	}

	var directory catalog.Directory
	if cfg.Catalog.BaseURL != "" {
		directory = catalog.NewClient(cfg.Catalog.BaseURL, cfg.Catalog.ServiceToken, cfg.Catalog.Timeout)
	} else {
		zerolog.Ctx(ctx).Warn().Msg("catalog.base_url is empty, using an empty in-process catalog")
		directory = catalog.NewStatic()
	}
	cached := catalog.NewCached(directory, cfg.Catalog.CacheTTL)

	var notifier events.Notifier = events.LogNotifier{}
	var conn *amqp.Connection
	var publisher *rabbitmq.Publisher
	if cfg.Queue != nil {
		conn, err = config.NewRabbitMQConn(ctx, cfg.Queue)
		if err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("NewRabbitMQConn")
		} else {
			publisher, err = rabbitmq.NewPublisher(ctx, conn, cfg.Queue)
			if err != nil {
				zerolog.Ctx(ctx).Error().Err(err).Msg("NewPublisher")
			} else {
				notifier = publisher
			}
		}
	}

	clk := clock.System()
	var recording service.RecordingService
	if cfg.Storage != nil && publisher != nil {
		recording = service.NewRecordingService(st.sessions, st.recording, cfg.Storage, publisher, clk, cfg.MinIOBucket, cfg.Recording.UploadExpiry)
	}

	native := credential.NewNativeRoomIssuer(credential.NativeRoomOptions{
		Secret: cfg.Room.TokenSecret,
		Issuer: cfg.Room.Issuer,
		TTL:    cfg.Session.TokenTTL,
		Grace:  cfg.Session.JoinGrace,
	}, clk)

	deps := service.Dependencies{
		Store:    st.sessions,
		Catalog:  cached,
		Issuer:   credential.NewDispatcher(native),
		Notifier: notifier,
		Clock:    clk,
		Options: service.Options{
			MinLeadTime:      cfg.Session.MinLeadTime,
			MaxParticipants:  cfg.Session.MaxParticipants,
			AllowedDurations: cfg.Session.AllowedDurations,
			JoinGrace:        cfg.Session.JoinGrace,
		},
	}
	if recording != nil {
		deps.Recording = recording
	}
	liveClassService := service.NewLiveClassService(deps)

	if conn != nil {
		membershipConsumer := rabbitmq.NewConsumer(conn, cfg.Queue, rabbitmq.CatalogMembershipBinding, cfg.Server.Workers, handler.CatalogMembershipHandler)
		go func() {
			err := membershipConsumer.Consume(ctx, handler.ConsumerDependencies{Catalog: cached})
			if err != nil && !errors.Is(err, context.Canceled) {
				zerolog.Ctx(ctx).Error().Err(err).Msg("Catalog membership consumer error")
			}
		}()
	}

	resolver := auth.NewJWTResolver(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	r := NewRouter(*zerolog.Ctx(ctx), resolver, handler.NewLiveClassHandler(liveClassService, recording))

	srv := http.Server{
		Handler:           r,
		Addr:              fmt.Sprintf(":%s", cfg.Server.HttpPort),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Str("addr", srv.Addr).Msg("start http server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zerolog.Ctx(ctx).Error().Str("env", cfg.App.Environment).Msg(err.Error())
		}
	}()

	<-ctx.Done()
	zerolog.Ctx(ctx).Info().Msg("shutting down server")
	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zerolog.Ctx(ctx).Error().Str("env", cfg.App.Environment).Msg(err.Error())
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("close publisher")
		}
	}

	zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Msg("server shutdown")
}

// openStores picks postgres when a DSN is configured and the in-memory store otherwise.
func openStores(ctx context.Context, cfg *config.Config) (stores, error) {
	if cfg.DB == nil {
		zerolog.Ctx(ctx).Warn().Msg("postgresql_host is empty, sessions are kept in memory")
		mem := repository.NewMemoryStore()
		return stores{sessions: mem, recording: mem}, nil
	}
	repo, err := repository.NewRepo(cfg.DB, GormLogLevel(cfg))
	if err != nil {
		return stores{}, err
	}
	return stores{sessions: repo, recording: repo}, nil
}

func GormLogLevel(cfg *config.Config) gormlogger.LogLevel {
	if cfg.App.Environment == constant.EnvironmentDevelop.String() {
		return gormlogger.Info
	}
	return gormlogger.Warn
}

func setupLogger(cfg *config.Config) context.Context {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.App.Environment == constant.EnvironmentDevelop.String() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	// Log to standard output
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "live-class").Logger()
	ctx := logger.WithContext(context.Background())

	return ctx
}
