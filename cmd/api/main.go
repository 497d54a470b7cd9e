// cmd/api/main.go

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"golang.org/x/sync/errgroup"

	"github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/adapter/classifier"
	"github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/adapter/drafting"
	"github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/adapter/feed"
	"github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/adapter/firestoredb"
	"github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/adapter/geocode"
	"github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/adapter/storage"
	"github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/config"
	"github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/domain/complaint"
	"github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/domain/geo"
	"github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/server"
	complaintService "github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/service/complaint"
	geoService "github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/service/geo"
	"github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/service/intake"
	"github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/service/live"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	// Setup signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("service failed", "error", err)
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}

// backend is the system of record and its change feed
type backend struct {
	reader complaint.Reader
	writer complaint.Writer
	feed   complaint.Feed
	close  func()
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	subjects := feed.Subjects{Prefix: cfg.NATS.SubjectPrefix}

	natsConn, err := initNATS(cfg.NATS, logger)
	if err != nil {
		if cfg.Feed.Backend == config.FeedPostgres {
			return err
		}
		logger.Warn("continuing without NATS, transition events disabled", "error", err)
	}
	if natsConn != nil {
		defer natsConn.Close()
	}

	var src backend
	switch cfg.Feed.Backend {
	case config.FeedFirestore:
		src, err = initFirestore(ctx, cfg.Firestore, logger)
	default:
		src, err = initPostgres(ctx, cfg, natsConn, subjects, logger)
	}
	if err != nil {
		return err
	}
	defer src.close()

	// Live complaint set shared by every view
	validator := complaintService.NewValidator()
	store := live.NewStore(validator, logger)
	defer store.Close()

	resyncer, err := live.NewResyncer(src.reader, store, live.ResyncConfig{
		Schedule: cfg.Feed.ResyncSchedule,
		Timeout:  cfg.Feed.ResyncTimeout,
	}, logger)
	if err != nil {
		return err
	}

	var events complaint.EventPublisher
	if natsConn != nil {
		events = feed.NewPublisher(natsConn, subjects)
	}

	lifecycle := complaintService.NewLifecycle(
		store,
		src.writer,
		complaintService.RoleAuthorizer{},
		events,
		complaintService.LifecycleConfig{Sink: store, Logger: logger},
	)

	intakeService := intake.NewService(
		src.writer,
		validator,
		geoService.NewFallbackGeocoder(initGeocoder(cfg.Geocoder, logger), cfg.Geocoder.Timeout, logger),
		initClassifier(cfg.Classifier),
		initDrafter(cfg.Drafting),
		intake.Config{
			MinConfidence: cfg.Classifier.MinConfidence,
			Logger:        logger,
		},
	)

	clusterer := geoService.NewClusterer(geoService.ClustererConfig{
		RadiusMeters:      cfg.Geo.ClusterRadiusMeters,
		HighDensityWeight: cfg.Geo.HighDensityWeight,
		PriorityWeighted:  cfg.Geo.PriorityWeighted,
	})

	// Initialize HTTP server
	httpServer := server.NewServer(cfg.Server, cfg.Geo, server.Dependencies{
		Store:         store,
		Lifecycle:     lifecycle,
		Intake:        intakeService,
		Clusterer:     clusterer,
		NATSConn:      natsConn,
		EventsSubject: subjects.Transition(),
		Logger:        logger,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return live.Follow(gctx, src.feed, store, cfg.Feed.RetryWait, logger)
	})

	resyncer.Start()

	g.Go(func() error {
		logger.Info("starting HTTP server", "host", cfg.Server.Host, "port", cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down services")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "error", err)
		}
		if err := resyncer.Stop(shutdownCtx); err != nil {
			logger.Error("resync shutdown error", "error", err)
		}
		return nil
	})

	return g.Wait()
}

func newLogger(cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.Environment == "development" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

// Initialize Postgres as the system of record with NATS as its change feed
func initPostgres(ctx context.Context, cfg config.Config, nc *nats.Conn, subjects feed.Subjects, logger *slog.Logger) (backend, error) {
	if err := storage.Migrate(ctx, cfg.Database.DSN()); err != nil {
		return backend{}, err
	}

	db, err := initDatabase(ctx, cfg.Database)
	if err != nil {
		return backend{}, err
	}

	complaints := storage.NewComplaintStore(db, feed.NewPublisher(nc, subjects), logger)

	return backend{
		reader: complaints,
		writer: complaints,
		feed:   feed.NewNATSFeed(nc, subjects, complaints, cfg.NATS.FeedBuffer, logger),
		close:  db.Close,
	}, nil
}

// Initialize Firestore as both the system of record and the change feed
func initFirestore(ctx context.Context, cfg config.FirestoreConfig, logger *slog.Logger) (backend, error) {
	client, err := firestoredb.NewClient(ctx, firestoredb.Config{
		ProjectID:         cfg.ProjectID,
		CredentialsFile:   cfg.CredentialsFile,
		CredentialsBase64: cfg.CredentialsBase64,
	})
	if err != nil {
		return backend{}, err
	}

	complaints := firestoredb.NewStore(client, cfg.Collection, logger)

	return backend{
		reader: complaints,
		writer: complaints,
		feed:   complaints,
		close: func() {
			client.Close()
		},
	}, nil
}

// Initialize database connection
func initDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.MaxLifetime

	db, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	// Test connection
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return db, nil
}

// Initialize NATS connection
func initNATS(cfg config.NATSConfig, logger *slog.Logger) (*nats.Conn, error) {
	options := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.ConnectTimeout),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, options...)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to NATS: %w", err)
	}

	return nc, nil
}

// Optional upstreams return nil interfaces when not configured

func initGeocoder(cfg config.GeocoderConfig, logger *slog.Logger) geo.Geocoder {
	if cfg.MapsAPIKey == "" {
		return nil
	}
	g, err := geocode.NewGoogleMapsGeocoder(cfg.MapsAPIKey)
	if err != nil {
		logger.Warn("reverse geocoding disabled", "error", err)
		return nil
	}
	return g
}

func initClassifier(cfg config.ClassifierConfig) complaint.Classifier {
	if cfg.URL == "" {
		return nil
	}
	return classifier.NewHTTPClassifier(cfg.URL, cfg.Timeout)
}

func initDrafter(cfg config.DraftingConfig) complaint.Drafter {
	if cfg.OpenAIKey == "" {
		return nil
	}
	return drafting.NewOpenAIDrafter(drafting.Config{
		APIKey:  cfg.OpenAIKey,
		Model:   cfg.Model,
		BaseURL: cfg.OpenAIBaseURL,
	})
}
