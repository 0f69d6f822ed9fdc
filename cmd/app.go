package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Koyo-os/docusurvey/internal/entity"
	"github.com/Koyo-os/docusurvey/internal/parser"
	"github.com/Koyo-os/docusurvey/internal/repository"
	mongorepo "github.com/Koyo-os/docusurvey/internal/repository/mongo"
	"github.com/Koyo-os/docusurvey/internal/service"
	"github.com/Koyo-os/docusurvey/pkg/auth"
	"github.com/Koyo-os/docusurvey/pkg/closer"
	"github.com/Koyo-os/docusurvey/pkg/config"
	"github.com/Koyo-os/docusurvey/pkg/health"
	"github.com/Koyo-os/docusurvey/pkg/logger"
	"github.com/Koyo-os/docusurvey/pkg/metrics"
	"github.com/Koyo-os/docusurvey/pkg/objectstore"
	"github.com/Koyo-os/docusurvey/pkg/retrier"
	"github.com/Koyo-os/docusurvey/pkg/transport/casher"
	"github.com/Koyo-os/docusurvey/pkg/transport/consumer"
	"github.com/Koyo-os/docusurvey/pkg/transport/listener"
	"github.com/Koyo-os/docusurvey/pkg/transport/publisher"
	"github.com/Koyo-os/docusurvey/pkg/transport/rest"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	shutdownTimeout = 15 * time.Second
	eventBuffer     = 64
)

type store interface {
	service.SurveyRepository
	service.ResponseRepository
	health.Healther
	closer.Closer
}

// run wires every component from cfg and serves until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	authenticator, err := auth.Init(cfg.Auth.JWTSecret, loc)
	if err != nil {
		return fmt.Errorf("error init auth: %w", err)
	}

	opts := retrier.RetrierOpts{Count: cfg.Retry.Count, Interval: cfg.Retry.Interval}
	closers := closer.NewCloserGroup()
	defer func() {
		if err := closers.Close(); err != nil {
			log.Error("error close components", zap.Error(err))
		}
	}()

	checker := health.NewHealthChecker(log.Named("health"))
	m := metrics.New()

	db, err := openStore(ctx, cfg, opts, log)
	if err != nil {
		return err
	}
	closers.Add(db)
	checker.Register("database", db)

	deps := service.Deps{
		Surveys:   db,
		Responses: db,
		Parser:    parser.Init(),
		Metrics:   m,
		Logger:    log.Named("service"),
	}

	if cfg.Urls.Redis != "" {
		cache, err := openCache(ctx, cfg, opts, log)
		if err != nil {
			return err
		}
		closers.Add(cache)
		checker.Register("cache", cache)
		deps.Casher = cache
	}

	if cfg.Storage.Bucket != "" {
		objects, err := objectstore.New(ctx, objectstore.Config{
			Bucket:          cfg.Storage.Bucket,
			Region:          cfg.Storage.Region,
			Endpoint:        cfg.Storage.Endpoint,
			AccessKeyID:     cfg.Storage.AccessKeyID,
			SecretAccessKey: cfg.Storage.SecretKey,
			PathStyle:       cfg.Storage.PathStyle,
			PublicBaseURL:   cfg.Storage.PublicBaseURL,
			URLExpiry:       cfg.Storage.URLExpiry,
		}, log.Named("objects"))
		if err != nil {
			return fmt.Errorf("error init object store: %w", err)
		}
		checker.Register("objects", objects)
		deps.Objects = objects
	} else {
		log.Warn("storage bucket not configured, scan uploads are disabled")
	}

	var cons *consumer.Consumer
	if cfg.Urls.Rabbitmq != "" {
		pub, c, err := openBroker(ctx, cfg, opts, log)
		if err != nil {
			return err
		}
		closers.Add(pub, c)
		checker.Register("publisher", pub).Register("consumer", c)
		deps.Publisher = pub
		cons = c
	}

	svcOpts := service.Options{
		BaseURL:           cfg.App.BaseURL,
		InListLimit:       cfg.Dashboard.InListLimit,
		DeleteConcurrency: cfg.Dashboard.DeleteConcurrency,
		MaxScanBytes:      cfg.Storage.MaxScanBytes,
	}

	services := rest.Services{
		Surveys:    service.NewSurveyService(deps, svcOpts),
		Responses:  service.NewResponseService(deps, svcOpts),
		Reports:    service.NewReportService(deps, svcOpts),
		Dashboards: service.NewDashboardService(deps, svcOpts),
	}

	handler := rest.Init(services, authenticator, m, checker.HealthCheck, log.Named("http"), cfg.Storage.MaxScanBytes)

	g, gctx := errgroup.WithContext(ctx)

	if cons != nil {
		events := make(chan entity.Event, eventBuffer)
		list := listener.Init(events, log.Named("listener"), cfg, services.Surveys)

		g.Go(func() error {
			cons.ConsumeMessages(gctx, events)
			return nil
		})
		g.Go(func() error {
			list.Listen(gctx)
			return nil
		})
	}

	servers := []*http.Server{{
		Addr:              cfg.App.HTTPAddr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}}
	if cfg.App.HealthAddr != "" {
		servers = append(servers, checker.Server(cfg.App.HealthAddr))
	}

	for _, srv := range servers {
		g.Go(func() error {
			log.Info("starting http server", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server %s: %w", srv.Addr, err)
			}
			return nil
		})

		g.Go(func() error {
			<-gctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

func openStore(ctx context.Context, cfg *config.Config, opts retrier.RetrierOpts, log *logger.Logger) (store, error) {
	if cfg.Database.Driver == "mongo" {
		repo, err := retrier.Connect(ctx, "mongo", opts, log, func() (*mongorepo.Repository, error) {
			return mongorepo.Connect(ctx, cfg.Database.DSN, cfg.Database.MongoDatabase, log.Named("repository"))
		})
		if err != nil {
			return nil, err
		}

		if err = repo.EnsureIndexes(ctx); err != nil {
			repo.Close()
			return nil, fmt.Errorf("error ensure indexes: %w", err)
		}

		return repo, nil
	}

	db, err := retrier.Connect(ctx, cfg.Database.Driver, opts, log, func() (*gorm.DB, error) {
		db, err := repository.Open(cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			return nil, err
		}

		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}

		if err = sqlDB.PingContext(ctx); err != nil {
			sqlDB.Close()
			return nil, err
		}

		return db, nil
	})
	if err != nil {
		return nil, err
	}

	repo := repository.Init(db, log.Named("repository"))
	if err = repo.AutoMigrate(); err != nil {
		repo.Close()
		return nil, fmt.Errorf("error migrate: %w", err)
	}

	return repo, nil
}

func openCache(ctx context.Context, cfg *config.Config, opts retrier.RetrierOpts, log *logger.Logger) (*casher.Casher, error) {
	redisOpts, err := redis.ParseURL(cfg.Urls.Redis)
	if err != nil {
		return nil, fmt.Errorf("error parse redis url: %w", err)
	}

	client := redis.NewClient(redisOpts)

	if _, err = retrier.Connect(ctx, "redis", opts, log, func() (string, error) {
		return client.Ping(ctx).Result()
	}); err != nil {
		client.Close()
		return nil, err
	}

	return casher.Init(client, log.Named("casher"), cfg.Cache.TTL), nil
}

// openBroker dials two connections so publishing and consuming do not share
// flow control.
func openBroker(ctx context.Context, cfg *config.Config, opts retrier.RetrierOpts, log *logger.Logger) (*publisher.Publisher, *consumer.Consumer, error) {
	conns, err := retrier.MultiConnects(ctx, "rabbitmq", 2, opts, log, func() (*amqp.Connection, error) {
		return amqp.Dial(cfg.Urls.Rabbitmq)
	}, func(conn *amqp.Connection) {
		conn.Close()
	})
	if err != nil {
		return nil, nil, err
	}

	pub, err := publisher.Init(cfg.Exchange.Output, log.Named("publisher"), conns[0])
	if err != nil {
		conns[1].Close()
		return nil, nil, fmt.Errorf("error init publisher: %w", err)
	}

	cons, err := consumer.Init(cfg, log.Named("consumer"), conns[1])
	if err != nil {
		pub.Close()
		return nil, nil, fmt.Errorf("error init consumer: %w", err)
	}

	return pub, cons, nil
}
