package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"cdr.dev/slog/v3"
	"github.com/coder/quartz"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"

	"github.com/campuspulse/occupancy-backend-go/internal/api"
	"github.com/campuspulse/occupancy-backend-go/internal/bucket"
	"github.com/campuspulse/occupancy-backend-go/internal/config"
	"github.com/campuspulse/occupancy-backend-go/internal/database"
	"github.com/campuspulse/occupancy-backend-go/internal/detector"
	"github.com/campuspulse/occupancy-backend-go/internal/handler"
	"github.com/campuspulse/occupancy-backend-go/internal/imagestore"
	"github.com/campuspulse/occupancy-backend-go/internal/ingest"
	"github.com/campuspulse/occupancy-backend-go/internal/logging"
	"github.com/campuspulse/occupancy-backend-go/internal/middleware"
	"github.com/campuspulse/occupancy-backend-go/internal/registry"
	"github.com/campuspulse/occupancy-backend-go/internal/repository"
	"github.com/campuspulse/occupancy-backend-go/internal/service"
)

func main() {
	// 加载配置
	cfg := config.Load()
	logger := logging.New(os.Stderr, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal(ctx, "server exited", slog.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger slog.Logger) error {
	// 初始化数据库
	db, err := database.Open(ctx, database.Config{Path: cfg.DBPath})
	if err != nil {
		return xerrors.Errorf("open database: %w", err)
	}
	defer db.Close()

	bucketer, err := bucket.New(cfg.BucketTimezone, cfg.BucketInterval, cfg.SummerMonths)
	if err != nil {
		return xerrors.Errorf("configure buckets: %w", err)
	}

	images, err := imagestore.NewOS(cfg.ImageDirectory)
	if err != nil {
		return err
	}

	coordinates, err := service.LoadCoordinates(afero.NewOsFs(), cfg.LocationsFile)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := ingest.NewMetrics(reg)
	if err != nil {
		return xerrors.Errorf("register metrics: %w", err)
	}

	clock := quartz.NewReal()
	locations := repository.NewLocationRepository(db)
	cameras := repository.NewCameraRepository(db, cfg.RejectStaleLive)
	profiles := repository.NewProfileRepository(db, bucketer)
	observations := repository.NewObservationRepository(db)
	registryClient := registry.New(cfg.RegistryBaseURL, cfg.RegistryTimeout)

	registryService := service.NewRegistryService(registryClient, locations, cameras, coordinates, logger)
	if _, err := registryService.Sync(ctx); err != nil {
		// Ingestion still works from what an earlier sync stored
		logger.Warn(ctx, "initial registry sync failed", slog.Error(err))
	}

	pipeline := ingest.New(ingest.Options{
		Locations:    locations,
		Cameras:      cameras,
		Profiles:     profiles,
		Observations: observations,
		Registry:     registryClient,
		Detector:     detector.New(cfg.DetectorURL, cfg.DetectorConf, cfg.DetectorTimeout),
		Images:       images,
		Workers:      cfg.IngestWorkers,
		Clock:        clock,
		Logger:       logger,
		Metrics:      metrics,
	})
	scheduler := ingest.NewScheduler(pipeline, cfg.IngestInterval, cfg.IngestOnStartup, clock, logger)

	query := service.NewQueryService(locations, cameras, profiles, observations, bucketer, clock, scheduler)

	// 初始化路由
	gin.SetMode(gin.ReleaseMode)
	router := api.SetupRouter(api.Options{
		Prefix:      cfg.APIPrefix,
		Logger:      logger,
		RateLimiter: middleware.NewRateLimiter(cfg.RateLimit, cfg.RateLimitWindow, clock),
		Gatherer:    reg,
	}, api.Handlers{
		Locations: handler.NewLocationHandler(query),
		Analytics: handler.NewAnalyticsHandler(query),
		Cameras:   handler.NewCameraHandler(query),
		Images:    handler.NewImageHandler(images),
		Status:    handler.NewStatusHandler(query, cfg.IngestInterval),
	})
	srv := &http.Server{Addr: cfg.Port, Handler: router}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return scheduler.Run(ctx)
	})
	eg.Go(func() error {
		return registryService.Run(ctx, cfg.RegistryRefresh, clock)
	})
	eg.Go(func() error {
		// 启动服务器
		logger.Info(ctx, "server starting", slog.F("addr", cfg.Port), slog.F("prefix", cfg.APIPrefix))
		if err := srv.ListenAndServe(); err != nil && !xerrors.Is(err, http.ErrServerClosed) {
			return xerrors.Errorf("serve http: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownDeadline)
		defer cancel()
		logger.Info(shutdownCtx, "shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
