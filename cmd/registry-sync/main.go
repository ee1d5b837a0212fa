// Command registry-sync mirrors the camera registry into the database once
// and exits. Coordinates come from LOCATIONS_FILE.
package main

import (
	"context"
	"os"
	"os/signal"

	"cdr.dev/slog/v3"
	"github.com/spf13/afero"

	"github.com/campuspulse/occupancy-backend-go/internal/config"
	"github.com/campuspulse/occupancy-backend-go/internal/database"
	"github.com/campuspulse/occupancy-backend-go/internal/logging"
	"github.com/campuspulse/occupancy-backend-go/internal/registry"
	"github.com/campuspulse/occupancy-backend-go/internal/repository"
	"github.com/campuspulse/occupancy-backend-go/internal/service"
)

func main() {
	cfg := config.Load()
	logger := logging.New(os.Stderr, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	db, err := database.Open(ctx, database.Config{Path: cfg.DBPath})
	if err != nil {
		logger.Fatal(ctx, "open database", slog.Error(err))
	}
	defer db.Close()

	coordinates, err := service.LoadCoordinates(afero.NewOsFs(), cfg.LocationsFile)
	if err != nil {
		logger.Fatal(ctx, "load coordinates", slog.Error(err))
	}

	svc := service.NewRegistryService(
		registry.New(cfg.RegistryBaseURL, cfg.RegistryTimeout),
		repository.NewLocationRepository(db),
		repository.NewCameraRepository(db, cfg.RejectStaleLive),
		coordinates,
		logger,
	)

	summary, err := svc.Sync(ctx)
	if err != nil {
		logger.Fatal(ctx, "registry sync failed", slog.Error(err))
	}
	if summary.FailedBuildings > 0 {
		logger.Warn(ctx, "some buildings could not be listed", slog.F("failed_buildings", summary.FailedBuildings))
		os.Exit(2)
	}
}
