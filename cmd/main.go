package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "building_automation/docs"
	"building_automation/internal/actuator"
	"building_automation/internal/config"
	"building_automation/internal/engine"
	"building_automation/internal/handlers"
	"building_automation/internal/logger"
	"building_automation/internal/repository"
	"building_automation/internal/repository/db"
	"building_automation/internal/server"
	"building_automation/internal/service"
)

const shutdownTimeout = 10 * time.Second

// @title           Building Automation Controller API
// @version         1.0
// @description     Operating modes, manual overrides, macros and schedules for one controlled room.
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Get(logger.InfoLevel, logger.ConsoleFormat).Fatalw("error reading config", "err", err)
	}
	log := logger.Get(cfg.Log.Level, cfg.Log.Format)
	defer func() { _ = log.Sync() }()

	sqlDB, err := db.InitDB(cfg.DB.Path)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err, "path", cfg.DB.Path)
	}
	defer closeDB(sqlDB, log)

	repos := repository.NewRepository(sqlDB)

	ctrl, err := buildController(cfg, repos, log)
	if err != nil {
		log.Fatalw("failed to build controller", "err", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := service.Restore(ctx, repos, ctrl, log.SugaredLogger); err != nil {
		log.Fatalw("failed to restore controller state", "err", err)
	}

	loc, _ := cfg.Location()
	deps := service.Deps{
		Controller: ctrl,
		Sensors:    service.NewSimulatedSensors(cfg.Controller.SimulatorSeed, loc),
		Log:        log.SugaredLogger,
		Auth:       service.AuthConfig{SigningKey: cfg.Auth.SigningKey, TokenTTL: cfg.Auth.TokenTTL},
	}
	if cfg.MQTT.Enabled {
		pub, err := actuator.Connect(cfg.MQTT, log.SugaredLogger)
		if err != nil {
			log.Fatalw("failed to connect to mqtt broker", "err", err, "broker", cfg.MQTT.Broker)
		}
		defer pub.Close()
		deps.Publisher = pub
	}

	services := service.NewService(repos, deps)
	apiHandler := handlers.NewHandler(services, log)

	driverDone := make(chan struct{})
	go func() {
		defer close(driverDone)
		services.Driver.Run(ctx, cfg.Controller.TickInterval)
	}()

	srv := server.New(cfg.Port, apiHandler.InitRoutes())
	go func() {
		log.Infow("http_listening", "addr", srv.Addr(), "mode", ctrl.Mode())
		if err := srv.Run(); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()

	waitForShutdown(cancel, driverDone, srv, log)
}

// buildController registers the configured macros and schedule rules. Persisted state
// is applied afterwards by service.Restore.
func buildController(cfg *config.Config, repos *repository.Repository, log *logger.Logger) (*engine.Controller, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	schedule := engine.NewScheduleTable(loc, cfg.Thresholds)
	rules, err := cfg.ScheduleRules()
	if err != nil {
		return nil, err
	}
	for _, r := range rules {
		if _, err := schedule.AddRule(r); err != nil {
			return nil, err
		}
	}

	macros := engine.NewMacroRegistry(cfg.Thresholds)
	set, err := cfg.MacroSet()
	if err != nil {
		return nil, err
	}
	for _, m := range set {
		if err := macros.Register(m); err != nil {
			return nil, err
		}
	}

	return engine.NewController(cfg.Thresholds, schedule, macros,
		engine.WithInitialMode(cfg.InitialMode()),
		engine.WithReporter(service.NewEventReporter(repos.EventRepo, log.SugaredLogger)),
	)
}

func closeDB(sqlDB *sql.DB, log *logger.Logger) {
	if err := sqlDB.Close(); err != nil {
		log.Errorw("failed to close sqlite", "err", err)
	}
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, driverDone <-chan struct{}, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")
	shutdown(cancel, driverDone, srv, log, shutdownTimeout)
}

// shutdown stops the decision loop and the HTTP server. It returns once the loop has
// written its STOP event or timeout expires, so the deferred db close runs last.
func shutdown(cancel context.CancelFunc, driverDone <-chan struct{}, srv *server.Server, log *logger.Logger, timeout time.Duration) {
	cancel()

	ctx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}

	select {
	case <-driverDone:
	case <-ctx.Done():
		log.Errorw("decision loop did not stop in time", "err", ctx.Err())
	}
}
