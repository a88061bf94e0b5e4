package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "controlling_poolspa/docs"
	"controlling_poolspa/internal/config"
	"controlling_poolspa/internal/control"
	"controlling_poolspa/internal/handlers"
	"controlling_poolspa/internal/hardware"
	"controlling_poolspa/internal/influxdb"
	"controlling_poolspa/internal/input"
	"controlling_poolspa/internal/logger"
	"controlling_poolspa/internal/mqtt"
	"controlling_poolspa/internal/repository"
	"controlling_poolspa/internal/repository/db"
	"controlling_poolspa/internal/sequencer"
	"controlling_poolspa/internal/server"
	"controlling_poolspa/internal/service"
	"controlling_poolspa/internal/setpoint"
	"controlling_poolspa/internal/status"
	"controlling_poolspa/internal/timer"

	"github.com/spf13/pflag"
)

const (
	defaultSimTick  = 1 * time.Second
	shutdownTimeout = 10 * time.Second
)

// @title                       Pool and spa controller API
// @version                     1.0
// @description                 Remote panel for the pool/spa equipment controller.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	configPath := pflag.StringP("config", "c", "", "path to config.yml (default: ./configs/config.yml)")
	pflag.Parse()

	cfg, cfgErr := config.Load(*configPath)
	level := logger.InfoLevel
	if cfgErr == nil {
		level = cfg.Log.Level
	}
	log := logger.Get(level)
	defer func() { _ = log.Sync() }()
	if cfgErr != nil {
		log.Fatalw("error reading config", "err", cfgErr)
	}

	sqlDB, err := db.InitDB(cfg.DB.Path)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err, "path", cfg.DB.Path)
	}
	defer closeDB(sqlDB, log)

	repos := repository.NewRepository(sqlDB)
	store := status.NewStore()
	queue := input.NewQueue(cfg.Control.QueueSize)
	encoder := input.NewEncoder(cfg.Control.StepsPerDetent)

	// engineCtx ends the control loop; bgCtx outlives it so the sensor,
	// recorder and bridge keep serving during the shutdown unwind.
	engineCtx, stopEngine := context.WithCancel(context.Background())
	defer stopEngine()
	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()
	var bg sync.WaitGroup

	hw, err := openIO(bgCtx, cfg, store, encoder, log, &bg)
	if err != nil {
		log.Fatalw("failed to open hardware", "err", err)
	}
	defer hw.close(log)

	engine, recorder, err := buildEngine(cfg, repos, store, queue, encoder, hw, log)
	if err != nil {
		log.Fatalw("failed to build controller", "err", err)
	}

	// The loop starts before anything that dials the network.
	engineDone := make(chan struct{})
	go func() {
		defer close(engineDone)
		engine.Run(engineCtx, cfg.Control.Tick)
	}()

	startBackground(bgCtx, &bg, recorder.Run)
	startBackground(bgCtx, &bg, func(ctx context.Context) { mirrorToInflux(ctx, cfg, recorder, log) })
	startBackground(bgCtx, &bg, func(ctx context.Context) {
		if bridge := connectMQTT(cfg, store, queue, log); bridge != nil {
			bridge.Run(ctx)
		}
	})

	services := service.NewService(repos, store, queue, cfg.Auth)
	apiHandler := handlers.NewHandler(services, log)
	srv := &server.Server{}
	serverErr := runHTTPServer(srv, cfg.Port, apiHandler.InitRoutes())

	log.Infow("controller_started", "port", cfg.Port, "hardware", cfg.Hardware.Enabled,
		"debug_timing", cfg.Timing.Debug, "mqtt", cfg.MQTT.Enabled, "influxdb", cfg.InfluxDB.Enabled)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForShutdown(quit, serverErr, srv, log)

	// Stop the loop and let the sequencer walk the safe shutdown order.
	stopEngine()
	<-engineDone
	log.Infow("controller_stopped", "relays", store.Load().Relays)

	stopBackground()
	bg.Wait()
}

// ioSet is what the control loop reads from and writes to.
type ioSet struct {
	relays  sequencer.Driver
	buttons control.ButtonReader
	leds    control.LEDWriter
	sensor  control.TempSensor
	board   *hardware.Board
}

func (s ioSet) close(log *logger.Logger) {
	if s.board == nil {
		return
	}
	if err := s.board.Close(); err != nil {
		log.Errorw("failed to release gpio lines", "err", err)
	}
}

// openIO requests the GPIO lines, or wires the simulator when hardware is
// disabled.
func openIO(ctx context.Context, cfg *config.Config, store *status.Store, enc *input.Encoder, log *logger.Logger, bg *sync.WaitGroup) (ioSet, error) {
	if cfg.Hardware.Enabled {
		board, err := hardware.Open(cfg.Hardware, enc, log)
		if err != nil {
			return ioSet{}, err
		}
		startBackground(ctx, bg, board.Sensor.Run)
		return ioSet{relays: board.Relays, buttons: board.Buttons, leds: board.LEDs, sensor: board.Sensor, board: board}, nil
	}

	sim := service.NewSimulatorService(store, cfg.Temp.SimAmbientF, cfg.Temp.SimAmbientF, cfg.Temp.SimHeatFPerHr)
	startBackground(ctx, bg, func(ctx context.Context) { sim.Run(ctx, defaultSimTick) })
	log.Infow("hardware disabled; using simulated relays and water temperature")
	return ioSet{relays: hardware.NewSimRelays(log), leds: &hardware.SimLEDs{}, sensor: sim}, nil
}

func buildEngine(cfg *config.Config, repos *repository.Repository, store *status.Store, queue *input.Queue,
	enc *input.Encoder, hw ioSet, log *logger.Logger) (*control.Engine, *service.Recorder, error) {
	seq, err := sequencer.New(hw.relays, cfg.SequencerTimings(), log)
	if err != nil {
		return nil, nil, err
	}
	daily, err := cfg.DailyStart()
	if err != nil {
		return nil, nil, err
	}
	timers, err := timer.NewScheduler(cfg.Durations(), daily)
	if err != nil {
		return nil, nil, err
	}

	pool, spa := loadSetpoints(cfg, repos, log)
	temps, err := setpoint.New(cfg.Limits(), pool, spa, log)
	if err != nil {
		return nil, nil, err
	}

	recorder := service.NewRecorder(repos, cfg.Control.RecorderBuffer, log)
	engine, err := control.NewEngine(control.Options{
		Sequencer:      seq,
		Scheduler:      timers,
		Setpoints:      temps,
		Layer:          input.NewLayer(input.NewDebouncer(cfg.Control.Debounce), enc, queue),
		Queue:          queue,
		Buttons:        hw.buttons,
		LEDs:           hw.leds,
		Sensor:         hw.sensor,
		Store:          store,
		Sink:           recorder,
		Log:            log,
		SampleInterval: cfg.Control.SampleInterval,
	})
	if err != nil {
		return nil, nil, err
	}
	return engine, recorder, nil
}

// loadSetpoints returns the persisted setpoints, or the configured defaults
// on first boot.
func loadSetpoints(cfg *config.Config, repos *repository.Repository, log *logger.Logger) (pool, spa int) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, ok, err := repos.Settings.Load(ctx)
	if err != nil {
		log.Warnw("failed to load settings; using defaults", "err", err)
	}
	if err != nil || !ok {
		return cfg.Temp.DefaultPool, cfg.Temp.DefaultSpa
	}
	log.Infow("settings_restored", "pool_setpoint_f", s.PoolSetpointF, "spa_setpoint_f", s.SpaSetpointF)
	return s.PoolSetpointF, s.SpaSetpointF
}

// mirrorToInflux attaches InfluxDB to the recorder once it answers, and
// detaches it before closing the client on shutdown.
func mirrorToInflux(ctx context.Context, cfg *config.Config, recorder *service.Recorder, log *logger.Logger) {
	client, err := influxdb.Connect(cfg.InfluxDB, log)
	if err != nil {
		if !errors.Is(err, influxdb.ErrDisabled) {
			log.Warnw("influxdb unavailable; history stays in sqlite only", "err", err)
		}
		return
	}
	recorder.Mirror(client)
	<-ctx.Done()
	recorder.Mirror(nil)
	client.Close()
}

func connectMQTT(cfg *config.Config, store *status.Store, queue *input.Queue, log *logger.Logger) *mqtt.Bridge {
	if !cfg.MQTT.Enabled {
		return nil
	}
	bridge, err := mqtt.Connect(cfg.MQTT, store, queue, log)
	if err != nil {
		log.Warnw("mqtt unavailable", "err", err, "broker", cfg.MQTT.Broker)
		return nil
	}
	return bridge
}

func startBackground(ctx context.Context, wg *sync.WaitGroup, run func(context.Context)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		run(ctx)
	}()
}

// runHTTPServer runs the HTTP server in a separate goroutine. A failure to
// serve is reported on the returned channel; it never stops the controller.
func runHTTPServer(srv *server.Server, port string, handler http.Handler) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Run(port, handler); err != nil {
			errCh <- err
		}
	}()
	return errCh
}

// waitForShutdown blocks until a signal arrives, then stops accepting
// requests. If the API dies first the equipment keeps running on the panel.
func waitForShutdown(quit <-chan os.Signal, serverErr <-chan error, srv *server.Server, log *logger.Logger) {
wait:
	for {
		select {
		case err := <-serverErr:
			log.Errorw("http_server_failed; controller keeps running without the API", "err", err)
			serverErr = nil
		case sig := <-quit:
			log.Infow("shutting down server...", "signal", sig.String())
			break wait
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}

func closeDB(sqlDB *sql.DB, log *logger.Logger) {
	if err := sqlDB.Close(); err != nil {
		log.Errorw("failed to close sqlite", "err", err)
	}
}
