package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/aeroterra/sim/internal/aero"
	"github.com/aeroterra/sim/internal/config"
	"github.com/aeroterra/sim/internal/database"
	"github.com/aeroterra/sim/internal/dispatcher"
	"github.com/aeroterra/sim/internal/flight"
	"github.com/aeroterra/sim/internal/geo"
	"github.com/aeroterra/sim/internal/ground"
	"github.com/aeroterra/sim/internal/influx"
	"github.com/aeroterra/sim/internal/input"
	"github.com/aeroterra/sim/internal/logging"
	"github.com/aeroterra/sim/internal/mode"
	"github.com/aeroterra/sim/internal/monitor"
	intOtel "github.com/aeroterra/sim/internal/otel"
	"github.com/aeroterra/sim/internal/phys"
	"github.com/aeroterra/sim/internal/sim"
	"github.com/aeroterra/sim/internal/spatial"
	"github.com/aeroterra/sim/internal/storage"
	"github.com/aeroterra/sim/internal/terrain"
	"github.com/aeroterra/sim/internal/worker"
	"github.com/aeroterra/sim/pkg/core"
)

// AppVersion can be set at build time via ldflags.
var (
	AppVersion = "0.1.0"
	AppName    = "aeroterra_sim"
)

var (
	SessionStartTime = time.Now()

	SlogManager  *logging.SlogManager
	OTelProvider *intOtel.Provider
)

func main() {
	SlogManager = logging.NewSlogManager()

	if err := config.Load("."); err != nil {
		SlogManager.Logger().Warn("Failed to load config, using defaults", "error", err)
	}

	args := os.Args[1:]
	if len(args) > 0 {
		switch strings.ToLower(args[0]) {
		case "export":
			if len(args) < 2 {
				fmt.Println("No session IDs provided.")
				os.Exit(1)
			}
			if err := exportSessions(args[1:]); err != nil {
				SlogManager.Logger().Error("Export failed", "error", err)
				os.Exit(1)
			}
			return
		case "version":
			fmt.Println(AppName, AppVersion)
			return
		case "run":
			// fall through
		default:
			fmt.Printf("Unknown command %q. Commands: run, export, version.\n", args[0])
			os.Exit(1)
		}
	}

	if err := run(); err != nil {
		SlogManager.Logger().Error("Simulation failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	logFile, err := setupLogging()
	if err != nil {
		return err
	}
	if logFile != nil {
		defer logFile.Close()
	}
	logger := SlogManager.Logger()
	logger.Info("Starting up", "version", AppVersion)

	simCfg := config.GetSimConfig()

	// Vehicle body. Inertia uses a box approximation from the mass.
	body := phys.NewBody(simCfg.Mass, spatial.Vec3{
		X: simCfg.Mass * 2.5,
		Y: simCfg.Mass * 3.0,
		Z: simCfg.Mass * 1.2,
	})

	field, err := terrainField(simCfg.Terrain)
	if err != nil {
		return err
	}
	world := terrain.NewHeightfield(field)

	anchor := terrain.NewGeoAnchor(simCfg.OriginLon, simCfg.OriginLat)
	anchor.SetEnabled(true)
	body.AddTransformListener(anchor)

	params, err := config.GetAeroParameters()
	if err != nil {
		return err
	}
	model, err := aero.NewModel(params)
	if err != nil {
		return err
	}
	flightCtl := flight.New(config.GetFlightConfig(), model, body, world, logger)

	groundCfg, err := config.GetGroundConfig()
	if err != nil {
		return err
	}
	groundCtl := ground.New(groundCfg, body, world, logger)

	flightInput := &input.FlightMapper{}
	groundInput := &input.GroundMapper{}

	events, err := dispatcher.New(logger)
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}

	startMode := core.VehicleMode(simCfg.StartMode)
	placeVehicle(body, world, startMode, simCfg, config.GetTransitionConfig())

	machine, err := mode.New(config.GetTransitionConfig(), mode.Dependencies{
		Body:        body,
		World:       world,
		Anchor:      anchor,
		Flight:      flightCtl,
		Ground:      groundCtl,
		FlightInput: flightInput,
		GroundInput: groundInput,
		Events:      events,
		Logger:      logger,
	}, startMode)
	if err != nil {
		return err
	}
	if startMode == core.ModeFlight {
		flightCtl.SetThrottle(config.GetTransitionConfig().FlightSpawnThrottle)
	}

	queues := worker.NewQueues()

	// Storage backend.
	proj, err := geo.NewProjector(simCfg.OriginLon, simCfg.OriginLat)
	if err != nil {
		return err
	}
	zlog := zerolog.New(os.Stdout).With().Timestamp().Logger()
	storageCfg := config.GetStorageConfig()
	var dbManager *database.Manager
	if storageCfg.Type == "postgres" {
		dbManager = database.NewManager(zlog)
	}
	backend, err := storage.NewBackend(storageCfg, proj, SlogManager, dbManager)
	if err != nil {
		return fmt.Errorf("failed to create storage backend: %w", err)
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("failed to initialize storage backend: %w", err)
	}
	defer backend.Close()

	session := &core.Session{
		Name:      fmt.Sprintf("%s_%s", AppName, SessionStartTime.Format("20060102_150405")),
		StartTime: SessionStartTime,
		TickRate:  simCfg.TickRate,
		OriginLon: simCfg.OriginLon,
		OriginLat: simCfg.OriginLat,
		World:     simCfg.Terrain,
	}
	if err := backend.StartSession(session); err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	logger.Info("Session started", "id", session.ID, "name", session.Name)

	// Optional InfluxDB mirror.
	var influxManager *influx.Manager
	if viper.GetBool("influx.enabled") {
		influxManager = influx.NewManager(zlog, "influx_backup.gz")
		if err := influxManager.Connect(); err != nil {
			logger.Warn("InfluxDB unavailable, telemetry mirroring disabled", "error", err)
			influxManager = nil
		} else {
			defer influxManager.Close()
		}
	}

	workerManager := worker.NewManager(worker.Dependencies{
		Queues:     queues,
		LogManager: SlogManager,
		Influx:     influxManager,
	}, backend, 250*time.Millisecond)
	workerManager.SetSessionName(session.Name)

	simulator := sim.New(sim.Config{
		TickRate:    simCfg.TickRate,
		Duration:    simCfg.Duration,
		SampleEvery: simCfg.SampleEvery,
		Realtime:    simCfg.Realtime,
	}, sim.Dependencies{
		Body:        body,
		Machine:     machine,
		Flight:      flightCtl,
		Ground:      groundCtl,
		FlightInput: flightInput,
		GroundInput: groundInput,
		Queues:      queues,
		Events:      events,
		Logger:      logger,
		Script:      scenarioScript(simCfg.Scenario),
	})
	simulator.SetSessionID(session.ID)

	// Route completed transitions into the write queue.
	events.Register(dispatcher.TopicModeChanged, func(e dispatcher.Event) (any, error) {
		change, ok := e.Payload.(core.ModeChange)
		if !ok {
			return nil, fmt.Errorf("unexpected payload type %T", e.Payload)
		}
		change.SessionID = session.ID
		queues.Modes.Push(change)
		logger.Info("Mode changed",
			"from", string(change.From), "to", string(change.To),
			"relocated", change.Relocated, "tick", change.Tick)
		return "queued", nil
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerCtx, cancelWorker := context.WithCancel(context.Background())
	defer cancelWorker()
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		workerManager.Run(workerCtx)
	}()

	monitorService := monitor.NewService(monitor.Dependencies{
		LogManager:    SlogManager,
		WorkerManager: workerManager,
		Queues:        queues,
		Sim:           simulator,
		StatusDir:     ".",
		Interval:      time.Second,
	})
	monitorService.Start()

	logger.Info("Simulation running",
		"mode", string(machine.Mode()),
		"terrain", simCfg.Terrain,
		"tickRate", simCfg.TickRate,
		"duration", simCfg.Duration)

	err = simulator.Run(ctx)
	if err != nil && err != context.Canceled {
		return err
	}

	logger.Info("Simulation complete", "ticks", simulator.CurrentTick())

	monitorService.Stop()
	cancelWorker()
	<-workerDone

	if err := backend.EndSession(); err != nil {
		logger.Error("Failed to end session", "error", err)
	}
	if exp, ok := backend.(storage.Exportable); ok {
		if path := exp.ExportedFilePath(); path != "" {
			logger.Info("Recording exported", "path", path)
		}
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if OTelProvider != nil {
		if err := OTelProvider.Flush(flushCtx); err != nil {
			logger.Warn("Failed to flush OTel data", "error", err)
		}
		OTelProvider.Shutdown(flushCtx)
	}
	SlogManager.Flush(flushCtx)

	return nil
}

// setupLogging creates the logs directory, the session log file and wires
// the optional OTel and Graylog outputs.
func setupLogging() (*os.File, error) {
	logsDir := viper.GetString("logsDir")
	if _, err := os.Stat(logsDir); os.IsNotExist(err) {
		os.Mkdir(logsDir, 0755)
	}

	logFilePath := logging.LogFilePath(logsDir, AppName, SessionStartTime)
	logFile, err := os.OpenFile(logFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		OTelProvider, err = intOtel.New(intOtel.Config{
			Enabled:      otelCfg.Enabled,
			ServiceName:  otelCfg.ServiceName,
			BatchTimeout: otelCfg.BatchTimeout,
			LogWriter:    logFile,
			Endpoint:     otelCfg.Endpoint,
			Insecure:     otelCfg.Insecure,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OTel provider: %w", err)
		}
	}

	opts := logging.Options{
		File:  logFile,
		Level: viper.GetString("logLevel"),
	}
	if viper.GetBool("graylog.enabled") {
		opts.GraylogAddress = viper.GetString("graylog.address")
	}
	if OTelProvider != nil {
		opts.OTelProvider = OTelProvider.LoggerProvider()
	}
	if err := SlogManager.Setup(opts); err != nil {
		return nil, err
	}
	return logFile, nil
}

func terrainField(name string) (terrain.Field, error) {
	switch name {
	case "flat":
		return terrain.Flat(0), nil
	case "rolling":
		return terrain.Rolling(8, 240, 2.5, 60), nil
	case "none":
		return terrain.Bottomless(), nil
	default:
		return nil, fmt.Errorf("unknown terrain preset: %s", name)
	}
}

// placeVehicle positions the body for the starting mode: airborne with
// forward speed for flight, resting just above the surface for ground.
func placeVehicle(body *phys.Body, world *terrain.Heightfield, startMode core.VehicleMode, simCfg config.SimConfig, transCfg mode.Config) {
	groundY := 0.0
	if hit, ok := world.Raycast(phys.Ray{
		Origin:  spatial.Vec3{Y: 10000},
		Dir:     spatial.Vec3{Y: -1},
		MaxDist: 20000,
	}); ok {
		groundY = hit.Point.Y
	}

	switch startMode {
	case core.ModeFlight:
		body.Position = spatial.Vec3{Y: groundY + simCfg.StartAltitude}
		body.Velocity = spatial.Vec3{Z: transCfg.FlightSpawnSpeed}
	case core.ModeGround:
		body.Position = spatial.Vec3{Y: groundY + 1.0}
	}
	body.SyncTransforms()
}

func scenarioScript(name string) *sim.Script {
	switch strings.ToLower(name) {
	case "touchandgo":
		return sim.TouchAndGoScript()
	case "drive":
		return sim.DriveScript()
	default:
		return sim.CruiseScript()
	}
}
