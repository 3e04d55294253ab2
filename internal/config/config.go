// Package config loads the simulator configuration from a JSON file with
// viper, applying defaults for every tunable so an empty file yields a
// flyable aircraft and a drivable ground vehicle.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/aeroterra/sim/internal/aero"
	"github.com/aeroterra/sim/internal/flight"
	"github.com/aeroterra/sim/internal/ground"
	"github.com/aeroterra/sim/internal/mode"
)

// ConfigFileName is the JSON config file looked up in the config directory.
const ConfigFileName = "aeroterra.cfg.json"

// StorageConfig selects and tunes the telemetry storage backend.
type StorageConfig struct {
	Type   string
	Memory MemoryConfig
	SQLite SQLiteConfig
}

// MemoryConfig holds in-memory/JSON storage backend settings.
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds the SQLite backend settings.
type SQLiteConfig struct {
	DumpInterval time.Duration
	DumpPath     string
}

// OTelConfig holds OpenTelemetry settings.
type OTelConfig struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	Endpoint     string
	Insecure     bool
}

// SimConfig holds the top-level simulation loop settings.
type SimConfig struct {
	TickRate      float64 // fixed physics ticks per second
	Duration      time.Duration
	StartMode     string
	Terrain       string // "flat", "rolling" or "none"
	OriginLon     float64
	OriginLat     float64
	SampleEvery   int // record telemetry every N ticks
	Mass          float64
	Scenario      string // scripted control timeline name
	Realtime      bool
	StartAltitude float64 // initial height above terrain in flight mode
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")

	viper.SetDefault("sim.tickRate", 50.0)
	viper.SetDefault("sim.duration", "60s")
	viper.SetDefault("sim.startMode", "flight")
	viper.SetDefault("sim.terrain", "rolling")
	viper.SetDefault("sim.originLon", -122.349)
	viper.SetDefault("sim.originLat", 47.62)
	viper.SetDefault("sim.sampleEvery", 5)
	viper.SetDefault("sim.mass", 1200.0)
	viper.SetDefault("sim.scenario", "cruise")
	viper.SetDefault("sim.realtime", false)
	viper.SetDefault("sim.startAltitude", 300.0)

	viper.SetDefault("flight.maxThrust", 18000.0)
	viper.SetDefault("flight.wingArea", 16.0)
	viper.SetDefault("flight.baseDragCoeff", 0.025)
	viper.SetDefault("flight.inducedDrag", 0.05)
	viper.SetDefault("flight.stallAngleDeg", 16.0)
	viper.SetDefault("flight.stallClScale", 0.3)
	viper.SetDefault("flight.minAirspeed", 15.0)
	viper.SetDefault("flight.airDensity", 1.225)
	viper.SetDefault("flight.gravity", 9.81)
	viper.SetDefault("flight.pitchRateDeg", 45.0)
	viper.SetDefault("flight.rollRateDeg", 90.0)
	viper.SetDefault("flight.yawRateDeg", 25.0)
	viper.SetDefault("flight.throttleRate", 0.5)
	viper.SetDefault("flight.minThrottle", 0.0)
	viper.SetDefault("flight.altitudeRayDist", 10000.0)

	viper.SetDefault("ground.wheelbase", 2.8)
	viper.SetDefault("ground.trackWidth", 1.6)
	viper.SetDefault("ground.wheelRadius", 0.35)
	viper.SetDefault("ground.suspensionTravel", 0.4)
	viper.SetDefault("ground.suspensionStiffness", 35000.0)
	viper.SetDefault("ground.suspensionDamping", 4500.0)
	viper.SetDefault("ground.detectionDist", 200.0)
	viper.SetDefault("ground.rayOffset", 0.4)
	viper.SetDefault("ground.maxSpeed", 30.0)
	viper.SetDefault("ground.reverseSpeed", 8.0)
	viper.SetDefault("ground.acceleration", 6.0)
	viper.SetDefault("ground.brakeDecel", 10.0)
	viper.SetDefault("ground.maxSteerDeg", 30.0)
	viper.SetDefault("ground.steerRateDeg", 60.0)
	viper.SetDefault("ground.minTurnSpeed", 0.5)
	viper.SetDefault("ground.forwardFriction", 0.6)
	viper.SetDefault("ground.lateralFriction", 4.0)
	viper.SetDefault("ground.alignRate", 5.0)
	viper.SetDefault("ground.gravity", 9.81)
	viper.SetDefault("ground.failsafeAirborneTicks", 150)
	viper.SetDefault("ground.respawnHeight", 1.0)
	viper.SetDefault("ground.respawnRayDist", 500.0)

	viper.SetDefault("transition.settleDelay", "500ms")
	viper.SetDefault("transition.groundSpawnOffset", 0.05)
	viper.SetDefault("transition.flightSpawnSpeed", 40.0)
	viper.SetDefault("transition.flightSpawnThrottle", 0.6)
	viper.SetDefault("transition.terrainRayDist", 2000.0)

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./recordings")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.sqlite.dumpPath", "./recordings/aeroterra.db")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "aeroterra")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "aeroterra-metrics")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "aeroterra-sim")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetConfigName(ConfigFileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetSimConfig returns the simulation loop settings.
func GetSimConfig() SimConfig {
	return SimConfig{
		TickRate:      viper.GetFloat64("sim.tickRate"),
		Duration:      viper.GetDuration("sim.duration"),
		StartMode:     viper.GetString("sim.startMode"),
		Terrain:       viper.GetString("sim.terrain"),
		OriginLon:     viper.GetFloat64("sim.originLon"),
		OriginLat:     viper.GetFloat64("sim.originLat"),
		SampleEvery:   viper.GetInt("sim.sampleEvery"),
		Mass:          viper.GetFloat64("sim.mass"),
		Scenario:      viper.GetString("sim.scenario"),
		Realtime:      viper.GetBool("sim.realtime"),
		StartAltitude: viper.GetFloat64("sim.startAltitude"),
	}
}

// GetAeroParameters builds the validated aerodynamic parameters. An
// explicitly configured but empty lift curve is a configuration error; an
// absent key falls back to the built-in curve.
func GetAeroParameters() (aero.Parameters, error) {
	p := aero.Parameters{
		MaxThrust:     viper.GetFloat64("flight.maxThrust"),
		WingArea:      viper.GetFloat64("flight.wingArea"),
		BaseDragCoeff: viper.GetFloat64("flight.baseDragCoeff"),
		InducedDrag:   viper.GetFloat64("flight.inducedDrag"),
		StallAngleDeg: viper.GetFloat64("flight.stallAngleDeg"),
		StallClScale:  viper.GetFloat64("flight.stallClScale"),
		MinAirspeed:   viper.GetFloat64("flight.minAirspeed"),
		AirDensity:    viper.GetFloat64("flight.airDensity"),
		Gravity:       viper.GetFloat64("flight.gravity"),
	}

	if viper.IsSet("flight.liftCurve") {
		var points []aero.CurvePoint
		if err := viper.UnmarshalKey("flight.liftCurve", &points); err != nil {
			return aero.Parameters{}, fmt.Errorf("parsing flight.liftCurve: %w", err)
		}
		curve, err := aero.NewCurve(points)
		if err != nil {
			return aero.Parameters{}, fmt.Errorf("flight.liftCurve: %w", err)
		}
		p.LiftCurve = curve
	} else {
		p.LiftCurve = aero.DefaultCurve()
	}

	return p, p.Validate()
}

// GetFlightConfig returns the flight controller tuning.
func GetFlightConfig() flight.Config {
	return flight.Config{
		PitchRateDeg:    viper.GetFloat64("flight.pitchRateDeg"),
		RollRateDeg:     viper.GetFloat64("flight.rollRateDeg"),
		YawRateDeg:      viper.GetFloat64("flight.yawRateDeg"),
		ThrottleRate:    viper.GetFloat64("flight.throttleRate"),
		MinThrottle:     viper.GetFloat64("flight.minThrottle"),
		AltitudeRayDist: viper.GetFloat64("flight.altitudeRayDist"),
	}
}

// GetGroundConfig returns the ground vehicle tuning.
func GetGroundConfig() (ground.Config, error) {
	cfg := ground.Config{
		Wheelbase:  viper.GetFloat64("ground.wheelbase"),
		TrackWidth: viper.GetFloat64("ground.trackWidth"),
		Suspension: ground.Suspension{
			Travel:        viper.GetFloat64("ground.suspensionTravel"),
			WheelRadius:   viper.GetFloat64("ground.wheelRadius"),
			Stiffness:     viper.GetFloat64("ground.suspensionStiffness"),
			Damping:       viper.GetFloat64("ground.suspensionDamping"),
			DetectionDist: viper.GetFloat64("ground.detectionDist"),
			RayOffset:     viper.GetFloat64("ground.rayOffset"),
		},
		MaxSpeed:              viper.GetFloat64("ground.maxSpeed"),
		ReverseSpeed:          viper.GetFloat64("ground.reverseSpeed"),
		Acceleration:          viper.GetFloat64("ground.acceleration"),
		BrakeDecel:            viper.GetFloat64("ground.brakeDecel"),
		MaxSteerDeg:           viper.GetFloat64("ground.maxSteerDeg"),
		SteerRateDeg:          viper.GetFloat64("ground.steerRateDeg"),
		MinTurnSpeed:          viper.GetFloat64("ground.minTurnSpeed"),
		ForwardFriction:       viper.GetFloat64("ground.forwardFriction"),
		LateralFriction:       viper.GetFloat64("ground.lateralFriction"),
		AlignRate:             viper.GetFloat64("ground.alignRate"),
		Gravity:               viper.GetFloat64("ground.gravity"),
		FailsafeAirborneTicks: viper.GetInt("ground.failsafeAirborneTicks"),
		RespawnHeight:         viper.GetFloat64("ground.respawnHeight"),
		RespawnRayDist:        viper.GetFloat64("ground.respawnRayDist"),
	}
	if cfg.Wheelbase <= 0 || cfg.TrackWidth <= 0 {
		return ground.Config{}, fmt.Errorf("ground: wheelbase and track width must be positive")
	}
	if cfg.Suspension.WheelRadius <= 0 || cfg.Suspension.Travel <= 0 {
		return ground.Config{}, fmt.Errorf("ground: wheel radius and suspension travel must be positive")
	}
	return cfg, nil
}

// GetTransitionConfig returns the mode machine tuning.
func GetTransitionConfig() mode.Config {
	return mode.Config{
		SettleDelay:         viper.GetDuration("transition.settleDelay"),
		GroundSpawnOffset:   viper.GetFloat64("transition.groundSpawnOffset"),
		FlightSpawnSpeed:    viper.GetFloat64("transition.flightSpawnSpeed"),
		FlightSpawnThrottle: viper.GetFloat64("transition.flightSpawnThrottle"),
		TerrainRayDist:      viper.GetFloat64("transition.terrainRayDist"),
	}
}

// GetStorageConfig returns the storage backend selection.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
			DumpPath:     viper.GetString("storage.sqlite.dumpPath"),
		},
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}
