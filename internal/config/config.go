package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"controlling_poolspa/internal/equipment"
	"controlling_poolspa/internal/sequencer"
	"controlling_poolspa/internal/setpoint"
	"controlling_poolspa/internal/timer"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

const envPrefix = "POOLSPA"

type Config struct {
	Port     string         `mapstructure:"port"`
	DB       DBConfig       `mapstructure:"db"`
	Log      LogConfig      `mapstructure:"log"`
	Control  ControlConfig  `mapstructure:"control"`
	Timing   TimingConfig   `mapstructure:"timing"`
	Timeouts TimeoutConfig  `mapstructure:"timeouts"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Temp     TempConfig     `mapstructure:"temperature"`
	Hardware HardwareConfig `mapstructure:"hardware"`
	MQTT     MQTTConfig     `mapstructure:"mqtt"`
	InfluxDB InfluxDBConfig `mapstructure:"influxdb"`
	Auth     AuthConfig     `mapstructure:"auth"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type ControlConfig struct {
	Tick           time.Duration `mapstructure:"tick"`
	SampleInterval time.Duration `mapstructure:"sample_interval"`
	QueueSize      int           `mapstructure:"queue_size"`
	RecorderBuffer int           `mapstructure:"recorder_buffer"`
	Debounce       time.Duration `mapstructure:"debounce"`
	StepsPerDetent int           `mapstructure:"steps_per_detent"`
}

// TimingConfig holds the sequencer holds. Debug swaps in the short bench
// profile and ignores the explicit values.
type TimingConfig struct {
	Debug          bool          `mapstructure:"debug"`
	HeaterCooldown time.Duration `mapstructure:"heater_cooldown"`
	PumpOffSettle  time.Duration `mapstructure:"pump_off_settle"`
	ValveSettle    time.Duration `mapstructure:"valve_settle"`
	PumpOnSettle   time.Duration `mapstructure:"pump_on_settle"`
}

// TimeoutConfig is in minutes, as shown on the panel.
type TimeoutConfig struct {
	HeatSpa    int `mapstructure:"heat_spa"`
	HeatPool   int `mapstructure:"heat_pool"`
	FillSpa    int `mapstructure:"fill_spa"`
	EmptySpa   int `mapstructure:"empty_spa"`
	FilterPool int `mapstructure:"filter_pool"`
	FilterSpa  int `mapstructure:"filter_spa"`
	PoolLight  int `mapstructure:"pool_light"`
	SpaJets    int `mapstructure:"spa_jets"`
}

type ScheduleConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Hour    int    `mapstructure:"hour"`
	AMPM    string `mapstructure:"ampm"`
	Mode    string `mapstructure:"mode"`
}

type TempConfig struct {
	Min           int     `mapstructure:"min"`
	MaxPool       int     `mapstructure:"max_pool"`
	MaxSpa        int     `mapstructure:"max_spa"`
	Band          float64 `mapstructure:"band"`
	SensorLo      float64 `mapstructure:"sensor_lo"`
	SensorHi      float64 `mapstructure:"sensor_hi"`
	DefaultPool   int     `mapstructure:"default_pool"`
	DefaultSpa    int     `mapstructure:"default_spa"`
	SimAmbientF   float64 `mapstructure:"sim_ambient_f"`
	SimHeatFPerHr float64 `mapstructure:"sim_heat_f_per_hour"`
}

type HardwareConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Chip         string        `mapstructure:"chip"`
	RelayPins    []int         `mapstructure:"relay_pins"`
	RelayOnLevel int           `mapstructure:"relay_on_level"`
	ButtonPins   []int         `mapstructure:"button_pins"`
	ButtonActive int           `mapstructure:"button_active_level"`
	EncoderA     int           `mapstructure:"encoder_a"`
	EncoderB     int           `mapstructure:"encoder_b"`
	LEDData      int           `mapstructure:"led_data"`
	LEDClock     int           `mapstructure:"led_clock"`
	LEDLatch     int           `mapstructure:"led_latch"`
	SensorPath   string        `mapstructure:"sensor_path"`
	SensorPeriod time.Duration `mapstructure:"sensor_period"`
}

type MQTTConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Broker          string        `mapstructure:"broker"`
	ClientID        string        `mapstructure:"client_id"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	TopicPrefix     string        `mapstructure:"topic_prefix"`
	QoS             byte          `mapstructure:"qos"`
	PublishInterval time.Duration `mapstructure:"publish_interval"`
}

type InfluxDBConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Token   string `mapstructure:"token"`
	Org     string `mapstructure:"org"`
	Bucket  string `mapstructure:"bucket"`
}

type AuthConfig struct {
	SigningKey string        `mapstructure:"signing_key"`
	Salt       string        `mapstructure:"salt"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
}

// Load reads the YAML file at path (an empty path searches ./configs for
// config.yml), applies defaults and POOLSPA_* environment overrides, and
// validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("configs")
		v.SetConfigName("config")
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	seq := sequencer.DefaultTimings()
	lim := setpoint.DefaultLimits()

	v.SetDefault("port", "8080")
	v.SetDefault("db.path", "poolspa.db")
	v.SetDefault("log.level", "info")

	v.SetDefault("control.tick", 100*time.Millisecond)
	v.SetDefault("control.sample_interval", time.Minute)
	v.SetDefault("control.queue_size", 16)
	v.SetDefault("control.recorder_buffer", 256)
	v.SetDefault("control.debounce", 50*time.Millisecond)
	v.SetDefault("control.steps_per_detent", 4)

	v.SetDefault("timing.debug", false)
	v.SetDefault("timing.heater_cooldown", seq.HeaterCooldown)
	v.SetDefault("timing.pump_off_settle", seq.PumpOffSettle)
	v.SetDefault("timing.valve_settle", seq.ValveSettle)
	v.SetDefault("timing.pump_on_settle", seq.PumpOnSettle)

	v.SetDefault("timeouts.heat_spa", 180)
	v.SetDefault("timeouts.heat_pool", 1440)
	v.SetDefault("timeouts.fill_spa", 5)
	v.SetDefault("timeouts.empty_spa", 5)
	v.SetDefault("timeouts.filter_pool", 20)
	v.SetDefault("timeouts.filter_spa", 10)
	v.SetDefault("timeouts.pool_light", 180)
	v.SetDefault("timeouts.spa_jets", 60)

	v.SetDefault("schedule.enabled", true)
	v.SetDefault("schedule.hour", 1)
	v.SetDefault("schedule.ampm", "AM")
	v.SetDefault("schedule.mode", equipment.ModeFilterPool.String())

	v.SetDefault("temperature.min", lim.Min)
	v.SetDefault("temperature.max_pool", lim.MaxPool)
	v.SetDefault("temperature.max_spa", lim.MaxSpa)
	v.SetDefault("temperature.band", lim.Band)
	v.SetDefault("temperature.sensor_lo", lim.SensorLo)
	v.SetDefault("temperature.sensor_hi", lim.SensorHi)
	v.SetDefault("temperature.default_pool", 80)
	v.SetDefault("temperature.default_spa", 100)
	v.SetDefault("temperature.sim_ambient_f", 72.0)
	v.SetDefault("temperature.sim_heat_f_per_hour", 12.0)

	v.SetDefault("hardware.enabled", false)
	v.SetDefault("hardware.chip", "gpiochip0")
	v.SetDefault("hardware.relay_pins", []int{5, 6, 13, 19, 26, 12, 16, 20, 21, 7})
	v.SetDefault("hardware.relay_on_level", 0)
	v.SetDefault("hardware.button_pins", []int{4, 17, 27, 22, 10, 9, 11, 8})
	v.SetDefault("hardware.button_active_level", 0)
	v.SetDefault("hardware.encoder_a", 23)
	v.SetDefault("hardware.encoder_b", 24)
	v.SetDefault("hardware.led_data", 14)
	v.SetDefault("hardware.led_clock", 15)
	v.SetDefault("hardware.led_latch", 18)
	v.SetDefault("hardware.sensor_path", "/sys/bus/w1/devices/28-000000000000/w1_slave")
	v.SetDefault("hardware.sensor_period", 2*time.Second)

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.client_id", "poolspa")
	v.SetDefault("mqtt.topic_prefix", "poolspa")
	v.SetDefault("mqtt.qos", 1)
	v.SetDefault("mqtt.publish_interval", 5*time.Second)

	v.SetDefault("influxdb.enabled", false)
	v.SetDefault("influxdb.url", "http://localhost:8086")
	v.SetDefault("influxdb.org", "home")
	v.SetDefault("influxdb.bucket", "poolspa")

	v.SetDefault("auth.token_ttl", 12*time.Hour)
}

// Validate rejects values the controller cannot run with.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Port == "" {
		add("port is empty")
	}
	if c.Control.Tick <= 0 || c.Control.SampleInterval <= 0 {
		add("control.tick and control.sample_interval must be positive")
	}
	if c.Control.QueueSize <= 0 || c.Control.RecorderBuffer <= 0 {
		add("control.queue_size and control.recorder_buffer must be positive")
	}
	if c.Control.StepsPerDetent <= 0 {
		add("control.steps_per_detent must be positive")
	}
	if err := c.SequencerTimings().Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Durations().Validate(); err != nil {
		errs = append(errs, err)
	}
	daily, err := c.DailyStart()
	if err != nil {
		errs = append(errs, err)
	} else if err := daily.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Limits().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Hardware.Enabled {
		if len(c.Hardware.RelayPins) != equipment.NumRelays {
			add("hardware.relay_pins needs %d pins, got %d", equipment.NumRelays, len(c.Hardware.RelayPins))
		}
		if len(c.Hardware.ButtonPins) != equipment.NumButtons {
			add("hardware.button_pins needs %d pins, got %d", equipment.NumButtons, len(c.Hardware.ButtonPins))
		}
		if c.Hardware.RelayOnLevel != 0 && c.Hardware.RelayOnLevel != 1 {
			add("hardware.relay_on_level must be 0 or 1")
		}
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		add("mqtt.broker is required when mqtt is enabled")
	}
	if c.InfluxDB.Enabled && (c.InfluxDB.URL == "" || c.InfluxDB.Bucket == "") {
		add("influxdb.url and influxdb.bucket are required when influxdb is enabled")
	}
	if c.Auth.TokenTTL <= 0 {
		add("auth.token_ttl must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// SequencerTimings returns the hold profile to run with.
func (c *Config) SequencerTimings() sequencer.Timings {
	if c.Timing.Debug {
		return sequencer.DebugTimings()
	}
	return sequencer.Timings{
		HeaterCooldown: c.Timing.HeaterCooldown,
		PumpOffSettle:  c.Timing.PumpOffSettle,
		ValveSettle:    c.Timing.ValveSettle,
		PumpOnSettle:   c.Timing.PumpOnSettle,
	}
}

func (c *Config) Durations() timer.Durations {
	m := func(n int) time.Duration { return time.Duration(n) * time.Minute }
	t := c.Timeouts
	return timer.Durations{
		Mode: map[equipment.Mode]time.Duration{
			equipment.ModeHeatSpa:    m(t.HeatSpa),
			equipment.ModeHeatPool:   m(t.HeatPool),
			equipment.ModeFillSpa:    m(t.FillSpa),
			equipment.ModeEmptySpa:   m(t.EmptySpa),
			equipment.ModeFilterPool: m(t.FilterPool),
			equipment.ModeFilterSpa:  m(t.FilterSpa),
		},
		PoolLight: m(t.PoolLight),
		SpaJets:   m(t.SpaJets),
	}
}

func (c *Config) DailyStart() (timer.DailyStart, error) {
	s := c.Schedule
	mode, err := equipment.ParseMode(strings.ToUpper(s.Mode))
	if err != nil {
		return timer.DailyStart{}, fmt.Errorf("schedule.mode: %w", err)
	}
	var pm bool
	switch strings.ToUpper(s.AMPM) {
	case "AM":
	case "PM":
		pm = true
	default:
		return timer.DailyStart{}, fmt.Errorf("schedule.ampm must be AM or PM, got %q", s.AMPM)
	}
	return timer.DailyStart{Enabled: s.Enabled, Hour: s.Hour, PM: pm, Mode: mode}, nil
}

func (c *Config) Limits() setpoint.Limits {
	t := c.Temp
	return setpoint.Limits{
		Min:      t.Min,
		MaxPool:  t.MaxPool,
		MaxSpa:   t.MaxSpa,
		Band:     t.Band,
		SensorLo: t.SensorLo,
		SensorHi: t.SensorHi,
	}
}
