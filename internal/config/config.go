package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"building_automation/internal/engine"
	"building_automation/internal/models"

	"github.com/spf13/viper"
)

// Config is the typed view of configs/config.yml. Every key can be overridden by an
// environment variable with the BAS_ prefix, e.g. BAS_PORT or BAS_DB_PATH.
type Config struct {
	Port       string            `mapstructure:"port"`
	DB         DBConfig          `mapstructure:"db"`
	Log        LogConfig         `mapstructure:"log"`
	Auth       AuthConfig        `mapstructure:"auth"`
	Controller ControllerConfig  `mapstructure:"controller"`
	Thresholds engine.Thresholds `mapstructure:"thresholds"`
	Schedule   []ScheduleEntry   `mapstructure:"schedule"`
	Macros     []MacroEntry      `mapstructure:"macros"`
	MQTT       MQTTConfig        `mapstructure:"mqtt"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // console or json
}

type AuthConfig struct {
	SigningKey string        `mapstructure:"signing_key"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
}

// ControllerConfig drives the decision loop.
type ControllerConfig struct {
	TickInterval  time.Duration `mapstructure:"tick_interval"`
	InitialMode   string        `mapstructure:"initial_mode"`
	Timezone      string        `mapstructure:"timezone"`       // IANA name; schedule windows are local to it
	SimulatorSeed int64         `mapstructure:"simulator_seed"` // 0 seeds from the clock
}

// ScheduleEntry is one schedule rule as written in YAML ("22:00" - "06:00").
type ScheduleEntry struct {
	Name         string  `mapstructure:"name"`
	Start        string  `mapstructure:"start"`
	End          string  `mapstructure:"end"`
	Lighting     int     `mapstructure:"lighting"`
	TemperatureC float64 `mapstructure:"temperature_c"`
	DoorLock     string  `mapstructure:"door_lock"`
}

// MacroEntry is one macro as written in YAML.
type MacroEntry struct {
	Name         string  `mapstructure:"name"`
	Lighting     int     `mapstructure:"lighting"`
	TemperatureC float64 `mapstructure:"temperature_c"`
	DoorLock     string  `mapstructure:"door_lock"`
}

// MQTTConfig configures the optional actuator state publisher.
type MQTTConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Broker      string `mapstructure:"broker"` // tcp://host:1883
	ClientID    string `mapstructure:"client_id"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	TopicPrefix string `mapstructure:"topic_prefix"`
	QoS         int    `mapstructure:"qos"`
}

const envPrefix = "BAS"

var errNoMode = errors.New("controller.initial_mode is not a known mode")

// Load reads config.yml from the given directories (default "configs") and applies
// defaults and environment overrides. A missing file is not an error.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	if len(paths) == 0 {
		paths = []string{"configs"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{Thresholds: engine.DefaultThresholds()}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if len(cfg.Macros) == 0 {
		cfg.Macros = DefaultMacros()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("db.path", "bas.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("auth.signing_key", "change-me")
	v.SetDefault("auth.token_ttl", time.Hour)
	v.SetDefault("controller.tick_interval", 5*time.Second)
	v.SetDefault("controller.initial_mode", string(models.ModeManual))
	v.SetDefault("controller.timezone", "Local")
	v.SetDefault("controller.simulator_seed", 0)
	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.client_id", "bas-controller")
	v.SetDefault("mqtt.topic_prefix", "bas")
	v.SetDefault("mqtt.qos", 1)
}

// DefaultMacros are the built-in macros used when the config defines none.
func DefaultMacros() []MacroEntry {
	return []MacroEntry{
		{Name: "Morning", Lighting: 100, TemperatureC: 22, DoorLock: "unlocked"},
		{Name: "Day", Lighting: 100, TemperatureC: 23, DoorLock: "unlocked"},
		{Name: "Evening", Lighting: 100, TemperatureC: 21, DoorLock: "locked"},
		{Name: "Night", Lighting: 0, TemperatureC: 19, DoorLock: "locked"},
		{Name: "Away", Lighting: 0, TemperatureC: 18, DoorLock: "locked"},
		{Name: "AllOn", Lighting: 100, TemperatureC: 22, DoorLock: "unlocked"},
		{Name: "AllOff", Lighting: 0, TemperatureC: 20, DoorLock: "locked"},
	}
}

// Validate checks values the controller cannot start without.
func (c *Config) Validate() error {
	if !models.ParseMode(c.Controller.InitialMode).Valid() {
		return fmt.Errorf("%w: %q", errNoMode, c.Controller.InitialMode)
	}
	if c.Controller.TickInterval <= 0 {
		return fmt.Errorf("controller.tick_interval must be positive, got %s", c.Controller.TickInterval)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if err := c.Thresholds.Validate(); err != nil {
		return err
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", c.MQTT.QoS)
	}
	return nil
}

// InitialMode returns the parsed controller.initial_mode.
func (c *Config) InitialMode() models.OperatingMode {
	return models.ParseMode(c.Controller.InitialMode)
}

// Location resolves controller.timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Controller.Timezone)
	if err != nil {
		return nil, fmt.Errorf("controller.timezone %q: %w", c.Controller.Timezone, err)
	}
	return loc, nil
}

// ScheduleRules converts the schedule entries into rules. Overlaps are detected later,
// when the rules are added to the schedule table.
func (c *Config) ScheduleRules() ([]models.ScheduleRule, error) {
	rules := make([]models.ScheduleRule, 0, len(c.Schedule))
	for i, e := range c.Schedule {
		start, err := models.ParseClock(e.Start)
		if err != nil {
			return nil, fmt.Errorf("schedule[%d] start: %w", i, err)
		}
		end, err := models.ParseClock(e.End)
		if err != nil {
			return nil, fmt.Errorf("schedule[%d] end: %w", i, err)
		}
		lock, err := models.ParseDoorLock(e.DoorLock)
		if err != nil {
			return nil, fmt.Errorf("schedule[%d]: %w", i, err)
		}
		rules = append(rules, models.ScheduleRule{
			Name:   e.Name,
			Window: models.TimeWindow{Start: start, End: end},
			Targets: models.Targets{
				Lighting:     models.Lighting(e.Lighting),
				TemperatureC: e.TemperatureC,
				DoorLock:     lock,
			},
		})
	}
	return rules, nil
}

// MacroSet converts the macro entries into macros.
func (c *Config) MacroSet() ([]models.Macro, error) {
	macros := make([]models.Macro, 0, len(c.Macros))
	for _, e := range c.Macros {
		lock, err := models.ParseDoorLock(e.DoorLock)
		if err != nil {
			return nil, fmt.Errorf("macro %q: %w", e.Name, err)
		}
		macros = append(macros, models.Macro{
			Name: e.Name,
			Targets: models.Targets{
				Lighting:     models.Lighting(e.Lighting),
				TemperatureC: e.TemperatureC,
				DoorLock:     lock,
			},
		})
	}
	return macros, nil
}
