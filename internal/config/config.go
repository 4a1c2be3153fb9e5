// Package config loads application configuration from file and environment
// and installs the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Extract  ExtractConfig  `yaml:"extract" mapstructure:"extract"`
	Boundary BoundaryConfig `yaml:"boundary" mapstructure:"boundary"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the SQLite places database.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ExtractConfig configures the OSM places-of-worship extraction.
type ExtractConfig struct {
	OutputDir     string   `yaml:"output_dir" mapstructure:"output_dir"`
	CountriesFile string   `yaml:"countries_file" mapstructure:"countries_file"`
	Servers       []string `yaml:"servers" mapstructure:"servers"`
	Concurrency   int      `yaml:"concurrency" mapstructure:"concurrency"`
	PaceSecs      int      `yaml:"pace_secs" mapstructure:"pace_secs"`
	TimeoutSecs   int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// BoundaryConfig configures boundary GeoJSON generation.
type BoundaryConfig struct {
	SimplifyTolerance float64 `yaml:"simplify_tolerance" mapstructure:"simplify_tolerance"`
	Encoding          string  `yaml:"encoding" mapstructure:"encoding"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PLACES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.path", "places.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("extract.output_dir", "data/global")
	v.SetDefault("extract.concurrency", 2)
	v.SetDefault("extract.pace_secs", 10)
	v.SetDefault("extract.timeout_secs", 1800)
	v.SetDefault("extract.servers", []string{
		"https://overpass-api.de/api/interpreter",
		"https://overpass.kumi.systems/api/interpreter",
		"https://maps.mail.ru/osm/tools/overpass/api/interpreter",
	})
	v.SetDefault("boundary.simplify_tolerance", 0.02)
	v.SetDefault("boundary.encoding", "utf-8")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
