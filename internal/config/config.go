// Package config loads mapcraft settings from mapcraft.yaml and MAPCRAFT_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	DataDir     string `mapstructure:"data_dir"`
	OutputDir   string `mapstructure:"output_dir"`
	CatalogFile string `mapstructure:"catalog_file"`
	TemplateDir string `mapstructure:"template_dir"`
	RunsFile    string `mapstructure:"runs_file"`

	DPI                   float64       `mapstructure:"dpi"`
	BasemapTimeout        time.Duration `mapstructure:"basemap_timeout"`
	LegendMaxChars        int           `mapstructure:"legend_max_chars"`
	DefaultCRSDescription string        `mapstructure:"default_crs_description"`
	Creator               string        `mapstructure:"creator"`

	Log LogConfig `mapstructure:"log"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		DataDir:               "./data",
		OutputDir:             "./output",
		RunsFile:              "./data/runs.json",
		DPI:                   300,
		BasemapTimeout:        60 * time.Second,
		LegendMaxChars:        40,
		DefaultCRSDescription: "ETRS89 / UTM zone 32N",
		Log:                   LogConfig{Level: "info", Format: "console"},
	}
}

// Load reads path, or mapcraft.yaml in . and ./config when path is empty.
// A missing default file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix("MAPCRAFT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("mapcraft")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.DPI <= 0 || cfg.DPI > 1200 {
		return nil, fmt.Errorf("dpi must be in (0, 1200], got %v", cfg.DPI)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("output_dir", d.OutputDir)
	v.SetDefault("catalog_file", d.CatalogFile)
	v.SetDefault("template_dir", d.TemplateDir)
	v.SetDefault("runs_file", d.RunsFile)
	v.SetDefault("dpi", d.DPI)
	v.SetDefault("basemap_timeout", d.BasemapTimeout)
	v.SetDefault("legend_max_chars", d.LegendMaxChars)
	v.SetDefault("default_crs_description", d.DefaultCRSDescription)
	v.SetDefault("creator", d.Creator)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}
