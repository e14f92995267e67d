// Package config loads runtime configuration for the orchestrator from an
// optional .env file, an optional config file, and the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds every option enumerated in the external interface spec.
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Store    StoreConfig    `mapstructure:"store"`
	Assets   AssetsConfig   `mapstructure:"assets"`
}

type APIConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type PipelineConfig struct {
	ScriptPath             string `mapstructure:"script_path"`
	OutputsRoot            string `mapstructure:"outputs_root"`
	MaxConcurrentJobs      int    `mapstructure:"max_concurrent_jobs"`
	StopGracePeriodSeconds int    `mapstructure:"stop_grace_period_seconds"`
	ShutdownDrainSeconds   int    `mapstructure:"shutdown_drain_seconds"`
	DefaultThreads         int    `mapstructure:"default_threads"`
}

type StoreConfig struct {
	// Path to the sqlite database file backing the job store.
	Path string `mapstructure:"path"`
}

type AssetsConfig struct {
	InstallRoot             string `mapstructure:"install_root"`
	MaxConcurrentDownloads  int    `mapstructure:"max_concurrent_downloads"`
}

// Load reads .env (if present), then a config file (if present), then
// environment overrides, and returns the fully populated Config.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// No .env file is not an error; environment variables still apply.
	}

	viper.SetConfigType("yaml")
	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.AddConfigPath(".")
		viper.AddConfigPath(filepath.Join(".", "orchestrator"))
		home, _ := os.UserHomeDir()
		if home != "" {
			viper.AddConfigPath(filepath.Join(home, ".orchestrator"))
		}
	}

	viper.SetDefault("api.host", "0.0.0.0")
	viper.SetDefault("api.port", 8080)
	viper.SetDefault("pipeline.script_path", "./pipeline.sh")
	viper.SetDefault("pipeline.outputs_root", "./outputs")
	viper.SetDefault("pipeline.max_concurrent_jobs", 1)
	viper.SetDefault("pipeline.stop_grace_period_seconds", 10)
	viper.SetDefault("pipeline.shutdown_drain_seconds", 30)
	viper.SetDefault("pipeline.default_threads", 8)
	viper.SetDefault("store.path", "./orchestrator.db")
	viper.SetDefault("assets.install_root", "./databases")
	viper.SetDefault("assets.max_concurrent_downloads", 2)

	viper.AutomaticEnv()
	viper.SetEnvPrefix("ARGPIPE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if cfg.Pipeline.MaxConcurrentJobs < 1 {
		return nil, fmt.Errorf("pipeline.max_concurrent_jobs must be >= 1")
	}
	if cfg.Assets.MaxConcurrentDownloads < 1 {
		return nil, fmt.Errorf("assets.max_concurrent_downloads must be >= 1")
	}
	if cfg.Pipeline.StopGracePeriodSeconds < 0 {
		return nil, fmt.Errorf("pipeline.stop_grace_period_seconds must be >= 0")
	}

	return &cfg, nil
}
