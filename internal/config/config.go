package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	AppEnv        string `yaml:"app_env"`
	HTTPAddr      string `yaml:"http_addr"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`

	// StorageDir is the sandbox root; temp_sites and output_zips live under it.
	StorageDir string `yaml:"storage_dir"`
	WgetPath   string `yaml:"wget_path"`

	RetentionMinutes  int `yaml:"retention_minutes"`
	SweepIntervalMins int `yaml:"sweep_interval_minutes"`
	TaskMaxRetries    int `yaml:"task_max_retries"`
	WorkerConcurrency int `yaml:"worker_concurrency"`
}

func (c Config) Retention() time.Duration     { return time.Duration(c.RetentionMinutes) * time.Minute }
func (c Config) SweepInterval() time.Duration { return time.Duration(c.SweepIntervalMins) * time.Minute }

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// Load builds the configuration from defaults, an optional YAML file
// (CONFIG_FILE, falling back to ./config.yaml), and environment variables.
// Environment variables win over the file.
func Load() Config {
	cfg := Config{
		AppEnv:            "development",
		HTTPAddr:          ":8082",
		RedisAddr:         "127.0.0.1:6379",
		StorageDir:        "./storage",
		WgetPath:          "wget",
		RetentionMinutes:  60,
		SweepIntervalMins: 15,
		TaskMaxRetries:    0,
		WorkerConcurrency: 2,
	}

	if path := getenv("CONFIG_FILE", "config.yaml"); path != "" {
		if b, err := os.ReadFile(path); err == nil {
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				panic(fmt.Errorf("config file %s: %w", path, err))
			}
		}
	}

	cfg.AppEnv = getenv("APP_ENV", cfg.AppEnv)
	cfg.HTTPAddr = getenv("HTTP_ADDR", cfg.HTTPAddr)
	cfg.RedisAddr = getenv("REDIS_ADDR", cfg.RedisAddr)
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	cfg.StorageDir = getenv("STORAGE_DIR", cfg.StorageDir)
	cfg.WgetPath = getenv("WGET_PATH", cfg.WgetPath)
	cfg.RetentionMinutes = getenvInt("RETENTION_MINUTES", cfg.RetentionMinutes)
	cfg.SweepIntervalMins = getenvInt("SWEEP_INTERVAL_MINUTES", cfg.SweepIntervalMins)
	cfg.TaskMaxRetries = getenvInt("TASK_MAX_RETRIES", cfg.TaskMaxRetries)
	cfg.WorkerConcurrency = getenvInt("WORKER_CONCURRENCY", cfg.WorkerConcurrency)

	if cfg.RedisAddr == "" {
		panic(fmt.Errorf("REDIS_ADDR is required"))
	}
	return cfg
}
