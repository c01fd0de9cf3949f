// Package config loads the yaml configuration shared by the server and the
// bulk loader.
package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

// DefaultPath is used when LUNGSURV_CONFIG is not set.
const DefaultPath = "config.yaml"

type Config struct {
	Http   HTTPConfig   `yaml:"http"`
	Log    LogConfig    `yaml:"log"`
	ML     MLConfig     `yaml:"ml"`
	Loader LoaderConfig `yaml:"loader"`
}

type HTTPConfig struct {
	Port           int           `yaml:"port"`
	Timeout        time.Duration `yaml:"timeout"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	Encoding   string `yaml:"encoding"` // console or json
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type MLConfig struct {
	ModelPath string        `yaml:"model_path"`
	ModelType string        `yaml:"model_type"` // empty means read from the artifact
	Endpoint  string        `yaml:"endpoint"`
	Timeout   time.Duration `yaml:"timeout"`
	CacheSize int           `yaml:"cache_size"`
}

type LoaderConfig struct {
	CSVPath     string `yaml:"csv_path"`
	Encoding    string `yaml:"encoding"`
	Table       string `yaml:"table"`
	Driver      string `yaml:"driver"`
	DSN         string `yaml:"dsn"`
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	Database    string `yaml:"database"`
	User        string `yaml:"user"`
	Password    string `yaml:"password"`
	PreviewRows int    `yaml:"preview_rows"`
}

// Default returns the configuration used when no file is present. The loader
// defaults target the local MySQL export database.
func Default() *Config {
	return &Config{
		Http: HTTPConfig{
			Port:           8501,
			Timeout:        30 * time.Second,
			MaxBodyBytes:   1 << 20,
			AllowedOrigins: []string{"*"},
		},
		Log: LogConfig{
			Level:      "info",
			Encoding:   "console",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 14,
		},
		ML: MLConfig{
			ModelPath: "best_lung_cancer_model.json",
			Timeout:   10 * time.Second,
			CacheSize: 4,
		},
		Loader: LoaderConfig{
			CSVPath:     "preprocessed_lung_cancer_output/part-00000.csv",
			Encoding:    "utf-8",
			Table:       "preprocessed_lung_data",
			Driver:      "mysql",
			Host:        "localhost",
			Port:        3306,
			Database:    "lung_cancer_db",
			User:        "root",
			Password:    "root",
			PreviewRows: 5,
		},
	}
}

// Path returns the config file location, honouring LUNGSURV_CONFIG.
func Path() string {
	if p := os.Getenv("LUNGSURV_CONFIG"); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	file, err := os.Open(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		defer file.Close()
		if err := yaml.NewDecoder(file).Decode(cfg); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()
	cfg.fillDefaults()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("LUNGSURV_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Http.Port = port
		}
	}
	if v := os.Getenv("LUNGSURV_MODEL_PATH"); v != "" {
		c.ML.ModelPath = v
	}
	if v := os.Getenv("LUNGSURV_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("LUNGSURV_DB_DSN"); v != "" {
		c.Loader.DSN = v
	}
	if v := os.Getenv("LUNGSURV_DB_PASSWORD"); v != "" {
		c.Loader.Password = v
	}
}

// fillDefaults restores zero values a partial yaml file left behind.
func (c *Config) fillDefaults() {
	def := Default()
	if c.Http.Port <= 0 {
		c.Http.Port = def.Http.Port
	}
	if c.Http.Timeout <= 0 {
		c.Http.Timeout = def.Http.Timeout
	}
	if c.Http.MaxBodyBytes <= 0 {
		c.Http.MaxBodyBytes = def.Http.MaxBodyBytes
	}
	if len(c.Http.AllowedOrigins) == 0 {
		c.Http.AllowedOrigins = def.Http.AllowedOrigins
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Log.Encoding == "" {
		c.Log.Encoding = def.Log.Encoding
	}
	if c.ML.ModelPath == "" {
		c.ML.ModelPath = def.ML.ModelPath
	}
	if c.ML.Timeout <= 0 {
		c.ML.Timeout = def.ML.Timeout
	}
	if c.ML.CacheSize <= 0 {
		c.ML.CacheSize = def.ML.CacheSize
	}
	if c.Loader.Encoding == "" {
		c.Loader.Encoding = def.Loader.Encoding
	}
	if c.Loader.Table == "" {
		c.Loader.Table = def.Loader.Table
	}
	if c.Loader.Driver == "" {
		c.Loader.Driver = def.Loader.Driver
	}
	if c.Loader.PreviewRows <= 0 {
		c.Loader.PreviewRows = def.Loader.PreviewRows
	}
}
