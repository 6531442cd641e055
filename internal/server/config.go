package server

import (
	"os"

	yaml "gopkg.in/yaml.v2"

	"incidentcast/pkg/errors"
	"incidentcast/pkg/log"
)

// Config holds the inference service configuration.
type Config struct {
	Addr         string `yaml:"addr"`
	ArtifactsDir string `yaml:"artifacts_dir"`
	DatasetPath  string `yaml:"dataset_path"`

	// SimilarLimit bounds the /similar response size.
	SimilarLimit int `yaml:"similar_limit"`

	// HistoryCacheSize is the LRU capacity for per-country history results.
	HistoryCacheSize int `yaml:"history_cache_size"`

	AllowedOrigins []string `yaml:"allowed_origins"`

	Log log.Config `yaml:"log"`
}

// DefaultConfig mirrors the development layout: artifacts under ./models,
// dataset at ./gt.csv.
func DefaultConfig() Config {
	return Config{
		Addr:             ":8000",
		ArtifactsDir:     "models",
		DatasetPath:      "gt.csv",
		SimilarLimit:     50,
		HistoryCacheSize: 128,
		AllowedOrigins:   []string{"*"},
		Log:              log.Config{Level: "info"},
	}
}

// LoadConfig reads a YAML config file over the defaults. An empty path
// returns the defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "cannot read config %s", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "cannot parse config %s", path)
	}

	if cfg.SimilarLimit <= 0 {
		cfg.SimilarLimit = 50
	}
	if cfg.HistoryCacheSize <= 0 {
		cfg.HistoryCacheSize = 128
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8000"
	}
	return cfg, nil
}
