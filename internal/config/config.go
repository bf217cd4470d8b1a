package config

import (
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv  = "STOCK_PREDICTOR_CONFIG"
	serverAddrEnv  = "STOCK_PREDICTOR_ADDR"
	historyPathEnv = "STOCK_PREDICTOR_HISTORY"
	logLevelEnv    = "STOCK_PREDICTOR_LOG_LEVEL"
	modelPathEnv   = "STOCK_PREDICTOR_MODEL"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Server    ServerConfig    `yaml:"server"`
	Sanitizer SanitizerConfig `yaml:"sanitizer"`
	Training  TrainingConfig  `yaml:"training"`
	Model     ModelConfig     `yaml:"model"`
	Storage   StorageConfig   `yaml:"storage"`
}

// LoggingConfig controls log verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// ServerConfig describes the REST listener.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// SanitizerConfig exposes the sparse-data thresholds. They are heuristics,
// not load-bearing constants, so they live in configuration.
type SanitizerConfig struct {
	RowDropRatio    float64 `yaml:"rowDropRatio"`
	ColumnDropRatio float64 `yaml:"columnDropRatio"`
}

// TrainingConfig carries defaults for training requests and the sizing guards.
type TrainingConfig struct {
	MinRows      int     `yaml:"minRows"`
	TrainSplit   float64 `yaml:"trainSplit"`
	Epochs       int     `yaml:"epochs"`
	BatchSize    int     `yaml:"batchSize"`
	Hidden       []int   `yaml:"hidden"`
	LearningRate float64 `yaml:"learningRate"`
}

// ModelConfig describes the default artifact location for CLI save/load.
type ModelConfig struct {
	Path string `yaml:"path"`
}

// StorageConfig points at the optional training-run history database.
// An empty path disables history.
type StorageConfig struct {
	HistoryPath string `yaml:"historyPath"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(serverAddrEnv); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv(historyPathEnv); v != "" {
		c.Storage.HistoryPath = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(modelPathEnv); v != "" {
		c.Model.Path = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Server.Addr != "" {
		base.Server.Addr = override.Server.Addr
	}

	if override.Sanitizer.RowDropRatio > 0 {
		base.Sanitizer.RowDropRatio = override.Sanitizer.RowDropRatio
	}
	if override.Sanitizer.ColumnDropRatio > 0 {
		base.Sanitizer.ColumnDropRatio = override.Sanitizer.ColumnDropRatio
	}

	if override.Training.MinRows > 0 {
		base.Training.MinRows = override.Training.MinRows
	}
	if override.Training.TrainSplit > 0 {
		base.Training.TrainSplit = override.Training.TrainSplit
	}
	if override.Training.Epochs > 0 {
		base.Training.Epochs = override.Training.Epochs
	}
	if override.Training.BatchSize > 0 {
		base.Training.BatchSize = override.Training.BatchSize
	}
	if len(override.Training.Hidden) > 0 {
		base.Training.Hidden = override.Training.Hidden
	}
	if override.Training.LearningRate > 0 {
		base.Training.LearningRate = override.Training.LearningRate
	}

	if override.Model.Path != "" {
		base.Model.Path = override.Model.Path
	}
	if override.Storage.HistoryPath != "" {
		base.Storage.HistoryPath = override.Storage.HistoryPath
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging:   LoggingConfig{Level: "info"},
		Server:    ServerConfig{Addr: ":8000"},
		Sanitizer: SanitizerConfig{RowDropRatio: 0.5, ColumnDropRatio: 0.8},
		Training: TrainingConfig{
			MinRows:      10,
			TrainSplit:   0.8,
			Epochs:       50,
			BatchSize:    32,
			Hidden:       []int{64, 32},
			LearningRate: 0.001,
		},
		Model:   ModelConfig{Path: "ann_model.json"},
		Storage: StorageConfig{HistoryPath: ""},
	}
}
