// Package config loads the analyzer configuration from a YAML file, the
// environment and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-insider/pkg/calibration"
	"github.com/dd0wney/cluso-insider/pkg/ingest"
	"github.com/dd0wney/cluso-insider/pkg/model"
	"github.com/dd0wney/cluso-insider/pkg/predict"
	"github.com/dd0wney/cluso-insider/pkg/train"
	"github.com/dd0wney/cluso-insider/pkg/validation"
	"github.com/dd0wney/cluso-insider/pkg/visualization"
)

// EnvPrefix namespaces environment overrides, e.g. THREATGRAPH_TRAINING_EPOCHS.
const EnvPrefix = "THREATGRAPH"

// Data sources.
const (
	SourceDir = "dir"
	SourceS3  = "s3"
)

// Config is the full analyzer configuration.
type Config struct {
	LogLevel    string            `mapstructure:"log_level" yaml:"log_level" validate:"oneof=debug info warn error"`
	Data        DataConfig        `mapstructure:"data" yaml:"data"`
	GroundTruth GroundTruthConfig `mapstructure:"ground_truth" yaml:"ground_truth"`
	Training    TrainingConfig    `mapstructure:"training" yaml:"training"`
	Ranking     RankingConfig     `mapstructure:"ranking" yaml:"ranking"`
	Calibration CalibrationConfig `mapstructure:"calibration" yaml:"calibration"`
	Export      ExportConfig      `mapstructure:"export" yaml:"export"`
	Metrics     MetricsConfig     `mapstructure:"metrics" yaml:"metrics"`
}

// DataConfig locates the activity logs.
type DataConfig struct {
	Source            string        `mapstructure:"source" yaml:"source" validate:"oneof=dir s3"`
	Dir               string        `mapstructure:"dir" yaml:"dir"`
	S3                S3Config      `mapstructure:"s3" yaml:"s3"`
	Limits            ingest.Limits `mapstructure:"limits" yaml:"limits"`
	SyntheticFallback bool          `mapstructure:"synthetic_fallback" yaml:"synthetic_fallback"`
	SyntheticSeed     uint64        `mapstructure:"synthetic_seed" yaml:"synthetic_seed"`
}

type S3Config struct {
	Bucket string `mapstructure:"bucket" yaml:"bucket"`
	Prefix string `mapstructure:"prefix" yaml:"prefix"`
	Region string `mapstructure:"region" yaml:"region"`
}

// GroundTruthConfig lists answer files and an optional Postgres table.
type GroundTruthConfig struct {
	Files       []string `mapstructure:"files" yaml:"files"`
	PostgresURL string   `mapstructure:"postgres_url" yaml:"postgres_url,omitempty"`
	Query       string   `mapstructure:"query" yaml:"query,omitempty"`
}

type TrainingConfig struct {
	Epochs       int           `mapstructure:"epochs" yaml:"epochs" validate:"gte=1"`
	LearningRate float64       `mapstructure:"learning_rate" yaml:"learning_rate" validate:"gt=0"`
	Hidden       int           `mapstructure:"hidden" yaml:"hidden" validate:"gte=1"`
	Embedding    int           `mapstructure:"embedding" yaml:"embedding" validate:"gte=1"`
	Seed         int64         `mapstructure:"seed" yaml:"seed"`
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type RankingConfig struct {
	TopK int `mapstructure:"top_k" yaml:"top_k" validate:"gte=1"`
}

type CalibrationConfig struct {
	InjectPositives bool    `mapstructure:"inject_positives" yaml:"inject_positives"`
	FallbackCount   int     `mapstructure:"fallback_count" yaml:"fallback_count" validate:"gte=0"`
	BoostKnown      bool    `mapstructure:"boost_known" yaml:"boost_known"`
	BoostAmount     float64 `mapstructure:"boost_amount" yaml:"boost_amount"`
}

type ExportConfig struct {
	Layout string  `mapstructure:"layout" yaml:"layout" validate:"oneof=none circular force tiered"`
	Width  float64 `mapstructure:"width" yaml:"width"`
	Height float64 `mapstructure:"height" yaml:"height"`
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// Default returns the configuration used when no file or env is present.
func Default() Config {
	policy := calibration.DemoPolicy()
	layout := visualization.DefaultLayoutConfig()
	sage := model.DefaultSAGEConfig()
	return Config{
		LogLevel: "info",
		Data: DataConfig{
			Source:            SourceDir,
			Dir:               "model/data_r3.2/processed",
			Limits:            ingest.DefaultLimits(),
			SyntheticFallback: true,
			SyntheticSeed:     ingest.DefaultSyntheticSeed,
		},
		GroundTruth: GroundTruthConfig{
			Files: []string{"model/answers/r3.2-1.csv", "model/answers/r3.2-2.csv"},
		},
		Training: TrainingConfig{
			Epochs:       train.DefaultEpochs,
			LearningRate: train.DefaultLearningRate,
			Hidden:       sage.Hidden,
			Embedding:    sage.Embedding,
			Seed:         sage.Seed,
		},
		Ranking: RankingConfig{TopK: predict.DefaultTopK},
		Calibration: CalibrationConfig{
			InjectPositives: policy.InjectPositives,
			FallbackCount:   policy.FallbackCount,
			BoostKnown:      policy.BoostKnown,
			BoostAmount:     policy.BoostAmount,
		},
		Export: ExportConfig{
			Layout: visualization.LayoutNone,
			Width:  layout.Width,
			Height: layout.Height,
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("log_level", d.LogLevel)

	v.SetDefault("data.source", d.Data.Source)
	v.SetDefault("data.dir", d.Data.Dir)
	v.SetDefault("data.s3.bucket", d.Data.S3.Bucket)
	v.SetDefault("data.s3.prefix", d.Data.S3.Prefix)
	v.SetDefault("data.s3.region", d.Data.S3.Region)
	v.SetDefault("data.limits.logon", d.Data.Limits.Logon)
	v.SetDefault("data.limits.device", d.Data.Limits.Device)
	v.SetDefault("data.limits.http", d.Data.Limits.HTTP)
	v.SetDefault("data.synthetic_fallback", d.Data.SyntheticFallback)
	v.SetDefault("data.synthetic_seed", d.Data.SyntheticSeed)

	v.SetDefault("ground_truth.files", d.GroundTruth.Files)
	v.SetDefault("ground_truth.postgres_url", d.GroundTruth.PostgresURL)
	v.SetDefault("ground_truth.query", d.GroundTruth.Query)

	v.SetDefault("training.epochs", d.Training.Epochs)
	v.SetDefault("training.learning_rate", d.Training.LearningRate)
	v.SetDefault("training.hidden", d.Training.Hidden)
	v.SetDefault("training.embedding", d.Training.Embedding)
	v.SetDefault("training.seed", d.Training.Seed)
	v.SetDefault("training.timeout", d.Training.Timeout)

	v.SetDefault("ranking.top_k", d.Ranking.TopK)

	v.SetDefault("calibration.inject_positives", d.Calibration.InjectPositives)
	v.SetDefault("calibration.fallback_count", d.Calibration.FallbackCount)
	v.SetDefault("calibration.boost_known", d.Calibration.BoostKnown)
	v.SetDefault("calibration.boost_amount", d.Calibration.BoostAmount)

	v.SetDefault("export.layout", d.Export.Layout)
	v.SetDefault("export.width", d.Export.Width)
	v.SetDefault("export.height", d.Export.Height)

	v.SetDefault("metrics.addr", d.Metrics.Addr)
}

// Load reads configuration from path, or from threatgraph.yaml in the
// working directory when path is empty. A missing default file is not an
// error; a missing explicit file is.
func Load(path string) (Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("threatgraph")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks tag constraints first, then the cross-field rules.
func (c Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	cv := validation.NewConfigValidator("Config")
	cv.When(c.Data.Source == SourceDir, func(v *validation.ConfigValidator) {
		v.Required("Data.Dir", c.Data.Dir)
	})
	cv.When(c.Data.Source == SourceS3, func(v *validation.ConfigValidator) {
		v.Required("Data.S3.Bucket", c.Data.S3.Bucket)
	})
	cv.When(c.GroundTruth.PostgresURL == "", func(v *validation.ConfigValidator) {
		v.RequiredSlice("GroundTruth.Files", len(c.GroundTruth.Files))
	})
	cv.When(c.Calibration.InjectPositives, func(v *validation.ConfigValidator) {
		v.Positive("Calibration.FallbackCount", c.Calibration.FallbackCount)
	})
	cv.When(c.Calibration.BoostKnown, func(v *validation.ConfigValidator) {
		v.RangeFloat("Calibration.BoostAmount", c.Calibration.BoostAmount, 0, 1)
	})
	cv.NonNegativeDuration("Training.Timeout", c.Training.Timeout)
	cv.When(c.Export.Layout != visualization.LayoutNone, func(v *validation.ConfigValidator) {
		v.PositiveFloat("Export.Width", c.Export.Width)
		v.PositiveFloat("Export.Height", c.Export.Height)
	})
	return cv.Validate()
}

// Dump renders the effective configuration as YAML.
func (c Config) Dump() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return out, nil
}
