// Package config loads pipeline settings from a YAML file and the
// environment.
//
// Precedence, lowest first: Default values, the YAML file, then LOANRISK_*
// environment variables. A variable only overrides when it is set.
package config

import (
	"os"
	"reflect"
	"strings"

	"github.com/YuminosukeSato/loanrisk/pkg/errors"
	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. LOANRISK_TRAIN_PATH.
const EnvPrefix = "LOANRISK"

// Config drives a pipeline run.
type Config struct {
	TrainPath    string `yaml:"train_path" envconfig:"TRAIN_PATH" validate:"required"`
	TestPath     string `yaml:"test_path" envconfig:"TEST_PATH" validate:"required"`
	TemplatePath string `yaml:"template_path" envconfig:"TEMPLATE_PATH"`
	OutputPath   string `yaml:"output_path" envconfig:"OUTPUT_PATH" validate:"required"`

	IDColumn     string `yaml:"id_column" envconfig:"ID_COLUMN" validate:"required"`
	TargetColumn string `yaml:"target_column" envconfig:"TARGET_COLUMN" validate:"required,nefield=IDColumn"`

	CorrelationThreshold float64 `yaml:"correlation_threshold" envconfig:"CORRELATION_THRESHOLD" validate:"gt=0,lte=1"`
	MissingThreshold     float64 `yaml:"missing_threshold" envconfig:"MISSING_THRESHOLD" validate:"gt=0,lte=1"`
	ValidationSize       float64 `yaml:"validation_size" envconfig:"VALIDATION_SIZE" validate:"gt=0,lt=1"`
	RandomSeed           uint64  `yaml:"random_seed" envconfig:"RANDOM_SEED"`

	Scaler string `yaml:"scaler" envconfig:"SCALER" validate:"oneof=minmax standard"`

	// 0 disables PCA and cross-validation respectively.
	PCAComponents int `yaml:"pca_components" envconfig:"PCA_COMPONENTS" validate:"gte=0"`
	CVFolds       int `yaml:"cv_folds" envconfig:"CV_FOLDS" validate:"omitempty,gte=2"`

	CompareModels bool   `yaml:"compare_models" envconfig:"COMPARE_MODELS"`
	ClassWeight   string `yaml:"class_weight" envconfig:"CLASS_WEIGHT" validate:"omitempty,oneof=balanced none"`
	MaxIter       int    `yaml:"max_iter" envconfig:"MAX_ITER" validate:"gt=0"`

	PlotsDir string `yaml:"plots_dir" envconfig:"PLOTS_DIR"`
	LogLevel string `yaml:"log_level" envconfig:"LOG_LEVEL" validate:"oneof=debug info warn error"`
}

// Default returns a Config with every optional field set. Paths and column
// names are left empty.
func Default() *Config {
	return &Config{
		CorrelationThreshold: 0.90,
		MissingThreshold:     0.6,
		ValidationSize:       0.2,
		RandomSeed:           42,
		MaxIter:              1000,
		Scaler:               "minmax",
		LogLevel:             "info",
	}
}

// Load reads path (skipped when empty), applies environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", path)
		}
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, errors.Wrap(err, "environment overrides")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report yaml keys rather than Go field names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks field ranges and required settings. The first failing
// field is returned as a *errors.ValidationError.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		reason := "failed '" + fe.Tag() + "'"
		if fe.Param() != "" {
			reason += " (" + fe.Param() + ")"
		}
		return errors.NewValidationError(fe.Field(), reason, fe.Value())
	}
	return errors.Wrap(err, "validate config")
}
