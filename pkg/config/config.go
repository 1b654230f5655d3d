// Package config loads the pipeline configuration from a YAML document,
// an optional .env file and NIHX_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/willbeason/nih-exporter/pkg/link"
	"github.com/willbeason/nih-exporter/pkg/logging"
	"github.com/willbeason/nih-exporter/pkg/outcomes"
)

// EnvPrefix prefixes every environment override, as in NIHX_WORKERS.
const EnvPrefix = "NIHX"

// DefaultPath is read when a tool is not given --config.
const DefaultPath = "config/config.yaml"

var ErrConfig = errors.New("loading configuration")

// Stage names, also the default output subdirectory of each stage.
const (
	StagePreprocess = "preprocess"
	StageMetrics    = "metrics"
	StageKeywords   = "keywords"
	StageFinalize   = "finalize"
)

// Keywords are the seed vocabularies.
type Keywords struct {
	Treatment []string `yaml:"treatment"`
	Disease   []string `yaml:"disease"`
}

type Config struct {
	Folder     string   `yaml:"folder" envconfig:"FOLDER" validate:"required"`
	Subfolders []string `yaml:"subfolders" envconfig:"SUBFOLDERS" validate:"required,min=1,dive,required"`
	Parallel   bool     `yaml:"parallel" envconfig:"PARALLEL"`
	Workers    int      `yaml:"workers" envconfig:"WORKERS" validate:"min=1"`
	Encoding   string   `yaml:"encoding" envconfig:"ENCODING"`

	RenameColumns map[string]string   `yaml:"rename_columns_map" ignored:"true"`
	DropColumns   map[string][]string `yaml:"drop_col_header_map" ignored:"true"`
	ForceAppend   bool                `yaml:"force_append" envconfig:"FORCE_APPEND"`
	DedupePerFile bool                `yaml:"dedupe_per_file" envconfig:"DEDUPE_PER_FILE"`

	Link     link.Spec           `yaml:"link" ignored:"true"`
	Outcomes []outcomes.Category `yaml:"outcomes" ignored:"true" validate:"dive"`

	Keywords        Keywords `yaml:"keywords" ignored:"true"`
	RemoveStopwords bool     `yaml:"remove_stopwords" envconfig:"REMOVE_STOPWORDS"`
	TextColumns     []string `yaml:"text_columns" envconfig:"TEXT_COLUMNS"`

	MLColumns        []string `yaml:"ml_columns" envconfig:"ML_COLUMNS"`
	CutoffValue      int64    `yaml:"cutoff_value" envconfig:"CUTOFF_VALUE" validate:"min=0"`
	ExportDropOutput bool     `yaml:"export_drop_output" envconfig:"EXPORT_DROP_OUTPUT"`

	OutputDir     string `yaml:"output_dir" envconfig:"OUTPUT_DIR" validate:"required"`
	PreprocessDir string `yaml:"preprocess_dir" envconfig:"PREPROCESS_DIR"`
	MetricsDir    string `yaml:"metrics_dir" envconfig:"METRICS_DIR"`
	KeywordsDir   string `yaml:"keywords_dir" envconfig:"KEYWORDS_DIR"`
	FinalizeDir   string `yaml:"finalize_dir" envconfig:"FINALIZE_DIR"`

	LogsDir   string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
	LogFile   string `yaml:"log_file" envconfig:"LOG_FILE"`
	LogLevel  string `yaml:"loglevel" envconfig:"LOGLEVEL" validate:"omitempty,oneof=debug info warn warning error"`
	LogFormat string `yaml:"log_format" envconfig:"LOG_FORMAT" validate:"omitempty,oneof=text json"`
	LogOutput string `yaml:"log_output" envconfig:"LOG_OUTPUT" validate:"omitempty,oneof=console file both none"`

	// LogToFile and LogToConsole select LogOutput when present.
	LogToFile    *bool `yaml:"log_to_file" ignored:"true"`
	LogToConsole *bool `yaml:"log_to_console" ignored:"true"`

	Progress bool   `yaml:"progress" envconfig:"PROGRESS"`
	ReportDB string `yaml:"report_db" envconfig:"REPORT_DB"`
}

// Default returns the configuration used for keys a document leaves out.
func Default() *Config {
	return &Config{
		Workers:       runtime.NumCPU(),
		Encoding:      "latin1",
		DedupePerFile: true,
		Link:          link.DefaultSpec(),
		Outcomes:      outcomes.DefaultCategories(),
		TextColumns:   []string{"PROJECT_TITLE", "ABSTRACT_TEXT", "PHR", "PROJECT_TERMS"},
		OutputDir:     "output",
		LogsDir:       "logs",
		LogFile:       "pipeline.log",
		LogLevel:      "info",
		LogFormat:     "text",
		LogOutput:     "both",
	}
}

// Load reads the YAML document at path over the defaults, then applies a
// .env file found next to it and NIHX_* environment variables, and
// validates the result.
func Load(path string) (*Config, error) {
	envPath := filepath.Join(filepath.Dir(path), ".env")
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return nil, fmt.Errorf("%w: reading %q: %w", ErrConfig, envPath, err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a YAML document over the defaults, applies environment
// overrides and validates the result. Unknown keys are an error.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: decoding: %w", ErrConfig, err)
	}
	cfg.applyLogTargets()

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("%w: environment: %w", ErrConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Report fields by their YAML key.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks required keys and value ranges.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}

	messages := make([]string, len(fieldErrors))
	for i, fe := range fieldErrors {
		messages[i] = formatFieldError(fe)
	}
	return fmt.Errorf("%w: %s", ErrConfig, strings.Join(messages, "; "))
}

func formatFieldError(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%s failed %q", field, fe.Tag())
	}
}

// applyLogTargets folds log_to_file and log_to_console into LogOutput. A
// flag left out keeps its current setting.
func (c *Config) applyLogTargets() {
	if c.LogToFile == nil && c.LogToConsole == nil {
		return
	}

	toFile := c.LogOutput == "file" || c.LogOutput == "both"
	toConsole := c.LogOutput == "console" || c.LogOutput == "both"
	if c.LogToFile != nil {
		toFile = *c.LogToFile
	}
	if c.LogToConsole != nil {
		toConsole = *c.LogToConsole
	}

	switch {
	case toFile && toConsole:
		c.LogOutput = "both"
	case toFile:
		c.LogOutput = "file"
	case toConsole:
		c.LogOutput = "console"
	default:
		c.LogOutput = "none"
	}
}

// StageDir is the output directory of a stage: its configured directory,
// or <output_dir>/<stage>.
func (c *Config) StageDir(stage string) string {
	var dir string
	switch stage {
	case StagePreprocess:
		dir = c.PreprocessDir
	case StageMetrics:
		dir = c.MetricsDir
	case StageKeywords:
		dir = c.KeywordsDir
	case StageFinalize:
		dir = c.FinalizeDir
	}
	if dir != "" {
		return dir
	}
	return filepath.Join(c.OutputDir, stage)
}

// Logging returns the logger settings.
func (c *Config) Logging() logging.Config {
	return logging.Config{
		Level:  c.LogLevel,
		Format: c.LogFormat,
		Output: c.LogOutput,
		Dir:    c.LogsDir,
		File:   c.LogFile,
	}
}
