package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apperrors "vaxcli/internal/errors"
	"vaxcli/internal/pipeline"
	"vaxcli/internal/vaccination"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Pipeline  PipelineConfig  `yaml:"pipeline" envconfig:"PIPELINE"`
	Ingest    IngestConfig    `yaml:"ingest" envconfig:"INGEST"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int             `yaml:"port" envconfig:"PORT" validate:"gt=0,lte=65535"`
	ReadTimeout     time.Duration   `yaml:"read_timeout" envconfig:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout    time.Duration   `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"gt=0"`
	IdleTimeout     time.Duration   `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" validate:"gte=0"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" validate:"gt=0"`
	RateLimit       RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" validate:"gt=0"`
	Burst   int     `yaml:"burst" envconfig:"BURST" validate:"gt=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Format   string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json text"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" validate:"required_unless=Output console"`
}

// PipelineConfig holds the heuristic constants and the optional stages.
// Lags and windows are whole days.
type PipelineConfig struct {
	AbsTolerance       float64 `yaml:"abs_tolerance" envconfig:"ABS_TOLERANCE" validate:"gte=0"`
	RelTolerance       float64 `yaml:"rel_tolerance" envconfig:"REL_TOLERANCE" validate:"gte=0,lte=1"`
	DoseLagDays        int     `yaml:"dose_lag_days" envconfig:"DOSE_LAG_DAYS" validate:"gt=0"`
	WaitDays           int     `yaml:"wait_days" envconfig:"WAIT_DAYS" validate:"gt=0"`
	ForecastWindowDays int     `yaml:"forecast_window_days" envconfig:"FORECAST_WINDOW_DAYS" validate:"gt=0"`
	ForecastWeeks      int     `yaml:"forecast_weeks" envconfig:"FORECAST_WEEKS" validate:"gte=1,lte=520"`
	FirstDailyData     string  `yaml:"first_daily_data" envconfig:"FIRST_DAILY_DATA" validate:"datetime=2006-01-02"`

	InputCumulative  bool `yaml:"input_cumulative" envconfig:"INPUT_CUMULATIVE"`
	OutputCumulative bool `yaml:"output_cumulative" envconfig:"OUTPUT_CUMULATIVE"`
	Forecast         bool `yaml:"forecast" envconfig:"FORECAST"`
	DoseTiming       bool `yaml:"dose_timing" envconfig:"DOSE_TIMING"`
}

// IngestConfig restricts accepted input values. Empty lists accept anything.
type IngestConfig struct {
	Groups    []string `yaml:"groups" envconfig:"GROUPS"`
	Locations []string `yaml:"locations" envconfig:"LOCATIONS"`
	Sheet     string   `yaml:"sheet" envconfig:"SHEET" validate:"required"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	Input     string `yaml:"input" envconfig:"INPUT"`
	OutputDir string `yaml:"output_dir" envconfig:"OUTPUT_DIR" validate:"required"`
}

// TelemetryConfig selects the trace and metric exporters
type TelemetryConfig struct {
	ServiceName    string  `yaml:"service_name" envconfig:"SERVICE_NAME" validate:"required"`
	TraceExporter  string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" validate:"oneof=none stdout"`
	MetricExporter string  `yaml:"metric_exporter" envconfig:"METRIC_EXPORTER" validate:"oneof=none prometheus"`
	SampleRatio    float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO" validate:"gte=0,lte=1"`
}

// Load builds the configuration from defaults, the optional YAML file named
// by VAX_CONFIG_FILE and VAX_* environment variables, in increasing order of
// precedence.
func Load() (*Config, error) {
	return LoadFile(os.Getenv(EnvConfigFile))
}

// LoadFile is like Load with an explicit config file. An empty path skips
// the file layer.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, apperrors.NewConfigError(fmt.Sprintf("failed to load config from %s", path), err)
		}
	}

	// Fields without a matching variable keep their current value.
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, apperrors.NewConfigError("failed to load config from env", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, apperrors.NewConfigError("config validation failed", err)
	}

	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg. Keys missing from the file
// keep their current value.
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

var configValidator = validator.New()

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return err
	}
	if _, err := c.Pipeline.Params(); err != nil {
		return err
	}
	return nil
}

// Params converts the pipeline section into engine parameters
func (p PipelineConfig) Params() (pipeline.Params, error) {
	first, err := vaccination.ParseDate(p.FirstDailyData)
	if err != nil {
		return pipeline.Params{}, fmt.Errorf("first_daily_data: %w", err)
	}

	params := pipeline.Params{
		AbsTolerance:   p.AbsTolerance,
		RelTolerance:   p.RelTolerance,
		DoseLag:        time.Duration(p.DoseLagDays) * 24 * time.Hour,
		WaitPeriod:     time.Duration(p.WaitDays) * 24 * time.Hour,
		ForecastWindow: time.Duration(p.ForecastWindowDays) * 24 * time.Hour,
		ForecastWeeks:  p.ForecastWeeks,
		FirstDailyData: first,
	}
	if err := params.Validate(); err != nil {
		return pipeline.Params{}, err
	}
	return params, nil
}

// Options converts the stage toggles into registry options
func (p PipelineConfig) Options() pipeline.Options {
	return pipeline.Options{
		InputCumulative:  p.InputCumulative,
		OutputCumulative: p.OutputCumulative,
		Forecast:         p.Forecast,
		DoseTiming:       p.DoseTiming,
	}
}

// Default returns default configuration
func Default() *Config {
	params := pipeline.DefaultParams()
	opts := pipeline.DefaultOptions()

	return &Config{
		Server: ServerConfig{
			Port:            DefaultPort,
			ReadTimeout:     DefaultReadTimeout,
			WriteTimeout:    DefaultWriteTimeout,
			IdleTimeout:     DefaultIdleTimeout,
			ShutdownTimeout: DefaultShutdownTimeout,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     DefaultRateLimit,
				Burst:   DefaultBurstSize,
			},
		},
		Logging: LoggingConfig{
			Level:    DefaultLogLevel,
			Format:   DefaultLogFormat,
			Output:   DefaultLogOutput,
			FilePath: DefaultLogFile,
		},
		Pipeline: PipelineConfig{
			AbsTolerance:       params.AbsTolerance,
			RelTolerance:       params.RelTolerance,
			DoseLagDays:        int(params.DoseLag / (24 * time.Hour)),
			WaitDays:           int(params.WaitPeriod / (24 * time.Hour)),
			ForecastWindowDays: int(params.ForecastWindow / (24 * time.Hour)),
			ForecastWeeks:      params.ForecastWeeks,
			FirstDailyData:     params.FirstDailyData.Format(vaccination.DateLayout),
			InputCumulative:    opts.InputCumulative,
			OutputCumulative:   opts.OutputCumulative,
			Forecast:           opts.Forecast,
			DoseTiming:         opts.DoseTiming,
		},
		Ingest: IngestConfig{
			Sheet: DefaultSheetName,
		},
		Paths: PathsConfig{
			OutputDir: DefaultOutputDir,
		},
		Telemetry: TelemetryConfig{
			ServiceName:    DefaultServiceName,
			TraceExporter:  "none",
			MetricExporter: "prometheus",
			SampleRatio:    1.0,
		},
	}
}
