package config

import "time"

// Application constants
const (
	// Application Info
	AppName    = "vaxcli"
	AppVersion = "1.0.0"

	// Environment
	EnvPrefix     = "VAX"
	EnvConfigFile = "VAX_CONFIG_FILE"

	// File Paths (relative to the working directory)
	DefaultOutputDir = "out"
	DefaultLogFile   = "logs/vaxcli.log"
	DefaultSheetName = "vaccinated"

	// Log Settings
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
	DefaultLogOutput = "console"

	// Server
	DefaultPort            = 8080
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	// Rate Limiting
	DefaultRateLimit = 100 // requests per second
	DefaultBurstSize = 50

	// Telemetry
	DefaultServiceName = "vaxcli"
)

// API Endpoints
const (
	APIBasePath         = "/api"
	HealthEndpoint      = "/api/health"
	SeriesEndpoint      = "/api/series"
	SlicesEndpoint      = "/api/slices"
	StagesEndpoint      = "/api/stages"
	DiagnosticsEndpoint = "/api/diagnostics"
	MetricsEndpoint     = "/metrics"
)
