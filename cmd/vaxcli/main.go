package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vaxcli/internal/app"
	"vaxcli/internal/config"
	"vaxcli/internal/infrastructure"
)

const usage = `usage: vaxcli <command> [flags]

commands:
  run     process an input file and write CSV, XLSX and summary outputs
  serve   process an input file and serve the query API
  version print the version

Run "vaxcli <command> -h" for the flags of a command.
`

// errUsage marks command-line mistakes, reported with exit status 2
var errUsage = errors.New("usage error")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one command and returns the process exit status
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	var err error
	switch args[0] {
	case "run":
		err = runBatch(ctx, args[1:], stdout, stderr)
	case "serve":
		err = runServe(ctx, args[1:], stderr)
	case "version":
		fmt.Fprintf(stdout, "%s %s\n", config.AppName, config.AppVersion)
	case "-h", "-help", "--help", "help":
		fmt.Fprint(stdout, usage)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		fmt.Fprintln(stderr, err)
		return 2
	default:
		slog.Error("command failed", slog.String("command", args[0]), slog.String("error", err.Error()))
		fmt.Fprintf(stderr, "vaxcli %s: %v\n", args[0], err)
		return 1
	}
}

// commonFlags are accepted by every processing command
type commonFlags struct {
	input      string
	configPath string
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.input, "in", "", "input observations (.csv or .xlsx)")
	fs.StringVar(&c.configPath, "config", "", "YAML config file (defaults to $"+config.EnvConfigFile+")")
}

func runBatch(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var common commonFlags
	common.register(fs)
	outDir := fs.String("out", "", "output directory (overrides paths.output_dir)")
	stamp := fs.String("stamp", "", "prefix for output file names")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	cfg, err := loadConfig(common, func(cfg *config.Config) {
		if *outDir != "" {
			cfg.Paths.OutputDir = *outDir
		}
	})
	if err != nil {
		return err
	}

	a, shutdown, err := bootstrap(cfg)
	if err != nil {
		return err
	}
	defer shutdown()

	start := time.Now()
	result, files, err := a.RunBatch(ctx, cfg.Paths.Input, *stamp)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "run %s: %d records, %d diagnostics in %s\n",
		result.RunID, len(result.Records), len(result.Diagnostics), time.Since(start).Round(time.Millisecond))
	fmt.Fprintf(stdout, "  %s\n  %s\n  %s\n", files.CSV, files.XLSX, files.Summary)
	return nil
}

func runServe(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var common commonFlags
	common.register(fs)
	port := fs.Int("port", 0, "listen port (overrides server.port)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	cfg, err := loadConfig(common, func(cfg *config.Config) {
		if *port != 0 {
			cfg.Server.Port = *port
		}
	})
	if err != nil {
		return err
	}

	a, shutdown, err := bootstrap(cfg)
	if err != nil {
		return err
	}
	defer shutdown()

	return a.Serve(ctx, cfg.Paths.Input)
}

// parseFlags marks parse failures as usage errors. -h passes through as
// flag.ErrHelp.
func parseFlags(fs *flag.FlagSet, args []string) error {
	err := fs.Parse(args)
	if err == nil || errors.Is(err, flag.ErrHelp) {
		return err
	}
	return fmt.Errorf("%w: %v", errUsage, err)
}

// loadConfig layers flag overrides over the file and environment config
func loadConfig(common commonFlags, override func(*config.Config)) (*config.Config, error) {
	path := common.configPath
	if path == "" {
		path = os.Getenv(config.EnvConfigFile)
	}

	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}

	if common.input != "" {
		cfg.Paths.Input = common.input
	}
	override(cfg)

	if cfg.Paths.Input == "" {
		return nil, fmt.Errorf("%w: -in is required", errUsage)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// bootstrap initializes logging and telemetry and builds the application.
// The returned func flushes telemetry and closes the log file.
func bootstrap(cfg *config.Config) (*app.Application, func(), error) {
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	providers, err := infrastructure.InitializeOTel(cfg.Telemetry, os.Stdout, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	shutdown := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(ctx); err != nil {
			logger.Error("failed to shut down telemetry", slog.String("error", err.Error()))
		}
		infrastructure.CloseLogFile()
	}

	a, err := app.NewApplication(cfg, logger, providers)
	if err != nil {
		shutdown()
		return nil, nil, err
	}
	return a, shutdown, nil
}
