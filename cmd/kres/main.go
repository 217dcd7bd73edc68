// Command kres generates resource distribution maps for a save and simulates
// the scanners that survey them, against a static host description.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kres-mod/kres/internal/config"
	"github.com/kres-mod/kres/internal/influx"
	"github.com/kres-mod/kres/internal/logging"
	intOtel "github.com/kres-mod/kres/internal/otel"
	"github.com/kres-mod/kres/internal/storage"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.1.0"
	BuildDate      string = "unknown"

	AppName string = "kres"
)

// global variables
var (
	// ConfigDir holds kres.cfg.json. Set with KRES_CONFIG_DIR.
	ConfigDir string = "."

	LogFilePath string
	LogFile     *os.File

	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	// ZLogger is used by the storage and metrics managers
	ZLogger zerolog.Logger

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	influxManager  *influx.Manager
	storageBackend storage.Backend

	SessionStartTime time.Time = time.Now()
)

const usage = `usage: kres <command> [args]

commands:
  generate                                 generate every missing distribution map
  scan <vessel> <type> <seconds>           simulate a sensor for a duration
  status                                   print data body entries and item readings
  reset                                    reset all scan progress
  preview <body> <resource>                show a distribution map in the terminal
  probe <body> <resource> <lat> <lon>      print the opacity at a location
  version                                  print the version
`

func init() {
	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(nil, "info", nil)
	Logger = SlogManager.Logger()
	ZLogger = zerolog.New(os.Stderr).With().Timestamp().Logger()

	if dir := os.Getenv("KRES_CONFIG_DIR"); dir != "" {
		ConfigDir = dir
	}
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	command := strings.ToLower(args[0])
	if command == "version" {
		fmt.Printf("%s %s (built %s)\n", AppName, CurrentVersion, BuildDate)
		return
	}

	if err := config.Load(ConfigDir); err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		Logger.Info("Loaded config", "dir", ConfigDir)
	}
	setupLogging(command != "preview")

	ctx := context.Background()
	err := run(ctx, command, args[1:])
	shutdown(ctx)
	if err != nil {
		Logger.Error("Command failed", "command", command, "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command string, args []string) error {
	switch command {
	case "generate":
		return runGenerate(ctx)
	case "scan":
		if len(args) != 3 {
			return fmt.Errorf("scan needs <vessel> <type> <seconds>")
		}
		return runScan(ctx, args[0], args[1], args[2])
	case "status":
		return runStatus(ctx, os.Stdout)
	case "reset":
		return runReset(ctx)
	case "preview":
		if len(args) != 2 {
			return fmt.Errorf("preview needs <body> <resource>")
		}
		return runPreview(args[0], args[1])
	case "probe":
		if len(args) != 4 {
			return fmt.Errorf("probe needs <body> <resource> <lat> <lon>")
		}
		return runProbe(ctx, os.Stdout, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

// setupLogging moves logging to the session log file and attaches the
// optional OTel and Graylog outputs. Console output is kept unless the
// terminal is needed for drawing.
func setupLogging(console bool) {
	var err error
	LogFilePath = logging.LogFilePath(viper.GetString("logsDir"), AppName, SessionStartTime)
	LogFile, err = logging.OpenLogFile(LogFilePath)
	if err != nil {
		Logger.Error("Failed to create/open log file!", "error", err, "path", LogFilePath)
	}

	var out io.Writer = io.Discard
	if LogFile != nil {
		out = LogFile
	}
	if console {
		out = io.MultiWriter(out, os.Stderr)
	}
	ZLogger = zerolog.New(out).With().Timestamp().Str("app", AppName).Logger()

	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		OTelProvider, err = intOtel.New(context.Background(), intOtel.Config{
			ServiceName:  otelCfg.ServiceName,
			BatchTimeout: otelCfg.BatchTimeout,
			LogWriter:    out,
			Endpoint:     otelCfg.Endpoint,
			Insecure:     otelCfg.Insecure,
			SaveDir:      viper.GetString("saveDir"),
		})
		if err != nil {
			Logger.Error("Failed to initialize OTel provider", "error", err)
		} else {
			Logger.Info("OTel provider initialized", "endpoint", otelCfg.Endpoint)
		}
	}

	if viper.GetBool("graylog.enabled") {
		w, err := logging.NewGraylogWriter(viper.GetString("graylog.address"), AppName)
		if err != nil {
			Logger.Error("Failed to connect to Graylog", "error", err)
		} else {
			SlogManager.SetGraylog(w)
		}
	}

	var otelLogProvider *sdklog.LoggerProvider
	if OTelProvider != nil {
		otelLogProvider = OTelProvider.LoggerProvider()
	}
	SlogManager.Setup(out, viper.GetString("logLevel"), otelLogProvider)
	Logger = SlogManager.Logger()
	Logger.Info("Logging to file", "path", LogFilePath)
}

func setupInflux(ctx context.Context) *influx.Manager {
	cfg := config.GetInfluxConfig()
	m := influx.NewManager(influx.Config{
		Enabled:  cfg.Enabled,
		Protocol: cfg.Protocol,
		Host:     cfg.Host,
		Port:     cfg.Port,
		Token:    cfg.Token,
		Org:      cfg.Org,
		Bucket:   cfg.Bucket,
	}, ZLogger, filepath.Join(viper.GetString("saveDir"), "kres_metrics.gz"))
	if !cfg.Enabled {
		return m
	}
	if err := m.Connect(ctx); err != nil {
		Logger.Warn("InfluxDB unreachable, writing metrics to backup file", "error", err)
		if err := m.UseBackup(); err != nil {
			Logger.Error("Failed to open metrics backup", "error", err)
		}
	}
	return m
}

func shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if storageBackend != nil {
		if err := storageBackend.Close(); err != nil {
			Logger.Warn("Failed to close storage backend", "error", err)
		}
	}
	if influxManager != nil {
		if err := influxManager.Close(); err != nil {
			Logger.Warn("Failed to close InfluxDB writer", "error", err)
		}
	}
	if err := SlogManager.Flush(ctx); err != nil {
		Logger.Warn("Failed to flush logs", "error", err)
	}
	if OTelProvider != nil {
		if err := OTelProvider.Shutdown(ctx); err != nil {
			Logger.Warn("Failed to shut down OTel provider", "error", err)
		}
	}
	if LogFile != nil {
		LogFile.Close()
	}
}
