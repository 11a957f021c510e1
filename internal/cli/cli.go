package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/specialistvlad/sweepgrid/internal/app"
	"github.com/specialistvlad/sweepgrid/internal/cache"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("sweepgrid", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
sweepgrid - A dataflow workflow engine with parameter sweeps and result caching.

Usage:
  sweepgrid [options] [WORKFLOW_PATH]

Arguments:
  WORKFLOW_PATH
    Path to a single .hcl file or a directory containing .hcl files.

Options:
`)
		flagSet.PrintDefaults()
	}

	workflowFlag := flagSet.String("workflow", "", "Path to the workflow file or directory.")
	wFlag := flagSet.String("w", "", "Path to the workflow file or directory (shorthand).")
	tasksPathFlag := flagSet.String("tasks-path", "modules", "Path to the directory containing task manifests.")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check and metrics server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	workersFlag := flagSet.Int("workers", 10, "Number of concurrent workers for the scheduler.")
	cacheFlag := flagSet.String("cache", app.CacheMemory, "Result cache backend. Options: 'memory', 'file', 'postgres'.")
	cacheDirFlag := flagSet.String("cache-dir", ".sweepgrid/cache", "Directory of the file cache backend.")
	cacheDSNFlag := flagSet.String("cache-dsn", "", "PostgreSQL DSN of the postgres cache backend. Defaults to $SWEEPGRID_DB_URL.")
	authoritativeFlag := flagSet.Bool("cache-authoritative", false, "Abort the run when the cache store fails instead of recomputing.")
	reservationFlag := flagSet.Duration("reservation-timeout", cache.DefaultReservationTimeout, "How long to wait on another producer of the same result before reclaiming it. 0 waits forever.")
	workDirFlag := flagSet.String("work-dir", "", "Directory for per-instance working directories. Empty disables them.")
	forceFlag := flagSet.Bool("force", false, "Re-run every instance, ignoring stored results.")
	graphOutFlag := flagSet.String("graph-out", "", "Write the workflow graph in DOT format to this file.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *workflowFlag != "" {
		path = *workflowFlag
	} else if *wFlag != "" {
		path = *wFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Workflow path determined.", "path", path)

	if path == "" {
		slog.Debug("No workflow path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		WorkflowPath:       path,
		TasksPath:          *tasksPathFlag,
		HealthcheckPort:    *healthPortFlag,
		LogFormat:          logFormat,
		LogLevel:           logLevel,
		WorkerCount:        *workersFlag,
		CacheBackend:       strings.ToLower(*cacheFlag),
		CacheDir:           *cacheDirFlag,
		CacheDSN:           *cacheDSNFlag,
		CacheAuthoritative: *authoritativeFlag,
		ReservationTimeout: *reservationFlag,
		WorkDir:            *workDirFlag,
		ForceRerun:         *forceFlag,
		GraphOut:           *graphOutFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
