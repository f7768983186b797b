package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/pulse-analytics/pulse-go/internal/app"
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

// Parse processes command-line arguments. It returns a populated app config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	flagSet := flag.NewFlagSet("pulse", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
Pulse - a workflow runner for the Pulse text analysis API.

Usage:
  pulse [options] [WORKFLOW_PATH]

Arguments:
  WORKFLOW_PATH
    Path to a single .hcl workflow file or a directory containing them.

Options:
`)
		flagSet.PrintDefaults()
	}

	workflowFlag := flagSet.String("workflow", "", "Path to the workflow file or directory.")
	fFlag := flagSet.String("f", "", "Path to the workflow file or directory (shorthand).")
	dataFlag := flagSet.String("data", "", "Path to a text file registered as the default dataset, one item per line.")
	baseURLFlag := flagSet.String("base-url", "", "API root. Defaults to PULSE_BASE_URL or the production endpoint.")
	cacheDirFlag := flagSet.String("cache-dir", "", "Directory for the persistent result cache. Empty keeps the cache in memory only.")
	workersFlag := flagSet.Int("workers", 4, "Number of concurrent workers for the executor.")
	bestEffortFlag := flagSet.Bool("best-effort", false, "Continue independent steps after a failure instead of aborting.")
	timeoutFlag := flagSet.Duration("timeout", 0, "Per-job wait timeout. 0 selects the default (3m).")
	fastFlag := flagSet.Bool("fast", false, "Request the synchronous fast path for every step.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	path := ""
	if *workflowFlag != "" {
		path = *workflowFlag
	} else if *fFlag != "" {
		path = *fFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}

	if path == "" {
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

	if *timeoutFlag < 0 {
		return nil, false, &ExitError{Code: 2, Message: "invalid timeout: must not be negative"}
	}

	config, err := app.NewConfig(app.Config{
		WorkflowPath: path,
		DataPath:     *dataFlag,
		BaseURL:      *baseURLFlag,
		CacheDir:     *cacheDirFlag,
		Workers:      *workersFlag,
		BestEffort:   *bestEffortFlag,
		WaitTimeout:  *timeoutFlag,
		Fast:         *fastFlag,
		LogFormat:    logFormat,
		LogLevel:     logLevel,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	return config, false, nil
}
