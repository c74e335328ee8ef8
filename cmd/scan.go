/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/moamenhredeen/apihacker/internal/config"
	"github.com/moamenhredeen/apihacker/internal/dispatcher"
	"github.com/moamenhredeen/apihacker/internal/models"
	"github.com/moamenhredeen/apihacker/internal/output"
	"github.com/moamenhredeen/apihacker/internal/parser"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Color helpers
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	cyan   = color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
)

func runRoot(cmd *cobra.Command, args []string) {
	cfg := config.FromViper(v)
	// Read headers straight from the flag: viper splits string arrays on commas
	if f := cmd.Flags().Lookup(config.KeyHeader); f != nil && f.Changed {
		cfg.Headers, _ = cmd.Flags().GetStringArray(config.KeyHeader)
	}

	logger, err := newLogger(cfg.Verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}

	// Setup context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	code := runScan(ctx, afero.NewOsFs(), cfg, os.Stdout, logger)
	cancel()
	_ = logger.Sync()
	os.Exit(code)
}

// runScan loads the document, resolves the base URL and hands over to the dispatcher.
// It returns the process exit code.
func runScan(ctx context.Context, fs afero.Fs, cfg config.RunConfig, out io.Writer, logger *zap.Logger) int {
	if cfg.OpenAPIFile == "" {
		fmt.Fprintln(out, red("Error: --openapi_file is required."))
		return 1
	}
	if cfg.Proxy != "" {
		if err := config.ValidateProxy(cfg.Proxy); err != nil {
			fmt.Fprintln(out, red(fmt.Sprintf("Invalid proxy: %s", cfg.Proxy)))
			return 1
		}
	}

	format, err := output.ParseFormat(cfg.Output)
	if err != nil {
		fmt.Fprintln(out, red(fmt.Sprintf("Error: %v", err)))
		return 1
	}

	p, err := parser.ParseFile(fs, cfg.OpenAPIFile)
	if err != nil {
		fmt.Fprintln(out, red(fmt.Sprintf("Error parsing OpenAPI file: %v", err)))
		return 1
	}
	spec := p.Specification()
	for _, warning := range spec.Warnings {
		logger.Warn(warning)
	}

	// Use provided base URL or first server from spec
	if cfg.BaseURL == "" {
		cfg.BaseURL = spec.DefaultServerURL()
	}
	if cfg.BaseURL == "" {
		fmt.Fprintln(out, red("Error: No base URL provided and no 'servers' field in OpenAPI file. Hint: Use the --base_url argument."))
		return 1
	}

	logger = logger.With(zap.String("run_id", uuid.NewString()))
	pr := newProgressPrinter(out, cfg.Verbose)
	d := dispatcher.New(cfg, dispatcher.WithLogger(logger))

	summary, err := d.Run(ctx, spec, pr.onEvent)
	pr.stopSpinner()

	switch {
	case err == nil:
		pr.println(green("! Done."))
		if err := output.ExportSummary(out, summary.Snapshot(), format); err != nil {
			logger.Error("Error exporting summary", zap.Error(err))
		}
	case errors.Is(err, context.Canceled):
		pr.println("Exiting due to ctrl-c.")
	case errors.Is(err, dispatcher.ErrServerDown):
		pr.println(red(fmt.Sprintf("Error: Server at %s is not up. Exiting.", cfg.BaseURL)))
	default:
		pr.println(red(fmt.Sprintf("Error: %v", err)))
	}

	return dispatcher.ExitCode(err)
}

// progressPrinter turns dispatch events into terminal lines. Completed events come
// from the workers, so every write holds mu.
type progressPrinter struct {
	mu      sync.Mutex
	out     io.Writer
	isTTY   bool
	verbose bool
	s       *spinner.Spinner
}

func newProgressPrinter(out io.Writer, verbose bool) *progressPrinter {
	pr := &progressPrinter{out: out, verbose: verbose}
	if f, ok := out.(*os.File); ok {
		pr.isTTY = isatty.IsTerminal(f.Fd())
	}
	return pr
}

func (pr *progressPrinter) println(line string) {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	fmt.Fprintln(pr.out, line)
}

func (pr *progressPrinter) stopSpinner() {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	if pr.s != nil {
		pr.s.Stop()
		pr.s = nil
	}
}

func (pr *progressPrinter) onEvent(event dispatcher.Event) {
	switch event.Type {
	case dispatcher.EventGating:
		pr.println(fmt.Sprintf("# Total number of tests: %d on base url: %s", event.Total, event.BaseURL))
		pr.println("% Checking if API is up...")
		// The spinner only animates its own line, Stop erases nothing printed above
		if pr.isTTY {
			pr.mu.Lock()
			pr.s = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(pr.out))
			pr.s.Suffix = " waiting for " + event.BaseURL
			pr.s.Start()
			pr.mu.Unlock()
		}

	case dispatcher.EventStateChanged:
		if event.State == dispatcher.StateRunning {
			pr.stopSpinner()
			pr.println(green("- API is up, starting tests..."))
		}

	case dispatcher.EventSubmitted:
		pr.println(fmt.Sprintf("%s - %s %s",
			cyan(fmt.Sprintf("%d/%d", event.Index, event.Total)),
			event.Operation.HTTPMethod(), event.URL))

	case dispatcher.EventCompleted:
		if pr.verbose && event.Outcome != nil {
			pr.println(describeOutcome(event.Index, event.Total, *event.Outcome))
		}
	}
}

func describeOutcome(index, total int, o models.Outcome) string {
	prefix := fmt.Sprintf("[%d/%d]", index, total)
	switch o.Kind {
	case models.OutcomeSent:
		status := green(o.StatusCode)
		if o.StatusCode >= 400 {
			status = yellow(o.StatusCode)
		}
		return fmt.Sprintf("%s %s %s %s (%v)", prefix, status, o.Method, o.URL, o.ResponseTime.Round(time.Millisecond))
	case models.OutcomeSkipped:
		return fmt.Sprintf("%s %s %s %s - %s", prefix, yellow("skipped"), o.Method, o.URL, o.Error)
	default:
		return fmt.Sprintf("%s %s %s %s - %s", prefix, red("failed"), o.Method, o.URL, o.Error)
	}
}

func init() {
	flags := rootCmd.Flags()
	flags.Int(config.KeyDelay, 0, "Delay between each request submission in seconds")
	flags.Int(config.KeyThreads, 1, "Number of concurrent workers")
	flags.String(config.KeyProxy, "", "HTTP proxy to use for requests (http and https)")
	flags.Int(config.KeyTimeout, 5, "HTTP timeout value in seconds")
	flags.String(config.KeyBaseURL, "", "Base URL for the API (default: first entry of 'servers')")
	flags.String(config.KeyOpenAPIFile, "", "Path to the OpenAPI file (JSON or YAML)")
	flags.StringArrayP(config.KeyHeader, "H", nil, "HTTP header to add to the request, e.g. \"Authorization: Bearer XXXX\" (repeatable)")
	flags.Bool(config.KeyVerify, true, "Verify SSL certificate")
	flags.Bool(config.KeyNoVerify, false, "Do not verify SSL certificate")
	flags.StringP(config.KeyOutput, "o", "text", "Summary format: text, json, csv, none")

	if err := v.BindPFlags(flags); err != nil {
		panic(err)
	}
}
