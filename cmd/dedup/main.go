package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/bamsammich/dedup/internal/event"
	"github.com/bamsammich/dedup/internal/ui"
)

var version = "dev"

func main() {
	os.Exit(execute(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// globalOptions are shared by every subcommand.
type globalOptions struct {
	verbose     bool
	quiet       bool
	logFile     string
	showVersion bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var opts globalOptions

	rootCmd := &cobra.Command{
		Use:   "dedup",
		Short: "Find and remove duplicate files by content digest",
		Long: `dedup walks a directory tree, hashes every regular file and reports each
file whose content was already seen, paired with the first file that had it.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.showVersion {
				fmt.Fprintf(cmd.OutOrStdout(), "dedup %s\n", version)
				return nil
			}
			return cmd.Help()
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	rootCmd.Flags().BoolVar(&opts.showVersion, "version", false, "print version and exit")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&opts.quiet, "quiet", "q", false, "suppress all output except results and errors")
	rootCmd.PersistentFlags().
		StringVar(&opts.logFile, "log", "", "write structured JSON log to FILE")
	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	rootCmd.AddCommand(newScanCmd(&opts))
	rootCmd.AddCommand(newRmCmd(&opts))
	rootCmd.AddCommand(newDocsCmd())

	return rootCmd
}

// execute runs the CLI and maps its error to an exit code.
func execute(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd(stdout, stderr)
	rootCmd.SetIn(stdin)
	rootCmd.SetArgs(args)

	if err := rootCmd.Execute(); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			return exitErr.code
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	return 0
}

// logging holds the loggers of one command run.
type logging struct {
	logger *slog.Logger
	events *slog.Logger // JSON log only; nil without --log
	close  func()
}

// setupLogging installs the default logger: text on stderr at a level
// chosen by --verbose/--quiet, plus a JSON handler when --log is set.
func setupLogging(opts *globalOptions, stderr io.Writer) (logging, error) {
	logLevel := slog.LevelInfo
	switch {
	case opts.verbose:
		logLevel = slog.LevelDebug
	case opts.quiet:
		logLevel = slog.LevelWarn
	}
	textHandler := slog.NewTextHandler(stderr, &slog.HandlerOptions{
		Level: logLevel,
	})

	l := logging{close: func() {}}
	var logHandler slog.Handler = textHandler
	if opts.logFile != "" {
		lf, err := os.Create(opts.logFile)
		if err != nil {
			return logging{}, fmt.Errorf("open log file: %w", err)
		}
		l.close = func() { lf.Close() }
		jsonHandler := slog.NewJSONHandler(lf, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
		logHandler = ui.NewMultiHandler(textHandler, jsonHandler)
		l.events = slog.New(jsonHandler)
	}

	l.logger = slog.New(logHandler)
	slog.SetDefault(l.logger)
	return l, nil
}

// teeEvents writes every event to the logger before forwarding it. The
// returned channel closes when events does.
func teeEvents(logger *slog.Logger, events <-chan event.Event) <-chan event.Event {
	teed := make(chan event.Event, cap(events))
	go func() {
		defer close(teed)
		for ev := range events {
			attrs := []slog.Attr{
				slog.String("type", ev.Type.String()),
				slog.String("path", ev.Path),
				slog.Int64("size", ev.Size),
			}
			if ev.Original != "" {
				attrs = append(attrs, slog.String("original", ev.Original))
			}
			if ev.Error != nil {
				attrs = append(attrs, slog.String("error", ev.Error.Error()))
			}
			logger.LogAttrs(context.Background(), slog.LevelInfo, "dedup.event", attrs...)
			teed <- ev
		}
	}()
	return teed
}

type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}
