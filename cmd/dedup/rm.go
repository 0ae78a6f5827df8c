package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bamsammich/dedup/internal/engine"
	"github.com/bamsammich/dedup/internal/stats"
	"github.com/bamsammich/dedup/internal/ui"
)

type rmOptions struct {
	from       string
	reportFile string
	dryRun     bool
	confirm    bool
}

func newRmCmd(global *globalOptions) *cobra.Command {
	var opts rmOptions

	cmd := &cobra.Command{
		Use:   "rm [flags] [path...]",
		Short: "Remove files, typically the redundant copies printed by scan --paths",
		Long: `Rm removes each given path independently and prints one line per path.
A failure affects only its own path. Directories are never removed and a
symlink is removed without touching its target.

    dedup scan --paths ~/photos | dedup rm --from -
    dedup rm --report scan.json.zst --confirm`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRm(cmd, global, &opts, args)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.from, "from", "", "read paths from FILE, one per line (- for stdin)")
	f.StringVar(&opts.reportFile, "report", "", "remove every redundant copy listed in a scan report")
	f.BoolVar(&opts.dryRun, "dry-run", false, "show what would be removed without removing")
	f.BoolVar(&opts.confirm, "confirm", false,
		"re-compare each copy with its original from --report before removing it")

	return cmd
}

func runRm(cmd *cobra.Command, global *globalOptions, opts *rmOptions, args []string) error {
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	logs, err := setupLogging(global, stderr)
	if err != nil {
		return err
	}
	defer logs.close()
	logger := logs.logger

	paths := slices.Clone(args)
	if opts.from != "" {
		listed, err := readPathList(cmd, opts.from)
		if err != nil {
			return err
		}
		paths = append(paths, listed...)
	}

	var originals map[string]string
	if opts.reportFile != "" {
		rep, err := ui.ReadReportFile(opts.reportFile)
		if err != nil {
			return fmt.Errorf("read report: %w", err)
		}
		paths = append(paths, engine.Redundant(rep.Pairs)...)
		originals = engine.Originals(rep.Pairs)
	}

	if opts.confirm && originals == nil {
		return errors.New("--confirm needs --report to know each file's original")
	}
	if len(paths) == 0 {
		return errors.New("no paths to remove")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	collector := stats.NewCollector()
	outcomes := engine.Remove(ctx, engine.RemoveConfig{
		DryRun:    opts.dryRun,
		Confirm:   opts.confirm,
		Originals: originals,
		Stats:     collector,
	}, paths)

	snap := collector.Snapshot()
	logger.Debug("remove finished",
		"removed", snap.FilesDeleted,
		"failed", snap.DeleteFailed,
		"dry_run", opts.dryRun,
	)

	if err := ui.WriteOutcomes(stdout, outcomes, opts.dryRun); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if !global.quiet {
		verb := "removed"
		if opts.dryRun {
			verb = "would remove"
		}
		fmt.Fprintf(stderr, "%s %s, %s failed\n", verb,
			ui.FormatCount(snap.FilesDeleted), ui.FormatCount(snap.DeleteFailed))
	}

	if snap.DeleteFailed > 0 {
		return &exitError{code: 1} // partial failure
	}
	return nil
}

// readPathList reads newline-separated paths from name, or stdin for "-".
func readPathList(cmd *cobra.Command, name string) ([]string, error) {
	var r io.Reader
	if name == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(name)
		if err != nil {
			return nil, fmt.Errorf("open path list: %w", err)
		}
		defer f.Close()
		r = f
	}
	paths, err := ui.ReadPaths(r)
	if err != nil {
		return nil, fmt.Errorf("read path list: %w", err)
	}
	return paths, nil
}
