package main

import (
	"fmt"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/bamsammich/dedup/internal/config"
	"github.com/bamsammich/dedup/internal/engine"
	"github.com/bamsammich/dedup/internal/event"
	"github.com/bamsammich/dedup/internal/filter"
	"github.com/bamsammich/dedup/internal/stats"
	"github.com/bamsammich/dedup/internal/ui"
	"github.com/bamsammich/dedup/internal/ui/tui"
)

const maxBufSize = 64 << 20

type scanOptions struct {
	algorithm     string
	workers       int
	buffer        string
	symlinks      string
	verify        bool
	sizePrefilter bool
	bwLimit       string
	filterFile    string
	minSize       string
	maxSize       string

	// Output and follow-up actions.
	jsonOut     bool
	reportFile  string
	pathsOnly   bool
	deleteDups  bool
	dryRun      bool
	confirm     bool
	interactive bool

	forceFeed  bool
	forceRate  bool
	noProgress bool
}

// filterFlag is a custom pflag.Value that preserves CLI ordering of
// --exclude and --include rules by appending to a shared filter.Chain.
type filterFlag struct {
	chain   *filter.Chain
	include bool
}

func (*filterFlag) String() string { return "" }
func (*filterFlag) Type() string   { return "pattern" }

func (f *filterFlag) Set(val string) error {
	if f.include {
		return f.chain.AddInclude(val)
	}
	return f.chain.AddExclude(val)
}

func newScanCmd(global *globalOptions) *cobra.Command {
	var opts scanOptions
	chain := filter.NewChain()

	cmd := &cobra.Command{
		Use:   "scan [flags] <root>",
		Short: "Report files whose content duplicates an earlier file",
		Long: `Scan walks <root> depth-first and prints one line per duplicate:

    later/copy.txt  ->  first/seen.txt

The right side is the first file seen with that content and is never
removed by --delete.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, global, &opts, chain, args[0])
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.algorithm, "algorithm", string(engine.DefaultAlgorithm),
		"digest algorithm (blake3, xxhash, xxh3, highway, md5, sha256)")
	f.IntVarP(&opts.workers, "workers", "n", 0, "number of hash workers (default: min(NumCPU, 8))")
	f.StringVar(&opts.buffer, "buffer", "", "read chunk size while hashing (e.g. 64K, 1M)")
	f.StringVar(&opts.symlinks, "symlinks", "follow", "symlink policy: follow or skip")
	f.BoolVar(&opts.verify, "verify", false, "compare bytes before reporting a duplicate")
	f.BoolVar(&opts.sizePrefilter, "size-prefilter", false, "only hash files whose size is not unique")
	f.StringVar(&opts.bwLimit, "bwlimit", "", "read bandwidth limit (e.g. 100M, 1G)")

	// Filter flags: custom pflag.Value to preserve CLI ordering.
	f.Var(&filterFlag{chain: chain}, "exclude", "exclude files matching PATTERN (repeatable)")
	f.Var(&filterFlag{chain: chain, include: true}, "include", "include files matching PATTERN (repeatable)")
	f.StringVar(&opts.filterFile, "filter", "", "read filter rules from FILE")
	f.StringVar(&opts.minSize, "min-size", "", "skip files smaller than SIZE (e.g. 1M, 100K)")
	f.StringVar(&opts.maxSize, "max-size", "", "skip files larger than SIZE (e.g. 1G, 500M)")

	f.BoolVar(&opts.jsonOut, "json", false, "print the report as JSON")
	f.StringVar(&opts.reportFile, "report", "", "write a JSON report to FILE (zstd when FILE ends in .zst)")
	f.BoolVar(&opts.pathsOnly, "paths", false, "print only redundant paths, one per line")
	f.BoolVar(&opts.deleteDups, "delete", false, "remove every redundant copy")
	f.BoolVar(&opts.dryRun, "dry-run", false, "show what would be removed without removing")
	f.BoolVar(&opts.confirm, "confirm", false, "re-compare each copy with its original right before removing it")
	f.BoolVarP(&opts.interactive, "interactive", "i", false, "choose copies to remove in a full-screen view")

	f.BoolVar(&opts.forceFeed, "feed", false, "force feed mode (one line per duplicate)")
	f.BoolVar(&opts.forceRate, "rate", false, "force rate mode (sparkline + throughput)")
	f.BoolVar(&opts.noProgress, "no-progress", false, "disable progress display")

	cmd.MarkFlagsMutuallyExclusive("json", "paths", "delete", "interactive")
	cmd.MarkFlagsMutuallyExclusive("feed", "rate")

	return cmd
}

//nolint:gocyclo,revive // cyclomatic,cognitive-complexity: orchestrates scan, removal and output modes
func runScan(
	cmd *cobra.Command,
	global *globalOptions,
	opts *scanOptions,
	chain *filter.Chain,
	root string,
) error {
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	logs, err := setupLogging(global, stderr)
	if err != nil {
		return err
	}
	defer logs.close()
	logger := logs.logger

	// Load optional config file.
	cfg, err := config.Load()
	if err != nil {
		logger.Warn("failed to load config", "error", err)
	}
	applyConfigDefaults(cmd.Flags(), cfg.Defaults, opts)
	for _, pattern := range cfg.Defaults.Exclude {
		if err := chain.AddExclude(pattern); err != nil {
			return fmt.Errorf("config exclude %q: %w", pattern, err)
		}
	}

	engineCfg, err := buildEngineConfig(opts, chain, root)
	if err != nil {
		return err
	}

	if opts.interactive && !ui.IsTerminal(stdout) {
		logger.Warn("--interactive requires a terminal, listing pairs instead")
		opts.interactive = false
	}

	// Set up context with signal handling.
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	collector := stats.NewCollector()
	events := make(chan event.Event, 256)

	// When --log is set, tee events into the JSON log before the presenter.
	presenterEvents := (<-chan event.Event)(events)
	if logs.events != nil {
		presenterEvents = teeEvents(logs.events, events)
	}

	isTTY := ui.IsTerminal(stderr)
	presenter := ui.NewPresenter(ui.Config{
		Writer:     stderr,
		Stats:      collector,
		Root:       root,
		IsTTY:      isTTY,
		Width:      ui.TermWidth(stderr),
		Quiet:      global.quiet,
		Verbose:    global.verbose,
		ForceFeed:  opts.forceFeed,
		ForceRate:  opts.forceRate,
		NoProgress: opts.noProgress,
	})

	var presenterErr error
	var presenterWg sync.WaitGroup
	presenterWg.Add(1)
	go func() {
		defer presenterWg.Done()
		presenterErr = presenter.Run(presenterEvents)
	}()

	engineCfg.Stats = collector
	engineCfg.Events = events
	engineCfg.Logger = logger

	logger.Debug("starting scan",
		"root", root,
		"algorithm", engineCfg.Hash.Algorithm,
		"workers", engineCfg.Workers,
		"symlinks", engineCfg.Symlinks,
		"verify", engineCfg.Verify,
		"size_prefilter", engineCfg.SizePrefilter,
	)

	res, scanErr := engine.FindDuplicates(ctx, engineCfg)

	removeCfg := engine.RemoveConfig{
		DryRun:  opts.dryRun,
		Confirm: opts.confirm,
		Stats:   collector,
	}
	if opts.confirm {
		removeCfg.Originals = engine.Originals(res.Pairs)
	}

	var outcomes []engine.Outcome
	if scanErr == nil && opts.deleteDups {
		deleteCfg := removeCfg
		deleteCfg.Events = events
		outcomes = engine.Remove(ctx, deleteCfg, engine.Redundant(res.Pairs))
	}

	close(events)
	presenterWg.Wait()
	if presenterErr != nil {
		fmt.Fprintf(stderr, "presenter: %v\n", presenterErr)
	}

	// A root failure or an interrupted scan discards the partial result.
	if scanErr != nil {
		return scanErr
	}

	if !global.quiet {
		if summary := presenter.Summary(); summary != "" {
			fmt.Fprintln(stderr, summary)
		}
	}

	if opts.reportFile != "" {
		if err := ui.WriteReportFile(opts.reportFile, ui.NewReport(res)); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		logger.Info("report written", "path", opts.reportFile)
	}

	switch {
	case opts.jsonOut:
		err = ui.WriteReport(stdout, ui.NewReport(res))
	case opts.pathsOnly:
		err = ui.WritePaths(stdout, engine.Redundant(res.Pairs))
	case opts.deleteDups:
		err = ui.WriteOutcomes(stdout, outcomes, opts.dryRun)
	case opts.interactive:
		outcomes, err = tui.Run(tui.Config{
			Result: res,
			DryRun: opts.dryRun,
			Theme:  cfg.Theme,
			Remove: func(paths []string) []engine.Outcome {
				return engine.Remove(ctx, removeCfg, paths)
			},
		})
		if err != nil {
			return fmt.Errorf("interactive view: %w", err)
		}
		err = ui.WriteOutcomes(stdout, outcomes, opts.dryRun)
	default:
		err = ui.WritePairs(stdout, res.Pairs)
	}
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	if !global.quiet && len(res.Skipped) > 0 {
		fmt.Fprintf(stderr, "%s paths skipped:\n", ui.FormatCount(int64(len(res.Skipped))))
		if err := ui.WriteSkipped(stderr, res.Skipped); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}

	if len(res.Skipped) > 0 || len(engine.Failed(outcomes)) > 0 {
		return &exitError{code: 1} // partial failure
	}
	return nil
}

// buildEngineConfig turns flag values into an engine.Config for root.
func buildEngineConfig(opts *scanOptions, chain *filter.Chain, root string) (engine.Config, error) {
	alg, err := engine.ParseAlgorithm(opts.algorithm)
	if err != nil {
		return engine.Config{}, fmt.Errorf("invalid --algorithm: %w", err)
	}
	policy, err := engine.ParseSymlinkPolicy(opts.symlinks)
	if err != nil {
		return engine.Config{}, fmt.Errorf("invalid --symlinks: %w", err)
	}

	hashOpts := engine.HashOptions{Algorithm: alg}
	if opts.buffer != "" {
		n, err := filter.ParseSize(opts.buffer)
		if err != nil {
			return engine.Config{}, fmt.Errorf("invalid --buffer: %w", err)
		}
		if n <= 0 || n > maxBufSize {
			return engine.Config{}, fmt.Errorf("invalid --buffer: %s is outside 1B..%s",
				opts.buffer, ui.FormatBytes(maxBufSize))
		}
		hashOpts.BufSize = int(n)
	}
	if opts.bwLimit != "" {
		n, err := filter.ParseSize(opts.bwLimit)
		if err != nil {
			return engine.Config{}, fmt.Errorf("invalid --bwlimit: %w", err)
		}
		if n > 0 {
			hashOpts.Limiter = engine.NewBWLimiter(n)
		}
	}

	// Load filter file if specified.
	if opts.filterFile != "" {
		if err := chain.LoadFile(opts.filterFile); err != nil {
			return engine.Config{}, fmt.Errorf("load filter file: %w", err)
		}
	}

	// Parse size filters.
	if opts.minSize != "" {
		n, err := filter.ParseSize(opts.minSize)
		if err != nil {
			return engine.Config{}, fmt.Errorf("invalid --min-size: %w", err)
		}
		chain.SetMinSize(n)
	}
	if opts.maxSize != "" {
		n, err := filter.ParseSize(opts.maxSize)
		if err != nil {
			return engine.Config{}, fmt.Errorf("invalid --max-size: %w", err)
		}
		chain.SetMaxSize(n)
	}

	cfg := engine.Config{
		Root:          root,
		Symlinks:      policy,
		Workers:       opts.workers,
		Hash:          hashOpts,
		Verify:        opts.verify,
		SizePrefilter: opts.sizePrefilter,
	}
	// Only set filter if it has rules/size constraints.
	if !chain.Empty() {
		cfg.Filter = chain
	}
	return cfg, nil
}

// applyConfigDefaults applies config file defaults for flags not explicitly set on the CLI.
func applyConfigDefaults(flags *pflag.FlagSet, defaults config.DefaultsConfig, opts *scanOptions) {
	if !flags.Changed("algorithm") && defaults.Algorithm != nil {
		opts.algorithm = *defaults.Algorithm
	}
	if !flags.Changed("workers") && defaults.Workers != nil {
		opts.workers = *defaults.Workers
	}
	if !flags.Changed("buffer") && defaults.Buffer != nil {
		opts.buffer = *defaults.Buffer
	}
	if !flags.Changed("symlinks") && defaults.FollowSymlinks != nil {
		opts.symlinks = engine.SymlinkSkip.String()
		if *defaults.FollowSymlinks {
			opts.symlinks = engine.SymlinkFollow.String()
		}
	}
	if !flags.Changed("verify") && defaults.Verify != nil {
		opts.verify = *defaults.Verify
	}
	if !flags.Changed("size-prefilter") && defaults.SizePrefilter != nil {
		opts.sizePrefilter = *defaults.SizePrefilter
	}
	if !flags.Changed("bwlimit") && defaults.BWLimit != nil {
		opts.bwLimit = *defaults.BWLimit
	}
}
