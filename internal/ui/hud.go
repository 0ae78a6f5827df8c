package ui

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/bamsammich/dedup/internal/stats"
)

// ANSI escape sequences.
const (
	ansiDim   = "\033[2m"
	ansiBold  = "\033[1m"
	ansiReset = "\033[0m"
)

// hudPresenter provides a rich TTY display with a scrolling feed of
// duplicates and failures and a 2-line HUD that redraws in place.
type hudPresenter struct {
	w         io.Writer
	stats     stats.ReadTicker
	forceFeed bool
	forceRate bool
	root      string // scan root, stripped from displayed paths
	width     int    // terminal columns, 0 for no limit

	// Internal state.
	hudDrawn     bool
	hudLineCount int // actual number of lines in the last HUD draw
	rateMode     bool
	rateSwitched bool // whether we've printed the switch notice
	scanDone     bool
	lastHUDDraw  time.Time
}

const (
	rateThreshHigh   = 50.0 // duplicates per second
	rateThreshLow    = 20.0
	sparklineWidth   = 20
	progressBarWidth = 20
	hudMinInterval   = 50 * time.Millisecond // don't redraw faster than this
)

func (p *hudPresenter) Run(events <-chan Event) error {
	if p.forceRate {
		p.rateMode = true
	}

	// Fire first tick quickly to seed the ring buffer with initial speed data,
	// then switch to 1s interval.
	secTicker := time.NewTicker(250 * time.Millisecond)
	defer secTicker.Stop()
	firstTickDone := false

	// Redraw ticker for when no events are flowing (e.g., one huge file).
	redrawTicker := time.NewTicker(100 * time.Millisecond)
	defer redrawTicker.Stop()

	var dupesAtLastTick int64
	var dupeRate float64

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				p.clearHUD()
				return nil
			}
			p.handleEvent(ev)
			p.maybeDrawHUD()

		case <-redrawTicker.C:
			p.maybeSwitch(dupeRate)
			p.drawHUD()

		case <-secTicker.C:
			p.stats.Tick()
			dupes := p.stats.Snapshot().Duplicates
			dupeRate = float64(dupes - dupesAtLastTick)
			dupesAtLastTick = dupes
			if !firstTickDone {
				firstTickDone = true
				dupeRate *= 4
				secTicker.Reset(1 * time.Second)
			}
		}
	}
}

func (p *hudPresenter) handleEvent(ev Event) {
	switch ev.Type {
	case ScanComplete:
		p.scanDone = true

	case DuplicateFound:
		if !p.rateMode {
			p.clearHUD()
			p.printDuplicate(ev)
			p.drawHUD() // always redraw HUD after feed line
		}

	case FileFailed, PathSkipped:
		p.clearHUD()
		fmt.Fprintf(p.w, "–  %s  %sskipped: %s%s\n",
			p.styledPath(ev.Path), ansiDim, errText(ev.Error), ansiReset)
		p.drawHUD()

	case CollisionFound:
		p.clearHUD()
		fmt.Fprintf(p.w, "✗  %s  %sDIGEST COLLISION%s with %s\n",
			p.styledPath(ev.Path), ansiBold, ansiReset, p.styledPath(ev.Original))
		p.drawHUD()

	case DeleteFile:
		p.clearHUD()
		fmt.Fprintf(p.w, "×  %s  %sdeleted%s\n", p.styledPath(ev.Path), ansiDim, ansiReset)
		p.drawHUD()

	case DeleteFailed:
		p.clearHUD()
		fmt.Fprintf(p.w, "✗  %s  %s\n", p.styledPath(ev.Path), errText(ev.Error))
		p.drawHUD()
	}
}

func (p *hudPresenter) printDuplicate(ev Event) {
	orig := p.relPath(ev.Original)
	if p.width > 0 {
		// marker, arrow, size column and gaps take 20 columns.
		room := p.width - len([]rune(p.relPath(ev.Path))) - 20
		orig = TruncateLeft(orig, max(room, 12))
	}
	fmt.Fprintf(p.w, "=  %s  %s→ %s%s  %10s\n",
		p.styledPath(ev.Path), ansiDim, orig, ansiReset, FormatBytes(ev.Size))
}

func (p *hudPresenter) maybeSwitch(dupesPerSec float64) {
	if p.forceFeed || p.forceRate {
		return
	}

	if !p.rateMode && dupesPerSec > rateThreshHigh {
		p.rateMode = true
		if !p.rateSwitched {
			p.rateSwitched = true
			p.clearHUD()
			fmt.Fprintf(p.w, "↯ rate view (%s duplicates/s · use --feed to see individual pairs)\n",
				FormatCount(int64(dupesPerSec)))
		}
	} else if p.rateMode && dupesPerSec < rateThreshLow {
		p.rateMode = false
	}
}

// maybeDrawHUD redraws the HUD if enough time has passed since the last draw.
func (p *hudPresenter) maybeDrawHUD() {
	if time.Since(p.lastHUDDraw) < hudMinInterval {
		return
	}
	p.drawHUD()
}

func (p *hudPresenter) drawHUD() {
	snap := p.stats.Snapshot()

	p.clearHUD()

	var pct float64
	if snap.FilesFound > 0 {
		pct = float64(snap.FilesHashed+snap.FilesFailed) / float64(snap.FilesFound)
	}

	lines := 0

	// Line 1: throughput sparkline + speed + byte totals.
	spark := Sparkline(p.stats.SparklineData(sparklineWidth), sparklineWidth)
	fmt.Fprintf(p.w, "       %s   %s   %s files/s   %s / %s\n",
		spark, FormatRate(p.stats.RollingSpeed(10)),
		FormatCount(int64(p.stats.RollingFilesPerSec(10))),
		FormatBytes(snap.BytesHashed), FormatBytes(snap.BytesFound))
	lines++

	// Line 2: progress bar + files + duplicates. The total keeps growing
	// until the walk completes.
	found := FormatCount(snap.FilesFound)
	if !p.scanDone {
		found += "+"
	}
	fmt.Fprintf(p.w, " %3.0f%%  %s   %s / %s files   %s duplicates   %s reclaimable\n",
		pct*100, ProgressBar(pct, progressBarWidth),
		FormatCount(snap.FilesHashed), found,
		FormatCount(snap.Duplicates), FormatBytes(snap.BytesReclaimable))
	lines++

	p.hudDrawn = true
	p.hudLineCount = lines
	p.lastHUDDraw = time.Now()
}

func (p *hudPresenter) clearHUD() {
	if !p.hudDrawn {
		return
	}
	lines := p.hudLineCount
	if lines == 0 {
		lines = 2 // fallback
	}
	// Move cursor up N lines and clear to end of screen.
	fmt.Fprintf(p.w, "\033[%dA\033[J", lines)
	p.hudDrawn = false
}

func (p *hudPresenter) Summary() string {
	return CompletionSummary(p.stats.Snapshot())
}

// relPath strips the scan root from a path for display. Falls back to
// the original path.
func (p *hudPresenter) relPath(path string) string {
	if p.root == "" {
		return path
	}
	rel, err := filepath.Rel(p.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}

// styledPath returns the path with the directory portion dimmed and the
// filename in normal weight, making the actual filename stand out.
func (p *hudPresenter) styledPath(path string) string {
	path = p.relPath(path)
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	if dir == "." || dir == "" {
		return base
	}
	return fmt.Sprintf("%s%s/%s%s", ansiDim, dir, ansiReset, base)
}

// StripRoot removes a root prefix from a path, returning a clean relative path.
func StripRoot(root, path string) string {
	if root == "" {
		return path
	}
	// Ensure root ends with separator for clean stripping.
	if !strings.HasSuffix(root, string(filepath.Separator)) {
		root += string(filepath.Separator)
	}
	if rel, ok := strings.CutPrefix(path, root); ok {
		return rel
	}
	return path
}
