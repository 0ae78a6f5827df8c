package ui

import (
	"fmt"

	"github.com/bamsammich/dedup/internal/stats"
)

// CompletionSummary builds a final summary line from a snapshot.
// Format: done ✓  files 48,917  hashed 2.1 GiB  avg 641 MiB/s  time 3m 17s  duplicates 212  reclaimable 1.2 GiB  errors 0
func CompletionSummary(snap stats.Snapshot) string {
	avgSpeed := 0.0
	if snap.Elapsed.Seconds() > 0 {
		avgSpeed = float64(snap.BytesHashed) / snap.Elapsed.Seconds()
	}

	icon := "✓"
	if snap.Errors() > 0 {
		icon = "✗"
	}

	base := fmt.Sprintf("done %s  files %s  hashed %s  avg %s  time %s  duplicates %s  reclaimable %s",
		icon,
		FormatCount(snap.FilesFound),
		FormatBytes(snap.BytesHashed),
		FormatRate(avgSpeed),
		FormatDuration(snap.Elapsed),
		FormatCount(snap.Duplicates),
		FormatBytes(snap.BytesReclaimable),
	)

	if snap.Collisions > 0 {
		base += fmt.Sprintf("  collisions %s", FormatCount(snap.Collisions))
	}
	if snap.FilesDeleted > 0 || snap.DeleteFailed > 0 {
		base += fmt.Sprintf("  deleted %s", FormatCount(snap.FilesDeleted))
	}

	base += fmt.Sprintf("  errors %d", snap.Errors())

	return base
}
