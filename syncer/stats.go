package syncer

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
)

// Stats accumulates counters across one synchronization pass,
// including the pruning phase.
type Stats struct {
	Started  time.Time
	Finished time.Time

	ArchiveFiles  int
	ArchiveBytes  int64
	SyncedFiles   int
	SyncedBytes   int64
	NewstuffFiles int
	DeletedFiles  int

	DryRun bool
}

func NewStats(dryRun bool) *Stats {
	return &Stats{Started: time.Now(), DryRun: dryRun}
}

func (s *Stats) Stop() {
	s.Finished = time.Now()
}

func (s *Stats) Duration() time.Duration {
	end := s.Finished
	if end.IsZero() {
		end = time.Now()
	}
	return end.Sub(s.Started).Truncate(time.Millisecond)
}

// Render writes the final human readable summary block.
func (s *Stats) Render(w io.Writer) {
	syncedVerb, deletedVerb := "synced", "deleted"
	if s.DryRun {
		syncedVerb, deletedVerb = "would be synced", "would be deleted"
	}

	fmt.Fprintln(w, "--- synchronization summary ---")
	fmt.Fprintf(w, "%-22s %s\n", "duration:", s.Duration())
	fmt.Fprintf(w, "%-22s %d (%s)\n", "archive files:", s.ArchiveFiles, humanize.Bytes(uint64(s.ArchiveBytes)))
	fmt.Fprintf(w, "%-22s %d (%s)\n", "files "+syncedVerb+":", s.SyncedFiles, humanize.Bytes(uint64(s.SyncedBytes)))
	fmt.Fprintf(w, "%-22s %d\n", "newstuff files:", s.NewstuffFiles)
	fmt.Fprintf(w, "%-22s %d\n", "files "+deletedVerb+":", s.DeletedFiles)
}
