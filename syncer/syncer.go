package syncer

import (
	"context"
	"errors"
	"io"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/jxsl13/idgames-sync/listing"
	"github.com/jxsl13/idgames-sync/model"
	"github.com/jxsl13/idgames-sync/report"
)

// Fetcher downloads one archive file to an absolute local path.
// fetch.Client satisfies it; tests use stubs.
type Fetcher interface {
	Fetch(ctx context.Context, relPath, destPath string, masterOnly bool) (int64, error)
}

// Syncer drives the parse, reconcile, fetch-or-report loop over one
// listing pass and owns the archive inventory used for pruning
// afterwards. Processing is sequential and single threaded on purpose;
// the archive is tens of thousands of small files and no other process
// is assumed to mutate the mirror concurrently.
type Syncer struct {
	fs         afero.Fs
	root       string
	opts       Options
	fetcher    Fetcher
	reconciler *Reconciler
	reporter   *report.Reporter
	stats      *Stats

	inventory map[string]struct{}
	synced    []*model.LocalEntry
	processed int
	truncated bool
	complete  bool
}

func New(fsys afero.Fs, root string, fetcher Fetcher, reporter *report.Reporter, opts Options) *Syncer {
	return &Syncer{
		fs:         fsys,
		root:       root,
		opts:       opts,
		fetcher:    fetcher,
		reconciler: NewReconciler(fsys, root),
		reporter:   reporter,
		stats:      NewStats(opts.DryRun),
		inventory:  make(map[string]struct{}, 4096),
	}
}

func (s *Syncer) Stats() *Stats {
	return s.stats
}

// Synced returns the entries that were (or in dry-run would have been)
// synchronized during the pass.
func (s *Syncer) Synced() []*model.LocalEntry {
	return s.synced
}

// Protect marks an absolute path as part of the inventory even if the
// listing never mentions it, shielding it from pruning. Used for the
// cached listing artifact at the mirror root.
func (s *Syncer) Protect(absPath string) {
	s.inventory[absPath] = struct{}{}
}

// errTruncated stops the listing walk when the debug entry cap is hit.
var errTruncated = errors.New("entry cap reached")

// Run consumes the decompressed listing and synchronizes every entry
// in input order. Unrecognized lines and symlinks are logged, never
// fatal; per entry sync failures are skipped with a warning.
func (s *Syncer) Run(ctx context.Context, r io.Reader) error {
	err := listing.Parse(r, s.opts.IncludeIncoming, func(ev listing.Event) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		switch ev := ev.(type) {
		case listing.EnterDirectory:
			log.Debugf("entering directory %q", ev.Path)
		case listing.FileEntry:
			return s.process(ctx, ev.Entry)
		case listing.DirEntry:
			return s.process(ctx, ev.Entry)
		case listing.BlockTotal:
			log.Debugf("directory %q: %d blocks", ev.Dir, ev.Blocks)
		case listing.SymlinkNotice:
			log.Infof("symlink %s present in archive, not synchronized", ev.Path)
		case listing.UnrecognizedLine:
			log.Warnf("unrecognized listing line: %q", ev.Line)
		}
		return nil
	})
	if errors.Is(err, errTruncated) {
		log.Warnf("stopping after %d entries as requested", s.processed)
		s.truncated = true
		err = nil
	}
	if err == nil && !s.truncated {
		s.complete = true
	}
	return err
}

func (s *Syncer) process(ctx context.Context, entry *model.ArchiveEntry) error {
	le := s.reconciler.Reconcile(entry)
	s.inventory[le.AbsolutePath] = struct{}{}

	if !entry.IsDir() {
		s.stats.ArchiveFiles++
		s.stats.ArchiveBytes += entry.Size
		if le.IsNewstuff {
			s.stats.NewstuffFiles++
		}
	}
	if le.Status == model.StatusUnknown {
		log.Warnf("%s: %s", le.AbsolutePath, le.Notes)
	}

	// missing directories are always created; the eligibility gate
	// only decides what gets downloaded
	synced := false
	if le.NeedsSync && (entry.IsDir() || s.opts.Eligible(le)) {
		synced = s.sync(ctx, le)
	}
	s.reporter.Report(report.Record{Local: le, Synced: synced})

	s.processed++
	if s.opts.MaxEntries > 0 && s.processed >= s.opts.MaxEntries {
		return errTruncated
	}
	return nil
}

// sync performs (or, in dry-run, pretends to perform) the action for
// one entry: directories are created, files are downloaded.
func (s *Syncer) sync(ctx context.Context, le *model.LocalEntry) bool {
	ae := le.Archive

	if s.opts.DryRun {
		if !ae.IsDir() {
			s.stats.SyncedFiles++
			s.stats.SyncedBytes += ae.Size
			s.synced = append(s.synced, le)
		}
		return true
	}

	if ae.IsDir() {
		if err := s.fs.MkdirAll(le.AbsolutePath, 0o755); err != nil {
			log.WithError(err).Errorf("create directory %s", le.AbsolutePath)
			le.Notes = appendNote(le.Notes, "mkdir failed: "+err.Error())
			return false
		}
		return true
	}

	n, err := s.fetcher.Fetch(ctx, ae.ShortPath(), le.AbsolutePath, MasterOnly(le))
	if err != nil {
		log.WithError(err).Warnf("sync %s failed, skipping", ae.ShortPath())
		le.Notes = appendNote(le.Notes, "sync failed: "+err.Error())
		return false
	}

	s.stats.SyncedFiles++
	s.stats.SyncedBytes += n
	s.synced = append(s.synced, le)
	return true
}

func appendNote(notes, note string) string {
	if notes == "" {
		return note
	}
	return notes + "; " + note
}
