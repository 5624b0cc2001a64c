package syncer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// Prune deletes local files that the archive inventory does not
// mention. The default scope is the newstuff subtree only; PruneAll
// widens it to the whole mirror.
//
// A truncated or aborted pass leaves the inventory incomplete and
// every legitimate archive file past the cutoff would look like an
// orphan, so pruning is refused outright in that case.
func (s *Syncer) Prune() error {
	if !s.complete {
		log.Warn("listing pass incomplete, skipping pruning")
		return nil
	}

	start := s.root
	if !s.opts.PruneAll {
		start = filepath.Join(s.root, "newstuff")
		if ok, err := afero.DirExists(s.fs, start); err != nil || !ok {
			return err
		}
	}

	var merr *multierror.Error
	err := afero.Walk(s.fs, start, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			merr = multierror.Append(merr, err)
			return nil
		}
		if info.IsDir() {
			return nil
		}
		if _, ok := s.inventory[path]; ok {
			return nil
		}

		if s.opts.DryRun {
			log.Infof("would delete %s", path)
			s.stats.DeletedFiles++
			return nil
		}
		if err := s.fs.Remove(path); err != nil {
			log.WithError(err).Errorf("delete %s", path)
			merr = multierror.Append(merr, fmt.Errorf("delete %s: %w", path, err))
			return nil
		}
		log.Infof("deleted %s", path)
		s.stats.DeletedFiles++
		return nil
	})
	if err != nil {
		merr = multierror.Append(merr, err)
	}
	return merr.ErrorOrNil()
}
