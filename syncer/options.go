package syncer

import "github.com/jxsl13/idgames-sync/model"

// Options capture the operator switches that influence sync and prune
// decisions.
type Options struct {
	DryRun          bool
	SyncAll         bool
	IncludeDotfiles bool
	IncludeIncoming bool
	PruneAll        bool

	// MaxEntries stops the pass after that many processed entries.
	// Zero means no cap. A capped pass leaves the inventory incomplete
	// and disables pruning.
	MaxEntries int
}

// Eligible reports whether a file entry that needs syncing may
// actually be queued for download. Directory entries are not gated:
// missing directories are created regardless of the tree they live in.
func (o Options) Eligible(le *model.LocalEntry) bool {
	name := le.Archive.Name
	if model.IsDotfile(name) && !o.IncludeDotfiles {
		return false
	}
	if o.SyncAll || model.IsMetafile(name) || le.IsNewstuff {
		return true
	}
	return model.IsWADEligible(le.Archive.ShortPath())
}

// MasterOnly reports whether the entry must be fetched from the master
// mirror: metafiles and anything under newstuff may not have reached
// the secondary mirrors yet.
func MasterOnly(le *model.LocalEntry) bool {
	return model.IsMetafile(le.Archive.Name) || le.IsNewstuff
}
