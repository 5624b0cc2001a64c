package syncer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/jxsl13/idgames-sync/model"
)

// Reconciler resolves archive entries against the local mirror tree.
type Reconciler struct {
	fs   afero.Fs
	root string
}

func NewReconciler(fsys afero.Fs, root string) *Reconciler {
	return &Reconciler{fs: fsys, root: root}
}

// Reconcile probes the local counterpart of the archive entry and
// classifies it. Missing files and size mismatches are classification
// states, not errors; a stat failure other than plain not-exist leaves
// the entry unknown and the run continues.
//
// Directories are never size-compared: their on-disk size varies
// across filesystems and means nothing.
func (r *Reconciler) Reconcile(entry *model.ArchiveEntry) *model.LocalEntry {
	le := &model.LocalEntry{
		Archive:      entry,
		AbsolutePath: filepath.Join(r.root, filepath.FromSlash(entry.ShortPath())),
		IsNewstuff:   model.IsNewstuff(entry.ParentPath),
		LocalUid:     -1,
		LocalGid:     -1,
	}

	info, err := r.fs.Stat(le.AbsolutePath)
	switch {
	case os.IsNotExist(err):
		le.Status = model.StatusMissing
		le.NeedsSync = true
		le.Notes = "missing on local system"

	case err != nil:
		le.Status = model.StatusUnknown
		le.Notes = fmt.Sprintf("stat failed: %v", err)

	case info.IsDir():
		le.Status = model.StatusDirectory
		fillLocalAttributes(le, info)

	case info.Mode().IsRegular():
		fillLocalAttributes(le, info)
		switch {
		case entry.IsDir():
			// archive side is a directory; the plain file here is an
			// anomaly, not a mismatch we can fix by downloading
			le.Status = model.StatusFile
			le.Notes = "archive directory is a plain file locally"
		case info.Size() != entry.Size:
			le.Status = model.StatusSizeMismatch
			le.NeedsSync = true
			le.Notes = fmt.Sprintf("size mismatch: archive %d bytes, local %d bytes", entry.Size, info.Size())
		default:
			le.Status = model.StatusFile
		}

	default:
		le.Status = model.StatusUnknown
		fillLocalAttributes(le, info)
		le.Notes = fmt.Sprintf("neither file nor directory: %s", info.Mode())
	}

	le.LongStatus = longStatus(le.Status)
	return le
}

func fillLocalAttributes(le *model.LocalEntry, info os.FileInfo) {
	le.LocalSize = info.Size()
	le.LocalMode = info.Mode()
	le.LocalModTime = info.ModTime()
	le.LocalUid = userID(info)
	le.LocalGid = groupID(info)
}

func longStatus(s model.SyncStatus) string {
	switch s {
	case model.StatusMissing:
		return "missing on local system"
	case model.StatusFile:
		return "present"
	case model.StatusDirectory:
		return "present"
	case model.StatusSizeMismatch:
		return "size differs from archive"
	default:
		return "unidentifiable local object"
	}
}
