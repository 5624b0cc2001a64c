package model

import (
	"io/fs"
	"time"
)

// SyncStatus classifies a local path against its archive entry.
type SyncStatus int

const (
	StatusMissing SyncStatus = iota
	StatusFile
	StatusDirectory
	StatusUnknown
	StatusSizeMismatch
)

func (s SyncStatus) String() string {
	switch s {
	case StatusMissing:
		return "missing"
	case StatusFile:
		return "file"
	case StatusDirectory:
		return "directory"
	case StatusSizeMismatch:
		return "size-mismatch"
	default:
		return "unknown"
	}
}

// LocalEntry is the local filesystem side of exactly one archive
// entry. Status, NeedsSync and the Local* attributes are populated by
// the reconciler and are meaningless before it ran. The Local*
// attributes are reporting only and never influence NeedsSync.
type LocalEntry struct {
	Archive *ArchiveEntry

	AbsolutePath string
	Status       SyncStatus
	LongStatus   string
	NeedsSync    bool
	Notes        string
	IsNewstuff   bool

	LocalSize    int64
	LocalMode    fs.FileMode
	LocalModTime time.Time
	LocalUid     int
	LocalGid     int
}
