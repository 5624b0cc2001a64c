package model

import (
	"path"
	"strings"
)

// Kind discriminates the two archive entry variants. Symlinks in the
// listing are reported by the parser but never become entries.
type Kind int

const (
	KindFile Kind = iota
	KindDirectory
)

func (k Kind) String() string {
	if k == KindDirectory {
		return "directory"
	}
	return "file"
}

// ArchiveEntry is one line of the upstream listing. It is immutable
// after parsing.
type ArchiveEntry struct {
	Name        string
	ParentPath  string // slash separated, relative to the archive root, no leading slash
	Kind        Kind
	Permissions string
	Hardlinks   int
	Owner       string
	Group       string
	Size        int64
	Modified    string // low precision listing timestamp, e.g. "Mar 12 2023" or "Mar 12 08:15"
}

func (e *ArchiveEntry) IsDir() bool {
	return e.Kind == KindDirectory
}

// ShortPath is the archive root relative path of the entry.
func (e *ArchiveEntry) ShortPath() string {
	return path.Join(strings.TrimPrefix(e.ParentPath, "/"), e.Name)
}
