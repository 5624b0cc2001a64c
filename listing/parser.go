package listing

import (
	"bufio"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/jxsl13/idgames-sync/model"
)

// Event is one parsed element of the recursive listing. The concrete
// types below form a closed set; consumers switch exhaustively.
type Event interface {
	event()
}

// EnterDirectory marks a directory header line. Path is archive root
// relative without leading slash; the archive root itself is "".
type EnterDirectory struct {
	Path string
}

// FileEntry is a regular file line.
type FileEntry struct {
	Entry *model.ArchiveEntry
}

// DirEntry is a directory line inside its parent's section.
type DirEntry struct {
	Entry *model.ArchiveEntry
}

// BlockTotal is a "total <n>" line, attributed to the directory whose
// section it appears in.
type BlockTotal struct {
	Dir    string
	Blocks int64
}

// SymlinkNotice reports a symlink line. Symlinks are never
// synchronized, so no entry is constructed for them.
type SymlinkNotice struct {
	Path string
}

// UnrecognizedLine reports a line that matched no known layout.
// Parsing always continues.
type UnrecognizedLine struct {
	Line string
}

func (EnterDirectory) event()   {}
func (FileEntry) event()        {}
func (DirEntry) event()         {}
func (BlockTotal) event()       {}
func (SymlinkNotice) event()    {}
func (UnrecognizedLine) event() {}

// fieldCount is the standard long listing layout: permissions, hard
// link count, owner, group, size, month, day, year-or-time, name.
const fieldCount = 9

// Parse consumes the decompressed listing text and calls fn for every
// event in input order. Malformed lines never abort the parse; an
// error returned by fn stops it and is passed through.
//
// Entries below /incoming are suppressed unless includeIncoming is
// set, matching the archive convention that incoming uploads are not
// mirrored.
func Parse(r io.Reader, includeIncoming bool, fn func(Event) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	dir := ""
	inIncoming := false

	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), " \t\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		// directory header, e.g. "./levels/doom:" or ".:"
		if p, ok := dirHeaderPath(line); ok {
			dir = p
			inIncoming = dir == "incoming" || strings.HasPrefix(dir, "incoming/")
			if err := fn(EnterDirectory{Path: dir}); err != nil {
				return err
			}
			continue
		}

		if blocks, ok := parseBlockTotal(line); ok {
			if err := fn(BlockTotal{Dir: dir, Blocks: blocks}); err != nil {
				return err
			}
			continue
		}

		var err error
		switch line[0] {
		case '-', 'd':
			entry, ok := parseEntry(line, dir)
			if !ok {
				err = fn(UnrecognizedLine{Line: line})
				break
			}
			if inIncoming && !includeIncoming {
				break
			}
			if entry.IsDir() {
				err = fn(DirEntry{Entry: entry})
			} else {
				err = fn(FileEntry{Entry: entry})
			}
		case 'l':
			err = fn(SymlinkNotice{Path: path.Join(dir, symlinkName(line))})
		default:
			err = fn(UnrecognizedLine{Line: line})
		}
		if err != nil {
			return err
		}
	}
	return sc.Err()
}

// dirHeaderPath recognizes section headers of the form
// "<optional-dot><path>:". Dotted and absolute headers may contain
// whitespace in the path; undotted ones must not, so that entry lines
// are never mistaken for headers.
func dirHeaderPath(line string) (string, bool) {
	if !strings.HasSuffix(line, ":") {
		return "", false
	}
	p := strings.TrimSuffix(line, ":")
	dotted := p == "." || strings.HasPrefix(p, "./") || strings.HasPrefix(p, "/")
	if !dotted && strings.ContainsAny(p, " \t") {
		return "", false
	}
	p = strings.TrimPrefix(p, ".")
	p = strings.TrimPrefix(p, "/")
	return p, true
}

func parseBlockTotal(line string) (int64, bool) {
	if !strings.HasPrefix(line, "total ") {
		return 0, false
	}
	blocks, err := strconv.ParseInt(strings.TrimSpace(strings.TrimPrefix(line, "total ")), 10, 64)
	if err != nil {
		return 0, false
	}
	return blocks, true
}

func parseEntry(line, dir string) (*model.ArchiveEntry, bool) {
	fields := strings.Fields(line)
	if len(fields) < fieldCount {
		return nil, false
	}

	hardlinks, err := strconv.Atoi(fields[1])
	if err != nil || hardlinks < 0 {
		return nil, false
	}
	size, err := strconv.ParseInt(fields[4], 10, 64)
	if err != nil || size < 0 {
		return nil, false
	}

	// anything beyond the standard field count is a filename with
	// embedded whitespace, rejoined with single spaces
	name := strings.Join(fields[fieldCount-1:], " ")
	if name == "" {
		return nil, false
	}

	kind := model.KindFile
	if line[0] == 'd' {
		kind = model.KindDirectory
	}

	return &model.ArchiveEntry{
		Name:        name,
		ParentPath:  dir,
		Kind:        kind,
		Permissions: fields[0],
		Hardlinks:   hardlinks,
		Owner:       fields[2],
		Group:       fields[3],
		Size:        size,
		Modified:    strings.Join(fields[5:fieldCount-1], " "),
	}, true
}

func symlinkName(line string) string {
	fields := strings.Fields(line)
	if len(fields) < fieldCount {
		return line
	}
	name := strings.Join(fields[fieldCount-1:], " ")
	if i := strings.Index(name, " -> "); i >= 0 {
		name = name[:i]
	}
	return name
}
