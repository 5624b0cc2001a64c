package report

import (
	"fmt"
	"io"

	"github.com/jxsl13/idgames-sync/model"
)

// Format selects how much of each record is printed.
type Format int

const (
	FormatSimple Format = iota
	FormatMore
	FormatFull
)

func ParseFormat(s string) (Format, error) {
	switch s {
	case "simple":
		return FormatSimple, nil
	case "more":
		return FormatMore, nil
	case "full":
		return FormatFull, nil
	default:
		return 0, fmt.Errorf("unknown report format %q: try full, more or simple", s)
	}
}

// Filter selects which records are printed at all.
type Filter int

const (
	FilterAll Filter = iota
	FilterSynced
	FilterProblems
)

func ParseFilter(s string) (Filter, error) {
	switch s {
	case "all":
		return FilterAll, nil
	case "synced":
		return FilterSynced, nil
	case "problems":
		return FilterProblems, nil
	default:
		return 0, fmt.Errorf("unknown report type %q: try all, synced or problems", s)
	}
}

// Record pairs the archive side of an entry with its reconciled local
// side. Synced is true when the entry was (or, in dry-run, would have
// been) synchronized.
type Record struct {
	Local  *model.LocalEntry
	Synced bool
}

// Reporter renders per entry records. Dotfile records are suppressed
// unless the operator asked for them.
type Reporter struct {
	w            io.Writer
	format       Format
	filter       Filter
	showDotfiles bool
}

func New(w io.Writer, format Format, filter Filter, showDotfiles bool) *Reporter {
	return &Reporter{
		w:            w,
		format:       format,
		filter:       filter,
		showDotfiles: showDotfiles,
	}
}

func (r *Reporter) Report(rec Record) {
	le := rec.Local
	ae := le.Archive

	if model.IsDotfile(ae.Name) && !r.showDotfiles {
		return
	}
	switch r.filter {
	case FilterSynced:
		if !rec.Synced {
			return
		}
	case FilterProblems:
		problem := le.Status == model.StatusUnknown || (le.NeedsSync && !rec.Synced)
		if !problem {
			return
		}
	}

	switch r.format {
	case FormatSimple:
		fmt.Fprintf(r.w, "%-13s %s\n", le.Status, ae.ShortPath())
	case FormatMore:
		fmt.Fprintf(r.w, "%-13s %10d %s (%s)\n", le.Status, ae.Size, ae.ShortPath(), le.LongStatus)
	case FormatFull:
		fmt.Fprintf(r.w, "%s %3d %-8s %-8s %10d %s %-13s %s",
			ae.Permissions,
			ae.Hardlinks,
			ae.Owner,
			ae.Group,
			ae.Size,
			ae.Modified,
			le.Status,
			ae.ShortPath(),
		)
		if le.Notes != "" {
			fmt.Fprintf(r.w, " [%s]", le.Notes)
		}
		fmt.Fprintln(r.w)
	}
}
