package listing_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jxsl13/idgames-sync/listing"
	"github.com/jxsl13/idgames-sync/model"
)

const sample = `.:
total 16
drwxr-xr-x   2 ftp      ftp          4096 Mar 12  2023 levels
-rw-r--r--   1 ftp      ftp           123 Jan  5  2021 README
-rw-r--r--   1 ftp      ftp           456 Jan  5  2021 ls-laR.gz

./levels:
total 8
drwxr-xr-x   2 ftp      ftp          4096 Mar 12  2023 doom

./levels/doom:
total 4
-rw-r--r--   1 ftp      ftp          1024 Feb  1 08:15 my cool map.zip
lrwxrwxrwx   1 ftp      ftp            11 Feb  1  2020 link.zip -> other.zip
this is garbage

./incoming:
-rw-r--r--   1 ftp      ftp            99 Feb  2  2024 pending.wad

./newstuff:
-rw-r--r--   1 ftp      ftp          2048 Mar  1 12:00 patch.wad
`

func collect(t *testing.T, text string, includeIncoming bool) []listing.Event {
	t.Helper()
	var events []listing.Event
	err := listing.Parse(strings.NewReader(text), includeIncoming, func(ev listing.Event) error {
		events = append(events, ev)
		return nil
	})
	require.NoError(t, err)
	return events
}

func TestParseSample(t *testing.T) {
	events := collect(t, sample, false)

	require.Equal(t, listing.EnterDirectory{Path: ""}, events[0])
	require.Equal(t, listing.BlockTotal{Dir: "", Blocks: 16}, events[1])

	de, ok := events[2].(listing.DirEntry)
	require.True(t, ok)
	require.Equal(t, "levels", de.Entry.Name)
	require.Equal(t, "", de.Entry.ParentPath)
	require.Equal(t, model.KindDirectory, de.Entry.Kind)
	require.Equal(t, int64(4096), de.Entry.Size)
	require.Equal(t, "drwxr-xr-x", de.Entry.Permissions)
	require.Equal(t, 2, de.Entry.Hardlinks)
	require.Equal(t, "ftp", de.Entry.Owner)
	require.Equal(t, "Mar 12 2023", de.Entry.Modified)

	fe, ok := events[3].(listing.FileEntry)
	require.True(t, ok)
	require.Equal(t, "README", fe.Entry.Name)
	require.Equal(t, int64(123), fe.Entry.Size)

	fe, ok = events[4].(listing.FileEntry)
	require.True(t, ok)
	require.Equal(t, "ls-laR.gz", fe.Entry.Name)

	require.Equal(t, listing.EnterDirectory{Path: "levels"}, events[5])
	require.Equal(t, listing.BlockTotal{Dir: "levels", Blocks: 8}, events[6])

	de, ok = events[7].(listing.DirEntry)
	require.True(t, ok)
	require.Equal(t, "doom", de.Entry.Name)
	require.Equal(t, "levels", de.Entry.ParentPath)

	require.Equal(t, listing.EnterDirectory{Path: "levels/doom"}, events[8])
	require.Equal(t, listing.BlockTotal{Dir: "levels/doom", Blocks: 4}, events[9])

	fe, ok = events[10].(listing.FileEntry)
	require.True(t, ok)
	require.Equal(t, "my cool map.zip", fe.Entry.Name)
	require.Equal(t, "levels/doom", fe.Entry.ParentPath)
	require.Equal(t, int64(1024), fe.Entry.Size)
	require.Equal(t, "Feb 1 08:15", fe.Entry.Modified)

	require.Equal(t, listing.SymlinkNotice{Path: "levels/doom/link.zip"}, events[11])
	require.Equal(t, listing.UnrecognizedLine{Line: "this is garbage"}, events[12])

	// incoming entries are suppressed, the header is not
	require.Equal(t, listing.EnterDirectory{Path: "incoming"}, events[13])
	require.Equal(t, listing.EnterDirectory{Path: "newstuff"}, events[14])

	fe, ok = events[15].(listing.FileEntry)
	require.True(t, ok)
	require.Equal(t, "patch.wad", fe.Entry.Name)
	require.Equal(t, "newstuff", fe.Entry.ParentPath)
	require.Equal(t, int64(2048), fe.Entry.Size)

	require.Len(t, events, 16)
}

func TestParseIncludeIncoming(t *testing.T) {
	events := collect(t, sample, true)

	var names []string
	for _, ev := range events {
		if fe, ok := ev.(listing.FileEntry); ok {
			names = append(names, fe.Entry.ShortPath())
		}
	}
	require.Contains(t, names, "incoming/pending.wad")
}

func TestParseIncomingFlagResetsOnNextHeader(t *testing.T) {
	text := "./incoming:\n" +
		"-rw-r--r-- 1 ftp ftp 99 Feb  2  2024 pending.wad\n" +
		"./levels:\n" +
		"-rw-r--r-- 1 ftp ftp 10 Feb  2  2024 map.wad\n"
	events := collect(t, text, false)

	var names []string
	for _, ev := range events {
		if fe, ok := ev.(listing.FileEntry); ok {
			names = append(names, fe.Entry.ShortPath())
		}
	}
	require.Equal(t, []string{"levels/map.wad"}, names)
}

func TestParseNameReassembly(t *testing.T) {
	text := "./levels:\n" +
		"-rw-r--r--   1 ftp ftp 10 Feb  2  2024 a  b   c d.wad\n"
	events := collect(t, text, false)
	require.Len(t, events, 2)

	fe, ok := events[1].(listing.FileEntry)
	require.True(t, ok)
	require.Equal(t, "a b c d.wad", fe.Entry.Name)
}

func TestParseEmptyListing(t *testing.T) {
	require.Empty(t, collect(t, "", false))
	require.Empty(t, collect(t, "\n\n  \n", false))
}

func TestParseEmptyDirectories(t *testing.T) {
	text := ".:\n\n./empty:\n\n./other:\n"
	events := collect(t, text, false)
	require.Equal(t, []listing.Event{
		listing.EnterDirectory{Path: ""},
		listing.EnterDirectory{Path: "empty"},
		listing.EnterDirectory{Path: "other"},
	}, events)
}

func TestParseUndottedHeader(t *testing.T) {
	events := collect(t, "levels/doom:\n", false)
	require.Equal(t, []listing.Event{listing.EnterDirectory{Path: "levels/doom"}}, events)
}

func TestParseMalformedEntryLine(t *testing.T) {
	// non numeric size
	text := "-rw-r--r-- 1 ftp ftp big Feb  2  2024 x.wad\n"
	events := collect(t, text, false)
	require.Len(t, events, 1)
	_, ok := events[0].(listing.UnrecognizedLine)
	require.True(t, ok)
}

func TestParseCallbackError(t *testing.T) {
	wantErr := errors.New("stop")
	err := listing.Parse(strings.NewReader(sample), false, func(listing.Event) error {
		return wantErr
	})
	require.ErrorIs(t, err, wantErr)
}
