package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/jxsl13/idgames-sync/config"
)

func TestRegisterFlags(t *testing.T) {
	cfg := config.Default()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	registerFlags(flags, &cfg)

	for _, name := range []string{
		"root", "create", "dry.run", "mirror", "exclude.mirror",
		"sync.all", "prune.all", "format", "report", "max.entries",
	} {
		require.NotNil(t, flags.Lookup(name), name)
	}

	require.Equal(t, "n", flags.Lookup("dry.run").Shorthand)
	require.Equal(t, "r", flags.Lookup("root").Shorthand)

	// derived fields must not leak into the flag set
	require.Nil(t, flags.Lookup("-"))
}

func TestLoadConfigPrecedence(t *testing.T) {
	t.Setenv("IDGAMES_FORMAT", "full")
	t.Setenv("IDGAMES_SYNC_ALL", "true")

	cfg := config.Default()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	registerFlags(flags, &cfg)
	require.NoError(t, flags.Set("root", t.TempDir()))
	require.NoError(t, flags.Set("format", "more"))

	require.NoError(t, loadConfig(flags, &cfg))

	// flags beat the environment, the environment beats defaults
	require.Equal(t, "more", cfg.Format)
	require.True(t, cfg.SyncAll)

	// the built in mirror table fills master and mirrors
	require.Equal(t, config.DefaultMaster, cfg.Pool.Master())
	require.Len(t, cfg.Pool.Mirrors(), len(config.DefaultMirrors))
}

const e2eListing = `.:
drwxr-xr-x   2 ftp ftp 4096 Mar 12  2023 levels
drwxr-xr-x   2 ftp ftp 4096 Mar 12  2023 newstuff

./levels:
-rw-r--r--   1 ftp ftp    9 Feb  1 08:15 map.wad

./newstuff:
-rw-r--r--   1 ftp ftp    5 Mar  1 12:00 patch.wad
`

func gzipListing(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(e2eListing))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestRunEndToEnd(t *testing.T) {
	gz := gzipListing(t)
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		switch r.URL.Path {
		case "/ls-laR.gz":
			w.Write(gz)
		case "/levels/map.wad":
			w.Write([]byte("wadwadwad"))
		case "/newstuff/patch.wad":
			w.Write([]byte("fresh"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	fs := afero.NewMemMapFs()
	cfg := config.Default()
	cfg.Root = "/mirror"
	cfg.Create = true
	cfg.Master = server.URL
	cfg.Output = "/report.txt"
	cfg.TempDir = "/tmp"
	require.NoError(t, cfg.Validate())

	require.NoError(t, run(context.Background(), fs, &cfg))

	for _, p := range []string{
		"/mirror/levels/map.wad",
		"/mirror/newstuff/patch.wad",
		"/mirror/ls-laR.gz",
	} {
		ok, err := afero.Exists(fs, p)
		require.NoError(t, err)
		require.True(t, ok, p)
	}

	data, err := afero.ReadFile(fs, "/mirror/levels/map.wad")
	require.NoError(t, err)
	require.Equal(t, "wadwadwad", string(data))

	rep, err := afero.ReadFile(fs, "/report.txt")
	require.NoError(t, err)
	require.Contains(t, string(rep), "missing")
	require.Contains(t, string(rep), "synchronization summary")

	// a second run sees the unchanged listing digest and stops early
	fetchesBefore := len(paths)
	require.NoError(t, run(context.Background(), fs, &cfg))
	require.Equal(t, fetchesBefore+1, len(paths), "only the listing may be fetched again")
}

func TestRunDryRunDiscardsStagedListing(t *testing.T) {
	gz := gzipListing(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ls-laR.gz" {
			w.Write(gz)
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(server.Close)

	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/mirror", 0o755))

	cfg := config.Default()
	cfg.Root = "/mirror"
	cfg.DryRun = true
	cfg.Master = server.URL
	cfg.Output = "/report.txt"
	cfg.TempDir = "/tmp"
	require.NoError(t, cfg.Validate())

	require.NoError(t, run(context.Background(), fs, &cfg))

	// neither the staging area nor the mirror root keeps the listing
	for _, p := range []string{"/tmp/ls-laR.gz", "/mirror/ls-laR.gz"} {
		ok, err := afero.Exists(fs, p)
		require.NoError(t, err)
		require.False(t, ok, p)
	}
}

func TestRunRefusesMissingRootWithoutCreate(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg := config.Default()
	cfg.Root = "/mirror"
	cfg.Master = "http://unused.example/"
	require.NoError(t, cfg.Validate())

	err := run(context.Background(), fs, &cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "--create")
}

func TestRunFatalWithoutListing(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(server.Close)

	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/mirror", 0o755))

	cfg := config.Default()
	cfg.Root = "/mirror"
	cfg.Master = server.URL
	cfg.TempDir = "/tmp"
	require.NoError(t, cfg.Validate())

	err := run(context.Background(), fs, &cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "ls-laR.gz")
}
