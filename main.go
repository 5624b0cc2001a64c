package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/structs"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/posflag"
	kstructs "github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jxsl13/idgames-sync/config"
	"github.com/jxsl13/idgames-sync/fetch"
	"github.com/jxsl13/idgames-sync/listing"
	"github.com/jxsl13/idgames-sync/report"
	"github.com/jxsl13/idgames-sync/syncer"
)

const envPrefix = "IDGAMES_"

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		log.Errorln(err)
		os.Exit(1)
	}
}

func NewRootCmd() *cobra.Command {
	cfg := config.Default()

	cmd := &cobra.Command{
		Use:           "idgames-sync",
		Short:         "synchronize a local mirror of the idgames archive",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadConfig(cmd.Flags(), &cfg)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), afero.NewOsFs(), &cfg)
		},
	}
	registerFlags(cmd.Flags(), &cfg)
	return cmd
}

// registerFlags derives the flag set from the koanf struct tags, the
// same tags the flag provider feeds back into the configuration.
func registerFlags(fs *pflag.FlagSet, cfg *config.Config) {
	for _, field := range structs.Fields(cfg) {
		name := field.Tag("koanf")
		if name == "" || name == "-" {
			continue
		}
		short, usage := field.Tag("short"), field.Tag("description")

		switch v := field.Value().(type) {
		case bool:
			fs.BoolP(name, short, v, usage)
		case string:
			fs.StringP(name, short, v, usage)
		case int:
			fs.IntP(name, short, v, usage)
		case []string:
			fs.StringSliceP(name, short, v, usage)
		}
	}
}

func loadConfig(flags *pflag.FlagSet, cfg *config.Config) error {
	k := koanf.New(".")

	if err := k.Load(kstructs.ProviderWithDelim(config.Default(), "koanf", "."), nil); err != nil {
		return fmt.Errorf("load defaults: %w", err)
	}
	// built in mirror table, lowest precedence after the defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"master":  config.DefaultMaster,
		"mirrors": config.DefaultMirrors,
	}, "."), nil); err != nil {
		return fmt.Errorf("load mirror table: %w", err)
	}
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "_", ".")
	}), nil); err != nil {
		return fmt.Errorf("load environment: %w", err)
	}
	if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
		return fmt.Errorf("load flags: %w", err)
	}
	// flat paths so the dotted koanf tags match directly
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf", FlatPaths: true}); err != nil {
		return fmt.Errorf("unmarshal configuration: %w", err)
	}

	if cfg.Verbose {
		log.SetLevel(log.DebugLevel)
	}
	return cfg.Validate()
}

func run(ctx context.Context, fsys afero.Fs, cfg *config.Config) error {
	if err := ensureRoot(fsys, cfg); err != nil {
		return err
	}

	client := fetch.NewClient(cfg.Pool,
		fetch.WithFs(fsys),
		fetch.WithTempDir(cfg.TempDir),
	)

	listingPath, fresh, cleanup, err := obtainListing(ctx, fsys, client, cfg)
	if err != nil {
		return err
	}
	defer cleanup()
	if !fresh && !cfg.Force {
		log.Info("listing digest unchanged, mirror is up to date")
		return nil
	}

	out := io.Writer(os.Stdout)
	if cfg.Output != "" {
		f, err := fsys.Create(cfg.Output)
		if err != nil {
			return fmt.Errorf("create report output %s: %w", cfg.Output, err)
		}
		defer f.Close()
		out = f
	}
	reporter := report.New(out, cfg.ReportFormat, cfg.ReportFilter, cfg.IncludeDotfiles)

	s := syncer.New(fsys, cfg.Root, client, reporter, cfg.SyncOptions)
	s.Protect(filepath.Join(cfg.Root, config.ListingName))

	lr, err := listing.Open(fsys, listingPath)
	if err != nil {
		return fmt.Errorf("open listing %s: %w", listingPath, err)
	}
	defer lr.Close()

	if err := s.Run(ctx, lr); err != nil {
		return err
	}

	if err := s.Prune(); err != nil {
		log.WithError(err).Error("pruning finished with errors")
	}

	stats := s.Stats()
	stats.Stop()
	stats.Render(out)
	return nil
}

// ensureRoot refuses to sync into a nonexistent mirror root unless the
// operator explicitly allowed creating a new mirror.
func ensureRoot(fsys afero.Fs, cfg *config.Config) error {
	ok, err := afero.DirExists(fsys, cfg.Root)
	if err != nil {
		return fmt.Errorf("check mirror root %s: %w", cfg.Root, err)
	}
	if ok {
		return nil
	}
	if !cfg.Create {
		return fmt.Errorf("mirror root %s does not exist: pass --create to start a new mirror", cfg.Root)
	}
	if cfg.DryRun {
		return nil
	}
	if err := fsys.MkdirAll(cfg.Root, 0o755); err != nil {
		return fmt.Errorf("create mirror root %s: %w", cfg.Root, err)
	}
	return nil
}

// obtainListing returns the path of the listing artifact to parse,
// whether its content differs from the cached copy at the mirror root,
// and a cleanup for any staged copy left behind for the pass. The top
// level listing is the one fetch whose failure aborts the whole run.
func obtainListing(ctx context.Context, fsys afero.Fs, client *fetch.Client, cfg *config.Config) (string, bool, func(), error) {
	noop := func() {}

	if cfg.Listing != "" {
		ok, err := afero.Exists(fsys, cfg.Listing)
		if err != nil || !ok {
			return "", false, noop, fmt.Errorf("listing artifact %s is not readable", cfg.Listing)
		}
		return cfg.Listing, true, noop, nil
	}

	cached := filepath.Join(cfg.Root, config.ListingName)
	tmp := filepath.Join(cfg.TempDir, config.ListingName)

	if _, err := client.Fetch(ctx, config.ListingName, tmp, true); err != nil {
		return "", false, noop, fmt.Errorf("download %s from master mirror: %w", config.ListingName, err)
	}

	fetched, err := listing.Digest(fsys, tmp)
	if err != nil {
		return "", false, noop, fmt.Errorf("digest fetched listing: %w", err)
	}
	current, err := listing.Digest(fsys, cached)
	if err != nil && !os.IsNotExist(err) {
		return "", false, noop, fmt.Errorf("digest cached listing: %w", err)
	}

	if current == fetched {
		fsys.Remove(tmp)
		return cached, false, noop, nil
	}

	if cfg.DryRun {
		// leave the cached artifact untouched, parse the fresh copy
		// and discard it once the pass is over
		return tmp, true, func() { fsys.Remove(tmp) }, nil
	}
	if err := replaceFile(fsys, tmp, cached); err != nil {
		return "", false, noop, fmt.Errorf("replace cached listing: %w", err)
	}
	return cached, true, noop, nil
}

// replaceFile moves src over dst, falling back to a copy when the two
// live on different filesystems.
func replaceFile(fsys afero.Fs, src, dst string) error {
	if err := fsys.Rename(src, dst); err == nil {
		return nil
	}
	in, err := fsys.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	if err := afero.WriteReader(fsys, dst, in); err != nil {
		return err
	}
	return fsys.Remove(src)
}
