package config

import (
	"fmt"
	"os"
	"path/filepath"

	yaml "gopkg.in/yaml.v3"

	"github.com/jxsl13/idgames-sync/fetch"
	"github.com/jxsl13/idgames-sync/report"
	"github.com/jxsl13/idgames-sync/syncer"
)

// ListingName is the compressed recursive listing published at the
// archive root.
const ListingName = "ls-laR.gz"

// Built in mirror table. A mirror file or flags may replace it.
const DefaultMaster = "https://www.gamers.org/pub/idgames/"

var DefaultMirrors = []string{
	"https://mirrors.syringanetworks.net/idgames/",
	"https://youfailit.net/pub/idgames/",
	"https://www.quaddicted.com/files/idgames/",
	"https://ftpmirror1.infania.net/pub/idgames/",
}

type Config struct {
	Root            string   `koanf:"root" short:"r" description:"local mirror root directory"`
	Create          bool     `koanf:"create" short:"c" description:"allow creating a new mirror at the root"`
	DryRun          bool     `koanf:"dry.run" short:"n" description:"report what would be done without downloading or deleting"`
	Master          string   `koanf:"master" description:"master mirror URL, authoritative for metafiles and newstuff"`
	Mirrors         []string `koanf:"mirrors" description:"secondary mirror URLs"`
	Mirror          string   `koanf:"mirror" short:"m" description:"fetch everything from this mirror URL instead of the pool"`
	MirrorFile      string   `koanf:"mirror.file" description:"YAML file with master and mirror URLs"`
	ExcludeMirrors  []string `koanf:"exclude.mirror" short:"x" description:"exclude mirror URLs from the pool"`
	Listing         string   `koanf:"listing" short:"l" description:"parse an existing listing artifact instead of downloading"`
	Force           bool     `koanf:"force" short:"f" description:"parse the listing even if its digest is unchanged"`
	SyncAll         bool     `koanf:"sync.all" short:"a" description:"sync everything, not only WAD eligible trees"`
	IncludeIncoming bool     `koanf:"include.incoming" description:"include entries below /incoming"`
	IncludeDotfiles bool     `koanf:"include.dotfiles" description:"sync and report hidden bookkeeping files"`
	PruneAll        bool     `koanf:"prune.all" description:"prune the whole mirror, not only newstuff"`
	Format          string   `koanf:"format" short:"F" description:"report format: full, more or simple"`
	Report          string   `koanf:"report" short:"R" description:"report records: all, synced or problems"`
	Output          string   `koanf:"output" short:"o" description:"write the report to this file instead of stdout"`
	TempDir         string   `koanf:"temp.dir" description:"staging directory for downloads"`
	MaxEntries      int      `koanf:"max.entries" description:"debug: stop after this many processed entries"`
	Verbose         bool     `koanf:"verbose" short:"v" description:"enable debug logging"`

	Pool         *fetch.Pool    `koanf:"-"`
	ReportFormat report.Format  `koanf:"-"`
	ReportFilter report.Filter  `koanf:"-"`
	SyncOptions  syncer.Options `koanf:"-"`
}

// Default holds the configuration before any provider ran. The mirror
// table defaults live in the confmap provider, not here.
func Default() Config {
	return Config{
		Root:   ".",
		Format: "simple",
		Report: "all",
	}
}

type mirrorFile struct {
	Master  string   `yaml:"master"`
	Mirrors []string `yaml:"mirrors"`
}

// Validate checks for contradictory options and resolves the derived
// fields: absolute root, mirror pool, report format and filter, sync
// options.
func (c *Config) Validate() error {
	if c.Root == "" {
		return fmt.Errorf("mirror root must not be empty")
	}
	abs, err := filepath.Abs(c.Root)
	if err != nil {
		return fmt.Errorf("invalid mirror root %q: %w", c.Root, err)
	}
	c.Root = abs

	if c.TempDir == "" {
		c.TempDir = os.TempDir()
	}

	master, mirrors := c.Master, c.Mirrors
	if c.MirrorFile != "" {
		data, err := os.ReadFile(c.MirrorFile)
		if err != nil {
			return fmt.Errorf("read mirror file: %w", err)
		}
		var mf mirrorFile
		if err := yaml.Unmarshal(data, &mf); err != nil {
			return fmt.Errorf("parse mirror file %s: %w", c.MirrorFile, err)
		}
		if mf.Master != "" {
			master = mf.Master
		}
		if len(mf.Mirrors) > 0 {
			mirrors = mf.Mirrors
		}
	}
	if c.Mirror != "" {
		for _, e := range c.ExcludeMirrors {
			if e == c.Mirror {
				return fmt.Errorf("may not exclude the explicitly selected mirror %s", c.Mirror)
			}
		}
		// explicit override: the chosen mirror serves everything
		master, mirrors = c.Mirror, nil
	}

	pool, err := fetch.NewPool(master, mirrors, c.ExcludeMirrors)
	if err != nil {
		return err
	}
	c.Pool = pool

	c.ReportFormat, err = report.ParseFormat(c.Format)
	if err != nil {
		return err
	}
	c.ReportFilter, err = report.ParseFilter(c.Report)
	if err != nil {
		return err
	}

	if c.MaxEntries < 0 {
		return fmt.Errorf("max.entries must not be negative")
	}

	c.SyncOptions = syncer.Options{
		DryRun:          c.DryRun,
		SyncAll:         c.SyncAll,
		IncludeDotfiles: c.IncludeDotfiles,
		IncludeIncoming: c.IncludeIncoming,
		PruneAll:        c.PruneAll,
		MaxEntries:      c.MaxEntries,
	}
	return nil
}
