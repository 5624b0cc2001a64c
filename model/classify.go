package model

import (
	"regexp"
	"strings"
)

// dotfiles are the hidden bookkeeping artifacts that mirrors and
// upload tools leave around the tree.
var dotfiles = map[string]bool{
	".message":    true,
	".DS_Store":   true,
	".mirror_log": true,
	".listing":    true,
}

// metafiles are archive wide metadata, always served by the master
// mirror.
var metafileRegex = regexp.MustCompile(`^(ls-laR\.gz|LAST\.\d+\w*|fullsort\.gz|REJECTS|README.*)$`)

// nonWADPrefixes are the top level archive trees that never contain
// playable content and are skipped unless sync-all is requested.
var nonWADPrefixes = []string{
	"docs",
	"graphics",
	"history",
	"idstuff",
	"levels/reviews",
	"lmps",
	"misc",
	"music",
	"prefabs",
	"roguestuff",
	"skins",
	"sounds",
	"source",
	"themes/terrywads",
	"utils",
}

func IsDotfile(name string) bool {
	return dotfiles[name]
}

func IsMetafile(name string) bool {
	return metafileRegex.MatchString(name)
}

func IsNewstuff(parentPath string) bool {
	return strings.HasPrefix(strings.TrimPrefix(parentPath, "/"), "newstuff")
}

// IsWADEligible reports whether the archive path belongs to a tree
// that is expected to contain WAD content. Everything outside the
// known non-WAD trees counts as eligible.
func IsWADEligible(shortPath string) bool {
	p := strings.TrimPrefix(shortPath, "/")
	for _, prefix := range nonWADPrefixes {
		if p == prefix || strings.HasPrefix(p, prefix+"/") {
			return false
		}
	}
	return true
}
