package fetch

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// Pool is the immutable set of mirrors for one run. The master mirror
// is always part of the pool and can never be excluded; Random never
// returns an excluded mirror.
type Pool struct {
	master  string
	mirrors []string
	rnd     *rand.Rand
}

func NewPool(master string, mirrors, exclude []string) (*Pool, error) {
	if master == "" {
		return nil, fmt.Errorf("mirror pool: no master mirror configured")
	}

	excluded := make(map[string]bool, len(exclude))
	for _, e := range exclude {
		excluded[normalizeURL(e)] = true
	}

	p := &Pool{
		master: normalizeURL(master),
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if excluded[p.master] {
		return nil, fmt.Errorf("mirror pool: master mirror %s cannot be excluded", p.master)
	}

	for _, m := range mirrors {
		m = normalizeURL(m)
		if m == p.master || excluded[m] {
			continue
		}
		p.mirrors = append(p.mirrors, m)
	}
	return p, nil
}

func normalizeURL(u string) string {
	return strings.TrimSuffix(strings.TrimSpace(u), "/") + "/"
}

// Master is the authoritative mirror for freshness sensitive content.
func (p *Pool) Master() string {
	return p.master
}

// Random picks a mirror for ordinary content. With no usable
// secondaries the master serves everything.
func (p *Pool) Random() string {
	if len(p.mirrors) == 0 {
		return p.master
	}
	return p.mirrors[p.rnd.Intn(len(p.mirrors))]
}

// Mirrors returns the usable secondary mirrors.
func (p *Pool) Mirrors() []string {
	out := make([]string, len(p.mirrors))
	copy(out, p.mirrors)
	return out
}
