package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// Client downloads archive content from the mirror pool. Every fetch
// is staged in the temp directory and only moved into place once fully
// written, so an aborted download never leaves a partial file at the
// destination.
type Client struct {
	pool    *Pool
	http    *http.Client
	fs      afero.Fs
	tempDir string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithFs sets the filesystem that staged and final files are written to.
func WithFs(fsys afero.Fs) Option {
	return func(c *Client) {
		if fsys != nil {
			c.fs = fsys
		}
	}
}

// WithTempDir sets the staging directory for downloads.
func WithTempDir(dir string) Option {
	return func(c *Client) {
		if dir != "" {
			c.tempDir = dir
		}
	}
}

func NewClient(pool *Pool, opts ...Option) *Client {
	c := &Client{
		pool:    pool,
		http:    http.DefaultClient,
		fs:      afero.NewOsFs(),
		tempDir: os.TempDir(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch downloads relPath to destPath and returns the number of bytes
// written. Master-only entries go straight to the master mirror;
// everything else tries a random mirror first and falls back to the
// master exactly once. Failure against the master is terminal for the
// entry.
func (c *Client) Fetch(ctx context.Context, relPath, destPath string, masterOnly bool) (int64, error) {
	base := c.pool.Random()
	if masterOnly {
		base = c.pool.Master()
	}

	n, err := c.fetchFrom(ctx, base, relPath, destPath)
	if err != nil && base != c.pool.Master() {
		log.WithError(err).Warnf("fetch %s from %s failed, retrying against master", relPath, base)
		n, err = c.fetchFrom(ctx, c.pool.Master(), relPath, destPath)
	}
	return n, err
}

func (c *Client) fetchFrom(ctx context.Context, base, relPath, destPath string) (int64, error) {
	u, err := joinURL(base, relPath)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, fmt.Errorf("build request %s: %w", u, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("fetch %s: unexpected status %s", u, resp.Status)
	}

	tmp, err := afero.TempFile(c.fs, c.tempDir, "idgames-*.part")
	if err != nil {
		return 0, fmt.Errorf("create staging file in %s: %w", c.tempDir, err)
	}
	tmpName := tmp.Name()

	n, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		c.fs.Remove(tmpName)
		return 0, fmt.Errorf("stage %s: %w", relPath, err)
	}

	if err := c.place(tmpName, destPath); err != nil {
		c.fs.Remove(tmpName)
		return 0, err
	}
	return n, nil
}

// place moves the fully staged file to its final destination. The
// rename may cross filesystems when the temp directory lives on
// another device; in that case the content is re-staged next to the
// destination and renamed from there.
func (c *Client) place(tempPath, destPath string) error {
	if err := c.fs.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", destPath, err)
	}
	if err := c.fs.Rename(tempPath, destPath); err == nil {
		return nil
	}

	in, err := c.fs.Open(tempPath)
	if err != nil {
		return fmt.Errorf("reopen staging file %s: %w", tempPath, err)
	}
	defer in.Close()

	staged := destPath + ".part"
	if err := afero.WriteReader(c.fs, staged, in); err != nil {
		c.fs.Remove(staged)
		return fmt.Errorf("restage %s: %w", destPath, err)
	}
	if err := c.fs.Rename(staged, destPath); err != nil {
		c.fs.Remove(staged)
		return fmt.Errorf("place %s: %w", destPath, err)
	}
	c.fs.Remove(tempPath)
	return nil
}

func joinURL(base, relPath string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid mirror url %s: %w", base, err)
	}
	u.Path = path.Join(u.Path, relPath)
	return u.String(), nil
}
