package listing

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/spf13/afero"
	"github.com/ulikunitz/xz"
)

// Open returns a reader over the decompressed listing artifact. The
// compression is dispatched on the file extension; anything without a
// known extension is read as plain text.
func Open(fsys afero.Fs, path string) (io.ReadCloser, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, err
	}

	switch filepath.Ext(path) {
	case ".gz":
		zr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open gzip listing %s: %w", path, err)
		}
		return &multiCloser{Reader: zr, closers: []io.Closer{zr, f}}, nil
	case ".xz":
		xr, err := xz.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open xz listing %s: %w", path, err)
		}
		return &multiCloser{Reader: xr, closers: []io.Closer{f}}, nil
	default:
		return f, nil
	}
}

type multiCloser struct {
	io.Reader
	closers []io.Closer
}

func (m *multiCloser) Close() error {
	var err error
	for _, c := range m.closers {
		if e := c.Close(); err == nil {
			err = e
		}
	}
	return err
}
