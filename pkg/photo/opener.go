// Package photo opens and decodes contact photos.
//
// FSOpener reads photos from a filesystem (the OS, or any afero.Fs in
// tests). Codec decodes PNG, JPEG, GIF, WebP and BMP data and scales it to
// the avatar size.
package photo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"strings"

	"github.com/spf13/afero"

	"github.com/marmos91/contactpic/pkg/avatar"
)

// FSOpener opens locators as files on an afero filesystem. A locator is a
// path or a file:// URI; every other scheme is reported as not found.
type FSOpener struct {
	fs afero.Fs
}

// NewFSOpener returns an opener reading from fsys.
func NewFSOpener(fsys afero.Fs) *FSOpener {
	return &FSOpener{fs: fsys}
}

// NewOSOpener returns an opener on the OS filesystem. When root is set,
// locators are resolved inside it and cannot escape it.
func NewOSOpener(root string) *FSOpener {
	var fsys afero.Fs = afero.NewOsFs()
	if root != "" {
		fsys = afero.NewBasePathFs(fsys, root)
	}
	return NewFSOpener(fsys)
}

// Open implements loader.Opener.
func (o *FSOpener) Open(ctx context.Context, loc avatar.Locator) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := pathFor(loc)
	if err != nil {
		return nil, err
	}

	info, err := o.fs.Stat(path)
	if err != nil {
		return nil, notFound(loc, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", avatar.ErrNotFound, loc)
	}

	f, err := o.fs.Open(path)
	if err != nil {
		return nil, notFound(loc, err)
	}
	return f, nil
}

func pathFor(loc avatar.Locator) (string, error) {
	s := strings.TrimSpace(loc.String())
	if s == "" {
		return "", fmt.Errorf("%w: empty locator", avatar.ErrNotFound)
	}

	if !strings.Contains(s, "://") {
		return s, nil
	}

	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", avatar.ErrNotFound, s, err)
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("%w: unsupported scheme %q", avatar.ErrNotFound, u.Scheme)
	}
	if u.Path == "" {
		return "", fmt.Errorf("%w: %q has no path", avatar.ErrNotFound, s)
	}
	return u.Path, nil
}

// notFound maps missing files to avatar.ErrNotFound and keeps other errors
// (permissions, I/O) as they are.
func notFound(loc avatar.Locator, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", avatar.ErrNotFound, loc)
	}
	return fmt.Errorf("open %s: %w", loc, err)
}
