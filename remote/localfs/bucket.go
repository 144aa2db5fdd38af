// Package localfs stores blobs as files under a directory that the web
// server also serves statically.
package localfs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/ourstory/ourstory/remote"
)

// Bucket writes objects to Root/<name>/<path> and serves them from
// URLPrefix/<name>/<path>.
type Bucket struct {
	root      string
	name      string
	urlPrefix string
}

// New returns a bucket rooted at root. urlPrefix is the path the static
// file handler exposes root under, e.g. "/public".
func New(root, name, urlPrefix string) *Bucket {
	return &Bucket{root: root, name: name, urlPrefix: strings.TrimSuffix(urlPrefix, "/")}
}

// Upload writes r to the object at p, replacing any previous content.
func (b *Bucket) Upload(ctx context.Context, p string, r io.Reader, contentType string) error {
	clean, err := cleanPath(p)
	if err != nil {
		return remote.Wrap("upload", b.name, err)
	}
	dst := filepath.Join(b.root, b.name, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return remote.Wrap("upload", b.name, fmt.Errorf("create dir: %w", err))
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return remote.Wrap("upload", b.name, err)
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return remote.Wrap("upload", b.name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return remote.Wrap("upload", b.name, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return remote.Wrap("upload", b.name, err)
	}
	return nil
}

// PublicURL returns the URL the object at p is served from.
func (b *Bucket) PublicURL(p string) string {
	clean, err := cleanPath(p)
	if err != nil {
		clean = path.Base(p)
	}
	return b.urlPrefix + "/" + b.name + "/" + clean
}

func cleanPath(p string) (string, error) {
	clean := path.Clean("/" + strings.ReplaceAll(p, "\\", "/"))
	clean = strings.TrimPrefix(clean, "/")
	if clean == "" || clean == "." {
		return "", fmt.Errorf("empty object path")
	}
	return clean, nil
}
