// Package resume turns a candidate's résumé reference into a local file the
// browser can upload.
package resume

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoResume is returned for an empty reference.
var ErrNoResume = errors.New("candidate has no resume")

// RemoteOpener reads remote objects such as gs:// URIs.
type RemoteOpener interface {
	OpenURI(ctx context.Context, uri string) (io.ReadCloser, error)
}

// Resolver resolves local paths, file:// URIs and (with a RemoteOpener)
// gs:// URIs.
type Resolver struct {
	remote  RemoteOpener
	tempDir string
}

// NewResolver builds a Resolver. remote may be nil; tempDir "" uses the OS
// default.
func NewResolver(remote RemoteOpener, tempDir string) *Resolver {
	return &Resolver{remote: remote, tempDir: tempDir}
}

// Resolve returns a readable local path and a cleanup func that must be
// called once the upload is done.
func (r *Resolver) Resolve(ctx context.Context, ref string) (string, func(), error) {
	noop := func() {}
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return "", noop, ErrNoResume
	case strings.HasPrefix(ref, "gs://"):
		return r.download(ctx, ref)
	case strings.HasPrefix(ref, "file://"):
		u, err := url.Parse(ref)
		if err != nil {
			return "", noop, fmt.Errorf("parse resume uri: %w", err)
		}
		ref = u.Path
	}
	abs, err := filepath.Abs(ref)
	if err != nil {
		return "", noop, fmt.Errorf("resolve resume path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", noop, fmt.Errorf("stat resume: %w", err)
	}
	if info.IsDir() {
		return "", noop, fmt.Errorf("resume path %s is a directory", abs)
	}
	return abs, noop, nil
}

func (r *Resolver) download(ctx context.Context, uri string) (string, func(), error) {
	noop := func() {}
	if r.remote == nil {
		return "", noop, fmt.Errorf("no remote storage configured for %s", uri)
	}
	src, err := r.remote.OpenURI(ctx, uri)
	if err != nil {
		return "", noop, err
	}
	defer src.Close()

	dst, err := os.CreateTemp(r.tempDir, "resume-*"+filepath.Ext(uri))
	if err != nil {
		return "", noop, fmt.Errorf("create resume temp file: %w", err)
	}
	cleanup := func() { _ = os.Remove(dst.Name()) }
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		cleanup()
		return "", noop, fmt.Errorf("download resume: %w", err)
	}
	if err := dst.Close(); err != nil {
		cleanup()
		return "", noop, fmt.Errorf("close resume temp file: %w", err)
	}
	return dst.Name(), cleanup, nil
}
