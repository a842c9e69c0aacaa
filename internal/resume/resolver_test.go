package resume

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeOpener struct {
	objects map[string]string
}

func (f fakeOpener) OpenURI(_ context.Context, uri string) (io.ReadCloser, error) {
	body, ok := f.objects[uri]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func TestResolveLocalAndFileURI(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "resume.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF"), 0o600))
	r := NewResolver(nil, "")

	got, cleanup, err := r.Resolve(context.Background(), path)
	require.NoError(t, err)
	cleanup()
	require.Equal(t, path, got)

	got, cleanup, err = r.Resolve(context.Background(), "file://"+path)
	require.NoError(t, err)
	cleanup()
	require.Equal(t, path, got)
	_, err = os.Stat(path)
	require.NoError(t, err, "cleanup must not remove caller-owned files")
}

func TestResolveErrors(t *testing.T) {
	t.Parallel()

	r := NewResolver(nil, "")
	_, _, err := r.Resolve(context.Background(), "  ")
	require.ErrorIs(t, err, ErrNoResume)

	_, _, err = r.Resolve(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
	require.Error(t, err)

	_, _, err = r.Resolve(context.Background(), t.TempDir())
	require.ErrorContains(t, err, "directory")

	_, _, err = r.Resolve(context.Background(), "gs://bucket/resume.pdf")
	require.ErrorContains(t, err, "no remote storage")
}

func TestResolveDownloadsRemote(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	r := NewResolver(fakeOpener{objects: map[string]string{"gs://resumes/c1/resume.pdf": "%PDF-1.7"}}, tmp)

	path, cleanup, err := r.Resolve(context.Background(), "gs://resumes/c1/resume.pdf")
	require.NoError(t, err)
	require.Equal(t, ".pdf", filepath.Ext(path))
	body, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.7", string(body))

	cleanup()
	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))

	_, _, err = r.Resolve(context.Background(), "gs://resumes/missing.pdf")
	require.ErrorContains(t, err, "object not found")
}
