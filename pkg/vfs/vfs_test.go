package vfs

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/s3vfs/s3vfs/internal/config"
	"github.com/s3vfs/s3vfs/internal/storage/memory"
)

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	p := NewProvider(WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	p.Resolver().SetEnvLookup(func(string) string { return "" })
	p.Resolver().SetProperty(config.KeyClientFactory, "memory")
	return p
}

// newTestFS opens a memory-backed filesystem with one bucket "bkt".
func newTestFS(t *testing.T) (*FileSystem, *memory.Client) {
	t.Helper()
	p := newTestProvider(t)
	fs, err := p.NewFileSystem(context.Background(), "s3://test.local", nil)
	require.NoError(t, err)
	t.Cleanup(func() { fs.Close() })

	mc, ok := fs.Client().(*memory.Client)
	require.True(t, ok)
	require.NoError(t, mc.CreateBucket(context.Background(), "bkt"))
	return fs, mc
}

func mustPath(t *testing.T, fs *FileSystem, s string) *Path {
	t.Helper()
	p, err := fs.Path(s)
	require.NoError(t, err)
	return p
}

func put(t *testing.T, mc *memory.Client, key, content string) {
	t.Helper()
	require.NoError(t, mc.PutObject(context.Background(), "bkt", key,
		strings.NewReader(content), int64(len(content)), "text/plain"))
}
