package vfs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s3vfs/s3vfs/internal/config"
	vfserrors "github.com/s3vfs/s3vfs/pkg/errors"
)

func TestIdentityKey(t *testing.T) {
	assert.Equal(t, "AKID@play.min.io:9000", identityKey("AKID", "play.min.io:9000"))
	assert.Equal(t, "s3.amazonaws.com", identityKey("", "s3.amazonaws.com"))
}

func TestParseURI(t *testing.T) {
	parsed, err := parseURI("s3://AKID:secret@play.min.io:9000/bucket/key")
	require.NoError(t, err)
	assert.Equal(t, "play.min.io:9000", parsed.host)
	assert.Equal(t, "AKID", parsed.accessKey)
	assert.Equal(t, "secret", parsed.secretKey)
	assert.Equal(t, "/bucket/key", parsed.path)
}

func TestParseURIDefaultsHost(t *testing.T) {
	parsed, err := parseURI("s3:///bucket/key")
	require.NoError(t, err)
	assert.Equal(t, DefaultEndpointHost, parsed.host)
}

func TestParseURIRejectsScheme(t *testing.T) {
	_, err := parseURI("http://example.com/b")
	assert.Equal(t, vfserrors.CodeInvalidArgument, vfserrors.CodeOf(err))
}

func TestNewFileSystemRegistersIdentity(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	fs, err := p.NewFileSystem(ctx, "s3://AKID:secret@endpoint.local", nil)
	require.NoError(t, err)
	defer fs.Close()

	assert.Equal(t, "AKID@endpoint.local", fs.Key())
	assert.Equal(t, []string{"AKID@endpoint.local"}, p.FileSystemKeys())
}

func TestNewFileSystemTwiceFails(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	fs, err := p.NewFileSystem(ctx, "s3://endpoint.local", nil)
	require.NoError(t, err)
	defer fs.Close()

	_, err = p.NewFileSystem(ctx, "s3://endpoint.local/other/path", nil)
	assert.Equal(t, vfserrors.CodeAlreadyExists, vfserrors.CodeOf(err))
}

func TestGetFileSystem(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	_, err := p.GetFileSystem("s3://endpoint.local")
	assert.Equal(t, vfserrors.CodeNotFound, vfserrors.CodeOf(err))

	fs, err := p.NewFileSystem(ctx, "s3://endpoint.local", nil)
	require.NoError(t, err)
	defer fs.Close()

	got, err := p.GetFileSystem("s3://endpoint.local/any/path")
	require.NoError(t, err)
	assert.Same(t, fs, got)
}

func TestGetFileSystemOrCreate(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	fs, err := p.GetFileSystemOrCreate(ctx, "s3://endpoint.local", nil)
	require.NoError(t, err)
	defer fs.Close()

	again, err := p.GetFileSystemOrCreate(ctx, "s3://endpoint.local", nil)
	require.NoError(t, err)
	assert.Same(t, fs, again)
}

func TestCloseFileSystem(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	fs, err := p.NewFileSystem(ctx, "s3://endpoint.local", nil)
	require.NoError(t, err)
	assert.True(t, fs.IsOpen())

	require.NoError(t, fs.Close())
	assert.False(t, fs.IsOpen())
	_, err = p.GetFileSystem("s3://endpoint.local")
	assert.True(t, vfserrors.IsNotFound(err))

	// Closing again is a no-op.
	require.NoError(t, fs.Close())
}

func TestReopenAfterClose(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	fs, err := p.NewFileSystem(ctx, "s3://endpoint.local", nil)
	require.NoError(t, err)
	require.NoError(t, fs.Close())

	fs2, err := p.NewFileSystem(ctx, "s3://endpoint.local", nil)
	require.NoError(t, err)
	defer fs2.Close()
	assert.NotSame(t, fs, fs2)
}

func TestCredentialValidation(t *testing.T) {
	p := newTestProvider(t)
	_, err := p.NewFileSystem(context.Background(), "s3://endpoint.local", map[string]string{
		config.KeyAccessKey: "AKID",
	})
	assert.Equal(t, vfserrors.CodeConfiguration, vfserrors.CodeOf(err))
}

func TestUnknownFactory(t *testing.T) {
	p := newTestProvider(t)
	_, err := p.NewFileSystem(context.Background(), "s3://endpoint.local", map[string]string{
		config.KeyClientFactory: "nonexistent",
	})
	assert.Equal(t, vfserrors.CodeConfiguration, vfserrors.CodeOf(err))
}

func TestProviderPath(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	path, err := p.Path(ctx, "s3://endpoint.local/bucket/dir/file.txt")
	require.NoError(t, err)
	assert.Equal(t, "bucket", path.Bucket())
	assert.Equal(t, "dir/file.txt", path.Key())

	fs, err := p.GetFileSystem("s3://endpoint.local")
	require.NoError(t, err)
	defer fs.Close()
	assert.Same(t, fs, path.FileSystem())
}

func TestAttributeCacheTTLFromConfig(t *testing.T) {
	p := newTestProvider(t)
	fs, err := p.NewFileSystem(context.Background(), "s3://endpoint.local", map[string]string{
		config.KeyAttributeCacheTTL: "250ms",
	})
	require.NoError(t, err)
	defer fs.Close()
	assert.Equal(t, "250ms", fs.ttl.String())
}
