package vfs

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/s3vfs/s3vfs/internal/metrics"
	"github.com/s3vfs/s3vfs/internal/storage"
	vfserrors "github.com/s3vfs/s3vfs/pkg/errors"
)

// FileSystem is an open handle on one endpoint-and-credentials identity.
// It is safe for concurrent use; the attribute slots on individual Path
// values are the one exception, documented on Path.
type FileSystem struct {
	provider *Provider
	key      string
	endpoint string
	client   storage.ObjectClient
	ttl      time.Duration
	logger   *slog.Logger
	metrics  *metrics.Collector
}

// Key returns the filesystem's identity key within its provider.
func (fs *FileSystem) Key() string { return fs.key }

// Endpoint returns the endpoint host this filesystem talks to.
func (fs *FileSystem) Endpoint() string { return fs.endpoint }

// Client exposes the underlying storage client.
func (fs *FileSystem) Client() storage.ObjectClient { return fs.client }

// Close unregisters the filesystem from its provider and releases the
// storage client.
func (fs *FileSystem) Close() error {
	return fs.provider.CloseFileSystem(fs)
}

// IsOpen reports whether the filesystem is still registered.
func (fs *FileSystem) IsOpen() bool {
	return fs.provider.IsOpen(fs)
}

// Path parses an absolute path string into a Path on this filesystem.
func (fs *FileSystem) Path(p string) (*Path, error) {
	return parsePath(fs, p)
}

func (fs *FileSystem) observe(op string, start time.Time, err error) {
	fs.metrics.RecordOperation(op, time.Since(start), string(vfserrors.CodeOf(err)))
}

// Exists reports whether the path resolves to an object, a directory marker,
// an implicit directory, a bucket, or the root.
func (fs *FileSystem) Exists(ctx context.Context, p *Path) (bool, error) {
	start := time.Now()
	_, err := fs.resolve(ctx, p)
	if vfserrors.IsNotFound(err) {
		fs.observe("exists", start, nil)
		return false, nil
	}
	fs.observe("exists", start, err)
	if err != nil {
		return false, err
	}
	return true, nil
}

// IsDirectory reports whether the path resolves to a directory. A missing
// path is not a directory.
func (fs *FileSystem) IsDirectory(ctx context.Context, p *Path) (bool, error) {
	ref, err := fs.resolve(ctx, p)
	if vfserrors.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return ref.dir, nil
}

// Delete removes the object or empty directory at the path. Deleting a
// missing path succeeds. A directory with entries fails with
// DIRECTORY_NOT_EMPTY. Both the bare key and the marker key are removed so a
// coexisting file/directory pair disappears together.
func (fs *FileSystem) Delete(ctx context.Context, p *Path) (err error) {
	start := time.Now()
	defer func() { fs.observe("delete", start, err) }()

	if p.IsRoot() || p.IsBucketRoot() {
		return vfserrors.Newf(vfserrors.CodeInvalidArgument, "cannot delete %s", p)
	}

	ref, rerr := fs.resolve(ctx, p)
	if vfserrors.IsNotFound(rerr) {
		return nil
	}
	if rerr != nil {
		return rerr
	}

	if ref.dir {
		empty, eerr := fs.directoryEmpty(ctx, p)
		if eerr != nil {
			return eerr
		}
		if !empty {
			return vfserrors.Wrap(vfserrors.CodeDirectoryNotEmpty, "delete", p.String(), nil)
		}
	}

	if derr := fs.client.DeleteObject(ctx, p.bucket, p.key); derr != nil {
		return derr
	}
	if derr := fs.client.DeleteObject(ctx, p.bucket, p.DirectoryKey()); derr != nil {
		return derr
	}
	p.attrs.Clear()
	fs.logger.Debug("deleted", "path", p.String())
	return nil
}

// directoryEmpty reports whether the directory at p has any entry besides
// its own marker.
func (fs *FileSystem) directoryEmpty(ctx context.Context, p *Path) (bool, error) {
	dirKey := p.DirectoryKey()
	out, err := fs.client.ListObjects(ctx, storage.ListInput{
		Bucket:  p.bucket,
		Prefix:  dirKey,
		MaxKeys: 2,
	})
	if err != nil {
		return false, err
	}
	if len(out.CommonPrefixes) > 0 {
		return false, nil
	}
	for _, obj := range out.Objects {
		if obj.Key != dirKey {
			return false, nil
		}
	}
	return true, nil
}

// CreateDirectory creates an explicit directory at the path: a zero-length
// marker object, plus the bucket itself when it does not yet exist. An
// existing path of any kind fails with ALREADY_EXISTS.
func (fs *FileSystem) CreateDirectory(ctx context.Context, p *Path) (err error) {
	start := time.Now()
	defer func() { fs.observe("create_directory", start, err) }()

	if p.IsRoot() {
		return vfserrors.Newf(vfserrors.CodeAlreadyExists, "root already exists")
	}

	_, rerr := fs.resolve(ctx, p)
	if rerr == nil {
		return vfserrors.Wrap(vfserrors.CodeAlreadyExists, "create_directory", p.String(), nil)
	}
	if !vfserrors.IsNotFound(rerr) {
		return rerr
	}

	if berr := fs.client.HeadBucket(ctx, p.bucket); vfserrors.IsNotFound(berr) {
		if cerr := fs.client.CreateBucket(ctx, p.bucket); cerr != nil && !vfserrors.IsAlreadyExists(cerr) {
			return cerr
		}
	} else if berr != nil {
		return berr
	}
	if p.IsBucketRoot() {
		return nil
	}

	if perr := fs.client.PutObject(ctx, p.bucket, p.DirectoryKey(),
		strings.NewReader(""), 0, storage.DirectoryContentType); perr != nil {
		return perr
	}
	fs.logger.Debug("directory created", "path", p.String())
	return nil
}
