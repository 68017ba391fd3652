package vfs

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/s3vfs/s3vfs/internal/storage"
	vfserrors "github.com/s3vfs/s3vfs/pkg/errors"
)

// NewReader opens a streaming reader over the object at the path. The root,
// bucket roots, and directories cannot be read.
func (fs *FileSystem) NewReader(ctx context.Context, p *Path) (rc io.ReadCloser, err error) {
	start := time.Now()
	defer func() { fs.observe("read", start, err) }()

	if p.IsRoot() || p.IsBucketRoot() {
		return nil, vfserrors.Newf(vfserrors.CodeInvalidArgument, "cannot read %s", p)
	}

	body, gerr := fs.client.GetObject(ctx, p.bucket, p.key)
	if gerr == nil {
		return body, nil
	}
	if !vfserrors.IsNotFound(gerr) {
		return nil, gerr
	}
	// No bare object. Distinguish a directory from a truly missing path.
	ref, rerr := fs.resolve(ctx, p)
	if rerr != nil {
		return nil, rerr
	}
	if ref.dir {
		return nil, vfserrors.Newf(vfserrors.CodeInvalidArgument, "%s is a directory", p)
	}
	return nil, gerr
}

// ReadFile reads the whole object at the path.
func (fs *FileSystem) ReadFile(ctx context.Context, p *Path) ([]byte, error) {
	rc, err := fs.NewReader(ctx, p)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, rerr := io.ReadAll(rc)
	if rerr != nil {
		return nil, vfserrors.Wrap(vfserrors.CodeTransport, "read_file", p.String(), rerr)
	}
	return data, nil
}

// WriteFile stores data as the object at the path, replacing any existing
// content. The content type is inferred from the path's extension.
func (fs *FileSystem) WriteFile(ctx context.Context, p *Path, data []byte) (err error) {
	start := time.Now()
	defer func() { fs.observe("write", start, err) }()

	if p.IsRoot() || p.IsBucketRoot() {
		return vfserrors.Newf(vfserrors.CodeInvalidArgument, "cannot write %s", p)
	}
	err = fs.client.PutObject(ctx, p.bucket, p.key,
		bytes.NewReader(data), int64(len(data)), storage.DetectContentType(p.key))
	if err == nil {
		p.attrs.Clear()
	}
	return err
}
