package vfs

import (
	"context"

	"github.com/s3vfs/s3vfs/internal/storage"
	vfserrors "github.com/s3vfs/s3vfs/pkg/errors"
	"github.com/s3vfs/s3vfs/pkg/types"
)

// fileRef is the outcome of resolving a path against the store: what key
// actually backs it and whether it behaves as a directory.
type fileRef struct {
	// key is the backing object key, empty for the root and for bucket
	// roots and implicit directories (which have no object of their own).
	key string
	dir bool
	// info is the backing object's metadata when one exists.
	info *types.ObjectInfo
}

// resolve maps a path to its backing store state. Lookup order: the bare
// object key, then the explicit directory marker, then a one-entry prefix
// probe for an implicit directory. A path with a bare object wins over a
// coexisting marker here; directory listings resolve the same name the other
// way.
func (fs *FileSystem) resolve(ctx context.Context, p *Path) (fileRef, error) {
	if p.IsRoot() {
		return fileRef{dir: true}, nil
	}
	if p.IsBucketRoot() {
		if err := fs.client.HeadBucket(ctx, p.bucket); err != nil {
			return fileRef{}, err
		}
		return fileRef{dir: true}, nil
	}

	if info, err := fs.client.HeadObject(ctx, p.bucket, p.key); err == nil {
		return fileRef{key: p.key, info: info}, nil
	} else if !vfserrors.IsNotFound(err) {
		return fileRef{}, err
	}

	dirKey := p.DirectoryKey()
	if info, err := fs.client.HeadObject(ctx, p.bucket, dirKey); err == nil {
		return fileRef{key: dirKey, dir: true, info: info}, nil
	} else if !vfserrors.IsNotFound(err) {
		return fileRef{}, err
	}

	out, err := fs.client.ListObjects(ctx, storage.ListInput{
		Bucket:  p.bucket,
		Prefix:  dirKey,
		MaxKeys: 1,
	})
	if err != nil {
		return fileRef{}, err
	}
	if len(out.Objects) > 0 || len(out.CommonPrefixes) > 0 {
		return fileRef{dir: true}, nil
	}
	return fileRef{}, vfserrors.Wrap(vfserrors.CodeNotFound, "resolve", p.String(), nil)
}
