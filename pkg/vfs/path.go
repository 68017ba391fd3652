package vfs

import (
	"strings"

	"github.com/s3vfs/s3vfs/internal/cache"
	"github.com/s3vfs/s3vfs/internal/keymap"
	vfserrors "github.com/s3vfs/s3vfs/pkg/errors"
)

// Path names a location inside a filesystem: a bucket and an object key
// below it. The zero key with an empty bucket is the filesystem root. A Path
// carries a single-use attribute snapshot slot primed by directory listings;
// the slot makes a Path stateful, so share one instance per location when the
// snapshot should be visible to the consumer.
type Path struct {
	fs     *FileSystem
	bucket string
	key    string
	attrs  cache.Slot
}

func newPath(fs *FileSystem, bucket, key string) *Path {
	return &Path{fs: fs, bucket: bucket, key: key}
}

// parsePath splits a normalized absolute path into bucket and key.
func parsePath(fs *FileSystem, p string) (*Path, error) {
	clean, err := keymap.Normalize(p)
	if err != nil {
		return nil, err
	}
	rel := keymap.ToKey(clean)
	if rel == "" {
		return newPath(fs, "", ""), nil
	}
	bucket, key, _ := strings.Cut(rel, keymap.Separator)
	return newPath(fs, bucket, strings.TrimSuffix(key, keymap.Separator)), nil
}

// FileSystem returns the filesystem this path belongs to.
func (p *Path) FileSystem() *FileSystem { return p.fs }

// Bucket returns the bucket component, empty for the root.
func (p *Path) Bucket() string { return p.bucket }

// Key returns the object key below the bucket, without a trailing separator.
// Empty for the root and for bucket roots.
func (p *Path) Key() string { return p.key }

// DirectoryKey returns the explicit directory marker key for this path.
func (p *Path) DirectoryKey() string { return keymap.DirectoryKeyFor(p.key) }

// IsRoot reports whether this is the filesystem root.
func (p *Path) IsRoot() bool { return p.bucket == "" }

// IsBucketRoot reports whether this path names a bucket with no key.
func (p *Path) IsBucketRoot() bool { return p.bucket != "" && p.key == "" }

// Name returns the final path segment, or the bucket name for a bucket root,
// or "/" for the root.
func (p *Path) Name() string {
	if p.IsRoot() {
		return keymap.Separator
	}
	if p.key == "" {
		return p.bucket
	}
	if i := strings.LastIndex(p.key, keymap.Separator); i >= 0 {
		return p.key[i+1:]
	}
	return p.key
}

// Parent returns the containing directory. The root is its own parent.
func (p *Path) Parent() *Path {
	if p.IsRoot() {
		return p
	}
	if p.key == "" {
		return newPath(p.fs, "", "")
	}
	if i := strings.LastIndex(p.key, keymap.Separator); i >= 0 {
		return newPath(p.fs, p.bucket, p.key[:i])
	}
	return newPath(p.fs, p.bucket, "")
}

// Join resolves a relative child name against this path.
func (p *Path) Join(name string) (*Path, error) {
	name = strings.Trim(name, keymap.Separator)
	if name == "" || strings.Contains(name, keymap.Separator) {
		return nil, vfserrors.Newf(vfserrors.CodeInvalidArgument, "invalid child name %q", name)
	}
	if p.IsRoot() {
		return newPath(p.fs, name, ""), nil
	}
	if p.key == "" {
		return newPath(p.fs, p.bucket, name), nil
	}
	return newPath(p.fs, p.bucket, p.key+keymap.Separator+name), nil
}

// String returns the absolute path form, "/bucket/key".
func (p *Path) String() string {
	if p.IsRoot() {
		return keymap.Separator
	}
	if p.key == "" {
		return keymap.Separator + p.bucket
	}
	return keymap.Separator + p.bucket + keymap.Separator + p.key
}

// Equal reports whether two paths name the same location on the same
// filesystem.
func (p *Path) Equal(o *Path) bool {
	if p == nil || o == nil {
		return p == o
	}
	return p.fs == o.fs && p.bucket == o.bucket && p.key == o.key
}
