package vfs

import (
	"context"
	"time"

	vfserrors "github.com/s3vfs/s3vfs/pkg/errors"
)

// CopyOption adjusts Copy and Move behavior.
type CopyOption int

const (
	// ReplaceExisting deletes an existing target before copying. Without
	// it, an existing target fails with ALREADY_EXISTS.
	ReplaceExisting CopyOption = iota

	// CopyAttributes is accepted for compatibility; object copies carry
	// their metadata regardless.
	CopyAttributes

	// AtomicMove requests an atomic rename, which a flat object store
	// cannot provide. Move refuses it with UNSUPPORTED_OPERATION.
	AtomicMove
)

func (o CopyOption) String() string {
	switch o {
	case ReplaceExisting:
		return "replace_existing"
	case CopyAttributes:
		return "copy_attributes"
	case AtomicMove:
		return "atomic_move"
	default:
		return "unknown"
	}
}

func hasOption(opts []CopyOption, want CopyOption) bool {
	for _, o := range opts {
		if o == want {
			return true
		}
	}
	return false
}

func validateOptions(opts []CopyOption) error {
	for _, o := range opts {
		switch o {
		case ReplaceExisting, CopyAttributes:
		case AtomicMove:
			return vfserrors.New(vfserrors.CodeUnsupportedOperation,
				"atomic move is not supported")
		default:
			return vfserrors.Newf(vfserrors.CodeUnsupportedOperation,
				"copy option %d not supported", int(o))
		}
	}
	return nil
}

// Copy copies the object at src to dst via a server-side copy. Directories
// cannot be copied. Copying a path onto itself succeeds without any store
// access beyond resolution.
func (fs *FileSystem) Copy(ctx context.Context, src, dst *Path, opts ...CopyOption) (err error) {
	start := time.Now()
	defer func() { fs.observe("copy", start, err) }()
	return fs.copyObject(ctx, src, dst, opts)
}

// Move copies src to dst and then deletes src. There is no atomic rename;
// requesting AtomicMove fails with UNSUPPORTED_OPERATION and on any failure
// partial state may remain.
func (fs *FileSystem) Move(ctx context.Context, src, dst *Path, opts ...CopyOption) (err error) {
	start := time.Now()
	defer func() { fs.observe("move", start, err) }()

	if err := fs.copyObject(ctx, src, dst, opts); err != nil {
		return err
	}
	if src.Equal(dst) {
		return nil
	}
	return fs.Delete(ctx, src)
}

func (fs *FileSystem) copyObject(ctx context.Context, src, dst *Path, opts []CopyOption) error {
	if err := validateOptions(opts); err != nil {
		return err
	}
	if src.IsRoot() || src.IsBucketRoot() || dst.IsRoot() || dst.IsBucketRoot() {
		return vfserrors.Newf(vfserrors.CodeInvalidArgument, "cannot copy %s to %s", src, dst)
	}

	ref, err := fs.resolve(ctx, src)
	if err != nil {
		return err
	}
	if ref.dir {
		return vfserrors.Wrap(vfserrors.CodeUnsupportedOperation, "copy directory", src.String(), nil)
	}
	if src.Equal(dst) {
		return nil
	}

	_, derr := fs.resolve(ctx, dst)
	switch {
	case derr == nil:
		if !hasOption(opts, ReplaceExisting) {
			return vfserrors.Wrap(vfserrors.CodeAlreadyExists, "copy", dst.String(), nil)
		}
		// Replacing a non-empty directory fails inside Delete.
		if err := fs.Delete(ctx, dst); err != nil {
			return err
		}
	case !vfserrors.IsNotFound(derr):
		return derr
	}

	if err := fs.client.CopyObject(ctx, src.bucket, ref.key, dst.bucket, dst.key); err != nil {
		return err
	}
	dst.attrs.Clear()
	fs.logger.Debug("copied", "src", src.String(), "dst", dst.String())
	return nil
}
