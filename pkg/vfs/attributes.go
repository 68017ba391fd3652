package vfs

import (
	"context"
	"strings"
	"time"

	"github.com/s3vfs/s3vfs/internal/acl"
	vfserrors "github.com/s3vfs/s3vfs/pkg/errors"
	"github.com/s3vfs/s3vfs/pkg/types"
)

// AttributeKind selects which attribute view a read returns. A posix
// snapshot can satisfy a basic request; a basic snapshot never satisfies a
// posix request.
type AttributeKind int

const (
	KindBasic AttributeKind = iota
	KindPosix
)

// String returns the attribute family name used in filter specs.
func (k AttributeKind) String() string {
	if k == KindPosix {
		return "posix"
	}
	return "basic"
}

// Attributes is a point-in-time snapshot of a path's metadata. Directory
// snapshots report zero size regardless of the marker object.
type Attributes struct {
	Kind         AttributeKind
	Size         int64
	LastModified time.Time
	ETag         string
	ContentType  string
	Directory    bool
	RegularFile  bool

	// Posix view, populated only when Kind is KindPosix.
	Owner       types.Owner
	Permissions []types.AccessMode

	capturedAt time.Time
}

// CapturedAt returns the capture instant the TTL is measured from.
func (a *Attributes) CapturedAt() time.Time { return a.capturedAt }

// satisfies reports whether this snapshot can answer a request for the given
// kind.
func (a *Attributes) satisfies(k AttributeKind) bool {
	return a.Kind == k || (a.Kind == KindPosix && k == KindBasic)
}

// ReadAttributes returns the attributes of the path. A fresh snapshot of a
// satisfying kind is consumed and returned without any store access;
// otherwise a fresh capture is fetched, stored in the path's slot, and
// returned. Each read therefore either drains the slot or refills it for
// the next read within the TTL.
func (fs *FileSystem) ReadAttributes(ctx context.Context, p *Path, kind AttributeKind) (attrs *Attributes, err error) {
	start := time.Now()
	defer func() { fs.observe("read_attributes", start, err) }()

	if e := p.attrs.Take(fs.ttl, time.Now()); e != nil {
		cached := e.(*Attributes)
		if cached.satisfies(kind) {
			return cached, nil
		}
		// Wrong kind; the consumed snapshot is discarded.
	}
	attrs, err = fs.fetchAttributes(ctx, p, kind)
	if err != nil {
		return nil, err
	}
	p.attrs.Put(attrs)
	return attrs, nil
}

// CaptureAttributes fetches the path's attributes and stores the snapshot in
// the path's slot for a later ReadAttributes to consume, returning it as
// well.
func (fs *FileSystem) CaptureAttributes(ctx context.Context, p *Path, kind AttributeKind) (*Attributes, error) {
	attrs, err := fs.fetchAttributes(ctx, p, kind)
	if err != nil {
		return nil, err
	}
	p.attrs.Put(attrs)
	return attrs, nil
}

func (fs *FileSystem) fetchAttributes(ctx context.Context, p *Path, kind AttributeKind) (*Attributes, error) {
	ref, err := fs.resolve(ctx, p)
	if err != nil {
		return nil, err
	}
	attrs := attributesFromRef(ref)
	if kind == KindPosix {
		grants, owner, aerr := fs.aclFor(ctx, p, ref)
		if aerr != nil {
			return nil, aerr
		}
		attrs.Kind = KindPosix
		attrs.Owner = owner
		attrs.Permissions = permissionsFor(grants, owner)
	}
	return attrs, nil
}

// primeBasic stores a basic snapshot in the path's slot from metadata
// already in hand, so a following attribute read needs no store access.
func (fs *FileSystem) primeBasic(p *Path, info *types.ObjectInfo, dir bool) {
	attrs := &Attributes{
		Kind:        KindBasic,
		Directory:   dir,
		RegularFile: !dir,
		capturedAt:  time.Now(),
	}
	if info != nil {
		attrs.LastModified = info.LastModified
		attrs.ETag = info.ETag
		attrs.ContentType = info.ContentType
		if !dir {
			attrs.Size = info.Size
		}
	}
	p.attrs.Put(attrs)
}

func attributesFromRef(ref fileRef) *Attributes {
	attrs := &Attributes{
		Kind:        KindBasic,
		Directory:   ref.dir,
		RegularFile: !ref.dir,
		capturedAt:  time.Now(),
	}
	if ref.info != nil {
		attrs.LastModified = ref.info.LastModified
		attrs.ETag = ref.info.ETag
		attrs.ContentType = ref.info.ContentType
		if !ref.dir {
			attrs.Size = ref.info.Size
		}
	}
	return attrs
}

// aclFor retrieves the grants governing a resolved path. Objects and
// explicit markers carry their own ACL; implicit directories, bucket roots,
// and the root fall back to the bucket ACL.
func (fs *FileSystem) aclFor(ctx context.Context, p *Path, ref fileRef) ([]types.Grant, types.Owner, error) {
	if ref.key != "" {
		return fs.client.GetObjectACL(ctx, p.bucket, ref.key)
	}
	if p.IsRoot() {
		return nil, types.Owner{}, vfserrors.Newf(vfserrors.CodeInvalidArgument,
			"root has no access control list")
	}
	return fs.client.GetBucketACL(ctx, p.bucket)
}

// permissionsFor derives the modes the owner identity holds through the
// grants themselves. Execute is never granted.
func permissionsFor(grants []types.Grant, owner types.Owner) []types.AccessMode {
	return acl.Modes(grants, owner.ID)
}

// CheckAccess verifies the requested modes against the path's ACL, evaluated
// as the file store's owner (the account behind the bucket). An object owned
// by that account passes outright; an object owned by another account passes
// only when its grants cover the store owner. With no modes it degrades to
// an existence check. The error names the first mode refused.
func (fs *FileSystem) CheckAccess(ctx context.Context, p *Path, modes ...types.AccessMode) (err error) {
	start := time.Now()
	defer func() { fs.observe("check_access", start, err) }()

	ref, rerr := fs.resolve(ctx, p)
	if rerr != nil {
		return rerr
	}
	if len(modes) == 0 {
		return nil
	}
	if p.IsRoot() {
		// The root is synthetic; existence is all that can be checked.
		return nil
	}
	grants, owner, aerr := fs.aclFor(ctx, p, ref)
	if aerr != nil {
		return aerr
	}
	identity := owner.ID
	if ref.key != "" {
		_, storeOwner, berr := fs.client.GetBucketACL(ctx, p.bucket)
		if berr != nil {
			return berr
		}
		identity = storeOwner.ID
	}
	return acl.New(p.bucket, ref.key, grants, owner).CheckAccessAs(identity, modes...)
}

// ReadAttributesFilter returns the attributes selected by a filter spec of
// the form "[family:]name,name,..." where family defaults to basic and "*"
// selects every attribute of the family. Unknown families fail with
// UNSUPPORTED_OPERATION; unknown names within a known family are ignored.
func (fs *FileSystem) ReadAttributesFilter(ctx context.Context, p *Path, spec string) (map[string]interface{}, error) {
	family := "basic"
	names := spec
	if i := strings.Index(spec, ":"); i >= 0 {
		family = spec[:i]
		names = spec[i+1:]
	}

	var kind AttributeKind
	switch family {
	case "basic":
		kind = KindBasic
	case "posix":
		kind = KindPosix
	default:
		return nil, vfserrors.Newf(vfserrors.CodeUnsupportedOperation,
			"attribute family %q not supported", family)
	}

	attrs, err := fs.ReadAttributes(ctx, p, kind)
	if err != nil {
		return nil, err
	}

	all := map[string]interface{}{
		"size":         attrs.Size,
		"lastModified": attrs.LastModified,
		"etag":         attrs.ETag,
		"contentType":  attrs.ContentType,
		"isDirectory":  attrs.Directory,
		"isRegular":    attrs.RegularFile,
	}
	if kind == KindPosix {
		all["owner"] = attrs.Owner
		all["permissions"] = attrs.Permissions
	}

	if names == "*" {
		return all, nil
	}
	out := map[string]interface{}{}
	for _, name := range strings.Split(names, ",") {
		name = strings.TrimSpace(name)
		if v, ok := all[name]; ok {
			out[name] = v
		}
	}
	return out, nil
}
