// Package storage defines the object-store client capability consumed by the
// filesystem layer, and a registry of named client factories.
//
// The client is the trust boundary for errors: implementations translate
// their native failures into the pkg/errors taxonomy (a not-found status
// becomes CodeNotFound, anything else CodeTransport) so callers never see
// transport-specific error types.
package storage

import (
	"context"
	"io"
	"mime"
	"path"
	"sort"
	"sync"

	"github.com/s3vfs/s3vfs/internal/config"
	vfserrors "github.com/s3vfs/s3vfs/pkg/errors"
	"github.com/s3vfs/s3vfs/pkg/types"
)

// MaxListPageSize is the page size requested from prefix listings.
const MaxListPageSize = 1000

// ListInput describes one page of a prefix listing. A non-empty Delimiter
// folds deeper keys into common prefixes (one level of nesting only).
type ListInput struct {
	Bucket            string
	Prefix            string
	Delimiter         string
	ContinuationToken string
	MaxKeys           int32
}

// ListOutput is one page of listing results.
type ListOutput struct {
	Objects               []types.ObjectInfo
	CommonPrefixes        []string
	NextContinuationToken string
	IsTruncated           bool
}

// ObjectClient is the opaque store capability: object GET/PUT/DELETE/COPY,
// metadata HEAD, prefix listing, ACL retrieval, and bucket management.
// All methods block until completion or failure; cancellation is whatever
// the underlying transport honors via ctx.
type ObjectClient interface {
	HeadBucket(ctx context.Context, bucket string) error
	CreateBucket(ctx context.Context, bucket string) error
	ListBuckets(ctx context.Context) ([]types.BucketInfo, error)

	HeadObject(ctx context.Context, bucket, key string) (*types.ObjectInfo, error)
	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	PutObject(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error
	DeleteObject(ctx context.Context, bucket, key string) error
	CopyObject(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error
	ListObjects(ctx context.Context, in ListInput) (*ListOutput, error)

	GetObjectACL(ctx context.Context, bucket, key string) ([]types.Grant, types.Owner, error)
	GetBucketACL(ctx context.Context, bucket string) ([]types.Grant, types.Owner, error)

	Close() error
}

// Factory constructs a client from a resolved endpoint host (empty means the
// implementation's well-known default) and properties.
type Factory func(ctx context.Context, endpoint string, props config.Properties) (ObjectClient, error)

var (
	factoriesMu sync.RWMutex
	factories   = map[string]Factory{}
)

// Register makes a client factory available under a name. Implementations
// register themselves from an init function, like database/sql drivers.
func Register(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	if _, dup := factories[name]; dup {
		panic("storage: Register called twice for factory " + name)
	}
	factories[name] = f
}

// New constructs a client via the named factory. An unknown name is a
// configuration error.
func New(ctx context.Context, name, endpoint string, props config.Properties) (ObjectClient, error) {
	factoriesMu.RLock()
	f, ok := factories[name]
	factoriesMu.RUnlock()
	if !ok {
		return nil, vfserrors.Newf(vfserrors.CodeConfiguration,
			"unknown storage client factory %q (registered: %v)", name, Factories())
	}
	return f(ctx, endpoint, props)
}

// Factories returns the registered factory names, sorted.
func Factories() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DetectContentType guesses a content type from the key's extension,
// defaulting to application/octet-stream.
func DetectContentType(key string) string {
	if ext := path.Ext(key); ext != "" {
		if ct := mime.TypeByExtension(ext); ct != "" {
			return ct
		}
	}
	return "application/octet-stream"
}

// DirectoryContentType marks zero-length directory marker objects.
const DirectoryContentType = "application/x-directory"
