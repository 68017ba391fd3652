// Package memory implements storage.ObjectClient on an in-process map. It
// backs the provider-level tests and registers itself under the factory name
// "memory" so a filesystem can be opened against it through the normal
// configuration path.
package memory

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/s3vfs/s3vfs/internal/config"
	"github.com/s3vfs/s3vfs/internal/storage"
	vfserrors "github.com/s3vfs/s3vfs/pkg/errors"
	"github.com/s3vfs/s3vfs/pkg/types"
)

// FactoryName is the registry name of this client implementation.
const FactoryName = "memory"

func init() {
	storage.Register(FactoryName, func(_ context.Context, _ string, props config.Properties) (storage.ObjectClient, error) {
		c := NewClient()
		if id := props["memory_owner"]; id != "" {
			c.SetOwner(types.Owner{ID: id, DisplayName: id})
		}
		return c, nil
	})
}

type object struct {
	data        []byte
	modTime     time.Time
	contentType string
	grants      []types.Grant
	owner       types.Owner
}

type bucket struct {
	created time.Time
	objects map[string]*object
	grants  []types.Grant
}

// Client is a thread-safe in-memory object store. Per-method call counters
// let tests assert how many backing fetches an operation performed.
type Client struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	owner   types.Owner
	now     func() time.Time
	calls   map[string]int
}

// NewClient creates an empty store owned by the "memfs" principal.
func NewClient() *Client {
	return &Client{
		buckets: map[string]*bucket{},
		owner:   types.Owner{ID: "memfs", DisplayName: "memfs"},
		now:     time.Now,
		calls:   map[string]int{},
	}
}

// SetOwner replaces the store owner reported by ACL queries.
func (c *Client) SetOwner(o types.Owner) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.owner = o
}

// SetClock overrides the modification-time source, for tests.
func (c *Client) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// SetObjectACL attaches explicit grants to an existing object.
func (c *Client) SetObjectACL(bucketName, key string, grants []types.Grant) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.buckets[bucketName]
	if !ok {
		return vfserrors.Wrap(vfserrors.CodeNotFound, "SetObjectACL", bucketName, nil)
	}
	obj, ok := b.objects[key]
	if !ok {
		return vfserrors.Wrap(vfserrors.CodeNotFound, "SetObjectACL", bucketName+"/"+key, nil)
	}
	obj.grants = grants
	return nil
}

// SetObjectOwner marks an existing object as owned by a different principal
// than the store owner.
func (c *Client) SetObjectOwner(bucketName, key string, o types.Owner) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.buckets[bucketName]
	if !ok {
		return vfserrors.Wrap(vfserrors.CodeNotFound, "SetObjectOwner", bucketName, nil)
	}
	obj, ok := b.objects[key]
	if !ok {
		return vfserrors.Wrap(vfserrors.CodeNotFound, "SetObjectOwner", bucketName+"/"+key, nil)
	}
	obj.owner = o
	return nil
}

// Calls returns how many times the named client method has been invoked.
func (c *Client) Calls(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[method]
}

func (c *Client) record(method string) {
	c.calls[method]++
}

func (c *Client) HeadBucket(_ context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("HeadBucket")
	if _, ok := c.buckets[name]; !ok {
		return vfserrors.Wrap(vfserrors.CodeNotFound, "HeadBucket", name, nil)
	}
	return nil
}

func (c *Client) CreateBucket(_ context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("CreateBucket")
	if _, ok := c.buckets[name]; ok {
		return vfserrors.Wrap(vfserrors.CodeAlreadyExists, "CreateBucket", name, nil)
	}
	c.buckets[name] = &bucket{created: c.now(), objects: map[string]*object{}}
	return nil
}

func (c *Client) ListBuckets(_ context.Context) ([]types.BucketInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("ListBuckets")
	out := make([]types.BucketInfo, 0, len(c.buckets))
	for name, b := range c.buckets {
		out = append(out, types.BucketInfo{Name: name, CreationDate: b.created})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (c *Client) HeadObject(_ context.Context, bucketName, key string) (*types.ObjectInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("HeadObject")
	obj, err := c.lookup(bucketName, key, "HeadObject")
	if err != nil {
		return nil, err
	}
	return &types.ObjectInfo{
		Key:          key,
		Size:         int64(len(obj.data)),
		LastModified: obj.modTime,
		ContentType:  obj.contentType,
	}, nil
}

func (c *Client) GetObject(_ context.Context, bucketName, key string) (io.ReadCloser, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("GetObject")
	obj, err := c.lookup(bucketName, key, "GetObject")
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(append([]byte(nil), obj.data...))), nil
}

func (c *Client) PutObject(_ context.Context, bucketName, key string, body io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return vfserrors.Wrap(vfserrors.CodeTransport, "PutObject", bucketName+"/"+key, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("PutObject")
	b, ok := c.buckets[bucketName]
	if !ok {
		return vfserrors.Wrap(vfserrors.CodeNotFound, "PutObject", bucketName, nil)
	}
	b.objects[key] = &object{data: data, modTime: c.now(), contentType: contentType}
	return nil
}

func (c *Client) DeleteObject(_ context.Context, bucketName, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("DeleteObject")
	if b, ok := c.buckets[bucketName]; ok {
		delete(b.objects, key)
	}
	// Deleting an absent object is success, matching S3.
	return nil
}

func (c *Client) CopyObject(_ context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("CopyObject")
	src, err := c.lookup(srcBucket, srcKey, "CopyObject")
	if err != nil {
		return err
	}
	dst, ok := c.buckets[dstBucket]
	if !ok {
		return vfserrors.Wrap(vfserrors.CodeNotFound, "CopyObject", dstBucket, nil)
	}
	dst.objects[dstKey] = &object{
		data:        append([]byte(nil), src.data...),
		modTime:     c.now(),
		contentType: src.contentType,
	}
	return nil
}

func (c *Client) ListObjects(_ context.Context, in storage.ListInput) (*storage.ListOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("ListObjects")
	b, ok := c.buckets[in.Bucket]
	if !ok {
		return nil, vfserrors.Wrap(vfserrors.CodeNotFound, "ListObjects", in.Bucket, nil)
	}

	keys := make([]string, 0, len(b.objects))
	for k := range b.objects {
		if strings.HasPrefix(k, in.Prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	maxKeys := int(in.MaxKeys)
	if maxKeys <= 0 {
		maxKeys = storage.MaxListPageSize
	}

	out := &storage.ListOutput{}
	seenPrefixes := map[string]bool{}
	emitted := 0
	lastKey := ""
	for _, k := range keys {
		if in.ContinuationToken != "" && k <= in.ContinuationToken {
			continue
		}
		rel := k[len(in.Prefix):]
		// A key containing the delimiter past the prefix folds into a common
		// prefix, even when the delimiter is the final character.
		if in.Delimiter != "" && rel != "" {
			if i := strings.Index(rel, in.Delimiter); i >= 0 {
				cp := in.Prefix + rel[:i+len(in.Delimiter)]
				if seenPrefixes[cp] {
					// Consumed by the prefix emitted on this page, so the
					// continuation token moves past it and the next page
					// cannot re-emit the prefix.
					lastKey = k
					continue
				}
				if emitted >= maxKeys {
					out.IsTruncated = true
					out.NextContinuationToken = lastKey
					return out, nil
				}
				seenPrefixes[cp] = true
				out.CommonPrefixes = append(out.CommonPrefixes, cp)
				emitted++
				lastKey = k
				continue
			}
		}
		if emitted >= maxKeys {
			out.IsTruncated = true
			out.NextContinuationToken = lastKey
			return out, nil
		}
		obj := b.objects[k]
		out.Objects = append(out.Objects, types.ObjectInfo{
			Key:          k,
			Size:         int64(len(obj.data)),
			LastModified: obj.modTime,
			ContentType:  obj.contentType,
		})
		emitted++
		lastKey = k
	}
	return out, nil
}

func (c *Client) GetObjectACL(_ context.Context, bucketName, key string) ([]types.Grant, types.Owner, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("GetObjectACL")
	obj, err := c.lookup(bucketName, key, "GetObjectACL")
	if err != nil {
		return nil, types.Owner{}, err
	}
	owner := obj.owner
	if owner.ID == "" {
		owner = c.owner
	}
	grants := obj.grants
	if grants == nil {
		grants = grantsFor(owner)
	}
	return grants, owner, nil
}

func (c *Client) GetBucketACL(_ context.Context, bucketName string) ([]types.Grant, types.Owner, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("GetBucketACL")
	b, ok := c.buckets[bucketName]
	if !ok {
		return nil, types.Owner{}, vfserrors.Wrap(vfserrors.CodeNotFound, "GetBucketACL", bucketName, nil)
	}
	grants := b.grants
	if grants == nil {
		grants = c.defaultGrants()
	}
	return grants, c.owner, nil
}

func (c *Client) Close() error {
	return nil
}

// lookup requires c.mu held.
func (c *Client) lookup(bucketName, key, op string) (*object, error) {
	b, ok := c.buckets[bucketName]
	if !ok {
		return nil, vfserrors.Wrap(vfserrors.CodeNotFound, op, bucketName, nil)
	}
	obj, ok := b.objects[key]
	if !ok {
		return nil, vfserrors.Wrap(vfserrors.CodeNotFound, op, bucketName+"/"+key, nil)
	}
	return obj, nil
}

func (c *Client) defaultGrants() []types.Grant {
	return grantsFor(c.owner)
}

func grantsFor(o types.Owner) []types.Grant {
	return []types.Grant{{
		Grantee:    types.Grantee{Type: types.GranteeCanonicalUser, ID: o.ID, DisplayName: o.DisplayName},
		Permission: types.PermFullControl,
	}}
}
