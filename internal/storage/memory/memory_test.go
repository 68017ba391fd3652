package memory

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s3vfs/s3vfs/internal/storage"
	vfserrors "github.com/s3vfs/s3vfs/pkg/errors"
	"github.com/s3vfs/s3vfs/pkg/types"
)

func newStore(t *testing.T, keys ...string) *Client {
	t.Helper()
	c := NewClient()
	ctx := context.Background()
	require.NoError(t, c.CreateBucket(ctx, "bkt"))
	for _, k := range keys {
		require.NoError(t, c.PutObject(ctx, "bkt", k, strings.NewReader("data:"+k), -1, "text/plain"))
	}
	return c
}

func TestPutHeadGet(t *testing.T) {
	ctx := context.Background()
	c := newStore(t, "dir/file.txt")

	info, err := c.HeadObject(ctx, "bkt", "dir/file.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(len("data:dir/file.txt")), info.Size)
	assert.Equal(t, "text/plain", info.ContentType)

	body, err := c.GetObject(ctx, "bkt", "dir/file.txt")
	require.NoError(t, err)
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	require.NoError(t, body.Close())
	assert.Equal(t, "data:dir/file.txt", string(data))
}

func TestHeadMissing(t *testing.T) {
	ctx := context.Background()
	c := newStore(t)

	_, err := c.HeadObject(ctx, "bkt", "absent")
	assert.True(t, vfserrors.IsNotFound(err))

	_, err = c.HeadObject(ctx, "no-bucket", "absent")
	assert.True(t, vfserrors.IsNotFound(err))
}

func TestDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	c := newStore(t, "gone.txt")

	require.NoError(t, c.DeleteObject(ctx, "bkt", "gone.txt"))
	require.NoError(t, c.DeleteObject(ctx, "bkt", "gone.txt"))
	require.NoError(t, c.DeleteObject(ctx, "no-bucket", "gone.txt"))
}

func TestCreateBucketTwice(t *testing.T) {
	ctx := context.Background()
	c := newStore(t)
	err := c.CreateBucket(ctx, "bkt")
	assert.True(t, vfserrors.IsAlreadyExists(err))
}

func TestListWithDelimiter(t *testing.T) {
	ctx := context.Background()
	c := newStore(t,
		"dir/",
		"dir/a.txt",
		"dir/b.txt",
		"dir/sub/",
		"dir/sub/deep.txt",
	)

	out, err := c.ListObjects(ctx, storage.ListInput{Bucket: "bkt", Prefix: "dir/", Delimiter: "/"})
	require.NoError(t, err)

	var keys []string
	for _, o := range out.Objects {
		keys = append(keys, o.Key)
	}
	assert.Equal(t, []string{"dir/", "dir/a.txt", "dir/b.txt"}, keys)
	assert.Equal(t, []string{"dir/sub/"}, out.CommonPrefixes)
	assert.False(t, out.IsTruncated)
}

func TestListFoldsTrailingDelimiterKeys(t *testing.T) {
	ctx := context.Background()
	c := newStore(t, "a", "a/")

	// The marker "a/" folds into a common prefix; the bare object stays.
	out, err := c.ListObjects(ctx, storage.ListInput{Bucket: "bkt", Prefix: "", Delimiter: "/"})
	require.NoError(t, err)
	require.Len(t, out.Objects, 1)
	assert.Equal(t, "a", out.Objects[0].Key)
	assert.Equal(t, []string{"a/"}, out.CommonPrefixes)
}

func TestListPagination(t *testing.T) {
	ctx := context.Background()
	c := newStore(t, "k1", "k2", "k3")

	var got []string
	token := ""
	for {
		out, err := c.ListObjects(ctx, storage.ListInput{
			Bucket:            "bkt",
			MaxKeys:           1,
			ContinuationToken: token,
		})
		require.NoError(t, err)
		for _, o := range out.Objects {
			got = append(got, o.Key)
		}
		if !out.IsTruncated {
			break
		}
		token = out.NextContinuationToken
	}
	assert.Equal(t, []string{"k1", "k2", "k3"}, got)
}

func TestListPaginationDoesNotRepeatPrefixes(t *testing.T) {
	ctx := context.Background()
	c := newStore(t, "p/a", "p/b", "z")

	// Page 1 emits the folded prefix; its continuation token must land past
	// every key under it.
	out, err := c.ListObjects(ctx, storage.ListInput{
		Bucket:    "bkt",
		Delimiter: "/",
		MaxKeys:   1,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"p/"}, out.CommonPrefixes)
	assert.Empty(t, out.Objects)
	require.True(t, out.IsTruncated)

	out, err = c.ListObjects(ctx, storage.ListInput{
		Bucket:            "bkt",
		Delimiter:         "/",
		MaxKeys:           1,
		ContinuationToken: out.NextContinuationToken,
	})
	require.NoError(t, err)
	assert.Empty(t, out.CommonPrefixes)
	require.Len(t, out.Objects, 1)
	assert.Equal(t, "z", out.Objects[0].Key)
	assert.False(t, out.IsTruncated)
}

func TestDefaultACLGrantsOwnerFullControl(t *testing.T) {
	ctx := context.Background()
	c := newStore(t, "file")
	c.SetOwner(types.Owner{ID: "alice", DisplayName: "alice"})

	grants, owner, err := c.GetObjectACL(ctx, "bkt", "file")
	require.NoError(t, err)
	assert.Equal(t, "alice", owner.ID)
	require.Len(t, grants, 1)
	assert.Equal(t, types.PermFullControl, grants[0].Permission)
	assert.Equal(t, "alice", grants[0].Grantee.ID)
}

func TestSetObjectACL(t *testing.T) {
	ctx := context.Background()
	c := newStore(t, "file")

	custom := []types.Grant{{
		Grantee:    types.Grantee{Type: types.GranteeGroup, URI: types.AllUsersURI},
		Permission: types.PermRead,
	}}
	require.NoError(t, c.SetObjectACL("bkt", "file", custom))

	grants, _, err := c.GetObjectACL(ctx, "bkt", "file")
	require.NoError(t, err)
	assert.Equal(t, custom, grants)

	err = c.SetObjectACL("bkt", "absent", custom)
	assert.True(t, vfserrors.IsNotFound(err))
}

func TestCopyObject(t *testing.T) {
	ctx := context.Background()
	c := newStore(t, "src")

	require.NoError(t, c.CopyObject(ctx, "bkt", "src", "bkt", "dst"))
	body, err := c.GetObject(ctx, "bkt", "dst")
	require.NoError(t, err)
	data, _ := io.ReadAll(body)
	body.Close()
	assert.Equal(t, "data:src", string(data))

	err = c.CopyObject(ctx, "bkt", "absent", "bkt", "dst")
	assert.True(t, vfserrors.IsNotFound(err))
}

func TestCallCounters(t *testing.T) {
	ctx := context.Background()
	c := newStore(t, "file")

	before := c.Calls("HeadObject")
	_, _ = c.HeadObject(ctx, "bkt", "file")
	_, _ = c.HeadObject(ctx, "bkt", "file")
	assert.Equal(t, before+2, c.Calls("HeadObject"))
}
