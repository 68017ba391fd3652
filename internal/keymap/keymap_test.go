package keymap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vfserrors "github.com/s3vfs/s3vfs/pkg/errors"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"root", "/", "/"},
		{"simple", "/bucket/dir/file.txt", "/bucket/dir/file.txt"},
		{"duplicate separators", "/bucket//dir///file", "/bucket/dir/file"},
		{"dot elements", "/bucket/./dir/../other", "/bucket/other"},
		{"trailing separator dropped", "/bucket/dir/", "/bucket/dir"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeRejectsRelative(t *testing.T) {
	for _, in := range []string{"", "bucket/file", "./file"} {
		_, err := Normalize(in)
		assert.Equal(t, vfserrors.CodeInvalidArgument, vfserrors.CodeOf(err), "input %q", in)
	}
}

func TestNormalizeRejectsEscape(t *testing.T) {
	_, err := Normalize("/../secret")
	assert.Equal(t, vfserrors.CodeInvalidArgument, vfserrors.CodeOf(err))
}

func TestKeyRoundTrip(t *testing.T) {
	assert.Equal(t, "dir/file", ToKey("/dir/file"))
	assert.Equal(t, "", ToKey("/"))
	assert.Equal(t, "/dir/file", FromKey("dir/file"))
	assert.Equal(t, "/", FromKey(""))
	// A marker key maps back to the same path as its bare form.
	assert.Equal(t, "/dir", FromKey("dir/"))
}

func TestDirectoryKeyFor(t *testing.T) {
	assert.Equal(t, "dir/", DirectoryKeyFor("dir"))
	assert.Equal(t, "dir/", DirectoryKeyFor("dir/"))
	assert.Equal(t, "", DirectoryKeyFor(""))
}

func TestIsDirectoryKey(t *testing.T) {
	assert.True(t, IsDirectoryKey(""))
	assert.True(t, IsDirectoryKey("dir/"))
	assert.False(t, IsDirectoryKey("dir"))
}

func TestIsImplicitDirectory(t *testing.T) {
	existing := []string{"logs/2024/app.log", "data.bin"}
	assert.True(t, IsImplicitDirectory("logs", existing))
	assert.True(t, IsImplicitDirectory("logs/2024", existing))
	assert.False(t, IsImplicitDirectory("data.bin", existing))
	assert.False(t, IsImplicitDirectory("missing", existing))
}

func TestChildName(t *testing.T) {
	name, nested := ChildName("dir/file.txt", "dir/")
	assert.Equal(t, "file.txt", name)
	assert.False(t, nested)

	name, nested = ChildName("dir/sub/deep.txt", "dir/")
	assert.Equal(t, "sub", name)
	assert.True(t, nested)

	// The directory's own marker yields no child.
	name, _ = ChildName("dir/", "dir/")
	assert.Equal(t, "", name)

	// A key outside the prefix yields no child.
	name, _ = ChildName("other/file", "dir/")
	assert.Equal(t, "", name)

	// A child marker is a direct, non-nested child.
	name, nested = ChildName("dir/sub/", "dir/")
	assert.Equal(t, "sub", name)
	assert.False(t, nested)
}
