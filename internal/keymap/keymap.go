// Package keymap converts between hierarchical path strings and flat store
// keys, and classifies keys as directory-like. All functions are pure: no
// network access, deterministic, total over well-formed paths.
//
// A key ending in "/" is an explicit directory marker. A key without a
// trailing "/" may still behave as a directory when descendant keys exist
// under it (an implicit directory).
package keymap

import (
	"path"
	"strings"

	vfserrors "github.com/s3vfs/s3vfs/pkg/errors"
)

// Separator is the path separator used in both paths and keys.
const Separator = "/"

// Normalize cleans a path and verifies it is absolute. Duplicate separators
// and interior "." / ".." elements are resolved; a trailing separator is not
// preserved (directory-ness is decided by the store, not the spelling). A
// path whose ".." elements would climb above the root is rejected rather
// than clamped.
func Normalize(p string) (string, error) {
	if p == "" || !strings.HasPrefix(p, Separator) {
		return "", vfserrors.Newf(vfserrors.CodeInvalidArgument, "path must be absolute: %q", p)
	}
	depth := 0
	for _, seg := range strings.Split(p, Separator) {
		switch seg {
		case "", ".":
		case "..":
			depth--
			if depth < 0 {
				return "", vfserrors.Newf(vfserrors.CodeInvalidArgument, "path escapes root: %q", p)
			}
		default:
			depth++
		}
	}
	return path.Clean(p), nil
}

// ToKey converts an absolute path to a store-relative key by stripping the
// leading separator. The root path maps to the empty key, which always
// denotes an existing directory (the bucket root).
func ToKey(p string) string {
	return strings.TrimPrefix(strings.TrimPrefix(p, Separator), Separator)
}

// FromKey converts a store key back to an absolute path.
func FromKey(key string) string {
	if key == "" {
		return Separator
	}
	return Separator + strings.TrimSuffix(key, Separator)
}

// DirectoryKeyFor appends the separator to a key if not already present,
// producing the key of the explicit directory marker for that path. The
// empty key (bucket root) has no marker and is returned unchanged.
func DirectoryKeyFor(key string) string {
	if key == "" || strings.HasSuffix(key, Separator) {
		return key
	}
	return key + Separator
}

// IsDirectoryKey reports whether a key spells a directory: the bucket root
// or an explicit marker.
func IsDirectoryKey(key string) bool {
	return key == "" || strings.HasSuffix(key, Separator)
}

// IsImplicitDirectory reports whether a key with no object of its own still
// behaves as a directory: at least one existing key has it as a proper
// prefix terminated by the separator.
func IsImplicitDirectory(key string, existing []string) bool {
	prefix := DirectoryKeyFor(key)
	for _, k := range existing {
		if k != key && strings.HasPrefix(k, prefix) {
			return true
		}
	}
	return false
}

// ChildName returns the first path segment of a key relative to a directory
// prefix, and whether the remainder reaches deeper (making the segment an
// implicit subdirectory). Returns "" if the key is not under the prefix or
// is the prefix's own marker.
func ChildName(key, dirPrefix string) (name string, nested bool) {
	if !strings.HasPrefix(key, dirPrefix) {
		return "", false
	}
	rel := key[len(dirPrefix):]
	if rel == "" {
		return "", false
	}
	if i := strings.Index(rel, Separator); i >= 0 {
		return rel[:i], len(rel) > i+1
	}
	return rel, false
}
