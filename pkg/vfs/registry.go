package vfs

import (
	"sort"
	"sync"

	vfserrors "github.com/s3vfs/s3vfs/pkg/errors"
)

// Registry tracks open filesystems by identity key. All methods are safe for
// concurrent use; Add is atomic check-then-insert so two concurrent opens of
// the same identity cannot both succeed.
type Registry struct {
	mu          sync.RWMutex
	filesystems map[string]*FileSystem
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{filesystems: map[string]*FileSystem{}}
}

// Add inserts a filesystem under its identity key, failing with
// ALREADY_EXISTS when the key is taken.
func (r *Registry) Add(key string, fs *FileSystem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.filesystems[key]; ok {
		return vfserrors.Newf(vfserrors.CodeAlreadyExists, "filesystem %q already open", key)
	}
	r.filesystems[key] = fs
	return nil
}

// Lookup returns the filesystem under the key, or NOT_FOUND.
func (r *Registry) Lookup(key string) (*FileSystem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fs, ok := r.filesystems[key]
	if !ok {
		return nil, vfserrors.Newf(vfserrors.CodeNotFound, "no open filesystem %q", key)
	}
	return fs, nil
}

// Contains reports whether a filesystem is registered under the key.
func (r *Registry) Contains(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.filesystems[key]
	return ok
}

// Remove deletes and returns the filesystem under the key, or nil when
// absent.
func (r *Registry) Remove(key string) *FileSystem {
	r.mu.Lock()
	defer r.mu.Unlock()
	fs := r.filesystems[key]
	delete(r.filesystems, key)
	return fs
}

// Keys returns the registered identity keys, sorted.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.filesystems))
	for k := range r.filesystems {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
