package vfs

import (
	"context"
	"io"
	"sort"
	"time"

	"github.com/s3vfs/s3vfs/internal/keymap"
	"github.com/s3vfs/s3vfs/internal/storage"
	vfserrors "github.com/s3vfs/s3vfs/pkg/errors"
)

// DirEntry is one child of a directory.
type DirEntry struct {
	// Name is the child's name relative to the directory.
	Name string
	// Path names the child; its attribute slot is primed with the
	// snapshot captured during listing.
	Path *Path
	// Directory reports whether the child behaves as a directory.
	Directory bool
}

// DirStream iterates the immediate children of a directory lazily, one
// listing page at a time. A name backed by both a bare object and a
// directory marker or descendants yields a single directory entry. The
// directory's own marker is never an entry. Not safe for concurrent use.
type DirStream struct {
	fs     *FileSystem
	dir    *Path
	prefix string

	buckets bool

	buffer []DirEntry
	next   int
	seen   map[string]bool
	token  string
	done   bool
}

// NewDirectoryStream opens a stream over the children of the path. A
// regular object fails with NOT_A_DIRECTORY, a missing path with NOT_FOUND.
// The root streams buckets as directories.
func (fs *FileSystem) NewDirectoryStream(ctx context.Context, p *Path) (ds *DirStream, err error) {
	start := time.Now()
	defer func() { fs.observe("directory_stream", start, err) }()

	ref, rerr := fs.resolve(ctx, p)
	if rerr != nil {
		return nil, rerr
	}
	if !ref.dir {
		return nil, vfserrors.Wrap(vfserrors.CodeNotADirectory, "directory_stream", p.String(), nil)
	}
	return &DirStream{
		fs:      fs,
		dir:     p,
		prefix:  p.DirectoryKey(),
		buckets: p.IsRoot(),
		seen:    map[string]bool{},
	}, nil
}

// Next returns the next directory entry, or io.EOF when the stream is
// exhausted.
func (s *DirStream) Next(ctx context.Context) (DirEntry, error) {
	for s.next >= len(s.buffer) {
		if s.done {
			return DirEntry{}, io.EOF
		}
		if err := s.fetch(ctx); err != nil {
			return DirEntry{}, err
		}
	}
	e := s.buffer[s.next]
	s.next++
	return e, nil
}

// All drains the stream into a slice.
func (s *DirStream) All(ctx context.Context) ([]DirEntry, error) {
	var out []DirEntry
	for {
		e, err := s.Next(ctx)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
}

func (s *DirStream) fetch(ctx context.Context) error {
	if s.buckets {
		return s.fetchBuckets(ctx)
	}

	out, err := s.fs.client.ListObjects(ctx, storage.ListInput{
		Bucket:            s.dir.bucket,
		Prefix:            s.prefix,
		Delimiter:         keymap.Separator,
		ContinuationToken: s.token,
		MaxKeys:           storage.MaxListPageSize,
	})
	if err != nil {
		return err
	}
	s.token = out.NextContinuationToken
	s.done = !out.IsTruncated

	// Fold the page by child name. When a name appears both as a bare
	// object and as a prefix, the directory side wins.
	type candidate struct {
		entry DirEntry
		order int
	}
	page := map[string]*candidate{}
	order := 0

	for _, obj := range out.Objects {
		if obj.Key == s.prefix {
			continue
		}
		name, nested := keymap.ChildName(obj.Key, s.prefix)
		if name == "" {
			continue
		}
		dir := nested || keymap.IsDirectoryKey(obj.Key)
		if c, ok := page[name]; ok {
			c.entry.Directory = c.entry.Directory || dir
			continue
		}
		child, _ := s.dir.Join(name)
		if !dir {
			info := obj
			s.fs.primeBasic(child, &info, false)
		}
		page[name] = &candidate{entry: DirEntry{Name: name, Path: child, Directory: dir}, order: order}
		order++
	}
	for _, cp := range out.CommonPrefixes {
		name, _ := keymap.ChildName(cp, s.prefix)
		if name == "" {
			continue
		}
		if c, ok := page[name]; ok {
			c.entry.Directory = true
			continue
		}
		child, _ := s.dir.Join(name)
		page[name] = &candidate{entry: DirEntry{Name: name, Path: child, Directory: true}, order: order}
		order++
	}

	entries := make([]*candidate, 0, len(page))
	for _, c := range page {
		entries = append(entries, c)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].order < entries[j].order })

	s.buffer = s.buffer[:0]
	s.next = 0
	for _, c := range entries {
		if s.seen[c.entry.Name] {
			continue
		}
		s.seen[c.entry.Name] = true
		if c.entry.Directory {
			s.fs.primeBasic(c.entry.Path, nil, true)
		}
		s.buffer = append(s.buffer, c.entry)
	}
	return nil
}

func (s *DirStream) fetchBuckets(ctx context.Context) error {
	buckets, err := s.fs.client.ListBuckets(ctx)
	if err != nil {
		return err
	}
	s.done = true
	s.buffer = s.buffer[:0]
	s.next = 0
	for _, b := range buckets {
		child, jerr := s.dir.Join(b.Name)
		if jerr != nil {
			continue
		}
		s.fs.primeBasic(child, nil, true)
		s.buffer = append(s.buffer, DirEntry{Name: b.Name, Path: child, Directory: true})
	}
	return nil
}
