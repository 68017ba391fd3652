// Package vfs presents a flat object store as a hierarchical virtual
// filesystem. A Provider opens FileSystem handles keyed by endpoint and
// credentials, and each FileSystem exposes path-based operations (existence,
// attributes, directory streams, byte channels, copy and move) whose
// directory semantics are emulated over prefix listings and zero-length
// marker objects.
package vfs

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/s3vfs/s3vfs/internal/config"
	"github.com/s3vfs/s3vfs/internal/metrics"
	"github.com/s3vfs/s3vfs/internal/storage"
	_ "github.com/s3vfs/s3vfs/internal/storage/s3"
	vfserrors "github.com/s3vfs/s3vfs/pkg/errors"
)

// Scheme is the URI scheme served by the provider.
const Scheme = "s3"

// DefaultEndpointHost is assumed when a URI carries no host.
const DefaultEndpointHost = "s3.amazonaws.com"

// DefaultFactory is the storage client factory used when configuration names
// none.
const DefaultFactory = "s3"

// DefaultAttributeCacheTTL bounds how long a pre-fetched attribute snapshot
// may satisfy a later read.
const DefaultAttributeCacheTTL = time.Second

// Provider opens, tracks, and closes filesystems. One provider instance
// serves any number of endpoints; filesystems are identified by the
// combination of access key and endpoint host.
type Provider struct {
	registry *Registry
	resolver *config.Resolver
	logger   *slog.Logger
	metrics  *metrics.Collector
}

// ProviderOption customizes a Provider.
type ProviderOption func(*Provider)

// WithResolver replaces the configuration resolver.
func WithResolver(r *config.Resolver) ProviderOption {
	return func(p *Provider) { p.resolver = r }
}

// WithLogger replaces the logger.
func WithLogger(l *slog.Logger) ProviderOption {
	return func(p *Provider) { p.logger = l }
}

// WithMetrics attaches a metrics collector to every filesystem the provider
// opens.
func WithMetrics(c *metrics.Collector) ProviderOption {
	return func(p *Provider) { p.metrics = c }
}

// NewProvider creates a provider with an empty registry.
func NewProvider(opts ...ProviderOption) *Provider {
	p := &Provider{
		registry: NewRegistry(),
		resolver: config.NewResolver(defaultBundled()),
		logger:   slog.Default(),
		metrics:  metrics.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "vfs")
	return p
}

func defaultBundled() config.Properties {
	return config.Properties{
		config.KeyProtocol:      "https",
		config.KeyMaxErrorRetry: "3",
	}
}

// Resolver exposes the provider's configuration resolver so callers can set
// provider-level properties before opening filesystems.
func (p *Provider) Resolver() *config.Resolver { return p.resolver }

// Metrics exposes the provider's metrics collector.
func (p *Provider) Metrics() *metrics.Collector { return p.metrics }

// parsedURI is the decomposition of an s3:// URI.
type parsedURI struct {
	host      string
	accessKey string
	secretKey string
	path      string
}

func parseURI(raw string) (parsedURI, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return parsedURI{}, vfserrors.Wrap(vfserrors.CodeInvalidArgument, "parseURI", raw, err)
	}
	if u.Scheme != Scheme {
		return parsedURI{}, vfserrors.Newf(vfserrors.CodeInvalidArgument,
			"unsupported scheme %q, want %q", u.Scheme, Scheme)
	}
	out := parsedURI{host: u.Host, path: u.Path}
	if out.host == "" {
		out.host = DefaultEndpointHost
	}
	if u.User != nil {
		out.accessKey = u.User.Username()
		out.secretKey, _ = u.User.Password()
	}
	return out, nil
}

// identityKey derives the registry key for a URI: "accessKey@host" when
// credentials are embedded, the bare host otherwise.
func identityKey(accessKey, host string) string {
	if accessKey != "" {
		return accessKey + "@" + host
	}
	return host
}

// NewFileSystem opens a filesystem for the endpoint named by uri, applying
// env as the highest-precedence configuration layer. It fails with
// ALREADY_EXISTS when a filesystem with the same identity is already open.
func (p *Provider) NewFileSystem(ctx context.Context, uri string, env map[string]string) (*FileSystem, error) {
	parsed, err := parseURI(uri)
	if err != nil {
		return nil, err
	}
	key := identityKey(parsed.accessKey, parsed.host)
	if p.registry.Contains(key) {
		return nil, vfserrors.Newf(vfserrors.CodeAlreadyExists, "filesystem %q already open", key)
	}

	props := p.resolver.Resolve(config.Properties(env))
	// URI user-info credentials bind last and win for this filesystem.
	if parsed.accessKey != "" {
		props[config.KeyAccessKey] = parsed.accessKey
		props[config.KeySecretKey] = parsed.secretKey
	}
	if err := config.Validate(props); err != nil {
		return nil, err
	}

	factory := props[config.KeyClientFactory]
	if factory == "" {
		factory = DefaultFactory
	}
	client, err := storage.New(ctx, factory, parsed.host, props)
	if err != nil {
		return nil, err
	}

	fs := &FileSystem{
		provider: p,
		key:      key,
		endpoint: parsed.host,
		client:   client,
		ttl:      props.Duration(config.KeyAttributeCacheTTL, DefaultAttributeCacheTTL),
		logger:   p.logger.With("filesystem", key),
		metrics:  p.metrics,
	}
	if err := p.registry.Add(key, fs); err != nil {
		// Lost the open race. The registered instance stands.
		client.Close()
		return nil, err
	}
	p.logger.Info("filesystem opened", "key", key, "factory", factory)
	return fs, nil
}

// GetFileSystem returns the open filesystem matching the URI's identity, or
// NOT_FOUND.
func (p *Provider) GetFileSystem(uri string) (*FileSystem, error) {
	parsed, err := parseURI(uri)
	if err != nil {
		return nil, err
	}
	return p.registry.Lookup(identityKey(parsed.accessKey, parsed.host))
}

// GetFileSystemOrCreate returns the open filesystem for the URI, opening one
// if none exists. Concurrent callers may race to open; the loser adopts the
// winner's instance.
func (p *Provider) GetFileSystemOrCreate(ctx context.Context, uri string, env map[string]string) (*FileSystem, error) {
	fs, err := p.GetFileSystem(uri)
	if err == nil {
		return fs, nil
	}
	if !vfserrors.IsNotFound(err) {
		return nil, err
	}
	fs, err = p.NewFileSystem(ctx, uri, env)
	if vfserrors.IsAlreadyExists(err) {
		return p.GetFileSystem(uri)
	}
	return fs, err
}

// Path resolves a full URI to a Path, opening the filesystem on demand.
func (p *Provider) Path(ctx context.Context, uri string) (*Path, error) {
	fs, err := p.GetFileSystemOrCreate(ctx, uri, nil)
	if err != nil {
		return nil, err
	}
	parsed, _ := parseURI(uri)
	target := parsed.path
	if target == "" {
		target = "/"
	}
	return fs.Path(target)
}

// IsOpen reports whether the filesystem is still registered with its
// provider.
func (p *Provider) IsOpen(fs *FileSystem) bool {
	if fs == nil {
		return false
	}
	got, err := p.registry.Lookup(fs.key)
	return err == nil && got == fs
}

// CloseFileSystem unregisters the filesystem and closes its storage client.
// Closing an already-closed filesystem is a no-op.
func (p *Provider) CloseFileSystem(fs *FileSystem) error {
	if fs == nil {
		return nil
	}
	removed := p.registry.Remove(fs.key)
	if removed != fs {
		return nil
	}
	p.logger.Info("filesystem closed", "key", fs.key)
	return fs.client.Close()
}

// FileSystemKeys returns the identity keys of all open filesystems, sorted.
func (p *Provider) FileSystemKeys() []string {
	return p.registry.Keys()
}
