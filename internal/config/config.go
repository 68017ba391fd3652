// Package config implements the layered configuration resolver for s3vfs.
//
// Precedence for any named option, highest to lowest:
//  1. explicit per-call settings map
//  2. process environment variable (S3VFS_<KEY>)
//  3. provider-level property set programmatically
//  4. bundled properties file default
//
// URI user-info credentials, when present, are applied by the provider after
// resolution and override everything for that filesystem's lifetime.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	vfserrors "github.com/s3vfs/s3vfs/pkg/errors"
)

// Option keys understood by the resolver and the storage client factories.
const (
	KeyAccessKey         = "access_key"
	KeySecretKey         = "secret_key"
	KeySessionToken      = "session_token"
	KeyRegion            = "region"
	KeyProtocol          = "protocol"
	KeyPathStyleAccess   = "path_style_access"
	KeyMaxConnections    = "max_connections"
	KeyConnectionTimeout = "connection_timeout"
	KeyMaxErrorRetry     = "max_error_retry"
	KeySocketTimeout     = "socket_timeout"
	KeyUserAgent         = "user_agent"
	KeyClientFactory     = "client_factory"
	KeyAttributeCacheTTL = "attribute_cache_ttl"
)

// EnvPrefix prefixes the upper-cased option key to form the environment
// variable name, e.g. access_key -> S3VFS_ACCESS_KEY.
const EnvPrefix = "S3VFS_"

// overlayKeys are the options subject to the layered precedence. Unknown
// per-call keys are still copied through verbatim so client factories can
// receive factory-specific settings.
var overlayKeys = []string{
	KeyAccessKey,
	KeySecretKey,
	KeySessionToken,
	KeyRegion,
	KeyProtocol,
	KeyPathStyleAccess,
	KeyMaxConnections,
	KeyConnectionTimeout,
	KeyMaxErrorRetry,
	KeySocketTimeout,
	KeyUserAgent,
	KeyClientFactory,
	KeyAttributeCacheTTL,
}

// Properties is a flat string option map.
type Properties map[string]string

// Clone returns a shallow copy.
func (p Properties) Clone() Properties {
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Duration parses the named option as a time.Duration, falling back to def
// when absent or malformed.
func (p Properties) Duration(key string, def time.Duration) time.Duration {
	if v, ok := p[key]; ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// Int parses the named option as an int, falling back to def.
func (p Properties) Int(key string, def int) int {
	if v, ok := p[key]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// Bool parses the named option as a bool, falling back to def.
func (p Properties) Bool(key string, def bool) bool {
	if v, ok := p[key]; ok {
		return strings.EqualFold(v, "true")
	}
	return def
}

// Resolver layers bundled defaults, provider-level properties, environment
// variables, and per-call settings into a final Properties map.
type Resolver struct {
	bundled Properties
	global  Properties
	getenv  func(string) string
}

// NewResolver creates a resolver seeded with the given bundled defaults.
// A nil map is treated as empty.
func NewResolver(bundled Properties) *Resolver {
	if bundled == nil {
		bundled = Properties{}
	}
	return &Resolver{
		bundled: bundled.Clone(),
		global:  Properties{},
		getenv:  os.Getenv,
	}
}

// NewResolverFromFile loads bundled defaults from a YAML properties file.
// A missing or unreadable file degrades to empty defaults; this is the only
// failure the configuration layer swallows.
func NewResolverFromFile(path string) *Resolver {
	props, _ := LoadFile(path)
	return NewResolver(props)
}

// LoadFile reads a flat YAML map of option keys to string values.
func LoadFile(path string) (Properties, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Properties{}, err
	}
	props := Properties{}
	if err := yaml.Unmarshal(data, &props); err != nil {
		return Properties{}, vfserrors.Wrap(vfserrors.CodeConfiguration, "LoadFile", path, err)
	}
	return props, nil
}

// SetProperty sets a provider-level property (the "global system property"
// layer). Later calls affect only subsequently opened filesystems.
func (r *Resolver) SetProperty(key, value string) {
	r.global[key] = value
}

// Property returns a provider-level property.
func (r *Resolver) Property(key string) string {
	return r.global[key]
}

// SetEnvLookup overrides the environment lookup, for tests.
func (r *Resolver) SetEnvLookup(fn func(string) string) {
	r.getenv = fn
}

// Resolve computes the effective properties for one filesystem open,
// applying the documented precedence. perCall may be nil.
func (r *Resolver) Resolve(perCall Properties) Properties {
	out := r.bundled.Clone()
	for _, key := range overlayKeys {
		if v, ok := r.global[key]; ok {
			out[key] = v
		}
		if v := r.getenv(EnvVar(key)); v != "" {
			out[key] = v
		}
		if v, ok := perCall[key]; ok {
			out[key] = v
		}
	}
	// Unrecognized per-call settings pass through untouched.
	for k, v := range perCall {
		if !isOverlayKey(k) {
			out[k] = v
		}
	}
	return out
}

// EnvVar returns the environment variable name for an option key.
func EnvVar(key string) string {
	return EnvPrefix + strings.ToUpper(key)
}

func isOverlayKey(key string) bool {
	for _, k := range overlayKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Validate checks option combinations that cannot be expressed per-key.
// Access key and secret key must both be present or both be absent.
func Validate(props Properties) error {
	_, hasAccess := props[KeyAccessKey]
	_, hasSecret := props[KeySecretKey]
	if hasAccess != hasSecret {
		return vfserrors.Newf(vfserrors.CodeConfiguration,
			"%s and %s must both be provided or both be omitted", KeyAccessKey, KeySecretKey)
	}
	return nil
}
