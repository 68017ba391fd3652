// Package types holds the value types shared between the storage clients and
// the virtual-filesystem layer: object metadata, bucket metadata, and the ACL
// model (grants, grantees, owner) that access checks are evaluated against.
package types

import "time"

// ObjectInfo represents metadata about a stored object.
type ObjectInfo struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size"`
	LastModified time.Time         `json:"last_modified"`
	ETag         string            `json:"etag"`
	ContentType  string            `json:"content_type"`
	Metadata     map[string]string `json:"metadata"`
}

// BucketInfo represents metadata about a bucket.
type BucketInfo struct {
	Name         string    `json:"name"`
	CreationDate time.Time `json:"creation_date"`
}

// Owner identifies the owning principal of a bucket or object.
type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// GranteeType distinguishes individual principals from the predefined
// group sentinels.
type GranteeType string

const (
	GranteeCanonicalUser GranteeType = "CanonicalUser"
	GranteeGroup         GranteeType = "Group"
)

// Well-known group grantee URIs.
const (
	AllUsersURI           = "http://acs.amazonaws.com/groups/global/AllUsers"
	AuthenticatedUsersURI = "http://acs.amazonaws.com/groups/global/AuthenticatedUsers"
)

// Grantee identifies who a grant applies to: a canonical user by ID, or a
// predefined group by URI.
type Grantee struct {
	Type        GranteeType `json:"type"`
	ID          string      `json:"id,omitempty"`
	DisplayName string      `json:"display_name,omitempty"`
	URI         string      `json:"uri,omitempty"`
}

// Permission is the set of rights an ACL grant can carry.
type Permission string

const (
	PermFullControl Permission = "FULL_CONTROL"
	PermRead        Permission = "READ"
	PermWrite       Permission = "WRITE"
	PermReadACP     Permission = "READ_ACP"
	PermWriteACP    Permission = "WRITE_ACP"
)

// Grant is a single ACL entry: a grantee and the permission it holds.
type Grant struct {
	Grantee    Grantee    `json:"grantee"`
	Permission Permission `json:"permission"`
}

// AccessMode is a requested access kind for permission checks.
type AccessMode int

const (
	AccessRead AccessMode = iota
	AccessWrite
	AccessExecute
)

// String returns the lowercase mode name used in error messages.
func (m AccessMode) String() string {
	switch m {
	case AccessRead:
		return "read"
	case AccessWrite:
		return "write"
	case AccessExecute:
		return "execute"
	default:
		return "unknown"
	}
}
