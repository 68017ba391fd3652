// Package acl evaluates object ACL grants against requested access modes.
package acl

import (
	"github.com/s3vfs/s3vfs/pkg/errors"
	"github.com/s3vfs/s3vfs/pkg/types"
)

// Evaluator translates a grant list plus an owner identity into accept/deny
// decisions. The grant order is preserved but has no semantic weight: any
// covering grant suffices.
type Evaluator struct {
	bucket string
	key    string
	grants []types.Grant
	owner  types.Owner
}

// New creates an evaluator for the object at bucket/key.
func New(bucket, key string, grants []types.Grant, owner types.Owner) *Evaluator {
	return &Evaluator{bucket: bucket, key: key, grants: grants, owner: owner}
}

// CheckAccess evaluates the requested modes as the owner identity.
func (e *Evaluator) CheckAccess(modes ...types.AccessMode) error {
	return e.CheckAccessAs(e.owner.ID, modes...)
}

// CheckAccessAs evaluates the requested modes for an arbitrary identity.
// A mode is granted iff the identity is the owner, or some grant's grantee
// matches the identity (or one of the group sentinels) and carries a
// permission implying that mode. On refusal the error names the first
// unmet mode; no partial side effects occur.
func (e *Evaluator) CheckAccessAs(identity string, modes ...types.AccessMode) error {
	for _, mode := range modes {
		if e.allows(identity, mode) {
			continue
		}
		return errors.Newf(errors.CodeAccessDenied, "%s access denied to %s/%s",
			mode, e.bucket, e.key)
	}
	return nil
}

func (e *Evaluator) allows(identity string, mode types.AccessMode) bool {
	if identity != "" && identity == e.owner.ID {
		return true
	}
	for _, g := range e.grants {
		if granteeMatches(g.Grantee, identity) && implies(g.Permission, mode) {
			return true
		}
	}
	return false
}

// Modes returns the access modes the identity holds purely through grants,
// without the ownership shortcut. Used to report effective permissions
// rather than to gate an operation.
func Modes(grants []types.Grant, identity string) []types.AccessMode {
	var modes []types.AccessMode
	for _, m := range []types.AccessMode{types.AccessRead, types.AccessWrite} {
		for _, g := range grants {
			if granteeMatches(g.Grantee, identity) && implies(g.Permission, m) {
				modes = append(modes, m)
				break
			}
		}
	}
	return modes
}

func granteeMatches(g types.Grantee, identity string) bool {
	switch g.Type {
	case types.GranteeCanonicalUser:
		return g.ID != "" && g.ID == identity
	case types.GranteeGroup:
		// AllUsers matches everyone; AuthenticatedUsers matches any
		// non-anonymous identity.
		if g.URI == types.AllUsersURI {
			return true
		}
		if g.URI == types.AuthenticatedUsersURI {
			return identity != ""
		}
	}
	return false
}

// implies reports whether a permission covers an access mode. Nothing
// implies execute; only ownership grants it.
func implies(p types.Permission, mode types.AccessMode) bool {
	switch mode {
	case types.AccessRead:
		return p == types.PermFullControl || p == types.PermRead
	case types.AccessWrite:
		return p == types.PermFullControl || p == types.PermWrite
	default:
		return false
	}
}
