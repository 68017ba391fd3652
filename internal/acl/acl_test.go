package acl

import (
	"testing"

	"github.com/stretchr/testify/assert"

	vfserrors "github.com/s3vfs/s3vfs/pkg/errors"
	"github.com/s3vfs/s3vfs/pkg/types"
)

var owner = types.Owner{ID: "owner-id", DisplayName: "owner"}

func canonicalGrant(id string, p types.Permission) types.Grant {
	return types.Grant{
		Grantee:    types.Grantee{Type: types.GranteeCanonicalUser, ID: id},
		Permission: p,
	}
}

func groupGrant(uri string, p types.Permission) types.Grant {
	return types.Grant{
		Grantee:    types.Grantee{Type: types.GranteeGroup, URI: uri},
		Permission: p,
	}
}

func TestOwnerAlwaysGranted(t *testing.T) {
	e := New("bkt", "key", nil, owner)
	assert.NoError(t, e.CheckAccess(types.AccessRead, types.AccessWrite))
}

func TestNonOwnerDeniedWithoutGrants(t *testing.T) {
	e := New("bkt", "key", nil, owner)
	err := e.CheckAccessAs("someone-else", types.AccessRead)
	assert.Equal(t, vfserrors.CodeAccessDenied, vfserrors.CodeOf(err))
}

func TestCanonicalGrant(t *testing.T) {
	grants := []types.Grant{canonicalGrant("reader-id", types.PermRead)}
	e := New("bkt", "key", grants, owner)

	assert.NoError(t, e.CheckAccessAs("reader-id", types.AccessRead))
	err := e.CheckAccessAs("reader-id", types.AccessWrite)
	assert.Equal(t, vfserrors.CodeAccessDenied, vfserrors.CodeOf(err))
}

func TestFullControlImpliesReadAndWrite(t *testing.T) {
	grants := []types.Grant{canonicalGrant("user-id", types.PermFullControl)}
	e := New("bkt", "key", grants, owner)
	assert.NoError(t, e.CheckAccessAs("user-id", types.AccessRead, types.AccessWrite))
}

func TestNothingImpliesExecute(t *testing.T) {
	grants := []types.Grant{canonicalGrant("user-id", types.PermFullControl)}
	e := New("bkt", "key", grants, owner)
	err := e.CheckAccessAs("user-id", types.AccessExecute)
	assert.Equal(t, vfserrors.CodeAccessDenied, vfserrors.CodeOf(err))
}

func TestAllUsersGroup(t *testing.T) {
	grants := []types.Grant{groupGrant(types.AllUsersURI, types.PermRead)}
	e := New("bkt", "key", grants, owner)

	// Even the anonymous identity matches AllUsers.
	assert.NoError(t, e.CheckAccessAs("", types.AccessRead))
}

func TestAuthenticatedUsersGroup(t *testing.T) {
	grants := []types.Grant{groupGrant(types.AuthenticatedUsersURI, types.PermRead)}
	e := New("bkt", "key", grants, owner)

	assert.NoError(t, e.CheckAccessAs("any-user", types.AccessRead))
	err := e.CheckAccessAs("", types.AccessRead)
	assert.Equal(t, vfserrors.CodeAccessDenied, vfserrors.CodeOf(err))
}

func TestErrorNamesFirstUnmetMode(t *testing.T) {
	grants := []types.Grant{canonicalGrant("user-id", types.PermRead)}
	e := New("bkt", "some/key", grants, owner)

	err := e.CheckAccessAs("user-id", types.AccessRead, types.AccessWrite, types.AccessExecute)
	assert.ErrorContains(t, err, "write access denied")
	assert.ErrorContains(t, err, "bkt/some/key")
}

func TestModesDerivesFromGrantsOnly(t *testing.T) {
	grants := []types.Grant{canonicalGrant(owner.ID, types.PermRead)}

	// Ownership does not inflate the grant-derived mode set.
	assert.Equal(t, []types.AccessMode{types.AccessRead}, Modes(grants, owner.ID))
	assert.Empty(t, Modes(nil, owner.ID))

	full := []types.Grant{canonicalGrant(owner.ID, types.PermFullControl)}
	assert.Equal(t, []types.AccessMode{types.AccessRead, types.AccessWrite}, Modes(full, owner.ID))
}
