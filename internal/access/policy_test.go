package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyRolesFor(t *testing.T) {
	p, err := NewPolicy()
	require.NoError(t, err)

	assert.ElementsMatch(t, []Role{RoleAdmin}, p.RolesFor(ActionCommentModerate).Slice())
	assert.ElementsMatch(t, []Role{RoleAdmin, RoleCustomer, RoleUser}, p.RolesFor(ActionContentCreate).Slice())
	assert.ElementsMatch(t, []Role{RoleAdmin, RoleUser}, p.RolesFor(ActionContentSearch).Slice())
	assert.ElementsMatch(t, []Role{RoleAdmin, RoleCustomer}, p.RolesFor(ActionCommentUpdate).Slice())
	assert.Empty(t, p.RolesFor(Action("nope.nothing")))
}

func TestPolicyRolesForReturnsCopy(t *testing.T) {
	p, err := NewPolicy()
	require.NoError(t, err)

	roles := p.RolesFor(ActionUserDelete)
	roles[RoleUser] = struct{}{}
	assert.False(t, p.RolesFor(ActionUserDelete).Has(RoleUser))
}

func TestPolicyGrants(t *testing.T) {
	p, err := NewPolicy()
	require.NoError(t, err)

	ok, err := p.Grants(NewRoleSet(RoleUser), ActionCategoryCreate)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = p.Grants(NewRoleSet(RoleUser, RoleAdmin), ActionCategoryCreate)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPolicyFromString(t *testing.T) {
	p, err := NewPolicyFromString("p, User, comment, moderate\n")
	require.NoError(t, err)
	assert.True(t, p.RolesFor(ActionCommentModerate).Has(RoleUser))
	assert.False(t, p.RolesFor(ActionCommentModerate).Has(RoleAdmin))

	_, err = NewPolicyFromString("p, User, comment\n")
	require.Error(t, err)

	_, err = NewPolicyFromString("x, User, comment, create\n")
	require.Error(t, err)
}

func TestEveryActionHasARole(t *testing.T) {
	p, err := NewPolicy()
	require.NoError(t, err)
	for action := range rules {
		assert.True(t, p.RolesFor(action).Has(RoleAdmin), "admin should hold %s", action)
	}
}
