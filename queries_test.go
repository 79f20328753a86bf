package grantkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOwnershipPredicates(t *testing.T) {
	f := newFixture(t)
	owner := f.user("owner")
	bob := f.user("bob")
	res := f.resource("res-1", owner)
	grp := f.group("grp-1", owner)
	com := f.community("com-1", owner)

	for name, check := range map[string]func() (bool, error){
		"resource":  func() (bool, error) { return f.service.OwnsResource(f.ctx, owner, res) },
		"group":     func() (bool, error) { return f.service.OwnsGroup(f.ctx, owner, grp) },
		"community": func() (bool, error) { return f.service.OwnsCommunity(f.ctx, owner, com) },
	} {
		got, err := check()
		require.NoError(t, err, name)
		assert.True(t, got, name)
	}

	got, err := f.service.OwnsResource(f.ctx, bob, res)
	require.NoError(t, err)
	assert.False(t, got)

	// CHANGE is not ownership.
	require.NoError(t, f.service.ShareResourceWithUser(f.as(owner), res, bob, PrivilegeChange))
	got, err = f.service.OwnsResource(f.ctx, bob, res)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestCanViewResource(t *testing.T) {
	f := newFixture(t)
	owner := f.user("owner")
	bob := f.user("bob")
	res := f.resource("res-1", owner)

	got, err := f.service.CanViewResource(f.ctx, bob, res)
	require.NoError(t, err)
	assert.False(t, got)

	t.Run("Public resources are visible without a grant", func(t *testing.T) {
		f.registry.PutResource(res, ResourceFlags{Public: true, Shareable: true})
		got, err := f.service.CanViewResource(f.ctx, bob, res)
		require.NoError(t, err)
		assert.True(t, got)

		// Public never reaches an inactive user.
		f.registry.PutUser(bob, UserFlags{Active: false})
		got, err = f.service.CanViewResource(f.ctx, bob, res)
		require.NoError(t, err)
		assert.False(t, got)

		f.registry.PutUser(bob, UserFlags{Active: true})
		f.registry.PutResource(res, ResourceFlags{Shareable: true})
	})

	t.Run("Unknown resource is not viewable", func(t *testing.T) {
		got, err := f.service.CanViewResource(f.ctx, bob, "no-such-resource")
		require.NoError(t, err)
		assert.False(t, got)
	})

	require.NoError(t, f.service.ShareResourceWithUser(f.as(owner), res, bob, PrivilegeView))
	got, err = f.service.CanViewResource(f.ctx, bob, res)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestCanChangeResource(t *testing.T) {
	f := newFixture(t)
	owner := f.user("owner")
	bob := f.user("bob")
	res := f.resource("res-1", owner)

	require.NoError(t, f.service.ShareResourceWithUser(f.as(owner), res, bob, PrivilegeChange))

	got, err := f.service.CanChangeResource(f.ctx, bob, res)
	require.NoError(t, err)
	assert.True(t, got)

	// Immutability strips CHANGE but never ownership.
	f.registry.PutResource(res, ResourceFlags{Immutable: true, Shareable: true})

	got, err = f.service.CanChangeResource(f.ctx, bob, res)
	require.NoError(t, err)
	assert.False(t, got)

	got, err = f.service.CanChangeResource(f.ctx, owner, res)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestCanViewGroup(t *testing.T) {
	f := newFixture(t)
	owner := f.user("owner")
	bob := f.user("bob")
	grp := f.group("grp-1", owner)

	got, err := f.service.CanViewGroup(f.ctx, bob, grp)
	require.NoError(t, err)
	assert.False(t, got)

	f.registry.PutGroup(grp, GroupFlags{Active: true, Public: true, Shareable: true})
	got, err = f.service.CanViewGroup(f.ctx, bob, grp)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestResourceListings(t *testing.T) {
	f := newFixture(t)
	owner := f.user("owner")
	bob := f.user("bob")
	direct := f.resource("res-direct", owner)
	viaGroup := f.resource("res-group", owner)
	viaCommunity := f.resource("res-community", owner)
	grp := f.group("grp-1", owner)
	com := f.community("com-1", owner)

	require.NoError(t, f.service.ShareResourceWithUser(f.as(owner), direct, bob, PrivilegeChange))
	require.NoError(t, f.service.ShareGroupWithUser(f.as(owner), grp, bob, PrivilegeChange))
	require.NoError(t, f.service.ShareResourceWithGroup(f.as(owner), viaGroup, grp, PrivilegeChange))
	require.NoError(t, f.service.ShareCommunityWithUser(f.as(owner), com, bob, PrivilegeView))
	require.NoError(t, f.service.ShareResourceWithCommunity(f.as(owner), viaCommunity, com, PrivilegeChange))

	view, err := f.service.ViewResources(f.ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, []string{"res-community", "res-direct", "res-group"}, view)

	// The community leg is VIEW, so res-community composes below CHANGE.
	edit, err := f.service.EditResources(f.ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, []string{"res-direct", "res-group"}, edit)

	owned, err := f.service.OwnedResources(f.ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, owned)

	owned, err = f.service.OwnedResources(f.ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, []string{"res-community", "res-direct", "res-group"}, owned)

	t.Run("Inactive user sees nothing", func(t *testing.T) {
		f.registry.PutUser(bob, UserFlags{Active: false})
		view, err := f.service.ViewResources(f.ctx, bob)
		require.NoError(t, err)
		assert.Empty(t, view)
		f.registry.PutUser(bob, UserFlags{Active: true})
	})
}

func TestGroupListings(t *testing.T) {
	f := newFixture(t)
	owner := f.user("owner")
	bob := f.user("bob")
	direct := f.group("grp-direct", owner)
	mediated := f.group("grp-mediated", owner)
	com := f.community("com-1", owner)

	require.NoError(t, f.service.ShareGroupWithUser(f.as(owner), direct, bob, PrivilegeChange))
	require.NoError(t, f.service.ShareCommunityWithUser(f.as(owner), com, bob, PrivilegeView))
	require.NoError(t, f.service.ShareCommunityWithGroup(f.as(owner), com, mediated, PrivilegeView))

	view, err := f.service.ViewGroups(f.ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, []string{"grp-direct", "grp-mediated"}, view)

	edit, err := f.service.EditGroups(f.ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, []string{"grp-direct"}, edit)

	owned, err := f.service.OwnedGroups(f.ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, []string{"grp-direct", "grp-mediated"}, owned)

	communities, err := f.service.OwnedCommunities(f.ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, []string{"com-1"}, communities)
}

func TestResourcesWithExplicitAccess(t *testing.T) {
	f := newFixture(t)
	owner := f.user("owner")
	bob := f.user("bob")
	direct := f.resource("res-direct", owner)
	viaGroup := f.resource("res-group", owner)
	viaCommunity := f.resource("res-community", owner)
	grp := f.group("grp-1", owner)
	com := f.community("com-1", owner)

	require.NoError(t, f.service.ShareResourceWithUser(f.as(owner), direct, bob, PrivilegeChange))
	require.NoError(t, f.service.ShareGroupWithUser(f.as(owner), grp, bob, PrivilegeView))
	require.NoError(t, f.service.ShareResourceWithGroup(f.as(owner), viaGroup, grp, PrivilegeChange))
	require.NoError(t, f.service.ShareCommunityWithUser(f.as(owner), com, bob, PrivilegeView))
	require.NoError(t, f.service.ShareResourceWithCommunity(f.as(owner), viaCommunity, com, PrivilegeView))

	t.Run("Channels match the granted level exactly", func(t *testing.T) {
		// res-group is granted CHANGE to the group even though bob's
		// membership is only VIEW; explicit access looks at the far leg.
		got, err := f.service.ResourcesWithExplicitAccess(f.ctx, bob, PrivilegeChange, true, true, true)
		require.NoError(t, err)
		assert.Equal(t, []string{"res-direct", "res-group"}, got)

		got, err = f.service.ResourcesWithExplicitAccess(f.ctx, bob, PrivilegeView, true, true, true)
		require.NoError(t, err)
		assert.Equal(t, []string{"res-community"}, got)
	})

	t.Run("Channel selection narrows the result", func(t *testing.T) {
		got, err := f.service.ResourcesWithExplicitAccess(f.ctx, bob, PrivilegeChange, true, false, false)
		require.NoError(t, err)
		assert.Equal(t, []string{"res-direct"}, got)

		got, err = f.service.ResourcesWithExplicitAccess(f.ctx, bob, PrivilegeChange, false, true, false)
		require.NoError(t, err)
		assert.Equal(t, []string{"res-group"}, got)

		got, err = f.service.ResourcesWithExplicitAccess(f.ctx, bob, PrivilegeView, false, false, true)
		require.NoError(t, err)
		assert.Equal(t, []string{"res-community"}, got)
	})

	t.Run("NONE and invalid levels are rejected", func(t *testing.T) {
		_, err := f.service.ResourcesWithExplicitAccess(f.ctx, bob, PrivilegeNone, true, true, true)
		assert.ErrorIs(t, err, ErrInvalidPrivilege)

		_, err = f.service.ResourcesWithExplicitAccess(f.ctx, bob, Privilege(42), true, true, true)
		assert.ErrorIs(t, err, ErrInvalidPrivilege)
	})
}

func TestGrantChainLowering(t *testing.T) {
	// Alice owns, grants Bob CHANGE; Bob passes CHANGE on to Carol; Alice
	// later lowers Carol to VIEW. Ownership overrides the third-party
	// protection and the lowered level is what resolves.
	f := newFixture(t)
	alice := f.user("alice")
	bob := f.user("bob")
	carol := f.user("carol")
	res := f.resource("res-1", alice)

	require.NoError(t, f.service.ShareResourceWithUser(f.as(alice), res, bob, PrivilegeChange))
	require.NoError(t, f.service.ShareResourceWithUser(f.as(bob), res, carol, PrivilegeChange))
	require.NoError(t, f.service.ShareResourceWithUser(f.as(alice), res, carol, PrivilegeView))

	f.resourcePrivilege(carol, res, PrivilegeView)

	// The grantor of record moved from bob to alice, so only alice can undo.
	undoable, err := f.service.UndoShareResourceUsers(f.as(bob), res)
	require.NoError(t, err)
	assert.NotContains(t, undoable, carol)

	undoable, err = f.service.UndoShareResourceUsers(f.as(alice), res)
	require.NoError(t, err)
	assert.Contains(t, undoable, carol)

	// Undoing alice's lowering restores bob's CHANGE grant.
	require.NoError(t, f.service.UndoShareResourceWithUser(f.as(alice), res, carol))
	f.resourcePrivilege(carol, res, PrivilegeChange)
}
