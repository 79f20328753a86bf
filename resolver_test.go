package grantkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEffectiveResourcePrivilegeDirect(t *testing.T) {
	f := newFixture(t)
	owner := f.user("owner")
	bob := f.user("bob")
	res := f.resource("res-1", owner)

	f.resourcePrivilege(owner, res, PrivilegeOwner)
	f.resourcePrivilege(bob, res, PrivilegeNone)

	require.NoError(t, f.service.ShareResourceWithUser(f.as(owner), res, bob, PrivilegeChange))
	f.resourcePrivilege(bob, res, PrivilegeChange)
}

func TestEffectiveResourcePrivilegeWeakestLink(t *testing.T) {
	// VIEW on the group plus CHANGE from group to resource composes to VIEW:
	// a chain is only as strong as its weakest leg.
	f := newFixture(t)
	owner := f.user("owner")
	bob := f.user("bob")
	res := f.resource("res-1", owner)
	grp := f.group("grp-1", owner)

	require.NoError(t, f.service.ShareGroupWithUser(f.as(owner), grp, bob, PrivilegeView))
	require.NoError(t, f.service.ShareResourceWithGroup(f.as(owner), res, grp, PrivilegeChange))

	f.resourcePrivilege(bob, res, PrivilegeView)

	// Raising the user-group leg raises the composite.
	require.NoError(t, f.service.ShareGroupWithUser(f.as(owner), grp, bob, PrivilegeChange))
	f.resourcePrivilege(bob, res, PrivilegeChange)
}

func TestEffectiveResourcePrivilegeStrongestPath(t *testing.T) {
	// A weak direct grant does not cap a stronger group path.
	f := newFixture(t)
	owner := f.user("owner")
	bob := f.user("bob")
	res := f.resource("res-1", owner)
	grp := f.group("grp-1", owner)

	require.NoError(t, f.service.ShareResourceWithUser(f.as(owner), res, bob, PrivilegeView))
	require.NoError(t, f.service.ShareGroupWithUser(f.as(owner), grp, bob, PrivilegeChange))
	require.NoError(t, f.service.ShareResourceWithGroup(f.as(owner), res, grp, PrivilegeChange))

	f.resourcePrivilege(bob, res, PrivilegeChange)
}

func TestEffectiveResourcePrivilegeCommunityPaths(t *testing.T) {
	f := newFixture(t)
	owner := f.user("owner")
	bob := f.user("bob")
	res := f.resource("res-1", owner)
	com := f.community("com-1", owner)

	t.Run("Two hop via community", func(t *testing.T) {
		require.NoError(t, f.service.ShareCommunityWithUser(f.as(owner), com, bob, PrivilegeView))
		require.NoError(t, f.service.ShareResourceWithCommunity(f.as(owner), res, com, PrivilegeChange))
		f.resourcePrivilege(bob, res, PrivilegeView)
	})

	t.Run("Three hop via group and community", func(t *testing.T) {
		g := newFixture(t)
		owner := g.user("owner")
		carol := g.user("carol")
		res := g.resource("res-1", owner)
		grp := g.group("grp-1", owner)
		com := g.community("com-1", owner)

		require.NoError(t, g.service.ShareGroupWithUser(g.as(owner), grp, carol, PrivilegeChange))
		require.NoError(t, g.service.ShareCommunityWithGroup(g.as(owner), com, grp, PrivilegeView))
		require.NoError(t, g.service.ShareResourceWithCommunity(g.as(owner), res, com, PrivilegeChange))

		// CHANGE ∘ VIEW ∘ CHANGE composes to VIEW.
		g.resourcePrivilege(carol, res, PrivilegeView)
	})
}

func TestEffectiveResourcePrivilegeImmutableSquash(t *testing.T) {
	f := newFixture(t)
	owner := f.user("owner")
	bob := f.user("bob")
	res := f.resource("res-1", owner)

	require.NoError(t, f.service.ShareResourceWithUser(f.as(owner), res, bob, PrivilegeChange))

	f.registry.PutResource(res, ResourceFlags{Immutable: true, Shareable: true})

	// CHANGE squashes to VIEW on an immutable resource; OWNER never does.
	f.resourcePrivilege(bob, res, PrivilegeView)
	f.resourcePrivilege(owner, res, PrivilegeOwner)

	// Clearing the flag restores the granted level without any mutation.
	f.registry.PutResource(res, ResourceFlags{Shareable: true})
	f.resourcePrivilege(bob, res, PrivilegeChange)
}

func TestEffectiveResourcePrivilegeInactiveEntities(t *testing.T) {
	f := newFixture(t)
	owner := f.user("owner")
	bob := f.user("bob")
	res := f.resource("res-1", owner)
	grp := f.group("grp-1", owner)

	require.NoError(t, f.service.ShareResourceWithUser(f.as(owner), res, bob, PrivilegeView))
	require.NoError(t, f.service.ShareGroupWithUser(f.as(owner), grp, bob, PrivilegeChange))
	require.NoError(t, f.service.ShareResourceWithGroup(f.as(owner), res, grp, PrivilegeChange))

	t.Run("Inactive user resolves to NONE", func(t *testing.T) {
		f.registry.PutUser(bob, UserFlags{Active: false})
		f.resourcePrivilege(bob, res, PrivilegeNone)
		f.registry.PutUser(bob, UserFlags{Active: true})
	})

	t.Run("Inactive group drops its paths, direct survives", func(t *testing.T) {
		f.registry.PutGroup(grp, GroupFlags{Active: false, Shareable: true})
		f.resourcePrivilege(bob, res, PrivilegeView)
		f.registry.PutGroup(grp, GroupFlags{Active: true, Shareable: true})
		f.resourcePrivilege(bob, res, PrivilegeChange)
	})

	t.Run("Unknown user and resource resolve to NONE", func(t *testing.T) {
		p, err := f.service.EffectiveResourcePrivilege(f.ctx, "ghost", res)
		require.NoError(t, err)
		assert.Equal(t, PrivilegeNone, p)

		p, err = f.service.EffectiveResourcePrivilege(f.ctx, bob, "no-such-resource")
		require.NoError(t, err)
		assert.Equal(t, PrivilegeNone, p)
	})
}

func TestEffectiveGroupPrivilege(t *testing.T) {
	f := newFixture(t)
	owner := f.user("owner")
	bob := f.user("bob")
	grp := f.group("grp-1", owner)
	com := f.community("com-1", owner)

	p, err := f.service.EffectiveGroupPrivilege(f.ctx, bob, grp)
	require.NoError(t, err)
	assert.Equal(t, PrivilegeNone, p)

	// Community membership exposes the community's member groups at the
	// weakest leg of the two-hop path.
	require.NoError(t, f.service.ShareCommunityWithUser(f.as(owner), com, bob, PrivilegeChange))
	require.NoError(t, f.service.ShareCommunityWithGroup(f.as(owner), com, grp, PrivilegeView))

	p, err = f.service.EffectiveGroupPrivilege(f.ctx, bob, grp)
	require.NoError(t, err)
	assert.Equal(t, PrivilegeView, p)

	t.Run("Inactive group keeps direct grants only", func(t *testing.T) {
		require.NoError(t, f.service.ShareGroupWithUser(f.as(owner), grp, bob, PrivilegeView))
		f.registry.PutGroup(grp, GroupFlags{Active: false, Shareable: true})

		p, err := f.service.EffectiveGroupPrivilege(f.ctx, owner, grp)
		require.NoError(t, err)
		assert.Equal(t, PrivilegeOwner, p, "owners keep control of an inactive group")

		p, err = f.service.EffectiveGroupPrivilege(f.ctx, bob, grp)
		require.NoError(t, err)
		assert.Equal(t, PrivilegeView, p)
	})
}

func TestEffectiveCommunityPrivilege(t *testing.T) {
	f := newFixture(t)
	owner := f.user("owner")
	bob := f.user("bob")
	grp := f.group("grp-1", owner)
	com := f.community("com-1", owner)

	require.NoError(t, f.service.ShareGroupWithUser(f.as(owner), grp, bob, PrivilegeView))
	require.NoError(t, f.service.ShareCommunityWithGroup(f.as(owner), com, grp, PrivilegeView))

	p, err := f.service.EffectiveCommunityPrivilege(f.ctx, bob, com)
	require.NoError(t, err)
	assert.Equal(t, PrivilegeView, p)

	p, err = f.service.EffectiveCommunityPrivilege(f.ctx, owner, com)
	require.NoError(t, err)
	assert.Equal(t, PrivilegeOwner, p)

	t.Run("Inactive community keeps direct grants only", func(t *testing.T) {
		f.registry.PutCommunity(com, CommunityFlags{Active: false})

		p, err := f.service.EffectiveCommunityPrivilege(f.ctx, owner, com)
		require.NoError(t, err)
		assert.Equal(t, PrivilegeOwner, p)

		p, err = f.service.EffectiveCommunityPrivilege(f.ctx, bob, com)
		require.NoError(t, err)
		assert.Equal(t, PrivilegeNone, p, "group-mediated path contributes nothing")
	})
}
