package grantkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemoryRegistry(t *testing.T) {
	r := NewMemoryRegistry()

	t.Run("Unknown entities do not exist", func(t *testing.T) {
		_, ok := r.User("ghost")
		assert.False(t, ok)
		_, ok = r.Group("ghost")
		assert.False(t, ok)
		_, ok = r.Resource("ghost")
		assert.False(t, ok)
		_, ok = r.Community("ghost")
		assert.False(t, ok)
	})

	t.Run("Flags round-trip", func(t *testing.T) {
		r.PutUser("user-1", UserFlags{Active: true})
		r.PutGroup("grp-1", GroupFlags{Active: true, Public: true, Discoverable: true, Shareable: true})
		r.PutResource("res-1", ResourceFlags{Immutable: true, Published: true})
		r.PutCommunity("com-1", CommunityFlags{Active: true})

		user, ok := r.User("user-1")
		assert.True(t, ok)
		assert.True(t, user.Active)

		group, ok := r.Group("grp-1")
		assert.True(t, ok)
		assert.True(t, group.Public)
		assert.True(t, group.Shareable)

		resource, ok := r.Resource("res-1")
		assert.True(t, ok)
		assert.True(t, resource.Immutable)
		assert.False(t, resource.Shareable)

		community, ok := r.Community("com-1")
		assert.True(t, ok)
		assert.True(t, community.Active)
	})

	t.Run("Put replaces, Remove deletes", func(t *testing.T) {
		r.PutUser("user-1", UserFlags{Active: false})
		user, ok := r.User("user-1")
		assert.True(t, ok)
		assert.False(t, user.Active)

		r.RemoveUser("user-1")
		_, ok = r.User("user-1")
		assert.False(t, ok)

		r.RemoveGroup("grp-1")
		r.RemoveResource("res-1")
		r.RemoveCommunity("com-1")
		_, ok = r.Group("grp-1")
		assert.False(t, ok)
		_, ok = r.Resource("res-1")
		assert.False(t, ok)
		_, ok = r.Community("com-1")
		assert.False(t, ok)
	})
}
