package grantkit

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreSetAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	p, err := store.Privilege(ctx, RelationUserResource, "alice", "res-1")
	require.NoError(t, err)
	assert.Equal(t, PrivilegeNone, p)

	require.NoError(t, store.SetPrivilege(ctx, RelationUserResource, "alice", "res-1", PrivilegeChange, "bob"))

	p, err = store.Privilege(ctx, RelationUserResource, "alice", "res-1")
	require.NoError(t, err)
	assert.Equal(t, PrivilegeChange, p)

	rec, err := store.Record(ctx, RelationUserResource, "alice", "res-1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "bob", rec.GrantorID)
	assert.Equal(t, PrivilegeChange, rec.Privilege)

	// Relations are independent projections.
	p, err = store.Privilege(ctx, RelationGroupResource, "alice", "res-1")
	require.NoError(t, err)
	assert.Equal(t, PrivilegeNone, p)
}

func TestMemoryStoreInvalidInput(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Privilege(ctx, Relation("bogus"), "a", "b")
	assert.ErrorIs(t, err, ErrInvalidRelation)

	err = store.SetPrivilege(ctx, RelationUserResource, "a", "b", Privilege(9), "g")
	assert.ErrorIs(t, err, ErrInvalidPrivilege)
}

func TestMemoryStoreNoneDeletesRecord(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.SetPrivilege(ctx, RelationUserResource, "alice", "res-1", PrivilegeView, "bob"))
	require.NoError(t, store.SetPrivilege(ctx, RelationUserResource, "alice", "res-1", PrivilegeNone, "bob"))

	rec, err := store.Record(ctx, RelationUserResource, "alice", "res-1")
	require.NoError(t, err)
	assert.Nil(t, rec)

	// The ledger keeps both transitions; the NONE entry has no grantor.
	entries, err := store.ProvenanceLog(ctx, NewProvenanceFilter().
		WithRelation(RelationUserResource).WithActor("alice").WithTarget("res-1"))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, PrivilegeNone, entries[0].Privilege)
	assert.Empty(t, entries[0].GrantorID)
	assert.Equal(t, PrivilegeView, entries[1].Privilege)
	assert.Equal(t, "bob", entries[1].GrantorID)
}

func TestMemoryStoreCurrentAndPriorEntry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	current, err := store.CurrentEntry(ctx, RelationUserGroup, "alice", "grp-1")
	require.NoError(t, err)
	assert.Nil(t, current)

	require.NoError(t, store.SetPrivilege(ctx, RelationUserGroup, "alice", "grp-1", PrivilegeView, "bob"))
	require.NoError(t, store.SetPrivilege(ctx, RelationUserGroup, "alice", "grp-1", PrivilegeChange, "carol"))

	current, err = store.CurrentEntry(ctx, RelationUserGroup, "alice", "grp-1")
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, PrivilegeChange, current.Privilege)
	assert.Equal(t, "carol", current.GrantorID)

	prior, err := store.PriorEntry(ctx, RelationUserGroup, "alice", "grp-1")
	require.NoError(t, err)
	require.NotNil(t, prior)
	assert.Equal(t, PrivilegeView, prior.Privilege)
	assert.Equal(t, "bob", prior.GrantorID)
}

func TestMemoryStoreUndoLast(t *testing.T) {
	ctx := context.Background()

	t.Run("Restores prior privilege", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.SetPrivilege(ctx, RelationUserResource, "alice", "res-1", PrivilegeView, "bob"))
		require.NoError(t, store.SetPrivilege(ctx, RelationUserResource, "alice", "res-1", PrivilegeChange, "carol"))

		require.NoError(t, store.UndoLast(ctx, RelationUserResource, "alice", "res-1", "carol"))

		p, err := store.Privilege(ctx, RelationUserResource, "alice", "res-1")
		require.NoError(t, err)
		assert.Equal(t, PrivilegeView, p)

		rec, err := store.Record(ctx, RelationUserResource, "alice", "res-1")
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, "bob", rec.GrantorID, "grantor of record reverts with the privilege")
	})

	t.Run("Deletes record when no prior entry", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.SetPrivilege(ctx, RelationUserResource, "alice", "res-1", PrivilegeView, "bob"))

		require.NoError(t, store.UndoLast(ctx, RelationUserResource, "alice", "res-1", "bob"))

		rec, err := store.Record(ctx, RelationUserResource, "alice", "res-1")
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("Second undo fails", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.SetPrivilege(ctx, RelationUserResource, "alice", "res-1", PrivilegeView, "bob"))
		require.NoError(t, store.SetPrivilege(ctx, RelationUserResource, "alice", "res-1", PrivilegeChange, "bob"))
		require.NoError(t, store.UndoLast(ctx, RelationUserResource, "alice", "res-1", "bob"))

		err := store.UndoLast(ctx, RelationUserResource, "alice", "res-1", "bob")
		assert.True(t, IsPermissionDenied(err))
		assert.Contains(t, err.Error(), "already been undone")
	})

	t.Run("Wrong grantor fails", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.SetPrivilege(ctx, RelationUserResource, "alice", "res-1", PrivilegeView, "bob"))

		err := store.UndoLast(ctx, RelationUserResource, "alice", "res-1", "mallory")
		assert.True(t, IsPermissionDenied(err))
	})

	t.Run("Empty history fails", func(t *testing.T) {
		store := NewMemoryStore()
		err := store.UndoLast(ctx, RelationUserResource, "alice", "res-1", "bob")
		assert.True(t, IsPermissionDenied(err))
	})

	t.Run("Undo skips undone entries walking back", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.SetPrivilege(ctx, RelationUserResource, "alice", "res-1", PrivilegeView, "bob"))
		require.NoError(t, store.SetPrivilege(ctx, RelationUserResource, "alice", "res-1", PrivilegeChange, "bob"))
		require.NoError(t, store.UndoLast(ctx, RelationUserResource, "alice", "res-1", "bob"))
		// New grant on top of the undone history.
		require.NoError(t, store.SetPrivilege(ctx, RelationUserResource, "alice", "res-1", PrivilegeOwner, "carol"))
		require.NoError(t, store.UndoLast(ctx, RelationUserResource, "alice", "res-1", "carol"))

		// The undone CHANGE entry must not resurface; VIEW is the state.
		p, err := store.Privilege(ctx, RelationUserResource, "alice", "res-1")
		require.NoError(t, err)
		assert.Equal(t, PrivilegeView, p)
	})
}

func TestMemoryStoreUndoActors(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.SetPrivilege(ctx, RelationUserResource, "alice", "res-1", PrivilegeView, "owner"))
	require.NoError(t, store.SetPrivilege(ctx, RelationUserResource, "bob", "res-1", PrivilegeView, "owner"))
	require.NoError(t, store.SetPrivilege(ctx, RelationUserResource, "carol", "res-1", PrivilegeView, "other"))
	require.NoError(t, store.SetPrivilege(ctx, RelationUserResource, "dave", "res-2", PrivilegeView, "owner"))

	actors, err := store.UndoActors(ctx, RelationUserResource, "res-1", "owner")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, actors)

	// After undoing alice, only bob remains undoable.
	require.NoError(t, store.UndoLast(ctx, RelationUserResource, "alice", "res-1", "owner"))
	actors, err = store.UndoActors(ctx, RelationUserResource, "res-1", "owner")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, actors)
}

func TestMemoryStoreListings(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.SetPrivilege(ctx, RelationUserResource, "alice", "res-1", PrivilegeOwner, "alice"))
	require.NoError(t, store.SetPrivilege(ctx, RelationUserResource, "bob", "res-1", PrivilegeChange, "alice"))
	require.NoError(t, store.SetPrivilege(ctx, RelationUserResource, "carol", "res-1", PrivilegeView, "alice"))
	require.NoError(t, store.SetPrivilege(ctx, RelationUserResource, "alice", "res-2", PrivilegeOwner, "alice"))

	actors, err := store.ActorsWithPrivilege(ctx, RelationUserResource, "res-1", PrivilegeView)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob", "carol"}, actors)

	actors, err = store.ActorsWithPrivilege(ctx, RelationUserResource, "res-1", PrivilegeChange)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, actors)

	actors, err = store.ActorsWithPrivilege(ctx, RelationUserResource, "res-1", PrivilegeOwner)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, actors)

	targets, err := store.TargetsWithPrivilege(ctx, RelationUserResource, "alice", PrivilegeOwner)
	require.NoError(t, err)
	assert.Equal(t, []string{"res-1", "res-2"}, targets)
}

func TestMemoryStoreProvenanceLogFilters(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.SetPrivilege(ctx, RelationUserResource, "alice", "res-1", PrivilegeView, "bob"))
	require.NoError(t, store.SetPrivilege(ctx, RelationUserResource, "alice", "res-1", PrivilegeChange, "bob"))
	require.NoError(t, store.SetPrivilege(ctx, RelationUserGroup, "alice", "grp-1", PrivilegeView, "carol"))
	require.NoError(t, store.UndoLast(ctx, RelationUserResource, "alice", "res-1", "bob"))

	t.Run("Most recent first", func(t *testing.T) {
		entries, err := store.ProvenanceLog(ctx, NewProvenanceFilter())
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.True(t, entries[0].ID > entries[1].ID)
		assert.True(t, entries[1].ID > entries[2].ID)
	})

	t.Run("By relation", func(t *testing.T) {
		entries, err := store.ProvenanceLog(ctx, NewProvenanceFilter().WithRelation(RelationUserGroup))
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "carol", entries[0].GrantorID)
	})

	t.Run("Without undone", func(t *testing.T) {
		entries, err := store.ProvenanceLog(ctx, NewProvenanceFilter().
			WithRelation(RelationUserResource).WithoutUndone())
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, PrivilegeView, entries[0].Privilege)
	})

	t.Run("By grantor", func(t *testing.T) {
		entries, err := store.ProvenanceLog(ctx, NewProvenanceFilter().WithGrantor("bob"))
		require.NoError(t, err)
		assert.Len(t, entries, 2)
	})

	t.Run("Pagination", func(t *testing.T) {
		entries, err := store.ProvenanceLog(ctx, NewProvenanceFilter().WithPagination(2, 0))
		require.NoError(t, err)
		assert.Len(t, entries, 2)

		entries, err = store.ProvenanceLog(ctx, NewProvenanceFilter().WithPagination(2, 2))
		require.NoError(t, err)
		assert.Len(t, entries, 1)

		entries, err = store.ProvenanceLog(ctx, NewProvenanceFilter().WithOffset(10))
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("Invalid relation", func(t *testing.T) {
		_, err := store.ProvenanceLog(ctx, NewProvenanceFilter().WithRelation("bogus"))
		assert.ErrorIs(t, err, ErrInvalidRelation)
	})
}

func TestMemoryStoreMembershipRequests(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	req := &MembershipRequest{
		ID:          newRequestID(),
		CommunityID: "com-1",
		GroupID:     "grp-1",
		Direction:   DirectionInvite,
		CreatedByID: "alice",
	}
	require.NoError(t, store.PutMembershipRequest(ctx, req))

	got, err := store.GetMembershipRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, DirectionInvite, got.Direction)
	assert.True(t, got.Pending())

	pending, err := store.PendingMembershipRequests(ctx, "com-1", "grp-1")
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	// Redeeming removes it from the pending set but not from listings.
	got.Redeemed = true
	got.Approved = true
	require.NoError(t, store.PutMembershipRequest(ctx, got))

	pending, err = store.PendingMembershipRequests(ctx, "com-1", "grp-1")
	require.NoError(t, err)
	assert.Empty(t, pending)

	all, err := store.ListMembershipRequests(ctx, NewMembershipFilter().WithCommunity("com-1"))
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, store.DeleteMembershipRequest(ctx, req.ID))
	_, err = store.GetMembershipRequest(ctx, req.ID)
	assert.True(t, IsNotFound(err))
	assert.True(t, IsNotFound(store.DeleteMembershipRequest(ctx, req.ID)))
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.SetPrivilege(ctx, RelationUserResource, "alice", "res-1", PrivilegeView, "bob"))

	rec, err := store.Record(ctx, RelationUserResource, "alice", "res-1")
	require.NoError(t, err)
	rec.Privilege = PrivilegeOwner

	again, err := store.Record(ctx, RelationUserResource, "alice", "res-1")
	require.NoError(t, err)
	assert.Equal(t, PrivilegeView, again.Privilege, "mutating a returned record must not leak into the store")
}

func TestMemoryStoreAtomicSerializes(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Atomic(ctx, func(ctx context.Context, tx Store) error {
				p, err := tx.Privilege(ctx, RelationUserResource, "alice", "res-1")
				if err != nil {
					return err
				}
				if p == PrivilegeNone {
					return tx.SetPrivilege(ctx, RelationUserResource, "alice", "res-1", PrivilegeView, "bob")
				}
				return nil
			})
		}()
	}
	wg.Wait()

	// Exactly one writer got through the check-then-set.
	entries, err := store.ProvenanceLog(ctx, NewProvenanceFilter().
		WithRelation(RelationUserResource).WithActor("alice"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	metrics := store.TransactionMetrics()
	assert.Equal(t, int64(20), metrics.TotalTransactions)
	assert.Equal(t, int64(20), metrics.SuccessfulTransactions)

	store.ResetTransactionMetrics()
	assert.Zero(t, store.TransactionMetrics().TotalTransactions)
}
