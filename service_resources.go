package grantkit

import "context"

// ============================================================================
// RESOURCE SHARING
// ============================================================================

// CanShareResourceWithUser reports whether the actor in context may grant
// the user the given privilege on the resource. Pure predicate, no side
// effects.
func (s *Service) CanShareResourceWithUser(ctx context.Context, resourceID, userID string, p Privilege) bool {
	return s.checkShare(ctx, s.store, RelationUserResource, userID, resourceID, p, GetActorID(ctx)) == nil
}

// ShareResourceWithUser grants the user the given privilege on the
// resource. The actor in context is recorded as the grantor.
//
// Example:
//
//	ctx := grantkit.WithActorID(ctx, ownerID)
//	err := service.ShareResourceWithUser(ctx, resourceID, userID, grantkit.PrivilegeChange)
func (s *Service) ShareResourceWithUser(ctx context.Context, resourceID, userID string, p Privilege) error {
	return s.share(ctx, "share_resource_with_user", RelationUserResource, userID, resourceID, p)
}

// CanShareResourceWithGroup reports whether the actor in context may grant
// the group the given privilege on the resource. OWNER is rejected
// unconditionally: groups cannot own resources.
func (s *Service) CanShareResourceWithGroup(ctx context.Context, resourceID, groupID string, p Privilege) bool {
	return s.checkShare(ctx, s.store, RelationGroupResource, groupID, resourceID, p, GetActorID(ctx)) == nil
}

// ShareResourceWithGroup grants the group the given privilege on the
// resource.
func (s *Service) ShareResourceWithGroup(ctx context.Context, resourceID, groupID string, p Privilege) error {
	return s.share(ctx, "share_resource_with_group", RelationGroupResource, groupID, resourceID, p)
}

// CanShareResourceWithCommunity reports whether the actor in context may
// grant the community the given privilege on the resource.
func (s *Service) CanShareResourceWithCommunity(ctx context.Context, resourceID, communityID string, p Privilege) bool {
	return s.checkShare(ctx, s.store, RelationCommunityResource, communityID, resourceID, p, GetActorID(ctx)) == nil
}

// ShareResourceWithCommunity grants the community the given privilege on
// the resource, exposing it to the community's member users and groups.
func (s *Service) ShareResourceWithCommunity(ctx context.Context, resourceID, communityID string, p Privilege) error {
	return s.share(ctx, "share_resource_with_community", RelationCommunityResource, communityID, resourceID, p)
}

// ============================================================================
// RESOURCE UNSHARING
// ============================================================================

// CanUnshareResourceWithUser reports whether the actor in context may
// revoke the user's privilege on the resource.
func (s *Service) CanUnshareResourceWithUser(ctx context.Context, resourceID, userID string) bool {
	return s.checkUnshare(ctx, s.store, RelationUserResource, userID, resourceID, GetActorID(ctx)) == nil
}

// UnshareResourceWithUser revokes the user's privilege on the resource.
// The ledger records a reset to NONE; the current record is deleted.
func (s *Service) UnshareResourceWithUser(ctx context.Context, resourceID, userID string) error {
	return s.unshare(ctx, "unshare_resource_with_user", RelationUserResource, userID, resourceID)
}

// CanUnshareResourceWithGroup reports whether the actor in context may
// revoke the group's privilege on the resource.
func (s *Service) CanUnshareResourceWithGroup(ctx context.Context, resourceID, groupID string) bool {
	return s.checkUnshare(ctx, s.store, RelationGroupResource, groupID, resourceID, GetActorID(ctx)) == nil
}

// UnshareResourceWithGroup revokes the group's privilege on the resource.
func (s *Service) UnshareResourceWithGroup(ctx context.Context, resourceID, groupID string) error {
	return s.unshare(ctx, "unshare_resource_with_group", RelationGroupResource, groupID, resourceID)
}

// CanUnshareResourceWithCommunity reports whether the actor in context may
// revoke the community's privilege on the resource.
func (s *Service) CanUnshareResourceWithCommunity(ctx context.Context, resourceID, communityID string) bool {
	return s.checkUnshare(ctx, s.store, RelationCommunityResource, communityID, resourceID, GetActorID(ctx)) == nil
}

// UnshareResourceWithCommunity revokes the community's privilege on the
// resource.
func (s *Service) UnshareResourceWithCommunity(ctx context.Context, resourceID, communityID string) error {
	return s.unshare(ctx, "unshare_resource_with_community", RelationCommunityResource, communityID, resourceID)
}

// ============================================================================
// RESOURCE UNDO
// ============================================================================

// CanUndoShareResourceWithUser reports whether the actor in context may
// undo the most recent grant to the user on the resource.
func (s *Service) CanUndoShareResourceWithUser(ctx context.Context, resourceID, userID string) bool {
	return s.checkUndo(ctx, s.store, RelationUserResource, userID, resourceID, GetActorID(ctx)) == nil
}

// UndoShareResourceWithUser reverts the most recent grant to the user on
// the resource, re-exposing whatever privilege was in force before. Legal
// only for the grantor of that grant, exactly once.
func (s *Service) UndoShareResourceWithUser(ctx context.Context, resourceID, userID string) error {
	return s.undoShare(ctx, "undo_share_resource_with_user", RelationUserResource, userID, resourceID)
}

// CanUndoShareResourceWithGroup reports whether the actor in context may
// undo the most recent grant to the group on the resource.
func (s *Service) CanUndoShareResourceWithGroup(ctx context.Context, resourceID, groupID string) bool {
	return s.checkUndo(ctx, s.store, RelationGroupResource, groupID, resourceID, GetActorID(ctx)) == nil
}

// UndoShareResourceWithGroup reverts the most recent grant to the group on
// the resource.
func (s *Service) UndoShareResourceWithGroup(ctx context.Context, resourceID, groupID string) error {
	return s.undoShare(ctx, "undo_share_resource_with_group", RelationGroupResource, groupID, resourceID)
}

// CanUndoShareResourceWithCommunity reports whether the actor in context
// may undo the most recent grant to the community on the resource.
func (s *Service) CanUndoShareResourceWithCommunity(ctx context.Context, resourceID, communityID string) bool {
	return s.checkUndo(ctx, s.store, RelationCommunityResource, communityID, resourceID, GetActorID(ctx)) == nil
}

// UndoShareResourceWithCommunity reverts the most recent grant to the
// community on the resource.
func (s *Service) UndoShareResourceWithCommunity(ctx context.Context, resourceID, communityID string) error {
	return s.undoShare(ctx, "undo_share_resource_with_community", RelationCommunityResource, communityID, resourceID)
}

// ============================================================================
// RESOURCE ELIGIBILITY LISTS
// ============================================================================

// UnshareResourceUsers returns exactly the users whose privilege on the
// resource the actor in context may legally revoke. The list agrees with
// CanUnshareResourceWithUser pairwise.
func (s *Service) UnshareResourceUsers(ctx context.Context, resourceID string) ([]string, error) {
	return s.unshareCandidates(ctx, RelationUserResource, resourceID)
}

// UnshareResourceGroups returns exactly the groups whose privilege on the
// resource the actor in context may legally revoke.
func (s *Service) UnshareResourceGroups(ctx context.Context, resourceID string) ([]string, error) {
	return s.unshareCandidates(ctx, RelationGroupResource, resourceID)
}

// UnshareResourceCommunities returns exactly the communities whose
// privilege on the resource the actor in context may legally revoke.
func (s *Service) UnshareResourceCommunities(ctx context.Context, resourceID string) ([]string, error) {
	return s.unshareCandidates(ctx, RelationCommunityResource, resourceID)
}

// UndoShareResourceUsers returns exactly the users whose most recent grant
// on the resource the actor in context may legally undo.
func (s *Service) UndoShareResourceUsers(ctx context.Context, resourceID string) ([]string, error) {
	return s.undoCandidates(ctx, RelationUserResource, resourceID)
}

// UndoShareResourceGroups returns exactly the groups whose most recent
// grant on the resource the actor in context may legally undo.
func (s *Service) UndoShareResourceGroups(ctx context.Context, resourceID string) ([]string, error) {
	return s.undoCandidates(ctx, RelationGroupResource, resourceID)
}

// unshareCandidates filters the actors holding a record on the target
// through the pairwise unshare predicate, so list and predicate can never
// disagree.
func (s *Service) unshareCandidates(ctx context.Context, rel Relation, targetID string) ([]string, error) {
	grantorID := GetActorID(ctx)
	actors, err := s.store.ActorsWithPrivilege(ctx, rel, targetID, PrivilegeView)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, actorID := range actors {
		if s.checkUnshare(ctx, s.store, rel, actorID, targetID, grantorID) == nil {
			out = append(out, actorID)
		}
	}
	return out, nil
}

// undoCandidates filters the store's undo set through the pairwise undo
// predicate.
func (s *Service) undoCandidates(ctx context.Context, rel Relation, targetID string) ([]string, error) {
	grantorID := GetActorID(ctx)
	actors, err := s.store.UndoActors(ctx, rel, targetID, grantorID)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, actorID := range actors {
		if s.checkUndo(ctx, s.store, rel, actorID, targetID, grantorID) == nil {
			out = append(out, actorID)
		}
	}
	return out, nil
}
