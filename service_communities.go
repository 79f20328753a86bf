package grantkit

import "context"

// ============================================================================
// COMMUNITY SHARING
// ============================================================================

// CanShareCommunityWithUser reports whether the actor in context may grant
// the user the given privilege in the community.
func (s *Service) CanShareCommunityWithUser(ctx context.Context, communityID, userID string, p Privilege) bool {
	return s.checkShare(ctx, s.store, RelationUserCommunity, userID, communityID, p, GetActorID(ctx)) == nil
}

// ShareCommunityWithUser grants the user the given privilege in the
// community.
func (s *Service) ShareCommunityWithUser(ctx context.Context, communityID, userID string, p Privilege) error {
	return s.share(ctx, "share_community_with_user", RelationUserCommunity, userID, communityID, p)
}

// CanShareCommunityWithGroup reports whether the actor in context may grant
// the group the given privilege in the community. OWNER is rejected
// unconditionally: groups cannot own communities.
func (s *Service) CanShareCommunityWithGroup(ctx context.Context, communityID, groupID string, p Privilege) bool {
	return s.checkShare(ctx, s.store, RelationGroupCommunity, groupID, communityID, p, GetActorID(ctx)) == nil
}

// ShareCommunityWithGroup grants the group the given privilege in the
// community, making it a member group. Most callers reach this through the
// membership workflow instead of calling it directly.
func (s *Service) ShareCommunityWithGroup(ctx context.Context, communityID, groupID string, p Privilege) error {
	return s.share(ctx, "share_community_with_group", RelationGroupCommunity, groupID, communityID, p)
}

// CanUnshareCommunityWithUser reports whether the actor in context may
// revoke the user's privilege in the community.
func (s *Service) CanUnshareCommunityWithUser(ctx context.Context, communityID, userID string) bool {
	return s.checkUnshare(ctx, s.store, RelationUserCommunity, userID, communityID, GetActorID(ctx)) == nil
}

// UnshareCommunityWithUser revokes the user's privilege in the community.
func (s *Service) UnshareCommunityWithUser(ctx context.Context, communityID, userID string) error {
	return s.unshare(ctx, "unshare_community_with_user", RelationUserCommunity, userID, communityID)
}

// CanUnshareCommunityWithGroup reports whether the actor in context may
// remove the group from the community.
func (s *Service) CanUnshareCommunityWithGroup(ctx context.Context, communityID, groupID string) bool {
	return s.checkUnshare(ctx, s.store, RelationGroupCommunity, groupID, communityID, GetActorID(ctx)) == nil
}

// UnshareCommunityWithGroup removes the group from the community. Both a
// community owner and an owner of the member group may do this.
func (s *Service) UnshareCommunityWithGroup(ctx context.Context, communityID, groupID string) error {
	return s.unshare(ctx, "unshare_community_with_group", RelationGroupCommunity, groupID, communityID)
}

// CanUndoShareCommunityWithUser reports whether the actor in context may
// undo the most recent grant to the user in the community.
func (s *Service) CanUndoShareCommunityWithUser(ctx context.Context, communityID, userID string) bool {
	return s.checkUndo(ctx, s.store, RelationUserCommunity, userID, communityID, GetActorID(ctx)) == nil
}

// UndoShareCommunityWithUser reverts the most recent grant to the user in
// the community.
func (s *Service) UndoShareCommunityWithUser(ctx context.Context, communityID, userID string) error {
	return s.undoShare(ctx, "undo_share_community_with_user", RelationUserCommunity, userID, communityID)
}

// CanUndoShareCommunityWithGroup reports whether the actor in context may
// undo the most recent grant to the group in the community.
func (s *Service) CanUndoShareCommunityWithGroup(ctx context.Context, communityID, groupID string) bool {
	return s.checkUndo(ctx, s.store, RelationGroupCommunity, groupID, communityID, GetActorID(ctx)) == nil
}

// UndoShareCommunityWithGroup reverts the most recent grant to the group in
// the community.
func (s *Service) UndoShareCommunityWithGroup(ctx context.Context, communityID, groupID string) error {
	return s.undoShare(ctx, "undo_share_community_with_group", RelationGroupCommunity, groupID, communityID)
}

// UnshareCommunityUsers returns exactly the users whose privilege in the
// community the actor in context may legally revoke.
func (s *Service) UnshareCommunityUsers(ctx context.Context, communityID string) ([]string, error) {
	return s.unshareCandidates(ctx, RelationUserCommunity, communityID)
}

// UnshareCommunityGroups returns exactly the groups the actor in context
// may legally remove from the community.
func (s *Service) UnshareCommunityGroups(ctx context.Context, communityID string) ([]string, error) {
	return s.unshareCandidates(ctx, RelationGroupCommunity, communityID)
}

// CommunityMembers returns the users holding any privilege in the
// community, sorted.
func (s *Service) CommunityMembers(ctx context.Context, communityID string) ([]string, error) {
	return s.store.ActorsWithPrivilege(ctx, RelationUserCommunity, communityID, PrivilegeView)
}

// CommunityGroups returns the member groups of the community, sorted.
func (s *Service) CommunityGroups(ctx context.Context, communityID string) ([]string, error) {
	return s.store.ActorsWithPrivilege(ctx, RelationGroupCommunity, communityID, PrivilegeView)
}

// CommunityResources returns the resources shared with the community,
// sorted.
func (s *Service) CommunityResources(ctx context.Context, communityID string) ([]string, error) {
	return s.store.TargetsWithPrivilege(ctx, RelationCommunityResource, communityID, PrivilegeView)
}

// CommunityOwners returns the owning set of the community.
func (s *Service) CommunityOwners(ctx context.Context, communityID string) ([]string, error) {
	return s.store.ActorsWithPrivilege(ctx, RelationUserCommunity, communityID, PrivilegeOwner)
}
