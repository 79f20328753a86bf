package grantkit

import "context"

// ============================================================================
// GROUP SHARING
// ============================================================================

// CanShareGroupWithUser reports whether the actor in context may grant the
// user the given privilege in the group.
func (s *Service) CanShareGroupWithUser(ctx context.Context, groupID, userID string, p Privilege) bool {
	return s.checkShare(ctx, s.store, RelationUserGroup, userID, groupID, p, GetActorID(ctx)) == nil
}

// ShareGroupWithUser grants the user the given privilege in the group.
// VIEW makes the user a member; CHANGE lets them manage membership at their
// level; OWNER makes them a group owner.
func (s *Service) ShareGroupWithUser(ctx context.Context, groupID, userID string, p Privilege) error {
	return s.share(ctx, "share_group_with_user", RelationUserGroup, userID, groupID, p)
}

// CanUnshareGroupWithUser reports whether the actor in context may revoke
// the user's privilege in the group.
func (s *Service) CanUnshareGroupWithUser(ctx context.Context, groupID, userID string) bool {
	return s.checkUnshare(ctx, s.store, RelationUserGroup, userID, groupID, GetActorID(ctx)) == nil
}

// UnshareGroupWithUser revokes the user's privilege in the group.
func (s *Service) UnshareGroupWithUser(ctx context.Context, groupID, userID string) error {
	return s.unshare(ctx, "unshare_group_with_user", RelationUserGroup, userID, groupID)
}

// CanUndoShareGroupWithUser reports whether the actor in context may undo
// the most recent grant to the user in the group.
func (s *Service) CanUndoShareGroupWithUser(ctx context.Context, groupID, userID string) bool {
	return s.checkUndo(ctx, s.store, RelationUserGroup, userID, groupID, GetActorID(ctx)) == nil
}

// UndoShareGroupWithUser reverts the most recent grant to the user in the
// group.
func (s *Service) UndoShareGroupWithUser(ctx context.Context, groupID, userID string) error {
	return s.undoShare(ctx, "undo_share_group_with_user", RelationUserGroup, userID, groupID)
}

// UnshareGroupUsers returns exactly the users whose privilege in the group
// the actor in context may legally revoke.
func (s *Service) UnshareGroupUsers(ctx context.Context, groupID string) ([]string, error) {
	return s.unshareCandidates(ctx, RelationUserGroup, groupID)
}

// UndoShareGroupUsers returns exactly the users whose most recent grant in
// the group the actor in context may legally undo.
func (s *Service) UndoShareGroupUsers(ctx context.Context, groupID string) ([]string, error) {
	return s.undoCandidates(ctx, RelationUserGroup, groupID)
}

// GroupMembers returns the users holding any privilege in the group,
// sorted.
func (s *Service) GroupMembers(ctx context.Context, groupID string) ([]string, error) {
	return s.store.ActorsWithPrivilege(ctx, RelationUserGroup, groupID, PrivilegeView)
}

// GroupOwners returns the owning set of the group.
func (s *Service) GroupOwners(ctx context.Context, groupID string) ([]string, error) {
	return s.store.ActorsWithPrivilege(ctx, RelationUserGroup, groupID, PrivilegeOwner)
}
