package grantkit

import "context"

// Checker is a convenience wrapper binding a service to one user, so
// request handlers can ask questions without threading the user ID through
// every call. Middleware stores one in the request context; retrieve it
// with FromContext.
type Checker struct {
	userID  string
	service *Service
}

// NewChecker creates a Checker for the given user.
func NewChecker(service *Service, userID string) *Checker {
	return &Checker{
		userID:  userID,
		service: service,
	}
}

// UserID returns the user this checker is bound to.
func (c *Checker) UserID() string {
	return c.userID
}

// OwnsResource reports whether the bound user owns the resource.
func (c *Checker) OwnsResource(ctx context.Context, resourceID string) (bool, error) {
	return c.service.OwnsResource(ctx, c.userID, resourceID)
}

// CanViewResource reports whether the bound user may read the resource.
func (c *Checker) CanViewResource(ctx context.Context, resourceID string) (bool, error) {
	return c.service.CanViewResource(ctx, c.userID, resourceID)
}

// CanChangeResource reports whether the bound user may modify the resource.
func (c *Checker) CanChangeResource(ctx context.Context, resourceID string) (bool, error) {
	return c.service.CanChangeResource(ctx, c.userID, resourceID)
}

// ResourcePrivilege returns the bound user's effective privilege on the
// resource.
func (c *Checker) ResourcePrivilege(ctx context.Context, resourceID string) (Privilege, error) {
	return c.service.EffectiveResourcePrivilege(ctx, c.userID, resourceID)
}

// OwnsGroup reports whether the bound user owns the group.
func (c *Checker) OwnsGroup(ctx context.Context, groupID string) (bool, error) {
	return c.service.OwnsGroup(ctx, c.userID, groupID)
}

// CanViewGroup reports whether the bound user may see the group.
func (c *Checker) CanViewGroup(ctx context.Context, groupID string) (bool, error) {
	return c.service.CanViewGroup(ctx, c.userID, groupID)
}

// CanChangeGroup reports whether the bound user may manage the group's
// membership.
func (c *Checker) CanChangeGroup(ctx context.Context, groupID string) (bool, error) {
	return c.service.CanChangeGroup(ctx, c.userID, groupID)
}

// GroupPrivilege returns the bound user's effective privilege on the group.
func (c *Checker) GroupPrivilege(ctx context.Context, groupID string) (Privilege, error) {
	return c.service.EffectiveGroupPrivilege(ctx, c.userID, groupID)
}

// CommunityPrivilege returns the bound user's effective privilege on the
// community.
func (c *Checker) CommunityPrivilege(ctx context.Context, communityID string) (Privilege, error) {
	return c.service.EffectiveCommunityPrivilege(ctx, c.userID, communityID)
}
