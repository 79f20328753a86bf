package grantkit

import (
	"context"
	"sort"
)

// ============================================================================
// USER-CENTRIC QUERIES
// ============================================================================

// OwnsResource reports whether the user's effective privilege on the
// resource is OWNER.
func (s *Service) OwnsResource(ctx context.Context, userID, resourceID string) (bool, error) {
	p, err := s.EffectiveResourcePrivilege(ctx, userID, resourceID)
	if err != nil {
		return false, err
	}
	return p == PrivilegeOwner, nil
}

// OwnsGroup reports whether the user's effective privilege on the group is
// OWNER.
func (s *Service) OwnsGroup(ctx context.Context, userID, groupID string) (bool, error) {
	p, err := s.EffectiveGroupPrivilege(ctx, userID, groupID)
	if err != nil {
		return false, err
	}
	return p == PrivilegeOwner, nil
}

// OwnsCommunity reports whether the user's effective privilege on the
// community is OWNER.
func (s *Service) OwnsCommunity(ctx context.Context, userID, communityID string) (bool, error) {
	p, err := s.EffectiveCommunityPrivilege(ctx, userID, communityID)
	if err != nil {
		return false, err
	}
	return p == PrivilegeOwner, nil
}

// CanViewResource reports whether the user may read the resource. A public
// resource is viewable by every active user regardless of grants; otherwise
// the effective privilege must reach VIEW.
func (s *Service) CanViewResource(ctx context.Context, userID, resourceID string) (bool, error) {
	if !s.userActive(userID) {
		return false, nil
	}
	flags, ok := s.entities.Resource(resourceID)
	if !ok {
		return false, nil
	}
	if flags.Public {
		return true, nil
	}
	p, err := s.EffectiveResourcePrivilege(ctx, userID, resourceID)
	if err != nil {
		return false, err
	}
	return p.AtLeast(PrivilegeView), nil
}

// CanChangeResource reports whether the user may modify the resource.
// Immutability is already folded into the effective privilege, so a CHANGE
// holder on an immutable resource gets false here while its owners keep
// control.
func (s *Service) CanChangeResource(ctx context.Context, userID, resourceID string) (bool, error) {
	p, err := s.EffectiveResourcePrivilege(ctx, userID, resourceID)
	if err != nil {
		return false, err
	}
	return p.AtLeast(PrivilegeChange), nil
}

// CanViewGroup reports whether the user may see the group and its
// membership. Public groups are visible to every active user.
func (s *Service) CanViewGroup(ctx context.Context, userID, groupID string) (bool, error) {
	if !s.userActive(userID) {
		return false, nil
	}
	flags, ok := s.entities.Group(groupID)
	if !ok {
		return false, nil
	}
	if flags.Public {
		return true, nil
	}
	p, err := s.EffectiveGroupPrivilege(ctx, userID, groupID)
	if err != nil {
		return false, err
	}
	return p.AtLeast(PrivilegeView), nil
}

// CanChangeGroup reports whether the user may manage the group's
// membership.
func (s *Service) CanChangeGroup(ctx context.Context, userID, groupID string) (bool, error) {
	p, err := s.EffectiveGroupPrivilege(ctx, userID, groupID)
	if err != nil {
		return false, err
	}
	return p.AtLeast(PrivilegeChange), nil
}

// ViewResources returns the resources on which the user's effective
// privilege reaches VIEW, through any path, sorted. Public resources with
// no grant do not appear; this is the granted set, not the visible set.
func (s *Service) ViewResources(ctx context.Context, userID string) ([]string, error) {
	return s.resourcesAtLeast(ctx, userID, PrivilegeView)
}

// EditResources returns the resources on which the user's effective
// privilege reaches CHANGE, sorted.
func (s *Service) EditResources(ctx context.Context, userID string) ([]string, error) {
	return s.resourcesAtLeast(ctx, userID, PrivilegeChange)
}

// OwnedResources returns the resources the user owns, sorted. Ownership
// only ever arrives through the direct relation, so no mediated paths need
// walking.
func (s *Service) OwnedResources(ctx context.Context, userID string) ([]string, error) {
	if !s.userActive(userID) {
		return nil, nil
	}
	return s.store.TargetsWithPrivilege(ctx, RelationUserResource, userID, PrivilegeOwner)
}

// ViewGroups returns the groups on which the user's effective privilege
// reaches VIEW, sorted.
func (s *Service) ViewGroups(ctx context.Context, userID string) ([]string, error) {
	return s.groupsAtLeast(ctx, userID, PrivilegeView)
}

// EditGroups returns the groups on which the user's effective privilege
// reaches CHANGE, sorted.
func (s *Service) EditGroups(ctx context.Context, userID string) ([]string, error) {
	return s.groupsAtLeast(ctx, userID, PrivilegeChange)
}

// OwnedGroups returns the groups the user owns, sorted.
func (s *Service) OwnedGroups(ctx context.Context, userID string) ([]string, error) {
	if !s.userActive(userID) {
		return nil, nil
	}
	return s.store.TargetsWithPrivilege(ctx, RelationUserGroup, userID, PrivilegeOwner)
}

// OwnedCommunities returns the communities the user owns, sorted.
func (s *Service) OwnedCommunities(ctx context.Context, userID string) ([]string, error) {
	if !s.userActive(userID) {
		return nil, nil
	}
	return s.store.TargetsWithPrivilege(ctx, RelationUserCommunity, userID, PrivilegeOwner)
}

// ResourcesWithExplicitAccess returns the resources on which a record at
// exactly p exists over the selected channels: the user's direct grants,
// grants to the user's groups, grants to the user's communities. Mediated
// channels match the granted level on the far leg exactly; the user's own
// membership level does not weaken the match. Results are sorted and
// deduplicated.
func (s *Service) ResourcesWithExplicitAccess(ctx context.Context, userID string, p Privilege, viaUser, viaGroup, viaCommunity bool) ([]string, error) {
	if !p.Valid() || p == PrivilegeNone {
		return nil, NewError(ErrInvalidPrivilege, p.String())
	}
	if !s.userActive(userID) {
		return nil, nil
	}

	seen := make(map[string]struct{})

	if viaUser {
		targets, err := s.store.TargetsWithPrivilege(ctx, RelationUserResource, userID, p)
		if err != nil {
			return nil, err
		}
		for _, resourceID := range targets {
			exact, err := s.store.Privilege(ctx, RelationUserResource, userID, resourceID)
			if err != nil {
				return nil, err
			}
			if exact == p {
				seen[resourceID] = struct{}{}
			}
		}
	}

	if viaGroup {
		groups, err := s.activeGroupsOf(ctx, s.store, userID)
		if err != nil {
			return nil, err
		}
		for groupID := range groups {
			targets, err := s.store.TargetsWithPrivilege(ctx, RelationGroupResource, groupID, p)
			if err != nil {
				return nil, err
			}
			for _, resourceID := range targets {
				exact, err := s.store.Privilege(ctx, RelationGroupResource, groupID, resourceID)
				if err != nil {
					return nil, err
				}
				if exact == p {
					seen[resourceID] = struct{}{}
				}
			}
		}
	}

	if viaCommunity {
		communities, err := s.activeCommunitiesOf(ctx, s.store, userID)
		if err != nil {
			return nil, err
		}
		for communityID := range communities {
			targets, err := s.store.TargetsWithPrivilege(ctx, RelationCommunityResource, communityID, p)
			if err != nil {
				return nil, err
			}
			for _, resourceID := range targets {
				exact, err := s.store.Privilege(ctx, RelationCommunityResource, communityID, resourceID)
				if err != nil {
					return nil, err
				}
				if exact == p {
					seen[resourceID] = struct{}{}
				}
			}
		}
	}

	out := make([]string, 0, len(seen))
	for resourceID := range seen {
		out = append(out, resourceID)
	}
	sort.Strings(out)
	return out, nil
}

// resourcesAtLeast collects every resource reachable from the user through
// any channel and keeps those whose effective privilege meets the
// threshold. Candidate collection over-approximates; the resolver is the
// authority.
func (s *Service) resourcesAtLeast(ctx context.Context, userID string, threshold Privilege) ([]string, error) {
	if !s.userActive(userID) {
		return nil, nil
	}

	candidates := make(map[string]struct{})

	direct, err := s.store.TargetsWithPrivilege(ctx, RelationUserResource, userID, PrivilegeView)
	if err != nil {
		return nil, err
	}
	for _, id := range direct {
		candidates[id] = struct{}{}
	}

	groups, err := s.activeGroupsOf(ctx, s.store, userID)
	if err != nil {
		return nil, err
	}
	communities, err := s.activeCommunitiesOf(ctx, s.store, userID)
	if err != nil {
		return nil, err
	}
	for groupID := range groups {
		viaGroup, err := s.store.TargetsWithPrivilege(ctx, RelationGroupResource, groupID, PrivilegeView)
		if err != nil {
			return nil, err
		}
		for _, id := range viaGroup {
			candidates[id] = struct{}{}
		}
		groupCommunities, err := s.store.TargetsWithPrivilege(ctx, RelationGroupCommunity, groupID, PrivilegeView)
		if err != nil {
			return nil, err
		}
		for _, communityID := range groupCommunities {
			if !s.communityActive(communityID) {
				continue
			}
			if _, ok := communities[communityID]; ok {
				continue
			}
			viaCommunity, err := s.store.TargetsWithPrivilege(ctx, RelationCommunityResource, communityID, PrivilegeView)
			if err != nil {
				return nil, err
			}
			for _, id := range viaCommunity {
				candidates[id] = struct{}{}
			}
		}
	}
	for communityID := range communities {
		viaCommunity, err := s.store.TargetsWithPrivilege(ctx, RelationCommunityResource, communityID, PrivilegeView)
		if err != nil {
			return nil, err
		}
		for _, id := range viaCommunity {
			candidates[id] = struct{}{}
		}
	}

	var out []string
	for resourceID := range candidates {
		p, err := s.effectiveResourcePrivilege(ctx, s.store, userID, resourceID)
		if err != nil {
			return nil, err
		}
		if p.AtLeast(threshold) {
			out = append(out, resourceID)
		}
	}
	sort.Strings(out)
	return out, nil
}

// groupsAtLeast collects the groups reachable directly or through the
// user's communities and keeps those meeting the threshold.
func (s *Service) groupsAtLeast(ctx context.Context, userID string, threshold Privilege) ([]string, error) {
	if !s.userActive(userID) {
		return nil, nil
	}

	candidates := make(map[string]struct{})

	direct, err := s.store.TargetsWithPrivilege(ctx, RelationUserGroup, userID, PrivilegeView)
	if err != nil {
		return nil, err
	}
	for _, id := range direct {
		candidates[id] = struct{}{}
	}

	communities, err := s.activeCommunitiesOf(ctx, s.store, userID)
	if err != nil {
		return nil, err
	}
	for communityID := range communities {
		memberGroups, err := s.store.ActorsWithPrivilege(ctx, RelationGroupCommunity, communityID, PrivilegeView)
		if err != nil {
			return nil, err
		}
		for _, id := range memberGroups {
			candidates[id] = struct{}{}
		}
	}

	var out []string
	for groupID := range candidates {
		p, err := s.effectiveGroupPrivilege(ctx, s.store, userID, groupID)
		if err != nil {
			return nil, err
		}
		if p.AtLeast(threshold) {
			out = append(out, groupID)
		}
	}
	sort.Strings(out)
	return out, nil
}
