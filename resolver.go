package grantkit

import (
	"context"
	"time"
)

// The effective privilege resolver. Resolution collects a candidate from
// every path that reaches the target, takes the weakest leg within each path
// and the strongest candidate across paths, then applies the squashing
// rules. Paths through inactive users, groups or communities contribute
// nothing; resolution degrades gracefully instead of failing.

// EffectiveResourcePrivilege computes the privilege actually in force for a
// user on a resource, aggregating the direct grant, group-mediated paths and
// community-mediated paths. If the resource is immutable a resolved CHANGE
// is downgraded to VIEW; OWNER is never squashed, owners keep control over
// an immutable resource's flags and sharing.
func (s *Service) EffectiveResourcePrivilege(ctx context.Context, userID, resourceID string) (Privilege, error) {
	start := time.Now()
	defer func() { s.metrics.observeResolve(time.Since(start)) }()
	return s.effectiveResourcePrivilege(ctx, s.store, userID, resourceID)
}

// EffectiveGroupPrivilege computes the privilege actually in force for a
// user on a group, aggregating the direct membership grant and
// community-mediated paths.
func (s *Service) EffectiveGroupPrivilege(ctx context.Context, userID, groupID string) (Privilege, error) {
	start := time.Now()
	defer func() { s.metrics.observeResolve(time.Since(start)) }()
	return s.effectiveGroupPrivilege(ctx, s.store, userID, groupID)
}

// EffectiveCommunityPrivilege computes the privilege actually in force for a
// user on a community, aggregating the direct grant and paths through the
// user's groups.
func (s *Service) EffectiveCommunityPrivilege(ctx context.Context, userID, communityID string) (Privilege, error) {
	start := time.Now()
	defer func() { s.metrics.observeResolve(time.Since(start)) }()
	return s.effectiveCommunityPrivilege(ctx, s.store, userID, communityID)
}

func (s *Service) effectiveResourcePrivilege(ctx context.Context, st Store, userID, resourceID string) (Privilege, error) {
	if !s.userActive(userID) {
		return PrivilegeNone, nil
	}
	resource, ok := s.entities.Resource(resourceID)
	if !ok {
		return PrivilegeNone, nil
	}

	best, err := st.Privilege(ctx, RelationUserResource, userID, resourceID)
	if err != nil {
		return PrivilegeNone, err
	}

	groups, err := s.activeGroupsOf(ctx, st, userID)
	if err != nil {
		return PrivilegeNone, err
	}
	for groupID, userGroup := range groups {
		groupResource, err := st.Privilege(ctx, RelationGroupResource, groupID, resourceID)
		if err != nil {
			return PrivilegeNone, err
		}
		if groupResource != PrivilegeNone {
			best = StrongestOf(best, WeakestOf(userGroup, groupResource))
		}
	}

	communities, err := s.activeCommunitiesOf(ctx, st, userID)
	if err != nil {
		return PrivilegeNone, err
	}
	for communityID, userCommunity := range communities {
		communityResource, err := st.Privilege(ctx, RelationCommunityResource, communityID, resourceID)
		if err != nil {
			return PrivilegeNone, err
		}
		if communityResource != PrivilegeNone {
			best = StrongestOf(best, WeakestOf(userCommunity, communityResource))
		}
	}

	// Three-hop paths: user -> group -> community -> resource.
	for groupID, userGroup := range groups {
		groupCommunities, err := st.TargetsWithPrivilege(ctx, RelationGroupCommunity, groupID, PrivilegeView)
		if err != nil {
			return PrivilegeNone, err
		}
		for _, communityID := range groupCommunities {
			if !s.communityActive(communityID) {
				continue
			}
			groupCommunity, err := st.Privilege(ctx, RelationGroupCommunity, groupID, communityID)
			if err != nil {
				return PrivilegeNone, err
			}
			communityResource, err := st.Privilege(ctx, RelationCommunityResource, communityID, resourceID)
			if err != nil {
				return PrivilegeNone, err
			}
			if communityResource != PrivilegeNone {
				best = StrongestOf(best, WeakestOf(userGroup, groupCommunity, communityResource))
			}
		}
	}

	if resource.Immutable && best == PrivilegeChange {
		best = PrivilegeView
	}
	return best, nil
}

func (s *Service) effectiveGroupPrivilege(ctx context.Context, st Store, userID, groupID string) (Privilege, error) {
	if !s.userActive(userID) {
		return PrivilegeNone, nil
	}
	group, ok := s.entities.Group(groupID)
	if !ok {
		return PrivilegeNone, nil
	}

	best, err := st.Privilege(ctx, RelationUserGroup, userID, groupID)
	if err != nil {
		return PrivilegeNone, err
	}

	// An inactive group keeps its direct grants visible to their holders
	// (owners still need to manage it) but mediated paths contribute
	// nothing.
	if !group.Active {
		return best, nil
	}

	communities, err := s.activeCommunitiesOf(ctx, st, userID)
	if err != nil {
		return PrivilegeNone, err
	}
	for communityID, userCommunity := range communities {
		groupCommunity, err := st.Privilege(ctx, RelationGroupCommunity, groupID, communityID)
		if err != nil {
			return PrivilegeNone, err
		}
		if groupCommunity != PrivilegeNone {
			best = StrongestOf(best, WeakestOf(userCommunity, groupCommunity))
		}
	}
	return best, nil
}

func (s *Service) effectiveCommunityPrivilege(ctx context.Context, st Store, userID, communityID string) (Privilege, error) {
	if !s.userActive(userID) {
		return PrivilegeNone, nil
	}
	community, ok := s.entities.Community(communityID)
	if !ok {
		return PrivilegeNone, nil
	}

	best, err := st.Privilege(ctx, RelationUserCommunity, userID, communityID)
	if err != nil {
		return PrivilegeNone, err
	}
	if !community.Active {
		return best, nil
	}

	groups, err := s.activeGroupsOf(ctx, st, userID)
	if err != nil {
		return PrivilegeNone, err
	}
	for groupID, userGroup := range groups {
		groupCommunity, err := st.Privilege(ctx, RelationGroupCommunity, groupID, communityID)
		if err != nil {
			return PrivilegeNone, err
		}
		if groupCommunity != PrivilegeNone {
			best = StrongestOf(best, WeakestOf(userGroup, groupCommunity))
		}
	}
	return best, nil
}

// activeGroupsOf returns the active groups a user belongs to, mapped to the
// user's privilege within each.
func (s *Service) activeGroupsOf(ctx context.Context, st Store, userID string) (map[string]Privilege, error) {
	groupIDs, err := st.TargetsWithPrivilege(ctx, RelationUserGroup, userID, PrivilegeView)
	if err != nil {
		return nil, err
	}
	groups := make(map[string]Privilege, len(groupIDs))
	for _, groupID := range groupIDs {
		flags, ok := s.entities.Group(groupID)
		if !ok || !flags.Active {
			continue
		}
		p, err := st.Privilege(ctx, RelationUserGroup, userID, groupID)
		if err != nil {
			return nil, err
		}
		groups[groupID] = p
	}
	return groups, nil
}

// activeCommunitiesOf returns the active communities a user belongs to,
// mapped to the user's privilege within each.
func (s *Service) activeCommunitiesOf(ctx context.Context, st Store, userID string) (map[string]Privilege, error) {
	communityIDs, err := st.TargetsWithPrivilege(ctx, RelationUserCommunity, userID, PrivilegeView)
	if err != nil {
		return nil, err
	}
	communities := make(map[string]Privilege, len(communityIDs))
	for _, communityID := range communityIDs {
		if !s.communityActive(communityID) {
			continue
		}
		p, err := st.Privilege(ctx, RelationUserCommunity, userID, communityID)
		if err != nil {
			return nil, err
		}
		communities[communityID] = p
	}
	return communities, nil
}

func (s *Service) communityActive(communityID string) bool {
	flags, ok := s.entities.Community(communityID)
	return ok && flags.Active
}
