package grantkit

import (
	"context"
	"time"
)

// The community membership workflow: a two-party state machine layered on
// top of Group-Community grants. An invite originates with a community
// owner, a request with a group owner. Either side acting on the other's
// pending instance, or creating the matching counterpart, completes the
// handshake and grants the group VIEW in the community.

// membershipPrivilege is what a completed handshake grants the group.
const membershipPrivilege = PrivilegeView

// InviteGroupToCommunity creates or returns a pending invite for the group
// to join the community. The actor in context must own the community.
//
// If the group's owners already filed a matching membership request, both
// sides resolve as approved immediately and the group becomes a member.
func (s *Service) InviteGroupToCommunity(ctx context.Context, communityID, groupID string) (*MembershipRequest, error) {
	return s.createMembership(ctx, communityID, groupID, DirectionInvite)
}

// RequestCommunityMembership creates or returns a pending request for the
// group to join the community. The actor in context must own the group.
//
// If a community owner already filed a matching invite, both sides resolve
// as approved immediately and the group becomes a member.
func (s *Service) RequestCommunityMembership(ctx context.Context, communityID, groupID string) (*MembershipRequest, error) {
	return s.createMembership(ctx, communityID, groupID, DirectionRequest)
}

func (s *Service) createMembership(ctx context.Context, communityID, groupID string, direction MembershipDirection) (*MembershipRequest, error) {
	actorID := GetActorID(ctx)
	if actorID == "" {
		return nil, NewError(ErrNoActorID, "membership workflow requires an actor in context")
	}
	if !s.userActive(actorID) {
		return nil, denied("actor is not an active user").WithGrantor(actorID)
	}
	if flags, ok := s.entities.Community(communityID); !ok || !flags.Active {
		return nil, denied("community is unknown or not active").WithTarget(communityID)
	}
	if flags, ok := s.entities.Group(groupID); !ok || !flags.Active {
		return nil, denied("group is unknown or not active").WithActor(groupID)
	}

	var result *MembershipRequest
	err := s.store.Atomic(ctx, func(ctx context.Context, tx Store) error {
		// The creating party must own its own side of the handshake.
		ownedKind, ownedID := KindCommunity, communityID
		if direction == DirectionRequest {
			ownedKind, ownedID = KindGroup, groupID
		}
		held, err := s.effectiveFor(ctx, tx, ownedKind, actorID, ownedID)
		if err != nil {
			return err
		}
		if held != PrivilegeOwner {
			return denied("only an owner of the " + entityName(ownedKind) + " may start the membership workflow").
				WithGrantor(actorID).WithTarget(ownedID)
		}

		member, err := tx.Privilege(ctx, RelationGroupCommunity, groupID, communityID)
		if err != nil {
			return err
		}
		if member != PrivilegeNone {
			return denied("group is already a member of the community").
				WithActor(groupID).WithTarget(communityID)
		}

		pending, err := tx.PendingMembershipRequests(ctx, communityID, groupID)
		if err != nil {
			return err
		}
		var counterpart *MembershipRequest
		for i := range pending {
			if pending[i].Direction == direction {
				// Same side already pending: hand the existing one back.
				result = &pending[i]
				return nil
			}
			counterpart = &pending[i]
		}

		now := time.Now()
		created := &MembershipRequest{
			ID:          newRequestID(),
			CommunityID: communityID,
			GroupID:     groupID,
			Direction:   direction,
			CreatedByID: actorID,
			CreatedAt:   now,
		}

		if counterpart == nil {
			if err := tx.PutMembershipRequest(ctx, created); err != nil {
				return err
			}
			result = created
			return nil
		}

		// Mutual resolution: a matching counterpart is pending, so both
		// sides redeem as approved without an explicit act. The grant is
		// guarded before either side redeems, so a failure leaves the
		// counterpart pending and the handshake retryable.
		// The community-owner party is the grantor of record.
		grantorID := actorID
		if direction == DirectionRequest {
			grantorID = counterpart.CreatedByID
		}
		if err := s.checkShare(ctx, tx, RelationGroupCommunity, groupID, communityID, membershipPrivilege, grantorID); err != nil {
			return err
		}

		counterpart.Redeemed = true
		counterpart.Approved = true
		counterpart.ActedByID = actorID
		counterpart.ActedAt = now
		if err := tx.PutMembershipRequest(ctx, counterpart); err != nil {
			return err
		}
		created.Redeemed = true
		created.Approved = true
		created.ActedByID = actorID
		created.ActedAt = now
		if err := tx.PutMembershipRequest(ctx, created); err != nil {
			return err
		}
		if err := tx.SetPrivilege(ctx, RelationGroupCommunity, groupID, communityID, membershipPrivilege, grantorID); err != nil {
			return err
		}
		result = created
		return nil
	})
	if err != nil {
		if IsPermissionDenied(err) {
			s.metrics.recordDenial("membership_" + string(direction))
		}
		return nil, err
	}
	if result.Redeemed && result.Approved {
		s.metrics.recordGrant(RelationGroupCommunity, membershipPrivilege)
	}
	return result, nil
}

// ActOnMembershipRequest approves or declines a pending invite or request.
// Invites are acted on by an owner of the target group, requests by an
// owner of the target community. Either way the request redeems
// permanently; approval additionally grants the group VIEW in the
// community, with the community-owner party as grantor of record.
func (s *Service) ActOnMembershipRequest(ctx context.Context, requestID string, approved bool) (*MembershipRequest, error) {
	actorID := GetActorID(ctx)
	if actorID == "" {
		return nil, NewError(ErrNoActorID, "membership workflow requires an actor in context")
	}
	if !s.userActive(actorID) {
		return nil, denied("actor is not an active user").WithGrantor(actorID)
	}

	var result *MembershipRequest
	err := s.store.Atomic(ctx, func(ctx context.Context, tx Store) error {
		req, err := tx.GetMembershipRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if !req.Pending() {
			return denied("membership request has already been redeemed").WithTarget(requestID)
		}

		// The receiving party decides.
		decidingKind, decidingID := KindGroup, req.GroupID
		if req.Direction == DirectionRequest {
			decidingKind, decidingID = KindCommunity, req.CommunityID
		}
		held, err := s.effectiveFor(ctx, tx, decidingKind, actorID, decidingID)
		if err != nil {
			return err
		}
		if held != PrivilegeOwner {
			return denied("only an owner of the " + entityName(decidingKind) + " may act on this request").
				WithGrantor(actorID).WithTarget(decidingID)
		}

		// Guard the grant before redeeming, so a failure leaves the
		// request pending and retryable.
		var grantorID string
		if approved {
			grantorID = req.CreatedByID // invite: the inviting community owner
			if req.Direction == DirectionRequest {
				grantorID = actorID // request: the approving community owner
			}
			if err := s.checkShare(ctx, tx, RelationGroupCommunity, req.GroupID, req.CommunityID, membershipPrivilege, grantorID); err != nil {
				return err
			}
		}

		req.Redeemed = true
		req.Approved = approved
		req.ActedByID = actorID
		req.ActedAt = time.Now()
		if err := tx.PutMembershipRequest(ctx, req); err != nil {
			return err
		}
		if approved {
			if err := tx.SetPrivilege(ctx, RelationGroupCommunity, req.GroupID, req.CommunityID, membershipPrivilege, grantorID); err != nil {
				return err
			}
		}
		result = req
		return nil
	})
	if err != nil {
		if IsPermissionDenied(err) {
			s.metrics.recordDenial("membership_act")
		}
		return nil, err
	}
	if approved {
		s.metrics.recordGrant(RelationGroupCommunity, membershipPrivilege)
	}
	return result, nil
}

// RetractMembershipRequest deletes a still-pending invite or request
// outright, leaving no trace. Only the creator or another owner of the
// originating side may retract.
func (s *Service) RetractMembershipRequest(ctx context.Context, requestID string) error {
	actorID := GetActorID(ctx)
	if actorID == "" {
		return NewError(ErrNoActorID, "membership workflow requires an actor in context")
	}
	if !s.userActive(actorID) {
		return denied("actor is not an active user").WithGrantor(actorID)
	}

	return s.store.Atomic(ctx, func(ctx context.Context, tx Store) error {
		req, err := tx.GetMembershipRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if !req.Pending() {
			return denied("only a pending membership request can be retracted").WithTarget(requestID)
		}

		if actorID != req.CreatedByID {
			originKind, originID := KindCommunity, req.CommunityID
			if req.Direction == DirectionRequest {
				originKind, originID = KindGroup, req.GroupID
			}
			held, err := s.effectiveFor(ctx, tx, originKind, actorID, originID)
			if err != nil {
				return err
			}
			if held != PrivilegeOwner {
				return denied("only the creator or an owner of the " + entityName(originKind) + " may retract").
					WithGrantor(actorID).WithTarget(requestID)
			}
		}
		return tx.DeleteMembershipRequest(ctx, requestID)
	})
}

// ActiveMembershipRequests lists the pending invites and requests for a
// community. An empty communityID lists all pending requests.
func (s *Service) ActiveMembershipRequests(ctx context.Context, communityID string) ([]MembershipRequest, error) {
	filter := NewMembershipFilter().Pending()
	if communityID != "" {
		filter = filter.WithCommunity(communityID)
	}
	return s.store.ListMembershipRequests(ctx, filter)
}
