package grantkit

import "context"

// The guard layer. Every mutating entry point is a thin wrapper over
// checkShare/checkUnshare/checkUndo plus the matching store write, executed
// inside Store.Atomic so the check and the write cannot interleave with a
// concurrent mutation of the same pair.

// entityName returns the noun used in denial reasons for a target kind.
func entityName(kind EntityKind) string {
	return string(kind)
}

// ownershipDeniedReason names why OWNER cannot be granted over a relation.
func ownershipDeniedReason(rel Relation) string {
	switch rel {
	case RelationGroupResource:
		return "groups cannot own resources"
	case RelationGroupCommunity:
		return "groups cannot own communities"
	case RelationCommunityResource:
		return "communities cannot own resources"
	default:
		return "ownership cannot be granted over this relation"
	}
}

func (s *Service) userActive(id string) bool {
	flags, ok := s.entities.User(id)
	return ok && flags.Active
}

// actorAvailable verifies the privilege holder side of a relation: the
// entity must exist and, for users and groups, be active. Inactive actors
// fail every mutating call.
func (s *Service) actorAvailable(rel Relation, actorID string) error {
	switch rel.ActorKind() {
	case KindUser:
		flags, ok := s.entities.User(actorID)
		if !ok {
			return denied("unknown user").WithRelation(rel).WithActor(actorID)
		}
		if !flags.Active {
			return denied("user is not active").WithRelation(rel).WithActor(actorID)
		}
	case KindGroup:
		flags, ok := s.entities.Group(actorID)
		if !ok {
			return denied("unknown group").WithRelation(rel).WithActor(actorID)
		}
		if !flags.Active {
			return denied("group is not active").WithRelation(rel).WithActor(actorID)
		}
	case KindCommunity:
		flags, ok := s.entities.Community(actorID)
		if !ok {
			return denied("unknown community").WithRelation(rel).WithActor(actorID)
		}
		if !flags.Active {
			return denied("community is not active").WithRelation(rel).WithActor(actorID)
		}
	}
	return nil
}

// targetAvailable verifies the target side of a relation. Group and
// community targets must be active for grants; removal operations skip the
// activity requirement, mirroring the deletion carve-out.
func (s *Service) targetAvailable(rel Relation, targetID string, forGrant bool) error {
	switch rel.TargetKind() {
	case KindResource:
		if _, ok := s.entities.Resource(targetID); !ok {
			return denied("unknown resource").WithRelation(rel).WithTarget(targetID)
		}
	case KindGroup:
		flags, ok := s.entities.Group(targetID)
		if !ok {
			return denied("unknown group").WithRelation(rel).WithTarget(targetID)
		}
		if forGrant && !flags.Active {
			return denied("group is not active").WithRelation(rel).WithTarget(targetID)
		}
	case KindCommunity:
		flags, ok := s.entities.Community(targetID)
		if !ok {
			return denied("unknown community").WithRelation(rel).WithTarget(targetID)
		}
		if forGrant && !flags.Active {
			return denied("community is not active").WithRelation(rel).WithTarget(targetID)
		}
	}
	return nil
}

// targetShareable reports whether non-owners may share the target at all.
func (s *Service) targetShareable(rel Relation, targetID string) bool {
	switch rel.TargetKind() {
	case KindResource:
		flags, _ := s.entities.Resource(targetID)
		return flags.Shareable
	case KindGroup:
		flags, _ := s.entities.Group(targetID)
		return flags.Shareable
	default:
		// Communities carry no shareable flag; only owners share them,
		// which the caller has already established is not the case.
		return false
	}
}

// effectiveFor resolves a user's effective privilege on an entity of the
// given kind.
func (s *Service) effectiveFor(ctx context.Context, st Store, kind EntityKind, userID, id string) (Privilege, error) {
	switch kind {
	case KindResource:
		return s.effectiveResourcePrivilege(ctx, st, userID, id)
	case KindGroup:
		return s.effectiveGroupPrivilege(ctx, st, userID, id)
	case KindCommunity:
		return s.effectiveCommunityPrivilege(ctx, st, userID, id)
	default:
		return PrivilegeNone, NewError(ErrInvalidRelation, "users hold no privilege over "+string(kind))
	}
}

// ownersOf returns the owning set of a relation's target: the users holding
// OWNER over it. The owning set is always derived, never stored directly.
func (s *Service) ownersOf(ctx context.Context, st Store, rel Relation, targetID string) ([]string, error) {
	return st.ActorsWithPrivilege(ctx, ownerRelation(rel.TargetKind()), targetID, PrivilegeOwner)
}

// checkShare enforces every share-time rule for one relation. It is pure:
// no side effects, deterministic against the store snapshot it is given.
func (s *Service) checkShare(ctx context.Context, st Store, rel Relation, actorID, targetID string, p Privilege, grantorID string) error {
	if !rel.Valid() {
		return NewError(ErrInvalidRelation, string(rel))
	}
	if !p.Valid() || p == PrivilegeNone {
		return NewError(ErrInvalidPrivilege, "privilege NONE cannot be granted, use unshare").
			WithRelation(rel).WithPrivilege(p)
	}
	if p == PrivilegeOwner && !rel.OwnerAllowed() {
		return denied(ownershipDeniedReason(rel)).
			WithRelation(rel).WithActor(actorID).WithTarget(targetID)
	}
	if grantorID == "" {
		return NewError(ErrNoActorID, "sharing requires an actor in context")
	}
	if !s.userActive(grantorID) {
		return denied("grantor is not an active user").
			WithRelation(rel).WithGrantor(grantorID)
	}
	if err := s.actorAvailable(rel, actorID); err != nil {
		return err
	}
	if err := s.targetAvailable(rel, targetID, true); err != nil {
		return err
	}

	eff, err := s.effectiveFor(ctx, st, rel.TargetKind(), grantorID, targetID)
	if err != nil {
		return err
	}
	isOwner := eff == PrivilegeOwner

	current, err := st.Record(ctx, rel, actorID, targetID)
	if err != nil {
		return err
	}

	// Sole-owner protection binds owners too: nobody may downgrade the
	// last owner, including the last owner themselves.
	if current != nil && current.Privilege == PrivilegeOwner && p != PrivilegeOwner {
		owners, err := s.ownersOf(ctx, st, rel, targetID)
		if err != nil {
			return err
		}
		if len(owners) <= 1 {
			return denied("cannot remove sole owner of " + entityName(rel.TargetKind())).
				WithRelation(rel).WithActor(actorID).WithTarget(targetID)
		}
	}

	if isOwner {
		// Owners grant, raise, lower and re-issue freely; a repeated
		// identical grant is an idempotent no-op write.
		return nil
	}

	if grantorID == actorID {
		// Self-reduction of an existing record is always legal, even when
		// someone else was the grantor and even on a non-shareable target;
		// self-escalation never is.
		if current == nil || !current.Privilege.Stronger(p) {
			return denied("users cannot raise their own privilege").
				WithRelation(rel).WithActor(actorID).WithTarget(targetID).WithPrivilege(p)
		}
		return nil
	}

	if !s.targetShareable(rel, targetID) {
		return denied("this " + entityName(rel.TargetKind()) + " is not shareable by non-owners").
			WithRelation(rel).WithTarget(targetID).WithGrantor(grantorID)
	}
	if !eff.AtLeast(p) {
		return denied("insufficient privilege to share " + entityName(rel.TargetKind())).
			WithRelation(rel).WithTarget(targetID).WithGrantor(grantorID).WithPrivilege(p)
	}

	if current != nil {
		if current.Privilege == p {
			return denied("privilege is already granted, only owners may re-share at the same level").
				WithRelation(rel).WithActor(actorID).WithTarget(targetID).WithPrivilege(p)
		}
		if current.Privilege.Stronger(p) && current.GrantorID != grantorID {
			return denied("cannot lower a privilege granted by someone else").
				WithRelation(rel).WithActor(actorID).WithTarget(targetID).WithGrantor(grantorID)
		}
	}
	return nil
}

// checkUnshare enforces every unshare-time rule for one relation.
func (s *Service) checkUnshare(ctx context.Context, st Store, rel Relation, actorID, targetID, grantorID string) error {
	if !rel.Valid() {
		return NewError(ErrInvalidRelation, string(rel))
	}
	if grantorID == "" {
		return NewError(ErrNoActorID, "unsharing requires an actor in context")
	}
	if !s.userActive(grantorID) {
		return denied("grantor is not an active user").
			WithRelation(rel).WithGrantor(grantorID)
	}
	if err := s.targetAvailable(rel, targetID, false); err != nil {
		return err
	}

	current, err := st.Record(ctx, rel, actorID, targetID)
	if err != nil {
		return err
	}
	if current == nil {
		return denied("there is no privilege to unshare").
			WithRelation(rel).WithActor(actorID).WithTarget(targetID)
	}

	authorized := false
	eff, err := s.effectiveFor(ctx, st, rel.TargetKind(), grantorID, targetID)
	if err != nil {
		return err
	}
	switch {
	case eff == PrivilegeOwner:
		authorized = true
	case rel.ActorKind() == KindUser && grantorID == actorID:
		// Self-removal: anyone may walk away from a share.
		authorized = true
	case rel.ActorKind() == KindGroup || rel.ActorKind() == KindCommunity:
		// The owner of the held side may withdraw it, the collective
		// analogue of self-removal.
		held, err := s.effectiveFor(ctx, st, rel.ActorKind(), grantorID, actorID)
		if err != nil {
			return err
		}
		authorized = held == PrivilegeOwner
	}
	if !authorized {
		return denied("insufficient privilege to unshare " + entityName(rel.TargetKind())).
			WithRelation(rel).WithActor(actorID).WithTarget(targetID).WithGrantor(grantorID)
	}

	if current.Privilege == PrivilegeOwner {
		owners, err := s.ownersOf(ctx, st, rel, targetID)
		if err != nil {
			return err
		}
		if len(owners) <= 1 {
			return denied("cannot remove sole owner of " + entityName(rel.TargetKind())).
				WithRelation(rel).WithActor(actorID).WithTarget(targetID)
		}
	}
	return nil
}

// checkUndo enforces undo legality: grantor-scoped, single-level, and never
// allowed to strand a target without owners.
func (s *Service) checkUndo(ctx context.Context, st Store, rel Relation, actorID, targetID, grantorID string) error {
	if !rel.Valid() {
		return NewError(ErrInvalidRelation, string(rel))
	}
	if grantorID == "" {
		return NewError(ErrNoActorID, "undo requires an actor in context")
	}
	if !s.userActive(grantorID) {
		return denied("grantor is not an active user").
			WithRelation(rel).WithGrantor(grantorID)
	}
	if err := s.targetAvailable(rel, targetID, false); err != nil {
		return err
	}

	current, err := st.CurrentEntry(ctx, rel, actorID, targetID)
	if err != nil {
		return err
	}
	if current == nil {
		return denied("there is no share to undo").
			WithRelation(rel).WithActor(actorID).WithTarget(targetID)
	}
	if current.Undone {
		return denied("share has already been undone").
			WithRelation(rel).WithActor(actorID).WithTarget(targetID)
	}
	if current.GrantorID == "" || current.GrantorID != grantorID {
		return denied("only the grantor of record may undo a share").
			WithRelation(rel).WithActor(actorID).WithTarget(targetID).WithGrantor(grantorID)
	}

	if current.Privilege == PrivilegeOwner {
		prior, err := st.PriorEntry(ctx, rel, actorID, targetID)
		if err != nil {
			return err
		}
		if prior == nil || prior.Privilege != PrivilegeOwner {
			owners, err := s.ownersOf(ctx, st, rel, targetID)
			if err != nil {
				return err
			}
			if len(owners) <= 1 {
				return denied("cannot remove sole owner of " + entityName(rel.TargetKind())).
					WithRelation(rel).WithActor(actorID).WithTarget(targetID)
			}
		}
	}
	return nil
}

// share runs the full grant path for one relation: guard, write and ledger
// append in one atomic unit.
func (s *Service) share(ctx context.Context, op string, rel Relation, actorID, targetID string, p Privilege) error {
	grantorID := GetActorID(ctx)
	err := s.store.Atomic(ctx, func(ctx context.Context, tx Store) error {
		if err := s.checkShare(ctx, tx, rel, actorID, targetID, p, grantorID); err != nil {
			return err
		}
		return tx.SetPrivilege(ctx, rel, actorID, targetID, p, grantorID)
	})
	if err != nil {
		if IsPermissionDenied(err) {
			s.metrics.recordDenial(op)
		}
		return err
	}
	s.metrics.recordGrant(rel, p)
	return nil
}

// unshare runs the full revocation path for one relation.
func (s *Service) unshare(ctx context.Context, op string, rel Relation, actorID, targetID string) error {
	grantorID := GetActorID(ctx)
	err := s.store.Atomic(ctx, func(ctx context.Context, tx Store) error {
		if err := s.checkUnshare(ctx, tx, rel, actorID, targetID, grantorID); err != nil {
			return err
		}
		return tx.SetPrivilege(ctx, rel, actorID, targetID, PrivilegeNone, grantorID)
	})
	if err != nil {
		if IsPermissionDenied(err) {
			s.metrics.recordDenial(op)
		}
		return err
	}
	s.metrics.recordRevocation(rel)
	return nil
}

// undoShare runs the full undo path for one relation.
func (s *Service) undoShare(ctx context.Context, op string, rel Relation, actorID, targetID string) error {
	grantorID := GetActorID(ctx)
	err := s.store.Atomic(ctx, func(ctx context.Context, tx Store) error {
		if err := s.checkUndo(ctx, tx, rel, actorID, targetID, grantorID); err != nil {
			return err
		}
		return tx.UndoLast(ctx, rel, actorID, targetID, grantorID)
	})
	if err != nil {
		if IsPermissionDenied(err) {
			s.metrics.recordDenial(op)
		}
		return err
	}
	s.metrics.recordUndo(rel)
	return nil
}
