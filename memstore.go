package grantkit

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-process Store. It is the dependency-injected
// replacement for a shared database in tests and small deployments: every
// instance is fully independent, there is no process-wide state.
type MemoryStore struct {
	mu sync.RWMutex

	// atomicMu serializes Atomic sections so a guard check and its write
	// cannot interleave with a concurrent mutation.
	atomicMu sync.Mutex

	records  map[Relation]map[string]*PrivilegeRecord
	ledger   map[Relation]map[string][]*ProvenanceEntry
	requests map[string]*MembershipRequest

	monitor *transactionMonitor
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		records:  make(map[Relation]map[string]*PrivilegeRecord),
		ledger:   make(map[Relation]map[string][]*ProvenanceEntry),
		requests: make(map[string]*MembershipRequest),
		monitor:  newTransactionMonitor(),
	}
	for _, rel := range Relations() {
		s.records[rel] = make(map[string]*PrivilegeRecord)
		s.ledger[rel] = make(map[string][]*ProvenanceEntry)
	}
	return s
}

// pairKey builds the projection/ledger map key for an (actor, target) pair.
func pairKey(actorID, targetID string) string {
	return actorID + "\x1f" + targetID
}

func splitPairKey(key string) (actorID, targetID string) {
	parts := strings.SplitN(key, "\x1f", 2)
	return parts[0], parts[1]
}

// Privilege implements Store.
func (s *MemoryStore) Privilege(ctx context.Context, rel Relation, actorID, targetID string) (Privilege, error) {
	if !rel.Valid() {
		return PrivilegeNone, NewError(ErrInvalidRelation, string(rel))
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rec, ok := s.records[rel][pairKey(actorID, targetID)]; ok {
		return rec.Privilege, nil
	}
	return PrivilegeNone, nil
}

// Record implements Store.
func (s *MemoryStore) Record(ctx context.Context, rel Relation, actorID, targetID string) (*PrivilegeRecord, error) {
	if !rel.Valid() {
		return nil, NewError(ErrInvalidRelation, string(rel))
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rec, ok := s.records[rel][pairKey(actorID, targetID)]; ok {
		out := *rec
		return &out, nil
	}
	return nil, nil
}

// SetPrivilege implements Store. The projection change and the ledger append
// happen under one lock.
func (s *MemoryStore) SetPrivilege(ctx context.Context, rel Relation, actorID, targetID string, p Privilege, grantorID string) error {
	if !rel.Valid() {
		return NewError(ErrInvalidRelation, string(rel))
	}
	if !p.Valid() {
		return NewError(ErrInvalidPrivilege, p.String())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey(actorID, targetID)
	now := time.Now()

	if p == PrivilegeNone {
		delete(s.records[rel], key)
	} else if rec, ok := s.records[rel][key]; ok {
		rec.Privilege = p
		rec.GrantorID = grantorID
		rec.UpdatedAt = now
	} else {
		s.records[rel][key] = &PrivilegeRecord{
			ID:        newRequestID(),
			Relation:  rel,
			ActorID:   actorID,
			TargetID:  targetID,
			Privilege: p,
			GrantorID: grantorID,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}

	entryGrantor := grantorID
	if p == PrivilegeNone {
		entryGrantor = "" // a reset to empty, not an undoable grant
	}
	s.ledger[rel][key] = append(s.ledger[rel][key], &ProvenanceEntry{
		ID:        newEntryID(),
		Relation:  rel,
		ActorID:   actorID,
		TargetID:  targetID,
		Privilege: p,
		GrantorID: entryGrantor,
		StartTime: now,
	})
	return nil
}

// CurrentEntry implements Store.
func (s *MemoryStore) CurrentEntry(ctx context.Context, rel Relation, actorID, targetID string) (*ProvenanceEntry, error) {
	if !rel.Valid() {
		return nil, NewError(ErrInvalidRelation, string(rel))
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.ledger[rel][pairKey(actorID, targetID)]
	if len(entries) == 0 {
		return nil, nil
	}
	out := *entries[len(entries)-1]
	return &out, nil
}

// PriorEntry implements Store.
func (s *MemoryStore) PriorEntry(ctx context.Context, rel Relation, actorID, targetID string) (*ProvenanceEntry, error) {
	if !rel.Valid() {
		return nil, NewError(ErrInvalidRelation, string(rel))
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.ledger[rel][pairKey(actorID, targetID)]
	for i := len(entries) - 2; i >= 0; i-- {
		if !entries[i].Undone {
			out := *entries[i]
			return &out, nil
		}
	}
	return nil, nil
}

// UndoActors implements Store.
func (s *MemoryStore) UndoActors(ctx context.Context, rel Relation, targetID, grantorID string) ([]string, error) {
	if !rel.Valid() {
		return nil, NewError(ErrInvalidRelation, string(rel))
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var actors []string
	for key, entries := range s.ledger[rel] {
		actorID, target := splitPairKey(key)
		if target != targetID || len(entries) == 0 {
			continue
		}
		last := entries[len(entries)-1]
		if !last.Undone && last.Privilege != PrivilegeNone && last.GrantorID == grantorID {
			actors = append(actors, actorID)
		}
	}
	sort.Strings(actors)
	return actors, nil
}

// UndoLast implements Store. The flag flip and the projection refresh happen
// under one lock; history is never deleted.
func (s *MemoryStore) UndoLast(ctx context.Context, rel Relation, actorID, targetID, grantorID string) error {
	if !rel.Valid() {
		return NewError(ErrInvalidRelation, string(rel))
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey(actorID, targetID)
	entries := s.ledger[rel][key]
	if len(entries) == 0 {
		return denied("there is no share to undo").
			WithRelation(rel).WithActor(actorID).WithTarget(targetID)
	}
	last := entries[len(entries)-1]
	if last.Undone {
		return denied("share has already been undone").
			WithRelation(rel).WithActor(actorID).WithTarget(targetID)
	}
	if last.GrantorID == "" || last.GrantorID != grantorID {
		return denied("only the grantor of record may undo a share").
			WithRelation(rel).WithActor(actorID).WithTarget(targetID).WithGrantor(grantorID)
	}

	last.Undone = true

	// Walk back exactly one logical step: the latest prior non-undone
	// entry, whoever granted it, becomes the state of record.
	var prior *ProvenanceEntry
	for i := len(entries) - 2; i >= 0; i-- {
		if !entries[i].Undone {
			prior = entries[i]
			break
		}
	}

	if prior == nil || prior.Privilege == PrivilegeNone {
		delete(s.records[rel], key)
		return nil
	}
	now := time.Now()
	if rec, ok := s.records[rel][key]; ok {
		rec.Privilege = prior.Privilege
		rec.GrantorID = prior.GrantorID
		rec.UpdatedAt = now
	} else {
		s.records[rel][key] = &PrivilegeRecord{
			ID:        newRequestID(),
			Relation:  rel,
			ActorID:   actorID,
			TargetID:  targetID,
			Privilege: prior.Privilege,
			GrantorID: prior.GrantorID,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	return nil
}

// ActorsWithPrivilege implements Store.
func (s *MemoryStore) ActorsWithPrivilege(ctx context.Context, rel Relation, targetID string, threshold Privilege) ([]string, error) {
	if !rel.Valid() {
		return nil, NewError(ErrInvalidRelation, string(rel))
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var actors []string
	for _, rec := range s.records[rel] {
		if rec.TargetID == targetID && rec.Privilege.AtLeast(threshold) {
			actors = append(actors, rec.ActorID)
		}
	}
	sort.Strings(actors)
	return actors, nil
}

// TargetsWithPrivilege implements Store.
func (s *MemoryStore) TargetsWithPrivilege(ctx context.Context, rel Relation, actorID string, threshold Privilege) ([]string, error) {
	if !rel.Valid() {
		return nil, NewError(ErrInvalidRelation, string(rel))
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var targets []string
	for _, rec := range s.records[rel] {
		if rec.ActorID == actorID && rec.Privilege.AtLeast(threshold) {
			targets = append(targets, rec.TargetID)
		}
	}
	sort.Strings(targets)
	return targets, nil
}

// ProvenanceLog implements Store. Entries come back most recent first.
func (s *MemoryStore) ProvenanceLog(ctx context.Context, filter ProvenanceFilter) ([]ProvenanceEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	relations := Relations()
	if filter.Relation != "" {
		if !filter.Relation.Valid() {
			return nil, NewError(ErrInvalidRelation, string(filter.Relation))
		}
		relations = []Relation{filter.Relation}
	}

	var matched []ProvenanceEntry
	for _, rel := range relations {
		for _, entries := range s.ledger[rel] {
			for _, e := range entries {
				if filter.ActorID != "" && e.ActorID != filter.ActorID {
					continue
				}
				if filter.TargetID != "" && e.TargetID != filter.TargetID {
					continue
				}
				if filter.GrantorID != "" && e.GrantorID != filter.GrantorID {
					continue
				}
				if !filter.IncludeUndone && e.Undone {
					continue
				}
				if !filter.Since.IsZero() && e.StartTime.Before(filter.Since) {
					continue
				}
				if !filter.Until.IsZero() && e.StartTime.After(filter.Until) {
					continue
				}
				matched = append(matched, *e)
			}
		}
	}

	// ULIDs sort by creation time, so ID order is insertion order.
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[filter.Offset:]
	}
	limit := filter.Limit
	if limit == 0 {
		limit = 100
	}
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// PutMembershipRequest implements Store.
func (s *MemoryStore) PutMembershipRequest(ctx context.Context, req *MembershipRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *req
	s.requests[req.ID] = &cp
	return nil
}

// GetMembershipRequest implements Store.
func (s *MemoryStore) GetMembershipRequest(ctx context.Context, id string) (*MembershipRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.requests[id]
	if !ok {
		return nil, NewError(ErrNotFound, "membership request "+id)
	}
	out := *req
	return &out, nil
}

// PendingMembershipRequests implements Store.
func (s *MemoryStore) PendingMembershipRequests(ctx context.Context, communityID, groupID string) ([]MembershipRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []MembershipRequest
	for _, req := range s.requests {
		if req.Pending() && req.CommunityID == communityID && req.GroupID == groupID {
			out = append(out, *req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ListMembershipRequests implements Store.
func (s *MemoryStore) ListMembershipRequests(ctx context.Context, filter MembershipFilter) ([]MembershipRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []MembershipRequest
	for _, req := range s.requests {
		if filter.CommunityID != "" && req.CommunityID != filter.CommunityID {
			continue
		}
		if filter.GroupID != "" && req.GroupID != filter.GroupID {
			continue
		}
		if filter.Direction != "" && req.Direction != filter.Direction {
			continue
		}
		if filter.PendingOnly && !req.Pending() {
			continue
		}
		out = append(out, *req)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })

	limit := filter.Limit
	if limit == 0 {
		limit = 100
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// DeleteMembershipRequest implements Store.
func (s *MemoryStore) DeleteMembershipRequest(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[id]; !ok {
		return NewError(ErrNotFound, "membership request "+id)
	}
	delete(s.requests, id)
	return nil
}

// Atomic implements Store. Atomic sections are serialized against each
// other, so a guard re-check inside fn sees the final state of any
// concurrent mutation.
func (s *MemoryStore) Atomic(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	s.atomicMu.Lock()
	defer s.atomicMu.Unlock()

	start := time.Now()
	err := fn(ctx, s)
	s.monitor.recordTransaction(time.Since(start), err == nil)
	return err
}

// TransactionMetrics implements TransactionReporter.
func (s *MemoryStore) TransactionMetrics() TransactionMetrics {
	return s.monitor.getMetrics()
}

// ResetTransactionMetrics implements TransactionReporter.
func (s *MemoryStore) ResetTransactionMetrics() {
	s.monitor.reset()
}
