package grantkit

import (
	"context"
	"time"

	"github.com/fernandezvara/dbkit"
)

// SQLStore is the PostgreSQL-backed Store. It integrates with the database
// through dbkit with enhanced error handling: every operation carries an
// operation name, and failures preserve the original error types for
// classification with dbkit.IsNotFound, dbkit.IsDuplicate and friends.
type SQLStore struct {
	db      dbkit.IDB
	monitor *transactionMonitor
	pool    *poolState
}

// NewSQLStore creates a Store backed by PostgreSQL.
//
// Example:
//
//	db, _ := dbkit.New(dbkit.Config{URL: "postgres://..."})
//	store := grantkit.NewSQLStore(db)
func NewSQLStore(db dbkit.IDB) *SQLStore {
	return &SQLStore{
		db:      db,
		monitor: newTransactionMonitor(),
		pool:    &poolState{},
	}
}

// withDB returns a store bound to a different dbkit handle. Used to hand a
// transaction-bound store to Atomic sections; the monitor and pool state are
// shared.
func (s *SQLStore) withDB(db dbkit.IDB) *SQLStore {
	return &SQLStore{db: db, monitor: s.monitor, pool: s.pool}
}

// Privilege implements Store.
func (s *SQLStore) Privilege(ctx context.Context, rel Relation, actorID, targetID string) (Privilege, error) {
	rec, err := s.Record(ctx, rel, actorID, targetID)
	if err != nil {
		return PrivilegeNone, err
	}
	if rec == nil {
		return PrivilegeNone, nil
	}
	return rec.Privilege, nil
}

// Record implements Store.
func (s *SQLStore) Record(ctx context.Context, rel Relation, actorID, targetID string) (*PrivilegeRecord, error) {
	if !rel.Valid() {
		return nil, NewError(ErrInvalidRelation, string(rel))
	}
	var rec PrivilegeRecord
	err := s.db.NewSelect().Model(&rec).
		Where("relation = ? AND actor_id = ? AND target_id = ?", rel, actorID, targetID).
		Scan(ctx)
	if err != nil {
		if dbkit.IsNotFound(err) {
			return nil, nil
		}
		return nil, dbkit.WithErr1(err, "GetPrivilegeRecord").Err()
	}
	return &rec, nil
}

// SetPrivilege implements Store. The projection change and the ledger append
// run as two statements; run them inside Atomic for atomicity.
func (s *SQLStore) SetPrivilege(ctx context.Context, rel Relation, actorID, targetID string, p Privilege, grantorID string) error {
	if !rel.Valid() {
		return NewError(ErrInvalidRelation, string(rel))
	}
	if !p.Valid() {
		return NewError(ErrInvalidPrivilege, p.String())
	}

	now := time.Now()

	if p == PrivilegeNone {
		result, err := s.db.NewDelete().Table("privilege_records").
			Where("relation = ? AND actor_id = ? AND target_id = ?", rel, actorID, targetID).
			Exec(ctx)
		if err := dbkit.WithErr(result, err, "DeletePrivilegeRecord").Err(); err != nil {
			return err
		}
	} else {
		rec := &PrivilegeRecord{
			ID:        newRequestID(),
			Relation:  rel,
			ActorID:   actorID,
			TargetID:  targetID,
			Privilege: p,
			GrantorID: grantorID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		result, err := s.db.NewInsert().Model(rec).
			On("CONFLICT (relation, actor_id, target_id) DO UPDATE").
			Set("privilege = EXCLUDED.privilege").
			Set("grantor_id = EXCLUDED.grantor_id").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err := dbkit.WithErr(result, err, "UpsertPrivilegeRecord").Err(); err != nil {
			return err
		}
	}

	entryGrantor := grantorID
	if p == PrivilegeNone {
		entryGrantor = "" // a reset to empty, not an undoable grant
	}
	entry := &ProvenanceEntry{
		ID:        newEntryID(),
		Relation:  rel,
		ActorID:   actorID,
		TargetID:  targetID,
		Privilege: p,
		GrantorID: entryGrantor,
		StartTime: now,
	}
	result, err := s.db.NewInsert().Model(entry).Exec(ctx)
	return dbkit.WithErr(result, err, "AppendProvenanceEntry").Err()
}

// CurrentEntry implements Store.
func (s *SQLStore) CurrentEntry(ctx context.Context, rel Relation, actorID, targetID string) (*ProvenanceEntry, error) {
	if !rel.Valid() {
		return nil, NewError(ErrInvalidRelation, string(rel))
	}
	var entry ProvenanceEntry
	err := s.db.NewSelect().Model(&entry).
		Where("relation = ? AND actor_id = ? AND target_id = ?", rel, actorID, targetID).
		Order("id DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if dbkit.IsNotFound(err) {
			return nil, nil
		}
		return nil, dbkit.WithErr1(err, "GetCurrentEntry").Err()
	}
	return &entry, nil
}

// PriorEntry implements Store.
func (s *SQLStore) PriorEntry(ctx context.Context, rel Relation, actorID, targetID string) (*ProvenanceEntry, error) {
	current, err := s.CurrentEntry(ctx, rel, actorID, targetID)
	if err != nil || current == nil {
		return nil, err
	}
	var entry ProvenanceEntry
	err = s.db.NewSelect().Model(&entry).
		Where("relation = ? AND actor_id = ? AND target_id = ?", rel, actorID, targetID).
		Where("id < ? AND NOT undone", current.ID).
		Order("id DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if dbkit.IsNotFound(err) {
			return nil, nil
		}
		return nil, dbkit.WithErr1(err, "GetPriorEntry").Err()
	}
	return &entry, nil
}

// UndoActors implements Store. DISTINCT ON picks the latest entry per actor;
// only pairs whose latest entry is a live grant by grantorID qualify.
func (s *SQLStore) UndoActors(ctx context.Context, rel Relation, targetID, grantorID string) ([]string, error) {
	if !rel.Valid() {
		return nil, NewError(ErrInvalidRelation, string(rel))
	}
	var actors []string
	err := dbkit.WithErr1(s.db.NewRaw(`
		SELECT actor_id FROM (
			SELECT DISTINCT ON (actor_id) actor_id, undone, privilege, grantor_id
			FROM provenance_entries
			WHERE relation = ? AND target_id = ?
			ORDER BY actor_id, id DESC
		) latest
		WHERE NOT undone AND privilege <> ? AND grantor_id = ?
		ORDER BY actor_id`,
		rel, targetID, int(PrivilegeNone), grantorID).
		Scan(ctx, &actors), "GetUndoActors").Err()
	if err != nil {
		return nil, err
	}
	return actors, nil
}

// UndoLast implements Store. The latest entry is locked for the duration of
// the surrounding transaction so two undos of the same pair serialize.
func (s *SQLStore) UndoLast(ctx context.Context, rel Relation, actorID, targetID, grantorID string) error {
	if !rel.Valid() {
		return NewError(ErrInvalidRelation, string(rel))
	}

	var last ProvenanceEntry
	err := s.db.NewSelect().Model(&last).
		Where("relation = ? AND actor_id = ? AND target_id = ?", rel, actorID, targetID).
		Order("id DESC").
		Limit(1).
		For("UPDATE").
		Scan(ctx)
	if err != nil {
		if dbkit.IsNotFound(err) {
			return denied("there is no share to undo").
				WithRelation(rel).WithActor(actorID).WithTarget(targetID)
		}
		return dbkit.WithErr1(err, "LockCurrentEntry").Err()
	}
	if last.Undone {
		return denied("share has already been undone").
			WithRelation(rel).WithActor(actorID).WithTarget(targetID)
	}
	if last.GrantorID == "" || last.GrantorID != grantorID {
		return denied("only the grantor of record may undo a share").
			WithRelation(rel).WithActor(actorID).WithTarget(targetID).WithGrantor(grantorID)
	}

	result, err := s.db.NewUpdate().Table("provenance_entries").
		Set("undone = TRUE").
		Where("id = ?", last.ID).
		Exec(ctx)
	if err := dbkit.WithErr(result, err, "MarkEntryUndone").Err(); err != nil {
		return err
	}

	// Walk back exactly one logical step: the latest prior non-undone
	// entry, whoever granted it, becomes the state of record.
	var prior ProvenanceEntry
	err = s.db.NewSelect().Model(&prior).
		Where("relation = ? AND actor_id = ? AND target_id = ?", rel, actorID, targetID).
		Where("id < ? AND NOT undone", last.ID).
		Order("id DESC").
		Limit(1).
		Scan(ctx)
	if err != nil && !dbkit.IsNotFound(err) {
		return dbkit.WithErr1(err, "GetPriorEntry").Err()
	}

	if dbkit.IsNotFound(err) || prior.Privilege == PrivilegeNone {
		result, err := s.db.NewDelete().Table("privilege_records").
			Where("relation = ? AND actor_id = ? AND target_id = ?", rel, actorID, targetID).
			Exec(ctx)
		return dbkit.WithErr(result, err, "DeletePrivilegeRecord").Err()
	}

	now := time.Now()
	rec := &PrivilegeRecord{
		ID:        newRequestID(),
		Relation:  rel,
		ActorID:   actorID,
		TargetID:  targetID,
		Privilege: prior.Privilege,
		GrantorID: prior.GrantorID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	result, err = s.db.NewInsert().Model(rec).
		On("CONFLICT (relation, actor_id, target_id) DO UPDATE").
		Set("privilege = EXCLUDED.privilege").
		Set("grantor_id = EXCLUDED.grantor_id").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return dbkit.WithErr(result, err, "RestorePriorRecord").Err()
}

// ActorsWithPrivilege implements Store. Lower privilege values are stronger,
// so the threshold is an upper bound on the stored value.
func (s *SQLStore) ActorsWithPrivilege(ctx context.Context, rel Relation, targetID string, threshold Privilege) ([]string, error) {
	if !rel.Valid() {
		return nil, NewError(ErrInvalidRelation, string(rel))
	}
	var actors []string
	err := dbkit.WithErr1(s.db.NewRaw(
		"SELECT actor_id FROM privilege_records WHERE relation = ? AND target_id = ? AND privilege <= ? ORDER BY actor_id",
		rel, targetID, int(threshold)).
		Scan(ctx, &actors), "GetActorsWithPrivilege").Err()
	if err != nil {
		return nil, err
	}
	return actors, nil
}

// TargetsWithPrivilege implements Store.
func (s *SQLStore) TargetsWithPrivilege(ctx context.Context, rel Relation, actorID string, threshold Privilege) ([]string, error) {
	if !rel.Valid() {
		return nil, NewError(ErrInvalidRelation, string(rel))
	}
	var targets []string
	err := dbkit.WithErr1(s.db.NewRaw(
		"SELECT target_id FROM privilege_records WHERE relation = ? AND actor_id = ? AND privilege <= ? ORDER BY target_id",
		rel, actorID, int(threshold)).
		Scan(ctx, &targets), "GetTargetsWithPrivilege").Err()
	if err != nil {
		return nil, err
	}
	return targets, nil
}

// ProvenanceLog implements Store. Entries come back most recent first.
func (s *SQLStore) ProvenanceLog(ctx context.Context, filter ProvenanceFilter) ([]ProvenanceEntry, error) {
	if filter.Relation != "" && !filter.Relation.Valid() {
		return nil, NewError(ErrInvalidRelation, string(filter.Relation))
	}

	var entries []ProvenanceEntry
	q := s.db.NewSelect().Model(&entries)
	if filter.Relation != "" {
		q = q.Where("relation = ?", filter.Relation)
	}
	if filter.ActorID != "" {
		q = q.Where("actor_id = ?", filter.ActorID)
	}
	if filter.TargetID != "" {
		q = q.Where("target_id = ?", filter.TargetID)
	}
	if filter.GrantorID != "" {
		q = q.Where("grantor_id = ?", filter.GrantorID)
	}
	if !filter.IncludeUndone {
		q = q.Where("NOT undone")
	}
	if !filter.Since.IsZero() {
		q = q.Where("start_time >= ?", filter.Since)
	}
	if !filter.Until.IsZero() {
		q = q.Where("start_time <= ?", filter.Until)
	}

	limit := filter.Limit
	if limit == 0 {
		limit = 100
	}
	q = q.Order("id DESC").Limit(limit)
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	if err := dbkit.WithErr1(q.Scan(ctx), "GetProvenanceLog").Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// PutMembershipRequest implements Store.
func (s *SQLStore) PutMembershipRequest(ctx context.Context, req *MembershipRequest) error {
	result, err := s.db.NewInsert().Model(req).
		On("CONFLICT (id) DO UPDATE").
		Set("redeemed = EXCLUDED.redeemed").
		Set("approved = EXCLUDED.approved").
		Set("acted_by_id = EXCLUDED.acted_by_id").
		Set("acted_at = EXCLUDED.acted_at").
		Exec(ctx)
	return dbkit.WithErr(result, err, "PutMembershipRequest").Err()
}

// GetMembershipRequest implements Store.
func (s *SQLStore) GetMembershipRequest(ctx context.Context, id string) (*MembershipRequest, error) {
	var req MembershipRequest
	err := s.db.NewSelect().Model(&req).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if dbkit.IsNotFound(err) {
			return nil, NewError(ErrNotFound, "membership request "+id)
		}
		return nil, dbkit.WithErr1(err, "GetMembershipRequest").Err()
	}
	return &req, nil
}

// PendingMembershipRequests implements Store.
func (s *SQLStore) PendingMembershipRequests(ctx context.Context, communityID, groupID string) ([]MembershipRequest, error) {
	var out []MembershipRequest
	err := dbkit.WithErr1(s.db.NewSelect().Model(&out).
		Where("community_id = ? AND group_id = ? AND NOT redeemed", communityID, groupID).
		Order("created_at ASC").
		Scan(ctx), "GetPendingMembershipRequests").Err()
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListMembershipRequests implements Store.
func (s *SQLStore) ListMembershipRequests(ctx context.Context, filter MembershipFilter) ([]MembershipRequest, error) {
	var out []MembershipRequest
	q := s.db.NewSelect().Model(&out)
	if filter.CommunityID != "" {
		q = q.Where("community_id = ?", filter.CommunityID)
	}
	if filter.GroupID != "" {
		q = q.Where("group_id = ?", filter.GroupID)
	}
	if filter.Direction != "" {
		q = q.Where("direction = ?", filter.Direction)
	}
	if filter.PendingOnly {
		q = q.Where("NOT redeemed")
	}
	limit := filter.Limit
	if limit == 0 {
		limit = 100
	}
	q = q.Order("created_at ASC").Limit(limit)

	if err := dbkit.WithErr1(q.Scan(ctx), "ListMembershipRequests").Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteMembershipRequest implements Store.
func (s *SQLStore) DeleteMembershipRequest(ctx context.Context, id string) error {
	result, err := s.db.NewDelete().Table("membership_requests").
		Where("id = ?", id).
		Exec(ctx)
	if err := dbkit.WithErr(result, err, "DeleteMembershipRequest").Err(); err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return NewError(ErrNotFound, "membership request "+id)
	}
	return nil
}

// Atomic implements Store. A top-level call opens a serializable
// transaction; a call on an already transaction-bound store nests through a
// savepoint. fn receives a store bound to the transaction.
func (s *SQLStore) Atomic(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	start := time.Now()
	var err error

	switch db := s.db.(type) {
	case *dbkit.Tx:
		err = db.Transaction(ctx, func(tx *dbkit.Tx) error {
			return fn(ctx, s.withDB(tx))
		})
	case *dbkit.DBKit:
		err = db.TransactionWithOptions(ctx, dbkit.SerializableTxOptions(), func(tx *dbkit.Tx) error {
			return fn(ctx, s.withDB(tx))
		})
	default:
		err = NewError(ErrStorage, "atomic sections require a dbkit.DBKit or dbkit.Tx instance")
	}

	s.monitor.recordTransaction(time.Since(start), err == nil)
	return err
}

// TransactionMetrics implements TransactionReporter.
func (s *SQLStore) TransactionMetrics() TransactionMetrics {
	return s.monitor.getMetrics()
}

// ResetTransactionMetrics implements TransactionReporter.
func (s *SQLStore) ResetTransactionMetrics() {
	s.monitor.reset()
}
