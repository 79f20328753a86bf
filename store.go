package grantkit

import "context"

// Store is the single storage boundary behind the six privilege projections,
// the provenance ledger and the membership workflow table.
//
// Writes pair every projection change with a ledger append; callers get
// atomicity by running mutations inside Atomic. Reads outside Atomic may see
// a slightly stale but transactionally consistent snapshot.
//
// All six relation stores live behind this one boundary on purpose: no
// cross-entity distributed transaction is ever needed.
type Store interface {
	// Privilege returns the current privilege for a pair, NONE when no
	// record exists.
	Privilege(ctx context.Context, rel Relation, actorID, targetID string) (Privilege, error)

	// Record returns the live privilege record for a pair, nil when absent.
	Record(ctx context.Context, rel Relation, actorID, targetID string) (*PrivilegeRecord, error)

	// SetPrivilege upserts the current record (or deletes it when p is
	// NONE) and appends a ProvenanceEntry. A NONE append stores an empty
	// grantor: it is a logical reset, not an undo of a specific entry.
	SetPrivilege(ctx context.Context, rel Relation, actorID, targetID string, p Privilege, grantorID string) error

	// CurrentEntry returns the most recent ledger entry for a pair,
	// including one that has been undone, or nil when the pair has no
	// history. An undone latest entry is exactly what makes a second undo
	// in a row illegal.
	CurrentEntry(ctx context.Context, rel Relation, actorID, targetID string) (*ProvenanceEntry, error)

	// PriorEntry returns the entry that would become current if the latest
	// entry were undone: the most recent non-undone entry strictly before
	// the latest one. Nil when there is none.
	PriorEntry(ctx context.Context, rel Relation, actorID, targetID string) (*ProvenanceEntry, error)

	// UndoActors returns the actors for which grantorID is the grantor of
	// the latest, not yet undone, non-NONE entry on the target. Only these
	// pairs are legally undoable by grantorID.
	UndoActors(ctx context.Context, rel Relation, targetID, grantorID string) ([]string, error)

	// UndoLast reverts the most recent ledger entry for a pair: verifies
	// the grantor matches and the entry is not already undone, flips its
	// undone flag, and refreshes the projection from the latest prior
	// non-undone entry. No new entry is appended.
	UndoLast(ctx context.Context, rel Relation, actorID, targetID, grantorID string) error

	// ActorsWithPrivilege returns actors holding threshold or stronger on
	// the target, sorted.
	ActorsWithPrivilege(ctx context.Context, rel Relation, targetID string, threshold Privilege) ([]string, error)

	// TargetsWithPrivilege returns targets on which the actor holds
	// threshold or stronger, sorted.
	TargetsWithPrivilege(ctx context.Context, rel Relation, actorID string, threshold Privilege) ([]string, error)

	// ProvenanceLog returns ledger entries matching the filter, most
	// recent first.
	ProvenanceLog(ctx context.Context, filter ProvenanceFilter) ([]ProvenanceEntry, error)

	// Membership workflow persistence.
	PutMembershipRequest(ctx context.Context, req *MembershipRequest) error
	GetMembershipRequest(ctx context.Context, id string) (*MembershipRequest, error)
	PendingMembershipRequests(ctx context.Context, communityID, groupID string) ([]MembershipRequest, error)
	ListMembershipRequests(ctx context.Context, filter MembershipFilter) ([]MembershipRequest, error)
	DeleteMembershipRequest(ctx context.Context, id string) error

	// Atomic runs fn as one atomic unit. fn receives a Store bound to the
	// transaction; conflicting writers on the same pair are serialized so
	// guard checks and writes cannot interleave.
	Atomic(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}

// TransactionReporter is implemented by stores that track transaction
// metrics. Service.TransactionMetrics uses it when available.
type TransactionReporter interface {
	TransactionMetrics() TransactionMetrics
	ResetTransactionMetrics()
}
