package grantkit

import (
	"time"

	"github.com/uptrace/bun"
)

// PrivilegeRecord is the current-state projection for one (relation, actor,
// target) pair. At most one live record exists per pair; the record is
// deleted, not archived, when the privilege returns to NONE.
type PrivilegeRecord struct {
	bun.BaseModel `bun:"table:privilege_records,alias:pr"`

	ID        string    `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Relation  Relation  `bun:"relation,notnull"`
	ActorID   string    `bun:"actor_id,notnull"`
	TargetID  string    `bun:"target_id,notnull"`
	Privilege Privilege `bun:"privilege,notnull"`
	GrantorID string    `bun:"grantor_id,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// ProvenanceEntry is one immutable historical record of a privilege
// transition. Entries are never mutated or deleted; Undone is the only field
// ever flipped, and only on the most recent entry of a pair.
//
// IDs are ULIDs, so lexicographic order on ID is insertion order within a
// pair. The current privilege for a pair is always derivable as the latest
// non-undone entry, or absent if that entry set the privilege to NONE.
type ProvenanceEntry struct {
	bun.BaseModel `bun:"table:provenance_entries,alias:pe"`

	ID        string    `bun:"id,pk"`
	Relation  Relation  `bun:"relation,notnull"`
	ActorID   string    `bun:"actor_id,notnull"`
	TargetID  string    `bun:"target_id,notnull"`
	Privilege Privilege `bun:"privilege,notnull"`
	GrantorID string    `bun:"grantor_id,nullzero"` // empty only on a NONE reset
	Undone    bool      `bun:"undone,notnull,default:false"`
	StartTime time.Time `bun:"start_time,notnull,default:current_timestamp"`
}

// MembershipDirection distinguishes the two sides of the community
// membership workflow.
type MembershipDirection string

const (
	// DirectionInvite is created by a community owner and targets a group.
	DirectionInvite MembershipDirection = "invite"

	// DirectionRequest is created by a group owner and targets a community.
	DirectionRequest MembershipDirection = "request"
)

// MembershipRequest is one pending or resolved invite/request connecting a
// group to a community.
//
// Lifecycle: created pending, then acted upon (approved or declined) which
// sets Redeemed permanently, or retracted while still pending (hard delete,
// no trace). Creating a matching counterpart while one is pending resolves
// both as approved without an explicit act.
type MembershipRequest struct {
	bun.BaseModel `bun:"table:membership_requests,alias:mr"`

	ID          string              `bun:"id,pk,type:uuid"`
	CommunityID string              `bun:"community_id,notnull"`
	GroupID     string              `bun:"group_id,notnull"`
	Direction   MembershipDirection `bun:"direction,notnull"`
	CreatedByID string              `bun:"created_by_id,notnull"`
	Redeemed    bool                `bun:"redeemed,notnull,default:false"`
	Approved    bool                `bun:"approved,notnull,default:false"`
	ActedByID   string              `bun:"acted_by_id,nullzero"`
	CreatedAt   time.Time           `bun:"created_at,notnull,default:current_timestamp"`
	ActedAt     time.Time           `bun:"acted_at,nullzero"`
}

// Pending reports whether the request still awaits a decision.
func (m *MembershipRequest) Pending() bool {
	return !m.Redeemed
}
