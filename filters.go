package grantkit

import "time"

// ProvenanceFilter provides options for filtering provenance log queries.
type ProvenanceFilter struct {
	// Filter by relation type
	Relation Relation

	// Filter by privilege holder
	ActorID string

	// Filter by target entity
	TargetID string

	// Filter by grantor of record
	GrantorID string

	// Include entries that have been undone
	IncludeUndone bool

	// Filter by time range
	Since time.Time
	Until time.Time

	// Pagination
	Limit  int
	Offset int
}

// NewProvenanceFilter creates a new ProvenanceFilter with default values.
// Undone entries are included by default: the ledger is history, and undo
// is part of history.
func NewProvenanceFilter() ProvenanceFilter {
	return ProvenanceFilter{
		IncludeUndone: true,
		Limit:         100,
	}
}

// WithRelation sets the relation filter.
func (f ProvenanceFilter) WithRelation(rel Relation) ProvenanceFilter {
	f.Relation = rel
	return f
}

// WithActor sets the privilege holder filter.
func (f ProvenanceFilter) WithActor(actorID string) ProvenanceFilter {
	f.ActorID = actorID
	return f
}

// WithTarget sets the target entity filter.
func (f ProvenanceFilter) WithTarget(targetID string) ProvenanceFilter {
	f.TargetID = targetID
	return f
}

// WithGrantor sets the grantor filter.
func (f ProvenanceFilter) WithGrantor(grantorID string) ProvenanceFilter {
	f.GrantorID = grantorID
	return f
}

// WithoutUndone excludes entries that have been undone.
func (f ProvenanceFilter) WithoutUndone() ProvenanceFilter {
	f.IncludeUndone = false
	return f
}

// WithTimeRange sets the time range filter.
func (f ProvenanceFilter) WithTimeRange(since, until time.Time) ProvenanceFilter {
	f.Since = since
	f.Until = until
	return f
}

// WithSince sets the start time filter.
func (f ProvenanceFilter) WithSince(since time.Time) ProvenanceFilter {
	f.Since = since
	return f
}

// WithUntil sets the end time filter.
func (f ProvenanceFilter) WithUntil(until time.Time) ProvenanceFilter {
	f.Until = until
	return f
}

// WithLimit sets the limit for results.
func (f ProvenanceFilter) WithLimit(limit int) ProvenanceFilter {
	f.Limit = limit
	return f
}

// WithOffset sets the offset for pagination.
func (f ProvenanceFilter) WithOffset(offset int) ProvenanceFilter {
	f.Offset = offset
	return f
}

// WithPagination sets both limit and offset.
func (f ProvenanceFilter) WithPagination(limit, offset int) ProvenanceFilter {
	f.Limit = limit
	f.Offset = offset
	return f
}

// MembershipFilter provides options for listing membership requests.
type MembershipFilter struct {
	CommunityID string
	GroupID     string
	Direction   MembershipDirection
	PendingOnly bool
	Limit       int
}

// NewMembershipFilter creates a MembershipFilter with default values.
func NewMembershipFilter() MembershipFilter {
	return MembershipFilter{Limit: 100}
}

// WithCommunity sets the community filter.
func (f MembershipFilter) WithCommunity(communityID string) MembershipFilter {
	f.CommunityID = communityID
	return f
}

// WithGroup sets the group filter.
func (f MembershipFilter) WithGroup(groupID string) MembershipFilter {
	f.GroupID = groupID
	return f
}

// WithDirection sets the direction filter.
func (f MembershipFilter) WithDirection(d MembershipDirection) MembershipFilter {
	f.Direction = d
	return f
}

// Pending restricts results to requests that still await a decision.
func (f MembershipFilter) Pending() MembershipFilter {
	f.PendingOnly = true
	return f
}

// WithLimit sets the limit for results.
func (f MembershipFilter) WithLimit(limit int) MembershipFilter {
	f.Limit = limit
	return f
}
