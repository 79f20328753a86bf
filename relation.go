package grantkit

import "fmt"

// Relation identifies one of the six ordered entity pairs the engine
// manages. The first component is the actor (the holder of the privilege),
// the second is the target.
type Relation string

const (
	RelationUserResource      Relation = "user_resource"
	RelationGroupResource     Relation = "group_resource"
	RelationUserGroup         Relation = "user_group"
	RelationUserCommunity     Relation = "user_community"
	RelationGroupCommunity    Relation = "group_community"
	RelationCommunityResource Relation = "community_resource"
)

// EntityKind names one of the four entity kinds a relation connects.
type EntityKind string

const (
	KindUser      EntityKind = "user"
	KindGroup     EntityKind = "group"
	KindResource  EntityKind = "resource"
	KindCommunity EntityKind = "community"
)

// Relations returns all six relation types in a stable order.
func Relations() []Relation {
	return []Relation{
		RelationUserResource,
		RelationGroupResource,
		RelationUserGroup,
		RelationUserCommunity,
		RelationGroupCommunity,
		RelationCommunityResource,
	}
}

// Valid reports whether r is one of the six defined relations.
func (r Relation) Valid() bool {
	switch r {
	case RelationUserResource, RelationGroupResource, RelationUserGroup,
		RelationUserCommunity, RelationGroupCommunity, RelationCommunityResource:
		return true
	}
	return false
}

// ActorKind returns the entity kind of the relation's actor side.
func (r Relation) ActorKind() EntityKind {
	switch r {
	case RelationUserResource, RelationUserGroup, RelationUserCommunity:
		return KindUser
	case RelationGroupResource, RelationGroupCommunity:
		return KindGroup
	case RelationCommunityResource:
		return KindCommunity
	default:
		panic(fmt.Sprintf("grantkit: unknown relation %q", string(r)))
	}
}

// TargetKind returns the entity kind of the relation's target side.
func (r Relation) TargetKind() EntityKind {
	switch r {
	case RelationUserResource, RelationGroupResource, RelationCommunityResource:
		return KindResource
	case RelationUserGroup:
		return KindGroup
	case RelationUserCommunity, RelationGroupCommunity:
		return KindCommunity
	default:
		panic(fmt.Sprintf("grantkit: unknown relation %q", string(r)))
	}
}

// OwnerAllowed reports whether OWNER may be granted over this relation.
// Only users can own things: groups cannot own resources, and neither
// groups nor communities hold ownership over anything.
func (r Relation) OwnerAllowed() bool {
	return r.ActorKind() == KindUser
}

// ownerRelation returns the user-actor relation that defines the owning set
// for a given target kind.
func ownerRelation(kind EntityKind) Relation {
	switch kind {
	case KindResource:
		return RelationUserResource
	case KindGroup:
		return RelationUserGroup
	case KindCommunity:
		return RelationUserCommunity
	default:
		panic(fmt.Sprintf("grantkit: entity kind %q has no owners", string(kind)))
	}
}

// String returns the relation identifier as stored in the database.
func (r Relation) String() string {
	return string(r)
}
