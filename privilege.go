package grantkit

import (
	"fmt"
	"strings"
)

// Privilege is the level of access an actor holds over a target.
// Lower numeric values are stronger: OWNER < CHANGE < VIEW < NONE.
// All comparisons use this ordering, never set membership.
type Privilege int

const (
	// PrivilegeOwner grants full control, including sharing and unsharing.
	PrivilegeOwner Privilege = 1

	// PrivilegeChange grants edit access.
	PrivilegeChange Privilege = 2

	// PrivilegeView grants read-only access.
	PrivilegeView Privilege = 3

	// PrivilegeNone is the absence of privilege. It is never stored as a
	// current record; a record is deleted when privilege returns to NONE.
	PrivilegeNone Privilege = 4
)

// Valid reports whether p is one of the four defined levels.
func (p Privilege) Valid() bool {
	return p >= PrivilegeOwner && p <= PrivilegeNone
}

// Stronger reports whether p is strictly stronger than other.
func (p Privilege) Stronger(other Privilege) bool {
	return p < other
}

// AtLeast reports whether p is at least as strong as other.
func (p Privilege) AtLeast(other Privilege) bool {
	return p <= other
}

// String returns the lowercase name of the privilege level.
func (p Privilege) String() string {
	switch p {
	case PrivilegeOwner:
		return "owner"
	case PrivilegeChange:
		return "change"
	case PrivilegeView:
		return "view"
	case PrivilegeNone:
		return "none"
	default:
		return fmt.Sprintf("privilege(%d)", int(p))
	}
}

// ParsePrivilege converts a privilege name to its Privilege value.
func ParsePrivilege(s string) (Privilege, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "owner":
		return PrivilegeOwner, nil
	case "change":
		return PrivilegeChange, nil
	case "view":
		return PrivilegeView, nil
	case "none":
		return PrivilegeNone, nil
	default:
		return PrivilegeNone, fmt.Errorf("%w: %q", ErrInvalidPrivilege, s)
	}
}

// StrongestOf returns the strongest privilege among the arguments.
// With no arguments it returns NONE.
func StrongestOf(privileges ...Privilege) Privilege {
	strongest := PrivilegeNone
	for _, p := range privileges {
		if p.Stronger(strongest) {
			strongest = p
		}
	}
	return strongest
}

// WeakestOf returns the weakest privilege among the arguments. This is the
// composition rule for multi-hop paths: a chain is only as strong as its
// weakest leg. With no arguments it returns NONE.
func WeakestOf(privileges ...Privilege) Privilege {
	weakest := PrivilegeOwner
	if len(privileges) == 0 {
		return PrivilegeNone
	}
	for _, p := range privileges {
		if weakest.Stronger(p) {
			weakest = p
		}
	}
	return weakest
}
