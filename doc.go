// Package grantkit provides a privilege, provenance and undo engine for
// sharing resources among users, groups and communities.
//
// GrantKit tracks who granted what to whom, keeps the full grant history in
// an append-only provenance ledger, and guarantees that every grant can be
// reverted exactly once by its original grantor.
//
// # Core Concepts
//
// Privilege: one of OWNER, CHANGE, VIEW or NONE, ordered by effective power
// (OWNER strongest). Comparisons always use this ordering.
//
// Relation: one of the six ordered entity pairs the engine manages:
// user-resource, group-resource, user-group, user-community, group-community
// and community-resource. Each relation has its own current-state projection
// and its own slice of the provenance ledger.
//
// Provenance: every grant and revocation appends one immutable ledger entry
// recording the privilege, the grantor and the time. The current privilege
// tables are a derived projection; the ledger is the source of truth.
//
// Undo: the grantor of the most recent ledger entry for a pair may revert
// it, re-exposing whatever privilege was in force before. Undo is
// single-level and grantor-scoped; it never deletes history.
//
// # Key Features
//
//   - Six relation types behind one storage boundary, SQL or in-memory
//   - Append-only provenance with single-level, grantor-scoped undo
//   - Effective privilege resolution across direct, group-mediated and
//     community-mediated paths (weakest link per path, strongest path wins)
//   - Guard rules: sole-owner protection, non-escalation, immutability
//     squashing, inactive-entity denial
//   - Community membership workflow (invites and requests that resolve
//     each other)
//   - DBKit integration: uses your existing database connection
//
// # Basic Usage
//
//	// 1. Wire the entity registry (your user/group/resource flags)
//	entities := grantkit.NewMemoryRegistry()
//	entities.PutUser("alice", grantkit.UserFlags{Active: true})
//	entities.PutUser("bob", grantkit.UserFlags{Active: true})
//	entities.PutResource("res_1", grantkit.ResourceFlags{Shareable: true})
//
//	// 2. Create the store and the service
//	db, _ := dbkit.New(dbkit.Config{URL: "postgres://..."})
//	store := grantkit.NewSQLStore(db)
//	service := grantkit.NewService(entities, store)
//
//	// 3. Run migrations
//	grantkit.RunMigrations(ctx, db)
//
//	// 4. Provision and share
//	service.ProvisionResource(ctx, "res_1", "alice")
//	ctx = grantkit.WithActorID(ctx, "alice")
//	service.ShareResourceWithUser(ctx, "res_1", "bob", grantkit.PrivilegeChange)
//
//	// 5. Check privileges
//	p, _ := service.EffectiveResourcePrivilege(ctx, "bob", "res_1")
//	if p.AtLeast(grantkit.PrivilegeChange) {
//	    // bob can edit res_1
//	}
//
//	// 6. Revert a grant
//	service.UndoShareResourceWithUser(ctx, "res_1", "bob")
//
// # Effective Privilege
//
// A user's effective privilege on a resource is the strongest candidate over
// every path that reaches it: the direct grant, user-group-resource paths and
// user-(group-)community-resource paths. Each multi-hop path contributes the
// weakest of its legs, so a VIEW member of an editor group only gets VIEW.
// Paths through inactive users, groups or communities contribute nothing.
// If the resource is immutable, a resolved CHANGE is squashed to VIEW;
// OWNER is never squashed.
//
// # Middleware Usage
//
//	mw := grantkit.NewMiddleware(service)
//
//	router.With(mw.RequireResourcePrivilege(grantkit.PrivilegeChange,
//	    grantkit.ResourceFromParam("resourceID"))).
//	    Post("/resources/{resourceID}/files", uploadHandler)
//
// # Provenance Log
//
// The full grant history is queryable with filters on relation, actor,
// target, grantor and time range:
//
//	entries, _ := service.ProvenanceLog(ctx, grantkit.NewProvenanceFilter().
//	    WithRelation(grantkit.RelationUserResource).
//	    WithTarget("res_1"))
package grantkit
