package grantkit

import (
	"context"
)

// Service is the guard layer over the privilege store and provenance
// ledger. It enforces the business rules on every mutation, resolves
// effective privileges, and exposes the query surface.
//
// Error Handling:
// Every rule violation surfaces as ErrPermissionDenied with a
// human-readable reason; inspect the message for display only, never for
// control flow. Storage faults surface as a separate kind (see ErrStorage
// and the dbkit error helpers) and may be retried with backoff; the service
// itself never retries.
//
// Example error handling:
//
//	err := service.ShareResourceWithUser(ctx, resourceID, userID, grantkit.PrivilegeChange)
//	if grantkit.IsPermissionDenied(err) {
//	    // A deterministic business-rule failure: report, do not retry.
//	}
type Service struct {
	entities EntityRegistry
	store    Store
	metrics  *Metrics
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithMetrics attaches Prometheus collectors to the service.
func WithMetrics(m *Metrics) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService creates a new GrantKit service.
//
// Example:
//
//	db, _ := dbkit.New(dbkit.Config{URL: "postgres://..."})
//	service := grantkit.NewService(entities, grantkit.NewSQLStore(db))
func NewService(entities EntityRegistry, store Store, opts ...ServiceOption) *Service {
	s := &Service{
		entities: entities,
		store:    store,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying store.
func (s *Service) Store() Store {
	return s.store
}

// Entities returns the entity registry.
func (s *Service) Entities() EntityRegistry {
	return s.entities
}

// ProvenanceLog retrieves provenance ledger entries with optional filters,
// most recent first.
func (s *Service) ProvenanceLog(ctx context.Context, filter ProvenanceFilter) ([]ProvenanceEntry, error) {
	return s.store.ProvenanceLog(ctx, filter)
}

// TransactionMetrics returns the store's transaction statistics when the
// store tracks them.
func (s *Service) TransactionMetrics() (TransactionMetrics, bool) {
	if reporter, ok := s.store.(TransactionReporter); ok {
		return reporter.TransactionMetrics(), true
	}
	return TransactionMetrics{}, false
}

// ============================================================================
// PROVISIONING
// ============================================================================

// ProvisionResource records the first owner of a newly created resource.
// The owner is their own grantor of record; a resource always has at least
// one owner from this moment on.
func (s *Service) ProvisionResource(ctx context.Context, resourceID, ownerID string) error {
	return s.provision(ctx, RelationUserResource, resourceID, ownerID)
}

// ProvisionGroup records the first owner of a newly created group.
func (s *Service) ProvisionGroup(ctx context.Context, groupID, ownerID string) error {
	return s.provision(ctx, RelationUserGroup, groupID, ownerID)
}

// ProvisionCommunity records the first owner of a newly created community.
func (s *Service) ProvisionCommunity(ctx context.Context, communityID, ownerID string) error {
	return s.provision(ctx, RelationUserCommunity, communityID, ownerID)
}

func (s *Service) provision(ctx context.Context, rel Relation, targetID, ownerID string) error {
	if !s.userActive(ownerID) {
		return denied("owner is not an active user").
			WithRelation(rel).WithActor(ownerID).WithTarget(targetID)
	}
	if err := s.targetAvailable(rel, targetID, false); err != nil {
		return err
	}
	err := s.store.Atomic(ctx, func(ctx context.Context, tx Store) error {
		owners, err := s.ownersOf(ctx, tx, rel, targetID)
		if err != nil {
			return err
		}
		if len(owners) > 0 {
			return denied(entityName(rel.TargetKind()) + " already has an owner").
				WithRelation(rel).WithTarget(targetID)
		}
		return tx.SetPrivilege(ctx, rel, ownerID, targetID, PrivilegeOwner, ownerID)
	})
	if err != nil {
		return err
	}
	s.metrics.recordGrant(rel, PrivilegeOwner)
	return nil
}
