package grantkit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/fernandezvara/dbkit"
	"github.com/stretchr/testify/require"
)

// fixture wires a Service over a MemoryStore and MemoryRegistry so tests
// exercise the full guard and resolver paths without a database.
type fixture struct {
	t        *testing.T
	ctx      context.Context
	registry *MemoryRegistry
	store    *MemoryStore
	service  *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	registry := NewMemoryRegistry()
	store := NewMemoryStore()
	return &fixture{
		t:        t,
		ctx:      context.Background(),
		registry: registry,
		store:    store,
		service:  NewService(registry, store),
	}
}

// as returns a context carrying userID as the acting user.
func (f *fixture) as(userID string) context.Context {
	return WithActorID(f.ctx, userID)
}

// user registers an active user.
func (f *fixture) user(id string) string {
	f.registry.PutUser(id, UserFlags{Active: true})
	return id
}

// resource registers a shareable resource provisioned with ownerID as its
// first owner.
func (f *fixture) resource(id, ownerID string) string {
	f.t.Helper()
	f.registry.PutResource(id, ResourceFlags{Shareable: true})
	require.NoError(f.t, f.service.ProvisionResource(f.ctx, id, ownerID))
	return id
}

// group registers an active shareable group provisioned with ownerID as its
// first owner.
func (f *fixture) group(id, ownerID string) string {
	f.t.Helper()
	f.registry.PutGroup(id, GroupFlags{Active: true, Shareable: true})
	require.NoError(f.t, f.service.ProvisionGroup(f.ctx, id, ownerID))
	return id
}

// community registers an active community provisioned with ownerID as its
// first owner.
func (f *fixture) community(id, ownerID string) string {
	f.t.Helper()
	f.registry.PutCommunity(id, CommunityFlags{Active: true})
	require.NoError(f.t, f.service.ProvisionCommunity(f.ctx, id, ownerID))
	return id
}

// resourcePrivilege asserts the user's effective privilege on a resource.
func (f *fixture) resourcePrivilege(userID, resourceID string, want Privilege) {
	f.t.Helper()
	got, err := f.service.EffectiveResourcePrivilege(f.ctx, userID, resourceID)
	require.NoError(f.t, err)
	require.Equal(f.t, want, got,
		"effective privilege of %s on %s", userID, resourceID)
}

// isDatabaseAvailable checks if the test database is available.
func isDatabaseAvailable() bool {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		return false
	}

	db, err := dbkit.New(dbkit.Config{URL: dbURL})
	if err != nil {
		return false
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return db.PingContext(ctx) == nil
}

// requireDatabase skips the test if the database is not available.
// Use this as: if !requireDatabase(t) { return }
func requireDatabase(t *testing.T) bool {
	t.Helper()
	if !isDatabaseAvailable() {
		t.Log("Database not available - skipping test")
		t.Log("Set TEST_DATABASE_URL to run database-backed tests")
		t.Skip("database not available")
		return false
	}
	return true
}

// setupTestStore creates a database connection, runs migrations, and returns
// a SQLStore-backed fixture.
func setupTestStore(t *testing.T) (*Service, *SQLStore, *MemoryRegistry) {
	t.Helper()
	ctx := context.Background()

	db, err := dbkit.New(dbkit.Config{URL: os.Getenv("TEST_DATABASE_URL")})
	require.NoError(t, err, "failed to initialize database")
	t.Cleanup(func() { _ = db.Close() })

	_, err = RunMigrations(ctx, db)
	require.NoError(t, err, "failed to run migrations")

	registry := NewMemoryRegistry()
	store := NewSQLStore(db)
	return NewService(registry, store), store, registry
}
