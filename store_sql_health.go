package grantkit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fernandezvara/dbkit"
)

// Health performs a comprehensive health check of the database connection.
// Returns detailed status including latency, connection pool statistics, and
// error information.
func (s *SQLStore) Health(ctx context.Context) dbkit.HealthStatus {
	if db, ok := s.db.(*dbkit.DBKit); ok {
		return db.Health(ctx)
	}

	// Transaction-bound or wrapped handles only get a basic ping.
	return dbkit.HealthStatus{
		Healthy: s.IsHealthy(ctx),
		Error:   "Limited health check - not a DBKit instance",
	}
}

// IsHealthy performs a simple health check of the database connection.
// Returns true if the database is reachable, false otherwise.
func (s *SQLStore) IsHealthy(ctx context.Context) bool {
	if db, ok := s.db.(*dbkit.DBKit); ok {
		return db.IsHealthy(ctx)
	}
	return s.Ping(ctx) == nil
}

// Ping performs a basic connectivity test to the database.
func (s *SQLStore) Ping(ctx context.Context) error {
	var result int
	return s.db.NewRaw("SELECT 1").Scan(ctx, &result)
}

// GetPoolStats returns connection pool statistics for monitoring.
// Returns zero values if the database instance doesn't support pool
// statistics.
func (s *SQLStore) GetPoolStats() dbkit.PoolStats {
	if db, ok := s.db.(*dbkit.DBKit); ok {
		sqlStats := db.Stats()
		return dbkit.PoolStatsFromSQL(sqlStats)
	}
	return dbkit.PoolStats{}
}

// poolState remembers the last configuration applied through
// ConfigureConnectionPool. database/sql exposes only the open-connection cap
// through Stats; the idle and lifetime settings are write-only and can only
// be read back from the tracked value.
type poolState struct {
	mu     sync.Mutex
	config *PoolConfig
}

// PoolConfig holds connection pool settings for the SQL store.
type PoolConfig struct {
	MaxOpenConnections    int
	MaxIdleConnections    int
	ConnectionMaxLifetime time.Duration
	ConnectionMaxIdleTime time.Duration
}

// DefaultPoolConfig returns pool settings suitable for most deployments.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConnections:    25,
		MaxIdleConnections:    5,
		ConnectionMaxLifetime: 30 * time.Minute,
		ConnectionMaxIdleTime: 5 * time.Minute,
	}
}

// HighThroughputPoolConfig returns pool settings for deployments where the
// resolver runs on every request.
func HighThroughputPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConnections:    100,
		MaxIdleConnections:    25,
		ConnectionMaxLifetime: 15 * time.Minute,
		ConnectionMaxIdleTime: 2 * time.Minute,
	}
}

// ConfigureConnectionPool updates the database connection pool settings.
func (s *SQLStore) ConfigureConnectionPool(config PoolConfig) error {
	db, ok := s.db.(*dbkit.DBKit)
	if !ok {
		return fmt.Errorf("connection pool configuration requires a dbkit.DBKit instance")
	}
	bunDB := db.Bun()
	if bunDB == nil {
		return fmt.Errorf("database instance not available")
	}

	bunDB.SetMaxOpenConns(config.MaxOpenConnections)
	bunDB.SetMaxIdleConns(config.MaxIdleConnections)
	bunDB.SetConnMaxLifetime(config.ConnectionMaxLifetime)
	bunDB.SetConnMaxIdleTime(config.ConnectionMaxIdleTime)

	s.pool.mu.Lock()
	applied := config
	s.pool.config = &applied
	s.pool.mu.Unlock()
	return nil
}

// GetConnectionPoolConfig returns the current connection pool configuration.
func (s *SQLStore) GetConnectionPoolConfig() (*PoolConfig, error) {
	db, ok := s.db.(*dbkit.DBKit)
	if !ok {
		return nil, fmt.Errorf("connection pool configuration requires a dbkit.DBKit instance")
	}
	bunDB := db.Bun()
	if bunDB == nil {
		return nil, fmt.Errorf("database instance not available")
	}

	stats := bunDB.Stats()
	s.pool.mu.Lock()
	configured := s.pool.config
	s.pool.mu.Unlock()
	if configured != nil {
		cfg := *configured
		cfg.MaxOpenConnections = stats.MaxOpenConnections
		return &cfg, nil
	}

	// Never configured through this store: only the open-connection cap is
	// observable.
	return &PoolConfig{MaxOpenConnections: stats.MaxOpenConnections}, nil
}
