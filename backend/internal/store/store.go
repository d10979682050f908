package store

import (
	"context"
	"errors"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	apperrors "devpath/backend/pkg/errors"
	"devpath/backend/pkg/logger"
)

// Store executes parameterized queries against Neo4j. Each call acquires its
// own session and releases it before returning, so a Store is safe for
// concurrent use; the only shared state is the driver's connection pool.
type Store struct {
	driver neo4j.DriverWithContext
	logger *zap.Logger
}

// New creates a store on top of an already-constructed driver
func New(driver neo4j.DriverWithContext) *Store {
	return &Store{
		driver: driver,
		logger: logger.Get(),
	}
}

// Close closes the underlying driver connection pool
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// VerifyConnection reports whether the store is reachable. It never returns
// an error; connectivity failures are logged and reported as false.
func (s *Store) VerifyConnection(ctx context.Context) bool {
	if err := s.driver.VerifyConnectivity(ctx); err != nil {
		s.logger.Warn("Graph store connectivity check failed", zap.Error(err))
		return false
	}
	return true
}

// Read runs a query in a read session and collects all records
func (s *Store) Read(ctx context.Context, query string, params map[string]interface{}) ([]*neo4j.Record, error) {
	return s.run(ctx, neo4j.AccessModeRead, query, params)
}

// Write runs a query in a write session and collects all records
func (s *Store) Write(ctx context.Context, query string, params map[string]interface{}) ([]*neo4j.Record, error) {
	return s.run(ctx, neo4j.AccessModeWrite, query, params)
}

func (s *Store) run(ctx context.Context, mode neo4j.AccessMode, query string, params map[string]interface{}) ([]*neo4j.Record, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode})
	defer session.Close(ctx)

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return nil, s.classify(query, err)
	}

	records, err := result.Collect(ctx)
	if err != nil {
		return nil, s.classify(query, err)
	}

	return records, nil
}

// classify maps driver failures onto the typed error taxonomy. Deadline and
// cancellation come first so a timed-out dial is not mistaken for an outage.
func (s *Store) classify(query string, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewContextTimeout("store query", err)
	case errors.Is(err, context.Canceled):
		return apperrors.NewContextCancelled("store query", err)
	case neo4j.IsConnectivityError(err):
		return apperrors.NewStoreConnectionFailed(s.driver.Target().Host, err)
	default:
		return apperrors.NewStoreQueryFailed(query, err)
	}
}
