package store

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	apperrors "devpath/backend/pkg/errors"
)

func TestVerifyConnection_Unreachable(t *testing.T) {
	driver, err := neo4j.NewDriverWithContext("bolt://localhost:1", neo4j.BasicAuth("neo4j", "password", ""))
	if err != nil {
		t.Fatalf("Failed to create driver: %v", err)
	}
	s := New(driver)
	defer s.Close(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if s.VerifyConnection(ctx) {
		t.Error("Expected VerifyConnection to report false for an unreachable host")
	}
}

func TestStore_Read(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	s, cleanup := newTestStore(t)
	defer cleanup()

	records, err := s.Read(context.Background(), "RETURN 1 as n", nil)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}
	n, ok := records[0].Get("n")
	if !ok || n.(int64) != 1 {
		t.Errorf("Unexpected record value: %v", n)
	}
}

func TestStore_Read_MalformedQuery(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	s, cleanup := newTestStore(t)
	defer cleanup()

	_, err := s.Read(context.Background(), "THIS IS NOT CYPHER", nil)
	if err == nil {
		t.Fatal("Expected error for malformed query")
	}
	if !apperrors.IsErrorType(err, apperrors.ErrorTypeQuery) {
		t.Errorf("Expected query error, got %v", err)
	}
}

func TestStore_Read_ExpiredContext(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	s, cleanup := newTestStore(t)
	defer cleanup()

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := s.Read(ctx, "RETURN 1 as n", nil)
	if err == nil {
		t.Fatal("Expected error for expired context")
	}
	if !apperrors.IsErrorType(err, apperrors.ErrorTypeContext) {
		t.Errorf("Expected context error, got %v", err)
	}
}

func TestStore_WriteRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	s, cleanup := newTestStore(t)
	defer cleanup()

	ctx := context.Background()
	id := fmt.Sprintf("test-store-%d", time.Now().UnixNano())
	defer func() {
		_, _ = s.Write(ctx, "MATCH (n:StoreProbe {id: $id}) DETACH DELETE n", map[string]interface{}{"id": id})
	}()

	_, err := s.Write(ctx, "CREATE (n:StoreProbe {id: $id})", map[string]interface{}{"id": id})
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	records, err := s.Read(ctx, "MATCH (n:StoreProbe {id: $id}) RETURN n.id as id", map[string]interface{}{"id": id})
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}
}

func newTestStore(t *testing.T) (*Store, func()) {
	t.Helper()
	uri := envOr("NEO4J_URI", "bolt://localhost:7687")
	user := envOr("NEO4J_USER", "neo4j")
	password := envOr("NEO4J_PASSWORD", "password")

	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		t.Fatalf("Failed to create driver: %v", err)
	}
	ctx := context.Background()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		t.Fatalf("Failed to verify connectivity: %v", err)
	}

	s := New(driver)
	return s, func() {
		_ = s.Close(context.Background())
	}
}

func envOr(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
