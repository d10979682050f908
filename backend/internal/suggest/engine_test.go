package suggest

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"devpath/backend/internal/knowledge"
	"devpath/backend/internal/store"
)

// Integration tests require a running Neo4j instance.
// Set NEO4J_URI, NEO4J_USER, NEO4J_PASSWORD environment variables.

func TestSuggestNextConcepts(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	s, cleanup := newTestStore(t)
	defer cleanup()

	repo := knowledge.NewConceptRepository(s)
	tracker := knowledge.NewStateTracker(s)
	engine := NewEngine(s)

	userID := testID("suggest-user")
	known := testID("suggest-known")
	next := testID("suggest-next")
	defer deleteTestData(t, s, userID, known, next)

	if err := repo.AddConcept(ctx, knowledge.Concept{
		ID: known, Name: "Known", Type: knowledge.ConceptTypeLanguage, Difficulty: 1,
	}); err != nil {
		t.Fatalf("AddConcept failed: %v", err)
	}
	if err := repo.AddConcept(ctx, knowledge.Concept{
		ID: next, Name: "Next", Type: knowledge.ConceptTypePattern, Difficulty: 2,
		Prerequisites: []string{known},
	}); err != nil {
		t.Fatalf("AddConcept failed: %v", err)
	}
	if err := tracker.UpdateUserKnowledge(ctx, knowledge.UserKnowledge{
		UserID: userID, ConceptID: known, Proficiency: 8,
	}); err != nil {
		t.Fatalf("UpdateUserKnowledge failed: %v", err)
	}

	suggestions, err := engine.SuggestNextConcepts(ctx, userID, 5)
	if err != nil {
		t.Fatalf("SuggestNextConcepts failed: %v", err)
	}
	if len(suggestions) != 1 {
		t.Fatalf("Expected exactly 1 suggestion, got %d: %+v", len(suggestions), suggestions)
	}
	if suggestions[0].ID != next {
		t.Errorf("Expected %s, got %s", next, suggestions[0].ID)
	}
}

func TestSuggestNextConcepts_ExcludesKnown(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	s, cleanup := newTestStore(t)
	defer cleanup()

	repo := knowledge.NewConceptRepository(s)
	tracker := knowledge.NewStateTracker(s)
	engine := NewEngine(s)

	userID := testID("exclude-user")
	known := testID("exclude-known")
	next := testID("exclude-next")
	defer deleteTestData(t, s, userID, known, next)

	if err := repo.AddConcept(ctx, knowledge.Concept{
		ID: known, Name: "Known", Type: knowledge.ConceptTypeLanguage, Difficulty: 1,
	}); err != nil {
		t.Fatalf("AddConcept failed: %v", err)
	}
	if err := repo.AddConcept(ctx, knowledge.Concept{
		ID: next, Name: "Next", Type: knowledge.ConceptTypePattern, Difficulty: 2,
		Prerequisites: []string{known},
	}); err != nil {
		t.Fatalf("AddConcept failed: %v", err)
	}
	// The user knows both; nothing is left to suggest from this pair
	for _, conceptID := range []string{known, next} {
		if err := tracker.UpdateUserKnowledge(ctx, knowledge.UserKnowledge{
			UserID: userID, ConceptID: conceptID, Proficiency: 6,
		}); err != nil {
			t.Fatalf("UpdateUserKnowledge failed: %v", err)
		}
	}

	suggestions, err := engine.SuggestNextConcepts(ctx, userID, 5)
	if err != nil {
		t.Fatalf("SuggestNextConcepts failed: %v", err)
	}
	for _, c := range suggestions {
		if c.ID == known || c.ID == next {
			t.Errorf("Known concept %s must not be suggested", c.ID)
		}
	}
}

func TestSuggestNextConcepts_UnknownUser(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	s, cleanup := newTestStore(t)
	defer cleanup()

	engine := NewEngine(s)
	suggestions, err := engine.SuggestNextConcepts(ctx, testID("nobody"), 5)
	if err != nil {
		t.Fatalf("SuggestNextConcepts failed: %v", err)
	}
	if len(suggestions) != 0 {
		t.Errorf("Expected no suggestions for unknown user, got %+v", suggestions)
	}
}

// Test helpers

func newTestStore(t *testing.T) (*store.Store, func()) {
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

	s := store.New(driver)
	return s, func() {
		_ = s.Close(context.Background())
	}
}

func deleteTestData(t *testing.T, s *store.Store, userID string, conceptIDs ...string) {
	t.Helper()
	ctx := context.Background()
	_, err := s.Write(ctx, `
		OPTIONAL MATCH (u:User {id: $userId})
		OPTIONAL MATCH (c:Concept) WHERE c.id IN $conceptIds
		DETACH DELETE u, c
	`, map[string]interface{}{"userId": userID, "conceptIds": conceptIDs})
	if err != nil {
		t.Logf("Cleanup failed: %v", err)
	}
}

func envOr(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func testID(prefix string) string {
	return fmt.Sprintf("test-%s-%d", prefix, time.Now().UnixNano())
}
