package knowledge

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"devpath/backend/internal/store"
	apperrors "devpath/backend/pkg/errors"
)

// Integration tests require a running Neo4j instance.
// Set NEO4J_URI, NEO4J_USER, NEO4J_PASSWORD environment variables.

func TestConceptRepository_AddConcept_RejectsSelfPrerequisite(t *testing.T) {
	repo := NewConceptRepository(nil)

	err := repo.AddConcept(context.Background(), Concept{
		ID:            "self",
		Name:          "Self",
		Type:          ConceptTypePattern,
		Difficulty:    3,
		Prerequisites: []string{"self"},
	})
	if err == nil {
		t.Fatal("Expected validation error for self-prerequisite")
	}
	if !apperrors.IsErrorType(err, apperrors.ErrorTypeValidation) {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestConceptRepository_AddConcept_RejectsDifficultyOutOfRange(t *testing.T) {
	repo := NewConceptRepository(nil)

	for _, difficulty := range []int{0, 11, -5} {
		err := repo.AddConcept(context.Background(), Concept{
			ID:         "bad-difficulty",
			Name:       "Bad",
			Type:       ConceptTypePattern,
			Difficulty: difficulty,
		})
		if err == nil {
			t.Errorf("Expected validation error for difficulty %d", difficulty)
		}
	}
}

func TestConceptRepository_AddConcept_RejectsEmptyID(t *testing.T) {
	repo := NewConceptRepository(nil)

	err := repo.AddConcept(context.Background(), Concept{Name: "No ID", Difficulty: 1})
	if err == nil {
		t.Fatal("Expected validation error for empty id")
	}
}

func TestConceptRepository_AddRelationship_RejectsUnknownType(t *testing.T) {
	repo := NewConceptRepository(nil)

	err := repo.AddRelationship(context.Background(), Relationship{
		Source: "a",
		Target: "b",
		Type:   RelationshipType("DROP_DATABASE"),
	})
	if err == nil {
		t.Fatal("Expected validation error for unknown relationship type")
	}
	if !apperrors.IsErrorType(err, apperrors.ErrorTypeValidation) {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestConceptRepository_AddConcept_Idempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	s, cleanup := newTestStore(t)
	defer cleanup()

	repo := NewConceptRepository(s)
	conceptID := testID("idempotent")
	defer deleteTestConcepts(t, s, conceptID)

	concept := Concept{
		ID:          conceptID,
		Name:        "Idempotent Concept",
		Description: "Added twice",
		Type:        ConceptTypePattern,
		Difficulty:  4,
	}

	if err := repo.AddConcept(ctx, concept); err != nil {
		t.Fatalf("First AddConcept failed: %v", err)
	}
	if err := repo.AddConcept(ctx, concept); err != nil {
		t.Fatalf("Second AddConcept failed: %v", err)
	}

	records, err := s.Read(ctx, "MATCH (c:Concept {id: $id}) RETURN count(c) as count",
		map[string]interface{}{"id": conceptID})
	if err != nil {
		t.Fatalf("Count query failed: %v", err)
	}
	if count := getIntFromRecord(records[0], "count"); count != 1 {
		t.Errorf("Expected exactly 1 node, got %d", count)
	}
}

func TestConceptRepository_RoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	s, cleanup := newTestStore(t)
	defer cleanup()

	repo := NewConceptRepository(s)
	prereqID := testID("roundtrip-prereq")
	conceptID := testID("roundtrip")
	defer deleteTestConcepts(t, s, prereqID, conceptID)

	prereq := Concept{
		ID:         prereqID,
		Name:       "Prerequisite",
		Type:       ConceptTypeLanguage,
		Difficulty: 1,
	}
	concept := Concept{
		ID:            conceptID,
		Name:          "Round Trip",
		Description:   "A concept that comes back equal",
		Type:          ConceptTypeAlgorithm,
		Difficulty:    7,
		Prerequisites: []string{prereqID},
	}

	if err := repo.AddConcept(ctx, prereq); err != nil {
		t.Fatalf("AddConcept prereq failed: %v", err)
	}
	if err := repo.AddConcept(ctx, concept); err != nil {
		t.Fatalf("AddConcept failed: %v", err)
	}

	got, err := repo.GetConceptByID(ctx, conceptID)
	if err != nil {
		t.Fatalf("GetConceptByID failed: %v", err)
	}
	if got == nil {
		t.Fatal("Concept not found after add")
	}
	if got.ID != concept.ID || got.Name != concept.Name || got.Description != concept.Description {
		t.Errorf("Concept fields do not round trip: got %+v", got)
	}
	if got.Type != concept.Type || got.Difficulty != concept.Difficulty {
		t.Errorf("Type/difficulty do not round trip: got %s/%d", got.Type, got.Difficulty)
	}
	if len(got.Prerequisites) != 1 || got.Prerequisites[0] != prereqID {
		t.Errorf("Expected prerequisites [%s], got %v", prereqID, got.Prerequisites)
	}
}

func TestConceptRepository_GetConceptByID_NotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	s, cleanup := newTestStore(t)
	defer cleanup()

	repo := NewConceptRepository(s)
	got, err := repo.GetConceptByID(ctx, "does-not-exist-"+testID("missing"))
	if err != nil {
		t.Fatalf("GetConceptByID failed: %v", err)
	}
	if got != nil {
		t.Errorf("Expected nil for missing concept, got %+v", got)
	}
}

func TestConceptRepository_AddCodeExample(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	s, cleanup := newTestStore(t)
	defer cleanup()

	repo := NewConceptRepository(s)
	conceptID := testID("example-host")
	defer deleteTestConcepts(t, s, conceptID)

	if err := repo.AddConcept(ctx, Concept{
		ID: conceptID, Name: "Example Host", Type: ConceptTypePattern, Difficulty: 2,
	}); err != nil {
		t.Fatalf("AddConcept failed: %v", err)
	}

	created, err := repo.AddCodeExample(ctx, conceptID, CodeExample{
		Title:       "Hello",
		Code:        `fmt.Println("hello")`,
		Explanation: "Prints a greeting",
		Language:    "go",
	})
	if err != nil {
		t.Fatalf("AddCodeExample failed: %v", err)
	}
	if created == nil || created.ID == "" {
		t.Fatal("Expected example with generated id")
	}

	got, err := repo.GetConceptByID(ctx, conceptID)
	if err != nil {
		t.Fatalf("GetConceptByID failed: %v", err)
	}
	if len(got.Examples) != 1 || got.Examples[0].Code != `fmt.Println("hello")` {
		t.Errorf("Expected attached example, got %+v", got.Examples)
	}
}

func TestConceptRepository_AddCodeExample_MissingConcept(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	s, cleanup := newTestStore(t)
	defer cleanup()

	repo := NewConceptRepository(s)
	created, err := repo.AddCodeExample(ctx, "missing-"+testID("concept"), CodeExample{Code: "x"})
	if err != nil {
		t.Fatalf("AddCodeExample failed: %v", err)
	}
	if created != nil {
		t.Errorf("Expected nil for missing concept, got %+v", created)
	}
}

func TestConceptRepository_GetRelatedConcepts(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	s, cleanup := newTestStore(t)
	defer cleanup()

	repo := NewConceptRepository(s)
	baseID := testID("related-base")
	requiredID := testID("related-required")
	similarID := testID("related-similar")
	defer deleteTestConcepts(t, s, baseID, requiredID, similarID)

	for _, c := range []Concept{
		{ID: baseID, Name: "Base", Type: ConceptTypePattern, Difficulty: 3},
		{ID: requiredID, Name: "Required", Type: ConceptTypePattern, Difficulty: 2},
		{ID: similarID, Name: "Similar", Type: ConceptTypePattern, Difficulty: 3},
	} {
		if err := repo.AddConcept(ctx, c); err != nil {
			t.Fatalf("AddConcept failed: %v", err)
		}
	}

	// One outgoing REQUIRES, one incoming SIMILAR_TO; both must appear
	if err := repo.AddRelationship(ctx, Relationship{Source: baseID, Target: requiredID, Type: RelRequires}); err != nil {
		t.Fatalf("AddRelationship failed: %v", err)
	}
	if err := repo.AddRelationship(ctx, Relationship{Source: similarID, Target: baseID, Type: RelSimilarTo}); err != nil {
		t.Fatalf("AddRelationship failed: %v", err)
	}

	related, err := repo.GetRelatedConcepts(ctx, baseID)
	if err != nil {
		t.Fatalf("GetRelatedConcepts failed: %v", err)
	}
	found := map[string]bool{}
	for _, c := range related {
		found[c.ID] = true
	}
	if !found[requiredID] || !found[similarID] {
		t.Errorf("Expected both neighbors, got %v", found)
	}
}

func TestConceptRepository_GetGraphData(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	s, cleanup := newTestStore(t)
	defer cleanup()

	repo := NewConceptRepository(s)
	aID := testID("graphdata-a")
	bID := testID("graphdata-b")
	defer deleteTestConcepts(t, s, aID, bID)

	if err := repo.AddConcept(ctx, Concept{ID: aID, Name: "A", Type: ConceptTypePattern, Difficulty: 1}); err != nil {
		t.Fatalf("AddConcept failed: %v", err)
	}
	if err := repo.AddConcept(ctx, Concept{
		ID: bID, Name: "B", Type: ConceptTypePattern, Difficulty: 2, Prerequisites: []string{aID},
	}); err != nil {
		t.Fatalf("AddConcept failed: %v", err)
	}

	data, err := repo.GetGraphData(ctx)
	if err != nil {
		t.Fatalf("GetGraphData failed: %v", err)
	}

	nodes := map[string]bool{}
	for _, n := range data.Nodes {
		nodes[n.ID] = true
	}
	if !nodes[aID] || !nodes[bID] {
		t.Error("Snapshot missing seeded nodes")
	}

	foundEdge := false
	for _, rel := range data.Relationships {
		if rel.Source == bID && rel.Target == aID && rel.Type == RelRequires {
			foundEdge = true
		}
	}
	if !foundEdge {
		t.Error("Snapshot missing REQUIRES edge")
	}
}

// Test helpers

func newTestStore(t *testing.T) (*store.Store, func()) {
	t.Helper()
	driver, err := createTestDriver()
	if err != nil {
		t.Fatalf("Failed to create driver: %v", err)
	}
	s := store.New(driver)
	return s, func() {
		_ = s.Close(context.Background())
	}
}

func createTestDriver() (neo4j.DriverWithContext, error) {
	uri := envOr("NEO4J_URI", "bolt://localhost:7687")
	user := envOr("NEO4J_USER", "neo4j")
	password := envOr("NEO4J_PASSWORD", "password")

	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, err
	}

	return driver, nil
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

func deleteTestConcepts(t *testing.T, s *store.Store, ids ...string) {
	t.Helper()
	ctx := context.Background()
	_, err := s.Write(ctx, `
		MATCH (c:Concept) WHERE c.id IN $ids
		OPTIONAL MATCH (c)-[:HAS_EXAMPLE]->(e:Example)
		OPTIONAL MATCH (c)-[:HAS_RESOURCE]->(r:Resource)
		DETACH DELETE c, e, r
	`, map[string]interface{}{"ids": ids})
	if err != nil {
		t.Logf("Cleanup failed: %v", err)
	}
}
