package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"devpath/backend/internal/knowledge"
	"devpath/backend/internal/store"
	"devpath/backend/pkg/config"
	"devpath/backend/pkg/logger"
)

func main() {
	skipSample := flag.Bool("skip-sample", false, "Only create constraints and indexes, skip sample data")
	flag.Parse()

	// Initialize logger
	if err := logger.Init("development"); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting database seeding...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Initialize Neo4j driver
	driver, err := neo4j.NewDriverWithContext(
		cfg.Neo4jURI,
		neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""),
	)
	if err != nil {
		log.Fatal("Failed to create Neo4j driver", zap.Error(err))
	}
	defer driver.Close(context.Background())

	ctx := context.Background()
	graphStore := store.New(driver)
	if !graphStore.VerifyConnection(ctx) {
		log.Fatal("Failed to verify Neo4j connectivity", zap.String("uri", cfg.Neo4jURI))
	}

	// Create constraints
	log.Info("Creating constraints...")
	if err := createConstraints(ctx, graphStore); err != nil {
		log.Warn("Failed to create some constraints (may already exist)", zap.Error(err))
	}

	// Create indexes for better performance
	log.Info("Creating indexes...")
	if err := createIndexes(ctx, graphStore); err != nil {
		log.Warn("Failed to create some indexes (may already exist)", zap.Error(err))
	}

	if *skipSample {
		log.Info("Skipping sample data")
		os.Exit(0)
	}

	repo := knowledge.NewConceptRepository(graphStore)

	// Check whether the sample graph is already present
	existing, err := repo.GetConceptByID(ctx, "go-basics")
	if err != nil {
		log.Fatal("Failed to check for existing data", zap.Error(err))
	}
	if existing != nil {
		log.Info("Sample graph already present, skipping")
		os.Exit(0)
	}

	log.Info("Seeding sample concept graph...")
	if err := seedConcepts(ctx, repo); err != nil {
		log.Fatal("Failed to seed concepts", zap.Error(err))
	}

	log.Info("Database seeding completed")
}

func createConstraints(ctx context.Context, s *store.Store) error {
	constraints := []string{
		"CREATE CONSTRAINT concept_id IF NOT EXISTS FOR (c:Concept) REQUIRE c.id IS UNIQUE",
		"CREATE CONSTRAINT example_id IF NOT EXISTS FOR (e:Example) REQUIRE e.id IS UNIQUE",
		"CREATE CONSTRAINT resource_id IF NOT EXISTS FOR (r:Resource) REQUIRE r.id IS UNIQUE",
		"CREATE CONSTRAINT path_id IF NOT EXISTS FOR (p:LearningPath) REQUIRE p.id IS UNIQUE",
		"CREATE CONSTRAINT user_id IF NOT EXISTS FOR (u:User) REQUIRE u.id IS UNIQUE",
		"CREATE CONSTRAINT attempt_id IF NOT EXISTS FOR (a:Attempt) REQUIRE a.id IS UNIQUE",
	}
	for _, constraint := range constraints {
		if _, err := s.Write(ctx, constraint, nil); err != nil {
			return err
		}
	}
	return nil
}

func createIndexes(ctx context.Context, s *store.Store) error {
	indexes := []string{
		"CREATE INDEX concept_type IF NOT EXISTS FOR (c:Concept) ON (c.type)",
		"CREATE INDEX concept_difficulty IF NOT EXISTS FOR (c:Concept) ON (c.difficulty)",
		"CREATE INDEX path_user IF NOT EXISTS FOR (p:LearningPath) ON (p.userId)",
	}
	for _, index := range indexes {
		if _, err := s.Write(ctx, index, nil); err != nil {
			return err
		}
	}
	return nil
}

// seedConcepts creates a small starter graph. Concepts go in sequentially in
// dependency order so prerequisite edges always find both endpoints; the
// per-concept resources fan out concurrently afterwards.
func seedConcepts(ctx context.Context, repo *knowledge.ConceptRepository) error {
	concepts := []knowledge.Concept{
		{
			ID:          "go-basics",
			Name:        "Go Basics",
			Description: "Syntax, types, functions and control flow in Go",
			Type:        knowledge.ConceptTypeLanguage,
			Difficulty:  1,
		},
		{
			ID:            "go-slices-maps",
			Name:          "Slices and Maps",
			Description:   "Go's built-in collection types and their mechanics",
			Type:          knowledge.ConceptTypeDataStructure,
			Difficulty:    2,
			Prerequisites: []string{"go-basics"},
		},
		{
			ID:            "go-interfaces",
			Name:          "Interfaces",
			Description:   "Implicit interface satisfaction and composition",
			Type:          knowledge.ConceptTypePattern,
			Difficulty:    4,
			Prerequisites: []string{"go-basics"},
		},
		{
			ID:            "go-error-handling",
			Name:          "Error Handling",
			Description:   "Errors as values, wrapping and sentinel errors",
			Type:          knowledge.ConceptTypeBestPractice,
			Difficulty:    3,
			Prerequisites: []string{"go-basics", "go-interfaces"},
		},
		{
			ID:              "go-concurrency",
			Name:            "Concurrency",
			Description:     "Goroutines, channels and the select statement",
			Type:            knowledge.ConceptTypePattern,
			Difficulty:      6,
			Prerequisites:   []string{"go-slices-maps", "go-interfaces"},
			RelatedConcepts: []string{"go-error-handling"},
		},
		{
			ID:            "graph-traversal",
			Name:          "Graph Traversal",
			Description:   "Breadth-first and depth-first search over graphs",
			Type:          knowledge.ConceptTypeAlgorithm,
			Difficulty:    5,
			Prerequisites: []string{"go-slices-maps"},
		},
		{
			ID:            "topological-sort",
			Name:          "Topological Sort",
			Description:   "Ordering directed acyclic graphs with Kahn's algorithm",
			Type:          knowledge.ConceptTypeAlgorithm,
			Difficulty:    6,
			Prerequisites: []string{"graph-traversal"},
		},
	}

	for _, concept := range concepts {
		if err := repo.AddConcept(ctx, concept); err != nil {
			return err
		}
	}

	resources := map[string]knowledge.Resource{
		"go-basics": {
			Title:      "A Tour of Go",
			URL:        "https://go.dev/tour/",
			Type:       knowledge.ResourceTypeTutorial,
			Difficulty: 1,
			Tags:       []string{"official", "interactive"},
		},
		"go-concurrency": {
			Title:      "Share Memory By Communicating",
			URL:        "https://go.dev/blog/codelab-share",
			Type:       knowledge.ResourceTypeArticle,
			Difficulty: 5,
			Tags:       []string{"official", "channels"},
		},
		"topological-sort": {
			Title:      "Kahn's algorithm",
			URL:        "https://en.wikipedia.org/wiki/Topological_sorting",
			Type:       knowledge.ResourceTypeDocumentation,
			Difficulty: 4,
			Tags:       []string{"algorithms"},
		},
	}

	g, gctx := errgroup.WithContext(ctx)
	for conceptID, resource := range resources {
		id, res := conceptID, resource
		g.Go(func() error {
			_, err := repo.AddResource(gctx, id, res)
			return err
		})
	}
	return g.Wait()
}
