package knowledge

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"devpath/backend/internal/store"
	apperrors "devpath/backend/pkg/errors"
	"devpath/backend/pkg/logger"
)

// ConceptRepository handles CRUD and relationship management for concepts
type ConceptRepository struct {
	store  *store.Store
	logger *zap.Logger
}

// NewConceptRepository creates a new concept repository
func NewConceptRepository(s *store.Store) *ConceptRepository {
	return &ConceptRepository{
		store:  s,
		logger: logger.Get(),
	}
}

// AddConcept merges the concept node by id, then attaches prerequisite and
// similarity edges plus any inline resources and examples. Node and edge
// statements are separate, so a mid-flight failure can leave a partial edge
// set; re-invoking with the same concept repairs it (everything merges).
func (r *ConceptRepository) AddConcept(ctx context.Context, concept Concept) error {
	if err := validateConcept(concept); err != nil {
		return err
	}

	query := `
		MERGE (c:Concept {id: $id})
		SET c.name = $name,
		    c.description = $description,
		    c.type = $type,
		    c.difficulty = $difficulty,
		    c.created_at = coalesce(c.created_at, datetime())
	`

	_, err := r.store.Write(ctx, query, map[string]interface{}{
		"id":          concept.ID,
		"name":        concept.Name,
		"description": concept.Description,
		"type":        string(concept.Type),
		"difficulty":  concept.Difficulty,
	})
	if err != nil {
		return err
	}

	for _, prereqID := range concept.Prerequisites {
		edgeQuery := `
			MATCH (c:Concept {id: $conceptId})
			MATCH (p:Concept {id: $prereqId})
			MERGE (c)-[:REQUIRES]->(p)
		`
		if _, err := r.store.Write(ctx, edgeQuery, map[string]interface{}{
			"conceptId": concept.ID,
			"prereqId":  prereqID,
		}); err != nil {
			return err
		}
	}

	for _, relatedID := range concept.RelatedConcepts {
		edgeQuery := `
			MATCH (c:Concept {id: $conceptId})
			MATCH (o:Concept {id: $relatedId})
			MERGE (c)-[:SIMILAR_TO]->(o)
		`
		if _, err := r.store.Write(ctx, edgeQuery, map[string]interface{}{
			"conceptId": concept.ID,
			"relatedId": relatedID,
		}); err != nil {
			return err
		}
	}

	for _, example := range concept.Examples {
		if _, err := r.AddCodeExample(ctx, concept.ID, example); err != nil {
			return err
		}
	}
	for _, resource := range concept.Resources {
		if _, err := r.AddResource(ctx, concept.ID, resource); err != nil {
			return err
		}
	}

	r.logger.Info("Concept upserted",
		zap.String("concept_id", concept.ID),
		zap.Int("prerequisites", len(concept.Prerequisites)),
	)
	return nil
}

// GetConceptByID fetches a concept with its prerequisites, examples and
// resources. Returns nil (not an error) when the concept does not exist.
func (r *ConceptRepository) GetConceptByID(ctx context.Context, id string) (*Concept, error) {
	query := `
		MATCH (c:Concept {id: $id})
		OPTIONAL MATCH (c)-[:REQUIRES]->(p:Concept)
		OPTIONAL MATCH (c)-[:SIMILAR_TO]->(s:Concept)
		OPTIONAL MATCH (c)-[:HAS_EXAMPLE]->(e:Example)
		OPTIONAL MATCH (c)-[:HAS_RESOURCE]->(res:Resource)
		RETURN
			c.id as id,
			c.name as name,
			c.description as description,
			c.type as type,
			c.difficulty as difficulty,
			collect(DISTINCT p.id) as prerequisites,
			collect(DISTINCT s.id) as relatedConcepts,
			collect(DISTINCT {
				id: e.id, title: e.title, code: e.code,
				explanation: e.explanation, language: e.language
			}) as examples,
			collect(DISTINCT {
				id: res.id, title: res.title, url: res.url,
				type: res.type, difficulty: res.difficulty, tags: res.tags
			}) as resources
	`

	records, err := r.store.Read(ctx, query, map[string]interface{}{"id": id})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	record := records[0]
	concept := &Concept{
		ID:              getStringFromRecord(record, "id"),
		Name:            getStringFromRecord(record, "name"),
		Description:     getStringFromRecord(record, "description"),
		Type:            ConceptType(getStringFromRecord(record, "type")),
		Difficulty:      getIntFromRecord(record, "difficulty"),
		Prerequisites:   getStringSliceFromRecord(record, "prerequisites"),
		RelatedConcepts: getStringSliceFromRecord(record, "relatedConcepts"),
		Examples:        []CodeExample{},
		Resources:       []Resource{},
	}

	for _, m := range getMapSliceFromRecord(record, "examples") {
		// OPTIONAL MATCH with no matches collects one all-null map
		if getStringFromMap(m, "id") == "" {
			continue
		}
		concept.Examples = append(concept.Examples, CodeExample{
			ID:          getStringFromMap(m, "id"),
			Title:       getStringFromMap(m, "title"),
			Code:        getStringFromMap(m, "code"),
			Explanation: getStringFromMap(m, "explanation"),
			Language:    getStringFromMap(m, "language"),
		})
	}

	for _, m := range getMapSliceFromRecord(record, "resources") {
		if getStringFromMap(m, "id") == "" {
			continue
		}
		concept.Resources = append(concept.Resources, Resource{
			ID:         getStringFromMap(m, "id"),
			Title:      getStringFromMap(m, "title"),
			URL:        getStringFromMap(m, "url"),
			Type:       ResourceType(getStringFromMap(m, "type")),
			Difficulty: getIntFromMap(m, "difficulty"),
			Tags:       getStringSliceFromMap(m, "tags"),
		})
	}

	return concept, nil
}

// GetRelatedConcepts returns concepts connected to the given one by any
// relationship type in either direction. Display semantics, not prerequisite
// semantics.
func (r *ConceptRepository) GetRelatedConcepts(ctx context.Context, id string) ([]Concept, error) {
	query := `
		MATCH (c:Concept {id: $id})-[]-(related:Concept)
		WHERE related.id <> $id
		RETURN DISTINCT
			related.id as id,
			related.name as name,
			related.description as description,
			related.type as type,
			related.difficulty as difficulty
		ORDER BY related.id
	`

	records, err := r.store.Read(ctx, query, map[string]interface{}{"id": id})
	if err != nil {
		return nil, err
	}

	concepts := make([]Concept, 0, len(records))
	for _, record := range records {
		concepts = append(concepts, Concept{
			ID:          getStringFromRecord(record, "id"),
			Name:        getStringFromRecord(record, "name"),
			Description: getStringFromRecord(record, "description"),
			Type:        ConceptType(getStringFromRecord(record, "type")),
			Difficulty:  getIntFromRecord(record, "difficulty"),
		})
	}
	return concepts, nil
}

// GetGraphData returns a full snapshot of the concept graph for the
// visualization layer. Node and relationship scans run concurrently; both
// are full scans, acceptable only at knowledge-base scale.
func (r *ConceptRepository) GetGraphData(ctx context.Context) (*GraphData, error) {
	data := &GraphData{
		Nodes:         []ConceptSummary{},
		Relationships: []Relationship{},
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		query := `
			MATCH (c:Concept)
			RETURN c.id as id, c.name as name, c.type as type, c.difficulty as difficulty
			ORDER BY c.id
		`
		records, err := r.store.Read(gctx, query, nil)
		if err != nil {
			return err
		}
		for _, record := range records {
			data.Nodes = append(data.Nodes, ConceptSummary{
				ID:         getStringFromRecord(record, "id"),
				Name:       getStringFromRecord(record, "name"),
				Type:       ConceptType(getStringFromRecord(record, "type")),
				Difficulty: getIntFromRecord(record, "difficulty"),
			})
		}
		return nil
	})

	g.Go(func() error {
		query := `
			MATCH (a:Concept)-[rel]->(b:Concept)
			RETURN a.id as source, b.id as target, type(rel) as type
			ORDER BY source, target, type
		`
		records, err := r.store.Read(gctx, query, nil)
		if err != nil {
			return err
		}
		for _, record := range records {
			data.Relationships = append(data.Relationships, Relationship{
				Source: getStringFromRecord(record, "source"),
				Target: getStringFromRecord(record, "target"),
				Type:   RelationshipType(getStringFromRecord(record, "type")),
			})
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return data, nil
}

// AddCodeExample attaches an example to a concept via HAS_EXAMPLE
func (r *ConceptRepository) AddCodeExample(ctx context.Context, conceptID string, example CodeExample) (*CodeExample, error) {
	if example.ID == "" {
		example.ID = uuid.New().String()
	}

	query := `
		MATCH (c:Concept {id: $conceptId})
		MERGE (e:Example {id: $id})
		SET e.title = $title,
		    e.code = $code,
		    e.explanation = $explanation,
		    e.language = $language
		MERGE (c)-[:HAS_EXAMPLE]->(e)
		RETURN e.id as id
	`

	records, err := r.store.Write(ctx, query, map[string]interface{}{
		"conceptId":   conceptID,
		"id":          example.ID,
		"title":       example.Title,
		"code":        example.Code,
		"explanation": example.Explanation,
		"language":    example.Language,
	})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		// MATCH found no concept node
		return nil, nil
	}

	r.logger.Info("Code example attached",
		zap.String("concept_id", conceptID),
		zap.String("example_id", example.ID),
	)
	return &example, nil
}

// AddResource attaches a learning resource to a concept via HAS_RESOURCE
func (r *ConceptRepository) AddResource(ctx context.Context, conceptID string, resource Resource) (*Resource, error) {
	if resource.ID == "" {
		resource.ID = uuid.New().String()
	}
	if resource.Tags == nil {
		resource.Tags = []string{}
	}

	query := `
		MATCH (c:Concept {id: $conceptId})
		MERGE (res:Resource {id: $id})
		SET res.title = $title,
		    res.url = $url,
		    res.type = $type,
		    res.difficulty = $difficulty,
		    res.tags = $tags
		MERGE (c)-[:HAS_RESOURCE]->(res)
		RETURN res.id as id
	`

	records, err := r.store.Write(ctx, query, map[string]interface{}{
		"conceptId":  conceptID,
		"id":         resource.ID,
		"title":      resource.Title,
		"url":        resource.URL,
		"type":       string(resource.Type),
		"difficulty": resource.Difficulty,
		"tags":       resource.Tags,
	})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	r.logger.Info("Resource attached",
		zap.String("concept_id", conceptID),
		zap.String("resource_id", resource.ID),
	)
	return &resource, nil
}

// AddRelationship creates a typed edge between two existing concepts. The
// type is interpolated into the statement, so it is validated against the
// closed set first.
func (r *ConceptRepository) AddRelationship(ctx context.Context, rel Relationship) error {
	if !ValidRelationshipType(rel.Type) {
		return apperrors.NewInvalidRelationship(string(rel.Type))
	}
	if rel.Source == rel.Target && rel.Type == RelRequires {
		return apperrors.NewInvalidConcept(rel.Source, "concept cannot require itself")
	}

	query := fmt.Sprintf(`
		MATCH (a:Concept {id: $source})
		MATCH (b:Concept {id: $target})
		MERGE (a)-[:%s]->(b)
	`, rel.Type)

	_, err := r.store.Write(ctx, query, map[string]interface{}{
		"source": rel.Source,
		"target": rel.Target,
	})
	if err != nil {
		return err
	}

	r.logger.Info("Relationship created",
		zap.String("source", rel.Source),
		zap.String("target", rel.Target),
		zap.String("type", string(rel.Type)),
	)
	return nil
}

func validateConcept(c Concept) error {
	if c.ID == "" {
		return apperrors.NewInvalidConcept(c.ID, "id is required")
	}
	if c.Difficulty < 1 || c.Difficulty > 10 {
		return apperrors.NewInvalidConcept(c.ID, fmt.Sprintf("difficulty %d outside [1,10]", c.Difficulty))
	}
	for _, prereqID := range c.Prerequisites {
		if prereqID == c.ID {
			return apperrors.NewInvalidConcept(c.ID, "concept cannot require itself")
		}
	}
	return nil
}
