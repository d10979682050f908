package suggest

import (
	"context"
	"sort"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"devpath/backend/internal/knowledge"
	"devpath/backend/internal/store"
	"devpath/backend/pkg/logger"
)

// DefaultCount is used when a caller asks for a non-positive number of
// suggestions
const DefaultCount = 5

// Engine ranks next-learnable concepts from a user's observed proficiency
type Engine struct {
	store  *store.Store
	logger *zap.Logger
}

// NewEngine creates a new suggestion engine
func NewEngine(s *store.Store) *Engine {
	return &Engine{
		store:  s,
		logger: logger.Get(),
	}
}

// candidate is one eligible concept with the average proficiency the user
// holds across its known prerequisites
type candidate struct {
	concept        knowledge.Concept
	avgProficiency float64
}

// SuggestNextConcepts returns up to count concepts the user is ready to
// learn next. A concept is eligible when it REQUIRES at least one concept
// the user already knows and the user has no KNOWS edge to it. Eligible
// concepts are ranked by average proficiency across known prerequisites
// (descending), then lower difficulty, then id.
func (e *Engine) SuggestNextConcepts(ctx context.Context, userID string, count int) ([]knowledge.Concept, error) {
	if count <= 0 {
		count = DefaultCount
	}

	query := `
		MATCH (u:User {id: $userId})-[k:KNOWS]->(known:Concept)
		MATCH (next:Concept)-[:REQUIRES]->(known)
		WHERE NOT (u)-[:KNOWS]->(next)
		WITH next, avg(k.proficiency) as avgProficiency
		RETURN
			next.id as id,
			next.name as name,
			next.description as description,
			next.type as type,
			next.difficulty as difficulty,
			avgProficiency
	`

	records, err := e.store.Read(ctx, query, map[string]interface{}{"userId": userID})
	if err != nil {
		return nil, err
	}

	candidates := make([]candidate, 0, len(records))
	for _, record := range records {
		candidates = append(candidates, candidate{
			concept: knowledge.Concept{
				ID:          getStringFromRecord(record, "id"),
				Name:        getStringFromRecord(record, "name"),
				Description: getStringFromRecord(record, "description"),
				Type:        knowledge.ConceptType(getStringFromRecord(record, "type")),
				Difficulty:  getIntFromRecord(record, "difficulty"),
			},
			avgProficiency: getFloat64FromRecord(record, "avgProficiency"),
		})
	}

	suggestions := rank(candidates, count)

	e.logger.Debug("Suggestions computed",
		zap.String("user_id", userID),
		zap.Int("eligible", len(candidates)),
		zap.Int("returned", len(suggestions)),
	)
	return suggestions, nil
}

// rank orders candidates by readiness and takes the top count. Ties are
// broken by lower difficulty, then id, so results are deterministic.
func rank(candidates []candidate, count int) []knowledge.Concept {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.avgProficiency != b.avgProficiency {
			return a.avgProficiency > b.avgProficiency
		}
		if a.concept.Difficulty != b.concept.Difficulty {
			return a.concept.Difficulty < b.concept.Difficulty
		}
		return a.concept.ID < b.concept.ID
	})

	if count > len(candidates) {
		count = len(candidates)
	}
	result := make([]knowledge.Concept, 0, count)
	for _, c := range candidates[:count] {
		result = append(result, c.concept)
	}
	return result
}

func getStringFromRecord(record *neo4j.Record, key string) string {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return ""
	}
	if str, ok := val.(string); ok {
		return str
	}
	return ""
}

func getIntFromRecord(record *neo4j.Record, key string) int {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return 0
	}
	if i, ok := val.(int64); ok {
		return int(i)
	}
	if f, ok := val.(float64); ok {
		return int(f)
	}
	return 0
}

func getFloat64FromRecord(record *neo4j.Record, key string) float64 {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return 0.0
	}
	if f, ok := val.(float64); ok {
		return f
	}
	if i, ok := val.(int64); ok {
		return float64(i)
	}
	return 0.0
}
