package learningpath

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"devpath/backend/internal/store"
	apperrors "devpath/backend/pkg/errors"
	"devpath/backend/pkg/logger"
)

// maxPrerequisiteDepth bounds the closure traversal; prerequisite chains
// longer than this many hops from the goal are omitted from generated paths.
const maxPrerequisiteDepth = 5

// LearningPath is an ordered, user-specific traversal over concepts.
// Order is persisted as a position attribute on each inclusion edge, and
// progress is always derived server-side from currentIndex and length.
type LearningPath struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	Concepts     []string  `json:"concepts"`
	CurrentIndex int       `json:"currentIndex"`
	Progress     int       `json:"progress"`
	Created      time.Time `json:"created"`
	Updated      time.Time `json:"updated"`
}

// Engine creates and advances learning paths
type Engine struct {
	store  *store.Store
	logger *zap.Logger
}

// NewEngine creates a new learning path engine
func NewEngine(s *store.Store) *Engine {
	return &Engine{
		store:  s,
		logger: logger.Get(),
	}
}

// CreateLearningPath persists an explicit ordered concept sequence for a
// user. Each inclusion edge carries its position; iteration order is never
// relied on. Path node creation and inclusion edges are separate statements,
// so callers must tolerate partial application and retry.
func (e *Engine) CreateLearningPath(ctx context.Context, userID string, conceptIDs []string) (*LearningPath, error) {
	if len(conceptIDs) == 0 {
		return nil, apperrors.NewInvalidConcept("", "learning path requires at least one concept")
	}

	pathID := uuid.New().String()
	now := time.Now().UTC()

	query := `
		MERGE (u:User {id: $userId})
		CREATE (p:LearningPath {
			id: $pathId,
			userId: $userId,
			currentIndex: 0,
			progress: 0,
			created: datetime($now),
			updated: datetime($now)
		})
		CREATE (u)-[:HAS_PATH]->(p)
	`
	_, err := e.store.Write(ctx, query, map[string]interface{}{
		"userId": userID,
		"pathId": pathID,
		"now":    now.Format(time.RFC3339),
	})
	if err != nil {
		return nil, err
	}

	for position, conceptID := range conceptIDs {
		edgeQuery := `
			MATCH (p:LearningPath {id: $pathId})
			MATCH (c:Concept {id: $conceptId})
			MERGE (p)-[i:INCLUDES]->(c)
			SET i.position = $position
		`
		if _, err := e.store.Write(ctx, edgeQuery, map[string]interface{}{
			"pathId":    pathID,
			"conceptId": conceptID,
			"position":  position,
		}); err != nil {
			return nil, err
		}
	}

	e.logger.Info("Learning path created",
		zap.String("path_id", pathID),
		zap.String("user_id", userID),
		zap.Int("concepts", len(conceptIDs)),
	)

	return &LearningPath{
		ID:           pathID,
		UserID:       userID,
		Concepts:     conceptIDs,
		CurrentIndex: 0,
		Progress:     0,
		Created:      now,
		Updated:      now,
	}, nil
}

// GenerateLearningPath derives a path to a goal concept from the prerequisite
// graph: the transitive REQUIRES closure of the goal (bounded depth), ordered
// topologically so every concept precedes anything that requires it, goal
// last. A prerequisite cycle within the bound yields ErrCycleDetected.
// Returns nil when the goal concept does not exist.
func (e *Engine) GenerateLearningPath(ctx context.Context, userID, goalConceptID string) (*LearningPath, error) {
	goalQuery := `MATCH (goal:Concept {id: $goalId}) RETURN goal.id as id`
	records, err := e.store.Read(ctx, goalQuery, map[string]interface{}{"goalId": goalConceptID})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	closureQuery := fmt.Sprintf(`
		MATCH (goal:Concept {id: $goalId})
		MATCH (goal)-[:REQUIRES*1..%d]->(p:Concept)
		RETURN DISTINCT p.id as id
	`, maxPrerequisiteDepth)
	records, err = e.store.Read(ctx, closureQuery, map[string]interface{}{"goalId": goalConceptID})
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(records)+1)
	for _, record := range records {
		if id := getStringFromRecord(record, "id"); id != "" && id != goalConceptID {
			ids = append(ids, id)
		}
	}
	ids = append(ids, goalConceptID)

	edgeQuery := `
		MATCH (a:Concept)-[:REQUIRES]->(b:Concept)
		WHERE a.id IN $ids AND b.id IN $ids
		RETURN a.id as dependent, b.id as prerequisite
	`
	records, err = e.store.Read(ctx, edgeQuery, map[string]interface{}{"ids": ids})
	if err != nil {
		return nil, err
	}

	requires := make(map[string][]string, len(ids))
	for _, record := range records {
		dependent := getStringFromRecord(record, "dependent")
		prerequisite := getStringFromRecord(record, "prerequisite")
		requires[dependent] = append(requires[dependent], prerequisite)
	}

	ordered, remaining := topologicalOrder(ids, requires)
	if len(remaining) > 0 {
		return nil, apperrors.NewCycleDetected(goalConceptID, remaining)
	}

	return e.CreateLearningPath(ctx, userID, ordered)
}

// AdvancePath moves a path forward by one concept. It is the only mutator of
// currentIndex; advancing past the final concept is a no-op, not an error.
// Progress is recomputed from the new index and the persisted length.
// Returns nil when the path does not exist.
func (e *Engine) AdvancePath(ctx context.Context, pathID string) (*LearningPath, error) {
	path, err := e.getPathByID(ctx, pathID)
	if err != nil {
		return nil, err
	}
	if path == nil {
		return nil, nil
	}

	if path.CurrentIndex >= len(path.Concepts)-1 {
		return path, nil
	}

	path.CurrentIndex++
	path.Progress = progressFor(path.CurrentIndex, len(path.Concepts))
	return e.persistPosition(ctx, path)
}

// UpdateLearningPath accepts a caller-supplied currentIndex (clamped to the
// persisted sequence bounds) and recomputes progress server-side; a
// client-supplied progress value is never trusted. Returns nil when the path
// does not exist.
func (e *Engine) UpdateLearningPath(ctx context.Context, updated LearningPath) (*LearningPath, error) {
	path, err := e.getPathByID(ctx, updated.ID)
	if err != nil {
		return nil, err
	}
	if path == nil {
		return nil, nil
	}

	index := updated.CurrentIndex
	if index < 0 {
		index = 0
	}
	if index > len(path.Concepts)-1 {
		index = len(path.Concepts) - 1
	}

	path.CurrentIndex = index
	path.Progress = progressFor(index, len(path.Concepts))
	return e.persistPosition(ctx, path)
}

// GetUserLearningPaths returns all of a user's paths, newest first, each with
// its concept sequence rebuilt in persisted position order
func (e *Engine) GetUserLearningPaths(ctx context.Context, userID string) ([]LearningPath, error) {
	query := `
		MATCH (u:User {id: $userId})-[:HAS_PATH]->(p:LearningPath)
		OPTIONAL MATCH (p)-[i:INCLUDES]->(c:Concept)
		WITH p, i, c ORDER BY i.position
		WITH p, collect(c.id) as concepts
		RETURN
			p.id as id,
			p.userId as userId,
			concepts,
			p.currentIndex as currentIndex,
			p.progress as progress,
			p.created as created,
			p.updated as updated
		ORDER BY p.created DESC
	`

	records, err := e.store.Read(ctx, query, map[string]interface{}{"userId": userID})
	if err != nil {
		return nil, err
	}

	paths := make([]LearningPath, 0, len(records))
	for _, record := range records {
		paths = append(paths, LearningPath{
			ID:           getStringFromRecord(record, "id"),
			UserID:       getStringFromRecord(record, "userId"),
			Concepts:     getStringSliceFromRecord(record, "concepts"),
			CurrentIndex: getIntFromRecord(record, "currentIndex"),
			Progress:     getIntFromRecord(record, "progress"),
			Created:      getTimeFromRecord(record, "created"),
			Updated:      getTimeFromRecord(record, "updated"),
		})
	}
	return paths, nil
}

func (e *Engine) getPathByID(ctx context.Context, pathID string) (*LearningPath, error) {
	query := `
		MATCH (p:LearningPath {id: $pathId})
		OPTIONAL MATCH (p)-[i:INCLUDES]->(c:Concept)
		WITH p, i, c ORDER BY i.position
		RETURN
			p.id as id,
			p.userId as userId,
			collect(c.id) as concepts,
			p.currentIndex as currentIndex,
			p.progress as progress,
			p.created as created,
			p.updated as updated
	`

	records, err := e.store.Read(ctx, query, map[string]interface{}{"pathId": pathID})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	record := records[0]
	return &LearningPath{
		ID:           getStringFromRecord(record, "id"),
		UserID:       getStringFromRecord(record, "userId"),
		Concepts:     getStringSliceFromRecord(record, "concepts"),
		CurrentIndex: getIntFromRecord(record, "currentIndex"),
		Progress:     getIntFromRecord(record, "progress"),
		Created:      getTimeFromRecord(record, "created"),
		Updated:      getTimeFromRecord(record, "updated"),
	}, nil
}

func (e *Engine) persistPosition(ctx context.Context, path *LearningPath) (*LearningPath, error) {
	now := time.Now().UTC()
	query := `
		MATCH (p:LearningPath {id: $pathId})
		SET p.currentIndex = $currentIndex,
		    p.progress = $progress,
		    p.updated = datetime($now)
	`
	_, err := e.store.Write(ctx, query, map[string]interface{}{
		"pathId":       path.ID,
		"currentIndex": path.CurrentIndex,
		"progress":     path.Progress,
		"now":          now.Format(time.RFC3339),
	})
	if err != nil {
		return nil, err
	}

	path.Updated = now
	e.logger.Info("Learning path advanced",
		zap.String("path_id", path.ID),
		zap.Int("current_index", path.CurrentIndex),
		zap.Int("progress", path.Progress),
	)
	return path, nil
}

// progressFor derives progress from position: 100 exactly at the final
// concept. A single-concept path is already at its final concept.
func progressFor(index, total int) int {
	if total <= 1 {
		return 100
	}
	return int(math.Round(float64(index) / float64(total-1) * 100))
}
