package knowledge

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"devpath/backend/internal/store"
	"devpath/backend/pkg/logger"
)

// StateTracker maintains per-user, per-concept proficiency records
type StateTracker struct {
	store  *store.Store
	logger *zap.Logger
}

// NewStateTracker creates a new knowledge state tracker
func NewStateTracker(s *store.Store) *StateTracker {
	return &StateTracker{
		store:  s,
		logger: logger.Get(),
	}
}

// UpdateUserKnowledge merge-upserts the KNOWS edge for (userId, conceptId).
// Repeated calls with the same pair update in place, never duplicate.
// Proficiency is clamped to [0,10].
func (t *StateTracker) UpdateUserKnowledge(ctx context.Context, k UserKnowledge) error {
	proficiency := clampProficiency(k.Proficiency)
	lastPracticed := k.LastPracticed
	if lastPracticed.IsZero() {
		lastPracticed = time.Now()
	}

	query := `
		MERGE (u:User {id: $userId})
		WITH u
		MATCH (c:Concept {id: $conceptId})
		MERGE (u)-[k:KNOWS]->(c)
		SET k.proficiency = $proficiency,
		    k.lastPracticed = datetime($lastPracticed)
	`

	_, err := t.store.Write(ctx, query, map[string]interface{}{
		"userId":        k.UserID,
		"conceptId":     k.ConceptID,
		"proficiency":   proficiency,
		"lastPracticed": lastPracticed.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	t.logger.Info("User knowledge updated",
		zap.String("user_id", k.UserID),
		zap.String("concept_id", k.ConceptID),
		zap.Float64("proficiency", proficiency),
	)
	return nil
}

// RecordExerciseAttempt appends one attempt to the user's practice history.
// Attempts are never updated or deleted.
func (t *StateTracker) RecordExerciseAttempt(ctx context.Context, userID, conceptID string, attempt ExerciseAttempt) error {
	if attempt.ID == "" {
		attempt.ID = uuid.New().String()
	}
	timestamp := attempt.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	query := `
		MERGE (u:User {id: $userId})
		WITH u
		MATCH (c:Concept {id: $conceptId})
		CREATE (a:Attempt {
			id: $id,
			completed: $completed,
			score: $score,
			timestamp: datetime($timestamp),
			feedback: $feedback
		})
		CREATE (u)-[:ATTEMPTED]->(a)-[:FOR]->(c)
	`

	_, err := t.store.Write(ctx, query, map[string]interface{}{
		"userId":    userID,
		"conceptId": conceptID,
		"id":        attempt.ID,
		"completed": attempt.Completed,
		"score":     attempt.Score,
		"timestamp": timestamp.UTC().Format(time.RFC3339),
		"feedback":  attempt.Feedback,
	})
	return err
}

// GetUserKnowledge returns all proficiency records for a user, each with its
// attempt history in chronological order
func (t *StateTracker) GetUserKnowledge(ctx context.Context, userID string) ([]UserKnowledge, error) {
	query := `
		MATCH (u:User {id: $userId})-[k:KNOWS]->(c:Concept)
		OPTIONAL MATCH (u)-[:ATTEMPTED]->(a:Attempt)-[:FOR]->(c)
		WITH c, k, a ORDER BY a.timestamp
		RETURN
			c.id as conceptId,
			k.proficiency as proficiency,
			k.lastPracticed as lastPracticed,
			collect({
				id: a.id, completed: a.completed, score: a.score,
				timestamp: a.timestamp, feedback: a.feedback
			}) as exercises
		ORDER BY conceptId
	`

	records, err := t.store.Read(ctx, query, map[string]interface{}{"userId": userID})
	if err != nil {
		return nil, err
	}

	result := make([]UserKnowledge, 0, len(records))
	for _, record := range records {
		k := UserKnowledge{
			UserID:        userID,
			ConceptID:     getStringFromRecord(record, "conceptId"),
			Proficiency:   getFloat64FromRecord(record, "proficiency"),
			LastPracticed: getTimeFromRecord(record, "lastPracticed"),
			Exercises:     []ExerciseAttempt{},
		}
		for _, m := range getMapSliceFromRecord(record, "exercises") {
			if getStringFromMap(m, "id") == "" {
				continue
			}
			k.Exercises = append(k.Exercises, ExerciseAttempt{
				ID:        getStringFromMap(m, "id"),
				Completed: getBoolFromMap(m, "completed"),
				Score:     getFloat64FromMap(m, "score"),
				Timestamp: getTimeFromMap(m, "timestamp"),
				Feedback:  getStringFromMap(m, "feedback"),
			})
		}
		result = append(result, k)
	}
	return result, nil
}

func clampProficiency(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 10 {
		return 10
	}
	return p
}
