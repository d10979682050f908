package knowledge

import "time"

// ConceptType categorizes a unit of learnable material
type ConceptType string

const (
	ConceptTypeLanguage      ConceptType = "LANGUAGE"
	ConceptTypeFramework     ConceptType = "FRAMEWORK"
	ConceptTypePattern       ConceptType = "PATTERN"
	ConceptTypeAlgorithm     ConceptType = "ALGORITHM"
	ConceptTypeDataStructure ConceptType = "DATA_STRUCTURE"
	ConceptTypeBestPractice  ConceptType = "BEST_PRACTICE"
)

// ResourceType categorizes a learning resource
type ResourceType string

const (
	ResourceTypeDocumentation ResourceType = "DOCUMENTATION"
	ResourceTypeTutorial      ResourceType = "TUTORIAL"
	ResourceTypeVideo         ResourceType = "VIDEO"
	ResourceTypeArticle       ResourceType = "ARTICLE"
	ResourceTypeExercise      ResourceType = "EXERCISE"
)

// RelationshipType is the closed set of typed edges between concepts
type RelationshipType string

const (
	RelRequires    RelationshipType = "REQUIRES"
	RelSimilarTo   RelationshipType = "SIMILAR_TO"
	RelImplements  RelationshipType = "IMPLEMENTS"
	RelUses        RelationshipType = "USES"
	RelExtends     RelationshipType = "EXTENDS"
	RelHasExample  RelationshipType = "HAS_EXAMPLE"
	RelHasResource RelationshipType = "HAS_RESOURCE"
)

// ValidRelationshipType reports whether t is in the closed set. Relationship
// types are interpolated into queries, so anything else must be rejected.
func ValidRelationshipType(t RelationshipType) bool {
	switch t {
	case RelRequires, RelSimilarTo, RelImplements, RelUses, RelExtends, RelHasExample, RelHasResource:
		return true
	}
	return false
}

// Concept is a node in the knowledge graph. A REQUIRES edge points from the
// dependent concept to its prerequisite.
type Concept struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	Description     string        `json:"description"`
	Type            ConceptType   `json:"type"`
	Difficulty      int           `json:"difficulty"` // 1-10
	Prerequisites   []string      `json:"prerequisites"`
	RelatedConcepts []string      `json:"relatedConcepts"`
	Resources       []Resource    `json:"resources"`
	Examples        []CodeExample `json:"examples"`
}

// Resource is a learning material attached to a concept
type Resource struct {
	ID         string       `json:"id"`
	Title      string       `json:"title"`
	URL        string       `json:"url"`
	Type       ResourceType `json:"type"`
	Difficulty int          `json:"difficulty"`
	Tags       []string     `json:"tags"`
}

// CodeExample is an illustrative snippet attached to a concept
type CodeExample struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Code        string `json:"code"`
	Explanation string `json:"explanation"`
	Language    string `json:"language"`
}

// Relationship is a typed directed edge between two concepts
type Relationship struct {
	Source string           `json:"source"`
	Target string           `json:"target"`
	Type   RelationshipType `json:"type"`
}

// UserKnowledge is one user's proficiency record for one concept, stored as
// a KNOWS edge. The (userId, conceptId) pair is unique.
type UserKnowledge struct {
	UserID        string            `json:"userId"`
	ConceptID     string            `json:"conceptId"`
	Proficiency   float64           `json:"proficiency"` // 0-10
	LastPracticed time.Time         `json:"lastPracticed"`
	Exercises     []ExerciseAttempt `json:"exercises"`
}

// ExerciseAttempt is one entry in a user's append-only practice history
type ExerciseAttempt struct {
	ID        string    `json:"id"`
	Completed bool      `json:"completed"`
	Score     float64   `json:"score"`
	Timestamp time.Time `json:"timestamp"`
	Feedback  string    `json:"feedback"`
}

// ConceptSummary is the node shape served to the visualization layer
type ConceptSummary struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Type       ConceptType `json:"type"`
	Difficulty int         `json:"difficulty"`
}

// GraphData is a full snapshot of concept nodes and the edges between them
type GraphData struct {
	Nodes         []ConceptSummary `json:"nodes"`
	Relationships []Relationship   `json:"relationships"`
}
