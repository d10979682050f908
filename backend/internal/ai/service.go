package ai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"devpath/backend/internal/knowledge"
	apperrors "devpath/backend/pkg/errors"
	"devpath/backend/pkg/logger"
)

// Service is the generative collaborator. It supplies concept names,
// exercise code and resource suggestions as opaque strings; the core
// persists them without interpreting how they were produced.
type Service struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewService creates a new AI service. baseURL is optional and points the
// client at an OpenAI-compatible proxy when set.
func NewService(apiKey, baseURL, model string) *Service {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL + "/v1"
	}

	return &Service{
		client: openai.NewClientWithConfig(config),
		model:  model,
		logger: logger.Get(),
	}
}

// CodeAnalysis is the structured result of analyzing a code snippet
type CodeAnalysis struct {
	Quality         float64  `json:"quality"`
	Suggestions     []string `json:"suggestions"`
	Concepts        []string `json:"concepts"`
	PotentialIssues []string `json:"potentialIssues"`
}

// AnalyzeCode asks the model for a structured review of a code snippet
func (s *Service) AnalyzeCode(ctx context.Context, code, language string) (*CodeAnalysis, error) {
	systemPrompt := fmt.Sprintf(
		"You are a code analysis expert. Analyze the following %s code for quality, suggestions, related concepts, and potential issues. "+
			"Respond with a JSON object with keys: quality (number 0-10), suggestions (string array), concepts (string array), potentialIssues (string array).",
		language,
	)

	content, err := s.complete(ctx, systemPrompt, code)
	if err != nil {
		return nil, err
	}

	var analysis CodeAnalysis
	if err := json.Unmarshal([]byte(content), &analysis); err != nil {
		return nil, apperrors.NewAIRequestFailed(s.model, fmt.Errorf("malformed analysis response: %w", err))
	}
	return &analysis, nil
}

// GenerateExercise produces a coding exercise for a concept, scaled to the
// user's proficiency
func (s *Service) GenerateExercise(ctx context.Context, concept knowledge.Concept, k knowledge.UserKnowledge) (*knowledge.CodeExample, error) {
	difficulty := exerciseDifficulty(k.Proficiency)

	systemPrompt := fmt.Sprintf(
		"Generate a coding exercise for the concept %q at difficulty level %d. "+
			"Respond with a JSON object with keys: title, code, explanation, language.",
		concept.Name, difficulty,
	)

	content, err := s.complete(ctx, systemPrompt, "")
	if err != nil {
		return nil, err
	}

	var exercise knowledge.CodeExample
	if err := json.Unmarshal([]byte(content), &exercise); err != nil {
		return nil, apperrors.NewAIRequestFailed(s.model, fmt.Errorf("malformed exercise response: %w", err))
	}
	return &exercise, nil
}

// SuggestResources asks the model for learning resource suggestions matching
// the user's current proficiency
func (s *Service) SuggestResources(ctx context.Context, concept knowledge.Concept, k knowledge.UserKnowledge) ([]string, error) {
	systemPrompt := fmt.Sprintf(
		"Suggest learning resources for the concept %q for a learner with proficiency %.1f out of 10. "+
			"Respond with a JSON object with a single key resources (string array).",
		concept.Name, k.Proficiency,
	)

	content, err := s.complete(ctx, systemPrompt, "")
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Resources []string `json:"resources"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, apperrors.NewAIRequestFailed(s.model, fmt.Errorf("malformed resource response: %w", err))
	}
	return parsed.Resources, nil
}

func (s *Service) complete(ctx context.Context, systemPrompt, userMsg string) (string, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
	}
	if userMsg != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: userMsg,
		})
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    s.model,
		Messages: messages,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", apperrors.NewAIRequestFailed(s.model, err)
	}
	if len(resp.Choices) == 0 {
		return "", apperrors.NewAIRequestFailed(s.model, fmt.Errorf("empty response"))
	}

	s.logger.Debug("Generative request completed",
		zap.String("model", s.model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)
	return resp.Choices[0].Message.Content, nil
}

// exerciseDifficulty scales exercise difficulty with proficiency:
// base 1 plus half the proficiency score, clamped to [1,10]
func exerciseDifficulty(proficiency float64) int {
	difficulty := 1 + proficiency*0.5
	if difficulty < 1 {
		difficulty = 1
	}
	if difficulty > 10 {
		difficulty = 10
	}
	return int(difficulty)
}
