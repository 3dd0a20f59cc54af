package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// GeneratedTask is a task draft extracted from free text
type GeneratedTask struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"dueDate"`
	Priority    string     `json:"priority"`
}

// TaskExtractor turns free text into task drafts
type TaskExtractor interface {
	GenerateTasksFromText(ctx context.Context, text string) ([]GeneratedTask, error)
}

type AIService struct {
	client *openai.Client
	model  string
	now    func() time.Time
}

func NewAIService(apiKey string) *AIService {
	return NewAIServiceWithConfig(openai.DefaultConfig(apiKey))
}

// NewAIServiceWithConfig creates an AIService for a custom endpoint
func NewAIServiceWithConfig(cfg openai.ClientConfig) *AIService {
	return &AIService{
		client: openai.NewClientWithConfig(cfg),
		model:  openai.GPT4o,
		now:    time.Now,
	}
}

const extractionPrompt = `You are a task extraction assistant. Extract concrete, actionable tasks from the text below.

Current time: %s

Text:
%s

Return a JSON array of tasks in this format:
[
  {
    "title": "short task title",
    "description": "task details",
    "dueDate": "deadline in ISO8601, e.g. 2025-10-28T23:59:59Z, or null when none is stated",
    "priority": "one of low, medium, high, urgent"
  }
]

Rules:
- Return an empty array [] when there are no tasks
- Convert relative deadlines such as "tomorrow" or "next week" into concrete dates
- dueDate must be an ISO8601 string or null
- Return JSON only, without any explanation`

// GenerateTasksFromText analyzes text and extracts tasks using OpenAI GPT
func (s *AIService) GenerateTasksFromText(ctx context.Context, text string) ([]GeneratedTask, error) {
	if s.client == nil {
		return nil, errors.New("OpenAI client not initialized")
	}

	prompt := fmt.Sprintf(extractionPrompt, s.now().UTC().Format(time.RFC3339), text)

	resp, err := s.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: s.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			Temperature: 0.3,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, errors.New("no response from OpenAI")
	}

	content := stripCodeFence(resp.Choices[0].Message.Content)

	var tasks []GeneratedTask
	if err := json.Unmarshal([]byte(content), &tasks); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w", err)
	}

	return tasks, nil
}

// stripCodeFence removes a markdown fence the model sometimes wraps JSON in
func stripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}
