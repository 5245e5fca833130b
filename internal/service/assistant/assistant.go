package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/nkiryanov/studyplanner/internal/apperrors"
)

const (
	defaultModel = "gpt-4o-mini"
	maxTokens    = 500
	temperature  = 0.7
)

// Call results reported to metrics recorder
const (
	ResultOK    = "ok"
	ResultEmpty = "empty"
	ResultError = "error"
)

const feedbackPrompt = `You are an AI assistant analyzing user focus session data. Provide feedback based on these inputs:
1. Monthly completion times for tasks.
2. Priority levels of completed tasks.

Identify areas where the user is excelling, suggest subjects or tasks that may need more attention and offer motivational feedback to encourage consistency.

Always format your response as:
Strengths:
Need improvements:
Motivational quotes:`

const schedulePrompt = `You are a helpful assistant that analyzes study schedules.
Provide warnings about overly tight schedules and suggestions for better prioritization and balance.
Always format your response as:
Warnings:
- Item 1
- Item 2

Suggestions:
- Item 1
- Item 2`

type Config struct {
	// Required
	APIKey string

	// gpt-4o-mini if not set
	Model string

	// OpenAI compatible API url. Default OpenAI url if not set
	BaseURL string

	HTTPClient *http.Client
}

type Recorder interface {
	RecordAssistantCall(result string)
}

// Assistant asks LLM to comment user data
type Assistant struct {
	client  *openai.Client
	model   string
	metrics Recorder
}

func New(cfg Config, metrics Recorder) (*Assistant, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key must not be empty")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		clientConfig.HTTPClient = cfg.HTTPClient
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	return &Assistant{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   model,
		metrics: metrics,
	}, nil
}

// FocusFeedback comments focus time summary
func (a *Assistant) FocusFeedback(ctx context.Context, data any) (string, error) {
	return a.complete(ctx, feedbackPrompt, "Analyze my focus session and provide feedback.", data)
}

// AnalyzeSchedule warns about tight deadlines of upcoming tasks
func (a *Assistant) AnalyzeSchedule(ctx context.Context, data any) (string, error) {
	return a.complete(ctx, schedulePrompt, "Analyze my schedule and provide feedback.", data)
}

func (a *Assistant) complete(ctx context.Context, system string, ask string, data any) (string, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("can't encode assistant data. Err: %w", err)
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: ask + " Here is the data in JSON format:\n\n" + string(payload)},
		},
	})
	if err != nil {
		a.record(ResultError)
		return "", fmt.Errorf("%w: chat completion failed: %w", apperrors.ErrDependencyUnavailable, err)
	}

	if len(resp.Choices) == 0 {
		a.record(ResultEmpty)
		return "", fmt.Errorf("%w: no completion choices returned", apperrors.ErrDependencyUnavailable)
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		a.record(ResultEmpty)
		return "", fmt.Errorf("%w: empty completion returned", apperrors.ErrDependencyUnavailable)
	}

	a.record(ResultOK)
	return content, nil
}

func (a *Assistant) record(result string) {
	if a.metrics != nil {
		a.metrics.RecordAssistantCall(result)
	}
}
