package pipeline

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// ChatCompleter is the slice of the OpenAI client the acquirer needs;
// tests substitute a canned implementation.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIAcquirer requests MCQ generation for one chunk and returns the raw
// response text. It makes no attempt to parse the response; that is the
// recoverer's job, since the service routinely returns malformed output.
type OpenAIAcquirer struct {
	client ChatCompleter
	model  string
}

// NewOpenAIAcquirer builds an acquirer against the OpenAI API, or any
// compatible endpoint (e.g. OpenRouter) when baseURL is set.
func NewOpenAIAcquirer(apiKey, baseURL, model string) *OpenAIAcquirer {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIAcquirer{client: openai.NewClientWithConfig(cfg), model: model}
}

// NewAcquirerWithClient is for tests.
func NewAcquirerWithClient(client ChatCompleter, model string) *OpenAIAcquirer {
	return &OpenAIAcquirer{client: client, model: model}
}

// Acquire sends one generation request. Failures are chunk-level: the caller
// logs them and continues with the remaining chunks.
func (a *OpenAIAcquirer) Acquire(ctx context.Context, chunk string, count int) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You generate exam-oriented multiple choice questions and output only valid JSON.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildPrompt(chunk, count),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion response")
	}
	return resp.Choices[0].Message.Content, nil
}

func buildPrompt(chunk string, count int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Generate at most %d unique, exam-oriented MCQs from the material below.\n\n", count)
	sb.WriteString("Rules:\n")
	sb.WriteString("- Each MCQ must have exactly 4 options\n")
	sb.WriteString("- Exactly one correct answer per question\n")
	sb.WriteString("- Do not repeat questions already present in the material\n")
	sb.WriteString("- Output ONLY a JSON array, no prose\n\n")
	sb.WriteString("Format:\n")
	sb.WriteString(`[{"question": "", "options": ["A", "B", "C", "D"], "answer_index": 0}]`)
	sb.WriteString("\n\nMATERIAL:\n")
	sb.WriteString(chunk)
	return sb.String()
}
