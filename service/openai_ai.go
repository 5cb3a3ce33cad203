package service

import (
	"context"
	"errors"
	"time"

	"github.com/sashabaranov/go-openai"
)

// OpenAIService talks to the OpenAI API or any OpenAI-compatible server
// (vLLM, LM Studio, Ollama's compat endpoint) selected via base URL.
type OpenAIService struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

func NewOpenAIService(baseURL, apiKey, model string, timeout time.Duration) *OpenAIService {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL // local LLM servers expose the same API shape
	}
	client := openai.NewClientWithConfig(config)
	return &OpenAIService{
		client:  client,
		model:   model,
		timeout: timeout,
	}
}

func (s *OpenAIService) Generate(ctx context.Context, prompt, systemPrompt string, temperature float32, maxTokens int) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	resp, err := s.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model:       s.model,
			Messages:    messages,
			Temperature: temperature,
			MaxTokens:   maxTokens,
		},
	)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no response generated")
	}

	return resp.Choices[0].Message.Content, nil
}
