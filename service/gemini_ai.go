package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiService generates through Google's Gemini API.
type GeminiService struct {
	client    *genai.Client
	modelName string
	timeout   time.Duration
}

func NewGeminiService(ctx context.Context, apiKey, modelName string, timeout time.Duration) (*GeminiService, error) {
	if apiKey == "" {
		return nil, errors.New("no API key provided")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &GeminiService{
		client:    client,
		modelName: modelName,
		timeout:   timeout,
	}, nil
}

func (s *GeminiService) Generate(ctx context.Context, prompt, systemPrompt string, temperature float32, maxTokens int) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	model := s.client.GenerativeModel(s.modelName)
	model.SetTemperature(temperature)
	model.SetMaxOutputTokens(int32(maxTokens))
	if systemPrompt != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(systemPrompt)},
		}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 {
		return "", errors.New("no response generated")
	}

	content := ""
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				content += string(text)
			}
		}
	}

	return content, nil
}

func (s *GeminiService) Close() error {
	return s.client.Close()
}
