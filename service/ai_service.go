package service

import "context"

// AIService is the single abstraction over the generative model: prompt in,
// text out, may fail on transport, timeout or format. The deterministic parts
// of the pipeline never depend on a live model; tests substitute a fake.
//
// Concrete providers are interchangeable and selected once at process start
// by configuration, never by runtime type inspection.
type AIService interface {
	Generate(ctx context.Context, prompt, systemPrompt string, temperature float32, maxTokens int) (string, error)
}
