package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tieubaoca/contract-analyzer/logger"
	"github.com/tieubaoca/contract-analyzer/types"
)

const chatSystemPrompt = "You are a contract analysis assistant. Answer questions based ONLY on the " +
	"provided evidence from the contract. If the evidence does not contain enough " +
	"information to answer, say 'I cannot find that information in the contract.' " +
	"Provide verbatim quotes to support your answer."

const noEvidenceAnswer = "I cannot find relevant information in the contract to answer your question."

// notFoundPhrases marks answers that admit failure; any hit zeroes confidence.
var notFoundPhrases = []string{
	"cannot find", "can't find", "not found", "no information",
	"does not contain", "doesn't contain",
}

// chatHistoryTurns bounds how much prior conversation reaches the prompt.
const chatHistoryTurns = 4

type chatResponse struct {
	Answer         string `json:"answer"`
	RelevantQuotes []struct {
		Text string `json:"text"`
	} `json:"relevant_quotes"`
}

// ChatService answers questions about an analyzed contract. Evidence-first:
// the generator only ever sees retrieved chunks, never the full document,
// and every quote it returns is re-checked against that same evidence set.
type ChatService struct {
	ai        AIService
	retriever *BM25Retriever
	verifier  *QuoteVerifier
	topK      int
	log       *logger.Logger
}

func NewChatService(ai AIService, retriever *BM25Retriever, verifier *QuoteVerifier, topK int, log *logger.Logger) *ChatService {
	if topK < 1 {
		topK = 5
	}
	return &ChatService{
		ai:        ai,
		retriever: retriever,
		verifier:  verifier,
		topK:      topK,
		log:       log,
	}
}

// Answer generates a response to a user question about the contract. When
// retrieval surfaces nothing, it returns a fixed refusal without calling
// the generator at all.
func (s *ChatService) Answer(ctx context.Context, session *types.ChatSession, message string, chunks []types.Chunk) (types.ChatAnswer, error) {
	evidence := s.retriever.Retrieve(message, chunks, s.topK)
	if len(evidence) == 0 {
		return types.ChatAnswer{
			Answer:         noEvidenceAnswer,
			RelevantQuotes: []types.Quote{},
			Confidence:     0,
		}, nil
	}

	prompt := s.buildPrompt(message, evidence, recentMessages(session, chatHistoryTurns))

	s.log.Debug("chat generation", "session_id", session.SessionID, "evidence", len(evidence))
	raw, err := s.ai.Generate(ctx, prompt, chatSystemPrompt, 0.3, 500)
	if err != nil {
		return types.ChatAnswer{}, fmt.Errorf("failed to generate answer: %w", err)
	}

	parsed := s.parseResponse(raw)

	quotes := make([]types.Quote, 0, len(parsed.RelevantQuotes))
	for _, q := range parsed.RelevantQuotes {
		if q.Text == "" {
			continue
		}
		verified, ok := s.verifier.VerifyQuote(q.Text, evidence)
		if !ok {
			s.log.Warn("chat quote not found in evidence", "session_id", session.SessionID, "prefix", prefix(q.Text, 30))
			continue
		}
		quotes = append(quotes, verified)
	}

	return types.ChatAnswer{
		Answer:         parsed.Answer,
		RelevantQuotes: quotes,
		Confidence:     chatConfidence(parsed.Answer, len(quotes)),
	}, nil
}

func (s *ChatService) buildPrompt(message string, evidence []types.EvidenceChunk, history []types.Message) string {
	var b strings.Builder

	if len(history) > 0 {
		b.WriteString("CONVERSATION HISTORY (last 4 messages):\n")
		for _, msg := range history {
			label := "Assistant"
			if msg.Role == "user" {
				label = "User"
			}
			fmt.Fprintf(&b, "%s: %s\n", label, msg.Content)
		}
		b.WriteString("\n")
	}

	b.WriteString("EVIDENCE FROM CONTRACT:\n")
	for i, chunk := range evidence {
		if chunk.PageEnd != chunk.PageStart {
			fmt.Fprintf(&b, "\n%d. [Pages %d-%d]\n", i+1, chunk.PageStart, chunk.PageEnd)
		} else {
			fmt.Fprintf(&b, "\n%d. [Pages %d]\n", i+1, chunk.PageStart)
		}
		b.WriteString(chunk.Text)
		b.WriteString("\n")
	}

	b.WriteString("\n---\n")
	fmt.Fprintf(&b, "\nUSER QUESTION: %s\n", message)
	b.WriteString("\nINSTRUCTIONS: Answer the question using ONLY the evidence above. " +
		"If the evidence does not contain the information needed, say " +
		"'I cannot find that information in this contract.' " +
		"Return your response as JSON with this exact format:\n" +
		"{\n" +
		"  \"answer\": \"your answer here\",\n" +
		"  \"relevant_quotes\": [{\"text\": \"exact quote from evidence\"}]\n" +
		"}")

	return b.String()
}

// parseResponse tolerates fenced or malformed generator output by falling
// back to the raw text with zero quotes.
func (s *ChatService) parseResponse(raw string) chatResponse {
	text := strings.TrimSpace(raw)
	text = stripFences(text)

	var parsed chatResponse
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		s.log.Warn("chat response was not valid JSON, using text fallback", "prefix", prefix(text, 100))
		return chatResponse{Answer: text}
	}
	if parsed.Answer == "" {
		parsed.Answer = text
	}
	return parsed
}

func stripFences(text string) string {
	if start := strings.Index(text, "```json"); start >= 0 {
		body := text[start+len("```json"):]
		if end := strings.Index(body, "```"); end >= 0 {
			return strings.TrimSpace(body[:end])
		}
	}
	if start := strings.Index(text, "```"); start >= 0 {
		body := text[start+3:]
		if end := strings.Index(body, "```"); end >= 0 {
			return strings.TrimSpace(body[:end])
		}
	}
	return text
}

func recentMessages(session *types.ChatSession, n int) []types.Message {
	if session == nil || len(session.Messages) == 0 {
		return nil
	}
	if len(session.Messages) <= n {
		return session.Messages
	}
	return session.Messages[len(session.Messages)-n:]
}

// chatConfidence scores an answer: admissions of failure score zero, trivially
// short answers score 10, everything else starts at 70 and earns 10 per
// verified quote up to +30, capped at 100.
func chatConfidence(answer string, verifiedQuotes int) int {
	lower := strings.ToLower(answer)
	for _, phrase := range notFoundPhrases {
		if strings.Contains(lower, phrase) {
			return 0
		}
	}
	if len(answer) < 10 {
		return 10
	}
	confidence := 70
	bonus := verifiedQuotes * 10
	if bonus > 30 {
		bonus = 30
	}
	confidence += bonus
	if confidence > 100 {
		confidence = 100
	}
	return confidence
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
