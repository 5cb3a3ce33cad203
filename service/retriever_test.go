package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tieubaoca/contract-analyzer/normalize"
	"github.com/tieubaoca/contract-analyzer/types"
)

func makeChunks(texts ...string) []types.Chunk {
	chunks := make([]types.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = types.Chunk{
			ChunkID:        string(rune('a'+i)) + "-chunk",
			Text:           text,
			NormalizedText: normalize.Normalize(text),
			PageStart:      i + 1,
			PageEnd:        i + 1,
		}
	}
	return chunks
}

func TestRequirementIDsFixedOrder(t *testing.T) {
	ids := RequirementIDs()
	assert.Equal(t, []string{
		"password_management",
		"it_asset_management",
		"security_training",
		"tls_encryption",
		"authn_authz",
	}, ids)

	// Callers must not be able to corrupt the canonical order.
	ids[0] = "mutated"
	assert.Equal(t, "password_management", RequirementIDs()[0])
}

func TestRetrieveRanksRelevantChunksFirst(t *testing.T) {
	retriever := NewBM25Retriever()
	chunks := makeChunks(
		"The parties agree to meet quarterly to discuss pricing and invoicing terms.",
		"Vendor shall enforce password complexity, password rotation and account lockout after failed attempts.",
		"All deliveries are made to the Company warehouse in Springfield.",
	)

	evidence := retriever.Retrieve("password_management", chunks, 2)

	require.Len(t, evidence, 2)
	assert.Equal(t, chunks[1].ChunkID, evidence[0].ChunkID)
	assert.Equal(t, 1.0, evidence[0].RelevanceScore)
	assert.LessOrEqual(t, evidence[1].RelevanceScore, 1.0)
}

func TestRetrieveDeterministic(t *testing.T) {
	retriever := NewBM25Retriever()
	chunks := makeChunks(
		"Vendor shall maintain an asset inventory with quarterly reconciliation.",
		"TLS 1.2 encryption is required for all data in transit.",
		"Security awareness training is conducted annually for all personnel.",
		"Multi-factor authentication protects all privileged access.",
	)

	first := retriever.Retrieve("tls_encryption", chunks, 3)
	for i := 0; i < 10; i++ {
		again := retriever.Retrieve("tls_encryption", chunks, 3)
		assert.Equal(t, first, again)
	}
}

func TestRetrieveFreeTextQuery(t *testing.T) {
	retriever := NewBM25Retriever()
	chunks := makeChunks(
		"Termination requires ninety days written notice.",
		"Vendor shall encrypt backups at rest using strong ciphers.",
		"Invoices are payable within thirty days of receipt.",
	)

	// Not a requirement id, so the query is tokenized as free text. Only the
	// backup clause matches a query token.
	evidence := retriever.Retrieve("backups retention strategy", chunks, 3)

	require.Len(t, evidence, 3)
	assert.Equal(t, chunks[1].ChunkID, evidence[0].ChunkID)
}

func TestRetrieveEqualScoresPreserveChunkOrder(t *testing.T) {
	retriever := NewBM25Retriever()
	chunks := makeChunks(
		"alpha beta gamma",
		"delta epsilon zeta",
		"eta theta iota",
	)

	// No query term appears anywhere; all scores tie at zero.
	evidence := retriever.Retrieve("nothing matches here", chunks, 3)

	require.Len(t, evidence, 3)
	for i, ev := range evidence {
		assert.Equal(t, chunks[i].ChunkID, ev.ChunkID)
		assert.Equal(t, 0.0, ev.RelevanceScore)
	}
}

func TestRetrieveTopKLargerThanCorpus(t *testing.T) {
	retriever := NewBM25Retriever()
	chunks := makeChunks("password policy", "asset inventory")

	evidence := retriever.Retrieve("password_management", chunks, 50)
	assert.Len(t, evidence, 2)
}

func TestRetrieveEmptyInputs(t *testing.T) {
	retriever := NewBM25Retriever()

	assert.Nil(t, retriever.Retrieve("password_management", nil, 5))
	assert.Nil(t, retriever.Retrieve("password_management", makeChunks("text"), 0))
}

func TestRetrieveTopScoreIsOneWhenAnyMatch(t *testing.T) {
	retriever := NewBM25Retriever()
	chunks := makeChunks(
		"A documented password rotation schedule is required.",
		"Unrelated clause about office furniture.",
		"Deliveries are accepted at the loading dock only.",
	)

	evidence := retriever.Retrieve("password rotation", chunks, 3)

	require.NotEmpty(t, evidence)
	assert.Equal(t, 1.0, evidence[0].RelevanceScore)
	for _, ev := range evidence {
		assert.GreaterOrEqual(t, ev.RelevanceScore, 0.0)
		assert.LessOrEqual(t, ev.RelevanceScore, 1.0)
	}
}
