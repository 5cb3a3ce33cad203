package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tieubaoca/contract-analyzer/normalize"
	"github.com/tieubaoca/contract-analyzer/types"
)

// QuoteVerifier decides whether claimed quotes are true verbatim excerpts of
// one specific evidence set and recovers their page provenance. Searching
// only the evidence the generator was shown is what bounds the meaning of
// "verified": a quote from elsewhere in the document is still fabricated
// evidence for this result.
//
// Matching is exact substring after matching-grade normalization. There is no
// fuzzy fallback on purpose: a reformatted quote that survives normalization
// matches, anything looser is dropped.
type QuoteVerifier struct{}

func NewQuoteVerifier() *QuoteVerifier {
	return &QuoteVerifier{}
}

// VerifyQuote runs the two-pass search for one quote against an evidence set
// and returns the quote with its recovered page range, or ok=false when it is
// not found. Both the structured-result path and the chat path go through
// this method so they cannot drift apart.
func (v *QuoteVerifier) VerifyQuote(quoteText string, evidence []types.EvidenceChunk) (types.Quote, bool) {
	normalizedQuote := normalize.Match(quoteText)
	if normalizedQuote == "" {
		return types.Quote{}, false
	}

	sorted := sortEvidence(evidence)
	pageStart, pageEnd, found := findQuote(normalizedQuote, sorted)
	if !found {
		return types.Quote{}, false
	}

	return types.Quote{
		Text:      quoteText,
		PageStart: pageStart,
		PageEnd:   pageEnd,
		Validated: true,
	}, true
}

// VerifyResult validates every quote on a structured result against the
// evidence set, drops the ones that cannot be found, and applies the
// aggregate confidence policy once. The policy is monotonic (dropping more
// quotes never raises confidence) and bounded (never below 20 while any
// quote survives, never outside [0,100]).
func (v *QuoteVerifier) VerifyResult(result *types.Result, evidence []types.EvidenceChunk) error {
	if result == nil {
		return fmt.Errorf("%w: nil result", ErrVerification)
	}
	if len(result.RelevantQuotes) == 0 {
		return nil
	}

	originalCount := len(result.RelevantQuotes)
	validated := make([]types.Quote, 0, originalCount)
	for _, quote := range result.RelevantQuotes {
		if vq, ok := v.VerifyQuote(quote.Text, evidence); ok {
			validated = append(validated, vq)
		}
	}

	survivingCount := len(validated)
	removedCount := originalCount - survivingCount

	switch {
	case survivingCount == 0:
		if result.Confidence > 30 {
			result.Confidence = 30
		}
		result.Rationale += fmt.Sprintf(
			" [%d quotes removed during validation - not found in retrieved evidence]",
			removedCount,
		)
	case removedCount > 0:
		penalty := removedCount * 10
		if penalty > 20 {
			penalty = 20
		}
		result.Confidence -= penalty
		if result.Confidence < 20 {
			result.Confidence = 20
		}
		result.Rationale += fmt.Sprintf(
			" [%d of %d quotes removed during validation]",
			removedCount, originalCount,
		)
	}

	result.RelevantQuotes = validated
	return nil
}

// sortEvidence returns a copy in canonical order: ascending by
// (page_start, page_end, chunk_id). Verification depends on this order being
// identical for every caller.
func sortEvidence(evidence []types.EvidenceChunk) []types.EvidenceChunk {
	sorted := make([]types.EvidenceChunk, len(evidence))
	copy(sorted, evidence)
	sort.SliceStable(sorted, func(a, b int) bool {
		if sorted[a].PageStart != sorted[b].PageStart {
			return sorted[a].PageStart < sorted[b].PageStart
		}
		if sorted[a].PageEnd != sorted[b].PageEnd {
			return sorted[a].PageEnd < sorted[b].PageEnd
		}
		return sorted[a].ChunkID < sorted[b].ChunkID
	})
	return sorted
}

// findQuote is the two-pass search. Pass one looks for the quote inside each
// chunk in canonical order, first hit wins. Pass two concatenates each
// consecutive pair with one space for quotes that straddle a chunk boundary.
func findQuote(normalizedQuote string, sorted []types.EvidenceChunk) (pageStart, pageEnd int, found bool) {
	for _, chunk := range sorted {
		if containsNormalized(chunk.Text, normalizedQuote) {
			return chunk.PageStart, chunk.PageEnd, true
		}
	}

	for i := 0; i+1 < len(sorted); i++ {
		combined := sorted[i].Text + " " + sorted[i+1].Text
		if containsNormalized(combined, normalizedQuote) {
			pageStart = sorted[i].PageStart
			if sorted[i+1].PageStart < pageStart {
				pageStart = sorted[i+1].PageStart
			}
			pageEnd = sorted[i].PageEnd
			if sorted[i+1].PageEnd > pageEnd {
				pageEnd = sorted[i+1].PageEnd
			}
			return pageStart, pageEnd, true
		}
	}

	return 0, 0, false
}

func containsNormalized(haystack, normalizedNeedle string) bool {
	return normalizedNeedle != "" && strings.Contains(normalize.Match(haystack), normalizedNeedle)
}
