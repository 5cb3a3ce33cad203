package service

import (
	"fmt"
	"strings"

	"github.com/tieubaoca/contract-analyzer/types"
)

// PageChunker slices a document into windows of whole pages. Contracts tend
// to align semantic boundaries with pages, so page windows keep provenance
// exact without offset bookkeeping inside pages.
type PageChunker struct {
	pagesPerChunk int
	overlapPages  int
}

// NewPageChunker validates its parameters eagerly; a misconfigured chunker
// must fail at construction, never during a job.
func NewPageChunker(pagesPerChunk, overlapPages int) (*PageChunker, error) {
	if pagesPerChunk < 1 {
		return nil, fmt.Errorf("pagesPerChunk must be >= 1, got %d", pagesPerChunk)
	}
	if overlapPages < 0 {
		return nil, fmt.Errorf("overlapPages must be >= 0, got %d", overlapPages)
	}
	if overlapPages >= pagesPerChunk {
		return nil, fmt.Errorf("overlapPages must be < pagesPerChunk, got %d >= %d", overlapPages, pagesPerChunk)
	}
	return &PageChunker{
		pagesPerChunk: pagesPerChunk,
		overlapPages:  overlapPages,
	}, nil
}

// Chunk walks a window of pagesPerChunk pages over the document, advancing by
// stride = max(1, pagesPerChunk-overlapPages). Chunk ids are deterministic
// and strictly increasing. An empty document yields no chunks and no error.
func (c *PageChunker) Chunk(document *types.Document) []types.Chunk {
	pages := document.Pages
	if len(pages) == 0 {
		return nil
	}

	stride := c.pagesPerChunk - c.overlapPages
	if stride < 1 {
		stride = 1
	}

	var chunks []types.Chunk
	chunkID := 0
	for i := 0; i < len(pages); i += stride {
		end := i + c.pagesPerChunk
		if end > len(pages) {
			end = len(pages)
		}
		window := pages[i:end]

		rawParts := make([]string, len(window))
		normParts := make([]string, len(window))
		for j, p := range window {
			rawParts[j] = p.RawText
			normParts[j] = p.NormalizedText
		}

		chunks = append(chunks, types.Chunk{
			ChunkID:        fmt.Sprintf("%s:chunk_%d", document.DocID, chunkID),
			Text:           strings.Join(rawParts, "\n\n"),
			NormalizedText: strings.Join(normParts, " "),
			PageStart:      window[0].PageNumber,
			PageEnd:        window[len(window)-1].PageNumber,
			CharStart:      window[0].CharStart,
			CharEnd:        window[len(window)-1].CharEnd,
		})
		chunkID++
	}

	return chunks
}
