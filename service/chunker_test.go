package service

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tieubaoca/contract-analyzer/types"
)

func makeDocument(pageCount int) *types.Document {
	pages := make([]types.Page, pageCount)
	offset := 0
	for i := range pages {
		raw := fmt.Sprintf("Page %d raw text.", i+1)
		pages[i] = types.Page{
			PageNumber:     i + 1,
			RawText:        raw,
			NormalizedText: fmt.Sprintf("page %d raw text.", i+1),
			CharStart:      offset,
			CharEnd:        offset + len(raw),
			WordCount:      4,
		}
		offset += len(raw) + 2
	}
	return &types.Document{
		DocID:     "doc-1",
		Filename:  "contract.pdf",
		PageCount: pageCount,
		Pages:     pages,
	}
}

func TestNewPageChunkerValidation(t *testing.T) {
	tests := []struct {
		name          string
		pagesPerChunk int
		overlapPages  int
		wantErr       bool
	}{
		{name: "valid single page", pagesPerChunk: 1, overlapPages: 0, wantErr: false},
		{name: "valid with overlap", pagesPerChunk: 3, overlapPages: 1, wantErr: false},
		{name: "zero pages per chunk", pagesPerChunk: 0, overlapPages: 0, wantErr: true},
		{name: "negative pages per chunk", pagesPerChunk: -1, overlapPages: 0, wantErr: true},
		{name: "negative overlap", pagesPerChunk: 2, overlapPages: -1, wantErr: true},
		{name: "overlap equals pages per chunk", pagesPerChunk: 2, overlapPages: 2, wantErr: true},
		{name: "overlap exceeds pages per chunk", pagesPerChunk: 2, overlapPages: 3, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			chunker, err := NewPageChunker(tc.pagesPerChunk, tc.overlapPages)
			if tc.wantErr {
				assert.Error(t, err)
				assert.Nil(t, chunker)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, chunker)
			}
		})
	}
}

func TestChunkOnePagePerChunk(t *testing.T) {
	chunker, err := NewPageChunker(1, 0)
	require.NoError(t, err)

	doc := makeDocument(5)
	chunks := chunker.Chunk(doc)

	require.Len(t, chunks, 5)
	for i, chunk := range chunks {
		assert.Equal(t, fmt.Sprintf("doc-1:chunk_%d", i), chunk.ChunkID)
		assert.Equal(t, i+1, chunk.PageStart)
		assert.Equal(t, i+1, chunk.PageEnd)
		assert.Equal(t, doc.Pages[i].RawText, chunk.Text)
		assert.Equal(t, doc.Pages[i].CharStart, chunk.CharStart)
		assert.Equal(t, doc.Pages[i].CharEnd, chunk.CharEnd)
	}
}

func TestChunkWindowsWithOverlap(t *testing.T) {
	chunker, err := NewPageChunker(3, 1)
	require.NoError(t, err)

	doc := makeDocument(6)
	chunks := chunker.Chunk(doc)

	// stride 2: windows [1-3], [3-5], [5-6]
	require.Len(t, chunks, 3)
	assert.Equal(t, 1, chunks[0].PageStart)
	assert.Equal(t, 3, chunks[0].PageEnd)
	assert.Equal(t, 3, chunks[1].PageStart)
	assert.Equal(t, 5, chunks[1].PageEnd)
	assert.Equal(t, 5, chunks[2].PageStart)
	assert.Equal(t, 6, chunks[2].PageEnd)
}

func TestChunkJoinsPageText(t *testing.T) {
	chunker, err := NewPageChunker(2, 0)
	require.NoError(t, err)

	doc := makeDocument(2)
	chunks := chunker.Chunk(doc)

	require.Len(t, chunks, 1)
	assert.Equal(t, doc.Pages[0].RawText+"\n\n"+doc.Pages[1].RawText, chunks[0].Text)
	assert.Equal(t, doc.Pages[0].NormalizedText+" "+doc.Pages[1].NormalizedText, chunks[0].NormalizedText)
}

func TestChunkShortFinalWindow(t *testing.T) {
	chunker, err := NewPageChunker(2, 0)
	require.NoError(t, err)

	doc := makeDocument(5)
	chunks := chunker.Chunk(doc)

	require.Len(t, chunks, 3)
	last := chunks[2]
	assert.Equal(t, 5, last.PageStart)
	assert.Equal(t, 5, last.PageEnd)
}

func TestChunkEmptyDocument(t *testing.T) {
	chunker, err := NewPageChunker(1, 0)
	require.NoError(t, err)

	chunks := chunker.Chunk(&types.Document{DocID: "empty"})
	assert.Empty(t, chunks)
}
