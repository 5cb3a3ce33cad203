package types

// Chunk is a contiguous page-range unit of document text with page and
// character provenance. Chunks are immutable once produced by the chunker.
type Chunk struct {
	ChunkID        string `json:"chunk_id" bson:"chunk_id"`
	Text           string `json:"text" bson:"text"`
	NormalizedText string `json:"normalized_text" bson:"normalized_text"`
	PageStart      int    `json:"page_start" bson:"page_start"`
	PageEnd        int    `json:"page_end" bson:"page_end"`
	CharStart      int    `json:"char_start" bson:"char_start"`
	CharEnd        int    `json:"char_end" bson:"char_end"`
}

// EvidenceChunk is a chunk plus the relevance score assigned during
// retrieval. Scores are rescaled to [0,1] against the top retained score and
// are display confidences, not calibrated probabilities. The score lives here
// and is never written back onto the chunk.
type EvidenceChunk struct {
	Chunk
	RelevanceScore float64 `json:"relevance_score" bson:"relevance_score"`
}
