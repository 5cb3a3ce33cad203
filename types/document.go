package types

import "time"

// Page is a single page of a parsed document. Character offsets are in
// document space and strictly increasing across consecutive pages.
type Page struct {
	PageNumber     int    `json:"page_number" bson:"page_number"`
	RawText        string `json:"raw_text" bson:"raw_text"`
	NormalizedText string `json:"normalized_text" bson:"normalized_text"`
	CharStart      int    `json:"char_start" bson:"char_start"`
	CharEnd        int    `json:"char_end" bson:"char_end"`
	WordCount      int    `json:"word_count" bson:"word_count"`
}

// Document is the canonical parsed form that flows through the pipeline.
// The core never re-derives offsets; it consumes them as produced by the
// parser.
type Document struct {
	DocID     string                 `json:"doc_id" bson:"doc_id"`
	Filename  string                 `json:"filename" bson:"filename"`
	PageCount int                    `json:"page_count" bson:"page_count"`
	Pages     []Page                 `json:"pages" bson:"pages"`
	Metadata  map[string]interface{} `json:"metadata" bson:"metadata"`
	CreatedAt time.Time              `json:"created_at" bson:"created_at"`
}

// NeedsOCR reports the parser's "likely needs OCR" flag.
func (d *Document) NeedsOCR() bool {
	if d == nil || d.Metadata == nil {
		return false
	}
	v, _ := d.Metadata["needs_ocr"].(bool)
	return v
}
