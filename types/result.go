package types

// ComplianceLevel is the tri-state outcome of one requirement analysis. The
// literal values are part of the generator contract and the API surface.
type ComplianceLevel string

const (
	FullyCompliant     ComplianceLevel = "Fully Compliant"
	PartiallyCompliant ComplianceLevel = "Partially Compliant"
	NonCompliant       ComplianceLevel = "Non-Compliant"
)

// Valid reports whether l is one of the three literal levels.
func (l ComplianceLevel) Valid() bool {
	switch l {
	case FullyCompliant, PartiallyCompliant, NonCompliant:
		return true
	}
	return false
}

// Quote is a claimed verbatim excerpt. Validated stays false until the
// verifier finds it in the evidence set and rewrites its page range.
type Quote struct {
	Text      string `json:"text" bson:"text"`
	PageStart int    `json:"page_start" bson:"page_start"`
	PageEnd   int    `json:"page_end" bson:"page_end"`
	Validated bool   `json:"validated" bson:"validated"`
}

// Result is one compliance dimension's judgment, grounded in the evidence
// retrieved for that dimension only.
type Result struct {
	Question        string          `json:"compliance_question" bson:"compliance_question"`
	ComplianceLevel ComplianceLevel `json:"compliance_state" bson:"compliance_state"`
	Confidence      int             `json:"confidence" bson:"confidence"`
	RelevantQuotes  []Quote         `json:"relevant_quotes" bson:"relevant_quotes"`
	Rationale       string          `json:"rationale" bson:"rationale"`
	EvidenceChunks  []string        `json:"evidence_chunks_used" bson:"evidence_chunks_used"`
}
