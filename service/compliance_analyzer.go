package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tieubaoca/contract-analyzer/logger"
	"github.com/tieubaoca/contract-analyzer/types"
)

type requirement struct {
	Question string
	Rubric   string
}

// complianceRequirements holds the fixed question and rubric per compliance
// dimension. Keys match the retriever's requirement ids.
var complianceRequirements = map[string]requirement{
	"password_management": {
		Question: "Password Management. The contract must require a documented password standard covering password length/strength, prohibition of default and known-compromised passwords, secure storage (no plaintext; salted hashing if stored), brute-force protections (lockout/rate limiting), prohibition on password sharing, vaulting of privileged credentials/recovery codes, and time-based rotation for break-glass credentials. Based on the contract language and exhibits, what is the compliance state for Password Management?",
		Rubric: `
Evaluate Password Management compliance per assignment requirements.

FULLY COMPLIANT if contract explicitly requires ALL of:
- Documented password standard (policy document)
- Password length/strength requirements (e.g., >=12 chars, complexity)
- Prohibition of default/known-compromised passwords
- Secure storage (no plaintext; salted hashing if stored)
- Brute-force protections (lockout/rate limiting)
- Prohibition on password sharing
- Vaulting of privileged credentials/recovery codes (e.g., break-glass accounts)
- Time-based rotation for break-glass credentials

PARTIALLY COMPLIANT if contract addresses some but not all requirements (e.g., mentions passwords but lacks vaulting or brute-force protection).

NON-COMPLIANT if no password management requirements found in evidence.
`,
	},
	"it_asset_management": {
		Question: "IT Asset Management. The contract must require an in-scope asset inventory (including cloud accounts/subscriptions, workloads, databases, security tooling), define minimum inventory fields, require at least quarterly reconciliation/review, and require secure configuration baselines with drift remediation and prohibition of insecure defaults. Based on the contract language and exhibits, what is the compliance state for IT Asset Management?",
		Rubric: `
Evaluate IT Asset Management compliance per assignment requirements.

FULLY COMPLIANT if contract explicitly requires ALL of:
- In-scope asset inventory (cloud accounts/subscriptions, workloads, databases, security tooling)
- Defined minimum inventory fields (what data must be tracked per asset)
- At least quarterly reconciliation/review of asset inventory
- Secure configuration baselines (hardening standards)
- Drift remediation (detect and fix configuration drift)
- Prohibition of insecure defaults

PARTIALLY COMPLIANT if contract addresses some but not all requirements (e.g., mentions inventory but no quarterly review or drift remediation).

NON-COMPLIANT if no IT asset management requirements found in evidence.
`,
	},
	"security_training": {
		Question: "Security Training & Background Checks. The contract must require security awareness training on hire and at least annually, and background screening for personnel with access to Company Data to the extent permitted by law, including maintaining a screening policy and attestation/evidence. Based on the contract language and exhibits, what is the compliance state for Security Training and Background Checks?",
		Rubric: `
Evaluate Security Training & Background Checks compliance per assignment requirements.

FULLY COMPLIANT if contract explicitly requires ALL of:
- Security awareness training on hire (initial onboarding training)
- Security awareness training at least annually (ongoing/refresher training)
- Background screening for personnel with access to Company Data
- Background screening to the extent permitted by law (legal compliance clause)
- Screening policy maintained by vendor
- Attestation/evidence of training and screening (documentation requirements)

PARTIALLY COMPLIANT if contract addresses some but not all requirements (e.g., mentions training but no frequency, or screening but no policy/attestation).

NON-COMPLIANT if no security training or background check requirements found in evidence.
`,
	},
	"tls_encryption": {
		Question: "Data in Transit Encryption. The contract must require encryption of Company Data in transit using TLS 1.2+ (preferably TLS 1.3 where feasible) for Company-to-Service traffic, administrative access pathways, and applicable Service-to-Subprocessor transfers, with certificate management and avoidance of insecure cipher suites. Based on the contract language and exhibits, what is the compliance state for Data in Transit Encryption?",
		Rubric: `
Evaluate Data in Transit Encryption compliance per assignment requirements.

FULLY COMPLIANT if contract explicitly requires ALL of:
- Encryption of Company Data in transit
- TLS 1.2 or higher (TLS 1.2+ minimum, TLS 1.3 preferred where feasible)
- Coverage for Company-to-Service traffic (client to vendor)
- Coverage for administrative access pathways (admin consoles, management interfaces)
- Coverage for Service-to-Subprocessor transfers (if applicable/disclosed)
- Certificate management (renewal, expiration, revocation procedures)
- Avoidance of insecure cipher suites (prohibited weak ciphers)

PARTIALLY COMPLIANT if contract addresses some but not all requirements (e.g., mentions TLS but no version, or lacks certificate management).

NON-COMPLIANT if no data in transit encryption requirements found in evidence.
`,
	},
	"authn_authz": {
		Question: "Network Authentication & Authorization Protocols. The contract must specify the authentication mechanisms (e.g., SAML SSO for users, OAuth/token-based for APIs), require MFA for privileged/production access, require secure admin pathways (bastion/secure gateway) with session logging, and require RBAC authorization. Based on the contract language and exhibits, what is the compliance state for Network Authentication and Authorization Protocols?",
		Rubric: `
Evaluate Network Authentication & Authorization compliance per assignment requirements.

FULLY COMPLIANT if contract explicitly requires ALL of:
- Specified authentication mechanisms (e.g., SAML SSO for users, OAuth/token-based for APIs)
- MFA (multi-factor authentication) for privileged/production access
- Secure admin pathways (bastion host, secure gateway, jump server)
- Session logging (audit trail of access sessions)
- RBAC (role-based access control) authorization

PARTIALLY COMPLIANT if contract addresses some but not all requirements (e.g., mentions MFA but no RBAC, or no session logging).

NON-COMPLIANT if no authentication or authorization requirements found in evidence.
`,
	},
}

const fallbackRationale = "Model output could not be parsed."

// analyzerResponse is the strict JSON shape the generator must return.
type analyzerResponse struct {
	ComplianceState string `json:"compliance_state"`
	Confidence      *int   `json:"confidence"`
	RelevantQuotes  []struct {
		Text      string `json:"text"`
		PageStart int    `json:"page_start"`
		PageEnd   int    `json:"page_end"`
	} `json:"relevant_quotes"`
	Rationale string `json:"rationale"`
}

// ComplianceAnalyzer asks the generator to judge one requirement against the
// evidence retrieved for it. The generator never sees the full document, only
// the page-labelled evidence — the evidence-first invariant everything else
// depends on.
type ComplianceAnalyzer struct {
	ai  AIService
	log *logger.Logger
}

func NewComplianceAnalyzer(ai AIService, log *logger.Logger) *ComplianceAnalyzer {
	return &ComplianceAnalyzer{ai: ai, log: log}
}

// Analyze produces one requirement's result. Generation or parse failures are
// recovered locally: one repair retry, then a deterministic fallback result.
// The only hard error is an unknown requirement id.
func (a *ComplianceAnalyzer) Analyze(ctx context.Context, requirementID string, evidence []types.EvidenceChunk) (types.Result, error) {
	req, ok := complianceRequirements[requirementID]
	if !ok {
		return types.Result{}, fmt.Errorf("unknown requirement: %s", requirementID)
	}

	prompt := a.buildPrompt(req, evidence)

	response, err := a.ai.Generate(ctx, prompt, "", 0.3, 800)
	if err != nil {
		a.log.Warn("generation failed, returning fallback result", "requirement", requirementID, "error", err)
		return a.fallbackResult(req, evidence), nil
	}

	if result, ok := a.parseResponse(response, req, evidence); ok {
		return result, nil
	}

	a.log.Warn("initial JSON parse failed, retrying with fix prompt", "requirement", requirementID)
	if result, ok := a.retryWithFixPrompt(ctx, response, req, evidence); ok {
		return result, nil
	}

	a.log.Error("JSON parsing failed after retry, returning fallback result", "requirement", requirementID)
	return a.fallbackResult(req, evidence), nil
}

func (a *ComplianceAnalyzer) buildPrompt(req requirement, evidence []types.EvidenceChunk) string {
	return fmt.Sprintf(`You are a contract compliance analyst. Analyze the following contract evidence and determine compliance.

REQUIREMENT:
%s

RUBRIC:
%s

EVIDENCE (from contract):
%s

TASK:
Based ONLY on the evidence provided above, determine the compliance state and provide your analysis.

OUTPUT FORMAT (JSON only, no other text):
{
  "compliance_state": "Fully Compliant" | "Partially Compliant" | "Non-Compliant",
  "confidence": <integer 0-100>,
  "relevant_quotes": [
    {"text": "exact quote from evidence", "page_start": <page_num>, "page_end": <page_num>}
  ],
  "rationale": "Brief explanation of determination based on evidence"
}

IMPORTANT:
- compliance_state must be EXACTLY one of: "Fully Compliant", "Partially Compliant", "Non-Compliant"
- Include only verbatim quotes from the evidence above
- Reference page numbers from evidence labels
- Return ONLY valid JSON, no additional text

JSON:`, req.Question, req.Rubric, formatEvidence(evidence))
}

// formatEvidence labels every chunk with its page range so the generator can
// cite pages it was actually shown.
func formatEvidence(evidence []types.EvidenceChunk) string {
	if len(evidence) == 0 {
		return "[No relevant evidence found in contract]"
	}

	parts := make([]string, 0, len(evidence))
	for i, chunk := range evidence {
		pageRef := fmt.Sprintf("[Pages %d", chunk.PageStart)
		if chunk.PageEnd != chunk.PageStart {
			pageRef += fmt.Sprintf("-%d", chunk.PageEnd)
		}
		pageRef += "]"
		parts = append(parts, fmt.Sprintf("Evidence %d %s:\n%s", i+1, pageRef, chunk.Text))
	}

	return strings.Join(parts, "\n\n")
}

func (a *ComplianceAnalyzer) parseResponse(response string, req requirement, evidence []types.EvidenceChunk) (types.Result, bool) {
	var parsed analyzerResponse
	if err := json.Unmarshal([]byte(extractJSON(response)), &parsed); err != nil {
		return types.Result{}, false
	}

	level := types.ComplianceLevel(parsed.ComplianceState)
	if !level.Valid() {
		return types.Result{}, false
	}
	if parsed.Confidence == nil || *parsed.Confidence < 0 || *parsed.Confidence > 100 {
		return types.Result{}, false
	}

	quotes := make([]types.Quote, 0, len(parsed.RelevantQuotes))
	for _, q := range parsed.RelevantQuotes {
		quotes = append(quotes, types.Quote{
			Text:      q.Text,
			PageStart: q.PageStart,
			PageEnd:   q.PageEnd,
			Validated: false, // the verifier decides
		})
	}

	return types.Result{
		Question:        req.Question,
		ComplianceLevel: level,
		Confidence:      *parsed.Confidence,
		RelevantQuotes:  quotes,
		Rationale:       parsed.Rationale,
		EvidenceChunks:  evidenceIDs(evidence),
	}, true
}

// extractJSON trims anything the model wrapped around the object: take the
// substring from the first '{' to the last '}'.
func extractJSON(response string) string {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start != -1 && end != -1 && end > start {
		return response[start : end+1]
	}
	return response
}

func (a *ComplianceAnalyzer) retryWithFixPrompt(ctx context.Context, invalidResponse string, req requirement, evidence []types.EvidenceChunk) (types.Result, bool) {
	truncated := invalidResponse
	if len(truncated) > 500 {
		truncated = truncated[:500]
	}

	fixPrompt := fmt.Sprintf(`The previous response was not valid JSON. Please fix it.

REQUIRED FORMAT:
{
  "compliance_state": "Fully Compliant" | "Partially Compliant" | "Non-Compliant",
  "confidence": <integer 0-100>,
  "relevant_quotes": [
    {"text": "quote", "page_start": <page>, "page_end": <page>}
  ],
  "rationale": "explanation"
}

PREVIOUS OUTPUT (invalid):
%s

Return ONLY valid JSON with the correct format:`, truncated)

	response, err := a.ai.Generate(ctx, fixPrompt, "", 0.1, 600)
	if err != nil {
		a.log.Warn("retry generation failed", "error", err)
		return types.Result{}, false
	}

	return a.parseResponse(response, req, evidence)
}

func (a *ComplianceAnalyzer) fallbackResult(req requirement, evidence []types.EvidenceChunk) types.Result {
	return types.Result{
		Question:        req.Question,
		ComplianceLevel: types.NonCompliant,
		Confidence:      10,
		RelevantQuotes:  []types.Quote{},
		Rationale:       fallbackRationale,
		EvidenceChunks:  evidenceIDs(evidence),
	}
}

func evidenceIDs(evidence []types.EvidenceChunk) []string {
	ids := make([]string, 0, len(evidence))
	for _, chunk := range evidence {
		ids = append(ids, chunk.ChunkID)
	}
	return ids
}
