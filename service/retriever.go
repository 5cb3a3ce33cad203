package service

import (
	"math"
	"sort"
	"strings"

	"github.com/tieubaoca/contract-analyzer/types"
)

// Curated keyword queries for each compliance requirement. Order of the map
// keys is irrelevant; requirementIDs fixes the evaluation order.
var requirementQueries = map[string][]string{
	"password_management": {
		"password", "passwords", "credential", "credentials",
		"authentication", "authenticate", "passphrase",
		"complexity", "length", "characters", "uppercase", "lowercase",
		"special character", "numeric", "alphanumeric",
		"rotation", "expire", "expiration", "change", "reset",
		"salted hash", "hashing", "bcrypt", "pbkdf2",
		"lockout", "rate limiting", "brute force", "attempts",
		"multi-factor", "MFA", "2FA", "two-factor",
		"break-glass", "emergency access", "vault", "secret management",
	},
	"it_asset_management": {
		"asset", "assets", "inventory", "inventories",
		"hardware", "software", "device", "devices",
		"tracking", "monitor", "monitoring", "management",
		"CMDB", "configuration management", "discovery",
		"lifecycle", "provisioning", "decommission",
		"quarterly reconciliation", "reconcile", "audit trail",
		"drift remediation", "compliance scan", "baseline",
		"patch management", "vulnerability", "update",
	},
	"security_training": {
		"training", "awareness", "education", "course",
		"security awareness", "cybersecurity training",
		"phishing", "social engineering", "incident response",
		"background check", "background screening", "screening",
		"criminal history", "employment verification",
		"security clearance", "vetting", "personnel security",
		"onboarding", "annual training", "refresher",
		"attestation", "acknowledgment", "certification",
		"evidence", "completion record", "certificate",
	},
	"tls_encryption": {
		"TLS", "SSL", "transport layer security",
		"encryption", "encrypted", "encrypt",
		"in transit", "data in transit", "transmission",
		"TLS 1.2", "TLS 1.3", "protocol version",
		"cipher suite", "cipher", "encryption algorithm",
		"certificate", "cert", "CA", "certificate authority",
		"cert management", "certificate lifecycle", "renewal",
		"PKI", "public key infrastructure",
		"HTTPS", "secure channel", "encrypted channel",
	},
	"authn_authz": {
		"authentication", "authorization", "access control",
		"identity", "IAM", "identity management",
		"SSO", "single sign-on", "federated",
		"SAML", "OAuth", "OpenID", "OIDC",
		"RBAC", "role-based", "access control",
		"least privilege", "privilege", "permissions",
		"session", "session management", "timeout",
		"session logging", "audit log", "access log",
		"bastion", "jump host", "privileged access",
		"MFA", "multi-factor", "two-factor",
	},
}

// requirementIDs is the fixed evaluation order of the five compliance
// dimensions.
var requirementIDs = []string{
	"password_management",
	"it_asset_management",
	"security_training",
	"tls_encryption",
	"authn_authz",
}

// RequirementIDs returns the fixed ordered list of compliance dimension ids.
func RequirementIDs() []string {
	out := make([]string, len(requirementIDs))
	copy(out, requirementIDs)
	return out
}

// BM25Retriever ranks chunks against a query with Okapi BM25 over normalized
// text. It is pure: no randomness, no wall clock, identical input gives
// identical output.
type BM25Retriever struct{}

func NewBM25Retriever() *BM25Retriever {
	return &BM25Retriever{}
}

// Retrieve scores every chunk against the query and returns the top topK as
// evidence, most relevant first. query is either a known requirement id
// (curated keywords) or free text (lowercased, whitespace-tokenized). Equal
// scores preserve original chunk order. Retained scores are rescaled by the
// maximum retained score; all zero when the maximum is zero.
func (r *BM25Retriever) Retrieve(query string, chunks []types.Chunk, topK int) []types.EvidenceChunk {
	if len(chunks) == 0 || topK <= 0 {
		return nil
	}

	keywords, ok := requirementQueries[query]
	if !ok {
		keywords = strings.Fields(strings.ToLower(query))
	}

	corpus := make([][]string, len(chunks))
	for i, chunk := range chunks {
		corpus[i] = strings.Fields(chunk.NormalizedText)
	}

	index := newBM25Index(corpus)
	scores := index.scores(keywords)

	order := make([]int, len(chunks))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if topK > len(order) {
		topK = len(order)
	}
	retained := order[:topK]

	maxScore := 0.0
	for _, idx := range retained {
		if scores[idx] > maxScore {
			maxScore = scores[idx]
		}
	}

	evidence := make([]types.EvidenceChunk, 0, len(retained))
	for _, idx := range retained {
		score := 0.0
		if maxScore > 0 {
			score = scores[idx] / maxScore
		}
		evidence = append(evidence, types.EvidenceChunk{
			Chunk:          chunks[idx],
			RelevanceScore: score,
		})
	}

	return evidence
}

// Okapi BM25 parameters. Negative IDF values are floored at
// epsilon*averageIDF so very common terms still contribute a little instead
// of punishing documents that contain them.
const (
	bm25K1      = 1.5
	bm25B       = 0.75
	bm25Epsilon = 0.25
)

type bm25Index struct {
	termFreqs []map[string]int
	idf       map[string]float64
	docLens   []int
	avgDocLen float64
}

func newBM25Index(corpus [][]string) *bm25Index {
	idx := &bm25Index{
		termFreqs: make([]map[string]int, len(corpus)),
		idf:       make(map[string]float64),
		docLens:   make([]int, len(corpus)),
	}

	docFreq := make(map[string]int)
	totalLen := 0
	for i, doc := range corpus {
		freqs := make(map[string]int, len(doc))
		for _, term := range doc {
			freqs[term]++
		}
		idx.termFreqs[i] = freqs
		idx.docLens[i] = len(doc)
		totalLen += len(doc)
		for term := range freqs {
			docFreq[term]++
		}
	}
	if len(corpus) > 0 {
		idx.avgDocLen = float64(totalLen) / float64(len(corpus))
	}

	n := float64(len(corpus))
	idfSum := 0.0
	var negative []string
	for term, freq := range docFreq {
		idf := math.Log((n - float64(freq) + 0.5) / (float64(freq) + 0.5))
		idx.idf[term] = idf
		idfSum += idf
		if idf < 0 {
			negative = append(negative, term)
		}
	}
	if len(docFreq) > 0 {
		averageIDF := idfSum / float64(len(docFreq))
		floor := bm25Epsilon * averageIDF
		for _, term := range negative {
			idx.idf[term] = floor
		}
	}

	return idx
}

func (idx *bm25Index) scores(query []string) []float64 {
	scores := make([]float64, len(idx.termFreqs))
	if idx.avgDocLen == 0 {
		return scores
	}
	for i, freqs := range idx.termFreqs {
		norm := bm25K1 * (1 - bm25B + bm25B*float64(idx.docLens[i])/idx.avgDocLen)
		s := 0.0
		for _, term := range query {
			f := float64(freqs[term])
			if f == 0 {
				continue
			}
			s += idx.idf[term] * f * (bm25K1 + 1) / (f + norm)
		}
		scores[i] = s
	}
	return scores
}
