// Package repetition detects looping action plans: a cheap type-run counter
// handled by the loop itself, and a semantic detector that compares plan
// fingerprints through an injected embedding provider.
package repetition

import (
	"context"
	"fmt"
	"math"

	"github.com/jeeves-cluster-organization/actengine/actcore/act"
)

// TypeRunLimit is the consecutive single-action same-type count at which the
// type-based guard trips.
const TypeRunLimit = 3

// maxLookback bounds how many prior window entries the semantic scan visits.
const maxLookback = 3

// Embedder produces unit vectors for plan fingerprints. Used only when
// smart repetition is enabled.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Match is the outcome of one semantic scan.
type Match struct {
	Repeated    bool    `json:"repeated"`
	Similarity  float64 `json:"similarity"`
	Fingerprint string  `json:"fingerprint,omitempty"`
}

// =============================================================================
// SMART DETECTOR
// =============================================================================

// SmartDetector flags plans that semantically repeat recent plans of a
// shared action type. Plans with disjoint type sets are never compared;
// switching tools is progress, not looping.
type SmartDetector struct {
	embedder  Embedder
	threshold float64
}

// NewSmartDetector creates a detector. Similarity strictly greater than
// threshold counts as repetition.
func NewSmartDetector(embedder Embedder, threshold float64) *SmartDetector {
	return &SmartDetector{embedder: embedder, threshold: threshold}
}

// Scan compares the newest window entry against up to three entries before
// it, most recent first, skipping entries that share no action type. The
// first similarity above the threshold wins.
//
// Embedding failures abort the scan with an error; the caller decides
// whether detection is worth retrying (the loop treats it as best-effort
// and moves on).
func (d *SmartDetector) Scan(ctx context.Context, window []act.WindowEntry) (Match, error) {
	if d.embedder == nil {
		return Match{}, fmt.Errorf("smart repetition requires an embedder")
	}
	if len(window) < 2 {
		return Match{}, nil
	}

	current := window[len(window)-1]
	currentVec, err := d.embedder.Embed(ctx, current.Fingerprint)
	if err != nil {
		return Match{}, fmt.Errorf("embed current fingerprint: %w", err)
	}

	candidates := window[:len(window)-1]
	visited := 0
	for i := len(candidates) - 1; i >= 0 && visited < maxLookback; i-- {
		prior := candidates[i]
		visited++
		if !act.TypesOverlap(current.Types, prior.Types) {
			continue
		}

		priorVec, err := d.embedder.Embed(ctx, prior.Fingerprint)
		if err != nil {
			return Match{}, fmt.Errorf("embed prior fingerprint: %w", err)
		}

		if sim := cosine(currentVec, priorVec); sim > d.threshold {
			return Match{Repeated: true, Similarity: sim, Fingerprint: prior.Fingerprint}, nil
		}
	}

	return Match{}, nil
}

// cosine computes cosine similarity; mismatched or zero vectors score 0.
func cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
