package act

import (
	"strings"

	"github.com/cespare/xxhash/v2"
)

// =============================================================================
// PLAN FINGERPRINTING
// =============================================================================
//
// Pure helpers that turn an action plan into comparable signatures for
// repetition detection. Comparison across plans is only meaningful between
// plans sharing at least one action type; cross-type similarity is never a
// loop (a web search followed by a memory recall is progress, not
// repetition).

// Fingerprint renders a plan as a one-line signature:
// "type:intent | type:intent | ...".
func Fingerprint(actions []ActionSpec) string {
	parts := make([]string, len(actions))
	for i, a := range actions {
		parts[i] = a.Type + ":" + a.Intent()
	}
	return strings.Join(parts, " | ")
}

// TypeSet returns the set of action types in a plan.
func TypeSet(actions []ActionSpec) map[string]bool {
	types := make(map[string]bool, len(actions))
	for _, a := range actions {
		types[a.Type] = true
	}
	return types
}

// TypesOverlap reports whether two type sets share at least one type.
func TypesOverlap(a, b map[string]bool) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for t := range a {
		if b[t] {
			return true
		}
	}
	return false
}

// FingerprintDigest returns a stable 64-bit digest of a fingerprint, used to
// reference long fingerprints from logs and telemetry without carrying the
// full text.
func FingerprintDigest(fingerprint string) uint64 {
	return xxhash.Sum64String(fingerprint)
}
