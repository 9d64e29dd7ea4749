// Package prompt assembles outbound completion requests and decides which
// parts of them are eligible for the service's prompt cache.
package prompt

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"aide/model"
)

// MarkerBudget is the most cache markers the protocol allows per request,
// across the tool list and context sub-blocks combined.
const MarkerBudget = 4

// SectionTracker decides, per outbound request, which context sections are
// byte-for-byte unchanged since the previous request. Eligibility is a
// one-request-lagging equality check: a section is eligible iff its hash
// equals the hash recorded after the previous Evaluate call, and the current
// hash is always recorded regardless of the outcome. No eligibility flag is
// ever stored.
//
// Because markers are scarce (see MarkerBudget), sections carry a fixed
// policy: the tool schema is eligible unconditionally, the live location and
// the rolling history never are.
type SectionTracker struct {
	mu     sync.Mutex
	hashes map[string]string
}

func NewSectionTracker() *SectionTracker {
	return &SectionTracker{hashes: make(map[string]string)}
}

// Evaluate returns the cache eligibility for each named section and records
// the current hashes for the next call.
func (t *SectionTracker) Evaluate(sections map[string]string) map[string]bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	eligible := make(map[string]bool, len(sections))
	for name, text := range sections {
		switch name {
		case model.SectionTools:
			// Tool schemas never change within a session.
			eligible[name] = true
		case model.SectionLocation, model.SectionHistory:
			// Location churns every request; history grows every turn.
			eligible[name] = false
		default:
			sum := contentHash(text)
			eligible[name] = text != "" && t.hashes[name] == sum
			t.hashes[name] = sum
		}
	}
	return eligible
}

// Reset forgets all recorded hashes, so the next request starts cold. Used
// when the conversation is cleared.
func (t *SectionTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hashes = make(map[string]string)
}

func contentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
