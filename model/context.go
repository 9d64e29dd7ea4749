package model

import "time"

// Section names for the fixed set of context sections that make up the
// synthetic first message of a request. The request builder serializes them
// in exactly this order; the section tracker decides cache eligibility.
const (
	SectionTools    = "tools"
	SectionMemory   = "memory"
	SectionSchedule = "schedule"
	SectionLocation = "location"
	SectionHistory  = "history"
)

// ContextSections is the typed context attached to the front of every
// request. It is serialized to text only at the request-builder boundary, so
// no component ever has to split a context blob back apart by header text.
//
// Timestamp is filled at build time by the builder itself and always
// reflects wall-clock "now", even when every other section is reused.
type ContextSections struct {
	Timestamp time.Time
	Memory    string
	Schedule  string
	Location  string
	History   string
}
