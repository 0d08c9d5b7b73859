package models

// UnknownLocation is what triage reports when the message names no place
const UnknownLocation = "Unknown"

// TriageData is the structured extraction from a raw message
type TriageData struct {
	NeedType string `bson:"needType" json:"needType" example:"Medical"`
	Urgency  string `bson:"urgency" json:"urgency" example:"High"`
	Location string `bson:"location" json:"location" example:"Koregaon Park"`
	Details  string `bson:"details" json:"details" example:"Need medical help urgently"`
}

// HasLocation reports whether triage produced a usable place name
func (t TriageData) HasLocation() bool {
	return t.Location != "" && t.Location != UnknownLocation
}

// Triage sources
const (
	TriageSourcePrimary  = "primary"
	TriageSourceFallback = "fallback"
)
