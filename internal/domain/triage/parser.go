// Package triage holds the deterministic message parser used when the
// generative triage capability is unavailable.
package triage

import (
	"regexp"
	"strings"

	"relief-http-service/internal/domain/models"
)

// Need categories
const (
	NeedMedical = "Medical"
	NeedRescue  = "Rescue"
	NeedFood    = "Food"
	NeedWater   = "Water"
	NeedShelter = "Shelter"
	NeedOther   = "Other"
)

// Urgency levels
const (
	UrgencyHigh   = "High"
	UrgencyMedium = "Medium"
	UrgencyLow    = "Low"
)

const noDetails = "No details provided"

type category struct {
	re       *regexp.Regexp
	needType string
}

// Checked in order, first match wins. Rescue sits before water so that
// flood messages about people stranded are not filed as water supply.
var categories = []category{
	{regexp.MustCompile(`(?i)\b(medical|medicine|medic|doctor|injur\w*|hurt|bleed\w*|ambulance|sick|fever|unconscious|hospital|first[\s-]?aid|pregnan\w*|insulin|heart attack)\b`), NeedMedical},
	{regexp.MustCompile(`(?i)\b(rescue|stranded|trapped|stuck|drown\w*|boat|evacuat\w*|collapsed|missing|rooftop|flood\w*)\b`), NeedRescue},
	{regexp.MustCompile(`(?i)\b(food|hungry|hunger|meals?|rations?|packets?|rice|milk|starving)\b`), NeedFood},
	{regexp.MustCompile(`(?i)\b(water|drinking|thirst\w*|dehydrat\w*)\b`), NeedWater},
	{regexp.MustCompile(`(?i)\b(shelter|roof|homeless|tent|blankets?|housing|camp)\b`), NeedShelter},
}

var (
	highUrgency = regexp.MustCompile(`(?i)\b(urgent\w*|emergency|immediate\w*|asap|critical|dying|sos|help\s+fast|life[\s-]threatening|trapped|stranded|drown\w*|unconscious|bleed\w*)\b`)
	lowUrgency  = regexp.MustCompile(`(?i)\b(not\s+urgent|no\s+rush|when\s+possible|whenever|low\s+priority)\b`)
	spaces      = regexp.MustCompile(`\s+`)
)

// Parse extracts a triage payload from raw text. It never fails and always
// fills all four fields.
func Parse(text string) models.TriageData {
	clean := collapse(text)

	location := ExtractLocationHint(clean)
	if location == "" {
		location = models.UnknownLocation
	}

	details := clean
	if details == "" {
		details = noDetails
	}

	return models.TriageData{
		NeedType: classify(clean),
		Urgency:  urgency(clean),
		Location: location,
		Details:  details,
	}
}

// Complete fills the blanks of a triage payload from another source and
// canonicalizes the enumerated fields.
func Complete(t models.TriageData, rawMessage string) models.TriageData {
	t.NeedType = canonicalNeedType(t.NeedType)
	t.Urgency = canonicalUrgency(t.Urgency)
	t.Location = strings.TrimSpace(t.Location)
	if t.Location == "" || strings.EqualFold(t.Location, models.UnknownLocation) {
		t.Location = models.UnknownLocation
	}
	t.Details = strings.TrimSpace(t.Details)
	if t.Details == "" {
		t.Details = collapse(rawMessage)
	}
	if t.Details == "" {
		t.Details = noDetails
	}
	return t
}

func classify(text string) string {
	for _, c := range categories {
		if c.re.MatchString(text) {
			return c.needType
		}
	}
	return NeedOther
}

func urgency(text string) string {
	switch {
	case lowUrgency.MatchString(text):
		return UrgencyLow
	case highUrgency.MatchString(text):
		return UrgencyHigh
	default:
		return UrgencyMedium
	}
}

func canonicalNeedType(v string) string {
	v = strings.TrimSpace(v)
	for _, known := range []string{NeedMedical, NeedRescue, NeedFood, NeedWater, NeedShelter, NeedOther} {
		if strings.EqualFold(v, known) {
			return known
		}
	}
	if v == "" {
		return NeedOther
	}
	// an unknown category from the model is kept but title-cased
	return strings.ToUpper(v[:1]) + strings.ToLower(v[1:])
}

func canonicalUrgency(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "high", "critical", "urgent":
		return UrgencyHigh
	case "low":
		return UrgencyLow
	default:
		return UrgencyMedium
	}
}

func collapse(s string) string {
	return strings.TrimSpace(spaces.ReplaceAllString(s, " "))
}
