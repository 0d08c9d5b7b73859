package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// SourceKind tags which collection a mission member or alert source lives in
type SourceKind string

const (
	SourceReport SourceKind = "Report"
	SourceNeed   SourceKind = "Need"
)

// MemberRecord is the common view of a need or report used to build a station alert
type MemberRecord struct {
	ID              primitive.ObjectID
	Kind            SourceKind
	Status          string
	Summary         string
	NeedType        string
	Urgency         string
	Location        string
	Contact         string
	Coordinates     *Coordinates
	EmergencyStatus string
}

// MemberFromNeed builds the alert view of a need
func MemberFromNeed(n *Need) *MemberRecord {
	summary := n.TriageData.Details
	if summary == "" {
		summary = n.RawMessage
	}
	location := n.TriageData.Location
	if n.Coordinates != nil && n.Coordinates.FormattedAddress != "" && !n.TriageData.HasLocation() {
		location = n.Coordinates.FormattedAddress
	}
	return &MemberRecord{
		ID:              n.ID,
		Kind:            SourceNeed,
		Status:          string(n.Status),
		Summary:         summary,
		NeedType:        n.TriageData.NeedType,
		Urgency:         n.TriageData.Urgency,
		Location:        location,
		Contact:         n.FromNumber,
		Coordinates:     n.Coordinates,
		EmergencyStatus: n.EmergencyStatus,
	}
}

// MemberFromReport builds the alert view of a report
func MemberFromReport(r *Report) *MemberRecord {
	return &MemberRecord{
		ID:              r.ID,
		Kind:            SourceReport,
		Status:          r.Status,
		Summary:         r.Description,
		NeedType:        r.NeedType,
		Urgency:         r.Urgency,
		Location:        r.Location,
		Coordinates:     r.Coordinates,
		EmergencyStatus: r.EmergencyStatus,
	}
}
