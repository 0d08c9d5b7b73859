package models

import "time"

const noDescription = "No description"

// TaskDTO is a need as shown on the volunteer task lists
type TaskDTO struct {
	ID          string    `json:"id" example:"665f1c2e9b1d4a0012ab34cd"`
	TaskID      string    `json:"taskId" example:"665f1c2e9b1d4a0012ab34cd"`
	Description string    `json:"description" example:"Need medical help urgently"`
	Notes       string    `json:"notes"`
	Location    string    `json:"location" example:"Koregaon Park"`
	NeedType    string    `json:"needType" example:"Medical"`
	Urgency     string    `json:"urgency" example:"High"`
	PhoneNumber string    `json:"phoneNumber" example:"+15551234567"`
	Status      string    `json:"status" example:"Unverified"`
	CreatedAt   time.Time `json:"createdAt"`
	Lat         *float64  `json:"lat,omitempty" example:"18.5362"`
	Lon         *float64  `json:"lon,omitempty" example:"73.894"`
}

// MapNeedDTO is a located need as shown on the map
type MapNeedDTO struct {
	ID          string     `json:"id"`
	Lat         float64    `json:"lat"`
	Lon         float64    `json:"lon"`
	Status      string     `json:"status"`
	Description string     `json:"description"`
	NeedType    string     `json:"needType"`
	Urgency     string     `json:"urgency"`
	Location    string     `json:"location"`
	VerifiedAt  *time.Time `json:"verifiedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// VerifiedTask is the verification outcome returned to the volunteer
type VerifiedTask struct {
	ID                string     `json:"id"`
	Status            string     `json:"status"`
	VerificationNotes string     `json:"verificationNotes"`
	VerifiedAt        *time.Time `json:"verifiedAt"`
}

// MissionDTO is a mission as shown on the dashboard
type MissionDTO struct {
	ID            string      `json:"id"`
	Routes        interface{} `json:"routes" swaggertype:"array,object"`
	ReportIDs     []string    `json:"reportIds"`
	NeedIDs       []string    `json:"needIds"`
	Status        string      `json:"status" example:"Active"`
	NumVehicles   int         `json:"numVehicles"`
	Timestamp     time.Time   `json:"timestamp"`
	Station       *Station    `json:"station"`
	HasDispatched *bool       `json:"hasDispatched,omitempty"`
	CompletedAt   *time.Time  `json:"completedAt,omitempty"`
	ReroutedAt    *time.Time  `json:"reroutedAt,omitempty"`
	ReroutedTo    *Station    `json:"reroutedTo,omitempty"`
}

func describeNeed(n *Need) string {
	if n.TriageData.Details != "" {
		return n.TriageData.Details
	}
	if n.RawMessage != "" {
		return n.RawMessage
	}
	return noDescription
}

// ToTaskDTO converts a need for the task lists
func (n *Need) ToTaskDTO() TaskDTO {
	dto := TaskDTO{
		ID:          n.ID.Hex(),
		TaskID:      n.ID.Hex(),
		Description: describeNeed(n),
		Notes:       n.TriageData.Location,
		Location:    n.TriageData.Location,
		NeedType:    n.TriageData.NeedType,
		Urgency:     n.TriageData.Urgency,
		PhoneNumber: n.FromNumber,
		Status:      string(n.Status),
		CreatedAt:   n.CreatedAt,
	}
	if n.Coordinates != nil {
		lat, lon := n.Coordinates.Lat, n.Coordinates.Lon
		dto.Lat, dto.Lon = &lat, &lon
	}
	return dto
}

// ToMapDTO converts a located need for the map. Callers must check HasCoordinates.
func (n *Need) ToMapDTO() MapNeedDTO {
	location := n.TriageData.Location
	if location == "" {
		location = n.Coordinates.FormattedAddress
	}
	return MapNeedDTO{
		ID:          n.ID.Hex(),
		Lat:         n.Coordinates.Lat,
		Lon:         n.Coordinates.Lon,
		Status:      string(n.Status),
		Description: describeNeed(n),
		NeedType:    n.TriageData.NeedType,
		Urgency:     n.TriageData.Urgency,
		Location:    location,
		VerifiedAt:  n.VerifiedAt,
		CreatedAt:   n.CreatedAt,
	}
}
