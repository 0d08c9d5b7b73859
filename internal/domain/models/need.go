package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NeedStatus is the verification state of a need
type NeedStatus string

const (
	NeedStatusUnverified NeedStatus = "Unverified"
	NeedStatusVerified   NeedStatus = "Verified"
	NeedStatusCompleted  NeedStatus = "Completed"
)

// Emergency status of a need or report with respect to station alerts
const (
	EmergencyStatusPending    = "pending"
	EmergencyStatusDispatched = "dispatched"
	EmergencyStatusCancelled  = "cancelled"
)

// Dispatch status of a need or report with respect to mission formation
const (
	DispatchStatusPending    = "Pending"
	DispatchStatusDispatched = "Dispatched"
)

// Coordinates is a geocoded position
type Coordinates struct {
	Lat              float64 `bson:"lat" json:"lat"`
	Lon              float64 `bson:"lon" json:"lon"`
	FormattedAddress string  `bson:"formattedAddress,omitempty" json:"formattedAddress,omitempty"`
}

// DispatchInfo is the mission and alert linkage shared by needs and reports
type DispatchInfo struct {
	MissionID         interface{}         `bson:"mission_id,omitempty" json:"-"`
	AssignedStation   *Station            `bson:"assigned_station,omitempty" json:"assigned_station,omitempty"`
	EmergencyStatus   string              `bson:"emergencyStatus,omitempty" json:"emergencyStatus,omitempty"`
	EmergencyAlertID  *primitive.ObjectID `bson:"emergencyAlertId,omitempty" json:"emergencyAlertId,omitempty"`
	DispatchStatus    string              `bson:"dispatch_status,omitempty" json:"dispatch_status,omitempty"`
	ReroutedToStation *Station            `bson:"rerouted_to_station,omitempty" json:"rerouted_to_station,omitempty"`
}

// Need is a citizen request captured from an inbound message
type Need struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FromNumber        string             `bson:"fromNumber" json:"fromNumber"`
	RawMessage        string             `bson:"rawMessage" json:"rawMessage"`
	TriageData        TriageData         `bson:"triageData" json:"triageData"`
	Status            NeedStatus         `bson:"status" json:"status"`
	Coordinates       *Coordinates       `bson:"coordinates,omitempty" json:"coordinates,omitempty"`
	VerificationNotes string             `bson:"verificationNotes,omitempty" json:"verificationNotes,omitempty"`
	VerifiedAt        *time.Time         `bson:"verifiedAt,omitempty" json:"verifiedAt,omitempty"`
	DispatchInfo      `bson:",inline"`
	CreatedAt         time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time `bson:"updatedAt" json:"updatedAt"`
}

// HasCoordinates reports whether the need can be placed on a map
func (n *Need) HasCoordinates() bool {
	return n.Coordinates != nil
}
