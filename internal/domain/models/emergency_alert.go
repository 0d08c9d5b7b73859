package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AlertStatus is the state of one emergency alert
type AlertStatus string

const (
	AlertStatusPending    AlertStatus = "pending"
	AlertStatusDispatched AlertStatus = "dispatched"
	AlertStatusCancelled  AlertStatus = "cancelled"
	AlertStatusResolved   AlertStatus = "resolved"
)

// Terminal reports whether the alert can no longer be cancelled
func (s AlertStatus) Terminal() bool {
	return s == AlertStatusCancelled || s == AlertStatusResolved
}

// Per-station delivery statuses
const (
	DeliveryPending   = "pending"
	DeliverySent      = "sent"
	DeliveryFailed    = "failed"
	DeliveryCancelled = "cancelled"
)

// StationDelivery tracks one alert's delivery to one station
type StationDelivery struct {
	StationType string     `bson:"stationType" json:"stationType"`
	StationName string     `bson:"stationName" json:"stationName"`
	Status      string     `bson:"status" json:"status"`
	SentAt      *time.Time `bson:"sentAt,omitempty" json:"sentAt,omitempty"`
	Error       string     `bson:"error,omitempty" json:"error,omitempty"`
}

// EmergencyAlert is one notification sent to stations on behalf of a need or report
type EmergencyAlert struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	MessageID      string             `bson:"messageId" json:"messageId"`
	SourceID       primitive.ObjectID `bson:"sourceId" json:"sourceId"`
	SourceType     SourceKind         `bson:"sourceType" json:"sourceType"`
	Status         AlertStatus        `bson:"status" json:"status"`
	NeedType       string             `bson:"needType,omitempty" json:"needType,omitempty"`
	Urgency        string             `bson:"urgency,omitempty" json:"urgency,omitempty"`
	Summary        string             `bson:"summary,omitempty" json:"summary,omitempty"`
	Location       string             `bson:"location,omitempty" json:"location,omitempty"`
	Coordinates    *Coordinates       `bson:"coordinates,omitempty" json:"coordinates,omitempty"`
	SentToStations []StationDelivery  `bson:"sentToStations" json:"sentToStations"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	DispatchedAt   *time.Time         `bson:"dispatchedAt,omitempty" json:"dispatchedAt,omitempty"`
	CancelledAt    *time.Time         `bson:"cancelledAt,omitempty" json:"cancelledAt,omitempty"`
	CancelReason   string             `bson:"cancelReason,omitempty" json:"cancelReason,omitempty"`
}

// StationAlertMessage is the payload published to a station
type StationAlertMessage struct {
	Type       string     `json:"type"`
	MessageID  string     `json:"message_id"`
	AlertID    string     `json:"alert_id"`
	SourceID   string     `json:"source_id"`
	SourceType SourceKind `json:"source_type"`
	NeedType   string     `json:"need_type,omitempty"`
	Urgency    string     `json:"urgency,omitempty"`
	Summary    string     `json:"summary,omitempty"`
	Location   string     `json:"location,omitempty"`
	Contact    string     `json:"contact,omitempty"`
	Lat        *float64   `json:"lat,omitempty"`
	Lon        *float64   `json:"lon,omitempty"`
	Station    Station    `json:"station"`
	Timestamp  int64      `json:"timestamp"`
}
