package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Report statuses used by this service. Reports are written by other intake
// channels and may carry further statuses this service leaves alone.
const (
	ReportStatusAnalyzed  = "Analyzed"
	ReportStatusCompleted = "Completed"
)

// Report is a record from a non-SMS intake channel
type Report struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Source       string             `bson:"source,omitempty" json:"source,omitempty"`
	Description  string             `bson:"description,omitempty" json:"description,omitempty"`
	NeedType     string             `bson:"needType,omitempty" json:"needType,omitempty"`
	Urgency      string             `bson:"urgency,omitempty" json:"urgency,omitempty"`
	Location     string             `bson:"location,omitempty" json:"location,omitempty"`
	Status       string             `bson:"status" json:"status"`
	Coordinates  *Coordinates       `bson:"coordinates,omitempty" json:"coordinates,omitempty"`
	DispatchInfo `bson:",inline"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
}
