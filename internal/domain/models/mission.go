package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MissionStatus is the lifecycle state of a mission
type MissionStatus string

const (
	MissionStatusActive    MissionStatus = "Active"
	MissionStatusCompleted MissionStatus = "Completed"
	MissionStatusRerouted  MissionStatus = "Rerouted"
)

// ParseMissionStatus accepts a status in any letter case
func ParseMissionStatus(s string) (MissionStatus, bool) {
	switch MissionStatus(s) {
	case MissionStatusActive, MissionStatusCompleted, MissionStatusRerouted:
		return MissionStatus(s), true
	}
	for _, st := range []MissionStatus{MissionStatusActive, MissionStatusCompleted, MissionStatusRerouted} {
		if strings.EqualFold(string(st), s) {
			return st, true
		}
	}
	return "", false
}

// Mission groups verified needs and reports serviced together. Missions are
// written by an external formation agent, so member references are kept raw
// and normalized on read.
type Mission struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	ReportIDs   []interface{}      `bson:"report_ids"`
	NeedIDs     []interface{}      `bson:"need_ids"`
	Routes      interface{}        `bson:"routes,omitempty"`
	NumVehicles int                `bson:"num_vehicles"`
	Timestamp   time.Time          `bson:"timestamp"`
	Station     *Station           `bson:"station,omitempty"`
	Status      MissionStatus      `bson:"status"`
	CompletedAt *time.Time         `bson:"completedAt,omitempty"`
	ReroutedAt  *time.Time         `bson:"reroutedAt,omitempty"`
	ReroutedTo  *Station           `bson:"reroutedTo,omitempty"`
}
