// Package repository declares the per-collection operations the pipeline
// needs from the document store. There are no cross-collection transactions:
// every method is a single find or a single (bulk) write.
//
// Finders return (nil, nil) when nothing matches.
package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"relief-http-service/internal/domain/models"
)

// MemberRepository covers the operations shared by needs and reports when
// they take part in a mission.
type MemberRepository interface {
	Kind() models.SourceKind
	// FindMember loads the alert view of one record
	FindMember(ctx context.Context, id primitive.ObjectID) (*models.MemberRecord, error)
	// SetStatus bulk-sets status on the given records
	SetStatus(ctx context.Context, ids []primitive.ObjectID, status string) (int64, error)
	// ResetForReroute returns records that are not Completed to the given
	// status, marks dispatch and emergency state pending, records the new
	// station and clears the old mission linkage.
	ResetForReroute(ctx context.Context, ids []primitive.ObjectID, status string, station models.Station) (int64, error)
	// AnyDispatched reports whether any record has emergency status dispatched
	AnyDispatched(ctx context.Context, ids []primitive.ObjectID) (bool, error)
	// MarkDispatched links a record to a delivered alert
	MarkDispatched(ctx context.Context, id primitive.ObjectID, alertID primitive.ObjectID, station models.Station) error
}

// NeedRepository is the needs collection
type NeedRepository interface {
	MemberRepository
	Insert(ctx context.Context, need *models.Need) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Need, error)
	// ListByStatus returns newest first by createdAt, or by verifiedAt for Verified
	ListByStatus(ctx context.Context, status models.NeedStatus, limit int) ([]models.Need, error)
	// ListWithCoordinates returns needs that have numeric lat/lon, newest first
	ListWithCoordinates(ctx context.Context, limit int) ([]models.Need, error)
	// MarkVerified moves an Unverified need to Verified. It reports false when
	// no Unverified need with that id exists.
	MarkVerified(ctx context.Context, id primitive.ObjectID, notes string, at time.Time) (bool, error)
	// SetCoordinates fills coordinates on a need that has none. It reports
	// false when the need is missing or already located.
	SetCoordinates(ctx context.Context, id primitive.ObjectID, coords models.Coordinates) (bool, error)
}

// ReportRepository is the reports collection
type ReportRepository interface {
	MemberRepository
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Report, error)
}

// MissionRepository is the missions collection
type MissionRepository interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Mission, error)
	// List returns missions with the status, newest timestamp first
	List(ctx context.Context, status models.MissionStatus, limit int) ([]models.Mission, error)
	// Latest returns the newest Active mission
	Latest(ctx context.Context) (*models.Mission, error)
	// Complete moves an Active mission to Completed. It reports false when the
	// mission was not Active at write time.
	Complete(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error)
	// Reroute moves an Active mission to Rerouted with the target station.
	// It reports false when the mission was not Active at write time.
	Reroute(ctx context.Context, id primitive.ObjectID, station models.Station, at time.Time) (bool, error)
}

// AlertRepository is the emergencyalerts collection
type AlertRepository interface {
	Insert(ctx context.Context, alert *models.EmergencyAlert) error
	// CancelOpenForSources cancels every alert for the sources that is not
	// already cancelled or resolved, in one bulk write.
	CancelOpenForSources(ctx context.Context, sourceIDs []primitive.ObjectID, reason string, at time.Time) (int64, error)
	MarkDispatched(ctx context.Context, id primitive.ObjectID, at time.Time) error
	MarkDeliveryFailed(ctx context.Context, id primitive.ObjectID, reason string) error
	ListBySource(ctx context.Context, sourceID primitive.ObjectID, limit int) ([]models.EmergencyAlert, error)
}

// Store bundles the four collections
type Store struct {
	Needs    NeedRepository
	Reports  ReportRepository
	Missions MissionRepository
	Alerts   AlertRepository
	// Ping checks store connectivity, nil for stores that cannot fail
	Ping func(ctx context.Context) error
}
