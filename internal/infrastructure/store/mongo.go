package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"relief-http-service/internal/domain/models"
	"relief-http-service/internal/domain/repository"
)

// Collection names shared with the other services writing the same database
const (
	NeedsCollection    = "needs"
	ReportsCollection  = "reports"
	MissionsCollection = "missions"
	AlertsCollection   = "emergencyalerts"
)

// NewMongoStore builds the repositories over db. ping is used for health checks.
func NewMongoStore(db *mongo.Database, ping func(ctx context.Context) error) repository.Store {
	return repository.Store{
		Needs:    &mongoNeeds{mongoMembers{coll: db.Collection(NeedsCollection), kind: models.SourceNeed, completed: string(models.NeedStatusCompleted)}},
		Reports:  &mongoReports{mongoMembers{coll: db.Collection(ReportsCollection), kind: models.SourceReport, completed: models.ReportStatusCompleted}},
		Missions: &mongoMissions{coll: db.Collection(MissionsCollection)},
		Alerts:   &mongoAlerts{coll: db.Collection(AlertsCollection)},
		Ping:     ping,
	}
}

// findOne decodes a single document, mapping no match to (nil, nil)
func findOne[T any](ctx context.Context, coll *mongo.Collection, filter interface{}, opts ...*options.FindOneOptions) (*T, error) {
	var out T
	err := coll.FindOne(ctx, filter, opts...).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter interface{}, sort bson.D, limit int) ([]T, error) {
	opts := options.Find().SetSort(sort)
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	out := []T{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ---- members ----

// mongoMembers holds the operations needs and reports share
type mongoMembers struct {
	coll      *mongo.Collection
	kind      models.SourceKind
	completed string
}

func (r *mongoMembers) Kind() models.SourceKind { return r.kind }

func (r *mongoMembers) SetStatus(ctx context.Context, ids []primitive.ObjectID, status string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := r.coll.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		bson.M{"$set": bson.M{"status": status, "updatedAt": time.Now()}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *mongoMembers) ResetForReroute(ctx context.Context, ids []primitive.ObjectID, status string, station models.Station) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := r.coll.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}, "status": bson.M{"$ne": r.completed}},
		bson.M{
			"$set": bson.M{
				"status":              status,
				"dispatch_status":     models.DispatchStatusPending,
				"emergencyStatus":     models.EmergencyStatusPending,
				"rerouted_to_station": station,
				"updatedAt":           time.Now(),
			},
			"$unset": bson.M{"mission_id": "", "assigned_station": "", "emergencyAlertId": ""},
		},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *mongoMembers) AnyDispatched(ctx context.Context, ids []primitive.ObjectID) (bool, error) {
	if len(ids) == 0 {
		return false, nil
	}
	err := r.coll.FindOne(ctx,
		bson.M{"_id": bson.M{"$in": ids}, "emergencyStatus": models.EmergencyStatusDispatched},
		options.FindOne().SetProjection(bson.M{"_id": 1}),
	).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	return err == nil, err
}

func (r *mongoMembers) MarkDispatched(ctx context.Context, id, alertID primitive.ObjectID, station models.Station) error {
	_, err := r.coll.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"emergencyStatus":  models.EmergencyStatusDispatched,
		"emergencyAlertId": alertID,
		"assigned_station": station,
		"updatedAt":        time.Now(),
	}})
	return err
}

// ---- needs ----

type mongoNeeds struct{ mongoMembers }

func (r *mongoNeeds) Insert(ctx context.Context, need *models.Need) error {
	if need.ID.IsZero() {
		need.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, need)
	return err
}

func (r *mongoNeeds) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Need, error) {
	return findOne[models.Need](ctx, r.coll, bson.M{"_id": id})
}

func (r *mongoNeeds) FindMember(ctx context.Context, id primitive.ObjectID) (*models.MemberRecord, error) {
	n, err := r.FindByID(ctx, id)
	if err != nil || n == nil {
		return nil, err
	}
	return models.MemberFromNeed(n), nil
}

func (r *mongoNeeds) ListByStatus(ctx context.Context, status models.NeedStatus, limit int) ([]models.Need, error) {
	sortKey := "createdAt"
	if status == models.NeedStatusVerified {
		sortKey = "verifiedAt"
	}
	return findAll[models.Need](ctx, r.coll, bson.M{"status": status}, bson.D{{Key: sortKey, Value: -1}}, limit)
}

func (r *mongoNeeds) ListWithCoordinates(ctx context.Context, limit int) ([]models.Need, error) {
	filter := bson.M{
		"coordinates.lat": bson.M{"$type": "number"},
		"coordinates.lon": bson.M{"$type": "number"},
	}
	return findAll[models.Need](ctx, r.coll, filter, bson.D{{Key: "createdAt", Value: -1}}, limit)
}

func (r *mongoNeeds) MarkVerified(ctx context.Context, id primitive.ObjectID, notes string, at time.Time) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.NeedStatusUnverified},
		bson.M{"$set": bson.M{
			"status":            models.NeedStatusVerified,
			"verificationNotes": notes,
			"verifiedAt":        at,
			"updatedAt":         at,
		}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (r *mongoNeeds) SetCoordinates(ctx context.Context, id primitive.ObjectID, coords models.Coordinates) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		// null matches both a missing field and an explicit null
		bson.M{"_id": id, "coordinates": nil},
		bson.M{"$set": bson.M{"coordinates": coords, "updatedAt": time.Now()}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

// ---- reports ----

type mongoReports struct{ mongoMembers }

func (r *mongoReports) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Report, error) {
	return findOne[models.Report](ctx, r.coll, bson.M{"_id": id})
}

func (r *mongoReports) FindMember(ctx context.Context, id primitive.ObjectID) (*models.MemberRecord, error) {
	rep, err := r.FindByID(ctx, id)
	if err != nil || rep == nil {
		return nil, err
	}
	return models.MemberFromReport(rep), nil
}

// ---- missions ----

type mongoMissions struct{ coll *mongo.Collection }

func (r *mongoMissions) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Mission, error) {
	return findOne[models.Mission](ctx, r.coll, bson.M{"_id": id})
}

func (r *mongoMissions) List(ctx context.Context, status models.MissionStatus, limit int) ([]models.Mission, error) {
	return findAll[models.Mission](ctx, r.coll, bson.M{"status": status}, bson.D{{Key: "timestamp", Value: -1}}, limit)
}

func (r *mongoMissions) Latest(ctx context.Context) (*models.Mission, error) {
	return findOne[models.Mission](ctx, r.coll,
		bson.M{"status": models.MissionStatusActive},
		options.FindOne().SetSort(bson.D{{Key: "timestamp", Value: -1}}),
	)
}

func (r *mongoMissions) Complete(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	return r.transition(ctx, id, bson.M{
		"status":      models.MissionStatusCompleted,
		"completedAt": at,
	})
}

func (r *mongoMissions) Reroute(ctx context.Context, id primitive.ObjectID, station models.Station, at time.Time) (bool, error) {
	return r.transition(ctx, id, bson.M{
		"status":     models.MissionStatusRerouted,
		"reroutedAt": at,
		"reroutedTo": station,
	})
}

// transition applies set only while the mission is still Active
func (r *mongoMissions) transition(ctx context.Context, id primitive.ObjectID, set bson.M) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.MissionStatusActive},
		bson.M{"$set": set},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

// ---- alerts ----

type mongoAlerts struct{ coll *mongo.Collection }

func (r *mongoAlerts) Insert(ctx context.Context, alert *models.EmergencyAlert) error {
	if alert.ID.IsZero() {
		alert.ID = primitive.NewObjectID()
	}
	if alert.SentToStations == nil {
		alert.SentToStations = []models.StationDelivery{}
	}
	_, err := r.coll.InsertOne(ctx, alert)
	return err
}

func (r *mongoAlerts) CancelOpenForSources(ctx context.Context, sourceIDs []primitive.ObjectID, reason string, at time.Time) (int64, error) {
	if len(sourceIDs) == 0 {
		return 0, nil
	}
	filter := bson.M{
		"sourceId": bson.M{"$in": sourceIDs},
		"status":   bson.M{"$nin": bson.A{models.AlertStatusCancelled, models.AlertStatusResolved}},
	}
	// pipeline form tolerates alerts written without a sentToStations array
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"status":       models.AlertStatusCancelled,
			"cancelledAt":  at,
			"cancelReason": reason,
			"sentToStations": bson.M{"$map": bson.M{
				"input": bson.M{"$ifNull": bson.A{"$sentToStations", bson.A{}}},
				"as":    "s",
				"in":    bson.M{"$mergeObjects": bson.A{"$$s", bson.M{"status": models.DeliveryCancelled}}},
			}},
		}}},
	}
	res, err := r.coll.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *mongoAlerts) MarkDispatched(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	_, err := r.coll.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"status":                    models.AlertStatusDispatched,
		"dispatchedAt":              at,
		"sentToStations.$[].status": models.DeliverySent,
		"sentToStations.$[].sentAt": at,
	}})
	return err
}

func (r *mongoAlerts) MarkDeliveryFailed(ctx context.Context, id primitive.ObjectID, reason string) error {
	_, err := r.coll.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"sentToStations.$[].status": models.DeliveryFailed,
		"sentToStations.$[].error":  reason,
	}})
	return err
}

func (r *mongoAlerts) ListBySource(ctx context.Context, sourceID primitive.ObjectID, limit int) ([]models.EmergencyAlert, error) {
	return findAll[models.EmergencyAlert](ctx, r.coll, bson.M{"sourceId": sourceID}, bson.D{{Key: "createdAt", Value: -1}}, limit)
}
