package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"relief-http-service/internal/domain/models"
	"relief-http-service/internal/infrastructure/store"
)

func TestDispatchToStationBuildsMessage(t *testing.T) {
	ms := store.NewMemoryStore()
	pub := &recordingPublisher{}
	svc := NewAlertService(ms.Store(), pub, time.Second, Hooks{})

	id := ms.SeedNeed(models.Need{
		Status:      models.NeedStatusVerified,
		FromNumber:  "+15551234567",
		RawMessage:  "Need medical help at Koregaon Park urgently",
		TriageData:  models.TriageData{NeedType: "Medical", Urgency: "High", Location: "Koregaon Park"},
		Coordinates: &models.Coordinates{Lat: 18.5362, Lon: 73.894},
	})

	alert, err := svc.DispatchToStation(context.Background(), MemberRef{ID: id, Kind: models.SourceNeed}, cityGeneral)
	require.NoError(t, err)
	assert.Equal(t, models.AlertStatusDispatched, alert.Status)
	assert.NotEmpty(t, alert.MessageID)

	require.Len(t, pub.sent, 1)
	msg := pub.sent[0].msg
	assert.Equal(t, "emergency_alert", msg.Type)
	assert.Equal(t, alert.ID.Hex(), msg.AlertID)
	assert.Equal(t, alert.MessageID, msg.MessageID)
	assert.Equal(t, models.SourceNeed, msg.SourceType)
	assert.Equal(t, "Need medical help at Koregaon Park urgently", msg.Summary)
	assert.Equal(t, "+15551234567", msg.Contact)
	require.NotNil(t, msg.Lat)
	assert.Equal(t, 18.5362, *msg.Lat)

	need, _ := ms.Need(id)
	assert.Equal(t, models.EmergencyStatusDispatched, need.EmergencyStatus)
	require.NotNil(t, need.EmergencyAlertID)
	assert.Equal(t, alert.ID, *need.EmergencyAlertID)
	assert.Equal(t, "City General", need.AssignedStation.Name)
}

func TestDispatchToStationFailures(t *testing.T) {
	ms := store.NewMemoryStore()
	ctx := context.Background()

	svc := NewAlertService(ms.Store(), &recordingPublisher{}, time.Second, Hooks{})
	_, err := svc.DispatchToStation(ctx, MemberRef{ID: primitive.NewObjectID(), Kind: models.SourceReport}, cityGeneral)
	assert.ErrorContains(t, err, "not found")
	assert.Empty(t, ms.Alerts())

	_, err = svc.DispatchToStation(ctx, MemberRef{ID: primitive.NewObjectID(), Kind: "Ticket"}, cityGeneral)
	assert.Error(t, err)

	id := ms.SeedReport(models.Report{Status: models.ReportStatusAnalyzed})
	noTransport := NewAlertService(ms.Store(), nil, time.Second, Hooks{})
	alert, err := noTransport.DispatchToStation(ctx, MemberRef{ID: id, Kind: models.SourceReport}, cityGeneral)
	require.Error(t, err)
	require.NotNil(t, alert)

	stored := ms.Alerts()
	require.Len(t, stored, 1)
	assert.Equal(t, models.AlertStatusPending, stored[0].Status)
	assert.Equal(t, models.DeliveryFailed, stored[0].SentToStations[0].Status)

	report, _ := ms.Report(id)
	assert.Empty(t, report.EmergencyStatus, "an undelivered alert is not linked")
}

func TestFanOutWithoutRefs(t *testing.T) {
	svc := NewAlertService(store.NewMemoryStore().Store(), &recordingPublisher{}, 0, Hooks{})

	report := svc.FanOut(context.Background(), cityGeneral, nil)

	assert.Zero(t, report.Attempted)
	assert.NotNil(t, report.Items)
}

func TestCancelForSourcesSkipsClosedAlerts(t *testing.T) {
	ms := store.NewMemoryStore()
	audit := &recordingAudit{}
	svc := NewAlertService(ms.Store(), &recordingPublisher{}, 0, Hooks{Audit: audit})
	src := primitive.NewObjectID()

	ms.SeedAlert(models.EmergencyAlert{SourceID: src, Status: models.AlertStatusPending})
	ms.SeedAlert(models.EmergencyAlert{SourceID: src, Status: models.AlertStatusResolved})
	ms.SeedAlert(models.EmergencyAlert{SourceID: primitive.NewObjectID(), Status: models.AlertStatusDispatched})

	n, err := svc.CancelForSources(context.Background(), []primitive.ObjectID{src}, CancelReason(cityGeneral))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	alerts := ms.Alerts()
	assert.Equal(t, models.AlertStatusCancelled, alerts[0].Status)
	assert.Equal(t, "Rerouted to City General", alerts[0].CancelReason)
	assert.Equal(t, models.AlertStatusResolved, alerts[1].Status)
	assert.Equal(t, models.AlertStatusDispatched, alerts[2].Status)
	assert.Equal(t, 1, audit.count(models.OpAlertCancel, true))
}

func TestListBySource(t *testing.T) {
	ms := store.NewMemoryStore()
	svc := NewAlertService(ms.Store(), &recordingPublisher{}, 0, Hooks{})
	ctx := context.Background()
	src := primitive.NewObjectID()
	base := time.Date(2024, 7, 26, 6, 0, 0, 0, time.UTC)

	first := ms.SeedAlert(models.EmergencyAlert{SourceID: src, Status: models.AlertStatusCancelled, CreatedAt: base})
	second := ms.SeedAlert(models.EmergencyAlert{SourceID: src, Status: models.AlertStatusDispatched, CreatedAt: base.Add(time.Minute)})

	list, err := svc.ListBySource(ctx, src.Hex(), 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second, list[0].ID)
	assert.Equal(t, first, list[1].ID)

	list, err = svc.ListBySource(ctx, primitive.NewObjectID().Hex(), 10)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	_, err = svc.ListBySource(ctx, "", 10)
	assert.ErrorIs(t, err, ErrSourceInvalidID)
}
