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

var verifyTime = time.Date(2024, 7, 26, 11, 0, 0, 0, time.UTC)

func newTasks(ms *store.MemoryStore, geo Geocoder, hooks Hooks) *TaskService {
	svc := NewTaskService(ms.Store().Needs, NewLocationService(geo, nil), TaskLimits{Unverified: 50, Verified: 100, Map: 200}, hooks).(*TaskService)
	svc.Now = fixedClock(verifyTime)
	return svc
}

func TestVerifyMovesUnverifiedToVerified(t *testing.T) {
	ms := store.NewMemoryStore()
	audit := &recordingAudit{}
	events := &recordingEvents{}
	svc := newTasks(ms, nil, Hooks{Audit: audit, Events: events})
	id := ms.SeedNeed(models.Need{Status: models.NeedStatusUnverified, RawMessage: "need water"})

	res, err := svc.Verify(context.Background(), id.Hex(), "confirmed on site")
	require.NoError(t, err)

	assert.False(t, res.AlreadyVerified)
	assert.Equal(t, id.Hex(), res.Task.ID)
	assert.Equal(t, "Verified", res.Task.Status)
	assert.Equal(t, "confirmed on site", res.Task.VerificationNotes)
	require.NotNil(t, res.Task.VerifiedAt)
	assert.True(t, verifyTime.Equal(*res.Task.VerifiedAt))

	stored, _ := ms.Need(id)
	assert.Equal(t, models.NeedStatusVerified, stored.Status)
	assert.Equal(t, 1, audit.count(models.OpNeedVerified, true))
	assert.Equal(t, []string{EventNeedVerified}, events.types)
}

func TestVerifyMissingTask(t *testing.T) {
	ms := store.NewMemoryStore()
	svc := newTasks(ms, nil, Hooks{})
	ctx := context.Background()

	_, err := svc.Verify(ctx, primitive.NewObjectID().Hex(), "")
	assert.ErrorIs(t, err, ErrNeedNotFound)

	_, err = svc.Verify(ctx, "not-an-id", "")
	assert.ErrorIs(t, err, ErrNeedNotFound)

	_, err = svc.Verify(ctx, "  ", "notes")
	assert.ErrorIs(t, err, ErrTaskIDRequired)
}

func TestVerifyIsIdempotent(t *testing.T) {
	ms := store.NewMemoryStore()
	svc := newTasks(ms, nil, Hooks{})
	id := ms.SeedNeed(models.Need{Status: models.NeedStatusUnverified})
	ctx := context.Background()

	_, err := svc.Verify(ctx, id.Hex(), "first visit")
	require.NoError(t, err)

	svc.Now = fixedClock(verifyTime.Add(time.Hour))
	res, err := svc.Verify(ctx, id.Hex(), "second visit")
	require.NoError(t, err)

	assert.True(t, res.AlreadyVerified)
	assert.Equal(t, "first visit", res.Task.VerificationNotes)
	assert.True(t, verifyTime.Equal(*res.Task.VerifiedAt))
}

func TestVerifyCompletedNeed(t *testing.T) {
	ms := store.NewMemoryStore()
	svc := newTasks(ms, nil, Hooks{})
	id := ms.SeedNeed(models.Need{Status: models.NeedStatusCompleted})

	_, err := svc.Verify(context.Background(), id.Hex(), "late")
	assert.ErrorIs(t, err, ErrNeedCompleted)

	stored, _ := ms.Need(id)
	assert.Equal(t, models.NeedStatusCompleted, stored.Status)
}

func TestTaskLists(t *testing.T) {
	ms := store.NewMemoryStore()
	svc := newTasks(ms, nil, Hooks{})
	ctx := context.Background()
	base := time.Date(2024, 7, 26, 8, 0, 0, 0, time.UTC)

	located := ms.SeedNeed(models.Need{
		Status:      models.NeedStatusUnverified,
		TriageData:  models.TriageData{NeedType: "Medical", Urgency: "High", Location: "Koregaon Park", Details: "injured man"},
		FromNumber:  "+15551234567",
		Coordinates: &models.Coordinates{Lat: 18.5362, Lon: 73.894},
		CreatedAt:   base,
	})
	ms.SeedNeed(models.Need{Status: models.NeedStatusUnverified, RawMessage: "raw only", CreatedAt: base.Add(time.Minute)})
	ms.SeedNeed(models.Need{Status: models.NeedStatusVerified, VerifiedAt: &base, CreatedAt: base})
	ms.SeedNeed(models.Need{Status: models.NeedStatusCompleted, Coordinates: &models.Coordinates{Lat: 18.6, Lon: 73.7}, CreatedAt: base.Add(2 * time.Minute)})

	unverified, err := svc.ListUnverified(ctx)
	require.NoError(t, err)
	require.Len(t, unverified, 2)
	assert.Equal(t, "raw only", unverified[0].Description)
	assert.Nil(t, unverified[0].Lat)
	assert.Equal(t, located.Hex(), unverified[1].TaskID)
	assert.Equal(t, "injured man", unverified[1].Description)
	assert.Equal(t, "+15551234567", unverified[1].PhoneNumber)
	require.NotNil(t, unverified[1].Lat)
	assert.Equal(t, 18.5362, *unverified[1].Lat)

	verified, err := svc.ListVerified(ctx)
	require.NoError(t, err)
	assert.Len(t, verified, 1)

	pins, err := svc.MapNeeds(ctx)
	require.NoError(t, err)
	require.Len(t, pins, 2, "map shows located needs of every status")
	assert.Equal(t, "Completed", pins[0].Status)
	assert.Equal(t, located.Hex(), pins[1].ID)
}

func TestTaskListsEmpty(t *testing.T) {
	svc := newTasks(store.NewMemoryStore(), nil, Hooks{})

	list, err := svc.ListUnverified(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestRetryGeocode(t *testing.T) {
	ms := store.NewMemoryStore()
	geo := &fakeGeocoder{results: map[string]*models.Coordinates{"Koregaon Park": koregaonPark}}
	audit := &recordingAudit{}
	svc := newTasks(ms, geo, Hooks{Audit: audit})
	ctx := context.Background()

	id := ms.SeedNeed(models.Need{
		Status:     models.NeedStatusVerified,
		RawMessage: "Need medical help at Koregaon Park urgently",
		TriageData: models.TriageData{Location: models.UnknownLocation},
	})

	res, err := svc.RetryGeocode(ctx, id.Hex())
	require.NoError(t, err)
	assert.True(t, res.Updated)
	assert.Equal(t, "Koregaon Park", res.Query)
	require.NotNil(t, res.Coordinates)

	stored, _ := ms.Need(id)
	require.NotNil(t, stored.Coordinates)
	assert.Equal(t, koregaonPark.Lat, stored.Coordinates.Lat)
	assert.Equal(t, 1, audit.count(models.OpNeedGeocoded, true))

	// a located need is left alone
	geo.results["Koregaon Park"] = &models.Coordinates{Lat: 1, Lon: 1}
	res, err = svc.RetryGeocode(ctx, id.Hex())
	require.NoError(t, err)
	assert.False(t, res.Updated)
	assert.Equal(t, koregaonPark.Lat, res.Coordinates.Lat)
	assert.Len(t, geo.queries, 1)
}

func TestRetryGeocodeErrors(t *testing.T) {
	ms := store.NewMemoryStore()
	svc := newTasks(ms, &fakeGeocoder{}, Hooks{})
	ctx := context.Background()

	_, err := svc.RetryGeocode(ctx, "xyz")
	assert.ErrorIs(t, err, ErrNeedInvalidID)

	_, err = svc.RetryGeocode(ctx, primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, ErrNeedNotFound)

	id := ms.SeedNeed(models.Need{Status: models.NeedStatusUnverified, TriageData: models.TriageData{Location: "Atlantis"}})
	res, err := svc.RetryGeocode(ctx, id.Hex())
	require.NoError(t, err)
	assert.False(t, res.Updated)
	assert.Nil(t, res.Coordinates)
}
