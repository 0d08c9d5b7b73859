package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relief-http-service/internal/domain/models"
	"relief-http-service/internal/infrastructure/store"
)

func newIntake(ms *store.MemoryStore, primary TriageCapability, geo Geocoder, hooks Hooks) *IntakeService {
	svc := NewIntakeService(ms.Store().Needs, NewTriageService(primary, nil, time.Second), NewLocationService(geo, nil), hooks).(*IntakeService)
	svc.Now = fixedClock(time.Date(2024, 7, 26, 9, 30, 0, 0, time.UTC))
	return svc
}

func TestIngestWithTriageUnavailable(t *testing.T) {
	ms := store.NewMemoryStore()
	geo := &fakeGeocoder{results: map[string]*models.Coordinates{"Koregaon Park": koregaonPark}}
	audit := &recordingAudit{}
	events := &recordingEvents{}
	svc := newIntake(ms, &fakeTriage{err: errUpstream}, geo, Hooks{Audit: audit, Events: events})

	res, err := svc.Ingest(context.Background(), "+15551234567", "Need medical help at Koregaon Park urgently")
	require.NoError(t, err)

	assert.True(t, res.Triage.Degraded)
	assert.Equal(t, models.TriageSourceFallback, res.Triage.Source)
	assert.Equal(t, "Medical", res.Need.TriageData.NeedType)
	assert.Equal(t, "High", res.Need.TriageData.Urgency)
	assert.Equal(t, "Koregaon Park", res.Need.TriageData.Location)

	stored, ok := ms.Need(res.Need.ID)
	require.True(t, ok)
	assert.Equal(t, models.NeedStatusUnverified, stored.Status)
	assert.Equal(t, "+15551234567", stored.FromNumber)
	assert.Equal(t, "Need medical help at Koregaon Park urgently", stored.RawMessage)
	require.NotNil(t, stored.Coordinates)
	assert.Equal(t, koregaonPark.Lat, stored.Coordinates.Lat)
	assert.Equal(t, koregaonPark.Lon, stored.Coordinates.Lon)

	assert.Equal(t, 1, audit.count(models.OpNeedIngested, true))
	assert.Equal(t, []string{EventNeedCreated}, events.types)
}

func TestIngestUsesPrimaryTriage(t *testing.T) {
	ms := store.NewMemoryStore()
	primary := &fakeTriage{data: models.TriageData{NeedType: "Food", Urgency: "Medium", Location: "Hadapsar", Details: "40 families without food"}}
	svc := newIntake(ms, primary, &fakeGeocoder{}, Hooks{})

	res, err := svc.Ingest(context.Background(), "+15550000000", "we have 40 families here in hadapsar with nothing to eat")
	require.NoError(t, err)

	assert.False(t, res.Triage.Degraded)
	assert.Equal(t, "40 families without food", res.Need.TriageData.Details)
	assert.Nil(t, res.Need.Coordinates, "no geocode result leaves the need unlocated")

	stored, _ := ms.Need(res.Need.ID)
	assert.Equal(t, models.NeedStatusUnverified, stored.Status)
}

func TestIngestRejectsEmptyBody(t *testing.T) {
	ms := store.NewMemoryStore()
	primary := &fakeTriage{}
	svc := newIntake(ms, primary, &fakeGeocoder{}, Hooks{})

	_, err := svc.Ingest(context.Background(), "+15551234567", "  \n ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Zero(t, primary.calls)

	list, _ := ms.Store().Needs.ListByStatus(context.Background(), models.NeedStatusUnverified, 10)
	assert.Empty(t, list)
}

func TestIngestReportsStoreFailure(t *testing.T) {
	ms := store.NewMemoryStore()
	audit := &recordingAudit{}
	svc := newIntake(ms, nil, nil, Hooks{Audit: audit})
	svc.Needs = brokenNeeds{NeedRepository: ms.Store().Needs}

	_, err := svc.Ingest(context.Background(), "+15551234567", "need water")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errUpstream))
	assert.Equal(t, 1, audit.count(models.OpNeedIngested, false))
}
