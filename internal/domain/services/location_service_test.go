package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relief-http-service/internal/domain/models"
)

var koregaonPark = &models.Coordinates{Lat: 18.5362, Lon: 73.8940, FormattedAddress: "Koregaon Park, Pune"}

func TestPickQuery(t *testing.T) {
	q, src := PickQuery(models.TriageData{Location: "Aundh"}, "help at Baner")
	assert.Equal(t, "Aundh", q)
	assert.Equal(t, QueryFromTriage, src)

	q, src = PickQuery(models.TriageData{Location: "unknown"}, "Need medical help at Koregaon Park urgently")
	assert.Equal(t, "Koregaon Park", q)
	assert.Equal(t, QueryFromHint, src)

	q, src = PickQuery(models.TriageData{Location: models.UnknownLocation}, "please send help")
	assert.Empty(t, q)
	assert.Empty(t, src)
}

func TestLocationResolvePrefersTriageLocation(t *testing.T) {
	geo := &fakeGeocoder{results: map[string]*models.Coordinates{"Koregaon Park": koregaonPark}}
	svc := NewLocationService(geo, nil)

	res := svc.Resolve(context.Background(), models.TriageData{Location: "Koregaon Park"}, "help at Baner")

	require.NotNil(t, res.Coordinates)
	assert.Equal(t, koregaonPark.Lat, res.Coordinates.Lat)
	assert.Equal(t, []string{"Koregaon Park"}, geo.queries)
	assert.Equal(t, QueryFromTriage, res.QuerySource)
	assert.NotSame(t, koregaonPark, res.Coordinates)
}

func TestLocationResolveSkipsWithoutPlace(t *testing.T) {
	geo := &fakeGeocoder{}
	svc := NewLocationService(geo, nil)

	res := svc.Resolve(context.Background(), models.TriageData{Location: models.UnknownLocation}, "send help")

	assert.Nil(t, res.Coordinates)
	assert.Empty(t, geo.queries)
}

func TestLocationResolveAbsorbsGeocoderErrors(t *testing.T) {
	geo := &fakeGeocoder{err: errUpstream}
	cache := newMemCache()
	svc := NewLocationService(geo, cache)

	res := svc.Resolve(context.Background(), models.TriageData{Location: "Hadapsar"}, "")

	assert.Nil(t, res.Coordinates)
	assert.Equal(t, "Hadapsar", res.Query)
	assert.Zero(t, cache.writes, "failures are not cached")
}

func TestLocationResolveRejectsOutOfRange(t *testing.T) {
	geo := &fakeGeocoder{results: map[string]*models.Coordinates{"Nowhere": {Lat: 120, Lon: 10}}}
	svc := NewLocationService(geo, nil)

	res := svc.Resolve(context.Background(), models.TriageData{Location: "Nowhere"}, "")

	assert.Nil(t, res.Coordinates)
}

func TestLocationResolveUsesCache(t *testing.T) {
	geo := &fakeGeocoder{results: map[string]*models.Coordinates{"Koregaon Park": koregaonPark}}
	cache := newMemCache()
	svc := NewLocationService(geo, cache)
	ctx := context.Background()

	first := svc.Resolve(ctx, models.TriageData{Location: "Koregaon Park"}, "")
	require.NotNil(t, first.Coordinates)
	assert.False(t, first.Cached)
	assert.Equal(t, 1, cache.writes)

	second := svc.Resolve(ctx, models.TriageData{Location: "koregaon   park"}, "")
	require.NotNil(t, second.Coordinates)
	assert.True(t, second.Cached)
	assert.Len(t, geo.queries, 1)
}

func TestGeocodeCacheKeyNormalizes(t *testing.T) {
	assert.Equal(t, GeocodeCacheKey("Koregaon Park"), GeocodeCacheKey("  koregaon\tPARK "))
	assert.NotEqual(t, GeocodeCacheKey("Koregaon Park"), GeocodeCacheKey("Baner"))
}

// gatedGeocoder blocks every lookup until released and fails lookups whose
// context is gone by then
type gatedGeocoder struct {
	started chan struct{}
	release chan struct{}
	calls   int32
}

func (g *gatedGeocoder) Geocode(ctx context.Context, location string) (*models.Coordinates, error) {
	if atomic.AddInt32(&g.calls, 1) == 1 {
		close(g.started)
	}
	<-g.release
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c := *koregaonPark
	return &c, nil
}

func TestLocationResolveSharedLookupOutlivesCancelledCaller(t *testing.T) {
	geo := &gatedGeocoder{started: make(chan struct{}), release: make(chan struct{})}
	svc := NewLocationService(geo, nil)
	td := models.TriageData{Location: "Koregaon Park"}

	first, cancelFirst := context.WithCancel(context.Background())
	firstDone := make(chan LocationResult, 1)
	go func() { firstDone <- svc.Resolve(first, td, "") }()
	<-geo.started

	secondDone := make(chan LocationResult, 1)
	go func() { secondDone <- svc.Resolve(context.Background(), td, "") }()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	assert.Nil(t, (<-firstDone).Coordinates, "the cancelled caller stops waiting")

	close(geo.release)
	second := <-secondDone
	require.NotNil(t, second.Coordinates)
	assert.Equal(t, koregaonPark.Lat, second.Coordinates.Lat)
	assert.Equal(t, int32(1), atomic.LoadInt32(&geo.calls))
}
