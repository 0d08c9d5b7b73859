package services

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"relief-http-service/internal/domain/models"
	"relief-http-service/internal/domain/triage"
	"relief-http-service/pkg/geo"
	"relief-http-service/pkg/logger"
)

// Geocoder resolves a place name to coordinates. (nil, nil) means not found.
type Geocoder interface {
	Geocode(ctx context.Context, location string) (*models.Coordinates, error)
}

// defaultLookupTimeout bounds one shared geocoder lookup
const defaultLookupTimeout = 10 * time.Second

// Query sources
const (
	QueryFromTriage = "triage"
	QueryFromHint   = "hint"
)

// LocationResult is the outcome of one resolution
type LocationResult struct {
	Coordinates *models.Coordinates
	Query       string
	QuerySource string
	Cached      bool
}

// InterfaceLocationService defines the location resolver interface
type InterfaceLocationService interface {
	Resolve(ctx context.Context, t models.TriageData, rawMessage string) LocationResult
}

// LocationService geocodes the best available place name. Failures yield
// absent coordinates, never an error.
type LocationService struct {
	Geocoder      Geocoder
	Cache         GeocodeCache
	LookupTimeout time.Duration
	group         singleflight.Group
}

// NewLocationService creates a location service. cache may be nil.
func NewLocationService(geocoder Geocoder, cache GeocodeCache) InterfaceLocationService {
	return &LocationService{
		Geocoder:      geocoder,
		Cache:         cache,
		LookupTimeout: defaultLookupTimeout,
	}
}

// PickQuery chooses the triage location unless it is empty or Unknown, then
// a hint extracted from the raw text
func PickQuery(t models.TriageData, rawMessage string) (string, string) {
	if q := strings.TrimSpace(t.Location); q != "" && !strings.EqualFold(q, models.UnknownLocation) {
		return q, QueryFromTriage
	}
	if hint := triage.ExtractLocationHint(rawMessage); hint != "" {
		return hint, QueryFromHint
	}
	return "", ""
}

// 1 Resolve returns coordinates for the message or an empty result
func (s *LocationService) Resolve(ctx context.Context, t models.TriageData, rawMessage string) LocationResult {
	query, source := PickQuery(t, rawMessage)
	if query == "" {
		logger.Info("[Geocode] no location in message, skipping")
		return LocationResult{}
	}
	result := LocationResult{Query: query, QuerySource: source}

	if s.Cache != nil {
		coords, ok, err := s.Cache.GetCoordinates(ctx, query)
		if err != nil {
			logger.Warning("[Geocode] cache read for %q failed: %v", query, err)
		} else if ok && valid(coords) {
			result.Coordinates = coords
			result.Cached = true
			return result
		}
	}

	if s.Geocoder == nil {
		return result
	}

	// the lookup is shared by every caller with the same query, so it must
	// outlive the caller that started it
	ch := s.group.DoChan(GeocodeCacheKey(query), func() (interface{}, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.lookupTimeout())
		defer cancel()
		return s.Geocoder.Geocode(lookupCtx, query)
	})

	var (
		v   interface{}
		err error
	)
	select {
	case res := <-ch:
		v, err = res.Val, res.Err
	case <-ctx.Done():
		logger.Warning("[Geocode] lookup for %q abandoned: %v", query, ctx.Err())
		return result
	}
	if err != nil {
		logger.Warning("[Geocode] lookup for %q failed: %v", query, err)
		return result
	}
	coords, _ := v.(*models.Coordinates)
	if !valid(coords) {
		logger.Info("[Geocode] no result for %q", query)
		return result
	}

	// copy so callers sharing a singleflight result cannot alias each other
	c := *coords
	result.Coordinates = &c
	logger.Info("[Geocode] %q -> %.6f, %.6f", query, c.Lat, c.Lon)

	if s.Cache != nil {
		if err := s.Cache.CacheCoordinates(ctx, query, &c); err != nil {
			logger.Warning("[Geocode] cache write for %q failed: %v", query, err)
		}
	}
	return result
}

func (s *LocationService) lookupTimeout() time.Duration {
	if s.LookupTimeout > 0 {
		return s.LookupTimeout
	}
	return defaultLookupTimeout
}

func valid(c *models.Coordinates) bool {
	return c != nil && geo.ValidLatLon(c.Lat, c.Lon)
}
