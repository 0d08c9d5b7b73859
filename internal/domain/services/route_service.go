package services

import (
	"math"

	"relief-http-service/pkg/geo"
)

// RoutePoint accepts lon or lng for longitude
type RoutePoint struct {
	ID  interface{} `json:"id,omitempty" swaggertype:"string"`
	Lat *float64    `json:"lat" example:"18.52"`
	Lon *float64    `json:"lon,omitempty" example:"73.85"`
	Lng *float64    `json:"lng,omitempty"`
}

// Longitude returns lon, or lng when lon is absent
func (p RoutePoint) Longitude() (float64, bool) {
	if p.Lon != nil {
		return *p.Lon, true
	}
	if p.Lng != nil {
		return *p.Lng, true
	}
	return 0, false
}

func (p RoutePoint) coords() (float64, float64, bool) {
	if p.Lat == nil {
		return 0, 0, false
	}
	lon, ok := p.Longitude()
	if !ok || !geo.ValidLatLon(*p.Lat, lon) {
		return 0, 0, false
	}
	return *p.Lat, lon, true
}

// RouteRequest is a depot plus the stops to visit
type RouteRequest struct {
	Depot *RoutePoint  `json:"depot"`
	Stops []RoutePoint `json:"stops"`
}

// RouteStop is one stop in visit order
type RouteStop struct {
	ID            interface{} `json:"id,omitempty" swaggertype:"string"`
	Lat           float64     `json:"lat"`
	Lon           float64     `json:"lon"`
	Order         int         `json:"order"`
	LegDistanceKm float64     `json:"leg_distance_km"`
}

// RouteResult is the optimized visiting order
type RouteResult struct {
	OptimizedRoute  []RouteStop `json:"optimized_route"`
	TotalDistanceKm float64     `json:"total_distance_km"`
	SkippedStops    int         `json:"skipped_stops,omitempty"`
}

// InterfaceRouteService defines the route optimization interface
type InterfaceRouteService interface {
	Optimize(req RouteRequest) (*RouteResult, error)
}

// RouteService orders stops by repeatedly visiting the nearest unvisited one
type RouteService struct{}

// NewRouteService creates a route service
func NewRouteService() InterfaceRouteService {
	return &RouteService{}
}

// 1 Optimize returns stops in nearest-neighbour order from the depot.
// Stops without usable coordinates are skipped and counted.
func (s *RouteService) Optimize(req RouteRequest) (*RouteResult, error) {
	if req.Depot == nil {
		return nil, ErrRouteInvalidDepot
	}
	curLat, curLon, ok := req.Depot.coords()
	if !ok {
		return nil, ErrRouteInvalidDepot
	}

	type pending struct {
		id       interface{}
		lat, lon float64
	}
	remaining := make([]pending, 0, len(req.Stops))
	skipped := 0
	for _, st := range req.Stops {
		lat, lon, ok := st.coords()
		if !ok {
			skipped++
			continue
		}
		remaining = append(remaining, pending{id: st.ID, lat: lat, lon: lon})
	}
	if len(remaining) == 0 {
		return nil, ErrRouteNoStops
	}

	result := &RouteResult{OptimizedRoute: make([]RouteStop, 0, len(remaining)), SkippedStops: skipped}
	for len(remaining) > 0 {
		best, bestDist := 0, math.Inf(1)
		for i, p := range remaining {
			// strict less keeps the input order on ties
			if d := geo.HaversineKm(curLat, curLon, p.lat, p.lon); d < bestDist {
				best, bestDist = i, d
			}
		}
		next := remaining[best]
		remaining = append(remaining[:best], remaining[best+1:]...)

		result.OptimizedRoute = append(result.OptimizedRoute, RouteStop{
			ID:            next.id,
			Lat:           next.lat,
			Lon:           next.lon,
			Order:         len(result.OptimizedRoute) + 1,
			LegDistanceKm: round3(bestDist),
		})
		result.TotalDistanceKm += bestDist
		curLat, curLon = next.lat, next.lon
	}
	result.TotalDistanceKm = round3(result.TotalDistanceKm)
	return result, nil
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
