package geocoder

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"relief-http-service/internal/domain/models"
	"relief-http-service/internal/infrastructure/config"
	"relief-http-service/pkg/geo"
)

// Client resolves free-text places against an OSM Nominatim search endpoint
type Client struct {
	BaseURL       string
	DefaultRegion string
	UserAgent     string
	HTTP          *http.Client
}

type searchResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// NewClient creates a geocoder from config
func NewClient(cfg *config.Config) *Client {
	return &Client{
		BaseURL:       cfg.GeocodeBaseURL,
		DefaultRegion: cfg.GeocodeDefaultRegion,
		UserAgent:     cfg.GeocodeUserAgent,
		HTTP:          &http.Client{Timeout: cfg.GeocodeTimeout},
	}
}

// Query returns the search string sent upstream, with the default region appended
func (c *Client) Query(location string) string {
	location = strings.TrimSpace(location)
	if c.DefaultRegion == "" {
		return location
	}
	return location + ", " + c.DefaultRegion
}

// Geocode looks up location. It returns (nil, nil) when the place is unknown.
func (c *Client) Geocode(ctx context.Context, location string) (*models.Coordinates, error) {
	if strings.TrimSpace(location) == "" {
		return nil, nil
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid geocode base url: %w", err)
	}
	q := u.Query()
	q.Set("q", c.Query(location))
	q.Set("format", "json")
	q.Set("limit", "1")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "application/json")

	client := c.HTTP
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocode request failed with status %d", resp.StatusCode)
	}

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("error decoding geocode response: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	lat, errLat := strconv.ParseFloat(results[0].Lat, 64)
	lon, errLon := strconv.ParseFloat(results[0].Lon, 64)
	if errLat != nil || errLon != nil || !geo.ValidLatLon(lat, lon) {
		return nil, fmt.Errorf("geocode returned malformed coordinates %q,%q", results[0].Lat, results[0].Lon)
	}

	return &models.Coordinates{
		Lat:              lat,
		Lon:              lon,
		FormattedAddress: results[0].DisplayName,
	}, nil
}
