package geocoder

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &Client{
		BaseURL:       srv.URL + "/search",
		DefaultRegion: "Pune, India",
		UserAgent:     "DisasterResponseOptimizer/1.0",
		HTTP:          srv.Client(),
	}
}

func TestGeocodeFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Koregaon Park, Pune, India", r.URL.Query().Get("q"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, "DisasterResponseOptimizer/1.0", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"lat":"18.5362","lon":"73.8940","display_name":"Koregaon Park, Pune"}]`))
	})

	coords, err := c.Geocode(context.Background(), "Koregaon Park")
	require.NoError(t, err)
	require.NotNil(t, coords)
	assert.InDelta(t, 18.5362, coords.Lat, 1e-9)
	assert.InDelta(t, 73.8940, coords.Lon, 1e-9)
	assert.Equal(t, "Koregaon Park, Pune", coords.FormattedAddress)
}

func TestGeocodeNoResults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	coords, err := c.Geocode(context.Background(), "Atlantis")
	require.NoError(t, err)
	assert.Nil(t, coords)
}

func TestGeocodeUpstreamErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	_, err := c.Geocode(context.Background(), "Hadapsar")
	assert.Error(t, err)

	c = newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"lat":"north","lon":"73.8"}]`))
	})
	_, err = c.Geocode(context.Background(), "Hadapsar")
	assert.Error(t, err)
}

func TestGeocodeEmptyLocationSkipsRequest(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	coords, err := c.Geocode(context.Background(), "   ")
	require.NoError(t, err)
	assert.Nil(t, coords)
	assert.False(t, called)
}
