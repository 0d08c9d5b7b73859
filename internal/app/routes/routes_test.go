package routes

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"relief-http-service/internal/app/middleware"
	"relief-http-service/internal/domain/models"
	"relief-http-service/internal/domain/repository"
	"relief-http-service/internal/domain/services"
	"relief-http-service/internal/domain/services/container"
	"relief-http-service/internal/infrastructure/config"
	"relief-http-service/internal/infrastructure/messaging"
	"relief-http-service/internal/infrastructure/store"
	"relief-http-service/pkg/logger"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	logger.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func testConfig() *config.Config {
	return &config.Config{
		EnvType:           "LOCAL",
		CORSOrigin:        "*",
		StoreDriver:       config.StoreMemory,
		GeminiTimeout:     time.Second,
		MQTTTimeout:       time.Second,
		JWTSecretKey:      "test-secret",
		JWTIssuer:         "relief-http-service",
		TwilioAuthToken:   "twilio-token",
		MaxUnverified:     50,
		MaxVerified:       100,
		MaxMapNeeds:       200,
		MissionListLimit:  20,
		RateLimitRPS:      1000,
		RateLimitBurst:    1000,
		SMSRateLimitRPS:   1000,
		SMSRateLimitBurst: 1000,
		ResponseCacheTTL:  time.Minute,
	}
}

type testServer struct {
	router    *gin.Engine
	ms        *store.MemoryStore
	container *container.ServiceContainer
}

func newTestServer(t *testing.T, mutate func(cfg *config.Config)) *testServer {
	t.Helper()
	cfg := testConfig()
	if mutate != nil {
		mutate(cfg)
	}

	ms := store.NewMemoryStore()
	c := container.NewServiceContainer(cfg, container.Dependencies{
		Store:     ms.Store(),
		Publisher: messaging.NewMultiPublisher(messaging.LogPublisher{}),
	})
	t.Cleanup(c.Close)
	middleware.PurgeCache()

	return &testServer{router: SetupRouter(c), ms: ms, container: c}
}

func (s *testServer) do(method, target, body string, header http.Header) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) sms(form url.Values, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/sms", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestSMSIntakeFallback(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.sms(url.Values{"From": {"+15551234567"}, "Body": {"Need medical help at Koregaon Park urgently"}}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/xml")
	assert.Contains(t, w.Body.String(), "<Response>")
	assert.Contains(t, w.Body.String(), "<Message>Your request has been received and logged.")
	assert.Contains(t, w.Body.String(), "Your Report ID: ")

	w = s.do(http.MethodGet, "/api/tasks/unverified", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var tasks []models.TaskDTO
	decode(t, w, &tasks)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Medical", tasks[0].NeedType)
	assert.Equal(t, "High", tasks[0].Urgency)
	assert.Equal(t, "Koregaon Park", tasks[0].Location)
	assert.Equal(t, "+15551234567", tasks[0].PhoneNumber)
	assert.Nil(t, tasks[0].Lat, "no geocoder configured")
	assert.Contains(t, w.Body.String(), tasks[0].ID)
}

func TestSMSEmptyBody(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.sms(url.Values{"From": {"+15551234567"}, "Body": {"   "}}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "what you need and where you are")

	w = s.do(http.MethodGet, "/api/tasks/unverified", "", nil)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestSMSSignature(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) {
		cfg.TwilioValidate = true
		cfg.TwilioWebhookURL = "https://relief.example.org/api/sms"
	})
	form := url.Values{"From": {"+15551234567"}, "Body": {"need water at Hadapsar"}}

	w := s.sms(form, http.Header{"X-Twilio-Signature": {"bogus"}})
	assert.Equal(t, http.StatusForbidden, w.Code)

	sig := signTwilio("twilio-token", "https://relief.example.org/api/sms", form)
	w = s.sms(form, http.Header{"X-Twilio-Signature": {sig}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Your Report ID")
}

// signTwilio signs the form the way Twilio does for webhooks
func signTwilio(authToken, fullURL string, params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(fullURL)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(params.Get(k))
	}
	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestSMSThrottledStillRepliesTwiML(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) {
		cfg.SMSRateLimitRPS = 0.001
		cfg.SMSRateLimitBurst = 2
	})
	relay := http.Header{"X-Forwarded-For": {"54.172.60.1"}}

	// many senders behind one relay address are not limited together
	for i := 0; i < 5; i++ {
		w := s.sms(url.Values{"From": {fmt.Sprintf("+1555000%04d", i)}, "Body": {"need water at Hadapsar"}}, relay)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Your Report ID")
	}

	form := url.Values{"From": {"+15559999999"}, "Body": {"need food at Kothrud"}}
	s.sms(form, relay)
	s.sms(form, relay)
	w := s.sms(form, relay)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/xml")
	assert.Contains(t, w.Body.String(), "<Message>We are receiving many messages from your number.")

	w = s.do(http.MethodGet, "/api/tasks/unverified", "", nil)
	var tasks []models.TaskDTO
	decode(t, w, &tasks)
	assert.Len(t, tasks, 7)
}

// failingNeeds rejects every insert
type failingNeeds struct {
	repository.NeedRepository
}

func (failingNeeds) Insert(ctx context.Context, need *models.Need) error {
	return errors.New("connection reset by peer")
}

func TestSMSStoreFailureRepliesTwiML(t *testing.T) {
	ms := store.NewMemoryStore()
	st := ms.Store()
	st.Needs = failingNeeds{NeedRepository: st.Needs}
	c := container.NewServiceContainer(testConfig(), container.Dependencies{
		Store:     st,
		Publisher: messaging.NewMultiPublisher(messaging.LogPublisher{}),
	})
	t.Cleanup(c.Close)
	s := &testServer{router: SetupRouter(c), ms: ms, container: c}

	w := s.sms(url.Values{"From": {"+15551234567"}, "Body": {"Need medical help at Koregaon Park urgently"}}, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/xml")
	assert.Contains(t, w.Body.String(), "We apologize, there was an error processing your request.")
	assert.NotContains(t, w.Body.String(), "connection reset")
}

func TestMapCachePurgedAfterIntake(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodGet, "/api/needs/map", "", nil)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	w = s.do(http.MethodGet, "/api/needs/map", "", nil)
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))

	w = s.sms(url.Values{"From": {"+15551234567"}, "Body": {"need water at Hadapsar"}}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/api/needs/map", "", nil)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
}

func TestVerifyTask(t *testing.T) {
	s := newTestServer(t, nil)
	id := s.ms.SeedNeed(models.Need{Status: models.NeedStatusUnverified, RawMessage: "need water"})

	w := s.do(http.MethodPost, "/api/tasks/verify", `{"volunteerNotes":"x"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "taskId is required")

	w = s.do(http.MethodPost, "/api/tasks/verify", `{"taskId":"`+primitive.NewObjectID().Hex()+`"}`, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Task not found")

	w = s.do(http.MethodPost, "/api/tasks/verify", `{"taskId":"`+id.Hex()+`","volunteerNotes":"confirmed on site"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		Task    struct {
			ID                string     `json:"id"`
			Status            string     `json:"status"`
			VerificationNotes string     `json:"verificationNotes"`
			VerifiedAt        *time.Time `json:"verifiedAt"`
		} `json:"task"`
	}
	decode(t, w, &body)
	assert.True(t, body.Success)
	assert.Equal(t, "Task verified successfully", body.Message)
	assert.Equal(t, id.Hex(), body.Task.ID)
	assert.Equal(t, "Verified", body.Task.Status)
	assert.Equal(t, "confirmed on site", body.Task.VerificationNotes)
	assert.NotNil(t, body.Task.VerifiedAt)

	w = s.do(http.MethodGet, "/api/tasks/verified", "", nil)
	var verified []models.TaskDTO
	decode(t, w, &verified)
	require.Len(t, verified, 1)
	assert.Equal(t, id.Hex(), verified[0].TaskID)
}

func TestMapCachePurgedAfterVerify(t *testing.T) {
	s := newTestServer(t, nil)
	id := s.ms.SeedNeed(models.Need{
		Status:      models.NeedStatusUnverified,
		Coordinates: &models.Coordinates{Lat: 18.5362, Lon: 73.894},
	})

	w := s.do(http.MethodGet, "/api/needs/map", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	assert.Contains(t, w.Body.String(), `"status":"Unverified"`)

	w = s.do(http.MethodGet, "/api/needs/map", "", nil)
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))

	w = s.do(http.MethodPost, "/api/tasks/verify", `{"taskId":"`+id.Hex()+`"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/api/needs/map", "", nil)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	assert.Contains(t, w.Body.String(), `"status":"Verified"`)
}

func seedMission(s *testServer) (primitive.ObjectID, primitive.ObjectID, primitive.ObjectID) {
	report := s.ms.SeedReport(models.Report{Status: models.ReportStatusAnalyzed, Description: "bridge collapsed"})
	need := s.ms.SeedNeed(models.Need{Status: models.NeedStatusVerified, RawMessage: "need water"})
	mission := s.ms.SeedMission(models.Mission{
		ReportIDs: []interface{}{report.Hex()},
		NeedIDs:   []interface{}{need},
		Status:    models.MissionStatusActive,
		Timestamp: time.Date(2024, 7, 26, 9, 0, 0, 0, time.UTC),
		Station:   &models.Station{Type: "hospital", Name: "Ruby Hall"},
	})
	return mission, report, need
}

func TestRerouteMission(t *testing.T) {
	s := newTestServer(t, nil)
	mission, report, need := seedMission(s)
	path := "/api/missions/" + mission.Hex() + "/reroute"

	w := s.do(http.MethodPatch, path, `{"station":{"type":"hospital"}}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPatch, "/api/missions/nope/reroute", `{"station":{"type":"hospital","name":"City General"}}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPatch, "/api/missions/"+primitive.NewObjectID().Hex()+"/reroute", `{"station":{"type":"hospital","name":"City General"}}`, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodPatch, path, `{"station":{"type":"hospital","name":"City General","lat":18.5,"lon":73.8}}`, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body map[string]interface{}
	decode(t, w, &body)
	assert.Equal(t, mission.Hex(), body["id"])
	assert.Equal(t, "Rerouted", body["status"])
	assert.Equal(t, true, body["alertsDispatched"])
	assert.Equal(t, "City General", body["newStation"].(map[string]interface{})["name"])

	assert.Len(t, s.ms.Alerts(), 2)
	r, _ := s.ms.Report(report)
	assert.Equal(t, models.EmergencyStatusDispatched, r.EmergencyStatus)
	n, _ := s.ms.Need(need)
	assert.Equal(t, "City General", n.AssignedStation.Name)

	w = s.do(http.MethodPatch, path, `{"station":{"type":"hospital","name":"City General"}}`, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodGet, "/api/alerts?sourceId="+report.Hex(), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var alerts []models.EmergencyAlert
	decode(t, w, &alerts)
	assert.Len(t, alerts, 1)
}

func TestCompleteMission(t *testing.T) {
	s := newTestServer(t, nil)
	mission, report, need := seedMission(s)

	w := s.do(http.MethodPatch, "/api/missions/"+mission.Hex()+"/complete", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"`+mission.Hex()+`","status":"Completed"}`, w.Body.String())

	r, _ := s.ms.Report(report)
	assert.Equal(t, models.ReportStatusCompleted, r.Status)
	n, _ := s.ms.Need(need)
	assert.Equal(t, models.NeedStatusCompleted, n.Status)

	w = s.do(http.MethodPatch, "/api/missions/"+mission.Hex()+"/complete", "", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestMissionQueries(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodGet, "/api/missions/latest", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "null", w.Body.String())

	mission, _, _ := seedMission(s)
	middleware.PurgeCache()

	w = s.do(http.MethodGet, "/api/missions?status=active", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var missions []models.MissionDTO
	decode(t, w, &missions)
	require.Len(t, missions, 1)
	assert.Equal(t, mission.Hex(), missions[0].ID)
	require.NotNil(t, missions[0].HasDispatched)
	assert.False(t, *missions[0].HasDispatched)

	w = s.do(http.MethodGet, "/api/missions?status=Lost", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/api/missions/"+mission.Hex(), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"Active"`)

	w = s.do(http.MethodGet, "/api/missions/"+primitive.NewObjectID().Hex(), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOptimizeRoute(t *testing.T) {
	s := newTestServer(t, nil)

	body := `{"depot":{"lat":18.52,"lng":73.85},"stops":[{"id":"far","lat":18.70,"lon":73.85},{"id":"near","lat":18.53,"lon":73.85},{"id":"bad"}]}`
	w := s.do(http.MethodPost, "/api/optimize-route", body, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res services.RouteResult
	decode(t, w, &res)
	require.Len(t, res.OptimizedRoute, 2)
	assert.Equal(t, "near", res.OptimizedRoute[0].ID)
	assert.Equal(t, "far", res.OptimizedRoute[1].ID)
	assert.Greater(t, res.TotalDistanceKm, 19.0)
	assert.Equal(t, 1, res.SkippedStops)

	w = s.do(http.MethodPost, "/api/optimize-route", `{"stops":[]}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthRoles(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) { cfg.AuthEnabled = true })
	mission, _, _ := seedMission(s)
	jwtService := s.container.GetService("jwt").(services.InterfaceJWTService)

	volunteer, err := jwtService.GenerateToken("vol-1", services.RoleVolunteer, time.Hour)
	require.NoError(t, err)
	manager, err := jwtService.GenerateToken("desk-1", services.RoleManager, time.Hour)
	require.NoError(t, err)

	w := s.do(http.MethodGet, "/api/tasks/unverified", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodGet, "/api/tasks/unverified", "", http.Header{"Authorization": {"Bearer " + volunteer}})
	assert.Equal(t, http.StatusOK, w.Code)

	complete := "/api/missions/" + mission.Hex() + "/complete"
	w = s.do(http.MethodPatch, complete, "", http.Header{"Authorization": {"Bearer " + volunteer}})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPatch, complete, "", http.Header{"Authorization": {"Bearer " + manager}})
	assert.Equal(t, http.StatusOK, w.Code)

	// public routes stay open
	w = s.do(http.MethodGet, "/api/ping", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodGet, "/api/health/status", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data struct {
			Status     string            `json:"status"`
			Store      string            `json:"store"`
			Redis      string            `json:"redis"`
			Triage     string            `json:"triage"`
			AuditLog   string            `json:"auditLog"`
			Transports map[string]string `json:"transports"`
		} `json:"data"`
	}
	decode(t, w, &body)
	assert.Equal(t, "healthy", body.Data.Status)
	assert.Equal(t, "up", body.Data.Store)
	assert.Equal(t, "disabled", body.Data.Redis)
	assert.Equal(t, "disabled", body.Data.Triage)
	assert.Equal(t, "disabled", body.Data.AuditLog)
	assert.Equal(t, "ready", body.Data.Transports["log"])

	w = s.do(http.MethodGet, "/api/operations", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = s.do(http.MethodGet, "/api/health/cache-stats", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "total_items")
}
