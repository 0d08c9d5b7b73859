package middleware

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relief-http-service/internal/domain/services"
	"relief-http-service/internal/infrastructure/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTokenBucket(t *testing.T) {
	tb := NewTokenBucket(1, 2)
	now := time.Now()

	assert.True(t, tb.allowAt(now))
	assert.True(t, tb.allowAt(now))
	assert.False(t, tb.allowAt(now))
	assert.True(t, tb.allowAt(now.Add(1100*time.Millisecond)))
	assert.False(t, tb.allowAt(now.Add(1200*time.Millisecond)))
}

func TestRateLimiterPerIP(t *testing.T) {
	r := gin.New()
	r.GET("/x", IPRateLimiter(0.001, 1), func(c *gin.Context) { c.Status(http.StatusOK) })

	req := func(ip string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = ip + ":1234"
		return req
	}

	assert.Equal(t, http.StatusOK, serve(r, req("10.0.0.1")).Code)
	w := serve(r, req("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, http.StatusOK, serve(r, req("10.0.0.2")).Code)
}

func TestCacheOnlyKeepsSuccess(t *testing.T) {
	PurgeCache()
	calls := 0
	status := http.StatusOK

	r := gin.New()
	r.GET("/data", Cache(CacheConfig{Expiration: time.Minute}), func(c *gin.Context) {
		calls++
		c.JSON(status, gin.H{"n": calls})
	})

	status = http.StatusInternalServerError
	serve(r, httptest.NewRequest(http.MethodGet, "/data", nil))
	status = http.StatusOK
	w := serve(r, httptest.NewRequest(http.MethodGet, "/data", nil))
	assert.JSONEq(t, `{"n":2}`, w.Body.String())

	w = serve(r, httptest.NewRequest(http.MethodGet, "/data", nil))
	assert.JSONEq(t, `{"n":2}`, w.Body.String())
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
	assert.Equal(t, 2, calls)

	// the query is part of the key
	serve(r, httptest.NewRequest(http.MethodGet, "/data?page=2", nil))
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, CacheStats()["total_items"])

	PurgeCache()
	serve(r, httptest.NewRequest(http.MethodGet, "/data", nil))
	assert.Equal(t, 4, calls)
}

func TestCacheByParamsIgnoresOtherParams(t *testing.T) {
	PurgeCache()
	calls := 0
	r := gin.New()
	r.GET("/missions", CacheByParams(time.Minute, "status"), func(c *gin.Context) {
		calls++
		c.JSON(http.StatusOK, gin.H{"status": c.Query("status")})
	})

	serve(r, httptest.NewRequest(http.MethodGet, "/missions?status=Active&_=1", nil))
	serve(r, httptest.NewRequest(http.MethodGet, "/missions?status=Active&_=2", nil))
	assert.Equal(t, 1, calls)

	serve(r, httptest.NewRequest(http.MethodGet, "/missions?status=Completed", nil))
	assert.Equal(t, 2, calls)
}

// signTwilio signs a webhook the way Twilio does: the URL followed by each
// POST parameter name and value in name order, HMAC-SHA1, base64.
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

func TestValidateTwilioReferenceSignature(t *testing.T) {
	// reference values from Twilio's webhook security documentation
	const publicURL = "https://mycompany.com/myapp.php?foo=1&bar=2"
	params := url.Values{
		"CallSid": {"CA1234567890ABCDE"},
		"Caller":  {"+12349013030"},
		"Digits":  {"1234"},
		"From":    {"+12349013030"},
		"To":      {"+18005551212"},
	}
	require.Equal(t, "0/KCTR6DLpKmkAf8muzZqo1nDgQ=", signTwilio("12345", publicURL, params))

	r := gin.New()
	r.POST("/myapp.php", ValidateTwilio("12345", publicURL, true), func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/myapp.php?foo=1&bar=2", strings.NewReader(params.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(TwilioSignatureHeader, "0/KCTR6DLpKmkAf8muzZqo1nDgQ=")
	assert.Equal(t, http.StatusOK, serve(r, req).Code)
}

func TestValidateTwilio(t *testing.T) {
	r := gin.New()
	r.POST("/api/sms", ValidateTwilio("secret", "", true), func(c *gin.Context) { c.String(http.StatusOK, c.PostForm("Body")) })

	form := url.Values{"From": {"+15551234567"}, "Body": {"help"}}
	newReq := func(sig string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "http://relief.local/api/sms", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("X-Forwarded-Proto", "https")
		if sig != "" {
			req.Header.Set(TwilioSignatureHeader, sig)
		}
		return req
	}

	assert.Equal(t, http.StatusForbidden, serve(r, newReq("")).Code)
	assert.Equal(t, http.StatusForbidden, serve(r, newReq(signTwilio("secret", "http://relief.local/api/sms", form))).Code)

	w := serve(r, newReq(signTwilio("secret", "https://relief.local/api/sms", form)))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "help", w.Body.String(), "the form stays readable after validation")
}

func TestSenderRateLimiter(t *testing.T) {
	limited := 0
	r := gin.New()
	r.POST("/api/sms", SenderRateLimiter(0.001, 2, func(c *gin.Context) {
		limited++
		c.String(http.StatusOK, "slow down")
	}), func(c *gin.Context) { c.String(http.StatusOK, "stored") })

	send := func(from string) *httptest.ResponseRecorder {
		form := url.Values{"From": {from}, "Body": {"need water"}}
		req := httptest.NewRequest(http.MethodPost, "/api/sms", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.RemoteAddr = "54.172.60.1:443"
		return serve(r, req)
	}

	// one relay address, many senders
	for i := 0; i < 10; i++ {
		w := send(fmt.Sprintf("+1555000%04d", i))
		assert.Equal(t, "stored", w.Body.String())
	}
	assert.Zero(t, limited)

	send("+15551234567")
	send("+15551234567")
	w := send("+15551234567")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "slow down", w.Body.String())
	assert.Equal(t, 1, limited)
}

func TestAuthenticate(t *testing.T) {
	cfg := &config.Config{AuthEnabled: true, JWTSecretKey: "k", JWTIssuer: "relief-http-service"}
	jwt := services.NewJWTService(cfg)
	InitAuthMiddleware(cfg, jwt)
	t.Cleanup(func() { InitAuthMiddleware(&config.Config{}, jwt) })

	var actor string
	r := gin.New()
	handler := func(c *gin.Context) {
		actor = services.ActorFrom(c.Request.Context())
		c.Status(http.StatusOK)
	}
	r.GET("/read", AuthenticateOperator(), handler)
	r.GET("/manage", AuthenticateManager(), handler)

	volunteer, err := jwt.GenerateToken("vol-7", services.RoleVolunteer, time.Hour)
	require.NoError(t, err)
	admin, err := jwt.GenerateToken("root", services.RoleAdmin, time.Hour)
	require.NoError(t, err)

	get := func(path, header string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		return serve(r, req).Code
	}

	assert.Equal(t, http.StatusUnauthorized, get("/read", ""))
	assert.Equal(t, http.StatusUnauthorized, get("/read", "Bearer garbage"))
	assert.Equal(t, http.StatusOK, get("/read", "Bearer "+volunteer))
	assert.Equal(t, "volunteer:vol-7", actor)
	assert.Equal(t, http.StatusOK, get("/read?token="+volunteer, ""))
	assert.Equal(t, http.StatusForbidden, get("/manage", "Bearer "+volunteer))
	assert.Equal(t, http.StatusOK, get("/manage", "bearer "+admin))
}

func TestAuthenticateDisabled(t *testing.T) {
	InitAuthMiddleware(&config.Config{}, nil)

	var actor string
	r := gin.New()
	r.GET("/manage", AuthenticateManager(), func(c *gin.Context) {
		actor = services.ActorFrom(c.Request.Context())
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/manage", nil)).Code)
	assert.Equal(t, "anonymous", actor)
}

func TestCORSPreflight(t *testing.T) {
	r := gin.New()
	r.Use(CORS("https://dashboard.example.org"))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, httptest.NewRequest(http.MethodOptions, "/x", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://dashboard.example.org", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}
