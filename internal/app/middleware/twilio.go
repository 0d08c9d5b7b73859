package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/twilio/twilio-go/client"

	"relief-http-service/pkg/logger"
)

// TwilioSignatureHeader carries the webhook signature
const TwilioSignatureHeader = "X-Twilio-Signature"

// ValidateTwilio rejects webhook calls without a valid signature. publicURL
// is the URL configured at Twilio; when empty it is derived from the
// request, honouring X-Forwarded-Proto.
func ValidateTwilio(authToken, publicURL string, enabled bool) gin.HandlerFunc {
	validator := client.NewRequestValidator(authToken)

	return func(c *gin.Context) {
		if !enabled {
			c.Next()
			return
		}

		if err := c.Request.ParseForm(); err != nil {
			c.String(http.StatusBadRequest, "malformed form body")
			c.Abort()
			return
		}

		target := publicURL
		if target == "" {
			target = requestURL(c.Request)
		}

		params := make(map[string]string, len(c.Request.PostForm))
		for k := range c.Request.PostForm {
			params[k] = c.Request.PostForm.Get(k)
		}

		sig := c.GetHeader(TwilioSignatureHeader)
		if sig == "" || !validator.Validate(target, params, sig) {
			logger.Warning("[SMS] rejected webhook from %s: signature mismatch", c.ClientIP())
			c.String(http.StatusForbidden, "Twilio Request Validation Failed.")
			c.Abort()
			return
		}
		c.Next()
	}
}

func requestURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}
