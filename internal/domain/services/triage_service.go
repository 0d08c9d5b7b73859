package services

import (
	"context"
	"errors"
	"time"

	"relief-http-service/internal/domain/models"
	"relief-http-service/internal/domain/triage"
	"relief-http-service/pkg/circuit"
	"relief-http-service/pkg/logger"
)

// TriageCapability is a structured-extraction backend for raw messages
type TriageCapability interface {
	Triage(ctx context.Context, text string) (models.TriageData, error)
}

// TriageResult is a triage payload plus where it came from
type TriageResult struct {
	Data     models.TriageData
	Source   string // models.TriageSourcePrimary or models.TriageSourceFallback
	Degraded bool
	Reason   string
}

// InterfaceTriageService defines the triage resolver interface
type InterfaceTriageService interface {
	Resolve(ctx context.Context, text string) TriageResult
	BreakerState() string
}

// TriageService tries the primary capability and falls back to the
// deterministic parser on any failure
type TriageService struct {
	Primary TriageCapability
	Breaker *circuit.Breaker
	Timeout time.Duration
}

// NewTriageService creates a triage service. primary may be nil, in which
// case every message goes through the fallback parser.
func NewTriageService(primary TriageCapability, breaker *circuit.Breaker, timeout time.Duration) InterfaceTriageService {
	return &TriageService{
		Primary: primary,
		Breaker: breaker,
		Timeout: timeout,
	}
}

// 1 Resolve always returns a payload with all four fields populated
func (s *TriageService) Resolve(ctx context.Context, text string) TriageResult {
	if s.Primary == nil {
		return fallback(text, "primary triage not configured")
	}

	var data models.TriageData
	call := func() error {
		callCtx := ctx
		if s.Timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, s.Timeout)
			defer cancel()
		}
		var err error
		data, err = s.Primary.Triage(callCtx, text)
		return err
	}

	var err error
	if s.Breaker != nil {
		err = s.Breaker.Execute(ctx, call)
	} else {
		err = call()
	}

	if err != nil {
		reason := err.Error()
		if errors.Is(err, circuit.ErrCircuitOpen) || errors.Is(err, circuit.ErrTooManyRequests) {
			reason = "primary triage skipped: " + reason
		}
		logger.Warning("[Triage] primary failed, using fallback parser: %s", reason)
		return fallback(text, reason)
	}

	return TriageResult{
		Data:   triage.Complete(data, text),
		Source: models.TriageSourcePrimary,
	}
}

// 2 BreakerState reports the primary capability breaker state for health checks
func (s *TriageService) BreakerState() string {
	if s.Primary == nil {
		return "disabled"
	}
	if s.Breaker == nil {
		return circuit.StateClosed.String()
	}
	return s.Breaker.State().String()
}

func fallback(text, reason string) TriageResult {
	return TriageResult{
		Data:     triage.Parse(text),
		Source:   models.TriageSourceFallback,
		Degraded: true,
		Reason:   reason,
	}
}
