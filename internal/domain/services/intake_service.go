package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"relief-http-service/internal/domain/models"
	"relief-http-service/internal/domain/repository"
	"relief-http-service/pkg/logger"
)

// IngestResult is the stored need plus how triage and geocoding went
type IngestResult struct {
	Need     *models.Need
	Triage   TriageResult
	Location LocationResult
}

// InterfaceIntakeService defines the need ingestion interface
type InterfaceIntakeService interface {
	Ingest(ctx context.Context, from, body string) (*IngestResult, error)
}

// IntakeService turns an inbound message into an Unverified need. It is the
// only path that creates needs.
type IntakeService struct {
	Needs    repository.NeedRepository
	Triage   InterfaceTriageService
	Location InterfaceLocationService
	Hooks    Hooks
	Now      func() time.Time
}

// NewIntakeService creates an intake service
func NewIntakeService(needs repository.NeedRepository, triage InterfaceTriageService, location InterfaceLocationService, hooks Hooks) InterfaceIntakeService {
	return &IntakeService{
		Needs:    needs,
		Triage:   triage,
		Location: location,
		Hooks:    hooks,
		Now:      time.Now,
	}
}

// 1 Ingest triages, geocodes and persists one message. Triage and geocode
// failures degrade the need; only a store failure is returned.
func (s *IntakeService) Ingest(ctx context.Context, from, body string) (*IngestResult, error) {
	if strings.TrimSpace(body) == "" {
		return nil, ErrEmptyMessage
	}

	tr := s.Triage.Resolve(ctx, body)
	if tr.Degraded {
		logger.Warning("[SMS] triage degraded for message from %s: %s", from, tr.Reason)
	}

	loc := s.Location.Resolve(ctx, tr.Data, body)

	now := s.Now()
	need := &models.Need{
		FromNumber:  from,
		RawMessage:  body,
		TriageData:  tr.Data,
		Status:      models.NeedStatusUnverified,
		Coordinates: loc.Coordinates,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Needs.Insert(ctx, need); err != nil {
		s.Hooks.record(ctx, models.OpNeedIngested, "", false, err.Error())
		return nil, fmt.Errorf("save need: %w", err)
	}

	logger.Info("[SMS] need %s saved (triage=%s, located=%v)", need.ID.Hex(), tr.Source, need.HasCoordinates())
	s.Hooks.record(ctx, models.OpNeedIngested, need.ID.Hex(), true,
		fmt.Sprintf("triage=%s needType=%s urgency=%s located=%v", tr.Source, tr.Data.NeedType, tr.Data.Urgency, need.HasCoordinates()))
	s.Hooks.emit(EventNeedCreated, need.ToTaskDTO())

	return &IngestResult{Need: need, Triage: tr, Location: loc}, nil
}
