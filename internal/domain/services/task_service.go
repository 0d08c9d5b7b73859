package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"relief-http-service/internal/domain/ident"
	"relief-http-service/internal/domain/models"
	"relief-http-service/internal/domain/repository"
	"relief-http-service/pkg/logger"
)

// TaskLimits caps the volunteer and map lists
type TaskLimits struct {
	Unverified int
	Verified   int
	Map        int
}

// VerifyResult is the outcome of a verification
type VerifyResult struct {
	Task            models.VerifiedTask
	AlreadyVerified bool
}

// GeocodeRetryResult is the outcome of a coordinate retry
type GeocodeRetryResult struct {
	NeedID      string              `json:"id"`
	Coordinates *models.Coordinates `json:"coordinates"`
	Updated     bool                `json:"updated"`
	Query       string              `json:"query,omitempty"`
}

// InterfaceTaskService defines the verification stage interface
type InterfaceTaskService interface {
	ListUnverified(ctx context.Context) ([]models.TaskDTO, error)
	ListVerified(ctx context.Context) ([]models.TaskDTO, error)
	MapNeeds(ctx context.Context) ([]models.MapNeedDTO, error)
	Verify(ctx context.Context, taskID, notes string) (*VerifyResult, error)
	RetryGeocode(ctx context.Context, needID string) (*GeocodeRetryResult, error)
}

// TaskService serves the volunteer task lists and moves needs to Verified
type TaskService struct {
	Needs    repository.NeedRepository
	Location InterfaceLocationService
	Limits   TaskLimits
	Hooks    Hooks
	Now      func() time.Time
}

// NewTaskService creates a task service
func NewTaskService(needs repository.NeedRepository, location InterfaceLocationService, limits TaskLimits, hooks Hooks) InterfaceTaskService {
	return &TaskService{
		Needs:    needs,
		Location: location,
		Limits:   limits,
		Hooks:    hooks,
		Now:      time.Now,
	}
}

// 1 ListUnverified returns the newest Unverified needs
func (s *TaskService) ListUnverified(ctx context.Context) ([]models.TaskDTO, error) {
	return s.list(ctx, models.NeedStatusUnverified, s.Limits.Unverified)
}

// 2 ListVerified returns the most recently verified needs
func (s *TaskService) ListVerified(ctx context.Context) ([]models.TaskDTO, error) {
	return s.list(ctx, models.NeedStatusVerified, s.Limits.Verified)
}

func (s *TaskService) list(ctx context.Context, status models.NeedStatus, limit int) ([]models.TaskDTO, error) {
	needs, err := s.Needs.ListByStatus(ctx, status, limit)
	if err != nil {
		return nil, fmt.Errorf("list %s needs: %w", status, err)
	}
	out := make([]models.TaskDTO, 0, len(needs))
	for i := range needs {
		out = append(out, needs[i].ToTaskDTO())
	}
	return out, nil
}

// 3 MapNeeds returns located needs of every status, newest first
func (s *TaskService) MapNeeds(ctx context.Context) ([]models.MapNeedDTO, error) {
	needs, err := s.Needs.ListWithCoordinates(ctx, s.Limits.Map)
	if err != nil {
		return nil, fmt.Errorf("list map needs: %w", err)
	}
	out := make([]models.MapNeedDTO, 0, len(needs))
	for i := range needs {
		if needs[i].HasCoordinates() {
			out = append(out, needs[i].ToMapDTO())
		}
	}
	return out, nil
}

// 4 Verify moves an Unverified need to Verified. Verifying an already
// Verified need returns its existing metadata unchanged; a Completed need
// cannot be verified.
func (s *TaskService) Verify(ctx context.Context, taskID, notes string) (*VerifyResult, error) {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return nil, ErrTaskIDRequired
	}
	id, ok := ident.ParseHex(taskID)
	if !ok {
		// an id that cannot exist does not resolve
		return nil, ErrNeedNotFound
	}

	verified, err := s.Needs.MarkVerified(ctx, id, strings.TrimSpace(notes), s.Now())
	if err != nil {
		s.Hooks.record(ctx, models.OpNeedVerified, taskID, false, err.Error())
		return nil, fmt.Errorf("verify need %s: %w", taskID, err)
	}

	need, err := s.Needs.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load need %s: %w", taskID, err)
	}
	if need == nil {
		return nil, ErrNeedNotFound
	}

	result := &VerifyResult{Task: models.VerifiedTask{
		ID:                need.ID.Hex(),
		Status:            string(need.Status),
		VerificationNotes: need.VerificationNotes,
		VerifiedAt:        need.VerifiedAt,
	}}

	if verified {
		logger.Info("[Verify] need %s verified", taskID)
		s.Hooks.record(ctx, models.OpNeedVerified, taskID, true, need.VerificationNotes)
		s.Hooks.emit(EventNeedVerified, result.Task)
		return result, nil
	}

	switch need.Status {
	case models.NeedStatusVerified:
		logger.Info("[Verify] need %s already verified, keeping existing metadata", taskID)
		result.AlreadyVerified = true
		return result, nil
	case models.NeedStatusCompleted:
		return nil, ErrNeedCompleted
	default:
		return nil, fmt.Errorf("verify need %s: status %s changed concurrently", taskID, need.Status)
	}
}

// 5 RetryGeocode resolves coordinates for a need stored without them.
// Existing coordinates are returned untouched.
func (s *TaskService) RetryGeocode(ctx context.Context, needID string) (*GeocodeRetryResult, error) {
	id, ok := ident.ParseHex(strings.TrimSpace(needID))
	if !ok {
		return nil, ErrNeedInvalidID
	}

	need, err := s.Needs.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load need %s: %w", needID, err)
	}
	if need == nil {
		return nil, ErrNeedNotFound
	}

	result := &GeocodeRetryResult{NeedID: need.ID.Hex(), Coordinates: need.Coordinates}
	if need.HasCoordinates() {
		return result, nil
	}

	loc := s.Location.Resolve(ctx, need.TriageData, need.RawMessage)
	result.Query = loc.Query
	if loc.Coordinates == nil {
		s.Hooks.record(ctx, models.OpNeedGeocoded, result.NeedID, false, "no result for "+loc.Query)
		return result, nil
	}

	set, err := s.Needs.SetCoordinates(ctx, id, *loc.Coordinates)
	if err != nil {
		return nil, fmt.Errorf("save coordinates for %s: %w", needID, err)
	}
	if !set {
		// located by someone else in the meantime
		if current, err := s.Needs.FindByID(ctx, id); err == nil && current != nil {
			result.Coordinates = current.Coordinates
		}
		return result, nil
	}

	result.Coordinates = loc.Coordinates
	result.Updated = true
	s.Hooks.record(ctx, models.OpNeedGeocoded, result.NeedID, true, loc.Query)
	s.Hooks.emit(EventNeedGeocoded, result)
	return result, nil
}
