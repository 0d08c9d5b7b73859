package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"relief-http-service/internal/domain/ident"
	"relief-http-service/internal/domain/models"
	"relief-http-service/internal/domain/repository"
	"relief-http-service/pkg/logger"
)

const defaultMemberBatch = 100

// MemberOutcome counts one bulk member update
type MemberOutcome struct {
	Referenced int   `json:"referenced"`
	Dropped    int   `json:"dropped"`
	Modified   int64 `json:"modified"`
	Failed     int   `json:"failed"`
}

// CompleteResult is the outcome of completing a mission
type CompleteResult struct {
	ID      string        `json:"id"`
	Status  string        `json:"status"`
	Reports MemberOutcome `json:"reports"`
	Needs   MemberOutcome `json:"needs"`
}

// RerouteResult is the outcome of rerouting a mission
type RerouteResult struct {
	ID       string         `json:"id"`
	Status   string         `json:"status"`
	Station  models.Station `json:"newStation"`
	Reports  MemberOutcome  `json:"reports"`
	Needs    MemberOutcome  `json:"needs"`
	Dispatch FanOutReport   `json:"dispatch"`
	// AlertsDispatched is set once the dispatch loop has run, whatever its per-record outcome
	AlertsDispatched bool `json:"alertsDispatched"`
}

// InterfaceMissionService defines the mission lifecycle interface
type InterfaceMissionService interface {
	List(ctx context.Context, status string) ([]models.MissionDTO, error)
	Get(ctx context.Context, id string) (*models.MissionDTO, error)
	Latest(ctx context.Context) (*models.MissionDTO, error)
	Complete(ctx context.Context, id string) (*CompleteResult, error)
	Reroute(ctx context.Context, id string, station *models.Station) (*RerouteResult, error)
}

// MissionService drives the Active -> Completed and Active -> Rerouted transitions
type MissionService struct {
	Store     repository.Store
	Alerts    InterfaceAlertService
	ListLimit int
	// BatchSize bounds the ids sent in one member update
	BatchSize int
	Hooks     Hooks
	Now       func() time.Time
}

// NewMissionService creates a mission service
func NewMissionService(store repository.Store, alerts InterfaceAlertService, listLimit int, hooks Hooks) InterfaceMissionService {
	return &MissionService{
		Store:     store,
		Alerts:    alerts,
		ListLimit: listLimit,
		BatchSize: defaultMemberBatch,
		Hooks:     hooks,
		Now:       time.Now,
	}
}

// 1 List returns missions with the status (Active when empty), newest first,
// each with whether any member has already been dispatched
func (s *MissionService) List(ctx context.Context, status string) ([]models.MissionDTO, error) {
	st := models.MissionStatusActive
	if strings.TrimSpace(status) != "" {
		parsed, ok := models.ParseMissionStatus(strings.TrimSpace(status))
		if !ok {
			return nil, ErrMissionStatusInvalid
		}
		st = parsed
	}

	missions, err := s.Store.Missions.List(ctx, st, s.ListLimit)
	if err != nil {
		return nil, fmt.Errorf("list missions: %w", err)
	}

	out := make([]models.MissionDTO, 0, len(missions))
	for i := range missions {
		dto := toMissionDTO(&missions[i])
		dispatched := s.hasDispatched(ctx, &missions[i])
		dto.HasDispatched = &dispatched
		out = append(out, dto)
	}
	return out, nil
}

// hasDispatched probes reports first, then needs. Probe errors read as false.
func (s *MissionService) hasDispatched(ctx context.Context, m *models.Mission) bool {
	if ids, _ := ident.NormalizeAll(m.ReportIDs); len(ids) > 0 {
		found, err := s.Store.Reports.AnyDispatched(ctx, ids)
		if err != nil {
			logger.Warning("[Mission] dispatch probe on reports of %s failed: %v", m.ID.Hex(), err)
		} else if found {
			return true
		}
	}
	if ids, _ := ident.NormalizeAll(m.NeedIDs); len(ids) > 0 {
		found, err := s.Store.Needs.AnyDispatched(ctx, ids)
		if err != nil {
			logger.Warning("[Mission] dispatch probe on needs of %s failed: %v", m.ID.Hex(), err)
			return false
		}
		return found
	}
	return false
}

// 2 Get returns one mission
func (s *MissionService) Get(ctx context.Context, id string) (*models.MissionDTO, error) {
	m, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := toMissionDTO(m)
	return &dto, nil
}

// 3 Latest returns the newest Active mission, or nil when there is none
func (s *MissionService) Latest(ctx context.Context) (*models.MissionDTO, error) {
	m, err := s.Store.Missions.Latest(ctx)
	if err != nil {
		return nil, fmt.Errorf("load latest mission: %w", err)
	}
	if m == nil {
		return nil, nil
	}
	dto := toMissionDTO(m)
	return &dto, nil
}

// 4 Complete marks an Active mission Completed, then every referenced
// report and need. Member failures never undo the mission transition.
func (s *MissionService) Complete(ctx context.Context, id string) (*CompleteResult, error) {
	m, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.Status != models.MissionStatusActive {
		return nil, ErrMissionNotActive
	}

	ok, err := s.Store.Missions.Complete(ctx, m.ID, s.Now())
	if err != nil {
		s.Hooks.record(ctx, models.OpMissionDone, m.ID.Hex(), false, err.Error())
		return nil, fmt.Errorf("complete mission %s: %w", m.ID.Hex(), err)
	}
	if !ok {
		return nil, ErrMissionNotActive
	}

	result := &CompleteResult{ID: m.ID.Hex(), Status: string(models.MissionStatusCompleted)}

	reportIDs, dropped := ident.NormalizeAll(m.ReportIDs)
	result.Reports = s.updateMembers(ctx, m.ID, reportIDs, dropped, s.Store.Reports, func(ids []primitive.ObjectID) (int64, error) {
		return s.Store.Reports.SetStatus(ctx, ids, models.ReportStatusCompleted)
	})

	needIDs, dropped := ident.NormalizeAll(m.NeedIDs)
	result.Needs = s.updateMembers(ctx, m.ID, needIDs, dropped, s.Store.Needs, func(ids []primitive.ObjectID) (int64, error) {
		return s.Store.Needs.SetStatus(ctx, ids, string(models.NeedStatusCompleted))
	})

	logger.Info("[Mission] %s completed: reports %d/%d, needs %d/%d updated",
		result.ID, result.Reports.Modified, result.Reports.Referenced, result.Needs.Modified, result.Needs.Referenced)
	s.Hooks.record(ctx, models.OpMissionDone, result.ID, result.Reports.Failed+result.Needs.Failed == 0,
		fmt.Sprintf("reports=%+v needs=%+v", result.Reports, result.Needs))
	s.Hooks.emit(EventMissionCompleted, result)
	return result, nil
}

// 5 Reroute marks an Active mission Rerouted, resets its members for a new
// mission and sends their alerts to the new station
func (s *MissionService) Reroute(ctx context.Context, id string, station *models.Station) (*RerouteResult, error) {
	if !station.Valid() {
		return nil, ErrStationInvalid
	}
	target := *station
	target.Type = strings.TrimSpace(target.Type)
	target.Name = strings.TrimSpace(target.Name)

	m, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.Status != models.MissionStatusActive {
		return nil, ErrMissionNotActive
	}

	ok, err := s.Store.Missions.Reroute(ctx, m.ID, target, s.Now())
	if err != nil {
		s.Hooks.record(ctx, models.OpMissionReroute, m.ID.Hex(), false, err.Error())
		return nil, fmt.Errorf("reroute mission %s: %w", m.ID.Hex(), err)
	}
	if !ok {
		return nil, ErrMissionNotActive
	}

	result := &RerouteResult{ID: m.ID.Hex(), Status: string(models.MissionStatusRerouted), Station: target}

	// members leave the old mission before new alerts reference them
	reportIDs, droppedReports := ident.NormalizeAll(m.ReportIDs)
	result.Reports = s.updateMembers(ctx, m.ID, reportIDs, droppedReports, s.Store.Reports, func(ids []primitive.ObjectID) (int64, error) {
		return s.Store.Reports.ResetForReroute(ctx, ids, models.ReportStatusAnalyzed, target)
	})
	logger.Info("[Mission] reset %d reports for re-routing to %s", result.Reports.Modified, target.Name)

	needIDs, droppedNeeds := ident.NormalizeAll(m.NeedIDs)
	result.Needs = s.updateMembers(ctx, m.ID, needIDs, droppedNeeds, s.Store.Needs, func(ids []primitive.ObjectID) (int64, error) {
		return s.Store.Needs.ResetForReroute(ctx, ids, string(models.NeedStatusVerified), target)
	})
	logger.Info("[Mission] reset %d needs for re-routing to %s", result.Needs.Modified, target.Name)

	refs := make([]MemberRef, 0, len(reportIDs)+len(needIDs))
	for _, rid := range reportIDs {
		refs = append(refs, MemberRef{ID: rid, Kind: models.SourceReport})
	}
	for _, nid := range needIDs {
		refs = append(refs, MemberRef{ID: nid, Kind: models.SourceNeed})
	}
	result.Dispatch = s.Alerts.FanOut(ctx, target, refs)
	result.AlertsDispatched = true

	logger.Info("[Mission] %s rerouted to %s/%s", result.ID, target.Type, target.Name)
	s.Hooks.record(ctx, models.OpMissionReroute, result.ID, result.Dispatch.Failed == 0,
		fmt.Sprintf("station=%s cancelled=%d dispatched=%d/%d", target.Name, result.Dispatch.Cancelled, result.Dispatch.Succeeded, result.Dispatch.Attempted))
	s.Hooks.emit(EventMissionRerouted, result)
	return result, nil
}

// load parses and fetches a mission
func (s *MissionService) load(ctx context.Context, id string) (*models.Mission, error) {
	oid, ok := ident.ParseHex(strings.TrimSpace(id))
	if !ok {
		return nil, ErrMissionInvalidID
	}
	m, err := s.Store.Missions.FindByID(ctx, oid)
	if err != nil {
		return nil, fmt.Errorf("load mission %s: %w", id, err)
	}
	if m == nil {
		return nil, ErrMissionNotFound
	}
	return m, nil
}

// updateMembers applies write to ids in batches. A failed batch is retried
// once; batches that still fail are counted and logged, never returned.
func (s *MissionService) updateMembers(ctx context.Context, missionID primitive.ObjectID, ids []primitive.ObjectID, dropped int,
	repo repository.MemberRepository, write func([]primitive.ObjectID) (int64, error)) MemberOutcome {
	out := MemberOutcome{Referenced: len(ids), Dropped: dropped}
	if dropped > 0 {
		logger.Warning("[Mission] %s: dropped %d unrecognised %s references", missionID.Hex(), dropped, repo.Kind())
	}

	size := s.BatchSize
	if size <= 0 {
		size = defaultMemberBatch
	}
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]

		n, err := write(batch)
		if err != nil {
			logger.Warning("[Mission] %s: %s batch %d-%d failed, retrying: %v", missionID.Hex(), repo.Kind(), start, end, err)
			n, err = write(batch)
		}
		if err != nil {
			logger.Error("[Mission] %s: %s batch %d-%d failed: %v", missionID.Hex(), repo.Kind(), start, end, err)
			out.Failed += len(batch)
			continue
		}
		out.Modified += n
	}
	return out
}

func toMissionDTO(m *models.Mission) models.MissionDTO {
	routes := m.Routes
	if routes == nil {
		routes = []interface{}{}
	}
	return models.MissionDTO{
		ID:          m.ID.Hex(),
		Routes:      routes,
		ReportIDs:   ident.Hexes(m.ReportIDs),
		NeedIDs:     ident.Hexes(m.NeedIDs),
		Status:      string(m.Status),
		NumVehicles: m.NumVehicles,
		Timestamp:   m.Timestamp,
		Station:     m.Station,
		CompletedAt: m.CompletedAt,
		ReroutedAt:  m.ReroutedAt,
		ReroutedTo:  m.ReroutedTo,
	}
}
