package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"relief-http-service/internal/domain/ident"
	"relief-http-service/internal/domain/models"
	"relief-http-service/internal/domain/repository"
	"relief-http-service/pkg/logger"
)

const alertMessageType = "emergency_alert"

// StationPublisher delivers an alert message to a station
type StationPublisher interface {
	Publish(ctx context.Context, station models.Station, msg *models.StationAlertMessage) error
}

// MemberRef points at one need or report
type MemberRef struct {
	ID   primitive.ObjectID
	Kind models.SourceKind
}

// DispatchItem is the outcome of one per-record dispatch
type DispatchItem struct {
	SourceID   string            `json:"sourceId"`
	SourceType models.SourceKind `json:"sourceType"`
	AlertID    string            `json:"alertId,omitempty"`
	Delivered  bool              `json:"delivered"`
	Error      string            `json:"error,omitempty"`
}

// FanOutReport summarizes a cancel-and-redispatch pass
type FanOutReport struct {
	Cancelled int64          `json:"cancelled"`
	Attempted int            `json:"attempted"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	Items     []DispatchItem `json:"items"`
}

// InterfaceAlertService defines the alert fan-out interface
type InterfaceAlertService interface {
	CancelForSources(ctx context.Context, sourceIDs []primitive.ObjectID, reason string) (int64, error)
	DispatchToStation(ctx context.Context, ref MemberRef, station models.Station) (*models.EmergencyAlert, error)
	FanOut(ctx context.Context, station models.Station, refs []MemberRef) FanOutReport
	ListBySource(ctx context.Context, sourceID string, limit int) ([]models.EmergencyAlert, error)
}

// AlertService cancels stale station alerts and sends new ones
type AlertService struct {
	Store     repository.Store
	Publisher StationPublisher
	Timeout   time.Duration
	Hooks     Hooks
	Now       func() time.Time
}

// NewAlertService creates an alert service
func NewAlertService(store repository.Store, publisher StationPublisher, timeout time.Duration, hooks Hooks) InterfaceAlertService {
	return &AlertService{
		Store:     store,
		Publisher: publisher,
		Timeout:   timeout,
		Hooks:     hooks,
		Now:       time.Now,
	}
}

// CancelReason is the reason recorded on alerts cancelled by a reroute
func CancelReason(station models.Station) string {
	return "Rerouted to " + station.Name
}

// 1 CancelForSources cancels every open alert for the sources in one bulk write
func (s *AlertService) CancelForSources(ctx context.Context, sourceIDs []primitive.ObjectID, reason string) (int64, error) {
	if len(sourceIDs) == 0 {
		return 0, nil
	}
	n, err := s.Store.Alerts.CancelOpenForSources(ctx, sourceIDs, reason, s.Now())
	if err != nil {
		s.Hooks.record(ctx, models.OpAlertCancel, "", false, err.Error())
		return 0, fmt.Errorf("cancel alerts: %w", err)
	}
	logger.Info("[Alert] cancelled %d emergency alerts (%s)", n, reason)
	s.Hooks.record(ctx, models.OpAlertCancel, "", true, fmt.Sprintf("%d alerts: %s", n, reason))
	return n, nil
}

// 2 DispatchToStation sends one new alert for the current state of a record
func (s *AlertService) DispatchToStation(ctx context.Context, ref MemberRef, station models.Station) (*models.EmergencyAlert, error) {
	repo := s.members(ref.Kind)
	if repo == nil {
		return nil, fmt.Errorf("unknown source type %q", ref.Kind)
	}

	member, err := repo.FindMember(ctx, ref.ID)
	if err != nil {
		return nil, fmt.Errorf("load %s %s: %w", ref.Kind, ref.ID.Hex(), err)
	}
	if member == nil {
		return nil, fmt.Errorf("%s %s not found", ref.Kind, ref.ID.Hex())
	}

	now := s.Now()
	alert := &models.EmergencyAlert{
		MessageID:   uuid.New().String(),
		SourceID:    member.ID,
		SourceType:  member.Kind,
		Status:      models.AlertStatusPending,
		NeedType:    member.NeedType,
		Urgency:     member.Urgency,
		Summary:     member.Summary,
		Location:    member.Location,
		Coordinates: member.Coordinates,
		SentToStations: []models.StationDelivery{{
			StationType: station.Type,
			StationName: station.Name,
			Status:      models.DeliveryPending,
		}},
		CreatedAt: now,
	}
	if err := s.Store.Alerts.Insert(ctx, alert); err != nil {
		return nil, fmt.Errorf("save alert: %w", err)
	}

	pubCtx := ctx
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		pubCtx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	if err := s.publish(pubCtx, station, alert, member); err != nil {
		if markErr := s.Store.Alerts.MarkDeliveryFailed(ctx, alert.ID, err.Error()); markErr != nil {
			logger.Warning("[Alert] failed to mark alert %s undelivered: %v", alert.ID.Hex(), markErr)
		}
		return alert, fmt.Errorf("deliver alert %s: %w", alert.ID.Hex(), err)
	}

	sentAt := s.Now()
	if err := s.Store.Alerts.MarkDispatched(ctx, alert.ID, sentAt); err != nil {
		logger.Warning("[Alert] alert %s delivered but status not saved: %v", alert.ID.Hex(), err)
	}
	if err := repo.MarkDispatched(ctx, member.ID, alert.ID, station); err != nil {
		logger.Warning("[Alert] %s %s not linked to alert %s: %v", member.Kind, member.ID.Hex(), alert.ID.Hex(), err)
	}

	alert.Status = models.AlertStatusDispatched
	alert.DispatchedAt = &sentAt
	alert.SentToStations[0].Status = models.DeliverySent
	alert.SentToStations[0].SentAt = &sentAt
	return alert, nil
}

func (s *AlertService) publish(ctx context.Context, station models.Station, alert *models.EmergencyAlert, member *models.MemberRecord) error {
	if s.Publisher == nil {
		return errors.New("no station publisher configured")
	}
	msg := &models.StationAlertMessage{
		Type:       alertMessageType,
		MessageID:  alert.MessageID,
		AlertID:    alert.ID.Hex(),
		SourceID:   member.ID.Hex(),
		SourceType: member.Kind,
		NeedType:   member.NeedType,
		Urgency:    member.Urgency,
		Summary:    member.Summary,
		Location:   member.Location,
		Contact:    member.Contact,
		Station:    station,
		Timestamp:  alert.CreatedAt.Unix(),
	}
	if member.Coordinates != nil {
		lat, lon := member.Coordinates.Lat, member.Coordinates.Lon
		msg.Lat, msg.Lon = &lat, &lon
	}
	return s.Publisher.Publish(ctx, station, msg)
}

// 3 FanOut cancels open alerts for the records, then dispatches one new
// alert per record in order. A failed record never stops the loop.
func (s *AlertService) FanOut(ctx context.Context, station models.Station, refs []MemberRef) FanOutReport {
	report := FanOutReport{Items: make([]DispatchItem, 0, len(refs))}
	if len(refs) == 0 {
		return report
	}

	ids := make([]primitive.ObjectID, 0, len(refs))
	for _, r := range refs {
		ids = append(ids, r.ID)
	}
	cancelled, err := s.CancelForSources(ctx, ids, CancelReason(station))
	if err != nil {
		logger.Error("[Alert] %v; continuing with dispatch", err)
	}
	report.Cancelled = cancelled

	for _, ref := range refs {
		report.Attempted++
		item := DispatchItem{SourceID: ref.ID.Hex(), SourceType: ref.Kind}

		alert, err := s.DispatchToStation(ctx, ref, station)
		if alert != nil {
			item.AlertID = alert.ID.Hex()
		}
		if err != nil {
			report.Failed++
			item.Error = err.Error()
			logger.Warning("[Alert] dispatch for %s %s to %s failed: %v", ref.Kind, item.SourceID, station.Name, err)
			s.Hooks.record(ctx, models.OpAlertDispatch, item.SourceID, false, err.Error())
		} else {
			report.Succeeded++
			item.Delivered = true
			s.Hooks.record(ctx, models.OpAlertDispatch, item.SourceID, true, "alert "+item.AlertID+" to "+station.Name)
			s.Hooks.emit(EventAlertDispatched, item)
		}
		report.Items = append(report.Items, item)
	}

	logger.Info("[Alert] dispatched to %s: %d attempted, %d delivered, %d failed",
		station.Name, report.Attempted, report.Succeeded, report.Failed)
	return report
}

// 4 ListBySource returns the alert history of one record, newest first
func (s *AlertService) ListBySource(ctx context.Context, sourceID string, limit int) ([]models.EmergencyAlert, error) {
	id, ok := ident.ParseHex(strings.TrimSpace(sourceID))
	if !ok {
		return nil, ErrSourceInvalidID
	}
	alerts, err := s.Store.Alerts.ListBySource(ctx, id, limit)
	if err != nil {
		return nil, fmt.Errorf("list alerts for %s: %w", sourceID, err)
	}
	if alerts == nil {
		alerts = []models.EmergencyAlert{}
	}
	return alerts, nil
}

func (s *AlertService) members(kind models.SourceKind) repository.MemberRepository {
	switch kind {
	case models.SourceReport:
		return s.Store.Reports
	case models.SourceNeed:
		return s.Store.Needs
	}
	return nil
}
