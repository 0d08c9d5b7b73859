package store

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"relief-http-service/internal/domain/models"
	"relief-http-service/internal/domain/repository"
)

// MemoryStore keeps the four collections in process. It backs STORE_DRIVER=memory
// for local runs and the package tests, and mirrors the Mongo filters.
type MemoryStore struct {
	mu       sync.RWMutex
	needs    map[primitive.ObjectID]models.Need
	reports  map[primitive.ObjectID]models.Report
	missions map[primitive.ObjectID]models.Mission
	alerts   map[primitive.ObjectID]models.EmergencyAlert
	order    []primitive.ObjectID // alert insertion order
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		needs:    make(map[primitive.ObjectID]models.Need),
		reports:  make(map[primitive.ObjectID]models.Report),
		missions: make(map[primitive.ObjectID]models.Mission),
		alerts:   make(map[primitive.ObjectID]models.EmergencyAlert),
	}
}

// Store exposes the collections as repositories
func (m *MemoryStore) Store() repository.Store {
	return repository.Store{
		Needs:    &memNeeds{m},
		Reports:  &memReports{m},
		Missions: &memMissions{m},
		Alerts:   &memAlerts{m},
	}
}

// SeedReport stores a report as an external intake channel would
func (m *MemoryStore) SeedReport(r models.Report) primitive.ObjectID {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID.IsZero() {
		r.ID = primitive.NewObjectID()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	m.reports[r.ID] = cloneReport(r)
	return r.ID
}

// SeedNeed stores a need as is, bypassing intake
func (m *MemoryStore) SeedNeed(n models.Need) primitive.ObjectID {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	m.needs[n.ID] = cloneNeed(n)
	return n.ID
}

// SeedMission stores a mission as the formation agent would
func (m *MemoryStore) SeedMission(ms models.Mission) primitive.ObjectID {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ms.ID.IsZero() {
		ms.ID = primitive.NewObjectID()
	}
	if ms.Timestamp.IsZero() {
		ms.Timestamp = time.Now()
	}
	m.missions[ms.ID] = ms
	return ms.ID
}

// SeedAlert stores an alert as is
func (m *MemoryStore) SeedAlert(a models.EmergencyAlert) primitive.ObjectID {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	m.alerts[a.ID] = cloneAlert(a)
	m.order = append(m.order, a.ID)
	return a.ID
}

// Need returns a copy of a stored need
func (m *MemoryStore) Need(id primitive.ObjectID) (models.Need, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.needs[id]
	return cloneNeed(n), ok
}

// Report returns a copy of a stored report
func (m *MemoryStore) Report(id primitive.ObjectID) (models.Report, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reports[id]
	return cloneReport(r), ok
}

// Mission returns a copy of a stored mission
func (m *MemoryStore) Mission(id primitive.ObjectID) (models.Mission, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ms, ok := m.missions[id]
	return ms, ok
}

// Alerts returns copies of all alerts in insertion order
func (m *MemoryStore) Alerts() []models.EmergencyAlert {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.EmergencyAlert, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, cloneAlert(m.alerts[id]))
	}
	return out
}

// ---- needs ----

type memNeeds struct{ m *MemoryStore }

func (r *memNeeds) Kind() models.SourceKind { return models.SourceNeed }

func (r *memNeeds) Insert(ctx context.Context, need *models.Need) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if need.ID.IsZero() {
		need.ID = primitive.NewObjectID()
	}
	r.m.needs[need.ID] = cloneNeed(*need)
	return nil
}

func (r *memNeeds) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Need, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	n, ok := r.m.needs[id]
	if !ok {
		return nil, nil
	}
	c := cloneNeed(n)
	return &c, nil
}

func (r *memNeeds) FindMember(ctx context.Context, id primitive.ObjectID) (*models.MemberRecord, error) {
	n, err := r.FindByID(ctx, id)
	if err != nil || n == nil {
		return nil, err
	}
	return models.MemberFromNeed(n), nil
}

func (r *memNeeds) ListByStatus(ctx context.Context, status models.NeedStatus, limit int) ([]models.Need, error) {
	r.m.mu.RLock()
	var out []models.Need
	for _, n := range r.m.needs {
		if n.Status == status {
			out = append(out, cloneNeed(n))
		}
	}
	r.m.mu.RUnlock()

	if status == models.NeedStatusVerified {
		sort.SliceStable(out, func(i, j int) bool { return timeOrZero(out[i].VerifiedAt).After(timeOrZero(out[j].VerifiedAt)) })
	} else {
		sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	}
	return truncate(out, limit), nil
}

func (r *memNeeds) ListWithCoordinates(ctx context.Context, limit int) ([]models.Need, error) {
	r.m.mu.RLock()
	var out []models.Need
	for _, n := range r.m.needs {
		if n.Coordinates != nil && finite(n.Coordinates.Lat) && finite(n.Coordinates.Lon) {
			out = append(out, cloneNeed(n))
		}
	}
	r.m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return truncate(out, limit), nil
}

func (r *memNeeds) MarkVerified(ctx context.Context, id primitive.ObjectID, notes string, at time.Time) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	n, ok := r.m.needs[id]
	if !ok || n.Status != models.NeedStatusUnverified {
		return false, nil
	}
	n.Status = models.NeedStatusVerified
	n.VerificationNotes = notes
	n.VerifiedAt = timePtr(at)
	n.UpdatedAt = at
	r.m.needs[id] = n
	return true, nil
}

func (r *memNeeds) SetCoordinates(ctx context.Context, id primitive.ObjectID, coords models.Coordinates) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	n, ok := r.m.needs[id]
	if !ok || n.Coordinates != nil {
		return false, nil
	}
	n.Coordinates = &coords
	n.UpdatedAt = time.Now()
	r.m.needs[id] = n
	return true, nil
}

func (r *memNeeds) SetStatus(ctx context.Context, ids []primitive.ObjectID, status string) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var modified int64
	for _, id := range ids {
		n, ok := r.m.needs[id]
		if !ok || string(n.Status) == status {
			continue
		}
		n.Status = models.NeedStatus(status)
		n.UpdatedAt = time.Now()
		r.m.needs[id] = n
		modified++
	}
	return modified, nil
}

func (r *memNeeds) ResetForReroute(ctx context.Context, ids []primitive.ObjectID, status string, station models.Station) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var modified int64
	for _, id := range ids {
		n, ok := r.m.needs[id]
		if !ok || n.Status == models.NeedStatusCompleted {
			continue
		}
		n.Status = models.NeedStatus(status)
		n.DispatchInfo = resetDispatch(station)
		n.UpdatedAt = time.Now()
		r.m.needs[id] = n
		modified++
	}
	return modified, nil
}

func (r *memNeeds) AnyDispatched(ctx context.Context, ids []primitive.ObjectID) (bool, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	for _, id := range ids {
		if n, ok := r.m.needs[id]; ok && n.EmergencyStatus == models.EmergencyStatusDispatched {
			return true, nil
		}
	}
	return false, nil
}

func (r *memNeeds) MarkDispatched(ctx context.Context, id, alertID primitive.ObjectID, station models.Station) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	n, ok := r.m.needs[id]
	if !ok {
		return nil
	}
	n.DispatchInfo = markDispatched(n.DispatchInfo, alertID, station)
	n.UpdatedAt = time.Now()
	r.m.needs[id] = n
	return nil
}

// ---- reports ----

type memReports struct{ m *MemoryStore }

func (r *memReports) Kind() models.SourceKind { return models.SourceReport }

func (r *memReports) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Report, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	rep, ok := r.m.reports[id]
	if !ok {
		return nil, nil
	}
	c := cloneReport(rep)
	return &c, nil
}

func (r *memReports) FindMember(ctx context.Context, id primitive.ObjectID) (*models.MemberRecord, error) {
	rep, err := r.FindByID(ctx, id)
	if err != nil || rep == nil {
		return nil, err
	}
	return models.MemberFromReport(rep), nil
}

func (r *memReports) SetStatus(ctx context.Context, ids []primitive.ObjectID, status string) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var modified int64
	for _, id := range ids {
		rep, ok := r.m.reports[id]
		if !ok || rep.Status == status {
			continue
		}
		rep.Status = status
		r.m.reports[id] = rep
		modified++
	}
	return modified, nil
}

func (r *memReports) ResetForReroute(ctx context.Context, ids []primitive.ObjectID, status string, station models.Station) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var modified int64
	for _, id := range ids {
		rep, ok := r.m.reports[id]
		if !ok || rep.Status == models.ReportStatusCompleted {
			continue
		}
		rep.Status = status
		rep.DispatchInfo = resetDispatch(station)
		r.m.reports[id] = rep
		modified++
	}
	return modified, nil
}

func (r *memReports) AnyDispatched(ctx context.Context, ids []primitive.ObjectID) (bool, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	for _, id := range ids {
		if rep, ok := r.m.reports[id]; ok && rep.EmergencyStatus == models.EmergencyStatusDispatched {
			return true, nil
		}
	}
	return false, nil
}

func (r *memReports) MarkDispatched(ctx context.Context, id, alertID primitive.ObjectID, station models.Station) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	rep, ok := r.m.reports[id]
	if !ok {
		return nil
	}
	rep.DispatchInfo = markDispatched(rep.DispatchInfo, alertID, station)
	r.m.reports[id] = rep
	return nil
}

// ---- missions ----

type memMissions struct{ m *MemoryStore }

func (r *memMissions) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Mission, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	ms, ok := r.m.missions[id]
	if !ok {
		return nil, nil
	}
	return &ms, nil
}

func (r *memMissions) List(ctx context.Context, status models.MissionStatus, limit int) ([]models.Mission, error) {
	r.m.mu.RLock()
	var out []models.Mission
	for _, ms := range r.m.missions {
		if ms.Status == status {
			out = append(out, ms)
		}
	}
	r.m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return truncate(out, limit), nil
}

func (r *memMissions) Latest(ctx context.Context) (*models.Mission, error) {
	list, err := r.List(ctx, models.MissionStatusActive, 1)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return &list[0], nil
}

func (r *memMissions) Complete(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	ms, ok := r.m.missions[id]
	if !ok || ms.Status != models.MissionStatusActive {
		return false, nil
	}
	ms.Status = models.MissionStatusCompleted
	ms.CompletedAt = timePtr(at)
	r.m.missions[id] = ms
	return true, nil
}

func (r *memMissions) Reroute(ctx context.Context, id primitive.ObjectID, station models.Station, at time.Time) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	ms, ok := r.m.missions[id]
	if !ok || ms.Status != models.MissionStatusActive {
		return false, nil
	}
	ms.Status = models.MissionStatusRerouted
	ms.ReroutedAt = timePtr(at)
	target := station
	ms.ReroutedTo = &target
	r.m.missions[id] = ms
	return true, nil
}

// ---- alerts ----

type memAlerts struct{ m *MemoryStore }

func (r *memAlerts) Insert(ctx context.Context, alert *models.EmergencyAlert) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if alert.ID.IsZero() {
		alert.ID = primitive.NewObjectID()
	}
	r.m.alerts[alert.ID] = cloneAlert(*alert)
	r.m.order = append(r.m.order, alert.ID)
	return nil
}

func (r *memAlerts) CancelOpenForSources(ctx context.Context, sourceIDs []primitive.ObjectID, reason string, at time.Time) (int64, error) {
	wanted := make(map[primitive.ObjectID]bool, len(sourceIDs))
	for _, id := range sourceIDs {
		wanted[id] = true
	}

	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var modified int64
	for id, a := range r.m.alerts {
		if !wanted[a.SourceID] || a.Status.Terminal() {
			continue
		}
		a.Status = models.AlertStatusCancelled
		a.CancelledAt = timePtr(at)
		a.CancelReason = reason
		for i := range a.SentToStations {
			a.SentToStations[i].Status = models.DeliveryCancelled
		}
		r.m.alerts[id] = a
		modified++
	}
	return modified, nil
}

func (r *memAlerts) MarkDispatched(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	a, ok := r.m.alerts[id]
	if !ok {
		return nil
	}
	a.Status = models.AlertStatusDispatched
	a.DispatchedAt = timePtr(at)
	for i := range a.SentToStations {
		a.SentToStations[i].Status = models.DeliverySent
		a.SentToStations[i].SentAt = timePtr(at)
	}
	r.m.alerts[id] = a
	return nil
}

func (r *memAlerts) MarkDeliveryFailed(ctx context.Context, id primitive.ObjectID, reason string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	a, ok := r.m.alerts[id]
	if !ok {
		return nil
	}
	for i := range a.SentToStations {
		a.SentToStations[i].Status = models.DeliveryFailed
		a.SentToStations[i].Error = reason
	}
	r.m.alerts[id] = a
	return nil
}

func (r *memAlerts) ListBySource(ctx context.Context, sourceID primitive.ObjectID, limit int) ([]models.EmergencyAlert, error) {
	r.m.mu.RLock()
	var out []models.EmergencyAlert
	for _, id := range r.m.order {
		if a := r.m.alerts[id]; a.SourceID == sourceID {
			out = append(out, cloneAlert(a))
		}
	}
	r.m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return truncate(out, limit), nil
}

// ---- helpers ----

func resetDispatch(station models.Station) models.DispatchInfo {
	target := station
	return models.DispatchInfo{
		EmergencyStatus:   models.EmergencyStatusPending,
		DispatchStatus:    models.DispatchStatusPending,
		ReroutedToStation: &target,
	}
}

func markDispatched(d models.DispatchInfo, alertID primitive.ObjectID, station models.Station) models.DispatchInfo {
	target := station
	id := alertID
	d.EmergencyStatus = models.EmergencyStatusDispatched
	d.EmergencyAlertID = &id
	d.AssignedStation = &target
	return d
}

func cloneNeed(n models.Need) models.Need {
	if n.Coordinates != nil {
		c := *n.Coordinates
		n.Coordinates = &c
	}
	if n.VerifiedAt != nil {
		t := *n.VerifiedAt
		n.VerifiedAt = &t
	}
	n.DispatchInfo = cloneDispatch(n.DispatchInfo)
	return n
}

func cloneReport(r models.Report) models.Report {
	if r.Coordinates != nil {
		c := *r.Coordinates
		r.Coordinates = &c
	}
	r.DispatchInfo = cloneDispatch(r.DispatchInfo)
	return r
}

func cloneDispatch(d models.DispatchInfo) models.DispatchInfo {
	if d.AssignedStation != nil {
		s := *d.AssignedStation
		d.AssignedStation = &s
	}
	if d.ReroutedToStation != nil {
		s := *d.ReroutedToStation
		d.ReroutedToStation = &s
	}
	if d.EmergencyAlertID != nil {
		id := *d.EmergencyAlertID
		d.EmergencyAlertID = &id
	}
	return d
}

func cloneAlert(a models.EmergencyAlert) models.EmergencyAlert {
	a.SentToStations = append([]models.StationDelivery(nil), a.SentToStations...)
	return a
}

func truncate[T any](list []T, limit int) []T {
	if limit > 0 && len(list) > limit {
		return list[:limit]
	}
	return list
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
