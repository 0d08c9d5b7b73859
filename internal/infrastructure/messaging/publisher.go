// Package messaging delivers station alerts over the configured transports
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"relief-http-service/internal/domain/models"
	"relief-http-service/pkg/logger"
)

// Publisher delivers one alert message to one station
type Publisher interface {
	Name() string
	Publish(ctx context.Context, station models.Station, msg *models.StationAlertMessage) error
	Close()
}

// MultiPublisher fans a message out to every transport. Delivery succeeds
// when at least one transport accepts the message.
type MultiPublisher struct {
	publishers []Publisher
}

// NewMultiPublisher combines publishers, skipping nil entries
func NewMultiPublisher(publishers ...Publisher) *MultiPublisher {
	m := &MultiPublisher{}
	for _, p := range publishers {
		if p != nil {
			m.publishers = append(m.publishers, p)
		}
	}
	return m
}

// Name lists the combined transports
func (m *MultiPublisher) Name() string {
	names := make([]string, 0, len(m.publishers))
	for _, p := range m.publishers {
		names = append(names, p.Name())
	}
	return strings.Join(names, "+")
}

// Len returns the number of transports
func (m *MultiPublisher) Len() int {
	return len(m.publishers)
}

// Publish sends msg over every transport
func (m *MultiPublisher) Publish(ctx context.Context, station models.Station, msg *models.StationAlertMessage) error {
	if len(m.publishers) == 0 {
		return errors.New("no alert transport configured")
	}

	var errs []error
	delivered := 0
	for _, p := range m.publishers {
		if err := p.Publish(ctx, station, msg); err != nil {
			logger.Warning("[%s] alert %s to %s/%s failed: %v", p.Name(), msg.AlertID, station.Type, station.Name, err)
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			continue
		}
		delivered++
	}
	if delivered == 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Status reports each transport as "connected" or "disconnected".
// Transports without a connection are always "ready".
func (m *MultiPublisher) Status() map[string]string {
	out := make(map[string]string, len(m.publishers))
	for _, p := range m.publishers {
		state := "ready"
		if c, ok := p.(interface{ Connected() bool }); ok {
			state = "disconnected"
			if c.Connected() {
				state = "connected"
			}
		}
		out[p.Name()] = state
	}
	return out
}

// Close closes every transport
func (m *MultiPublisher) Close() {
	for _, p := range m.publishers {
		p.Close()
	}
}

// LogPublisher writes alerts to the application log. It stands in for a
// broker when none is configured so local runs still exercise dispatch.
type LogPublisher struct{}

func (LogPublisher) Name() string { return "log" }

func (LogPublisher) Publish(ctx context.Context, station models.Station, msg *models.StationAlertMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	logger.Info("[ALERT] %s/%s <- %s", station.Type, station.Name, payload)
	return nil
}

func (LogPublisher) Close() {}
