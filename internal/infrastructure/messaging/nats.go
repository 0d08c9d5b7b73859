package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"relief-http-service/internal/domain/models"
	"relief-http-service/internal/infrastructure/config"
	"relief-http-service/pkg/logger"
)

// NATSPublisher publishes station alerts to stations.{type}.{name}.alerts
type NATSPublisher struct {
	conn    *nats.Conn
	prefix  string
	timeout time.Duration
}

// NewNATSPublisher connects to NATS_URL
func NewNATSPublisher(cfg *config.Config) (*NATSPublisher, error) {
	conn, err := nats.Connect(cfg.NATSURL,
		nats.Name("relief-dispatch"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.Timeout(5*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warning("[NATS] disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("[NATS] reconnected to %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSPublisher{conn: conn, prefix: cfg.NATSSubjectPrefix, timeout: cfg.MQTTTimeout}, nil
}

// Name implements Publisher
func (p *NATSPublisher) Name() string { return "nats" }

// Connected reports the server connection state
func (p *NATSPublisher) Connected() bool {
	return p.conn != nil && p.conn.IsConnected()
}

// Subject returns the alert subject for a station
func (p *NATSPublisher) Subject(station models.Station) string {
	return fmt.Sprintf("%s.%s.%s.alerts", p.prefix, station.TypeSlug(), station.Slug())
}

// Publish implements Publisher and waits for the server to ack a flush
func (p *NATSPublisher) Publish(ctx context.Context, station models.Station, msg *models.StationAlertMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	subject := p.Subject(station)
	if err := p.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("publish to %s failed: %w", subject, err)
	}

	flushCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.conn.FlushWithContext(flushCtx); err != nil {
		return fmt.Errorf("flush %s failed: %w", subject, err)
	}
	return nil
}

// Close drains the connection
func (p *NATSPublisher) Close() {
	if p.conn != nil {
		_ = p.conn.Drain()
	}
}
