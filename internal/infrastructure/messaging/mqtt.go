package messaging

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"relief-http-service/internal/domain/models"
	"relief-http-service/internal/infrastructure/config"
	"relief-http-service/pkg/logger"
)

// MQTTPublisher publishes station alerts to stations/{type}/{name}/alerts
type MQTTPublisher struct {
	Client       mqtt.Client
	Config       *config.Config
	publishMutex sync.Mutex
}

// NewMQTTPublisher builds the client. Connect must be called before use.
func NewMQTTPublisher(cfg *config.Config) *MQTTPublisher {
	p := &MQTTPublisher{Config: cfg}
	p.setupClient()
	return p
}

func (p *MQTTPublisher) setupClient() {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(p.Config.MQTTBrokerURL)
	// unique id so several instances can share a broker
	opts.SetClientID(fmt.Sprintf("%s-%s", p.Config.MQTTClientID, uuid.New().String()[:8]))
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetCleanSession(true)

	if p.Config.MQTTUsername != "" {
		opts.SetUsername(p.Config.MQTTUsername)
		opts.SetPassword(p.Config.MQTTPassword)
	}

	broker := p.Config.MQTTBrokerURL
	if strings.HasPrefix(broker, "ssl://") || strings.HasPrefix(broker, "tls://") || p.Config.MQTTSSLEnabled {
		opts.SetTLSConfig(p.tlsConfig())
	}

	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		logger.Warning("[MQTT] connection lost: %v", err)
	})
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		logger.Info("[MQTT] connected to %s", p.Config.MQTTBrokerURL)
	})
	opts.SetReconnectingHandler(func(client mqtt.Client, opts *mqtt.ClientOptions) {
		logger.Info("[MQTT] reconnecting...")
	})

	p.Client = mqtt.NewClient(opts)
}

func (p *MQTTPublisher) tlsConfig() *tls.Config {
	if p.Config.MQTTCACertPath == "" {
		return &tls.Config{MinVersion: tls.VersionTLS12}
	}
	pem, err := os.ReadFile(p.Config.MQTTCACertPath)
	if err != nil {
		logger.Warning("[MQTT] failed to read CA certificate %s: %v", p.Config.MQTTCACertPath, err)
		return &tls.Config{MinVersion: tls.VersionTLS12}
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(pem)
	return &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}
}

const connectTimeout = 5 * time.Second

// Connect connects to the broker, retrying with exponential backoff
func (p *MQTTPublisher) Connect(maxRetries int) error {
	if p.Client.IsConnected() {
		return nil
	}

	var err error
	for i := 0; i < maxRetries; i++ {
		if err = p.connectOnce(connectTimeout); err == nil {
			return nil
		}
		if i == maxRetries-1 {
			break
		}
		backoff := time.Duration(1<<uint(i)) * time.Second
		logger.Warning("[MQTT] connect attempt %d/%d failed: %v, retrying in %v", i+1, maxRetries, err, backoff)
		time.Sleep(backoff)
	}
	return fmt.Errorf("mqtt connect failed after %d attempts: %w", maxRetries, err)
}

func (p *MQTTPublisher) connectOnce(timeout time.Duration) error {
	token := p.Client.Connect()
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("connect timed out after %v", timeout)
	}
	return token.Error()
}

// waitBudget caps limit by the time left before the ctx deadline
func waitBudget(ctx context.Context, limit time.Duration) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < limit {
			return left
		}
	}
	return limit
}

// Name implements Publisher
func (p *MQTTPublisher) Name() string { return "mqtt" }

// Topic returns the alert topic for a station
func (p *MQTTPublisher) Topic(station models.Station) string {
	return fmt.Sprintf("%s/%s/%s/alerts", p.Config.MQTTTopicPrefix, station.TypeSlug(), station.Slug())
}

// Publish implements Publisher
func (p *MQTTPublisher) Publish(ctx context.Context, station models.Station, msg *models.StationAlertMessage) error {
	p.publishMutex.Lock()
	defer p.publishMutex.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if !p.Client.IsConnected() {
		budget := waitBudget(ctx, connectTimeout)
		if budget <= 0 {
			return fmt.Errorf("mqtt client not connected: %w", context.DeadlineExceeded)
		}
		if err := p.connectOnce(budget); err != nil {
			return fmt.Errorf("mqtt client not connected: %w", err)
		}
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	topic := p.Topic(station)
	token := p.Client.Publish(topic, byte(p.Config.MQTTQoS), p.Config.MQTTRetained, payload)

	if !token.WaitTimeout(waitBudget(ctx, p.Config.MQTTTimeout)) {
		return fmt.Errorf("publish to %s timed out", topic)
	}
	if token.Error() != nil {
		return fmt.Errorf("publish to %s failed: %w", topic, token.Error())
	}

	logger.Info("[MQTT] published alert %s to %s", msg.AlertID, topic)
	return nil
}

// Connected reports the broker connection state
func (p *MQTTPublisher) Connected() bool {
	return p.Client != nil && p.Client.IsConnected()
}

// Close disconnects from the broker
func (p *MQTTPublisher) Close() {
	if p.Client != nil && p.Client.IsConnected() {
		p.Client.Disconnect(250)
	}
}
