package messaging

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relief-http-service/internal/domain/models"
	"relief-http-service/internal/infrastructure/config"
)

type stubPublisher struct {
	name  string
	err   error
	calls int
}

func (s *stubPublisher) Name() string { return s.name }

func (s *stubPublisher) Publish(ctx context.Context, station models.Station, msg *models.StationAlertMessage) error {
	s.calls++
	return s.err
}

func (s *stubPublisher) Close() {}

var cityGeneral = models.Station{Type: "hospital", Name: "City General", Lat: 18.5, Lon: 73.8}

func TestMultiPublisherSucceedsWhenOneTransportDelivers(t *testing.T) {
	down := &stubPublisher{name: "mqtt", err: errors.New("broker down")}
	up := &stubPublisher{name: "nats"}
	m := NewMultiPublisher(down, nil, up)

	require.NoError(t, m.Publish(context.Background(), cityGeneral, &models.StationAlertMessage{AlertID: "a1"}))
	assert.Equal(t, 1, down.calls)
	assert.Equal(t, 1, up.calls)
	assert.Equal(t, "mqtt+nats", m.Name())
	assert.Equal(t, 2, m.Len())
}

func TestMultiPublisherFailsWhenAllTransportsFail(t *testing.T) {
	m := NewMultiPublisher(
		&stubPublisher{name: "mqtt", err: errors.New("broker down")},
		&stubPublisher{name: "nats", err: errors.New("no responders")},
	)

	err := m.Publish(context.Background(), cityGeneral, &models.StationAlertMessage{AlertID: "a1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
	assert.Contains(t, err.Error(), "no responders")
}

func TestMultiPublisherWithoutTransports(t *testing.T) {
	err := NewMultiPublisher().Publish(context.Background(), cityGeneral, &models.StationAlertMessage{})
	assert.Error(t, err)
}

func TestStationAddressing(t *testing.T) {
	cfg := &config.Config{MQTTBrokerURL: "tcp://localhost:1883", MQTTClientID: "test", MQTTTopicPrefix: "stations"}
	p := NewMQTTPublisher(cfg)
	assert.Equal(t, "stations/hospital/city-general/alerts", p.Topic(cityGeneral))

	n := &NATSPublisher{prefix: "stations"}
	assert.Equal(t, "stations.hospital.city-general.alerts", n.Subject(cityGeneral))
	assert.Equal(t, "stations.fire-station.camp-2.alerts", n.Subject(models.Station{Type: "Fire Station", Name: "Camp #2"}))
}

type connStub struct {
	stubPublisher
	up bool
}

func (c *connStub) Connected() bool { return c.up }

func TestMultiPublisherStatus(t *testing.T) {
	m := NewMultiPublisher(&connStub{stubPublisher: stubPublisher{name: "mqtt"}}, &connStub{stubPublisher: stubPublisher{name: "nats"}, up: true}, LogPublisher{})

	assert.Equal(t, map[string]string{"mqtt": "disconnected", "nats": "connected", "log": "ready"}, m.Status())
}
