package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/intelvis/intelvis/internal/server/config"
	"github.com/intelvis/intelvis/internal/server/metrics"
	"github.com/intelvis/intelvis/internal/server/services"
	"github.com/intelvis/intelvis/pkg/models"
	"github.com/rs/zerolog"
)

const handleTimeout = 5 * time.Second

// Pinger records liveness for a MAC. *services.DeviceService satisfies it.
type Pinger interface {
	Ping(ctx context.Context, mac string) (*models.Device, error)
}

type pingPayload struct {
	MAC string `json:"mac"`
}

// Subscriber turns MQTT ping messages into device liveness updates, the same
// way POST /api/devices/ping does over HTTP.
type Subscriber struct {
	cfg     config.MQTTConfig
	pinger  Pinger
	metrics *metrics.Metrics
	logger  zerolog.Logger
	client  mqtt.Client

	macSegment int
	ctx        context.Context
}

func NewSubscriber(cfg config.MQTTConfig, pinger Pinger, m *metrics.Metrics, logger zerolog.Logger) *Subscriber {
	return &Subscriber{
		cfg:        cfg,
		pinger:     pinger,
		metrics:    m,
		logger:     logger.With().Str("component", "mqtt").Logger(),
		macSegment: wildcardSegment(cfg.PingTopic),
		ctx:        context.Background(),
	}
}

// Start connects to the broker and subscribes. Subscriptions are renewed on
// every reconnect. ctx bounds the lifetime of message handling.
func (s *Subscriber) Start(ctx context.Context) error {
	s.ctx = ctx

	opts := mqtt.NewClientOptions().
		AddBroker(s.cfg.BrokerURL).
		SetClientID(s.cfg.ClientID).
		SetOrderMatters(false).
		SetKeepAlive(30 * time.Second).
		SetPingTimeout(10 * time.Second).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetCleanSession(true)

	if s.cfg.Username != "" {
		opts.SetUsername(s.cfg.Username)
		opts.SetPassword(s.cfg.Password)
	}

	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		s.logger.Warn().Err(err).Msg("broker connection lost")
	}
	opts.OnConnect = func(c mqtt.Client) {
		s.logger.Info().Str("topic", s.cfg.PingTopic).Msg("connected, subscribing")
		if token := c.Subscribe(s.cfg.PingTopic, 1, s.onMessage); token.Wait() && token.Error() != nil {
			s.logger.Error().Err(token.Error()).Msg("subscribe failed")
		}
	}

	s.client = mqtt.NewClient(opts)
	if token := s.client.Connect(); token.WaitTimeout(10*time.Second) && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	return nil
}

func (s *Subscriber) Stop() {
	if s.client != nil && s.client.IsConnected() {
		s.client.Disconnect(500)
	}
}

func (s *Subscriber) IsConnected() bool {
	return s.client != nil && s.client.IsConnected()
}

func (s *Subscriber) onMessage(_ mqtt.Client, m mqtt.Message) {
	s.handleMessage(m.Topic(), m.Payload())
}

// handleMessage pings the device named in the payload, or failing that in the
// wildcard segment of the topic.
func (s *Subscriber) handleMessage(topic string, payload []byte) {
	mac := s.extractMAC(topic, payload)
	logger := s.logger.With().Str("topic", topic).Str("mac", mac).Logger()

	if mac == "" {
		s.metrics.Ping(metrics.SourceMQTT, metrics.ResultInvalid)
		logger.Warn().Msg("ping without MAC address")
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, handleTimeout)
	defer cancel()

	device, err := s.pinger.Ping(ctx, mac)
	switch {
	case err == nil:
		s.metrics.Ping(metrics.SourceMQTT, metrics.ResultOK)
		logger.Debug().Str("device_id", device.ID.String()).Msg("ping recorded")
	case errors.Is(err, services.ErrInvalidMAC):
		s.metrics.Ping(metrics.SourceMQTT, metrics.ResultInvalid)
		logger.Warn().Msg("ping with invalid MAC address")
	case errors.Is(err, services.ErrNICNotFound):
		s.metrics.Ping(metrics.SourceMQTT, metrics.ResultNotFound)
		logger.Warn().Msg("ping from unprovisioned device")
	default:
		s.metrics.Ping(metrics.SourceMQTT, metrics.ResultError)
		logger.Error().Err(err).Msg("failed to record ping")
	}
}

func (s *Subscriber) extractMAC(topic string, payload []byte) string {
	var p pingPayload
	if err := json.Unmarshal(payload, &p); err == nil && strings.TrimSpace(p.MAC) != "" {
		return strings.TrimSpace(p.MAC)
	}

	if s.macSegment < 0 {
		return ""
	}
	parts := strings.Split(topic, "/")
	if s.macSegment >= len(parts) {
		return ""
	}
	return parts[s.macSegment]
}

// wildcardSegment returns the index of the first "+" level in a topic filter, or -1.
func wildcardSegment(filter string) int {
	for i, level := range strings.Split(filter, "/") {
		if level == "+" {
			return i
		}
	}
	return -1
}
