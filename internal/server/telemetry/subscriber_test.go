package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/intelvis/intelvis/internal/server/config"
	"github.com/intelvis/intelvis/internal/server/metrics"
	"github.com/intelvis/intelvis/internal/server/services"
	"github.com/intelvis/intelvis/pkg/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type fakePinger struct {
	calls []string
	err   error
}

func (f *fakePinger) Ping(_ context.Context, mac string) (*models.Device, error) {
	f.calls = append(f.calls, mac)
	if f.err != nil {
		return nil, f.err
	}
	return &models.Device{ID: uuid.New(), Status: models.DeviceStatusActive}, nil
}

func newTestSubscriber(p Pinger) (*Subscriber, *metrics.Metrics) {
	m := metrics.New()
	cfg := config.MQTTConfig{PingTopic: config.DefaultPingTopic}
	return NewSubscriber(cfg, p, m, zerolog.Nop()), m
}

func pingCount(t *testing.T, m *metrics.Metrics, result string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	for _, f := range families {
		if f.GetName() != "intelvis_ping_total" {
			continue
		}
		for _, metric := range f.GetMetric() {
			labels := map[string]string{}
			for _, l := range metric.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			if labels["source"] == metrics.SourceMQTT && labels["result"] == result {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestHandleMessage_MACFromPayload(t *testing.T) {
	p := &fakePinger{}
	s, m := newTestSubscriber(p)

	s.handleMessage("intelvis/devices/ignored/ping", []byte(`{"mac":"AA:BB:CC:DD:EE:FF"}`))

	assert.Equal(t, []string{"AA:BB:CC:DD:EE:FF"}, p.calls)
	assert.Equal(t, 1.0, pingCount(t, m, metrics.ResultOK))
}

func TestHandleMessage_MACFromTopic(t *testing.T) {
	p := &fakePinger{}
	s, _ := newTestSubscriber(p)

	s.handleMessage("intelvis/devices/aabbccddeeff/ping", []byte("alive"))
	s.handleMessage("intelvis/devices/aa:bb:cc:dd:ee:01/ping", []byte(`{}`))

	assert.Equal(t, []string{"aabbccddeeff", "aa:bb:cc:dd:ee:01"}, p.calls)
}

func TestHandleMessage_Failures(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		result string
	}{
		{"unknown device", services.ErrNICNotFound, metrics.ResultNotFound},
		{"bad mac", services.ErrInvalidMAC, metrics.ResultInvalid},
		{"store down", errors.New("connection refused"), metrics.ResultError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, m := newTestSubscriber(&fakePinger{err: tt.err})
			s.handleMessage("intelvis/devices/aabbccddeeff/ping", nil)
			assert.Equal(t, 1.0, pingCount(t, m, tt.result))
		})
	}
}

func TestHandleMessage_NoMAC(t *testing.T) {
	p := &fakePinger{}
	m := metrics.New()
	s := NewSubscriber(config.MQTTConfig{PingTopic: "intelvis/pings"}, p, m, zerolog.Nop())

	s.handleMessage("intelvis/pings", []byte(`{"status":"up"}`))

	assert.Empty(t, p.calls)
	assert.Equal(t, 1.0, pingCount(t, m, metrics.ResultInvalid))
}

func TestWildcardSegment(t *testing.T) {
	assert.Equal(t, 2, wildcardSegment("intelvis/devices/+/ping"))
	assert.Equal(t, 0, wildcardSegment("+/ping"))
	assert.Equal(t, -1, wildcardSegment("intelvis/devices/#"))
}

