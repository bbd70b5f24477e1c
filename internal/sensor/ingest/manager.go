// Package ingest maintains the MQTT feed connection and turns raw
// payloads into hub broadcasts.
package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/Ethronics/ecosnap-sub001/internal/config"
	sensordomain "github.com/Ethronics/ecosnap-sub001/internal/sensor/domain"
	"github.com/Ethronics/ecosnap-sub001/internal/sensor/hub"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const disconnectQuiesceMS = 250

// Evaluator inspects each accepted reading, typically to raise alerts.
type Evaluator interface {
	Evaluate(ctx context.Context, reading sensordomain.SensorReading)
}

// Manager owns the single MQTT connection. Connect is idempotent and
// tears down any previous connection first, so at most one subscription
// exists at a time. An intentional Disconnect never reconnects; an
// unexpected connection loss re-arms a single fixed-delay reconnect.
type Manager struct {
	cfg       config.Config
	log       *zap.Logger
	hub       *hub.Hub
	evaluator Evaluator

	// newClient is swapped out in tests.
	newClient func(*mqtt.ClientOptions) mqtt.Client

	mu      sync.Mutex
	client  mqtt.Client
	timer   *time.Timer
	closing bool
}

type ManagerParam struct {
	fx.In

	Config    config.Config
	Log       *zap.Logger
	Hub       *hub.Hub
	Evaluator Evaluator `optional:"true"`
}

func NewManager(p ManagerParam) *Manager {
	return &Manager{
		cfg:       p.Config,
		log:       p.Log.Named("sensor.ingest"),
		hub:       p.Hub,
		evaluator: p.Evaluator,
		newClient: mqtt.NewClient,
	}
}

func (m *Manager) Connect() error {
	m.mu.Lock()
	m.closing = false
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	old := m.client
	m.client = nil
	m.mu.Unlock()

	if old != nil {
		old.Disconnect(disconnectQuiesceMS)
		m.hub.SetConnected(false)
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(m.cfg.MQTTBroker)
	opts.SetClientID(m.cfg.MQTTClientID)
	if m.cfg.MQTTUsername != "" {
		opts.SetUsername(m.cfg.MQTTUsername)
	}
	if m.cfg.MQTTPassword != "" {
		opts.SetPassword(m.cfg.MQTTPassword)
	}
	opts.SetCleanSession(true)
	// Reconnects are managed here, not by the library, so that an
	// intentional Disconnect stays disconnected.
	opts.SetAutoReconnect(false)
	opts.SetOnConnectHandler(m.onConnect)
	opts.SetConnectionLostHandler(m.onConnectionLost)

	client := m.newClient(opts)
	m.mu.Lock()
	m.client = client
	m.mu.Unlock()

	if token := client.Connect(); token.Wait() && token.Error() != nil {
		m.log.Warn("mqtt connect failed",
			zap.String("broker", m.cfg.MQTTBroker),
			zap.Error(token.Error()),
		)
		m.scheduleReconnect()
		return token.Error()
	}
	return nil
}

// Disconnect tears the connection down for good. No reconnect fires
// afterwards until the next explicit Connect.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.closing = true
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	client := m.client
	m.client = nil
	m.mu.Unlock()

	if client != nil {
		client.Disconnect(disconnectQuiesceMS)
	}
	m.hub.SetConnected(false)
	m.log.Info("mqtt disconnected")
}

func (m *Manager) onConnect(client mqtt.Client) {
	m.hub.SetConnected(true)
	m.log.Info("mqtt connected",
		zap.String("broker", m.cfg.MQTTBroker),
		zap.String("topic", m.cfg.MQTTTopic),
	)
	if token := client.Subscribe(m.cfg.MQTTTopic, 0, m.onMessage); token.Wait() && token.Error() != nil {
		m.log.Error("mqtt subscribe failed",
			zap.String("topic", m.cfg.MQTTTopic),
			zap.Error(token.Error()),
		)
	}
}

func (m *Manager) onConnectionLost(_ mqtt.Client, err error) {
	m.hub.SetConnected(false)
	m.log.Warn("mqtt connection lost", zap.Error(err))
	m.scheduleReconnect()
}

// scheduleReconnect arms a single reconnect timer. Repeated losses while
// a timer is pending do not stack additional attempts.
func (m *Manager) scheduleReconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closing || m.timer != nil {
		return
	}
	m.timer = time.AfterFunc(m.cfg.MQTTReconnectDelay, func() {
		m.mu.Lock()
		m.timer = nil
		closing := m.closing
		m.mu.Unlock()
		if closing {
			return
		}
		if err := m.Connect(); err != nil {
			m.log.Warn("mqtt reconnect failed", zap.Error(err))
		}
	})
}

// onMessage parses and publishes a feed payload. Malformed payloads are
// logged and dropped; the connection and the current reading stand.
func (m *Manager) onMessage(_ mqtt.Client, msg mqtt.Message) {
	reading, err := sensordomain.ParseReading(msg.Payload(), time.Now().UTC())
	if err != nil {
		m.log.Warn("malformed sensor payload",
			zap.String("topic", msg.Topic()),
			zap.Error(err),
		)
		return
	}

	m.hub.Publish(reading)
	if m.evaluator != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		m.evaluator.Evaluate(ctx, reading)
	}
}
