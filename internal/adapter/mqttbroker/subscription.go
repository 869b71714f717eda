// Package mqttbroker subscribes to the data platform's MQTT notification
// service. The subscription is durable: a stable client id with a
// non-clean session and a QoS 1 subscription makes the broker replay file
// events missed during a disconnect.
package mqttbroker

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/couchcryptid/weather-alert-pipeline/internal/domain"
)

// The broker authenticates on the password only; the username is fixed.
const brokerUsername = "token"

// eventEnvelope is the JSON payload of one notification message.
type eventEnvelope struct {
	Data struct {
		Filename string `json:"filename"`
		URL      string `json:"url"`
	} `json:"data"`
}

// Subscription is a durable QoS 1 subscription delivering file events on a
// channel. Single reader per process.
type Subscription struct {
	client mqtt.Client
	topic  string
	events chan domain.FileEvent
	logger *slog.Logger
}

// New configures the MQTT client without connecting. Subscribing happens in
// the on-connect handler so it is re-established after every reconnect.
func New(brokerURL, clientID, token, topic string, logger *slog.Logger) *Subscription {
	s := &Subscription{
		topic:  topic,
		events: make(chan domain.FileEvent, 64),
		logger: logger,
	}

	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetUsername(brokerUsername).
		SetPassword(token).
		SetCleanSession(false).
		SetKeepAlive(60 * time.Second).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetOnConnectHandler(s.onConnect).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.Warn("broker connection lost", "error", err)
		})

	s.client = mqtt.NewClient(opts)
	return s
}

// Connect establishes the broker connection and the initial subscription.
func (s *Subscription) Connect() error {
	tok := s.client.Connect()
	tok.Wait()
	if err := tok.Error(); err != nil {
		return fmt.Errorf("connect broker: %w", err)
	}
	return nil
}

// Events returns the channel of decoded file events.
func (s *Subscription) Events() <-chan domain.FileEvent {
	return s.events
}

// Close disconnects from the broker. The durable session survives on the
// broker side; missed events replay on the next connect.
func (s *Subscription) Close() {
	s.client.Disconnect(250)
}

func (s *Subscription) onConnect(c mqtt.Client) {
	s.logger.Info("broker connected", "topic", s.topic)
	tok := c.Subscribe(s.topic, 1, s.onMessage)
	tok.Wait()
	if err := tok.Error(); err != nil {
		s.logger.Error("broker subscribe failed", "topic", s.topic, "error", err)
	}
}

// onMessage runs on the paho network loop. It must stay fast so QoS 1 acks
// are not delayed: decode, hand off, return.
func (s *Subscription) onMessage(_ mqtt.Client, msg mqtt.Message) {
	var envelope eventEnvelope
	if err := json.Unmarshal(msg.Payload(), &envelope); err != nil {
		s.logger.Warn("undecodable broker message", "topic", msg.Topic(), "error", err)
		return
	}

	event := domain.FileEvent{
		Filename: envelope.Data.Filename,
		URL:      envelope.Data.URL,
	}

	select {
	case s.events <- event:
	default:
		// The controller is far behind; reports supersede each other every
		// cycle, so dropping the oldest pending work is acceptable.
		s.logger.Warn("event buffer full, dropping event", "filename", event.Filename)
	}
}
