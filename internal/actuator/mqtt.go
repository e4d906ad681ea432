// Package actuator pushes committed device state to the field bus over MQTT.
//
// The controller publishes one retained JSON document to <prefix>/state after every
// commit, and keeps <prefix>/status at "online" while connected. The broker flips the
// status to "offline" through the last will if the process dies.
package actuator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"building_automation/internal/config"
	"building_automation/internal/models"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

const (
	connectTimeout    = 10 * time.Second
	publishTimeout    = 5 * time.Second
	disconnectQuiesce = 1000 // milliseconds
	keepAlive         = 60 * time.Second
	maxReconnect      = 30 * time.Second

	stateTopic  = "state"
	statusTopic = "status"
)

var (
	ErrNotConnected = errors.New("mqtt: not connected")
	ErrPublish      = errors.New("mqtt: publish failed")
)

// client is the part of pahomqtt.Client the publisher uses.
type client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token
	IsConnected() bool
	Disconnect(quiesce uint)
}

// Publisher implements service.StatePublisher on top of paho.
type Publisher struct {
	client   client
	prefix   string
	clientID string
	qos      byte
	log      *zap.SugaredLogger
}

// StatePayload is the retained document on <prefix>/state.
type StatePayload struct {
	Mode         models.OperatingMode `json:"mode"`
	Lighting     models.Lighting      `json:"lighting"`
	TemperatureC float64              `json:"temperature_c"`
	DoorLock     models.DoorLock      `json:"door_lock"`
	Source       string               `json:"source"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// Connect dials the broker and returns a ready publisher.
func Connect(cfg config.MQTTConfig, log *zap.SugaredLogger) (*Publisher, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	p := &Publisher{prefix: cfg.TopicPrefix, clientID: cfg.ClientID, qos: byte(cfg.QoS), log: log}

	opts := p.options(cfg)
	c := pahomqtt.NewClient(opts)
	token := c.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("mqtt connect %s: timeout after %v", cfg.Broker, connectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.Broker, err)
	}
	p.client = c
	return p, nil
}

func (p *Publisher) options(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(maxReconnect)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetKeepAlive(keepAlive)
	opts.SetWill(p.topic(statusTopic), statusPayload("offline", cfg.ClientID), p.qos, true)

	opts.SetOnConnectHandler(func(c pahomqtt.Client) {
		p.log.Infow("mqtt_connected", "broker", cfg.Broker)
		c.Publish(p.topic(statusTopic), p.qos, true, statusPayload("online", cfg.ClientID))
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		p.log.Warnw("mqtt_connection_lost", "err", err)
	})
	return opts
}

func (p *Publisher) topic(leaf string) string {
	if p.prefix == "" {
		return leaf
	}
	return p.prefix + "/" + leaf
}

func statusPayload(status, clientID string) string {
	b, _ := json.Marshal(map[string]string{"status": status, "client_id": clientID})
	return string(b)
}

// PublishState sends the state as a retained message and waits for the broker ack.
func (p *Publisher) PublishState(ctx context.Context, mode models.OperatingMode, st models.DeviceState) error {
	if !p.client.IsConnected() {
		return ErrNotConnected
	}
	payload, err := json.Marshal(StatePayload{
		Mode:         mode,
		Lighting:     st.Lighting,
		TemperatureC: st.TemperatureC,
		DoorLock:     st.DoorLock,
		Source:       st.Source,
		UpdatedAt:    st.LastUpdated.UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	token := p.client.Publish(p.topic(stateTopic), p.qos, true, payload)
	timer := time.NewTimer(publishTimeout)
	defer timer.Stop()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("%w: timeout after %v", ErrPublish, publishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublish, err)
	}
	return nil
}

// Close publishes the graceful offline status and disconnects.
func (p *Publisher) Close() {
	if p.client == nil {
		return
	}
	if p.client.IsConnected() {
		t := p.client.Publish(p.topic(statusTopic), p.qos, true, statusPayload("offline", p.clientID))
		t.WaitTimeout(publishTimeout)
	}
	p.client.Disconnect(disconnectQuiesce)
}
