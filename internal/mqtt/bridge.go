package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"controlling_poolspa/internal/config"
	"controlling_poolspa/internal/equipment"
	"controlling_poolspa/internal/input"
	"controlling_poolspa/internal/logger"
	"controlling_poolspa/internal/status"
)

var (
	ErrConnectionFailed = errors.New("mqtt connection failed")
	ErrBadCommand       = errors.New("mqtt: bad command")
)

const (
	connectTimeout    = 10 * time.Second
	publishTimeout    = 5 * time.Second
	disconnectQuiesce = 1000 // milliseconds
	keepAlive         = 60 * time.Second

	// Source recorded for commands that arrive over MQTT.
	Source = "mqtt"
)

// Topics under the configured prefix.
type Topics struct{ Prefix string }

func (t Topics) State() string        { return t.Prefix + "/state" }
func (t Topics) Command() string      { return t.Prefix + "/cmd" }
func (t Topics) Availability() string { return t.Prefix + "/status" }

// Bridge publishes the controller snapshot and feeds commands into the
// remote queue. It never touches control state directly.
type Bridge struct {
	client pahomqtt.Client
	cfg    config.MQTTConfig
	topics Topics
	store  *status.Store
	queue  *input.Queue
	log    *logger.Logger
}

// Connect dials the broker. The will marks the controller offline if the
// process dies; paho reconnects on its own afterwards. A broker that is
// down at boot is not an error: paho keeps dialing, onConnect subscribes
// when it lands and Run starts publishing once the client reports connected.
func Connect(cfg config.MQTTConfig, store *status.Store, queue *input.Queue, log *logger.Logger) (*Bridge, error) {
	return connect(cfg, store, queue, log, pahomqtt.NewClient)
}

func connect(cfg config.MQTTConfig, store *status.Store, queue *input.Queue, log *logger.Logger,
	newClient func(*pahomqtt.ClientOptions) pahomqtt.Client) (*Bridge, error) {
	b := &Bridge{cfg: cfg, topics: Topics{Prefix: cfg.TopicPrefix}, store: store, queue: queue, log: log}

	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectTimeout(connectTimeout).
		SetKeepAlive(keepAlive).
		SetWill(b.topics.Availability(), "offline", cfg.QoS, true)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetOnConnectHandler(func(c pahomqtt.Client) { b.onConnect(c) })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		b.log.Warnw("mqtt_connection_lost", "err", err)
	})

	b.client = newClient(opts)
	token := b.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		b.log.Warnw("mqtt_broker_unreachable", "broker", cfg.Broker, "retrying", true)
		return b, nil
	}
	if err := token.Error(); err != nil {
		// Stop the retry loop; nothing will own this client.
		b.client.Disconnect(0)
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	return b, nil
}

// onConnect runs on the first connect and every reconnect.
func (b *Bridge) onConnect(c pahomqtt.Client) {
	c.Subscribe(b.topics.Command(), b.cfg.QoS, func(_ pahomqtt.Client, msg pahomqtt.Message) {
		b.handleCommand(msg.Payload())
	})
	c.Publish(b.topics.Availability(), b.cfg.QoS, true, "online")
	b.log.Infow("mqtt_connected", "broker", b.cfg.Broker, "command_topic", b.topics.Command())
}

func (b *Bridge) handleCommand(payload []byte) {
	ev, err := ParseCommand(payload)
	if err != nil {
		b.log.Warnw("mqtt_command_rejected", "payload", string(payload), "err", err)
		return
	}
	if dropped := b.queue.Push(ev); dropped {
		b.log.Warnw("remote_queue_overflow", "source", Source)
	}
}

// ParseCommand decodes "button=N", "temp=up", "temp=down" or "stop".
func ParseCommand(payload []byte) (input.RemoteEvent, error) {
	cmd := strings.ToLower(strings.TrimSpace(string(payload)))
	ev := input.RemoteEvent{Source: Source}
	key, val, _ := strings.Cut(cmd, "=")
	switch key {
	case "stop":
		ev.Kind = input.RemoteStop
	case "button":
		n, err := strconv.Atoi(val)
		if err != nil || n < 0 || n >= equipment.NumButtons {
			return ev, fmt.Errorf("%w: button %q", ErrBadCommand, val)
		}
		ev.Kind, ev.Button = input.RemoteButton, equipment.Button(n)
	case "temp":
		switch val {
		case "up":
			ev.Kind = input.RemoteTempUp
		case "down":
			ev.Kind = input.RemoteTempDown
		default:
			return ev, fmt.Errorf("%w: temp %q", ErrBadCommand, val)
		}
	default:
		return ev, fmt.Errorf("%w: %q", ErrBadCommand, cmd)
	}
	return ev, nil
}

// Run publishes the snapshot, retained, whenever it changed since the last
// interval. On ctx done it marks the controller offline and disconnects.
func (b *Bridge) Run(ctx context.Context) {
	interval := b.cfg.PublishInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	var sent uint64
	for {
		select {
		case <-ctx.Done():
			b.close()
			return
		case <-t.C:
			v := b.store.Version()
			if v == sent || !b.client.IsConnected() {
				continue
			}
			if err := b.publishState(); err != nil {
				b.log.Warnw("mqtt_publish_failed", "err", err)
				continue
			}
			sent = v
		}
	}
}

func (b *Bridge) publishState() error {
	payload, err := json.Marshal(b.store.Load())
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	token := b.client.Publish(b.topics.State(), b.cfg.QoS, true, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timeout", b.topics.State())
	}
	return token.Error()
}

func (b *Bridge) close() {
	if b.client.IsConnected() {
		token := b.client.Publish(b.topics.Availability(), b.cfg.QoS, true, "offline")
		token.WaitTimeout(publishTimeout)
	}
	b.client.Disconnect(disconnectQuiesce)
	b.log.Infow("mqtt_disconnected")
}
