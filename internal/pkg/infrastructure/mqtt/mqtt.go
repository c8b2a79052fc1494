// Package mqtt owns the broker connection. Inbound traffic is pushed
// onto a bounded channel that the ingestion workers drain; outbound
// commands go through a single serialized publisher so device command
// ordering is preserved.
package mqtt

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/diwise/service-chassis/pkg/infrastructure/env"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	paho "github.com/eclipse/paho.mqtt.golang"
)

type Config struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string
	RootTopic string
	QoS       byte

	InboundQueueSize  int
	OutboundQueueSize int
}

func LoadConfiguration(ctx context.Context) Config {
	return Config{
		BrokerURL:         env.GetVariableOrDefault(ctx, "MQTT_BROKER_URL", "tcp://localhost:1883"),
		ClientID:          env.GetVariableOrDefault(ctx, "MQTT_CLIENT_ID", "iot-greenhouse-mgmt"),
		Username:          env.GetVariableOrDefault(ctx, "MQTT_USERNAME", ""),
		Password:          env.GetVariableOrDefault(ctx, "MQTT_PASSWORD", ""),
		RootTopic:         env.GetVariableOrDefault(ctx, "MQTT_ROOT_TOPIC", "Invernadero"),
		QoS:               1,
		InboundQueueSize:  1024,
		OutboundQueueSize: 1000,
	}
}

// InboundMessage is a raw broker message stamped on arrival.
type InboundMessage struct {
	Topic      string
	Payload    []byte
	ReceivedAt time.Time
}

type outboundMessage struct {
	topic   string
	payload []byte
	retain  bool
}

const (
	reconnectBase = 500 * time.Millisecond
	reconnectCap  = 30 * time.Second

	publishRetries = 3
	publishTimeout = 5 * time.Second
)

type Client struct {
	cfg    Config
	client paho.Client

	inbound  chan InboundMessage
	outbound chan outboundMessage

	subscriptions []string
	subMu         sync.Mutex

	droppedInbound  atomic.Int64
	droppedOutbound atomic.Int64

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewClient(ctx context.Context, cfg Config) *Client {
	c := &Client{
		cfg:      cfg,
		inbound:  make(chan InboundMessage, cfg.InboundQueueSize),
		outbound: make(chan outboundMessage, cfg.OutboundQueueSize),
	}

	log := logging.GetFromContext(ctx)

	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.BrokerURL)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetCleanSession(false)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetAutoReconnect(false)
	opts.SetOnConnectHandler(func(paho.Client) {
		log.Info("connected to mqtt broker", "broker", cfg.BrokerURL)
		c.resubscribe(ctx)
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		log.Warn("mqtt connection lost", "err", err.Error())
		go c.reconnect(ctx)
	})

	c.client = paho.NewClient(opts)

	return c
}

// Start connects to the broker (retrying with backoff until the first
// connection succeeds or ctx is cancelled) and starts the outbound
// publisher.
func (c *Client) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)

	err := c.connectWithBackoff(ctx)
	if err != nil {
		return err
	}

	c.wg.Add(1)
	go c.publishLoop(ctx)

	return nil
}

func (c *Client) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	c.client.Disconnect(250)
	close(c.inbound)
}

// Inbound returns the channel ingestion workers read from.
func (c *Client) Inbound() <-chan InboundMessage {
	return c.inbound
}

func (c *Client) Connected() bool {
	return c.client.IsConnected()
}

// Subscribe registers a topic filter. Registered filters survive
// reconnects; the on-connect handler replays them.
func (c *Client) Subscribe(ctx context.Context, filter string) error {
	c.subMu.Lock()
	c.subscriptions = append(c.subscriptions, filter)
	c.subMu.Unlock()

	token := c.client.Subscribe(filter, c.cfg.QoS, c.onMessage)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", filter, token.Error())
	}

	logging.GetFromContext(ctx).Debug("subscribed to mqtt topic", "filter", filter)

	return nil
}

// Publish enqueues a message for the serialized publisher. When the
// outbound buffer is full the oldest queued message is discarded so
// fresh commands are never the ones that get lost.
func (c *Client) Publish(ctx context.Context, topic string, payload []byte) error {
	msg := outboundMessage{topic: topic, payload: payload}

	select {
	case c.outbound <- msg:
		return nil
	default:
	}

	select {
	case <-c.outbound:
		dropped := c.droppedOutbound.Add(1)
		logging.GetFromContext(ctx).Warn("outbound mqtt buffer full, dropped oldest message", "dropped_total", dropped)
	default:
	}

	select {
	case c.outbound <- msg:
	default:
	}

	return nil
}

func (c *Client) onMessage(_ paho.Client, m paho.Message) {
	msg := InboundMessage{
		Topic:      m.Topic(),
		Payload:    m.Payload(),
		ReceivedAt: time.Now().UTC(),
	}

	select {
	case c.inbound <- msg:
	default:
		c.droppedInbound.Add(1)
	}
}

func (c *Client) resubscribe(ctx context.Context) {
	c.subMu.Lock()
	filters := make([]string, len(c.subscriptions))
	copy(filters, c.subscriptions)
	c.subMu.Unlock()

	log := logging.GetFromContext(ctx)

	for _, filter := range filters {
		token := c.client.Subscribe(filter, c.cfg.QoS, c.onMessage)
		if token.Wait() && token.Error() != nil {
			log.Error("failed to resubscribe", "filter", filter, "err", token.Error().Error())
		}
	}
}

func (c *Client) reconnect(ctx context.Context) {
	err := c.connectWithBackoff(ctx)
	if err != nil && ctx.Err() == nil {
		logging.GetFromContext(ctx).Error("mqtt reconnect failed", "err", err.Error())
	}
}

func (c *Client) connectWithBackoff(ctx context.Context) error {
	log := logging.GetFromContext(ctx)
	delay := reconnectBase

	for {
		token := c.client.Connect()
		if token.Wait() && token.Error() == nil {
			return nil
		}

		log.Warn("could not connect to mqtt broker", "err", token.Error().Error(), "retry_in", delay.String())

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(jitter(delay)):
		}

		delay *= 2
		if delay > reconnectCap {
			delay = reconnectCap
		}
	}
}

// jitter spreads reconnect attempts by +/- 25 percent so a fleet of
// clients does not stampede the broker.
func jitter(d time.Duration) time.Duration {
	spread := int64(d) / 2
	return time.Duration(int64(d)*3/4 + rand.Int63n(spread+1))
}

func (c *Client) publishLoop(ctx context.Context) {
	defer c.wg.Done()

	log := logging.GetFromContext(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-c.outbound:
			err := c.publishWithRetry(ctx, msg)
			if err != nil {
				log.Error("failed to publish mqtt message", "topic", msg.topic, "err", err.Error())
			}
		}
	}
}

func (c *Client) publishWithRetry(ctx context.Context, msg outboundMessage) error {
	var err error

	for attempt := 0; attempt < publishRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}

		token := c.client.Publish(msg.topic, c.cfg.QoS, msg.retain, msg.payload)
		if !token.WaitTimeout(publishTimeout) {
			err = fmt.Errorf("publish timed out")
			continue
		}
		if token.Error() != nil {
			err = token.Error()
			continue
		}

		return nil
	}

	return err
}

// DroppedInbound reports how many broker messages were discarded
// because ingestion could not keep up.
func (c *Client) DroppedInbound() int64 {
	return c.droppedInbound.Load()
}
