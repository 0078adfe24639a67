package mqtt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/sweeney/aircon-controller/internal/logger"
)

const (
	connectTimeout    = 10 * time.Second
	publishTimeout    = 5 * time.Second
	subscribeTimeout  = 5 * time.Second
	defaultBufferSize = 32
)

// ErrNotConnected is returned for messages that are not worth buffering.
var ErrNotConnected = errors.New("mqtt: not connected")

// Options configures a Client.
type Options struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topics   Topics
	Handlers Handlers

	// Online returns the retained payload published on the system topic
	// after every (re)connect. Nil publishes a bare ONLINE event.
	Online func() []byte

	// BufferSize bounds the number of alarms and lifecycle events held
	// while disconnected.
	BufferSize int

	// MaxConnectInterval caps the backoff between initial connect attempts.
	MaxConnectInterval time.Duration

	Logger *logger.Logger
}

// Client is the paho-backed Publisher. Reports published while the broker is
// unreachable collapse to the latest one; alarms and lifecycle events are
// queued. Both are flushed on reconnect.
type Client struct {
	client paho.Client
	opts   Options
	log    *logger.Logger

	mu     sync.Mutex
	outbox *outbox
}

// NewClientID returns prefix plus a short random suffix so two controllers
// on one broker never kick each other off.
func NewClientID(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8]
}

// NewClient builds a client. Nothing touches the network until Connect.
func NewClient(opts Options) *Client {
	if opts.BufferSize <= 0 {
		opts.BufferSize = defaultBufferSize
	}
	if opts.MaxConnectInterval <= 0 {
		opts.MaxConnectInterval = time.Minute
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}

	c := &Client{
		opts:   opts,
		log:    log,
		outbox: newOutbox(opts.BufferSize),
	}

	po := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetUsername(opts.Username).
		SetPassword(opts.Password).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(opts.MaxConnectInterval).
		SetKeepAlive(60*time.Second).
		SetPingTimeout(10*time.Second).
		SetOrderMatters(false).
		SetWill(opts.Topics.System, string(WillPayload()), 1, true).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(c.onConnectionLost).
		SetReconnectingHandler(func(paho.Client, *paho.ClientOptions) {
			c.log.Infow("reconnecting", "broker", opts.Broker)
		})

	c.client = paho.NewClient(po)
	return c
}

// Connect blocks until the first connection succeeds or ctx is done,
// retrying with exponential backoff. Later drops are handled by paho's
// auto-reconnect.
func (c *Client) Connect(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxInterval = c.opts.MaxConnectInterval
	bo.MaxElapsedTime = 0

	op := func() error {
		token := c.client.Connect()
		if !token.WaitTimeout(connectTimeout) {
			return fmt.Errorf("connect to %s: timeout", c.opts.Broker)
		}
		if err := token.Error(); err != nil {
			return fmt.Errorf("connect to %s: %w", c.opts.Broker, err)
		}
		return nil
	}
	notify := func(err error, wait time.Duration) {
		c.log.Warnw("broker unreachable", "err", err, "retry_in", wait)
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(bo, ctx), notify); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	return nil
}

// IsConnected reports whether the broker connection is up.
func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}

// PublishReport sends a report, or keeps it as the latest pending report
// while disconnected.
func (c *Client) PublishReport(payload []byte) error {
	msg := bufferedMsg{topic: c.opts.Topics.Control, payload: payload}
	if !c.IsConnected() {
		c.mu.Lock()
		c.outbox.setReport(msg)
		c.mu.Unlock()
		return nil
	}
	if err := c.send(msg); err != nil {
		c.mu.Lock()
		c.outbox.setReport(msg)
		c.mu.Unlock()
		return err
	}
	c.mu.Lock()
	c.outbox.report = nil
	c.mu.Unlock()
	return nil
}

// PublishAlarm sends an alarm at QoS 1, queueing it while disconnected.
func (c *Client) PublishAlarm(message string) error {
	return c.sendOrQueue(bufferedMsg{topic: c.opts.Topics.Control, payload: []byte(message), qos: 1})
}

// PublishTemperature sends a reading. Readings are not buffered: a stale
// temperature is worse than none.
func (c *Client) PublishTemperature(reading string) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return c.send(bufferedMsg{topic: c.opts.Topics.Temperature, payload: []byte(reading)})
}

// PublishSystem sends a lifecycle event at QoS 1, queueing it while disconnected.
func (c *Client) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return c.sendOrQueue(bufferedMsg{topic: c.opts.Topics.System, payload: payload, qos: 1, retained: event.Retained})
}

// Close disconnects from the broker.
func (c *Client) Close() error {
	c.client.Disconnect(1000) // 1 second quiesce
	return nil
}

func (c *Client) sendOrQueue(msg bufferedMsg) error {
	if c.IsConnected() {
		err := c.send(msg)
		if err == nil {
			return nil
		}
		c.log.Warnw("publish failed, queued for reconnect", "topic", msg.topic, "err", err)
	}
	c.mu.Lock()
	first := c.outbox.alarms.push(msg)
	c.mu.Unlock()
	if first {
		c.log.Warnw("offline buffer full, dropping oldest", "capacity", c.opts.BufferSize)
	}
	return nil
}

func (c *Client) send(msg bufferedMsg) error {
	token := c.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timeout", msg.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", msg.topic, err)
	}
	return nil
}

func (c *Client) onConnect(paho.Client) {
	c.log.Infow("connected", "broker", c.opts.Broker, "client_id", c.opts.ClientID)

	subs := map[string]byte{
		c.opts.Topics.Control:     1,
		c.opts.Topics.Temperature: 0,
	}
	token := c.client.SubscribeMultiple(subs, c.onMessage)
	if !token.WaitTimeout(subscribeTimeout) {
		c.log.Errorw("subscribe timeout", "topics", subs)
	} else if err := token.Error(); err != nil {
		c.log.Errorw("subscribe failed", "topics", subs, "err", err)
	}

	if err := c.send(bufferedMsg{topic: c.opts.Topics.Control, payload: []byte(Greeting(c.opts.ClientID))}); err != nil {
		c.log.Warnw("greeting failed", "err", err)
	}

	online := c.onlinePayload()
	if err := c.send(bufferedMsg{topic: c.opts.Topics.System, payload: online, qos: 1, retained: true}); err != nil {
		c.log.Warnw("online event failed", "err", err)
	}

	c.mu.Lock()
	pending := c.outbox.drain()
	c.mu.Unlock()
	for _, msg := range pending {
		if err := c.send(msg); err != nil {
			c.log.Warnw("replay failed", "topic", msg.topic, "err", err)
		}
	}
	if len(pending) > 0 {
		c.log.Infow("replayed buffered messages", "count", len(pending))
	}
}

func (c *Client) onlinePayload() []byte {
	if c.opts.Online != nil {
		if p := c.opts.Online(); p != nil {
			return p
		}
	}
	data, _ := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "ONLINE"})
	return data
}

func (c *Client) onConnectionLost(_ paho.Client, err error) {
	c.log.Warnw("connection lost", "broker", c.opts.Broker, "err", err)
}

func (c *Client) onMessage(_ paho.Client, msg paho.Message) {
	c.route(msg.Topic(), string(msg.Payload()))
}

// route hands an inbound payload to the handler for its topic.
func (c *Client) route(topic, payload string) {
	switch topic {
	case c.opts.Topics.Control:
		if h := c.opts.Handlers.Command; h != nil {
			h(payload)
		}
	case c.opts.Topics.Temperature:
		if h := c.opts.Handlers.Temperature; h != nil {
			h(payload)
		}
	default:
		c.log.Debugw("ignoring message", "topic", topic)
	}
}
