package rabbitmq

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fletea/internal/general/config"
	"fletea/internal/general/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	dialTimeout    = 30 * time.Second
	heartbeat      = 10 * time.Second
	redialMaxDelay = 30 * time.Second
)

// Client wraps the single AMQP connection a flete service holds: the API
// service publishes trip status events through it, the feed service consumes
// them. It redials with capped backoff when the broker drops the connection
// and re-declares the trip topology on every (re)connect.
type Client struct {
	url    string
	logger *logger.Logger
	logCtx context.Context // detached from request lifetimes

	mu      sync.RWMutex
	conn    *amqp.Connection
	pubChan *amqp.Channel

	pubMu       sync.Mutex
	pubConfirms chan amqp.Confirmation

	done   chan struct{}
	redial chan struct{}
}

// ConnectRabbitMQ dials the broker and starts the background redial loop.
// The first dial is fail-fast so misconfiguration surfaces at startup; later
// failures are retried in the background.
func ConnectRabbitMQ(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Client, error) {
	client := &Client{
		url:    fmt.Sprintf("amqp://%s:%s@%s:%d/", cfg.RabbitMQ.User, cfg.RabbitMQ.Password, cfg.RabbitMQ.Host, cfg.RabbitMQ.Port),
		logger: log,
		logCtx: context.WithoutCancel(ctx),
		done:   make(chan struct{}),
		redial: make(chan struct{}, 1),
	}

	if err := client.dial(); err != nil {
		return nil, err
	}
	go client.redialLoop()

	return client, nil
}

// Close stops the redial loop and tears down AMQP resources.
func (client *Client) Close() {
	select {
	case <-client.done:
		return // already closed
	default:
		close(client.done)
	}

	client.mu.Lock()
	if client.pubChan != nil {
		_ = client.pubChan.Close()
		client.pubChan = nil
	}
	if client.conn != nil {
		_ = client.conn.Close()
		client.conn = nil
	}
	client.mu.Unlock()

	// release any publisher waiting on a confirm
	client.pubMu.Lock()
	if client.pubConfirms != nil {
		close(client.pubConfirms)
		client.pubConfirms = nil
	}
	client.pubMu.Unlock()
}

// --- internals ---

// dial connects, prepares a confirming publish channel with the trip
// topology declared, and swaps both in. A failure leaves the previous state
// untouched.
func (client *Client) dial() error {
	conn, err := amqp.DialConfig(client.url, amqp.Config{
		Heartbeat: heartbeat,
		Dial:      amqp.DefaultDial(dialTimeout),
	})
	if err != nil {
		client.logger.Error(client.logCtx, "rabbitmq_dial_failed", "Failed to dial RabbitMQ", err, nil)
		return fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := client.openPublishChannel(conn)
	if err != nil {
		_ = conn.Close()
		return err
	}

	client.install(conn, ch)
	client.armCloseWatcher(conn, ch)

	client.logger.Info(client.logCtx, "rabbitmq_connected", "RabbitMQ connection established", nil)
	return nil
}

// openPublishChannel opens a channel, declares the trip exchange, queue and
// binding on it, and enables publisher confirms plus return logging for
// mandatory publishes.
func (client *Client) openPublishChannel(conn *amqp.Connection) (*amqp.Channel, error) {
	ch, err := conn.Channel()
	if err != nil {
		client.logger.Error(client.logCtx, "rabbitmq_open_channel_failed", "Failed to open RabbitMQ channel", err, nil)
		return nil, fmt.Errorf("rabbitmq open channel: %w", err)
	}

	if err := declareTopology(ch); err != nil {
		_ = ch.Close()
		client.logger.Error(client.logCtx, "rabbitmq_declare_topology_failed", "Failed to declare RabbitMQ topology", err, nil)
		return nil, fmt.Errorf("rabbitmq declare topology: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		client.logger.Error(client.logCtx, "rabbitmq_enable_confirms_failed", "Failed to enable publisher confirms", err, nil)
		return nil, fmt.Errorf("rabbitmq enable confirms: %w", err)
	}

	// unroutable mandatory publishes come back here; log and move on
	returns := ch.NotifyReturn(make(chan amqp.Return, 1))
	go func() {
		for ret := range returns {
			client.logger.Error(client.logCtx, "rabbitmq_returned", "Message was returned (unroutable)",
				fmt.Errorf("code=%d text=%s", ret.ReplyCode, ret.ReplyText),
				map[string]any{
					"exchange":    ret.Exchange,
					"routing_key": ret.RoutingKey,
					"size":        len(ret.Body),
				})
		}
	}()

	return ch, nil
}

// install swaps in the fresh connection and publish channel, retiring the
// previous ones.
func (client *Client) install(conn *amqp.Connection, ch *amqp.Channel) {
	client.pubMu.Lock()
	old := client.pubConfirms
	client.pubConfirms = ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	client.pubMu.Unlock()
	if old != nil {
		close(old)
	}

	client.mu.Lock()
	if client.pubChan != nil && !client.pubChan.IsClosed() {
		_ = client.pubChan.Close()
	}
	client.conn = conn
	client.pubChan = ch
	client.mu.Unlock()
}

// armCloseWatcher requests a redial as soon as the connection or the publish
// channel dies.
func (client *Client) armCloseWatcher(conn *amqp.Connection, ch *amqp.Channel) {
	connClosed := conn.NotifyClose(make(chan *amqp.Error, 1))
	chClosed := ch.NotifyClose(make(chan *amqp.Error, 1))
	go func() {
		select {
		case <-client.done:
			return
		case <-connClosed:
		case <-chClosed:
		}
		select {
		case client.redial <- struct{}{}:
		default: // a redial is already queued
		}
	}()
}

// redialLoop reconnects with capped exponential backoff until Close.
func (client *Client) redialLoop() {
	delay := time.Second
	for {
		select {
		case <-client.done:
			return
		case <-client.redial:
		}

		for {
			err := client.dial()
			if err == nil {
				delay = time.Second
				client.logger.Info(client.logCtx, "rabbitmq_reconnected", "Reconnected to RabbitMQ and re-declared topology", nil)
				break
			}
			client.logger.Error(client.logCtx, "retry_attempted", "Failed to reconnect to RabbitMQ", err, map[string]any{
				"retry_in": delay.String(),
			})

			select {
			case <-client.done:
				return
			case <-time.After(delay):
			}
			if delay *= 2; delay > redialMaxDelay {
				delay = redialMaxDelay
			}
		}
	}
}
