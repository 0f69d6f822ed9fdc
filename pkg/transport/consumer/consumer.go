// Package consumer reads reconciliation requests from RabbitMQ.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Koyo-os/docusurvey/internal/entity"
	"github.com/Koyo-os/docusurvey/pkg/config"
	"github.com/Koyo-os/docusurvey/pkg/logger"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	// EXCHANGE_TYPE routes by exact routing key, which is the event type.
	EXCHANGE_TYPE = "direct"

	DEFAULT_RECONNECT_DELAY = 5 * time.Second
)

var ErrChannelFull = errors.New("output channel is full")

type (
	// Binding routes events of RoutingKey on Exchange into the request queue.
	Binding struct {
		Exchange   string
		RoutingKey string
	}

	Consumer struct {
		conn         *amqp.Connection
		channel      *amqp.Channel
		logger       *logger.Logger
		url          string
		queue        string
		bindings     []Binding
		mu           sync.RWMutex
		isConnected  bool
		reconnecting bool
	}
)

// Bindings lists what the request queue listens to: explicit reconcile
// requests and the service's own orphaned-response events.
func Bindings(cfg *config.Config) []Binding {
	return []Binding{
		{Exchange: cfg.Exchange.Request, RoutingKey: cfg.Reqs.ReconcileRequestType},
		{Exchange: cfg.Exchange.Output, RoutingKey: cfg.Reqs.OrphanedRequestType},
	}
}

func Init(cfg *config.Config, logger *logger.Logger, conn *amqp.Connection) (*Consumer, error) {
	if cfg == nil || logger == nil || conn == nil {
		return nil, fmt.Errorf("invalid parameters: cfg, logger, and conn cannot be nil")
	}

	consumer := &Consumer{
		conn:        conn,
		logger:      logger,
		url:         cfg.Urls.Rabbitmq,
		queue:       cfg.Queue.Request,
		bindings:    Bindings(cfg),
		isConnected: true,
	}

	if err := consumer.initializeChannel(); err != nil {
		return nil, fmt.Errorf("failed to initialize channel: %w", err)
	}

	if err := consumer.setupTopology(); err != nil {
		consumer.cleanup()
		return nil, fmt.Errorf("failed to declare topology: %w", err)
	}

	return consumer, nil
}

func (c *Consumer) initializeChannel() error {
	channel, err := c.conn.Channel()
	if err != nil {
		c.logger.Error("failed to open channel", zap.Error(err))
		return err
	}

	c.channel = channel
	return nil
}

// setupTopology declares every exchange, the durable request queue and its
// bindings. All declarations are idempotent so it also runs after reconnect.
func (c *Consumer) setupTopology() error {
	declared := make(map[string]bool, len(c.bindings))

	for _, b := range c.bindings {
		if declared[b.Exchange] {
			continue
		}

		if err := c.channel.ExchangeDeclare(
			b.Exchange,
			EXCHANGE_TYPE,
			true,  // durable
			false, // auto-delete
			false, // internal
			false, // no-wait
			nil,
		); err != nil {
			c.logger.Error("failed to declare exchange",
				zap.String("exchange", b.Exchange),
				zap.Error(err))
			return err
		}
		declared[b.Exchange] = true
	}

	if _, err := c.channel.QueueDeclare(
		c.queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		c.logger.Error("failed to declare queue",
			zap.String("queue", c.queue),
			zap.Error(err))
		return fmt.Errorf("failed to declare queue %s: %w", c.queue, err)
	}

	for _, b := range c.bindings {
		if err := c.channel.QueueBind(c.queue, b.RoutingKey, b.Exchange, false, nil); err != nil {
			c.logger.Error("failed to bind queue to exchange",
				zap.String("queue", c.queue),
				zap.String("exchange", b.Exchange),
				zap.String("routing_key", b.RoutingKey),
				zap.Error(err))
			return fmt.Errorf("failed to bind queue %s to exchange %s: %w", c.queue, b.Exchange, err)
		}
	}

	return nil
}

func (c *Consumer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.isConnected = false

	var errs []error

	if c.channel != nil {
		if err := c.channel.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			c.logger.Error("error closing channel", zap.Error(err))
			errs = append(errs, fmt.Errorf("channel close error: %w", err))
		}
	}

	if c.conn != nil {
		if err := c.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			c.logger.Error("error closing connection", zap.Error(err))
			errs = append(errs, fmt.Errorf("connection close error: %w", err))
		}
	}

	return errors.Join(errs...)
}

func (c *Consumer) IsHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.isConnected && c.conn != nil && !c.conn.IsClosed()
}

// ConsumeMessages decodes deliveries into events on outputChan until ctx is
// done, reconnecting when the broker drops the connection.
func (c *Consumer) ConsumeMessages(ctx context.Context, outputChan chan<- entity.Event) {
	if outputChan == nil {
		c.logger.Error("output channel cannot be nil")
		return
	}

	for ctx.Err() == nil {
		if !c.IsHealthy() {
			c.logger.Warn("connection is unhealthy, attempting to reconnect...")
			if err := c.handleReconnection(); err != nil {
				c.logger.Error("failed to reconnect", zap.Error(err))
				sleep(ctx, DEFAULT_RECONNECT_DELAY)
				continue
			}
		}

		if err := c.startConsuming(ctx, outputChan); err != nil && ctx.Err() == nil {
			c.logger.Error("consuming stopped with error", zap.Error(err))
			sleep(ctx, DEFAULT_RECONNECT_DELAY)
		}
	}

	c.logger.Info("consumer stopped")
}

func (c *Consumer) handleReconnection() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.reconnecting {
		return fmt.Errorf("reconnection already in progress")
	}

	c.reconnecting = true
	defer func() { c.reconnecting = false }()

	return c.reconnect()
}

func (c *Consumer) startConsuming(ctx context.Context, outputChan chan<- entity.Event) error {
	msgs, err := c.channel.Consume(
		c.queue,
		"",    // consumer identifier
		true,  // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		c.mu.Lock()
		c.isConnected = false
		c.mu.Unlock()
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("successfully connected to RabbitMQ, waiting for messages...",
		zap.String("queue", c.queue))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				c.mu.Lock()
				c.isConnected = false
				c.mu.Unlock()
				return fmt.Errorf("message channel closed")
			}
			if err := c.processMessage(msg, outputChan); err != nil {
				c.logger.Error("failed to process message", zap.Error(err))
			}
		}
	}
}

func (c *Consumer) processMessage(msg amqp.Delivery, outputChan chan<- entity.Event) error {
	event := new(entity.Event)
	if err := json.Unmarshal(msg.Body, event); err != nil {
		c.logger.Error("failed to unmarshal event",
			zap.Error(err),
			zap.ByteString("body", msg.Body))
		return fmt.Errorf("failed to unmarshal message: %w", err)
	}

	if event.Type == "" {
		event.Type = msg.RoutingKey
	}

	if err := event.Validate(); err != nil {
		return fmt.Errorf("invalid event: %w", err)
	}

	c.logger.Debug("received new event",
		zap.String("event_id", event.ID),
		zap.String("routing_key", event.Type),
		zap.Time("timestamp", event.Timestamp))

	select {
	case outputChan <- *event:
		return nil
	default:
		c.logger.Warn("output channel is full, dropping message",
			zap.String("event_id", event.ID))
		return ErrChannelFull
	}
}

func (c *Consumer) reconnect() error {
	c.cleanup()

	conn, err := amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("failed to dial RabbitMQ: %w", err)
	}

	c.conn = conn

	if err := c.initializeChannel(); err != nil {
		c.conn.Close()
		return err
	}

	if err := c.setupTopology(); err != nil {
		c.cleanup()
		return err
	}

	c.isConnected = true
	c.logger.Info("successfully reconnected to RabbitMQ")
	return nil
}

func (c *Consumer) cleanup() {
	c.isConnected = false

	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
