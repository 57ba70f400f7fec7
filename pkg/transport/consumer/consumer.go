// Package consumer provides RabbitMQ consumer functionality for submission
// requests arriving over the broker
package consumer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Koyo-os/questionnaire-service/internal/entity"
	"github.com/Koyo-os/questionnaire-service/pkg/config"
	"github.com/Koyo-os/questionnaire-service/pkg/logger"
	gojson "github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	// EXCHANGE_TYPE routes messages to queues by exact routing key match
	EXCHANGE_TYPE = "direct"

	DEFAULT_RECONNECT_DELAY = 5 * time.Second
)

var ErrNotConnected = errors.New("consumer is not connected")

// binding is a queue bound to an exchange, replayed after reconnects
type binding struct {
	exchange   string
	routingKey string
	queue      string
}

// Consumer represents a RabbitMQ consumer client
type Consumer struct {
	conn         *amqp.Connection
	channel      *amqp.Channel
	logger       *logger.Logger
	cfg          *config.Config
	dial         func(url string) (*amqp.Connection, error)
	bindings     map[binding]struct{}
	mu           sync.RWMutex
	isConnected  bool
	reconnecting bool
}

// Init creates and initializes a new Consumer instance and declares the
// request exchange
func Init(cfg *config.Config, logger *logger.Logger, conn *amqp.Connection) (*Consumer, error) {
	if cfg == nil || logger == nil || conn == nil {
		return nil, fmt.Errorf("invalid parameters: cfg, logger, and conn cannot be nil")
	}

	consumer := &Consumer{
		conn:        conn,
		logger:      logger,
		cfg:         cfg,
		dial:        amqp.Dial,
		bindings:    make(map[binding]struct{}),
		isConnected: true,
	}

	if err := consumer.initializeChannel(); err != nil {
		return nil, fmt.Errorf("failed to initialize channel: %w", err)
	}

	if err := consumer.declareExchange(cfg.Exchange.Request); err != nil {
		consumer.cleanup()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
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

func (c *Consumer) declareExchange(exchangeName string) error {
	if err := c.channel.ExchangeDeclare(
		exchangeName,
		EXCHANGE_TYPE,
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,   // arguments
	); err != nil {
		c.logger.Error("failed to declare exchange",
			zap.String("exchange", exchangeName),
			zap.Error(err))
		return err
	}

	return nil
}

func (c *Consumer) bind(b binding) error {
	if _, err := c.channel.QueueDeclare(
		b.queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		c.logger.Error("failed to declare queue",
			zap.String("queue", b.queue),
			zap.Error(err))
		return fmt.Errorf("failed to declare queue %s: %w", b.queue, err)
	}

	if err := c.channel.QueueBind(
		b.queue,
		b.routingKey,
		b.exchange,
		false, // noWait
		nil,
	); err != nil {
		c.logger.Error("failed to bind queue to exchange",
			zap.String("queue", b.queue),
			zap.String("exchange", b.exchange),
			zap.String("routing_key", b.routingKey),
			zap.Error(err))
		return fmt.Errorf("failed to bind queue %s to exchange %s: %w", b.queue, b.exchange, err)
	}

	return nil
}

// Subscribe declares queueName and binds it to exchange with routingKey.
// The binding is restored after every reconnect.
func (c *Consumer) Subscribe(exchange, routingKey, queueName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isConnected {
		return ErrNotConnected
	}

	b := binding{exchange: exchange, routingKey: routingKey, queue: queueName}
	if err := c.bind(b); err != nil {
		return err
	}

	c.bindings[b] = struct{}{}
	return nil
}

// Close gracefully closes the consumer connection and channel
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

// IsHealthy checks if the consumer connection is healthy
func (c *Consumer) IsHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.isConnected && c.conn != nil && !c.conn.IsClosed()
}

// ConsumeMessages consumes the request queue until ctx is done, forwarding
// decoded events to outputChan and reconnecting whenever the broker drops
// the connection.
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
				c.pause(ctx)
				continue
			}
		}

		if err := c.startConsuming(ctx, outputChan); err != nil {
			c.logger.Error("consuming stopped with error", zap.Error(err))
			c.pause(ctx)
		}
	}

	c.logger.Info("consumer stopped")
}

func (c *Consumer) pause(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(DEFAULT_RECONNECT_DELAY):
	}
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
	c.mu.RLock()
	channel := c.channel
	c.mu.RUnlock()

	if channel == nil {
		return ErrNotConnected
	}

	msgs, err := channel.ConsumeWithContext(ctx,
		c.cfg.Queue.Request, // queue to consume from
		"",                  // consumer identifier
		true,                // auto-acknowledge messages
		false,               // exclusive consumer
		false,               // no-local flag
		false,               // no-wait flag
		nil,                 // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("successfully connected to RabbitMQ, waiting for messages...")

	for msg := range msgs {
		if err := c.processMessage(msg.Body, outputChan); err != nil {
			c.logger.Error("failed to process message", zap.Error(err))
		}
	}

	if ctx.Err() != nil {
		return nil
	}
	return fmt.Errorf("message channel closed")
}

// processMessage decodes one delivery body and hands it on without blocking
func (c *Consumer) processMessage(body []byte, outputChan chan<- entity.Event) error {
	event := new(entity.Event)
	if err := gojson.Unmarshal(body, event); err != nil {
		c.logger.Error("failed to unmarshal event",
			zap.Error(err),
			zap.ByteString("body", body))
		return fmt.Errorf("failed to unmarshal message: %w", err)
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
		return fmt.Errorf("output channel is full")
	}
}

// reconnect re-establishes the connection and channel, then redeclares the
// request exchange and every subscribed binding. Callers hold c.mu.
func (c *Consumer) reconnect() error {
	c.cleanup()

	conn, err := c.dial(c.cfg.Urls.Rabbitmq)
	if err != nil {
		return fmt.Errorf("failed to dial RabbitMQ: %w", err)
	}

	c.conn = conn

	if err := c.initializeChannel(); err != nil {
		c.conn.Close()
		return err
	}

	if err := c.declareExchange(c.cfg.Exchange.Request); err != nil {
		c.cleanup()
		return fmt.Errorf("failed to redeclare exchange %s: %w", c.cfg.Exchange.Request, err)
	}

	for b := range c.bindings {
		if err := c.bind(b); err != nil {
			c.cleanup()
			return err
		}
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
