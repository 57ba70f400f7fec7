// Package publisher emits questionnaire events to the output exchange
package publisher

import (
	"context"
	"fmt"
	"time"

	"github.com/Koyo-os/questionnaire-service/internal/entity"
	"github.com/Koyo-os/questionnaire-service/pkg/config"
	"github.com/Koyo-os/questionnaire-service/pkg/logger"
	gojson "github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

type Publisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *logger.Logger
	cfg     *config.Config
}

func Init(cfg *config.Config, logger *logger.Logger, conn *amqp.Connection) (*Publisher, error) {
	channel, err := conn.Channel()
	if err != nil {
		logger.Error("error opening channel", zap.Error(err))
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err = channel.ExchangeDeclare(
		cfg.Exchange.Output,
		"direct",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		logger.Error("error declaring output exchange",
			zap.String("exchange", cfg.Exchange.Output),
			zap.Error(err))
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", cfg.Exchange.Output, err)
	}

	return &Publisher{
		conn:    conn,
		channel: channel,
		logger:  logger,
		cfg:     cfg,
	}, nil
}

func (p *Publisher) Close() error {
	if err := p.channel.Close(); err != nil {
		p.logger.Error("error closing channel", zap.Error(err))
	}
	return p.conn.Close()
}

func (p *Publisher) IsHealthy() bool {
	return !p.conn.IsClosed()
}

// envelope wraps payload into an event of type routingKey
func envelope(payload any, routingKey string) (*entity.Event, []byte, error) {
	payloadJSON, err := gojson.Marshal(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("encode payload: %w", err)
	}

	event := entity.NewEvent(routingKey, payloadJSON)

	eventJSON, err := gojson.Marshal(event)
	if err != nil {
		return nil, nil, fmt.Errorf("encode event %s: %w", event.ID, err)
	}

	return event, eventJSON, nil
}

// Publish sends payload as the body of an event routed by routingKey
func (p *Publisher) Publish(ctx context.Context, payload any, routingKey string) error {
	event, body, err := envelope(payload, routingKey)
	if err != nil {
		p.logger.Error("error encode event for publish",
			zap.String("routing_key", routingKey),
			zap.Error(err),
		)
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = p.channel.PublishWithContext(ctx,
		p.cfg.Exchange.Output, // exchange
		routingKey,            // routing key
		false,                 // mandatory
		false,                 // immediate
		amqp.Publishing{
			ContentType: "application/json",
			MessageId:   event.ID,
			Body:        body,
			Timestamp:   event.Timestamp,
		},
	)
	if err != nil {
		p.logger.Error("error publishing event",
			zap.String("event_id", event.ID),
			zap.Error(err))
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}

	p.logger.Info("successfully published event",
		zap.String("event_id", event.ID),
		zap.String("routing_key", routingKey),
	)

	return nil
}
