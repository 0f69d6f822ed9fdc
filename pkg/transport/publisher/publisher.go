package publisher

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Koyo-os/docusurvey/internal/entity"
	"github.com/Koyo-os/docusurvey/pkg/logger"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// EXCHANGE_TYPE matches the consumer so the orphaned events can be bound
// back onto the request queue.
const EXCHANGE_TYPE = "direct"

type Publisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	logger   *logger.Logger
	exchange string
}

func Init(exchange string, logger *logger.Logger, conn *amqp.Connection) (*Publisher, error) {
	channel, err := conn.Channel()
	if err != nil {
		logger.Error("error opening channel", zap.Error(err))
		conn.Close()
		return nil, err
	}

	if err = channel.ExchangeDeclare(
		exchange,
		EXCHANGE_TYPE,
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		logger.Error("error declare exchange", zap.String("exchange", exchange), zap.Error(err))
		channel.Close()
		conn.Close()
		return nil, err
	}

	return &Publisher{
		conn:     conn,
		channel:  channel,
		logger:   logger,
		exchange: exchange,
	}, nil
}

func (p *Publisher) Close() error {
	if err := p.channel.Close(); err != nil {
		p.logger.Error("error closing channel", zap.Error(err))
	}
	return p.conn.Close()
}

func (p *Publisher) IsHealthy() bool {
	return p.conn != nil && !p.conn.IsClosed() && !p.channel.IsClosed()
}

// Publish wraps payload into an event envelope and sends it with the event
// type as routing key.
func (p *Publisher) Publish(payload any, routingKey string) error {
	event, body, err := Encode(payload, routingKey)
	if err != nil {
		p.logger.Error("error encode event for publish",
			zap.String("routing_key", routingKey),
			zap.Error(err))
		return err
	}

	err = p.channel.Publish(
		p.exchange, // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    event.ID,
			Type:         event.Type,
			Body:         body,
			Timestamp:    event.Timestamp,
		},
	)
	if err != nil {
		p.logger.Error("error publishing event",
			zap.String("event_id", event.ID),
			zap.Error(err))
		return err
	}

	p.logger.Debug("successfully published event",
		zap.String("event_id", event.ID),
		zap.String("routing_key", routingKey),
	)

	return nil
}

// Encode builds the envelope for payload and returns it with its JSON body.
func Encode(payload any, routingKey string) (*entity.Event, []byte, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("encode payload: %w", err)
	}

	event := entity.NewEvent(routingKey, payloadJSON)
	event.Timestamp = event.Timestamp.UTC().Truncate(time.Millisecond)

	body, err := json.Marshal(event)
	if err != nil {
		return nil, nil, fmt.Errorf("encode event %s: %w", event.ID, err)
	}

	return event, body, nil
}
