package amqp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	applog "fintrack/internal/shared/log"
)

const (
	publishTimeout = 5 * time.Second
	prefetchCount  = 10
)

type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
	logger       zerolog.Logger
}

func NewClient(url, exchangeName, queueName string, logger zerolog.Logger) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
		logger: applog.Component(logger, applog.ComponentAMQP).With().
			Str(applog.FieldExchange, exchangeName).
			Str(applog.FieldQueue, queueName).
			Logger(),
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return client, nil
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// routing key is the queue name on the direct exchange
	if err := c.channel.QueueBind(c.queueName, c.queueName, c.exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	if err := c.channel.Qos(prefetchCount, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	return nil
}

// PublishMaterializeRequest publishes a persistent materialization request.
func (c *Client) PublishMaterializeRequest(ctx context.Context, userID int64, asOf civil.Date) error {
	body, err := NewMaterializeRequest(userID, asOf).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	c.logger.Info().
		Int64(applog.FieldUserID, userID).
		Str(applog.FieldAsOf, asOf.String()).
		Msg("published materialize request")
	return nil
}

// RequestMaterialization queues the request for the recurring worker.
func (c *Client) RequestMaterialization(ctx context.Context, userID int64, asOf civil.Date) error {
	return c.PublishMaterializeRequest(ctx, userID, asOf)
}

// Handler processes one request. A non-nil error requeues the message.
type Handler func(ctx context.Context, msg *MaterializeRequest) error

// ConsumeMaterializeRequests blocks delivering messages to handler until
// ctx is cancelled or the channel closes.
func (c *Client) ConsumeMaterializeRequests(ctx context.Context, handler Handler) error {
	msgs, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	c.logger.Info().Msg("started consuming materialize requests")

	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Err(ctx.Err()).Msg("stopping message consumption")
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return errors.New("message channel closed")
			}
			c.handleDelivery(ctx, delivery.Body, delivery, handler)
		}
	}
}

// acknowledger is the part of amqp091.Delivery handleDelivery settles.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

type outcome int

const (
	outcomeAcked outcome = iota
	outcomeRejected
	outcomeRequeued
)

func (c *Client) handleDelivery(ctx context.Context, body []byte, d acknowledger, handler Handler) outcome {
	msg, err := MaterializeRequestFromJSON(body)
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to decode message")
		if err := d.Nack(false, false); err != nil {
			c.logger.Warn().Err(err).Msg("nack failed")
		}
		return outcomeRejected
	}

	log := c.logger.With().
		Int64(applog.FieldUserID, msg.UserID).
		Str(applog.FieldAsOf, msg.AsOf.String()).
		Logger()

	if err := handler(ctx, msg); err != nil {
		log.Error().Err(err).Msg("failed to handle materialize request")
		if err := d.Nack(false, true); err != nil {
			log.Warn().Err(err).Msg("nack failed")
		}
		return outcomeRequeued
	}

	if err := d.Ack(false); err != nil {
		log.Warn().Err(err).Msg("ack failed")
	}
	log.Debug().Msg("processed materialize request")
	return outcomeAcked
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
