package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"hackhub/internal/notify"
)

type Client struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	queue    string
	log      *zerolog.Logger

	mu sync.Mutex
}

type Rabbiter interface {
	Close()
	Publish(ctx context.Context, message []byte) error
	Consume(ctx context.Context, handler func([]byte) error) error
}

func NewRabbit(url, exchange, queue string, log *zerolog.Logger) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}

	client := &Client{
		conn:     conn,
		channel:  ch,
		exchange: exchange,
		queue:    queue,
		log:      log,
	}

	if err := ch.ExchangeDeclare(exchange, "direct", true, false, false, false, nil); err != nil {
		client.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		client.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(queue, queue, exchange, false, nil); err != nil {
		client.Close()
		return nil, fmt.Errorf("bind queue: %w", err)
	}
	if err := ch.Qos(8, 0, false); err != nil {
		client.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}

	log.Info().Str("exchange", exchange).Str("queue", queue).Msg("rabbitmq initialized")
	return client, nil
}

func (c *Client) Close() {
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.log.Info().Msg("rabbitmq connection closed")
}

func (c *Client) Publish(ctx context.Context, message []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.channel.PublishWithContext(ctx,
		c.exchange,
		c.queue,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         message,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("publish to %s: %w", c.exchange, err)
	}
	c.log.Debug().Str("exchange", c.exchange).Int("bytes", len(message)).Msg("message published")
	return nil
}

// Consume delivers every message to handler until ctx is done. A handler error
// requeues the delivery once; a redelivered message that fails again is dropped.
func (c *Client) Consume(ctx context.Context, handler func([]byte) error) error {
	msgs, err := c.channel.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.queue, err)
	}

	go func() {
		for d := range msgs {
			if err := handler(d.Body); err != nil {
				c.log.Warn().Err(err).Bool("redelivered", d.Redelivered).Msg("failed to process message")
				_ = d.Nack(false, !d.Redelivered)
				continue
			}
			_ = d.Ack(false)
		}
	}()

	c.log.Info().Str("queue", c.queue).Msg("started consuming")
	return nil
}

// Sender publishes notifications to the broker instead of mailing them directly.
type Sender struct {
	pub interface {
		Publish(ctx context.Context, message []byte) error
	}
}

func NewSender(c *Client) *Sender {
	return &Sender{pub: c}
}

func (s *Sender) Send(ctx context.Context, msg notify.Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	return s.pub.Publish(ctx, body)
}
