package amqp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
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

	err = c.channel.QueueBind(
		c.queueName,    // queue name
		c.queueName,    // routing key (same as queue name for direct exchange)
		c.exchangeName, // exchange
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// PublishLedgerEvent announces a record mutation on the ledger queue.
func (c *Client) PublishLedgerEvent(ctx context.Context, collection, action, id string) error {
	body, err := wrap(TypeLedgerEvent, NewLedgerEventMessage(collection, action, id))
	if err != nil {
		return err
	}

	if err := c.publish(ctx, body); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Published ledger event",
		"collection", collection,
		"action", action,
		"id", id,
		"exchange", c.exchangeName,
		"queue", c.queueName)

	return nil
}

// PublishBillReminder announces an unpaid bill whose due day arrived.
func (c *Client) PublishBillReminder(ctx context.Context, msg *BillReminderMessage) error {
	body, err := wrap(TypeBillReminder, msg)
	if err != nil {
		return err
	}

	if err := c.publish(ctx, body); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Published bill reminder",
		"bill_id", msg.BillID,
		"month_label", msg.MonthLabel,
		"queue", c.queueName)

	return nil
}

func (c *Client) publish(ctx context.Context, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := c.channel.PublishWithContext(
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
	return nil
}

// ConsumeMessages runs the consume loop, dispatching by envelope type.
// Handler errors requeue the delivery; undecodable messages are dropped.
func (c *Client) ConsumeMessages(
	ctx context.Context,
	onEvent func(context.Context, *LedgerEventMessage) error,
	onReminder func(context.Context, *BillReminderMessage) error,
) error {
	msgs, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack (we want manual ack)
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming ledger messages", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}
			c.dispatch(ctx, delivery, onEvent, onReminder)
		}
	}
}

func (c *Client) dispatch(
	ctx context.Context,
	delivery amqp091.Delivery,
	onEvent func(context.Context, *LedgerEventMessage) error,
	onReminder func(context.Context, *BillReminderMessage) error,
) {
	env, err := EnvelopeFromJSON(delivery.Body)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to decode message envelope", "error", err)
		_ = delivery.Nack(false, false) // reject and don't requeue
		return
	}

	switch env.Type {
	case TypeLedgerEvent:
		msg, err := env.LedgerEvent()
		if err != nil {
			slog.ErrorContext(ctx, "Failed to decode ledger event", "error", err)
			_ = delivery.Nack(false, false)
			return
		}
		if onEvent == nil {
			_ = delivery.Ack(false)
			return
		}
		if err := onEvent(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "Failed to handle ledger event",
				"error", err,
				"collection", msg.Collection,
				"action", msg.Action,
				"id", msg.ID)
			_ = delivery.Nack(false, true) // reject and requeue
			return
		}
		_ = delivery.Ack(false)

	case TypeBillReminder:
		msg, err := env.BillReminder()
		if err != nil {
			slog.ErrorContext(ctx, "Failed to decode bill reminder", "error", err)
			_ = delivery.Nack(false, false)
			return
		}
		if onReminder == nil {
			_ = delivery.Ack(false)
			return
		}
		if err := onReminder(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "Failed to handle bill reminder",
				"error", err,
				"bill_id", msg.BillID)
			_ = delivery.Nack(false, true)
			return
		}
		_ = delivery.Ack(false)

	default:
		slog.WarnContext(ctx, "Unknown message type, dropping", "type", env.Type)
		_ = delivery.Nack(false, false)
	}
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
