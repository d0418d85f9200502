package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// HandlerFunc processes one decoded event.
type HandlerFunc func(ctx context.Context, ev MailEvent) error

// Consumer reads MailQueue and hands each event to a HandlerFunc.
type Consumer struct {
	url    string
	handle HandlerFunc
	log    logrus.FieldLogger
}

func NewConsumer(url string, handle HandlerFunc, log logrus.FieldLogger) *Consumer {
	return &Consumer{url: url, handle: handle, log: log}
}

// Run connects, consumes and reconnects with exponential backoff (capped
// at 30s) until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.WithError(err).Warnf("mail consumer: dial failed, retrying in %s", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.WithError(err).Warn("mail consumer: loop ended, reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(10, 0, false); err != nil {
		c.log.WithError(err).Warn("mail consumer: set QoS failed")
	}
	if _, err := ch.QueueDeclare(MailQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, MailQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.process(ctx, d.Body); err != nil {
				c.log.WithError(err).Error("mail consumer: message rejected")
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// process decodes body and runs the handler.  A malformed body is an
// error so the delivery is dropped rather than requeued.
func (c *Consumer) process(ctx context.Context, body []byte) error {
	var ev MailEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" || ev.Email == "" {
		return errors.New("event without type or recipient")
	}
	return c.handle(ctx, ev)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
