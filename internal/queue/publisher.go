package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// channel is the part of *amqp.Channel the publisher uses.
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type dialFunc func(url string) (channel, func(), error)

func dialAMQP(url string) (channel, func(), error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	return ch, func() { _ = conn.Close() }, nil
}

// Publisher sends MailEvents to MailQueue as persistent JSON messages.  A
// connection is opened per message; notification volume is low.
type Publisher struct {
	url     string
	log     logrus.FieldLogger
	dial    dialFunc
	timeout time.Duration
}

func NewPublisher(url string, log logrus.FieldLogger) *Publisher {
	return &Publisher{url: url, log: log, dial: dialAMQP, timeout: 5 * time.Second}
}

// Publish delivers ev and returns the first error it meets.
func (p *Publisher) Publish(ctx context.Context, ev MailEvent) error {
	ch, closeConn, err := p.dial(p.url)
	if err != nil {
		return err
	}
	defer closeConn()
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(MailQueue, true, false, false, false, nil); err != nil {
		return err
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return ch.PublishWithContext(ctx, "", MailQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}

// Notify publishes ev in the background.  Failures are logged and never
// reach the request that triggered the mail.
func (p *Publisher) Notify(ev MailEvent) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()
		if err := p.Publish(ctx, ev); err != nil {
			p.log.WithFields(logrus.Fields{"type": ev.Type, "email": ev.Email}).
				WithError(err).Warn("mail event not published")
		}
	}()
}
