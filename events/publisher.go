// Package events publishes committed ledger postings to an AMQP topic
// exchange. It is a ledger plugin: publishing happens after commit and a
// broker failure never undoes or fails the posting.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"

	"github.com/xraph/ecoseed/entry"
	"github.com/xraph/ecoseed/plugin"
	"github.com/xraph/ecoseed/profile"
)

// PublishTimeout bounds a single publish.
const PublishTimeout = 5 * time.Second

// Compile-time interface checks.
var (
	_ plugin.Plugin           = (*Publisher)(nil)
	_ plugin.OnSeedsEarned    = (*Publisher)(nil)
	_ plugin.OnSeedsSpent     = (*Publisher)(nil)
	_ plugin.OnSeedsConverted = (*Publisher)(nil)
	_ plugin.OnShutdown       = (*Publisher)(nil)
)

// Channel is the subset of *amqp091.Channel the publisher uses.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// Publisher sends ledger postings to an AMQP exchange.
type Publisher struct {
	channel  Channel
	conn     *amqp091.Connection
	exchange string
	logger   *slog.Logger
	clock    func() time.Time
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithLogger sets the publisher logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

// Dial connects to url and declares exchange as a durable topic exchange.
func Dial(url, exchange string, opts ...Option) (*Publisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("events: dial AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("events: open channel: %w", err)
	}

	p, err := New(ch, exchange, opts...)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

// New builds a Publisher on an open channel and declares the exchange.
func New(ch Channel, exchange string, opts ...Option) (*Publisher, error) {
	p := &Publisher{
		channel:  ch,
		exchange: exchange,
		logger:   slog.Default(),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	err := ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("events: declare exchange: %w", err)
	}
	return p, nil
}

// Name implements plugin.Plugin.
func (p *Publisher) Name() string { return "amqp-events" }

// OnSeedsEarned implements plugin.OnSeedsEarned.
func (p *Publisher) OnSeedsEarned(ctx context.Context, e *entry.Entry, pr *profile.Profile) error {
	return p.publish(ctx, KeySeedsEarned, NewPostingMessage(e, pr))
}

// OnSeedsSpent implements plugin.OnSeedsSpent.
func (p *Publisher) OnSeedsSpent(ctx context.Context, e *entry.Entry, pr *profile.Profile) error {
	return p.publish(ctx, KeySeedsSpent, NewPostingMessage(e, pr))
}

// OnSeedsConverted implements plugin.OnSeedsConverted.
func (p *Publisher) OnSeedsConverted(ctx context.Context, e *entry.Entry, pr *profile.Profile) error {
	return p.publish(ctx, KeySeedsConverted, NewPostingMessage(e, pr))
}

// OnShutdown implements plugin.OnShutdown.
func (p *Publisher) OnShutdown(_ context.Context) error {
	return p.Close()
}

// Close releases the channel and, when dialed, the connection.
func (p *Publisher) Close() error {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

func (p *Publisher) publish(ctx context.Context, key string, msg *PostingMessage) error {
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("events: marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, PublishTimeout)
	defer cancel()

	err = p.channel.PublishWithContext(
		ctx,
		p.exchange, // exchange
		key,        // routing key
		false,      // mandatory
		false,      // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    uuid.NewString(),
			Timestamp:    p.clock(),
			Type:         key,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("events: publish %s: %w", key, err)
	}

	p.logger.DebugContext(ctx, "published ledger event",
		"key", key,
		"member", msg.MemberRef,
		"sequence", msg.Sequence,
		"exchange", p.exchange,
	)
	return nil
}
