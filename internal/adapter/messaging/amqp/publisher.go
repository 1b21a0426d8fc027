// Package amqp publishes ledger events to a RabbitMQ topic exchange.
package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const (
	publishTimeout     = 5 * time.Second
	maxPublishAttempts = 3
	baseBackoff        = 100 * time.Millisecond
	maxBackoff         = 2 * time.Second
)

// Channel is the part of *amqp091.Channel the publisher uses.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// Publisher implements ports.EventPublisher. The routing key is the event
// type, so consumers can bind to "transaction.*" or "wallet.created".
type Publisher struct {
	conn     *amqp091.Connection
	mu       sync.Mutex // serializes use of ch
	ch       Channel
	exchange string
	log      zerolog.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

var _ ports.EventPublisher = (*Publisher)(nil)

// Dial connects to the broker at url and declares exchange.
func Dial(url, exchange string, log zerolog.Logger) (*Publisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	p, err := NewPublisher(ch, exchange, log)
	if err != nil {
		conn.Close()
		return nil, err
	}
	p.conn = conn

	log.Info().Str("exchange", exchange).Msg("AMQP event publisher ready")
	return p, nil
}

// NewPublisher declares a durable topic exchange on ch.
func NewPublisher(ch Channel, exchange string, log zerolog.Logger) (*Publisher, error) {
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
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return &Publisher{
		ch:       ch,
		exchange: exchange,
		log:      log,
		sleep:    sleepContext,
	}, nil
}

// Publish sends event as a persistent JSON message, retrying transient
// failures with exponential backoff.
func (p *Publisher) Publish(ctx context.Context, event domain.LedgerEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    event.TransactionID,
		Timestamp:    event.OccurredAt,
		Type:         string(event.Type),
		Body:         body,
	}

	var lastErr error
	for attempt := 0; attempt < maxPublishAttempts; attempt++ {
		if attempt > 0 {
			if err := p.sleep(ctx, exponentialBackoff(attempt-1)); err != nil {
				return fmt.Errorf("publish %s: %w", event.Type, err)
			}
		}

		if lastErr = p.publishOnce(ctx, string(event.Type), msg); lastErr == nil {
			p.log.Debug().
				Str("type", string(event.Type)).
				Str("wallet_id", event.WalletID).
				Str("tx_id", event.TransactionID).
				Msg("ledger event published")
			return nil
		}

		p.log.Warn().Err(lastErr).
			Int("attempt", attempt+1).
			Str("type", string(event.Type)).
			Msg("ledger event publish failed")
	}
	return fmt.Errorf("publish %s after %d attempts: %w", event.Type, maxPublishAttempts, lastErr)
}

func (p *Publisher) publishOnce(ctx context.Context, key string, msg amqp091.Publishing) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.PublishWithContext(ctx, p.exchange, key, false, false, msg)
}

// Close closes the channel and, when dialed, the connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ch.Close(); err != nil && p.conn == nil {
		return err
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// exponentialBackoff returns 100ms, 200ms, 400ms, ... capped at 2s.
func exponentialBackoff(attempt int) time.Duration {
	if attempt > 10 {
		return maxBackoff
	}
	d := baseBackoff << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// NopPublisher drops every event. It is used when events are disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, domain.LedgerEvent) error { return nil }
