package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

var (
	// ErrNotConnected is returned while the publisher is re-establishing its
	// broker connection in the background. The event is dropped.
	ErrNotConnected = errors.New("amqp: not connected")
	// ErrPublisherClosed is returned after Close.
	ErrPublisherClosed = errors.New("amqp: publisher closed")
)

const (
	amqpDialTimeout = 3 * time.Second
	amqpMinBackoff  = 500 * time.Millisecond
	amqpMaxBackoff  = 30 * time.Second
)

// AMQPPublisher publishes events as persistent JSON messages to a durable
// topic exchange, using the event name as routing key. Publish never dials:
// a lost connection is restored by a background loop with exponential backoff.
type AMQPPublisher struct {
	url      string
	exchange string
	logger   zerolog.Logger

	dial       func() (*amqp.Connection, *amqp.Channel, error)
	minBackoff time.Duration
	maxBackoff time.Duration

	mu           sync.Mutex
	conn         *amqp.Connection
	ch           *amqp.Channel
	reconnecting bool
	closed       bool
	done         chan struct{}
}

// NewAMQPPublisher dials the broker and declares the exchange.
func NewAMQPPublisher(url, exchange string, logger zerolog.Logger) (*AMQPPublisher, error) {
	if exchange == "" {
		return nil, errors.New("amqp: exchange name is required")
	}
	p := newAMQPPublisher(url, exchange, logger)
	conn, ch, err := p.dial()
	if err != nil {
		return nil, err
	}
	p.conn, p.ch = conn, ch
	p.logger.Info().Str("exchange", p.exchange).Msg("amqp publisher connected")
	return p, nil
}

func newAMQPPublisher(url, exchange string, logger zerolog.Logger) *AMQPPublisher {
	p := &AMQPPublisher{
		url:        url,
		exchange:   exchange,
		logger:     logger,
		minBackoff: amqpMinBackoff,
		maxBackoff: amqpMaxBackoff,
		done:       make(chan struct{}),
	}
	p.dial = p.connect
	return p
}

func (p *AMQPPublisher) connect() (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(amqpDialTimeout),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("amqp: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("amqp: open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(
		p.exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, fmt.Errorf("amqp: declare exchange %s: %w", p.exchange, err)
	}
	return conn, ch, nil
}

// Publish sends event on the current channel. When the channel is gone it
// starts a reconnect and returns ErrNotConnected without waiting.
func (p *AMQPPublisher) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("amqp: marshal %s: %w", event.Name(), err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         event.Name(),
		Body:         body,
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPublisherClosed
	}
	if p.ch == nil || p.ch.IsClosed() {
		p.dropLocked()
		p.reconnectLocked()
		p.mu.Unlock()
		return fmt.Errorf("publish %s: %w", event.Name(), ErrNotConnected)
	}
	ch := p.ch
	p.mu.Unlock()

	err = ch.PublishWithContext(ctx, p.exchange, event.Name(), false, false, msg)
	if errors.Is(err, amqp.ErrClosed) {
		p.mu.Lock()
		if p.ch == ch {
			p.dropLocked()
			p.reconnectLocked()
		}
		p.mu.Unlock()
		return fmt.Errorf("publish %s: %w", event.Name(), ErrNotConnected)
	}
	if err != nil {
		return fmt.Errorf("amqp: publish %s: %w", event.Name(), err)
	}
	return nil
}

// reconnectLocked starts the reconnect loop unless one is already running.
func (p *AMQPPublisher) reconnectLocked() {
	if p.reconnecting || p.closed {
		return
	}
	p.reconnecting = true
	go p.reconnectLoop()
}

func (p *AMQPPublisher) reconnectLoop() {
	backoff := p.minBackoff
	for attempt := 1; ; attempt++ {
		conn, ch, err := p.dial()

		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			if err == nil {
				_ = ch.Close()
				_ = conn.Close()
			}
			return
		}
		if err == nil {
			p.conn, p.ch = conn, ch
			p.reconnecting = false
			p.mu.Unlock()
			p.logger.Info().Int("attempt", attempt).Msg("amqp publisher reconnected")
			return
		}
		p.mu.Unlock()

		p.logger.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", backoff).Msg("amqp reconnect failed")
		select {
		case <-p.done:
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > p.maxBackoff {
			backoff = p.maxBackoff
		}
	}
}

// Close stops any reconnect attempt and releases the channel and connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	close(p.done)
	p.dropLocked()
	return nil
}

func (p *AMQPPublisher) dropLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}
