package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"live-class/config"
	"live-class/dto"
	"live-class/events"
)

const (
	LiveClassExchange    = "live_class_exchange"
	RecordingExchange    = "recording_exchange"
	RecordingMergeRoute  = "recording.merge.request"
	liveClassRoutePrefix = "live_class."
)

// Publisher sends lifecycle events and recording merge requests. One channel
// is shared and guarded by mu; it is reopened when the broker closes it.
type Publisher struct {
	conn *amqp.Connection
	cfg  *config.RabbitMQ

	mu sync.Mutex
	ch *amqp.Channel
}

func NewPublisher(ctx context.Context, conn *amqp.Connection, cfg *config.RabbitMQ) (*Publisher, error) {
	p := &Publisher{conn: conn, cfg: cfg}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.open(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) open(ctx context.Context) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return err
	}
	for _, exchange := range []string{LiveClassExchange, RecordingExchange} {
		if err := ch.ExchangeDeclare(exchange, p.cfg.Kind, true, false, false, false, nil); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Str("exchange", exchange).Msg("failed to declare exchange")
			_ = ch.Close()
			return err
		}
	}
	p.ch = ch
	return nil
}

// Publish implements events.Notifier.
func (p *Publisher) Publish(ctx context.Context, e events.Event) error {
	return p.publish(ctx, LiveClassExchange, liveClassRoutePrefix+string(e.Type), e.ID.String(), e)
}

func (p *Publisher) PublishRecordingMerge(ctx context.Context, msg dto.RecordingMergeMessage) error {
	return p.publish(ctx, RecordingExchange, RecordingMergeRoute, msg.JobId.String(), msg)
}

func (p *Publisher) publish(ctx context.Context, exchange, routingKey, messageId string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", routingKey, err)
	}

	operation := func() (struct{}, error) {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.ch == nil || p.ch.IsClosed() {
			if err := p.open(ctx); err != nil {
				return struct{}{}, err
			}
		}
		return struct{}{}, p.ch.PublishWithContext(ctx, exchange, routingKey, false, false, amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    messageId,
			Timestamp:    time.Now(),
			Body:         body,
		})
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	bo.MaxInterval = time.Second
	if _, err := backoff.Retry(ctx, operation, backoff.WithBackOff(bo), backoff.WithMaxTries(3)); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("exchange", exchange).Str("routing_key", routingKey).Msg("failed to publish message")
		return err
	}

	zerolog.Ctx(ctx).Debug().Str("exchange", exchange).Str("routing_key", routingKey).Str("message_id", messageId).Msg("message published")
	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil || p.ch.IsClosed() {
		return nil
	}
	return p.ch.Close()
}
