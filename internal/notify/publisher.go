// Package notify publishes post-commit domain events. Publishing happens
// strictly outside the transaction boundary: a failed publish is logged
// and never affects the already-committed business outcome.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	TopicAppointmentBooked     = "events:appointment_booked"
	TopicAppointmentCancelled  = "events:appointment_cancelled"
	TopicPrescriptionDispensed = "events:prescription_dispensed"
	TopicInvoicePaid           = "events:invoice_paid"
)

type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}

func NewRedisClient(addr, username, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Username:     username,
		Password:     password,
		DB:           0,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 1,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return rdb, nil
}

type RedisPublisher struct {
	client *redis.Client
	logger zerolog.Logger
}

func NewRedisPublisher(client *redis.Client, logger zerolog.Logger) *RedisPublisher {
	return &RedisPublisher{client: client, logger: logger}
}

func (p *RedisPublisher) Publish(ctx context.Context, topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	if err := p.client.Publish(ctx, topic, data).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}

	p.logger.Debug().Str("topic", topic).Msg("event published")
	return nil
}

// Noop discards events. Used when notifications are disabled and in tests.
type Noop struct{}

func (Noop) Publish(context.Context, string, any) error { return nil }
