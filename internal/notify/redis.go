package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const publishTimeout = 2 * time.Second

// Message is the payload published for downstream user-messaging workers.
// Content generation (email templates etc.) happens outside this service.
type Message struct {
	Type       string    `json:"type"`
	AccountID  string    `json:"account_id"`
	PlanCode   string    `json:"plan_code,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// RedisNotifier publishes billing notifications to a Redis channel. Publish
// failures are logged and dropped; billing state is already consistent and the
// messaging side owns its own delivery guarantees.
type RedisNotifier struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
}

// NewRedisNotifier connects to Redis and returns a notifier publishing to the
// given channel.
func NewRedisNotifier(addr, password string, db int, channel string, logger *zap.Logger) (*RedisNotifier, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisNotifier{
		client:  client,
		channel: channel,
		logger:  logger,
	}, nil
}

// SubscriptionActivated announces an activated subscription
func (n *RedisNotifier) SubscriptionActivated(ctx context.Context, accountID uuid.UUID, planCode string) {
	n.publish(ctx, Message{
		Type:       "subscription_activated",
		AccountID:  accountID.String(),
		PlanCode:   planCode,
		OccurredAt: time.Now(),
	})
}

// PaymentFailed announces a failed payment attempt
func (n *RedisNotifier) PaymentFailed(ctx context.Context, accountID uuid.UUID, reason string) {
	n.publish(ctx, Message{
		Type:       "payment_failed",
		AccountID:  accountID.String(),
		Reason:     reason,
		OccurredAt: time.Now(),
	})
}

func (n *RedisNotifier) publish(ctx context.Context, msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		n.logger.Error("Failed to marshal notification", zap.Error(err))
		return
	}

	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := n.client.Publish(publishCtx, n.channel, payload).Err(); err != nil {
		n.logger.Warn("Failed to publish notification",
			zap.String("type", msg.Type),
			zap.String("account_id", msg.AccountID),
			zap.Error(err))
	}
}

// Close closes the underlying Redis connection
func (n *RedisNotifier) Close() error {
	return n.client.Close()
}
