package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ChannelPrefix namespaces the pub/sub channels.
const ChannelPrefix = "adjudex:transitions"

// RedisNotifier publishes notifications over Redis pub/sub: once to a
// per-case channel for reviewers watching one case, once to the firehose.
type RedisNotifier struct {
	client *redis.Client
}

// NewRedisNotifier connects to the given Redis address.
func NewRedisNotifier(addr string) *RedisNotifier {
	return &RedisNotifier{client: redis.NewClient(&redis.Options{Addr: addr})}
}

// NewRedisNotifierWithClient wraps an existing client. For tests.
func NewRedisNotifierWithClient(client *redis.Client) *RedisNotifier {
	return &RedisNotifier{client: client}
}

// CaseChannel returns the pub/sub channel for one case.
func CaseChannel(caseID string) string {
	return fmt.Sprintf("%s:case:%s", ChannelPrefix, caseID)
}

// Publish implements Notifier.
func (r *RedisNotifier) Publish(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	if err := r.client.Publish(ctx, CaseChannel(n.CaseID), payload).Err(); err != nil {
		return fmt.Errorf("publish case channel: %w", err)
	}
	if err := r.client.Publish(ctx, ChannelPrefix, payload).Err(); err != nil {
		return fmt.Errorf("publish firehose: %w", err)
	}
	return nil
}

// Subscribe listens for notifications on one case channel until ctx is
// canceled. Malformed payloads are dropped.
func (r *RedisNotifier) Subscribe(ctx context.Context, caseID string) (<-chan Notification, error) {
	sub := r.client.Subscribe(ctx, CaseChannel(caseID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe case %s: %w", caseID, err)
	}

	out := make(chan Notification)
	go func() {
		defer close(out)
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-sub.Channel():
				if !ok {
					return
				}
				var n Notification
				if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
					continue
				}
				select {
				case out <- n:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Close releases the underlying client.
func (r *RedisNotifier) Close() error {
	return r.client.Close()
}
