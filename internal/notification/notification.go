package notification

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const (
	// KindRegistration is sent to a participant when she is enrolled.
	KindRegistration = "registration"
	// KindSponsorship is sent to the organizing team when a sponsor contributes.
	KindSponsorship = "sponsorship"
)

// DefaultStream is the redis stream RedisNotifier appends to.
const DefaultStream = "maratonas:notifications"

// Message describes a notification payload.
type Message struct {
	Kind        string
	Destination string
	Body        string
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the structured logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification", "kind", message.Kind, "destination", message.Destination, "body", message.Body)
	return nil
}

// RedisNotifier appends notifications to a redis stream for a mailer to consume.
type RedisNotifier struct {
	client *redis.Client
	stream string
}

// NewRedisNotifier constructs a stream-backed notifier. An empty stream uses DefaultStream.
func NewRedisNotifier(client *redis.Client, stream string) *RedisNotifier {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisNotifier{client: client, stream: stream}
}

// Send appends the message as one stream entry.
func (n *RedisNotifier) Send(ctx context.Context, message Message) error {
	return n.client.XAdd(ctx, &redis.XAddArgs{
		Stream: n.stream,
		MaxLen: 10000,
		Approx: true,
		Values: map[string]any{
			"kind":        message.Kind,
			"destination": message.Destination,
			"body":        message.Body,
		},
	}).Err()
}
