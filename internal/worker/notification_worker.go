package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/kitchenware/storefront/internal/model"
	"github.com/kitchenware/storefront/internal/notify"
)

const (
	dlxExchange    = "notifications.dlx"
	dlqQueueName   = "notifications.dlq"
	idempotencyTTL = 24 * time.Hour
)

type Sender interface {
	Send(to, subject, body string) error
}

// NotificationWorker drains the notifications queue into the mailer. A
// delivery that fails to send is dead-lettered, not requeued.
type NotificationWorker struct {
	channel     *amqp.Channel
	sender      Sender
	redisClient *redis.Client
	log         *slog.Logger
	done        chan struct{}
}

func NewNotificationWorker(ch *amqp.Channel, sender Sender, redisClient *redis.Client, log *slog.Logger) *NotificationWorker {
	return &NotificationWorker{
		channel:     ch,
		sender:      sender,
		redisClient: redisClient,
		log:         log,
		done:        make(chan struct{}),
	}
}

// SetupRabbitMQ declares the notifications queue and its dead-letter pair.
func SetupRabbitMQ(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(dlxExchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare DLX: %w", err)
	}
	if _, err := ch.QueueDeclare(dlqQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare DLQ: %w", err)
	}
	if err := ch.QueueBind(dlqQueueName, notify.QueueName, dlxExchange, false, nil); err != nil {
		return fmt.Errorf("bind DLQ: %w", err)
	}
	if _, err := ch.QueueDeclare(notify.QueueName, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    dlxExchange,
		"x-dead-letter-routing-key": notify.QueueName,
	}); err != nil {
		return fmt.Errorf("declare notifications queue: %w", err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set QoS: %w", err)
	}
	return nil
}

func (w *NotificationWorker) Start(ctx context.Context) error {
	msgs, err := w.channel.Consume(notify.QueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	go func() {
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				w.processMessage(ctx, msg)
			case <-w.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	w.log.Info("notification worker started")
	return nil
}

func (w *NotificationWorker) Stop() { close(w.done) }

func (w *NotificationWorker) processMessage(ctx context.Context, msg amqp.Delivery) {
	var n model.Notification
	if err := json.Unmarshal(msg.Body, &n); err != nil {
		w.log.Error("unmarshal notification", "error", err)
		_ = msg.Nack(false, false)
		return
	}

	log := w.log.With("notification_id", n.ID, "kind", n.Kind)

	key := "notification_sent:" + n.ID.String()
	exists, err := w.redisClient.Exists(ctx, key).Result()
	if err != nil {
		log.Error("check idempotency key", "error", err)
		_ = msg.Nack(false, true)
		return
	}
	if exists > 0 {
		log.Info("notification already sent, skipping")
		_ = msg.Ack(false)
		return
	}

	if err := w.sender.Send(n.To, n.Subject, n.Body); err != nil {
		log.Error("send notification failed", "error", err)
		_ = msg.Nack(false, false)
		return
	}

	if err := w.redisClient.Set(ctx, key, "1", idempotencyTTL).Err(); err != nil {
		log.Error("set idempotency key", "error", err)
	}

	_ = msg.Ack(false)
	log.Info("notification sent")
}
