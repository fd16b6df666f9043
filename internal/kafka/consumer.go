package kafka

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"reminder-service/internal/models"
)

// NotificationCreator is the store capability the consumer needs.
type NotificationCreator interface {
	CreateNotification(ctx context.Context, n models.Notification) (uuid.UUID, error)
}

// Consumer turns task events into pending reminder notifications. The
// dispatcher picks them up on its next pass once scheduled_at arrives.
type Consumer struct {
	reader *kafka.Reader
	store  NotificationCreator
	logger *logrus.Logger
}

func NewConsumer(brokers []string, topic, groupID string, store NotificationCreator, logger *logrus.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Consumer{reader: reader, store: store, logger: logger}
}

func (c *Consumer) Start(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.logger.Infof("Kafka consumer started on topic %s", c.reader.Config().Topic)

		for {
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					c.logger.Info("Kafka consumer stopped")
					return
				}
				c.logger.Errorf("Read message failed: %v", err)
				continue
			}

			var event models.TaskEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				c.logger.Errorf("Unmarshal task event failed: %v", err)
				continue
			}
			if event.UserID == "" || event.TemplateKey == "" {
				c.logger.Error("Invalid task event: missing user_id or template_key")
				continue
			}
			userID, err := uuid.Parse(event.UserID)
			if err != nil {
				c.logger.Errorf("Invalid user_id %q in task event: %v", event.UserID, err)
				continue
			}

			scheduledAt := event.DueAt
			if scheduledAt.IsZero() {
				scheduledAt = time.Now()
			}

			n := models.Notification{
				UserID:            userID,
				Type:              models.TypeTaskReminder,
				Title:             event.Title,
				Message:           event.Message,
				ScheduledAt:       scheduledAt,
				TemplateKey:       event.TemplateKey,
				TemplateVariables: event.Variables,
				Payload:           event.Payload,
				TaskID:            event.TaskID,
				TaskTable:         event.TaskTable,
			}
			id, err := c.store.CreateNotification(ctx, n)
			if err != nil {
				c.logger.Errorf("Failed to create notification for task %s: %v", event.TaskID, err)
				continue
			}
			c.logger.Infof("Scheduled notification %s for task %s at %s", id, event.TaskID, scheduledAt.Format(time.RFC3339))
		}
	}()
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.logger.Errorf("Kafka reader close failed: %v", err)
	}
}
