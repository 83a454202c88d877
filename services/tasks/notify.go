package tasks

import (
	"encoding/json"
	"log"

	"brightcall/models"

	"github.com/hibiken/asynq"
)

const TypeNotifyBooking = "booking:notify"

func NewBookingNotifyTask(payload models.NotificationPayload) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeNotifyBooking, b)
	opts := []asynq.Option{asynq.MaxRetry(3)}

	return task, opts, nil
}

// QueueNotifier hands booking notifications to the async worker instead of
// delivering them inline. Satisfies notification.Service.
type QueueNotifier struct {
	client *asynq.Client
}

func NewQueueNotifier(client *asynq.Client) *QueueNotifier {
	return &QueueNotifier{client: client}
}

func (q *QueueNotifier) BookingScheduled(payload models.NotificationPayload) {
	task, opts, err := NewBookingNotifyTask(payload)
	if err != nil {
		log.Printf("[NotifyQueue] Failed to build task for %s: %v", payload.BookingID, err)
		return
	}
	if _, err := q.client.Enqueue(task, opts...); err != nil {
		log.Printf("[NotifyQueue] Failed to enqueue notification for %s: %v", payload.BookingID, err)
	}
}
