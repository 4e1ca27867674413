package worker

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	TaskNotificationDeliver = "notification:deliver"
	TaskAppointmentReminder = "appointment:reminder"
)

type DeliverPayload struct {
	NotificationID uuid.UUID `json:"notificationId"`
}

// ReminderPayload carries the start time the reminder was planned for so a
// stale task can be recognised after the appointment moved.
type ReminderPayload struct {
	AppointmentID uuid.UUID `json:"appointmentId"`
	StartsAt      time.Time `json:"startsAt"`
}

func NewDeliverTask(p DeliverPayload) (*asynq.Task, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotificationDeliver, data), nil
}

func ParseDeliverPayload(t *asynq.Task) (DeliverPayload, error) {
	var p DeliverPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return DeliverPayload{}, fmt.Errorf("decoding %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	if p.NotificationID == uuid.Nil {
		return DeliverPayload{}, fmt.Errorf("%s payload has no notification id: %w", t.Type(), asynq.SkipRetry)
	}
	return p, nil
}

func NewReminderTask(p ReminderPayload) (*asynq.Task, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAppointmentReminder, data), nil
}

func ParseReminderPayload(t *asynq.Task) (ReminderPayload, error) {
	var p ReminderPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return ReminderPayload{}, fmt.Errorf("decoding %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	if p.AppointmentID == uuid.Nil || p.StartsAt.IsZero() {
		return ReminderPayload{}, fmt.Errorf("%s payload is incomplete: %w", t.Type(), asynq.SkipRetry)
	}
	return p, nil
}

func deliverTaskID(id uuid.UUID) string {
	return "deliver:" + id.String()
}

// One reminder per appointment and start time; a reschedule gets a new id.
func reminderTaskID(id uuid.UUID, startsAt time.Time) string {
	return fmt.Sprintf("reminder:%s:%d", id, startsAt.Unix())
}
