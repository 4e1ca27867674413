package worker

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/config"
)

const deliveryMaxRetry = 8

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Client enqueues notification deliveries and appointment reminders.
type Client struct {
	q     enqueuer
	queue string
}

func NewClient(cfg config.RedisConfig) (*Client, error) {
	if !cfg.Enabled() {
		return nil, errors.New("redis url not configured")
	}
	opt, err := RedisClientOpt(cfg)
	if err != nil {
		return nil, err
	}
	return newClient(asynq.NewClient(opt), cfg.QueueName), nil
}

func newClient(q enqueuer, queue string) *Client {
	if queue == "" {
		queue = "default"
	}
	return &Client{q: q, queue: queue}
}

func (c *Client) Close() error {
	if c == nil || c.q == nil {
		return nil
	}
	return c.q.Close()
}

func (c *Client) EnqueueDelivery(ctx context.Context, notificationID uuid.UUID) error {
	task, err := NewDeliverTask(DeliverPayload{NotificationID: notificationID})
	if err != nil {
		return err
	}
	return c.enqueue(ctx, task,
		asynq.TaskID(deliverTaskID(notificationID)),
		asynq.MaxRetry(deliveryMaxRetry),
	)
}

func (c *Client) ScheduleReminder(ctx context.Context, appointmentID uuid.UUID, startsAt, runAt time.Time) error {
	task, err := NewReminderTask(ReminderPayload{AppointmentID: appointmentID, StartsAt: startsAt})
	if err != nil {
		return err
	}
	return c.enqueue(ctx, task,
		asynq.TaskID(reminderTaskID(appointmentID, startsAt)),
		asynq.ProcessAt(runAt),
	)
}

// enqueue treats a duplicate task id as success.
func (c *Client) enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) error {
	opts = append(opts, asynq.Queue(c.queue))
	_, err := c.q.EnqueueContext(ctx, task, opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("enqueueing %s: %w", task.Type(), err)
	}
	return nil
}

// RedisClientOpt converts a redis:// or rediss:// URL into asynq options.
func RedisClientOpt(cfg config.RedisConfig) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return asynq.RedisClientOpt{}, fmt.Errorf("parsing redis url: %w", err)
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		tlsConfig = opt.TLSConfig.Clone()
		tlsConfig.InsecureSkipVerify = cfg.TLSInsecure
	} else if cfg.TLSInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Username:  opt.Username,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
