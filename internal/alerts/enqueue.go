package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/sudo-init-do/resalehub/internal/marketplace"
)

// taskRetention keeps finished tasks around long enough for TaskID to
// dedupe redelivered event batches.
const taskRetention = 24 * time.Hour

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Notifier is an engine subscriber that fans committed events out as
// notification tasks.
type Notifier struct {
	client enqueuer
	logger *slog.Logger
}

// NewNotifier wraps an asynq client.
func NewNotifier(client *asynq.Client, logger *slog.Logger) *Notifier {
	return newNotifier(client, logger)
}

func newNotifier(client enqueuer, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{client: client, logger: logger}
}

// HandleEvents implements engine.Handler. Each task id is derived from the
// event and recipient, so a retried batch does not notify twice.
func (n *Notifier) HandleEvents(ctx context.Context, events []marketplace.Event) error {
	for _, ev := range events {
		for _, p := range Compose(ev) {
			if err := n.enqueue(ctx, p); err != nil {
				return err
			}
		}
	}
	return nil
}

func (n *Notifier) enqueue(ctx context.Context, p NotifyPayload) error {
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal notify payload: %w", err)
	}
	task := asynq.NewTask(TaskNotify, b)
	_, err = n.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueAlerts),
		asynq.TaskID(p.EventID+":"+p.Recipient),
		asynq.MaxRetry(5),
		asynq.Retention(taskRetention),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		n.logger.Debug("notification already queued", "event_id", p.EventID, "to", p.Recipient)
		return nil
	}
	if err != nil {
		return fmt.Errorf("enqueue %s for %s: %w", p.Type, p.Recipient, err)
	}
	n.logger.Debug("notification queued", "type", p.Type, "to", p.Recipient, "seq", p.Seq)
	return nil
}
