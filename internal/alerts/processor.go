package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
)

// Processor runs the asynq worker that delivers notification tasks into
// inboxes.
type Processor struct {
	server *asynq.Server
	inbox  *Inbox
	logger *slog.Logger
}

// NewProcessor creates a worker; call Start to begin consuming.
func NewProcessor(opt asynq.RedisClientOpt, inbox *Inbox, concurrency int, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	srv := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			QueueAlerts: 10,
		},
	})
	return &Processor{server: srv, inbox: inbox, logger: logger}
}

// Start begins processing in the background.
func (p *Processor) Start() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskNotify, p.handleNotify)
	if err := p.server.Start(mux); err != nil {
		return fmt.Errorf("start alerts worker: %w", err)
	}
	p.logger.Info("alerts worker started")
	return nil
}

// Shutdown waits for in-flight tasks and stops the worker.
func (p *Processor) Shutdown() {
	p.server.Shutdown()
}

func (p *Processor) handleNotify(ctx context.Context, t *asynq.Task) error {
	var n NotifyPayload
	if err := json.Unmarshal(t.Payload(), &n); err != nil {
		// malformed payloads will never succeed
		return fmt.Errorf("decode notify payload: %v: %w", err, asynq.SkipRetry)
	}
	if err := p.inbox.Push(ctx, n.Recipient, n.notification()); err != nil {
		p.logger.Error("notification delivery failed", "to", n.Recipient, "event_id", n.EventID, "err", err)
		return err
	}
	p.logger.Info("notification delivered", "type", n.Type, "to", n.Recipient, "seq", n.Seq)
	return nil
}
