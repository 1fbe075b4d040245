package engine

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sudo-init-do/resalehub/internal/marketplace"
)

const (
	defaultBatch = 100
	minBackoff   = 100 * time.Millisecond
	maxBackoff   = 10 * time.Second
)

// Handler consumes committed events in Seq order. A returned error makes the
// engine redeliver the same batch after a backoff, so handlers must be
// idempotent.
type Handler interface {
	HandleEvents(ctx context.Context, events []marketplace.Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, events []marketplace.Event) error

func (f HandlerFunc) HandleEvents(ctx context.Context, events []marketplace.Event) error {
	return f(ctx, events)
}

type subscription struct {
	name   string
	h      Handler
	batch  int
	cursor atomic.Uint64
	fails  atomic.Uint64
}

// SubscriberStatus reports how far a subscriber has read.
type SubscriberStatus struct {
	Name     string `json:"name"`
	Cursor   uint64 `json:"cursor"`
	Failures uint64 `json:"failures"`
}

// Subscribe registers h to receive every event with Seq greater than from.
// batch <= 0 uses the default batch size. Subscribers added after Start begin
// immediately.
func (e *Engine) Subscribe(name string, h Handler, from uint64, batch int) {
	if batch <= 0 {
		batch = defaultBatch
	}
	s := &subscription{name: name, h: h, batch: batch}
	s.cursor.Store(from)

	e.subMu.Lock()
	defer e.subMu.Unlock()
	e.subs = append(e.subs, s)
	if e.running {
		e.wg.Add(1)
		go e.run(e.ctx, s)
	}
}

// Start launches one delivery goroutine per subscriber.
func (e *Engine) Start(ctx context.Context) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	if e.running {
		return
	}
	e.ctx, e.cancel = context.WithCancel(ctx)
	e.running = true
	for _, s := range e.subs {
		e.wg.Add(1)
		go e.run(e.ctx, s)
	}
	e.log.Info("event delivery started", "subscribers", len(e.subs), "last_seq", e.LastSeq())
}

// Stop cancels delivery and waits for every subscriber goroutine to return.
func (e *Engine) Stop() {
	e.subMu.Lock()
	if !e.running {
		e.subMu.Unlock()
		return
	}
	e.running = false
	e.cancel()
	e.subMu.Unlock()
	e.wg.Wait()
}

// Subscribers lists delivery progress per subscriber.
func (e *Engine) Subscribers() []SubscriberStatus {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	out := make([]SubscriberStatus, 0, len(e.subs))
	for _, s := range e.subs {
		out = append(out, SubscriberStatus{
			Name:     s.name,
			Cursor:   s.cursor.Load(),
			Failures: s.fails.Load(),
		})
	}
	return out
}

func (e *Engine) run(ctx context.Context, s *subscription) {
	defer e.wg.Done()
	backoff := minBackoff
	for {
		e.mu.RLock()
		batch := e.reg.Events(s.cursor.Load(), s.batch)
		wait := e.changed
		e.mu.RUnlock()

		if len(batch) == 0 {
			select {
			case <-ctx.Done():
				return
			case <-wait:
			}
			continue
		}

		if err := s.h.HandleEvents(ctx, batch); err != nil {
			if ctx.Err() != nil {
				return
			}
			s.fails.Add(1)
			e.log.Warn("subscriber failed, retrying",
				"subscriber", s.name,
				"from_seq", batch[0].Seq,
				"backoff", backoff,
				"err", err,
			)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}
		s.cursor.Store(batch[len(batch)-1].Seq)
		backoff = minBackoff
	}
}
