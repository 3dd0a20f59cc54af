package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sourcegraph/conc/pool"
	"github.com/yukikurage/team-task-api/internal/logger"
)

const deliveryTimeout = 30 * time.Second

type item struct {
	name string
	run  Job
}

// Outbox is a bounded queue drained by a worker pool. When the queue is full
// new items are dropped and logged.
type Outbox struct {
	publisher Publisher
	queue     chan item
	workers   int
	logger    *slog.Logger
}

func NewOutbox(publisher Publisher, workers, buffer int, l *slog.Logger) *Outbox {
	if workers < 1 {
		workers = 1
	}
	if buffer < 1 {
		buffer = 1
	}
	return &Outbox{
		publisher: publisher,
		queue:     make(chan item, buffer),
		workers:   workers,
		logger:    logger.OrDefault(l).With("component", "outbox"),
	}
}

// Emit queues events for publication
func (o *Outbox) Emit(events ...Event) {
	for _, e := range events {
		o.enqueue(item{name: e.Name, run: publishJob(o.publisher, e)})
	}
}

// Submit queues a side effect
func (o *Outbox) Submit(name string, job Job) {
	o.enqueue(item{name: name, run: job})
}

func (o *Outbox) enqueue(it item) {
	select {
	case o.queue <- it:
	default:
		o.logger.Warn("outbox full, dropping item", "item", it.name)
	}
}

// Run drains the queue until ctx is cancelled, then delivers whatever is
// still queued and waits for in-flight work
func (o *Outbox) Run(ctx context.Context) {
	p := pool.New().WithMaxGoroutines(o.workers)
	base := context.WithoutCancel(ctx)

	for {
		select {
		case it := <-o.queue:
			p.Go(func() { deliver(base, it, o.logger) })
		case <-ctx.Done():
			for {
				select {
				case it := <-o.queue:
					p.Go(func() { deliver(base, it, o.logger) })
				default:
					p.Wait()
					return
				}
			}
		}
	}
}

// Pending returns the number of queued items
func (o *Outbox) Pending() int {
	return len(o.queue)
}

// Inline runs every item synchronously on the caller's goroutine
type Inline struct {
	publisher Publisher
	logger    *slog.Logger
}

func NewInline(publisher Publisher, l *slog.Logger) *Inline {
	return &Inline{publisher: publisher, logger: logger.OrDefault(l).With("component", "outbox")}
}

// Emit publishes events immediately
func (d *Inline) Emit(events ...Event) {
	for _, e := range events {
		deliver(context.Background(), item{name: e.Name, run: publishJob(d.publisher, e)}, d.logger)
	}
}

// Submit runs job immediately
func (d *Inline) Submit(name string, job Job) {
	deliver(context.Background(), item{name: name, run: job}, d.logger)
}

func publishJob(p Publisher, e Event) Job {
	return func(ctx context.Context) error {
		if p != nil {
			p.Publish(ctx, e)
		}
		return nil
	}
}

func deliver(ctx context.Context, it item, l *slog.Logger) {
	ctx, cancel := context.WithTimeout(ctx, deliveryTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			l.Error("outbox item panicked", "item", it.name, "panic", fmt.Sprint(r))
		}
	}()

	if err := it.run(ctx); err != nil {
		l.Warn("outbox item failed", "item", it.name, "error", err)
	}
}
