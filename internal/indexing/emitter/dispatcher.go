package emitter

import (
	"context"
	"log/slog"

	"github.com/vietddude/sqllogs/internal/core/domain"
	"github.com/vietddude/sqllogs/internal/indexing/metrics"
)

// Report summarises one dispatch.
type Report struct {
	Sent    map[domain.Destination]int
	Skipped map[domain.Destination]int
	Errors  map[domain.Destination]error
}

// Dispatcher routes classified events to their webhooks.
type Dispatcher struct {
	sender   Sender
	renderer *Renderer
	hooks    map[domain.Destination]Webhook
	log      *slog.Logger
}

// NewDispatcher creates a dispatcher for the internal and external hooks.
func NewDispatcher(sender Sender, renderer *Renderer, internal, external Webhook, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		sender:   sender,
		renderer: renderer,
		hooks: map[domain.Destination]Webhook{
			domain.DestinationInternal: internal,
			domain.DestinationExternal: external,
		},
		log: logger,
	}
}

// Dispatch posts the internal partition then the external one. Events go out
// in order; the first failure stops its partition so later events are never
// shown ahead of an earlier one. The other partition is unaffected.
func (d *Dispatcher) Dispatch(ctx context.Context, p domain.Partition) Report {
	report := Report{
		Sent:    make(map[domain.Destination]int),
		Skipped: make(map[domain.Destination]int),
		Errors:  make(map[domain.Destination]error),
	}
	d.send(ctx, domain.DestinationInternal, p.Internal, &report)
	d.send(ctx, domain.DestinationExternal, p.External, &report)
	return report
}

func (d *Dispatcher) send(ctx context.Context, dest domain.Destination, events []domain.ClassifiedEvent, report *Report) {
	if len(events) == 0 {
		return
	}
	hook := d.hooks[dest]
	if !hook.Configured() {
		d.log.Warn("Webhook not configured, dropping events", "destination", dest, "count", len(events))
		report.Skipped[dest] = len(events)
		metrics.EventsDispatched.WithLabelValues(string(dest), "skipped").Add(float64(len(events)))
		return
	}

	for i, ev := range events {
		if err := d.sender.Send(ctx, hook, d.renderer.Render(ev)); err != nil {
			d.log.Error("Failed to post event",
				"destination", dest,
				"chain", ev.ChainID,
				"block", ev.BlockNumber,
				"tx", ev.TxHash,
				"error", err,
			)
			report.Errors[dest] = err
			report.Skipped[dest] = len(events) - i
			metrics.EventsDispatched.WithLabelValues(string(dest), "failed").Inc()
			return
		}
		report.Sent[dest]++
		metrics.EventsDispatched.WithLabelValues(string(dest), "sent").Inc()
	}
	d.log.Info("Posted events", "destination", dest, "count", len(events))
}
