package channels

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/projectlily/lily/internal/bus"
	"github.com/projectlily/lily/internal/schema"
)

// DefaultSendTimeout bounds how long a broadcast waits on one full channel.
const DefaultSendTimeout = 2 * time.Second

// Router owns the agent-facing ends of every channel. Integrations get the
// other end and never see each other; the agent loop sees one inbound stream
// (DrainInbound) and one outbound sink (Broadcast).
type Router struct {
	capacity    int
	sendTimeout time.Duration

	mu       sync.Mutex
	inbound  []*bus.Receiver
	outbound []*bus.Sender
}

// RouterOption customises a Router.
type RouterOption func(*Router)

// WithCapacity sets the buffer size of every pipe the router creates.
func WithCapacity(n int) RouterOption {
	return func(r *Router) {
		if n > 0 {
			r.capacity = n
		}
	}
}

// WithSendTimeout sets how long Broadcast waits on a full channel. Zero
// makes a full channel fail immediately.
func WithSendTimeout(d time.Duration) RouterOption {
	return func(r *Router) { r.sendTimeout = d }
}

// NewRouter creates an empty Router.
func NewRouter(opts ...RouterOption) *Router {
	r := &Router{capacity: bus.DefaultCapacity, sendTimeout: DefaultSendTimeout}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// OpenTwoWay creates name_to_agent and name_to_external, keeps the agent-side
// halves and returns the external endpoint.
func (r *Router) OpenTwoWay(name string) bus.TwoWay {
	toAgentTx, toAgentRx := bus.NewPipe(bus.ToAgent(name), r.capacity)
	toExternalTx, toExternalRx := bus.NewPipe(bus.ToExternal(name), r.capacity)

	r.mu.Lock()
	r.inbound = append(r.inbound, toAgentRx)
	r.outbound = append(r.outbound, toExternalTx)
	r.mu.Unlock()

	slog.Debug("channel opened", "name", name, "kind", "two-way")
	return bus.TwoWay{Name: name, In: toExternalRx, Out: toAgentTx}
}

// OpenInbound creates a channel an integration only ever writes to.
func (r *Router) OpenInbound(name string) *bus.Sender {
	tx, rx := bus.NewPipe(bus.ToAgent(name), r.capacity)

	r.mu.Lock()
	r.inbound = append(r.inbound, rx)
	r.mu.Unlock()

	slog.Debug("channel opened", "name", name, "kind", "inbound")
	return tx
}

// OpenOutbound creates a channel an integration only ever reads from.
func (r *Router) OpenOutbound(name string) *bus.Receiver {
	tx, rx := bus.NewPipe(bus.ToExternal(name), r.capacity)

	r.mu.Lock()
	r.outbound = append(r.outbound, tx)
	r.mu.Unlock()

	slog.Debug("channel opened", "name", name, "kind", "outbound")
	return rx
}

// DrainInbound collects every buffered inbound message without waiting.
// Messages from one channel keep their order; channels are visited in the
// order they were opened. Channels whose sender has closed are retired.
func (r *Router) DrainInbound() []schema.Message {
	r.mu.Lock()
	receivers := slices.Clone(r.inbound)
	r.mu.Unlock()

	var (
		out     []schema.Message
		retired []*bus.Receiver
	)
	for _, rx := range receivers {
		msgs, err := rx.Drain()
		out = append(out, msgs...)
		if err != nil {
			slog.Info("inbound channel closed, skipping", "channel", rx.Name(), "err", err)
			retired = append(retired, rx)
		}
	}

	if len(retired) > 0 {
		r.mu.Lock()
		r.inbound = slices.DeleteFunc(r.inbound, func(rx *bus.Receiver) bool {
			return slices.Contains(retired, rx)
		})
		r.mu.Unlock()
	}
	return out
}

// DeliveryFailure records one channel a broadcast could not reach.
type DeliveryFailure struct {
	Channel string
	Err     error
}

// BroadcastReport summarises one Broadcast call.
type BroadcastReport struct {
	Delivered []string
	Failed    []DeliveryFailure
}

// Err joins the failures, or returns nil when every channel was reached.
func (rep BroadcastReport) Err() error {
	errs := make([]error, 0, len(rep.Failed))
	for _, f := range rep.Failed {
		errs = append(errs, fmt.Errorf("%s: %w", f.Channel, f.Err))
	}
	return errors.Join(errs...)
}

// Broadcast sends a copy of msg to every outbound channel concurrently.
// A failing channel never blocks or fails the others; failures are logged and
// reported. Channels whose receiver has closed are retired.
func (r *Router) Broadcast(ctx context.Context, msg schema.Message) BroadcastReport {
	r.mu.Lock()
	senders := slices.Clone(r.outbound)
	r.mu.Unlock()

	var (
		mu      sync.Mutex
		report  BroadcastReport
		retired []*bus.Sender
		g       errgroup.Group
	)
	for _, tx := range senders {
		g.Go(func() error {
			err := r.deliver(ctx, tx, msg)

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				report.Delivered = append(report.Delivered, tx.Name())
				return nil
			}
			report.Failed = append(report.Failed, DeliveryFailure{Channel: tx.Name(), Err: err})
			if errors.Is(err, bus.ErrClosed) {
				retired = append(retired, tx)
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(report.Delivered)
	sort.Slice(report.Failed, func(i, j int) bool { return report.Failed[i].Channel < report.Failed[j].Channel })

	for _, f := range report.Failed {
		slog.Warn("broadcast failed", "channel", f.Channel, "err", f.Err)
	}

	if len(retired) > 0 {
		r.mu.Lock()
		r.outbound = slices.DeleteFunc(r.outbound, func(tx *bus.Sender) bool {
			return slices.Contains(retired, tx)
		})
		r.mu.Unlock()
	}
	return report
}

func (r *Router) deliver(ctx context.Context, tx *bus.Sender, msg schema.Message) error {
	err := tx.TrySend(msg)
	if !errors.Is(err, bus.ErrFull) || r.sendTimeout <= 0 {
		return err
	}
	sendCtx, cancel := context.WithTimeout(ctx, r.sendTimeout)
	defer cancel()
	return tx.Send(sendCtx, msg)
}

// Channels lists the live pipes by name.
func (r *Router) Channels() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.inbound)+len(r.outbound))
	for _, rx := range r.inbound {
		names = append(names, rx.Name())
	}
	for _, tx := range r.outbound {
		names = append(names, tx.Name())
	}
	sort.Strings(names)
	return names
}

// Close closes every agent-side endpoint so integrations see end-of-stream.
func (r *Router) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rx := range r.inbound {
		rx.Close()
	}
	for _, tx := range r.outbound {
		tx.Close()
	}
	r.inbound = nil
	r.outbound = nil
}
