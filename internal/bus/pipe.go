// Package bus provides the bounded message pipes that connect integrations to
// the agent.
//
// A pipe has exactly one Sender and one Receiver handle. Either side may be
// closed independently: closing the sender lets the receiver drain what is
// buffered and then report ErrEndOfStream; closing the receiver makes every
// later send fail with ErrClosed.
package bus

import (
	"context"
	"errors"
	"sync"

	"github.com/projectlily/lily/internal/schema"
)

// DefaultCapacity is the buffer size used by the router for every pipe.
const DefaultCapacity = 64

var (
	ErrClosed      = errors.New("channel closed")
	ErrFull        = errors.New("channel full")
	ErrEmpty       = errors.New("channel empty")
	ErrEndOfStream = errors.New("end of stream")
)

type pipe struct {
	name string
	ch   chan schema.Message

	senderDone   chan struct{}
	receiverDone chan struct{}
	senderOnce   sync.Once
	receiverOnce sync.Once
}

func (p *pipe) isClosed(done chan struct{}) bool {
	select {
	case <-done:
		return true
	default:
		return false
	}
}

// Sender is the writing end of a pipe. It is safe for concurrent use by
// several producers.
type Sender struct{ p *pipe }

// Receiver is the reading end of a pipe. It expects a single consumer.
type Receiver struct{ p *pipe }

// NewPipe creates a pipe buffering up to capacity messages.
func NewPipe(name string, capacity int) (*Sender, *Receiver) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	p := &pipe{
		name:         name,
		ch:           make(chan schema.Message, capacity),
		senderDone:   make(chan struct{}),
		receiverDone: make(chan struct{}),
	}
	return &Sender{p: p}, &Receiver{p: p}
}

func (s *Sender) Name() string { return s.p.name }

// Closed reports whether either end of the pipe has been closed.
func (s *Sender) Closed() bool {
	return s.p.isClosed(s.p.senderDone) || s.p.isClosed(s.p.receiverDone)
}

// Send blocks until msg is buffered, the pipe closes, or ctx is done.
func (s *Sender) Send(ctx context.Context, msg schema.Message) error {
	if s.Closed() {
		return ErrClosed
	}
	select {
	case s.p.ch <- msg:
		return nil
	case <-s.p.senderDone:
		return ErrClosed
	case <-s.p.receiverDone:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySend buffers msg without blocking.
func (s *Sender) TrySend(msg schema.Message) error {
	if s.Closed() {
		return ErrClosed
	}
	select {
	case s.p.ch <- msg:
		return nil
	default:
		return ErrFull
	}
}

// Close marks the sending side finished. Safe to call more than once.
func (s *Sender) Close() {
	s.p.senderOnce.Do(func() { close(s.p.senderDone) })
}

func (r *Receiver) Name() string { return r.p.name }

// Len reports how many messages are buffered.
func (r *Receiver) Len() int { return len(r.p.ch) }

// TryReceive returns the next buffered message without blocking.
// It returns ErrEmpty when nothing is buffered and ErrEndOfStream once the
// sender has closed and the buffer is exhausted.
func (r *Receiver) TryReceive() (schema.Message, error) {
	if r.p.isClosed(r.p.receiverDone) {
		return schema.Message{}, ErrClosed
	}
	select {
	case m := <-r.p.ch:
		return m, nil
	default:
	}
	if !r.p.isClosed(r.p.senderDone) {
		return schema.Message{}, ErrEmpty
	}
	// A send may have landed between the two checks.
	select {
	case m := <-r.p.ch:
		return m, nil
	default:
		return schema.Message{}, ErrEndOfStream
	}
}

// Receive blocks until a message arrives, the stream ends, or ctx is done.
func (r *Receiver) Receive(ctx context.Context) (schema.Message, error) {
	select {
	case m := <-r.p.ch:
		return m, nil
	case <-r.p.senderDone:
		return r.TryReceive()
	case <-r.p.receiverDone:
		return schema.Message{}, ErrClosed
	case <-ctx.Done():
		return schema.Message{}, ctx.Err()
	}
}

// Drain pulls every buffered message without waiting. The error is
// ErrEndOfStream when the pipe is finished, nil otherwise.
func (r *Receiver) Drain() ([]schema.Message, error) {
	var out []schema.Message
	for {
		m, err := r.TryReceive()
		switch {
		case err == nil:
			out = append(out, m)
		case errors.Is(err, ErrEmpty):
			return out, nil
		case errors.Is(err, ErrClosed):
			return out, ErrEndOfStream
		default:
			return out, err
		}
	}
}

// Close stops accepting messages. Safe to call more than once.
func (r *Receiver) Close() {
	r.p.receiverOnce.Do(func() { close(r.p.receiverDone) })
}

// TwoWay is one endpoint of a two-way channel: In carries messages towards
// this endpoint, Out carries messages away from it.
type TwoWay struct {
	Name string
	In   *Receiver
	Out  *Sender
}

// Close closes both halves held by this endpoint.
func (t TwoWay) Close() {
	t.In.Close()
	t.Out.Close()
}
