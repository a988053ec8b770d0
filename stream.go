package netbound

import (
	"context"
	"sync"
)

// maxEmissions bounds one invocation: Loading, an interim cache Success and
// the final state. The channel is buffered to it so producers never block.
const maxEmissions = 3

// Stream is the ordered sequence of states of one invocation.
// The channel returned by States is closed after the final state, or without
// one when the invocation was superseded or cancelled.
type Stream[T any] struct {
	ch chan State[T]

	start func() // lazy streams only
	once  sync.Once

	stop func() bool
}

func newStream[T any]() *Stream[T] {
	return &Stream[T]{ch: make(chan State[T], maxEmissions)}
}

// States starts a lazy stream on first call and returns its channel.
func (s *Stream[T]) States() <-chan State[T] {
	s.once.Do(func() {
		if s.start != nil {
			s.start()
		}
	})
	return s.ch
}

// Close tells the producer the consumer stopped observing. The invocation is
// cancelled and emits nothing further; a newer invocation in the same slot is
// not affected.
func (s *Stream[T]) Close() {
	if s.stop != nil {
		s.stop()
	}
}

// Collect drains the stream. On ctx expiry it returns what it has so far.
func (s *Stream[T]) Collect(ctx context.Context) ([]State[T], error) {
	var out []State[T]
	ch := s.States()
	for {
		select {
		case st, ok := <-ch:
			if !ok {
				return out, nil
			}
			out = append(out, st)
		case <-ctx.Done():
			return out, ctx.Err()
		}
	}
}

// Last drains the stream and returns its last state and whether the stream
// produced anything at all.
func (s *Stream[T]) Last(ctx context.Context) (State[T], bool, error) {
	all, err := s.Collect(ctx)
	if len(all) == 0 {
		var zero State[T]
		return zero, false, err
	}
	return all[len(all)-1], true, err
}

// Fail returns a stream holding a single final Error. Nothing is produced
// until the stream is first observed, so an unobserved failure costs nothing.
func Fail[T any](msg string, p Presentation, cause ErrorCause) *Stream[T] {
	s := newStream[T]()
	s.start = func() {
		s.ch <- Failure[T](msg, resolvePresentation(p), cause)
		close(s.ch)
	}
	return s
}

// Idle returns a stream with no work and no emissions.
func Idle[T any]() *Stream[T] {
	s := newStream[T]()
	close(s.ch)
	return s
}
