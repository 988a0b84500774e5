package runtime

import (
	"errors"
	"reflect"
)

// ErrCancelled is re-raised at every awaiter of a cancelled future.
var ErrCancelled = errors.New("cancelled")

// ErrFutureFinished is the value Complete/Fail panic with on a future that
// already reached a terminal state.
var ErrFutureFinished = errors.New("future already finished")

type futureState uint8

const (
	pending futureState = iota
	completed
	failed
	cancelled
)

type callback struct {
	fn    func(udata any)
	udata any
}

// Future is a single-assignment result slot with an ordered callback list:
// it holds at most one of {pending, completed(value), failed(error),
// cancelled}. Transitions only ever leave pending, callbacks fire in
// registration order and each fires exactly once.
//
// A Future is owned by its producer (whoever calls Complete/Fail/OnCancel);
// any number of consumers may Read, AddCallback, or Cancel it.
type Future[T any] struct {
	state   futureState
	value   T
	err     error
	cbs     []callback
	oncancel func()
	d       *Dispatcher
}

// NewFuture allocates a pending future bound to d. d is the dispatcher whose
// ready FIFO receives this future's callbacks on completion.
func NewFuture[T any](d *Dispatcher) *Future[T] {
	return &Future[T]{d: d}
}

// Done reports whether the future reached a terminal state.
func (f *Future[T]) Done() bool {
	return f.state != pending
}

// OnCancel installs the cancel callback a producer uses to observe
// cancellation cooperatively. Only one may be installed.
func (f *Future[T]) OnCancel(cb func()) {
	f.oncancel = cb
}

// Complete transitions a pending future to completed(value) and schedules
// every registered callback onto the dispatcher's ready FIFO in insertion
// order. Completing a non-pending future panics: double-completion is a
// programmer error, not a recoverable one.
func (f *Future[T]) Complete(value T) {
	if f.state != pending {
		panic(ErrFutureFinished)
	}

	f.value = value
	f.state = completed
	f.schedule()
}

// Fail transitions a pending future to failed(err).
func (f *Future[T]) Fail(err error) {
	if f.state != pending {
		panic(ErrFutureFinished)
	}

	f.err = err
	f.state = failed
	f.schedule()
}

// Cancel requests cancellation. If a cancel callback was installed, it runs
// synchronously and the producer is trusted to race the future to a terminal
// state on its own; otherwise the future transitions to cancelled right
// away.
func (f *Future[T]) Cancel() {
	if f.state != pending {
		return
	}

	if f.oncancel != nil {
		f.oncancel()
		return
	}

	f.state = cancelled
	f.schedule()
}

// Read returns the value of a terminal future, re-raising its error or
// "cancelled" as appropriate. Calling Read on a pending future is a defect.
func (f *Future[T]) Read() (T, error) {
	switch f.state {
	case completed:
		return f.value, nil
	case failed:
		var zero T
		return zero, f.err
	case cancelled:
		var zero T
		return zero, ErrCancelled
	default:
		panic("read of a pending future")
	}
}

// AddCallback appends cb to the FIFO, invoked with udata once the future
// becomes terminal. If the future is already terminal, cb is scheduled
// immediately to preserve "fires exactly once, in order relative to other
// schedules caused by this call".
func (f *Future[T]) AddCallback(cb func(udata any), udata any) {
	if f.state == pending {
		f.cbs = append(f.cbs, callback{fn: cb, udata: udata})
		return
	}

	f.d.enqueue(func() { cb(udata) })
}

// RemoveCallback removes the first registered callback matching both fn and
// udata identities. udata must be comparable.
func (f *Future[T]) RemoveCallback(cb func(udata any), udata any) {
	target := reflect.ValueOf(cb).Pointer()

	for i, c := range f.cbs {
		if reflect.ValueOf(c.fn).Pointer() == target && c.udata == udata {
			f.cbs = append(f.cbs[:i], f.cbs[i+1:]...)
			return
		}
	}
}

func (f *Future[T]) schedule() {
	cbs := f.cbs
	f.cbs = nil

	for _, c := range cbs {
		c := c
		f.d.enqueue(func() { c.fn(c.udata) })
	}
}
