package runtime

import "time"

// SleepAsync returns a future completed after d elapses. Cancelling it
// removes the timer from the heap in O(log n).
func (d *Dispatcher) SleepAsync(dur time.Duration) *Future[struct{}] {
	fut := NewFuture[struct{}](d)
	entry := d.addTimer(time.Now().Add(dur), func() {
		if !fut.Done() {
			fut.Complete(struct{}{})
		}
	})

	fut.OnCancel(func() {
		d.cancelTimer(entry)
		fut.state = cancelled
		fut.schedule()
	})

	return fut
}

// CancelAndWait issues Cancel then waits for fut to become terminal,
// reaping it so no orphan future remains.
func CancelAndWait[T any](d *Dispatcher, fut *Future[T]) {
	fut.Cancel()
	for !fut.Done() {
		d.Poll()
	}
}

// Wait composes a timer with fut: whichever fires first wins, the loser is
// cancelled and reaped before Wait returns. It returns ok=false if the
// timeout elapsed first.
func Wait[T any](d *Dispatcher, fut *Future[T], timeout time.Duration) (value T, ok bool, err error) {
	if fut.Done() {
		value, err = fut.Read()
		return value, true, err
	}

	timer := d.SleepAsync(timeout)

	for !fut.Done() && !timer.Done() {
		d.Poll()
	}

	if fut.Done() {
		if !timer.Done() {
			CancelAndWait(d, timer)
		}

		value, err = fut.Read()
		return value, true, err
	}

	CancelAndWait(d, fut)

	var zero T
	return zero, false, nil
}

// AllFutures completes, never failing, once every element of fs is
// terminal.
func AllFutures[T any](d *Dispatcher, fs []*Future[T]) *Future[struct{}] {
	out := NewFuture[struct{}](d)

	if len(fs) == 0 {
		out.Complete(struct{}{})
		return out
	}

	remaining := len(fs)

	for _, f := range fs {
		f.AddCallback(func(any) {
			remaining--
			if remaining == 0 && !out.Done() {
				out.Complete(struct{}{})
			}
		}, nil)
	}

	return out
}

// IntervalHandle cancels a running interval when completed.
type IntervalHandle = *Future[struct{}]

// AddInterval invokes cb every d, measured from the previous scheduling (not
// the previous completion), until the returned future is completed. A panic
// raised by cb terminates the interval.
func (d *Dispatcher) AddInterval(dur time.Duration, cb func()) IntervalHandle {
	stop := NewFuture[struct{}](d)

	var schedule func(from time.Time)
	schedule = func(from time.Time) {
		if stop.Done() {
			return
		}

		next := from.Add(dur)
		entry := d.addTimer(next, func() {
			if stop.Done() {
				return
			}

			cb()
			schedule(next)
		})

		stop.OnCancel(func() {
			d.cancelTimer(entry)
			if !stop.Done() {
				stop.state = cancelled
				stop.schedule()
			}
		})
	}

	schedule(time.Now())

	return stop
}
