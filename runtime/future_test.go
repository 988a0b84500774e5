package runtime

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestDispatcher() *Dispatcher {
	return New(NewChanReadiness(8))
}

func TestFutureCompleteCallbackOrder(t *testing.T) {
	d := newTestDispatcher()
	fut := NewFuture[int](d)

	var order []int
	fut.AddCallback(func(any) { order = append(order, 1) }, nil)
	fut.AddCallback(func(any) { order = append(order, 2) }, nil)
	fut.AddCallback(func(any) { order = append(order, 3) }, nil)

	fut.Complete(42)
	d.Poll()

	require.Equal(t, []int{1, 2, 3}, order)

	v, err := fut.Read()
	require.NoError(t, err)
	require.Equal(t, 42, v)
}

func TestFutureDoubleCompletePanics(t *testing.T) {
	d := newTestDispatcher()
	fut := NewFuture[int](d)
	fut.Complete(1)

	require.Panics(t, func() { fut.Complete(2) })
}

func TestFutureFailReraisesAtRead(t *testing.T) {
	d := newTestDispatcher()
	fut := NewFuture[int](d)
	wantErr := errors.New("boom")
	fut.Fail(wantErr)
	d.Poll()

	_, err := fut.Read()
	require.ErrorIs(t, err, wantErr)
}

func TestFutureCancelWithoutCancelCallback(t *testing.T) {
	d := newTestDispatcher()
	fut := NewFuture[int](d)
	fut.Cancel()

	require.True(t, fut.Done())
	_, err := fut.Read()
	require.ErrorIs(t, err, ErrCancelled)
}

func TestFutureCancelInvokesCancelCallbackOnce(t *testing.T) {
	d := newTestDispatcher()
	fut := NewFuture[int](d)

	calls := 0
	fut.OnCancel(func() {
		calls++
		fut.Complete(7)
	})

	fut.Cancel()
	fut.Cancel() // second cancel on a now-terminal future is a no-op

	require.Equal(t, 1, calls)
	v, err := fut.Read()
	require.NoError(t, err)
	require.Equal(t, 7, v)
}

func TestSleepAsyncCompletesWithinBound(t *testing.T) {
	d := newTestDispatcher()
	const dur = 30 * time.Millisecond

	start := time.Now()
	fut := d.SleepAsync(dur)
	_, err := WaitFor(d, fut)
	elapsed := time.Since(start)

	require.NoError(t, err)
	require.GreaterOrEqual(t, elapsed, dur)
	require.Less(t, elapsed, dur*5)
}

func TestSleepAsyncCancelBeforeFiring(t *testing.T) {
	d := newTestDispatcher()
	fut := d.SleepAsync(time.Hour)

	CancelAndWait(d, fut)

	_, err := fut.Read()
	require.ErrorIs(t, err, ErrCancelled)
}

func TestWaitTimeoutReapsLoser(t *testing.T) {
	d := newTestDispatcher()
	never := NewFuture[int](d)

	_, ok, err := Wait(d, never, 20*time.Millisecond)

	require.False(t, ok)
	require.NoError(t, err)
	require.True(t, never.Done())
}

func TestWaitFutureWinsOverTimeout(t *testing.T) {
	d := newTestDispatcher()
	fut := NewFuture[int](d)
	fut.Complete(9)

	v, ok, err := Wait(d, fut, time.Hour)

	require.True(t, ok)
	require.NoError(t, err)
	require.Equal(t, 9, v)
}

func TestAllFuturesNeverFails(t *testing.T) {
	d := newTestDispatcher()
	a := NewFuture[int](d)
	b := NewFuture[int](d)

	all := AllFutures(d, []*Future[int]{a, b})
	require.False(t, all.Done())

	a.Complete(1)
	d.Poll()
	require.False(t, all.Done())

	b.Fail(errors.New("whatever"))
	d.Poll()

	require.True(t, all.Done())
	_, err := all.Read()
	require.NoError(t, err)
}

func TestAddIntervalFiresRepeatedly(t *testing.T) {
	d := newTestDispatcher()
	var count int

	stop := d.AddInterval(5*time.Millisecond, func() { count++ })

	deadline := time.Now().Add(100 * time.Millisecond)
	for count < 3 && time.Now().Before(deadline) {
		d.Poll()
	}

	stop.Complete(struct{}{})
	d.Poll()

	require.GreaterOrEqual(t, count, 3)
}
