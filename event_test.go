package gpu

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEventSetResetIdempotent(t *testing.T) {
	env := newTestEnv(t)

	event, err := env.device.CreateEvent()
	require.NoError(t, err)
	require.False(t, event.Signaled())

	event.Set()
	event.Set()
	require.True(t, event.Signaled())
	require.NoError(t, event.Wait(time.Second))

	event.Reset()
	event.Reset()
	require.False(t, event.Signaled())
}

func TestEventWaitTimeout(t *testing.T) {
	env := newTestEnv(t)

	event, err := env.device.CreateEvent()
	require.NoError(t, err)

	err = event.Wait(20 * time.Millisecond)
	require.ErrorIs(t, err, ErrTimeout)
}

func TestEventSetFromSubmission(t *testing.T) {
	env := newTestEnv(t)

	event, err := env.device.CreateEvent()
	require.NoError(t, err)

	gate := make(chan struct{})
	require.NoError(t, env.queue.Submit(nil, []SubmitOptions{
		{
			Work:      func() { <-gate },
			SetEvents: []*Event{event},
		},
	}))

	require.False(t, event.Signaled())
	close(gate)
	require.NoError(t, event.Wait(time.Second))
}

func TestEventManyWaiters(t *testing.T) {
	env := newTestEnv(t)

	event, err := env.device.CreateEvent()
	require.NoError(t, err)

	done := make(chan error, 3)
	for i := 0; i < 3; i++ {
		go func() {
			done <- event.Wait(time.Second)
		}()
	}

	event.Set()
	for i := 0; i < 3; i++ {
		require.NoError(t, <-done)
	}
}
