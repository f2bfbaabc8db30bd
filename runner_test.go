package detektor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
)

func TestRunner(t *testing.T) {
	t.Run("serializes pushes from many goroutines", func(t *testing.T) {
		g := New()

		seen := 0
		d := struct{}{}
		n := NewDetector(g, d)
		MustSubscribe(n, func(eventHappened) { seen++ })

		evaluations := 0
		r := NewRunner(g, WithOutputs(func([]TopicState) { evaluations++ }))

		ctx, cancel := context.WithCancel(context.Background())
		runErr := make(chan error, 1)
		go func() { runErr <- r.Run(ctx) }()

		const pushers, perPusher = 4, 25
		var wg sync.WaitGroup
		for i := 0; i < pushers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < perPusher; j++ {
					assert.NoError(t, Send(r, eventHappened{}))
				}
			}()
		}
		wg.Wait()

		// Wait until the loop has absorbed everything.
		deadline := time.After(5 * time.Second)
		for {
			settled := make(chan bool, 1)
			assert.NoError(t, r.Do(func() error {
				settled <- seen == pushers*perPusher
				return nil
			}))
			select {
			case ok := <-settled:
				if ok {
					cancel()
					assert.NoError(t, <-runErr)
					assert.Equal(t, pushers*perPusher, seen)
					assert.Equal(t, pushers*perPusher, evaluations)
					return
				}
			case <-deadline:
				t.Fatal("runner did not settle")
			}
		}
	})

	t.Run("Close stops the loop", func(t *testing.T) {
		g := New()
		r := NewRunner(g)

		runErr := make(chan error, 1)
		go func() { runErr <- r.Run(context.Background()) }()

		// Give the loop a chance to start, then stop it.
		assert.NoError(t, r.Do(func() error { return nil }))
		r.Close()
		assert.NoError(t, <-runErr)
	})

	t.Run("Send after close fails eventually", func(t *testing.T) {
		g := New()
		r := NewRunner(g)

		ctx, cancel := context.WithCancel(context.Background())
		runErr := make(chan error, 1)
		go func() { runErr <- r.Run(ctx) }()
		cancel()
		assert.NoError(t, <-runErr)

		// Once the loop has exited, sends fail with ErrRunnerClosed
		// instead of being queued or blocking forever.
		var err error
		for i := 0; i < 1000; i++ {
			if err = Send(r, eventHappened{}); err != nil {
				break
			}
		}
		assert.True(t, errors.Is(err, ErrRunnerClosed))
	})

	t.Run("system timer driver delivers on the runner goroutine", func(t *testing.T) {
		g := New()
		r := NewRunner(g)
		driver := NewSystemTimerDriver(r)
		svc := NewTimeoutPublisherService(g, driver)

		fired := make(chan struct{})
		d := &struct{ timeout TimeoutPublisher[pulseLike] }{}
		n := NewDetector(g, d)
		MustSubscribe(n, func(pulseLike) { close(fired) })
		d.timeout = MustNewTimeoutPublisher[pulseLike](n, svc)

		r.OnClose(func() error { driver.Close(); return nil })

		ctx, cancel := context.WithCancel(context.Background())
		runErr := make(chan error, 1)
		go func() { runErr <- r.Run(ctx) }()

		assert.NoError(t, r.Do(func() error {
			ScheduleTimeout(svc, pulseLike{}, 10*time.Millisecond, svc.UniqueTimerHandle())
			return nil
		}))

		select {
		case <-fired:
		case <-time.After(5 * time.Second):
			t.Fatal("timeout never fired")
		}

		cancel()
		assert.NoError(t, <-runErr)
	})
}

type pulseLike struct{}
