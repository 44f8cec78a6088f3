// Package eventloop serialises UI state mutations onto a single goroutine.
//
// Components never lock their own state. User events, timer expiries and
// network completions are all posted to the loop and run one at a time in
// the order they were posted.
package eventloop

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type Loop struct {
	mu      sync.Mutex
	queue   []func()
	stopped bool

	wake      chan struct{}
	done      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

func New() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Start runs the loop on its own goroutine. Calling it twice is a no-op.
func (l *Loop) Start() {
	l.startOnce.Do(func() {
		go l.run()
	})
}

// Stop discards queued work and rejects further posts.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		l.mu.Lock()
		l.stopped = true
		l.queue = nil
		l.mu.Unlock()
		close(l.done)
	})
}

// Done is closed once Stop has been called.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Post enqueues fn and returns immediately. The queue is unbounded so posting
// from inside a loop callback never blocks. It reports false after Stop.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Call posts fn and waits for it to finish. It must not be used from a loop
// callback.
func (l *Loop) Call(fn func()) bool {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return false
	}
	select {
	case <-finished:
		return true
	case <-l.done:
		return false
	}
}

// Flush waits until everything posted before it has run.
func (l *Loop) Flush() {
	l.Call(func() {})
}

func (l *Loop) run() {
	for {
		select {
		case <-l.done:
			return
		case <-l.wake:
		}
		for {
			task := l.next()
			if task == nil {
				break
			}
			l.exec(task)
		}
	}
}

func (l *Loop) next() func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil
	}
	task := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return task
}

func (l *Loop) exec(task func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("eventloop: task panicked")
		}
	}()
	task()
}

// Timer is a cancellable delayed task. Stop must be called on the loop.
type Timer struct {
	t         *time.Timer
	cancelled bool
}

// AfterFunc runs fn on the loop after d unless the timer is stopped first.
// A timer that already expired but whose task is still queued is also
// suppressed by Stop.
func (l *Loop) AfterFunc(d time.Duration, fn func()) *Timer {
	tm := &Timer{}
	tm.t = time.AfterFunc(d, func() {
		l.Post(func() {
			if tm.cancelled {
				return
			}
			fn()
		})
	})
	return tm
}

func (t *Timer) Stop() {
	if t == nil {
		return
	}
	t.cancelled = true
	t.t.Stop()
}

// Await runs work on a new goroutine and resumes done on the loop with its
// result. Nothing cancels work once started.
func Await[T any](l *Loop, ctx context.Context, work func(context.Context) (T, error), done func(T, error)) {
	go func() {
		v, err := work(ctx)
		if !l.Post(func() { done(v, err) }) {
			log.Debug().Msg("eventloop: result dropped, loop stopped")
		}
	}()
}
