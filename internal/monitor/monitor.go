// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package monitor polls a classification and tells observers when it changes.
//
// A Monitor is dormant until the first observer registers. From then on a
// single goroutine polls on a fixed interval, compares each value with the
// previous tick and notifies every observer, in registration order, with the
// new value. The first tick only records a baseline.
package monitor

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// DefaultInterval is the polling period used when WithInterval is not given.
const DefaultInterval = 100 * time.Millisecond

// Observer receives the newly classified value after a transition.
type Observer[T comparable] func(value T)

// PollFunc produces the current classification.
type PollFunc[T comparable] func() (T, error)

// Option configures a Monitor.
type Option func(*options)

type options struct {
	interval time.Duration
}

// WithInterval overrides the polling period. Non-positive values are ignored.
func WithInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.interval = d
		}
	}
}

// Monitor watches one classification stream.
type Monitor[T comparable] struct {
	name     string
	poll     PollFunc[T]
	interval time.Duration

	mu        sync.Mutex
	observers []Observer[T]
	started   bool
	last      T
	hasLast   bool

	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// New creates a dormant monitor. name is used in log fields only.
func New[T comparable](name string, poll PollFunc[T], opts ...Option) *Monitor[T] {
	o := options{interval: DefaultInterval}
	for _, opt := range opts {
		opt(&o)
	}
	return &Monitor[T]{
		name:     name,
		poll:     poll,
		interval: o.interval,
		done:     make(chan struct{}),
	}
}

// Name returns the stream name.
func (m *Monitor[T]) Name() string { return m.name }

// Interval returns the polling period.
func (m *Monitor[T]) Interval() time.Duration { return m.interval }

// Register appends obs to the observer list. The first call starts the
// polling loop, bound to ctx; later calls reuse the running loop and ignore ctx.
func (m *Monitor[T]) Register(ctx context.Context, obs Observer[T]) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.observers = append(m.observers, obs)
	if m.started {
		return
	}
	m.started = true

	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	go m.run(loopCtx)
}

// Stop cancels the polling loop. It is safe to call more than once and on a
// monitor that never started.
func (m *Monitor[T]) Stop() {
	m.stopOnce.Do(func() {
		m.mu.Lock()
		cancel := m.cancel
		started := m.started
		// a later Register must not resurrect a stopped monitor
		m.started = true
		m.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		if !started {
			close(m.done)
		}
	})
}

// Done is closed once the polling loop has exited.
func (m *Monitor[T]) Done() <-chan struct{} {
	return m.done
}

// Last returns the value recorded on the most recent successful tick.
func (m *Monitor[T]) Last() (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last, m.hasLast
}

func (m *Monitor[T]) run(ctx context.Context) {
	defer close(m.done)

	logger := log.WithField("stream", m.name)
	logger.Debugf("monitor started, interval %v", m.interval)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		m.tick(logger)

		select {
		case <-ctx.Done():
			logger.Debug("monitor stopped")
			return
		case <-ticker.C:
		}
	}
}

// tick runs one poll and dispatches a notification if the value moved.
// It reports whether observers were notified.
func (m *Monitor[T]) tick(logger *log.Entry) bool {
	current, err := m.poll()
	if err != nil {
		logger.Warnf("poll failed, skipping tick: %v", err)
		return false
	}

	m.mu.Lock()
	changed := m.hasLast && current != m.last
	m.last = current
	m.hasLast = true
	observers := make([]Observer[T], len(m.observers))
	copy(observers, m.observers)
	m.mu.Unlock()

	if !changed {
		return false
	}
	logger.Debugf("transition to %v", current)
	for _, obs := range observers {
		obs(current)
	}
	return true
}
