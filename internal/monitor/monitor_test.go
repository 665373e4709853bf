package monitor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// script replays values, repeating the final one once exhausted.
type script[T comparable] struct {
	mu     sync.Mutex
	values []T
	errs   map[int]error
	calls  int
}

func (s *script[T]) poll() (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	if err, ok := s.errs[i]; ok {
		var zero T
		return zero, err
	}
	if i >= len(s.values) {
		i = len(s.values) - 1
	}
	return s.values[i], nil
}

type recorder[T comparable] struct {
	mu  sync.Mutex
	got []T
}

func (r *recorder[T]) observe(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, v)
}

func (r *recorder[T]) values() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]T, len(r.got))
	copy(out, r.got)
	return out
}

func stepN[T comparable](m *Monitor[T], n int) {
	logger := log.WithField("stream", m.name)
	for i := 0; i < n; i++ {
		m.tick(logger)
	}
}

func TestTickTransitions(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   []string
	}{
		{name: "first tick is silent", values: []string{"top"}, want: nil},
		{name: "stable never fires", values: []string{"top", "top", "top", "top"}, want: nil},
		{name: "one transition", values: []string{"top", "top", "left", "left"}, want: []string{"left"}},
		{name: "change and change back", values: []string{"top", "left", "top"}, want: []string{"left", "top"}},
		{name: "every tick differs", values: []string{"a", "b", "c", "d"}, want: []string{"b", "c", "d"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &script[string]{values: tt.values}
			m := New("test", s.poll)
			rec := &recorder[string]{}
			m.observers = append(m.observers, rec.observe)

			stepN(m, len(tt.values))
			assert.Equal(t, tt.want, rec.got)

			last, ok := m.Last()
			require.True(t, ok)
			assert.Equal(t, tt.values[len(tt.values)-1], last)
		})
	}
}

func TestTickNotifiesObserversInOrder(t *testing.T) {
	s := &script[int]{values: []int{1, 2}}
	m := New("order", s.poll)

	var order []string
	m.observers = append(m.observers,
		func(v int) { order = append(order, "first") },
		func(v int) { order = append(order, "second") },
	)

	stepN(m, 2)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestTickSkipsPollErrors(t *testing.T) {
	s := &script[int]{
		values: []int{1, 1, 2, 2},
		errs:   map[int]error{1: errors.New("nack")},
	}
	m := New("errors", s.poll)
	rec := &recorder[int]{}
	m.observers = append(m.observers, rec.observe)

	// calls: 0 -> 1 (baseline), 1 -> error, 2 -> 2 (transition), 3 -> 2
	stepN(m, 4)
	assert.Equal(t, []int{2}, rec.got)
}

func TestErrorOnFirstTickKeepsNoBaseline(t *testing.T) {
	s := &script[int]{
		values: []int{0, 5, 5},
		errs:   map[int]error{0: errors.New("nack")},
	}
	m := New("baseline", s.poll)
	rec := &recorder[int]{}
	m.observers = append(m.observers, rec.observe)

	stepN(m, 1)
	_, ok := m.Last()
	assert.False(t, ok)

	stepN(m, 2)
	assert.Empty(t, rec.got)
}

func TestRegisterStartsLoopOnce(t *testing.T) {
	var flipped atomic.Bool
	var polls atomic.Int32
	poll := func() (string, error) {
		polls.Add(1)
		if flipped.Load() {
			return "down", nil
		}
		return "up", nil
	}
	m := New("loop", poll, WithInterval(time.Millisecond))

	a := &recorder[string]{}
	b := &recorder[string]{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m.Register(ctx, a.observe)
	m.Register(ctx, b.observe)

	require.Eventually(t, func() bool {
		_, ok := m.Last()
		return ok
	}, time.Second, time.Millisecond)
	flipped.Store(true)

	require.Eventually(t, func() bool {
		return len(a.values()) == 1 && len(b.values()) == 1
	}, time.Second, time.Millisecond)

	// stable from here on
	before := polls.Load()
	require.Eventually(t, func() bool { return polls.Load() > before+3 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{"down"}, a.values())
	assert.Equal(t, []string{"down"}, b.values())

	cancel()
	select {
	case <-m.Done():
	case <-time.After(time.Second):
		t.Fatal("monitor did not exit after context cancellation")
	}
}

func TestStop(t *testing.T) {
	s := &script[int]{values: []int{1}}
	m := New("stop", s.poll, WithInterval(time.Millisecond))
	m.Register(context.Background(), func(int) {})

	m.Stop()
	m.Stop()
	select {
	case <-m.Done():
	case <-time.After(time.Second):
		t.Fatal("monitor did not exit after Stop")
	}
}

func TestStopBeforeRegister(t *testing.T) {
	m := New("idle", (&script[int]{values: []int{1}}).poll)
	m.Stop()

	select {
	case <-m.Done():
	default:
		t.Fatal("Done must be closed for a monitor that never started")
	}

	// registering afterwards does not start a loop
	m.Register(context.Background(), func(int) { t.Error("unexpected notification") })
	assert.Equal(t, DefaultInterval, m.Interval())
}

func TestWithInterval(t *testing.T) {
	poll := (&script[int]{values: []int{1}}).poll
	assert.Equal(t, 250*time.Millisecond, New("a", poll, WithInterval(250*time.Millisecond)).Interval())
	assert.Equal(t, DefaultInterval, New("b", poll, WithInterval(0)).Interval())
	assert.Equal(t, "b", New("b", poll).Name())
}
