package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

var (
	errLiteServer = errors.New("lite server timeout")
	errExitCode   = errors.New("get method exit code 11")
)

func fail(b *Breaker, n int) {
	for i := 0; i < n; i++ {
		b.Execute(func() error { return errLiteServer })
	}
}

func TestNew(t *testing.T) {
	b := New(5, 30*time.Second)
	if b.GetState() != Closed {
		t.Errorf("initial state: got %s, want %s", b.GetState(), Closed)
	}
}

func TestExecute_PropagatesResult(t *testing.T) {
	b := New(3, time.Second)

	if err := b.Execute(func() error { return nil }); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if err := b.Execute(func() error { return errLiteServer }); !errors.Is(err, errLiteServer) {
		t.Errorf("expected errLiteServer, got %v", err)
	}
}

func TestExecute_Thresholds(t *testing.T) {
	tests := []struct {
		name        string
		maxFailures int
		failures    int
		want        State
	}{
		{"single failure below threshold", 5, 1, Closed},
		{"one short of threshold", 5, 4, Closed},
		{"exactly one", 1, 1, Open},
		{"exactly three", 3, 3, Open},
		{"beyond threshold", 2, 4, Open},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New(tt.maxFailures, time.Hour)
			fail(b, tt.failures)
			if got := b.GetState(); got != tt.want {
				t.Errorf("state = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestExecute_OpenRejects(t *testing.T) {
	b := New(3, time.Hour)
	fail(b, 3)

	err := b.Execute(func() error {
		t.Error("function should not be called when circuit is open")
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestExecute_SuccessResetsFailureCount(t *testing.T) {
	b := New(3, time.Second)

	fail(b, 2)
	b.Execute(func() error { return nil })
	fail(b, 2)

	if b.GetState() != Closed {
		t.Error("state should be Closed after success reset")
	}
}

func TestExecute_HalfOpen(t *testing.T) {
	t.Run("success closes", func(t *testing.T) {
		b := New(2, 10*time.Millisecond)
		fail(b, 2)
		time.Sleep(20 * time.Millisecond)

		called := false
		if err := b.Execute(func() error { called = true; return nil }); err != nil {
			t.Errorf("expected no error in half-open, got %v", err)
		}
		if !called {
			t.Error("function should have been called in half-open state")
		}
		if b.GetState() != Closed {
			t.Errorf("state = %s, want closed", b.GetState())
		}
	})

	t.Run("failure reopens", func(t *testing.T) {
		b := New(2, 10*time.Millisecond)
		fail(b, 2)
		time.Sleep(20 * time.Millisecond)

		fail(b, 1)
		if b.GetState() != Open {
			t.Errorf("state = %s, want open", b.GetState())
		}
	})
}

func TestCall_CanceledContext(t *testing.T) {
	b := New(1, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := b.Call(ctx, func(context.Context) error {
		t.Error("should not be called with a canceled context")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if b.GetState() != Closed {
		t.Error("canceled context must not trip the breaker")
	}
}

func TestCall_DeadlineDuringCallNotCounted(t *testing.T) {
	b := New(1, time.Hour)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	err := b.Call(ctx, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
	if b.GetState() != Closed {
		t.Error("caller deadline must not trip the breaker")
	}
}

func TestWithIgnore(t *testing.T) {
	b := New(1, time.Hour, WithIgnore(func(err error) bool { return errors.Is(err, errExitCode) }))

	if err := b.Execute(func() error { return errExitCode }); !errors.Is(err, errExitCode) {
		t.Errorf("ignored errors are still returned, got %v", err)
	}
	if b.GetState() != Closed {
		t.Error("ignored error must not open the breaker")
	}

	fail(b, 1)
	if b.GetState() != Open {
		t.Error("other errors still count")
	}
}

func TestWithStateHook(t *testing.T) {
	var mu sync.Mutex
	var seen []State
	b := New(1, 10*time.Millisecond, WithStateHook(func(s State) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	}))

	fail(b, 1)
	fail(b, 1) // rejected, no transition
	time.Sleep(20 * time.Millisecond)
	b.Execute(func() error { return nil })

	mu.Lock()
	defer mu.Unlock()
	want := []State{Open, HalfOpen, Closed}
	if len(seen) != len(want) {
		t.Fatalf("transitions = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("transition %d = %s, want %s", i, seen[i], want[i])
		}
	}
}

func TestExecute_ConcurrentAccess(t *testing.T) {
	b := New(100, time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if n%2 == 0 {
				b.Execute(func() error { return nil })
			} else {
				b.Execute(func() error { return errLiteServer })
			}
			b.GetState()
		}(i)
	}
	wg.Wait()
}

func TestState_String(t *testing.T) {
	tests := map[State]string{Closed: "closed", Open: "open", HalfOpen: "half_open", State(9): "unknown"}
	for s, want := range tests {
		if s.String() != want {
			t.Errorf("%d.String() = %q, want %q", int(s), s.String(), want)
		}
	}
}
