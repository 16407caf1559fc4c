package notifications

import (
	"context"
	"errors"
	"testing"
	"time"
)

type countingNotifier struct {
	calls int
	err   error
}

func (n *countingNotifier) Send(ctx context.Context, msg Message) error {
	n.calls++
	return n.err
}

func TestProtectedNotifier_OpensAfterConsecutiveFailures(t *testing.T) {
	inner := &countingNotifier{err: errors.New("provider down")}

	p := NewProtectedNotifier(inner, ProtectedNotifierConfig{
		FailureThreshold: 2,
		Cooldown:         time.Minute,
	})

	msg := Message{Email: "s@campus.edu", Subject: "hi"}

	for i := 0; i < 2; i++ {
		if err := p.Send(context.Background(), msg); err == nil {
			t.Fatalf("expected provider error on call %d", i)
		}
	}

	err := p.Send(context.Background(), msg)
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if inner.calls != 2 {
		t.Fatalf("open circuit must not reach the provider, got %d calls", inner.calls)
	}
}

func TestProtectedNotifier_RecoversAfterCooldown(t *testing.T) {
	inner := &countingNotifier{err: errors.New("provider down")}

	p := NewProtectedNotifier(inner, ProtectedNotifierConfig{
		FailureThreshold: 1,
		Cooldown:         10 * time.Millisecond,
	})

	msg := Message{Email: "s@campus.edu"}

	if err := p.Send(context.Background(), msg); err == nil {
		t.Fatalf("expected provider error")
	}

	if err := p.Send(context.Background(), msg); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}

	time.Sleep(15 * time.Millisecond)

	// provider recovered; the half-open probe should close the circuit
	inner.err = nil

	if err := p.Send(context.Background(), msg); err != nil {
		t.Fatalf("expected probe to pass, got %v", err)
	}

	if err := p.Send(context.Background(), msg); err != nil {
		t.Fatalf("expected closed circuit, got %v", err)
	}
}
