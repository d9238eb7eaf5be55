package realtime

import (
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
)

func TestLinearBackOff(t *testing.T) {
	b := NewLinearBackOff(3*time.Second, 5)

	want := []time.Duration{
		3 * time.Second,
		6 * time.Second,
		9 * time.Second,
		12 * time.Second,
		15 * time.Second,
		backoff.Stop,
		backoff.Stop,
	}
	for i, w := range want {
		if got := b.NextBackOff(); got != w {
			t.Errorf("NextBackOff() #%d = %v, want %v", i+1, got, w)
		}
	}
	if !b.Exhausted() {
		t.Error("expected policy to be exhausted")
	}
	if b.Attempt() != 5 {
		t.Errorf("Attempt() = %d, want 5", b.Attempt())
	}

	b.Reset()
	if b.Attempt() != 0 {
		t.Errorf("Attempt() after Reset = %d, want 0", b.Attempt())
	}
	if got := b.NextBackOff(); got != 3*time.Second {
		t.Errorf("NextBackOff() after Reset = %v, want 3s", got)
	}
}

func TestLinearBackOffZeroBudget(t *testing.T) {
	b := NewLinearBackOff(time.Second, 0)
	if got := b.NextBackOff(); got != backoff.Stop {
		t.Errorf("NextBackOff() = %v, want Stop", got)
	}
}
