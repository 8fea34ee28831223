package catalogsync

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPacerSpacesCallsAndPauses(t *testing.T) {
	p := NewPacer(20*time.Millisecond, 2, 60*time.Millisecond)

	start := time.Now()
	for i := 0; i < 5; i++ {
		if err := p.Wait(context.Background()); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}
	elapsed := time.Since(start)

	// Four spacings plus two pauses (before calls 3 and 5), minus the spacing the
	// pauses already absorb.
	if elapsed < 150*time.Millisecond {
		t.Fatalf("calls not paced, elapsed %s", elapsed)
	}
	if p.Calls() != 5 {
		t.Fatalf("expected 5 calls, got %d", p.Calls())
	}
}

func TestPacerHonoursContext(t *testing.T) {
	p := NewPacer(time.Hour, 0, 0)
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("first call should pass immediately: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := p.Wait(ctx); err == nil {
		t.Fatalf("expected wait to fail on context deadline")
	}
}

func TestPacerPauseHonoursContext(t *testing.T) {
	p := NewPacer(0, 1, time.Hour)
	if err := p.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
