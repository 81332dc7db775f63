package util

import (
	"context"
	"testing"
	"time"
)

func TestLimiterBurstThenRefill(t *testing.T) {
	l := NewLimiter(10, 2)

	if !l.Allow(1) || !l.Allow(1) {
		t.Fatal("burst of 2 should admit the first two calls")
	}
	if l.Allow(1) {
		t.Error("third call should be refused with the burst spent")
	}

	time.Sleep(150 * time.Millisecond)
	if !l.Allow(1) {
		t.Error("a token should have refilled by now")
	}
}

func TestLimiterWaitBlocksForRefill(t *testing.T) {
	l := NewLimiter(100, 1)
	l.Allow(1)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	if err := l.Wait(ctx, 1); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if time.Since(start) < 10*time.Millisecond {
		t.Error("Wait returned before a token could refill")
	}
}
