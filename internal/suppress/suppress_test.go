package suppress

import (
	"testing"
	"time"
)

func TestActiveWithinWindow(t *testing.T) {
	l := New(time.Second)
	l.Add("a.txt")

	if !l.Active("a.txt") {
		t.Error("path should be suppressed inside the window")
	}
	// The entry survives repeated lookups until it expires.
	if !l.Active("a.txt") {
		t.Error("suppression should hold for the whole window")
	}
	if l.Active("other.txt") {
		t.Error("unrelated path suppressed")
	}
}

func TestExpiry(t *testing.T) {
	l := New(20 * time.Millisecond)
	l.Add("a.txt")

	time.Sleep(50 * time.Millisecond)
	if l.Active("a.txt") {
		t.Error("suppression should have expired")
	}
	// Expired entries are pruned lazily by the lookup above.
	l.mu.Lock()
	_, ok := l.until["a.txt"]
	l.mu.Unlock()
	if ok {
		t.Error("expired entry not pruned")
	}
}

func TestZeroWindowFallsBackToDefault(t *testing.T) {
	l := New(0)
	if l.window != DefaultWindow {
		t.Errorf("window = %v, want %v", l.window, DefaultWindow)
	}
}
