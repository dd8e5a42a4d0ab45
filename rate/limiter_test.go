package rate

import (
	"testing"
	"time"
)

func TestLimiter(t *testing.T) {
	interval := 50 * time.Millisecond
	r := NewLimiter(1, time.Hour, Every(interval))
	defer r.Stop()

	client := "ip:10.0.0.1"
	if !r.Check(client) {
		t.Fatal("first request must be allowed")
	}
	if r.Check(client) {
		t.Fatal("second immediate request must be throttled")
	}

	time.Sleep(interval + 10*time.Millisecond)
	if !r.Check(client) {
		t.Fatal("request after the interval must be allowed")
	}
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	r := NewLimiter(1, time.Hour, Every(time.Hour))
	defer r.Stop()

	if !r.Check("user:a") || !r.Check("user:b") {
		t.Fatal("each client gets its own bucket")
	}
	if r.Check("user:a") {
		t.Fatal("user:a exhausted its burst")
	}
}

func TestLimiterWithBurst(t *testing.T) {
	r := NewLimiter(10, time.Hour, Every(time.Hour))
	defer r.Stop()

	for i := 0; i < 10; i++ {
		if !r.Check("user:burst") {
			t.Fatalf("iteration %d: expected burst request to be allowed", i)
		}
	}
	if r.Check("user:burst") {
		t.Fatal("request past the burst must be throttled")
	}
}

func TestSweepDropsIdleClients(t *testing.T) {
	r := NewLimiter(1, time.Millisecond, Every(time.Hour))
	defer r.Stop()

	r.Check("user:idle")
	time.Sleep(5 * time.Millisecond)
	r.sweep()

	r.mu.Lock()
	n := len(r.clients)
	r.mu.Unlock()
	if n != 0 {
		t.Fatalf("expected idle client to be swept, %d left", n)
	}
}
