package netlink

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"mqtt-relay-controller/pkg/settings"
)

// fakeLink simulates a network link with a scriptable failure budget
type fakeLink struct {
	mu        sync.Mutex
	up        bool
	failNext  int // attempts left that should fail
	blockNext bool
	attempts  []settings.Credentials
}

func (f *fakeLink) Up(ctx context.Context, ssid, secret string) error {
	f.mu.Lock()
	f.attempts = append(f.attempts, settings.Credentials{SSID: ssid, Secret: secret})
	if f.blockNext {
		f.mu.Unlock()
		<-ctx.Done()
		return ctx.Err()
	}
	if f.failNext > 0 {
		f.failNext--
		f.mu.Unlock()
		return errors.New("association failed")
	}
	f.up = true
	f.mu.Unlock()
	return nil
}

func (f *fakeLink) Down() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.up = false
}

func (f *fakeLink) IsUp() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.up
}

func (f *fakeLink) Addr() string {
	if f.IsUp() {
		return "192.168.1.50"
	}
	return ""
}

func (f *fakeLink) attemptCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.attempts)
}

func newTestManager(link *fakeLink) *Manager {
	creds := settings.Credentials{SSID: "home", Secret: "secret"}
	return NewManager(link, creds, time.Millisecond, 50*time.Millisecond)
}

func TestEnsureUpRetriesUntilSuccess(t *testing.T) {
	link := &fakeLink{failNext: 2}
	mgr := newTestManager(link)

	if err := mgr.EnsureUp(context.Background()); err != nil {
		t.Fatalf("EnsureUp returned error: %v", err)
	}
	if !mgr.IsUp() {
		t.Error("link should be up after EnsureUp")
	}
	if got := link.attemptCount(); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
}

func TestEnsureUpNoopWhenAlreadyUp(t *testing.T) {
	link := &fakeLink{up: true}
	mgr := newTestManager(link)

	if err := mgr.EnsureUp(context.Background()); err != nil {
		t.Fatalf("EnsureUp returned error: %v", err)
	}
	if link.attemptCount() != 0 {
		t.Error("EnsureUp should not touch an established link")
	}
}

func TestEnsureUpHonorsCancellation(t *testing.T) {
	link := &fakeLink{failNext: 1000}
	mgr := newTestManager(link)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := mgr.EnsureUp(ctx); err == nil {
		t.Error("expected error after context cancellation")
	}
}

func TestTryUpOnceSingleAttempt(t *testing.T) {
	link := &fakeLink{failNext: 1}
	mgr := newTestManager(link)

	if err := mgr.TryUpOnce(context.Background()); err == nil {
		t.Error("expected error on failed attempt")
	}
	if got := link.attemptCount(); got != 1 {
		t.Errorf("attempts = %d, want exactly 1", got)
	}

	if err := mgr.TryUpOnce(context.Background()); err != nil {
		t.Fatalf("second attempt failed: %v", err)
	}
	if !mgr.IsUp() {
		t.Error("link should be up")
	}
}

func TestSwapCredentialsReconnects(t *testing.T) {
	link := &fakeLink{up: true}
	mgr := newTestManager(link)

	next := settings.Credentials{SSID: "office", Secret: "newpw"}
	if err := mgr.SwapCredentials(next); err != nil {
		t.Fatalf("SwapCredentials returned error: %v", err)
	}

	if !mgr.IsUp() {
		t.Error("link should be up on the new credentials")
	}
	if mgr.Credentials() != next {
		t.Errorf("credentials = %+v, want %+v", mgr.Credentials(), next)
	}
	link.mu.Lock()
	last := link.attempts[len(link.attempts)-1]
	link.mu.Unlock()
	if last != next {
		t.Errorf("link associated with %+v, want %+v", last, next)
	}
}

func TestSwapCredentialsFailsForward(t *testing.T) {
	link := &fakeLink{up: true, blockNext: true}
	mgr := newTestManager(link)

	next := settings.Credentials{SSID: "office", Secret: "badpw"}
	err := mgr.SwapCredentials(next)

	if err == nil {
		t.Fatal("expected error when the link never comes up")
	}
	// No rollback: the new credentials stay held for the retry loop
	if mgr.Credentials() != next {
		t.Errorf("credentials = %+v, want the new pair retained", mgr.Credentials())
	}
	if mgr.IsUp() {
		t.Error("link should remain down after a failed swap")
	}
}
