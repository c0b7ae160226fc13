package reactive

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeBackend struct {
	mu       sync.Mutex
	value    int
	err      error
	onChange func()
	gets     atomic.Int32
}

func (f *fakeBackend) ops() PollOps[int] {
	return PollOps[int]{
		Get: func() (int, error) {
			f.gets.Add(1)
			f.mu.Lock()
			defer f.mu.Unlock()
			return f.value, f.err
		},
		Subscribe: func(cb func()) {
			f.mu.Lock()
			f.onChange = cb
			f.mu.Unlock()
		},
		Unsubscribe: func() {
			f.mu.Lock()
			f.onChange = nil
			f.mu.Unlock()
		},
	}
}

func (f *fakeBackend) set(v int) {
	f.mu.Lock()
	f.value = v
	cb := f.onChange
	f.mu.Unlock()
	if cb != nil {
		cb()
	}
}

func TestPollSourceInitialFetch(t *testing.T) {
	backend := &fakeBackend{value: 10}
	p, err := NewPollSource(backend.ops())
	if err != nil {
		t.Fatalf("NewPollSource failed: %v", err)
	}
	defer p.Close()

	if got := p.Observer().Get(); got != 10 {
		t.Errorf("Expected 10, got %d", got)
	}
	if backend.onChange == nil {
		t.Error("Subscription not established during construction")
	}
}

func TestPollSourceRefreshOnNotification(t *testing.T) {
	backend := &fakeBackend{value: 1}
	p, err := NewPollSource(backend.ops())
	if err != nil {
		t.Fatalf("NewPollSource failed: %v", err)
	}
	defer p.Close()
	po := p.Observer()

	d, err := MakeObserver(func() (int, error) { return po.Get() * 2, nil })
	if err != nil {
		t.Fatalf("MakeObserver failed: %v", err)
	}

	backend.set(21)
	WaitForAllUpdates()
	if got := po.Get(); got != 21 {
		t.Errorf("Expected 21, got %d", got)
	}
	if got := d.Get(); got != 42 {
		t.Errorf("Expected derived 42, got %d", got)
	}
}

func TestPollSourceExplicitRefresh(t *testing.T) {
	backend := &fakeBackend{value: 1}
	p, err := NewPollSource(backend.ops())
	if err != nil {
		t.Fatalf("NewPollSource failed: %v", err)
	}
	defer p.Close()

	backend.mu.Lock()
	backend.value = 2
	backend.mu.Unlock()

	p.Refresh()
	WaitForAllUpdates()
	if got := p.Observer().Get(); got != 2 {
		t.Errorf("Expected 2, got %d", got)
	}
}

func TestPollSourceInitialFailure(t *testing.T) {
	backend := &fakeBackend{err: errors.New("backend down")}
	_, err := NewPollSource(backend.ops())
	if err == nil {
		t.Fatal("Expected construction to fail")
	}
	if backend.onChange != nil {
		t.Error("Subscription not removed after failed construction")
	}
}

func TestPollSourceFailedRefreshRetainsSnapshot(t *testing.T) {
	backend := &fakeBackend{value: 5}
	p, err := NewPollSource(backend.ops())
	if err != nil {
		t.Fatalf("NewPollSource failed: %v", err)
	}
	defer p.Close()

	backend.mu.Lock()
	backend.err = errors.New("transient")
	backend.value = 6
	backend.mu.Unlock()
	p.Refresh()
	WaitForAllUpdates()
	if got := p.Observer().Get(); got != 5 {
		t.Errorf("Expected retained 5, got %d", got)
	}

	backend.mu.Lock()
	backend.err = nil
	backend.mu.Unlock()
	p.Refresh()
	WaitForAllUpdates()
	if got := p.Observer().Get(); got != 6 {
		t.Errorf("Expected 6 after recovery, got %d", got)
	}
}

func TestPollSourceCloseJoinsInflightGet(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32

	var notify func()
	ops := PollOps[int]{
		Get: func() (int, error) {
			if calls.Add(1) == 1 {
				return 1, nil // initial fetch
			}
			close(started)
			<-release
			return 2, nil
		},
		Subscribe:   func(cb func()) { notify = cb },
		Unsubscribe: func() {},
	}

	p, err := NewPollSource(ops)
	if err != nil {
		t.Fatalf("NewPollSource failed: %v", err)
	}

	notify()
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("Refresh never started")
	}

	closed := make(chan struct{})
	go func() {
		p.Close()
		close(closed)
	}()

	select {
	case <-closed:
		t.Fatal("Close returned while a fetch was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close never returned after the fetch completed")
	}
	WaitForAllUpdates()

	// The joined fetch still published; refreshes after Close do not fetch.
	if got := p.Observer().Get(); got != 2 {
		t.Errorf("Expected 2, got %d", got)
	}
	before := calls.Load()
	p.Refresh()
	WaitForAllUpdates()
	if got := calls.Load(); got != before {
		t.Error("Get ran after Close returned")
	}
	if got := p.Observer().Get(); got != 2 {
		t.Errorf("Expected snapshot retained after close, got %d", got)
	}
}
