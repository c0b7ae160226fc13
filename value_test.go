package reactive

import (
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

type versionedValue struct {
	v  int
	id int
}

// Scenario: an id projection sees every update, a value-filtered projection
// only sees actual value changes.
func TestValueFilterSuppressesNoopUpdates(t *testing.T) {
	s := NewSource(versionedValue{v: 1, id: 1})
	so := s.Observer()

	idObs, err := MakeObserver(func() (int, error) { return so.Get().id, nil })
	if err != nil {
		t.Fatalf("MakeObserver id failed: %v", err)
	}
	vObs, err := MakeObserver(func() (int, error) { return so.Get().v, nil })
	if err != nil {
		t.Fatalf("MakeObserver value failed: %v", err)
	}
	filtered, err := MakeValueObserver(vObs)
	if err != nil {
		t.Fatalf("MakeValueObserver failed: %v", err)
	}

	var mu sync.Mutex
	var idLog, valueLog []int
	h1 := idObs.AddCallback(func(s Snapshot[int]) {
		mu.Lock()
		idLog = append(idLog, s.Value())
		mu.Unlock()
	})
	defer h1.Cancel()
	h2 := filtered.AddCallback(func(s Snapshot[int]) {
		mu.Lock()
		valueLog = append(valueLog, s.Value())
		mu.Unlock()
	})
	defer h2.Cancel()

	for _, update := range []versionedValue{{1, 2}, {2, 3}, {2, 4}, {3, 5}} {
		s.Set(update)
		WaitForAllUpdates()
	}

	mu.Lock()
	defer mu.Unlock()
	if got, want := idLog, []int{1, 2, 3, 4, 5}; !equalInts(got, want) {
		t.Errorf("Expected id log %v, got %v", want, got)
	}
	if got, want := valueLog, []int{1, 2, 3}; !equalInts(got, want) {
		t.Errorf("Expected value log %v, got %v", want, got)
	}
}

// P4: with a value-equality adapter, setting an equal value causes zero
// downstream callback invocations.
func TestNoSpuriousUpdates(t *testing.T) {
	s := NewSource("same")
	filtered, err := MakeValueObserver(s.Observer())
	if err != nil {
		t.Fatalf("MakeValueObserver failed: %v", err)
	}

	var count atomic.Int32
	handle := filtered.AddCallback(func(Snapshot[string]) { count.Add(1) })
	defer handle.Cancel()
	base := count.Load()

	for i := 0; i < 10; i++ {
		s.Set("same")
		WaitForAllUpdates()
	}
	if got := count.Load(); got != base {
		t.Errorf("Expected zero downstream callbacks, got %d", got-base)
	}

	s.Set("different")
	WaitForAllUpdates()
	if got := count.Load(); got != base+1 {
		t.Errorf("Expected exactly one callback after a real change, got %d", got-base)
	}
}

func TestValueFilterCustomEquality(t *testing.T) {
	s := NewSource("Hello")
	filtered, err := MakeValueObserver(s.Observer(), WithEqual(strings.EqualFold))
	if err != nil {
		t.Fatalf("MakeValueObserver failed: %v", err)
	}

	var count atomic.Int32
	handle := filtered.AddCallback(func(Snapshot[string]) { count.Add(1) })
	defer handle.Cancel()
	base := count.Load()

	s.Set("HELLO")
	WaitForAllUpdates()
	if got := count.Load(); got != base {
		t.Errorf("Case-insensitive equal value should not republish, got %d callbacks", got-base)
	}

	s.Set("goodbye")
	WaitForAllUpdates()
	if got := filtered.Get(); got != "goodbye" {
		t.Errorf("Expected goodbye, got %q", got)
	}
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
