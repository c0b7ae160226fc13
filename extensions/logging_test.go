package extensions

import (
	"testing"

	reactive "github.com/reactive-fn/reactive-go"
)

func TestLoggingExtensionObservesOperations(t *testing.T) {
	rec := &recordingHandler{}
	ext := NewLoggingExtension(rec)
	if err := reactive.DefaultManager().UseExtension(ext); err != nil {
		t.Fatalf("UseExtension failed: %v", err)
	}

	s := reactive.NewSource(1, reactive.WithName("logged-source"))
	so := s.Observer()
	d, err := reactive.MakeObserver(func() (int, error) {
		return so.Get() + 1, nil
	}, reactive.WithName("logged-derived"))
	if err != nil {
		t.Fatalf("MakeObserver failed: %v", err)
	}

	s.Set(5)
	reactive.WaitForAllUpdates()
	if got := d.Get(); got != 6 {
		t.Errorf("Expected 6, got %d", got)
	}

	if _, ok := rec.find("operation completed"); !ok {
		t.Error("No completed operations logged")
	}
}
