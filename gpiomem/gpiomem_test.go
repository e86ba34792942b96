package gpiomem

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// fakeMem replaces the mapping calls and records them.
func fakeMem(t *testing.T, mapErr error) *[]string {
	t.Helper()
	var calls []string
	mapMem = func() error {
		calls = append(calls, "map")
		return mapErr
	}
	unmapMem = func() error {
		calls = append(calls, "unmap")
		return nil
	}
	t.Cleanup(func() {
		mu.Lock()
		users = 0
		mu.Unlock()
	})
	return &calls
}

func TestSharedMapping(t *testing.T) {
	calls := fakeMem(t, nil)

	// Motor outputs then buttons open; buttons then motor release.
	for i := 0; i < 2; i++ {
		if err := Open(); err != nil {
			t.Fatalf("Open #%d: %v", i+1, err)
		}
	}
	if diff := cmp.Diff([]string{"map"}, *calls); diff != "" {
		t.Errorf("after two Opens (-want +got):\n%s", diff)
	}

	if err := Close(); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"map"}, *calls); diff != "" {
		t.Errorf("mapping released while still in use (-want +got):\n%s", diff)
	}

	if err := Close(); err != nil {
		t.Fatal(err)
	}
	if err := Close(); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"map", "unmap"}, *calls); diff != "" {
		t.Errorf("after last Close (-want +got):\n%s", diff)
	}
}

func TestOpenFailure(t *testing.T) {
	mapErr := errors.New("no /dev/gpiomem")
	calls := fakeMem(t, mapErr)

	if err := Open(); !errors.Is(err, mapErr) {
		t.Fatalf("Open = %v, want %v", err, mapErr)
	}
	if err := Close(); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"map"}, *calls); diff != "" {
		t.Errorf("unexpected calls (-want +got):\n%s", diff)
	}
}
