package core

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"pgregory.net/rapid"
)

// Property: every call to GenerateTaskID produces a unique ID and the
// per-namespace counter file tracks the call count.
func TestProperty_TaskIDUniqueness(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(2, 100).Draw(rt, "n")
		prefix := rapid.StringMatching(`[A-Z]{1,6}`).Draw(rt, "prefix")

		dir, err := os.MkdirTemp("", "taskid-property-*")
		if err != nil {
			t.Fatalf("failed to create temp dir: %v", err)
		}
		defer os.RemoveAll(dir)

		gen := NewTaskIDGenerator(dir, "default", prefix, 5)

		seen := make(map[string]struct{}, n)
		for i := 0; i < n; i++ {
			id, err := gen.GenerateTaskID()
			if err != nil {
				t.Fatalf("GenerateTaskID failed on call %d: %v", i+1, err)
			}
			if _, exists := seen[id]; exists {
				t.Fatalf("duplicate task ID %q on call %d", id, i+1)
			}
			seen[id] = struct{}{}
		}

		data, err := os.ReadFile(filepath.Join(dir, ".task_counter_default"))
		if err != nil {
			t.Fatalf("failed to read counter file: %v", err)
		}
		expected := fmt.Sprintf("%d", n)
		if string(data) != expected {
			t.Fatalf("expected counter file to contain %s, got %s", expected, string(data))
		}
	})
}

// Property: namespaces keep independent counters, so the same sequence of
// calls in two namespaces yields the same IDs without interference.
func TestProperty_TaskIDNamespaceCounters(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 20).Draw(rt, "n")

		dir, err := os.MkdirTemp("", "taskid-ns-property-*")
		if err != nil {
			t.Fatalf("failed to create temp dir: %v", err)
		}
		defer os.RemoveAll(dir)

		alpha := NewTaskIDGenerator(dir, "alpha", "T", 5)
		beta := NewTaskIDGenerator(dir, "beta", "T", 5)

		for i := 0; i < n; i++ {
			a, err := alpha.GenerateTaskID()
			if err != nil {
				t.Fatalf("alpha generate failed: %v", err)
			}
			b, err := beta.GenerateTaskID()
			if err != nil {
				t.Fatalf("beta generate failed: %v", err)
			}
			want := fmt.Sprintf("T-%05d", i+1)
			if a != want || b != want {
				t.Fatalf("call %d: got alpha=%s beta=%s, want both %s", i+1, a, b, want)
			}
		}
	})
}
