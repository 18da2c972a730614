package core

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestGenerateTaskID_Concurrent(t *testing.T) {
	dir := t.TempDir()
	gen := NewTaskIDGenerator(dir, "default", "T", 5)

	const callers = 30

	var mu sync.Mutex
	seen := make(map[string]int)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := gen.GenerateTaskID()
			if err != nil {
				t.Errorf("generate failed: %v", err)
				return
			}
			mu.Lock()
			seen[id]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(seen) != callers {
		t.Fatalf("expected %d distinct IDs, got %d", callers, len(seen))
	}
	for id, n := range seen {
		if n != 1 {
			t.Fatalf("ID %s minted %d times", id, n)
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, ".task_counter_default"))
	if err != nil {
		t.Fatalf("failed to read counter file: %v", err)
	}
	if string(data) != "30" {
		t.Fatalf("expected counter file to read 30, got %s", string(data))
	}
}
