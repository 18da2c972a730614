package core

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// TaskIDGenerator produces unique, sequential task IDs for one namespace.
type TaskIDGenerator interface {
	GenerateTaskID() (string, error)
}

// fileTaskIDGenerator persists a per-namespace counter file on disk so IDs
// survive restarts and stay unique within the namespace.
type fileTaskIDGenerator struct {
	basePath  string
	namespace string
	prefix    string
	padWidth  int
}

// NewTaskIDGenerator creates a TaskIDGenerator that stores its counter in
// .task_counter_<namespace> within basePath. padWidth controls zero-padding
// of the numeric portion; 0 means no padding.
func NewTaskIDGenerator(basePath, namespace, prefix string, padWidth int) TaskIDGenerator {
	return &fileTaskIDGenerator{
		basePath:  basePath,
		namespace: namespace,
		prefix:    prefix,
		padWidth:  padWidth,
	}
}

// GenerateTaskID increments the counter under an exclusive lock on the
// counter file and returns the formatted ID (e.g. T-00001). The lock is held
// across the read-increment-write so concurrent enqueuers, in this process
// or another, never mint the same ID.
func (g *fileTaskIDGenerator) GenerateTaskID() (string, error) {
	if err := os.MkdirAll(g.basePath, 0o750); err != nil {
		return "", fmt.Errorf("creating base path for task counter: %w", err)
	}
	counterPath := filepath.Join(g.basePath, ".task_counter_"+g.namespace)

	f, err := os.OpenFile(counterPath, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return "", fmt.Errorf("opening task counter file: %w", err)
	}
	// Closing the descriptor releases the lock.
	defer f.Close()
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		return "", fmt.Errorf("locking task counter file: %w", err)
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return "", fmt.Errorf("reading task counter file: %w", err)
	}
	counter := 0
	if trimmed := strings.TrimSpace(string(data)); trimmed != "" {
		counter, err = strconv.Atoi(trimmed)
		if err != nil {
			return "", fmt.Errorf("parsing task counter %q: %w", trimmed, err)
		}
	}

	counter++

	if err := f.Truncate(0); err != nil {
		return "", fmt.Errorf("truncating task counter file: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewinding task counter file: %w", err)
	}
	if _, err := f.WriteString(strconv.Itoa(counter)); err != nil {
		return "", fmt.Errorf("writing task counter file: %w", err)
	}

	if g.padWidth > 0 {
		return fmt.Sprintf("%s-%0*d", g.prefix, g.padWidth, counter), nil
	}
	return fmt.Sprintf("%s-%d", g.prefix, counter), nil
}
