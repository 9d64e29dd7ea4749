package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const memoryFileName = "memory.md"

// MemoryFile is the long-term memory backend: a plain-text document in the
// data directory, updated through line-oriented diffs so the model can edit
// individual facts without resending the whole document.
type MemoryFile struct {
	path string
	mu   sync.Mutex
}

func NewMemoryFile(dataDir string) *MemoryFile {
	return &MemoryFile{path: filepath.Join(dataDir, memoryFileName)}
}

// ReadMemory returns the current document, empty when none exists yet.
func (m *MemoryFile) ReadMemory(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read memory file: %w", err)
	}
	return string(data), nil
}

// ApplyDiff applies a line-oriented diff to the document: lines starting with
// "+" append, lines starting with "-" remove the first matching line. The
// diff is rejected (false, nil) when a "-" line has no match or the diff
// contains no valid operation; a rejected diff leaves the document untouched.
func (m *MemoryFile) ApplyDiff(_ context.Context, diff string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.path)
	if err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to read memory file: %w", err)
	}

	var lines []string
	if len(data) > 0 {
		lines = strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	}

	applied := false
	for _, op := range strings.Split(diff, "\n") {
		switch {
		case strings.HasPrefix(op, "+"):
			lines = append(lines, strings.TrimSpace(op[1:]))
			applied = true
		case strings.HasPrefix(op, "-"):
			target := strings.TrimSpace(op[1:])
			idx := -1
			for i, line := range lines {
				if line == target {
					idx = i
					break
				}
			}
			if idx < 0 {
				return false, nil
			}
			lines = append(lines[:idx], lines[idx+1:]...)
			applied = true
		case strings.TrimSpace(op) == "":
			// Blank separator lines are fine.
		default:
			return false, nil
		}
	}
	if !applied {
		return false, nil
	}

	content := ""
	if len(lines) > 0 {
		content = strings.Join(lines, "\n") + "\n"
	}
	if err := os.WriteFile(m.path, []byte(content), 0600); err != nil {
		return false, fmt.Errorf("failed to write memory file: %w", err)
	}
	return true, nil
}
