package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ducminhle1904/futures-signal-bot/internal/position"
)

// FileLog appends one JSON object per event to a file
type FileLog struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// OpenFile opens path for appending, creating its directory if needed
func OpenFile(path string) (*FileLog, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return &FileLog{file: f, enc: json.NewEncoder(f)}, nil
}

// Record appends ev as a JSON line
func (l *FileLog) Record(_ context.Context, ev position.Event) error {
	row, err := rowFromEvent(ev)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enc.Encode(row)
}

// Close closes the underlying file
func (l *FileLog) Close() error {
	return l.file.Close()
}
