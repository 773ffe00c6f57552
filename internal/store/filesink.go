// internal/store/filesink.go
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/SriHarishb/Agentic-Web-Scraper-With-Automation/api/schemas"
)

// FileSink writes execution records as pretty-printed JSON files named
// result-<first 8 chars of the execution id>.json in the given directory.
// It is the fallback when no database is configured.
type FileSink struct {
	dir string
	log *zap.Logger
}

func NewFileSink(dir string, logger *zap.Logger) *FileSink {
	return &FileSink{dir: dir, log: logger.Named("store.file")}
}

// Save writes the record to disk, creating the directory as needed.
func (s *FileSink) Save(_ context.Context, rec schemas.ExecutionRecord) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create result directory: %w", err)
	}

	id := rec.ExecutionID
	if len(id) > 8 {
		id = id[:8]
	}
	path := filepath.Join(s.dir, fmt.Sprintf("result-%s.json", id))

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal execution record: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write execution record: %w", err)
	}

	s.log.Info("Execution record written", zap.String("path", path))
	return nil
}
