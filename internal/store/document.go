package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"torn_war_bot/internal/config"

	"github.com/rs/zerolog/log"
)

// Document file names inside the data directory
const (
	PreferencesFile  = "preferences.json"
	WarHistoryFile   = "war_history.json"
	CurrentWarFile   = "current_war.json"
	AttackLedgerFile = "attack_ledger.json"
)

// PersistenceError reports a failed document read or write. The in-memory
// state stays authoritative when a write fails.
type PersistenceError struct {
	Document string
	Op       string
	Err      error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Document, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Document is one JSON file holding a value of type T, read once at startup
// and rewritten wholesale after each mutation. Last write wins.
type Document[T any] struct {
	path  string
	retry config.RetryConfig
	mu    sync.Mutex
}

// NewDocument creates a document at dir/name
func NewDocument[T any](dir, name string) *Document[T] {
	return &Document[T]{
		path:  filepath.Join(dir, name),
		retry: config.DefaultResilienceConfig.DocumentWrite,
	}
}

// Path returns the file location
func (d *Document[T]) Path() string {
	return d.path
}

// Load reads the document. A missing file yields the zero value.
func (d *Document[T]) Load() (T, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var value T
	data, err := os.ReadFile(d.path)
	if errors.Is(err, os.ErrNotExist) {
		return value, nil
	}
	if err != nil {
		return value, &PersistenceError{Document: filepath.Base(d.path), Op: "read", Err: err}
	}
	if len(data) == 0 {
		return value, nil
	}

	if err := json.Unmarshal(data, &value); err != nil {
		return value, &PersistenceError{Document: filepath.Base(d.path), Op: "decode", Err: err}
	}
	return value, nil
}

// Save writes the value to a temporary file and renames it over the
// document, retrying transient failures.
func (d *Document[T]) Save(ctx context.Context, value T) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return &PersistenceError{Document: filepath.Base(d.path), Op: "encode", Err: err}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	err = d.retry.Do(ctx, "save "+filepath.Base(d.path), func(ctx context.Context) error {
		return d.writeAtomic(data)
	})
	if err != nil {
		log.Error().
			Err(err).
			Str("document", d.path).
			Msg("Failed to persist document")
		return &PersistenceError{Document: filepath.Base(d.path), Op: "write", Err: err}
	}
	return nil
}

func (d *Document[T]) writeAtomic(data []byte) error {
	dir := filepath.Dir(d.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(d.path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, d.path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
