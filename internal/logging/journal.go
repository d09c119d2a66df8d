package logging

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/shiraBarShalom/Smart-Keyboard/internal/correction"
)

// JournalEntry is one line of the correction journal.
type JournalEntry struct {
	Timestamp   time.Time `json:"timestamp"`
	Kind        string    `json:"kind"`
	Word        string    `json:"word"`
	Replacement string    `json:"replacement"`
	Deleted     int       `json:"deleted"`
	Typed       int       `json:"typed"`
	Result      string    `json:"result"` // "success" or "failure"
	Error       string    `json:"error,omitempty"`
}

// JournalConfig holds configuration for the correction journal.
type JournalConfig struct {
	// FilePath is the path to the journal file.
	FilePath string

	// MaxSize is the maximum size in MB before rotation.
	MaxSize int64

	// MaxBackups is the maximum number of rotated files to keep.
	MaxBackups int

	// Compress determines if rotated files should be compressed.
	Compress bool

	// RedactText leaves the word and its replacement out of the entries.
	RedactText bool
}

// Journal appends one JSON line per correction attempt. It is write-only:
// nothing in the daemon reads it back.
type Journal struct {
	config  JournalConfig
	rotator *FileRotator
	mu      sync.Mutex
	now     func() time.Time
}

// NewJournal opens the journal file for appending.
func NewJournal(cfg JournalConfig) (*Journal, error) {
	rotator, err := NewFileRotator(RotatorConfig{
		Path:       cfg.FilePath,
		MaxSizeMB:  cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		Compress:   cfg.Compress,
	})
	if err != nil {
		return nil, fmt.Errorf("create journal rotator: %w", err)
	}

	return &Journal{
		config:  cfg,
		rotator: rotator,
		now:     time.Now,
	}, nil
}

// Log writes an entry.
func (j *Journal) Log(entry JournalEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if entry.Timestamp.IsZero() {
		entry.Timestamp = j.now().UTC()
	}
	if j.config.RedactText {
		entry.Word = Redacted
		entry.Replacement = Redacted
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal journal entry: %w", err)
	}

	data = append(data, '\n')
	if _, err := j.rotator.Write(data); err != nil {
		return fmt.Errorf("write journal entry: %w", err)
	}
	return nil
}

// Record logs a correction attempt. It has the signature of a
// correction.Emitter observer.
func (j *Journal) Record(c correction.Correction, injectErr error) {
	entry := JournalEntry{
		Kind:        c.Kind.String(),
		Word:        c.Word,
		Replacement: c.Replacement,
		Deleted:     c.DeleteCount(),
		Typed:       c.TypeCount(),
		Result:      "success",
	}
	if injectErr != nil {
		entry.Result = "failure"
		entry.Error = injectErr.Error()
	}
	// A failed journal write must not disturb typing.
	_ = j.Log(entry)
}

// Close closes the journal file.
func (j *Journal) Close() error {
	return j.rotator.Close()
}

// Sync flushes the journal to disk.
func (j *Journal) Sync() error {
	return j.rotator.Sync()
}
