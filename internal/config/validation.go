package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shiraBarShalom/Smart-Keyboard/internal/layout"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Is makes errors.Is(err, ErrInvalidConfig) hold for any ValidationErrors.
func (e ValidationErrors) Is(target error) bool {
	return target == ErrInvalidConfig
}

// Has reports whether field has an error.
func (e ValidationErrors) Has(field string) bool {
	for _, err := range e {
		if err.Field == field {
			return true
		}
	}
	return false
}

// ErrInvalidConfig is returned when validation fails.
var ErrInvalidConfig = errors.New("invalid configuration")

// ValidateConfig performs validation of the whole configuration and reports
// every problem found.
func ValidateConfig(c *Config) error {
	var errs ValidationErrors

	if c.Version < 1 || c.Version > Version {
		errs = append(errs, ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("unsupported version %d (current: %d)", c.Version, Version),
		})
	}

	errs = append(errs, validateLexicon(&c.Lexicon)...)
	errs = append(errs, validateLayout(&c.Layout)...)
	errs = append(errs, validateCorrection(&c.Correction)...)
	errs = append(errs, validateKeyboard(&c.Keyboard)...)
	errs = append(errs, validateLogging(&c.Logging)...)
	errs = append(errs, validateJournal(&c.Journal)...)
	errs = append(errs, validateMetrics(&c.Metrics)...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Missing word lists are not errors: the daemon starts degraded.
func validateLexicon(l *LexiconConfig) ValidationErrors {
	var errs ValidationErrors

	if l.TargetPath == "" {
		errs = append(errs, ValidationError{
			Field:   "lexicon.target_path",
			Message: "path cannot be empty",
		})
	}
	if l.SourcePath == "" {
		errs = append(errs, ValidationError{
			Field:   "lexicon.source_path",
			Message: "path cannot be empty",
		})
	}

	return errs
}

func validateLayout(l *LayoutConfig) ValidationErrors {
	if _, err := layout.Lookup(l.Name); err != nil {
		return ValidationErrors{{
			Field:   "layout.name",
			Message: fmt.Sprintf("unknown layout: %s (valid: %s)", l.Name, strings.Join(layout.Names(), ", ")),
		}}
	}
	return nil
}

func validateCorrection(c *CorrectionConfig) ValidationErrors {
	var errs ValidationErrors

	if c.KeyDelayMs < 0 {
		errs = append(errs, ValidationError{
			Field:   "correction.key_delay_ms",
			Message: "key delay cannot be negative",
		})
	}
	if c.KeyDelayMs > 1000 {
		errs = append(errs, ValidationError{
			Field:   "correction.key_delay_ms",
			Message: "key delay cannot exceed 1000ms",
		})
	}

	return errs
}

func validateKeyboard(k *KeyboardConfig) ValidationErrors {
	var errs ValidationErrors

	switch k.Injector {
	case "xdotool", "none":
	default:
		errs = append(errs, ValidationError{
			Field:   "keyboard.injector",
			Message: fmt.Sprintf("invalid injector: %s (valid: xdotool, none)", k.Injector),
		})
	}

	if k.Device != "" && !filepath.IsAbs(k.Device) {
		errs = append(errs, ValidationError{
			Field:   "keyboard.device",
			Message: "device must be an absolute path",
		})
	}

	if k.LayoutQuery != "" && k.TargetGroup == "" {
		errs = append(errs, ValidationError{
			Field:   "keyboard.target_group",
			Message: "target group is required when layout_query is set",
		})
	}

	return errs
}

func validateLogging(l *LoggingConfig) ValidationErrors {
	var errs ValidationErrors

	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid log level: %s (valid: debug, info, warn, error)", l.Level),
		})
	}

	switch l.Format {
	case "text", "json":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid log format: %s (valid: text, json)", l.Format),
		})
	}

	switch l.Output {
	case "stdout", "stderr":
	case "file", "both":
		if l.FilePath == "" {
			errs = append(errs, ValidationError{
				Field:   "logging.file_path",
				Message: "file path is required when output is '" + l.Output + "'",
			})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.output",
			Message: fmt.Sprintf("invalid log output: %s (valid: stdout, stderr, file, both)", l.Output),
		})
	}

	if l.MaxSizeMB < 1 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_size_mb",
			Message: "max size must be at least 1 MB",
		})
	}
	if l.MaxBackups < 0 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_backups",
			Message: "max backups cannot be negative",
		})
	}

	return errs
}

func validateJournal(j *JournalConfig) ValidationErrors {
	if j.Enabled && j.Path == "" {
		return ValidationErrors{{
			Field:   "journal.path",
			Message: "path is required when the journal is enabled",
		}}
	}
	return nil
}

func validateMetrics(m *MetricsConfig) ValidationErrors {
	var errs ValidationErrors

	if m.Enabled && m.TextfilePath == "" {
		errs = append(errs, ValidationError{
			Field:   "metrics.textfile_path",
			Message: "path is required when metrics are enabled",
		})
	} else if m.Enabled && !strings.HasSuffix(m.TextfilePath, ".prom") {
		errs = append(errs, ValidationError{
			Field:   "metrics.textfile_path",
			Message: "textfile collector only reads files ending in .prom",
		})
	}
	if m.FlushIntervalSec < 1 {
		errs = append(errs, ValidationError{
			Field:   "metrics.flush_interval_sec",
			Message: "flush interval must be at least 1 second",
		})
	}

	return errs
}

// Helper functions

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
