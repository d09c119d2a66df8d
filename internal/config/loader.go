package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// liveKeys are the settings a running daemon applies without a restart.
var liveKeys = map[string]bool{
	"logging.level":      true,
	"correction.enabled": true,
	"correction.context": true,
}

// Diff lists the dotted keys whose values differ between old and cur, in
// file order. A nil old differs in nothing.
func Diff(old, cur *Config) []string {
	if old == nil || cur == nil {
		return nil
	}
	var keys []string
	add := func(key string, changed bool) {
		if changed {
			keys = append(keys, key)
		}
	}
	add("lexicon", old.Lexicon != cur.Lexicon)
	add("layout", old.Layout != cur.Layout)
	add("correction.enabled", old.Correction.Enabled != cur.Correction.Enabled)
	add("correction.context", old.Correction.Context != cur.Correction.Context)
	add("correction.key_delay_ms", old.Correction.KeyDelayMs != cur.Correction.KeyDelayMs)
	add("keyboard", old.Keyboard != cur.Keyboard)
	add("logging.level", old.Logging.Level != cur.Logging.Level)
	oldLog, curLog := old.Logging, cur.Logging
	oldLog.Level, curLog.Level = "", ""
	add("logging", oldLog != curLog)
	add("journal", old.Journal != cur.Journal)
	add("metrics", old.Metrics != cur.Metrics)
	return keys
}

// RestartKeys returns the keys of changed that a running daemon only picks
// up after a restart.
func RestartKeys(changed []string) []string {
	var out []string
	for _, k := range changed {
		if !liveKeys[k] {
			out = append(out, k)
		}
	}
	return out
}

// Loader reads the smartkbd configuration file and, once Watch is called,
// re-reads it every time it is saved. Each valid edit that changes a value
// is handed to the OnChange callbacks; a file that fails to parse or
// validate is reported on Errors and the previous configuration stays.
type Loader struct {
	path     string
	debounce time.Duration

	mu        sync.RWMutex
	current   *Config
	callbacks []func(old, cur *Config)

	watcher *fsnotify.Watcher
	errs    chan error
	stop    context.CancelFunc
	done    chan struct{}
}

// NewLoader creates a loader for path, or for ConfigPath() if path is empty.
func NewLoader(path string) *Loader {
	if path == "" {
		path = ConfigPath()
	}
	return &Loader{
		path:     path,
		debounce: 100 * time.Millisecond,
		errs:     make(chan error, 1),
	}
}

// Path returns the file the loader reads.
func (l *Loader) Path() string {
	return l.path
}

// Load reads the file and makes it the current configuration.
func (l *Loader) Load() (*Config, error) {
	cfg, err := Load(l.path)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.current = cfg
	l.mu.Unlock()
	return cfg, nil
}

// Config returns the current configuration.
func (l *Loader) Config() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// OnChange registers cb for every accepted edit. old is nil when the file
// had not been loaded before.
func (l *Loader) OnChange(cb func(old, cur *Config)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.callbacks = append(l.callbacks, cb)
}

// Errors delivers rejected edits and watcher faults. Only the latest
// undelivered error is kept.
func (l *Loader) Errors() <-chan error {
	return l.errs
}

// Watch follows the file until Close. The parent directory is watched so
// that editors which save by renaming a temporary file are seen.
func (l *Loader) Watch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(l.path)); err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(l.path), err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	l.watcher, l.stop, l.done = w, cancel, make(chan struct{})
	go l.follow(ctx)
	return nil
}

// follow reloads once the file has been quiet for the debounce interval.
// Saves usually arrive as several events.
func (l *Loader) follow(ctx context.Context) {
	defer close(l.done)

	var quiet *time.Timer
	var settled <-chan time.Time
	defer func() {
		if quiet != nil {
			quiet.Stop()
		}
	}()

	name := filepath.Base(l.path)
	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != name || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if quiet == nil {
				quiet = time.NewTimer(l.debounce)
			} else {
				quiet.Reset(l.debounce)
			}
			settled = quiet.C

		case <-settled:
			settled = nil
			l.reload()

		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			l.report(err)
		}
	}
}

func (l *Loader) reload() {
	cfg, err := Load(l.path)
	if err != nil {
		l.report(fmt.Errorf("reload %s: %w", l.path, err))
		return
	}

	l.mu.Lock()
	old := l.current
	if old != nil && len(Diff(old, cfg)) == 0 {
		l.mu.Unlock()
		return
	}
	l.current = cfg
	callbacks := append([]func(old, cur *Config){}, l.callbacks...)
	l.mu.Unlock()

	for _, cb := range callbacks {
		cb(old, cfg)
	}
}

func (l *Loader) report(err error) {
	select {
	case l.errs <- err:
	default:
	}
}

// Close stops watching.
func (l *Loader) Close() error {
	if l.watcher == nil {
		return nil
	}
	l.stop()
	err := l.watcher.Close()
	<-l.done
	return err
}

// decoders parse a config file by extension. Files without a known
// extension are tried against each format in turn.
var decoders = map[string]func([]byte, *Config) error{
	".toml": func(data []byte, cfg *Config) error {
		_, err := toml.Decode(string(data), cfg)
		return err
	},
	".json": func(data []byte, cfg *Config) error { return json.Unmarshal(data, cfg) },
	".yaml": func(data []byte, cfg *Config) error { return yaml.Unmarshal(data, cfg) },
	".yml":  func(data []byte, cfg *Config) error { return yaml.Unmarshal(data, cfg) },
}

// loadConfigFromFile decodes path over the defaults. A missing file yields
// the defaults.
func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	ext := filepath.Ext(path)
	if decode, ok := decoders[ext]; ok {
		cfg := DefaultConfig()
		if err := decode(data, cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", ext, err)
		}
		return cfg, nil
	}

	for _, ext := range []string{".toml", ".json", ".yaml"} {
		cfg := DefaultConfig()
		if decoders[ext](data, cfg) == nil {
			return cfg, nil
		}
	}
	return nil, fmt.Errorf("parse config: %s is not TOML, JSON or YAML", path)
}

// LoadOrCreate loads path, first writing the defaults there if the file does
// not exist. created reports whether the file was written.
func LoadOrCreate(path string) (cfg *Config, created bool, err error) {
	if path == "" {
		path = ConfigPath()
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := SaveConfig(cfg, path); err != nil {
			return nil, false, fmt.Errorf("create default config: %w", err)
		}
		return cfg, true, nil
	}

	cfg, err = Load(path)
	if err != nil {
		return nil, false, err
	}
	return cfg, false, nil
}
