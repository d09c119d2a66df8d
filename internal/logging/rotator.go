package logging

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// RotatorConfig configures a FileRotator.
type RotatorConfig struct {
	// Path is the active file. Rotated files are written next to it as
	// name-YYYYMMDD-HHMMSS.ext, gzip-compressed if Compress is set.
	Path string

	// MaxSizeMB triggers a rotation when the next write would exceed it.
	// Zero disables size-based rotation.
	MaxSizeMB int64

	// MaxBackups is the number of rotated files kept.
	MaxBackups int

	Compress bool

	// Daily also rotates when the day changes.
	Daily bool
}

// FileRotator is an io.Writer that appends to a file and rotates it.
type FileRotator struct {
	config   RotatorConfig
	mu       sync.Mutex
	file     *os.File
	size     int64
	lastTime time.Time
	now      func() time.Time
	bg       sync.WaitGroup
}

// NewFileRotator opens cfg.Path for appending, creating its directory.
func NewFileRotator(cfg RotatorConfig) (*FileRotator, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("rotator: empty path")
	}
	r := &FileRotator{config: cfg, now: time.Now}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0750); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	if err := r.openFile(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *FileRotator) openFile() error {
	file, err := os.OpenFile(r.config.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0640)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("stat log file: %w", err)
	}

	r.file = file
	r.size = info.Size()
	r.lastTime = r.now()
	return nil
}

// Write implements io.Writer.
func (r *FileRotator) Write(p []byte) (n int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		if err := r.openFile(); err != nil {
			return 0, err
		}
	}

	if r.shouldRotate(int64(len(p))) {
		if err := r.rotate(); err != nil {
			return 0, fmt.Errorf("rotate log: %w", err)
		}
	}

	n, err = r.file.Write(p)
	r.size += int64(n)
	return n, err
}

func (r *FileRotator) shouldRotate(writeSize int64) bool {
	if r.size == 0 {
		return false
	}
	if r.config.MaxSizeMB > 0 && r.size+writeSize > r.config.MaxSizeMB*1024*1024 {
		return true
	}
	if r.config.Daily {
		now := r.now()
		if now.YearDay() != r.lastTime.YearDay() || now.Year() != r.lastTime.Year() {
			return true
		}
	}
	return false
}

func (r *FileRotator) rotate() error {
	if err := r.file.Close(); err != nil {
		return fmt.Errorf("close current log: %w", err)
	}
	r.file = nil

	rotatedPath := r.rotatedName(r.now())
	if err := os.Rename(r.config.Path, rotatedPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("rename log file: %w", err)
	}

	if err := r.openFile(); err != nil {
		return err
	}

	r.bg.Add(1)
	go func() {
		defer r.bg.Done()
		if r.config.Compress {
			compressFile(rotatedPath)
		}
		r.cleanup()
	}()
	return nil
}

// rotatedName returns an unused name for a file rotated at t.
func (r *FileRotator) rotatedName(t time.Time) string {
	dir, name, ext := r.parts()
	stamp := t.Format("20060102-150405")
	path := filepath.Join(dir, fmt.Sprintf("%s-%s%s", name, stamp, ext))
	for i := 1; fileExists(path) || fileExists(path+".gz"); i++ {
		path = filepath.Join(dir, fmt.Sprintf("%s-%s.%d%s", name, stamp, i, ext))
	}
	return path
}

func (r *FileRotator) parts() (dir, name, ext string) {
	base := filepath.Base(r.config.Path)
	ext = filepath.Ext(base)
	return filepath.Dir(r.config.Path), strings.TrimSuffix(base, ext), ext
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// compressFile gzips path into path.gz and removes path.
func compressFile(path string) {
	input, err := os.Open(path)
	if err != nil {
		return
	}
	defer input.Close()

	output, err := os.Create(path + ".gz")
	if err != nil {
		return
	}
	defer output.Close()

	gz := gzip.NewWriter(output)
	gz.Name = filepath.Base(path)
	gz.ModTime = time.Now()

	if _, err := io.Copy(gz, input); err != nil {
		gz.Close()
		os.Remove(path + ".gz")
		return
	}
	if err := gz.Close(); err != nil {
		os.Remove(path + ".gz")
		return
	}

	os.Remove(path)
}

// cleanup removes the oldest rotated files beyond MaxBackups.
func (r *FileRotator) cleanup() {
	files, err := r.Backups()
	if err != nil || len(files) <= r.config.MaxBackups {
		return
	}
	for _, f := range files[:len(files)-r.config.MaxBackups] {
		os.Remove(f)
	}
}

// Backups returns the rotated files, oldest first.
func (r *FileRotator) Backups() ([]string, error) {
	dir, name, ext := r.parts()
	matches, err := filepath.Glob(filepath.Join(dir, name+"-*"+ext+"*"))
	if err != nil {
		return nil, err
	}

	type fileInfo struct {
		path    string
		modTime time.Time
	}
	files := make([]fileInfo, 0, len(matches))
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil {
			continue
		}
		files = append(files, fileInfo{path: match, modTime: info.ModTime()})
	}
	sort.SliceStable(files, func(i, j int) bool {
		if files[i].modTime.Equal(files[j].modTime) {
			return files[i].path < files[j].path
		}
		return files[i].modTime.Before(files[j].modTime)
	})

	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.path
	}
	return out, nil
}

// Close waits for background compression and closes the file.
func (r *FileRotator) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.bg.Wait()
	if r.file != nil {
		err := r.file.Close()
		r.file = nil
		return err
	}
	return nil
}

// Sync flushes the file to disk.
func (r *FileRotator) Sync() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file != nil {
		return r.file.Sync()
	}
	return nil
}
