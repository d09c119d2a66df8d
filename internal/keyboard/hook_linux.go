//go:build linux

package keyboard

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/shiraBarShalom/Smart-Keyboard/internal/layout"
)

// inputEventSize is sizeof(struct input_event): a timeval followed by
// type (u16), code (u16) and value (s32).
var inputEventSize = int(unsafe.Sizeof(unix.Timeval{})) + 8

// pollTimeoutMs bounds how long a reader waits before rechecking ctx.
const pollTimeoutMs = 100

// LinuxHook reads key events from /dev/input.
type LinuxHook struct {
	baseHook
	device string
	target layout.Mapper
	active ActiveLayout
}

// NewHook creates a hook for the current platform. If cfg.Device is empty,
// every keyboard found under /dev/input is read.
func NewHook(cfg HookConfig) Hook {
	return &LinuxHook{device: cfg.Device, target: cfg.Target, active: cfg.Active}
}

// Available checks if we can read at least one input device.
func (l *LinuxHook) Available() (bool, string) {
	devices, err := l.devices()
	if err != nil {
		return false, fmt.Sprintf("cannot find keyboard devices: %v", err)
	}
	if len(devices) == 0 {
		return false, "no keyboard devices found"
	}

	for _, dev := range devices {
		f, err := os.OpenFile(dev, os.O_RDONLY, 0)
		if err == nil {
			f.Close()
			return true, fmt.Sprintf("found keyboard device: %s", dev)
		}
	}

	return false, "cannot read keyboard devices (need to be in 'input' group or run as root)"
}

func (l *LinuxHook) devices() ([]string, error) {
	if l.device != "" {
		return []string{l.device}, nil
	}
	return findKeyboardDevices()
}

// findKeyboardDevices finds /dev/input devices that are keyboards.
func findKeyboardDevices() ([]string, error) {
	var devices []string
	seen := make(map[string]bool)
	add := func(dev string) {
		resolved, err := filepath.EvalSymlinks(dev)
		if err != nil {
			resolved = dev
		}
		if !seen[resolved] {
			seen[resolved] = true
			devices = append(devices, resolved)
		}
	}

	f, err := os.Open("/proc/bus/input/devices")
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var handler string
	isKeyboard := false

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, "H: Handlers="):
			fields := strings.Fields(strings.TrimPrefix(line, "H: Handlers="))
			for _, field := range fields {
				if strings.HasPrefix(field, "event") {
					handler = "/dev/input/" + field
				}
				if field == "kbd" {
					isKeyboard = true
				}
			}
		case strings.HasPrefix(line, "B: EV="):
			// EV_REP (bit 20) is set on real keyboards, not on power
			// buttons or lid switches that also carry "kbd".
			bits, err := strconv.ParseUint(strings.TrimSpace(strings.TrimPrefix(line, "B: EV=")), 16, 64)
			if err == nil && bits&(1<<20) == 0 {
				isKeyboard = false
			}
		case line == "":
			if isKeyboard && handler != "" {
				add(handler)
			}
			handler = ""
			isKeyboard = false
		}
	}
	if isKeyboard && handler != "" {
		add(handler)
	}

	matches, _ := filepath.Glob("/dev/input/by-id/*-kbd")
	for _, m := range matches {
		add(m)
	}

	return devices, scanner.Err()
}

// Start opens every keyboard device and fans their events into one channel.
func (l *LinuxHook) Start(ctx context.Context) (<-chan Event, error) {
	if l.isRunning() {
		return nil, ErrAlreadyRunning
	}

	devices, err := l.devices()
	if err != nil || len(devices) == 0 {
		return nil, ErrNotAvailable
	}

	var fds []int
	for _, dev := range devices {
		fd, err := unix.Open(dev, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
		if err != nil {
			continue
		}
		fds = append(fds, fd)
	}
	if len(fds) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, strings.Join(devices, ", "))
	}

	ctx, cancel := context.WithCancel(ctx)
	out := make(chan Event, 128)

	l.mu.Lock()
	l.cancel = cancel
	l.done = make(chan struct{})
	l.running = true
	done := l.done
	l.mu.Unlock()

	var wg sync.WaitGroup
	for _, fd := range fds {
		wg.Add(1)
		go func(fd int) {
			defer wg.Done()
			defer unix.Close(fd)
			dec := &evdevDecoder{target: l.target, active: l.active}
			readDevice(ctx, fd, dec, out)
		}(fd)
	}

	go func() {
		wg.Wait()
		close(out)
		l.setRunning(false)
		close(done)
	}()

	return out, nil
}

// readDevice decodes input_event records from fd until ctx is cancelled or
// the device goes away.
func readDevice(ctx context.Context, fd int, dec *evdevDecoder, out chan<- Event) {
	buf := make([]byte, inputEventSize*64)
	pfd := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	tvSize := inputEventSize - 8

	for {
		if ctx.Err() != nil {
			return
		}

		n, err := unix.Poll(pfd, pollTimeoutMs)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return
		}
		if n == 0 {
			continue
		}
		if pfd[0].Revents&(unix.POLLHUP|unix.POLLERR|unix.POLLNVAL) != 0 {
			return
		}

		n, err = unix.Read(fd, buf)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
				continue
			}
			return
		}

		now := time.Now()
		for off := 0; off+inputEventSize <= n; off += inputEventSize {
			rec := buf[off : off+inputEventSize]
			typ := binary.LittleEndian.Uint16(rec[tvSize : tvSize+2])
			code := binary.LittleEndian.Uint16(rec[tvSize+2 : tvSize+4])
			value := int32(binary.LittleEndian.Uint32(rec[tvSize+4 : tvSize+8]))

			ev, ok := dec.Decode(typ, code, value, now)
			if !ok {
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Stop stops capture and waits for all readers to exit.
func (l *LinuxHook) Stop() error {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return nil
	}
	cancel, done := l.cancel, l.done
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	return nil
}
