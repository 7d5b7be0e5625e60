// SPDX-FileCopyrightText: 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package backlight

import (
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/xerrors"
)

const (
	helperTypeDisplay  = "display"
	helperTypeKeyboard = "keyboard"
)

// execCommand is replaced in tests.
var execCommand = exec.Command

// runHelper spawns the privileged helper for a single write.
func runHelper(helperPath, type0, name string, value int) error {
	cmd := execCommand("pkexec", helperPath,
		"-type", type0, "-name", name, "-value", strconv.Itoa(value))
	out, err := cmd.CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg != "" {
			return xerrors.Errorf("%s: %w", msg, err)
		}
		return err
	}
	return nil
}

type helperBackend struct {
	dev        *localDevice
	helperPath string

	mu      sync.Mutex
	watcher *sysfsWatcher
}

func newHelperBackend(dev *localDevice, helperPath string) *helperBackend {
	return &helperBackend{
		dev:        dev,
		helperPath: helperPath,
	}
}

func (b *helperBackend) Name() string {
	return backendNameHelper
}

func (b *helperBackend) Range() Range {
	return b.dev.rng
}

func (b *helperBackend) Get() (int, error) {
	return b.dev.get()
}

func (b *helperBackend) Set(value int) (int, error) {
	err := runHelper(b.helperPath, helperTypeDisplay, b.dev.name, value)
	if err != nil {
		return 0, err
	}
	return b.dev.get()
}

func (b *helperBackend) SupportsHotplugNotify() bool {
	return true
}

func (b *helperBackend) Watch(fn func()) error {
	w, err := newSysfsWatcher(deviceFiles(b.dev), fn)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.watcher = w
	b.mu.Unlock()
	return nil
}

func (b *helperBackend) Close() error {
	b.mu.Lock()
	w := b.watcher
	b.watcher = nil
	b.mu.Unlock()
	if w != nil {
		return w.Close()
	}
	return nil
}

func deviceFiles(dev *localDevice) []string {
	return []string{
		filepath.Join(dev.dir(), "brightness"),
		filepath.Join(dev.dir(), "actual_brightness"),
	}
}

// sysfsWatcher reports kernfs notifications on backlight attributes.
type sysfsWatcher struct {
	watcher *fsnotify.Watcher
	quit    chan struct{}
}

func newSysfsWatcher(files []string, fn func()) (*sysfsWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	added := 0
	for _, file := range files {
		err = watcher.Add(file)
		if err != nil {
			logger.Debugf("watch %q failed: %v", file, err)
			continue
		}
		added++
	}
	if added == 0 {
		_ = watcher.Close()
		return nil, xerrors.Errorf("no watchable file in %v", files)
	}

	w := &sysfsWatcher{
		watcher: watcher,
		quit:    make(chan struct{}),
	}
	go w.loop(fn)
	return w, nil
}

func (w *sysfsWatcher) loop(fn func()) {
	for {
		select {
		case <-w.quit:
			return
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warning("backlight watcher error:", err)
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Chmod) != 0 {
				fn()
			}
		}
	}
}

func (w *sysfsWatcher) Close() error {
	close(w.quit)
	return w.watcher.Close()
}
