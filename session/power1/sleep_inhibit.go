// SPDX-FileCopyrightText: 2018 - 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package power

import (
	"errors"
	"sync"
	"syscall"

	"github.com/godbus/dbus/v5"
	"golang.org/x/xerrors"
)

var ErrInhibitorAcquireFailed = errors.New("acquire inhibitor failed")

var closeInhibitorFd = syscall.Close

const (
	inhibitWhatSleep     = "sleep"
	inhibitWhatLidSwitch = "handle-lid-switch"

	inhibitModeDelay = "delay"
	inhibitModeBlock = "block"
)

// inhibitorLock is one login1 inhibitor. held is true exactly while fd is a
// live descriptor returned by Inhibit.
type inhibitorLock struct {
	actions powerActionCollaborator
	what    string
	why     string
	mode    string

	mu   sync.Mutex
	held bool
	fd   dbus.UnixFD
}

func newInhibitorLock(actions powerActionCollaborator, what, why, mode string) *inhibitorLock {
	return &inhibitorLock{
		actions: actions,
		what:    what,
		why:     why,
		mode:    mode,
		fd:      -1,
	}
}

func (l *inhibitorLock) Held() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held
}

func (l *inhibitorLock) Acquire() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.acquireLocked()
}

func (l *inhibitorLock) acquireLocked() error {
	if l.held {
		return nil
	}
	fd, err := l.actions.Inhibit(l.what, dbusServiceName, l.why, l.mode)
	if err != nil {
		return xerrors.Errorf("%s %s inhibitor (%v): %w", l.mode, l.what, err, ErrInhibitorAcquireFailed)
	}
	l.fd = fd
	l.held = true
	logger.Debugf("hold %s %s inhibitor, fd %d", l.mode, l.what, fd)
	return nil
}

func (l *inhibitorLock) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.releaseLocked()
}

func (l *inhibitorLock) releaseLocked() error {
	if !l.held {
		return nil
	}
	fd := l.fd
	l.held = false
	l.fd = -1
	logger.Debugf("release %s %s inhibitor, fd %d", l.mode, l.what, fd)
	err := closeInhibitorFd(int(fd))
	if err != nil {
		return xerrors.Errorf("close %s inhibitor fd %d: %w", l.what, fd, err)
	}
	return nil
}

// Reacquire replaces a held inhibitor after login1 restarted and forgot it.
func (l *inhibitorLock) Reacquire() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.held {
		return nil
	}
	err := l.releaseLocked()
	if err != nil {
		logger.Warning(err)
	}
	return l.acquireLocked()
}
