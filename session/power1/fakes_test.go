// SPDX-FileCopyrightText: 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package power

import (
	"sort"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/linuxdeepin/dde-power-daemon/session/power1/backlight"
)

type memBacklight struct {
	mu    sync.Mutex
	value int
}

func (b *memBacklight) Name() string { return "mem" }

func (b *memBacklight) Range() backlight.Range { return backlight.Range{Min: 0, Max: 100} }

func (b *memBacklight) SupportsHotplugNotify() bool { return false }

func (b *memBacklight) Watch(fn func()) error { return nil }

func (b *memBacklight) Close() error { return nil }

func (b *memBacklight) Get() (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.value, nil
}

func (b *memBacklight) Set(value int) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.value = value
	return value, nil
}

func (b *memBacklight) get() int {
	v, _ := b.Get()
	return v
}

// gatedBacklight holds every write until release is closed.
type gatedBacklight struct {
	memBacklight
	entered chan int
	release chan struct{}

	wmu    sync.Mutex
	writes []int
}

func newGatedBacklight(value int) *gatedBacklight {
	return &gatedBacklight{
		memBacklight: memBacklight{value: value},
		entered:      make(chan int, 16),
		release:      make(chan struct{}),
	}
}

func (b *gatedBacklight) Set(value int) (int, error) {
	b.wmu.Lock()
	b.writes = append(b.writes, value)
	b.wmu.Unlock()
	b.entered <- value
	<-b.release
	return b.memBacklight.Set(value)
}

func (b *gatedBacklight) getWrites() []int {
	b.wmu.Lock()
	defer b.wmu.Unlock()
	return append([]int(nil), b.writes...)
}

type fakeIdleMonitor struct {
	mu         sync.Mutex
	nextID     uint32
	idle       map[uint32]uint64
	userActive map[uint32]bool
}

func newFakeIdleMonitor() *fakeIdleMonitor {
	return &fakeIdleMonitor{
		idle:       make(map[uint32]uint64),
		userActive: make(map[uint32]bool),
	}
}

func (m *fakeIdleMonitor) AddIdleWatch(intervalMs uint64) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.idle[m.nextID] = intervalMs
	return m.nextID, nil
}

func (m *fakeIdleMonitor) AddUserActiveWatch() (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.userActive[m.nextID] = true
	return m.nextID, nil
}

func (m *fakeIdleMonitor) RemoveWatch(id uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.idle, id)
	delete(m.userActive, id)
	return nil
}

func (m *fakeIdleMonitor) watchFor(intervalMs uint64) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, interval := range m.idle {
		if interval == intervalMs {
			return id
		}
	}
	return 0
}

func (m *fakeIdleMonitor) userActiveWatch() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id := range m.userActive {
		return id
	}
	return 0
}

func (m *fakeIdleMonitor) intervals() []uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []uint64
	for _, interval := range m.idle {
		result = append(result, interval)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

type fakeSession struct {
	mu        sync.Mutex
	active    bool
	mask      InhibitorMask
	logouts   int
	shutdowns int
}

func (s *fakeSession) IsActive() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active, nil
}

func (s *fakeSession) InhibitedActions() (InhibitorMask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mask, nil
}

func (s *fakeSession) Logout() error {
	s.mu.Lock()
	s.logouts++
	s.mu.Unlock()
	return nil
}

func (s *fakeSession) Shutdown() error {
	s.mu.Lock()
	s.shutdowns++
	s.mu.Unlock()
	return nil
}

type inhibitCall struct {
	what, who, why, mode string
}

type fakeActions struct {
	mu         sync.Mutex
	cannot     map[powerAction]bool
	suspends   int
	hibernates int
	powerOffs  int
	suspendErr error
	inhibits   []inhibitCall
	nextFd     dbus.UnixFD
	inhibitErr error
}

func (a *fakeActions) Can(action powerAction) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return !a.cannot[action]
}

func (a *fakeActions) Suspend() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.suspends++
	return a.suspendErr
}

func (a *fakeActions) Hibernate() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hibernates++
	return nil
}

func (a *fakeActions) PowerOff() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.powerOffs++
	return nil
}

func (a *fakeActions) Inhibit(what, who, why, mode string) (dbus.UnixFD, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.inhibitErr != nil {
		return -1, a.inhibitErr
	}
	a.inhibits = append(a.inhibits, inhibitCall{what, who, why, mode})
	a.nextFd++
	return a.nextFd + 100, nil
}

func (a *fakeActions) counts() (suspends, powerOffs int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.suspends, a.powerOffs
}

func (a *fakeActions) inhibitCalls() []inhibitCall {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]inhibitCall(nil), a.inhibits...)
}

type fakeOutput struct {
	mu    sync.Mutex
	calls []bool
}

func (o *fakeOutput) SetOutputOn(on bool) error {
	o.mu.Lock()
	o.calls = append(o.calls, on)
	o.mu.Unlock()
	return nil
}

// last reports the last requested state, true if never switched.
func (o *fakeOutput) last() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.calls) == 0 {
		return true
	}
	return o.calls[len(o.calls)-1]
}

type fakeKeyboard struct {
	mu    sync.Mutex
	value int
}

func (k *fakeKeyboard) Get() (int, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.value, nil
}

func (k *fakeKeyboard) Set(value int) error {
	k.mu.Lock()
	k.value = value
	k.mu.Unlock()
	return nil
}

type fakeWarner struct {
	mu        sync.Mutex
	shown     []powerAction
	remaining []time.Duration
	closed    int
	failed    []error
}

func (w *fakeWarner) ShowSleepWarning(action powerAction, remaining time.Duration) {
	w.mu.Lock()
	w.shown = append(w.shown, action)
	w.remaining = append(w.remaining, remaining)
	w.mu.Unlock()
}

func (w *fakeWarner) CloseSleepWarning() {
	w.mu.Lock()
	w.closed++
	w.mu.Unlock()
}

func (w *fakeWarner) ReportActionFailed(action powerAction, err error) {
	w.mu.Lock()
	w.failed = append(w.failed, err)
	w.mu.Unlock()
}

type fakeLocker struct {
	mu       sync.Mutex
	locks    int
	activity int
}

func (l *fakeLocker) Lock() error {
	l.mu.Lock()
	l.locks++
	l.mu.Unlock()
	return nil
}

func (l *fakeLocker) SimulateUserActivity() error {
	l.mu.Lock()
	l.activity++
	l.mu.Unlock()
	return nil
}

func (l *fakeLocker) lockCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.locks
}
