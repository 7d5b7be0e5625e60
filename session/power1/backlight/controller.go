// SPDX-FileCopyrightText: 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package backlight

import (
	"sync"
	"time"
)

const defaultRefreshDelay = 50 * time.Millisecond

type pendingOp struct {
	value  int
	future *Future
}

// Controller owns the panel brightness state. Backend writes are strictly
// serialized: requests arriving while a write is in flight only move the
// target, and are all answered by the single write issued for the latest
// target once the current one completes.
type Controller struct {
	backend Backend

	// RefreshDelay coalesces device change notifications.
	RefreshDelay time.Duration

	mu           sync.Mutex
	rng          Range
	current      int
	target       int
	pending      []*pendingOp
	writing      bool
	covered      int
	writeSeq     uint64
	refreshTimer *time.Timer
	closed       bool

	cbMu      sync.Mutex
	changeCbs []func(percent int)
	deviceCbs []func(percent int)
}

// NewController takes ownership of backend. A nil backend yields a disabled
// controller whose queries report -1.
func NewController(backend Backend) *Controller {
	c := &Controller{
		backend:      backend,
		RefreshDelay: defaultRefreshDelay,
	}
	if backend == nil {
		return c
	}

	c.rng = backend.Range()
	value, err := backend.Get()
	if err != nil {
		logger.Warningf("read brightness from %s backend: %v", backend.Name(), err)
		value = c.rng.Max
	}
	c.current = c.rng.Clamp(value)
	c.target = c.current
	logger.Debugf("backlight %s range %v current %d", backend.Name(), c.rng, c.current)

	if backend.SupportsHotplugNotify() {
		err = backend.Watch(c.onDeviceChanged)
		if err != nil {
			logger.Warning("watch backlight device:", err)
		}
	}
	return c
}

func (c *Controller) Enabled() bool {
	return c.backend != nil
}

func (c *Controller) BackendName() string {
	if c.backend == nil {
		return ""
	}
	return c.backend.Name()
}

func (c *Controller) Range() Range {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rng
}

// Brightness returns the confirmed and the requested brightness in percent,
// both -1 when no backend is available.
func (c *Controller) Brightness() (percent, targetPercent int) {
	if !c.Enabled() {
		return -1, -1
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rng.RawToPercent(c.current), c.rng.RawToPercent(c.target)
}

func (c *Controller) ConnectChanged(cb func(percent int)) {
	c.cbMu.Lock()
	c.changeCbs = append(c.changeCbs, cb)
	c.cbMu.Unlock()
}

// ConnectDeviceChanged registers cb for changes made outside the
// controller, such as a hotkey handled by the firmware.
func (c *Controller) ConnectDeviceChanged(cb func(percent int)) {
	c.cbMu.Lock()
	c.deviceCbs = append(c.deviceCbs, cb)
	c.cbMu.Unlock()
}

func (c *Controller) emitChanged(percent int, byDevice bool) {
	c.cbMu.Lock()
	cbs := make([]func(int), 0, len(c.changeCbs)+len(c.deviceCbs))
	cbs = append(cbs, c.changeCbs...)
	if byDevice {
		cbs = append(cbs, c.deviceCbs...)
	}
	c.cbMu.Unlock()
	for _, cb := range cbs {
		cb(percent)
	}
}

func (c *Controller) SetBrightnessPercent(percent int) *Future {
	return c.request(func(rng Range, target int) int {
		return rng.PercentToRaw(percent)
	})
}

func (c *Controller) StepUp() *Future {
	return c.request(func(rng Range, target int) int {
		return rng.Clamp(target + rng.Step())
	})
}

func (c *Controller) StepDown() *Future {
	return c.request(func(rng Range, target int) int {
		return rng.Clamp(target - rng.Step())
	})
}

// CycleUp steps up, wrapping to the minimum once the maximum is reached.
func (c *Controller) CycleUp() *Future {
	return c.request(func(rng Range, target int) int {
		if target >= rng.Max {
			return rng.Min
		}
		return rng.Clamp(target + rng.Step())
	})
}

func (c *Controller) request(next func(rng Range, target int) int) *Future {
	if !c.Enabled() {
		return resolvedFuture(-1, ErrBackendUnavailable)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return resolvedFuture(-1, ErrClosed)
	}
	value := next(c.rng, c.target)
	c.target = value
	op := &pendingOp{value: value, future: newFuture()}
	c.pending = append(c.pending, op)

	var done []*pendingOp
	var percent int
	if !c.writing {
		done, percent = c.startWriteLocked()
	}
	c.mu.Unlock()

	for _, op := range done {
		op.future.resolve(percent, nil)
	}
	return op.future
}

// startWriteLocked issues a write for the current target. When the device
// already holds the target the pending ops are returned for immediate
// resolution instead.
func (c *Controller) startWriteLocked() ([]*pendingOp, int) {
	if len(c.pending) == 0 {
		return nil, 0
	}
	if c.target == c.current {
		done := c.pending
		c.pending = nil
		return done, c.rng.RawToPercent(c.current)
	}

	if c.refreshTimer != nil {
		c.refreshTimer.Stop()
		c.refreshTimer = nil
	}
	c.writing = true
	c.writeSeq++
	c.covered = len(c.pending)
	value := c.target
	go c.write(value)
	return nil, 0
}

func (c *Controller) write(value int) {
	actual, err := c.backend.Set(value)
	if err != nil {
		err = &WriteError{Backend: c.backend.Name(), Value: value, Err: err}
		logger.Warning(err)
	}
	c.finishWrite(actual, err)
}

func (c *Controller) finishWrite(actual int, err error) {
	c.mu.Lock()
	c.writing = false
	finished := c.pending[:c.covered]
	c.pending = c.pending[c.covered:]
	c.covered = 0

	changed := false
	if err == nil {
		actual = c.rng.Clamp(actual)
		changed = actual != c.current
		c.current = actual
	}
	percent := c.rng.RawToPercent(c.current)
	if err != nil {
		percent = -1
	}

	var done []*pendingOp
	var donePercent int
	if !c.closed {
		done, donePercent = c.startWriteLocked()
	} else {
		done = c.pending
		c.pending = nil
	}
	closed := c.closed
	current := c.rng.RawToPercent(c.current)
	c.mu.Unlock()

	if changed {
		c.emitChanged(current, false)
	}
	for _, op := range finished {
		op.future.resolve(percent, err)
	}
	for _, op := range done {
		if closed {
			op.future.resolve(-1, ErrClosed)
		} else {
			op.future.resolve(donePercent, nil)
		}
	}
}

func (c *Controller) onDeviceChanged() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.writing || c.refreshTimer != nil {
		return
	}
	c.refreshTimer = time.AfterFunc(c.RefreshDelay, c.refresh)
}

// RefreshFromDevice schedules a re-read of the device value.
func (c *Controller) RefreshFromDevice() {
	if !c.Enabled() {
		return
	}
	c.onDeviceChanged()
}

func (c *Controller) refresh() {
	c.mu.Lock()
	c.refreshTimer = nil
	if c.writing || c.closed {
		c.mu.Unlock()
		return
	}
	seq := c.writeSeq
	c.mu.Unlock()

	rng := c.backend.Range()
	value, err := c.backend.Get()
	if err != nil {
		logger.Warning("re-read brightness:", err)
		return
	}

	c.mu.Lock()
	// a write since the read makes the value stale
	if c.writing || c.closed || c.writeSeq != seq {
		c.mu.Unlock()
		return
	}
	if rng.Valid() {
		c.rng = rng
	}
	value = c.rng.Clamp(value)
	changed := value != c.current
	if changed {
		c.current = value
		c.target = value
	}
	percent := c.rng.RawToPercent(c.current)
	c.mu.Unlock()

	if changed {
		logger.Debug("brightness changed by device to", percent)
		c.emitChanged(percent, true)
	}
}

// Close releases the backend. Writes already started run to completion.
func (c *Controller) Close() error {
	if c.backend == nil {
		return nil
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	if c.refreshTimer != nil {
		c.refreshTimer.Stop()
		c.refreshTimer = nil
	}
	var orphans []*pendingOp
	if !c.writing {
		orphans = c.pending
		c.pending = nil
	}
	c.mu.Unlock()

	for _, op := range orphans {
		op.future.resolve(-1, ErrClosed)
	}
	return c.backend.Close()
}
