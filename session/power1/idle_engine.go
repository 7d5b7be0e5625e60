// SPDX-FileCopyrightText: 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package power

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/linuxdeepin/dde-power-daemon/session/power1/backlight"
)

var ErrPolicyActionFailed = errors.New("power action failed")

// PolicyActionError is reported when an automatic power action could not run.
type PolicyActionError struct {
	Action powerAction
	Err    error
}

func (e *PolicyActionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Action, e.Err)
}

func (e *PolicyActionError) Unwrap() error {
	return e.Err
}

func (e *PolicyActionError) Is(target error) bool {
	return target == ErrPolicyActionFailed
}

const (
	defaultUnidleDelay = 15 * time.Second

	// seconds
	lockScreenBlankTimeout = 30
	minDimTimeout          = 10
	dimTimeoutWithoutBlank = 60
)

type idleWatchKind int

const (
	idleWatchDim idleWatchKind = iota
	idleWatchBlank
	idleWatchSleepWarning
	idleWatchSleep
)

func (k idleWatchKind) String() string {
	switch k {
	case idleWatchDim:
		return "dim"
	case idleWatchBlank:
		return "blank"
	case idleWatchSleepWarning:
		return "sleep-warning"
	case idleWatchSleep:
		return "sleep"
	}
	return "unknown"
}

type idleWatch struct {
	id         uint32
	intervalMs uint64
}

type idleEngineDeps struct {
	backlight brightnessController
	keyboard  keyboardBacklight
	monitor   idleMonitor
	session   sessionCollaborator
	actions   powerActionCollaborator
	output    outputPower
	warner    sleepWarner
	isVM      bool
}

// IdleEngine moves the session through Normal, Dim, Blank and Sleep as idle
// watches fire. Automatic transitions only go deeper; only activity or a
// session change brings it back to Normal.
type IdleEngine struct {
	backlight brightnessController
	keyboard  keyboardBacklight
	monitor   idleMonitor
	session   sessionCollaborator
	actions   powerActionCollaborator
	output    outputPower
	warner    sleepWarner
	isVM      bool

	UnidleDelay time.Duration

	mu                sync.Mutex
	cfg               Config
	mode              IdleMode
	sessionActive     bool
	inhibitors        InhibitorMask
	screensaverActive bool
	onBattery         bool
	paused            bool

	preDim       int
	kbdSaved     int
	warningShown bool

	watches      map[idleWatchKind]*idleWatch
	userActiveID uint32

	// generation changes on every mode transition
	generation uint64
	unidleTask *delayedTask
	unidleSeq  uint64
	unidleGen  uint64
	unidlePrev IdleMode

	modeCbs []func(IdleMode)
}

func newIdleEngine(deps idleEngineDeps, cfg Config) *IdleEngine {
	return &IdleEngine{
		backlight:   deps.backlight,
		keyboard:    deps.keyboard,
		monitor:     deps.monitor,
		session:     deps.session,
		actions:     deps.actions,
		output:      deps.output,
		warner:      deps.warner,
		isVM:        deps.isVM,
		UnidleDelay: defaultUnidleDelay,
		cfg:         cfg,
		preDim:      -1,
		kbdSaved:    -1,
		watches:     make(map[idleWatchKind]*idleWatch),
	}
}

// Start reads the session state and arms the idle watches.
func (e *IdleEngine) Start(onBattery bool) {
	active, err := e.session.IsActive()
	if err != nil {
		logger.Warning("get session active:", err)
	}
	mask, err := e.session.InhibitedActions()
	if err != nil {
		logger.Warning("get inhibited actions:", err)
	}

	e.mu.Lock()
	e.sessionActive = active
	e.inhibitors = mask
	e.onBattery = onBattery
	e.rearmLocked()
	e.mu.Unlock()
	logger.Infof("idle engine started, session active %v, inhibitors %v", active, mask)
}

// Stop removes the watches and leaves the panel, the outputs and the
// keyboard backlight as they were before the session went idle.
func (e *IdleEngine) Stop() {
	e.mu.Lock()
	e.paused = true
	e.cancelUnidleLocked()
	fx := e.setModeLocked(IdleModeNormal, "stopped")
	fx = append(fx, e.closeWarningLocked()...)
	for kind, w := range e.watches {
		e.removeWatchLocked(kind, w)
	}
	e.removeUserActiveWatchLocked()
	e.mu.Unlock()
	fx.run()
}

func (e *IdleEngine) Mode() IdleMode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

func (e *IdleEngine) ConnectModeChanged(cb func(mode IdleMode)) {
	e.mu.Lock()
	e.modeCbs = append(e.modeCbs, cb)
	e.mu.Unlock()
}

func (e *IdleEngine) HandleWatchFired(id uint32) {
	e.mu.Lock()
	fx := e.watchFiredLocked(id)
	e.mu.Unlock()
	fx.run()
}

func (e *IdleEngine) watchFiredLocked(id uint32) effects {
	if id == 0 {
		return nil
	}
	if id == e.userActiveID {
		e.userActiveID = 0
		e.cancelUnidleLocked()
		fx := e.setModeLocked(IdleModeNormal, "user active")
		// the warning can be shown while still Normal
		fx = append(fx, e.closeWarningLocked()...)
		e.rearmLocked()
		return fx
	}

	kind, ok := e.watchKindLocked(id)
	if !ok {
		logger.Debug("ignore removed idle watch", id)
		return nil
	}
	if e.paused || !e.sessionActive || e.inhibitors.Has(InhibitIdle) {
		logger.Debugf("ignore %v watch, paused %v active %v inhibitors %v",
			kind, e.paused, e.sessionActive, e.inhibitors)
		return nil
	}

	switch kind {
	case idleWatchDim:
		return e.setModeLocked(IdleModeDim, "idle dim timeout")
	case idleWatchBlank:
		return e.setModeLocked(IdleModeBlank, "idle blank timeout")
	case idleWatchSleepWarning:
		return e.sleepWarningLocked()
	case idleWatchSleep:
		return e.sleepLocked()
	}
	return nil
}

func (e *IdleEngine) watchKindLocked(id uint32) (idleWatchKind, bool) {
	for kind, w := range e.watches {
		if w.id == id {
			return kind, true
		}
	}
	return 0, false
}

// setModeLocked applies a transition. Shallower targets other than Normal
// are refused.
func (e *IdleEngine) setModeLocked(mode IdleMode, reason string) effects {
	if mode == e.mode {
		return nil
	}
	if mode != IdleModeNormal && mode < e.mode {
		logger.Debugf("refuse idle mode %v -> %v", e.mode, mode)
		return nil
	}
	prev := e.mode
	e.mode = mode
	e.generation++
	logger.Infof("idle mode %v -> %v (%s)", prev, mode, reason)

	var fx effects
	switch mode {
	case IdleModeNormal:
		fx = e.wakeLocked(prev)
	case IdleModeDim:
		fx = e.dimLocked()
	case IdleModeBlank:
		fx = e.blankLocked()
	}

	cbs := make([]func(IdleMode), len(e.modeCbs))
	copy(cbs, e.modeCbs)
	fx.add(func() {
		for _, cb := range cbs {
			cb(mode)
		}
	})
	e.rearmLocked()
	return fx
}

func (e *IdleEngine) dimLocked() effects {
	_, percent := e.backlight.Brightness()
	if percent < 0 {
		return nil
	}
	e.preDim = percent
	idle := int(e.cfg.IdleBrightness)
	if idle >= percent {
		logger.Debugf("brightness %d%% already at or below idle brightness %d%%", percent, idle)
		return nil
	}
	bl := e.backlight
	return effects{func() {
		logFuture("dim backlight", bl.SetBrightnessPercent(idle))
	}}
}

func (e *IdleEngine) blankLocked() effects {
	var fx effects
	output := e.output
	fx.add(func() {
		err := output.SetOutputOn(false)
		if err != nil {
			logger.Warning("turn off output:", err)
		}
	})

	if e.keyboard != nil && e.kbdSaved < 0 {
		value, err := e.keyboard.Get()
		if err != nil {
			logger.Warning("get keyboard backlight:", err)
		} else if value > 0 {
			e.kbdSaved = value
			kbd := e.keyboard
			fx.add(func() {
				err := kbd.Set(0)
				if err != nil {
					logger.Warning("turn off keyboard backlight:", err)
				}
			})
		}
	}
	return fx
}

func (e *IdleEngine) wakeLocked(prev IdleMode) effects {
	var fx effects
	if e.preDim >= 0 {
		percent := e.preDim
		e.preDim = -1
		bl := e.backlight
		fx.add(func() {
			logFuture("restore backlight", bl.SetBrightnessPercent(percent))
		})
	}
	if e.kbdSaved >= 0 {
		value := e.kbdSaved
		e.kbdSaved = -1
		kbd := e.keyboard
		fx.add(func() {
			err := kbd.Set(value)
			if err != nil {
				logger.Warning("restore keyboard backlight:", err)
			}
		})
	}
	if prev >= IdleModeBlank {
		output := e.output
		fx.add(func() {
			err := output.SetOutputOn(true)
			if err != nil {
				logger.Warning("turn on output:", err)
			}
		})
	}
	return append(fx, e.closeWarningLocked()...)
}

func (e *IdleEngine) closeWarningLocked() effects {
	if !e.warningShown {
		return nil
	}
	e.warningShown = false
	return effects{e.warner.CloseSleepWarning}
}

// sleepActionLocked is the configured inactive action after the VM override.
func (e *IdleEngine) sleepActionLocked() (powerAction, int32) {
	action, timeout := e.cfg.sleepPolicy(e.onBattery)
	if e.isVM && (action == powerActionSuspend || action == powerActionHibernate) {
		action = powerActionDoNothing
	}
	switch action {
	case powerActionSuspend, powerActionHibernate, powerActionShutdown, powerActionLogout:
	default:
		return powerActionDoNothing, 0
	}
	if timeout <= 0 {
		return powerActionDoNothing, 0
	}
	return action, timeout
}

func (e *IdleEngine) sleepLocked() effects {
	action, _ := e.sleepActionLocked()
	if action == powerActionDoNothing {
		return nil
	}
	if e.inhibitors.blocks(action) {
		logger.Infof("idle %v inhibited by %v", action, e.inhibitors)
		return nil
	}
	fx := e.setModeLocked(IdleModeSleep, "idle sleep timeout")
	fx.add(func() {
		e.runAction(action)
	})
	return fx
}

func (e *IdleEngine) runAction(action powerAction) {
	logger.Info("run idle action", action)
	var err error
	switch action {
	case powerActionSuspend:
		err = e.actions.Suspend()
	case powerActionHibernate:
		err = e.actions.Hibernate()
	case powerActionShutdown:
		err = e.session.Shutdown()
	case powerActionLogout:
		err = e.session.Logout()
	}
	if err != nil {
		err = &PolicyActionError{Action: action, Err: err}
		logger.Warning(err)
		e.warner.ReportActionFailed(action, err)
	}
}

func (e *IdleEngine) sleepWarningLocked() effects {
	if e.warningShown || e.mode >= IdleModeSleep {
		return nil
	}
	action, timeout := e.sleepActionLocked()
	if !action.hasWarning() || e.inhibitors.blocks(action) {
		return nil
	}
	e.warningShown = true
	e.rearmLocked()
	remaining := time.Duration(timeout-timeout/2) * time.Second
	warner := e.warner
	return effects{func() {
		warner.ShowSleepWarning(action, remaining)
	}}
}

func (e *IdleEngine) blankTimeoutLocked() int32 {
	if e.screensaverActive {
		return lockScreenBlankTimeout
	}
	if e.cfg.IdleDelay < 0 {
		return 0
	}
	return e.cfg.IdleDelay
}

func (e *IdleEngine) dimTimeoutLocked(blank int32) int32 {
	if !e.cfg.IdleDim || e.screensaverActive {
		return 0
	}
	if blank == 0 {
		return dimTimeoutWithoutBlank
	}
	dim := blank * 4 / 5
	if dim < minDimTimeout {
		dim = minDimTimeout
	}
	if dim >= blank {
		return 0
	}
	return dim
}

// rearmLocked makes the armed watches match the current state. A watch is
// only recreated when its timeout changed.
func (e *IdleEngine) rearmLocked() {
	active := e.sessionActive && !e.paused
	var dim, blank, warn, sleep int32
	if active && !e.inhibitors.Has(InhibitIdle) {
		blank = e.blankTimeoutLocked()
		dim = e.dimTimeoutLocked(blank)
		var action powerAction
		action, sleep = e.sleepActionLocked()
		if action.hasWarning() {
			warn = sleep / 2
		}
	}

	e.updateWatchLocked(idleWatchDim, dim, e.mode < IdleModeDim)
	e.updateWatchLocked(idleWatchBlank, blank, e.mode < IdleModeBlank)
	e.updateWatchLocked(idleWatchSleepWarning, warn, e.mode < IdleModeSleep)
	e.updateWatchLocked(idleWatchSleep, sleep, e.mode < IdleModeSleep)

	if active && (e.mode > IdleModeNormal || e.unidleTask != nil || e.warningShown) {
		e.addUserActiveWatchLocked()
	} else {
		e.removeUserActiveWatchLocked()
	}
}

func (e *IdleEngine) updateWatchLocked(kind idleWatchKind, timeout int32, wanted bool) {
	w := e.watches[kind]
	if !wanted || timeout <= 0 {
		if w != nil {
			e.removeWatchLocked(kind, w)
		}
		return
	}

	interval := uint64(timeout) * 1000
	if w != nil {
		if w.intervalMs == interval {
			return
		}
		e.removeWatchLocked(kind, w)
	}
	id, err := e.monitor.AddIdleWatch(interval)
	if err != nil {
		logger.Warningf("add %v idle watch: %v", kind, err)
		return
	}
	e.watches[kind] = &idleWatch{id: id, intervalMs: interval}
	logger.Debugf("armed %v idle watch %d after %dms", kind, id, interval)
}

// removeWatchLocked forgets the id before removing the remote watch so a
// late firing is ignored.
func (e *IdleEngine) removeWatchLocked(kind idleWatchKind, w *idleWatch) {
	delete(e.watches, kind)
	err := e.monitor.RemoveWatch(w.id)
	if err != nil {
		logger.Warningf("remove %v idle watch %d: %v", kind, w.id, err)
	}
}

func (e *IdleEngine) addUserActiveWatchLocked() {
	if e.userActiveID != 0 {
		return
	}
	id, err := e.monitor.AddUserActiveWatch()
	if err != nil {
		logger.Warning("add user active watch:", err)
		return
	}
	e.userActiveID = id
}

func (e *IdleEngine) removeUserActiveWatchLocked() {
	if e.userActiveID == 0 {
		return
	}
	id := e.userActiveID
	e.userActiveID = 0
	err := e.monitor.RemoveWatch(id)
	if err != nil {
		logger.Warningf("remove user active watch %d: %v", id, err)
	}
}

func (e *IdleEngine) SetSessionActive(active bool) {
	e.mu.Lock()
	if e.sessionActive == active {
		e.mu.Unlock()
		return
	}
	e.sessionActive = active
	var fx effects
	if !active {
		e.cancelUnidleLocked()
		fx = e.setModeLocked(IdleModeNormal, "session inactive")
		fx = append(fx, e.closeWarningLocked()...)
	}
	e.rearmLocked()
	e.mu.Unlock()
	fx.run()
}

func (e *IdleEngine) SetInhibitors(mask InhibitorMask) {
	e.mu.Lock()
	if e.inhibitors == mask {
		e.mu.Unlock()
		return
	}
	logger.Debugf("inhibitors %v -> %v", e.inhibitors, mask)
	e.inhibitors = mask
	var fx effects
	if mask.Has(InhibitIdle) && !e.screensaverActive {
		e.cancelUnidleLocked()
		fx = e.setModeLocked(IdleModeNormal, "idle inhibited")
		fx = append(fx, e.closeWarningLocked()...)
	}
	e.rearmLocked()
	e.mu.Unlock()
	fx.run()
}

// RefreshInhibitors re-reads the inhibited actions from the session.
func (e *IdleEngine) RefreshInhibitors() {
	mask, err := e.session.InhibitedActions()
	if err != nil {
		logger.Warning("get inhibited actions:", err)
		return
	}
	e.SetInhibitors(mask)
}

func (e *IdleEngine) SetScreensaverActive(active bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.screensaverActive == active {
		return
	}
	e.screensaverActive = active
	e.rearmLocked()
}

func (e *IdleEngine) SetConfig(cfg Config) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg = cfg
	logger.Debug("idle engine config:", spew.Sdump(cfg))
	e.rearmLocked()
}

// SetOnBattery switches the sleep policy. Plugging in AC while dimmed or
// blanked lifts the idle state for a grace period.
func (e *IdleEngine) SetOnBattery(onBattery bool) {
	e.mu.Lock()
	if e.onBattery == onBattery {
		e.mu.Unlock()
		return
	}
	e.onBattery = onBattery
	var fx effects
	if !onBattery && e.sessionActive && !e.paused &&
		(e.mode == IdleModeDim || e.mode == IdleModeBlank || e.unidleTask != nil) {
		fx = e.startUnidleLocked()
	}
	e.rearmLocked()
	e.mu.Unlock()
	fx.run()
}

func (e *IdleEngine) startUnidleLocked() effects {
	if e.unidleTask == nil {
		e.unidlePrev = e.mode
	} else {
		e.unidleTask.Cancel()
	}
	fx := e.setModeLocked(IdleModeNormal, "power source changed to AC")
	e.unidleGen = e.generation
	e.unidleSeq++
	seq := e.unidleSeq
	e.unidleTask = newDelayedTask("unidle", e.UnidleDelay, func() {
		e.finishUnidle(seq)
	})
	e.rearmLocked()
	return fx
}

func (e *IdleEngine) finishUnidle(seq uint64) {
	e.mu.Lock()
	if e.unidleTask == nil || seq != e.unidleSeq {
		e.mu.Unlock()
		return
	}
	e.unidleTask = nil
	var fx effects
	if e.generation != e.unidleGen || !e.sessionActive || e.paused {
		logger.Debug("skip restoring idle mode", e.unidlePrev)
	} else {
		fx = e.setModeLocked(e.unidlePrev, "un-idle grace expired")
	}
	e.rearmLocked()
	e.mu.Unlock()
	fx.run()
}

func (e *IdleEngine) cancelUnidleLocked() {
	if e.unidleTask != nil {
		e.unidleTask.Cancel()
		e.unidleTask = nil
	}
}

// PrepareForSleep blanks the outputs and drops the sleep warning before the
// system suspends.
func (e *IdleEngine) PrepareForSleep() {
	e.mu.Lock()
	e.paused = true
	e.cancelUnidleLocked()
	var fx effects
	if e.mode < IdleModeBlank {
		fx = e.setModeLocked(IdleModeBlank, "prepare for sleep")
	} else {
		output := e.output
		fx.add(func() {
			err := output.SetOutputOn(false)
			if err != nil {
				logger.Warning("turn off output:", err)
			}
		})
		e.rearmLocked()
	}
	fx = append(fx, e.closeWarningLocked()...)
	e.mu.Unlock()
	fx.run()
}

// Resume returns to Normal with the outputs on and re-reads the brightness.
func (e *IdleEngine) Resume() {
	e.mu.Lock()
	e.paused = false
	var fx effects
	if e.mode != IdleModeNormal {
		fx = e.setModeLocked(IdleModeNormal, "resumed")
	} else {
		output := e.output
		fx.add(func() {
			err := output.SetOutputOn(true)
			if err != nil {
				logger.Warning("turn on output:", err)
			}
		})
	}
	bl := e.backlight
	fx.add(bl.RefreshFromDevice)
	e.rearmLocked()
	e.mu.Unlock()
	fx.run()
}

func logFuture(what string, f *backlight.Future) {
	go func() {
		_, err := f.Result()
		if err != nil {
			logger.Warningf("%s: %v", what, err)
		}
	}()
}
