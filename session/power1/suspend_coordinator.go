// SPDX-FileCopyrightText: 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package power

import (
	"sync"
	"time"

	"github.com/linuxdeepin/go-lib/multierr"
)

const (
	defaultLidGraceDelay    = 8 * time.Second
	defaultLidDebounceDelay = 1500 * time.Millisecond
)

type sleepHandler interface {
	PrepareForSleep()
	Resume()
}

type monitorInfo interface {
	HasExternalMonitor() (bool, error)
}

type coordinatorDeps struct {
	engine   sleepHandler
	actions  powerActionCollaborator
	session  sessionCollaborator
	locker   screenLocker
	output   outputPower
	monitors monitorInfo
	warner   sleepWarner
}

// SuspendCoordinator holds the login1 inhibitors of the session and reacts
// to suspend, resume and the lid switch.
type SuspendCoordinator struct {
	engine   sleepHandler
	actions  powerActionCollaborator
	session  sessionCollaborator
	locker   screenLocker
	output   outputPower
	monitors monitorInfo
	warner   sleepWarner

	LidGraceDelay    time.Duration
	LidDebounceDelay time.Duration

	sleepLock *inhibitorLock
	lidLock   *inhibitorLock

	mu              sync.Mutex
	cfg             Config
	onBattery       bool
	externalMonitor bool
	preparedSleep   bool
	graceTask       *delayedTask
	lidTask         *delayedTask
	lidOpenLast     bool
}

func newSuspendCoordinator(deps coordinatorDeps, cfg Config) *SuspendCoordinator {
	return &SuspendCoordinator{
		engine:           deps.engine,
		actions:          deps.actions,
		session:          deps.session,
		locker:           deps.locker,
		output:           deps.output,
		monitors:         deps.monitors,
		warner:           deps.warner,
		LidGraceDelay:    defaultLidGraceDelay,
		LidDebounceDelay: defaultLidDebounceDelay,
		sleepLock:        newInhibitorLock(deps.actions, inhibitWhatSleep, "blank screen before sleep", inhibitModeDelay),
		lidLock:          newInhibitorLock(deps.actions, inhibitWhatLidSwitch, "external monitor connected", inhibitModeBlock),
		cfg:              cfg,
		lidOpenLast:      true,
	}
}

func (c *SuspendCoordinator) Start(onBattery bool) {
	c.mu.Lock()
	c.onBattery = onBattery
	c.mu.Unlock()

	err := c.sleepLock.Acquire()
	if err != nil {
		logger.Warning("run without sleep delay inhibitor:", err)
	}
	c.evaluateMonitors()
}

func (c *SuspendCoordinator) Stop() error {
	c.mu.Lock()
	c.graceTask.Cancel()
	c.lidTask.Cancel()
	c.mu.Unlock()

	var err error
	err = multierr.Append(err, c.sleepLock.Release())
	err = multierr.Append(err, c.lidLock.Release())
	return err
}

func (c *SuspendCoordinator) SetConfig(cfg Config) {
	c.mu.Lock()
	c.cfg = cfg
	c.mu.Unlock()
}

func (c *SuspendCoordinator) SetOnBattery(onBattery bool) {
	c.mu.Lock()
	c.onBattery = onBattery
	c.mu.Unlock()
}

// HandlePrepareForSleep follows login1 PrepareForSleep: the outputs are
// blanked before the delay inhibitor is dropped, and it is taken again on
// resume.
func (c *SuspendCoordinator) HandlePrepareForSleep(before bool) {
	logger.Info("prepare for sleep:", before)
	if before {
		active, err := c.session.IsActive()
		if err != nil {
			logger.Warning("get session active:", err)
		}
		if active {
			c.engine.PrepareForSleep()
			c.mu.Lock()
			c.preparedSleep = true
			c.mu.Unlock()
		}
		err = c.sleepLock.Release()
		if err != nil {
			logger.Warning(err)
		}
		return
	}

	c.mu.Lock()
	prepared := c.preparedSleep
	c.preparedSleep = false
	c.mu.Unlock()
	if prepared {
		c.engine.Resume()
	}
	err := c.sleepLock.Acquire()
	if err != nil {
		logger.Warning("run without sleep delay inhibitor:", err)
	}
}

// HandleLoginManagerRestarted takes the held inhibitors again from the new
// login1 instance.
func (c *SuspendCoordinator) HandleLoginManagerRestarted() {
	logger.Info("login1 restarted, reacquire inhibitors")
	for _, l := range []*inhibitorLock{c.sleepLock, c.lidLock} {
		err := l.Reacquire()
		if err != nil {
			logger.Warning(err)
		}
	}
}

// HandleMonitorsChanged blocks the lid switch at once when an external
// monitor appears and re-checks after a grace period before unblocking it.
func (c *SuspendCoordinator) HandleMonitorsChanged() {
	external, err := c.monitors.HasExternalMonitor()
	if err != nil {
		logger.Warning("check external monitor:", err)
	} else if external {
		c.setExternalMonitor(true)
	}

	c.mu.Lock()
	c.graceTask.Cancel()
	c.graceTask = newDelayedTask("lid-switch-grace", c.LidGraceDelay, c.evaluateMonitors)
	c.mu.Unlock()
}

func (c *SuspendCoordinator) evaluateMonitors() {
	external, err := c.monitors.HasExternalMonitor()
	if err != nil {
		logger.Warning("check external monitor:", err)
		return
	}
	c.setExternalMonitor(external)
}

func (c *SuspendCoordinator) setExternalMonitor(external bool) {
	c.mu.Lock()
	changed := c.externalMonitor != external
	c.externalMonitor = external
	c.mu.Unlock()
	if changed {
		logger.Info("external monitor connected:", external)
	}

	var err error
	if external {
		err = c.lidLock.Acquire()
	} else {
		err = c.lidLock.Release()
	}
	if err != nil {
		logger.Warning(err)
	}
}

func (c *SuspendCoordinator) HandleLidClosed() {
	logger.Info("lid closed")
	c.scheduleLid(false)
}

func (c *SuspendCoordinator) HandleLidOpened() {
	logger.Info("lid opened")
	c.scheduleLid(true)
}

// scheduleLid keeps only the last lid event of a burst. The delay lets the
// compositor finish switching outputs first.
func (c *SuspendCoordinator) scheduleLid(open bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lidTask.Cancel()
	c.lidTask = newDelayedTask("lid-switch", c.LidDebounceDelay, func() {
		c.doLidStateChanged(open)
	})
}

func (c *SuspendCoordinator) doLidStateChanged(open bool) {
	c.mu.Lock()
	if c.lidOpenLast == open {
		c.mu.Unlock()
		logger.Debug("ignore repeated lid state, open:", open)
		return
	}
	c.lidOpenLast = open
	external := c.externalMonitor
	action := c.cfg.lidCloseAction(c.onBattery)
	c.mu.Unlock()

	if open {
		c.onLidOpened()
		return
	}

	active, err := c.session.IsActive()
	if err != nil {
		logger.Warning("get session active:", err)
	}
	if !active {
		logger.Debug("session inactive, ignore lid close")
		return
	}

	if has, err := c.monitors.HasExternalMonitor(); err == nil {
		external = has
	}
	if external {
		logger.Info("lid closed with external monitor, lock screen")
		err = c.locker.Lock()
		if err != nil {
			logger.Warning("lock screen:", err)
		}
		return
	}
	c.runLidAction(action)
}

func (c *SuspendCoordinator) onLidOpened() {
	err := c.output.SetOutputOn(true)
	if err != nil {
		logger.Warning("turn on output:", err)
	}
	err = c.locker.SimulateUserActivity()
	if err != nil {
		logger.Warning("simulate user activity:", err)
	}
}

func (c *SuspendCoordinator) runLidAction(action powerAction) {
	logger.Info("lid close action:", action)
	var err error
	switch action {
	case powerActionSuspend:
		err = c.actions.Suspend()
	case powerActionHibernate:
		err = c.actions.Hibernate()
	case powerActionShutdown:
		err = c.actions.PowerOff()
	case powerActionLogout:
		err = c.session.Logout()
	case powerActionTurnOffScreen:
		err = c.output.SetOutputOn(false)
	case powerActionDoNothing:
		return
	}
	if err != nil {
		err = &PolicyActionError{Action: action, Err: err}
		logger.Warning(err)
		c.warner.ReportActionFailed(action, err)
	}
}
