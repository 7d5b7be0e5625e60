// SPDX-FileCopyrightText: 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package power

import (
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/linuxdeepin/dde-power-daemon/session/power1/backlight"
)

type brightnessController interface {
	Brightness() (percent, targetPercent int)
	SetBrightnessPercent(percent int) *backlight.Future
	RefreshFromDevice()
}

type idleMonitor interface {
	AddIdleWatch(intervalMs uint64) (uint32, error)
	AddUserActiveWatch() (uint32, error)
	RemoveWatch(id uint32) error
}

type sessionCollaborator interface {
	IsActive() (bool, error)
	InhibitedActions() (InhibitorMask, error)
	Logout() error
	Shutdown() error
}

type powerActionCollaborator interface {
	Can(action powerAction) bool
	Suspend() error
	Hibernate() error
	PowerOff() error
	Inhibit(what, who, why, mode string) (dbus.UnixFD, error)
}

// outputPower switches the displays on or off without touching brightness.
type outputPower interface {
	SetOutputOn(on bool) error
}

type keyboardBacklight interface {
	Get() (int, error)
	Set(value int) error
}

type sleepWarner interface {
	ShowSleepWarning(action powerAction, remaining time.Duration)
	CloseSleepWarning()
	ReportActionFailed(action powerAction, err error)
}

type screenLocker interface {
	Lock() error
	SimulateUserActivity() error
}

// effects are run once the engine lock has been released.
type effects []func()

func (fx *effects) add(fn func()) {
	*fx = append(*fx, fn)
}

func (fx effects) run() {
	for _, fn := range fx {
		fn()
	}
}
