// SPDX-FileCopyrightText: 2018 - 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package power

// nolint
const (
	gsSchemaPower = "com.deepin.dde.power"
	// settingKeys
	settingKeyIdleDelay      = "idle-delay"
	settingKeyIdleDim        = "idle-dim"
	settingKeyIdleBrightness = "idle-brightness"

	settingKeySleepInactiveACType         = "sleep-inactive-ac-type"
	settingKeySleepInactiveACTimeout      = "sleep-inactive-ac-timeout"
	settingKeySleepInactiveBatteryType    = "sleep-inactive-battery-type"
	settingKeySleepInactiveBatteryTimeout = "sleep-inactive-battery-timeout"

	settingKeyAmbientEnabled = "ambient-enabled"

	settingKeyLidCloseACAction      = "lid-close-ac-action"
	settingKeyLidCloseBatteryAction = "lid-close-battery-action"

	// helper binary run through pkexec for sysfs writes
	backlightHelperPath = "/usr/lib/deepin-daemon/dde-backlight-helper"
)

const (
	dbusServiceName = "org.deepin.dde.PowerDaemon1"
	dbusPath        = "/org/deepin/dde/PowerDaemon1"
	dbusInterface   = dbusServiceName
)

type powerAction int32

const (
	powerActionShutdown powerAction = iota
	powerActionSuspend
	powerActionHibernate
	powerActionTurnOffScreen
	powerActionDoNothing
	powerActionLogout
)

func (a powerAction) String() string {
	switch a {
	case powerActionShutdown:
		return "shutdown"
	case powerActionSuspend:
		return "suspend"
	case powerActionHibernate:
		return "hibernate"
	case powerActionTurnOffScreen:
		return "turn-off-screen"
	case powerActionDoNothing:
		return "nothing"
	case powerActionLogout:
		return "logout"
	}
	return "unknown"
}

// hasWarning reports whether the action gets a notification before it runs.
func (a powerAction) hasWarning() bool {
	switch a {
	case powerActionSuspend, powerActionHibernate, powerActionLogout:
		return true
	}
	return false
}
