// SPDX-FileCopyrightText: 2018 - 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package power

import (
	"fmt"
	"sync"
	"time"

	dbus "github.com/godbus/dbus/v5"
	"github.com/linuxdeepin/dde-api/soundutils"
	notifications "github.com/linuxdeepin/go-dbus-factory/session/org.freedesktop.notifications"
	screensaver "github.com/linuxdeepin/go-dbus-factory/session/org.freedesktop.screensaver"
	. "github.com/linuxdeepin/go-lib/gettext"
)

const (
	lockFrontServiceName = "org.deepin.dde.LockFront1"
	lockFrontIfc         = lockFrontServiceName
	lockFrontObjPath     = "/org/deepin/dde/LockFront1"
)

type sessionLocker struct {
	conn        *dbus.Conn
	screenSaver screensaver.ScreenSaver
}

func (l *sessionLocker) Lock() error {
	logger.Info("Lock Screen")
	lockFrontObj := l.conn.Object(lockFrontServiceName, lockFrontObjPath)
	return lockFrontObj.Call(lockFrontIfc+".ShowAuth", 0, false).Err
}

func (l *sessionLocker) SimulateUserActivity() error {
	return l.screenSaver.SimulateUserActivity(0)
}

const (
	iconPowerSettings = "preferences-system"
	iconBatteryLow    = "notification-battery-low"
)

// notifier shows the sleep warning and action failures. At most one sleep
// warning is on screen.
type notifier struct {
	notifications notifications.Notifications

	mu        sync.Mutex
	warningID uint32
}

func (n *notifier) notify(replacesID uint32, icon, summary, body string) uint32 {
	id, err := n.notifications.Notify(0, Tr("dde-control-center"), replacesID, icon, summary, body, nil, nil, -1)
	if err != nil {
		logger.Warning(err)
		return 0
	}
	return id
}

func (n *notifier) ShowSleepWarning(action powerAction, remaining time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	logger.Infof("warn %v in %v", action, remaining)
	n.warningID = n.notify(n.warningID, iconBatteryLow,
		getSleepWarningSummary(action), getSleepWarningBody(remaining))
}

func (n *notifier) CloseSleepWarning() {
	n.mu.Lock()
	id := n.warningID
	n.warningID = 0
	n.mu.Unlock()
	if id == 0 {
		return
	}
	err := n.notifications.CloseNotification(0, id)
	if err != nil {
		logger.Warning(err)
	}
}

func (n *notifier) ReportActionFailed(action powerAction, err error) {
	n.notify(0, iconPowerSettings, Tr("Power settings"),
		fmt.Sprintf(Tr("Failed to %s: %v"), getPowerActionVerb(action), err))
}

// NotifySettingChanged tells the user what closing the lid does now.
func (n *notifier) NotifySettingChanged(key string, action powerAction) {
	body := getNotifyString(key, action)
	if body == "" {
		return
	}
	n.notify(0, iconPowerSettings, Tr("Power settings changed"), body)
}

func playSound(name string) {
	logger.Debug("play system sound", name)
	go func() {
		err := soundutils.PlaySystemSound(name, "")
		if err != nil {
			logger.Warning(err)
		}
	}()
}

func getSleepWarningSummary(action powerAction) string {
	switch action {
	case powerActionSuspend:
		return Tr("Computer will suspend very soon because of inactivity")
	case powerActionHibernate:
		return Tr("Computer will hibernate very soon because of inactivity")
	case powerActionLogout:
		return Tr("You will soon log out because of inactivity")
	}
	return ""
}

func getSleepWarningBody(remaining time.Duration) string {
	return fmt.Sprintf(Tr("It will happen in %d seconds"), int(remaining.Seconds()))
}

func getPowerActionVerb(action powerAction) string {
	switch action {
	case powerActionShutdown:
		return Tr("shut down")
	case powerActionSuspend:
		return Tr("suspend")
	case powerActionHibernate:
		return Tr("hibernate")
	case powerActionTurnOffScreen:
		return Tr("turn off the monitor")
	case powerActionLogout:
		return Tr("log out")
	}
	return action.String()
}

func getNotifyString(option string, action powerAction) string {
	var firstPart string
	switch option {
	case
		settingKeyLidCloseACAction,
		settingKeyLidCloseBatteryAction:
		firstPart = Tr("When the lid is closed, ")
	default:
		return ""
	}
	return firstPart + getPowerActionString(action)
}

func getPowerActionString(action powerAction) string {
	switch action {
	case powerActionShutdown:
		return Tr("your computer will shut down")
	case powerActionSuspend:
		return Tr("your computer will suspend")
	case powerActionHibernate:
		return Tr("your computer will hibernate")
	case powerActionTurnOffScreen:
		return Tr("your monitor will turn off")
	case powerActionLogout:
		return Tr("you will be logged out")
	case powerActionDoNothing:
		return Tr("it will do nothing to your computer")
	}
	return ""
}
