// SPDX-FileCopyrightText: 2018 - 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package power

import (
	"github.com/godbus/dbus/v5"
	sessionmanager "github.com/linuxdeepin/go-dbus-factory/session/org.deepin.dde.sessionmanager1"
	login1 "github.com/linuxdeepin/go-dbus-factory/system/org.freedesktop.login1"
	"golang.org/x/xerrors"
)

// sessionPowerActions requests sleep and power off through the session
// manager and takes inhibitors from login1.
type sessionPowerActions struct {
	sessionManager sessionmanager.SessionManager
	loginManager   login1.Manager
}

func (a *sessionPowerActions) Can(action powerAction) bool {
	var can bool
	var err error
	switch action {
	case powerActionSuspend:
		can, err = a.sessionManager.CanSuspend(0)
	case powerActionHibernate:
		can, err = a.sessionManager.CanHibernate(0)
	case powerActionShutdown:
		can, err = a.sessionManager.CanShutdown(0)
	default:
		return true
	}
	if err != nil {
		logger.Warning(err)
		return false
	}
	return can
}

func (a *sessionPowerActions) Suspend() error {
	if !a.Can(powerActionSuspend) {
		return xerrors.New("can not suspend")
	}
	logger.Debug("suspend")
	return a.sessionManager.RequestSuspend(0)
}

func (a *sessionPowerActions) Hibernate() error {
	if !a.Can(powerActionHibernate) {
		return xerrors.New("can not hibernate")
	}
	logger.Debug("hibernate")
	return a.sessionManager.RequestHibernate(0)
}

func (a *sessionPowerActions) PowerOff() error {
	if !a.Can(powerActionShutdown) {
		return xerrors.New("can not shutdown")
	}
	logger.Debug("shutdown")
	return a.sessionManager.RequestShutdown(0)
}

func (a *sessionPowerActions) Inhibit(what, who, why, mode string) (dbus.UnixFD, error) {
	return a.loginManager.Inhibit(0, what, who, why, mode)
}
