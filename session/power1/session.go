// SPDX-FileCopyrightText: 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package power

import (
	"github.com/godbus/dbus/v5"
	sessionmanager "github.com/linuxdeepin/go-dbus-factory/session/org.deepin.dde.sessionmanager1"
	sessionwatcher "github.com/linuxdeepin/go-dbus-factory/session/org.deepin.dde.sessionwatcher1"
	"github.com/linuxdeepin/go-lib/dbusutil"
	"golang.org/x/xerrors"
)

const (
	sessionManagerServiceName = "org.deepin.dde.SessionManager1"
	sessionManagerPath        = "/org/deepin/dde/SessionManager1"
	sessionManagerInterface   = sessionManagerServiceName
)

// flags of SessionManager IsInhibited
const (
	smInhibitLogout     uint32 = 1
	smInhibitSwitchUser uint32 = 2
	smInhibitSuspend    uint32 = 4
	smInhibitIdle       uint32 = 8
)

var inhibitorFlags = []struct {
	flag uint32
	mask InhibitorMask
}{
	{smInhibitIdle, InhibitIdle},
	{smInhibitSuspend, InhibitSuspend},
	{smInhibitLogout, InhibitLogout},
}

// sessionState reads the session activity and inhibitors and asks the
// session manager to end the session.
type sessionState struct {
	watcher        sessionwatcher.SessionWatcher
	sessionManager sessionmanager.SessionManager
	smObj          dbus.BusObject
	sigLoop        *dbusutil.SignalLoop
}

func newSessionState(sessionBus *dbus.Conn, sigLoop *dbusutil.SignalLoop,
	watcher sessionwatcher.SessionWatcher, sm sessionmanager.SessionManager) *sessionState {
	return &sessionState{
		watcher:        watcher,
		sessionManager: sm,
		smObj:          sessionBus.Object(sessionManagerServiceName, sessionManagerPath),
		sigLoop:        sigLoop,
	}
}

func (s *sessionState) IsActive() (bool, error) {
	return s.watcher.IsActive().Get(0)
}

func (s *sessionState) InhibitedActions() (InhibitorMask, error) {
	var mask InhibitorMask
	for _, item := range inhibitorFlags {
		var inhibited bool
		err := s.smObj.Call(sessionManagerInterface+".IsInhibited", 0, item.flag).Store(&inhibited)
		if err != nil {
			return mask, xerrors.Errorf("IsInhibited(%d): %w", item.flag, err)
		}
		if inhibited {
			mask |= item.mask
		}
	}
	return mask, nil
}

func (s *sessionState) Logout() error {
	return s.sessionManager.RequestLogout(0)
}

func (s *sessionState) Shutdown() error {
	can, err := s.sessionManager.CanShutdown(0)
	if err != nil {
		return err
	}
	if !can {
		return xerrors.New("can not shutdown")
	}
	return s.sessionManager.RequestShutdown(0)
}

func (s *sessionState) ConnectActiveChanged(cb func(active bool)) error {
	return s.watcher.IsActive().ConnectChanged(func(hasValue bool, value bool) {
		if !hasValue {
			return
		}
		cb(value)
	})
}

// ConnectInhibitorsChanged calls cb whenever an inhibitor is added or removed.
func (s *sessionState) ConnectInhibitorsChanged(cb func()) error {
	for _, member := range []string{"InhibitorAdded", "InhibitorRemoved"} {
		err := s.smObj.AddMatchSignal(sessionManagerInterface, member).Err
		if err != nil {
			return err
		}
		s.sigLoop.AddHandler(&dbusutil.SignalRule{
			Path: sessionManagerPath,
			Name: sessionManagerInterface + "." + member,
		}, func(sig *dbus.Signal) {
			cb()
		})
	}
	return nil
}
