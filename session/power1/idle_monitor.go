// SPDX-FileCopyrightText: 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package power

import (
	"github.com/godbus/dbus/v5"
	"github.com/linuxdeepin/go-lib/dbusutil"
)

const (
	idleMonitorServiceName = "org.gnome.Mutter.IdleMonitor"
	idleMonitorPath        = "/org/gnome/Mutter/IdleMonitor/Core"
	idleMonitorInterface   = idleMonitorServiceName
)

// mutterIdleMonitor adds and removes idle watches of the compositor. Fired
// watches arrive as WatchFired signals.
type mutterIdleMonitor struct {
	obj     dbus.BusObject
	sigLoop *dbusutil.SignalLoop
}

func newMutterIdleMonitor(sigLoop *dbusutil.SignalLoop) *mutterIdleMonitor {
	return &mutterIdleMonitor{
		obj:     sigLoop.Conn().Object(idleMonitorServiceName, idleMonitorPath),
		sigLoop: sigLoop,
	}
}

func (m *mutterIdleMonitor) AddIdleWatch(intervalMs uint64) (uint32, error) {
	var id uint32
	err := m.obj.Call(idleMonitorInterface+".AddIdleWatch", 0, intervalMs).Store(&id)
	return id, err
}

func (m *mutterIdleMonitor) AddUserActiveWatch() (uint32, error) {
	var id uint32
	err := m.obj.Call(idleMonitorInterface+".AddUserActiveWatch", 0).Store(&id)
	return id, err
}

func (m *mutterIdleMonitor) RemoveWatch(id uint32) error {
	return m.obj.Call(idleMonitorInterface+".RemoveWatch", 0, id).Err
}

func (m *mutterIdleMonitor) ConnectWatchFired(cb func(id uint32)) error {
	err := m.obj.AddMatchSignal(idleMonitorInterface, "WatchFired").Err
	if err != nil {
		return err
	}
	m.sigLoop.AddHandler(&dbusutil.SignalRule{
		Path: idleMonitorPath,
		Name: idleMonitorInterface + ".WatchFired",
	}, func(sig *dbus.Signal) {
		if len(sig.Body) != 1 {
			return
		}
		id, ok := sig.Body[0].(uint32)
		if !ok {
			return
		}
		cb(id)
	})
	return nil
}
