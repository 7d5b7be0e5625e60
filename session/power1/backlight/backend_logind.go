// SPDX-FileCopyrightText: 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package backlight

import (
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
)

const (
	login1ServiceName      = "org.freedesktop.login1"
	login1SessionInterface = "org.freedesktop.login1.Session"
	login1AutoSessionPath  = "/org/freedesktop/login1/session/auto"
)

func sessionObject(conn *dbus.Conn, path dbus.ObjectPath) dbus.BusObject {
	if path == "" {
		path = login1AutoSessionPath
	}
	return conn.Object(login1ServiceName, path)
}

// logindSupportsBrightness reports whether the session object has the
// SetBrightness method (systemd >= 243).
func logindSupportsBrightness(conn *dbus.Conn, path dbus.ObjectPath) bool {
	node, err := introspect.Call(sessionObject(conn, path))
	if err != nil {
		logger.Debug("introspect login1 session:", err)
		return false
	}
	for _, ifc := range node.Interfaces {
		if ifc.Name != login1SessionInterface {
			continue
		}
		for _, method := range ifc.Methods {
			if method.Name == "SetBrightness" {
				return true
			}
		}
	}
	return false
}

type logindBackend struct {
	dev     *localDevice
	session dbus.BusObject

	mu      sync.Mutex
	watcher *sysfsWatcher
}

func newLogindBackend(dev *localDevice, conn *dbus.Conn, path dbus.ObjectPath) *logindBackend {
	return &logindBackend{
		dev:     dev,
		session: sessionObject(conn, path),
	}
}

func (b *logindBackend) Name() string {
	return backendNameLogind
}

func (b *logindBackend) Range() Range {
	return b.dev.rng
}

func (b *logindBackend) Get() (int, error) {
	return b.dev.get()
}

func (b *logindBackend) Set(value int) (int, error) {
	err := b.session.Call(login1SessionInterface+".SetBrightness", 0,
		"backlight", b.dev.name, uint32(value)).Err
	if err != nil {
		return 0, err
	}
	return b.dev.get()
}

func (b *logindBackend) SupportsHotplugNotify() bool {
	return true
}

func (b *logindBackend) Watch(fn func()) error {
	w, err := newSysfsWatcher(deviceFiles(b.dev), fn)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.watcher = w
	b.mu.Unlock()
	return nil
}

func (b *logindBackend) Close() error {
	b.mu.Lock()
	w := b.watcher
	b.watcher = nil
	b.mu.Unlock()
	if w != nil {
		return w.Close()
	}
	return nil
}
