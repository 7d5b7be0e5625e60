// SPDX-FileCopyrightText: 2018 - 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package power

import (
	"strings"

	"github.com/godbus/dbus/v5"
	display "github.com/linuxdeepin/go-dbus-factory/session/org.deepin.dde.display1"
	sysPower "github.com/linuxdeepin/go-dbus-factory/system/org.deepin.dde.power1"
)

// connectLidSwitch forwards the lid signals of the system power service to
// the coordinator. Machines without a lid switch get no handlers.
func connectLidSwitch(power sysPower.Power, c *SuspendCoordinator) (bool, error) {
	hasLid, err := power.HasLidSwitch().Get(0)
	if err != nil {
		return false, err
	}
	if !hasLid {
		logger.Info("no lid switch")
		return false, nil
	}
	_, err = power.ConnectLidClosed(c.HandleLidClosed)
	if err != nil {
		return true, err
	}
	_, err = power.ConnectLidOpened(c.HandleLidOpened)
	if err != nil {
		return true, err
	}
	return true, nil
}

// displayMonitors answers whether a monitor other than the built-in panel
// is connected.
type displayMonitors struct {
	conn    *dbus.Conn
	display display.Display
}

func newDisplayMonitors(conn *dbus.Conn, d display.Display) *displayMonitors {
	return &displayMonitors{
		conn:    conn,
		display: d,
	}
}

func (d *displayMonitors) HasExternalMonitor() (bool, error) {
	paths, err := d.display.Monitors().Get(0)
	if err != nil {
		return false, err
	}
	var names []string
	for _, path := range paths {
		m, err := display.NewMonitor(d.conn, path)
		if err != nil {
			return false, err
		}
		name, err := m.Name().Get(0)
		if err != nil {
			return false, err
		}
		names = append(names, name)
	}
	return hasExternalOutput(names), nil
}

func (d *displayMonitors) ConnectMonitorsChanged(cb func()) error {
	return d.display.Monitors().ConnectChanged(func(hasValue bool, value []dbus.ObjectPath) {
		if !hasValue {
			return
		}
		cb()
	})
}

func hasExternalOutput(names []string) bool {
	for _, name := range names {
		if !isBuiltinOutput(name) {
			return true
		}
	}
	return false
}

// copy from display module of project startdde
func isBuiltinOutput(name string) bool {
	name = strings.ToLower(name)
	switch {
	case strings.Contains(name, "lvds"):
		// Most drivers use an "LVDS" prefix
		fallthrough
	case strings.Contains(name, "lcd"):
		// fglrx uses "LCD" in some versions
		fallthrough
	case strings.Contains(name, "edp"):
		// eDP is for internal built-in panel connections
		fallthrough
	case strings.Contains(name, "dsi"):
		return true
	case name == "default":
		// now sunway notebook has only one output named default
		return true
	}
	return false
}
