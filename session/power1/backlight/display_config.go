// SPDX-FileCopyrightText: 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package backlight

import (
	"errors"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/linuxdeepin/go-lib/dbusutil"
	"golang.org/x/xerrors"
)

const (
	displayConfigServiceName = "org.gnome.Mutter.DisplayConfig"
	displayConfigPath        = "/org/gnome/Mutter/DisplayConfig"
	displayConfigInterface   = displayConfigServiceName
)

// Values of the DisplayConfig PowerSaveMode property.
const (
	PowerSaveModeOn  int32 = 0
	PowerSaveModeOff int32 = 3
)

// ConnectorBacklight is one entry of the compositor Backlight property.
type ConnectorBacklight struct {
	Connector string
	Active    bool
	Min       int
	Max       int
	Value     int
}

type BacklightInfo struct {
	Serial     uint32
	Connectors []ConnectorBacklight
}

// DisplayConfig is the compositor side of brightness and output power.
type DisplayConfig interface {
	GetBacklight() (*BacklightInfo, error)
	SetBacklight(serial uint32, connector string, value int) error
	SetPowerSaveMode(mode int32) error
	ConnectBacklightChanged(cb func()) error
}

// MutterDisplayConfig talks to org.gnome.Mutter.DisplayConfig.
type MutterDisplayConfig struct {
	conn    *dbus.Conn
	obj     dbus.BusObject
	sigLoop *dbusutil.SignalLoop
}

func NewMutterDisplayConfig(sigLoop *dbusutil.SignalLoop) *MutterDisplayConfig {
	conn := sigLoop.Conn()
	return &MutterDisplayConfig{
		conn:    conn,
		obj:     conn.Object(displayConfigServiceName, displayConfigPath),
		sigLoop: sigLoop,
	}
}

// Available reports whether the compositor service is running.
func (d *MutterDisplayConfig) Available() bool {
	var has bool
	err := d.conn.BusObject().Call("org.freedesktop.DBus.NameHasOwner", 0,
		displayConfigServiceName).Store(&has)
	if err != nil {
		logger.Debug(err)
		return false
	}
	return has
}

func (d *MutterDisplayConfig) GetBacklight() (*BacklightInfo, error) {
	v, err := d.obj.GetProperty(displayConfigInterface + ".Backlight")
	if err != nil {
		return nil, err
	}
	return decodeBacklightInfo(v.Value())
}

func decodeBacklightInfo(value interface{}) (*BacklightInfo, error) {
	fields, ok := value.([]interface{})
	if !ok || len(fields) != 2 {
		return nil, xerrors.Errorf("unexpected Backlight value %T", value)
	}
	serial, ok := fields[0].(uint32)
	if !ok {
		return nil, xerrors.Errorf("unexpected Backlight serial %T", fields[0])
	}
	entries, ok := fields[1].([]map[string]dbus.Variant)
	if !ok {
		return nil, xerrors.Errorf("unexpected Backlight monitors %T", fields[1])
	}

	info := &BacklightInfo{Serial: serial}
	for _, entry := range entries {
		var c ConnectorBacklight
		if v, ok := entry["connector"]; ok {
			c.Connector, _ = v.Value().(string)
		}
		if v, ok := entry["active"]; ok {
			c.Active, _ = v.Value().(bool)
		}
		c.Min = variantInt(entry["min"])
		c.Max = variantInt(entry["max"])
		c.Value = variantInt(entry["value"])
		info.Connectors = append(info.Connectors, c)
	}
	return info, nil
}

func variantInt(v dbus.Variant) int {
	switch value := v.Value().(type) {
	case int32:
		return int(value)
	case uint32:
		return int(value)
	case int64:
		return int(value)
	}
	return 0
}

func (d *MutterDisplayConfig) SetBacklight(serial uint32, connector string, value int) error {
	return d.obj.Call(displayConfigInterface+".SetBacklight", 0,
		serial, connector, int32(value)).Err
}

func (d *MutterDisplayConfig) SetPowerSaveMode(mode int32) error {
	return d.obj.Call("org.freedesktop.DBus.Properties.Set", 0,
		displayConfigInterface, "PowerSaveMode", dbus.MakeVariant(mode)).Err
}

func (d *MutterDisplayConfig) ConnectBacklightChanged(cb func()) error {
	err := d.obj.AddMatchSignal(displayConfigInterface, "MonitorsChanged").Err
	if err != nil {
		return err
	}
	err = d.obj.AddMatchSignal("org.freedesktop.DBus.Properties", "PropertiesChanged").Err
	if err != nil {
		return err
	}

	d.sigLoop.AddHandler(&dbusutil.SignalRule{
		Name: displayConfigInterface + ".MonitorsChanged",
	}, func(sig *dbus.Signal) {
		cb()
	})
	d.sigLoop.AddHandler(&dbusutil.SignalRule{
		Path: displayConfigPath,
		Name: "org.freedesktop.DBus.Properties.PropertiesChanged",
	}, func(sig *dbus.Signal) {
		if len(sig.Body) > 1 {
			ifc, _ := sig.Body[0].(string)
			changed, _ := sig.Body[1].(map[string]dbus.Variant)
			if ifc != displayConfigInterface {
				return
			}
			if _, ok := changed["Backlight"]; ok {
				cb()
			}
		}
	})
	return nil
}

var errNoBacklightConnector = errors.New("no active connector with backlight")

type displayConfigBackend struct {
	dc DisplayConfig

	mu        sync.Mutex
	serial    uint32
	connector string
	rng       Range
	value     int
}

func newDisplayConfigBackend(dc DisplayConfig) (*displayConfigBackend, error) {
	b := &displayConfigBackend{dc: dc}
	err := b.refresh()
	if err != nil {
		return nil, err
	}
	return b, nil
}

// refresh updates serial and range from the compositor. The connector
// already driven is kept while it is still listed.
func (b *displayConfigBackend) refresh() error {
	info, err := b.dc.GetBacklight()
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	var found *ConnectorBacklight
	for i := range info.Connectors {
		c := &info.Connectors[i]
		if !c.Active || c.Max <= c.Min {
			continue
		}
		if c.Connector == b.connector {
			found = c
			break
		}
		if found == nil {
			found = c
		}
	}
	if found == nil {
		return errNoBacklightConnector
	}
	b.serial = info.Serial
	b.connector = found.Connector
	b.rng = Range{Min: found.Min, Max: found.Max}
	b.value = found.Value
	return nil
}

func (b *displayConfigBackend) Name() string {
	return backendNameDisplayConfig
}

func (b *displayConfigBackend) Range() Range {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rng
}

func (b *displayConfigBackend) Get() (int, error) {
	err := b.refresh()
	if err != nil {
		return 0, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.value, nil
}

func (b *displayConfigBackend) Set(value int) (int, error) {
	b.mu.Lock()
	serial, connector := b.serial, b.connector
	b.mu.Unlock()

	err := b.dc.SetBacklight(serial, connector, value)
	if err != nil {
		return 0, err
	}
	b.mu.Lock()
	b.value = value
	b.mu.Unlock()
	return value, nil
}

func (b *displayConfigBackend) SupportsHotplugNotify() bool {
	return true
}

func (b *displayConfigBackend) Watch(fn func()) error {
	return b.dc.ConnectBacklightChanged(func() {
		err := b.refresh()
		if err != nil {
			logger.Warning("refresh display config backlight:", err)
		}
		fn()
	})
}

func (b *displayConfigBackend) Close() error {
	return nil
}
