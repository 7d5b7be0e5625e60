// SPDX-FileCopyrightText: 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package backlight

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/godbus/dbus/v5"
	displayBl "github.com/linuxdeepin/go-lib/backlight/display"
	"github.com/linuxdeepin/go-lib/log"
)

var logger = log.NewLogger("daemon/session/power/backlight")

// SetLogLevel follows the level of the owning module.
func SetLogLevel(level log.Priority) {
	logger.SetLogLevel(level)
}

// Backend is one mechanism able to change the panel brightness.
type Backend interface {
	Name() string
	Range() Range
	Get() (int, error)
	// Set blocks until the device accepted the value and returns the value
	// read back from it.
	Set(value int) (int, error)
	SupportsHotplugNotify() bool
	// Watch registers fn for device change notifications. Only called when
	// SupportsHotplugNotify reports true.
	Watch(fn func()) error
	Close() error
}

const (
	backendNameHelper        = "helper"
	backendNameLogind        = "logind"
	backendNameDisplayConfig = "display-config"
)

const sysfsBacklightDir = "/sys/class/backlight"

// ProbeOptions carries what backend probing may use. Zero fields disable the
// variants that need them.
type ProbeOptions struct {
	SystemConn    *dbus.Conn
	SessionPath   dbus.ObjectPath
	HelperPath    string
	DisplayConfig DisplayConfig
}

// Probe selects the backend once at startup: a local backlight device is
// driven through logind when the session supports it, otherwise through the
// privileged helper; without a local device the compositor is used.
func Probe(opts ProbeOptions) (Backend, error) {
	dev, err := findLocalDevice()
	if err != nil {
		logger.Debug("no local backlight device:", err)
	}

	if dev != nil {
		if opts.SystemConn != nil && logindSupportsBrightness(opts.SystemConn, opts.SessionPath) {
			logger.Info("use logind brightness backend for", dev.name)
			return newLogindBackend(dev, opts.SystemConn, opts.SessionPath), nil
		}
		if opts.HelperPath != "" {
			logger.Info("use helper brightness backend for", dev.name)
			return newHelperBackend(dev, opts.HelperPath), nil
		}
	}

	if opts.DisplayConfig != nil {
		b, err := newDisplayConfigBackend(opts.DisplayConfig)
		if err == nil {
			logger.Info("use display config brightness backend for", b.connector)
			return b, nil
		}
		logger.Debug("display config backlight:", err)
	}
	return nil, ErrBackendUnavailable
}

// localDevice is a /sys/class/backlight entry.
type localDevice struct {
	name       string
	kind       string
	controller *displayBl.Controller
	rng        Range
}

func (d *localDevice) dir() string {
	return filepath.Join(sysfsBacklightDir, d.name)
}

func (d *localDevice) get() (int, error) {
	return d.controller.GetBrightness()
}

var typePriority = map[string]int{
	"firmware": 3,
	"platform": 2,
	"raw":      1,
}

func readDeviceType(name string) string {
	content, err := os.ReadFile(filepath.Join(sysfsBacklightDir, name, "type"))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(content))
}

func findLocalDevice() (*localDevice, error) {
	controllers, err := displayBl.List()
	if err != nil {
		return nil, err
	}

	var best *localDevice
	for _, controller := range controllers {
		if controller.MaxBrightness <= 0 {
			continue
		}
		dev := &localDevice{
			name:       controller.Name,
			kind:       readDeviceType(controller.Name),
			controller: controller,
		}
		if best == nil || typePriority[dev.kind] > typePriority[best.kind] {
			best = dev
		}
	}
	if best == nil {
		return nil, ErrBackendUnavailable
	}
	best.rng = Range{Min: minRawValue(best.kind), Max: best.controller.MaxBrightness}
	if !best.rng.Valid() {
		best.rng.Min = 0
	}
	return best, nil
}

// minRawValue keeps firmware and platform panels from going fully dark,
// where 0 usually switches the backlight off. Raw controls are left alone.
func minRawValue(kind string) int {
	if kind == "raw" {
		return 0
	}
	return 1
}
