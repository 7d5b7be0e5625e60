// SPDX-FileCopyrightText: 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package power

import (
	"context"
	"time"

	dbus "github.com/godbus/dbus/v5"
	"github.com/linuxdeepin/dde-power-daemon/session/power1/backlight"
	"github.com/linuxdeepin/go-lib/dbusutil"
)

// brightnessCallTimeout bounds how long a method call waits for the write.
const brightnessCallTimeout = 5 * time.Second

func (*Manager) GetInterfaceName() string {
	return dbusInterface
}

func (m *Manager) GetExportedMethods() dbusutil.ExportedMethods {
	return dbusutil.ExportedMethods{
		{
			Name:    "GetBrightness",
			Fn:      m.GetBrightness,
			OutArgs: []string{"percent"},
		},
		{
			Name:    "SetBrightness",
			Fn:      m.SetBrightness,
			InArgs:  []string{"percent"},
			OutArgs: []string{"newPercent"},
		},
		{
			Name:    "StepUp",
			Fn:      m.StepUp,
			OutArgs: []string{"newPercent"},
		},
		{
			Name:    "StepDown",
			Fn:      m.StepDown,
			OutArgs: []string{"newPercent"},
		},
		{
			Name:    "CycleUp",
			Fn:      m.CycleUp,
			OutArgs: []string{"newPercent"},
		},
	}
}

func (m *Manager) GetBrightness() (int32, *dbus.Error) {
	if !m.backlight.Enabled() {
		return -1, dbusutil.ToError(backlight.ErrBackendUnavailable)
	}
	percent, _ := m.backlight.Brightness()
	return int32(percent), nil
}

func (m *Manager) SetBrightness(percent int32) (int32, *dbus.Error) {
	logger.Debug("SetBrightness", percent)
	return m.userBrightness(func() *backlight.Future {
		return m.backlight.SetBrightnessPercent(int(percent))
	})
}

func (m *Manager) StepUp() (int32, *dbus.Error) {
	logger.Debug("StepUp")
	return m.userBrightness(m.backlight.StepUp)
}

func (m *Manager) StepDown() (int32, *dbus.Error) {
	logger.Debug("StepDown")
	return m.userBrightness(m.backlight.StepDown)
}

func (m *Manager) CycleUp() (int32, *dbus.Error) {
	logger.Debug("CycleUp")
	return m.userBrightness(m.backlight.CycleUp)
}

// userBrightness issues a user requested change and waits for it. The
// ambient filter is told first so any reading from now on takes the new
// target as its reference.
func (m *Manager) userBrightness(request func() *backlight.Future) (int32, *dbus.Error) {
	m.ambient.RequestNormalize()
	f := request()
	ctx, cancel := context.WithTimeout(context.Background(), brightnessCallTimeout)
	defer cancel()
	percent, err := f.Wait(ctx)
	if err != nil {
		return -1, dbusutil.ToError(err)
	}
	return int32(percent), nil
}
