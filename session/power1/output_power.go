// SPDX-FileCopyrightText: 2018 - 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package power

import (
	"errors"

	"github.com/linuxdeepin/dde-power-daemon/session/power1/backlight"
	x "github.com/linuxdeepin/go-x11-client"
	"github.com/linuxdeepin/go-x11-client/ext/dpms"
)

// dpmsOutput forces the X11 DPMS level.
type dpmsOutput struct {
	conn *x.Conn
}

func (o *dpmsOutput) SetOutputOn(on bool) error {
	c := o.conn
	if on {
		logger.Info("DPMS On")
		return dpms.ForceLevelChecked(c, dpms.DPMSModeOn).Check(c)
	}
	logger.Info("DPMS Off")
	return dpms.ForceLevelChecked(c, dpms.DPMSModeOff).Check(c)
}

// displayConfigOutput switches the outputs through the compositor power
// save mode, used on Wayland.
type displayConfigOutput struct {
	dc backlight.DisplayConfig
}

func (o *displayConfigOutput) SetOutputOn(on bool) error {
	mode := backlight.PowerSaveModeOff
	if on {
		mode = backlight.PowerSaveModeOn
	}
	logger.Info("power save mode:", mode)
	return o.dc.SetPowerSaveMode(mode)
}

var errNoOutputPower = errors.New("no way to switch the outputs")

// noOutputPower is used on Wayland when the compositor has no DisplayConfig.
type noOutputPower struct{}

func (noOutputPower) SetOutputOn(on bool) error {
	return errNoOutputPower
}
