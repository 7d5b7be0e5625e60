// SPDX-FileCopyrightText: 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package power

import (
	gio "github.com/linuxdeepin/go-gir/gio-2.0"
	"github.com/linuxdeepin/go-lib/gsettings"
)

// Config is a snapshot of the power settings. Durations are in seconds,
// 0 disables the corresponding timeout.
type Config struct {
	IdleDelay      int32
	IdleDim        bool
	IdleBrightness int32

	SleepInactiveACType         powerAction
	SleepInactiveACTimeout      int32
	SleepInactiveBatteryType    powerAction
	SleepInactiveBatteryTimeout int32

	AmbientEnabled bool

	LidCloseACAction      powerAction
	LidCloseBatteryAction powerAction
}

func loadConfig(s *gio.Settings) Config {
	return Config{
		IdleDelay:      s.GetInt(settingKeyIdleDelay),
		IdleDim:        s.GetBoolean(settingKeyIdleDim),
		IdleBrightness: s.GetInt(settingKeyIdleBrightness),

		SleepInactiveACType:         powerAction(s.GetEnum(settingKeySleepInactiveACType)),
		SleepInactiveACTimeout:      s.GetInt(settingKeySleepInactiveACTimeout),
		SleepInactiveBatteryType:    powerAction(s.GetEnum(settingKeySleepInactiveBatteryType)),
		SleepInactiveBatteryTimeout: s.GetInt(settingKeySleepInactiveBatteryTimeout),

		AmbientEnabled: s.GetBoolean(settingKeyAmbientEnabled),

		LidCloseACAction:      powerAction(s.GetEnum(settingKeyLidCloseACAction)),
		LidCloseBatteryAction: powerAction(s.GetEnum(settingKeyLidCloseBatteryAction)),
	}
}

// sleepPolicy returns the inactive action and its timeout for the power source.
func (c Config) sleepPolicy(onBattery bool) (powerAction, int32) {
	if onBattery {
		return c.SleepInactiveBatteryType, c.SleepInactiveBatteryTimeout
	}
	return c.SleepInactiveACType, c.SleepInactiveACTimeout
}

func (c Config) lidCloseAction(onBattery bool) powerAction {
	if onBattery {
		return c.LidCloseBatteryAction
	}
	return c.LidCloseACAction
}

// watchConfig reloads the snapshot on every key change of the schema.
func watchConfig(s *gio.Settings, cb func(key string, cfg Config)) {
	gsettings.ConnectChanged(gsSchemaPower, "*", func(key string) {
		logger.Debug("power settings changed:", key)
		cb(key, loadConfig(s))
	})
}
