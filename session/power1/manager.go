// SPDX-FileCopyrightText: 2018 - 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package power

import (
	"sync"

	dbus "github.com/godbus/dbus/v5"
	"github.com/linuxdeepin/dde-api/soundutils"
	"github.com/linuxdeepin/dde-power-daemon/session/power1/backlight"
	gio "github.com/linuxdeepin/go-gir/gio-2.0"
	"github.com/linuxdeepin/go-lib/dbusutil"
)

// Manager is the exported object of the daemon. It owns the backlight
// controller and the three policy components and feeds them the signals of
// the session and system services.
type Manager struct {
	service        *dbusutil.Service
	sessionSigLoop *dbusutil.SignalLoop
	systemSigLoop  *dbusutil.SignalLoop
	helper         *Helper
	settings       *gio.Settings

	backlight   *backlight.Controller
	engine      *IdleEngine
	coordinator *SuspendCoordinator
	ambient     *AmbientAdjuster

	session     *sessionState
	idleMonitor *mutterIdleMonitor
	monitors    *displayMonitors
	notifier    *notifier
	sensor      sensorProxyLight

	submodules []namedSubmodule

	PropsMu sync.RWMutex

	IdleMode              string
	HasAmbientLightSensor bool
	BacklightBackend      string
	LidIsPresent          bool

	// nolint
	signals *struct {
		BrightnessChanged struct {
			value int32
		}
	}
}

func newManager(service *dbusutil.Service) (*Manager, error) {
	systemBus, err := dbus.SystemBus()
	if err != nil {
		return nil, err
	}
	m := new(Manager)
	m.service = service
	sessionBus := service.Conn()
	m.sessionSigLoop = dbusutil.NewSignalLoop(sessionBus, 10)
	m.systemSigLoop = dbusutil.NewSignalLoop(systemBus, 10)

	helper, err := newHelper(systemBus, sessionBus)
	if err != nil {
		return nil, err
	}
	m.helper = helper

	m.settings = gio.NewSettings(gsSchemaPower)
	cfg := loadConfig(m.settings)

	var dc backlight.DisplayConfig
	mutterDC := backlight.NewMutterDisplayConfig(m.sessionSigLoop)
	if mutterDC.Available() {
		dc = mutterDC
	}

	sessionPath, err := helper.SessionManager.CurrentSessionPath().Get(0)
	if err != nil {
		logger.Warning("get sessionManager CurrentSessionPath failed:", err)
	}
	backend, err := backlight.Probe(backlight.ProbeOptions{
		SystemConn:    systemBus,
		SessionPath:   sessionPath,
		HelperPath:    backlightHelperPath,
		DisplayConfig: dc,
	})
	if err != nil {
		logger.Warning("brightness control disabled:", err)
	}
	m.backlight = backlight.NewController(backend)
	m.BacklightBackend = m.backlight.BackendName()

	var kbd keyboardBacklight
	keyboard, err := backlight.NewKeyboard(backlightHelperPath)
	if err != nil {
		logger.Debug(err)
	} else {
		kbd = keyboard
	}

	var output outputPower
	switch {
	case helper.xConn != nil:
		output = &dpmsOutput{conn: helper.xConn}
	case dc != nil:
		output = &displayConfigOutput{dc: dc}
	default:
		logger.Warning(errNoOutputPower)
		output = noOutputPower{}
	}

	m.session = newSessionState(sessionBus, m.sessionSigLoop, helper.SessionWatcher, helper.SessionManager)
	m.idleMonitor = newMutterIdleMonitor(m.sessionSigLoop)
	m.monitors = newDisplayMonitors(sessionBus, helper.Display)
	m.notifier = &notifier{notifications: helper.Notifications}
	m.sensor = sensorProxyLight{proxy: helper.SensorProxy}
	actions := &sessionPowerActions{
		sessionManager: helper.SessionManager,
		loginManager:   helper.LoginManager,
	}

	m.engine = newIdleEngine(idleEngineDeps{
		backlight: m.backlight,
		keyboard:  kbd,
		monitor:   m.idleMonitor,
		session:   m.session,
		actions:   actions,
		output:    output,
		warner:    m.notifier,
		isVM:      detectVirtualMachine(systemBus),
	}, cfg)
	m.IdleMode = m.engine.Mode().String()

	m.coordinator = newSuspendCoordinator(coordinatorDeps{
		engine:   m.engine,
		actions:  actions,
		session:  m.session,
		locker:   &sessionLocker{conn: sessionBus, screenSaver: helper.ScreenSaver},
		output:   output,
		monitors: m.monitors,
		warner:   m.notifier,
	}, cfg)

	m.ambient = newAmbientAdjuster(m.backlight, m.sensor)
	m.ambient.SetEnabled(cfg.AmbientEnabled)

	m.initSubmodules()
	return m, nil
}

func (m *Manager) init() {
	m.sessionSigLoop.Start()
	m.systemSigLoop.Start()
	m.helper.initSignalExt(m.systemSigLoop, m.sessionSigLoop)

	m.connectBacklight()
	m.connectSession()
	m.connectSystem()
	m.connectSettings()

	m.startSubmodules()
}

func (m *Manager) connectBacklight() {
	m.backlight.ConnectChanged(func(percent int) {
		m.emitBrightnessChanged(int32(percent))
	})
	m.backlight.ConnectDeviceChanged(func(percent int) {
		logger.Debug("brightness overridden outside the daemon:", percent)
		m.ambient.RequestNormalize()
	})
	m.engine.ConnectModeChanged(func(mode IdleMode) {
		m.ambient.SetIdleMode(mode)
		m.setPropIdleMode(mode.String())
	})
}

func (m *Manager) connectSession() {
	err := m.idleMonitor.ConnectWatchFired(m.engine.HandleWatchFired)
	if err != nil {
		logger.Warning(err)
	}

	err = m.session.ConnectActiveChanged(func(active bool) {
		logger.Info("session active:", active)
		m.engine.SetSessionActive(active)
		m.ambient.SetSessionActive(active)
	})
	if err != nil {
		logger.Warning(err)
	}

	err = m.session.ConnectInhibitorsChanged(m.engine.RefreshInhibitors)
	if err != nil {
		logger.Warning(err)
	}

	err = m.helper.SessionManager.Locked().ConnectChanged(func(hasValue bool, locked bool) {
		if !hasValue {
			return
		}
		m.engine.SetScreensaverActive(locked)
	})
	if err != nil {
		logger.Warning(err)
	}

	err = m.monitors.ConnectMonitorsChanged(m.coordinator.HandleMonitorsChanged)
	if err != nil {
		logger.Warning(err)
	}
}

func (m *Manager) connectSystem() {
	power := m.helper.Power
	err := power.OnBattery().ConnectChanged(func(hasValue bool, onBattery bool) {
		if !hasValue {
			return
		}
		logger.Info("on battery:", onBattery)
		m.engine.SetOnBattery(onBattery)
		m.coordinator.SetOnBattery(onBattery)
		if onBattery {
			playSound(soundutils.EventPowerUnplug)
		} else {
			playSound(soundutils.EventPowerPlug)
		}
	})
	if err != nil {
		logger.Warning(err)
	}

	hasLid, err := connectLidSwitch(power, m.coordinator)
	if err != nil {
		logger.Warning(err)
	}
	m.setPropLidIsPresent(hasLid)

	_, err = m.helper.LoginManager.ConnectPrepareForSleep(func(before bool) {
		m.coordinator.HandlePrepareForSleep(before)
		if !before {
			playSound(soundutils.EventWakeup)
		}
	})
	if err != nil {
		logger.Warning(err)
	}

	err = m.sensor.connectLightLevel(m.ambient)
	if err != nil {
		logger.Warning(err)
	}

	_, err = m.helper.SysDBusDaemon.ConnectNameOwnerChanged(
		func(name string, oldOwner string, newOwner string) {
			switch name {
			case m.helper.SensorProxy.ServiceName_():
				if newOwner != "" {
					logger.Debug("sensorProxy restarted")
				}
				m.ambient.RefreshSensor()
				m.setPropHasAmbientLightSensor(m.ambient.HasSensor())
			case m.helper.LoginManager.ServiceName_():
				if newOwner != "" {
					m.coordinator.HandleLoginManagerRestarted()
				}
			}
		})
	if err != nil {
		logger.Warning(err)
	}
}

func (m *Manager) connectSettings() {
	watchConfig(m.settings, func(key string, cfg Config) {
		m.engine.SetConfig(cfg)
		m.coordinator.SetConfig(cfg)
		m.ambient.SetEnabled(cfg.AmbientEnabled)

		switch key {
		case settingKeyLidCloseACAction:
			m.notifier.NotifySettingChanged(key, cfg.LidCloseACAction)
		case settingKeyLidCloseBatteryAction:
			m.notifier.NotifySettingChanged(key, cfg.LidCloseBatteryAction)
		}
	})
}

func (m *Manager) onBattery() bool {
	onBattery, err := m.helper.Power.OnBattery().Get(0)
	if err != nil {
		logger.Warning(err)
	}
	return onBattery
}

func (m *Manager) destroy() {
	m.destroySubmodules()

	err := m.backlight.Close()
	if err != nil {
		logger.Warning(err)
	}

	if m.helper != nil {
		m.helper.Destroy()
		m.helper = nil
	}

	m.systemSigLoop.Stop()
	m.sessionSigLoop.Stop()
}

