// SPDX-FileCopyrightText: 2018 - 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package power

type submodule interface {
	Start() error
	Destroy()
}

type namedSubmodule struct {
	name string
	submodule
}

// funcSubmodule adapts a pair of functions to a submodule.
type funcSubmodule struct {
	start   func() error
	destroy func()
}

func (s funcSubmodule) Start() error {
	return s.start()
}

func (s funcSubmodule) Destroy() {
	s.destroy()
}

// initSubmodules fixes the start order: the engine is armed before the
// coordinator may call into it, the adjuster follows the engine mode.
func (m *Manager) initSubmodules() {
	m.submodules = []namedSubmodule{
		{"IdleEngine", funcSubmodule{
			start: func() error {
				m.engine.Start(m.onBattery())
				return nil
			},
			destroy: m.engine.Stop,
		}},
		{"SuspendCoordinator", funcSubmodule{
			start: func() error {
				m.coordinator.Start(m.onBattery())
				return nil
			},
			destroy: func() {
				err := m.coordinator.Stop()
				if err != nil {
					logger.Warning(err)
				}
			},
		}},
		{"AmbientAdjuster", funcSubmodule{
			start: func() error {
				active, err := m.session.IsActive()
				if err != nil {
					return err
				}
				m.ambient.SetSessionActive(active)
				m.ambient.SetIdleMode(m.engine.Mode())
				m.ambient.RefreshSensor()
				m.setPropHasAmbientLightSensor(m.ambient.HasSensor())
				return nil
			},
			destroy: m.ambient.Stop,
		}},
	}
}

func (m *Manager) startSubmodules() {
	for _, sm := range m.submodules {
		logger.Infof("submodule %v start", sm.name)
		err := sm.Start()
		if err != nil {
			logger.Warningf("submodule %v start failed: %v", sm.name, err)
		}
	}
}

// destroySubmodules runs in reverse start order.
func (m *Manager) destroySubmodules() {
	for i := len(m.submodules) - 1; i >= 0; i-- {
		sm := m.submodules[i]
		logger.Debug("destroy submodule:", sm.name)
		sm.Destroy()
	}
	m.submodules = nil
}
