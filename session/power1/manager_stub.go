// SPDX-FileCopyrightText: 2018 - 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package power

func (m *Manager) setPropIdleMode(val string) {
	m.PropsMu.Lock()
	if m.IdleMode == val {
		m.PropsMu.Unlock()
		return
	}
	m.IdleMode = val
	m.PropsMu.Unlock()
	m.emitPropChanged("IdleMode", val)
}

func (m *Manager) setPropHasAmbientLightSensor(val bool) {
	m.PropsMu.Lock()
	if m.HasAmbientLightSensor == val {
		m.PropsMu.Unlock()
		return
	}
	m.HasAmbientLightSensor = val
	m.PropsMu.Unlock()
	m.emitPropChanged("HasAmbientLightSensor", val)
}

func (m *Manager) setPropLidIsPresent(val bool) {
	m.PropsMu.Lock()
	if m.LidIsPresent == val {
		m.PropsMu.Unlock()
		return
	}
	m.LidIsPresent = val
	m.PropsMu.Unlock()
	m.emitPropChanged("LidIsPresent", val)
}

func (m *Manager) emitPropChanged(name string, val interface{}) {
	err := m.service.EmitPropertyChanged(m, name, val)
	if err != nil {
		logger.Warning(err)
	}
}

func (m *Manager) emitBrightnessChanged(value int32) {
	err := m.service.Emit(m, "BrightnessChanged", value)
	if err != nil {
		logger.Warning(err)
	}
}
