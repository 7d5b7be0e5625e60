// SPDX-FileCopyrightText: 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package power

import "strings"

// IdleMode is ordered by depth of idleness.
type IdleMode int

const (
	IdleModeNormal IdleMode = iota
	IdleModeDim
	IdleModeBlank
	IdleModeSleep
)

func (m IdleMode) String() string {
	switch m {
	case IdleModeNormal:
		return "normal"
	case IdleModeDim:
		return "dim"
	case IdleModeBlank:
		return "blank"
	case IdleModeSleep:
		return "sleep"
	}
	return "unknown"
}

// InhibitorMask holds the session actions currently inhibited.
type InhibitorMask uint32

const (
	InhibitIdle InhibitorMask = 1 << iota
	InhibitSuspend
	InhibitLogout
)

func (m InhibitorMask) Has(flag InhibitorMask) bool {
	return m&flag != 0
}

func (m InhibitorMask) String() string {
	var names []string
	if m.Has(InhibitIdle) {
		names = append(names, "idle")
	}
	if m.Has(InhibitSuspend) {
		names = append(names, "suspend")
	}
	if m.Has(InhibitLogout) {
		names = append(names, "logout")
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// blocks reports whether the mask forbids running action automatically.
func (m InhibitorMask) blocks(action powerAction) bool {
	if m.Has(InhibitIdle) {
		return true
	}
	switch action {
	case powerActionSuspend, powerActionHibernate:
		return m.Has(InhibitSuspend)
	case powerActionShutdown, powerActionLogout:
		return m.Has(InhibitLogout)
	}
	return false
}
