// SPDX-FileCopyrightText: 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package power

import (
	"strings"

	"github.com/godbus/dbus/v5"
	"github.com/jouyouyun/hardware/dmi"
)

const (
	systemdServiceName = "org.freedesktop.systemd1"
	systemdPath        = "/org/freedesktop/systemd1"
	systemdInterface   = "org.freedesktop.systemd1.Manager"
)

var vmProductNames = []string{
	"kvm",
	"qemu",
	"virtualbox",
	"vmware",
	"bochs",
	"virtual machine",
	"standard pc",
}

// detectVirtualMachine asks systemd first and falls back to the DMI
// product name.
func detectVirtualMachine(systemBus *dbus.Conn) bool {
	if systemBus != nil {
		v, err := systemBus.Object(systemdServiceName, systemdPath).
			GetProperty(systemdInterface + ".Virtualization")
		if err == nil {
			virt, _ := v.Value().(string)
			logger.Debug("systemd virtualization:", virt)
			return isVirtualization(virt)
		}
		logger.Debug("get systemd virtualization:", err)
	}

	info, err := dmi.GetDMI()
	if err != nil {
		logger.Warning(err)
		return false
	}
	return isVirtualProduct(info.ProductName)
}

func isVirtualization(virt string) bool {
	return virt != "" && virt != "none"
}

func isVirtualProduct(productName string) bool {
	name := strings.ToLower(productName)
	for _, vm := range vmProductNames {
		if strings.Contains(name, vm) {
			return true
		}
	}
	return false
}
