// SPDX-FileCopyrightText: 2018 - 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package loader

import (
	"sync"

	"github.com/linuxdeepin/go-lib/dbusutil"
	"github.com/linuxdeepin/go-lib/log"
)

var (
	loaderOnce sync.Once
	_loader    *Loader
)

func getLoader() *Loader {
	loaderOnce.Do(func() {
		_loader = &Loader{
			modules: Modules{},
			log:     log.NewLogger("daemon/loader"),
		}
	})
	return _loader
}

// SetService sets the bus service the modules export their objects on.
func SetService(s *dbusutil.Service) {
	getLoader().service = s
}

func GetService() *dbusutil.Service {
	return getLoader().service
}

// Register is called from the init function of every module package.
func Register(m Module) {
	getLoader().AddModule(m)
}

func List() []Module {
	return getLoader().List()
}

func GetModule(name string) Module {
	return getLoader().GetModule(name)
}

func SetLogLevel(pri log.Priority) {
	getLoader().SetLogLevel(pri)
}

func EnableModules(enablingModules []string, disableModules []string, flag EnableFlag) error {
	return getLoader().EnableModules(enablingModules, disableModules, flag)
}

// StopAll stops the enabled modules, dependents before their dependencies.
func StopAll() error {
	return getLoader().StopAll()
}
