// SPDX-FileCopyrightText: 2018 - 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package loader

import (
	"fmt"
	"sync"
	"time"

	"github.com/linuxdeepin/go-lib/dbusutil"
	"github.com/linuxdeepin/go-lib/log"
	"github.com/linuxdeepin/go-lib/multierr"
)

type EnableFlag int

const (
	EnableFlagNone EnableFlag = 1 << iota
	EnableFlagIgnoreMissingModule
	EnableFlagForceStart
)

func (flags EnableFlag) HasFlag(flag EnableFlag) bool {
	return flags&flag != 0
}

const (
	ErrorNoDependencies int = iota
	ErrorCircleDependencies
	ErrorMissingModule
	ErrorInternalError
	ErrorConflict
)

type EnableError struct {
	ModuleName string
	Code       int
	detail     string
}

func (e *EnableError) Error() string {
	switch e.Code {
	case ErrorNoDependencies:
		return fmt.Sprintf("%s needs %s", e.ModuleName, e.detail)
	case ErrorCircleDependencies:
		return "dependency circle"
	case ErrorMissingModule:
		return fmt.Sprintf("%s is missing", e.ModuleName)
	case ErrorInternalError:
		return fmt.Sprintf("%s started failed: %s", e.ModuleName, e.detail)
	case ErrorConflict:
		return fmt.Sprintf("trying to enable disabled module(%s)", e.ModuleName)
	}
	panic("EnableError: Unknown Error, Should not be reached")
}

type Loader struct {
	modules Modules
	log     *log.Logger
	lock    sync.Mutex
	service *dbusutil.Service
}

func (l *Loader) SetLogLevel(pri log.Priority) {
	l.log.SetLogLevel(pri)

	l.lock.Lock()
	defer l.lock.Unlock()

	for _, module := range l.modules {
		module.SetLogLevel(pri)
	}
}

func (l *Loader) AddModule(m Module) {
	l.lock.Lock()
	defer l.lock.Unlock()
	name := m.Name()
	_, exist := l.modules[name]
	if exist {
		l.log.Debug("Register", name, "is already registered")
		return
	}
	l.log.Debug("Register module:", name)
	l.modules[name] = m
}

func (l *Loader) List() []Module {
	l.lock.Lock()
	defer l.lock.Unlock()
	modules := make([]Module, 0, len(l.modules))
	for _, m := range l.modules {
		modules = append(modules, m)
	}
	return modules
}

func (l *Loader) GetModule(name string) Module {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.modules[name]
}

// WaitDependencies returns once every registered dependency of module has
// finished its start attempt.
func (l *Loader) WaitDependencies(module Module) {
	for _, dependencyName := range module.GetDependencies() {
		dep, ok := l.modules[dependencyName]
		if !ok {
			continue
		}
		dep.WaitEnable()
	}
}

// EnableModules starts the modules and their dependencies. A module starts
// as soon as its dependencies have been tried; start failures are joined.
func (l *Loader) EnableModules(enablingModules []string, disableModules []string, flag EnableFlag) error {
	l.lock.Lock()
	defer l.lock.Unlock()

	startTime := time.Now()
	builder := NewDAGBuilder(l, enablingModules, disableModules, flag)
	dag, err := builder.Execute()
	if err != nil {
		return err
	}

	nodes, ok := dag.topologicalSort()
	if !ok {
		return &EnableError{Code: ErrorCircleDependencies}
	}
	l.log.Infof("topo sort done, cost %s", time.Since(startTime))

	var (
		errMu     sync.Mutex
		enableErr error
	)
	for _, node := range nodes {
		module := l.modules[node.ID]
		name := node.ID

		go func() {
			l.log.Info("enable module", name)
			startTime := time.Now()

			l.WaitDependencies(module)
			l.log.Info("module", name, "wait done, cost", time.Since(startTime))

			err := module.Enable(true)
			if err != nil {
				l.log.Errorf("enable module %s failed: %s, cost %s", name, err, time.Since(startTime))
				errMu.Lock()
				enableErr = multierr.Append(enableErr, &EnableError{
					ModuleName: name,
					Code:       ErrorInternalError,
					detail:     err.Error(),
				})
				errMu.Unlock()
			} else {
				l.log.Infof("enable module %s done cost %s", name, time.Since(startTime))
			}
		}()
	}

	for _, n := range nodes {
		l.modules[n.ID].WaitEnable()
	}

	l.log.Infof("enable modules done, cost add up to %s", time.Since(startTime))
	errMu.Lock()
	defer errMu.Unlock()
	return enableErr
}

// StopAll stops enabled modules in reverse dependency order.
func (l *Loader) StopAll() error {
	l.lock.Lock()
	defer l.lock.Unlock()

	names := make([]string, 0, len(l.modules))
	for name := range l.modules {
		names = append(names, name)
	}
	builder := NewDAGBuilder(l, names, nil, EnableFlagIgnoreMissingModule)
	dag, err := builder.Execute()
	if err != nil {
		return err
	}
	nodes, ok := dag.topologicalSort()
	if !ok {
		return &EnableError{Code: ErrorCircleDependencies}
	}

	var stopErr error
	for i := len(nodes) - 1; i >= 0; i-- {
		module := l.modules[nodes[i].ID]
		if !module.IsEnable() {
			continue
		}
		l.log.Info("stop module", module.Name())
		stopErr = multierr.Append(stopErr, module.Enable(false))
	}
	return stopErr
}
