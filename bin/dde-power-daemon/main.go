// SPDX-FileCopyrightText: 2018 - 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/godbus/dbus/v5"
	"github.com/linuxdeepin/dde-power-daemon/loader"
	login1 "github.com/linuxdeepin/go-dbus-factory/system/org.freedesktop.login1"
	glib "github.com/linuxdeepin/go-gir/glib-2.0"
	"github.com/linuxdeepin/go-lib/dbusutil"
	. "github.com/linuxdeepin/go-lib/gettext"
	"github.com/linuxdeepin/go-lib/gsettings"
	"github.com/linuxdeepin/go-lib/log"
	"github.com/linuxdeepin/go-lib/utils"
)

var logger = log.NewLogger("daemon/dde-power-daemon")

type options struct {
	verbose  bool
	logLevel string
	list     string
	ignore   bool
}

var _options options

func init() {
	const verboseUsage = "Show much more message, shorthand for --loglevel debug."
	flag.BoolVar(&_options.verbose, "v", false, verboseUsage)
	flag.BoolVar(&_options.verbose, "verbose", false, verboseUsage)

	const logLevelUsage = "Set log level, possible value is error/warn/info/debug/no, info is default"
	flag.StringVar(&_options.logLevel, "l", "", logLevelUsage)
	flag.StringVar(&_options.logLevel, "loglevel", "", logLevelUsage)

	const ignoreUsage = "Ignore missing modules."
	flag.BoolVar(&_options.ignore, "i", true, ignoreUsage)
	flag.BoolVar(&_options.ignore, "ignore", true, ignoreUsage)

	flag.StringVar(&_options.list, "list", "",
		"List all the modules or the dependencies of one module. The argument can be all or the name of the module.")
}

var logLevels = map[string]log.Priority{
	"":      log.LevelInfo,
	"error": log.LevelError,
	"warn":  log.LevelWarning,
	"info":  log.LevelInfo,
	"debug": log.LevelDebug,
	"no":    log.LevelDisable,
}

func toLogLevel(name string) (log.Priority, error) {
	pri, ok := logLevels[strings.ToLower(name)]
	if !ok {
		return log.LevelInfo, fmt.Errorf("%s is not support", name)
	}
	return pri, nil
}

// effectiveLogLevel applies -v. ok is false when the debug environment
// variables should decide instead.
func (o *options) effectiveLogLevel() (pri log.Priority, ok bool, err error) {
	name := o.logLevel
	if o.verbose {
		name = "debug"
	}
	if name == "" &&
		(utils.IsEnvExists(log.DebugLevelEnv) || utils.IsEnvExists(log.DebugMatchEnv)) {
		return log.LevelInfo, false, nil
	}
	pri, err = toLogLevel(name)
	return pri, err == nil, err
}

func isInShutdown() bool {
	bus, err := dbus.SystemBus()
	if err != nil {
		return false
	}
	val, err := login1.NewManager(bus).PreparingForShutdown().Get(0)
	if err != nil {
		return false
	}
	return val
}

func runMainLoop() {
	err := gsettings.StartMonitor()
	if err != nil {
		logger.Fatal(err)
	}

	go handleTermSignal()
	glib.StartLoop()
	logger.Info("Loop has been terminated!")
	os.Exit(0)
}

// handleTermSignal releases the inhibitors and the bus name before exit.
func handleTermSignal() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal:", sig)
	err := loader.StopAll()
	if err != nil {
		logger.Warning(err)
	}
	os.Exit(0)
}

func main() {
	logger.SetLogLevel(log.LevelInfo)
	flag.Parse()

	if _options.list != "" {
		err := listModules(os.Stdout, _options.list)
		if err != nil {
			logger.Warning(err)
			os.Exit(1)
		}
		return
	}

	if isInShutdown() {
		logger.Warning("system is in shutdown, no need to run")
		os.Exit(1)
	}

	InitI18n()
	Textdomain("dde-power-daemon")

	logLevel, setLevel, err := _options.effectiveLogLevel()
	if err != nil {
		logger.Warning("failed to parse loglevel:", err)
		os.Exit(1)
	}

	service, err := dbusutil.NewSessionService()
	if err != nil {
		logger.Fatal(err)
	}
	loader.SetService(service)

	if setLevel {
		logger.Info("App log level:", logLevel)
		loader.SetLogLevel(logLevel)
	} else {
		logger.Info("Log level is none and debug env exists, so do not call loader.SetLogLevel")
	}

	// modules and the main loop share one thread
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	err = loader.EnableModules(moduleNames(), nil, getEnableFlag(_options.ignore))
	if err != nil {
		logger.Warning(err)
		os.Exit(1)
	}

	runMainLoop()
}
