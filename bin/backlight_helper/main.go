// SPDX-FileCopyrightText: 2018 - 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

// dde-backlight-helper writes one brightness value to sysfs. It runs through
// pkexec, so every argument is validated before the path is built.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/linuxdeepin/go-lib/log"
	"golang.org/x/xerrors"
)

const (
	DisplayBacklight  = "display"
	KeyboardBacklight = "keyboard"
)

var sysClassDir = "/sys/class"

var logger = log.NewLogger("backlight_helper")

var _options struct {
	type0 string
	name  string
	value int
}

func init() {
	flag.StringVar(&_options.type0, "type", DisplayBacklight, "backlight type, display or keyboard")
	flag.StringVar(&_options.name, "name", "", "device name under the sysfs class")
	flag.IntVar(&_options.value, "value", -1, "raw brightness value")
}

func getBrightnessFilename(type0 string, name string) (string, error) {
	// check type0
	var subsystem string
	switch type0 {
	case DisplayBacklight:
		subsystem = "backlight"
	case KeyboardBacklight:
		subsystem = "leds"
	default:
		return "", fmt.Errorf("invalid type %q", type0)
	}

	// check name
	if strings.ContainsRune(name, '/') || name == "" ||
		name == "." || name == ".." {
		return "", fmt.Errorf("invalid name %q", name)
	}

	return filepath.Join(sysClassDir, subsystem, name, "brightness"), nil
}

func setBrightness(type0 string, name string, value int) error {
	if value < 0 {
		return fmt.Errorf("invalid value %d", value)
	}
	filename, err := getBrightnessFilename(type0, name)
	if err != nil {
		return err
	}

	fh, err := os.OpenFile(filename, os.O_WRONLY, 0666)
	if err != nil {
		return xerrors.Errorf("open brightness file: %w", err)
	}
	defer fh.Close()

	_, err = fh.WriteString(strconv.Itoa(value))
	if err != nil {
		return xerrors.Errorf("write %s: %w", filename, err)
	}
	return nil
}

func main() {
	flag.Parse()
	err := setBrightness(_options.type0, _options.name, _options.value)
	if err != nil {
		logger.Warning(err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
