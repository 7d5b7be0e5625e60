// SPDX-FileCopyrightText: 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package backlight

import (
	"errors"

	commonbl "github.com/linuxdeepin/go-lib/backlight/common"
	kbdbl "github.com/linuxdeepin/go-lib/backlight/keyboard"
)

var errNoKeyboardBacklight = errors.New("not found keyboard backlight controller")

// Keyboard is the secondary backlight switched off while the screen is blank.
type Keyboard struct {
	controller *commonbl.Controller
	helperPath string
}

func NewKeyboard(helperPath string) (*Keyboard, error) {
	controllers, err := kbdbl.List()
	if err != nil {
		return nil, err
	}
	if len(controllers) == 0 {
		return nil, errNoKeyboardBacklight
	}
	return &Keyboard{
		controller: controllers[0],
		helperPath: helperPath,
	}, nil
}

func (k *Keyboard) Name() string {
	return k.controller.Name
}

func (k *Keyboard) Max() int {
	return k.controller.MaxBrightness
}

func (k *Keyboard) Get() (int, error) {
	return k.controller.GetBrightness()
}

func (k *Keyboard) Set(value int) error {
	if value < 0 {
		value = 0
	} else if value > k.Max() {
		value = k.Max()
	}
	logger.Debug("set keyboard backlight to", value)
	return runHelper(k.helperPath, helperTypeKeyboard, k.controller.Name, value)
}
