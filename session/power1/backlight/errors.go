// SPDX-FileCopyrightText: 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package backlight

import (
	"errors"
	"fmt"
)

var (
	ErrBackendUnavailable = errors.New("no usable brightness backend")
	ErrWriteFailed        = errors.New("brightness write failed")
	ErrClosed             = errors.New("backlight controller closed")
)

// WriteError is returned to every caller covered by a failed write.
type WriteError struct {
	Backend string
	Value   int
	Err     error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s: set %d: %v", e.Backend, e.Value, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

func (e *WriteError) Is(target error) bool {
	return target == ErrWriteFailed
}
