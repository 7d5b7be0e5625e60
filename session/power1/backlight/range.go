// SPDX-FileCopyrightText: 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package backlight

import (
	"fmt"
	"math"
)

// Range is the raw brightness interval accepted by a device.
type Range struct {
	Min int
	Max int
}

func (r Range) String() string {
	return fmt.Sprintf("[%d,%d]", r.Min, r.Max)
}

func (r Range) Valid() bool {
	return r.Max > r.Min
}

func (r Range) width() int {
	return r.Max - r.Min
}

// Clamp bounds raw into [Min, Max].
func (r Range) Clamp(raw int) int {
	if raw < r.Min {
		return r.Min
	}
	if raw > r.Max {
		return r.Max
	}
	return raw
}

// RawToPercent returns round((raw-Min)/(Max-Min)*100), or -1 for an
// invalid range.
func (r Range) RawToPercent(raw int) int {
	if !r.Valid() {
		return -1
	}
	raw = r.Clamp(raw)
	return int(math.Round(float64(raw-r.Min) / float64(r.width()) * 100))
}

// PercentToRaw is the inverse of RawToPercent. Percent is clamped to [0,100].
func (r Range) PercentToRaw(percent int) int {
	if percent < 0 {
		percent = 0
	} else if percent > 100 {
		percent = 100
	}
	return r.Min + int(math.Round(float64(percent)*float64(r.width())/100))
}

// Step is the raw increment used by step and cycle requests.
func (r Range) Step() int {
	step := r.width() / 20
	if step < 1 {
		step = 1
	}
	return step
}
