// SPDX-FileCopyrightText: 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package power

import (
	"math"
	"sync"
	"time"

	sensorproxy "github.com/linuxdeepin/go-dbus-factory/system/net.hadess.sensorproxy"
)

const ambientBandwidthHz = 0.1

// seconds
var ambientTimeConstant = 1 / (2 * math.Pi * ambientBandwidthHz)

// ambientFilter smooths light readings into a brightness percent. norm is
// the lux value that maps to 100%, negative until the first normalization.
type ambientFilter struct {
	norm      float64
	acc       float64
	last      time.Time
	normalize bool
}

func newAmbientFilter() ambientFilter {
	return ambientFilter{
		norm:      -1,
		acc:       -1,
		normalize: true,
	}
}

// update feeds one reading and returns the target percent, or -1 while
// there is no usable data.
func (f *ambientFilter) update(lux float64, now time.Time, currentPercent int) float64 {
	if lux < 0 {
		return -1
	}
	if f.normalize {
		if currentPercent <= 0 || lux == 0 {
			return -1
		}
		f.norm = lux / float64(currentPercent) * 100
		f.normalize = false
		f.acc = -1
		logger.Debugf("ambient norm %.1f lux at %d%%", f.norm, currentPercent)
	}
	if f.norm <= 0 {
		return -1
	}

	sample := 100 * lux / f.norm
	var alpha float64
	if !f.last.IsZero() {
		dt := now.Sub(f.last).Seconds()
		if dt > 0 {
			alpha = 1 / (1 + ambientTimeConstant/dt)
		}
	}
	f.last = now

	if f.acc < 0 {
		f.acc = sample
	} else {
		f.acc = alpha*sample + (1-alpha)*f.acc
	}
	return math.Max(0, math.Min(100, f.acc))
}

type lightSensor interface {
	HasAmbientLight() (bool, error)
	ClaimLight() error
	ReleaseLight() error
}

// AmbientAdjuster follows the light sensor while the session is active and
// not idle.
type AmbientAdjuster struct {
	backlight brightnessController
	sensor    lightSensor
	now       func() time.Time

	mu            sync.Mutex
	filter        ambientFilter
	enabled       bool
	hasSensor     bool
	sessionActive bool
	idleMode      IdleMode
	claimed       bool
}

func newAmbientAdjuster(bl brightnessController, sensor lightSensor) *AmbientAdjuster {
	return &AmbientAdjuster{
		backlight: bl,
		sensor:    sensor,
		now:       time.Now,
		filter:    newAmbientFilter(),
	}
}

func (a *AmbientAdjuster) activeLocked() bool {
	return a.enabled && a.hasSensor && a.sessionActive && a.idleMode == IdleModeNormal
}

func (a *AmbientAdjuster) Active() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.activeLocked()
}

func (a *AmbientAdjuster) HasSensor() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.hasSensor
}

// updateClaimLocked claims the sensor exactly while the adjuster is active.
func (a *AmbientAdjuster) updateClaimLocked() {
	active := a.activeLocked()
	if active == a.claimed {
		return
	}
	var err error
	if active {
		err = a.sensor.ClaimLight()
	} else {
		err = a.sensor.ReleaseLight()
		a.filter.last = time.Time{}
	}
	if err != nil {
		logger.Warningf("claim light %v: %v", active, err)
		return
	}
	a.claimed = active
	logger.Debug("ambient light claimed:", active)
}

// RefreshSensor re-reads the sensor presence, after start or when the
// sensor proxy restarted and forgot earlier claims.
func (a *AmbientAdjuster) RefreshSensor() {
	has, err := a.sensor.HasAmbientLight()
	if err != nil {
		logger.Warning("get HasAmbientLight:", err)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hasSensor = has
	a.claimed = false
	a.updateClaimLocked()
}

func (a *AmbientAdjuster) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.enabled == enabled {
		return
	}
	a.enabled = enabled
	if enabled {
		a.filter.normalize = true
	}
	a.updateClaimLocked()
}

func (a *AmbientAdjuster) SetSessionActive(active bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sessionActive = active
	a.updateClaimLocked()
}

func (a *AmbientAdjuster) SetIdleMode(mode IdleMode) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.idleMode = mode
	a.updateClaimLocked()
}

// RequestNormalize makes the next reading map to the brightness the user
// has just chosen, or to the value set from outside the daemon.
func (a *AmbientAdjuster) RequestNormalize() {
	a.mu.Lock()
	a.filter.normalize = true
	a.mu.Unlock()
}

func (a *AmbientAdjuster) HandleLightLevel(lux float64) {
	a.mu.Lock()
	if !a.activeLocked() {
		a.mu.Unlock()
		return
	}
	// the requested value, so a user write still in flight is the reference
	_, percent := a.backlight.Brightness()
	target := a.filter.update(lux, a.now(), percent)
	a.mu.Unlock()

	if target < 0 {
		return
	}
	p := int(math.Round(target))
	if p == percent {
		return
	}
	logger.Debugf("ambient light %.1f, brightness %d%% -> %d%%", lux, percent, p)
	logFuture("ambient brightness", a.backlight.SetBrightnessPercent(p))
}

func (a *AmbientAdjuster) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = false
	a.updateClaimLocked()
}

type sensorProxyLight struct {
	proxy sensorproxy.SensorProxy
}

func (s sensorProxyLight) HasAmbientLight() (bool, error) {
	return s.proxy.HasAmbientLight().Get(0)
}

func (s sensorProxyLight) ClaimLight() error {
	return s.proxy.ClaimLight(0)
}

func (s sensorProxyLight) ReleaseLight() error {
	return s.proxy.ReleaseLight(0)
}

// connectLightLevel feeds LightLevel changes to the adjuster.
func (s sensorProxyLight) connectLightLevel(a *AmbientAdjuster) error {
	unit, err := s.proxy.LightLevelUnit().Get(0)
	if err == nil {
		logger.Debug("light level unit:", unit)
	}
	return s.proxy.LightLevel().ConnectChanged(func(hasValue bool, value float64) {
		if !hasValue {
			return
		}
		a.HandleLightLevel(value)
	})
}
