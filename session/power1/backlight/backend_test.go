// SPDX-FileCopyrightText: 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package backlight

import (
	"errors"
	"os/exec"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_runHelper(t *testing.T) {
	var gotName string
	var gotArgs []string
	defer func() {
		execCommand = exec.Command
	}()

	execCommand = func(name string, arg ...string) *exec.Cmd {
		gotName = name
		gotArgs = arg
		return exec.Command("true")
	}
	err := runHelper("/usr/lib/deepin-daemon/dde-backlight-helper", helperTypeDisplay, "intel_backlight", 120)
	require.NoError(t, err)
	assert.Equal(t, "pkexec", gotName)
	assert.Equal(t, []string{"/usr/lib/deepin-daemon/dde-backlight-helper",
		"-type", "display", "-name", "intel_backlight", "-value", "120"}, gotArgs)

	execCommand = func(name string, arg ...string) *exec.Cmd {
		return exec.Command("false")
	}
	err = runHelper("helper", helperTypeKeyboard, "kbd", 1)
	assert.Error(t, err)
}

func Test_minRawValue(t *testing.T) {
	assert.Equal(t, 1, minRawValue("firmware"))
	assert.Equal(t, 1, minRawValue("platform"))
	assert.Equal(t, 0, minRawValue("raw"))
}

func Test_decodeBacklightInfo(t *testing.T) {
	value := []interface{}{
		uint32(7),
		[]map[string]dbus.Variant{
			{
				"connector": dbus.MakeVariant("eDP-1"),
				"active":    dbus.MakeVariant(true),
				"min":       dbus.MakeVariant(int32(0)),
				"max":       dbus.MakeVariant(int32(100)),
				"value":     dbus.MakeVariant(int32(42)),
			},
			{
				"connector": dbus.MakeVariant("HDMI-1"),
				"active":    dbus.MakeVariant(false),
			},
		},
	}
	info, err := decodeBacklightInfo(value)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), info.Serial)
	require.Len(t, info.Connectors, 2)
	assert.Equal(t, ConnectorBacklight{Connector: "eDP-1", Active: true, Min: 0, Max: 100, Value: 42},
		info.Connectors[0])
	assert.Equal(t, ConnectorBacklight{Connector: "HDMI-1"}, info.Connectors[1])

	_, err = decodeBacklightInfo("bad")
	assert.Error(t, err)
}

type fakeDisplayConfig struct {
	info      BacklightInfo
	sets      []int
	setErr    error
	changedCb func()
}

func (d *fakeDisplayConfig) GetBacklight() (*BacklightInfo, error) {
	info := d.info
	return &info, nil
}

func (d *fakeDisplayConfig) SetBacklight(serial uint32, connector string, value int) error {
	if d.setErr != nil {
		return d.setErr
	}
	d.sets = append(d.sets, value)
	for i := range d.info.Connectors {
		if d.info.Connectors[i].Connector == connector {
			d.info.Connectors[i].Value = value
		}
	}
	return nil
}

func (d *fakeDisplayConfig) SetPowerSaveMode(mode int32) error { return nil }

func (d *fakeDisplayConfig) ConnectBacklightChanged(cb func()) error {
	d.changedCb = cb
	return nil
}

func TestDisplayConfigBackend(t *testing.T) {
	dc := &fakeDisplayConfig{
		info: BacklightInfo{
			Serial: 1,
			Connectors: []ConnectorBacklight{
				{Connector: "HDMI-1", Active: false, Min: 0, Max: 100},
				{Connector: "DP-2", Active: true, Min: 0, Max: 100, Value: 30},
			},
		},
	}
	b, err := newDisplayConfigBackend(dc)
	require.NoError(t, err)
	assert.Equal(t, "DP-2", b.connector)
	assert.Equal(t, Range{Min: 0, Max: 100}, b.Range())

	v, err := b.Set(80)
	require.NoError(t, err)
	assert.Equal(t, 80, v)
	assert.Equal(t, []int{80}, dc.sets)

	// the monitor set changed, the same connector is still driven
	dc.info.Serial = 2
	dc.info.Connectors = append([]ConnectorBacklight{
		{Connector: "eDP-1", Active: true, Min: 0, Max: 255, Value: 10},
	}, dc.info.Connectors...)
	dc.info.Connectors[2].Max = 200
	called := false
	require.NoError(t, b.Watch(func() { called = true }))
	dc.changedCb()
	assert.True(t, called)
	assert.Equal(t, "DP-2", b.connector)
	assert.Equal(t, uint32(2), b.serial)
	assert.Equal(t, Range{Min: 0, Max: 200}, b.Range())

	dc.setErr = errors.New("rejected")
	_, err = b.Set(10)
	assert.Error(t, err)
}

func TestProbe_Unavailable(t *testing.T) {
	dc := &fakeDisplayConfig{}
	if dev, _ := findLocalDevice(); dev != nil {
		t.Skip("host has a backlight device")
	}
	_, err := Probe(ProbeOptions{DisplayConfig: dc})
	assert.ErrorIs(t, err, ErrBackendUnavailable)
}
