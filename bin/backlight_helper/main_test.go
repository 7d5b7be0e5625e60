// SPDX-FileCopyrightText: 2018 - 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_getBrightnessFilename(t *testing.T) {
	type args struct {
		type0 string
		name  string
	}
	tests := []struct {
		name    string
		args    args
		want    string
		wantErr bool
	}{
		{
			name: "getBrightnessFilename backlight",
			args: args{
				type0: DisplayBacklight,
				name:  "xx",
			},
			wantErr: false,
			want:    "/sys/class/backlight/xx/brightness",
		},
		{
			name: "getBrightnessFilename keyboard",
			args: args{
				type0: KeyboardBacklight,
				name:  "xx",
			},
			wantErr: false,
			want:    "/sys/class/leds/xx/brightness",
		},
		{
			name: "getBrightnessFilename wrong type",
			args: args{
				type0: "ddcci",
				name:  "xx",
			},
			wantErr: true,
		},
		{
			name: "getBrightnessFilename bad name",
			args: args{
				type0: DisplayBacklight,
				name:  "xx/",
			},
			wantErr: true,
		},
		{
			name: "getBrightnessFilename parent dir",
			args: args{
				type0: DisplayBacklight,
				name:  "..",
			},
			wantErr: true,
		},
		{
			name: "getBrightnessFilename empty name",
			args: args{
				type0: KeyboardBacklight,
				name:  "",
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := getBrightnessFilename(tt.args.type0, tt.args.name)
			if tt.wantErr {
				assert.NotNil(t, err)
				return
			}

			require.Nil(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func Test_setBrightness(t *testing.T) {
	dir := t.TempDir()
	old := sysClassDir
	sysClassDir = dir
	defer func() {
		sysClassDir = old
	}()

	devDir := filepath.Join(dir, "backlight", "intel_backlight")
	require.NoError(t, os.MkdirAll(devDir, 0755))
	filename := filepath.Join(devDir, "brightness")
	require.NoError(t, os.WriteFile(filename, nil, 0644))

	require.NoError(t, setBrightness(DisplayBacklight, "intel_backlight", 42))
	content, err := os.ReadFile(filename)
	require.NoError(t, err)
	assert.Equal(t, "42", string(content))

	assert.Error(t, setBrightness(DisplayBacklight, "intel_backlight", -1))
	assert.Error(t, setBrightness(DisplayBacklight, "missing", 1))
}
