// SPDX-FileCopyrightText: 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"bytes"
	"os"
	"testing"

	"github.com/linuxdeepin/dde-power-daemon/loader"
	"github.com/linuxdeepin/go-lib/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_toLogLevel(t *testing.T) {
	tests := []struct {
		name    string
		want    log.Priority
		wantErr bool
	}{
		{"", log.LevelInfo, false},
		{"error", log.LevelError, false},
		{"warn", log.LevelWarning, false},
		{"INFO", log.LevelInfo, false},
		{"debug", log.LevelDebug, false},
		{"no", log.LevelDisable, false},
		{"verbose", log.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := toLogLevel(tt.name)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func Test_effectiveLogLevel(t *testing.T) {
	t.Setenv(log.DebugLevelEnv, "")
	os.Unsetenv(log.DebugLevelEnv)
	t.Setenv(log.DebugMatchEnv, "")
	os.Unsetenv(log.DebugMatchEnv)

	o := options{verbose: true, logLevel: "warn"}
	pri, ok, err := o.effectiveLogLevel()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, log.LevelDebug, pri)

	o = options{logLevel: "bogus"}
	_, ok, err = o.effectiveLogLevel()
	assert.Error(t, err)
	assert.False(t, ok)

	t.Setenv(log.DebugLevelEnv, "debug")
	o = options{}
	_, ok, err = o.effectiveLogLevel()
	require.NoError(t, err)
	assert.False(t, ok)
}

func Test_getEnableFlag(t *testing.T) {
	assert.Equal(t, loader.EnableFlagIgnoreMissingModule, getEnableFlag(true))
	assert.Equal(t, loader.EnableFlagNone, getEnableFlag(false))
}

func Test_listModules(t *testing.T) {
	assert.Contains(t, moduleNames(), "power")

	var buf bytes.Buffer
	require.NoError(t, listModules(&buf, "all"))
	assert.Contains(t, buf.String(), "power:")

	buf.Reset()
	require.NoError(t, listModules(&buf, "power"))
	assert.Empty(t, buf.String())

	assert.Error(t, listModules(&buf, "bluetooth"))
}
