// SPDX-FileCopyrightText: 2018 - 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/linuxdeepin/dde-power-daemon/loader"

	_ "github.com/linuxdeepin/dde-power-daemon/session/power1"
)

func getEnableFlag(ignoreMissing bool) loader.EnableFlag {
	if ignoreMissing {
		return loader.EnableFlagIgnoreMissingModule
	}
	return loader.EnableFlagNone
}

func moduleNames() []string {
	var names []string
	for _, m := range loader.List() {
		names = append(names, m.Name())
	}
	sort.Strings(names)
	return names
}

// listModules prints every module with its dependencies, or the
// dependencies of the named one.
func listModules(w io.Writer, name string) error {
	if name == "all" {
		for _, n := range moduleNames() {
			deps := loader.GetModule(n).GetDependencies()
			_, err := fmt.Fprintf(w, "%s: %s\n", n, strings.Join(deps, " "))
			if err != nil {
				return err
			}
		}
		return nil
	}

	module := loader.GetModule(name)
	if module == nil {
		return fmt.Errorf("no such a module named %q", name)
	}
	for _, dep := range module.GetDependencies() {
		_, err := fmt.Fprintln(w, dep)
		if err != nil {
			return err
		}
	}
	return nil
}
