// SPDX-FileCopyrightText: 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package loader

import (
	"errors"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/linuxdeepin/go-lib/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/check.v1"
)

type Test_Module struct {
	*ModuleBase
	dependencies string
	startErr     error
	started      func(name string)
}

type testItem struct {
	input  Modules
	output error
}

func NewTestModule(name, dependencies string) *Test_Module {
	daemon := new(Test_Module)
	logger := log.NewLogger(name)
	daemon.ModuleBase = NewModuleBase(name, daemon, logger)
	daemon.dependencies = dependencies
	return daemon
}

func (d *Test_Module) GetDependencies() []string {
	if d.dependencies == "" {
		return nil
	}
	return strings.Split(d.dependencies, " ")
}

func (d *Test_Module) Start() error {
	time.Sleep(time.Duration(rand.Int63n(int64(20 * time.Millisecond))))
	if d.started != nil {
		d.started(d.Name())
	}
	return d.startErr
}

func (d *Test_Module) Stop() error {
	return nil
}

func resetLoader() {
	getLoader()
	_loader = &Loader{
		modules: Modules{},
		log:     log.NewLogger("daemon/loader"),
	}
}

func Test_Loader(t *testing.T) {
	testItems := []testItem{
		{
			Modules{
				"1": NewTestModule("1", ""),
				"2": NewTestModule("2", ""),
				"3": NewTestModule("3", ""),
				"4": NewTestModule("4", ""),
				"5": NewTestModule("5", ""),
				"6": NewTestModule("6", ""),
			},
			nil,
		},
		{
			Modules{
				"1": NewTestModule("1", "2"),
				"2": NewTestModule("2", "3"),
				"3": NewTestModule("3", "4"),
				"4": NewTestModule("4", "5"),
				"5": NewTestModule("5", "6"),
				"6": NewTestModule("6", ""),
			},
			nil,
		},
		{
			Modules{
				"1": NewTestModule("1", "2"),
				"2": NewTestModule("2", "3"),
				"3": NewTestModule("3", "4"),
				"4": NewTestModule("4", "5"),
				"5": NewTestModule("5", "6"),
				"6": NewTestModule("6", "1"),
			},
			&EnableError{Code: ErrorCircleDependencies},
		},
	}
	for _, data := range testItems {
		resetLoader()
		allModules := []string{}
		for name, module := range data.input {
			Register(module)
			allModules = append(allModules, name)
		}
		err := EnableModules(allModules, nil, EnableFlagNone)
		assert.Equal(t, data.output, err)
	}
}

func Test_LoaderStartOrder(t *testing.T) {
	resetLoader()
	var mu sync.Mutex
	var order []string
	record := func(name string) {
		mu.Lock()
		order = append(order, name)
		mu.Unlock()
	}
	for _, m := range []*Test_Module{
		NewTestModule("power", "backlight"),
		NewTestModule("backlight", "session"),
		NewTestModule("session", ""),
	} {
		m.started = record
		Register(m)
	}

	err := EnableModules([]string{"power"}, nil, EnableFlagNone)
	require.NoError(t, err)
	assert.Equal(t, []string{"session", "backlight", "power"}, order)
	assert.True(t, GetModule("power").IsEnable())
}

func Test_LoaderStartFailure(t *testing.T) {
	resetLoader()
	broken := NewTestModule("broken", "")
	broken.startErr = errors.New("no bus")
	Register(broken)
	Register(NewTestModule("power", "broken"))

	err := EnableModules([]string{"power"}, nil, EnableFlagNone)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken started failed: no bus")
	assert.False(t, GetModule("broken").IsEnable())
	assert.True(t, GetModule("power").IsEnable())
}

func Test_LoaderMissingModule(t *testing.T) {
	resetLoader()
	Register(NewTestModule("power", "absent"))

	err := EnableModules([]string{"power"}, nil, EnableFlagNone)
	assert.Equal(t, &EnableError{ModuleName: "absent", Code: ErrorMissingModule}, err)

	resetLoader()
	Register(NewTestModule("power", "absent"))
	err = EnableModules([]string{"power"}, nil, EnableFlagIgnoreMissingModule)
	assert.NoError(t, err)
}

func Test_LoaderDisabledModule(t *testing.T) {
	resetLoader()
	Register(NewTestModule("power", ""))

	err := EnableModules([]string{"power"}, []string{"power"}, EnableFlagNone)
	assert.Equal(t, &EnableError{ModuleName: "power", Code: ErrorConflict}, err)
}

func Test(t *testing.T) { check.TestingT(t) }

type dagSuite struct{}

var _ = check.Suite(&dagSuite{})

func (*dagSuite) TestTopologicalSort(c *check.C) {
	g := newModuleDAG()
	g.addEdge("session", "backlight")
	g.addEdge("backlight", "power")
	g.addEdge("session", "power")
	g.addNode("loader")

	nodes, ok := g.topologicalSort()
	c.Assert(ok, check.Equals, true)
	var ids []string
	for _, n := range nodes {
		ids = append(ids, n.ID)
	}
	c.Check(ids, check.DeepEquals, []string{"loader", "session", "backlight", "power"})
}

func (*dagSuite) TestDuplicateEdge(c *check.C) {
	g := newModuleDAG()
	g.addEdge("a", "b")
	g.addEdge("a", "b")
	c.Check(g.nodes["b"].inDegree, check.Equals, 1)
	c.Check(g.addNode("a"), check.Equals, false)
}

func (*dagSuite) TestCycle(c *check.C) {
	g := newModuleDAG()
	g.addEdge("a", "b")
	g.addEdge("b", "c")
	g.addEdge("c", "a")
	_, ok := g.topologicalSort()
	c.Check(ok, check.Equals, false)
}

func Test_LoaderStopAll(t *testing.T) {
	resetLoader()
	Register(NewTestModule("power", "backlight"))
	Register(NewTestModule("backlight", ""))
	Register(NewTestModule("idle", ""))

	require.NoError(t, EnableModules([]string{"power"}, nil, EnableFlagNone))
	assert.False(t, GetModule("idle").IsEnable())

	require.NoError(t, StopAll())
	for _, m := range List() {
		assert.False(t, m.IsEnable(), m.Name())
	}
}
