// SPDX-FileCopyrightText: 2018 - 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package loader

import (
	"sort"

	"github.com/linuxdeepin/go-lib/log"
)

type dagNode struct {
	ID       string
	inDegree int
	children []*dagNode
}

// moduleDAG has an edge from every dependency to the module needing it.
type moduleDAG struct {
	nodes map[string]*dagNode
}

func newModuleDAG() *moduleDAG {
	return &moduleDAG{nodes: make(map[string]*dagNode)}
}

// addNode reports whether the node is new.
func (g *moduleDAG) addNode(id string) bool {
	if _, ok := g.nodes[id]; ok {
		return false
	}
	g.nodes[id] = &dagNode{ID: id}
	return true
}

func (g *moduleDAG) removeNode(id string) {
	node, ok := g.nodes[id]
	if !ok {
		return
	}
	for _, child := range node.children {
		child.inDegree--
	}
	delete(g.nodes, id)
}

func (g *moduleDAG) addEdge(from, to string) {
	g.addNode(from)
	g.addNode(to)
	parent := g.nodes[from]
	child := g.nodes[to]
	for _, c := range parent.children {
		if c == child {
			return
		}
	}
	parent.children = append(parent.children, child)
	child.inDegree++
}

// topologicalSort orders every dependency before its dependents. It fails
// when the graph has a cycle.
func (g *moduleDAG) topologicalSort() ([]*dagNode, bool) {
	inDegree := make(map[string]int, len(g.nodes))
	var queue []*dagNode
	for id, node := range g.nodes {
		inDegree[id] = node.inDegree
		if node.inDegree == 0 {
			queue = append(queue, node)
		}
	}
	sort.Slice(queue, func(i, j int) bool {
		return queue[i].ID < queue[j].ID
	})

	result := make([]*dagNode, 0, len(g.nodes))
	for len(queue) != 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)
		for _, child := range node.children {
			inDegree[child.ID]--
			if inDegree[child.ID] == 0 {
				queue = append(queue, child)
			}
		}
	}
	return result, len(result) == len(g.nodes)
}

type DAGBuilder struct {
	modules         Modules
	enablingModules []string
	disableModules  map[string]struct{}
	flag            EnableFlag

	log *log.Logger

	dag *moduleDAG
}

func NewDAGBuilder(loader *Loader, enablingModules []string, disableModules []string, flag EnableFlag) *DAGBuilder {
	disableModulesMap := map[string]struct{}{}
	for _, name := range disableModules {
		if _, ok := loader.modules[name]; !ok {
			loader.log.Warningf("disabled module(%s) is no existed", name)
			continue
		}
		disableModulesMap[name] = struct{}{}
	}

	return &DAGBuilder{
		modules:         loader.modules,
		enablingModules: enablingModules,
		disableModules:  disableModulesMap,
		flag:            flag,
		log:             loader.log,
		dag:             newModuleDAG(),
	}
}

func (builder *DAGBuilder) buildDAG() error {
	queue := make([]string, 0, len(builder.enablingModules))
	for _, name := range builder.enablingModules {
		if builder.dag.addNode(name) {
			queue = append(queue, name)
		}
	}
	for len(queue) != 0 {
		name := queue[0]
		queue = queue[1:]
		module, ok := builder.modules[name]
		if !ok {
			if builder.flag.HasFlag(EnableFlagIgnoreMissingModule) {
				builder.log.Info("no such a module named", name)
				builder.dag.removeNode(name)
				continue
			}
			return &EnableError{ModuleName: name, Code: ErrorMissingModule}
		}
		if _, ok := builder.disableModules[name]; ok {
			if !builder.flag.HasFlag(EnableFlagForceStart) {
				return &EnableError{ModuleName: name, Code: ErrorConflict}
			}
		}
		for _, dependency := range module.GetDependencies() {
			if builder.dag.addNode(dependency) {
				queue = append(queue, dependency)
			}
			builder.dag.addEdge(dependency, name)
		}
	}
	return nil
}

func (builder *DAGBuilder) Execute() (*moduleDAG, error) {
	err := builder.buildDAG()
	if err != nil {
		return nil, err
	}

	return builder.dag, nil
}
