// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package netgraph

import (
	"fmt"
	"sort"
	"sync"
)

// Graph is an undirected connectivity graph. Nodes remember the order they
// were added in, and every query returns IDs in that order.
type Graph struct {
	mutex sync.RWMutex
	nodes map[string]*node
	order []*node
}

type node struct {
	id    string
	index int
	adj   map[string]*node
}

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*node),
	}
}

// AddNode adds a node with the given ID. Adding an existing ID does nothing.
func (g *Graph) AddNode(id string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	g.addNodeLocked(id)
}

func (g *Graph) addNodeLocked(id string) *node {
	if n, ok := g.nodes[id]; ok {
		return n
	}
	n := &node{id: id, index: len(g.order), adj: make(map[string]*node)}
	g.nodes[id] = n
	g.order = append(g.order, n)
	return n
}

// Connect joins two nodes, adding them if needed. Connecting a node to
// itself is rejected.
func (g *Graph) Connect(a, b string) error {
	if a == b {
		return fmt.Errorf("self-referential connection not allowed: %s -> %s", a, a)
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	na := g.addNodeLocked(a)
	nb := g.addNodeLocked(b)
	na.adj[b] = nb
	nb.adj[a] = na
	return nil
}

// Has reports whether the node exists.
func (g *Graph) Has(id string) bool {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	_, ok := g.nodes[id]
	return ok
}

// Neighbors returns the nodes directly connected to id.
func (g *Graph) Neighbors(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	adj := make([]*node, 0, len(n.adj))
	for _, m := range n.adj {
		adj = append(adj, m)
	}
	return ids(adj), nil
}

// Group returns every node reachable from id, including id itself.
func (g *Graph) Group(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	return ids(g.reachLocked(n, make(map[string]bool))), nil
}

// Groups returns all connected groups, ordered by their earliest node.
func (g *Graph) Groups() [][]string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	seen := make(map[string]bool)
	var groups [][]string
	for _, n := range g.order {
		if seen[n.id] {
			continue
		}
		groups = append(groups, ids(g.reachLocked(n, seen)))
	}
	return groups
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return len(g.order)
}

// reachLocked collects the connected group of start with an iterative DFS.
func (g *Graph) reachLocked(start *node, seen map[string]bool) []*node {
	var out []*node
	stack := []*node{start}
	seen[start.id] = true
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, n)
		for _, m := range n.adj {
			if !seen[m.id] {
				seen[m.id] = true
				stack = append(stack, m)
			}
		}
	}
	return out
}

func ids(nodes []*node) []string {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].index < nodes[j].index })
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.id
	}
	return out
}
