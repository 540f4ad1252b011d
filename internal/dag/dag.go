// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dag implements a small directed graph over string labels that is used to track which
// dataset was derived from which.
//
// An edge a -> b means that b is computed from a. Nodes keep their insertion order, and every
// query that returns a list of nodes orders it by insertion, so results are deterministic.
package dag

import (
	"errors"
	"fmt"
	"sort"
)

// ErrCycle is returned when an operation would make the graph cyclic or when a topological
// order is requested on a cyclic graph.
var ErrCycle = errors.New("cycle in graph")

type Graph struct {
	Nodes   []string
	byLabel map[string]int
	edges   map[string]map[string]bool
}

func (g *Graph) AddNode(label string) bool {
	if _, ok := g.byLabel[label]; ok {
		return false
	}
	g.byLabel[label] = len(g.Nodes)
	g.Nodes = append(g.Nodes, label)
	g.edges[label] = map[string]bool{}
	return true
}

func (g *Graph) HasNode(label string) bool {
	_, ok := g.byLabel[label]
	return ok
}

// AddEdge adds the edge from -> to, creating missing nodes. The edge is refused if it would
// close a cycle.
func (g *Graph) AddEdge(from, to string) error {
	if from == to || g.HasPath(to, from) {
		return fmt.Errorf("%w: %s -> %s", ErrCycle, from, to)
	}
	g.AddNode(from)
	g.AddNode(to)
	g.edges[from][to] = true
	return nil
}

func (g *Graph) DelEdge(from, to string) {
	delete(g.edges[from], to)
}

func (g *Graph) HasEdge(from, to string) bool {
	return g.edges[from] != nil && g.edges[from][to]
}

// Edges returns the successors of a node.
func (g *Graph) Edges(from string) []string {
	edges := make([]string, 0, len(g.edges[from]))
	for k := range g.edges[from] {
		edges = append(edges, k)
	}
	g.sortByLabel(edges)
	return edges
}

// HasPath reports whether to is reachable from from.
func (g *Graph) HasPath(from, to string) bool {
	if !g.HasNode(from) || !g.HasNode(to) {
		return false
	}
	seen := map[string]bool{}
	stack := []string{from}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == to {
			return true
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		for next := range g.edges[n] {
			stack = append(stack, next)
		}
	}
	return false
}

func (g *Graph) sortByLabel(labels []string) {
	sort.Slice(labels, func(i, j int) bool { return g.byLabel[labels[i]] < g.byLabel[labels[j]] })
}
