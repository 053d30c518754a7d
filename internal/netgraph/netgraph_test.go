// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package netgraph

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGraph_SelfConnectionRejected(t *testing.T) {
	t.Parallel()

	g := New()
	err := g.Connect("R1.1", "R1.1")

	require.Error(t, err)
	require.Contains(t, err.Error(), "self-referential")
}

func TestGraph_GroupsAreOrdered(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	g := New()
	g.AddNode("net.GND")
	g.AddNode("net.VCC")
	require.NoError(t, g.Connect("R1.2", "net.GND"))
	require.NoError(t, g.Connect("C1.2", "net.GND"))
	require.NoError(t, g.Connect("R1.1", "net.VCC"))
	require.NoError(t, g.Connect("U1.1", "U1.2"))

	// --- Act ---
	groups := g.Groups()
	gnd, err := g.Group("C1.2")

	// --- Assert ---
	require.NoError(t, err)
	require.Equal(t, [][]string{
		{"net.GND", "R1.2", "C1.2"},
		{"net.VCC", "R1.1"},
		{"U1.1", "U1.2"},
	}, groups)
	require.Equal(t, []string{"net.GND", "R1.2", "C1.2"}, gnd)
	require.Equal(t, 7, g.Len())
}

func TestGraph_Neighbors(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	g := New()
	require.NoError(t, g.Connect("a", "c"))
	require.NoError(t, g.Connect("a", "b"))
	require.NoError(t, g.Connect("b", "d"))

	// --- Act ---
	neighbors, err := g.Neighbors("a")
	_, missingErr := g.Neighbors("zzz")

	// --- Assert ---
	require.NoError(t, err)
	require.Equal(t, []string{"c", "b"}, neighbors)
	require.Error(t, missingErr)
	require.True(t, g.Has("d"))
	require.False(t, g.Has("zzz"))
}

func TestGraph_ResultsStableAcrossRuns(t *testing.T) {
	t.Parallel()

	build := func() [][]string {
		g := New()
		for _, pair := range [][2]string{{"x", "y"}, {"y", "z"}, {"p", "q"}, {"z", "w"}} {
			require.NoError(t, g.Connect(pair[0], pair[1]))
		}
		return g.Groups()
	}

	first := build()
	for range 20 {
		require.Equal(t, first, build())
	}
}
