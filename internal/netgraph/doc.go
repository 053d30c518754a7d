// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package netgraph tracks which component ports and nets are electrically
// joined by traces. It is a small undirected graph whose results never depend
// on map iteration order, so layout and materialization stay deterministic.
package netgraph
