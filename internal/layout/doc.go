// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package layout settles the geometry of a circuit graph.
//
// Each pass computes component shapes, places components on their boards,
// applies manual edits through the overlay package, sizes auto-sized boards
// and routes traces. Passes repeat until two consecutive ones agree within a
// tolerance. Every choice is made in declaration order, so the same graph and
// edits always settle to the same geometry.
package layout
