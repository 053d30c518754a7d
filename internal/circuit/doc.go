// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package circuit defines the circuit graph: boards, components, nets and
// traces, and the containment between them. Geometry is not stored here; the
// layout engine keeps it in its own per-run state.
package circuit
