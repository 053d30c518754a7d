// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package overlay resolves persisted manual edits against the automatic
// layout.
//
// Selectors are matched through an Index built once per graph, restricted to
// the board that declared the edits. Targets are computed from automatic
// geometry only, which makes Apply a pure function of the graph, the edits
// and the automatic layout: applying the same edits twice gives the same
// result as applying them once.
package overlay
