// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package sandbox hosts circuit runs. A Host owns one goroutine that holds
// the current run; callers reach it through Execute, RenderUntilSettled and
// CircuitJSON, and every failure comes back as one error value whose kind is
// reported by internal/circuiterr.
package sandbox
