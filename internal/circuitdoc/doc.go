// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package circuitdoc materializes settled circuits into the flat JSON
// document handed back to callers, and reads such documents back.
package circuitdoc
