// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package components defines the component kinds a circuit may declare.
//
// Each kind is a Definition pairing a declaration tag with a typed Part
// struct. The struct's `circuit` tags form the kind's property schema: which
// properties exist, how their values are interpreted, and which of them are
// mandatory. Kinds are grouped into Modules and collected in a Registry, so
// that the builder can validate a declaration the moment it is added instead
// of discovering missing properties during layout.
package components
