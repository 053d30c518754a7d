// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the run lifecycle that loads a circuit from
// disk, settles it in a sandbox host and writes the resulting document,
// decoupled from any specific entrypoint like a CLI or server.
package app
