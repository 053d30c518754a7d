// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package frontend defines the interface circuit description languages
// implement, and picks an implementation for an entry file.
//
// Concrete front ends live in sub-packages. Each one reads source from a
// virtual file map only and reports what it finds through the builder, so
// the rest of the pipeline never sees source syntax.
package frontend

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/vk/circuitgo/internal/builder"
	"github.com/vk/circuitgo/internal/frontend/hclfront"
	"github.com/vk/circuitgo/internal/frontend/tsxfront"
	"github.com/vk/circuitgo/internal/vfs"
)

// Evaluator runs the entry module of a circuit description against a
// builder.
type Evaluator interface {
	// Evaluate executes entry, resolving every import from files. Syntax and
	// runtime faults are returned as evaluation errors; validation errors
	// raised by the builder are returned unchanged.
	Evaluate(ctx context.Context, files vfs.Map, entry string, b *builder.Builder) error
}

// Extensions lists the source extensions a front end exists for.
var Extensions = []string{".hcl", ".tsx", ".jsx", ".json"}

// ForEntrypoint picks the front end from the entry file's extension.
func ForEntrypoint(entry string) (Evaluator, error) {
	switch ext := strings.ToLower(path.Ext(entry)); ext {
	case ".hcl":
		return hclfront.New(), nil
	case ".tsx", ".jsx":
		return tsxfront.New(), nil
	default:
		return nil, fmt.Errorf("no front end for entrypoint %q (extension %q)", entry, ext)
	}
}
