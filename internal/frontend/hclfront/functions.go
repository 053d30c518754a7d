// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package hclfront

import (
	"fmt"
	"path"
	"strings"

	"github.com/vk/circuitgo/internal/vfs"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// pure are the functions with no access to anything but their arguments.
var pure = map[string]function.Function{
	"upper":      stdlib.UpperFunc,
	"lower":      stdlib.LowerFunc,
	"format":     stdlib.FormatFunc,
	"join":       stdlib.JoinFunc,
	"concat":     stdlib.ConcatFunc,
	"length":     stdlib.LengthFunc,
	"max":        stdlib.MaxFunc,
	"min":        stdlib.MinFunc,
	"coalesce":   stdlib.CoalesceFunc,
	"merge":      stdlib.MergeFunc,
	"range":      stdlib.RangeFunc,
	"jsonencode": stdlib.JSONEncodeFunc,
	"jsondecode": stdlib.JSONDecodeFunc,
}

// functions returns the function table for expressions in file. import and
// file resolve their argument relative to that file.
func functions(files vfs.Map, file string) map[string]function.Function {
	out := make(map[string]function.Function, len(pure)+2)
	for name, fn := range pure {
		out[name] = fn
	}
	out["import"] = importFunc(files, file)
	out["file"] = fileFunc(files, file)
	return out
}

func importFunc(files vfs.Map, from string) function.Function {
	load := func(ref string) ([]byte, error) {
		if ext := strings.ToLower(path.Ext(ref)); ext != ".json" {
			return nil, fmt.Errorf("import supports .json files only, got %q; use file() for text", ref)
		}
		src, _, err := files.ReadRelative(from, ref)
		if err != nil {
			return nil, err
		}
		return []byte(src), nil
	}
	return function.New(&function.Spec{
		Params: []function.Parameter{{Name: "path", Type: cty.String}},
		Type: func(args []cty.Value) (cty.Type, error) {
			if !args[0].IsKnown() {
				return cty.DynamicPseudoType, nil
			}
			data, err := load(args[0].AsString())
			if err != nil {
				return cty.NilType, function.NewArgError(0, err)
			}
			ty, err := ctyjson.ImpliedType(data)
			if err != nil {
				return cty.NilType, function.NewArgError(0, fmt.Errorf("%s: %w", args[0].AsString(), err))
			}
			return ty, nil
		},
		Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
			data, err := load(args[0].AsString())
			if err != nil {
				return cty.NilVal, err
			}
			return ctyjson.Unmarshal(data, retType)
		},
	})
}

func fileFunc(files vfs.Map, from string) function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{{Name: "path", Type: cty.String}},
		Type:   function.StaticReturnType(cty.String),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			src, _, err := files.ReadRelative(from, args[0].AsString())
			if err != nil {
				return cty.NilVal, function.NewArgError(0, err)
			}
			return cty.StringVal(src), nil
		},
	})
}
