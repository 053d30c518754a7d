// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package tsxfront evaluates circuits written as TSX.
//
// Source is parsed with tree-sitter and interpreted directly; nothing is
// compiled or executed natively. The dialect covers what circuit files
// actually use:
//
//	import manualEdits from "./manual-edits.json"
//	import { Led } from "./parts"
//
//	const r = "1k"
//	const Led = () => <led name="D1" color="red" />
//
//	circuit.add(
//	  <board width="10mm" height="10mm" manualEdits={manualEdits}>
//	    <resistor name="R1" resistance={r} footprint="0402" />
//	    <Led />
//	  </board>
//	)
//
// The entry module's default export is rendered too. Lowercase tags are
// element tags for the builder; capitalized tags expand prop-less
// components. Anything else, including calls other than circuit.add and
// imports of packages, is an evaluation error.
package tsxfront
