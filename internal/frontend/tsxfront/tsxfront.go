// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package tsxfront

import (
	"context"
	"fmt"
	"path"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/vk/circuitgo/internal/builder"
	"github.com/vk/circuitgo/internal/circuiterr"
	"github.com/vk/circuitgo/internal/ctxlog"
	"github.com/vk/circuitgo/internal/vfs"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// maxDepth bounds component expansion, which is the only form of recursion
// the dialect has.
const maxDepth = 64

// moduleExtensions are tried, in order, for extension-less imports.
var moduleExtensions = []string{".tsx", ".ts", ".jsx", ".js"}

// runtimePackages may be imported for their types or JSX runtime. They bind
// nothing inside the sandbox.
var runtimePackages = map[string]bool{
	"react":            true,
	"tscircuit":        true,
	"@tscircuit/core":  true,
	"@tscircuit/props": true,
}

// Evaluator is the TSX front end.
type Evaluator struct{}

// New creates a TSX evaluator.
func New() *Evaluator {
	return &Evaluator{}
}

// Evaluate runs entry and the modules it imports.
func (e *Evaluator) Evaluate(ctx context.Context, files vfs.Map, entry string, b *builder.Builder) error {
	parser := sitter.NewParser()
	parser.SetLanguage(tsx.GetLanguage())
	r := &run{
		files:   files,
		builder: b,
		parser:  parser,
		entry:   vfs.Clean(entry),
		modules: make(map[string]*module),
	}
	defer r.close()

	ctxlog.FromContext(ctx).Debug("TSX evaluation started.", "entry", entry, "files", files.Len())
	_, err := r.load(ctx, r.entry)
	return err
}

// run is the state of one evaluation.
type run struct {
	files   vfs.Map
	builder *builder.Builder
	parser  *sitter.Parser
	entry   string
	modules map[string]*module
	loading []string
	trees   []*sitter.Tree
	depth   int
}

func (r *run) close() {
	for _, t := range r.trees {
		t.Close()
	}
}

// module is one evaluated source file.
type module struct {
	path    string
	src     []byte
	top     *scope
	exports map[string]binding
}

func (m *module) text(n *sitter.Node) string {
	return n.Content(m.src)
}

func (m *module) pos(n *sitter.Node) string {
	p := n.StartPoint()
	return fmt.Sprintf("%s:%d,%d", m.path, p.Row+1, p.Column+1)
}

// scope maps identifiers to bindings. Function bodies get a child scope.
type scope struct {
	mod    *module
	vars   map[string]binding
	parent *scope
}

func (s *scope) child() *scope {
	return &scope{mod: s.mod, vars: make(map[string]binding), parent: s}
}

func (s *scope) lookup(name string) (binding, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if b, ok := cur.vars[name]; ok {
			return b, true
		}
	}
	return binding{}, false
}

// binding is either plain data or a syntax node (a JSX element or a
// component function) together with the scope it was declared in.
type binding struct {
	value cty.Value
	node  *sitter.Node
	scope *scope
}

func (b binding) isJSX() bool {
	return b.node != nil && isJSXNode(b.node)
}

func (b binding) isComponent() bool {
	if b.node == nil {
		return false
	}
	switch b.node.Type() {
	case "arrow_function", "function_declaration", "function_expression", "function":
		return true
	}
	return false
}

func isJSXNode(n *sitter.Node) bool {
	return n.Type() == "jsx_element" || n.Type() == "jsx_self_closing_element"
}

// load evaluates a module once; later imports reuse its exports.
func (r *run) load(ctx context.Context, p string) (*module, error) {
	if m, ok := r.modules[p]; ok {
		return m, nil
	}
	for i, open := range r.loading {
		if open == p {
			chain := append(append([]string{}, r.loading[i:]...), p)
			return nil, circuiterr.New(circuiterr.KindEvaluation, "import cycle: %s", strings.Join(chain, " -> "))
		}
	}
	src, ok := r.files.Read(p)
	if !ok {
		return nil, circuiterr.New(circuiterr.KindEvaluation, "file %q not found", p)
	}

	tree, err := r.parser.ParseCtx(ctx, nil, []byte(src))
	if err != nil {
		if ctxErr := circuiterr.FromContext(ctx, "evaluation"); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, circuiterr.Wrap(circuiterr.KindEvaluation, err, "parsing %s", p)
	}
	r.trees = append(r.trees, tree)

	m := &module{path: p, src: []byte(src), exports: make(map[string]binding)}
	m.top = &scope{mod: m, vars: make(map[string]binding)}
	root := tree.RootNode()
	if root.HasError() {
		return nil, circuiterr.New(circuiterr.KindEvaluation, "syntax error at %s", m.pos(firstError(root)))
	}

	r.loading = append(r.loading, p)
	defer func() { r.loading = r.loading[:len(r.loading)-1] }()
	for i := 0; i < int(root.NamedChildCount()); i++ {
		if err := r.statement(ctx, m, root.NamedChild(i)); err != nil {
			return nil, err
		}
	}
	r.modules[p] = m
	ctxlog.FromContext(ctx).Debug("TSX module evaluated.", "path", p, "exports", len(m.exports))
	return m, nil
}

func (r *run) statement(ctx context.Context, m *module, n *sitter.Node) error {
	if err := circuiterr.FromContext(ctx, "evaluation"); err != nil {
		return err
	}
	switch n.Type() {
	case "comment", "empty_statement", "type_alias_declaration", "interface_declaration":
		return nil
	case "import_statement":
		return r.importStatement(ctx, m, n)
	case "lexical_declaration", "variable_declaration":
		_, err := r.declare(m.top, n)
		return err
	case "function_declaration":
		_, err := r.declare(m.top, n)
		return err
	case "expression_statement":
		return r.expressionStatement(ctx, m.top, n.NamedChild(0))
	case "export_statement":
		return r.exportStatement(ctx, m, n)
	default:
		return unsupported(m, n, "statement")
	}
}

// declare binds the names a declaration introduces and returns them.
func (r *run) declare(s *scope, n *sitter.Node) ([]string, error) {
	m := s.mod
	if n.Type() == "function_declaration" {
		name := m.text(n.ChildByFieldName("name"))
		s.vars[name] = binding{node: n, scope: s}
		return []string{name}, nil
	}
	var names []string
	for i := 0; i < int(n.NamedChildCount()); i++ {
		decl := n.NamedChild(i)
		if decl.Type() != "variable_declarator" {
			continue
		}
		nameNode := decl.ChildByFieldName("name")
		if nameNode.Type() != "identifier" {
			return nil, unsupported(m, nameNode, "destructuring declaration")
		}
		b := binding{value: cty.NullVal(cty.DynamicPseudoType)}
		if value := decl.ChildByFieldName("value"); value != nil {
			var err error
			if b, err = r.bind(s, value); err != nil {
				return nil, err
			}
		}
		name := m.text(nameNode)
		s.vars[name] = b
		names = append(names, name)
	}
	return names, nil
}

// bind turns an initializer into a binding. JSX and functions stay as syntax
// until they are rendered.
func (r *run) bind(s *scope, n *sitter.Node) (binding, error) {
	n = unwrap(n)
	switch n.Type() {
	case "jsx_element", "jsx_self_closing_element", "arrow_function", "function_expression", "function":
		return binding{node: n, scope: s}, nil
	case "identifier":
		if b, ok := s.lookup(s.mod.text(n)); ok && b.node != nil {
			return b, nil
		}
	}
	v, err := r.value(s, n)
	if err != nil {
		return binding{}, err
	}
	return binding{value: v}, nil
}

func (r *run) expressionStatement(ctx context.Context, s *scope, n *sitter.Node) error {
	m := s.mod
	if n == nil || n.Type() != "call_expression" {
		return unsupported(m, n, "expression statement")
	}
	callee := m.text(n.ChildByFieldName("function"))
	if callee != "circuit.add" {
		return circuiterr.New(circuiterr.KindEvaluation, "%s: %s is not available in the sandbox; only circuit.add(...) can be called", m.pos(n), callee)
	}
	args := n.ChildByFieldName("arguments")
	for i := 0; i < int(args.NamedChildCount()); i++ {
		if err := r.render(ctx, s, args.NamedChild(i)); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) exportStatement(ctx context.Context, m *module, n *sitter.Node) error {
	isDefault := false
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.Child(i).Type() == "default" {
			isDefault = true
		}
	}

	var def binding
	switch {
	case n.ChildByFieldName("declaration") != nil:
		names, err := r.declare(m.top, n.ChildByFieldName("declaration"))
		if err != nil {
			return err
		}
		for _, name := range names {
			m.exports[name], _ = m.top.lookup(name)
		}
		if !isDefault || len(names) == 0 {
			return nil
		}
		def = m.exports[names[0]]
	case n.ChildByFieldName("value") != nil:
		b, err := r.bind(m.top, n.ChildByFieldName("value"))
		if err != nil {
			return err
		}
		def = b
	default:
		for i := 0; i < int(n.NamedChildCount()); i++ {
			clause := n.NamedChild(i)
			if clause.Type() != "export_clause" {
				continue
			}
			for j := 0; j < int(clause.NamedChildCount()); j++ {
				spec := clause.NamedChild(j)
				local := m.text(spec.ChildByFieldName("name"))
				exported := local
				if alias := spec.ChildByFieldName("alias"); alias != nil {
					exported = m.text(alias)
				}
				b, ok := m.top.lookup(local)
				if !ok {
					return notDefined(m, spec, local)
				}
				m.exports[exported] = b
			}
		}
		return nil
	}

	m.exports["default"] = def
	// The entry module's default export is the circuit itself.
	if m.path == r.entry && (def.isJSX() || def.isComponent()) {
		return r.renderBinding(ctx, def)
	}
	return nil
}

func (r *run) importStatement(ctx context.Context, m *module, n *sitter.Node) error {
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.Child(i).Type() == "type" {
			return nil // import type { ... }
		}
	}
	source := unquote(m.text(n.ChildByFieldName("source")))
	if runtimePackages[source] {
		return nil
	}
	if !strings.HasPrefix(source, ".") && !strings.HasPrefix(source, "/") {
		return circuiterr.New(circuiterr.KindEvaluation, "%s: package %q cannot be imported in the sandbox", m.pos(n), source)
	}

	var clause *sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c.Type() == "import_clause" {
			clause = c
		}
	}

	if strings.EqualFold(path.Ext(source), ".json") {
		v, err := r.importJSON(m, source)
		if err != nil {
			return err
		}
		if clause == nil {
			return nil
		}
		for i := 0; i < int(clause.NamedChildCount()); i++ {
			c := clause.NamedChild(i)
			switch c.Type() {
			case "identifier":
				m.top.vars[m.text(c)] = binding{value: v}
			case "namespace_import":
				m.top.vars[m.text(c.NamedChild(0))] = binding{value: v}
			default:
				return unsupported(m, c, "named import from JSON")
			}
		}
		return nil
	}

	target, err := r.resolveModule(m.path, source)
	if err != nil {
		return circuiterr.Wrap(circuiterr.KindEvaluation, err, "%s", m.pos(n))
	}
	dep, err := r.load(ctx, target)
	if err != nil {
		return err
	}
	if clause == nil {
		return nil
	}
	for i := 0; i < int(clause.NamedChildCount()); i++ {
		c := clause.NamedChild(i)
		switch c.Type() {
		case "identifier":
			b, ok := dep.exports["default"]
			if !ok {
				return circuiterr.New(circuiterr.KindEvaluation, "%s: %s has no default export", m.pos(c), target)
			}
			m.top.vars[m.text(c)] = b
		case "named_imports":
			for j := 0; j < int(c.NamedChildCount()); j++ {
				spec := c.NamedChild(j)
				name := m.text(spec.ChildByFieldName("name"))
				local := name
				if alias := spec.ChildByFieldName("alias"); alias != nil {
					local = m.text(alias)
				}
				b, ok := dep.exports[name]
				if !ok {
					return circuiterr.New(circuiterr.KindEvaluation, "%s: %s has no export %q", m.pos(spec), target, name)
				}
				m.top.vars[local] = b
			}
		default:
			return unsupported(m, c, "import form")
		}
	}
	return nil
}

func (r *run) importJSON(m *module, source string) (cty.Value, error) {
	src, resolved, err := r.files.ReadRelative(m.path, source)
	if err != nil {
		return cty.NilVal, circuiterr.Wrap(circuiterr.KindEvaluation, err, "importing %q", source)
	}
	ty, err := ctyjson.ImpliedType([]byte(src))
	if err != nil {
		return cty.NilVal, circuiterr.Wrap(circuiterr.KindEvaluation, err, "%s is not valid JSON", resolved)
	}
	v, err := ctyjson.Unmarshal([]byte(src), ty)
	if err != nil {
		return cty.NilVal, circuiterr.Wrap(circuiterr.KindEvaluation, err, "decoding %s", resolved)
	}
	return v, nil
}

func (r *run) resolveModule(from, source string) (string, error) {
	base := vfs.Resolve(from, source)
	if _, ok := r.files.Read(base); ok && path.Ext(base) != "" {
		return base, nil
	}
	for _, ext := range moduleExtensions {
		for _, candidate := range []string{base + ext, base + "/index" + ext} {
			if _, ok := r.files.Read(candidate); ok {
				return candidate, nil
			}
		}
	}
	return "", fmt.Errorf("module %q (resolved to %q) is not in the virtual file map", source, base)
}

// firstError finds the first ERROR or MISSING node in document order.
func firstError(n *sitter.Node) *sitter.Node {
	if n.IsMissing() || n.Type() == "ERROR" {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c.HasError() || c.IsMissing() {
			return firstError(c)
		}
	}
	return n
}

func unwrap(n *sitter.Node) *sitter.Node {
	for n != nil && n.Type() == "parenthesized_expression" && n.NamedChildCount() > 0 {
		n = n.NamedChild(0)
	}
	return n
}

func unsupported(m *module, n *sitter.Node, what string) error {
	if n == nil {
		return circuiterr.New(circuiterr.KindEvaluation, "%s: unsupported %s", m.path, what)
	}
	return circuiterr.New(circuiterr.KindEvaluation, "%s: unsupported %s (%s)", m.pos(n), what, n.Type())
}

func notDefined(m *module, n *sitter.Node, name string) error {
	return circuiterr.New(circuiterr.KindEvaluation, "%s: %s is not defined", m.pos(n), name)
}
