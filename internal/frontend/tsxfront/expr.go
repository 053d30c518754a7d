// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package tsxfront

import (
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/vk/circuitgo/internal/circuiterr"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// value evaluates a data expression: literals, objects, arrays, identifiers,
// member access, template strings and basic arithmetic.
func (r *run) value(s *scope, n *sitter.Node) (cty.Value, error) {
	m := s.mod
	n = unwrap(n)
	if n == nil {
		return cty.NilVal, circuiterr.New(circuiterr.KindEvaluation, "%s: missing expression", m.path)
	}
	switch n.Type() {
	case "string":
		return cty.StringVal(unquote(m.text(n))), nil
	case "template_string":
		return r.template(s, n)
	case "number":
		return number(m, n)
	case "true":
		return cty.True, nil
	case "false":
		return cty.False, nil
	case "null", "undefined":
		return cty.NullVal(cty.DynamicPseudoType), nil
	case "identifier":
		name := m.text(n)
		b, ok := s.lookup(name)
		if !ok {
			if name == "undefined" {
				return cty.NullVal(cty.DynamicPseudoType), nil
			}
			return cty.NilVal, notDefined(m, n, name)
		}
		if b.node != nil {
			return cty.NilVal, circuiterr.New(circuiterr.KindEvaluation, "%s: %s is JSX or a component and cannot be used as a value", m.pos(n), name)
		}
		return b.value, nil
	case "object":
		return r.object(s, n)
	case "array":
		elems := make([]cty.Value, 0, n.NamedChildCount())
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c := n.NamedChild(i)
			if c.Type() == "comment" {
				continue
			}
			v, err := r.value(s, c)
			if err != nil {
				return cty.NilVal, err
			}
			elems = append(elems, v)
		}
		return cty.TupleVal(elems), nil
	case "member_expression":
		obj, err := r.value(s, n.ChildByFieldName("object"))
		if err != nil {
			return cty.NilVal, err
		}
		return index(m, n, obj, cty.StringVal(m.text(n.ChildByFieldName("property"))))
	case "subscript_expression":
		obj, err := r.value(s, n.ChildByFieldName("object"))
		if err != nil {
			return cty.NilVal, err
		}
		key, err := r.value(s, n.ChildByFieldName("index"))
		if err != nil {
			return cty.NilVal, err
		}
		return index(m, n, obj, key)
	case "unary_expression":
		return r.unary(s, n)
	case "binary_expression":
		return r.binary(s, n)
	case "as_expression", "satisfies_expression", "non_null_expression":
		return r.value(s, n.NamedChild(0))
	default:
		return cty.NilVal, unsupported(m, n, "expression")
	}
}

func (r *run) object(s *scope, n *sitter.Node) (cty.Value, error) {
	m := s.mod
	attrs := make(map[string]cty.Value)
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "comment":
		case "pair":
			keyNode := c.ChildByFieldName("key")
			key := m.text(keyNode)
			if keyNode.Type() == "string" {
				key = unquote(key)
			}
			v, err := r.value(s, c.ChildByFieldName("value"))
			if err != nil {
				return cty.NilVal, err
			}
			attrs[key] = v
		case "shorthand_property_identifier":
			v, err := r.value(s, c)
			if err != nil {
				return cty.NilVal, err
			}
			attrs[m.text(c)] = v
		case "spread_element":
			v, err := r.value(s, c.NamedChild(0))
			if err != nil {
				return cty.NilVal, err
			}
			if !v.Type().IsObjectType() {
				return cty.NilVal, circuiterr.New(circuiterr.KindEvaluation, "%s: only objects can be spread into objects", m.pos(c))
			}
			for it := v.ElementIterator(); it.Next(); {
				k, ev := it.Element()
				attrs[k.AsString()] = ev
			}
		default:
			return cty.NilVal, unsupported(m, c, "object member")
		}
	}
	return cty.ObjectVal(attrs), nil
}

func (r *run) unary(s *scope, n *sitter.Node) (cty.Value, error) {
	m := s.mod
	op := n.ChildByFieldName("operator").Type()
	arg, err := r.value(s, n.ChildByFieldName("argument"))
	if err != nil {
		return cty.NilVal, err
	}
	switch {
	case (op == "-" || op == "+") && arg.Type() == cty.Number && arg.IsKnown() && !arg.IsNull():
		if op == "-" {
			return arg.Negate(), nil
		}
		return arg, nil
	case op == "!" && arg.Type() == cty.Bool && arg.IsKnown() && !arg.IsNull():
		return arg.Not(), nil
	default:
		return cty.NilVal, circuiterr.New(circuiterr.KindEvaluation, "%s: operator %s cannot be applied to %s", m.pos(n), op, arg.Type().FriendlyName())
	}
}

func (r *run) binary(s *scope, n *sitter.Node) (cty.Value, error) {
	m := s.mod
	op := n.ChildByFieldName("operator").Type()
	left, err := r.value(s, n.ChildByFieldName("left"))
	if err != nil {
		return cty.NilVal, err
	}
	right, err := r.value(s, n.ChildByFieldName("right"))
	if err != nil {
		return cty.NilVal, err
	}
	if left.IsNull() || right.IsNull() {
		return cty.NilVal, circuiterr.New(circuiterr.KindEvaluation, "%s: operand of %s is null", m.pos(n), op)
	}

	if op == "+" && (left.Type() == cty.String || right.Type() == cty.String) {
		ls, err := convert.Convert(left, cty.String)
		if err != nil {
			return cty.NilVal, circuiterr.Wrap(circuiterr.KindEvaluation, err, "%s", m.pos(n))
		}
		rs, err := convert.Convert(right, cty.String)
		if err != nil {
			return cty.NilVal, circuiterr.Wrap(circuiterr.KindEvaluation, err, "%s", m.pos(n))
		}
		return cty.StringVal(ls.AsString() + rs.AsString()), nil
	}
	if left.Type() != cty.Number || right.Type() != cty.Number {
		return cty.NilVal, circuiterr.New(circuiterr.KindEvaluation, "%s: operator %s needs numbers, got %s and %s", m.pos(n), op, left.Type().FriendlyName(), right.Type().FriendlyName())
	}
	switch op {
	case "+":
		return left.Add(right), nil
	case "-":
		return left.Subtract(right), nil
	case "*":
		return left.Multiply(right), nil
	case "/":
		if right.Equals(cty.Zero).True() {
			return cty.NilVal, circuiterr.New(circuiterr.KindEvaluation, "%s: division by zero", m.pos(n))
		}
		return left.Divide(right), nil
	case "%":
		if right.Equals(cty.Zero).True() {
			return cty.NilVal, circuiterr.New(circuiterr.KindEvaluation, "%s: division by zero", m.pos(n))
		}
		return left.Modulo(right), nil
	default:
		return cty.NilVal, circuiterr.New(circuiterr.KindEvaluation, "%s: unsupported operator %s", m.pos(n), op)
	}
}

// template evaluates a template literal by splicing its substitutions into
// the raw text between the backticks.
func (r *run) template(s *scope, n *sitter.Node) (cty.Value, error) {
	m := s.mod
	var sb strings.Builder
	cursor := n.StartByte() + 1
	end := n.EndByte() - 1
	for i := 0; i < int(n.NamedChildCount()); i++ {
		sub := n.NamedChild(i)
		if sub.Type() != "template_substitution" {
			continue
		}
		sb.Write(m.src[cursor:sub.StartByte()])
		v, err := r.value(s, sub.NamedChild(0))
		if err != nil {
			return cty.NilVal, err
		}
		str, err := convert.Convert(v, cty.String)
		if err != nil || str.IsNull() {
			return cty.NilVal, circuiterr.New(circuiterr.KindEvaluation, "%s: template value cannot be converted to text", m.pos(sub))
		}
		sb.WriteString(str.AsString())
		cursor = sub.EndByte()
	}
	sb.Write(m.src[cursor:end])
	return cty.StringVal(sb.String()), nil
}

func index(m *module, n *sitter.Node, obj, key cty.Value) (cty.Value, error) {
	if obj.IsNull() || !obj.IsKnown() {
		return cty.NilVal, circuiterr.New(circuiterr.KindEvaluation, "%s: cannot read a property of null", m.pos(n))
	}
	ty := obj.Type()
	switch {
	case ty.IsObjectType() && key.Type() == cty.String:
		name := key.AsString()
		if !ty.HasAttribute(name) {
			return cty.NullVal(cty.DynamicPseudoType), nil
		}
		return obj.GetAttr(name), nil
	case (ty.IsTupleType() || ty.IsListType()) && key.Type() == cty.Number:
		if key.GreaterThanOrEqualTo(obj.Length()).True() || key.LessThan(cty.Zero).True() {
			return cty.NullVal(cty.DynamicPseudoType), nil
		}
		return obj.Index(key), nil
	case (ty.IsTupleType() || ty.IsListType()) && key.Type() == cty.String && key.AsString() == "length":
		return obj.Length(), nil
	default:
		return cty.NilVal, circuiterr.New(circuiterr.KindEvaluation, "%s: cannot index %s with %s", m.pos(n), ty.FriendlyName(), key.Type().FriendlyName())
	}
}

func number(m *module, n *sitter.Node) (cty.Value, error) {
	text := strings.ReplaceAll(m.text(n), "_", "")
	if v, err := cty.ParseNumberVal(text); err == nil {
		return v, nil
	}
	i, err := strconv.ParseInt(text, 0, 64)
	if err != nil {
		return cty.NilVal, circuiterr.New(circuiterr.KindEvaluation, "%s: invalid number %q", m.pos(n), text)
	}
	return cty.NumberIntVal(i), nil
}

// unquote strips the quotes of a JS string literal and resolves escapes.
func unquote(lit string) string {
	if len(lit) < 2 {
		return lit
	}
	inner := lit[1 : len(lit)-1]
	if !strings.Contains(inner, `\`) {
		return inner
	}
	if lit[0] == '\'' {
		inner = strings.ReplaceAll(strings.ReplaceAll(inner, `\'`, `'`), `"`, `\"`)
	}
	if s, err := strconv.Unquote(`"` + inner + `"`); err == nil {
		return s
	}
	return inner
}
