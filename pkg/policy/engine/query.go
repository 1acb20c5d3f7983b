package engine

import (
	"fmt"
	"strconv"
	"strings"

	"mercator-hq/europa/pkg/document"
	"mercator-hq/europa/pkg/policy/compiler"
)

// Evaluate resolves queryPath against the policy's data tree under the
// given input document.
//
// A path that lands on a rule evaluates it; a path that lands on a package
// prefix assembles the package object; anything else falls through to the
// external data document. A rule that evaluates to nothing (no satisfied
// clause, no default) produces null. Only a path addressing neither rules
// nor data is an error, of kind ErrUndefinedPath.
func Evaluate(policy *compiler.Policy, input document.Value, queryPath string) (document.Value, error) {
	if policy == nil {
		return document.Value{}, &Error{Kind: ErrInternal, Detail: "nil policy"}
	}
	segs := strings.Split(queryPath, ".")
	if segs[0] != "data" {
		return document.Value{}, &Error{
			Kind:   ErrUndefinedPath,
			Detail: fmt.Sprintf("query path %q must start at \"data\"", queryPath),
		}
	}
	for _, seg := range segs {
		if seg == "" {
			return document.Value{}, &Error{
				Kind:   ErrUndefinedPath,
				Detail: fmt.Sprintf("query path %q has an empty segment", queryPath),
			}
		}
	}

	e := &evaluator{
		policy: policy,
		input:  input,
		memo:   make(map[string]*memoEntry),
	}
	v, defined, addressable, err := e.query(segs[1:])
	if err != nil {
		return document.Value{}, err
	}
	if !addressable {
		return document.Value{}, &Error{
			Kind:   ErrUndefinedPath,
			Detail: fmt.Sprintf("no rules or data at path %q", queryPath),
		}
	}
	if !defined {
		return document.Null(), nil
	}
	return v, nil
}

// query walks the path segments below "data". The third result reports
// whether the path was addressable at all: false means neither a rule nor
// external data exists anywhere along it.
func (e *evaluator) query(segs []string) (document.Value, bool, bool, error) {
	node := e.policy.Root
	dv, dvOK := e.policy.Data, e.policy.DataDefined

	for i, seg := range segs {
		if node != nil && node.RuleSet != nil {
			v, defined, err := e.evalRule(node.RuleSet)
			if err != nil || !defined {
				return document.Value{}, false, true, err
			}
			return navigateValue(v, segs[i:])
		}
		var child *compiler.Node
		if node != nil {
			child = node.Child(seg)
		}
		cdv, cok := dataStep(dv, dvOK, seg)
		node, dv, dvOK = child, cdv, cok
		if node == nil && !dvOK {
			return document.Value{}, false, false, nil
		}
	}

	if node != nil {
		if node.RuleSet != nil {
			v, defined, err := e.evalRule(node.RuleSet)
			return v, defined, true, err
		}
		v, err := e.packageValue(node, dv, dvOK)
		return v, true, true, err
	}
	return dv, true, true, nil
}

// navigateValue indexes the remaining path segments into an evaluated rule
// value. A missing sub-path is undefined, not an error: the rule itself
// exists.
func navigateValue(v document.Value, segs []string) (document.Value, bool, bool, error) {
	for _, seg := range segs {
		var ok bool
		v, ok = valueStep(v, seg)
		if !ok {
			return document.Value{}, false, true, nil
		}
	}
	return v, true, true, nil
}

// dataStep navigates one query path segment into external data: object
// fields by name, array elements by decimal index.
func dataStep(dv document.Value, dvOK bool, seg string) (document.Value, bool) {
	if !dvOK {
		return document.Value{}, false
	}
	return valueStep(dv, seg)
}

func valueStep(v document.Value, seg string) (document.Value, bool) {
	switch v.Kind() {
	case document.KindObject:
		return v.Field(seg)
	case document.KindArray:
		i, err := strconv.Atoi(seg)
		if err != nil || i < 0 || i >= v.Len() {
			return document.Value{}, false
		}
		return v.Elem(i), true
	default:
		return document.Value{}, false
	}
}
