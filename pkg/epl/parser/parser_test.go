package parser

import (
	"strings"
	"testing"

	"mercator-hq/europa/pkg/epl/ast"
	eplerrors "mercator-hq/europa/pkg/epl/errors"
)

func mustParse(t *testing.T, src string) *ast.Module {
	t.Helper()
	module, err := Parse("test.epl", src)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	return module
}

func TestParse_PackageAndImports(t *testing.T) {
	module := mustParse(t, `
package authz.api

import data.roles
import data.teams.engineering as eng
`)

	if got := module.Package.String(); got != "authz.api" {
		t.Errorf("package = %q, want %q", got, "authz.api")
	}
	if len(module.Imports) != 2 {
		t.Fatalf("len(Imports) = %d, want 2", len(module.Imports))
	}
	if module.Imports[0].Name() != "roles" {
		t.Errorf("import 0 name = %q, want %q", module.Imports[0].Name(), "roles")
	}
	if module.Imports[1].Name() != "eng" {
		t.Errorf("import 1 name = %q, want %q", module.Imports[1].Name(), "eng")
	}
}

func TestParse_DefaultRule(t *testing.T) {
	module := mustParse(t, "package authz\n\ndefault allow := false")

	if len(module.Rules) != 1 {
		t.Fatalf("len(Rules) = %d, want 1", len(module.Rules))
	}
	rule := module.Rules[0]
	if !rule.Default {
		t.Error("rule not marked default")
	}
	if rule.Name != "allow" {
		t.Errorf("rule name = %q, want %q", rule.Name, "allow")
	}
	if rule.Value.Kind != ast.BoolTerm || rule.Value.Bool {
		t.Errorf("default value = %v, want false", rule.Value)
	}
}

func TestParse_CompleteRuleForms(t *testing.T) {
	module := mustParse(t, `package authz

allow if input.role == "admin"

allow if {
	input.role == "editor"
	input.action == "read"
}

limit := 10 if input.tier == "free"

greeting := "hello"
`)

	if len(module.Rules) != 4 {
		t.Fatalf("len(Rules) = %d, want 4", len(module.Rules))
	}

	// Single bare literal body
	r0 := module.Rules[0]
	if len(r0.Body) != 1 {
		t.Fatalf("rule 0 body length = %d, want 1", len(r0.Body))
	}
	if r0.Value != nil {
		t.Error("rule 0 has explicit value, want implicit true")
	}
	if r0.Body[0].Term.Kind != ast.BinaryTerm || r0.Body[0].Term.Op != ast.OpEqual {
		t.Errorf("rule 0 body literal = %v, want equality", r0.Body[0].Term)
	}

	// Braced multi-literal body
	r1 := module.Rules[1]
	if len(r1.Body) != 2 {
		t.Fatalf("rule 1 body length = %d, want 2", len(r1.Body))
	}

	// Value with guard
	r2 := module.Rules[2]
	if r2.Value == nil || r2.Value.Kind != ast.NumberTerm {
		t.Errorf("rule 2 value = %v, want number", r2.Value)
	}
	if len(r2.Body) != 1 {
		t.Errorf("rule 2 body length = %d, want 1", len(r2.Body))
	}

	// Unconditional constant
	r3 := module.Rules[3]
	if r3.HasBody() {
		t.Error("rule 3 has a body, want unconditional")
	}
	if r3.Value.Kind != ast.StringTerm || r3.Value.Str != "hello" {
		t.Errorf("rule 3 value = %v, want \"hello\"", r3.Value)
	}
}

func TestParse_PartialRules(t *testing.T) {
	module := mustParse(t, `package authz

deny contains msg if {
	some r in input.requests
	r.size > 100
	msg := r.id
}

roles[user] := role if {
	some user, role in data.assignments
}
`)

	set := module.Rules[0]
	if set.Kind != ast.PartialSetRule {
		t.Errorf("rule 0 kind = %v, want partial set", set.Kind)
	}
	if set.Key == nil || set.Key.Var != "msg" {
		t.Errorf("rule 0 key = %v, want var msg", set.Key)
	}

	obj := module.Rules[1]
	if obj.Kind != ast.PartialObjectRule {
		t.Errorf("rule 1 kind = %v, want partial object", obj.Kind)
	}
	if obj.Key == nil || obj.Key.Var != "user" {
		t.Errorf("rule 1 key = %v, want var user", obj.Key)
	}
	if obj.Value == nil || obj.Value.Var != "role" {
		t.Errorf("rule 1 value = %v, want var role", obj.Value)
	}
}

func TestParse_ElseChain(t *testing.T) {
	module := mustParse(t, `package authz

decision := "admit" if input.score > 90 else := "review" if input.score > 50 else := "deny"
`)

	rule := module.Rules[0]
	if rule.Else == nil {
		t.Fatal("rule has no else clause")
	}
	if rule.Else.Value.Str != "review" {
		t.Errorf("first else value = %v, want \"review\"", rule.Else.Value)
	}
	if rule.Else.Else == nil {
		t.Fatal("rule has no second else clause")
	}
	final := rule.Else.Else
	if final.Value.Str != "deny" || final.HasBody() {
		t.Errorf("final else = %v with body=%v, want unconditional \"deny\"", final.Value, final.HasBody())
	}
}

func TestParse_BodyLiterals(t *testing.T) {
	module := mustParse(t, `package p

r if {
	some x in input.items
	not x.deleted
	y := x.weight * 2
	y >= 10
}
`)

	body := module.Rules[0].Body
	if len(body) != 4 {
		t.Fatalf("body length = %d, want 4", len(body))
	}

	if body[0].Kind != ast.SomeLiteral || body[0].SomeVars[0] != "x" {
		t.Errorf("literal 0 = %+v, want some x in ...", body[0])
	}
	if body[1].Kind != ast.ExprLiteral || !body[1].Negated {
		t.Errorf("literal 1 = %+v, want negated expression", body[1])
	}
	if body[2].Kind != ast.AssignLiteral || body[2].Var != "y" {
		t.Errorf("literal 2 = %+v, want assignment to y", body[2])
	}
	if body[3].Kind != ast.ExprLiteral || body[3].Term.Op != ast.OpGreaterEqual {
		t.Errorf("literal 3 = %+v, want >= comparison", body[3])
	}
}

func TestParse_OperatorPrecedence(t *testing.T) {
	module := mustParse(t, "package p\n\nr := 1 + 2 * 3")

	v := module.Rules[0].Value
	if v.Op != ast.OpAdd {
		t.Fatalf("top operator = %v, want +", v.Op)
	}
	if v.RHS.Op != ast.OpMul {
		t.Errorf("right operand operator = %v, want *", v.RHS.Op)
	}

	module = mustParse(t, "package p\n\nr if (1 + 2) * 3 == 9")
	cmp := module.Rules[0].Body[0].Term
	if cmp.Op != ast.OpEqual {
		t.Fatalf("top operator = %v, want ==", cmp.Op)
	}
	if cmp.LHS.Op != ast.OpMul || cmp.LHS.LHS.Op != ast.OpAdd {
		t.Errorf("parenthesized grouping not honored: %v", cmp)
	}
}

func TestParse_Membership(t *testing.T) {
	module := mustParse(t, `package p

r if input.role in ["admin", "owner"]
`)

	term := module.Rules[0].Body[0].Term
	if term.Op != ast.OpIn {
		t.Fatalf("operator = %v, want in", term.Op)
	}
	if term.RHS.Kind != ast.ArrayTerm || len(term.RHS.Elems) != 2 {
		t.Errorf("rhs = %v, want 2-element array", term.RHS)
	}
}

func TestParse_Refs(t *testing.T) {
	module := mustParse(t, `package p

r := input.users[0].name
s := data.config[input.env]
`)

	r := module.Rules[0].Value
	if r.Kind != ast.RefTerm || r.RefHead != "input" || len(r.RefArgs) != 3 {
		t.Fatalf("ref = %v, want input.users[0].name", r)
	}
	if r.RefArgs[1].Kind != ast.NumberTerm {
		t.Errorf("ref arg 1 = %v, want number index", r.RefArgs[1])
	}

	s := module.Rules[1].Value
	if s.RefArgs[1].Kind != ast.RefTerm {
		t.Errorf("ref arg 1 = %v, want nested ref", s.RefArgs[1])
	}
}

func TestParse_Comprehensions(t *testing.T) {
	module := mustParse(t, `package p

names := [u.name | some u in input.users; u.active]
uniq := {u.team | some u in input.users}
byid := {u.id: u.name | some u in input.users}
`)

	arr := module.Rules[0].Value
	if arr.Kind != ast.ArrayComprehensionTerm || len(arr.Body) != 2 {
		t.Errorf("rule 0 value = %v, want array comprehension with 2 literals", arr)
	}

	set := module.Rules[1].Value
	if set.Kind != ast.SetComprehensionTerm {
		t.Errorf("rule 1 value kind = %v, want set comprehension", set.Kind)
	}

	obj := module.Rules[2].Value
	if obj.Kind != ast.ObjectComprehensionTerm || obj.Key == nil || obj.Value == nil {
		t.Errorf("rule 2 value = %v, want object comprehension", obj)
	}
}

func TestParse_CollectionLiterals(t *testing.T) {
	module := mustParse(t, `package p

a := [1, 2, 3]
o := {"k": 1, "j": 2}
s := {1, 2}
e := {}
c if contains("abcd", "bc")
`)

	if module.Rules[0].Value.Kind != ast.ArrayTerm {
		t.Errorf("a kind = %v, want array", module.Rules[0].Value.Kind)
	}
	if module.Rules[1].Value.Kind != ast.ObjectTerm {
		t.Errorf("o kind = %v, want object", module.Rules[1].Value.Kind)
	}
	if module.Rules[2].Value.Kind != ast.SetTerm {
		t.Errorf("s kind = %v, want set", module.Rules[2].Value.Kind)
	}
	if module.Rules[3].Value.Kind != ast.ObjectTerm || len(module.Rules[3].Value.Entries) != 0 {
		t.Errorf("e = %v, want empty object", module.Rules[3].Value)
	}
	if module.Rules[4].Body[0].Term.Kind != ast.CallTerm {
		t.Errorf("c body = %v, want call", module.Rules[4].Body[0].Term)
	}
}

func TestParse_SyntaxErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string // substring of error message
	}{
		{"missing package", `allow := true`, "package"},
		{"bad import root", "package p\nimport foo.bar", "import path"},
		{"rule without body or value", "package p\nallow", "neither a value nor a body"},
		{"partial without body", "package p\ndeny contains 1", "requires an \"if\" body"},
		{"unclosed body", "package p\nr if { input.x == 1", "end of input"},
		{"empty body", "package p\nr if { }", "empty body"},
		{"dangling operator", "package p\nr := 1 +", "expression"},
		{"else on partial", "package p\nd contains 1 if input.x else := 2", "else"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("test.epl", tt.src)
			if err == nil {
				t.Fatalf("Parse(%q) succeeded, want error", tt.src)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.want)
			}
		})
	}
}

func TestParse_ErrorHasLocationAndContext(t *testing.T) {
	_, err := Parse("test.epl", "package p\n\nr := [1, 2")
	if err == nil {
		t.Fatal("Parse succeeded, want error")
	}

	synErr, ok := err.(*eplerrors.Error)
	if !ok {
		t.Fatalf("error type = %T, want *errors.Error", err)
	}
	if synErr.Type != eplerrors.ErrorTypeSyntax {
		t.Errorf("error type = %v, want syntax", synErr.Type)
	}
	if synErr.Location.Line != 3 {
		t.Errorf("error line = %d, want 3", synErr.Location.Line)
	}
	if synErr.Context == "" {
		t.Error("error has no source context")
	}
}
