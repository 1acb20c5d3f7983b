package engine

import (
	"testing"

	"mercator-hq/europa/pkg/document"
	"mercator-hq/europa/pkg/epl/ast"
	"mercator-hq/europa/pkg/epl/parser"
	"mercator-hq/europa/pkg/policy/compiler"
)

func mustCompile(t *testing.T, src, dataJSON string) *compiler.Policy {
	t.Helper()
	module, err := parser.Parse("test.epl", src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	var data *document.Value
	if dataJSON != "" {
		d, derr := document.FromJSONString(dataJSON)
		if derr != nil {
			t.Fatalf("data: %v", derr)
		}
		data = &d
	}
	policy, err := compiler.Compile([]*ast.Module{module}, data)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return policy
}

func mustEval(t *testing.T, policy *compiler.Policy, inputJSON, path string) document.Value {
	t.Helper()
	input, err := document.FromJSONString(inputJSON)
	if err != nil {
		t.Fatalf("input: %v", err)
	}
	v, err := Evaluate(policy, input, path)
	if err != nil {
		t.Fatalf("evaluate %s: %v", path, err)
	}
	return v
}

func wantJSON(t *testing.T, got document.Value, wantSrc string) {
	t.Helper()
	want, err := document.FromJSONString(wantSrc)
	if err != nil {
		t.Fatalf("want: %v", err)
	}
	if !document.Equal(got, want) {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestEvaluate_AuthzExample(t *testing.T) {
	policy := mustCompile(t, `package authz

default allow := false

allow if input.role == "admin"

allow if {
	input.role == "editor"
	input.action == "read"
}
`, "")

	tests := []struct {
		input string
		want  bool
	}{
		{`{"role": "admin"}`, true},
		{`{"role": "editor", "action": "read"}`, true},
		{`{"role": "editor", "action": "write"}`, false},
		{`{}`, false},
	}
	for _, tt := range tests {
		got := mustEval(t, policy, tt.input, "data.authz.allow")
		if got.Kind() != document.KindBool || got.AsBool() != tt.want {
			t.Errorf("input %s: got %s, want %v", tt.input, got, tt.want)
		}
	}
}

func TestEvaluate_ElseChain(t *testing.T) {
	policy := mustCompile(t, `package grading

grade := "a" if input.score >= 90
else := "b" if input.score >= 80
else := "f"
`, "")

	tests := []struct {
		input string
		want  string
	}{
		{`{"score": 95}`, "a"},
		{`{"score": 85}`, "b"},
		{`{"score": 40}`, "f"},
	}
	for _, tt := range tests {
		got := mustEval(t, policy, tt.input, "data.grading.grade")
		if got.Kind() != document.KindString || got.AsString() != tt.want {
			t.Errorf("input %s: got %s, want %q", tt.input, got, tt.want)
		}
	}
}

func TestEvaluate_FirstSatisfiedClauseWins(t *testing.T) {
	policy := mustCompile(t, `package p

pick := "first" if input.a
pick := "second" if input.b
`, "")

	got := mustEval(t, policy, `{"a": true, "b": true}`, "data.p.pick")
	if got.AsString() != "first" {
		t.Errorf("got %s, want first", got)
	}
	got = mustEval(t, policy, `{"b": true}`, "data.p.pick")
	if got.AsString() != "second" {
		t.Errorf("got %s, want second", got)
	}
}

func TestEvaluate_UndefinedRuleIsNull(t *testing.T) {
	policy := mustCompile(t, `package p

maybe := 1 if input.flag
`, "")

	got := mustEval(t, policy, `{}`, "data.p.maybe")
	if !got.IsNull() {
		t.Errorf("got %s, want null", got)
	}
}

func TestEvaluate_UndefinedPath(t *testing.T) {
	policy := mustCompile(t, `package p

x := 1
`, "")

	input, _ := document.FromJSONString(`{}`)
	_, err := Evaluate(policy, input, "data.nothing.here")
	if KindOf(err) != ErrUndefinedPath {
		t.Fatalf("got %v, want undefined path error", err)
	}

	// Missing sub-path inside a defined rule value is undefined, not an
	// error.
	got, err := Evaluate(policy, input, "data.p.x.deeper")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.IsNull() {
		t.Errorf("got %s, want null", got)
	}
}

func TestEvaluate_NegationAsFailure(t *testing.T) {
	policy := mustCompile(t, `package p

deny if not input.authenticated
`, "")

	tests := []struct {
		input string
		want  string
	}{
		{`{}`, "true"},                         // undefined reference
		{`{"authenticated": false}`, "true"},   // falsy value
		{`{"authenticated": true}`, "null"},    // satisfied, negation fails
		{`{"authenticated": "yes"}`, "null"},   // truthy non-bool
	}
	for _, tt := range tests {
		got := mustEval(t, policy, tt.input, "data.p.deny")
		wantJSON(t, got, tt.want)
	}
}

func TestEvaluate_PartialSet(t *testing.T) {
	policy := mustCompile(t, `package p

admins contains u.name if {
	some u in input.users
	u.role == "admin"
}
`, "")

	got := mustEval(t, policy, `{"users": [
		{"name": "zoe", "role": "admin"},
		{"name": "bob", "role": "viewer"},
		{"name": "amy", "role": "admin"},
		{"name": "zoe", "role": "admin"}
	]}`, "data.p.admins")
	wantJSON(t, got, `["amy", "zoe"]`)
}

func TestEvaluate_PartialObject(t *testing.T) {
	policy := mustCompile(t, `package p

sizes[k] := count(v) if some k, v in input.groups
`, "")

	got := mustEval(t, policy, `{"groups": {"b": [1, 2], "a": [3]}}`, "data.p.sizes")
	wantJSON(t, got, `{"a": 1, "b": 2}`)

	// Keys come out sorted.
	if keys := got.AsObject().Keys(); keys[0] != "a" || keys[1] != "b" {
		t.Errorf("keys not sorted: %v", keys)
	}
}

func TestEvaluate_PartialObjectFirstKeyWins(t *testing.T) {
	policy := mustCompile(t, `package p

conf["mode"] := "strict" if input.on
conf["mode"] := "lax" if input.on
`, "")

	got := mustEval(t, policy, `{"on": true}`, "data.p.conf")
	wantJSON(t, got, `{"mode": "strict"}`)
}

func TestEvaluate_MonotonicRecursion(t *testing.T) {
	policy := mustCompile(t, `package graph

reach contains n if some n in input.start

reach contains e[1] if {
	some e in input.edges
	e[0] in reach
}
`, "")

	got := mustEval(t, policy, `{
		"start": ["a"],
		"edges": [["a", "b"], ["b", "c"], ["x", "y"]]
	}`, "data.graph.reach")
	wantJSON(t, got, `["a", "b", "c"]`)
}

func TestEvaluate_Comprehensions(t *testing.T) {
	policy := mustCompile(t, `package p

doubled := [x * 2 | some x in input.nums]

parities := {x % 2 | some x in input.nums}

lengths := {s: count(s) | some s in input.words}
`, "")

	input := `{"nums": [1, 2, 3, 4], "words": ["hi", "there"]}`
	wantJSON(t, mustEval(t, policy, input, "data.p.doubled"), `[2, 4, 6, 8]`)
	wantJSON(t, mustEval(t, policy, input, "data.p.parities"), `[0, 1]`)
	wantJSON(t, mustEval(t, policy, input, "data.p.lengths"), `{"hi": 2, "there": 5}`)
}

func TestEvaluate_RefEnumeration(t *testing.T) {
	policy := mustCompile(t, `package p

first_admin := i if input.users[i].role == "admin"

active contains input.users[i].name if input.users[i].active
`, "")

	input := `{"users": [
		{"name": "amy", "role": "viewer", "active": true},
		{"name": "bob", "role": "admin", "active": false},
		{"name": "cat", "role": "admin", "active": true}
	]}`
	wantJSON(t, mustEval(t, policy, input, "data.p.first_admin"), `1`)
	wantJSON(t, mustEval(t, policy, input, "data.p.active"), `["amy", "cat"]`)
}

func TestEvaluate_SomeKeyValue(t *testing.T) {
	policy := mustCompile(t, `package p

keys contains k if some k, _ in input.obj

indexed contains [i, v] if some i, v in input.arr
`, "")

	input := `{"obj": {"x": 1, "y": 2}, "arr": ["a", "b"]}`
	wantJSON(t, mustEval(t, policy, input, "data.p.keys"), `["x", "y"]`)
	wantJSON(t, mustEval(t, policy, input, "data.p.indexed"), `[[0, "a"], [1, "b"]]`)
}

func TestEvaluate_Builtins(t *testing.T) {
	policy := mustCompile(t, `package p

total := sum(input.xs)
biggest := max(input.xs)
smallest := min(input.xs)
n := count(input.xs)
magnitude := abs(input.neg)
shout := upper(input.word)
parts := split(input.csv, ",")
joined := concat("-", input.tags)
num := to_number(input.numstr)
has_prefix := startswith(input.word, "he")
has_sub := contains(input.word, "ell")
`, "")

	input := `{
		"xs": [3, 1, 2],
		"neg": -5,
		"word": "hello",
		"csv": "a,b,c",
		"tags": ["x", "y"],
		"numstr": "42"
	}`
	wantJSON(t, mustEval(t, policy, input, "data.p.total"), `6`)
	wantJSON(t, mustEval(t, policy, input, "data.p.biggest"), `3`)
	wantJSON(t, mustEval(t, policy, input, "data.p.smallest"), `1`)
	wantJSON(t, mustEval(t, policy, input, "data.p.n"), `3`)
	wantJSON(t, mustEval(t, policy, input, "data.p.magnitude"), `5`)
	wantJSON(t, mustEval(t, policy, input, "data.p.shout"), `"HELLO"`)
	wantJSON(t, mustEval(t, policy, input, "data.p.parts"), `["a", "b", "c"]`)
	wantJSON(t, mustEval(t, policy, input, "data.p.joined"), `"x-y"`)
	wantJSON(t, mustEval(t, policy, input, "data.p.num"), `42`)
	wantJSON(t, mustEval(t, policy, input, "data.p.has_prefix"), `true`)
	wantJSON(t, mustEval(t, policy, input, "data.p.has_sub"), `true`)
}

func TestEvaluate_ArithmeticUndefined(t *testing.T) {
	policy := mustCompile(t, `package p

default safe := "skipped"

safe := 10 / input.z if input.z != 0

ratio := 10 / input.z
`, "")

	// Division by zero makes the literal undefined; the default applies.
	got := mustEval(t, policy, `{"z": 0}`, "data.p.safe")
	wantJSON(t, got, `"skipped"`)

	// Without a default the rule is simply undefined.
	got = mustEval(t, policy, `{"z": 0}`, "data.p.ratio")
	if !got.IsNull() {
		t.Errorf("got %s, want null", got)
	}

	got = mustEval(t, policy, `{"z": 4}`, "data.p.ratio")
	wantJSON(t, got, `2.5`)
}

func TestEvaluate_CrossKindComparison(t *testing.T) {
	policy := mustCompile(t, `package p

default flagged := false

flagged if input.n < input.limit
`, "")

	// Ordering across kinds is undefined, so the clause fails and the
	// default holds. Equality across kinds is simply false.
	got := mustEval(t, policy, `{"n": 1, "limit": "ten"}`, "data.p.flagged")
	wantJSON(t, got, `false`)

	policy = mustCompile(t, `package p

same := input.a == input.b
`, "")
	got = mustEval(t, policy, `{"a": 1, "b": "1"}`, "data.p.same")
	wantJSON(t, got, `false`)
}

func TestEvaluate_Membership(t *testing.T) {
	policy := mustCompile(t, `package p

in_list := input.x in [1, 2, 3]

in_values := input.name in input.users
`, "")

	wantJSON(t, mustEval(t, policy, `{"x": 2}`, "data.p.in_list"), `true`)
	wantJSON(t, mustEval(t, policy, `{"x": 9}`, "data.p.in_list"), `false`)
	wantJSON(t, mustEval(t, policy,
		`{"name": "amy", "users": {"u1": "amy", "u2": "bob"}}`,
		"data.p.in_values"), `true`)
}

func TestEvaluate_DataDocument(t *testing.T) {
	policy := mustCompile(t, `package p

limit_ok if input.n <= data.config.max
`, `{"config": {"max": 10}, "p": {"extra": "from-data"}}`)

	wantJSON(t, mustEval(t, policy, `{"n": 5}`, "data.p.limit_ok"), `true`)

	// Plain data paths resolve directly.
	wantJSON(t, mustEval(t, policy, `{}`, "data.config.max"), `10`)

	// A package path assembles rules merged over data at the same prefix.
	got := mustEval(t, policy, `{"n": 5}`, "data.p")
	wantJSON(t, got, `{"extra": "from-data", "limit_ok": true}`)
}

func TestEvaluate_QueryIntoRuleValue(t *testing.T) {
	policy := mustCompile(t, `package p

obj := {"a": 1, "nested": {"b": 2}}
`, "")

	wantJSON(t, mustEval(t, policy, `{}`, "data.p.obj.a"), `1`)
	wantJSON(t, mustEval(t, policy, `{}`, "data.p.obj.nested.b"), `2`)
}

func TestEvaluate_WholeDataTree(t *testing.T) {
	policy := mustCompile(t, `package p

x := 1
`, `{"config": {"max": 10}}`)

	got := mustEval(t, policy, `{}`, "data")
	wantJSON(t, got, `{"config": {"max": 10}, "p": {"x": 1}}`)
}

func TestEvaluate_ImportAlias(t *testing.T) {
	policy := mustCompile(t, `package authz

import data.roles as r

allowed if input.user in r.admins
`, `{"roles": {"admins": ["amy", "bob"]}}`)

	wantJSON(t, mustEval(t, policy, `{"user": "amy"}`, "data.authz.allowed"), `true`)
	got := mustEval(t, policy, `{"user": "eve"}`, "data.authz.allowed")
	if !got.IsNull() {
		t.Errorf("got %s, want null", got)
	}
}

func TestEvaluate_LocalRuleReference(t *testing.T) {
	policy := mustCompile(t, `package p

base := 10

scaled := base * input.factor
`, "")

	wantJSON(t, mustEval(t, policy, `{"factor": 3}`, "data.p.scaled"), `30`)
}

func TestEvaluate_AssignRebindingIsEquality(t *testing.T) {
	policy := mustCompile(t, `package p

consistent if {
	x := input.a
	x == input.b
}
`, "")

	wantJSON(t, mustEval(t, policy, `{"a": 1, "b": 1}`, "data.p.consistent"), `true`)
	got := mustEval(t, policy, `{"a": 1, "b": 2}`, "data.p.consistent")
	if !got.IsNull() {
		t.Errorf("got %s, want null", got)
	}
}

func TestEvaluate_IntegerPrecisionPreserved(t *testing.T) {
	policy := mustCompile(t, `package p

big := input.n + 1
`, "")

	got := mustEval(t, policy, `{"n": 9007199254740993}`, "data.p.big")
	if !got.AsNumber().IsInt() || got.AsNumber().Int64() != 9007199254740994 {
		t.Errorf("got %s, want 9007199254740994", got)
	}
}
