package document

import "testing"

func TestFromJSON_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   string
		out  string // expected re-serialization; empty means same as in
	}{
		{"null", `null`, ""},
		{"bool", `true`, ""},
		{"int", `42`, ""},
		{"negative int", `-7`, ""},
		{"large int", `9223372036854775807`, ""},
		{"float", `1.5`, ""},
		{"string", `"hello"`, ""},
		{"escaped string", `"a\"b"`, ""},
		{"array", `[1,"two",false,null]`, ""},
		{"nested", `{"a":{"b":[1,2,{"c":3}]}}`, ""},
		{"key order preserved", `{"z":1,"a":2,"m":3}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := FromJSONString(tt.in)
			if err != nil {
				t.Fatalf("FromJSONString(%q) failed: %v", tt.in, err)
			}
			want := tt.out
			if want == "" {
				want = tt.in
			}
			if got := v.String(); got != want {
				t.Errorf("round-trip = %s, want %s", got, want)
			}
		})
	}
}

func TestFromJSON_Invalid(t *testing.T) {
	tests := []string{
		``,
		`{`,
		`[1,]`,
		`{"a":}`,
		`tru`,
		`1 2`,      // trailing content
		`{"a":1}x`, // trailing garbage
	}

	for _, in := range tests {
		if _, err := FromJSONString(in); err == nil {
			t.Errorf("FromJSONString(%q) succeeded, want error", in)
		}
	}
}

func TestFromJSON_NumberPrecision(t *testing.T) {
	v, err := FromJSONString(`{"i":9007199254740993,"f":0.1}`)
	if err != nil {
		t.Fatalf("FromJSONString failed: %v", err)
	}

	i, _ := v.Field("i")
	if !i.AsNumber().IsInt() || i.AsNumber().Int64() != 9007199254740993 {
		t.Errorf("integer beyond float53 precision not preserved: %v", i)
	}

	f, _ := v.Field("f")
	if f.AsNumber().IsInt() || f.AsNumber().Float64() != 0.1 {
		t.Errorf("float not preserved: %v", f)
	}
}
