package lexer

import "testing"

func tokenTypes(t *testing.T, src string) []TokenType {
	t.Helper()
	tokens, err := Tokenize("test.epl", src)
	if err != nil {
		t.Fatalf("Tokenize(%q) failed: %v", src, err)
	}
	types := make([]TokenType, len(tokens))
	for i, tok := range tokens {
		types[i] = tok.Type
	}
	return types
}

func TestTokenize_RuleClause(t *testing.T) {
	tokens, err := Tokenize("test.epl", `allow if input.role == "admin"`)
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}

	want := []struct {
		typ  TokenType
		text string
	}{
		{TokenIdent, "allow"},
		{TokenKeyword, "if"},
		{TokenIdent, "input"},
		{TokenDot, "."},
		{TokenIdent, "role"},
		{TokenOperator, "=="},
		{TokenString, "admin"},
		{TokenEOF, ""},
	}

	if len(tokens) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(tokens), len(want))
	}
	for i, w := range want {
		if tokens[i].Type != w.typ || tokens[i].Text != w.text {
			t.Errorf("token %d = (%v, %q), want (%v, %q)",
				i, tokens[i].Type, tokens[i].Text, w.typ, w.text)
		}
	}
}

func TestTokenize_Keywords(t *testing.T) {
	for _, kw := range []string{"package", "import", "as", "if", "else", "default", "not", "some", "in", "contains", "true", "false", "null"} {
		tokens, err := Tokenize("", kw)
		if err != nil {
			t.Fatalf("Tokenize(%q) failed: %v", kw, err)
		}
		if tokens[0].Type != TokenKeyword {
			t.Errorf("%q lexed as %v, want keyword", kw, tokens[0].Type)
		}
	}

	// Keyword prefix inside an identifier must stay an identifier.
	tokens, err := Tokenize("", "default_role")
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}
	if tokens[0].Type != TokenIdent || tokens[0].Text != "default_role" {
		t.Errorf("default_role lexed as (%v, %q), want identifier", tokens[0].Type, tokens[0].Text)
	}
}

func TestTokenize_Numbers(t *testing.T) {
	tests := []struct {
		src  string
		text string
	}{
		{"42", "42"},
		{"3.14", "3.14"},
		{"1e6", "1e6"},
		{"2.5e-3", "2.5e-3"},
	}

	for _, tt := range tests {
		tokens, err := Tokenize("", tt.src)
		if err != nil {
			t.Fatalf("Tokenize(%q) failed: %v", tt.src, err)
		}
		if tokens[0].Type != TokenNumber || tokens[0].Text != tt.text {
			t.Errorf("Tokenize(%q)[0] = (%v, %q), want (number, %q)",
				tt.src, tokens[0].Type, tokens[0].Text, tt.text)
		}
	}
}

func TestTokenize_StringEscapes(t *testing.T) {
	tokens, err := Tokenize("", `"a\"b\nc"`)
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}
	if tokens[0].Text != "a\"b\nc" {
		t.Errorf("string text = %q, want %q", tokens[0].Text, "a\"b\nc")
	}
}

func TestTokenize_CommentsAndNewlines(t *testing.T) {
	src := "a # comment\nb"
	types := tokenTypes(t, src)
	want := []TokenType{TokenIdent, TokenNewline, TokenIdent, TokenEOF}
	if len(types) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(types), len(want))
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("token %d = %v, want %v", i, types[i], want[i])
		}
	}
}

func TestTokenize_Locations(t *testing.T) {
	tokens, err := Tokenize("p.epl", "a\n  bb")
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}

	if loc := tokens[0].Location; loc.Line != 1 || loc.Column != 1 {
		t.Errorf("token a at %d:%d, want 1:1", loc.Line, loc.Column)
	}
	if loc := tokens[2].Location; loc.Line != 2 || loc.Column != 3 {
		t.Errorf("token bb at %d:%d, want 2:3", loc.Line, loc.Column)
	}
}

func TestTokenize_Errors(t *testing.T) {
	tests := []string{
		`"unterminated`,
		`"bad \q escape"`,
		"@",
		"1e",
	}

	for _, src := range tests {
		if _, err := Tokenize("", src); err == nil {
			t.Errorf("Tokenize(%q) succeeded, want error", src)
		}
	}
}
