package token

import "testing"

func TestTokenize(t *testing.T) {
	tests := map[string]struct {
		line string
		exp  []Token
	}{
		"simple command": {
			line: "echo hello",
			exp: []Token{
				{Kind: String, Text: "echo"},
				{Kind: String, Text: "hello"},
			},
		},
		"redirection": {
			line: "echo hi > /tmp/out",
			exp: []Token{
				{Kind: String, Text: "echo"},
				{Kind: String, Text: "hi"},
				{Kind: Output, Text: ">"},
				{Kind: String, Text: "/tmp/out"},
			},
		},
		"append": {
			line: "echo hi >> /tmp/out",
			exp: []Token{
				{Kind: String, Text: "echo"},
				{Kind: String, Text: "hi"},
				{Kind: Append, Text: ">>"},
				{Kind: String, Text: "/tmp/out"},
			},
		},
		"pipeline": {
			line: "yes | head -n 3",
			exp: []Token{
				{Kind: String, Text: "yes"},
				{Kind: Pipe, Text: "|"},
				{Kind: String, Text: "head"},
				{Kind: String, Text: "-n"},
				{Kind: String, Text: "3"},
			},
		},
		"background": {
			line: "sleep 10 &",
			exp: []Token{
				{Kind: String, Text: "sleep"},
				{Kind: String, Text: "10"},
				{Kind: BGJob, Text: "&"},
			},
		},
		"quoted argument": {
			line: `echo "hello world"`,
			exp: []Token{
				{Kind: String, Text: "echo"},
				{Kind: String, Text: "hello world"},
			},
		},
		"empty": {
			line: "",
			exp:  nil,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			got := Tokenize(test.line)
			if len(got) != len(test.exp) {
				t.Fatalf("token count = %d, want %d (%v)", len(got), len(test.exp), got)
			}
			for i := range got {
				if got[i] != test.exp[i] {
					t.Errorf("token[%d] = %+v, want %+v", i, got[i], test.exp[i])
				}
			}
		})
	}
}

func TestPredicates(t *testing.T) {
	if !IsString(Token{Kind: String}) {
		t.Error("IsString(String) = false, want true")
	}
	if IsString(Token{Kind: Pipe}) {
		t.Error("IsString(Pipe) = true, want false")
	}
	if !Separator(Token{Kind: Pipe}) {
		t.Error("Separator(Pipe) = false, want true")
	}
	if Separator(Token{Kind: String}) {
		t.Error("Separator(String) = true, want false")
	}
	if !IsRedirection(Token{Kind: Input}) || !IsRedirection(Token{Kind: Output}) || !IsRedirection(Token{Kind: Append}) {
		t.Error("IsRedirection false for a redirection kind")
	}
	if IsRedirection(Token{Kind: Pipe}) {
		t.Error("IsRedirection(Pipe) = true, want false")
	}
}
