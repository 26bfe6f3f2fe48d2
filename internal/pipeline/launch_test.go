package pipeline

import (
	"os"
	"testing"

	"github.com/bkjg/project-shell/internal/token"
)

func strTok(s string) token.Token { return token.Token{Kind: token.String, Text: s} }

func TestSplitStagesSingle(t *testing.T) {
	tokens := []token.Token{strTok("echo"), strTok("hi")}
	stages := splitStages(tokens)
	if len(stages) != 1 {
		t.Fatalf("len(stages) = %d, want 1", len(stages))
	}
}

func TestSplitStagesPipeline(t *testing.T) {
	tokens := []token.Token{
		strTok("yes"),
		{Kind: token.Pipe, Text: "|"},
		strTok("head"), strTok("-n"), strTok("3"),
	}
	stages := splitStages(tokens)
	if len(stages) != 2 {
		t.Fatalf("len(stages) = %d, want 2", len(stages))
	}
	if len(stages[0]) != 1 || stages[0][0].Text != "yes" {
		t.Errorf("stage 0 = %v, want [yes]", stages[0])
	}
	if len(stages[1]) != 3 {
		t.Errorf("stage 1 = %v, want 3 tokens", stages[1])
	}
}

func TestSplitStagesThreeWay(t *testing.T) {
	tokens := []token.Token{
		strTok("a"),
		{Kind: token.Pipe, Text: "|"},
		strTok("b"),
		{Kind: token.Pipe, Text: "|"},
		strTok("c"),
	}
	stages := splitStages(tokens)
	if len(stages) != 3 {
		t.Fatalf("len(stages) = %d, want 3", len(stages))
	}
}

func TestArgvOf(t *testing.T) {
	tokens := []token.Token{strTok("ls"), strTok("-l")}
	got := argvOf(tokens)
	if len(got) != 2 || got[0] != "ls" || got[1] != "-l" {
		t.Errorf("argvOf = %v, want [ls -l]", got)
	}
}

func TestFileOr(t *testing.T) {
	if fileOr(nil, os.Stdin) != os.Stdin {
		t.Error("fileOr(nil, fallback) should return fallback")
	}
	f := os.Stdout
	if fileOr(f, os.Stdin) != f {
		t.Error("fileOr(f, fallback) should return f when f is non-nil")
	}
}

func TestFirstNonNil(t *testing.T) {
	if firstNonNil(nil, nil, os.Stdin) != os.Stdin {
		t.Error("firstNonNil should skip leading nils")
	}
	if firstNonNil(nil, nil) != nil {
		t.Error("firstNonNil of all nils should be nil")
	}
}
