package external

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandWildcardsPreservesLeadingOptions(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.txt", "b.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}

	argv := []string{"ls", "-l", "-a", filepath.Join(dir, "*.txt")}
	got := expandWildcards(argv)

	if got[0] != "ls" || got[1] != "-l" || got[2] != "-a" {
		t.Fatalf("expandWildcards did not preserve leading options: %v", got)
	}
	if len(got) != 5 {
		t.Fatalf("expandWildcards = %v, want 2 expanded matches appended", got)
	}
}

func TestExpandWildcardsNoMatchKeepsLiteral(t *testing.T) {
	argv := []string{"echo", "nonexistent-*-pattern"}
	got := expandWildcards(argv)
	if len(got) != 2 || got[1] != "nonexistent-*-pattern" {
		t.Fatalf("expandWildcards with no match = %v, want literal pattern kept", got)
	}
}

func TestExecUnresolvablePath(t *testing.T) {
	err := Exec([]string{"this-command-does-not-exist-anywhere"})
	if err == nil {
		t.Fatal("expected error for unresolvable command")
	}
}
