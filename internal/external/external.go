// Package external resolves and execs external commands: the PATH search
// and wildcard expansion that run inside the child trampoline right before
// the point of no return.
package external

import (
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/pkg/errors"
)

// ErrNotFound indicates argv[0] could not be resolved to an executable,
// either directly or by walking $PATH.
var ErrNotFound = errors.New("command not found")

// Exec resolves argv[0] and execs it, replacing the current process image.
// It never returns on success. Grounded on command.c's external_command:
// argv[0] containing a "/" is used directly, otherwise every $PATH entry is
// tried in order, and whichever candidate exists wins glob expansion and
// exec first.
func Exec(argv []string) error {
	if len(argv) == 0 {
		return errors.New("external: empty argv")
	}

	if strings.Contains(argv[0], "/") {
		return execExpanded(argv[0], argv)
	}

	path := os.Getenv("PATH")
	for _, dir := range strings.Split(path, ":") {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, argv[0])
		if _, err := os.Stat(candidate); err != nil {
			continue
		}
		return execExpanded(candidate, argv)
	}

	return errors.Wrapf(ErrNotFound, "%s", argv[0])
}

// execExpanded glob-expands every argument that does not look like a
// command name or a leading option, then execs command with the expanded
// argv. Grounded on command.c's expand_wildcard: leading "-"-prefixed
// options are preserved verbatim ahead of the first expandable argument.
func execExpanded(command string, argv []string) error {
	expanded := expandWildcards(argv)

	env := os.Environ()
	if err := syscall.Exec(command, expanded, env); err != nil {
		return errors.Wrapf(err, "exec %s", command)
	}
	return nil // unreachable on success
}

func expandWildcards(argv []string) []string {
	out := make([]string, 0, len(argv))
	out = append(out, argv[0])

	i := 1
	for ; i < len(argv); i++ {
		if len(argv[i]) > 0 && argv[i][0] == '-' {
			out = append(out, argv[i])
			continue
		}
		break
	}

	for ; i < len(argv); i++ {
		matches, err := filepath.Glob(argv[i])
		if err != nil || len(matches) == 0 {
			out = append(out, argv[i])
			continue
		}
		out = append(out, matches...)
	}

	return out
}
