// Package redirect resolves redirection operators out of a token stream,
// opening the named files and producing the clean argument vector the rest
// of the shell sees.
package redirect

import (
	"os"

	"github.com/pkg/errors"

	"github.com/bkjg/project-shell/internal/token"
	"github.com/bkjg/project-shell/internal/validator"
)

// ErrMalformed indicates a redirection operator was not followed by a
// filename argument.
var ErrMalformed = errors.New("command line is not well formed")

const fileMode = 0666

// Result is the outcome of resolving redirections out of a token vector.
type Result struct {
	// Tokens is the input with every redirection operator and its filename
	// argument removed.
	Tokens []token.Token
	// Stdin is non-nil if a "<" redirection was present. The caller owns
	// closing it.
	Stdin *os.File
	// Stdout is non-nil if a ">" or ">>" redirection was present. The
	// caller owns closing it.
	Stdout *os.File
}

// Resolve consumes every redirection token in a single left-to-right pass.
// The last redirection of a given stream wins. Grounded on shell.c's
// do_redir.
func Resolve(tokens []token.Token) (Result, error) {
	var res Result
	res.Tokens = make([]token.Token, 0, len(tokens))

	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		if !token.IsRedirection(t) {
			res.Tokens = append(res.Tokens, t)
			continue
		}

		v := validator.New()
		v.Assert(i+1 < len(tokens) && token.IsString(safeAt(tokens, i+1)), "redirection missing filename")
		if err := v.Err(); err != nil {
			closeOpened(res)
			return Result{}, errors.Wrap(ErrMalformed, err.Error())
		}

		name := tokens[i+1].Text
		i++

		fd, err := openFor(t.Kind, name)
		if err != nil {
			closeOpened(res)
			return Result{}, errors.Wrapf(err, "open %s", name)
		}

		switch t.Kind {
		case token.Input:
			if res.Stdin != nil {
				res.Stdin.Close()
			}
			res.Stdin = fd
		case token.Output, token.Append:
			if res.Stdout != nil {
				res.Stdout.Close()
			}
			res.Stdout = fd
		}
	}

	return res, nil
}

func safeAt(tokens []token.Token, i int) token.Token {
	if i < 0 || i >= len(tokens) {
		return token.Token{Kind: token.Null}
	}
	return tokens[i]
}

func openFor(kind token.Kind, name string) (*os.File, error) {
	switch kind {
	case token.Input:
		return os.OpenFile(name, os.O_RDONLY, 0)
	case token.Output:
		return os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fileMode)
	case token.Append:
		return os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, fileMode)
	default:
		return nil, errors.Errorf("not a redirection kind: %v", kind)
	}
}

func closeOpened(res Result) {
	if res.Stdin != nil {
		res.Stdin.Close()
	}
	if res.Stdout != nil {
		res.Stdout.Close()
	}
}
