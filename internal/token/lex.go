package token

import "strings"

// Tokenize splits a command line into tokens. It recognizes single and
// double quoting (no escape processing beyond the quote characters
// themselves) and the operators "<", ">", ">>", "|", "&", "&&", "||", ";".
// Tokenize is the core's only line-parsing dependency; spec.md treats a
// richer tokenizer/line-editor as an external collaborator, so this
// implementation stays intentionally minimal.
func Tokenize(line string) []Token {
	var tokens []Token
	runes := []rune(line)
	n := len(runes)

	for i := 0; i < n; {
		c := runes[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '<':
			tokens = append(tokens, Token{Kind: Input, Text: "<"})
			i++
		case c == '>':
			if i+1 < n && runes[i+1] == '>' {
				tokens = append(tokens, Token{Kind: Append, Text: ">>"})
				i += 2
			} else {
				tokens = append(tokens, Token{Kind: Output, Text: ">"})
				i++
			}
		case c == '|':
			if i+1 < n && runes[i+1] == '|' {
				tokens = append(tokens, Token{Kind: Or, Text: "||"})
				i += 2
			} else {
				tokens = append(tokens, Token{Kind: Pipe, Text: "|"})
				i++
			}
		case c == '&':
			if i+1 < n && runes[i+1] == '&' {
				tokens = append(tokens, Token{Kind: And, Text: "&&"})
				i += 2
			} else {
				tokens = append(tokens, Token{Kind: BGJob, Text: "&"})
				i++
			}
		case c == ';':
			tokens = append(tokens, Token{Kind: Colon, Text: ";"})
			i++
		case c == '\'' || c == '"':
			text, next := scanQuoted(runes, i)
			tokens = append(tokens, Token{Kind: String, Text: text})
			i = next
		default:
			text, next := scanWord(runes, i)
			tokens = append(tokens, Token{Kind: String, Text: text})
			i = next
		}
	}

	return tokens
}

func scanQuoted(runes []rune, start int) (string, int) {
	quote := runes[start]
	var b strings.Builder
	i := start + 1
	for i < len(runes) && runes[i] != quote {
		b.WriteRune(runes[i])
		i++
	}
	if i < len(runes) {
		i++ // consume closing quote
	}
	return b.String(), i
}

func scanWord(runes []rune, start int) (string, int) {
	var b strings.Builder
	i := start
	for i < len(runes) && !isBoundary(runes[i]) {
		b.WriteRune(runes[i])
		i++
	}
	return b.String(), i
}

func isBoundary(r rune) bool {
	switch r {
	case ' ', '\t', '<', '>', '|', '&', ';':
		return true
	default:
		return false
	}
}
