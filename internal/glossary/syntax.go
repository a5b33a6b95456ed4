package glossary

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultSyntax understands "heard => Written" entries and sed-style
// "s/pattern/replacement/flags" expressions.
func DefaultSyntax() []Syntax {
	return []Syntax{sedSyntax{}, arrowSyntax{}}
}

type arrowSyntax struct{}

func (arrowSyntax) Matches(line string) bool {
	return strings.Contains(line, "=>")
}

func (arrowSyntax) Compile(line string) (Substitution, error) {
	heard, written, ok := strings.Cut(line, "=>")
	if !ok {
		return nil, errors.New("missing =>")
	}
	heard = strings.TrimSpace(heard)
	written = strings.TrimSpace(written)
	if heard == "" {
		return nil, errors.New("entry has nothing to replace")
	}

	// Anchor on word boundaries only where the phrase itself starts or ends
	// with a word character, so "c++ => C++" still matches.
	pattern := regexp.QuoteMeta(heard)
	if first, _ := utf8.DecodeRuneInString(heard); isWordRune(first) {
		pattern = `\b` + pattern
	}
	if last, _ := utf8.DecodeLastRuneInString(heard); isWordRune(last) {
		pattern += `\b`
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("compile entry: %w", err)
	}
	return phrase{re: re, written: written}, nil
}

type phrase struct {
	re      *regexp.Regexp
	written string
}

func (p phrase) Rewrite(text string) (string, bool) {
	out := p.re.ReplaceAllLiteralString(text, p.written)
	return out, out != text
}

func (p phrase) Term() string {
	return p.written
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

type sedSyntax struct{}

func (sedSyntax) Matches(line string) bool {
	return len(line) > 2 && line[0] == 's' && isDelimiter(line[1])
}

func (sedSyntax) Compile(line string) (Substitution, error) {
	delim := line[1]
	pattern, next, err := readField(line, 2, delim)
	if err != nil {
		return nil, fmt.Errorf("pattern: %w", err)
	}
	replacement, next, err := readField(line, next, delim)
	if err != nil {
		return nil, fmt.Errorf("replacement: %w", err)
	}

	inline := "i"
	global := false
	for _, flag := range strings.TrimSpace(line[next:]) {
		switch flag {
		case 'g':
			global = true
		case 'i':
		case 'm', 's':
			inline += string(flag)
		default:
			return nil, fmt.Errorf("unsupported flag %q", flag)
		}
	}

	re, err := regexp.Compile("(?" + inline + ")" + pattern)
	if err != nil {
		return nil, fmt.Errorf("compile pattern: %w", err)
	}
	return expression{re: re, replacement: replacement, global: global}, nil
}

type expression struct {
	re          *regexp.Regexp
	replacement string
	global      bool
}

func (e expression) Rewrite(text string) (string, bool) {
	if e.global {
		out := e.re.ReplaceAllString(text, e.replacement)
		return out, out != text
	}

	loc := e.re.FindStringSubmatchIndex(text)
	if loc == nil {
		return text, false
	}
	expanded := e.re.ExpandString(nil, e.replacement, text, loc)
	out := text[:loc[0]] + string(expanded) + text[loc[1]:]
	return out, out != text
}

// Term reports the replacement when it has no group references.
func (e expression) Term() string {
	if strings.Contains(e.replacement, "$") {
		return ""
	}
	return strings.TrimSpace(e.replacement)
}

func readField(line string, start int, delim byte) (string, int, error) {
	if start >= len(line) {
		return "", 0, errors.New("unexpected end of entry")
	}

	var b strings.Builder
	for i := start; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '\\' && i+1 < len(line) && line[i+1] == delim:
			b.WriteByte(delim)
			i++
		case c == '\\' && i+1 < len(line):
			b.WriteByte(c)
			b.WriteByte(line[i+1])
			i++
		case c == delim:
			return b.String(), i + 1, nil
		default:
			b.WriteByte(c)
		}
	}
	return "", 0, errors.New("unterminated field")
}

func isDelimiter(c byte) bool {
	return c < utf8.RuneSelf && !unicode.IsLetter(rune(c)) && !unicode.IsDigit(rune(c)) && !unicode.IsSpace(rune(c)) && c != '\\'
}
