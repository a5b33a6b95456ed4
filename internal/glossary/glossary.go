package glossary

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
)

const DefaultIterationLimit = 30

// Substitution rewrites one pattern in a transcript.
type Substitution interface {
	Rewrite(text string) (string, bool)
	// Term is the canonical spelling the substitution produces, or "" when
	// the output is not a fixed word.
	Term() string
}

// Syntax recognizes and compiles one glossary line format.
type Syntax interface {
	Matches(line string) bool
	Compile(line string) (Substitution, error)
}

// Glossary holds user corrections for words the recognizer tends to get
// wrong. It is safe for concurrent use and can be reloaded in place.
type Glossary struct {
	path   string
	limit  int
	syntax []Syntax
	logger *slog.Logger

	mu    sync.RWMutex
	subs  []Substitution
	terms []string
}

// Load reads path. An empty path or missing file yields an empty glossary.
func Load(path string, limit int, logger *slog.Logger) (*Glossary, error) {
	return LoadWithSyntax(path, limit, logger, DefaultSyntax())
}

func LoadWithSyntax(path string, limit int, logger *slog.Logger, syntax []Syntax) (*Glossary, error) {
	if limit <= 0 {
		limit = DefaultIterationLimit
	}
	if len(syntax) == 0 {
		syntax = DefaultSyntax()
	}
	if logger == nil {
		logger = slog.Default()
	}
	g := &Glossary{
		path:   strings.TrimSpace(path),
		limit:  limit,
		syntax: syntax,
		logger: logger.With("component", "glossary"),
	}
	if err := g.Reload(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Glossary) Path() string {
	return g.path
}

// Reload recompiles the file. On error the previous entries stay active.
func (g *Glossary) Reload() error {
	subs, err := g.read()
	if err != nil {
		return err
	}
	terms := collectTerms(subs)

	g.mu.Lock()
	g.subs = subs
	g.terms = terms
	g.mu.Unlock()

	g.logger.Debug("glossary loaded", "path", g.path, "entries", len(subs))
	return nil
}

func (g *Glossary) read() ([]Substitution, error) {
	if g.path == "" {
		return nil, nil
	}
	contents, err := os.ReadFile(g.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read glossary %q: %w", g.path, err)
	}
	subs, err := compile(string(contents), g.syntax)
	if err != nil {
		return nil, fmt.Errorf("parse glossary %q: %w", g.path, err)
	}
	return subs, nil
}

// Apply rewrites text until no substitution changes it or the iteration
// limit is reached.
func (g *Glossary) Apply(text string) (string, error) {
	g.mu.RLock()
	subs := g.subs
	g.mu.RUnlock()

	if len(subs) == 0 {
		return text, nil
	}

	result := text
	for pass := 0; pass < g.limit; pass++ {
		dirty := false
		for _, sub := range subs {
			if next, changed := sub.Rewrite(result); changed {
				result = next
				dirty = true
			}
		}
		if !dirty {
			break
		}
	}
	return result, nil
}

// Terms lists the canonical spellings, in file order without duplicates.
func (g *Glossary) Terms() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]string(nil), g.terms...)
}

func (g *Glossary) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.subs)
}

func compile(contents string, syntax []Syntax) ([]Substitution, error) {
	lines := strings.Split(contents, "\n")
	subs := make([]Substitution, 0, len(lines))

	for number, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		sub, err := compileLine(line, syntax)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", number+1, err)
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

func compileLine(line string, syntax []Syntax) (Substitution, error) {
	for _, s := range syntax {
		if s.Matches(line) {
			return s.Compile(line)
		}
	}
	return nil, errors.New("unrecognized glossary entry")
}

func collectTerms(subs []Substitution) []string {
	seen := make(map[string]struct{}, len(subs))
	terms := make([]string, 0, len(subs))
	for _, sub := range subs {
		term := sub.Term()
		if term == "" {
			continue
		}
		key := strings.ToLower(term)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		terms = append(terms, term)
	}
	return terms
}
