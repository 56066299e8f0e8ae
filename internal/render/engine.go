// Package render substitutes {{name}} placeholders in document templates.
package render

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/segyhp/loan-documents/internal/domain"
)

const (
	openDelim  = "{{"
	closeDelim = "}}"
)

// Engine fills templates. It holds no per-call state and is safe for
// concurrent use.
type Engine struct {
	logger *logrus.Logger
}

// NewEngine creates an engine. A nil logger discards unfilled-placeholder
// diagnostics.
func NewEngine(logger *logrus.Logger) *Engine {
	return &Engine{logger: logger}
}

type token struct {
	start, end int // byte offsets of the whole {{name}} token
	name       string
}

// scan returns every placeholder token in order. A second "{{" before the
// closing delimiter restarts the token there.
func scan(template string) []token {
	var tokens []token
	pos := 0
	for {
		open := strings.Index(template[pos:], openDelim)
		if open < 0 {
			return tokens
		}
		open += pos
		nameStart := open + len(openDelim)

		nameEnd := strings.Index(template[nameStart:], closeDelim)
		if nameEnd < 0 {
			return tokens
		}
		nameEnd += nameStart

		if nested := strings.LastIndex(template[nameStart:nameEnd], openDelim); nested >= 0 {
			open = nameStart + nested
			nameStart = open + len(openDelim)
		}

		tokens = append(tokens, token{
			start: open,
			end:   nameEnd + len(closeDelim),
			name:  template[nameStart:nameEnd],
		})
		pos = nameEnd + len(closeDelim)
	}
}

// Render replaces every {{name}} token with fields[name], or the empty string
// when the name is absent. Substituted text is never re-scanned.
func (e *Engine) Render(template string, fields domain.FieldMap) string {
	tokens := scan(template)
	if len(tokens) == 0 {
		return template
	}

	var (
		b       strings.Builder
		last    int
		missing []string
		seen    = make(map[string]bool)
	)
	b.Grow(len(template))
	for _, tok := range tokens {
		b.WriteString(template[last:tok.start])
		value, ok := fields[tok.name]
		if !ok && !seen[tok.name] {
			missing = append(missing, tok.name)
		}
		seen[tok.name] = true
		b.WriteString(value)
		last = tok.end
	}
	b.WriteString(template[last:])

	if len(missing) > 0 && e.logger != nil {
		e.logger.WithFields(logrus.Fields{
			"placeholders": missing,
		}).Debug("Template placeholders left unfilled")
	}

	return b.String()
}

// Placeholders lists the distinct placeholder names in order of first
// appearance.
func Placeholders(template string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, tok := range scan(template) {
		if seen[tok.name] {
			continue
		}
		seen[tok.name] = true
		names = append(names, tok.name)
	}
	return names
}

// Missing lists the placeholder names of template that fields does not fill.
func Missing(template string, fields domain.FieldMap) []string {
	var missing []string
	for _, name := range Placeholders(template) {
		if _, ok := fields[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}
