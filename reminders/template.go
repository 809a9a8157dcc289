package reminders

import "strings"

// UnknownPlaceholderError reports a template placeholder with no value in
// the field map. Rendering is all-or-nothing: a misconfigured rule template
// must never leak a literal placeholder or an empty string into a
// customer-facing email.
type UnknownPlaceholderError struct {
	Name string
}

func (e *UnknownPlaceholderError) Error() string {
	return "unknown template variable: " + e.Name
}

type tokenKind int

const (
	tokenLiteral tokenKind = iota
	tokenPlaceholder
)

type token struct {
	kind tokenKind
	text string
}

// tokenize splits a template into literal and placeholder tokens.
// A placeholder is "{{ name }}" where name is [A-Za-z0-9_]+ and the
// surrounding whitespace is insignificant. Anything that does not parse as a
// placeholder stays literal text.
func tokenize(template string) []token {
	var tokens []token
	rest := template
	for {
		open := strings.Index(rest, "{{")
		if open < 0 {
			break
		}
		close := strings.Index(rest[open:], "}}")
		if close < 0 {
			break
		}
		close += open

		name := strings.TrimSpace(rest[open+2 : close])
		if !isIdentifier(name) {
			// Not a placeholder; emit up to and including "{{" as literal
			// and keep scanning after it.
			tokens = append(tokens, token{kind: tokenLiteral, text: rest[:open+2]})
			rest = rest[open+2:]
			continue
		}

		if open > 0 {
			tokens = append(tokens, token{kind: tokenLiteral, text: rest[:open]})
		}
		tokens = append(tokens, token{kind: tokenPlaceholder, text: name})
		rest = rest[close+2:]
	}
	if rest != "" {
		tokens = append(tokens, token{kind: tokenLiteral, text: rest})
	}
	return tokens
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_':
		default:
			return false
		}
	}
	return true
}

// Render expands every placeholder in template from fields. It fails with
// UnknownPlaceholderError, producing no partial output, when any placeholder
// has no field value.
func Render(template string, fields map[string]string) (string, error) {
	var b strings.Builder
	for _, tok := range tokenize(template) {
		if tok.kind == tokenLiteral {
			b.WriteString(tok.text)
			continue
		}
		value, ok := fields[tok.text]
		if !ok {
			return "", &UnknownPlaceholderError{Name: tok.text}
		}
		b.WriteString(value)
	}
	return b.String(), nil
}
