package extract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// This file reads the small amount of structured data the site embeds
// directly in page <script> blocks: object literals built with
// JavaScript's looser syntax (unquoted keys, single-quoted strings,
// trailing commas) rather than strict JSON. Rather than a full JS parser,
// it locates the balanced braces/brackets by hand and then rewrites just
// enough syntax for encoding/json to take over.

var pushCallPattern = func(objName string) *regexp.Regexp {
	return regexp.MustCompile(regexp.QuoteMeta(objName) + `\.push\(\s*\{`)
}

var arrayAssignPattern = func(varName string) *regexp.Regexp {
	return regexp.MustCompile(varName + `\s*=\s*\[`)
}

// extractPushObjects finds every `objName.push({ ... })` call in src and
// returns each object literal as a decoded map, in source order. Grounds
// the league extractor's `series.push({...})` child-discovery reads.
func extractPushObjects(src, objName string) []map[string]any {
	pattern := pushCallPattern(objName)
	var out []map[string]any
	locs := pattern.FindAllStringIndex(src, -1)
	for _, loc := range locs {
		braceStart := loc[1] - 1 // index of the opening '{'
		obj, ok := balancedSpan(src, braceStart, '{', '}')
		if !ok {
			continue
		}
		m, err := parseJSObject(obj)
		if err != nil {
			continue
		}
		out = append(out, m)
	}
	return out
}

// extractJSArray finds `varName = [ ... ]` in src and returns the decoded
// array of objects. Used both for the literal `seasons = [...]` data and,
// reused against a `schedule`-shaped variable, for the season extractor's
// dropdown-of-schedule-links path.
func extractJSArray(src, varName string) []map[string]any {
	pattern := arrayAssignPattern(varName)
	loc := pattern.FindStringIndex(src)
	if loc == nil {
		return nil
	}
	bracketStart := loc[1] - 1 // index of the opening '['
	arr, ok := balancedSpan(src, bracketStart, '[', ']')
	if !ok {
		return nil
	}

	var out []map[string]any
	i := 0
	for i < len(arr) {
		if arr[i] != '{' {
			i++
			continue
		}
		obj, ok := balancedSpan(arr, i, '{', '}')
		if !ok {
			break
		}
		if m, err := parseJSObject(obj); err == nil {
			out = append(out, m)
		}
		i += len(obj)
	}
	return out
}

// balancedSpan returns the substring of s starting at the opening
// character open found at or after start, through its matching close
// character (respecting string literals so braces inside quoted values
// don't confuse the balance count).
func balancedSpan(s string, start int, open, close byte) (string, bool) {
	for start < len(s) && s[start] != open {
		start++
	}
	if start >= len(s) {
		return "", false
	}

	depth := 0
	inString := byte(0)
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString != 0 {
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == inString {
				inString = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			inString = c
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

var (
	unquotedKeyPattern = regexp.MustCompile(`([{,]\s*)([A-Za-z_$][A-Za-z0-9_$]*)\s*:`)
	trailingComma      = regexp.MustCompile(`,\s*([}\]])`)
)

// parseJSObject converts one JS object literal to valid JSON and decodes
// it: single-quoted strings become double-quoted, bare identifier keys get
// quoted, and trailing commas before a closing brace/bracket are dropped.
func parseJSObject(jsLiteral string) (map[string]any, error) {
	converted := jsToJSON(jsLiteral)
	var m map[string]any
	if err := json.Unmarshal([]byte(converted), &m); err != nil {
		return nil, fmt.Errorf("parse js object: %w", err)
	}
	return m, nil
}

func jsToJSON(src string) string {
	var b strings.Builder
	inString := byte(0)
	escaped := false
	for i := 0; i < len(src); i++ {
		c := src[i]
		if inString != 0 {
			if escaped {
				b.WriteByte(c)
				escaped = false
				continue
			}
			if c == '\\' {
				b.WriteByte(c)
				escaped = true
				continue
			}
			if c == inString {
				inString = 0
				b.WriteByte('"')
				continue
			}
			if c == '"' && inString == '\'' {
				b.WriteByte('\\')
				b.WriteByte('"')
				continue
			}
			b.WriteByte(c)
			continue
		}
		if c == '\'' || c == '"' {
			inString = c
			b.WriteByte('"')
			continue
		}
		b.WriteByte(c)
	}
	out := b.String()
	out = unquotedKeyPattern.ReplaceAllString(out, `$1"$2":`)
	out = trailingComma.ReplaceAllString(out, `$1`)
	return out
}

// asString safely reads a string field off a decoded JS object map.
func asString(m map[string]any, key string) (string, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return fmt.Sprintf("%v", t), true
	default:
		return "", false
	}
}

// asInt safely reads an integer field off a decoded JS object map.
func asInt(m map[string]any, key string) (int, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return int(t), true
	case string:
		var n int
		if _, err := fmt.Sscanf(strings.TrimSpace(t), "%d", &n); err == nil {
			return n, true
		}
	}
	return 0, false
}
