// Package envfile builds effective runtime environments and renders/parses
// dotenv text. The rendered file stores secrets in cleartext; only the
// catalog copy is encrypted, so files are always written owner-only.
package envfile

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Map is an insertion-ordered set of environment variables.
type Map = orderedmap.OrderedMap[string, string]

// NewMap returns an empty ordered environment map.
func NewMap() *Map {
	return orderedmap.New[string, string]()
}

// BuildEffective merges runtime defaults with user variables. User values win
// for every key, including the defaults' own keys.
func BuildEffective(nodeEnv string, port int, userVars *Map) *Map {
	m := NewMap()
	m.Set("NODE_ENV", nodeEnv)
	m.Set("PORT", strconv.Itoa(port))
	if userVars != nil {
		for pair := userVars.Oldest(); pair != nil; pair = pair.Next() {
			m.Set(pair.Key, pair.Value)
		}
	}
	return m
}

// Format renders KEY=VALUE lines in insertion order. Values containing
// whitespace are double-quoted, with embedded double quotes escaped.
func Format(m *Map) string {
	var b strings.Builder
	for pair := m.Oldest(); pair != nil; pair = pair.Next() {
		b.WriteString(pair.Key)
		b.WriteByte('=')
		b.WriteString(quote(pair.Value))
		b.WriteByte('\n')
	}
	return b.String()
}

// Parse reads dotenv text, skipping comments, blank lines, and malformed
// lines (missing '=' or empty key). One layer of matching surrounding quotes
// is stripped from values.
func Parse(text string) *Map {
	m := NewMap()
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		m.Set(key, unquote(strings.TrimSpace(value)))
	}
	return m
}

// WriteFile renders the map and writes it with owner-only permission.
func WriteFile(path string, m *Map) error {
	if err := os.WriteFile(path, []byte(Format(m)), 0o600); err != nil {
		return fmt.Errorf("write env file: %w", err)
	}
	return nil
}

func quote(value string) string {
	needsQuoting := strings.ContainsAny(value, " \t") ||
		// A bare value Parse would mistake for a quoted one.
		(len(value) >= 2 && (value[0] == '"' || value[0] == '\'') && value[len(value)-1] == value[0])
	if !needsQuoting {
		return value
	}
	return `"` + strings.ReplaceAll(value, `"`, `\"`) + `"`
}

func unquote(value string) string {
	if len(value) < 2 {
		return value
	}
	switch {
	case value[0] == '"' && value[len(value)-1] == '"':
		return strings.ReplaceAll(value[1:len(value)-1], `\"`, `"`)
	case value[0] == '\'' && value[len(value)-1] == '\'':
		return value[1 : len(value)-1]
	}
	return value
}
