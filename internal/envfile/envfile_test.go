package envfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func pairsOf(m *Map) [][2]string {
	var out [][2]string
	for pair := m.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, [2]string{pair.Key, pair.Value})
	}
	return out
}

func TestBuildEffectiveUserOverridesDefaults(t *testing.T) {
	user := NewMap()
	user.Set("API_KEY", "abc 123")
	user.Set("NODE_ENV", "staging")

	m := BuildEffective("production", 4000, user)

	if v, _ := m.Get("PORT"); v != "4000" {
		t.Fatalf("PORT = %q, want 4000", v)
	}
	if v, _ := m.Get("NODE_ENV"); v != "staging" {
		t.Fatalf("NODE_ENV = %q, user value must win", v)
	}
	if v, _ := m.Get("API_KEY"); v != "abc 123" {
		t.Fatalf("API_KEY = %q", v)
	}
}

func TestFormatQuotesWhitespaceValues(t *testing.T) {
	m := BuildEffective("production", 4000, func() *Map {
		u := NewMap()
		u.Set("API_KEY", "abc 123")
		return u
	}())

	text := Format(m)
	want := "NODE_ENV=production\nPORT=4000\nAPI_KEY=\"abc 123\"\n"
	if text != want {
		t.Fatalf("Format = %q, want %q", text, want)
	}
}

func TestFormatEscapesEmbeddedQuotes(t *testing.T) {
	m := NewMap()
	m.Set("MSG", `say "hi" twice`)

	text := Format(m)
	if !strings.Contains(text, `MSG="say \"hi\" twice"`) {
		t.Fatalf("Format = %q", text)
	}
}

func TestParseSkipsCommentsAndMalformedLines(t *testing.T) {
	text := strings.Join([]string{
		"# a comment",
		"",
		"  KEY = value  ",
		"NOEQUALS",
		"=empty-key",
		`QUOTED="hello world"`,
		"SINGLE='single quoted'",
	}, "\n")

	m := Parse(text)
	got := pairsOf(m)
	want := [][2]string{
		{"KEY", "value"},
		{"QUOTED", "hello world"},
		{"SINGLE", "single quoted"},
	}
	if len(got) != len(want) {
		t.Fatalf("parsed %d entries, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("entry %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestRoundTrip(t *testing.T) {
	maps := []*Map{
		func() *Map {
			m := NewMap()
			m.Set("A", "1")
			m.Set("B", "two words")
			m.Set("C", `embedded "quotes" here`)
			m.Set("D", "")
			m.Set("E", `"already quoted"`)
			return m
		}(),
		BuildEffective("production", 3000, nil),
		NewMap(),
	}
	for _, m := range maps {
		back := Parse(Format(m))
		got, want := pairsOf(back), pairsOf(m)
		if len(got) != len(want) {
			t.Fatalf("round trip length %d, want %d", len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("round trip entry %d = %v, want %v", i, got[i], want[i])
			}
		}
	}
}

func TestWriteFileOwnerOnly(t *testing.T) {
	m := NewMap()
	m.Set("TOKEN", "secret")
	path := filepath.Join(t.TempDir(), ".env")

	if err := WriteFile(path, m); err != nil {
		t.Fatalf("WriteFile returned error: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("env file permission = %v, want 0600", perm)
	}
}
