package supervisor

import (
	"strings"
	"testing"
)

func TestStartArgs(t *testing.T) {
	spec := StartSpec{
		Name:        "nodepilot-blog",
		Command:     "server.js",
		Args:        []string{"--verbose"},
		Interpreter: "node",
		Cwd:         "/apps/blog",
		EnvFile:     "/apps/blog/.env",
		LogFile:     "/apps/blog/app.log",
	}

	got := strings.Join(startArgs(spec), " ")
	want := "start server.js --name nodepilot-blog --interpreter node --cwd /apps/blog --env-file /apps/blog/.env --log /apps/blog/app.log -- --verbose"
	if got != want {
		t.Fatalf("startArgs = %q, want %q", got, want)
	}
}

func TestStartArgsMinimal(t *testing.T) {
	got := strings.Join(startArgs(StartSpec{Name: "nodepilot-blog", Command: "server.js"}), " ")
	want := "start server.js --name nodepilot-blog"
	if got != want {
		t.Fatalf("startArgs = %q, want %q", got, want)
	}
}
