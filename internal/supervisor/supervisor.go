// Package supervisor defines the adapter contract for the external process
// manager that runs app start commands. The core only consumes this contract;
// the supervisor binary itself is an external collaborator.
package supervisor

import (
	"context"
	"errors"
	"fmt"
)

// Process status values reported by Describe.
const (
	StatusOnline  = "online"
	StatusStopped = "stopped"
	StatusErrored = "errored"
	StatusUnknown = "unknown"
)

// ErrProcessNotFound indicates the supervisor has no process under the name.
var ErrProcessNotFound = errors.New("supervisor: process not found")

// Error wraps a failed supervisor invocation. It is non-fatal to app
// existence: a failed start leaves the app stopped and retriable.
type Error struct {
	Op     string
	Name   string
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("supervisor: %s %s: %v: %s", e.Op, e.Name, e.Err, e.Detail)
	}
	return fmt.Sprintf("supervisor: %s %s: %v", e.Op, e.Name, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// StartSpec describes how to launch a supervised process.
type StartSpec struct {
	Name        string
	Command     string
	Args        []string
	Interpreter string
	Cwd         string
	EnvFile     string
	LogFile     string
}

// Adapter is the contract to the external process manager. Start is not
// assumed to be idempotent on an already-running name; callers stop first
// when a clean restart with new environment is required.
type Adapter interface {
	Start(ctx context.Context, spec StartSpec) error
	Stop(ctx context.Context, name string) error
	Describe(ctx context.Context, name string) (string, error)
}
