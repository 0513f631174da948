package supervisor

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
)

// PM2 drives the pm2 process manager through its CLI.
type PM2 struct {
	bin string
}

// NewPM2 returns a PM2 adapter using the given binary path ("pm2" when empty).
func NewPM2(bin string) *PM2 {
	if bin == "" {
		bin = "pm2"
	}
	return &PM2{bin: bin}
}

// Start launches the process under the spec's name.
func (p *PM2) Start(ctx context.Context, spec StartSpec) error {
	args := startArgs(spec)
	cmd := exec.CommandContext(ctx, p.bin, args...)
	cmd.Dir = spec.Cwd
	output, err := cmd.CombinedOutput()
	if err != nil {
		return &Error{Op: "start", Name: spec.Name, Detail: strings.TrimSpace(string(output)), Err: err}
	}
	return nil
}

// Stop stops and deregisters the named process. A process unknown to pm2 is
// treated as already stopped.
func (p *PM2) Stop(ctx context.Context, name string) error {
	cmd := exec.CommandContext(ctx, p.bin, "delete", name)
	output, err := cmd.CombinedOutput()
	if err != nil {
		detail := strings.TrimSpace(string(output))
		if strings.Contains(detail, "not found") {
			return nil
		}
		return &Error{Op: "stop", Name: name, Detail: detail, Err: err}
	}
	return nil
}

// Describe returns the pm2 status for the named process.
func (p *PM2) Describe(ctx context.Context, name string) (string, error) {
	cmd := exec.CommandContext(ctx, p.bin, "jlist")
	output, err := cmd.Output()
	if err != nil {
		return StatusUnknown, &Error{Op: "describe", Name: name, Err: err}
	}
	var processes []struct {
		Name string `json:"name"`
		Env  struct {
			Status string `json:"status"`
		} `json:"pm2_env"`
	}
	if err := json.Unmarshal(output, &processes); err != nil {
		return StatusUnknown, &Error{Op: "describe", Name: name, Err: err}
	}
	for _, proc := range processes {
		if proc.Name == name {
			return proc.Env.Status, nil
		}
	}
	return StatusUnknown, fmt.Errorf("%w: %s", ErrProcessNotFound, name)
}

func startArgs(spec StartSpec) []string {
	args := []string{"start", spec.Command, "--name", spec.Name}
	if spec.Interpreter != "" {
		args = append(args, "--interpreter", spec.Interpreter)
	}
	if spec.Cwd != "" {
		args = append(args, "--cwd", spec.Cwd)
	}
	if spec.EnvFile != "" {
		args = append(args, "--env-file", spec.EnvFile)
	}
	if spec.LogFile != "" {
		args = append(args, "--log", spec.LogFile)
	}
	if len(spec.Args) > 0 {
		args = append(args, "--")
		args = append(args, spec.Args...)
	}
	return args
}
