package supervisor

import (
	"context"
	"fmt"
	"sync"
)

// Fake is an in-memory Adapter recording calls, used by service tests.
type Fake struct {
	mu        sync.Mutex
	processes map[string]string
	Starts    []StartSpec
	Stops     []string

	// StartErr, when set, fails the next Start call.
	StartErr error
	// StopErr, when set, fails the next Stop call.
	StopErr error
}

// NewFake returns an empty fake supervisor.
func NewFake() *Fake {
	return &Fake{processes: make(map[string]string)}
}

func (f *Fake) Start(ctx context.Context, spec StartSpec) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Starts = append(f.Starts, spec)
	if f.StartErr != nil {
		err := f.StartErr
		f.StartErr = nil
		return err
	}
	f.processes[spec.Name] = StatusOnline
	return nil
}

func (f *Fake) Stop(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Stops = append(f.Stops, name)
	if f.StopErr != nil {
		err := f.StopErr
		f.StopErr = nil
		return err
	}
	delete(f.processes, name)
	return nil
}

func (f *Fake) Describe(ctx context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if status, ok := f.processes[name]; ok {
		return status, nil
	}
	return StatusUnknown, fmt.Errorf("%w: %s", ErrProcessNotFound, name)
}

// SetStatus forces a status for a process name.
func (f *Fake) SetStatus(name, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.processes[name] = status
}

// Running reports whether the named process is currently online.
func (f *Fake) Running(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.processes[name] == StatusOnline
}
