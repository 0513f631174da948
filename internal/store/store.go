// Package store is the durable catalog of apps, deployment history, and
// domain bindings. Every mutation persists a complete snapshot before
// returning, so a crash mid-write never leaves a partial catalog observable.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/omdev04/NodePilot-sub002/internal/domain"
)

type catalog struct {
	Apps        []domain.App           `json:"apps"`
	Deployments []domain.Deployment    `json:"deployments"`
	Domains     []domain.DomainBinding `json:"domains"`
}

func (c catalog) clone() catalog {
	return catalog{
		Apps:        append([]domain.App(nil), c.Apps...),
		Deployments: append([]domain.Deployment(nil), c.Deployments...),
		Domains:     append([]domain.DomainBinding(nil), c.Domains...),
	}
}

// Store owns the in-memory catalog and its snapshot file. Writers serialize
// on one lock; reads never block once a prior write has returned.
type Store struct {
	mu      sync.RWMutex
	path    string
	catalog catalog
}

// Open loads the snapshot at path, or starts an empty catalog when the file
// does not exist yet.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return nil, &IOError{Op: "read snapshot", Err: err}
	}
	if err := json.Unmarshal(data, &s.catalog); err != nil {
		return nil, &IOError{Op: "decode snapshot", Err: err}
	}
	return s, nil
}

// persist writes the full catalog atomically: temp file in the same
// directory, fsync, rename over the snapshot.
func (s *Store) persist(next catalog) error {
	data, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return &IOError{Op: "encode snapshot", Err: err}
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &IOError{Op: "create snapshot dir", Err: err}
		}
	}
	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return &IOError{Op: "create snapshot", Err: err}
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return &IOError{Op: "write snapshot", Err: err}
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return &IOError{Op: "sync snapshot", Err: err}
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return &IOError{Op: "close snapshot", Err: err}
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return &IOError{Op: "commit snapshot", Err: err}
	}
	s.catalog = next
	return nil
}

// GetApp returns the app with the given id.
func (s *Store) GetApp(id string) (*domain.App, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, app := range s.catalog.Apps {
		if app.ID == id {
			a := app
			return &a, nil
		}
	}
	return nil, fmt.Errorf("%w: app %s", ErrNotFound, id)
}

// GetAppByName returns the app with the given unique name.
func (s *Store) GetAppByName(name string) (*domain.App, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, app := range s.catalog.Apps {
		if app.Name == name {
			a := app
			return &a, nil
		}
	}
	return nil, fmt.Errorf("%w: app %q", ErrNotFound, name)
}

// ListApps returns all apps in insertion order.
func (s *Store) ListApps() []domain.App {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.App(nil), s.catalog.Apps...)
}

// InsertApp adds a new app. Ids and names are unique.
func (s *Store) InsertApp(app domain.App) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.catalog.Apps {
		if existing.ID == app.ID || existing.Name == app.Name {
			return fmt.Errorf("%w: app %q already exists", ErrConflict, app.Name)
		}
	}
	next := s.catalog.clone()
	next.Apps = append(next.Apps, app)
	return s.persist(next)
}

// UpdateApp replaces the stored app row with the same id.
func (s *Store) UpdateApp(app domain.App) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.catalog.clone()
	for i, existing := range next.Apps {
		if existing.ID == app.ID {
			next.Apps[i] = app
			return s.persist(next)
		}
	}
	return fmt.Errorf("%w: app %s", ErrNotFound, app.ID)
}

// DeleteApp removes the app row and cascades to its deployments and domain
// bindings in the same snapshot.
func (s *Store) DeleteApp(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.catalog.clone()
	found := false
	apps := next.Apps[:0]
	for _, app := range next.Apps {
		if app.ID == id {
			found = true
			continue
		}
		apps = append(apps, app)
	}
	if !found {
		return fmt.Errorf("%w: app %s", ErrNotFound, id)
	}
	next.Apps = apps
	deployments := next.Deployments[:0]
	for _, d := range next.Deployments {
		if d.AppID != id {
			deployments = append(deployments, d)
		}
	}
	next.Deployments = deployments
	domains := next.Domains[:0]
	for _, b := range next.Domains {
		if b.AppID != id {
			domains = append(domains, b)
		}
	}
	next.Domains = domains
	return s.persist(next)
}

// InsertDeployment appends a history row. History is append-only; there is no
// update operation.
func (s *Store) InsertDeployment(d domain.Deployment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.appExists(d.AppID) {
		return fmt.Errorf("%w: app %s", ErrNotFound, d.AppID)
	}
	next := s.catalog.clone()
	next.Deployments = append(next.Deployments, d)
	return s.persist(next)
}

// GetDeployment returns the deployment with the given id.
func (s *Store) GetDeployment(id string) (*domain.Deployment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.catalog.Deployments {
		if d.ID == id {
			row := d
			return &row, nil
		}
	}
	return nil, fmt.Errorf("%w: deployment %s", ErrNotFound, id)
}

// ListDeployments returns an app's history, newest first.
func (s *Store) ListDeployments(appID string) []domain.Deployment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Deployment
	for i := len(s.catalog.Deployments) - 1; i >= 0; i-- {
		if s.catalog.Deployments[i].AppID == appID {
			out = append(out, s.catalog.Deployments[i])
		}
	}
	return out
}

// InsertDomain adds a domain binding for an existing app.
func (s *Store) InsertDomain(b domain.DomainBinding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.appExists(b.AppID) {
		return fmt.Errorf("%w: app %s", ErrNotFound, b.AppID)
	}
	for _, existing := range s.catalog.Domains {
		if existing.Hostname == b.Hostname {
			return fmt.Errorf("%w: hostname %q already bound", ErrConflict, b.Hostname)
		}
	}
	next := s.catalog.clone()
	next.Domains = append(next.Domains, b)
	return s.persist(next)
}

// GetDomain returns the binding with the given id.
func (s *Store) GetDomain(id string) (*domain.DomainBinding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.catalog.Domains {
		if b.ID == id {
			row := b
			return &row, nil
		}
	}
	return nil, fmt.Errorf("%w: domain %s", ErrNotFound, id)
}

// ListDomains returns the bindings for an app.
func (s *Store) ListDomains(appID string) []domain.DomainBinding {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.DomainBinding
	for _, b := range s.catalog.Domains {
		if b.AppID == appID {
			out = append(out, b)
		}
	}
	return out
}

// DeleteDomain removes a single binding without touching its app.
func (s *Store) DeleteDomain(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.catalog.clone()
	for i, b := range next.Domains {
		if b.ID == id {
			next.Domains = append(next.Domains[:i], next.Domains[i+1:]...)
			return s.persist(next)
		}
	}
	return fmt.Errorf("%w: domain %s", ErrNotFound, id)
}

func (s *Store) appExists(id string) bool {
	for _, app := range s.catalog.Apps {
		if app.ID == id {
			return true
		}
	}
	return false
}
