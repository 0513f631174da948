package deploy

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/omdev04/NodePilot-sub002/internal/dirlife"
	"github.com/omdev04/NodePilot-sub002/internal/domain"
	"github.com/omdev04/NodePilot-sub002/internal/envfile"
	"github.com/omdev04/NodePilot-sub002/internal/supervisor"
)

// DeleteResult reports the outcome of DeleteApp. DeferredPath is set when the
// directory was marked for deletion and left for the sweep.
type DeleteResult struct {
	Deleted      bool
	DeferredPath string
}

// DeleteApp removes the app. A removable directory is deleted synchronously
// with the catalog row (cascading to deployments and domains). A locked
// directory gets one stop-and-retry, then is marked for deferred deletion
// while the row is deleted anyway, so the app disappears from the catalog
// immediately. Any other directory failure aborts the delete and preserves
// the row, so an app is never orphaned from its own directory.
func (s *Service) DeleteApp(ctx context.Context, appID string) (DeleteResult, error) {
	unlock := s.lockApp(appID)
	defer unlock()

	app, err := s.store.GetApp(appID)
	if err != nil {
		return DeleteResult{}, err
	}
	dir := app.Dir(s.cfg.AppsDir)

	err = s.dirs.Remove(ctx, dir)
	if err != nil && errors.Is(err, dirlife.ErrLocked) {
		// The supervised process likely holds handles; stop it and retry once.
		if stopErr := s.sup.Stop(ctx, app.ProcessName()); stopErr != nil {
			s.logger.Warn("stop during delete", "app", app.Name, "error", stopErr)
		}
		err = s.dirs.Remove(ctx, dir)
	}
	switch {
	case err == nil:
		if stopErr := s.sup.Stop(ctx, app.ProcessName()); stopErr != nil {
			s.logger.Warn("stop after delete", "app", app.Name, "error", stopErr)
		}
		if err := s.store.DeleteApp(appID); err != nil {
			return DeleteResult{}, err
		}
		s.removeArtifacts(ctx, appID)
		s.logger.Info("app deleted", "app", app.Name, "app_id", appID)
		return DeleteResult{Deleted: true}, nil
	case errors.Is(err, dirlife.ErrLocked):
		marker, markErr := s.dirs.MarkForDeletion(dir)
		if markErr != nil {
			return DeleteResult{}, markErr
		}
		if err := s.store.DeleteApp(appID); err != nil {
			return DeleteResult{}, err
		}
		s.removeArtifacts(ctx, appID)
		s.logger.Info("app deleted, directory deferred", "app", app.Name, "app_id", appID, "marker", marker)
		return DeleteResult{Deleted: true, DeferredPath: marker}, nil
	default:
		return DeleteResult{}, fmt.Errorf("delete app directory: %w", err)
	}
}

func (s *Service) removeArtifacts(ctx context.Context, appID string) {
	dir := filepath.Join(s.cfg.ArtifactsDir, appID)
	if err := s.dirs.Remove(ctx, dir); err != nil {
		s.logger.Warn("artifact cleanup failed", "app_id", appID, "error", err)
	}
}

// SetEnv persists the encrypted env blob, rewrites the .env file, and
// restarts the process when it is running. The per-app lock guarantees no
// .env is written after the app's row has been deleted.
func (s *Service) SetEnv(ctx context.Context, appID string, vars *envfile.Map) error {
	unlock := s.lockApp(appID)
	defer unlock()

	app, err := s.store.GetApp(appID)
	if err != nil {
		return err
	}
	if err := s.configure(ctx, app, vars); err != nil {
		return err
	}
	status, err := s.sup.Describe(ctx, app.ProcessName())
	if err != nil && !errors.Is(err, supervisor.ErrProcessNotFound) {
		s.logger.Warn("describe during env update", "app", app.Name, "error", err)
	}
	if status == supervisor.StatusOnline {
		if err := s.sup.Stop(ctx, app.ProcessName()); err != nil {
			s.logger.Warn("stop during env update", "app", app.Name, "error", err)
		}
		return s.startProcess(ctx, app)
	}
	return nil
}

// EnvVars returns the decrypted env vars for an app. A blob failing its
// integrity check is logged and parsed as-is rather than failing the read.
func (s *Service) EnvVars(ctx context.Context, appID string) (*envfile.Map, error) {
	app, err := s.store.GetApp(appID)
	if err != nil {
		return nil, err
	}
	text, err := s.codec.Open(app.EnvBlob)
	if err != nil {
		s.metrics.DegradedSecrets.Inc()
		s.logger.Warn("env blob failed integrity check", "app", app.Name, "error", err)
	}
	return envfile.Parse(text), nil
}

// AppStatus pairs a catalog row with the live supervisor status.
type AppStatus struct {
	App        domain.App
	LiveStatus string
}

// ListApps returns all apps decorated with live supervisor status. Apps the
// supervisor does not know are reported stopped.
func (s *Service) ListApps(ctx context.Context) []AppStatus {
	apps := s.store.ListApps()
	out := make([]AppStatus, 0, len(apps))
	for _, app := range apps {
		live := supervisor.StatusStopped
		status, err := s.sup.Describe(ctx, app.ProcessName())
		switch {
		case err == nil:
			live = status
		case !errors.Is(err, supervisor.ErrProcessNotFound):
			s.logger.Warn("describe failed", "app", app.Name, "error", err)
			live = supervisor.StatusUnknown
		}
		out = append(out, AppStatus{App: app, LiveStatus: live})
	}
	return out
}

// GetApp returns a single catalog row.
func (s *Service) GetApp(appID string) (*domain.App, error) {
	return s.store.GetApp(appID)
}

// History returns an app's deployment rows, newest first.
func (s *Service) History(appID string) ([]domain.Deployment, error) {
	if _, err := s.store.GetApp(appID); err != nil {
		return nil, err
	}
	return s.store.ListDeployments(appID), nil
}

// SweepOnce runs a single sweep pass over the apps directory.
func (s *Service) SweepOnce(ctx context.Context) dirlife.Result {
	return s.dirs.Sweep(ctx, s.cfg.AppsDir)
}

// AddDomain binds a hostname to the app and notifies the domain/cert
// collaborator with the final app name and port.
func (s *Service) AddDomain(ctx context.Context, appID, hostname string) (*domain.DomainBinding, error) {
	app, err := s.store.GetApp(appID)
	if err != nil {
		return nil, err
	}
	binding := domain.DomainBinding{
		ID:        uuid.NewString(),
		AppID:     appID,
		Hostname:  hostname,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.InsertDomain(binding); err != nil {
		return nil, err
	}
	if s.domains != nil {
		if err := s.domains.DomainBound(ctx, app.Name, hostname, app.Port); err != nil {
			s.logger.Warn("domain notifier failed", "app", app.Name, "hostname", hostname, "error", err)
		}
	}
	return &binding, nil
}

// Domains lists the app's bindings.
func (s *Service) Domains(appID string) []domain.DomainBinding {
	return s.store.ListDomains(appID)
}

// RemoveDomain deletes a single binding without touching the app.
func (s *Service) RemoveDomain(bindingID string) error {
	return s.store.DeleteDomain(bindingID)
}
