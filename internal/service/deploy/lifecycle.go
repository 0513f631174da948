package deploy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/omdev04/NodePilot-sub002/internal/domain"
	"github.com/omdev04/NodePilot-sub002/internal/envfile"
	"github.com/omdev04/NodePilot-sub002/internal/store"
)

// CreateApp validates the config, unpacks the archive into a fresh directory,
// inserts the catalog row, materializes the environment, and starts the
// process. A start failure does not roll anything back: the app persists
// stopped and retriable, and a failed history row is recorded. The returned
// app is valid even when the error is non-nil in that case.
func (s *Service) CreateApp(ctx context.Context, input CreateAppInput, archivePath string, userVars *envfile.Map) (*domain.App, error) {
	if err := s.validateCreate(&input); err != nil {
		return nil, err
	}
	if _, err := s.store.GetAppByName(input.Name); err == nil {
		return nil, fmt.Errorf("%w: app %q already exists", store.ErrConflict, input.Name)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	dir := s.appDir(input.Name)
	if _, err := os.Stat(dir); err == nil {
		return nil, fmt.Errorf("%w: directory for %q already exists", store.ErrConflict, input.Name)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create app directory: %w", err)
	}
	if err := s.unpacker.Unpack(ctx, archivePath, dir); err != nil {
		// The row was never inserted; reclaim the fresh directory.
		if rmErr := s.dirs.Remove(ctx, dir); rmErr != nil {
			s.logger.Warn("cleanup after failed unpack", "app", input.Name, "error", rmErr)
		}
		return nil, fmt.Errorf("unpack archive: %w", err)
	}

	now := time.Now().UTC()
	app := domain.App{
		ID:           uuid.NewString(),
		Name:         input.Name,
		DisplayName:  input.DisplayName,
		StartCommand: input.StartCommand,
		Port:         input.Port,
		Status:       domain.AppStatusDeploying,
		DeployMethod: input.DeployMethod,
		RepoURL:      input.RepoURL,
		Branch:       input.Branch,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.InsertApp(app); err != nil {
		return nil, err
	}
	unlock := s.lockApp(app.ID)
	defer unlock()

	if err := s.configure(ctx, &app, userVars); err != nil {
		return nil, err
	}

	version := input.Version
	if version == "" {
		version = "v1"
	}
	startErr := s.startProcess(ctx, &app)
	if err := s.record(app.ID, version, archivePath, startErr, "initial deployment"); err != nil {
		return nil, err
	}
	s.logger.Info("app created", "app", app.Name, "app_id", app.ID, "version", version, "started", startErr == nil)
	if startErr != nil {
		return &app, startErr
	}
	return &app, nil
}

// Redeploy replays unpack, configure, and start against an existing app. The
// directory contents are fully overwritten and a new history row is appended;
// env vars are untouched unless separately updated.
func (s *Service) Redeploy(ctx context.Context, appID, archivePath, version string) error {
	app, err := s.store.GetApp(appID)
	if err != nil {
		return err
	}
	unlock := s.lockApp(appID)
	defer unlock()
	if version == "" {
		version = fmt.Sprintf("v%d", len(s.store.ListDeployments(appID))+1)
	}
	return s.replay(ctx, app, archivePath, version, "redeploy")
}

// RollbackTarget selects which deployment to roll back to. Zero value means
// the most recent deployment preceding the current one.
type RollbackTarget struct {
	DeploymentID string
	Version      string
}

// Rollback re-runs the deploy path using the target deployment's original
// artifact. A target whose artifact cannot be retrieved fails with
// ErrArtifactUnavailable rather than silently redeploying current code.
func (s *Service) Rollback(ctx context.Context, appID string, target RollbackTarget) error {
	app, err := s.store.GetApp(appID)
	if err != nil {
		return err
	}
	row, err := s.resolveTarget(appID, target)
	if err != nil {
		return err
	}
	if row.ArtifactPath == "" {
		return fmt.Errorf("%w: deployment %s has no retained artifact", ErrArtifactUnavailable, row.ID)
	}
	if _, err := os.Stat(row.ArtifactPath); err != nil {
		return fmt.Errorf("%w: %s", ErrArtifactUnavailable, row.ArtifactPath)
	}
	unlock := s.lockApp(appID)
	defer unlock()
	return s.replay(ctx, app, row.ArtifactPath, row.Version, fmt.Sprintf("rollback to deployment %s", row.ID))
}

func (s *Service) resolveTarget(appID string, target RollbackTarget) (*domain.Deployment, error) {
	if target.DeploymentID != "" {
		row, err := s.store.GetDeployment(target.DeploymentID)
		if err != nil {
			return nil, err
		}
		if row.AppID != appID {
			return nil, fmt.Errorf("%w: deployment %s", store.ErrNotFound, target.DeploymentID)
		}
		return row, nil
	}
	history := s.store.ListDeployments(appID)
	if target.Version != "" {
		for i := range history {
			if history[i].Version == target.Version {
				return &history[i], nil
			}
		}
		return nil, fmt.Errorf("%w: version %q", store.ErrNotFound, target.Version)
	}
	// Most recent deployment preceding the current one.
	if len(history) < 2 {
		return nil, fmt.Errorf("%w: app %s has no preceding deployment", ErrNoRollbackTarget, appID)
	}
	return &history[1], nil
}

// replay overwrites the app directory from the artifact, rewrites the env
// file from the stored blob, and restarts the process. The caller holds the
// per-app lock.
func (s *Service) replay(ctx context.Context, app *domain.App, artifactPath, version, notes string) error {
	if err := s.setStatus(app, domain.AppStatusDeploying); err != nil {
		return err
	}
	if err := s.sup.Stop(ctx, app.ProcessName()); err != nil {
		s.logger.Warn("stop before redeploy", "app", app.Name, "error", err)
	}
	dir := app.Dir(s.cfg.AppsDir)
	if err := s.dirs.Remove(ctx, dir); err != nil {
		if recErr := s.record(app.ID, version, artifactPath, err, notes); recErr != nil {
			return recErr
		}
		if stErr := s.setStatus(app, domain.AppStatusStopped); stErr != nil {
			return stErr
		}
		return fmt.Errorf("clear app directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create app directory: %w", err)
	}
	if err := s.unpacker.Unpack(ctx, artifactPath, dir); err != nil {
		if recErr := s.record(app.ID, version, artifactPath, err, notes); recErr != nil {
			return recErr
		}
		if stErr := s.setStatus(app, domain.AppStatusStopped); stErr != nil {
			return stErr
		}
		return fmt.Errorf("unpack archive: %w", err)
	}
	if err := s.writeEnvFile(app); err != nil {
		return err
	}
	startErr := s.startProcess(ctx, app)
	if err := s.record(app.ID, version, artifactPath, startErr, notes); err != nil {
		return err
	}
	s.logger.Info("app deployed", "app", app.Name, "version", version, "notes", notes, "started", startErr == nil)
	return startErr
}

// StartApp starts a stopped app's process, retrying a previously failed start.
func (s *Service) StartApp(ctx context.Context, appID string) error {
	app, err := s.store.GetApp(appID)
	if err != nil {
		return err
	}
	unlock := s.lockApp(appID)
	defer unlock()
	return s.startProcess(ctx, app)
}

// StopApp stops the app's supervised process.
func (s *Service) StopApp(ctx context.Context, appID string) error {
	app, err := s.store.GetApp(appID)
	if err != nil {
		return err
	}
	unlock := s.lockApp(appID)
	defer unlock()
	if err := s.sup.Stop(ctx, app.ProcessName()); err != nil {
		return err
	}
	return s.setStatus(app, domain.AppStatusStopped)
}

// RestartApp performs an explicit stop-then-start; the adapter is not assumed
// to support live reload.
func (s *Service) RestartApp(ctx context.Context, appID string) error {
	app, err := s.store.GetApp(appID)
	if err != nil {
		return err
	}
	unlock := s.lockApp(appID)
	defer unlock()
	if err := s.sup.Stop(ctx, app.ProcessName()); err != nil {
		s.logger.Warn("stop before restart", "app", app.Name, "error", err)
	}
	return s.startProcess(ctx, app)
}

// configure materializes the effective environment to disk and persists the
// encrypted blob on the app row. The caller holds the per-app lock.
func (s *Service) configure(ctx context.Context, app *domain.App, userVars *envfile.Map) error {
	effective := envfile.BuildEffective(s.cfg.NodeEnv, app.Port, userVars)
	text := envfile.Format(effective)
	blob, err := s.codec.Seal(text)
	if err != nil {
		return fmt.Errorf("seal env blob: %w", err)
	}
	app.EnvBlob = blob
	app.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateApp(*app); err != nil {
		return err
	}
	return envfile.WriteFile(filepath.Join(s.appDir(app.Name), ".env"), effective)
}

// writeEnvFile re-materializes the .env from the stored blob.
func (s *Service) writeEnvFile(app *domain.App) error {
	text, err := s.codec.Open(app.EnvBlob)
	if err != nil {
		s.metrics.DegradedSecrets.Inc()
		s.logger.Warn("env blob failed integrity check, materializing stored value", "app", app.Name, "error", err)
	}
	return envfile.WriteFile(filepath.Join(s.appDir(app.Name), ".env"), envfile.Parse(text))
}

func (s *Service) startProcess(ctx context.Context, app *domain.App) error {
	if err := s.sup.Start(ctx, s.startSpec(*app)); err != nil {
		if stErr := s.setStatus(app, domain.AppStatusStopped); stErr != nil {
			return stErr
		}
		return err
	}
	return s.setStatus(app, domain.AppStatusRunning)
}

func (s *Service) setStatus(app *domain.App, status string) error {
	app.Status = status
	app.UpdatedAt = time.Now().UTC()
	return s.store.UpdateApp(*app)
}

// record appends the history row for a deployment attempt, retaining the
// artifact for later rollback. History is a complete audit trail, recorded
// for failures as well.
func (s *Service) record(appID, version, archivePath string, deployErr error, notes string) error {
	status := domain.DeploymentStatusSuccess
	if deployErr != nil {
		status = domain.DeploymentStatusFailed
		notes = fmt.Sprintf("%s: %v", notes, deployErr)
	}
	id := uuid.NewString()
	artifact, err := s.retainArtifact(appID, id, archivePath)
	if err != nil {
		s.logger.Warn("artifact retention failed", "app_id", appID, "error", err)
	}
	row := domain.Deployment{
		ID:           id,
		AppID:        appID,
		Version:      version,
		Status:       status,
		Notes:        notes,
		ArtifactPath: artifact,
		CreatedAt:    time.Now().UTC(),
	}
	s.metrics.Deployments.WithLabelValues(status).Inc()
	return s.store.InsertDeployment(row)
}

// retainArtifact copies the archive under the artifacts dir so rollback can
// replay it. A missing source (already a retained artifact being replayed in
// place) reuses the existing path.
func (s *Service) retainArtifact(appID, deploymentID, archivePath string) (string, error) {
	if archivePath == "" {
		return "", nil
	}
	if filepath.Dir(filepath.Dir(archivePath)) == s.cfg.ArtifactsDir {
		return archivePath, nil
	}
	dir := filepath.Join(s.cfg.ArtifactsDir, appID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	dest := filepath.Join(dir, deploymentID+filepath.Ext(archivePath))
	if err := copyFile(archivePath, dest); err != nil {
		return "", err
	}
	return dest, nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
