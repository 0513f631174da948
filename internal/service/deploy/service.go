// Package deploy orchestrates the app lifecycle: create, redeploy, rollback,
// delete, and environment updates, composing the catalog, the directory
// lifecycle manager, the secret codec, and the supervisor adapter.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/omdev04/NodePilot-sub002/internal/dirlife"
	"github.com/omdev04/NodePilot-sub002/internal/domain"
	"github.com/omdev04/NodePilot-sub002/internal/metrics"
	"github.com/omdev04/NodePilot-sub002/internal/secret"
	"github.com/omdev04/NodePilot-sub002/internal/store"
	"github.com/omdev04/NodePilot-sub002/internal/supervisor"
	"github.com/omdev04/NodePilot-sub002/pkg/config"
)

// ErrValidation indicates rejected input. Validation failures have zero side
// effects.
var ErrValidation = errors.New("deploy: validation failed")

// ErrArtifactUnavailable indicates a rollback target whose original artifact
// cannot be retrieved.
var ErrArtifactUnavailable = errors.New("deploy: artifact unavailable")

// ErrNoRollbackTarget indicates rollback was requested with no explicit
// target and no preceding deployment to fall back to.
var ErrNoRollbackTarget = errors.New("deploy: no rollback target")

var nameExpr = regexp.MustCompile(`^[a-z][a-z0-9-]{1,62}$`)

// Unpacker expands an uploaded or cloned archive into a destination
// directory. Archive extraction is an external collaborator.
type Unpacker interface {
	Unpack(ctx context.Context, archivePath, destDir string) error
}

// DirManager is the directory lifecycle contract consumed by the
// orchestrator; *dirlife.Manager implements it.
type DirManager interface {
	Remove(ctx context.Context, path string) error
	MarkForDeletion(path string) (string, error)
	Sweep(ctx context.Context, baseDir string) dirlife.Result
}

// DomainNotifier receives the final app name and port when a hostname is
// bound. The domain/cert service is an external collaborator.
type DomainNotifier interface {
	DomainBound(ctx context.Context, appName, hostname string, port int) error
}

// Service is the deployment orchestrator. Mutations against the same app id
// are serialized by a per-app lock; operations on distinct apps proceed
// concurrently, bounded only by the store's persist-on-write lock.
type Service struct {
	store    *store.Store
	dirs     DirManager
	codec    *secret.Codec
	sup      supervisor.Adapter
	unpacker Unpacker
	domains  DomainNotifier
	logger   *slog.Logger
	metrics  *metrics.Metrics
	cfg      config.Config
	validate *validator.Validate

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New constructs the orchestrator. The domain notifier may be nil.
func New(st *store.Store, dirs DirManager, codec *secret.Codec, sup supervisor.Adapter, unpacker Unpacker, domains DomainNotifier, logger *slog.Logger, m *metrics.Metrics, cfg config.Config) *Service {
	if m == nil {
		m = metrics.NewNop()
	}
	return &Service{
		store:    st,
		dirs:     dirs,
		codec:    codec,
		sup:      sup,
		unpacker: unpacker,
		domains:  domains,
		logger:   logger.With("component", "deploy"),
		metrics:  m,
		cfg:      cfg,
		validate: validator.New(),
		locks:    make(map[string]*sync.Mutex),
	}
}

// lockApp serializes mutations for one app id.
func (s *Service) lockApp(id string) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// CreateAppInput carries the validated configuration for a new app.
type CreateAppInput struct {
	Name         string `validate:"required"`
	DisplayName  string `validate:"required,max=120"`
	StartCommand string `validate:"required"`
	Port         int    `validate:"omitempty,min=1,max=65535"`
	DeployMethod string `validate:"omitempty,oneof=upload git"`
	RepoURL      string `validate:"omitempty,url"`
	Branch       string
	Version      string
}

func (s *Service) validateCreate(input *CreateAppInput) error {
	if err := s.validate.Struct(input); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if !nameExpr.MatchString(input.Name) {
		return fmt.Errorf("%w: name %q must match %s", ErrValidation, input.Name, nameExpr)
	}
	if strings.TrimSpace(input.StartCommand) == "" {
		return fmt.Errorf("%w: start command is blank", ErrValidation)
	}
	if input.Port == 0 {
		input.Port = 3000
	}
	if input.DeployMethod == "" {
		input.DeployMethod = "upload"
	}
	return nil
}

func (s *Service) appDir(name string) string {
	return filepath.Join(s.cfg.AppsDir, name)
}

// startSpec builds the supervisor start spec for an app. A leading "node" in
// the start command becomes the interpreter; the next token is the script.
func (s *Service) startSpec(app domain.App) supervisor.StartSpec {
	dir := app.Dir(s.cfg.AppsDir)
	spec := supervisor.StartSpec{
		Name:    app.ProcessName(),
		Cwd:     dir,
		EnvFile: filepath.Join(dir, ".env"),
		LogFile: filepath.Join(dir, "app.log"),
	}
	fields := strings.Fields(app.StartCommand)
	if len(fields) > 1 && (fields[0] == "node" || fields[0] == "nodejs") {
		spec.Interpreter = "node"
		fields = fields[1:]
	}
	if len(fields) > 0 {
		spec.Command = fields[0]
		spec.Args = fields[1:]
	}
	if spec.Interpreter == "" && (strings.HasSuffix(spec.Command, ".js") || strings.HasSuffix(spec.Command, ".mjs")) {
		spec.Interpreter = "node"
	}
	return spec
}
