package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/term"

	"github.com/omdev04/NodePilot-sub002/internal/dirlife"
	"github.com/omdev04/NodePilot-sub002/internal/metrics"
	"github.com/omdev04/NodePilot-sub002/internal/secret"
	"github.com/omdev04/NodePilot-sub002/internal/service/deploy"
	"github.com/omdev04/NodePilot-sub002/internal/store"
	"github.com/omdev04/NodePilot-sub002/internal/supervisor"
	"github.com/omdev04/NodePilot-sub002/pkg/config"
	"github.com/omdev04/NodePilot-sub002/pkg/logger"
)

// core bundles the wired components shared by the subcommands.
type core struct {
	cfg     config.Config
	store   *store.Store
	dirs    *dirlife.Manager
	svc     *deploy.Service
	metrics *metrics.Metrics
	reg     *prometheus.Registry
}

func newCore(cfg config.Config) (*core, error) {
	log := logger.New("nodepilotd", logger.ParseLevel(cfg.LogLevel))

	key, err := masterKey(cfg)
	if err != nil {
		return nil, err
	}
	codec, err := secret.New(key)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(cfg.StorePath)
	if err != nil {
		return nil, err
	}
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	dirs := dirlife.NewManager(log, cfg.RemoveRetries)
	svc := deploy.New(st, dirs, codec, supervisor.NewPM2(cfg.PM2Bin), tarUnpacker{}, nil, log, m, cfg)
	return &core{cfg: cfg, store: st, dirs: dirs, svc: svc, metrics: m, reg: reg}, nil
}

// masterKey resolves the operator secret: environment first, interactive
// prompt when attached to a terminal.
func masterKey(cfg config.Config) (string, error) {
	if cfg.MasterKey != "" {
		return cfg.MasterKey, nil
	}
	if !term.IsTerminal(int(syscall.Stdin)) {
		return "", fmt.Errorf("NODEPILOT_MASTER_KEY is not set")
	}
	fmt.Fprint(os.Stderr, "master key: ")
	key, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read master key: %w", err)
	}
	if len(key) == 0 {
		return "", fmt.Errorf("master key is empty")
	}
	return string(key), nil
}

// tarUnpacker expands uploaded archives with the system tar binary.
type tarUnpacker struct{}

func (tarUnpacker) Unpack(ctx context.Context, archivePath, destDir string) error {
	cmd := exec.CommandContext(ctx, "tar", "-xzf", archivePath, "-C", destDir)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("tar extract failed: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}
