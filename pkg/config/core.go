package config

import (
	"path/filepath"
	"time"
)

// Config holds runtime configuration for the deployment core.
type Config struct {
	Environment   string
	DataDir       string
	AppsDir       string
	ArtifactsDir  string
	StorePath     string
	MasterKey     string
	NodeEnv       string
	SweepInterval time.Duration
	RemoveRetries int
	LogLevel      string
	MetricsAddr   string
	PM2Bin        string
}

// Load constructs a Config from environment variables.
func Load() Config {
	dataDir := GetString("NODEPILOT_DATA_DIR", "/var/lib/nodepilot")
	return Config{
		Environment:   GetString("APP_ENV", "development"),
		DataDir:       dataDir,
		AppsDir:       GetString("NODEPILOT_APPS_DIR", filepath.Join(dataDir, "apps")),
		ArtifactsDir:  GetString("NODEPILOT_ARTIFACTS_DIR", filepath.Join(dataDir, "artifacts")),
		StorePath:     GetString("NODEPILOT_STORE_PATH", filepath.Join(dataDir, "catalog.json")),
		MasterKey:     GetString("NODEPILOT_MASTER_KEY", ""),
		NodeEnv:       GetString("NODEPILOT_NODE_ENV", "production"),
		SweepInterval: GetDuration("NODEPILOT_SWEEP_INTERVAL", 5*time.Minute),
		RemoveRetries: GetInt("NODEPILOT_REMOVE_RETRIES", 3),
		LogLevel:      GetString("NODEPILOT_LOG_LEVEL", "info"),
		MetricsAddr:   GetString("NODEPILOT_METRICS_ADDR", ""),
		PM2Bin:        GetString("NODEPILOT_PM2_BIN", "pm2"),
	}
}
