package domain

import (
	"path/filepath"
	"time"
)

// App status values.
const (
	AppStatusStopped   = "stopped"
	AppStatusRunning   = "running"
	AppStatusDeploying = "deploying"
)

// Deploy methods.
const (
	DeployMethodUpload = "upload"
	DeployMethodGit    = "git"
)

// App describes a deployed code unit with its own directory and supervised process.
type App struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	DisplayName  string    `json:"display_name"`
	StartCommand string    `json:"start_command"`
	Port         int       `json:"port"`
	EnvBlob      string    `json:"env_blob,omitempty"`
	Status       string    `json:"status"`
	DeployMethod string    `json:"deploy_method"`
	RepoURL      string    `json:"repo_url,omitempty"`
	Branch       string    `json:"branch,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Dir returns the app directory under the given apps root. The name
// permanently determines the path.
func (a App) Dir(appsDir string) string {
	return filepath.Join(appsDir, a.Name)
}

// ProcessName returns the supervisor process name for the app. The name
// permanently determines it.
func (a App) ProcessName() string {
	return "nodepilot-" + a.Name
}
