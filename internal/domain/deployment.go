package domain

import "time"

// Deployment status values.
const (
	DeploymentStatusSuccess = "success"
	DeploymentStatusFailed  = "failed"
)

// Deployment captures a single deployment attempt. Rows are append-only and
// form the audit trail rollbacks select their targets from.
type Deployment struct {
	ID           string    `json:"id"`
	AppID        string    `json:"app_id"`
	Version      string    `json:"version"`
	Status       string    `json:"status"`
	Notes        string    `json:"notes,omitempty"`
	ArtifactPath string    `json:"artifact_path,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
