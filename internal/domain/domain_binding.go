package domain

import "time"

// DomainBinding maps a hostname to an app. Bindings are managed independently
// of the app lifecycle except for the cascade on app deletion.
type DomainBinding struct {
	ID         string     `json:"id"`
	AppID      string     `json:"app_id"`
	Hostname   string     `json:"hostname"`
	CertPath   string     `json:"cert_path,omitempty"`
	KeyPath    string     `json:"key_path,omitempty"`
	Verified   bool       `json:"verified"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
