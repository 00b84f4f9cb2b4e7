package domain

import "time"

// AuditSnapshot is a raw remote-API result kept for later inspection.
type AuditSnapshot struct {
	ID              string
	ExtensionUserID string
	Capability      string
	PayloadJSON     string
	CreatedAt       time.Time
}
