// Package audit records admin mutations (content edits, publication
// changes, media deletions, retention sweeps) in the audit_log table so
// the admin SPA can show who changed what and when. It only observes:
// a failed audit write never fails the request that caused it.
package audit

import "time"

// --- Action Constants ---
// Each action string follows the pattern "resource.verb" for consistent
// filtering and display grouping.

const (
	ActionContentCreated       = "content.created"
	ActionContentUpdated       = "content.updated"
	ActionContentDeleted       = "content.deleted"
	ActionContentStatusChanged = "content.status_changed"
	ActionTranslationSaved     = "translation.saved"
	ActionTranslationDeleted   = "translation.deleted"

	ActionMediaUploaded = "media.uploaded"
	ActionMediaUpdated  = "media.updated"
	ActionMediaDeleted  = "media.deleted"
	ActionMediaRestored = "media.restored"
	ActionMediaPurged   = "media.purged"
	ActionMediaSwept    = "media.swept"
)

// Resource types stored in audit_log.resource_type.
const (
	ResourceContent = "content"
	ResourceMedia   = "media"
)

// Entry is a single recorded admin action. Details holds action-specific
// metadata (e.g. the old and new status of a transition).
type Entry struct {
	ID           int64          `json:"id"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resourceType"`
	ResourceID   string         `json:"resourceId,omitempty"`
	RemoteIP     string         `json:"remoteIp,omitempty"`
	RequestID    string         `json:"requestId,omitempty"`
	Details      map[string]any `json:"details,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// ListFilter narrows the activity feed. Empty fields match everything.
type ListFilter struct {
	ResourceType string `query:"resource_type" validate:"omitempty,oneof=content media"`
	ResourceID   string `query:"resource_id" validate:"max=36"`
	Page         int    `query:"page"`
}
