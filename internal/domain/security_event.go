package domain

import "time"

// Security event types.
const (
	SecurityEventBadToken             = "auth.bad_token"
	SecurityEventIntegrityFailure     = "cipher.integrity_failure"
	SecurityEventPermissionEscalation = "authz.permission_escalation"
)

// Security event severities.
const (
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// SecurityEvent is an append-only audit record. PrincipalID is nil when the
// event fired before authentication completed.
type SecurityEvent struct {
	ID            string    `json:"id"`
	EventType     string    `json:"event_type"`
	Severity      string    `json:"severity"`
	PrincipalID   *string   `json:"principal_id,omitempty"`
	SourceAddress string    `json:"source_address"`
	Details       string    `json:"details"`
	CreatedAt     time.Time `json:"created_at"`
}
