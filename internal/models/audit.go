package models

// AuditEntry records one privileged action taken from the admin panel.
type AuditEntry struct {
	AdminID   int64  `json:"admin_id"`
	Action    string `json:"action"`
	TargetID  int64  `json:"target_id"`
	RequestID string `json:"request_id,omitempty"`
	Details   string `json:"details,omitempty"`
	Timestamp int64  `json:"timestamp"`
}
