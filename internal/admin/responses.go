package admin

import (
	"time"

	"dcaf/pkg/platform/audit"
)

// AuditEventResponse is the HTTP response DTO for one audit record.
type AuditEventResponse struct {
	Category  string    `json:"category"`
	Timestamp time.Time `json:"timestamp"`
	Subject   string    `json:"subject"`
	Action    string    `json:"action"`
	Decision  string    `json:"decision,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	ErrorCode string    `json:"error_code,omitempty"`
}

// AuditListResponse wraps a list of audit records for HTTP response.
type AuditListResponse struct {
	Events []AuditEventResponse `json:"events"`
	Total  int                  `json:"total"`
}

func toAuditList(events []audit.Event) AuditListResponse {
	out := make([]AuditEventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, AuditEventResponse{
			Category:  string(e.Category),
			Timestamp: e.Timestamp,
			Subject:   e.Subject,
			Action:    e.Action,
			Decision:  e.Decision,
			Reason:    e.Reason,
			RequestID: e.RequestID,
			ErrorCode: e.ErrorCode,
		})
	}
	return AuditListResponse{Events: out, Total: len(out)}
}
