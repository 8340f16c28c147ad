package entity

import "time"

// Notification events.
const (
	EventSubmitted = "submitted"
	EventApproved  = "approved"
	EventRejected  = "rejected"
)

// Outbox dispatch statuses.
const (
	OutboxPending = "pending"
	OutboxSent    = "sent"
	OutboxFailed  = "failed"
)

// OutboxMessage is a durable record of one notification to deliver. It is
// written in the same transaction as the transition that caused it and
// drained by the notification worker; delivery failures land in LastError
// and never affect the committed transition.
type OutboxMessage struct {
	ID        int64      `json:"id"`
	ReportID  int64      `json:"report_id"`
	Event     string     `json:"event"`
	Recipient string     `json:"recipient"`
	Status    string     `json:"status"`
	Attempts  int        `json:"attempts"`
	LastError string     `json:"last_error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
}

// NotificationEvent carries everything the dispatcher needs to render and
// address one notification email.
type NotificationEvent struct {
	Event        string `json:"event"`
	ReportID     int64  `json:"report_id"`
	Reference    string `json:"reference"`
	EmployeeName string `json:"employee_name"`
	ReportTitle  string `json:"report_title"`
	Period       string `json:"period"`
	Reason       string `json:"reason,omitempty"`
	Recipient    string `json:"recipient"`
}
