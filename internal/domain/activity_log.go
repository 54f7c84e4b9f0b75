package domain

import "time"

// ActivityAction tags the kind of change an audit entry records.
type ActivityAction string

const (
	ActivityCreated ActivityAction = "created"
	ActivityUpdated ActivityAction = "updated"
)

// ActivityLog is an immutable audit trail entry. Rows are only ever written
// alongside the ticket mutation they describe, in the same transaction, and
// only removed through cascading ticket deletion.
type ActivityLog struct {
	ID          int64
	TicketID    int64
	UserID      int64
	Action      ActivityAction
	Description string
	CreatedAt   time.Time
}
