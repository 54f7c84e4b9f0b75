package dto

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/helpdesk-kit/helpdesk-api/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
	Category    string `json:"category" validate:"required"`
	Priority    string `json:"priority" validate:"omitempty,oneof=low medium high critical"`
}

// UpdateTicketRequest carries optional ticket updates. assigned_to is kept
// raw so an explicit null (unassign) is distinguishable from an absent
// field.
type UpdateTicketRequest struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	Priority    *string         `json:"priority"`
	Status      *string         `json:"status"`
	AssignedTo  json.RawMessage `json:"assigned_to"`
}

// AssignedToValue decodes the assigned_to field. present is false when the
// key was absent; a present nil value means unassign.
func (r *UpdateTicketRequest) AssignedToValue() (value *int64, present bool, err error) {
	if len(r.AssignedTo) == 0 {
		return nil, false, nil
	}
	if bytes.Equal(bytes.TrimSpace(r.AssignedTo), []byte("null")) {
		return nil, true, nil
	}
	var id int64
	if err := json.Unmarshal(r.AssignedTo, &id); err != nil {
		return nil, true, err
	}
	return &id, true, nil
}

// TicketResponse is the serialized ticket representation.
type TicketResponse struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
	CreatedBy   int64      `json:"created_by"`
	AssignedTo  *int64     `json:"assigned_to"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ResolvedAt  *time.Time `json:"resolved_at"`
}

// NewTicketResponse maps a domain ticket onto its wire form.
func NewTicketResponse(ticket *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:          ticket.ID,
		Title:       ticket.Title,
		Description: ticket.Description,
		Category:    ticket.Category,
		Priority:    string(ticket.Priority),
		Status:      string(ticket.Status),
		CreatedBy:   ticket.CreatedBy,
		AssignedTo:  ticket.AssignedTo,
		CreatedAt:   ticket.CreatedAt,
		UpdatedAt:   ticket.UpdatedAt,
		ResolvedAt:  ticket.ResolvedAt,
	}
}

// NewTicketResponses maps a slice of tickets.
func NewTicketResponses(tickets []domain.Ticket) []TicketResponse {
	out := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		out = append(out, NewTicketResponse(&tickets[i]))
	}
	return out
}

// ActivityResponse is the serialized audit entry.
type ActivityResponse struct {
	ID          int64     `json:"id"`
	TicketID    int64     `json:"ticket_id"`
	UserID      int64     `json:"user_id"`
	Action      string    `json:"action"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewActivityResponses maps audit entries.
func NewActivityResponses(entries []domain.ActivityLog) []ActivityResponse {
	out := make([]ActivityResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, ActivityResponse{
			ID:          entry.ID,
			TicketID:    entry.TicketID,
			UserID:      entry.UserID,
			Action:      string(entry.Action),
			Description: entry.Description,
			CreatedAt:   entry.CreatedAt,
		})
	}
	return out
}

// StatsResponse mirrors the manager statistics payload.
type StatsResponse struct {
	TotalTickets    int64            `json:"total_tickets"`
	ByStatus        map[string]int64 `json:"by_status"`
	HighPriority    int64            `json:"high_priority_tickets"`
	CriticalTickets int64            `json:"critical_tickets"`
}

// NewStatsResponse maps queue statistics.
func NewStatsResponse(stats *domain.TicketStats) StatsResponse {
	byStatus := make(map[string]int64, len(stats.ByStatus))
	for status, count := range stats.ByStatus {
		byStatus[string(status)] = count
	}
	return StatsResponse{
		TotalTickets:    stats.Total,
		ByStatus:        byStatus,
		HighPriority:    stats.HighCount,
		CriticalTickets: stats.CritCount,
	}
}
