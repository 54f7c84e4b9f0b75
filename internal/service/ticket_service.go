package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/helpdesk-kit/helpdesk-api/internal/authz"
	"github.com/helpdesk-kit/helpdesk-api/internal/domain"
	"github.com/helpdesk-kit/helpdesk-api/internal/repository"
	apperrors "github.com/helpdesk-kit/helpdesk-api/pkg/util/errorutil"
)

// TicketService coordinates the ticket lifecycle: policy checks, store
// mutations and audit entries, with every mutation and its audit rows
// committed in one transaction.
type TicketService struct {
	store repository.Store
}

// NewTicketService constructs the service.
func NewTicketService(store repository.Store) *TicketService {
	return &TicketService{store: store}
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Category    string
	Priority    domain.TicketPriority
}

// TicketUpdateInput carries optional field updates. The Set flags mark
// which fields were submitted; for assigned_to a set flag with a nil value
// is an explicit unassign.
type TicketUpdateInput struct {
	Title         string
	TitleSet      bool
	Description   string
	DescSet       bool
	Priority      domain.TicketPriority
	PrioritySet   bool
	Status        domain.TicketStatus
	StatusSet     bool
	AssignedTo    *int64
	AssignedToSet bool
}

// TicketListFilter carries optional equality filters applied after the
// visibility scope.
type TicketListFilter struct {
	Status     *domain.TicketStatus
	Priority   *domain.TicketPriority
	AssignedTo *int64
}

// TicketDetail bundles a ticket with its audit history, newest first.
type TicketDetail struct {
	Ticket   *domain.Ticket
	Activity []domain.ActivityLog
}

// Create validates input, persists the ticket and writes the "created"
// audit entry in the same transaction.
func (s *TicketService) Create(ctx context.Context, actor domain.Actor, input TicketCreateInput) (*domain.Ticket, error) {
	missing := map[string]any{}
	if strings.TrimSpace(input.Title) == "" {
		missing["title"] = "required"
	}
	if strings.TrimSpace(input.Description) == "" {
		missing["description"] = "required"
	}
	if strings.TrimSpace(input.Category) == "" {
		missing["category"] = "required"
	}
	if len(missing) > 0 {
		return nil, apperrors.NewValidationError("missing required fields", missing)
	}

	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !priority.Valid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": string(priority)})
	}

	ticket := &domain.Ticket{
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Category:    strings.TrimSpace(input.Category),
		Priority:    priority,
		Status:      domain.TicketStatusOpen,
		CreatedBy:   actor.UserID,
	}

	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := tx.Tickets().Create(ctx, ticket); err != nil {
			return err
		}
		return tx.Activity().Create(ctx, &domain.ActivityLog{
			TicketID:    ticket.ID,
			UserID:      actor.UserID,
			Action:      domain.ActivityCreated,
			Description: fmt.Sprintf("Ticket created: %s", ticket.Title),
		})
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

// Get returns a ticket with its activity history. Absence is reported
// before visibility, so callers cannot probe for ticket existence only
// through the error distinction they are entitled to.
func (s *TicketService) Get(ctx context.Context, actor domain.Actor, ticketID int64) (*TicketDetail, error) {
	ticket, err := s.store.Tickets().GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !authz.CanViewTicket(actor, ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}
	activity, err := s.store.Activity().ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}
	return &TicketDetail{Ticket: ticket, Activity: activity}, nil
}

// List returns tickets inside the actor's visibility scope, narrowed by the
// optional equality filters, newest first.
func (s *TicketService) List(ctx context.Context, actor domain.Actor, filter TicketListFilter) ([]domain.Ticket, error) {
	scope := authz.ScopeFor(actor)

	repoFilter := repository.TicketFilter{
		Status:   filter.Status,
		Priority: filter.Priority,
	}
	repoFilter.CreatedBy = scope.CreatedBy
	repoFilter.AssignedTo = scope.AssignedTo

	if filter.AssignedTo != nil {
		if scope.AssignedTo != nil && *scope.AssignedTo != *filter.AssignedTo {
			// Scope pins assigned_to to the technician; a conflicting
			// filter can never match.
			return []domain.Ticket{}, nil
		}
		repoFilter.AssignedTo = filter.AssignedTo
	}

	tickets, err := s.store.Tickets().List(ctx, repoFilter)
	if err != nil {
		return nil, err
	}
	if tickets == nil {
		tickets = []domain.Ticket{}
	}
	return tickets, nil
}

// Update applies the permitted subset of the submitted fields and stages
// one audit entry per applied change. Fields the actor may not touch are
// dropped silently. All writes commit atomically.
func (s *TicketService) Update(ctx context.Context, actor domain.Actor, ticketID int64, input TicketUpdateInput) (*domain.Ticket, error) {
	if input.PrioritySet && !input.Priority.Valid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": string(input.Priority)})
	}
	if input.StatusSet && !input.Status.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": string(input.Status)})
	}

	var updated *domain.Ticket
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		ticket, err := tx.Tickets().GetByID(ctx, ticketID)
		if err != nil {
			return err
		}

		changes := applyTicketUpdate(ticket, actor.Role, input)

		if err := tx.Tickets().Update(ctx, ticket); err != nil {
			return err
		}
		for _, change := range changes {
			entry := &domain.ActivityLog{
				TicketID:    ticket.ID,
				UserID:      actor.UserID,
				Action:      domain.ActivityUpdated,
				Description: change,
			}
			if err := tx.Activity().Create(ctx, entry); err != nil {
				return err
			}
		}
		updated = ticket
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// applyTicketUpdate mutates the ticket in place per the field-level policy
// and returns one change summary per applied field.
func applyTicketUpdate(ticket *domain.Ticket, role domain.Role, input TicketUpdateInput) []string {
	var changes []string

	if input.TitleSet && authz.TicketFieldAllowed(role, authz.FieldTitle) {
		ticket.Title = input.Title
		changes = append(changes, fmt.Sprintf("Title changed to: %s", input.Title))
	}
	if input.DescSet && authz.TicketFieldAllowed(role, authz.FieldDescription) {
		ticket.Description = input.Description
		changes = append(changes, "Description updated")
	}
	if input.PrioritySet && authz.TicketFieldAllowed(role, authz.FieldPriority) {
		old := ticket.Priority
		ticket.Priority = input.Priority
		changes = append(changes, fmt.Sprintf("Priority changed from %s to %s", old, input.Priority))
	}
	if input.StatusSet && authz.TicketFieldAllowed(role, authz.FieldStatus) {
		old := ticket.Status
		ticket.Status = input.Status
		changes = append(changes, fmt.Sprintf("Status changed from %s to %s", old, input.Status))
		// resolved_at latches on the first transition into a terminal
		// status and is never cleared afterwards.
		if input.Status.Terminal() && ticket.ResolvedAt == nil {
			now := time.Now().UTC()
			ticket.ResolvedAt = &now
		}
	}
	if input.AssignedToSet && authz.TicketFieldAllowed(role, authz.FieldAssignedTo) {
		old := ticket.AssignedTo
		ticket.AssignedTo = input.AssignedTo
		switch {
		case input.AssignedTo == nil && old != nil:
			changes = append(changes, fmt.Sprintf("Unassigned from user %d", *old))
		case input.AssignedTo != nil && old != nil:
			changes = append(changes, fmt.Sprintf("Reassigned from user %d to user %d", *old, *input.AssignedTo))
		case input.AssignedTo != nil:
			changes = append(changes, fmt.Sprintf("Assigned to user %d", *input.AssignedTo))
		}
	}
	return changes
}

// Delete removes a ticket and, through cascade, its activity trail.
// Manager only.
func (s *TicketService) Delete(ctx context.Context, actor domain.Actor, ticketID int64) error {
	if !authz.CanDeleteTicket(actor.Role) {
		return apperrors.NewForbidden("insufficient permissions")
	}
	return s.store.WithinTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Tickets().GetByID(ctx, ticketID); err != nil {
			return err
		}
		return tx.Tickets().Delete(ctx, ticketID)
	})
}

// Stats returns queue counts computed from current store state. Manager
// only.
func (s *TicketService) Stats(ctx context.Context, actor domain.Actor) (*domain.TicketStats, error) {
	if !authz.CanViewStats(actor.Role) {
		return nil, apperrors.NewForbidden("insufficient permissions")
	}
	return s.store.Tickets().Stats(ctx)
}
