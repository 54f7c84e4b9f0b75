package service

import (
	"context"
	"sort"
	"time"

	"github.com/helpdesk-kit/helpdesk-api/internal/domain"
	"github.com/helpdesk-kit/helpdesk-api/internal/repository"
	apperrors "github.com/helpdesk-kit/helpdesk-api/pkg/util/errorutil"
)

// memStore is an in-memory repository.Store used by service tests. It
// mirrors the Postgres schema semantics the services rely on: generated
// ids, cascade deletion of activity rows, released assignments and
// snapshot-rollback transactions.
type memStore struct {
	users    map[int64]*domain.User
	tickets  map[int64]*domain.Ticket
	activity map[int64]*domain.ActivityLog
	resets   map[int64]*repository.PasswordResetToken

	nextUserID     int64
	nextTicketID   int64
	nextActivityID int64
	nextResetID    int64
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[int64]*domain.User),
		tickets:  make(map[int64]*domain.Ticket),
		activity: make(map[int64]*domain.ActivityLog),
		resets:   make(map[int64]*repository.PasswordResetToken),
	}
}

func (s *memStore) Users() repository.UserRepository { return &memUserRepo{s} }

func (s *memStore) Tickets() repository.TicketRepository { return &memTicketRepo{s} }

func (s *memStore) Activity() repository.ActivityLogRepository { return &memActivityRepo{s} }

func (s *memStore) PasswordResets() repository.PasswordResetRepository { return &memResetRepo{s} }

func (s *memStore) WithinTx(_ context.Context, fn func(repository.Store) error) error {
	snapshot := s.clone()
	if err := fn(s); err != nil {
		*s = *snapshot
		return err
	}
	return nil
}

func (s *memStore) clone() *memStore {
	out := newMemStore()
	out.nextUserID = s.nextUserID
	out.nextTicketID = s.nextTicketID
	out.nextActivityID = s.nextActivityID
	out.nextResetID = s.nextResetID
	for id, user := range s.users {
		copied := *user
		out.users[id] = &copied
	}
	for id, ticket := range s.tickets {
		copied := *ticket
		if ticket.AssignedTo != nil {
			v := *ticket.AssignedTo
			copied.AssignedTo = &v
		}
		if ticket.ResolvedAt != nil {
			v := *ticket.ResolvedAt
			copied.ResolvedAt = &v
		}
		out.tickets[id] = &copied
	}
	for id, entry := range s.activity {
		copied := *entry
		out.activity[id] = &copied
	}
	for id, token := range s.resets {
		copied := *token
		if token.UsedAt != nil {
			v := *token.UsedAt
			copied.UsedAt = &v
		}
		out.resets[id] = &copied
	}
	return out
}

type memUserRepo struct{ s *memStore }

func (r *memUserRepo) Create(_ context.Context, user *domain.User) error {
	for _, existing := range r.s.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return apperrors.NewConflict("user already exists", nil)
		}
	}
	r.s.nextUserID++
	user.ID = r.s.nextUserID
	user.CreatedAt = time.Now().UTC()
	copied := *user
	r.s.users[user.ID] = &copied
	return nil
}

func (r *memUserRepo) Update(_ context.Context, user *domain.User) error {
	if _, ok := r.s.users[user.ID]; !ok {
		return apperrors.NewNotFound("user", nil)
	}
	copied := *user
	r.s.users[user.ID] = &copied
	return nil
}

func (r *memUserRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.s.users[id]; !ok {
		return apperrors.NewNotFound("user", nil)
	}
	for _, ticket := range r.s.tickets {
		if ticket.CreatedBy == id {
			return apperrors.NewConflict("resource is referenced by other records", nil)
		}
	}
	for _, ticket := range r.s.tickets {
		if ticket.AssignedTo != nil && *ticket.AssignedTo == id {
			ticket.AssignedTo = nil
		}
	}
	delete(r.s.users, id)
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	user, ok := r.s.users[id]
	if !ok {
		return nil, apperrors.NewNotFound("user", nil)
	}
	copied := *user
	return &copied, nil
}

func (r *memUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	for _, user := range r.s.users {
		if user.Username == username {
			copied := *user
			return &copied, nil
		}
	}
	return nil, apperrors.NewNotFound("user", nil)
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, user := range r.s.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, apperrors.NewNotFound("user", nil)
}

func (r *memUserRepo) ListByRole(_ context.Context, role domain.Role) ([]domain.User, error) {
	var result []domain.User
	for _, user := range r.s.users {
		if user.Role == role {
			result = append(result, *user)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}

type memTicketRepo struct{ s *memStore }

func (r *memTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.s.nextTicketID++
	ticket.ID = r.s.nextTicketID
	now := time.Now().UTC()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	copied := *ticket
	r.s.tickets[ticket.ID] = &copied
	return nil
}

func (r *memTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	if _, ok := r.s.tickets[ticket.ID]; !ok {
		return apperrors.NewNotFound("ticket", nil)
	}
	ticket.UpdatedAt = time.Now().UTC()
	copied := *ticket
	r.s.tickets[ticket.ID] = &copied
	return nil
}

func (r *memTicketRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.s.tickets[id]; !ok {
		return apperrors.NewNotFound("ticket", nil)
	}
	delete(r.s.tickets, id)
	for logID, entry := range r.s.activity {
		if entry.TicketID == id {
			delete(r.s.activity, logID)
		}
	}
	return nil
}

func (r *memTicketRepo) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	ticket, ok := r.s.tickets[id]
	if !ok {
		return nil, apperrors.NewNotFound("ticket", nil)
	}
	copied := *ticket
	if ticket.AssignedTo != nil {
		v := *ticket.AssignedTo
		copied.AssignedTo = &v
	}
	if ticket.ResolvedAt != nil {
		v := *ticket.ResolvedAt
		copied.ResolvedAt = &v
	}
	return &copied, nil
}

func (r *memTicketRepo) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for _, ticket := range r.s.tickets {
		if filter.CreatedBy != nil && ticket.CreatedBy != *filter.CreatedBy {
			continue
		}
		if filter.AssignedTo != nil && (ticket.AssignedTo == nil || *ticket.AssignedTo != *filter.AssignedTo) {
			continue
		}
		if filter.Status != nil && ticket.Status != *filter.Status {
			continue
		}
		if filter.Priority != nil && ticket.Priority != *filter.Priority {
			continue
		}
		result = append(result, *ticket)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *memTicketRepo) Stats(_ context.Context) (*domain.TicketStats, error) {
	stats := &domain.TicketStats{ByStatus: map[domain.TicketStatus]int64{
		domain.TicketStatusOpen:       0,
		domain.TicketStatusInProgress: 0,
		domain.TicketStatusResolved:   0,
		domain.TicketStatusClosed:     0,
	}}
	for _, ticket := range r.s.tickets {
		stats.Total++
		stats.ByStatus[ticket.Status]++
		switch ticket.Priority {
		case domain.TicketPriorityHigh:
			stats.HighCount++
		case domain.TicketPriorityCritical:
			stats.CritCount++
		}
	}
	return stats, nil
}

type memActivityRepo struct{ s *memStore }

func (r *memActivityRepo) Create(_ context.Context, entry *domain.ActivityLog) error {
	if _, ok := r.s.tickets[entry.TicketID]; !ok {
		return apperrors.NewConflict("ticket does not exist", nil)
	}
	r.s.nextActivityID++
	entry.ID = r.s.nextActivityID
	entry.CreatedAt = time.Now().UTC()
	copied := *entry
	r.s.activity[entry.ID] = &copied
	return nil
}

func (r *memActivityRepo) GetByID(_ context.Context, id int64) (*domain.ActivityLog, error) {
	entry, ok := r.s.activity[id]
	if !ok {
		return nil, apperrors.NewNotFound("activity log", nil)
	}
	copied := *entry
	return &copied, nil
}

func (r *memActivityRepo) ListByTicket(_ context.Context, ticketID int64) ([]domain.ActivityLog, error) {
	var result []domain.ActivityLog
	for _, entry := range r.s.activity {
		if entry.TicketID == ticketID {
			result = append(result, *entry)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}

type memResetRepo struct{ s *memStore }

func (r *memResetRepo) Create(_ context.Context, token *repository.PasswordResetToken) error {
	r.s.nextResetID++
	token.ID = r.s.nextResetID
	token.CreatedAt = time.Now().UTC()
	copied := *token
	r.s.resets[token.ID] = &copied
	return nil
}

func (r *memResetRepo) GetByToken(_ context.Context, tokenStr string) (*repository.PasswordResetToken, error) {
	for _, token := range r.s.resets {
		if token.Token == tokenStr {
			copied := *token
			return &copied, nil
		}
	}
	return nil, apperrors.NewNotFound("reset token", nil)
}

func (r *memResetRepo) MarkUsed(_ context.Context, id int64) error {
	token, ok := r.s.resets[id]
	if !ok {
		return apperrors.NewNotFound("reset token", nil)
	}
	now := time.Now().UTC()
	token.UsedAt = &now
	return nil
}
