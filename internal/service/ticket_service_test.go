package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helpdesk-kit/helpdesk-api/internal/domain"
	"github.com/helpdesk-kit/helpdesk-api/internal/repository"
	apperrors "github.com/helpdesk-kit/helpdesk-api/pkg/util/errorutil"
)

func seedUser(t *testing.T, store *memStore, username string, role domain.Role) domain.Actor {
	t.Helper()
	user := &domain.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		Role:         role,
	}
	require.NoError(t, store.Users().Create(context.Background(), user))
	return domain.Actor{UserID: user.ID, Role: role}
}

func createTicket(t *testing.T, svc *TicketService, actor domain.Actor, title string, priority domain.TicketPriority) *domain.Ticket {
	t.Helper()
	ticket, err := svc.Create(context.Background(), actor, TicketCreateInput{
		Title:       title,
		Description: "something broke",
		Category:    "Hardware",
		Priority:    priority,
	})
	require.NoError(t, err)
	return ticket
}

func ticketIDs(tickets []domain.Ticket) []int64 {
	ids := make([]int64, 0, len(tickets))
	for _, ticket := range tickets {
		ids = append(ids, ticket.ID)
	}
	return ids
}

func TestCreateDefaultsAndAuditEntry(t *testing.T) {
	store := newMemStore()
	svc := NewTicketService(store)
	requester := seedUser(t, store, "alice", domain.RoleUser)

	ticket, err := svc.Create(context.Background(), requester, TicketCreateInput{
		Title:       "Printer down",
		Description: "won't print",
		Category:    "Hardware",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, requester.UserID, ticket.CreatedBy)
	assert.Nil(t, ticket.ResolvedAt)

	activity, err := store.Activity().ListByTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.Len(t, activity, 1)
	assert.Equal(t, domain.ActivityCreated, activity[0].Action)
	assert.Equal(t, "Ticket created: Printer down", activity[0].Description)
	assert.Equal(t, requester.UserID, activity[0].UserID)
}

func TestCreateRejectsMissingFields(t *testing.T) {
	store := newMemStore()
	svc := NewTicketService(store)
	requester := seedUser(t, store, "alice", domain.RoleUser)

	_, err := svc.Create(context.Background(), requester, TicketCreateInput{
		Title:    "   ",
		Category: "Hardware",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	tickets, err := store.Tickets().List(context.Background(), repository.TicketFilter{})
	require.NoError(t, err)
	assert.Empty(t, tickets)
}

func TestListVisibilityPerRole(t *testing.T) {
	store := newMemStore()
	svc := NewTicketService(store)
	alice := seedUser(t, store, "alice", domain.RoleUser)
	bob := seedUser(t, store, "bob", domain.RoleUser)
	tech := seedUser(t, store, "tessa", domain.RoleTechnician)
	manager := seedUser(t, store, "mara", domain.RoleManager)

	t1 := createTicket(t, svc, alice, "alice one", "")
	t2 := createTicket(t, svc, alice, "alice two", "")
	t3 := createTicket(t, svc, bob, "bob one", "")

	// Assign bob's ticket and one of alice's to the technician.
	for _, id := range []int64{t2.ID, t3.ID} {
		_, err := svc.Update(context.Background(), manager, id, TicketUpdateInput{
			AssignedTo:    &tech.UserID,
			AssignedToSet: true,
		})
		require.NoError(t, err)
	}

	aliceSees, err := svc.List(context.Background(), alice, TicketListFilter{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{t1.ID, t2.ID}, ticketIDs(aliceSees))

	techSees, err := svc.List(context.Background(), tech, TicketListFilter{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{t2.ID, t3.ID}, ticketIDs(techSees))

	managerSees, err := svc.List(context.Background(), manager, TicketListFilter{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{t1.ID, t2.ID, t3.ID}, ticketIDs(managerSees))
}

func TestListAppliesEqualityFilters(t *testing.T) {
	store := newMemStore()
	svc := NewTicketService(store)
	manager := seedUser(t, store, "mara", domain.RoleManager)

	createTicket(t, svc, manager, "low one", domain.TicketPriorityLow)
	high := createTicket(t, svc, manager, "high one", domain.TicketPriorityHigh)

	priority := domain.TicketPriorityHigh
	tickets, err := svc.List(context.Background(), manager, TicketListFilter{Priority: &priority})
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, high.ID, tickets[0].ID)
}

func TestGetNotFoundBeforeForbidden(t *testing.T) {
	store := newMemStore()
	svc := NewTicketService(store)
	alice := seedUser(t, store, "alice", domain.RoleUser)
	bob := seedUser(t, store, "bob", domain.RoleUser)
	ticket := createTicket(t, svc, bob, "bob ticket", "")

	_, err := svc.Get(context.Background(), alice, 9999)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))

	_, err = svc.Get(context.Background(), alice, ticket.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))
}

func TestGetReturnsActivityNewestFirst(t *testing.T) {
	store := newMemStore()
	svc := NewTicketService(store)
	manager := seedUser(t, store, "mara", domain.RoleManager)
	ticket := createTicket(t, svc, manager, "flaky vpn", "")

	status := domain.TicketStatusInProgress
	_, err := svc.Update(context.Background(), manager, ticket.ID, TicketUpdateInput{
		Status:    status,
		StatusSet: true,
	})
	require.NoError(t, err)

	detail, err := svc.Get(context.Background(), manager, ticket.ID)
	require.NoError(t, err)
	require.Len(t, detail.Activity, 2)
	assert.Equal(t, domain.ActivityUpdated, detail.Activity[0].Action)
	assert.Equal(t, "Status changed from open to in_progress", detail.Activity[0].Description)
	assert.Equal(t, domain.ActivityCreated, detail.Activity[1].Action)
}

func TestResolvedAtLatchesOnce(t *testing.T) {
	store := newMemStore()
	svc := NewTicketService(store)
	tech := seedUser(t, store, "tessa", domain.RoleTechnician)
	manager := seedUser(t, store, "mara", domain.RoleManager)
	ticket := createTicket(t, svc, manager, "broken screen", "")
	_, err := svc.Update(context.Background(), manager, ticket.ID, TicketUpdateInput{
		AssignedTo:    &tech.UserID,
		AssignedToSet: true,
	})
	require.NoError(t, err)

	resolved, err := svc.Update(context.Background(), tech, ticket.ID, TicketUpdateInput{
		Status:    domain.TicketStatusResolved,
		StatusSet: true,
	})
	require.NoError(t, err)
	require.NotNil(t, resolved.ResolvedAt)
	firstResolved := *resolved.ResolvedAt

	closed, err := svc.Update(context.Background(), tech, ticket.ID, TicketUpdateInput{
		Status:    domain.TicketStatusClosed,
		StatusSet: true,
	})
	require.NoError(t, err)
	require.NotNil(t, closed.ResolvedAt)
	assert.Equal(t, firstResolved, *closed.ResolvedAt)

	// Reopening does not clear the latch either.
	reopened, err := svc.Update(context.Background(), tech, ticket.ID, TicketUpdateInput{
		Status:    domain.TicketStatusOpen,
		StatusSet: true,
	})
	require.NoError(t, err)
	require.NotNil(t, reopened.ResolvedAt)
	assert.Equal(t, firstResolved, *reopened.ResolvedAt)
}

func TestUpdateDropsUnpermittedFieldsSilently(t *testing.T) {
	store := newMemStore()
	svc := NewTicketService(store)
	alice := seedUser(t, store, "alice", domain.RoleUser)
	tech := seedUser(t, store, "tessa", domain.RoleTechnician)
	manager := seedUser(t, store, "mara", domain.RoleManager)
	ticket := createTicket(t, svc, alice, "no sound", "")

	// A user-role actor cannot assign; the call still succeeds and writes
	// no audit entry.
	updated, err := svc.Update(context.Background(), alice, ticket.ID, TicketUpdateInput{
		AssignedTo:    &tech.UserID,
		AssignedToSet: true,
	})
	require.NoError(t, err)
	assert.Nil(t, updated.AssignedTo)

	activity, err := store.Activity().ListByTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Len(t, activity, 1) // only the "created" entry

	// A technician submitting status and assigned_to together gets the
	// status applied and the assignment dropped.
	_, err = svc.Update(context.Background(), manager, ticket.ID, TicketUpdateInput{
		AssignedTo:    &tech.UserID,
		AssignedToSet: true,
	})
	require.NoError(t, err)

	other := manager.UserID
	updated, err = svc.Update(context.Background(), tech, ticket.ID, TicketUpdateInput{
		Status:        domain.TicketStatusInProgress,
		StatusSet:     true,
		AssignedTo:    &other,
		AssignedToSet: true,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, updated.Status)
	require.NotNil(t, updated.AssignedTo)
	assert.Equal(t, tech.UserID, *updated.AssignedTo)

	activity, err = store.Activity().ListByTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	// created + manager assignment + technician status change, nothing for
	// the dropped reassignment.
	require.Len(t, activity, 3)
	assert.Equal(t, "Status changed from open to in_progress", activity[0].Description)
}

func TestUpdateAssignmentAuditDescriptions(t *testing.T) {
	store := newMemStore()
	svc := NewTicketService(store)
	tech := seedUser(t, store, "tessa", domain.RoleTechnician)
	manager := seedUser(t, store, "mara", domain.RoleManager)
	ticket := createTicket(t, svc, manager, "slow laptop", "")

	_, err := svc.Update(context.Background(), manager, ticket.ID, TicketUpdateInput{
		AssignedTo:    &tech.UserID,
		AssignedToSet: true,
	})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), manager, ticket.ID, TicketUpdateInput{
		AssignedTo:    &manager.UserID,
		AssignedToSet: true,
	})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), manager, ticket.ID, TicketUpdateInput{
		AssignedTo:    nil,
		AssignedToSet: true,
	})
	require.NoError(t, err)

	activity, err := store.Activity().ListByTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.Len(t, activity, 4)
	assert.Contains(t, activity[0].Description, "Unassigned from user")
	assert.Contains(t, activity[1].Description, "Reassigned from user")
	assert.Contains(t, activity[2].Description, "Assigned to user")
}

func TestDeleteCascadesActivity(t *testing.T) {
	store := newMemStore()
	svc := NewTicketService(store)
	alice := seedUser(t, store, "alice", domain.RoleUser)
	manager := seedUser(t, store, "mara", domain.RoleManager)
	ticket := createTicket(t, svc, alice, "doomed ticket", "")

	_, err := svc.Update(context.Background(), manager, ticket.ID, TicketUpdateInput{
		Status:    domain.TicketStatusClosed,
		StatusSet: true,
	})
	require.NoError(t, err)

	activity, err := store.Activity().ListByTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.Len(t, activity, 2)

	err = svc.Delete(context.Background(), alice, ticket.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))

	require.NoError(t, svc.Delete(context.Background(), manager, ticket.ID))

	_, err = svc.Get(context.Background(), manager, ticket.ID)
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
	for _, entry := range activity {
		_, err := store.Activity().GetByID(context.Background(), entry.ID)
		assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
	}
}

func TestStatsCountsByStatusAndPriority(t *testing.T) {
	store := newMemStore()
	svc := NewTicketService(store)
	alice := seedUser(t, store, "alice", domain.RoleUser)
	manager := seedUser(t, store, "mara", domain.RoleManager)

	createTicket(t, svc, alice, "open one", "")
	createTicket(t, svc, alice, "open two", domain.TicketPriorityHigh)
	inProgress := createTicket(t, svc, alice, "working", "")
	resolved := createTicket(t, svc, alice, "done", domain.TicketPriorityCritical)
	closed := createTicket(t, svc, alice, "gone", "")

	for id, status := range map[int64]domain.TicketStatus{
		inProgress.ID: domain.TicketStatusInProgress,
		resolved.ID:   domain.TicketStatusResolved,
		closed.ID:     domain.TicketStatusClosed,
	} {
		_, err := svc.Update(context.Background(), manager, id, TicketUpdateInput{
			Status:    status,
			StatusSet: true,
		})
		require.NoError(t, err)
	}

	_, err := svc.Stats(context.Background(), alice)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))

	stats, err := svc.Stats(context.Background(), manager)
	require.NoError(t, err)
	assert.Equal(t, int64(5), stats.Total)
	assert.Equal(t, int64(2), stats.ByStatus[domain.TicketStatusOpen])
	assert.Equal(t, int64(1), stats.ByStatus[domain.TicketStatusInProgress])
	assert.Equal(t, int64(1), stats.ByStatus[domain.TicketStatusResolved])
	assert.Equal(t, int64(1), stats.ByStatus[domain.TicketStatusClosed])
	assert.Equal(t, int64(1), stats.HighCount)
	assert.Equal(t, int64(1), stats.CritCount)
}

func TestUpdateRejectsUnknownEnumValues(t *testing.T) {
	store := newMemStore()
	svc := NewTicketService(store)
	manager := seedUser(t, store, "mara", domain.RoleManager)
	ticket := createTicket(t, svc, manager, "enum check", "")

	_, err := svc.Update(context.Background(), manager, ticket.ID, TicketUpdateInput{
		Status:    domain.TicketStatus("reopened"),
		StatusSet: true,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	_, err = svc.Update(context.Background(), manager, ticket.ID, TicketUpdateInput{
		Priority:    domain.TicketPriority("urgent"),
		PrioritySet: true,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
}
