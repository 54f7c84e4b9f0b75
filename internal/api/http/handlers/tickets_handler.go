package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/helpdesk-kit/helpdesk-api/internal/api/dto"
	"github.com/helpdesk-kit/helpdesk-api/internal/auth"
	"github.com/helpdesk-kit/helpdesk-api/internal/domain"
	"github.com/helpdesk-kit/helpdesk-api/internal/service"
	apperrors "github.com/helpdesk-kit/helpdesk-api/pkg/util/errorutil"
)

// TicketsHandler exposes the ticket lifecycle endpoints.
type TicketsHandler struct {
	tickets *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{tickets: ticketService}
}

// Create handles POST /api/tickets.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	ticket, err := h.tickets.Create(c.UserContext(), actor, service.TicketCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Priority:    domain.TicketPriority(req.Priority),
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"message": "Ticket created successfully",
		"ticket":  dto.NewTicketResponse(ticket),
	})
}

// List handles GET /api/tickets.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	filter, err := parseTicketListQuery(c)
	if err != nil {
		return err
	}

	tickets, err := h.tickets.List(c.UserContext(), actor, filter)
	if err != nil {
		return err
	}
	items := dto.NewTicketResponses(tickets)
	return c.JSON(fiber.Map{
		"tickets": items,
		"count":   len(items),
	})
}

// Get handles GET /api/tickets/:id.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	ticketID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	detail, err := h.tickets.Get(c.UserContext(), actor, ticketID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"ticket":     dto.NewTicketResponse(detail.Ticket),
		"activities": dto.NewActivityResponses(detail.Activity),
	})
}

// Update handles PUT /api/tickets/:id.
func (h *TicketsHandler) Update(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	ticketID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.TicketUpdateInput{}
	if req.Title != nil {
		input.Title = *req.Title
		input.TitleSet = true
	}
	if req.Description != nil {
		input.Description = *req.Description
		input.DescSet = true
	}
	if req.Priority != nil {
		input.Priority = domain.TicketPriority(*req.Priority)
		input.PrioritySet = true
	}
	if req.Status != nil {
		input.Status = domain.TicketStatus(*req.Status)
		input.StatusSet = true
	}
	assignedTo, present, err := req.AssignedToValue()
	if err != nil {
		return apperrors.NewValidationError("invalid assigned_to", nil)
	}
	input.AssignedTo = assignedTo
	input.AssignedToSet = present

	ticket, err := h.tickets.Update(c.UserContext(), actor, ticketID, input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Ticket updated successfully",
		"ticket":  dto.NewTicketResponse(ticket),
	})
}

// Delete handles DELETE /api/tickets/:id.
func (h *TicketsHandler) Delete(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	ticketID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.tickets.Delete(c.UserContext(), actor, ticketID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Ticket deleted successfully"})
}

// Stats handles GET /api/tickets/stats.
func (h *TicketsHandler) Stats(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	stats, err := h.tickets.Stats(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewStatsResponse(stats))
}

func parseTicketListQuery(c *fiber.Ctx) (service.TicketListFilter, error) {
	var filter service.TicketListFilter
	if raw := c.Query("status"); raw != "" {
		status := domain.TicketStatus(raw)
		filter.Status = &status
	}
	if raw := c.Query("priority"); raw != "" {
		priority := domain.TicketPriority(raw)
		filter.Priority = &priority
	}
	if raw := c.Query("assigned_to"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filter, apperrors.NewValidationError("invalid assigned_to filter", nil)
		}
		filter.AssignedTo = &id
	}
	return filter, nil
}

func parseID(c *fiber.Ctx, param string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(param), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid id", nil)
	}
	return id, nil
}

func requireActor(c *fiber.Ctx) (domain.Actor, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return domain.Actor{}, apperrors.NewUnauthorized("authentication required")
	}
	return principal.Actor(), nil
}
