package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/helpdesk-kit/helpdesk-api/internal/api/dto"
	"github.com/helpdesk-kit/helpdesk-api/internal/domain"
	"github.com/helpdesk-kit/helpdesk-api/internal/service"
	apperrors "github.com/helpdesk-kit/helpdesk-api/pkg/util/errorutil"
)

// UsersHandler exposes the user roster endpoints.
type UsersHandler struct {
	users *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(userService *service.UserService) *UsersHandler {
	return &UsersHandler{users: userService}
}

// Update handles PUT /api/users/:id.
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	userID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	input := service.UserUpdateInput{
		Email:    req.Email,
		Password: req.Password,
	}
	if req.Role != nil {
		role := domain.Role(*req.Role)
		input.Role = &role
	}

	user, err := h.users.Update(c.UserContext(), actor, userID, input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "User updated successfully",
		"user":    dto.NewUserResponse(user),
	})
}

// Delete handles DELETE /api/users/:id.
func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	userID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.users.Delete(c.UserContext(), actor, userID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "User deleted successfully"})
}

// Technicians handles GET /api/users/technicians.
func (h *UsersHandler) Technicians(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	technicians, err := h.users.ListTechnicians(c.UserContext(), actor)
	if err != nil {
		return err
	}
	items := dto.NewUserResponses(technicians)
	return c.JSON(fiber.Map{
		"technicians": items,
		"count":       len(items),
	})
}
