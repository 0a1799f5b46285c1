package server

import (
	"github.com/aquawaran/Clon-Official/internal/models"
	"github.com/aquawaran/Clon-Official/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// Pagination holds parsed limit/offset query parameters.
type Pagination struct {
	Limit  int
	Offset int
}

const (
	defaultPaginationLimit = 20
	maxPaginationLimit     = 100
)

// parsePagination extracts limit and offset query parameters with the given default limit.
func parsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	limit := c.QueryInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxPaginationLimit {
		limit = maxPaginationLimit
	}

	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	return Pagination{Limit: limit, Offset: offset}
}

// currentUserID returns the authenticated user id set by AuthRequired.
func currentUserID(c *fiber.Ctx) string {
	id, _ := c.Locals("userID").(string)
	return id
}

// validateRequest runs struct tag validation on a decoded request body.
func validateRequest(req interface{}) error {
	return validation.Struct(req)
}

// ownProfile is the account view that includes the email address.
func ownProfile(user *models.User) *models.UserProfile {
	return &models.UserProfile{User: user, Email: user.Email}
}
