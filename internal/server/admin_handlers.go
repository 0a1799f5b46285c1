package server

import (
	"github.com/aquawaran/Clon-Official/internal/models"
	"github.com/aquawaran/Clon-Official/internal/repository"

	"github.com/gofiber/fiber/v2"
)

type banRequest struct {
	Banned *bool `json:"banned" validate:"required"`
}

// AdminListUsers handles GET /api/admin/users?filter=all|banned&q=
func (s *Server) AdminListUsers(c *fiber.Ctx) error {
	filter := c.Query("filter", "all")
	if filter != "all" && filter != "banned" {
		return models.Respond(c, models.NewValidationError("filter must be one of: all banned"))
	}
	page := parsePagination(c, maxPaginationLimit)

	users, err := s.adminService.ListUsers(c.UserContext(), currentUserID(c), repository.UserFilter{
		BannedOnly: filter == "banned",
		Query:      c.Query("q"),
		Limit:      page.Limit,
		Offset:     page.Offset,
	})
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(users)
}

// AdminSetBan handles POST /api/admin/users/:userId/ban
func (s *Server) AdminSetBan(c *fiber.Ctx) error {
	var req banRequest
	if err := c.BodyParser(&req); err != nil {
		return models.Respond(c, models.NewValidationError("Invalid request body"))
	}
	if err := validateRequest(req); err != nil {
		return models.Respond(c, err)
	}

	user, err := s.adminService.SetBan(c.UserContext(), currentUserID(c), c.Params("userId"), *req.Banned)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(user)
}

// AdminVerificationRequests handles GET /api/admin/verification
func (s *Server) AdminVerificationRequests(c *fiber.Ctx) error {
	users, err := s.adminService.VerificationRequests(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(users)
}

// AdminApproveVerification handles POST /api/admin/verification/:userId/approve
func (s *Server) AdminApproveVerification(c *fiber.Ctx) error {
	if err := s.adminService.ApproveVerification(c.UserContext(), currentUserID(c), c.Params("userId")); err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Verification approved"})
}

// AdminRejectVerification handles POST /api/admin/verification/:userId/reject
func (s *Server) AdminRejectVerification(c *fiber.Ctx) error {
	if err := s.adminService.RejectVerification(c.UserContext(), currentUserID(c), c.Params("userId")); err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Verification rejected"})
}
