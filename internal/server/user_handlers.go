package server

import (
	"github.com/aquawaran/Clon-Official/internal/models"
	"github.com/aquawaran/Clon-Official/internal/service"

	"github.com/gofiber/fiber/v2"
)

type avatarRequest struct {
	Avatar string `json:"avatar" validate:"required,max=2048"`
}

type verificationRequest struct {
	Request string `json:"request" validate:"required,max=1000"`
}

// GetMe handles GET /api/me
func (s *Server) GetMe(c *fiber.Ctx) error {
	profile, err := s.userService.Me(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(profile)
}

// GetUserProfile handles GET /api/users/:userId
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	userID := c.Params("userId")
	user, err := s.userService.Get(c.UserContext(), userID)
	if err != nil {
		return models.Respond(c, err)
	}
	counts, err := s.followService.Counts(c.UserContext(), userID)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{
		"user":            user,
		"followers_count": counts.Followers,
		"following_count": counts.Following,
	})
}

// UpdateProfile handles PUT /api/profile
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	var req service.ProfileInput
	if err := c.BodyParser(&req); err != nil {
		return models.Respond(c, models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.UpdateProfile(c.UserContext(), currentUserID(c), req)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(ownProfile(user))
}

// UpdateAvatar handles PUT /api/avatar
func (s *Server) UpdateAvatar(c *fiber.Ctx) error {
	var req avatarRequest
	if err := c.BodyParser(&req); err != nil {
		return models.Respond(c, models.NewValidationError("Invalid request body"))
	}
	if err := validateRequest(req); err != nil {
		return models.Respond(c, err)
	}

	user, err := s.userService.UpdateAvatar(c.UserContext(), currentUserID(c), req.Avatar)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(ownProfile(user))
}

// SearchUsers handles GET /api/users/search?q=
func (s *Server) SearchUsers(c *fiber.Ctx) error {
	users, err := s.userService.Search(c.UserContext(), c.Query("q"))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(users)
}

// GetUserPosts handles GET /api/users/:userId/posts
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	page := parsePagination(c, defaultPaginationLimit)
	posts, err := s.postService.UserPosts(c.UserContext(), c.Params("userId"), page.Limit, page.Offset)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(posts)
}

// ToggleFollow handles POST /api/users/:userId/follow
func (s *Server) ToggleFollow(c *fiber.Ctx) error {
	following, err := s.followService.Toggle(c.UserContext(), currentUserID(c), c.Params("userId"))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"following": following})
}

// GetFollowers handles GET /api/users/:userId/followers
func (s *Server) GetFollowers(c *fiber.Ctx) error {
	users, err := s.followService.Followers(c.UserContext(), c.Params("userId"))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(users)
}

// GetFollowing handles GET /api/users/:userId/following
func (s *Server) GetFollowing(c *fiber.Ctx) error {
	users, err := s.followService.Following(c.UserContext(), c.Params("userId"))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(users)
}

// RequestVerification handles POST /api/verification/request
func (s *Server) RequestVerification(c *fiber.Ctx) error {
	var req verificationRequest
	if err := c.BodyParser(&req); err != nil {
		return models.Respond(c, models.NewValidationError("Invalid request body"))
	}
	if err := validateRequest(req); err != nil {
		return models.Respond(c, err)
	}

	if err := s.adminService.RequestVerification(c.UserContext(), currentUserID(c), req.Request); err != nil {
		return models.Respond(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"message": "Verification request submitted"})
}

// GetNotifications handles GET /api/notifications
func (s *Server) GetNotifications(c *fiber.Ctx) error {
	list, err := s.notificationService.List(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(list)
}

// MarkNotificationsRead handles POST /api/notifications/read
func (s *Server) MarkNotificationsRead(c *fiber.Ctx) error {
	updated, err := s.notificationService.MarkAllRead(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"updated": updated})
}

// DeleteAccount handles DELETE /api/account
func (s *Server) DeleteAccount(c *fiber.Ctx) error {
	if err := s.userService.DeleteAccount(c.UserContext(), currentUserID(c)); err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Account deleted"})
}
