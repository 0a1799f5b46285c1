package server

import (
	"github.com/aquawaran/Clon-Official/internal/models"
	"github.com/aquawaran/Clon-Official/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createPostRequest struct {
	Content string             `json:"content" validate:"max=10000"`
	Media   []models.MediaItem `json:"media" validate:"max=5"`
}

type reactionRequest struct {
	Reaction string `json:"reaction"`
}

type commentRequest struct {
	Text string `json:"text"`
}

// GetPosts handles GET /api/posts
func (s *Server) GetPosts(c *fiber.Ctx) error {
	page := parsePagination(c, defaultPaginationLimit)
	posts, err := s.postService.Feed(c.UserContext(), page.Limit, page.Offset)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(posts)
}

// CreatePost handles POST /api/posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req createPostRequest
	if err := c.BodyParser(&req); err != nil {
		return models.Respond(c, models.NewValidationError("Invalid request body"))
	}
	if err := validateRequest(req); err != nil {
		return models.Respond(c, err)
	}

	post, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		AuthorID: currentUserID(c),
		Content:  req.Content,
		Media:    req.Media,
	})
	if err != nil {
		return models.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetPost handles GET /api/posts/:postId
func (s *Server) GetPost(c *fiber.Ctx) error {
	post, err := s.postService.GetPost(c.UserContext(), c.Params("postId"))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:postId
func (s *Server) DeletePost(c *fiber.Ctx) error {
	if err := s.postService.DeletePost(c.UserContext(), currentUserID(c), c.Params("postId")); err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Post deleted"})
}

// ToggleReaction handles POST /api/posts/:postId/reactions
func (s *Server) ToggleReaction(c *fiber.Ctx) error {
	var req reactionRequest
	if err := c.BodyParser(&req); err != nil {
		return models.Respond(c, models.NewValidationError("Invalid request body"))
	}

	reactions, err := s.postService.ToggleReaction(c.UserContext(), currentUserID(c), c.Params("postId"), req.Reaction)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"reactions": reactions})
}

// AddComment handles POST /api/posts/:postId/comments
func (s *Server) AddComment(c *fiber.Ctx) error {
	var req commentRequest
	if err := c.BodyParser(&req); err != nil {
		return models.Respond(c, models.NewValidationError("Invalid request body"))
	}

	comment, err := s.postService.AddComment(c.UserContext(), currentUserID(c), c.Params("postId"), req.Text)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}
