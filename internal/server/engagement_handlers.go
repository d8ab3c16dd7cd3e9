package server

import (
	"careervivid/internal/models"

	"github.com/gofiber/fiber/v2"
)

// ToggleLike handles POST /api/posts/:id/like
// The endpoint toggles: if already liked it unlikes, otherwise it likes.
// The response carries the resolved state so optimistic clients can confirm
// or roll back their guess.
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	ctx := c.Context()
	userID := c.Locals("userID").(uint)
	postID, err := c.ParamsInt("id")
	if err != nil {
		return models.RespondWithError(c,
			models.NewValidationError("Invalid post ID"))
	}

	liked, metrics, err := s.engagement.ToggleLike(ctx, uint(postID), userID)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	post, err := s.postSvc.GetPost(ctx, uint(postID), 0)
	if err == nil {
		s.publishFeedChanged(ctx, post.Type, "like_toggled")
	}

	return c.JSON(fiber.Map{
		"liked":   liked,
		"metrics": metrics,
	})
}

// CreateComment handles POST /api/posts/:id/comments
func (s *Server) CreateComment(c *fiber.Ctx) error {
	ctx := c.Context()
	userID := c.Locals("userID").(uint)
	postID, err := c.ParamsInt("id")
	if err != nil {
		return models.RespondWithError(c,
			models.NewValidationError("Invalid post ID"))
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c,
			models.NewValidationError("Invalid request body"))
	}

	comment, err := s.engagement.AddComment(ctx, uint(postID), userID, req.Content)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	post, err := s.postSvc.GetPost(ctx, uint(postID), 0)
	if err == nil {
		s.publishFeedChanged(ctx, post.Type, "comment_added")
	}

	return c.Status(fiber.StatusCreated).JSON(comment)
}

// GetComments handles GET /api/posts/:id/comments
func (s *Server) GetComments(c *fiber.Ctx) error {
	ctx := c.Context()
	postID, err := c.ParamsInt("id")
	if err != nil {
		return models.RespondWithError(c,
			models.NewValidationError("Invalid post ID"))
	}

	// 404 for comments of a missing post rather than an empty list.
	if _, err := s.postSvc.GetPost(ctx, uint(postID), 0); err != nil {
		return models.RespondWithError(c, err)
	}

	comments, err := s.commentRepo.ListByPost(ctx, uint(postID))
	if err != nil {
		return models.RespondWithError(c, models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"comments": comments,
		"count":    len(comments),
	})
}
