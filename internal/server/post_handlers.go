package server

import (
	"careervivid/internal/models"
	"careervivid/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreatePost handles POST /api/posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	ctx := c.Context()
	userID := c.Locals("userID").(uint)

	var req struct {
		Type    models.PostType    `json:"type"`
		Payload models.PostPayload `json:"payload"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c,
			models.NewValidationError("Invalid request body"))
	}

	post, err := s.postSvc.CreatePost(ctx, service.CreatePostInput{
		AuthorID: userID,
		Type:     req.Type,
		Payload:  req.Payload,
	})
	if err != nil {
		return models.RespondWithError(c, err)
	}

	s.publishFeedChanged(ctx, post.Type, "post_created")

	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetFeed handles GET /api/feed?type=&cursor=&limit=
func (s *Server) GetFeed(c *fiber.Ctx) error {
	ctx := c.Context()
	typeFilter := models.PostType(c.Query("type"))
	cursor := c.Query("cursor")
	limit := c.QueryInt("limit", 0)
	userID, _ := s.optionalUserID(c)

	page, err := s.postSvc.ListFeed(ctx, typeFilter, cursor, limit, userID)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return c.JSON(page)
}

// GetPost handles GET /api/posts/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	ctx := c.Context()
	id, err := c.ParamsInt("id")
	if err != nil {
		return models.RespondWithError(c,
			models.NewValidationError("Invalid post ID"))
	}
	userID, _ := s.optionalUserID(c)

	post, err := s.postSvc.GetPost(ctx, uint(id), userID)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	ctx := c.Context()
	userID := c.Locals("userID").(uint)
	postID, err := c.ParamsInt("id")
	if err != nil {
		return models.RespondWithError(c,
			models.NewValidationError("Invalid post ID"))
	}

	post, err := s.postSvc.GetPost(ctx, uint(postID), 0)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	if err := s.postSvc.DeletePost(ctx, uint(postID), userID); err != nil {
		return models.RespondWithError(c, err)
	}

	s.publishFeedChanged(ctx, post.Type, "post_deleted")

	return c.SendStatus(fiber.StatusNoContent)
}

// RecordView handles POST /api/posts/:id/view
func (s *Server) RecordView(c *fiber.Ctx) error {
	ctx := c.Context()
	postID, err := c.ParamsInt("id")
	if err != nil {
		return models.RespondWithError(c,
			models.NewValidationError("Invalid post ID"))
	}

	if err := s.engagement.RecordView(ctx, uint(postID)); err != nil {
		return models.RespondWithError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
