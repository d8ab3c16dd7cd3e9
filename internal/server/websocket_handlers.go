package server

import (
	"context"

	"careervivid/internal/middleware"
	"careervivid/internal/models"
	"careervivid/internal/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// FeedStreamHandler handles GET /api/ws/feed?type=&limit=&token=
//
// Each connection is a standing subscription to the top of the feed. The
// client receives the full window immediately and again after every relevant
// change; it never receives incremental patches.
func (s *Server) FeedStreamHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		filter := models.PostType(c.Query("type"))
		if filter != "" && !models.ValidPostType(filter) {
			return models.RespondWithError(c,
				models.NewValidationError("Invalid post type filter"))
		}

		limit := c.QueryInt("limit", s.config.FeedWindowSize)
		if limit <= 0 || limit > s.config.FeedWindowSize {
			limit = s.config.FeedWindowSize
		}

		// Optional identity: authenticated subscribers get liked flags.
		userID, _ := s.optionalUserID(c)

		return websocket.New(func(conn *websocket.Conn) {
			sub := &notifications.Subscriber{
				Filter: filter,
				Limit:  limit,
				UserID: userID,
			}
			client := notifications.NewClient(s.feedHub, conn, sub)

			middleware.Logger.Debug("feed stream opened",
				"filter", string(filter), "user_id", userID)
			client.Run(context.Background())
			middleware.Logger.Debug("feed stream closed",
				"filter", string(filter), "user_id", userID)
		})(c)
	}
}
