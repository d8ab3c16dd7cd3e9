// Package service holds the business logic between handlers and repositories.
package service

import (
	"context"
	"errors"
	"strings"

	"careervivid/internal/cache"
	"careervivid/internal/models"
	"careervivid/internal/store"

	"gorm.io/gorm"
)

// EngagementService implements the toggle/increment operations on post
// counters. Every mutation runs through store.Transact: the existence check
// and the counter delta always commit together, so no reader ever observes a
// like row without its ±1 or a comment without its increment.
type EngagementService struct {
	store *store.Store
}

// NewEngagementService creates an EngagementService on top of the counter store.
func NewEngagementService(st *store.Store) *EngagementService {
	return &EngagementService{store: st}
}

// ToggleLike flips the caller's like on a post and returns the new liked
// state plus the resulting counters.
//
// The like-row point read and the mutation happen in the same transaction,
// which closes the double-toggle race: two concurrent calls from one user
// cannot both read "not liked" and both increment — the second transaction
// either sees the first's row or fails retryably on the unique index.
// Repeated calls intentionally toggle (like → unlike); this is not a "set".
func (s *EngagementService) ToggleLike(ctx context.Context, postID, userID uint) (bool, models.Metrics, error) {
	if userID == 0 {
		return false, models.Metrics{}, models.NewUnauthenticatedError("")
	}

	var liked bool
	var metrics models.Metrics

	err := s.store.Transact(ctx, "toggle_like", func(tx *gorm.DB) error {
		var post models.Post
		if err := store.LockForUpdate(tx).First(&post, postID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Post", postID)
			}
			return err
		}

		var like models.Like
		err := tx.Where("post_id = ? AND user_id = ?", postID, userID).First(&like).Error
		switch {
		case err == nil:
			// Already liked: remove the row and decrement atomically.
			res := tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.Like{})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				// Row vanished between snapshot and delete.
				return store.ErrRowConflict
			}
			if err := tx.Model(&models.Post{}).
				Where("id = ? AND metrics_likes > 0", postID).
				UpdateColumn("metrics_likes", gorm.Expr("metrics_likes - 1")).Error; err != nil {
				return err
			}
			liked = false
			metrics = post.Metrics
			if metrics.Likes > 0 {
				metrics.Likes--
			}

		case errors.Is(err, gorm.ErrRecordNotFound):
			// Not liked: create the row and increment atomically. A
			// concurrent create from the same user trips the unique index,
			// which the store classifies as retryable.
			if err := tx.Create(&models.Like{PostID: postID, UserID: userID}).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.Post{}).
				Where("id = ?", postID).
				UpdateColumn("metrics_likes", gorm.Expr("metrics_likes + 1")).Error; err != nil {
				return err
			}
			liked = true
			metrics = post.Metrics
			metrics.Likes++

		default:
			return err
		}
		return nil
	})

	if err != nil {
		return false, models.Metrics{}, mapStoreError(err)
	}

	cache.InvalidatePost(ctx, postID)
	return liked, metrics, nil
}

// AddComment creates a comment and bumps the post's comment counter in one
// transaction. The counter write is a SQL-native increment, never a blind
// write of a client-side value, so concurrent commenters cannot lose updates.
// Author name and avatar are snapshotted from the identity row at creation.
func (s *EngagementService) AddComment(ctx context.Context, postID, userID uint, content string) (*models.Comment, error) {
	if userID == 0 {
		return nil, models.NewUnauthenticatedError("")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		// Pure client-side guard: rejected before any store work.
		return nil, models.NewValidationError("Comment content is required")
	}

	var comment *models.Comment
	err := s.store.Transact(ctx, "add_comment", func(tx *gorm.DB) error {
		var post models.Post
		if err := store.LockForUpdate(tx).First(&post, postID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Post", postID)
			}
			return err
		}

		var author models.User
		if err := tx.First(&author, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewUnauthenticatedError("Unknown caller identity")
			}
			return err
		}

		c := &models.Comment{
			PostID:       postID,
			AuthorID:     author.ID,
			AuthorName:   author.Name(),
			AuthorAvatar: author.Avatar,
			Content:      content,
		}
		if err := tx.Create(c).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Post{}).
			Where("id = ?", postID).
			UpdateColumn("metrics_comments", gorm.Expr("metrics_comments + 1")).Error; err != nil {
			return err
		}
		comment = c
		return nil
	})
	if err != nil {
		return nil, mapStoreError(err)
	}

	cache.InvalidatePost(ctx, postID)
	return comment, nil
}

// RecordView bumps the view counter. Best-effort from the caller's point of
// view but still transactional like every other counter write.
func (s *EngagementService) RecordView(ctx context.Context, postID uint) error {
	err := s.store.Transact(ctx, "record_view", func(tx *gorm.DB) error {
		res := tx.Model(&models.Post{}).
			Where("id = ?", postID).
			UpdateColumn("metrics_views", gorm.Expr("metrics_views + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Post", postID)
		}
		return nil
	})
	if err != nil {
		return mapStoreError(err)
	}
	cache.InvalidatePost(ctx, postID)
	return nil
}

// mapStoreError converts retry exhaustion into the Aborted taxonomy code and
// passes application errors through untouched.
func mapStoreError(err error) error {
	if store.IsAborted(err) {
		return models.NewAbortedError(err)
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return err
}
