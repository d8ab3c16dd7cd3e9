package service

import (
	"context"
	"errors"

	"careervivid/internal/models"
	"careervivid/internal/repository"

	"gorm.io/gorm"
)

const maxFeedLimit = 50

// PostService handles post creation and feed reads.
type PostService struct {
	postRepo        repository.PostRepository
	userRepo        repository.UserRepository
	defaultPageSize int
}

// CreatePostInput carries a new post. Payload must hold exactly the variant
// named by Type.
type CreatePostInput struct {
	AuthorID uint
	Type     models.PostType
	Payload  models.PostPayload
}

// NewPostService creates a PostService.
func NewPostService(postRepo repository.PostRepository, userRepo repository.UserRepository, defaultPageSize int) *PostService {
	if defaultPageSize <= 0 {
		defaultPageSize = 10
	}
	return &PostService{
		postRepo:        postRepo,
		userRepo:        userRepo,
		defaultPageSize: defaultPageSize,
	}
}

// CreatePost validates the tagged payload, snapshots the author's identity
// and persists the post. The snapshot is deliberate: later profile edits do
// not rewrite feed history.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if in.AuthorID == 0 {
		return nil, models.NewUnauthenticatedError("")
	}
	if !models.ValidPostType(in.Type) {
		return nil, models.NewValidationError("Invalid post type")
	}
	if err := in.Payload.Validate(in.Type); err != nil {
		return nil, err
	}

	author, err := s.userRepo.GetByID(ctx, in.AuthorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewUnauthenticatedError("Unknown caller identity")
		}
		return nil, err
	}

	post := &models.Post{
		AuthorID:     author.ID,
		AuthorName:   author.Name(),
		AuthorAvatar: author.Avatar,
		Type:         in.Type,
		Payload:      in.Payload,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// GetPost returns one post, mapping missing rows to NotFound.
func (s *PostService) GetPost(ctx context.Context, id uint, currentUserID uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, id, currentUserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, err
	}
	return post, nil
}

// ListFeed returns one cursor page of the feed, newest first. An empty
// typeFilter means unfiltered; limit 0 uses the configured default.
func (s *PostService) ListFeed(ctx context.Context, typeFilter models.PostType, cursor string, limit int, currentUserID uint) (*repository.FeedPage, error) {
	if typeFilter != "" && !models.ValidPostType(typeFilter) {
		return nil, models.NewValidationError("Invalid post type filter")
	}
	if limit <= 0 {
		limit = s.defaultPageSize
	}
	if limit > maxFeedLimit {
		limit = maxFeedLimit
	}
	return s.postRepo.ListFeed(ctx, typeFilter, cursor, limit, currentUserID)
}

// DeletePost removes the caller's own post.
func (s *PostService) DeletePost(ctx context.Context, postID, userID uint) error {
	post, err := s.GetPost(ctx, postID, 0)
	if err != nil {
		return err
	}
	if post.AuthorID != userID {
		return models.NewValidationError("You can only delete your own posts")
	}
	return s.postRepo.Delete(ctx, postID)
}
