// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"

	"careervivid/internal/cache"
	"careervivid/internal/models"

	"gorm.io/gorm"
)

// FeedPage is one page of the reverse-chronological feed.
type FeedPage struct {
	Posts      []*models.Post `json:"posts"`
	NextCursor string         `json:"next_cursor,omitempty"`
	HasMore    bool           `json:"has_more"`
}

// PostRepository defines the interface for post data operations.
// Counter mutations are NOT here: they live in the engagement service and run
// through store.Transact. The repository is read-path plus plain CRUD.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint, currentUserID uint) (*models.Post, error)
	ListFeed(ctx context.Context, typeFilter models.PostType, cursor string, limit int, currentUserID uint) (*FeedPage, error)
	Window(ctx context.Context, typeFilter models.PostType, limit int, currentUserID uint) ([]*models.Post, error)
	Delete(ctx context.Context, id uint) error
	IsLiked(ctx context.Context, userID, postID uint) (bool, error)
	GetLikedPostIDs(ctx context.Context, userID uint, postIDs []uint) ([]uint, error)
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *postRepository) GetByID(ctx context.Context, id uint, currentUserID uint) (*models.Post, error) {
	var post models.Post

	var err error
	if currentUserID == 0 {
		// Anonymous point reads go through the cache.
		err = cache.Aside(ctx, cache.PostKey(id), &post, cache.PostTTL, func() error {
			return r.db.WithContext(ctx).First(&post, id).Error
		})
	} else {
		err = r.db.WithContext(ctx).First(&post, id).Error
	}
	if err != nil {
		return nil, err
	}

	if currentUserID != 0 {
		liked, lerr := r.IsLiked(ctx, currentUserID, post.ID)
		if lerr != nil {
			return nil, lerr
		}
		post.Liked = liked
	}
	return &post, nil
}

// ListFeed returns posts strictly older than the cursor, newest first.
// Ordering is (created_at DESC, id DESC); the id tie breaker keeps repeated
// cursor walks non-overlapping when timestamps collide.
func (r *postRepository) ListFeed(ctx context.Context, typeFilter models.PostType, cursor string, limit int, currentUserID uint) (*FeedPage, error) {
	q := r.db.WithContext(ctx).Model(&models.Post{})
	if typeFilter != "" {
		q = q.Where("type = ?", typeFilter)
	}
	if cursor != "" {
		ts, id, err := DecodeCursor(cursor)
		if err != nil {
			return nil, err
		}
		q = q.Where("created_at < ? OR (created_at = ? AND id < ?)", ts, ts, id)
	}

	var posts []*models.Post
	err := q.Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}

	if err := r.fillLiked(ctx, posts, currentUserID); err != nil {
		return nil, err
	}

	page := &FeedPage{
		Posts:   posts,
		HasMore: len(posts) == limit,
	}
	if len(posts) > 0 {
		page.NextCursor = EncodeCursor(posts[len(posts)-1])
	}
	return page, nil
}

// Window returns the N newest posts matching the filter. This is the slice
// re-delivered wholesale to live feed subscribers on every relevant change.
func (r *postRepository) Window(ctx context.Context, typeFilter models.PostType, limit int, currentUserID uint) ([]*models.Post, error) {
	q := r.db.WithContext(ctx).Model(&models.Post{})
	if typeFilter != "" {
		q = q.Where("type = ?", typeFilter)
	}

	var posts []*models.Post
	err := q.Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	if err := r.fillLiked(ctx, posts, currentUserID); err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.Post{}, id).Error; err != nil {
		return err
	}
	cache.InvalidatePost(ctx, id)
	return nil
}

// IsLiked is an unguarded point read used for the on-mount liked check. It is
// intentionally outside any transaction; a toggle racing from another device
// may briefly render stale and is corrected by the next live window delivery.
func (r *postRepository) IsLiked(ctx context.Context, userID, postID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *postRepository) GetLikedPostIDs(ctx context.Context, userID uint, postIDs []uint) ([]uint, error) {
	if len(postIDs) == 0 {
		return nil, nil
	}
	var likedPostIDs []uint
	err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("user_id = ? AND post_id IN ?", userID, postIDs).
		Pluck("post_id", &likedPostIDs).Error
	return likedPostIDs, err
}

func (r *postRepository) fillLiked(ctx context.Context, posts []*models.Post, currentUserID uint) error {
	if currentUserID == 0 || len(posts) == 0 {
		return nil
	}
	ids := make([]uint, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	likedIDs, err := r.GetLikedPostIDs(ctx, currentUserID, ids)
	if err != nil {
		return err
	}
	likedSet := make(map[uint]struct{}, len(likedIDs))
	for _, id := range likedIDs {
		likedSet[id] = struct{}{}
	}
	for _, p := range posts {
		_, p.Liked = likedSet[p.ID]
	}
	return nil
}
