package service

import (
	"context"
	"fmt"
	"testing"

	"careervivid/internal/models"
	"careervivid/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPostService(t *testing.T) (*PostService, *models.User) {
	t.Helper()
	db := openTestDB(t)
	user := createUser(t, db, "ada")
	svc := NewPostService(repository.NewPostRepository(db), repository.NewUserRepository(db), 10)
	return svc, user
}

func TestCreatePostSnapshotsAuthor(t *testing.T) {
	db := openTestDB(t)
	user := createUser(t, db, "ada")
	user.DisplayName = "Ada Lovelace"
	user.Avatar = "https://example.com/a.png"
	require.NoError(t, db.Save(user).Error)

	svc := NewPostService(repository.NewPostRepository(db), repository.NewUserRepository(db), 10)

	post, err := svc.CreatePost(context.Background(), CreatePostInput{
		AuthorID: user.ID,
		Type:     models.PostTypeArticle,
		Payload:  models.PostPayload{Article: &models.ArticlePayload{Title: "t", Body: "b"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", post.AuthorName)
	assert.Equal(t, "https://example.com/a.png", post.AuthorAvatar)
	assert.NotZero(t, post.ID)
	assert.EqualValues(t, 0, post.Metrics.Likes)
}

func TestCreatePostValidation(t *testing.T) {
	svc, user := newPostService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		in       CreatePostInput
		wantCode string
	}{
		{
			name:     "anonymous",
			in:       CreatePostInput{Type: models.PostTypeArticle},
			wantCode: models.CodeUnauthenticated,
		},
		{
			name:     "unknown type",
			in:       CreatePostInput{AuthorID: user.ID, Type: "poll"},
			wantCode: models.CodeInvalidArgument,
		},
		{
			name: "payload mismatch",
			in: CreatePostInput{
				AuthorID: user.ID,
				Type:     models.PostTypeResume,
				Payload:  models.PostPayload{Article: &models.ArticlePayload{Title: "t", Body: "b"}},
			},
			wantCode: models.CodeInvalidArgument,
		},
		{
			name: "unknown author",
			in: CreatePostInput{
				AuthorID: 9999,
				Type:     models.PostTypeArticle,
				Payload:  models.PostPayload{Article: &models.ArticlePayload{Title: "t", Body: "b"}},
			},
			wantCode: models.CodeUnauthenticated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreatePost(ctx, tt.in)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, models.ErrorCode(err))
		})
	}
}

func TestListFeedClampsLimit(t *testing.T) {
	db := openTestDB(t)
	user := createUser(t, db, "ada")
	svc := NewPostService(repository.NewPostRepository(db), repository.NewUserRepository(db), 10)
	ctx := context.Background()

	for i := 0; i < 60; i++ {
		_, err := svc.CreatePost(ctx, CreatePostInput{
			AuthorID: user.ID,
			Type:     models.PostTypeArticle,
			Payload:  models.PostPayload{Article: &models.ArticlePayload{Title: fmt.Sprintf("p%d", i), Body: "b"}},
		})
		require.NoError(t, err)
	}

	// Zero limit falls back to the configured default.
	page, err := svc.ListFeed(ctx, "", "", 0, 0)
	require.NoError(t, err)
	assert.Len(t, page.Posts, 10)

	// Oversized limits are capped.
	page, err = svc.ListFeed(ctx, "", "", 500, 0)
	require.NoError(t, err)
	assert.Len(t, page.Posts, maxFeedLimit)
}

func TestListFeedRejectsUnknownFilter(t *testing.T) {
	svc, _ := newPostService(t)

	_, err := svc.ListFeed(context.Background(), "poll", "", 10, 0)
	require.Error(t, err)
	assert.Equal(t, models.CodeInvalidArgument, models.ErrorCode(err))
}

func TestGetPostNotFound(t *testing.T) {
	svc, _ := newPostService(t)

	_, err := svc.GetPost(context.Background(), 9999, 0)
	require.Error(t, err)
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
}

func TestDeletePostOwnership(t *testing.T) {
	db := openTestDB(t)
	owner := createUser(t, db, "ada")
	other := createUser(t, db, "grace")
	post := createPost(t, db, owner)
	svc := NewPostService(repository.NewPostRepository(db), repository.NewUserRepository(db), 10)
	ctx := context.Background()

	err := svc.DeletePost(ctx, post.ID, other.ID)
	require.Error(t, err)
	assert.Equal(t, models.CodeInvalidArgument, models.ErrorCode(err))

	require.NoError(t, svc.DeletePost(ctx, post.ID, owner.ID))

	_, err = svc.GetPost(ctx, post.ID, 0)
	require.Error(t, err)
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
}
