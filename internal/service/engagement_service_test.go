package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"careervivid/internal/models"
	"careervivid/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToggleLikeFlipsStateAndCounter(t *testing.T) {
	db := openTestDB(t)
	svc := NewEngagementService(store.New(db))
	ctx := context.Background()

	user := createUser(t, db, "ada")
	post := createPost(t, db, user)

	// Like.
	liked, metrics, err := svc.ToggleLike(ctx, post.ID, user.ID)
	require.NoError(t, err)
	assert.True(t, liked)
	assert.EqualValues(t, 1, metrics.Likes)

	// Unlike.
	liked, metrics, err = svc.ToggleLike(ctx, post.ID, user.ID)
	require.NoError(t, err)
	assert.False(t, liked)
	assert.EqualValues(t, 0, metrics.Likes)

	var reloaded models.Post
	require.NoError(t, db.First(&reloaded, post.ID).Error)
	assert.EqualValues(t, 0, reloaded.Metrics.Likes)

	var rows int64
	require.NoError(t, db.Model(&models.Like{}).Where("post_id = ?", post.ID).Count(&rows).Error)
	assert.EqualValues(t, 0, rows)
}

func TestToggleLikeRequiresAuth(t *testing.T) {
	db := openTestDB(t)
	svc := NewEngagementService(store.New(db))

	_, _, err := svc.ToggleLike(context.Background(), 1, 0)
	require.Error(t, err)
	assert.Equal(t, models.CodeUnauthenticated, models.ErrorCode(err))
}

func TestToggleLikeMissingPost(t *testing.T) {
	db := openTestDB(t)
	svc := NewEngagementService(store.New(db))
	user := createUser(t, db, "ada")

	_, _, err := svc.ToggleLike(context.Background(), 9999, user.ID)
	require.Error(t, err)
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
}

// Counter consistency under contention: however the concurrent toggles
// interleave, the persisted counter must equal the number of like rows and
// never exceed one for a single user.
func TestToggleLikeConcurrentSameUser(t *testing.T) {
	db := openTestDB(t)
	svc := NewEngagementService(store.NewWithRetries(db, 10))
	ctx := context.Background()

	user := createUser(t, db, "ada")
	post := createPost(t, db, user)

	const iterations = 9
	var wg sync.WaitGroup
	var successes atomic.Int64
	for i := 0; i < iterations; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := svc.ToggleLike(ctx, post.ID, user.ID); err == nil {
				successes.Add(1)
			}
		}()
	}
	wg.Wait()

	var reloaded models.Post
	require.NoError(t, db.First(&reloaded, post.ID).Error)
	var rows int64
	require.NoError(t, db.Model(&models.Like{}).
		Where("post_id = ? AND user_id = ?", post.ID, user.ID).
		Count(&rows).Error)

	assert.EqualValues(t, rows, reloaded.Metrics.Likes,
		"counter must equal the number of like rows")
	assert.LessOrEqual(t, reloaded.Metrics.Likes, uint(1),
		"one user can hold at most one like")
	if successes.Load()%2 == 0 {
		assert.EqualValues(t, 0, rows)
	} else {
		assert.EqualValues(t, 1, rows)
	}
}

func TestAddCommentIncrementsCounter(t *testing.T) {
	db := openTestDB(t)
	svc := NewEngagementService(store.New(db))
	ctx := context.Background()

	author := createUser(t, db, "ada")
	commenter := createUser(t, db, "grace")
	post := createPost(t, db, author)

	comment, err := svc.AddComment(ctx, post.ID, commenter.ID, "  solid write-up  ")
	require.NoError(t, err)
	assert.Equal(t, "solid write-up", comment.Content, "content is trimmed")
	assert.Equal(t, commenter.ID, comment.AuthorID)
	assert.Equal(t, "grace", comment.AuthorName)

	var reloaded models.Post
	require.NoError(t, db.First(&reloaded, post.ID).Error)
	assert.EqualValues(t, 1, reloaded.Metrics.Comments)
}

func TestAddCommentEmptyContent(t *testing.T) {
	db := openTestDB(t)
	svc := NewEngagementService(store.New(db))
	user := createUser(t, db, "ada")
	post := createPost(t, db, user)

	for _, content := range []string{"", "   ", "\n\t"} {
		_, err := svc.AddComment(context.Background(), post.ID, user.ID, content)
		require.Error(t, err)
		assert.Equal(t, models.CodeInvalidArgument, models.ErrorCode(err))
	}

	// The rejected submissions must not have touched the counter.
	var reloaded models.Post
	require.NoError(t, db.First(&reloaded, post.ID).Error)
	assert.EqualValues(t, 0, reloaded.Metrics.Comments)
}

func TestAddCommentMissingPost(t *testing.T) {
	db := openTestDB(t)
	svc := NewEngagementService(store.New(db))
	user := createUser(t, db, "ada")

	_, err := svc.AddComment(context.Background(), 9999, user.ID, "hello")
	require.Error(t, err)
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
}

func TestAddCommentConcurrent(t *testing.T) {
	db := openTestDB(t)
	svc := NewEngagementService(store.NewWithRetries(db, 10))
	ctx := context.Background()

	author := createUser(t, db, "ada")
	post := createPost(t, db, author)

	const commenters = 8
	users := make([]*models.User, commenters)
	for i := range users {
		users[i] = createUser(t, db, fmt.Sprintf("user%d", i))
	}

	var wg sync.WaitGroup
	var successes atomic.Int64
	for i := 0; i < commenters; i++ {
		wg.Add(1)
		go func(u *models.User) {
			defer wg.Done()
			if _, err := svc.AddComment(ctx, post.ID, u.ID, "concurrent comment"); err == nil {
				successes.Add(1)
			}
		}(users[i])
	}
	wg.Wait()

	var reloaded models.Post
	require.NoError(t, db.First(&reloaded, post.ID).Error)
	var rows int64
	require.NoError(t, db.Model(&models.Comment{}).Where("post_id = ?", post.ID).Count(&rows).Error)

	assert.EqualValues(t, successes.Load(), rows, "every accepted comment is persisted")
	assert.EqualValues(t, rows, reloaded.Metrics.Comments,
		"no comment increment may be lost")
}

// A full engagement round on a warm post: five existing likers, one user
// toggling twice (like then unlike) while another comments concurrently.
// Whatever the interleaving, the like counter lands back on the baseline and
// exactly one comment with its increment is durable.
func TestLikeToggleAndCommentInterleaved(t *testing.T) {
	db := openTestDB(t)
	svc := NewEngagementService(store.NewWithRetries(db, 10))
	ctx := context.Background()

	author := createUser(t, db, "ada")
	toggler := createUser(t, db, "grace")
	commenter := createUser(t, db, "lin")
	post := createPost(t, db, author)

	// Baseline: five other users already like the post.
	for i := 0; i < 5; i++ {
		u := createUser(t, db, fmt.Sprintf("fan%d", i))
		require.NoError(t, db.Create(&models.Like{PostID: post.ID, UserID: u.ID}).Error)
	}
	require.NoError(t, db.Model(&models.Post{}).
		Where("id = ?", post.ID).
		UpdateColumn("metrics_likes", 5).Error)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		liked, metrics, err := svc.ToggleLike(ctx, post.ID, toggler.ID)
		if assert.NoError(t, err) {
			assert.True(t, liked)
			assert.EqualValues(t, 6, metrics.Likes)
		}

		liked, _, err = svc.ToggleLike(ctx, post.ID, toggler.ID)
		if assert.NoError(t, err) {
			assert.False(t, liked)
		}
	}()
	go func() {
		defer wg.Done()
		_, err := svc.AddComment(ctx, post.ID, commenter.ID, "great thread")
		assert.NoError(t, err)
	}()
	wg.Wait()

	var reloaded models.Post
	require.NoError(t, db.First(&reloaded, post.ID).Error)
	assert.EqualValues(t, 5, reloaded.Metrics.Likes,
		"a like-unlike pair must be a net no-op")
	assert.EqualValues(t, 1, reloaded.Metrics.Comments)

	var likeRows, commentRows int64
	require.NoError(t, db.Model(&models.Like{}).Where("post_id = ?", post.ID).Count(&likeRows).Error)
	require.NoError(t, db.Model(&models.Comment{}).Where("post_id = ?", post.ID).Count(&commentRows).Error)
	assert.EqualValues(t, 5, likeRows)
	assert.EqualValues(t, 1, commentRows)
}

func TestRecordView(t *testing.T) {
	db := openTestDB(t)
	svc := NewEngagementService(store.New(db))
	ctx := context.Background()

	user := createUser(t, db, "ada")
	post := createPost(t, db, user)

	require.NoError(t, svc.RecordView(ctx, post.ID))
	require.NoError(t, svc.RecordView(ctx, post.ID))

	var reloaded models.Post
	require.NoError(t, db.First(&reloaded, post.ID).Error)
	assert.EqualValues(t, 2, reloaded.Metrics.Views)

	err := svc.RecordView(ctx, 9999)
	require.Error(t, err)
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
}

// Like row deletion racing the decrement: deleting a row that vanished is
// reported as a conflict so the transaction retries against fresh state.
func TestToggleLikeRowConflictIsRetryable(t *testing.T) {
	assert.True(t, store.IsRetryable(store.ErrRowConflict))
	assert.True(t, store.IsRetryable(fmt.Errorf("wrap: %w", store.ErrRowConflict)))
}
