package service

import (
	"path/filepath"
	"testing"

	"careervivid/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// openTestDB opens a file-backed database in the test's temp dir. File-backed
// with a busy timeout rather than in-memory: the concurrency tests need real
// writer contention semantics, not a shared page cache.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "service.db") + "?_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Post{}, &models.Comment{}, &models.Like{},
	))
	return db
}

func createUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	u := &models.User{Username: username, Email: username + "@example.com", Password: "x"}
	require.NoError(t, db.Create(u).Error)
	return u
}

func createPost(t *testing.T, db *gorm.DB, author *models.User) *models.Post {
	t.Helper()
	p := &models.Post{
		AuthorID:   author.ID,
		AuthorName: author.Username,
		Type:       models.PostTypeArticle,
		Payload:    models.PostPayload{Article: &models.ArticlePayload{Title: "t", Body: "b"}},
	}
	require.NoError(t, db.Create(p).Error)
	return p
}
