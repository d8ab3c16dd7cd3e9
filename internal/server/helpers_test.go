package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"careervivid/internal/config"
	"careervivid/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:           "0",
		JWTSecret:      "test-secret-key",
		Env:            "test",
		FeedWindowSize: 5,
		FeedPageSize:   5,
	}
}

// newTestServer builds a server over an isolated in-memory database. Redis is
// absent; the cache and notifier degrade the same way they do in production
// without Redis.
func newTestServer(t *testing.T) *Server {
	t.Helper()

	dsn := fmt.Sprintf("file:server_%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Post{}, &models.Comment{}, &models.Like{},
	))

	return NewServerWithDeps(testConfig(), db, nil)
}

// asUser injects an authenticated identity the way AuthRequired would.
func asUser(userID uint) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("userID", userID)
		return c.Next()
	}
}

func seedUser(t *testing.T, s *Server, username string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	u := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: string(hash),
	}
	require.NoError(t, s.db.Create(u).Error)
	return u
}

func seedPost(t *testing.T, s *Server, author *models.User) *models.Post {
	t.Helper()
	p := &models.Post{
		AuthorID:   author.ID,
		AuthorName: author.Username,
		Type:       models.PostTypeArticle,
		Payload:    models.PostPayload{Article: &models.ArticlePayload{Title: "t", Body: "b"}},
	}
	require.NoError(t, s.db.Create(p).Error)
	return p
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}
