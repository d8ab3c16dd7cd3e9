// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"fmt"
	"math/rand"
	"time"

	"careervivid/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers           int  `yaml:"num_users"`
	NumPosts           int  `yaml:"num_posts"`
	MaxLikesPerPost    int  `yaml:"max_likes_per_post"`
	MaxCommentsPerPost int  `yaml:"max_comments_per_post"`
	MaxDays            int  `yaml:"max_days"`
	ShouldClean        bool `yaml:"clean"`
}

// Defaults fills zero fields with workable development values.
func (o *Options) Defaults() {
	if o.NumUsers <= 0 {
		o.NumUsers = 20
	}
	if o.NumPosts <= 0 {
		o.NumPosts = 100
	}
	if o.MaxLikesPerPost <= 0 {
		o.MaxLikesPerPost = 10
	}
	if o.MaxCommentsPerPost <= 0 {
		o.MaxCommentsPerPost = 5
	}
	if o.MaxDays <= 0 {
		o.MaxDays = 90
	}
}

var postTypes = []models.PostType{
	models.PostTypeArticle,
	models.PostTypeResume,
	models.PostTypePortfolio,
	models.PostTypeWhiteboard,
}

// Run populates the database with fake users, posts, likes and comments.
// Counters are set to the exact row counts created, so the seeded data
// satisfies the same consistency the transactional write path maintains.
func Run(db *gorm.DB, opts Options) error {
	opts.Defaults()
	gofakeit.Seed(time.Now().UnixNano())
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	if opts.ShouldClean {
		if err := clean(db); err != nil {
			return fmt.Errorf("clean failed: %w", err)
		}
	}

	users, err := createUsers(db, opts.NumUsers)
	if err != nil {
		return fmt.Errorf("seeding users: %w", err)
	}

	for i := 0; i < opts.NumPosts; i++ {
		author := users[r.Intn(len(users))]
		post := buildPost(author, postTypes[r.Intn(len(postTypes))], opts.MaxDays, r)
		if err := db.Create(post).Error; err != nil {
			return fmt.Errorf("seeding post %d: %w", i, err)
		}
		if err := engage(db, post, users, opts, r); err != nil {
			return fmt.Errorf("seeding engagement for post %d: %w", post.ID, err)
		}
	}

	return nil
}

func clean(db *gorm.DB) error {
	for _, m := range []any{&models.Like{}, &models.Comment{}, &models.Post{}, &models.User{}} {
		if err := db.Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(m).Error; err != nil {
			return err
		}
	}
	return nil
}

func createUsers(db *gorm.DB, n int) ([]*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}

	users := make([]*models.User, 0, n)
	for i := 0; i < n; i++ {
		u := &models.User{
			Username:    fmt.Sprintf("%s%d", gofakeit.Username(), i),
			Email:       fmt.Sprintf("user%d.%s", i, gofakeit.Email()),
			Password:    string(hash),
			DisplayName: gofakeit.Name(),
			Avatar:      fmt.Sprintf("https://i.pravatar.cc/150?u=%s", gofakeit.UUID()),
		}
		if err := db.Create(u).Error; err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

func buildPost(author *models.User, t models.PostType, maxDays int, r *rand.Rand) *models.Post {
	var payload models.PostPayload
	switch t {
	case models.PostTypeArticle:
		payload.Article = &models.ArticlePayload{
			Title: gofakeit.Sentence(5),
			Body:  gofakeit.Paragraph(2, 4, 8, "\n"),
			Tags:  []string{gofakeit.BuzzWord(), gofakeit.BuzzWord()},
		}
	case models.PostTypeResume:
		payload.Resume = &models.ResumePayload{
			Headline:        gofakeit.JobTitle(),
			Summary:         gofakeit.Paragraph(1, 2, 6, " "),
			Skills:          []string{gofakeit.ProgrammingLanguage(), gofakeit.ProgrammingLanguage(), gofakeit.BuzzWord()},
			ExperienceYears: r.Intn(20) + 1,
		}
	case models.PostTypePortfolio:
		payload.Portfolio = &models.PortfolioPayload{
			Title:       gofakeit.AppName(),
			ProjectURL:  gofakeit.URL(),
			Description: gofakeit.Paragraph(1, 2, 6, " "),
			Screenshots: []string{fmt.Sprintf("https://picsum.photos/seed/%s/800/600", gofakeit.UUID())},
		}
	case models.PostTypeWhiteboard:
		payload.Whiteboard = &models.WhiteboardPayload{
			Title:     gofakeit.Sentence(3),
			BoardData: gofakeit.UUID(),
			Thumbnail: fmt.Sprintf("https://picsum.photos/seed/wb-%s/400/300", gofakeit.UUID()),
		}
	}

	// Realistic created_at spread across the feed window.
	daysBack := r.Intn(maxDays)
	hoursBack := r.Intn(24)
	minsBack := r.Intn(60)
	createdAt := time.Now().
		Add(-time.Duration(daysBack)*24*time.Hour -
			time.Duration(hoursBack)*time.Hour -
			time.Duration(minsBack)*time.Minute)

	return &models.Post{
		AuthorID:     author.ID,
		AuthorName:   author.Name(),
		AuthorAvatar: author.Avatar,
		Type:         t,
		Payload:      payload,
		CreatedAt:    createdAt,
	}
}

// engage creates like and comment rows for a post and writes the matching
// counter values in one pass.
func engage(db *gorm.DB, post *models.Post, users []*models.User, opts Options, r *rand.Rand) error {
	numLikes := r.Intn(opts.MaxLikesPerPost + 1)
	if numLikes > len(users) {
		numLikes = len(users)
	}
	perm := r.Perm(len(users))
	for i := 0; i < numLikes; i++ {
		like := &models.Like{PostID: post.ID, UserID: users[perm[i]].ID}
		if err := db.Create(like).Error; err != nil {
			return err
		}
	}

	numComments := r.Intn(opts.MaxCommentsPerPost + 1)
	for i := 0; i < numComments; i++ {
		author := users[r.Intn(len(users))]
		comment := &models.Comment{
			PostID:       post.ID,
			AuthorID:     author.ID,
			AuthorName:   author.Name(),
			AuthorAvatar: author.Avatar,
			Content:      gofakeit.Sentence(r.Intn(12) + 3),
		}
		if err := db.Create(comment).Error; err != nil {
			return err
		}
	}

	return db.Model(&models.Post{}).
		Where("id = ?", post.ID).
		Updates(map[string]any{
			"metrics_likes":    numLikes,
			"metrics_comments": numComments,
			"metrics_views":    (numLikes + numComments) * (r.Intn(10) + 1),
		}).Error
}
