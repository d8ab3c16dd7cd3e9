// Package models contains data structures for the application's domain models.
package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// PostType discriminates the post variants that can appear in the feed.
type PostType string

const (
	PostTypeArticle    PostType = "article"
	PostTypeResume     PostType = "resume"
	PostTypePortfolio  PostType = "portfolio"
	PostTypeWhiteboard PostType = "whiteboard"
)

// ValidPostType reports whether t names a known post variant.
func ValidPostType(t PostType) bool {
	switch t {
	case PostTypeArticle, PostTypeResume, PostTypePortfolio, PostTypeWhiteboard:
		return true
	}
	return false
}

// Metrics is the per-post aggregate counter block. It is persisted and only
// ever mutated through store transactions, never written directly by clients.
type Metrics struct {
	Likes    uint `gorm:"not null;default:0" json:"likes"`
	Comments uint `gorm:"not null;default:0" json:"comments"`
	Views    uint `gorm:"not null;default:0" json:"views"`
}

// ArticlePayload is the variant body for article posts.
type ArticlePayload struct {
	Title string   `json:"title"`
	Body  string   `json:"body"`
	Tags  []string `json:"tags,omitempty"`
}

// ResumePayload is the variant body for resume posts.
type ResumePayload struct {
	Headline        string   `json:"headline"`
	Summary         string   `json:"summary,omitempty"`
	Skills          []string `json:"skills,omitempty"`
	ExperienceYears int      `json:"experience_years,omitempty"`
}

// PortfolioPayload is the variant body for portfolio posts.
type PortfolioPayload struct {
	Title       string   `json:"title"`
	ProjectURL  string   `json:"project_url,omitempty"`
	Description string   `json:"description,omitempty"`
	Screenshots []string `json:"screenshots,omitempty"`
}

// WhiteboardPayload is the variant body for whiteboard posts. BoardData is the
// serialized stroke set, opaque to the server.
type WhiteboardPayload struct {
	Title     string `json:"title"`
	BoardData string `json:"board_data"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// PostPayload is a tagged union: exactly one variant pointer is set, and it
// must match the owning Post's Type. Stored as a JSON column.
type PostPayload struct {
	Article    *ArticlePayload    `json:"article,omitempty"`
	Resume     *ResumePayload     `json:"resume,omitempty"`
	Portfolio  *PortfolioPayload  `json:"portfolio,omitempty"`
	Whiteboard *WhiteboardPayload `json:"whiteboard,omitempty"`
}

// Validate checks that the payload carries exactly the variant named by t.
func (p PostPayload) Validate(t PostType) error {
	set := 0
	if p.Article != nil {
		set++
	}
	if p.Resume != nil {
		set++
	}
	if p.Portfolio != nil {
		set++
	}
	if p.Whiteboard != nil {
		set++
	}
	if set != 1 {
		return NewValidationError("Post payload must contain exactly one variant")
	}

	switch t {
	case PostTypeArticle:
		if p.Article == nil {
			return NewValidationError("Post type article requires an article payload")
		}
		if p.Article.Title == "" || p.Article.Body == "" {
			return NewValidationError("Article title and body are required")
		}
	case PostTypeResume:
		if p.Resume == nil {
			return NewValidationError("Post type resume requires a resume payload")
		}
		if p.Resume.Headline == "" {
			return NewValidationError("Resume headline is required")
		}
	case PostTypePortfolio:
		if p.Portfolio == nil {
			return NewValidationError("Post type portfolio requires a portfolio payload")
		}
		if p.Portfolio.Title == "" {
			return NewValidationError("Portfolio title is required")
		}
	case PostTypeWhiteboard:
		if p.Whiteboard == nil {
			return NewValidationError("Post type whiteboard requires a whiteboard payload")
		}
		if p.Whiteboard.Title == "" || p.Whiteboard.BoardData == "" {
			return NewValidationError("Whiteboard title and board data are required")
		}
	default:
		return NewValidationError(fmt.Sprintf("Unknown post type %q", t))
	}
	return nil
}

// Title returns the human title of whichever variant is set.
func (p PostPayload) Title() string {
	switch {
	case p.Article != nil:
		return p.Article.Title
	case p.Resume != nil:
		return p.Resume.Headline
	case p.Portfolio != nil:
		return p.Portfolio.Title
	case p.Whiteboard != nil:
		return p.Whiteboard.Title
	}
	return ""
}

// Value implements driver.Valuer so gorm stores the union as JSON.
func (p PostPayload) Value() (driver.Value, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (p *PostPayload) Scan(value interface{}) error {
	if value == nil {
		*p = PostPayload{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	default:
		return errors.New("unsupported payload column type")
	}
}

// Post represents one feed entry in the CareerVivid community.
//
// Author fields are a snapshot taken from the identity provider at creation
// time; they are not refreshed if the author later changes profile data.
// CreatedAt is the authoritative feed ordering key.
type Post struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	AuthorID     uint        `gorm:"not null;index" json:"author_id"`
	AuthorName   string      `gorm:"not null" json:"author_name"`
	AuthorAvatar string      `json:"author_avatar"`
	Type         PostType    `gorm:"type:varchar(16);not null;index" json:"type"`
	Payload      PostPayload `gorm:"type:jsonb" json:"payload"`
	Metrics      Metrics     `gorm:"embedded;embeddedPrefix:metrics_" json:"metrics"`
	// Liked indicates whether the current requesting user liked this post (computed)
	Liked     bool           `gorm:"-" json:"liked"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
