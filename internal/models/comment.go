package models

import (
	"time"

	"gorm.io/gorm"
)

// Comment is a reply on a post, ordered chronologically within its thread.
// Author fields are snapshotted at creation time, same rule as Post.
type Comment struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	PostID       uint           `gorm:"not null;index" json:"post_id"`
	AuthorID     uint           `gorm:"not null" json:"author_id"`
	AuthorName   string         `gorm:"not null" json:"author_name"`
	AuthorAvatar string         `json:"author_avatar"`
	Content      string         `gorm:"type:text;not null" json:"content"`
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}
