package models

import "time"

// Like represents a user's like on a post. The (PostID, UserID) pair is the
// natural idempotency key: existence means "liked". Rows are hard-deleted on
// unlike so the toggle is re-creatable; every create/delete is paired with a
// ±1 delta on the post's likes counter inside one transaction.
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_post_user" json:"post_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_post_user" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
