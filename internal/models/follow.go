package models

import "time"

// Follow is a directed subscription from User (the follower) to Author.
// The pair is unique and a user cannot follow themselves; both rules live in the schema.
type Follow struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_follow_user_author;check:chk_follow_not_self,user_id <> author_id"`
	User      User      `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	AuthorID  uint      `json:"author_id" gorm:"not null;index;uniqueIndex:idx_follow_user_author"`
	Author    User      `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt time.Time `json:"created_at"`
}
