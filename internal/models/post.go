package models

import "time"

// Post is an authored entry, optionally filed under a group and carrying an image.
type Post struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Text      string    `json:"text" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
	AuthorID  uint      `json:"author_id" gorm:"not null;index"`
	Author    User      `json:"author" gorm:"constraint:OnDelete:CASCADE"`
	GroupID   *uint     `json:"group_id,omitempty" gorm:"index"`
	Group     *Group    `json:"group,omitempty" gorm:"constraint:OnDelete:SET NULL"`
	Image     string    `json:"image,omitempty" gorm:"size:255"` // storage key, empty when no image
	Comments  []Comment `json:"comments,omitempty" gorm:"constraint:OnDelete:CASCADE"`
}

// Excerpt returns at most n runes of the post text.
func (p Post) Excerpt(n int) string {
	runes := []rune(p.Text)
	if len(runes) <= n {
		return p.Text
	}
	return string(runes[:n])
}
