package models

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// User is a registered author. Username is the public handle used in profile URLs.
type User struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Username    string    `json:"username" gorm:"size:150;not null;uniqueIndex"`
	FirstName   string    `json:"first_name" gorm:"size:150"`
	LastName    string    `json:"last_name" gorm:"size:150"`
	Email       string    `json:"email" gorm:"size:254"`
	Password    string    `json:"-"`                                          // bcrypt hash
	FirebaseUID *string   `json:"firebase_uid,omitempty" gorm:"uniqueIndex"` // nil for local accounts
	CreatedAt   time.Time `json:"created_at"`
}

// DisplayName returns the full name when set, otherwise the username.
func (u User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Username
	}
}

// JwtCustomClaims are the session cookie claims
type JwtCustomClaims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}
