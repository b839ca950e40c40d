package models

// Group is a named category posts may belong to.
type Group struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	Title       string `json:"title" gorm:"size:200;not null"`
	Slug        string `json:"slug" gorm:"size:100;not null;uniqueIndex"`
	Description string `json:"description" gorm:"type:text"`
}
