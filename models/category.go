package models

import "time"

// Category is an optional classification attached to posts. Hiding a category
// hides every post filed under it; deleting one only clears the reference.
type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:256;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Slug        string    `gorm:"size:64;uniqueIndex;not null" json:"slug"`
	IsPublished bool      `gorm:"not null;default:true" json:"is_published"`
	CreatedAt   time.Time `json:"created_at"`

	Posts []Post `gorm:"foreignKey:CategoryID" json:"-"`
}
