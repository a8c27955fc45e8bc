package models

import "time"

// Location is an optional place attribute attached to posts.
type Location struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:256;not null" json:"name"`
	IsPublished bool      `gorm:"not null;default:true" json:"is_published"`
	CreatedAt   time.Time `json:"created_at"`

	Posts []Post `gorm:"foreignKey:LocationID" json:"-"`
}
