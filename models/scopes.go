package models

import (
	"time"

	"gorm.io/gorm"
)

// VisibleAt restricts a post query to publicly visible rows: published, with
// a publication time not in the future, and either uncategorized or filed
// under a published category. This is the single source of truth for public
// listing and detail eligibility.
func VisibleAt(now time.Time) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.
			Joins("LEFT JOIN categories ON categories.id = posts.category_id").
			Where("posts.is_published = ? AND posts.pub_date <= ? AND (posts.category_id IS NULL OR categories.is_published = ?)",
				true, now, true)
	}
}

// WithCommentCount annotates each post row with the number of comments
// attached to it.
func WithCommentCount(db *gorm.DB) *gorm.DB {
	return db.Select("posts.*, (SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id) AS comment_count")
}

// WithRelated preloads the author, category, and location of each post.
func WithRelated(db *gorm.DB) *gorm.DB {
	return db.Preload("Author").Preload("Category").Preload("Location")
}
