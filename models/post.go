package models

import "time"

// Post is the primary content entity authored by a user. A post may be
// scheduled (pub_date in the future) or withdrawn (is_published=false);
// either state hides it from the public surface but not from its author.
type Post struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:256;not null" json:"title"`
	Text        string    `gorm:"type:text;not null" json:"text"`
	PubDate     time.Time `gorm:"index;not null" json:"pub_date"`
	AuthorID    uint      `gorm:"index;not null" json:"author_id"`
	CategoryID  *uint     `gorm:"index" json:"category_id"`
	LocationID  *uint     `gorm:"index" json:"location_id"`
	ImageURL    string    `gorm:"size:512" json:"image_url"`
	IsPublished bool      `gorm:"not null;default:true" json:"is_published"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Author   User      `gorm:"foreignKey:AuthorID" json:"author"`
	Category *Category `json:"category,omitempty"`
	Location *Location `json:"location,omitempty"`
	Comments []Comment `json:"-"`

	// Populated by the WithCommentCount scope; not a real column.
	CommentCount int64 `gorm:"->;-:migration" json:"comment_count"`
}

// VisibleAt reports whether the post is publicly visible at the given time.
// Category must be preloaded when CategoryID is set, otherwise the post is
// treated as hidden.
func (p *Post) VisibleAt(now time.Time) bool {
	if !p.IsPublished || p.PubDate.After(now) {
		return false
	}
	if p.CategoryID == nil {
		return true
	}
	return p.Category != nil && p.Category.IsPublished
}
