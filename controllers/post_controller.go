package controllers

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mkarpushin/blogium/middleware"
	"github.com/mkarpushin/blogium/models"
	"github.com/mkarpushin/blogium/utils"
)

// PostController manages the public post surface: listing, detail access
// control, and author-only mutations.
type PostController struct {
	db *gorm.DB
}

// NewPostController creates a new PostController instance.
func NewPostController(db *gorm.DB) *PostController {
	return &PostController{db: db}
}

type postForm struct {
	Title      string `form:"title" json:"title" binding:"required"`
	Text       string `form:"text" json:"text" binding:"required"`
	PubDate    string `form:"pub_date" json:"pub_date" binding:"required"`
	CategoryID *uint  `form:"category_id" json:"category_id"`
	LocationID *uint  `form:"location_id" json:"location_id"`
	ImageURL   string `form:"image_url" json:"image_url"`
}

// applyForm validates the submitted fields and writes them onto the post.
// It returns a user-facing message when validation fails; nothing is
// persisted in that case.
func (p *PostController) applyForm(post *models.Post, form *postForm) (string, bool) {
	title := utils.Sanitize(strings.TrimSpace(form.Title))
	if title == "" {
		return "title cannot be empty", false
	}
	text := utils.Sanitize(form.Text)
	if strings.TrimSpace(text) == "" {
		return "text cannot be empty", false
	}
	pubDate, ok := parsePubDate(form.PubDate)
	if !ok {
		return "invalid publication date", false
	}
	if form.CategoryID != nil {
		var cat models.Category
		if err := p.db.First(&cat, *form.CategoryID).Error; err != nil {
			return "unknown category", false
		}
	}
	if form.LocationID != nil {
		var loc models.Location
		if err := p.db.First(&loc, *form.LocationID).Error; err != nil {
			return "unknown location", false
		}
	}

	post.Title = title
	post.Text = text
	post.PubDate = pubDate
	post.CategoryID = form.CategoryID
	post.LocationID = form.LocationID
	post.ImageURL = strings.TrimSpace(form.ImageURL)
	return "", true
}

// ListPosts returns the paginated public post list: published posts whose
// publication time has passed and whose category, if any, is published.
func (p *PostController) ListPosts(ctx *gin.Context) {
	page, pageSize := parsePage(ctx.Query("page"))

	cacheKey := fmt.Sprintf("cache:posts:list:page=%d", page)
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	now := time.Now()
	var total int64
	if err := p.db.Model(&models.Post{}).Scopes(models.VisibleAt(now)).Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to count posts")
		return
	}

	var posts []models.Post
	err := p.db.Model(&models.Post{}).
		Scopes(models.VisibleAt(now), models.WithCommentCount, models.WithRelated).
		Order("posts.pub_date DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&posts).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to list posts")
		return
	}

	payload := gin.H{
		"items":      posts,
		"pagination": paginationPayload(page, pageSize, total),
	}
	utils.CacheSetJSON(cacheKey, utils.JSONResponse{Code: 0, Message: "success", Data: payload}, 0)
	utils.Success(ctx, payload)
}

// ListCategoryPosts returns visible posts filed under a category slug. An
// unknown or unpublished category is not found, even when it holds posts.
func (p *PostController) ListCategoryPosts(ctx *gin.Context) {
	slug := strings.TrimSpace(ctx.Param("slug"))
	page, pageSize := parsePage(ctx.Query("page"))

	cacheKey := fmt.Sprintf("cache:posts:category:%s:page=%d", slug, page)
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	var category models.Category
	if err := p.db.Where("slug = ? AND is_published = ?", slug, true).First(&category).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40405, "category not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to load category")
		return
	}

	now := time.Now()
	var total int64
	if err := p.db.Model(&models.Post{}).
		Scopes(models.VisibleAt(now)).
		Where("posts.category_id = ?", category.ID).
		Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50024, "failed to count posts")
		return
	}

	var posts []models.Post
	err := p.db.Model(&models.Post{}).
		Scopes(models.VisibleAt(now), models.WithCommentCount, models.WithRelated).
		Where("posts.category_id = ?", category.ID).
		Order("posts.pub_date DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&posts).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50025, "failed to list posts")
		return
	}

	payload := gin.H{
		"category":   category,
		"items":      posts,
		"pagination": paginationPayload(page, pageSize, total),
	}
	utils.CacheSetJSON(cacheKey, utils.JSONResponse{Code: 0, Message: "success", Data: payload}, 0)
	utils.Success(ctx, payload)
}

// ListCategories returns published categories for navigation.
func (p *PostController) ListCategories(ctx *gin.Context) {
	var categories []models.Category
	if err := p.db.Where("is_published = ?", true).Order("title ASC").Find(&categories).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50026, "failed to list categories")
		return
	}
	utils.Success(ctx, gin.H{"items": categories})
}

// GetPost returns a single post with its comments. Hidden posts are served
// only to their author; everyone else gets a 404 so their existence is not
// revealed.
func (p *PostController) GetPost(ctx *gin.Context) {
	var post models.Post
	err := p.db.Scopes(models.WithRelated).First(&post, ctx.Param("id")).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50027, "failed to load post")
		return
	}

	if !post.VisibleAt(time.Now()) {
		userID, ok := getUserID(ctx)
		if !ok || userID != post.AuthorID {
			utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
			return
		}
	}

	var comments []models.Comment
	if err := p.db.Where("post_id = ?", post.ID).
		Order("created_at ASC").
		Preload("Author").
		Find(&comments).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50028, "failed to load comments")
		return
	}

	utils.Success(ctx, gin.H{
		"post":          post,
		"comments":      comments,
		"comment_count": len(comments),
		"comment_form":  gin.H{"text": ""},
	})
}

// CreatePost lets an authenticated user publish a post; the acting user
// always becomes the author. On success the client is sent to the author's
// profile.
func (p *PostController) CreatePost(ctx *gin.Context) {
	var form postForm
	if err := ctx.ShouldBind(&form); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	post := models.Post{AuthorID: userID, IsPublished: true}
	if msg, ok := p.applyForm(&post, &form); !ok {
		utils.Error(ctx, http.StatusBadRequest, 40021, msg)
		return
	}

	if err := p.db.Create(&post).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to create post")
		return
	}

	utils.InvalidateByPrefix("cache:posts:")
	utils.InvalidateByPrefix("cache:profile:")

	username, _ := ctx.Get(middleware.ContextUsernameKey)
	ctx.Redirect(http.StatusFound, fmt.Sprintf("/api/v1/profiles/%v", username))
}

// UpdatePost lets the author edit their post. Anyone else is bounced back to
// the detail page with nothing changed.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	var post models.Post
	if err := p.db.First(&post, ctx.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50027, "failed to load post")
		return
	}

	detailURL := fmt.Sprintf("/api/v1/posts/%d", post.ID)

	userID, ok := getUserID(ctx)
	if !ok || post.AuthorID != userID {
		ctx.Redirect(http.StatusFound, detailURL)
		return
	}

	var form postForm
	if err := ctx.ShouldBind(&form); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40022, "invalid request payload")
		return
	}
	if msg, ok := p.applyForm(&post, &form); !ok {
		utils.Error(ctx, http.StatusBadRequest, 40023, msg)
		return
	}

	if err := p.db.Save(&post).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50029, "failed to update post")
		return
	}

	utils.InvalidateByPrefix("cache:posts:")
	utils.InvalidateByPrefix("cache:profile:")

	ctx.Redirect(http.StatusFound, detailURL)
}

// DeletePost removes a post and its comments. Only the author may delete,
// and only while the post is published; an unpublished post is not found
// even to its owner.
func (p *PostController) DeletePost(ctx *gin.Context) {
	var post models.Post
	if err := p.db.First(&post, ctx.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50027, "failed to load post")
		return
	}

	if !post.IsPublished {
		utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	if post.AuthorID != userID {
		utils.Error(ctx, http.StatusForbidden, 40302, "you can only delete your own posts")
		return
	}

	if err := p.deletePostWithComments(&post); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to delete post")
		return
	}

	utils.InvalidateByPrefix("cache:posts:")
	utils.InvalidateByPrefix("cache:profile:")

	ctx.Redirect(http.StatusFound, "/api/v1/posts")
}

// deletePostWithComments removes the post and its comments in one
// transaction; comments never outlive their post.
func (p *PostController) deletePostWithComments(post *models.Post) error {
	return p.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(post).Error
	})
}

// UploadImage stores a post image and returns its public URL.
func (p *PostController) UploadImage(ctx *gin.Context) {
	if _, ok := getUserID(ctx); !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	file, header, err := ctx.Request.FormFile("image")
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "no file uploaded")
		return
	}
	defer file.Close()

	const maxSize = 10 * 1024 * 1024
	if header.Size > maxSize {
		utils.Error(ctx, http.StatusBadRequest, 40031, "file size exceeds 10MB")
		return
	}

	now := time.Now()
	baseDir := filepath.Join(".", "static", "uploads", now.Format("2006"), now.Format("01"), now.Format("02"))
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to create upload directory")
		return
	}

	name := uuid.NewString() + strings.ToLower(filepath.Ext(header.Filename))
	dstPath := filepath.Join(baseDir, name)

	out, err := os.Create(dstPath)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50032, "failed to save file")
		return
	}
	defer out.Close()

	if _, err := io.Copy(out, io.LimitReader(file, maxSize)); err != nil {
		_ = os.Remove(dstPath)
		utils.Error(ctx, http.StatusInternalServerError, 50033, "failed to write file")
		return
	}

	url := fmt.Sprintf("/static/uploads/%s/%s/%s/%s", now.Format("2006"), now.Format("01"), now.Format("02"), name)
	utils.Success(ctx, gin.H{"url": url})
}
