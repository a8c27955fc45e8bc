package controllers

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mkarpushin/blogium/models"
	"github.com/mkarpushin/blogium/utils"
)

// AdminController manages categories, locations, and moderation of posts and
// comments. Admins are the usernames listed in configuration.
type AdminController struct {
	db *gorm.DB
}

// NewAdminController creates a new AdminController instance.
func NewAdminController(db *gorm.DB) *AdminController {
	return &AdminController{db: db}
}

var slugRe = regexp.MustCompile(`^[a-z0-9_-]{1,64}$`)

func (a *AdminController) requireAdmin(ctx *gin.Context) bool {
	if !isAdmin(ctx) {
		utils.Error(ctx, http.StatusForbidden, 40310, "admin access required")
		return false
	}
	return true
}

type categoryForm struct {
	Title       string `form:"title" json:"title" binding:"required"`
	Description string `form:"description" json:"description"`
	Slug        string `form:"slug" json:"slug" binding:"required"`
	IsPublished *bool  `form:"is_published" json:"is_published"`
}

// CreateCategory adds a category. Slugs are lowercase URL-safe identifiers
// and must be unique.
func (a *AdminController) CreateCategory(ctx *gin.Context) {
	if !a.requireAdmin(ctx) {
		return
	}

	var form categoryForm
	if err := ctx.ShouldBind(&form); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40060, "invalid request payload")
		return
	}

	slug := strings.TrimSpace(form.Slug)
	if !slugRe.MatchString(slug) {
		utils.Error(ctx, http.StatusBadRequest, 40061, "slug must be lowercase letters, digits, '-' or '_'")
		return
	}
	var existing models.Category
	if err := a.db.Where("slug = ?", slug).First(&existing).Error; err == nil {
		utils.Error(ctx, http.StatusConflict, 40903, "slug already exists")
		return
	}

	category := models.Category{
		Title:       utils.Sanitize(strings.TrimSpace(form.Title)),
		Description: utils.Sanitize(form.Description),
		Slug:        slug,
		IsPublished: form.IsPublished == nil || *form.IsPublished,
	}
	if category.Title == "" {
		utils.Error(ctx, http.StatusBadRequest, 40062, "title cannot be empty")
		return
	}

	if err := a.db.Create(&category).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to create category")
		return
	}

	utils.InvalidateByPrefix("cache:posts:")
	utils.Success(ctx, gin.H{"category": category})
}

// UpdateCategory edits a category; unpublishing one hides all of its posts.
func (a *AdminController) UpdateCategory(ctx *gin.Context) {
	if !a.requireAdmin(ctx) {
		return
	}

	var category models.Category
	if err := a.db.First(&category, ctx.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40405, "category not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50061, "failed to load category")
		return
	}

	var form categoryForm
	if err := ctx.ShouldBind(&form); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40060, "invalid request payload")
		return
	}

	slug := strings.TrimSpace(form.Slug)
	if !slugRe.MatchString(slug) {
		utils.Error(ctx, http.StatusBadRequest, 40061, "slug must be lowercase letters, digits, '-' or '_'")
		return
	}
	if slug != category.Slug {
		var existing models.Category
		if err := a.db.Where("slug = ?", slug).First(&existing).Error; err == nil {
			utils.Error(ctx, http.StatusConflict, 40903, "slug already exists")
			return
		}
	}

	category.Title = utils.Sanitize(strings.TrimSpace(form.Title))
	category.Description = utils.Sanitize(form.Description)
	category.Slug = slug
	if form.IsPublished != nil {
		category.IsPublished = *form.IsPublished
	}
	if category.Title == "" {
		utils.Error(ctx, http.StatusBadRequest, 40062, "title cannot be empty")
		return
	}

	if err := a.db.Save(&category).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50062, "failed to update category")
		return
	}

	utils.InvalidateByPrefix("cache:posts:")
	utils.Success(ctx, gin.H{"category": category})
}

// DeleteCategory removes a category. Posts filed under it are kept and their
// category reference cleared; deletion never cascades into content.
func (a *AdminController) DeleteCategory(ctx *gin.Context) {
	if !a.requireAdmin(ctx) {
		return
	}

	var category models.Category
	if err := a.db.First(&category, ctx.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40405, "category not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50061, "failed to load category")
		return
	}

	err := a.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Post{}).
			Where("category_id = ?", category.ID).
			Update("category_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&category).Error
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50063, "failed to delete category")
		return
	}

	utils.InvalidateByPrefix("cache:posts:")
	utils.Success(ctx, gin.H{"message": "category deleted"})
}

type locationForm struct {
	Name        string `form:"name" json:"name" binding:"required"`
	IsPublished *bool  `form:"is_published" json:"is_published"`
}

// CreateLocation adds a location.
func (a *AdminController) CreateLocation(ctx *gin.Context) {
	if !a.requireAdmin(ctx) {
		return
	}

	var form locationForm
	if err := ctx.ShouldBind(&form); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40063, "invalid request payload")
		return
	}

	location := models.Location{
		Name:        utils.Sanitize(strings.TrimSpace(form.Name)),
		IsPublished: form.IsPublished == nil || *form.IsPublished,
	}
	if location.Name == "" {
		utils.Error(ctx, http.StatusBadRequest, 40064, "name cannot be empty")
		return
	}

	if err := a.db.Create(&location).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50064, "failed to create location")
		return
	}

	utils.Success(ctx, gin.H{"location": location})
}

// UpdateLocation edits a location.
func (a *AdminController) UpdateLocation(ctx *gin.Context) {
	if !a.requireAdmin(ctx) {
		return
	}

	var location models.Location
	if err := a.db.First(&location, ctx.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40406, "location not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50065, "failed to load location")
		return
	}

	var form locationForm
	if err := ctx.ShouldBind(&form); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40063, "invalid request payload")
		return
	}

	location.Name = utils.Sanitize(strings.TrimSpace(form.Name))
	if form.IsPublished != nil {
		location.IsPublished = *form.IsPublished
	}
	if location.Name == "" {
		utils.Error(ctx, http.StatusBadRequest, 40064, "name cannot be empty")
		return
	}

	if err := a.db.Save(&location).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50066, "failed to update location")
		return
	}

	utils.Success(ctx, gin.H{"location": location})
}

// DeleteLocation removes a location, clearing the reference on its posts.
func (a *AdminController) DeleteLocation(ctx *gin.Context) {
	if !a.requireAdmin(ctx) {
		return
	}

	var location models.Location
	if err := a.db.First(&location, ctx.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40406, "location not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50065, "failed to load location")
		return
	}

	err := a.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Post{}).
			Where("location_id = ?", location.ID).
			Update("location_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&location).Error
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50067, "failed to delete location")
		return
	}

	utils.Success(ctx, gin.H{"message": "location deleted"})
}

// ListAllPosts returns every post regardless of visibility, newest first,
// for the moderation view.
func (a *AdminController) ListAllPosts(ctx *gin.Context) {
	if !a.requireAdmin(ctx) {
		return
	}

	page, pageSize := parsePage(ctx.Query("page"))

	var total int64
	if err := a.db.Model(&models.Post{}).Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50068, "failed to count posts")
		return
	}

	var posts []models.Post
	err := a.db.Model(&models.Post{}).
		Scopes(models.WithCommentCount, models.WithRelated).
		Order("posts.created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&posts).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50069, "failed to list posts")
		return
	}

	utils.Success(ctx, gin.H{
		"items":      posts,
		"pagination": paginationPayload(page, pageSize, total),
	})
}

// DeletePost removes any post with its comments, regardless of ownership or
// publication state.
func (a *AdminController) DeletePost(ctx *gin.Context) {
	if !a.requireAdmin(ctx) {
		return
	}

	var post models.Post
	if err := a.db.First(&post, ctx.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50027, "failed to load post")
		return
	}

	err := a.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&post).Error
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to delete post")
		return
	}

	utils.InvalidateByPrefix("cache:posts:")
	utils.InvalidateByPrefix("cache:profile:")
	utils.Success(ctx, gin.H{"message": "post deleted"})
}

// DeleteComment removes any comment.
func (a *AdminController) DeleteComment(ctx *gin.Context) {
	if !a.requireAdmin(ctx) {
		return
	}

	var comment models.Comment
	if err := a.db.First(&comment, ctx.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40402, "comment not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50043, "failed to load comment")
		return
	}

	if err := a.db.Delete(&comment).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50042, "failed to delete comment")
		return
	}

	utils.InvalidateByPrefix("cache:posts:")
	utils.Success(ctx, gin.H{"message": "comment deleted"})
}
