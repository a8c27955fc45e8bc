package controllers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mkarpushin/blogium/models"
	"github.com/mkarpushin/blogium/utils"
)

// CommentController manages replies attached to posts.
type CommentController struct {
	db *gorm.DB
}

// NewCommentController creates a new CommentController instance.
func NewCommentController(db *gorm.DB) *CommentController {
	return &CommentController{db: db}
}

type commentForm struct {
	Text string `form:"text" json:"text" binding:"required"`
}

// CreateComment attaches a comment to the post in the path. The author and
// the target post come from context only; client-supplied values for either
// are ignored.
func (c *CommentController) CreateComment(ctx *gin.Context) {
	var post models.Post
	if err := c.db.First(&post, ctx.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50027, "failed to load post")
		return
	}

	var form commentForm
	if err := ctx.ShouldBind(&form); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40040, "invalid request payload")
		return
	}
	text := utils.Sanitize(form.Text)
	if strings.TrimSpace(text) == "" {
		utils.Error(ctx, http.StatusBadRequest, 40041, "text cannot be empty")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	comment := models.Comment{
		PostID:   post.ID,
		AuthorID: userID,
		Text:     text,
	}
	if err := c.db.Create(&comment).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to create comment")
		return
	}

	utils.InvalidateByPrefix("cache:posts:")

	ctx.Redirect(http.StatusFound, fmt.Sprintf("/api/v1/posts/%d", post.ID))
}

// UpdateComment lets the comment's author edit it. The comment is resolved
// by its own id; the post id in the path only shapes the redirect target.
func (c *CommentController) UpdateComment(ctx *gin.Context) {
	comment, ok := c.loadOwnComment(ctx)
	if !ok {
		return
	}

	var form commentForm
	if err := ctx.ShouldBind(&form); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40042, "invalid request payload")
		return
	}
	text := utils.Sanitize(form.Text)
	if strings.TrimSpace(text) == "" {
		utils.Error(ctx, http.StatusBadRequest, 40043, "text cannot be empty")
		return
	}

	comment.Text = text
	if err := c.db.Save(comment).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to update comment")
		return
	}

	ctx.Redirect(http.StatusFound, fmt.Sprintf("/api/v1/posts/%s", ctx.Param("id")))
}

// DeleteComment lets the comment's author remove it.
func (c *CommentController) DeleteComment(ctx *gin.Context) {
	comment, ok := c.loadOwnComment(ctx)
	if !ok {
		return
	}

	if err := c.db.Delete(comment).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50042, "failed to delete comment")
		return
	}

	utils.InvalidateByPrefix("cache:posts:")

	ctx.Redirect(http.StatusFound, fmt.Sprintf("/api/v1/posts/%s", ctx.Param("id")))
}

// loadOwnComment resolves the comment in the path and enforces the
// author-only rule, writing the error response on failure.
func (c *CommentController) loadOwnComment(ctx *gin.Context) (*models.Comment, bool) {
	var comment models.Comment
	if err := c.db.First(&comment, ctx.Param("commentID")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40402, "comment not found")
			return nil, false
		}
		utils.Error(ctx, http.StatusInternalServerError, 50043, "failed to load comment")
		return nil, false
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return nil, false
	}
	if comment.AuthorID != userID {
		utils.Error(ctx, http.StatusForbidden, 40303, "you can only modify your own comments")
		return nil, false
	}
	return &comment, true
}
