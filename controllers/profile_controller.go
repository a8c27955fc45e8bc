package controllers

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mkarpushin/blogium/models"
	"github.com/mkarpushin/blogium/utils"
)

// ProfileController serves user profile pages and profile editing.
type ProfileController struct {
	db *gorm.DB
}

// NewProfileController creates a new ProfileController instance.
func NewProfileController(db *gorm.DB) *ProfileController {
	return &ProfileController{db: db}
}

var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,30}$`)

// GetProfile returns a user card plus every post they authored, published or
// not. The public list filter deliberately does not apply here; the profile
// page is where an author sees their scheduled and withdrawn posts.
func (p *ProfileController) GetProfile(ctx *gin.Context) {
	username := strings.TrimSpace(ctx.Param("username"))
	page, pageSize := parsePage(ctx.Query("page"))

	cacheKey := fmt.Sprintf("cache:profile:%s:page=%d", username, page)
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	var user models.User
	if err := p.db.Where("username = ?", username).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40403, "user not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50050, "failed to load user")
		return
	}

	var total int64
	if err := p.db.Model(&models.Post{}).Where("author_id = ?", user.ID).Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50051, "failed to count posts")
		return
	}

	var posts []models.Post
	err := p.db.Model(&models.Post{}).
		Scopes(models.WithCommentCount, models.WithRelated).
		Where("posts.author_id = ?", user.ID).
		Order("posts.pub_date DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&posts).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50052, "failed to list posts")
		return
	}

	payload := gin.H{
		"profile":    publicUser(user),
		"items":      posts,
		"pagination": paginationPayload(page, pageSize, total),
	}
	utils.CacheSetJSON(cacheKey, utils.JSONResponse{Code: 0, Message: "success", Data: payload}, 0)
	utils.Success(ctx, payload)
}

// UpdateProfile lets a user edit their own identity fields: first name, last
// name, username, email. On success the client is sent to the profile page
// under the possibly renamed username.
func (p *ProfileController) UpdateProfile(ctx *gin.Context) {
	username := strings.TrimSpace(ctx.Param("username"))

	var user models.User
	if err := p.db.Where("username = ?", username).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40403, "user not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50050, "failed to load user")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	if user.ID != userID {
		utils.Error(ctx, http.StatusForbidden, 40304, "you can only edit your own profile")
		return
	}

	var form struct {
		FirstName string `form:"first_name" json:"first_name"`
		LastName  string `form:"last_name" json:"last_name"`
		Username  string `form:"username" json:"username" binding:"required"`
		Email     string `form:"email" json:"email"`
	}
	if err := ctx.ShouldBind(&form); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40050, "invalid request payload")
		return
	}

	newUsername := strings.TrimSpace(form.Username)
	if !usernameRe.MatchString(newUsername) {
		utils.Error(ctx, http.StatusBadRequest, 40051, "username must be 3-30 characters of letters, digits, '-' or '_'")
		return
	}
	if newUsername != user.Username {
		var existing models.User
		if err := p.db.Where("username = ?", newUsername).First(&existing).Error; err == nil {
			utils.Error(ctx, http.StatusConflict, 40902, "username already exists")
			return
		}
	}

	user.Username = newUsername
	user.FirstName = utils.Sanitize(strings.TrimSpace(form.FirstName))
	user.LastName = utils.Sanitize(strings.TrimSpace(form.LastName))
	user.Email = strings.TrimSpace(form.Email)

	if err := p.db.Save(&user).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50053, "failed to update profile")
		return
	}

	utils.InvalidateByPrefix("cache:profile:")

	ctx.Redirect(http.StatusFound, fmt.Sprintf("/api/v1/profiles/%s", user.Username))
}
