package controllers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mkarpushin/blogium/middleware"
	"github.com/mkarpushin/blogium/models"
	"github.com/mkarpushin/blogium/utils"
)

func TestMain(m *testing.M) {
	// Config is loaded lazily on first use; pin everything before any test runs.
	os.Setenv("JWT_SECRET", "test-secret")
	os.Setenv("ADMIN_USERNAMES", "admin")
	// Point redis at a closed port so cache lookups miss deterministically.
	os.Setenv("REDIS_PORT", "63790")
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

var testDBSeq atomic.Int64

// newTestDB creates an in-memory SQLite database with the full schema.
// Each database gets its own shared-cache name so pooled connections see the
// same data without leaking between tests.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:controllers_test_%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Location{},
		&models.Post{},
		&models.Comment{},
		&models.PageView{},
	))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// newTestRouter wires the full route table the way routes.SetupRouter does,
// minus logging and rate limiting.
func newTestRouter(db *gorm.DB) *gin.Engine {
	r := gin.New()

	authController := NewAuthController(db)
	postController := NewPostController(db)
	commentController := NewCommentController(db)
	profileController := NewProfileController(db)
	adminController := NewAdminController(db)

	api := r.Group("/api/v1")
	api.POST("/auth/register", authController.Register)
	api.POST("/auth/login", authController.Login)
	api.GET("/auth/me", middleware.AuthRequired(), authController.Me)
	api.GET("/posts", postController.ListPosts)
	api.GET("/posts/:id", middleware.OptionalAuth(), postController.GetPost)
	api.GET("/categories", postController.ListCategories)
	api.GET("/categories/:slug/posts", postController.ListCategoryPosts)
	api.GET("/profiles/:username", profileController.GetProfile)

	protected := api.Group("", middleware.AuthRequired())
	protected.POST("/posts", postController.CreatePost)
	protected.POST("/posts/:id/edit", postController.UpdatePost)
	protected.POST("/posts/:id/delete", postController.DeletePost)
	protected.POST("/posts/:id/comments", commentController.CreateComment)
	protected.POST("/posts/:id/comments/:commentID/edit", commentController.UpdateComment)
	protected.POST("/posts/:id/comments/:commentID/delete", commentController.DeleteComment)
	protected.POST("/profiles/:username/edit", profileController.UpdateProfile)

	admin := api.Group("/admin", middleware.AuthRequired())
	admin.GET("/posts", adminController.ListAllPosts)
	admin.POST("/posts/:id/delete", adminController.DeletePost)
	admin.POST("/comments/:id/delete", adminController.DeleteComment)
	admin.POST("/categories", adminController.CreateCategory)
	admin.POST("/categories/:id/edit", adminController.UpdateCategory)
	admin.POST("/categories/:id/delete", adminController.DeleteCategory)
	admin.POST("/locations", adminController.CreateLocation)
	admin.POST("/locations/:id/edit", adminController.UpdateLocation)
	admin.POST("/locations/:id/delete", adminController.DeleteLocation)

	return r
}

func createUser(t *testing.T, db *gorm.DB, username string) (models.User, string) {
	t.Helper()
	hash, err := utils.HashPassword("password-123")
	require.NoError(t, err)
	user := models.User{
		Username:     username,
		FirstName:    "Test",
		LastName:     "User",
		Email:        username + "@example.com",
		PasswordHash: hash,
	}
	require.NoError(t, db.Create(&user).Error)
	token, err := utils.GenerateToken(user.ID, user.Username, time.Hour)
	require.NoError(t, err)
	return user, token
}

func createPost(t *testing.T, db *gorm.DB, author models.User, mutate func(*models.Post)) models.Post {
	t.Helper()
	post := models.Post{
		Title:       "Hello",
		Text:        "Body",
		PubDate:     time.Now().Add(-time.Hour),
		AuthorID:    author.ID,
		IsPublished: true,
	}
	if mutate != nil {
		mutate(&post)
	}
	require.NoError(t, db.Create(&post).Error)
	return post
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, dest any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dest))
}

func doRequest(r http.Handler, method, path, token string, form url.Values) *httptest.ResponseRecorder {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
