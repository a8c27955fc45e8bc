package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mkarpushin/blogium/config"
	"github.com/mkarpushin/blogium/controllers"
	"github.com/mkarpushin/blogium/middleware"
	"github.com/mkarpushin/blogium/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Replace the default console logger with a file-based zap access log.
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "Location"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))
	r.Use(middleware.PageViewRecorder(db))

	// About/rules and uploaded images are plain static files.
	r.Static("/static", "./static")
	r.GET("/pages/about", func(c *gin.Context) { c.File("./static/about.html") })
	r.GET("/pages/rules", func(c *gin.Context) { c.File("./static/rules.html") })

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController(db)
	postController := controllers.NewPostController(db)
	commentController := controllers.NewCommentController(db)
	profileController := controllers.NewProfileController(db)
	adminController := controllers.NewAdminController(db)
	statsController := controllers.NewStatsController(db)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.GET("/captcha", authController.Captcha)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)

	// Public reads. Detail carries optional identity for the author bypass.
	api.GET("/posts", postController.ListPosts)
	api.GET("/posts/:id", middleware.OptionalAuth(), postController.GetPost)
	api.GET("/categories", postController.ListCategories)
	api.GET("/categories/:slug/posts", postController.ListCategoryPosts)
	api.GET("/profiles/:username", profileController.GetProfile)
	api.GET("/stats", statsController.GetStats)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())
	protected.POST("/posts", postController.CreatePost)
	protected.POST("/posts/:id/edit", postController.UpdatePost)
	protected.POST("/posts/:id/delete", postController.DeletePost)
	protected.POST("/posts/:id/comments", commentController.CreateComment)
	protected.POST("/posts/:id/comments/:commentID/edit", commentController.UpdateComment)
	protected.POST("/posts/:id/comments/:commentID/delete", commentController.DeleteComment)
	protected.POST("/profiles/:username/edit", profileController.UpdateProfile)
	protected.POST("/upload", postController.UploadImage)

	admin := api.Group("/admin")
	admin.Use(middleware.AuthRequired())
	admin.GET("/posts", adminController.ListAllPosts)
	admin.POST("/posts/:id/delete", adminController.DeletePost)
	admin.POST("/comments/:id/delete", adminController.DeleteComment)
	admin.POST("/categories", adminController.CreateCategory)
	admin.POST("/categories/:id/edit", adminController.UpdateCategory)
	admin.POST("/categories/:id/delete", adminController.DeleteCategory)
	admin.POST("/locations", adminController.CreateLocation)
	admin.POST("/locations/:id/edit", adminController.UpdateLocation)
	admin.POST("/locations/:id/delete", adminController.DeleteLocation)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}
