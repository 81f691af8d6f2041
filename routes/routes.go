package routes

import (
	"net/http"
	"strings"
	"time"

	"threads/handlers"
	"threads/middleware"
	"threads/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Options struct {
	JWTSecret   []byte
	CORSOrigins []string
	RateLimit   int
}

func SetupRouter(posts *handlers.PostHandler, users *handlers.UserHandler, ws *websocket.Manager, opts Options) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), middleware.RequestIDMiddleware())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     opts.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Type", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Unix(),
			"ws":     ws.GetConnectedUsers(),
		})
	})

	auth := middleware.JWTAuthMiddleware(opts.JWTSecret)
	limiter := middleware.NewIPRateLimiter(opts.RateLimit, time.Minute)

	api := router.Group("/api")
	api.Use(middleware.RateLimitMiddleware(limiter), auth)

	p := api.Group("/posts")
	p.POST("", posts.CreatePost)
	p.GET("/feed", posts.GetFeed)
	p.GET("/user/:username", posts.GetUserPosts)
	p.GET("/:id", posts.GetPost)
	p.DELETE("/:id", posts.DeletePost)
	p.PUT("/like/:id", posts.ToggleLike)
	p.PUT("/reply/:id", posts.ReplyToPost)
	p.DELETE("/:id/replies/:replyId", posts.DeleteReply)

	u := api.Group("/users")
	u.GET("/me", users.GetMyProfile)
	u.GET("/profile/:query", users.GetProfile)

	router.GET("/ws", auth, websocket.Handler(ws))

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Endpoint not found",
				"path":  c.Request.URL.Path,
			})
			return
		}
		c.Status(http.StatusNotFound)
	})

	return router
}
