package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"threads/middleware"
	"threads/services"
	"threads/store"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const requestTimeout = 10 * time.Second

type CreatePostRequest struct {
	Text  string `json:"text"`
	Image string `json:"image"`
}

type ReplyRequest struct {
	Text string `json:"text"`
}

type PostHandler struct {
	access *services.PostAccessService
	feed   *services.FeedService
}

func NewPostHandler(access *services.PostAccessService, feed *services.FeedService) *PostHandler {
	return &PostHandler{access: access, feed: feed}
}

func (h *PostHandler) CreatePost(c *gin.Context) {
	var req CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, ok := currentUser(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	post, err := h.access.CreatePost(ctx, userID, req.Text, req.Image)
	if err != nil {
		respondError(c, "CreatePost", err)
		return
	}

	c.JSON(http.StatusCreated, post)
}

func (h *PostHandler) GetFeed(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = n
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	page, err := h.feed.Feed(ctx, userID, limit, c.Query("cursor"))
	if err != nil {
		respondError(c, "GetFeed", err)
		return
	}

	c.JSON(http.StatusOK, page)
}

func (h *PostHandler) GetPost(c *gin.Context) {
	postID, ok := pathID(c, "id", "Invalid post ID")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	post, err := h.access.GetPost(ctx, postID)
	if err != nil {
		respondError(c, "GetPost", err)
		return
	}

	c.JSON(http.StatusOK, post)
}

func (h *PostHandler) GetUserPosts(c *gin.Context) {
	username := c.Param("username")

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	posts, err := h.access.ListUserPosts(ctx, username)
	if err != nil {
		respondError(c, "GetUserPosts", err)
		return
	}

	c.JSON(http.StatusOK, posts)
}

func (h *PostHandler) DeletePost(c *gin.Context) {
	postID, ok := pathID(c, "id", "Invalid post ID")
	if !ok {
		return
	}
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := h.access.DeletePost(ctx, postID, userID); err != nil {
		respondError(c, "DeletePost", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Post deleted successfully"})
}

func (h *PostHandler) ToggleLike(c *gin.Context) {
	postID, ok := pathID(c, "id", "Invalid post ID")
	if !ok {
		return
	}
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	post, err := h.access.ToggleLike(ctx, postID, userID)
	if err != nil {
		respondError(c, "ToggleLike", err)
		return
	}

	c.JSON(http.StatusOK, post)
}

func (h *PostHandler) ReplyToPost(c *gin.Context) {
	postID, ok := pathID(c, "id", "Invalid post ID")
	if !ok {
		return
	}
	var req ReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	reply, err := h.access.ReplyToPost(ctx, postID, userID, req.Text)
	if err != nil {
		respondError(c, "ReplyToPost", err)
		return
	}

	c.JSON(http.StatusCreated, reply)
}

func (h *PostHandler) DeleteReply(c *gin.Context) {
	postID, ok := pathID(c, "id", "Invalid post ID")
	if !ok {
		return
	}
	replyID, ok := pathID(c, "replyId", "Invalid reply ID")
	if !ok {
		return
	}
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := h.access.DeleteReply(ctx, postID, replyID, userID); err != nil {
		respondError(c, "DeleteReply", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Reply deleted successfully"})
}

func currentUser(c *gin.Context) (primitive.ObjectID, bool) {
	userID, err := primitive.ObjectIDFromHex(c.GetString(middleware.UserIDKey))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid user ID"})
		return primitive.NilObjectID, false
	}
	return userID, true
}

func pathID(c *gin.Context, name, msg string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return primitive.NilObjectID, false
	}
	return id, true
}

// respondError maps store errors onto status codes. Anything unexpected is
// logged and hidden behind a generic 500.
func respondError(c *gin.Context, op string, err error) {
	var verr *store.ValidationError
	switch {
	case errors.Is(err, services.ErrUnknownUser):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Message, "field": verr.Field})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFoundMessage(op)})
	case errors.Is(err, store.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "Not allowed to modify this " + subject(op)})
	case errors.Is(err, context.DeadlineExceeded):
		log.Printf("[%s] request %s timed out: %v", op, middleware.RequestID(c), err)
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "Request timed out"})
	default:
		log.Printf("[%s] request %s failed: %v", op, middleware.RequestID(c), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func notFoundMessage(op string) string {
	switch op {
	case "GetUserPosts", "GetProfile", "GetMyProfile":
		return "User not found"
	case "DeleteReply":
		return "Reply not found"
	}
	return "Post not found"
}

func subject(op string) string {
	if op == "DeleteReply" {
		return "reply"
	}
	return "post"
}
