package handlers

import (
	"context"
	"errors"
	"net/http"

	"threads/models"
	"threads/store"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const fallbackAvatar = "https://upload.wikimedia.org/wikipedia/commons/8/89/Portrait_Placeholder.png"

// Profile is the public view of a user, used to render post and reply authors.
type Profile struct {
	ID         primitive.ObjectID `json:"id"`
	Username   string             `json:"username"`
	Name       string             `json:"name"`
	ProfilePic string             `json:"profilePic"`
}

func profileOf(u *models.User) Profile {
	pic := u.ProfilePic
	if pic == "" {
		pic = fallbackAvatar
	}
	return Profile{ID: u.ID, Username: u.Username, Name: u.Name, ProfilePic: pic}
}

type UserHandler struct {
	users store.UserDirectory
}

func NewUserHandler(users store.UserDirectory) *UserHandler {
	return &UserHandler{users: users}
}

// GetProfile resolves :query as an ObjectID first, then as a username.
func (h *UserHandler) GetProfile(c *gin.Context) {
	query := c.Param("query")

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	var (
		user *models.User
		err  error
	)
	if id, perr := primitive.ObjectIDFromHex(query); perr == nil {
		user, err = h.users.ByID(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			user, err = h.users.ByUsername(ctx, query)
		}
	} else {
		user, err = h.users.ByUsername(ctx, query)
	}
	if err != nil {
		respondError(c, "GetProfile", err)
		return
	}

	c.JSON(http.StatusOK, profileOf(user))
}

func (h *UserHandler) GetMyProfile(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	user, err := h.users.ByID(ctx, userID)
	if err != nil {
		respondError(c, "GetMyProfile", err)
		return
	}

	c.JSON(http.StatusOK, profileOf(user))
}
