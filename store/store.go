package store

import (
	"context"
	"encoding/base64"
	"strconv"
	"strings"
	"time"

	"threads/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PostStore persists Post aggregates and owns their invariants.
type PostStore interface {
	Create(ctx context.Context, authorID primitive.ObjectID, text, image string) (*models.Post, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error)
	ListByAuthor(ctx context.Context, authorID primitive.ObjectID) ([]models.Post, error)
	ListFeed(ctx context.Context, authorIDs []primitive.ObjectID, q FeedQuery) ([]models.Post, error)
	Delete(ctx context.Context, id, requesterID primitive.ObjectID) error
	ToggleLike(ctx context.Context, id, userID primitive.ObjectID) (*models.Post, error)
}

// ReplyStore mutates the replies embedded in a post.
type ReplyStore interface {
	Append(ctx context.Context, postID, authorID primitive.ObjectID, text string, author models.AuthorSnapshot) (*models.Reply, error)
	Remove(ctx context.Context, postID, replyID, requesterID primitive.ObjectID) error
}

// FeedQuery selects one page of a feed. A nil Before starts at the newest post.
type FeedQuery struct {
	Limit  int
	Before *Cursor
}

// Cursor is the keyset position of the last post of a page.
type Cursor struct {
	CreatedAt time.Time
	ID        primitive.ObjectID
}

func CursorFor(p *models.Post) *Cursor {
	return &Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
}

// Encode renders the cursor as an opaque URL-safe token.
func (c *Cursor) Encode() string {
	raw := strconv.FormatInt(c.CreatedAt.UnixMilli(), 10) + ":" + c.ID.Hex()
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func DecodeCursor(token string) (*Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, NewValidationError("cursor", "malformed cursor")
	}
	ms, hex, ok := strings.Cut(string(raw), ":")
	if !ok {
		return nil, NewValidationError("cursor", "malformed cursor")
	}
	millis, err := strconv.ParseInt(ms, 10, 64)
	if err != nil {
		return nil, NewValidationError("cursor", "malformed cursor")
	}
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return nil, NewValidationError("cursor", "malformed cursor")
	}
	return &Cursor{CreatedAt: time.UnixMilli(millis).UTC(), ID: id}, nil
}

// before reports whether p sorts after the cursor in (createdAt desc, _id desc).
func (c *Cursor) before(p *models.Post) bool {
	if p.CreatedAt.Before(c.CreatedAt) {
		return true
	}
	return p.CreatedAt.Equal(c.CreatedAt) && p.ID.Hex() < c.ID.Hex()
}

// now truncates to the precision Mongo stores so both stores agree on cursors.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func newPost(authorID primitive.ObjectID, text, image string) (*models.Post, error) {
	ts := now()
	p := &models.Post{
		ID:        primitive.NewObjectID(),
		AuthorID:  authorID,
		Text:      text,
		Image:     image,
		Likes:     []primitive.ObjectID{},
		Replies:   []models.Reply{},
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	models.NormalizePost(p)
	if err := models.ValidatePost(p); err != nil {
		return nil, postValidationError(err)
	}
	return p, nil
}

func newReply(authorID primitive.ObjectID, text string, author models.AuthorSnapshot) (*models.Reply, error) {
	ts := now()
	r := &models.Reply{
		ID:               primitive.NewObjectID(),
		AuthorID:         authorID,
		Text:             text,
		AuthorProfilePic: author.ProfilePic,
		AuthorUsername:   author.Username,
		CreatedAt:        ts,
		UpdatedAt:        ts,
	}
	models.NormalizeReply(r)
	if err := models.ValidateReply(r); err != nil {
		return nil, replyValidationError(err)
	}
	return r, nil
}
